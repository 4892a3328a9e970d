package pricing

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/backoffice/prdesk/internal/domain/shared"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		// Compare decimals numerically so that gt/gte tags apply
		validate.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if name, ok := fieldNames[fld.Name]; ok {
				return name
			}
			return fld.Name
		})
	})
	return validate
}

// fieldNames maps struct fields to the names users see in messages, which are
// the wire names
var fieldNames = map[string]string{
	"Items":          "items",
	"AccountInfo":    "account_info",
	"Discount":       "discount",
	"Name":           "item_name",
	"CommodityClass": "commodity_class",
	"TotalWeight":    "total_weight",
	"HandlingUnit":   "handling_unit",
	"Pieces":         "no_of_pieces",
	"ContainerType":  "container_type",
	"Pallets":        "no_of_pallets",
}

// Violation is one failed rule
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rule a payload broke. It matches
// shared.ErrInvalidInput with errors.Is.
type ValidationError struct {
	Violations []Violation
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + ": " + v.Message
	}
	return "invalid pricing request: " + strings.Join(parts, "; ")
}

// Unwrap exposes the domain error code
func (e *ValidationError) Unwrap() error {
	return shared.ErrInvalidInput
}

// ValidateDetails checks the user-entered part of a pricing request. It is
// run by clients before anything is sent and again by the server.
func ValidateDetails(d Details) error {
	err := getValidator().Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating pricing request: %w", err)
	}
	out := &ValidationError{Violations: make([]Violation, 0, len(verrs))}
	for _, fe := range verrs {
		out.Violations = append(out.Violations, Violation{
			Field:   trimNamespace(fe.Namespace()),
			Message: describe(fe),
		})
	}
	return out
}

func trimNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Field() == "items" {
			return "at least one item is required"
		}
		return "is required"
	case "min":
		if fe.Field() == "items" {
			return "at least one item is required"
		}
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gt":
		return "must be positive"
	case "gte":
		if fe.Param() == "0" {
			return "must not be negative"
		}
		return "must be at least " + fe.Param()
	}
	return "is invalid"
}
