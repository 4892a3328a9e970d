// Package service holds the role-scoped request services of the prdesk
// client. Each call validates its payload, goes through the transport once and
// maps the answer back into domain types. Services never cache.
package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/backoffice/prdesk/internal/client/transport"
	"github.com/backoffice/prdesk/internal/domain/pricing"
	"github.com/backoffice/prdesk/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Caller performs one API call. *session.Session and *transport.Client both
// satisfy it.
type Caller interface {
	Do(ctx context.Context, req transport.Request, out any) error
}

// Option configures a service
type Option func(*base)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(b *base) {
		b.logger = l
	}
}

type base struct {
	caller Caller
	logger *zap.Logger
}

func newBase(caller Caller, opts []Option) base {
	b := base{caller: caller, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b base) one(ctx context.Context, req transport.Request) (*pricing.PricingRequest, error) {
	var w dto.PricingRequestWire
	if err := b.caller.Do(ctx, req, &w); err != nil {
		return nil, err
	}
	return dto.FromWire(w), nil
}

func (b base) list(ctx context.Context, req transport.Request) ([]*pricing.PricingRequest, error) {
	var ws []dto.PricingRequestWire
	if err := b.caller.Do(ctx, req, &ws); err != nil {
		return nil, err
	}
	return dto.FromWireList(ws), nil
}

// checkDetails runs the same rules the server applies and turns violations
// into a local validation error
func checkDetails(d pricing.Details) error {
	err := pricing.ValidateDetails(d)
	if err == nil {
		return nil
	}
	var verr *pricing.ValidationError
	if !errors.As(err, &verr) {
		return transport.NewValidationError(err.Error())
	}
	fields := make([]transport.FieldError, len(verr.Violations))
	for i, v := range verr.Violations {
		fields[i] = transport.FieldError{Field: v.Field, Message: v.Message}
	}
	return transport.NewValidationError("Pricing request is invalid", fields...)
}

// checkID rejects ids that would change the request path once the URL is
// cleaned: empty, containing a slash, or a dot segment
func checkID(id string) error {
	if strings.TrimSpace(id) == "" {
		return transport.NewValidationError("a pricing request id is required",
			transport.FieldError{Field: "id", Message: "is required"})
	}
	if id == "." || id == ".." || strings.Contains(id, "/") {
		return transport.NewValidationError("invalid pricing request id",
			transport.FieldError{Field: "id", Message: "must be a single path segment"})
	}
	return nil
}

// statusQuery builds the filter query. StatusNone means no filter.
func statusQuery(param string, filter pricing.Status) (url.Values, error) {
	if filter == pricing.StatusNone {
		return nil, nil
	}
	if !filter.IsKnown() {
		return nil, transport.NewValidationError("unknown status filter",
			transport.FieldError{Field: param, Message: "must be a known status"})
	}
	return url.Values{param: {filter.String()}}, nil
}
