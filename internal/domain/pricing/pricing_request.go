package pricing

import (
	"time"

	"github.com/backoffice/prdesk/internal/domain/identity"
	"github.com/backoffice/prdesk/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCountry is assumed for addresses that do not name one
const DefaultCountry = "USA"

// Address is one end of a shipment
type Address struct {
	Address string
	State   string
	Zip     string
	Country string
}

// LineItem represents one shipped commodity of a pricing request
type LineItem struct {
	ID             string
	Name           string          `validate:"required,max=200"`
	CommodityClass string          `validate:"required,max=50"`
	TotalWeight    decimal.Decimal `validate:"gt=0"`
	HandlingUnit   string          `validate:"max=100"`
	Pieces         int             `validate:"gte=1"`
	ContainerType  string          `validate:"required,max=100"`
	Pallets        int             `validate:"gte=0"`
}

// Details holds everything a Sales Executive fills in. It is replaced as a
// whole on edit and resubmit.
type Details struct {
	ShipmentDate time.Time
	AccountInfo  string `validate:"max=200"`
	Discount     string `validate:"max=50"`
	Origin       Address
	Destination  Address
	Items        []LineItem `validate:"required,min=1,dive"`

	Accessorial string
	Pickup      string
	Delivery    string

	DaylightProtect      bool
	InsuranceDescription string
	InsuranceNote        string
}

// normalize enforces the shape rules that are not validation failures: insurance
// notes exist only under daylight protection, countries default, items get ids.
func (d *Details) normalize() {
	if !d.DaylightProtect {
		d.InsuranceDescription = ""
		d.InsuranceNote = ""
	}
	if d.Origin.Country == "" {
		d.Origin.Country = DefaultCountry
	}
	if d.Destination.Country == "" {
		d.Destination.Country = DefaultCountry
	}
	if !d.ShipmentDate.IsZero() {
		d.ShipmentDate = TruncateDate(d.ShipmentDate)
	}
	for i := range d.Items {
		if d.Items[i].ID == "" {
			d.Items[i].ID = uuid.New().String()
		}
	}
}

// Clone returns a deep copy
func (d Details) Clone() Details {
	out := d
	if d.Items != nil {
		out.Items = make([]LineItem, len(d.Items))
		copy(out.Items, d.Items)
	}
	return out
}

// Comment is an entry in the append-only discussion of a pricing request
type Comment struct {
	ID         string
	Text       string
	AuthorID   string
	AuthorRole identity.Role
	CreatedAt  time.Time
}

// PricingRequest is the aggregate root of the workflow. Its two status tracks
// are views of one lifecycle state; State derives that state.
type PricingRequest struct {
	shared.BaseAggregateRoot
	Details

	SalesStatus         Status
	AnalystStatus       Status
	FinalApprovalStatus Outcome

	CreatedBy      string
	AssignedTo     string
	Comments       []Comment
	SubmissionDate *time.Time
}

// NewPricingRequest creates a draft owned by the given Sales Executive
func NewPricingRequest(actor identity.Actor, details Details) (*PricingRequest, error) {
	if !actor.IsSales() {
		return nil, shared.NewDomainError(shared.CodeForbidden, "Only a Sales Executive can create a pricing request")
	}
	if actor.UserID == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Creator is required")
	}
	details = details.Clone()
	details.normalize()
	if err := ValidateDetails(details); err != nil {
		return nil, err
	}

	pr := &PricingRequest{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Details:           details,
		CreatedBy:         actor.UserID,
		Comments:          make([]Comment, 0),
	}
	pr.setState(StatusDraft)
	return pr, nil
}

// LastUpdated is touched by every mutation
func (pr *PricingRequest) LastUpdated() time.Time {
	return pr.UpdatedAt
}

// State derives the lifecycle state from the two tracks
func (pr *PricingRequest) State() Status {
	switch {
	case pr.SalesStatus == StatusClosed:
		return StatusClosed
	case pr.SalesStatus == StatusDraft:
		return StatusDraft
	case pr.AnalystStatus == StatusActive:
		return StatusActive
	case pr.SalesStatus == StatusActionRequired || pr.AnalystStatus == StatusActionRequired:
		return StatusActionRequired
	case pr.AnalystStatus == StatusApproved || pr.SalesStatus == StatusApproved:
		return StatusApproved
	case pr.AnalystStatus == StatusRejected || pr.SalesStatus == StatusRejected:
		return StatusRejected
	case pr.SalesStatus == StatusUnderReview || pr.AnalystStatus == StatusUnderReview:
		return StatusUnderReview
	}
	return StatusUnknown
}

// StateFor derives the state as seen from one role's own track. An analyst
// view payload may omit the sales track, so analysts read their track first.
func (pr *PricingRequest) StateFor(role identity.Role) Status {
	if role == identity.RolePricingAnalyst {
		switch pr.AnalystStatus {
		case StatusNone:
			return pr.State()
		case StatusApproved, StatusRejected:
			if pr.SalesStatus == StatusClosed {
				return StatusClosed
			}
		}
		return pr.AnalystStatus
	}
	return pr.State()
}

// IsOwnedBy reports whether the user created the request
func (pr *PricingRequest) IsOwnedBy(userID string) bool {
	return userID != "" && pr.CreatedBy == userID
}

// IsAssignedTo reports whether the user is the current assignee
func (pr *PricingRequest) IsAssignedTo(userID string) bool {
	return userID != "" && pr.AssignedTo == userID
}

// IsAssigned reports whether an analyst has claimed the request
func (pr *PricingRequest) IsAssigned() bool {
	return pr.AssignedTo != ""
}

// LastComment returns the most recent comment, if any
func (pr *PricingRequest) LastComment() (Comment, bool) {
	if len(pr.Comments) == 0 {
		return Comment{}, false
	}
	return pr.Comments[len(pr.Comments)-1], true
}

// Clone returns a deep copy, used for optimistic updates and snapshots
func (pr *PricingRequest) Clone() *PricingRequest {
	if pr == nil {
		return nil
	}
	out := *pr
	out.Details = pr.Details.Clone()
	if pr.Comments != nil {
		out.Comments = make([]Comment, len(pr.Comments))
		copy(out.Comments, pr.Comments)
	}
	if pr.SubmissionDate != nil {
		t := *pr.SubmissionDate
		out.SubmissionDate = &t
	}
	return &out
}

// TruncateDate drops the time of day, keeping the calendar date in UTC
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
