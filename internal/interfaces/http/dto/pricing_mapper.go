package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/backoffice/prdesk/internal/domain/identity"
	"github.com/backoffice/prdesk/internal/domain/pricing"
	"github.com/backoffice/prdesk/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// ToWire flattens a pricing request into its wire form
func ToWire(pr *pricing.PricingRequest) PricingRequestWire {
	w := PricingRequestWire{
		ID:                   pr.ID,
		AccountInfo:          pr.AccountInfo,
		Discount:             pr.Discount,
		OriginAddress:        pr.Origin.Address,
		OriginState:          pr.Origin.State,
		OriginZip:            pr.Origin.Zip,
		OriginCountry:        pr.Origin.Country,
		DestAddress:          pr.Destination.Address,
		DestState:            pr.Destination.State,
		DestZip:              pr.Destination.Zip,
		DestCountry:          pr.Destination.Country,
		Accessorial:          pr.Accessorial,
		Pickup:               pr.Pickup,
		Delivery:             pr.Delivery,
		DaylightProtect:      pr.DaylightProtect,
		InsuranceDescription: pr.InsuranceDescription,
		InsuranceNote:        pr.InsuranceNote,
		Items:                make([]LineItemWire, len(pr.Items)),
		SalesStatus:          pr.SalesStatus.String(),
		AnalystStatus:        pr.AnalystStatus.String(),
		FinalApprovalStatus:  pr.FinalApprovalStatus.String(),
		CreatedBy:            pr.CreatedBy,
		CreatedAt:            formatTimestamp(pr.CreatedAt),
		LastUpdated:          formatTimestamp(pr.UpdatedAt),
		Version:              pr.Version,
		Comments:             make([]CommentWire, len(pr.Comments)),
	}
	if !pr.ShipmentDate.IsZero() {
		w.ShipmentDate = pr.ShipmentDate.Format(DateLayout)
	}
	if pr.AssignedTo != "" {
		a := pr.AssignedTo
		w.AssignedTo = &a
	}
	if pr.SubmissionDate != nil {
		s := formatTimestamp(*pr.SubmissionDate)
		w.SubmissionDate = &s
	}
	for i, it := range pr.Items {
		w.Items[i] = LineItemWire{
			ID:             it.ID,
			ItemName:       it.Name,
			CommodityClass: it.CommodityClass,
			TotalWeight:    it.TotalWeight.InexactFloat64(),
			HandlingUnit:   it.HandlingUnit,
			NoOfPieces:     it.Pieces,
			ContainerType:  it.ContainerType,
			NoOfPallets:    it.Pallets,
		}
	}
	for i, c := range pr.Comments {
		w.Comments[i] = CommentWire{
			ID:          c.ID,
			CommentText: c.Text,
			AuthorID:    c.AuthorID,
			AuthorRole:  c.AuthorRole.String(),
			CreatedAt:   formatTimestamp(c.CreatedAt),
		}
	}
	return w
}

// ToWireList maps a list of pricing requests
func ToWireList(prs []*pricing.PricingRequest) []PricingRequestWire {
	out := make([]PricingRequestWire, len(prs))
	for i, pr := range prs {
		out[i] = ToWire(pr)
	}
	return out
}

// FromWire rebuilds a fully populated pricing request. Absent strings stay
// empty, countries default to USA and an absent sales status means Draft.
// Unparseable dates are left zero.
func FromWire(w PricingRequestWire) *pricing.PricingRequest {
	pr := &pricing.PricingRequest{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        w.ID,
				CreatedAt: parseTimestamp(w.CreatedAt),
				UpdatedAt: parseTimestamp(w.LastUpdated),
			},
			Version: w.Version,
		},
		Details:             detailsFromWire(w),
		SalesStatus:         pricing.ParseStatus(w.SalesStatus),
		AnalystStatus:       pricing.ParseStatus(w.AnalystStatus),
		FinalApprovalStatus: pricing.ParseOutcome(w.FinalApprovalStatus),
		CreatedBy:           w.CreatedBy,
		Comments:            make([]pricing.Comment, len(w.Comments)),
	}
	if d, err := parseDate(w.ShipmentDate); err == nil {
		pr.ShipmentDate = d
	}
	if pr.SalesStatus == pricing.StatusNone {
		pr.SalesStatus = pricing.StatusDraft
	}
	if w.AssignedTo != nil {
		pr.AssignedTo = *w.AssignedTo
	}
	if w.SubmissionDate != nil && *w.SubmissionDate != "" {
		t := parseTimestamp(*w.SubmissionDate)
		pr.SubmissionDate = &t
	}
	for i, c := range w.Comments {
		role, _ := identity.ParseRole(c.AuthorRole)
		pr.Comments[i] = pricing.Comment{
			ID:         c.ID,
			Text:       c.CommentText,
			AuthorID:   c.AuthorID,
			AuthorRole: role,
			CreatedAt:  parseTimestamp(c.CreatedAt),
		}
	}
	return pr
}

// FromWireList maps a list of wire records
func FromWireList(ws []PricingRequestWire) []*pricing.PricingRequest {
	out := make([]*pricing.PricingRequest, len(ws))
	for i, w := range ws {
		out[i] = FromWire(w)
	}
	return out
}

// DetailsFromWire reads the user-entered fields of a request body. Unlike
// FromWire it rejects a malformed shipment date.
func DetailsFromWire(w PricingRequestWire) (pricing.Details, error) {
	d := detailsFromWire(w)
	date, err := parseDate(w.ShipmentDate)
	if err != nil {
		return pricing.Details{}, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("shipment_date %q is not a YYYY-MM-DD date", w.ShipmentDate))
	}
	d.ShipmentDate = date
	return d, nil
}

// DetailsToWire builds a request body from details
func DetailsToWire(d pricing.Details) PricingRequestWire {
	return ToWire(&pricing.PricingRequest{Details: d})
}

func detailsFromWire(w PricingRequestWire) pricing.Details {
	d := pricing.Details{
		AccountInfo:          w.AccountInfo,
		Discount:             w.Discount,
		Origin:               pricing.Address{Address: w.OriginAddress, State: w.OriginState, Zip: w.OriginZip, Country: orDefaultCountry(w.OriginCountry)},
		Destination:          pricing.Address{Address: w.DestAddress, State: w.DestState, Zip: w.DestZip, Country: orDefaultCountry(w.DestCountry)},
		Accessorial:          w.Accessorial,
		Pickup:               w.Pickup,
		Delivery:             w.Delivery,
		DaylightProtect:      w.DaylightProtect,
		InsuranceDescription: w.InsuranceDescription,
		InsuranceNote:        w.InsuranceNote,
		Items:                make([]pricing.LineItem, len(w.Items)),
	}
	for i, it := range w.Items {
		d.Items[i] = pricing.LineItem{
			ID:             it.ID,
			Name:           it.ItemName,
			CommodityClass: it.CommodityClass,
			TotalWeight:    decimal.NewFromFloat(it.TotalWeight),
			HandlingUnit:   it.HandlingUnit,
			Pieces:         it.NoOfPieces,
			ContainerType:  it.ContainerType,
			Pallets:        it.NoOfPallets,
		}
	}
	return d
}

func orDefaultCountry(c string) string {
	if strings.TrimSpace(c) == "" {
		return pricing.DefaultCountry
	}
	return c
}

// parseDate accepts YYYY-MM-DD or an RFC 3339 timestamp and keeps the date.
// An empty string is the zero date.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return pricing.TruncateDate(t), nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t
	}
	return time.Time{}
}
