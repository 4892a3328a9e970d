package models

import (
	"time"

	"github.com/backoffice/prdesk/internal/domain/identity"
	"github.com/backoffice/prdesk/internal/domain/pricing"
	"github.com/shopspring/decimal"
)

// PricingRequestModel is the persistence model for pricing.PricingRequest.
// Status columns hold canonical labels.
type PricingRequestModel struct {
	AggregateModel
	ShipmentDate *time.Time `gorm:"type:date"`
	AccountInfo  string     `gorm:"type:varchar(200)"`
	Discount     string     `gorm:"type:varchar(50)"`

	OriginAddress      string `gorm:"type:varchar(300)"`
	OriginState        string `gorm:"type:varchar(100)"`
	OriginZip          string `gorm:"type:varchar(20)"`
	OriginCountry      string `gorm:"type:varchar(100)"`
	DestinationAddress string `gorm:"type:varchar(300)"`
	DestinationState   string `gorm:"type:varchar(100)"`
	DestinationZip     string `gorm:"type:varchar(20)"`
	DestinationCountry string `gorm:"type:varchar(100)"`

	Accessorial          string `gorm:"type:varchar(200)"`
	Pickup               string `gorm:"type:varchar(200)"`
	Delivery             string `gorm:"type:varchar(200)"`
	DaylightProtect      bool   `gorm:"not null;default:false"`
	InsuranceDescription string `gorm:"type:text"`
	InsuranceNote        string `gorm:"type:text"`

	SalesStatus         string  `gorm:"type:varchar(30);not null;index"`
	AnalystStatus       string  `gorm:"type:varchar(30);not null;default:'';index"`
	FinalApprovalStatus string  `gorm:"type:varchar(20);not null;default:''"`
	CreatedBy           string  `gorm:"type:varchar(36);not null;index"`
	AssignedTo          *string `gorm:"type:varchar(36);index"`
	SubmissionDate      *time.Time

	Items    []LineItemModel `gorm:"foreignKey:PricingRequestID;constraint:OnDelete:CASCADE"`
	Comments []CommentModel  `gorm:"foreignKey:PricingRequestID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (PricingRequestModel) TableName() string {
	return "pricing_requests"
}

// LineItemModel is one row of pricing_request_items. Position keeps the
// user's ordering.
type LineItemModel struct {
	ID               string          `gorm:"type:varchar(36);primaryKey"`
	PricingRequestID string          `gorm:"type:varchar(36);not null;index"`
	Position         int             `gorm:"not null"`
	Name             string          `gorm:"type:varchar(200);not null"`
	CommodityClass   string          `gorm:"type:varchar(50);not null"`
	TotalWeight      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	HandlingUnit     string          `gorm:"type:varchar(100)"`
	Pieces           int             `gorm:"not null"`
	ContainerType    string          `gorm:"type:varchar(100);not null"`
	Pallets          int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (LineItemModel) TableName() string {
	return "pricing_request_items"
}

// CommentModel is one row of pricing_request_comments
type CommentModel struct {
	ID               string    `gorm:"type:varchar(36);primaryKey"`
	PricingRequestID string    `gorm:"type:varchar(36);not null;index"`
	Text             string    `gorm:"type:text;not null"`
	AuthorID         string    `gorm:"type:varchar(36);not null"`
	AuthorRole       string    `gorm:"type:varchar(10);not null"`
	CreatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CommentModel) TableName() string {
	return "pricing_request_comments"
}

// PricingRequestModelFromDomain creates a persistence model, items and
// comments included
func PricingRequestModelFromDomain(pr *pricing.PricingRequest) *PricingRequestModel {
	m := &PricingRequestModel{
		AccountInfo:          pr.AccountInfo,
		Discount:             pr.Discount,
		OriginAddress:        pr.Origin.Address,
		OriginState:          pr.Origin.State,
		OriginZip:            pr.Origin.Zip,
		OriginCountry:        pr.Origin.Country,
		DestinationAddress:   pr.Destination.Address,
		DestinationState:     pr.Destination.State,
		DestinationZip:       pr.Destination.Zip,
		DestinationCountry:   pr.Destination.Country,
		Accessorial:          pr.Accessorial,
		Pickup:               pr.Pickup,
		Delivery:             pr.Delivery,
		DaylightProtect:      pr.DaylightProtect,
		InsuranceDescription: pr.InsuranceDescription,
		InsuranceNote:        pr.InsuranceNote,
		SalesStatus:          string(pr.SalesStatus),
		AnalystStatus:        string(pr.AnalystStatus),
		FinalApprovalStatus:  string(pr.FinalApprovalStatus),
		CreatedBy:            pr.CreatedBy,
		SubmissionDate:       pr.SubmissionDate,
	}
	m.FromDomainAggregateRoot(pr.BaseAggregateRoot)
	if !pr.ShipmentDate.IsZero() {
		d := pr.ShipmentDate
		m.ShipmentDate = &d
	}
	if pr.AssignedTo != "" {
		a := pr.AssignedTo
		m.AssignedTo = &a
	}
	m.Items = LineItemModelsFromDomain(pr.ID, pr.Items)
	m.Comments = make([]CommentModel, len(pr.Comments))
	for i, c := range pr.Comments {
		m.Comments[i] = CommentModelFromDomain(pr.ID, c)
	}
	return m
}

// LineItemModelsFromDomain converts items, recording their order
func LineItemModelsFromDomain(prID string, items []pricing.LineItem) []LineItemModel {
	out := make([]LineItemModel, len(items))
	for i, it := range items {
		out[i] = LineItemModel{
			ID:               it.ID,
			PricingRequestID: prID,
			Position:         i,
			Name:             it.Name,
			CommodityClass:   it.CommodityClass,
			TotalWeight:      it.TotalWeight,
			HandlingUnit:     it.HandlingUnit,
			Pieces:           it.Pieces,
			ContainerType:    it.ContainerType,
			Pallets:          it.Pallets,
		}
	}
	return out
}

// CommentModelFromDomain converts one comment
func CommentModelFromDomain(prID string, c pricing.Comment) CommentModel {
	return CommentModel{
		ID:               c.ID,
		PricingRequestID: prID,
		Text:             c.Text,
		AuthorID:         c.AuthorID,
		AuthorRole:       string(c.AuthorRole),
		CreatedAt:        c.CreatedAt,
	}
}

// ToDomain converts the model back to the aggregate. Items and comments
// must be preloaded in display order.
func (m *PricingRequestModel) ToDomain() *pricing.PricingRequest {
	pr := &pricing.PricingRequest{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Details: pricing.Details{
			AccountInfo: m.AccountInfo,
			Discount:    m.Discount,
			Origin: pricing.Address{
				Address: m.OriginAddress, State: m.OriginState, Zip: m.OriginZip, Country: m.OriginCountry,
			},
			Destination: pricing.Address{
				Address: m.DestinationAddress, State: m.DestinationState, Zip: m.DestinationZip, Country: m.DestinationCountry,
			},
			Items:                make([]pricing.LineItem, len(m.Items)),
			Accessorial:          m.Accessorial,
			Pickup:               m.Pickup,
			Delivery:             m.Delivery,
			DaylightProtect:      m.DaylightProtect,
			InsuranceDescription: m.InsuranceDescription,
			InsuranceNote:        m.InsuranceNote,
		},
		SalesStatus:         pricing.ParseStatus(m.SalesStatus),
		AnalystStatus:       pricing.ParseStatus(m.AnalystStatus),
		FinalApprovalStatus: pricing.ParseOutcome(m.FinalApprovalStatus),
		CreatedBy:           m.CreatedBy,
		Comments:            make([]pricing.Comment, len(m.Comments)),
		SubmissionDate:      m.SubmissionDate,
	}
	if m.ShipmentDate != nil {
		pr.ShipmentDate = pricing.TruncateDate(*m.ShipmentDate)
	}
	if m.AssignedTo != nil {
		pr.AssignedTo = *m.AssignedTo
	}
	for i, it := range m.Items {
		pr.Items[i] = pricing.LineItem{
			ID:             it.ID,
			Name:           it.Name,
			CommodityClass: it.CommodityClass,
			TotalWeight:    it.TotalWeight,
			HandlingUnit:   it.HandlingUnit,
			Pieces:         it.Pieces,
			ContainerType:  it.ContainerType,
			Pallets:        it.Pallets,
		}
	}
	for i, c := range m.Comments {
		role, _ := identity.ParseRole(c.AuthorRole)
		pr.Comments[i] = pricing.Comment{
			ID:         c.ID,
			Text:       c.Text,
			AuthorID:   c.AuthorID,
			AuthorRole: role,
			CreatedAt:  c.CreatedAt,
		}
	}
	return pr
}
