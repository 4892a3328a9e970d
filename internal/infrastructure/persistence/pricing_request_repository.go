package persistence

import (
	"context"
	"errors"

	"github.com/backoffice/prdesk/internal/domain/pricing"
	"github.com/backoffice/prdesk/internal/domain/shared"
	"github.com/backoffice/prdesk/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPricingRequestRepository implements pricing.Repository using GORM
type GormPricingRequestRepository struct {
	db *gorm.DB
}

// NewGormPricingRequestRepository creates a new GormPricingRequestRepository
func NewGormPricingRequestRepository(db *gorm.DB) *GormPricingRequestRepository {
	return &GormPricingRequestRepository{db: db}
}

func withChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") })
}

// FindByID finds a pricing request with its items and comments
func (r *GormPricingRequestRepository) FindByID(ctx context.Context, id string) (*pricing.PricingRequest, error) {
	var m models.PricingRequestModel
	if err := withChildren(r.db.WithContext(ctx)).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByCreator lists a Sales Executive's requests, newest first
func (r *GormPricingRequestRepository) FindByCreator(ctx context.Context, userID string, salesStatus pricing.Status) ([]*pricing.PricingRequest, error) {
	q := r.db.WithContext(ctx).Where("created_by = ?", userID)
	if salesStatus != pricing.StatusNone {
		q = q.Where("sales_status = ?", string(salesStatus))
	}
	return r.list(q)
}

// FindAvailable lists submitted requests no analyst has claimed. Without a
// filter only Under Review requests are available.
func (r *GormPricingRequestRepository) FindAvailable(ctx context.Context, analystStatus pricing.Status) ([]*pricing.PricingRequest, error) {
	if analystStatus == pricing.StatusNone {
		analystStatus = pricing.StatusUnderReview
	}
	q := r.db.WithContext(ctx).
		Where("assigned_to IS NULL").
		Where("analyst_status = ?", string(analystStatus))
	return r.list(q)
}

// FindAssignedTo lists the requests assigned to an analyst
func (r *GormPricingRequestRepository) FindAssignedTo(ctx context.Context, userID string, analystStatus pricing.Status) ([]*pricing.PricingRequest, error) {
	q := r.db.WithContext(ctx).Where("assigned_to = ?", userID)
	if analystStatus != pricing.StatusNone {
		q = q.Where("analyst_status = ?", string(analystStatus))
	}
	return r.list(q)
}

func (r *GormPricingRequestRepository) list(q *gorm.DB) ([]*pricing.PricingRequest, error) {
	var rows []models.PricingRequestModel
	if err := withChildren(q).Order("created_at DESC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*pricing.PricingRequest, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Create inserts a new pricing request with its items and comments
func (r *GormPricingRequestRepository) Create(ctx context.Context, pr *pricing.PricingRequest) error {
	m := models.PricingRequestModelFromDomain(pr)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Save persists a modified pricing request under optimistic locking. Items
// are replaced as a whole; comments are append-only, so only new ones are
// inserted.
func (r *GormPricingRequestRepository) Save(ctx context.Context, pr *pricing.PricingRequest) error {
	m := models.PricingRequestModelFromDomain(pr)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.PricingRequestModel{}).
			Where("id = ? AND version = ?", pr.ID, pr.Version).
			Updates(map[string]any{
				"shipment_date":         m.ShipmentDate,
				"account_info":          m.AccountInfo,
				"discount":              m.Discount,
				"origin_address":        m.OriginAddress,
				"origin_state":          m.OriginState,
				"origin_zip":            m.OriginZip,
				"origin_country":        m.OriginCountry,
				"destination_address":   m.DestinationAddress,
				"destination_state":     m.DestinationState,
				"destination_zip":       m.DestinationZip,
				"destination_country":   m.DestinationCountry,
				"accessorial":           m.Accessorial,
				"pickup":                m.Pickup,
				"delivery":              m.Delivery,
				"daylight_protect":      m.DaylightProtect,
				"insurance_description": m.InsuranceDescription,
				"insurance_note":        m.InsuranceNote,
				"sales_status":          m.SalesStatus,
				"analyst_status":        m.AnalystStatus,
				"final_approval_status": m.FinalApprovalStatus,
				"assigned_to":           m.AssignedTo,
				"submission_date":       m.SubmissionDate,
				"updated_at":            m.UpdatedAt,
				"version":               pr.Version + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return r.missingOrConflict(tx, pr.ID)
		}

		if err := tx.Where("pricing_request_id = ?", pr.ID).Delete(&models.LineItemModel{}).Error; err != nil {
			return err
		}
		if len(m.Items) > 0 {
			if err := tx.Create(&m.Items).Error; err != nil {
				return err
			}
		}
		if len(m.Comments) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&m.Comments).Error; err != nil {
				return err
			}
		}

		pr.Version++
		return nil
	})
}

func (r *GormPricingRequestRepository) missingOrConflict(tx *gorm.DB, id string) error {
	var count int64
	if err := tx.Model(&models.PricingRequestModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return shared.ErrNotFound
	}
	return shared.ErrConcurrencyConflict
}

// Delete removes a pricing request with its items and comments
func (r *GormPricingRequestRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pricing_request_id = ?", id).Delete(&models.CommentModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("pricing_request_id = ?", id).Delete(&models.LineItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.PricingRequestModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// CountByState returns how many requests sit in each sales track label
func (r *GormPricingRequestRepository) CountByState(ctx context.Context) (map[pricing.Status]int64, error) {
	var rows []struct {
		SalesStatus string
		N           int64
	}
	if err := r.db.WithContext(ctx).Model(&models.PricingRequestModel{}).
		Select("sales_status, COUNT(*) AS n").Group("sales_status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[pricing.Status]int64, len(rows))
	for _, row := range rows {
		out[pricing.ParseStatus(row.SalesStatus)] += row.N
	}
	return out, nil
}

var _ pricing.Repository = (*GormPricingRequestRepository)(nil)
