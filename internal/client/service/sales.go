package service

import (
	"context"
	"net/http"

	"github.com/backoffice/prdesk/internal/client/transport"
	"github.com/backoffice/prdesk/internal/domain/pricing"
	"github.com/backoffice/prdesk/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const salesPath = "/sales/pr"

// SalesService is the Sales Executive view of the API
type SalesService struct {
	base
}

// NewSalesService creates a SalesService
func NewSalesService(caller Caller, opts ...Option) *SalesService {
	return &SalesService{base: newBase(caller, opts)}
}

// SaveDraft creates a draft
func (s *SalesService) SaveDraft(ctx context.Context, details pricing.Details) (*pricing.PricingRequest, error) {
	if err := checkDetails(details); err != nil {
		return nil, err
	}
	pr, err := s.one(ctx, transport.Request{Method: http.MethodPost, Path: salesPath + "/save", Body: dto.DetailsToWire(details)})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Draft saved", zap.String("pr_id", pr.ID))
	return pr, nil
}

// Submit creates a request and sends it to the analysts in one call
func (s *SalesService) Submit(ctx context.Context, details pricing.Details) (*pricing.PricingRequest, error) {
	if err := checkDetails(details); err != nil {
		return nil, err
	}
	pr, err := s.one(ctx, transport.Request{Method: http.MethodPost, Path: salesPath + "/submit", Body: dto.DetailsToWire(details)})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Pricing request submitted", zap.String("pr_id", pr.ID))
	return pr, nil
}

// List returns the caller's requests, optionally filtered by sales status
func (s *SalesService) List(ctx context.Context, filter pricing.Status) ([]*pricing.PricingRequest, error) {
	query, err := statusQuery("sales_status", filter)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, transport.Request{Method: http.MethodGet, Path: salesPath, Query: query})
}

// Get returns one of the caller's requests
func (s *SalesService) Get(ctx context.Context, id string) (*pricing.PricingRequest, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return s.one(ctx, transport.Request{Method: http.MethodGet, Path: salesPath + "/" + id})
}

// Update replaces the details of a draft or action-required request
func (s *SalesService) Update(ctx context.Context, id string, details pricing.Details) (*pricing.PricingRequest, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if err := checkDetails(details); err != nil {
		return nil, err
	}
	return s.one(ctx, transport.Request{Method: http.MethodPut, Path: salesPath + "/" + id, Body: dto.DetailsToWire(details)})
}

// Resubmit sends corrected details back to the analysts
func (s *SalesService) Resubmit(ctx context.Context, id string, details pricing.Details) (*pricing.PricingRequest, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if err := checkDetails(details); err != nil {
		return nil, err
	}
	return s.one(ctx, transport.Request{Method: http.MethodPost, Path: salesPath + "/" + id + "/resubmit", Body: dto.DetailsToWire(details)})
}

// Delete removes a draft
func (s *SalesService) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	return s.caller.Do(ctx, transport.Request{Method: http.MethodDelete, Path: salesPath + "/" + id}, nil)
}

// SendToAnalyst submits an existing draft
func (s *SalesService) SendToAnalyst(ctx context.Context, id string) (*pricing.PricingRequest, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return s.one(ctx, transport.Request{Method: http.MethodPost, Path: salesPath + "/" + id + "/send-to-pa"})
}
