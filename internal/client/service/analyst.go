package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/backoffice/prdesk/internal/client/transport"
	"github.com/backoffice/prdesk/internal/domain/pricing"
	"github.com/backoffice/prdesk/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const analystPath = "/pa/pr"

// AnalystService is the Pricing Analyst view of the API
type AnalystService struct {
	base
}

// NewAnalystService creates an AnalystService
func NewAnalystService(caller Caller, opts ...Option) *AnalystService {
	return &AnalystService{base: newBase(caller, opts)}
}

// ListAvailable returns unassigned requests waiting for review
func (s *AnalystService) ListAvailable(ctx context.Context, filter pricing.Status) ([]*pricing.PricingRequest, error) {
	query, err := statusQuery("pa_status", filter)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, transport.Request{Method: http.MethodGet, Path: analystPath, Query: query})
}

// ListMine returns the requests assigned to the caller
func (s *AnalystService) ListMine(ctx context.Context, filter pricing.Status) ([]*pricing.PricingRequest, error) {
	query, err := statusQuery("pa_status", filter)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, transport.Request{Method: http.MethodGet, Path: analystPath + "/my", Query: query})
}

// Get returns one request
func (s *AnalystService) Get(ctx context.Context, id string) (*pricing.PricingRequest, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return s.one(ctx, transport.Request{Method: http.MethodGet, Path: analystPath + "/" + id})
}

// Assign claims a request for the caller
func (s *AnalystService) Assign(ctx context.Context, id string) (*pricing.PricingRequest, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	pr, err := s.one(ctx, transport.Request{Method: http.MethodPost, Path: analystPath + "/" + id + "/assign"})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Pricing request assigned", zap.String("pr_id", id))
	return pr, nil
}

// Approve approves an active request. The comment may be empty.
func (s *AnalystService) Approve(ctx context.Context, id, comment string) (*pricing.PricingRequest, error) {
	return s.Decide(ctx, id, pricing.DecisionApprove, comment)
}

// Reject rejects an active request with a mandatory comment
func (s *AnalystService) Reject(ctx context.Context, id, comment string) (*pricing.PricingRequest, error) {
	return s.Decide(ctx, id, pricing.DecisionReject, comment)
}

// RequestAction returns an active request to its creator with a mandatory comment
func (s *AnalystService) RequestAction(ctx context.Context, id, comment string) (*pricing.PricingRequest, error) {
	return s.Decide(ctx, id, pricing.DecisionActionRequired, comment)
}

// Decide posts an approve-reject decision
func (s *AnalystService) Decide(ctx context.Context, id string, decision pricing.Decision, comment string) (*pricing.PricingRequest, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if decision.Action() == "" {
		return nil, transport.NewValidationError("unknown decision",
			transport.FieldError{Field: "action", Message: "must be approve, reject or action_required"})
	}
	comment = strings.TrimSpace(comment)
	if decision != pricing.DecisionApprove && comment == "" {
		return nil, transport.NewValidationError("a comment is required",
			transport.FieldError{Field: "comment", Message: "is required to " + strings.ReplaceAll(string(decision), "_", " ")})
	}
	body := dto.DecisionRequest{Action: string(decision), Comment: comment}
	pr, err := s.one(ctx, transport.Request{Method: http.MethodPost, Path: analystPath + "/" + id + "/approve-reject", Body: body})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Decision recorded", zap.String("pr_id", id), zap.String("decision", string(decision)))
	return pr, nil
}
