package pricing

import (
	"context"
	"errors"

	"github.com/backoffice/prdesk/internal/domain/identity"
	"github.com/backoffice/prdesk/internal/domain/pricing"
	"github.com/backoffice/prdesk/internal/domain/shared"
	"github.com/backoffice/prdesk/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// TransitionRecorder counts workflow actions
type TransitionRecorder interface {
	RecordTransition(action pricing.Action, result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordTransition(pricing.Action, string) {}

// WorkflowService runs the pricing request workflow for both roles. Every
// state change goes through the aggregate, which enforces the transition
// table, and is persisted under optimistic locking.
type WorkflowService struct {
	repo     pricing.Repository
	recorder TransitionRecorder
	logger   *zap.Logger
}

// NewWorkflowService creates a new WorkflowService. recorder may be nil.
func NewWorkflowService(repo pricing.Repository, recorder TransitionRecorder, log *zap.Logger) *WorkflowService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WorkflowService{repo: repo, recorder: recorder, logger: log}
}

// ============================================
// Sales Executive operations
// ============================================

// SaveDraft creates a draft owned by the actor
func (s *WorkflowService) SaveDraft(ctx context.Context, actor identity.Actor, details pricing.Details) (*pricing.PricingRequest, error) {
	pr, err := pricing.NewPricingRequest(actor, details)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, pr); err != nil {
		return nil, err
	}
	s.log(ctx).Info("Pricing request drafted", zap.String("pr_id", pr.ID))
	return pr, nil
}

// Submit creates a request and submits it in one step
func (s *WorkflowService) Submit(ctx context.Context, actor identity.Actor, details pricing.Details) (*pricing.PricingRequest, error) {
	pr, err := pricing.NewPricingRequest(actor, details)
	if err != nil {
		return nil, err
	}
	if err := pr.Submit(actor); err != nil {
		s.count(pricing.ActionSubmit, err)
		return nil, err
	}
	if err := s.repo.Create(ctx, pr); err != nil {
		return nil, err
	}
	s.count(pricing.ActionSubmit, nil)
	s.log(ctx).Info("Pricing request submitted", zap.String("pr_id", pr.ID))
	return pr, nil
}

// ListCreated lists the actor's own requests, optionally filtered by a sales
// track label in any accepted spelling
func (s *WorkflowService) ListCreated(ctx context.Context, actor identity.Actor, statusFilter string) ([]*pricing.PricingRequest, error) {
	if !actor.IsSales() {
		return nil, shared.ErrForbidden
	}
	status, err := parseFilter(statusFilter)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByCreator(ctx, actor.UserID, status)
}

// GetCreated returns one of the actor's own requests
func (s *WorkflowService) GetCreated(ctx context.Context, actor identity.Actor, id string) (*pricing.PricingRequest, error) {
	pr, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsSales() || !pr.IsOwnedBy(actor.UserID) {
		return nil, shared.NewDomainError(shared.CodeForbidden, "Only the creator can view this pricing request")
	}
	return pr, nil
}

// Update replaces the details of a draft or action-required request
func (s *WorkflowService) Update(ctx context.Context, actor identity.Actor, id string, details pricing.Details) (*pricing.PricingRequest, error) {
	return s.transition(ctx, id, pricing.ActionEdit, func(pr *pricing.PricingRequest) error {
		return pr.Edit(actor, details)
	})
}

// Resubmit replaces the details of an action-required request and returns it
// to the analysts' pool
func (s *WorkflowService) Resubmit(ctx context.Context, actor identity.Actor, id string, details pricing.Details) (*pricing.PricingRequest, error) {
	return s.transition(ctx, id, pricing.ActionResubmit, func(pr *pricing.PricingRequest) error {
		return pr.Resubmit(actor, details)
	})
}

// SendToAnalyst submits an existing draft
func (s *WorkflowService) SendToAnalyst(ctx context.Context, actor identity.Actor, id string) (*pricing.PricingRequest, error) {
	return s.transition(ctx, id, pricing.ActionSubmit, func(pr *pricing.PricingRequest) error {
		return pr.Submit(actor)
	})
}

// Delete removes a draft
func (s *WorkflowService) Delete(ctx context.Context, actor identity.Actor, id string) error {
	pr, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := pr.CheckDelete(actor); err != nil {
		s.count(pricing.ActionDelete, err)
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.count(pricing.ActionDelete, nil)
	s.log(ctx).Info("Pricing request deleted", zap.String("pr_id", id))
	return nil
}

// ============================================
// Pricing Analyst operations
// ============================================

// ListAvailable lists submitted requests no analyst has claimed
func (s *WorkflowService) ListAvailable(ctx context.Context, actor identity.Actor, statusFilter string) ([]*pricing.PricingRequest, error) {
	if !actor.IsAnalyst() {
		return nil, shared.ErrForbidden
	}
	status, err := parseFilter(statusFilter)
	if err != nil {
		return nil, err
	}
	return s.repo.FindAvailable(ctx, status)
}

// ListAssigned lists the requests assigned to the actor
func (s *WorkflowService) ListAssigned(ctx context.Context, actor identity.Actor, statusFilter string) ([]*pricing.PricingRequest, error) {
	if !actor.IsAnalyst() {
		return nil, shared.ErrForbidden
	}
	status, err := parseFilter(statusFilter)
	if err != nil {
		return nil, err
	}
	return s.repo.FindAssignedTo(ctx, actor.UserID, status)
}

// GetForReview returns a submitted request. Drafts are invisible to analysts.
func (s *WorkflowService) GetForReview(ctx context.Context, actor identity.Actor, id string) (*pricing.PricingRequest, error) {
	if !actor.IsAnalyst() {
		return nil, shared.ErrForbidden
	}
	pr, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if pr.State() == pricing.StatusDraft {
		return nil, shared.ErrNotFound
	}
	return pr, nil
}

// Assign claims an unassigned request for the actor. Two analysts racing
// for the same request are separated by the version check: the loser gets
// CONCURRENCY_CONFLICT.
func (s *WorkflowService) Assign(ctx context.Context, actor identity.Actor, id string) (*pricing.PricingRequest, error) {
	return s.transition(ctx, id, pricing.ActionAssign, func(pr *pricing.PricingRequest) error {
		return pr.Assign(actor)
	})
}

// Decide applies an analyst decision. Approved and rejected requests are
// closed in the same write.
func (s *WorkflowService) Decide(ctx context.Context, actor identity.Actor, id string, decision pricing.Decision, comment string) (*pricing.PricingRequest, error) {
	return s.transition(ctx, id, decision.Action(), func(pr *pricing.PricingRequest) error {
		if err := pr.Decide(actor, decision, comment); err != nil {
			return err
		}
		if decision == pricing.DecisionActionRequired {
			return nil
		}
		return pr.Close()
	})
}

// transition loads, mutates and saves one request
func (s *WorkflowService) transition(ctx context.Context, id string, action pricing.Action, apply func(*pricing.PricingRequest) error) (*pricing.PricingRequest, error) {
	pr, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(pr); err != nil {
		s.count(action, err)
		return nil, err
	}
	if err := s.repo.Save(ctx, pr); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			s.log(ctx).Warn("Lost optimistic lock on pricing request",
				zap.String("pr_id", id), zap.String("action", action.String()))
		}
		s.count(action, err)
		return nil, err
	}
	s.count(action, nil)
	s.log(ctx).Info("Pricing request transitioned",
		zap.String("pr_id", pr.ID),
		zap.String("action", action.String()),
		zap.String("sales_status", pr.SalesStatus.String()),
		zap.String("analyst_status", pr.AnalystStatus.String()),
	)
	return pr, nil
}

// count records the outcome of an action. Infrastructure errors are not
// workflow results and are not counted.
func (s *WorkflowService) count(action pricing.Action, err error) {
	if err == nil {
		s.recorder.RecordTransition(action, "ok")
		return
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		s.recorder.RecordTransition(action, de.Code)
	}
}

func (s *WorkflowService) log(ctx context.Context) *logger.ContextLogger {
	return logger.LOr(ctx, s.logger)
}

func parseFilter(filter string) (pricing.Status, error) {
	status := pricing.ParseStatus(filter)
	if status == pricing.StatusUnknown {
		return "", shared.NewDomainError(shared.CodeInvalidInput, "Unknown status filter "+filter)
	}
	return status, nil
}
