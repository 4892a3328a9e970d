package desk

import (
	"context"

	"github.com/backoffice/prdesk/internal/domain/identity"
	"github.com/backoffice/prdesk/internal/domain/pricing"
	"golang.org/x/sync/errgroup"
)

// SalesStats summarizes a sales executive's requests by state. Closed
// requests count toward the outcome they were decided with.
type SalesStats struct {
	Total          int `json:"total" yaml:"total"`
	Drafts         int `json:"drafts" yaml:"drafts"`
	UnderReview    int `json:"under_review" yaml:"under_review"`
	ActionRequired int `json:"action_required" yaml:"action_required"`
	Approved       int `json:"approved" yaml:"approved"`
	Rejected       int `json:"rejected" yaml:"rejected"`
}

// AnalystStats summarizes the review pool and the analyst's own queue
type AnalystStats struct {
	Available      int `json:"available" yaml:"available"`
	Assigned       int `json:"assigned" yaml:"assigned"`
	Active         int `json:"active" yaml:"active"`
	ActionRequired int `json:"action_required" yaml:"action_required"`
	Closed         int `json:"closed" yaml:"closed"`
}

// SalesStats counts the cached request list, fetching it if needed
func (d *Desk) SalesStats(ctx context.Context) (SalesStats, error) {
	if d.sales == nil {
		return SalesStats{}, d.roleError("view sales statistics")
	}
	list, err := d.loadList(ctx, d.salesKey(), pricing.StatusNone, nil)
	if err != nil {
		return SalesStats{}, err
	}

	s := SalesStats{Total: len(list)}
	for _, pr := range list {
		switch pr.State() {
		case pricing.StatusDraft:
			s.Drafts++
		case pricing.StatusUnderReview, pricing.StatusActive:
			s.UnderReview++
		case pricing.StatusActionRequired:
			s.ActionRequired++
		case pricing.StatusApproved:
			s.Approved++
		case pricing.StatusRejected:
			s.Rejected++
		case pricing.StatusClosed:
			switch d.Outcome(pr) {
			case pricing.OutcomeApproved:
				s.Approved++
			case pricing.OutcomeRejected:
				s.Rejected++
			}
		}
	}
	return s, nil
}

// AnalystStats counts both cached analyst lists, fetching them together
func (d *Desk) AnalystStats(ctx context.Context) (AnalystStats, error) {
	if d.analyst == nil {
		return AnalystStats{}, d.roleError("view review statistics")
	}
	var available, mine []*pricing.PricingRequest
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		available, err = d.loadList(gctx, d.availableKey(), pricing.StatusNone, nil)
		return err
	})
	g.Go(func() (err error) {
		mine, err = d.loadList(gctx, d.mineKey(), pricing.StatusNone, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return AnalystStats{}, err
	}

	s := AnalystStats{Available: len(available), Assigned: len(mine)}
	for _, pr := range mine {
		switch pr.StateFor(identity.RolePricingAnalyst) {
		case pricing.StatusActive:
			s.Active++
		case pricing.StatusActionRequired:
			s.ActionRequired++
		case pricing.StatusClosed:
			s.Closed++
		}
	}
	return s, nil
}
