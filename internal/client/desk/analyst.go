package desk

import (
	"context"
	"strings"

	"github.com/backoffice/prdesk/internal/client/querycache"
	"github.com/backoffice/prdesk/internal/domain/pricing"
	"go.uber.org/zap"
)

func (d *Desk) availableKey() querycache.Key {
	return querycache.AvailableKey(d.user.ID)
}

func (d *Desk) mineKey() querycache.Key {
	return querycache.MineKey(d.user.ID)
}

func analystTrack(pr *pricing.PricingRequest) pricing.Status {
	return pr.AnalystStatus
}

// Available lists unassigned requests waiting for review
func (d *Desk) Available(ctx context.Context, filter pricing.Status) ([]*pricing.PricingRequest, error) {
	if d.analyst == nil {
		return nil, d.roleError("list the review pool")
	}
	return d.loadList(ctx, d.availableKey(), filter, analystTrack)
}

// Mine lists the requests assigned to the analyst
func (d *Desk) Mine(ctx context.Context, filter pricing.Status) ([]*pricing.PricingRequest, error) {
	if d.analyst == nil {
		return nil, d.roleError("list assigned pricing requests")
	}
	return d.loadList(ctx, d.mineKey(), filter, analystTrack)
}

// Assign claims a request. It leaves the pool and joins the analyst's list
// before the server answers.
func (d *Desk) Assign(ctx context.Context, id string) (*pricing.PricingRequest, error) {
	if d.analyst == nil {
		return nil, d.roleError("assign pricing requests")
	}
	actor := d.user.Actor()
	apply := func(pr *pricing.PricingRequest) error { return pr.Assign(actor) }

	effects := []querycache.Effect{
		querycache.RemoveFromList(d.availableKey(), id),
		querycache.UpdateDetails(querycache.DetailsKey(id), apply),
	}
	if pr := d.current(id, d.availableKey()); pr != nil {
		if claimed := pr.Clone(); apply(claimed) == nil {
			effects = append(effects, querycache.PrependToList(d.mineKey(), claimed))
		}
	}
	pr, err := d.mutate(ctx, "assign", id, func(ctx context.Context) (*pricing.PricingRequest, error) {
		return d.analyst.Assign(ctx, id)
	}, effects, d.mineKey())
	if err != nil {
		return nil, err
	}
	d.logger.Info("Pricing request assigned", zap.String("pr_id", id))
	return pr, nil
}

// Approve approves an assigned request. The comment is optional.
func (d *Desk) Approve(ctx context.Context, id, comment string) (*pricing.PricingRequest, error) {
	return d.decide(ctx, id, pricing.DecisionApprove, comment)
}

// Reject rejects an assigned request with a comment
func (d *Desk) Reject(ctx context.Context, id, comment string) (*pricing.PricingRequest, error) {
	return d.decide(ctx, id, pricing.DecisionReject, comment)
}

// RequestAction sends an assigned request back to its creator with a comment
func (d *Desk) RequestAction(ctx context.Context, id, comment string) (*pricing.PricingRequest, error) {
	return d.decide(ctx, id, pricing.DecisionActionRequired, comment)
}

func (d *Desk) decide(ctx context.Context, id string, decision pricing.Decision, comment string) (*pricing.PricingRequest, error) {
	if d.analyst == nil {
		return nil, d.roleError(strings.ReplaceAll(string(decision), "_", " ") + " pricing requests")
	}
	actor := d.user.Actor()
	apply := func(pr *pricing.PricingRequest) error {
		if err := pr.Decide(actor, decision, comment); err != nil {
			return err
		}
		// the server closes approved and rejected requests in the same call
		if s := pr.State(); s == pricing.StatusApproved || s == pricing.StatusRejected {
			return pr.Close()
		}
		return nil
	}
	effects := []querycache.Effect{
		querycache.UpdateInList(d.mineKey(), id, apply),
		querycache.UpdateDetails(querycache.DetailsKey(id), apply),
	}
	pr, err := d.mutate(ctx, string(decision), id, func(ctx context.Context) (*pricing.PricingRequest, error) {
		return d.analyst.Decide(ctx, id, decision, comment)
	}, effects)
	if err != nil {
		return nil, err
	}
	d.logger.Info("Decision recorded", zap.String("pr_id", id), zap.String("decision", string(decision)))
	return pr, nil
}
