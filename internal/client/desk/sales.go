package desk

import (
	"context"

	"github.com/backoffice/prdesk/internal/client/querycache"
	"github.com/backoffice/prdesk/internal/domain/pricing"
	"go.uber.org/zap"
)

func (d *Desk) salesKey() querycache.Key {
	return querycache.SalesListKey(d.user.ID)
}

// MyRequests lists the Sales Executive's requests, optionally by sales status
func (d *Desk) MyRequests(ctx context.Context, filter pricing.Status) ([]*pricing.PricingRequest, error) {
	if d.sales == nil {
		return nil, d.roleError("list created pricing requests")
	}
	return d.loadList(ctx, d.salesKey(), filter, func(pr *pricing.PricingRequest) pricing.Status { return pr.SalesStatus })
}

// SaveDraft creates a draft
func (d *Desk) SaveDraft(ctx context.Context, details pricing.Details) (*pricing.PricingRequest, error) {
	if d.sales == nil {
		return nil, d.roleError("create pricing requests")
	}
	pr, err := d.sales.SaveDraft(ctx, details)
	if err != nil {
		return nil, err
	}
	d.cache.Set(querycache.DetailsKey(pr.ID), pr)
	d.cache.Invalidate(d.salesKey())
	return pr, nil
}

// Submit creates a request and sends it for review in one step
func (d *Desk) Submit(ctx context.Context, details pricing.Details) (*pricing.PricingRequest, error) {
	if d.sales == nil {
		return nil, d.roleError("create pricing requests")
	}
	pr, err := d.sales.Submit(ctx, details)
	if err != nil {
		return nil, err
	}
	d.cache.Set(querycache.DetailsKey(pr.ID), pr)
	d.cache.Invalidate(d.salesKey())
	d.logger.Info("Pricing request submitted", zap.String("pr_id", pr.ID))
	return pr, nil
}

// Update replaces the details of a draft or action-required request
func (d *Desk) Update(ctx context.Context, id string, details pricing.Details) (*pricing.PricingRequest, error) {
	if d.sales == nil {
		return nil, d.roleError("edit pricing requests")
	}
	actor := d.user.Actor()
	apply := func(pr *pricing.PricingRequest) error { return pr.Edit(actor, details) }
	return d.mutate(ctx, "update", id, func(ctx context.Context) (*pricing.PricingRequest, error) {
		return d.sales.Update(ctx, id, details)
	}, d.salesEffects(id, apply))
}

// SendToAnalyst submits an existing draft. The list shows it under review
// while the call is in flight.
func (d *Desk) SendToAnalyst(ctx context.Context, id string) (*pricing.PricingRequest, error) {
	if d.sales == nil {
		return nil, d.roleError("submit pricing requests")
	}
	actor := d.user.Actor()
	apply := func(pr *pricing.PricingRequest) error { return pr.Submit(actor) }
	return d.mutate(ctx, "send-to-analyst", id, func(ctx context.Context) (*pricing.PricingRequest, error) {
		return d.sales.SendToAnalyst(ctx, id)
	}, d.salesEffects(id, apply))
}

// Resubmit sends corrected details back to the analysts
func (d *Desk) Resubmit(ctx context.Context, id string, details pricing.Details) (*pricing.PricingRequest, error) {
	if d.sales == nil {
		return nil, d.roleError("resubmit pricing requests")
	}
	actor := d.user.Actor()
	apply := func(pr *pricing.PricingRequest) error { return pr.Resubmit(actor, details) }
	return d.mutate(ctx, "resubmit", id, func(ctx context.Context) (*pricing.PricingRequest, error) {
		return d.sales.Resubmit(ctx, id, details)
	}, d.salesEffects(id, apply))
}

// Delete removes a draft. It disappears from the list at once and comes back
// if the server refuses.
func (d *Desk) Delete(ctx context.Context, id string) error {
	if d.sales == nil {
		return d.roleError("delete pricing requests")
	}
	cmd := querycache.NewCommand("delete", func(ctx context.Context) error {
		return d.sales.Delete(ctx, id)
	}, querycache.RemoveFromList(d.salesKey(), id))
	if err := d.cache.Mutate(ctx, cmd); err != nil {
		return err
	}
	d.cache.Evict(querycache.DetailsKey(id))
	return nil
}

func (d *Desk) salesEffects(id string, apply func(*pricing.PricingRequest) error) []querycache.Effect {
	return []querycache.Effect{
		querycache.UpdateInList(d.salesKey(), id, apply),
		querycache.UpdateDetails(querycache.DetailsKey(id), apply),
	}
}

// mutate runs a single-request command and stores the server's answer.
// also names keys to refresh beyond the effects.
func (d *Desk) mutate(
	ctx context.Context,
	name, id string,
	call func(context.Context) (*pricing.PricingRequest, error),
	effects []querycache.Effect,
	also ...querycache.Key,
) (*pricing.PricingRequest, error) {
	var result *pricing.PricingRequest
	cmd := querycache.NewCommand(name, func(ctx context.Context) error {
		pr, err := call(ctx)
		result = pr
		return err
	}, effects...).Also(also...)
	if err := d.cache.Mutate(ctx, cmd); err != nil {
		return nil, err
	}
	d.cache.Set(querycache.DetailsKey(id), result)
	return result, nil
}
