// Package desk is the role-aware front of the prdesk client. A Desk binds one
// session to its request service and query cache; list views are cached per
// user and workflow actions are applied optimistically.
package desk

import (
	"context"
	"slices"
	"time"

	"github.com/backoffice/prdesk/internal/client/querycache"
	"github.com/backoffice/prdesk/internal/client/service"
	"github.com/backoffice/prdesk/internal/client/session"
	"github.com/backoffice/prdesk/internal/client/transport"
	"github.com/backoffice/prdesk/internal/domain/identity"
	"github.com/backoffice/prdesk/internal/domain/pricing"
	"go.uber.org/zap"
)

// Desk is safe for concurrent use
type Desk struct {
	session *session.Session
	user    session.User
	sales   *service.SalesService
	analyst *service.AnalystService
	cache   *querycache.Coordinator
	logger  *zap.Logger
	outcome pricing.OutcomeOptions
}

type options struct {
	logger  *zap.Logger
	metrics *querycache.Metrics
	outcome pricing.OutcomeOptions
}

// Option configures a Desk
type Option func(*options)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics records cache activity into m
func WithMetrics(m *querycache.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithCommentScan enables the legacy outcome fallback for closed requests
// that carry no explicit decision
func WithCommentScan(enabled bool) Option {
	return func(o *options) {
		o.outcome.ScanComments = enabled
	}
}

// New creates the desk of a session. The cache is closed when the session
// logs out.
func New(sess *session.Session, opts ...Option) *Desk {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	cacheOpts := []querycache.Option{querycache.WithLogger(o.logger)}
	if o.metrics != nil {
		cacheOpts = append(cacheOpts, querycache.WithMetrics(o.metrics))
	}

	d := &Desk{
		session: sess,
		user:    sess.User(),
		cache:   querycache.New(cacheOpts...),
		logger:  o.logger.With(zap.String("user_id", sess.User().ID)),
		outcome: o.outcome,
	}

	switch d.user.Role {
	case identity.RoleSalesExecutive:
		d.sales = service.NewSalesService(sess, service.WithLogger(o.logger))
		d.cache.Register(querycache.KindSalesList, func(ctx context.Context, _ querycache.Key) (any, error) {
			return d.sales.List(ctx, pricing.StatusNone)
		})
		d.cache.Register(querycache.KindDetails, func(ctx context.Context, k querycache.Key) (any, error) {
			return d.sales.Get(ctx, k.Scope)
		})
	case identity.RolePricingAnalyst:
		d.analyst = service.NewAnalystService(sess, service.WithLogger(o.logger))
		d.cache.Register(querycache.KindAvailable, func(ctx context.Context, _ querycache.Key) (any, error) {
			return d.analyst.ListAvailable(ctx, pricing.StatusNone)
		})
		d.cache.Register(querycache.KindMine, func(ctx context.Context, _ querycache.Key) (any, error) {
			return d.analyst.ListMine(ctx, pricing.StatusNone)
		})
		d.cache.Register(querycache.KindDetails, func(ctx context.Context, k querycache.Key) (any, error) {
			return d.analyst.Get(ctx, k.Scope)
		})
	}
	sess.OnClose(d.cache.Close)
	return d
}

// User returns the signed-in account
func (d *Desk) User() session.User {
	return d.user
}

// Cache exposes the query cache
func (d *Desk) Cache() *querycache.Coordinator {
	return d.cache
}

// Logout ends the session and drops every cached value
func (d *Desk) Logout(ctx context.Context) error {
	return d.session.Logout(ctx)
}

// Request returns one pricing request, from cache when fresh
func (d *Desk) Request(ctx context.Context, id string) (*pricing.PricingRequest, error) {
	if d.sales == nil && d.analyst == nil {
		return nil, d.roleError("view pricing requests")
	}
	v, err := d.cache.Load(ctx, querycache.DetailsKey(id))
	if err != nil {
		return nil, err
	}
	return v.(*pricing.PricingRequest), nil
}

// Actions lists what the user may do with pr now
func (d *Desk) Actions(pr *pricing.PricingRequest) []pricing.Action {
	return pricing.AllowedActions(pr, d.user.Actor())
}

// Outcome is the decision a closed request is displayed with
func (d *Desk) Outcome(pr *pricing.PricingRequest) pricing.Outcome {
	return pricing.ResolveOutcome(pr, d.outcome)
}

// Poller refreshes the lists of the user's role and every cached request
func (d *Desk) Poller(interval time.Duration) *querycache.Poller {
	keys := []querycache.Key{{Kind: querycache.KindDetails}}
	switch d.user.Role {
	case identity.RoleSalesExecutive:
		keys = append(keys, querycache.SalesListKey(d.user.ID))
	case identity.RolePricingAnalyst:
		keys = append(keys, querycache.AvailableKey(d.user.ID), querycache.MineKey(d.user.ID))
	}
	return querycache.NewPoller(d.cache, interval, keys...)
}

// Watch polls until ctx is done, calling fn with every changed value
func (d *Desk) Watch(ctx context.Context, interval time.Duration, fn func(querycache.Key, any)) error {
	unsubscribe := d.cache.Subscribe(fn)
	defer unsubscribe()
	return d.Poller(interval).Run(ctx)
}

// loadList reads a cached list and applies the track filter locally
func (d *Desk) loadList(ctx context.Context, key querycache.Key, filter pricing.Status, track func(*pricing.PricingRequest) pricing.Status) ([]*pricing.PricingRequest, error) {
	if filter != pricing.StatusNone && !filter.IsKnown() {
		return nil, transport.NewValidationError("unknown status filter")
	}
	v, err := d.cache.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	list := v.([]*pricing.PricingRequest)
	if filter == pricing.StatusNone {
		return list, nil
	}
	return slices.DeleteFunc(slices.Clone(list), func(pr *pricing.PricingRequest) bool {
		return track(pr) != filter
	}), nil
}

// current returns the best cached copy of a request without fetching
func (d *Desk) current(id string, lists ...querycache.Key) *pricing.PricingRequest {
	if v, ok := d.cache.Get(querycache.DetailsKey(id)); ok {
		if pr, ok := v.(*pricing.PricingRequest); ok && pr != nil {
			return pr
		}
	}
	for _, key := range lists {
		v, ok := d.cache.Get(key)
		if !ok {
			continue
		}
		list, _ := v.([]*pricing.PricingRequest)
		if i := slices.IndexFunc(list, func(pr *pricing.PricingRequest) bool { return pr.ID == id }); i >= 0 {
			return list[i]
		}
	}
	return nil
}

func (d *Desk) roleError(what string) error {
	return &transport.APIError{
		Kind:   transport.ErrIllegalTransition,
		Detail: d.user.Role.DisplayName() + " cannot " + what,
	}
}
