package querycache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DefaultPollInterval is how often list views refresh
const DefaultPollInterval = 10 * time.Second

// Poller refetches a set of keys at a fixed pace. Pattern keys cover every
// cached key of their kind at the time of each poll.
type Poller struct {
	coord   *Coordinator
	keys    []Key
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewPoller creates a Poller. A non-positive interval uses DefaultPollInterval.
func NewPoller(coord *Coordinator, interval time.Duration, keys ...Key) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		coord:   coord,
		keys:    keys,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		logger:  coord.logger,
	}
}

// Run polls until ctx is done. The first poll happens immediately.
func (p *Poller) Run(ctx context.Context) error {
	for {
		if err := p.limiter.Wait(ctx); err != nil {
			// the next tick falls past the deadline; nothing left to poll
			<-ctx.Done()
			return nil
		}
		if err := p.Poll(ctx); errors.Is(err, ErrClosed) {
			return err
		}
	}
}

// Poll refetches every key once, concurrently. Failures are logged and
// returned joined; one failing key does not stop the others.
func (p *Poller) Poll(ctx context.Context) error {
	keys := make([]Key, 0, len(p.keys))
	for _, k := range p.keys {
		if k.IsPattern() {
			keys = append(keys, p.coord.Keys(k)...)
			continue
		}
		keys = append(keys, k)
	}

	errs := make([]error, len(keys))
	var g errgroup.Group
	for i, k := range keys {
		g.Go(func() error {
			if _, err := p.coord.Fetch(ctx, k); err != nil {
				p.logger.Warn("Poll failed", zap.String("key", k.String()), zap.Error(err))
				errs[i] = err
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
