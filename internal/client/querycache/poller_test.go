package querycache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/backoffice/prdesk/internal/domain/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoller_PollExpandsPatterns(t *testing.T) {
	c := New()
	defer c.Close()

	var listFetches, detailFetches atomic.Int32
	c.Register(KindMine, func(context.Context, Key) (any, error) {
		listFetches.Add(1)
		return []*pricing.PricingRequest{}, nil
	})
	c.Register(KindDetails, func(_ context.Context, k Key) (any, error) {
		detailFetches.Add(1)
		if k.Scope == "bad" {
			return nil, errors.New("gone")
		}
		return newDraft(t), nil
	})
	c.Set(DetailsKey("pr-1"), newDraft(t))
	c.Set(DetailsKey("bad"), newDraft(t))

	p := NewPoller(c, time.Hour, MineKey("pa-a"), Key{Kind: KindDetails})
	err := p.Poll(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), listFetches.Load())
	assert.Equal(t, int32(2), detailFetches.Load())
}

func TestPoller_Run(t *testing.T) {
	c := New()
	defer c.Close()

	var fetches atomic.Int32
	c.Register(KindAvailable, func(context.Context, Key) (any, error) {
		fetches.Add(1)
		return []*pricing.PricingRequest{}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewPoller(c, 10*time.Millisecond, AvailableKey("pa-a")).Run(ctx) }()

	assert.Eventually(t, func() bool { return fetches.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestPoller_RunLastsUntilDeadline(t *testing.T) {
	c := New()
	defer c.Close()

	var fetches atomic.Int32
	c.Register(KindAvailable, func(context.Context, Key) (any, error) {
		fetches.Add(1)
		return []*pricing.PricingRequest{}, nil
	})

	deadline := 150 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()

	start := time.Now()
	require.NoError(t, NewPoller(c, time.Hour, AvailableKey("pa-a")).Run(ctx))
	assert.GreaterOrEqual(t, time.Since(start), deadline-10*time.Millisecond)
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
	assert.Equal(t, int32(1), fetches.Load())
}

func TestPoller_DefaultInterval(t *testing.T) {
	p := NewPoller(New(), 0)
	assert.InDelta(t, 0.1, float64(p.limiter.Limit()), 1e-9)
}
