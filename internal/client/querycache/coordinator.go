// Package querycache keeps the client's view of server data: keyed query
// results with coalesced fetches, optimistic mutations with exact rollback,
// and background refresh.
package querycache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the current server value of a key
type FetchFunc func(ctx context.Context, key Key) (any, error)

var (
	ErrNoFetcher  = errors.New("no fetcher registered")
	ErrPatternKey = errors.New("pattern keys cannot be fetched")
	ErrSuperseded = errors.New("fetch superseded")
	ErrClosed     = errors.New("query cache closed")
)

const (
	defaultFetchTimeout = 30 * time.Second
	maxRejoins          = 3
)

type snapshot struct {
	value     any
	has       bool
	stale     bool
	updatedAt time.Time
	owner     uint64
}

type entry struct {
	value     any
	has       bool
	stale     bool
	updatedAt time.Time
	err       error

	// gen is bumped whenever in-flight results must be discarded
	gen    uint64
	cancel context.CancelFunc
	// rollback belongs to the latest mutation touching the key
	rollback *snapshot
}

// Entry is a read-only view of one cached key
type Entry struct {
	Value     any
	Stale     bool
	UpdatedAt time.Time
	Err       error
}

type change struct {
	key   Key
	value any
}

// Coordinator owns every cached query. It is safe for concurrent use.
type Coordinator struct {
	mu        sync.Mutex
	fetchers  map[Kind]FetchFunc
	entries   map[Key]*entry
	listeners map[int]func(Key, any)
	nextID    int
	seq       uint64
	closed    bool

	flights singleflight.Group
	bg      context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	logger       *zap.Logger
	metrics      *Metrics
	fetchTimeout time.Duration
	now          func() time.Time
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// WithMetrics records cache activity
func WithMetrics(m *Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithFetchTimeout bounds a single fetch
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// New creates an empty Coordinator
func New(opts ...Option) *Coordinator {
	bg, stop := context.WithCancel(context.Background())
	c := &Coordinator{
		fetchers:     make(map[Kind]FetchFunc),
		entries:      make(map[Key]*entry),
		listeners:    make(map[int]func(Key, any)),
		bg:           bg,
		stop:         stop,
		logger:       zap.NewNop(),
		metrics:      NewMetrics(),
		fetchTimeout: defaultFetchTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Metrics returns the cache metrics
func (c *Coordinator) Metrics() *Metrics {
	return c.metrics
}

// Register sets the fetcher for every key of a kind
func (c *Coordinator) Register(kind Kind, fn FetchFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchers[kind] = fn
}

// Subscribe calls fn after every change of a cached value. The returned
// function removes the subscription.
func (c *Coordinator) Subscribe(fn func(Key, any)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// Get returns the cached value, fresh or stale
func (c *Coordinator) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.has {
		return nil, false
	}
	return e.value, true
}

// Lookup returns the cache state of a key
func (c *Coordinator) Lookup(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	return Entry{Value: e.value, Stale: e.stale, UpdatedAt: e.updatedAt, Err: e.err}, e.has
}

// Keys lists the cached keys matching pattern, in no particular order
func (c *Coordinator) Keys(pattern Key) []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.matchLocked(pattern)
}

// Load returns the cached value when it is fresh and fetches otherwise
func (c *Coordinator) Load(ctx context.Context, key Key) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && e.has && !e.stale {
		v := e.value
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()
	return c.Fetch(ctx, key)
}

// Fetch loads the key from the server. Concurrent calls for one key share a
// single request. The request outlives ctx: an abandoned fetch still updates
// the cache.
func (c *Coordinator) Fetch(ctx context.Context, key Key) (any, error) {
	if key.IsPattern() {
		return nil, fmt.Errorf("%w: %s", ErrPatternKey, key)
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	fn, ok := c.fetchers[key.Kind]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w for %s", ErrNoFetcher, key.Kind)
	}
	c.mu.Unlock()

	var (
		v   any
		err error
	)
	// a flight voided by an invalidation with nothing cached rejoins the refetch
	for range maxRejoins {
		v, err = c.fly(ctx, key, fn)
		if !errors.Is(err, ErrSuperseded) {
			break
		}
	}
	return v, err
}

func (c *Coordinator) fly(ctx context.Context, key Key, fn FetchFunc) (any, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	e := c.entryLocked(key)
	gen := e.gen
	c.mu.Unlock()

	ch := c.flights.DoChan(key.String()+"@"+strconv.FormatUint(gen, 10), func() (any, error) {
		return c.run(key, e, gen, fn)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Coordinator) run(key Key, e *entry, gen uint64, fn FetchFunc) (any, error) {
	ctx, cancel := context.WithTimeout(c.bg, c.fetchTimeout)
	defer cancel()

	c.mu.Lock()
	if !c.currentLocked(key, e, gen) {
		c.mu.Unlock()
		return c.superseded(key)
	}
	e.cancel = cancel
	c.mu.Unlock()

	start := c.now()
	v, err := fn(ctx, key)
	c.metrics.duration.WithLabelValues(string(key.Kind)).Observe(c.now().Sub(start).Seconds())

	c.mu.Lock()
	if !c.currentLocked(key, e, gen) {
		c.mu.Unlock()
		c.metrics.discarded.WithLabelValues(string(key.Kind)).Inc()
		c.logger.Debug("Discarded superseded fetch", zap.String("key", key.String()))
		return c.superseded(key)
	}
	e.cancel = nil
	if err != nil {
		e.err = err
		e.stale = true
		c.mu.Unlock()
		c.metrics.fetches.WithLabelValues(string(key.Kind), "error").Inc()
		return nil, err
	}
	e.value, e.has, e.stale, e.err = v, true, false, nil
	e.updatedAt = c.now()
	listeners := c.listenersLocked()
	c.mu.Unlock()

	c.metrics.fetches.WithLabelValues(string(key.Kind), "ok").Inc()
	notify(listeners, []change{{key: key, value: v}})
	return v, nil
}

// superseded answers a discarded fetch with whatever the cache now holds
func (c *Coordinator) superseded(key Key) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrSuperseded, key)
}

// Set stores a server value directly, superseding in-flight fetches
func (c *Coordinator) Set(key Key, value any) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	e := c.entryLocked(key)
	c.suspendLocked(e)
	e.value, e.has, e.stale, e.err = value, true, false, nil
	e.updatedAt = c.now()
	listeners := c.listenersLocked()
	c.mu.Unlock()
	notify(listeners, []change{{key: key, value: value}})
}

// Invalidate marks matching keys stale and refetches them in the background
func (c *Coordinator) Invalidate(keys ...Key) {
	c.mu.Lock()
	refresh := c.markStaleLocked(keys)
	c.mu.Unlock()
	for _, k := range refresh {
		c.refreshAsync(k)
	}
}

// Evict drops matching keys without refetching them
func (c *Coordinator) Evict(keys ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, pattern := range keys {
		for _, k := range c.matchLocked(pattern) {
			c.suspendLocked(c.entries[k])
			delete(c.entries, k)
		}
	}
}

// Mutate runs a command with optimistic effects. In-flight fetches of the
// affected keys are suspended, the effects are applied before Execute is
// called, and a failed command restores the exact pre-mutation values. In
// every case the affected keys are refetched afterwards.
func (c *Coordinator) Mutate(ctx context.Context, cmd Command) error {
	effects := cmd.Effects()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.seq++
	id := c.seq
	touched := make([]Key, 0, len(effects))
	applied := make([]change, 0, len(effects))
	for _, eff := range effects {
		keys := []Key{eff.Key}
		if eff.Key.IsPattern() {
			keys = c.matchLocked(eff.Key)
		}
		for _, key := range keys {
			e := c.entryLocked(key)
			if !slices.Contains(touched, key) {
				c.suspendLocked(e)
				e.rollback = &snapshot{value: e.value, has: e.has, stale: e.stale, updatedAt: e.updatedAt, owner: id}
				touched = append(touched, key)
			}
			var current any
			if e.has {
				current = e.value
			}
			if v, ok := eff.Forward(current); ok {
				e.value, e.has = v, true
				applied = append(applied, change{key: key, value: v})
			}
		}
	}
	listeners := c.listenersLocked()
	c.mu.Unlock()
	notify(listeners, applied)

	err := cmd.Execute(ctx)

	c.mu.Lock()
	restored := make([]change, 0)
	for _, key := range touched {
		e, ok := c.entries[key]
		if !ok || e.rollback == nil || e.rollback.owner != id {
			continue
		}
		if err != nil {
			s := e.rollback
			e.value, e.has, e.stale, e.updatedAt = s.value, s.has, s.stale, s.updatedAt
			restored = append(restored, change{key: key, value: s.value})
		}
		e.rollback = nil
	}
	stale := touched
	if inv, ok := cmd.(Invalidator); ok {
		stale = append(slices.Clone(touched), inv.Invalidates()...)
	}
	refresh := c.markStaleLocked(stale)
	listeners = c.listenersLocked()
	c.mu.Unlock()

	result := "ok"
	if err != nil {
		result = "error"
		if len(restored) > 0 {
			c.metrics.rollbacks.WithLabelValues(cmd.Name()).Add(float64(len(restored)))
		}
		c.logger.Debug("Command failed, optimistic values restored",
			zap.String("command", cmd.Name()),
			zap.Int("restored", len(restored)),
			zap.Error(err))
	}
	c.metrics.mutations.WithLabelValues(cmd.Name(), result).Inc()
	notify(listeners, restored)
	for _, k := range refresh {
		c.refreshAsync(k)
	}
	return err
}

// Purge drops every cached value and abandons in-flight fetches
func (c *Coordinator) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		c.suspendLocked(e)
	}
	c.entries = make(map[Key]*entry)
}

// Close purges the cache, stops background work and waits for it to finish
func (c *Coordinator) Close() {
	c.Purge()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.stop()
	c.wg.Wait()
}

func (c *Coordinator) refreshAsync(key Key) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		if _, err := c.Fetch(c.bg, key); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrClosed) {
			c.logger.Debug("Background refresh failed", zap.String("key", key.String()), zap.Error(err))
		}
	}()
}

func (c *Coordinator) entryLocked(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

func (c *Coordinator) currentLocked(key Key, e *entry, gen uint64) bool {
	return !c.closed && c.entries[key] == e && e.gen == gen
}

func (c *Coordinator) suspendLocked(e *entry) {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.gen++
}

func (c *Coordinator) matchLocked(pattern Key) []Key {
	if !pattern.IsPattern() {
		if _, ok := c.entries[pattern]; ok {
			return []Key{pattern}
		}
		return nil
	}
	keys := make([]Key, 0)
	for k := range c.entries {
		if pattern.Matches(k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// markStaleLocked flags every cached match and returns the keys to refetch:
// those that hold a value or have a fetch in flight, and have a fetcher.
// Those keys are suspended so the refetch cannot join a flight that read
// the server before the change.
func (c *Coordinator) markStaleLocked(patterns []Key) []Key {
	refresh := make([]Key, 0)
	for _, pattern := range patterns {
		for _, k := range c.matchLocked(pattern) {
			e := c.entries[k]
			e.stale = true
			_, ok := c.fetchers[k.Kind]
			if !ok || !(e.has || e.cancel != nil) || slices.Contains(refresh, k) {
				continue
			}
			c.suspendLocked(e)
			refresh = append(refresh, k)
		}
	}
	return refresh
}

func (c *Coordinator) listenersLocked() []func(Key, any) {
	out := make([]func(Key, any), 0, len(c.listeners))
	for _, fn := range c.listeners {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []func(Key, any), changes []change) {
	for _, ch := range changes {
		for _, fn := range listeners {
			fn(ch.key, ch.value)
		}
	}
}
