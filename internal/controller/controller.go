// Package controller owns the search state the UI renders.
//
// The Controller is the single source of truth for the current query, the
// loading and error state, the product list, and rolling telemetry. Every
// SetQuery, Refetch or chaos toggle starts a new fetch cycle and supersedes
// whatever cycle was still in flight.
//
// # Supersession
//
// Each cycle is tagged with a generation number and owns a cancellable
// context. Starting a cycle cancels the previous context and bumps the
// generation. When a cycle settles it may only write state if its generation
// is still current; otherwise its result is dropped and reported to
// recorders as superseded.
//
//	SetQuery("notebook") ──> gen 1 ──fetch──────────────X (cancelled, discarded)
//	SetQuery("iphone")   ──────────> gen 2 ──fetch──> state
//
// # Lifecycle
//
// Start launches the telemetry tick loop and the initial fetch. Stop cancels
// the in-flight cycle, stops the tick loop, and waits for every goroutine the
// Controller started.
package controller

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/marketmon/internal/catalog"
	"github.com/abelbrown/marketmon/internal/fetch"
	"github.com/abelbrown/marketmon/internal/logging"
)

const (
	DefaultInitialQuery  = "notebook"
	DefaultFallbackQuery = fetch.DefaultFallbackQuery
	DefaultTickInterval  = 4000 * time.Millisecond
)

// Fetcher runs one search. *fetch.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, query string, chaos bool) (fetch.Result, error)
}

// Options configures a Controller. Zero values select the defaults.
type Options struct {
	InitialQuery  string
	FallbackQuery string
	TickInterval  time.Duration
	MaxProducts   int
	Currency      string
	Chaos         bool

	// Recorders observe every cycle. They are called outside the state lock.
	Recorders []Recorder
	// OnChange receives a snapshot after every state change. Snapshots may
	// arrive out of order across goroutines; compare State.Version.
	OnChange func(State)
	// Now overrides the clock (tests).
	Now func() time.Time
}

// Controller manages fetch cycles and the state derived from them.
// Safe for concurrent use.
type Controller struct {
	fetcher   Fetcher
	fallback  string
	interval  time.Duration
	limit     int
	currency  string
	recorders []Recorder
	onChange  func(State)
	now       func() time.Time

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc // cancels the current cycle
	closed bool

	// base parents every cycle context; cancelled by Stop.
	base     context.Context
	stopBase context.CancelFunc

	startOnce sync.Once
	stopOnce  sync.Once
	loops     sync.WaitGroup
	cycles    sync.WaitGroup
}

// New creates a Controller. It does not fetch until Start, SetQuery or
// Refetch is called.
func New(f Fetcher, opts Options) *Controller {
	if opts.InitialQuery == "" {
		opts.InitialQuery = DefaultInitialQuery
	}
	if opts.FallbackQuery == "" {
		opts.FallbackQuery = DefaultFallbackQuery
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.MaxProducts <= 0 {
		opts.MaxProducts = catalog.MaxProducts
	}
	if opts.Currency == "" {
		opts.Currency = catalog.DefaultCurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	base, stop := context.WithCancel(context.Background())
	return &Controller{
		fetcher:   f,
		fallback:  opts.FallbackQuery,
		interval:  opts.TickInterval,
		limit:     opts.MaxProducts,
		currency:  opts.Currency,
		recorders: opts.Recorders,
		onChange:  opts.OnChange,
		now:       opts.Now,
		state: State{
			Query:    strings.TrimSpace(opts.InitialQuery),
			Chaos:    opts.Chaos,
			Products: []catalog.Product{},
		},
		base:     base,
		stopBase: stop,
	}
}

// Start launches the tick loop and fetches the initial query.
//
// Idempotent. The tick loop also exits when ctx is cancelled.
func (c *Controller) Start(ctx context.Context) {
	started := false
	c.startOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return
		}
		c.loops.Add(1)
		go c.tickLoop(ctx)
		started = true
	})
	if !started {
		return
	}

	logging.Info("controller started", "query", c.Snapshot().Query, "tick", c.interval)
	c.Refetch()
}

func (c *Controller) tickLoop(ctx context.Context) {
	defer c.loops.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.base.Done():
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Stop cancels the in-flight cycle, stops the tick loop, and waits for all
// goroutines started by the Controller. Idempotent.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.stopBase()
		c.loops.Wait()
		c.cycles.Wait()
		logging.Info("controller stopped")
	})
}

// Wait blocks until every cycle started so far has settled.
func (c *Controller) Wait() {
	c.cycles.Wait()
}

// SetQuery accepts q if it is non-empty after trimming and starts a fetch
// cycle for it. It reports whether q was accepted.
func (c *Controller) SetQuery(q string) bool {
	q = strings.TrimSpace(q)
	if q == "" {
		return false
	}
	return c.startCycle(func(s *State) { s.Query = q })
}

// Refetch starts a fetch cycle for the last accepted query.
func (c *Controller) Refetch() {
	c.startCycle(nil)
}

// SetChaos sets the chaos flag. A change starts a new cycle so the effect is
// visible immediately.
func (c *Controller) SetChaos(enabled bool) {
	c.mu.Lock()
	changed := c.state.Chaos != enabled
	c.mu.Unlock()
	if !changed {
		return
	}
	c.startCycle(func(s *State) { s.Chaos = enabled })
}

// ToggleChaos flips the chaos flag and returns the new value.
func (c *Controller) ToggleChaos() bool {
	var enabled bool
	c.startCycle(func(s *State) {
		s.Chaos = !s.Chaos
		enabled = s.Chaos
	})
	return enabled
}

// Chaos reports whether chaos mode is on.
func (c *Controller) Chaos() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Chaos
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Tick recomputes Stats.LastUpdatedSecondsAgo. It does nothing before the
// first completed cycle, and never lets the value decrease.
func (c *Controller) Tick() {
	c.mu.Lock()
	stats := &c.state.Stats
	if stats.LastUpdatedAt.IsZero() {
		c.mu.Unlock()
		return
	}
	secs := int(math.Round(c.now().Sub(stats.LastUpdatedAt).Seconds()))
	if secs <= stats.LastUpdatedSecondsAgo {
		c.mu.Unlock()
		return
	}
	stats.LastUpdatedSecondsAgo = secs
	snap := c.publishLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// startCycle applies mutate to the state, supersedes the current cycle and
// launches a new one. It reports false once the Controller is stopped.
func (c *Controller) startCycle(mutate func(*State)) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	if mutate != nil {
		mutate(&c.state)
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++

	ctx, cancel := context.WithCancel(c.base)
	c.cancel = cancel

	query := c.state.Query
	if query == "" {
		query = c.fallback
	}
	cycle := Cycle{
		ID:         uuid.NewString(),
		Generation: c.gen,
		Query:      query,
		Chaos:      c.state.Chaos,
		StartedAt:  c.now(),
	}

	c.state.Loading = true
	c.state.Err = nil
	snap := c.publishLocked()
	c.cycles.Add(1)
	c.mu.Unlock()

	c.notify(snap)
	for _, r := range c.recorders {
		r.CycleStarted(cycle)
	}

	go c.run(ctx, cancel, cycle)
	return true
}

// run executes one cycle and applies its outcome if it is still current.
func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, cycle Cycle) {
	defer c.cycles.Done()
	defer cancel()

	res, err := c.fetcher.Fetch(ctx, cycle.Query, cycle.Chaos)
	completedAt := c.now()

	c.mu.Lock()
	if c.closed || cycle.Generation != c.gen {
		c.mu.Unlock()
		logging.Debug("cycle superseded", "cycle", cycle.ID, "query", cycle.Query)
		for _, r := range c.recorders {
			r.CycleSuperseded(cycle)
		}
		return
	}
	c.cancel = nil

	outcome := Outcome{CompletedAt: completedAt}
	stats := &c.state.Stats
	if err != nil {
		failure := fetch.AsFailure(err)
		c.state.Err = failure
		stats.ErrorCount++
		if latency, ok := failure.Latency(); ok {
			stats.LastLatency = latency
			stats.HasLatency = true
		}
		outcome.Err = failure
		outcome.Latency, outcome.HasLatency = failure.Latency()
	} else {
		products := catalog.MapProducts(res.Raw, c.limit, c.currency)
		c.state.Products = products
		c.state.Err = nil
		stats.SuccessCount++
		stats.LastLatency = res.Latency
		stats.HasLatency = true
		outcome.Products = len(products)
		outcome.Latency, outcome.HasLatency = res.Latency, true
	}
	stats.LastUpdatedAt = completedAt
	stats.LastUpdatedSecondsAgo = 0
	stats.LastQuery = cycle.Query
	c.state.Loading = false
	snap := c.publishLocked()
	c.mu.Unlock()

	c.notify(snap)
	for _, r := range c.recorders {
		r.CycleCompleted(cycle, outcome)
	}
}

// publishLocked bumps the state version and returns a snapshot.
// Caller must hold c.mu.
func (c *Controller) publishLocked() State {
	c.state.Version++
	return c.state
}

func (c *Controller) notify(s State) {
	if c.onChange != nil {
		c.onChange(s)
	}
}
