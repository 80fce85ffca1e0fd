// Package poller refreshes adapters in periodic cycles under a bounded
// number of concurrent refreshes.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/neox5/chainbox/internal/adapter"
	"github.com/neox5/chainbox/internal/metric"
	"golang.org/x/sync/semaphore"
)

// Options configures a Poller.
type Options struct {
	Interval    time.Duration
	Concurrency int
	Logger      *slog.Logger
	// Instruments records refresh metrics; nil disables them.
	Instruments *Instruments
}

// Stats describes the most recent completed cycle.
type Stats struct {
	Cycles       uint64
	LastDuration time.Duration
	Adapters     int
	Failures     int
	InFlight     int64
}

// Poller drives refresh cycles across adapters.
type Poller struct {
	interval    time.Duration
	concurrency int64
	sem         *semaphore.Weighted
	logger      *slog.Logger
	instruments *Instruments
	entries     []*entry

	inFlight atomic.Int64

	mu    sync.Mutex
	stats Stats
}

// entry serializes refreshes of one adapter.
type entry struct {
	mu      sync.Mutex
	adapter adapter.Adapter
}

// New creates a poller over adapters.
func New(adapters []adapter.Adapter, opts Options) (*Poller, error) {
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}
	if opts.Concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be positive")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	entries := make([]*entry, len(adapters))
	for i, a := range adapters {
		entries[i] = &entry{adapter: a}
	}

	return &Poller{
		interval:    opts.Interval,
		concurrency: int64(opts.Concurrency),
		sem:         semaphore.NewWeighted(int64(opts.Concurrency)),
		logger:      opts.Logger,
		instruments: opts.Instruments,
		entries:     entries,
	}, nil
}

// Run executes cycles until ctx is cancelled, sleeping for the interval
// after each completed cycle.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("starting poller",
		"adapters", len(p.entries),
		"interval", p.interval,
		"concurrency", p.concurrency)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return
		case <-timer.C:
		}

		p.Cycle(ctx)
		timer.Reset(p.interval)
	}
}

// Cycle refreshes every adapter once and returns when all refreshes have
// finished. At most Concurrency refreshes run at the same time across all
// cycles of the poller, including cycles called concurrently.
func (p *Poller) Cycle(ctx context.Context) {
	start := time.Now()

	var (
		wg       sync.WaitGroup
		failures atomic.Int64
	)

	for _, e := range p.entries {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			// Context cancelled; tasks already dispatched still finish.
			break
		}
		wg.Go(func() {
			defer p.sem.Release(1)
			if err := p.refresh(ctx, e); err != nil {
				failures.Add(1)
			}
		})
	}
	wg.Wait()

	elapsed := time.Since(start)
	p.instruments.observeCycle(elapsed)

	p.mu.Lock()
	p.stats.Cycles++
	p.stats.LastDuration = elapsed
	p.stats.Adapters = len(p.entries)
	p.stats.Failures = int(failures.Load())
	p.mu.Unlock()

	p.logger.Debug("cycle complete",
		"adapters", len(p.entries),
		"failures", failures.Load(),
		"duration", elapsed)
}

// refresh runs one adapter refresh with exclusive access to the adapter.
// Errors and panics are logged and returned; they never reach the caller's
// siblings.
func (p *Poller) refresh(ctx context.Context, e *entry) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	name := e.adapter.Name()
	start := time.Now()

	p.inFlight.Add(1)
	p.instruments.started()
	defer func() {
		p.inFlight.Add(-1)
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			p.logger.Error("adapter refresh panicked", "adapter", name, "panic", r, "stack", string(debug.Stack()))
		}
		p.instruments.finished(name, time.Since(start), err)
	}()

	err = e.adapter.Refresh(ctx)
	switch {
	case err == nil:
		p.logger.Debug("updated", "adapter", name, "duration", time.Since(start))
	case metric.IsContractViolation(err):
		p.logger.Error("store contract violation", "adapter", name, "error", err)
	default:
		p.logger.Warn("refresh failed", "adapter", name, "error", err)
	}
	return err
}

// Stats returns statistics of the last completed cycle and the number of
// refreshes currently running.
func (p *Poller) Stats() Stats {
	p.mu.Lock()
	s := p.stats
	p.mu.Unlock()
	s.InFlight = p.inFlight.Load()
	return s
}
