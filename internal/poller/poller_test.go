package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/neox5/chainbox/internal/adapter"
	"github.com/neox5/chainbox/internal/metric"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// tracker records how many refreshes run at the same time.
type tracker struct {
	current atomic.Int64
	max     atomic.Int64
}

func (p *tracker) enter() {
	n := p.current.Add(1)
	for {
		m := p.max.Load()
		if n <= m || p.max.CompareAndSwap(m, n) {
			return
		}
	}
}

func (p *tracker) leave() {
	p.current.Add(-1)
}

type fakeAdapter struct {
	name    string
	delay   time.Duration
	tracker *tracker
	err     error
	panic   bool

	calls   atomic.Int64
	running atomic.Int64
	overlap atomic.Bool
}

func (f *fakeAdapter) Name() string   { return f.name }
func (f *fakeAdapter) Keys() []string { return nil }

func (f *fakeAdapter) Refresh(ctx context.Context) error {
	if f.running.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.running.Add(-1)

	if f.tracker != nil {
		f.tracker.enter()
		defer f.tracker.leave()
	}
	f.calls.Add(1)

	if f.panic {
		panic("boom")
	}
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPoller(t *testing.T, adapters []adapter.Adapter, concurrency int) *Poller {
	t.Helper()
	p, err := New(adapters, Options{
		Interval:    10 * time.Millisecond,
		Concurrency: concurrency,
		Logger:      quietLogger(),
	})
	require.NoError(t, err)
	return p
}

func TestCycleRespectsConcurrencyLimit(t *testing.T) {
	tr := &tracker{}
	var adapters []adapter.Adapter
	var fakes []*fakeAdapter
	for i := range 10 {
		f := &fakeAdapter{name: fmt.Sprintf("a%d", i), delay: 20 * time.Millisecond, tracker: tr}
		fakes = append(fakes, f)
		adapters = append(adapters, f)
	}

	p := newPoller(t, adapters, 3)
	p.Cycle(context.Background())

	require.LessOrEqual(t, tr.max.Load(), int64(3))
	require.Equal(t, int64(3), tr.max.Load())
	require.Zero(t, tr.current.Load())

	// the cycle waits for every task
	for _, f := range fakes {
		require.Equal(t, int64(1), f.calls.Load(), f.name)
	}

	s := p.Stats()
	require.Equal(t, uint64(1), s.Cycles)
	require.Equal(t, 10, s.Adapters)
	require.Zero(t, s.Failures)
	require.Zero(t, s.InFlight)
}

func TestCycleIsolatesFailures(t *testing.T) {
	ok := &fakeAdapter{name: "ok"}
	failing := &fakeAdapter{name: "failing", err: errors.New("connection refused")}
	violating := &fakeAdapter{name: "violating", err: fmt.Errorf("set: %w", metric.ErrUnknownKey)}
	panicking := &fakeAdapter{name: "panicking", panic: true}

	p := newPoller(t, []adapter.Adapter{failing, panicking, violating, ok}, 1)
	p.Cycle(context.Background())
	p.Cycle(context.Background())

	require.Equal(t, int64(2), ok.calls.Load())
	require.Equal(t, int64(2), failing.calls.Load())
	require.Equal(t, int64(2), panicking.calls.Load())
	require.Equal(t, 3, p.Stats().Failures)
}

func TestRunRepeatsUntilCancelled(t *testing.T) {
	f := &fakeAdapter{name: "a", delay: time.Millisecond}
	p := newPoller(t, []adapter.Adapter{f}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return f.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
	require.False(t, f.overlap.Load())
}

func TestAdapterNeverRefreshedConcurrently(t *testing.T) {
	f := &fakeAdapter{name: "a", delay: 5 * time.Millisecond}
	p := newPoller(t, []adapter.Adapter{f}, 4)

	var wg sync.WaitGroup
	for range 4 {
		wg.Go(func() { p.Cycle(context.Background()) })
	}
	wg.Wait()

	require.Equal(t, int64(4), f.calls.Load())
	require.False(t, f.overlap.Load())
}

func TestConcurrentCyclesShareLimit(t *testing.T) {
	tr := &tracker{}
	var adapters []adapter.Adapter
	for i := range 4 {
		adapters = append(adapters, &fakeAdapter{name: fmt.Sprintf("a%d", i), delay: 20 * time.Millisecond, tracker: tr})
	}
	p := newPoller(t, adapters, 1)

	var wg sync.WaitGroup
	for range 4 {
		wg.Go(func() { p.Cycle(context.Background()) })
	}
	wg.Wait()

	require.Equal(t, int64(1), tr.max.Load())
	require.Zero(t, tr.current.Load())
	for _, a := range adapters {
		require.Equal(t, int64(4), a.(*fakeAdapter).calls.Load())
	}
}

func TestInstruments(t *testing.T) {
	reg := prometheus.NewRegistry()
	inst, err := NewInstruments(reg)
	require.NoError(t, err)

	ok := &fakeAdapter{name: "ok"}
	failing := &fakeAdapter{name: "failing", err: errors.New("timeout")}
	p, err := New([]adapter.Adapter{ok, failing}, Options{
		Interval:    time.Second,
		Concurrency: 2,
		Logger:      quietLogger(),
		Instruments: inst,
	})
	require.NoError(t, err)
	p.Cycle(context.Background())

	require.Equal(t, 1.0, testutil.ToFloat64(inst.refreshes.WithLabelValues("ok", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(inst.refreshes.WithLabelValues("failing", "error")))
	require.Equal(t, 0.0, testutil.ToFloat64(inst.inFlight))
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(nil, Options{Interval: 0, Concurrency: 1})
	require.Error(t, err)
	_, err = New(nil, Options{Interval: time.Second, Concurrency: 0})
	require.Error(t, err)
}
