// Package monitor periodically logs process resource usage next to the
// poller's cycle statistics.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/neox5/chainbox/internal/poller"
	"github.com/shirou/gopsutil/v4/process"
)

// StatsSource reports poller cycle statistics.
type StatsSource interface {
	Stats() poller.Stats
}

// Monitor tracks resource usage and refresh health.
type Monitor struct {
	interval time.Duration
	logger   *slog.Logger
	stats    StatsSource
	proc     *process.Process
	wg       sync.WaitGroup
}

// New creates a monitor. stats may be nil.
func New(interval time.Duration, stats StatsSource, logger *slog.Logger) (*Monitor, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("monitor interval must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to get process handle: %w", err)
	}

	return &Monitor{
		interval: interval,
		logger:   logger,
		stats:    stats,
		proc:     proc,
	}, nil
}

// Run starts the monitoring loop in a background goroutine that exits
// when ctx is cancelled. The first sample is logged immediately.
func (m *Monitor) Run(ctx context.Context) {
	m.wg.Go(func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.collect(ctx)

		for {
			select {
			case <-ctx.Done():
				m.logger.Debug("monitor stopped")
				return
			case <-ticker.C:
				m.collect(ctx)
			}
		}
	})
}

// Wait blocks until the monitor goroutine exits.
func (m *Monitor) Wait() {
	m.wg.Wait()
}

// Sample is one resource reading.
type Sample struct {
	CPUPercent  float64
	RSS         uint64
	HeapAlloc   uint64
	Goroutines  int
	NumGC       uint32
	Poller      poller.Stats
	PollerKnown bool
}

// Read takes a single sample.
func (m *Monitor) Read(ctx context.Context) Sample {
	var s Sample

	cpu, err := m.proc.CPUPercentWithContext(ctx)
	if err != nil {
		m.logger.Debug("failed to get CPU percent", "error", err)
	}
	s.CPUPercent = cpu

	if mem, err := m.proc.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		s.RSS = mem.RSS
	} else if err != nil {
		m.logger.Debug("failed to get memory info", "error", err)
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s.HeapAlloc = ms.HeapAlloc
	s.NumGC = ms.NumGC
	s.Goroutines = runtime.NumGoroutine()

	if m.stats != nil {
		s.Poller = m.stats.Stats()
		s.PollerKnown = true
	}

	return s
}

func (m *Monitor) collect(ctx context.Context) {
	s := m.Read(ctx)

	mb := func(b uint64) float64 {
		return float64(b) / (1024 * 1024)
	}

	attrs := []slog.Attr{
		slog.String("cpu", fmt.Sprintf("%.2f%%", s.CPUPercent)),
		slog.String("mem", fmt.Sprintf("rss:%.2fMB heap:%.2fMB", mb(s.RSS), mb(s.HeapAlloc))),
		slog.Int("gor", s.Goroutines),
		slog.Uint64("gc", uint64(s.NumGC)),
	}
	if s.PollerKnown {
		attrs = append(attrs,
			slog.Uint64("cycles", s.Poller.Cycles),
			slog.Duration("last_cycle", s.Poller.LastDuration),
			slog.Int("failures", s.Poller.Failures),
			slog.Int64("in_flight", s.Poller.InFlight),
		)
	}

	m.logger.LogAttrs(ctx, slog.LevelInfo, "resource", attrs...)

	// A cycle longer than the interval means refreshes are backing up.
	if s.PollerKnown && s.Poller.LastDuration > m.interval {
		m.logger.Warn("poll cycle slower than monitor interval",
			"last_cycle", s.Poller.LastDuration,
			"interval", m.interval)
	}
}
