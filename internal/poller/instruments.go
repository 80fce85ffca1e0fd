package poller

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Instruments are the poller's own Prometheus metrics.
type Instruments struct {
	refreshes       *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
	cycleDuration   prometheus.Histogram
}

// NewInstruments creates and registers poller metrics with reg.
func NewInstruments(reg prometheus.Registerer) (*Instruments, error) {
	i := &Instruments{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chainbox_refresh_total",
			Help: "Total number of adapter refreshes by result",
		}, []string{"adapter", "result"}),
		refreshDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chainbox_refresh_duration_seconds",
			Help:    "Duration of adapter refreshes in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"adapter"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chainbox_refresh_in_flight",
			Help: "Number of adapter refreshes currently running",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chainbox_cycle_duration_seconds",
			Help:    "Duration of complete poll cycles in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{i.refreshes, i.refreshDuration, i.inFlight, i.cycleDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return i, nil
}

func (i *Instruments) started() {
	if i == nil {
		return
	}
	i.inFlight.Inc()
}

func (i *Instruments) finished(adapter string, d time.Duration, err error) {
	if i == nil {
		return
	}
	i.inFlight.Dec()

	result := "success"
	if err != nil {
		result = "error"
	}
	i.refreshes.WithLabelValues(adapter, result).Inc()
	i.refreshDuration.WithLabelValues(adapter).Observe(d.Seconds())
}

func (i *Instruments) observeCycle(d time.Duration) {
	if i == nil {
		return
	}
	i.cycleDuration.Observe(d.Seconds())
}
