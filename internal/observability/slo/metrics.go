// Package slo tracks per-source service level objectives: how often a
// source's pipeline runs succeed and how old its newest successful feed is.
package slo

import (
	"sync"
	"time"

	"feedhub/internal/domain/entity"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SLO targets for every source.
const (
	// SuccessRatioSLO is the target share of successful runs within the window (95%).
	SuccessRatioSLO = 0.95

	// FreshnessSLO is the maximum acceptable age of a source's last successful run.
	FreshnessSLO = time.Hour

	// DefaultWindow is the number of recent runs the success ratio is computed over.
	DefaultWindow = 20
)

// Metrics holds the SLO gauges.
type Metrics struct {
	SuccessRatio *prometheus.GaugeVec
	LastSuccess  *prometheus.GaugeVec
	Breaching    *prometheus.GaugeVec
}

// NewMetrics registers the SLO gauges with the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the SLO gauges with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SuccessRatio: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "slo_source_success_ratio",
				Help: "Share of successful pipeline runs over the recent window (0-1), target: 0.95",
			},
			[]string{"source"},
		),
		LastSuccess: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "slo_source_last_success_timestamp_seconds",
				Help: "Unix timestamp of the last successful pipeline run",
			},
			[]string{"source"},
		),
		Breaching: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "slo_source_breaching",
				Help: "1 if the source currently misses its success ratio or freshness objective",
			},
			[]string{"source"},
		),
	}
}

// Status is the SLO state of one source.
type Status struct {
	Source       string
	Runs         int
	SuccessRatio float64
	LastSuccess  time.Time
	LastFailure  string // failure kind of the most recent failed run
	Breaching    bool
}

type window struct {
	outcomes    []bool // ring buffer, true = success
	next        int
	filled      bool
	lastSuccess time.Time
	lastFailure string
}

func (w *window) add(ok bool) {
	w.outcomes[w.next] = ok
	w.next = (w.next + 1) % len(w.outcomes)
	if w.next == 0 {
		w.filled = true
	}
}

func (w *window) runs() int {
	if w.filled {
		return len(w.outcomes)
	}
	return w.next
}

func (w *window) ratio() float64 {
	n := w.runs()
	if n == 0 {
		return 1
	}
	ok := 0
	for _, o := range w.outcomes[:n] {
		if o {
			ok++
		}
	}
	return float64(ok) / float64(n)
}

// Tracker records run outcomes per source. It is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	size    int
	sources map[string]*window
	metrics *Metrics
}

// NewTracker creates a Tracker over the last size runs of each source.
// A nil metrics skips gauge updates.
func NewTracker(size int, metrics *Metrics) *Tracker {
	if size <= 0 {
		size = DefaultWindow
	}
	return &Tracker{size: size, sources: make(map[string]*window), metrics: metrics}
}

// Observe records the outcome of one run finished at at.
func (t *Tracker) Observe(source string, err error, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.sources[source]
	if !ok {
		w = &window{outcomes: make([]bool, t.size)}
		t.sources[source] = w
	}
	w.add(err == nil)
	if err == nil {
		w.lastSuccess = at
	} else {
		w.lastFailure = entity.KindName(entity.KindOf(err))
	}

	if t.metrics != nil {
		t.metrics.SuccessRatio.WithLabelValues(source).Set(w.ratio())
		if !w.lastSuccess.IsZero() {
			t.metrics.LastSuccess.WithLabelValues(source).Set(float64(w.lastSuccess.Unix()))
		}
		t.metrics.Breaching.WithLabelValues(source).Set(boolGauge(breaching(w, at)))
	}
}

// Status returns the SLO state of source as of now.
func (t *Tracker) Status(source string, now time.Time) (Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.sources[source]
	if !ok {
		return Status{Source: source}, false
	}
	return Status{
		Source:       source,
		Runs:         w.runs(),
		SuccessRatio: w.ratio(),
		LastSuccess:  w.lastSuccess,
		LastFailure:  w.lastFailure,
		Breaching:    breaching(w, now),
	}, true
}

func breaching(w *window, now time.Time) bool {
	if w.ratio() < SuccessRatioSLO {
		return true
	}
	return w.lastSuccess.IsZero() || now.Sub(w.lastSuccess) > FreshnessSLO
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
