package slo

import (
	"errors"
	"testing"
	"time"

	"feedhub/internal/domain/entity"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func gaugeValue(t *testing.T, vec *prometheus.GaugeVec, source string) float64 {
	t.Helper()
	metric := &io_prometheus_client.Metric{}
	require.NoError(t, vec.WithLabelValues(source).Write(metric))
	return metric.GetGauge().GetValue()
}

func fetchErr() error {
	return entity.NewSourceError("blog", entity.ErrFetchFailed, errors.New("503"))
}

func TestTracker_Status(t *testing.T) {
	tests := []struct {
		name          string
		outcomes      []error
		now           time.Time
		wantRatio     float64
		wantBreaching bool
		wantFailure   string
	}{
		{
			name:      "all successful and fresh",
			outcomes:  []error{nil, nil, nil},
			now:       t0.Add(time.Minute),
			wantRatio: 1,
		},
		{
			name:          "stale after freshness objective",
			outcomes:      []error{nil},
			now:           t0.Add(FreshnessSLO + time.Second),
			wantRatio:     1,
			wantBreaching: true,
		},
		{
			name:          "ratio below objective",
			outcomes:      []error{nil, fetchErr(), nil, nil},
			now:           t0,
			wantRatio:     0.75,
			wantBreaching: true,
			wantFailure:   "fetch_failed",
		},
		{
			name:          "never succeeded",
			outcomes:      []error{fetchErr()},
			now:           t0,
			wantRatio:     0,
			wantBreaching: true,
			wantFailure:   "fetch_failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(10, nil)
			for _, err := range tt.outcomes {
				tr.Observe("blog", err, t0)
			}
			st, ok := tr.Status("blog", tt.now)
			require.True(t, ok)
			assert.Equal(t, len(tt.outcomes), st.Runs)
			assert.InDelta(t, tt.wantRatio, st.SuccessRatio, 1e-9)
			assert.Equal(t, tt.wantBreaching, st.Breaching)
			assert.Equal(t, tt.wantFailure, st.LastFailure)
		})
	}
}

func TestTracker_WindowForgetsOldRuns(t *testing.T) {
	tr := NewTracker(4, nil)
	for i := 0; i < 4; i++ {
		tr.Observe("blog", fetchErr(), t0)
	}
	for i := 0; i < 4; i++ {
		tr.Observe("blog", nil, t0)
	}
	st, ok := tr.Status("blog", t0)
	require.True(t, ok)
	assert.Equal(t, 4, st.Runs)
	assert.Equal(t, 1.0, st.SuccessRatio)
	assert.False(t, st.Breaching)
}

func TestTracker_UnknownSource(t *testing.T) {
	tr := NewTracker(0, nil)
	st, ok := tr.Status("nope", t0)
	assert.False(t, ok)
	assert.Equal(t, "nope", st.Source)
}

func TestTracker_UpdatesGauges(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())
	tr := NewTracker(2, m)

	tr.Observe("blog", nil, t0)
	assert.Equal(t, 1.0, gaugeValue(t, m.SuccessRatio, "blog"))
	assert.Equal(t, float64(t0.Unix()), gaugeValue(t, m.LastSuccess, "blog"))
	assert.Equal(t, 0.0, gaugeValue(t, m.Breaching, "blog"))

	tr.Observe("blog", fetchErr(), t0.Add(time.Minute))
	assert.Equal(t, 0.5, gaugeValue(t, m.SuccessRatio, "blog"))
	assert.Equal(t, float64(t0.Unix()), gaugeValue(t, m.LastSuccess, "blog"))
	assert.Equal(t, 1.0, gaugeValue(t, m.Breaching, "blog"))
}
