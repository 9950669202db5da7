package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh results.
const (
	ResultSuccess    = "success"
	ResultFailed     = "failed"
	ResultSuppressed = "suppressed"
	ResultCanceled   = "canceled"
)

// Metrics provides observability for the breed repository.
// Tracks refresh outcomes, emissions, favorite toggles and cache size.
type Metrics struct {
	Refreshes       *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	Emissions       *prometheus.CounterVec
	FavoriteToggles *prometheus.CounterVec
	BreedsCached    prometheus.Gauge
}

// New creates a Metrics instance registered on reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "catdex_refreshes_total",
			Help: "Total number of remote refresh attempts by result",
		}, []string{"result"}),
		RefreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "catdex_refresh_duration_seconds",
			Help:    "Duration of remote refresh attempts (fetch, merge and write)",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		Emissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "catdex_emissions_total",
			Help: "Total number of outcomes emitted by GetAllBreeds by kind",
		}, []string{"kind"}),
		FavoriteToggles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "catdex_favorite_toggles_total",
			Help: "Total number of favorite toggles by result",
		}, []string{"result"}),
		BreedsCached: f.NewGauge(prometheus.GaugeOpts{
			Name: "catdex_breeds_cached",
			Help: "Number of breed records in the local store after the last refresh",
		}),
	}
}

// ObserveRefresh records one refresh attempt.
// Call with time.Now() at the start of the attempt.
func (m *Metrics) ObserveRefresh(result string, start time.Time) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(result).Inc()
	m.RefreshDuration.Observe(time.Since(start).Seconds())
}

// IncrementEmission records an emitted outcome of the given kind.
func (m *Metrics) IncrementEmission(kind string) {
	if m == nil {
		return
	}
	m.Emissions.WithLabelValues(kind).Inc()
}

// IncrementToggle records a favorite toggle result.
func (m *Metrics) IncrementToggle(result string) {
	if m == nil {
		return
	}
	m.FavoriteToggles.WithLabelValues(result).Inc()
}

// SetCached records the current number of cached breeds.
func (m *Metrics) SetCached(n int) {
	if m == nil {
		return
	}
	m.BreedsCached.Set(float64(n))
}
