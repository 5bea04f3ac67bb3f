package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	SearchRequestsTotal *prometheus.CounterVec
	SearchDuration      prometheus.Histogram
	RequestsInFlight    prometheus.Gauge

	ProviderAttemptsTotal *prometheus.CounterVec
	StreamDuration        *prometheus.HistogramVec
	HitsExtracted         prometheus.Histogram

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	RateLimitHitsTotal prometheus.Counter

	PersistenceFailuresTotal prometheus.Counter
	ProfilesReturned         prometheus.Histogram
}

// New регистрирует метрики в reg. nil - дефолтный регистр prometheus.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		SearchRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tender_backend_profile_search_requests_total",
				Help: "Total number of profile searches by outcome",
			},
			[]string{"status"},
		),
		SearchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tender_backend_profile_search_duration_seconds",
				Help:    "Profile search duration in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tender_backend_profile_search_in_flight",
				Help: "Number of profile searches currently being processed",
			},
		),

		ProviderAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tender_backend_provider_attempts_total",
				Help: "Total number of streaming attempts against the AI search provider",
			},
			[]string{"provider", "status"},
		),
		StreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tender_backend_provider_stream_duration_seconds",
				Help:    "Wall-clock duration of one provider ingest including retries",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 45, 60},
			},
			[]string{"provider"},
		),
		HitsExtracted: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tender_backend_provider_hits_extracted",
				Help:    "Number of web search hits extracted per ingest",
				Buckets: []float64{0, 1, 5, 10, 20, 40},
			},
		),

		CacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tender_backend_profile_cache_hits_total",
				Help: "Total number of profile search cache hits",
			},
		),
		CacheMissesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tender_backend_profile_cache_misses_total",
				Help: "Total number of profile search cache misses",
			},
		),

		RateLimitHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tender_backend_profile_rate_limit_hits_total",
				Help: "Total number of searches rejected by the per-subject rate limit",
			},
		),

		PersistenceFailuresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tender_backend_search_history_write_failures_total",
				Help: "Total number of search history records that failed to persist",
			},
		),
		ProfilesReturned: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tender_backend_profiles_returned",
				Help:    "Number of verified profiles returned per search",
				Buckets: []float64{0, 1, 2, 3, 5, 10},
			},
		),
	}

	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func HandlerFor(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordSearch(status string, duration time.Duration) {
	m.SearchRequestsTotal.WithLabelValues(status).Inc()
	m.SearchDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordProviderAttempt(provider, status string) {
	m.ProviderAttemptsTotal.WithLabelValues(provider, status).Inc()
}

func (m *Metrics) RecordStream(provider string, duration time.Duration, hits int) {
	m.StreamDuration.WithLabelValues(provider).Observe(duration.Seconds())
	m.HitsExtracted.Observe(float64(hits))
}

func (m *Metrics) RecordCacheHit() {
	m.CacheHitsTotal.Inc()
}

func (m *Metrics) RecordCacheMiss() {
	m.CacheMissesTotal.Inc()
}

func (m *Metrics) RecordRateLimitHit() {
	m.RateLimitHitsTotal.Inc()
}

func (m *Metrics) RecordPersistenceFailure() {
	m.PersistenceFailuresTotal.Inc()
}

func (m *Metrics) RecordProfiles(count int) {
	m.ProfilesReturned.Observe(float64(count))
}

func (m *Metrics) IncRequestsInFlight() {
	m.RequestsInFlight.Inc()
}

func (m *Metrics) DecRequestsInFlight() {
	m.RequestsInFlight.Dec()
}
