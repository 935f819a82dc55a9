package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheStale = "stale"
)

type Manager struct {
	// counters
	CounterRequests            *prometheus.CounterVec
	CounterHandleRequestPanic  prometheus.Counter
	CounterRateLimitedRequests prometheus.Counter
	CounterServiceCalls        *prometheus.CounterVec
	CounterCacheLookups        *prometheus.CounterVec
	CounterAuthEvents          *prometheus.CounterVec

	// gauges
	GaugeRequests      prometheus.Gauge
	GaugeLifeSignal    prometheus.Gauge
	GaugeAuthenticated prometheus.Gauge

	// histograms
	HistServiceCallDuration  *prometheus.HistogramVec
	HistogramRequestDuration *prometheus.HistogramVec
}

func NewTestManager() *Manager {
	return NewManager("trainor", "test_server", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("trainor", "test_server", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})
	counterHandleRequestPanic := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "handle_request_panic",
		Help:      "The total number of serve request panics",
	})
	counterRateLimitedRequests := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "rate_limited_requests",
		Help:      "The total number of rate limited requests",
	})
	counterServiceCalls := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "service_calls",
		Help:      "The total number of service layer calls by operation and outcome",
	}, []string{"operation", "outcome"})
	counterCacheLookups := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "cache_lookups",
		Help:      "The total number of offline cache lookups by cache name and result",
	}, []string{"cache", "result"})
	counterAuthEvents := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "auth_events",
		Help:      "The total number of auth state change events",
	}, []string{"event"})

	gaugeRequests := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "current_requests",
		Help:      "Current number of requests served",
	})
	gaugeLifeSignal := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "life_signal",
		Help:      "Shows whether the service is alive",
	})
	gaugeAuthenticated := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "authenticated",
		Help:      "1 when a user session is active, 0 otherwise",
	})

	histServiceCallDuration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "service_call_duration_seconds",
		Help:      "Duration of service layer calls, remote round trips included",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"operation"})

	histogramRequestDuration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_duration_seconds",
		Help:      "Histogram of response time for requests in seconds",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"route", "method", "status_code"})

	return &Manager{
		CounterRequests:            counterRequests,
		CounterHandleRequestPanic:  counterHandleRequestPanic,
		CounterRateLimitedRequests: counterRateLimitedRequests,
		CounterServiceCalls:        counterServiceCalls,
		CounterCacheLookups:        counterCacheLookups,
		CounterAuthEvents:          counterAuthEvents,
		GaugeRequests:              gaugeRequests,
		GaugeLifeSignal:            gaugeLifeSignal,
		GaugeAuthenticated:         gaugeAuthenticated,
		HistServiceCallDuration:    histServiceCallDuration,
		HistogramRequestDuration:   histogramRequestDuration,
	}
}

// ObserveServiceCall records one service call. Safe on a nil manager.
func (m *Manager) ObserveServiceCall(operation string, success bool, seconds float64) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeFailure
	}
	m.CounterServiceCalls.WithLabelValues(operation, outcome).Inc()
	m.HistServiceCallDuration.WithLabelValues(operation).Observe(seconds)
}

// HandlerPanic counts one recovered handler panic. Safe on a nil manager.
func (m *Manager) HandlerPanic() {
	if m == nil {
		return
	}
	m.CounterHandleRequestPanic.Inc()
}

// CacheLookup records one offline cache lookup. Safe on a nil manager.
func (m *Manager) CacheLookup(cacheName, res string) {
	if m == nil {
		return
	}
	m.CounterCacheLookups.WithLabelValues(cacheName, res).Inc()
}

// AuthEvent records one auth state change. Safe on a nil manager.
func (m *Manager) AuthEvent(event string, authenticated bool) {
	if m == nil {
		return
	}
	m.CounterAuthEvents.WithLabelValues(event).Inc()
	if authenticated {
		m.GaugeAuthenticated.Set(1)
	} else {
		m.GaugeAuthenticated.Set(0)
	}
}
