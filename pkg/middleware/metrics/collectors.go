package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	responseTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "response_time",
			Help:    "http response time.",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60},
		},
	)

	totalHttpRequestsToUri = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests_to_uri", Help: "http requests to uri"},
		[]string{"code", "uri", "method"},
	)

	totalHttpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests", Help: "http requests by code, and method"},
		[]string{"code", "method"},
	)

	authDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "auth_decisions_total", Help: "middleware decisions by terminal state"},
		[]string{"outcome"},
	)

	sessionCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "session_cache_total", Help: "signed-cookie session cache lookups by outcome"},
		[]string{"outcome"},
	)

	upstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "upstream_requests_total", Help: "proxied upstream auth calls by status and endpoint"},
		[]string{"code", "endpoint"},
	)
)

// RecordDecision counts a terminal middleware state (allow, redirect_login,
// redirect_oauth).
func RecordDecision(outcome string) { authDecisions.WithLabelValues(outcome).Inc() }

// RecordCacheOutcome counts a session cache lookup (hit, minted, miss).
func RecordCacheOutcome(outcome string) { sessionCacheLookups.WithLabelValues(outcome).Inc() }

// RecordUpstream counts one proxied upstream call.
func RecordUpstream(code, endpoint string) { upstreamRequests.WithLabelValues(code, endpoint).Inc() }

func init() {
	prometheus.MustRegister(
		responseTime,
		totalHttpRequestsToUri,
		totalHttpRequests,
		authDecisions,
		sessionCacheLookups,
		upstreamRequests,
	)
}
