package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ProvideMetrics returns the /metrics scrape handler the gateway router
// mounts; named "metrics" in the fx graph.
func ProvideMetrics() http.Handler { return promhttp.Handler() }
