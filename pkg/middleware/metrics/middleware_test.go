package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectCountsRequests(t *testing.T) {
	h := Collect()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(totalHttpRequests.WithLabelValues("418", http.MethodGet))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	after := testutil.ToFloat64(totalHttpRequests.WithLabelValues("418", http.MethodGet))
	if after != before+1 {
		t.Fatalf("counter %v -> %v, want +1", before, after)
	}
}

func TestCollectSkipsMetricsEndpoint(t *testing.T) {
	h := Collect()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	before := testutil.ToFloat64(totalHttpRequestsToUri.WithLabelValues("200", "/metrics", http.MethodGet))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	after := testutil.ToFloat64(totalHttpRequestsToUri.WithLabelValues("200", "/metrics", http.MethodGet))
	if after != before {
		t.Fatal("self-scrape must not be counted")
	}
}

func TestRecordDecision(t *testing.T) {
	before := testutil.ToFloat64(authDecisions.WithLabelValues("allow"))
	RecordDecision("allow")
	after := testutil.ToFloat64(authDecisions.WithLabelValues("allow"))
	if after != before+1 {
		t.Fatalf("counter %v -> %v, want +1", before, after)
	}
}
