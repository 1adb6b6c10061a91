package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func newTestServer() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/brew", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	mux.HandleFunc("/api/withdrawals/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return Middleware(mux)
}

func TestMiddleware_RecordsStatus(t *testing.T) {
	handler := newTestServer()
	counter := HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/brew", "418")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/brew", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestMiddleware_LabelsByPattern(t *testing.T) {
	handler := newTestServer()
	counter := HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/withdrawals/{id}", "200")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"6f1c1a52-3b5e-4c3e-9a57-0c3f1d8e2b4a", "42"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/withdrawals/"+id, nil))
	}

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestMiddleware_UnmatchedPathsShareOneLabel(t *testing.T) {
	handler := newTestServer()
	counter := HTTPRequestsTotal.WithLabelValues(http.MethodGet, RouteUnmatched, "404")
	before := testutil.ToFloat64(counter)

	for _, path := range []string{"/wp-admin/setup.php", "/.env", "/api/nope/123"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, before+3, testutil.ToFloat64(counter))
	assert.Zero(t, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/.env", "404")))
}

func TestRouteLabel(t *testing.T) {
	matched := httptest.NewRequest(http.MethodGet, "/brew", nil)
	matched.Pattern = "/brew"
	assert.Equal(t, "/brew", RouteLabel(matched))

	assert.Equal(t, RoutePreflight, RouteLabel(httptest.NewRequest(http.MethodOptions, "/api/fees/calculate", nil)))
	assert.Equal(t, RouteUnmatched, RouteLabel(httptest.NewRequest(http.MethodGet, "/random", nil)))
}
