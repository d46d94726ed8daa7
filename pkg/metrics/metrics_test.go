package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_CountsRequestsByPattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /teapot/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := Middleware(mux)

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, "POST /teapot/{id}", "418"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/teapot/1", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/teapot/2", nil))

	assert.Equal(t, before+2, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, "POST /teapot/{id}", "418")))
	assert.Zero(t, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, "/teapot/1", "418")))
}

func TestMiddleware_DefaultStatusIsOK(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /metrics-ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	h := Middleware(mux)

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "GET /metrics-ok", "200"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics-ok", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "GET /metrics-ok", "200")))
}

func TestMiddleware_UnmatchedPathsShareOneSeries(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /known", func(w http.ResponseWriter, r *http.Request) {})
	h := Middleware(mux)

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "404"))

	for _, path := range []string{"/wp-admin", "/.env", "/admin/login.php"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusNotFound, rr.Code)
	}

	assert.Equal(t, before+3, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "404")))
	assert.Zero(t, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/wp-admin", "404")))
}

func TestDomainMetrics(t *testing.T) {
	before := testutil.ToFloat64(askOutcomesTotal.WithLabelValues("rejected"))
	ObserveAskOutcome("rejected")
	assert.Equal(t, before+1, testutil.ToFloat64(askOutcomesTotal.WithLabelValues("rejected")))

	retries := testutil.ToFloat64(sqlRetriesTotal)
	IncSQLRetry()
	assert.Equal(t, retries+1, testutil.ToFloat64(sqlRetriesTotal))

	quota := testutil.ToFloat64(modelErrorsTotal.WithLabelValues("quota"))
	ObserveModelCall(time.Second, "quota")
	ObserveModelCall(time.Second, "")
	assert.Equal(t, quota+1, testutil.ToFloat64(modelErrorsTotal.WithLabelValues("quota")))

	ObserveSQLExecution(10*time.Millisecond, errors.New("boom"))
	ObserveSQLExecution(10*time.Millisecond, nil)
}

func TestHandler_ExposesCollectors(t *testing.T) {
	ObserveAskOutcome("executed")

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "asistentebi_ask_outcomes_total"))
}
