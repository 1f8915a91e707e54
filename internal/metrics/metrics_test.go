package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveLookup(t *testing.T) {
	before := testutil.ToFloat64(LookupsTotal.WithLabelValues("remote", OutcomeMalformed))
	ObserveLookup("remote", OutcomeMalformed, 12*time.Millisecond)
	after := testutil.ToFloat64(LookupsTotal.WithLabelValues("remote", OutcomeMalformed))
	assert.Equal(t, before+1, after)
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/search/_typeahead/{query}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/search/_typeahead/cal", http.NoBody))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	got := testutil.ToFloat64(backendRequestsTotal.WithLabelValues("/search/_typeahead/{query}", "418"))
	assert.GreaterOrEqual(t, got, 1.0)
}
