package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/assigment/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/assigment/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/assigment/def", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/assigment/{id}", "404")))
}

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.Transition("Draft", "Published")
	m.Submission("created")
	m.Review()
	m.Event("assignment.published", "published")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("Draft", "Published")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reviews))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "classroom_reviews_total 1")
}

type queueStats struct{ queued, active int }

func (q queueStats) GetQueueLength() int   { return q.queued }
func (q queueStats) GetActiveWorkers() int { return q.active }

func TestWatchQueue(t *testing.T) {
	m := New()
	m.WatchQueue(queueStats{queued: 3, active: 2})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "classroom_worker_queue_length 3")
	assert.Contains(t, rec.Body.String(), "classroom_worker_active 2")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Transition("Draft", "Published")
		m.Submission("created")
		m.Review()
		m.Event("x", "y")
		m.WatchQueue(queueStats{})
	})
}
