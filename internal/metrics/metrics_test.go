package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := New()

	r.Request("ok")
	r.Request("ok")
	r.Request("no_slot_found")
	r.Fallback("range_fallback")
	r.AttendeeFetchFailed()
	r.NotifyFailed()
	r.ServiceCall("date_range_extraction", 20*time.Millisecond, nil)
	r.ServiceCall("date_range_extraction", time.Second, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.requests.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.requests.WithLabelValues("no_slot_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fallbacks.WithLabelValues("range_fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetchFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.notifyFailures))
	assert.Equal(t, 2, testutil.CollectAndCount(r.serviceDuration))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Request("ok")
		r.Fallback("x")
		r.ServiceCall("op", time.Second, nil)
		r.AttendeeFetchFailed()
		r.NotifyFailed()
	})
	assert.Nil(t, r.Registry())
}

func TestHandler(t *testing.T) {
	r := New()
	r.Request("ok")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `meeting_scheduler_requests_total{outcome="ok"} 1`)
}
