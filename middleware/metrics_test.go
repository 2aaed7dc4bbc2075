package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	awspkg "github.com/smarte-commerce/ecomm-shipping-sub000/pkg/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedMetric struct {
	name string
	dims map[string]string
}

type chanRecorder struct {
	enabled bool
	out     chan recordedMetric
}

func (r *chanRecorder) IsEnabled() bool { return r.enabled }

func (r *chanRecorder) RecordCount(_ context.Context, name string, dims map[string]string) error {
	r.out <- recordedMetric{name: name, dims: dims}
	return nil
}

func (r *chanRecorder) RecordLatency(_ context.Context, name string, _ time.Duration, dims map[string]string) error {
	r.out <- recordedMetric{name: name, dims: dims}
	return nil
}

func collect(t *testing.T, ch <-chan recordedMetric, n int) []recordedMetric {
	t.Helper()
	got := make([]recordedMetric, 0, n)
	for len(got) < n {
		select {
		case m := <-ch:
			got = append(got, m)
		case <-time.After(2 * time.Second):
			require.FailNow(t, "timed out waiting for metrics", "got %d of %d", len(got), n)
		}
	}
	return got
}

func TestMetricsMiddleware_PublishesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := &chanRecorder{enabled: true, out: make(chan recordedMetric, 8)}
	r := gin.New()
	r.Use(MetricsMiddleware(rec, "shipping-service"))
	r.GET("/shipping/track/:trackingCode", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/shipping/track/TRK1", nil))

	got := collect(t, rec.out, 3)
	assert.Equal(t, awspkg.MetricHTTPRequests, got[0].name)
	assert.Equal(t, awspkg.MetricHTTPLatency, got[1].name)
	assert.Equal(t, awspkg.MetricHTTP5xx, got[2].name)
	assert.Equal(t, "/shipping/track/:trackingCode", got[0].dims["Path"])
	assert.Equal(t, "5xx", got[0].dims["Status"])
}

func TestMetricsMiddleware_DisabledRecorderSkipsPublish(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := &chanRecorder{out: make(chan recordedMetric, 1)}
	r := gin.New()
	r.Use(MetricsMiddleware(rec, "shipping-service"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	select {
	case m := <-rec.out:
		t.Fatalf("unexpected metric %s", m.name)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStatusClassAndErrorMetric(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(http.StatusCreated))
	assert.Equal(t, "3xx", statusClass(http.StatusFound))
	assert.Equal(t, "4xx", statusClass(http.StatusTooManyRequests))
	assert.Equal(t, "5xx", statusClass(http.StatusGatewayTimeout))
	assert.Equal(t, "unknown", statusClass(100))

	assert.Equal(t, "", errorMetric(http.StatusOK))
	assert.Equal(t, awspkg.MetricHTTP4xx, errorMetric(http.StatusNotFound))
	assert.Equal(t, "unknown", httpDimensions("s", "GET", "", 100)["Status"])
	assert.Equal(t, "unmatched", httpDimensions("s", "GET", "", 200)["Path"])
}
