package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	awspkg "github.com/smarte-commerce/ecomm-shipping-sub000/pkg/aws"
)

// HTTPMetricsRecorder is the CloudWatch surface used per request.
// *aws.MetricsClient satisfies it.
type HTTPMetricsRecorder interface {
	IsEnabled() bool
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error
}

const metricsPublishTimeout = 5 * time.Second

// MetricsMiddleware forwards request count, latency and error class
// counters to CloudWatch, keyed by route template.
func MetricsMiddleware(recorder HTTPMetricsRecorder, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if recorder == nil || !recorder.IsEnabled() {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		dims := httpDimensions(serviceName, c.Request.Method, c.FullPath(), status)

		go publishHTTPMetrics(recorder, status, duration, dims)
	}
}

func publishHTTPMetrics(recorder HTTPMetricsRecorder, status int, duration time.Duration, dims map[string]string) {
	ctx, cancel := context.WithTimeout(context.Background(), metricsPublishTimeout)
	defer cancel()

	_ = recorder.RecordCount(ctx, awspkg.MetricHTTPRequests, dims)
	_ = recorder.RecordLatency(ctx, awspkg.MetricHTTPLatency, duration, dims)
	if name := errorMetric(status); name != "" {
		_ = recorder.RecordCount(ctx, name, dims)
	}
}

func httpDimensions(service, method, route string, status int) map[string]string {
	if route == "" {
		route = "unmatched"
	}
	return map[string]string{
		"Service": service,
		"Method":  method,
		"Path":    route,
		"Status":  statusClass(status),
	}
}

func errorMetric(status int) string {
	switch {
	case status >= 500:
		return awspkg.MetricHTTP5xx
	case status >= 400:
		return awspkg.MetricHTTP4xx
	}
	return ""
}

// statusClass converts a status code to its class (2xx, 3xx, 4xx, 5xx).
func statusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
