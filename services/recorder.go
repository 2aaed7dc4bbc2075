package services

import (
	"context"
	"time"
)

// CountRecorder receives business counters. *aws.MetricsClient satisfies it.
type CountRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}

// recordCount publishes off the request path so a slow metrics backend
// never delays a response. Recorders reporting IsEnabled() == false are
// skipped without starting a goroutine.
func recordCount(r CountRecorder, name string, dims map[string]string) {
	if r == nil {
		return
	}
	if e, ok := r.(interface{ IsEnabled() bool }); ok && !e.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = r.RecordCount(ctx, name, dims)
	}()
}
