package metrics

import (
	"context"
	"time"
)

// Recorder fans generation metrics out to CloudWatch and Sentry
type Recorder struct {
	cloudwatch *Client
	sentry     *SentryMetrics
}

// NewRecorder creates a recorder; either sink may be nil
func NewRecorder(cloudwatch *Client, sentry *SentryMetrics) *Recorder {
	return &Recorder{cloudwatch: cloudwatch, sentry: sentry}
}

// RecordGeneration records one finished generation request
func (r *Recorder) RecordGeneration(ctx context.Context, backend, status string, attempts int, duration time.Duration) {
	if r.cloudwatch != nil {
		r.cloudwatch.RecordGeneration(backend, status, attempts, duration)
	}
	if r.sentry != nil {
		r.sentry.RecordGeneration(ctx, backend, status, attempts, duration)
	}
}

// RecordAPIRequest records one finished HTTP request against its route
func (r *Recorder) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	if r.cloudwatch != nil {
		r.cloudwatch.RecordAPIRequest(endpoint, statusCode, duration)
	}
	if r.sentry != nil {
		r.sentry.RecordAPIRequest(ctx, endpoint, statusCode, duration)
	}
}
