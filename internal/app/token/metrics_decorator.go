package token

import (
	"context"
	"errors"
	"time"

	"roomtoken/internal/pkg/metrics"
)

const (
	operationIssue    = "issue"
	operationValidate = "validate"
)

// MetricsDecorator wraps a Service and records an outcome and duration for every call.
type MetricsDecorator struct {
	next    Service
	metrics metrics.BusinessMetrics
}

// NewMetricsDecorator returns next instrumented with m.
func NewMetricsDecorator(next Service, m metrics.BusinessMetrics) *MetricsDecorator {
	return &MetricsDecorator{next: next, metrics: m}
}

func (d *MetricsDecorator) Issue(ctx context.Context, req CredentialRequest) (*Credential, error) {
	start := time.Now()

	cred, err := d.next.Issue(ctx, req)

	outcome := "success"
	switch {
	case errors.Is(err, ErrInvalidArgument):
		outcome = "invalid_argument"
	case err != nil:
		outcome = "error"
	}

	d.metrics.RecordOperation(ctx, operationIssue, outcome)
	d.metrics.RecordDuration(ctx, operationIssue, time.Since(start), outcome)
	return cred, err
}

func (d *MetricsDecorator) Validate(ctx context.Context, token string) ValidationResult {
	start := time.Now()

	result := d.next.Validate(ctx, token)

	outcome := "success"
	if !result.Valid {
		outcome = string(result.Reason)
	}

	d.metrics.RecordOperation(ctx, operationValidate, outcome)
	d.metrics.RecordDuration(ctx, operationValidate, time.Since(start), outcome)
	return result
}
