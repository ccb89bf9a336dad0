package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// BusinessMetrics records token operations.
type BusinessMetrics interface {
	// RecordOperation counts one operation ("issue", "validate") with its outcome
	// ("success", "invalid_argument", "error", or a rejection reason).
	RecordOperation(ctx context.Context, operation, outcome string)

	// RecordDuration records how long an operation took, in seconds.
	RecordDuration(ctx context.Context, operation string, duration time.Duration, outcome string)
}

type businessMetrics struct {
	operationCounter metric.Int64Counter
	durationHisto    metric.Float64Histogram
}

// NewBusinessMetrics creates instruments prefixed with namespace on meterProvider.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_token_operations_total", namespace),
		metric.WithDescription("Total number of token operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_token_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of token operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	return &businessMetrics{
		operationCounter: operationCounter,
		durationHisto:    durationHisto,
	}, nil
}

// NewNoopBusinessMetrics returns BusinessMetrics that record nothing.
func NewNoopBusinessMetrics() BusinessMetrics {
	m, _ := NewBusinessMetrics(noop.NewMeterProvider(), "noop")
	return m
}

func (b *businessMetrics) RecordOperation(ctx context.Context, operation, outcome string) {
	b.operationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("outcome", outcome),
		),
	)
}

func (b *businessMetrics) RecordDuration(ctx context.Context, operation string, duration time.Duration, outcome string) {
	b.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("outcome", outcome),
		),
	)
}
