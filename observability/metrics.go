// Package observability provides the OpenTelemetry instruments used by the
// delivery pipeline. Both metrics and tracing are optional: a nil *Metrics
// or *Tracer disables them without branching at every call site.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/tributo/courier"

// Metrics holds the metric instruments for the delivery pipeline.
type Metrics struct {
	// PhasesTotal counts phase executions, labeled by phase and outcome.
	PhasesTotal metric.Int64Counter

	// PhaseLatency records phase execution time in seconds.
	PhaseLatency metric.Float64Histogram

	// RetriesTotal counts scheduled retries, labeled by error phase.
	RetriesTotal metric.Int64Counter

	// InFlight tracks documents currently awaiting ticket confirmation.
	InFlight metric.Int64UpDownCounter
}

// NewMetrics creates the courier metric instruments on the global provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	phases, err := meter.Int64Counter("courier_phases_total",
		metric.WithDescription("Delivery phase executions by phase and outcome"))
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram("courier_phase_latency_seconds",
		metric.WithDescription("Delivery phase execution time"))
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Counter("courier_retries_total",
		metric.WithDescription("Scheduled retries by error phase"))
	if err != nil {
		return nil, err
	}

	inFlight, err := meter.Int64UpDownCounter("courier_tickets_in_flight",
		metric.WithDescription("Documents awaiting ticket confirmation"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		PhasesTotal:  phases,
		PhaseLatency: latency,
		RetriesTotal: retries,
		InFlight:     inFlight,
	}, nil
}

// RecordPhase records one phase execution. Safe on a nil receiver.
func (m *Metrics) RecordPhase(ctx context.Context, phase, outcome string, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("phase", phase),
		attribute.String("outcome", outcome),
	)
	m.PhasesTotal.Add(ctx, 1, attrs)
	m.PhaseLatency.Record(ctx, seconds, metric.WithAttributes(attribute.String("phase", phase)))
}

// RecordRetry records one scheduled retry. Safe on a nil receiver.
func (m *Metrics) RecordRetry(ctx context.Context, errorPhase string) {
	if m == nil {
		return
	}
	m.RetriesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("error_phase", errorPhase)))
}

// TicketStarted marks a document entering the ticket wait. Safe on nil.
func (m *Metrics) TicketStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.InFlight.Add(ctx, 1)
}

// TicketFinished marks a document leaving the ticket wait. Safe on nil.
func (m *Metrics) TicketFinished(ctx context.Context) {
	if m == nil {
		return
	}
	m.InFlight.Add(ctx, -1)
}
