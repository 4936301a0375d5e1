// Package motel centralizes OpenTelemetry tracer/meter provider setup and
// the span-error recording convention used by every use case in the service.
package motel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/shoreline-pay/ledgercore"

// Telemetry holds the process-wide tracer and meter providers.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
}

// New builds a process-wide Telemetry tagged with serviceName and installs
// it as the global tracer/meter provider. No exporter is registered: spans
// and metrics are recorded but neither exported nor kept, matching
// cmd/ledgerd's current scope (an operator can attach a collector; none is
// attached here).
func New(serviceName string) *Telemetry {
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))

	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	return &Telemetry{TracerProvider: tp, MeterProvider: mp}
}

// Shutdown flushes and stops both providers; call once on process exit.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if err := t.TracerProvider.Shutdown(ctx); err != nil {
		return err
	}

	return t.MeterProvider.Shutdown(ctx)
}

// Tracer returns the service-wide tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

type tracerContextKey string

const spanKey tracerContextKey = "span"

// StartSpan opens a span named "<layer>.<operation>", the convention every
// exported UseCase method in this service follows.
func StartSpan(ctx context.Context, layer, operation string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, layer+"."+operation)
}

// RecordSpanError records a non-nil err on span and marks the span as
// errored.
func RecordSpanError(span trace.Span, err error) error {
	if err == nil {
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	return err
}

// Attr is a shorthand for attribute.String used when annotating spans with
// domain identifiers (tenant, account, saga id).
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}
