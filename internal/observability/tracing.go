package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Tracer is the tracer every span in the API is started from. It stays a
// no-op until InstallTracing succeeds.
var Tracer trace.Tracer = otel.Tracer("captionboard-api")

// Trace exporters understood by InstallTracing.
const (
	TraceExporterStdout = "stdout"
	TraceExporterOTLP   = "otlp"
)

// TraceOptions describes where caption feed spans go and how many are kept.
type TraceOptions struct {
	Service     string
	Version     string
	Environment string
	Exporter    string
	// Endpoint is the OTLP/HTTP collector address, host:port.
	Endpoint string
	// SampleRatio is the share of root spans kept, from 0 to 1.
	SampleRatio float64
	// Output receives stdout exporter spans; nil means os.Stdout.
	Output io.Writer
}

// TraceShutdown flushes buffered spans and stops the exporter.
type TraceShutdown func(context.Context) error

func noopTraceShutdown(context.Context) error { return nil }

func newTraceExporter(ctx context.Context, opts TraceOptions) (sdktrace.SpanExporter, error) {
	switch opts.Exporter {
	case TraceExporterOTLP:
		return otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(opts.Endpoint),
			otlptracehttp.WithInsecure(),
		)
	case "", TraceExporterStdout:
		out := opts.Output
		if out == nil {
			out = os.Stdout
		}
		return stdouttrace.New(stdouttrace.WithWriter(out))
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", opts.Exporter)
	}
}

// traceSampler keeps every span at ratio 1 and none at ratio 0. Children
// follow their parent's decision so a request is traced whole or not at all.
func traceSampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

func traceResource(ctx context.Context, opts TraceOptions) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceName(opts.Service),
			semconv.ServiceVersion(opts.Version),
			semconv.DeploymentEnvironment(opts.Environment),
		),
	)
}

// InstallTracing builds the tracer provider described by opts, makes it the
// global provider and points Tracer at it. The returned shutdown must run
// before exit or buffered spans are lost.
func InstallTracing(ctx context.Context, opts TraceOptions) (TraceShutdown, error) {
	exporter, err := newTraceExporter(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}

	res, err := traceResource(ctx, opts)
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return nil, fmt.Errorf("trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(traceSampler(opts.SampleRatio)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	Tracer = tp.Tracer(opts.Service, trace.WithInstrumentationVersion(opts.Version))

	GlobalLogger.Info("tracing installed",
		zap.String("exporter", opts.Exporter),
		zap.Float64("sample_ratio", opts.SampleRatio),
	)

	return func(ctx context.Context) error {
		flushErr := tp.ForceFlush(ctx)
		return errors.Join(flushErr, tp.Shutdown(ctx))
	}, nil
}

// DisableTracing leaves spans unrecorded.
func DisableTracing(service string) TraceShutdown {
	Tracer = otel.Tracer(service)
	return noopTraceShutdown
}

// StartRepositorySpan starts a span around a repository call.
func StartRepositorySpan(ctx context.Context, method, table string) (context.Context, trace.Span) {
	ctx, span := Tracer.Start(ctx, "repository."+method,
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(
		attribute.String("db.operation", method),
		attribute.String("db.table", table),
	)
	return ctx, span
}

// StartServiceSpan starts a span around a service method.
func StartServiceSpan(ctx context.Context, service, method string) (context.Context, trace.Span) {
	ctx, span := Tracer.Start(ctx, service+"."+method,
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(
		attribute.String("rpc.service", service),
		attribute.String("rpc.method", method),
	)
	return ctx, span
}

// EndSpan records err (if any) and ends span.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
