// Package observability wires OpenTelemetry tracing for featline. Spans
// cover pipeline batches and dictionary loads; they are exported to a
// writer (stderr by default) so they never mix with parsed output.
package observability

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajitpratap0/featline/pkg/errors"
)

// TracerName names the instrumentation scope of every featline span.
const TracerName = "github.com/ajitpratap0/featline"

var (
	mu     sync.RWMutex
	tracer trace.Tracer = otel.Tracer(TracerName)
)

// TracingConfig contains tracing configuration
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	SamplingRate   float64
	// Writer receives exported spans; nil means stderr
	Writer       io.Writer
	BatchTimeout time.Duration
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// InitTracing installs a global tracer provider that exports to
// cfg.Writer. Rates <= 0 sample nothing, rates >= 1 sample everything.
func InitTracing(cfg TracingConfig) (ShutdownFunc, error) {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create trace resource")
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create span exporter")
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 5 * time.Second
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SamplingRate)),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(batchTimeout)),
	)
	Install(tp)

	return tp.Shutdown, nil
}

// Install makes tp the global provider and the source of Tracer.
func Install(tp trace.TracerProvider) {
	otel.SetTracerProvider(tp)
	mu.Lock()
	tracer = tp.Tracer(TracerName)
	mu.Unlock()
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate <= 0:
		return sdktrace.NeverSample()
	case rate >= 1:
		return sdktrace.AlwaysSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}

// Tracer returns the current featline tracer. Before InitTracing it is the
// global no-op tracer.
func Tracer() trace.Tracer {
	mu.RLock()
	defer mu.RUnlock()
	return tracer
}

// StartBatchSpan starts the span covering one pipeline batch.
func StartBatchSpan(ctx context.Context, source string, batchID uint64, lines int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "featline.batch",
		trace.WithAttributes(
			attribute.String("featline.source", source),
			attribute.Int64("featline.batch.id", int64(batchID)),
			attribute.Int("featline.batch.lines", lines),
		),
	)
}

// StartDictionarySpan starts the span covering one dictionary load.
func StartDictionarySpan(ctx context.Context, path string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "featline.dictionary.load",
		trace.WithAttributes(attribute.String("featline.dictionary.path", path)),
	)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
