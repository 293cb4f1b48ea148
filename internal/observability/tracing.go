// Package observability wires OpenTelemetry trace export. Spans from
// Genkit's TracerProvider (model calls, embeddings) are batched to an
// OTLP HTTP collector; an empty endpoint disables export entirely so
// local runs pay no cost.
package observability

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const serviceName = "weaver"

// Setup configures OTLP trace export to the given endpoint
// (host:port, no scheme) and returns a shutdown function. Must be
// called before Genkit initialization so the span processor is
// registered on the TracerProvider Genkit uses.
func Setup(ctx context.Context, endpoint string, logger *slog.Logger) func() {
	if endpoint == "" {
		return func() {}
	}

	// SAFETY: os.Setenv is not concurrent-safe, but Setup runs exactly
	// once during startup before goroutines are spawned.
	if os.Getenv("OTEL_SERVICE_NAME") == "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", serviceName)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(), // local collector, no TLS
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("trace export enabled", "endpoint", endpoint, "service", serviceName)

	shutdown := tracing.TracerProvider().Shutdown
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}
