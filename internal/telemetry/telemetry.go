package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/cchalm/learnlog/internal/logger"
)

const (
	serviceName = "learnlog"
	tracerName  = "github.com/cchalm/learnlog"
)

// Span attribute keys shared by instrumented code
const (
	AttrRunID          = attribute.Key("learnlog.run_id")
	AttrItemIndex      = attribute.Key("learnlog.item.index")
	AttrConversationID = attribute.Key("learnlog.conversation_id")
	AttrRecordID       = attribute.Key("learnlog.record_id")
	AttrOverflowBlocks = attribute.Key("learnlog.overflow_blocks")
	AttrFallbackMeta   = attribute.Key("learnlog.metadata.fallback")
)

// Config holds the configuration for telemetry
type Config struct {
	Enabled bool
	// Endpoint is an OTLP/HTTP collector host:port. Spans are printed to Writer when it is empty.
	Endpoint       string
	Insecure       bool
	ServiceVersion string
	// Writer receives spans when no endpoint is set. Defaults to stderr.
	Writer io.Writer
}

// Provider manages the tracer used for a run
type Provider struct {
	tp     *sdktrace.TracerProvider // nil when disabled
	tracer trace.Tracer
}

// NewProvider creates a new telemetry provider. A disabled provider hands out a no-op tracer.
func NewProvider(ctx context.Context, config Config, log *logger.Logger) (*Provider, error) {
	if !config.Enabled {
		log.Debug("telemetry disabled")
		return &Provider{tracer: noop.NewTracerProvider().Tracer(tracerName)}, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(config.ServiceVersion),
		),
	)
	if err != nil {
		log.Warn("telemetry resource merge failed (continuing)", "error", err)
		res = resource.Default()
	}

	exporter, err := newExporter(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	log.Info("telemetry enabled", "endpoint", config.Endpoint)
	return &Provider{tp: tp, tracer: tp.Tracer(tracerName)}, nil
}

func newExporter(ctx context.Context, config Config) (sdktrace.SpanExporter, error) {
	if config.Endpoint != "" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(config.Endpoint)}
		if config.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	}
	w := config.Writer
	if w == nil {
		w = os.Stderr
	}
	return stdouttrace.New(stdouttrace.WithWriter(w))
}

// Tracer returns the tracer for instrumenting a run
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown flushes pending spans and shuts down the telemetry provider
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	err := p.tp.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("failed to shut down tracer provider: %w", err)
	}
	return nil
}

// NewRunID generates a new run UUID
func NewRunID() string {
	return uuid.New().String()
}
