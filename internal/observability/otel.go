package observability

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

const (
	tracerName         = "github.com/yungbote/travelog-backend"
	defaultSampleRatio = 0.1
)

type OtelConfig struct {
	Enabled     bool
	ServiceName string
	Environment string
	Version     string
	// Exporter is "stdout" or "otlp". Empty picks otlp when Endpoint is set.
	Exporter    string
	Endpoint    string
	Headers     string
	Insecure    bool
	SampleRatio float64
}

func (c OtelConfig) serviceName() string {
	if s := strings.TrimSpace(c.ServiceName); s != "" {
		return s
	}
	return "travelog"
}

func (c OtelConfig) exporterKind() string {
	switch k := strings.ToLower(strings.TrimSpace(c.Exporter)); {
	case k != "":
		return k
	case strings.TrimSpace(c.Endpoint) != "":
		return "otlp"
	default:
		return "stdout"
	}
}

var (
	otelOnce     sync.Once
	otelShutdown = func(context.Context) error { return nil }
)

// InitOTel installs the global tracer provider on first call. The returned
// func flushes pending spans and is never nil.
func InitOTel(ctx context.Context, log *logger.Logger, cfg OtelConfig) func(context.Context) error {
	if log == nil {
		log = logger.Nop()
	}
	otelOnce.Do(func() {
		if !cfg.Enabled {
			return
		}
		tp := newTracerProvider(ctx, log, cfg)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		otelShutdown = tp.Shutdown
		log.Info("Tracing enabled", "service", cfg.serviceName(), "exporter", cfg.exporterKind(), "endpoint", cfg.Endpoint)
	})
	return otelShutdown
}

func newTracerProvider(ctx context.Context, log *logger.Logger, cfg OtelConfig) *sdktrace.TracerProvider {
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(cfg.serviceName()),
		semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
		attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
	))
	if err != nil {
		log.Warn("Tracing resource incomplete", "error", err)
	}
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(clampRatio(cfg.SampleRatio)))),
	}
	exp, err := newSpanExporter(ctx, cfg)
	if err != nil {
		log.Warn("Span exporter unavailable, spans will be dropped", "exporter", cfg.exporterKind(), "error", err)
	} else {
		opts = append(opts, sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(5*time.Second)))
	}
	return sdktrace.NewTracerProvider(opts...)
}

func newSpanExporter(ctx context.Context, cfg OtelConfig) (sdktrace.SpanExporter, error) {
	if cfg.exporterKind() != "otlp" {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	var opts []otlptracehttp.Option
	if ep := strings.TrimSpace(cfg.Endpoint); ep != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(ep))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if h := parseHeaders(cfg.Headers); len(h) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(h))
	}
	return otlptracehttp.New(ctx, opts...)
}

// clampRatio keeps a sample ratio in (0, 1]; non-positive means the default.
func clampRatio(f float64) float64 {
	if f <= 0 {
		return defaultSampleRatio
	}
	if f > 1 {
		return 1
	}
	return f
}

// ParseSampleRatio reads OTEL_SAMPLE_RATIO style values.
func ParseSampleRatio(raw string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return defaultSampleRatio
	}
	return clampRatio(f)
}

// parseHeaders reads "k1=v1,k2=v2", skipping malformed pairs.
func parseHeaders(raw string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(pair, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if ok && k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}

// StartSpan opens a span on the service tracer.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on span (when non-nil) and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
