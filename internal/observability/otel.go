package observability

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/yungbote/checkin-engine/internal/platform/logger"
)

// CheckinSpanPrefix names every pipeline stage span.
const CheckinSpanPrefix = "checkin."

type OtelConfig struct {
	Enabled     bool
	ServiceName string
	Environment string
	Version     string

	// Endpoint is the OTLP/HTTP collector. Empty exports to stdout.
	Endpoint string
	// Headers uses the OTEL_EXPORTER_OTLP_HEADERS form: k1=v1,k2=v2.
	Headers  string
	Insecure bool

	// SampleRatio applies to request traffic. Check-in stage spans are
	// always kept; there are only a few hundred a week.
	SampleRatio float64

	// Recorded on the resource so traces can be matched to a deployment's
	// trigger window.
	SchedulerTimezone string
	TriggerWeekday    string
}

var (
	otelOnce     sync.Once
	otelShutdown func(context.Context) error
)

// InitOTel installs the global tracer provider. It returns nil when tracing is
// disabled.
func InitOTel(ctx context.Context, log *logger.Logger, cfg OtelConfig) func(context.Context) error {
	otelOnce.Do(func() {
		if !cfg.Enabled {
			return
		}
		serviceName := strings.TrimSpace(cfg.ServiceName)
		if serviceName == "" {
			serviceName = "checkin-engine"
		}
		res, err := resource.New(ctx, resource.WithAttributes(resourceAttributes(serviceName, cfg)...))
		if err != nil && log != nil {
			log.Warn("otel resource init failed (continuing)", "error", err)
		}

		opts := []sdktrace.TracerProviderOption{
			sdktrace.WithSampler(NewCheckinSampler(cfg.SampleRatio)),
			sdktrace.WithResource(res),
		}
		exporter, expErr := buildTraceExporter(ctx, log, cfg)
		if expErr != nil && log != nil {
			log.Warn("otel exporter init failed (continuing)", "error", expErr)
		}
		if exporter != nil {
			opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
		}
		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		otelShutdown = tp.Shutdown
		if log != nil {
			log.Info("otel tracing initialized", "service", serviceName, "endpoint", cfg.Endpoint, "sample_ratio", clampRatio(cfg.SampleRatio))
		}
	})
	return otelShutdown
}

func resourceAttributes(serviceName string, cfg OtelConfig) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceNameKey.String(serviceName),
		semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
		attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
	}
	if tz := strings.TrimSpace(cfg.SchedulerTimezone); tz != "" {
		attrs = append(attrs, attribute.String("checkin.scheduler.timezone", tz))
	}
	if wd := strings.TrimSpace(cfg.TriggerWeekday); wd != "" {
		attrs = append(attrs, attribute.String("checkin.trigger.weekday", strings.ToLower(wd)))
	}
	return attrs
}

// checkinSampler keeps every root span whose name starts with
// CheckinSpanPrefix and samples everything else by ratio.
type checkinSampler struct {
	ratio sdktrace.Sampler
}

// NewCheckinSampler honours the parent's decision when there is one.
func NewCheckinSampler(ratio float64) sdktrace.Sampler {
	return sdktrace.ParentBased(checkinSampler{ratio: sdktrace.TraceIDRatioBased(clampRatio(ratio))})
}

func (s checkinSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	if strings.HasPrefix(p.Name, CheckinSpanPrefix) {
		return sdktrace.AlwaysSample().ShouldSample(p)
	}
	return s.ratio.ShouldSample(p)
}

func (s checkinSampler) Description() string {
	return "CheckinSampler{" + s.ratio.Description() + "}"
}

func clampRatio(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// ParseOTLPHeaders reads "k1=v1,k2=v2". Malformed pairs are dropped.
func ParseOTLPHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	headers := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		key, val := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])
		if key == "" || val == "" {
			continue
		}
		headers[key] = val
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

func buildTraceExporter(ctx context.Context, log *logger.Logger, cfg OtelConfig) (sdktrace.SpanExporter, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint != "" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if headers := ParseOTLPHeaders(cfg.Headers); headers != nil {
			opts = append(opts, otlptracehttp.WithHeaders(headers))
		}
		return otlptracehttp.New(ctx, opts...)
	}
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	if log != nil {
		log.Warn("otel using stdout exporter (no OTLP endpoint configured)")
	}
	return exp, nil
}
