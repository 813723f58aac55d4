// Package tracing wires OpenTelemetry into the service: the process tracer
// provider, server spans for the HTTP router and trace context on forwarded
// messages.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/igoorng/webhook/internal/config"
	"github.com/igoorng/webhook/internal/constants"
)

const (
	instrumentationName = "github.com/igoorng/webhook"

	SamplerAlwaysOn                = "always_on"
	SamplerAlwaysOff               = "always_off"
	SamplerTraceIDRatio            = "traceidratio"
	SamplerParentBasedAlwaysOn     = "parentbased_always_on"
	SamplerParentBasedTraceIDRatio = "parentbased_traceidratio"
)

// TracerProvider owns the SDK provider created by Init.
type TracerProvider struct {
	tp *sdktrace.TracerProvider
}

func (p *TracerProvider) Tracer(name string) trace.Tracer {
	return p.tp.Tracer(name)
}

// ForceFlush exports every span ended so far.
func (p *TracerProvider) ForceFlush(ctx context.Context) error {
	return p.tp.ForceFlush(ctx)
}

func (p *TracerProvider) Shutdown(ctx context.Context) error {
	if p.tp != nil {
		return p.tp.Shutdown(ctx)
	}
	return nil
}

type initOptions struct {
	exporter sdktrace.SpanExporter
}

type Option func(*initOptions)

// WithExporter replaces the OTLP exporter.
func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(o *initOptions) { o.exporter = exp }
}

// Init builds the tracer provider from cfg. When tracing is enabled it
// becomes the global provider and W3C trace context plus baggage become the
// global propagator. When disabled the returned provider samples nothing and
// the globals are left alone.
func Init(ctx context.Context, cfg config.TracingConfig, serviceName string, opts ...Option) (*TracerProvider, error) {
	if !cfg.Enabled {
		return &TracerProvider{tp: sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.NeverSample()))}, nil
	}

	o := initOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	sampler, err := NewSampler(cfg.Sampler)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(resolveServiceName(serviceName, cfg.ServiceName))),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter := o.exporter
	if exporter == nil {
		exporter, err = newOTLPExporter(ctx, cfg.OTLP)
		if err != nil {
			return nil, err
		}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{tp: tp}, nil
}

// resolveServiceName prefers the configured name over the caller's default.
func resolveServiceName(fallback, configured string) string {
	switch {
	case configured != "":
		return configured
	case fallback != "":
		return fallback
	default:
		return constants.ServiceName
	}
}

func newOTLPExporter(ctx context.Context, cfg config.OTLPConfig) (sdktrace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
	defer cancel()

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter for %s: %w", cfg.Endpoint, err)
	}
	return exporter, nil
}

// NewSampler maps the configured sampler name to an SDK sampler. An empty
// type samples everything; ratio samplers need a param in [0, 1].
func NewSampler(cfg config.SamplerConfig) (sdktrace.Sampler, error) {
	ratio := func() (float64, error) {
		if cfg.Param < 0 || cfg.Param > 1 {
			return 0, fmt.Errorf("sampler %s: param %v outside [0, 1]", cfg.Type, cfg.Param)
		}
		return cfg.Param, nil
	}

	switch cfg.Type {
	case "", SamplerAlwaysOn:
		return sdktrace.AlwaysSample(), nil
	case SamplerAlwaysOff:
		return sdktrace.NeverSample(), nil
	case SamplerParentBasedAlwaysOn:
		return sdktrace.ParentBased(sdktrace.AlwaysSample()), nil
	case SamplerTraceIDRatio:
		r, err := ratio()
		if err != nil {
			return nil, err
		}
		return sdktrace.TraceIDRatioBased(r), nil
	case SamplerParentBasedTraceIDRatio:
		r, err := ratio()
		if err != nil {
			return nil, err
		}
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(r)), nil
	default:
		return nil, fmt.Errorf("unknown sampler type %q", cfg.Type)
	}
}

// StartSpan starts a span on the global provider under the module's
// instrumentation scope.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}
