package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	otelpyroscope "github.com/grafana/otel-profiling-go"
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	shutdownTimeout        = 10 * time.Second
	defaultMetricsInterval = 60 * time.Second
)

// Config is shared by the trace, metric and log exporters. Each signal is
// switched on separately; all of them go to the same OTLP collector.
type Config struct {
	CollectorEndpoint string
	// Insecure disables TLS towards the collector
	Insecure       bool
	ServiceName    string
	ServiceVersion string
	Environment    string

	Traces        bool
	SamplingRatio float64

	Metrics         bool
	MetricsInterval time.Duration

	Logs bool
	// LogLevel is the lowest level forwarded to the collector
	LogLevel zapcore.Level
}

func (c Config) resource() (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(c.ServiceName)}
	if c.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(c.ServiceVersion))
	}
	if c.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment.name", c.Environment))
	}
	return resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL, attrs...))
}

// sdkProvider is what the three OTEL SDK providers have in common
type sdkProvider interface {
	ForceFlush(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// signal is the lifecycle of one exported signal. A signal without an SDK
// provider is disabled and every method is a no-op.
type signal struct {
	name   string
	sdk    sdkProvider
	logger *zap.Logger
}

// IsEnabled reports whether the signal is exported
func (s *signal) IsEnabled() bool {
	return s.sdk != nil
}

// ForceFlush exports everything buffered so far
func (s *signal) ForceFlush(ctx context.Context) error {
	if s.sdk == nil {
		return nil
	}
	return s.sdk.ForceFlush(ctx)
}

// Shutdown flushes and stops the exporter, bounded by shutdownTimeout
func (s *signal) Shutdown(ctx context.Context) error {
	if s.sdk == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.sdk.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down %s provider: %w", s.name, err)
	}
	s.logger.Info("Telemetry provider shut down", zap.String("signal", s.name))
	return nil
}

// TracerProvider exports spans over OTLP
type TracerProvider struct {
	signal
	traces       *sdktrace.TracerProvider
	spanProfiles atomic.Bool
}

// NewTracerProvider installs the global tracer provider and W3C propagators
// when cfg.Traces is set
func NewTracerProvider(ctx context.Context, cfg Config, logger *zap.Logger) (*TracerProvider, error) {
	tp := &TracerProvider{signal: signal{name: "traces", logger: logger}}
	if !cfg.Traces {
		return tp, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	res, err := cfg.resource()
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry resource: %w", err)
	}

	// spans started inside a sampled request stay sampled
	tp.traces = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplingRatio))),
	)
	tp.sdk = tp.traces
	otel.SetTracerProvider(tp.traces)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("Trace export enabled",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Float64("sampling_ratio", cfg.SamplingRatio),
	)
	return tp, nil
}

// EnableSpanProfiles links CPU samples to the span that was active when
// they were taken. Requires a running profiler.
func (tp *TracerProvider) EnableSpanProfiles() error {
	if tp.traces == nil || !tp.spanProfiles.CompareAndSwap(false, true) {
		return nil
	}
	otel.SetTracerProvider(otelpyroscope.NewTracerProvider(tp.traces))
	tp.logger.Info("Span profiles enabled")
	return nil
}

// IsSpanProfilesEnabled reports whether EnableSpanProfiles took effect
func (tp *TracerProvider) IsSpanProfilesEnabled() bool {
	return tp.spanProfiles.Load()
}

// Tracer returns a tracer from this provider, or the global one when disabled
func (tp *TracerProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if tp.traces == nil {
		return otel.Tracer(name, opts...)
	}
	return tp.traces.Tracer(name, opts...)
}

// MeterProvider exports metrics over OTLP on a fixed interval
type MeterProvider struct {
	signal
	metrics *sdkmetric.MeterProvider
}

// NewMeterProvider installs the global meter provider when cfg.Metrics is set
func NewMeterProvider(ctx context.Context, cfg Config, logger *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{signal: signal{name: "metrics", logger: logger}}
	if !cfg.Metrics {
		return mp, nil
	}

	interval := cfg.MetricsInterval
	if interval <= 0 {
		interval = defaultMetricsInterval
	}
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}
	res, err := cfg.resource()
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry resource: %w", err)
	}

	mp.metrics = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	mp.sdk = mp.metrics
	otel.SetMeterProvider(mp.metrics)

	logger.Info("Metric export enabled",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Duration("interval", interval),
	)
	return mp, nil
}

// Meter returns a meter from this provider, or the global one when disabled
func (mp *MeterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if mp.metrics == nil {
		return otel.Meter(name, opts...)
	}
	return mp.metrics.Meter(name, opts...)
}

// LoggerProvider exports log records over OTLP
type LoggerProvider struct {
	signal
	logs  *sdklog.LoggerProvider
	level zapcore.Level
	scope string
}

// NewLoggerProvider installs the global OTEL logger provider when cfg.Logs
// is set
func NewLoggerProvider(ctx context.Context, cfg Config, logger *zap.Logger) (*LoggerProvider, error) {
	lp := &LoggerProvider{
		signal: signal{name: "logs", logger: logger},
		level:  cfg.LogLevel,
		scope:  cfg.ServiceName,
	}
	if !cfg.Logs {
		return lp, nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}
	res, err := cfg.resource()
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry resource: %w", err)
	}

	lp.logs = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	lp.sdk = lp.logs
	global.SetLoggerProvider(lp.logs)

	logger.Info("Log export enabled",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Stringer("level", cfg.LogLevel),
	)
	return lp, nil
}

// Core is a zap core writing to the collector at the configured level. It
// drops everything when log export is disabled.
func (lp *LoggerProvider) Core() zapcore.Core {
	if lp.logs == nil {
		return zapcore.NewNopCore()
	}
	return &levelCore{
		Core:  otelzap.NewCore(lp.scope, otelzap.WithLoggerProvider(lp.logs)),
		level: lp.level,
	}
}

// Bridge returns log writing to both its own core and the collector
func (lp *LoggerProvider) Bridge(log *zap.Logger, opts ...zap.Option) *zap.Logger {
	if lp.logs == nil {
		return log
	}
	return zap.New(zapcore.NewTee(log.Core(), lp.Core()), opts...)
}

// levelCore adds a minimum level to the otelzap core, which has none
type levelCore struct {
	zapcore.Core
	level zapcore.Level
}

func (c *levelCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.level && c.Core.Enabled(lvl)
}

func (c *levelCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(entry.Level) {
		return ce
	}
	return c.Core.Check(entry, ce)
}

func (c *levelCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelCore{Core: c.Core.With(fields), level: c.level}
}

// Providers are the telemetry signals of one process
type Providers struct {
	Tracer   *TracerProvider
	Meter    *MeterProvider
	Logs     *LoggerProvider
	Profiler *Profiler
}

// Start brings up every configured signal. A signal that fails to start is
// logged and left disabled; the service runs without it.
func Start(ctx context.Context, cfg Config, profiling ProfilerConfig, logger *zap.Logger) *Providers {
	p := &Providers{}
	var err error

	if p.Tracer, err = NewTracerProvider(ctx, cfg, logger); err != nil {
		logger.Warn("Tracing unavailable", zap.Error(err))
		p.Tracer, _ = NewTracerProvider(ctx, Config{}, logger)
	}
	if p.Meter, err = NewMeterProvider(ctx, cfg, logger); err != nil {
		logger.Warn("Metrics unavailable", zap.Error(err))
		p.Meter, _ = NewMeterProvider(ctx, Config{}, logger)
	}
	if p.Logs, err = NewLoggerProvider(ctx, cfg, logger); err != nil {
		logger.Warn("Log export unavailable", zap.Error(err))
		p.Logs, _ = NewLoggerProvider(ctx, Config{}, logger)
	}
	if p.Profiler, err = NewProfiler(profiling, logger); err != nil {
		logger.Warn("Profiling unavailable", zap.Error(err))
		p.Profiler, _ = NewProfiler(ProfilerConfig{}, logger)
	}

	if p.Tracer.IsEnabled() && p.Profiler.IsEnabled() {
		if err := p.Tracer.EnableSpanProfiles(); err != nil {
			logger.Warn("Span profiles unavailable", zap.Error(err))
		}
	}
	return p
}

// Shutdown stops the signals in reverse start order and reports every
// failure
func (p *Providers) Shutdown(ctx context.Context) error {
	return errors.Join(
		p.Profiler.Stop(),
		p.Logs.Shutdown(ctx),
		p.Meter.Shutdown(ctx),
		p.Tracer.Shutdown(ctx),
	)
}
