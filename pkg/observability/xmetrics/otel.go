package xmetrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// DefaultInstrumentationName OTel instrumentation scope 默认名称。
const DefaultInstrumentationName = "github.com/omeyang/xgql"

type otelConfig struct {
	instrumentationName string
	meterProvider       metric.MeterProvider
	onError             func(name string, err error)
}

// Option 配置 OTelSink。
type Option func(*otelConfig)

// WithInstrumentationName 设置 instrumentation scope 名称，空值被忽略。
func WithInstrumentationName(name string) Option {
	return func(cfg *otelConfig) {
		if name != "" {
			cfg.instrumentationName = name
		}
	}
}

// WithMeterProvider 设置 MeterProvider，nil 使用全局 provider。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.meterProvider = provider
		}
	}
}

// WithOnError 设置 instrument 创建失败回调，失败的名称之后不再重试。
func WithOnError(fn func(name string, err error)) Option {
	return func(cfg *otelConfig) {
		cfg.onError = fn
	}
}

// OTelSink 基于 OpenTelemetry metric API 的 Sink。
//
// 计数器映射为 Int64Counter（单位 1），计时器映射为 Float64Histogram（单位 s），
// histogram 的 count 即调用次数。instrument 按名称惰性创建并缓存；创建失败的
// 名称之后的写入被丢弃。
type OTelSink struct {
	meter   metric.Meter
	onError func(name string, err error)

	counters   sync.Map // name → metric.Int64Counter（创建失败时为 nil）
	histograms sync.Map // name → metric.Float64Histogram
}

var _ Sink = (*OTelSink)(nil)

// NewOTelSink 创建 OTelSink。
func NewOTelSink(opts ...Option) *OTelSink {
	cfg := &otelConfig{
		instrumentationName: DefaultInstrumentationName,
		meterProvider:       otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return &OTelSink{
		meter:   cfg.meterProvider.Meter(cfg.instrumentationName),
		onError: cfg.onError,
	}
}

// Count 实现 Sink。
func (s *OTelSink) Count(ctx context.Context, name string, n int64, tags Tags) {
	c := s.counter(name)
	if c == nil {
		return
	}
	c.Add(context.WithoutCancel(ctx), n, metric.WithAttributes(tags.Attributes()...))
}

// Record 实现 Sink。
func (s *OTelSink) Record(ctx context.Context, name string, d time.Duration, tags Tags) {
	h := s.histogram(name)
	if h == nil {
		return
	}
	h.Record(context.WithoutCancel(ctx), d.Seconds(), metric.WithAttributes(tags.Attributes()...))
}

func (s *OTelSink) counter(name string) metric.Int64Counter {
	if v, ok := s.counters.Load(name); ok {
		c, _ := v.(metric.Int64Counter)
		return c
	}
	c, err := s.meter.Int64Counter(name, metric.WithUnit("1"))
	if err != nil {
		s.fail(name, fmt.Errorf("%w: %s: %w", ErrCreateCounter, name, err))
		c = nil
	}
	v, _ := s.counters.LoadOrStore(name, c)
	c, _ = v.(metric.Int64Counter)
	return c
}

func (s *OTelSink) histogram(name string) metric.Float64Histogram {
	if v, ok := s.histograms.Load(name); ok {
		h, _ := v.(metric.Float64Histogram)
		return h
	}
	h, err := s.meter.Float64Histogram(name, metric.WithUnit("s"))
	if err != nil {
		s.fail(name, fmt.Errorf("%w: %s: %w", ErrCreateHistogram, name, err))
		h = nil
	}
	v, _ := s.histograms.LoadOrStore(name, h)
	h, _ = v.(metric.Float64Histogram)
	return h
}

func (s *OTelSink) fail(name string, err error) {
	if s.onError != nil {
		s.onError(name, err)
	}
}
