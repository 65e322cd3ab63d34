package xdataloader

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xgql/pkg/observability/xcardinality"
	"github.com/omeyang/xgql/pkg/observability/xlog"
	"github.com/omeyang/xgql/pkg/observability/xmetrics"
)

// 指标与标签名。
const (
	DefaultPrefix = "gql"

	MetricDataLoader     = "dataLoader"
	MetricDataLoaderKeys = "dataLoader.keys"

	TagLoaderName = "loaderName"
	TagOutcome    = "outcome"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

type options struct {
	prefix        string
	sink          xmetrics.Sink
	meterProvider metric.MeterProvider
	ledger        *xcardinality.Ledger
	logger        xlog.Logger
}

// Option 配置 Provider。
type Option func(*options)

// WithPrefix 指标名前缀，空值被忽略。
func WithPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

// WithSink 直接指定发射目标。
func WithSink(s xmetrics.Sink) Option {
	return func(o *options) { o.sink = s }
}

// WithMeterProvider 用指定 MeterProvider 创建 OTel Sink。
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithLedger 与 xgqlmetrics 共用同一个基数账本。
func WithLedger(l *xcardinality.Ledger) Option {
	return func(o *options) { o.ledger = l }
}

// WithLogger 设置日志，nil 被忽略。
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Provider 为批量函数提供埋点，可被多个加载器共享。
type Provider struct {
	durationName string
	keysName     string
	sink         xmetrics.Sink
	names        *xcardinality.Resolver
	logger       xlog.Logger
}

// NewProvider 创建 Provider。
func NewProvider(opts ...Option) (*Provider, error) {
	o := &options{prefix: DefaultPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}
	logger := o.logger.With(xlog.Component("xdataloader"))
	if o.ledger == nil {
		l, err := xcardinality.New()
		if err != nil {
			return nil, err
		}
		o.ledger = l
	}
	if o.sink == nil {
		o.sink = xmetrics.NewOTelSink(
			xmetrics.WithMeterProvider(o.meterProvider),
			xmetrics.WithOnError(func(name string, err error) {
				logger.Error(context.Background(), "create instrument failed", xlog.Metric(name), xlog.Err(err))
			}),
		)
	}
	return &Provider{
		durationName: o.prefix + "." + MetricDataLoader,
		keysName:     o.prefix + "." + MetricDataLoaderKeys,
		sink:         o.sink,
		names:        xcardinality.NewResolver(o.ledger, TagLoaderName),
		logger:       logger,
	}, nil
}

// observe 一次调度的测量，由 begin 创建。
type observe struct {
	p     *Provider
	ctx   context.Context
	name  string
	keys  int
	start time.Time
}

func (p *Provider) begin(ctx context.Context, name string, keys int) *observe {
	if ctx == nil {
		ctx = context.Background()
	}
	return &observe{p: p, ctx: ctx, name: name, keys: keys, start: time.Now()}
}

// done 发射本次调度的指标。
func (o *observe) done(failed bool) {
	p := o.p
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error(o.ctx, "dataloader instrumentation panic recovered",
				slog.String("loader", o.name), xlog.Duration(time.Since(o.start)), xlog.Panic(r))
		}
	}()
	name := p.names.Resolve(p.durationName, TagLoaderName, o.name)
	outcome := OutcomeSuccess
	if failed {
		outcome = OutcomeFailure
	}
	p.sink.Record(o.ctx, p.durationName, time.Since(o.start),
		xmetrics.NewTags(TagLoaderName, name, TagOutcome, outcome))
	p.sink.Count(o.ctx, p.keysName, int64(o.keys), xmetrics.NewTags(TagLoaderName, name))
}
