package xgqlmetrics

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xgql/pkg/graphql/xgqlsig"
	"github.com/omeyang/xgql/pkg/observability/xcardinality"
	"github.com/omeyang/xgql/pkg/observability/xlog"
	"github.com/omeyang/xgql/pkg/observability/xmetrics"
)

// DefaultPrefix 指标名默认前缀。
const DefaultPrefix = "gql"

type options struct {
	prefix         string
	sink           xmetrics.Sink
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	resolver       *xcardinality.Resolver
	ledger         *xcardinality.Ledger
	dimensions     []string
	signatures     *xgqlsig.Repository
	complexity     ComplexityEstimator
	contextual     []ContextualTagCustomizer
	execution      []ExecutionTagCustomizer
	fieldFetch     []FieldFetchTagCustomizer
	trivialFields  bool
	logger         xlog.Logger
}

// Option 配置 Instrumentation。
type Option func(*options)

// WithPrefix 设置指标名前缀，空字符串被忽略。
func WithPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

// WithSink 直接指定指标发射目标，优先于 WithMeterProvider。
func WithSink(s xmetrics.Sink) Option {
	return func(o *options) {
		o.sink = s
	}
}

// WithMeterProvider 使用指定 MeterProvider 创建 OTel Sink。未设置时使用全局 provider。
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithTracerProvider 启用每个操作一个 span（graphql.operation）。
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithLedger 指定共享的基数账本，受限维度取 DefaultLimitedDimensions 或 WithLimitedDimensions。
func WithLedger(l *xcardinality.Ledger) Option {
	return func(o *options) {
		o.ledger = l
	}
}

// WithLimitedDimensions 覆盖受限维度列表。
func WithLimitedDimensions(dims ...string) Option {
	return func(o *options) {
		o.dimensions = append([]string(nil), dims...)
	}
}

// WithResolver 直接指定标签解析器，优先于 WithLedger。
func WithResolver(r *xcardinality.Resolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithSignatureRepository 指定签名仓库。未设置时 query.sig.hash 为 none。
func WithSignatureRepository(r *xgqlsig.Repository) Option {
	return func(o *options) {
		o.signatures = r
	}
}

// WithComplexityEstimator 指定复杂度估算器。未设置时 query.complexity 为 none。
func WithComplexityEstimator(e ComplexityEstimator) Option {
	return func(o *options) {
		o.complexity = e
	}
}

// WithContextualTags 追加上下文标签定制器。
func WithContextualTags(c ...ContextualTagCustomizer) Option {
	return func(o *options) {
		o.contextual = appendNonNil(o.contextual, c)
	}
}

// WithExecutionTags 追加执行标签定制器。
func WithExecutionTags(c ...ExecutionTagCustomizer) Option {
	return func(o *options) {
		o.execution = appendNonNil(o.execution, c)
	}
}

// WithFieldFetchTags 追加字段标签定制器。
func WithFieldFetchTags(c ...FieldFetchTagCustomizer) Option {
	return func(o *options) {
		o.fieldFetch = appendNonNil(o.fieldFetch, c)
	}
}

// WithTrivialFields 是否为 trivial 字段（直接读取属性的字段）发射 gql.resolver，默认关闭。
func WithTrivialFields(enabled bool) Option {
	return func(o *options) {
		o.trivialFields = enabled
	}
}

// WithLogger 设置日志，nil 被忽略。
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func appendNonNil[T comparable](dst, src []T) []T {
	var zero T
	for _, v := range src {
		if v != zero {
			dst = append(dst, v)
		}
	}
	return dst
}
