package xgqlmetrics

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/omeyang/xgql/pkg/graphql/xgqlsig"
	"github.com/omeyang/xgql/pkg/observability/xcardinality"
	"github.com/omeyang/xgql/pkg/observability/xlog"
	"github.com/omeyang/xgql/pkg/observability/xmetrics"
)

// 指标名后缀，完整名称为 <prefix>.<suffix>。
const (
	MetricQuery                  = "query"
	MetricResolver               = "resolver"
	MetricError                  = "error"
	MetricPersistedQueryNotFound = "persistedQueryNotFound"
)

// SpanName 每个操作的 span 名称。
const SpanName = "graphql.operation"

// Stats Instrumentation 运行计数快照。
type Stats struct {
	RequestsStarted  uint64
	RequestsFinished uint64
	// IgnoredHooks 乱序或终止后被忽略的 hook 调用次数。
	IgnoredHooks uint64
	// Panics 被吞掉的定制器或 Sink panic 次数。
	Panics uint64
}

type metricNames struct {
	query, resolver, error, pqNotFound string
}

// Instrumentation 进程级埋点入口，持有跨请求共享的账本与签名仓库。
//
// 使用 [New] 创建，进程启动时创建一次。所有方法并发安全。
type Instrumentation struct {
	names         metricNames
	sink          xmetrics.Sink
	tracer        *xmetrics.Tracer
	resolver      *xcardinality.Resolver
	signatures    *xgqlsig.Repository
	complexity    ComplexityEstimator
	contextual    []ContextualTagCustomizer
	execution     []ExecutionTagCustomizer
	fieldFetch    []FieldFetchTagCustomizer
	trivialFields bool
	logger        xlog.Logger

	started  atomic.Uint64
	finished atomic.Uint64
	ignored  atomic.Uint64
	panics   atomic.Uint64
}

// New 创建 Instrumentation。
//
// 未提供账本时创建默认账本（L=100，哨兵 limited）。
func New(opts ...Option) (*Instrumentation, error) {
	o := &options{prefix: DefaultPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}
	logger := o.logger.With(xlog.Component("xgqlmetrics"))

	resolver := o.resolver
	if resolver == nil {
		ledger := o.ledger
		if ledger == nil {
			var err error
			if ledger, err = xcardinality.New(); err != nil {
				return nil, err
			}
		}
		dims := o.dimensions
		if dims == nil {
			dims = DefaultLimitedDimensions
		}
		resolver = xcardinality.NewResolver(ledger, dims...)
	}

	sink := o.sink
	if sink == nil {
		sinkOpts := []xmetrics.Option{
			xmetrics.WithMeterProvider(o.meterProvider),
			xmetrics.WithOnError(func(name string, err error) {
				logger.Error(context.Background(), "create instrument failed", xlog.Metric(name), xlog.Err(err))
			}),
		}
		sink = xmetrics.NewOTelSink(sinkOpts...)
	}

	var tracer *xmetrics.Tracer
	if o.tracerProvider != nil {
		tracer = xmetrics.NewTracer(o.tracerProvider, "")
	}

	return &Instrumentation{
		names: metricNames{
			query:      o.prefix + "." + MetricQuery,
			resolver:   o.prefix + "." + MetricResolver,
			error:      o.prefix + "." + MetricError,
			pqNotFound: o.prefix + "." + MetricPersistedQueryNotFound,
		},
		sink:          sink,
		tracer:        tracer,
		resolver:      resolver,
		signatures:    o.signatures,
		complexity:    o.complexity,
		contextual:    o.contextual,
		execution:     o.execution,
		fieldFetch:    o.fieldFetch,
		trivialFields: o.trivialFields,
		logger:        logger,
	}, nil
}

// BeginRequest 创建一个请求的埋点上下文（CREATED）。
//
// 返回值的 Context() 携带 request_id 日志字段以及可选的 span，执行引擎应使用它调用解析器。
func (in *Instrumentation) BeginRequest(ctx context.Context) *RequestMetrics {
	if in == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	id := uuid.NewString()
	ctx = xlog.ContextWithAttrs(ctx, xlog.RequestID(id))
	rm := &RequestMetrics{
		inst:    in,
		id:      id,
		created: time.Now(),
		state:   StateCreated,
		op:      OperationInfo{Type: OperationNone},
	}
	if in.tracer != nil {
		ctx, rm.span = in.tracer.Start(ctx, SpanName, xmetrics.NewTags("request.id", id))
	}
	rm.ctx = ctx
	in.started.Add(1)
	return rm
}

// Stats 返回计数快照。
func (in *Instrumentation) Stats() Stats {
	if in == nil {
		return Stats{}
	}
	return Stats{
		RequestsStarted:  in.started.Load(),
		RequestsFinished: in.finished.Load(),
		IgnoredHooks:     in.ignored.Load(),
		Panics:           in.panics.Load(),
	}
}

// MetricName 返回带前缀的完整指标名。
func (in *Instrumentation) MetricName(suffix string) string {
	switch suffix {
	case MetricQuery:
		return in.names.query
	case MetricResolver:
		return in.names.resolver
	case MetricError:
		return in.names.error
	case MetricPersistedQueryNotFound:
		return in.names.pqNotFound
	}
	return ""
}

// limit 对受限维度应用基数限制。
func (in *Instrumentation) limit(metric string, tags Tags) Tags {
	if in.resolver == nil {
		return tags
	}
	out := tags
	for _, t := range tags.All() {
		if in.resolver.Limited(t.Key) {
			if v := in.resolver.Resolve(metric, t.Key, t.Value); v != t.Value {
				out = out.With(t.Key, v)
			}
		}
	}
	return out
}

// count 与 record 吞掉 Sink 的 panic，埋点失败不影响调用方。
func (in *Instrumentation) count(ctx context.Context, metric string, tags Tags) {
	defer in.recoverPanic(ctx, "sink", metric)
	in.sink.Count(ctx, metric, 1, in.limit(metric, tags))
}

func (in *Instrumentation) record(ctx context.Context, metric string, d time.Duration, tags Tags) {
	defer in.recoverPanic(ctx, "sink", metric)
	in.sink.Record(ctx, metric, d, in.limit(metric, tags))
}

func (in *Instrumentation) recoverPanic(ctx context.Context, what, metric string) {
	if r := recover(); r != nil {
		in.panics.Add(1)
		in.logger.Error(ctx, "instrumentation panic recovered",
			slog.String("source", what), xlog.Metric(metric), xlog.Panic(r))
	}
}

func (in *Instrumentation) contextualTags(ctx context.Context) (out Tags) {
	for _, c := range in.contextual {
		out = out.Merge(in.safeTags(ctx, "contextual customizer", func() Tags { return c.ContextualTags(ctx) }))
	}
	return out
}

func (in *Instrumentation) executionTags(ctx context.Context, op OperationInfo, errs []error) (out Tags) {
	for _, c := range in.execution {
		out = out.Merge(in.safeTags(ctx, "execution customizer", func() Tags { return c.ExecutionTags(ctx, op, errs) }))
	}
	return out
}

func (in *Instrumentation) fieldFetchTags(ctx context.Context, f Field, err error) (out Tags) {
	for _, c := range in.fieldFetch {
		out = out.Merge(in.safeTags(ctx, "field customizer", func() Tags { return c.FieldFetchTags(ctx, f, err) }))
	}
	return out
}

func (in *Instrumentation) safeTags(ctx context.Context, what string, fn func() Tags) (tags Tags) {
	defer func() {
		if r := recover(); r != nil {
			in.panics.Add(1)
			in.logger.Warn(ctx, "tag customizer panic recovered", slog.String("source", what), xlog.Panic(r))
			tags = Tags{}
		}
	}()
	return fn()
}
