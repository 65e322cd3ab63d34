package xmetrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracer 可选的 span 包装，nil TracerProvider 时不产生 span。
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer 创建 Tracer。provider 为 nil 时返回 noop 实现。
func NewTracer(provider trace.TracerProvider, instrumentationName string) *Tracer {
	if provider == nil {
		provider = noop.NewTracerProvider()
	}
	if instrumentationName == "" {
		instrumentationName = DefaultInstrumentationName
	}
	return &Tracer{tracer: provider.Tracer(instrumentationName)}
}

// Start 开始一个 internal span。
func (t *Tracer) Start(ctx context.Context, name string, tags Tags) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if t == nil {
		return ctx, nil
	}
	ctx, span := t.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(tags.Attributes()...))
	return ctx, &Span{span: span}
}

// Span 幂等结束的 span。nil Span 的方法都是空操作。
type Span struct {
	span trace.Span
	once sync.Once
}

// SetTags 追加属性。
func (s *Span) SetTags(tags Tags) {
	if s == nil || tags.Len() == 0 {
		return
	}
	s.span.SetAttributes(tags.Attributes()...)
}

// End 结束 span，err 非 nil 时记录错误并设置 Error 状态。多次调用只生效一次。
func (s *Span) End(err error, tags Tags) {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if tags.Len() > 0 {
			s.span.SetAttributes(tags.Attributes()...)
		}
		if err != nil {
			s.span.RecordError(err)
			s.span.SetStatus(codes.Error, err.Error())
		} else {
			s.span.SetStatus(codes.Ok, "")
		}
		s.span.End()
	})
}

// AddEvent 在 span 上记录事件。
func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	if s == nil {
		return
	}
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}
