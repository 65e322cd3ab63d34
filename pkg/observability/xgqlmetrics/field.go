package xgqlmetrics

import (
	"context"
	"sync"
	"time"

	"github.com/omeyang/xgql/pkg/graphql/xgqlerr"
)

// InstrumentationToggle 字段定义可选实现的能力，返回 false 时该字段不发射 gql.resolver。
type InstrumentationToggle interface {
	InstrumentationEnabled() bool
}

// Field 字段获取描述。
type Field struct {
	ParentType string
	Name       string
	// Path 响应路径，元素为 string 或 int。
	Path []any
	// Trivial 字段只是读取父对象属性，没有自定义解析器。
	Trivial bool
	// Definition 字段定义，实现 InstrumentationToggle 时可关闭埋点。
	Definition any
}

// Coordinate 返回 ParentType.fieldName。
func (f Field) Coordinate() string {
	return f.ParentType + "." + f.Name
}

func (f Field) optedOut() bool {
	t, ok := f.Definition.(InstrumentationToggle)
	return ok && !t.InstrumentationEnabled()
}

// FieldFetch 单个字段获取的记录。
//
// End 是同步与异步解析器共用的完成回调，可在任意 goroutine 调用，只生效一次。
// nil FieldFetch 的方法都是空操作。
type FieldFetch struct {
	rm      *RequestMetrics
	ctx     context.Context
	field   Field
	emit    bool
	tags    Tags
	start   time.Time
	once    sync.Once
	mu      sync.Mutex
	end     time.Time
	failed  bool
	errInfo xgqlerr.Classification
}

// FieldStart 创建字段记录。只在 EXECUTING 状态有效，其余状态返回 nil。
//
// 操作级标签在此刻按值捕获，之后请求上下文的变化不会影响该字段已发射的标签。
func (rm *RequestMetrics) FieldStart(ctx context.Context, f Field) *FieldFetch {
	if rm == nil {
		return nil
	}
	if ctx == nil {
		ctx = rm.ctx
	}
	in := rm.inst
	rm.mu.Lock()
	if rm.state != StateExecuting {
		rm.ignoreLocked("FieldStart")
		rm.mu.Unlock()
		return nil
	}
	ff := &FieldFetch{
		rm:    rm,
		ctx:   ctx,
		field: f,
		emit:  !f.optedOut() && (!f.Trivial || in.trivialFields),
		tags:  rm.queryTagsLocked(),
		start: time.Now(),
	}
	rm.fields = append(rm.fields, ff)
	rm.mu.Unlock()
	return ff
}

// End 完成字段获取，err 非 nil 时 outcome 为 failure。
func (ff *FieldFetch) End(err error) {
	if ff == nil {
		return
	}
	ff.once.Do(func() {
		now := time.Now()
		var c xgqlerr.Classification
		if err != nil {
			c = xgqlerr.Classify(err)
		}
		ff.mu.Lock()
		ff.end = now
		ff.failed = err != nil
		ff.errInfo = c
		ff.mu.Unlock()

		if !ff.emit {
			return
		}
		in := ff.rm.inst
		tags := ff.tags.
			With(TagField, ff.field.Coordinate()).
			With(TagOutcome, outcomeOf(err != nil)).
			Merge(in.fieldFetchTags(ff.ctx, ff.field, err))
		in.record(ff.ctx, in.names.resolver, now.Sub(ff.start), tags)
	})
}

// Field 字段描述。
func (ff *FieldFetch) Field() Field {
	if ff == nil {
		return Field{}
	}
	return ff.field
}

// Done 报告 End 是否已调用。
func (ff *FieldFetch) Done() bool {
	if ff == nil {
		return false
	}
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return !ff.end.IsZero()
}

// Outcome 返回 success / failure，未完成时为空字符串。
func (ff *FieldFetch) Outcome() string {
	if ff == nil {
		return ""
	}
	ff.mu.Lock()
	defer ff.mu.Unlock()
	if ff.end.IsZero() {
		return ""
	}
	return outcomeOf(ff.failed)
}

// Classification 失败时的错误分类，成功或未完成时为零值。
func (ff *FieldFetch) Classification() xgqlerr.Classification {
	if ff == nil {
		return xgqlerr.Classification{}
	}
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return ff.errInfo
}

// Duration 字段耗时，未完成时为 0。
func (ff *FieldFetch) Duration() time.Duration {
	if ff == nil {
		return 0
	}
	ff.mu.Lock()
	defer ff.mu.Unlock()
	if ff.end.IsZero() {
		return 0
	}
	return ff.end.Sub(ff.start)
}

// Instrumented 报告该字段是否会发射 gql.resolver。
func (ff *FieldFetch) Instrumented() bool {
	return ff != nil && ff.emit
}
