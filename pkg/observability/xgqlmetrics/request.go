package xgqlmetrics

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/omeyang/xgql/pkg/graphql/xapq"
	"github.com/omeyang/xgql/pkg/graphql/xgqlerr"
	"github.com/omeyang/xgql/pkg/graphql/xgqlsig"
	"github.com/omeyang/xgql/pkg/observability/xlog"
	"github.com/omeyang/xgql/pkg/observability/xmetrics"
)

// RequestMetrics 单个请求的埋点上下文。
//
// 由 [Instrumentation.BeginRequest] 创建，不跨请求共享。hook 可以在任意 goroutine 调用，
// 内部由互斥锁保护；所有方法对 nil 接收者安全。
type RequestMetrics struct {
	inst *Instrumentation
	id   string
	ctx  context.Context
	span *xmetrics.Span

	mu        sync.Mutex
	state     State
	parsed    bool
	validated bool
	created   time.Time
	// 阶段时间点，零值表示未发生
	parseStart, parseEnd       time.Time
	validateStart, validateEnd time.Time
	executeStart, end          time.Time

	op         OperationInfo
	opName     string
	pqState    xapq.State
	pqInvolved bool
	complexity int
	hasScore   bool
	signature  xgqlsig.QuerySignature
	fields     []*FieldFetch
}

// ID 请求 ID（UUID）。
func (rm *RequestMetrics) ID() string {
	if rm == nil {
		return ""
	}
	return rm.id
}

// Context 返回携带 request_id 日志字段与 span 的 context。
func (rm *RequestMetrics) Context() context.Context {
	if rm == nil {
		return context.Background()
	}
	return rm.ctx
}

// State 当前状态。
func (rm *RequestMetrics) State() State {
	if rm == nil {
		return StateCreated
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.state
}

// Signature 已解析的查询签名，未解析时为零值。
func (rm *RequestMetrics) Signature() xgqlsig.QuerySignature {
	if rm == nil {
		return xgqlsig.QuerySignature{}
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.signature
}

// Fields 返回已创建的字段记录。
func (rm *RequestMetrics) Fields() []*FieldFetch {
	if rm == nil {
		return nil
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return append([]*FieldFetch(nil), rm.fields...)
}

// Duration 从创建（或解析开始）到终止的耗时；未终止时返回到当前的耗时。
func (rm *RequestMetrics) Duration() time.Duration {
	if rm == nil {
		return 0
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	end := rm.end
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(rm.startLocked())
}

func (rm *RequestMetrics) startLocked() time.Time {
	if !rm.parseStart.IsZero() {
		return rm.parseStart
	}
	return rm.created
}

// ignoreLocked 记录乱序 hook，调用方持有锁。
func (rm *RequestMetrics) ignoreLocked(hook string) {
	rm.inst.ignored.Add(1)
	rm.inst.logger.Debug(rm.ctx, "lifecycle hook ignored",
		slog.String("hook", hook), slog.String("state", rm.state.String()))
}

// SetPersistedQueryState 记录 APQ 分类结果，只能在解析之前调用。
//
// 从未调用时 persistedQueryType 标签为 NONE（未经过分类器）。
func (rm *RequestMetrics) SetPersistedQueryState(s xapq.State) {
	if rm == nil {
		return
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.state != StateCreated {
		rm.ignoreLocked("SetPersistedQueryState")
		return
	}
	rm.pqState = s
	rm.pqInvolved = true
}

// PersistedQueryNotFound 只带哈希的请求未命中：发射一次 gql.persistedQueryNotFound，终止。
func (rm *RequestMetrics) PersistedQueryNotFound(hash string) {
	if rm == nil {
		return
	}
	rm.mu.Lock()
	if rm.state != StateCreated {
		rm.ignoreLocked("PersistedQueryNotFound")
		rm.mu.Unlock()
		return
	}
	rm.pqState, rm.pqInvolved = xapq.StateNotFound, true
	rm.state = StatePersistedQueryNotFound
	rm.end = time.Now()
	rm.mu.Unlock()

	in := rm.inst
	in.count(rm.ctx, in.names.pqNotFound, NewTags(TagPersistedQueryID, orNone(hash)))
	rm.finish(xapq.ErrPersistedQueryNotFound, NewTags(TagPersistedQueryID, orNone(hash)))
}

// ParseStart CREATED → PARSING。
func (rm *RequestMetrics) ParseStart() {
	if rm == nil {
		return
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.state != StateCreated {
		rm.ignoreLocked("ParseStart")
		return
	}
	rm.state = StateParsing
	rm.parseStart = time.Now()
}

// ParseEnd 结束解析。err 非 nil 时按语法错误分类（错误显式声明的分类优先），
// 发射一次 gql.error 与一次失败的 gql.query，进入 PARSE_FAILED。
func (rm *RequestMetrics) ParseEnd(err error) {
	if rm == nil {
		return
	}
	rm.mu.Lock()
	if rm.state != StateParsing || rm.parsed {
		rm.ignoreLocked("ParseEnd")
		rm.mu.Unlock()
		return
	}
	rm.parseEnd = time.Now()
	if err == nil {
		rm.parsed = true
		rm.mu.Unlock()
		return
	}
	rm.state = StateParseFailed
	rm.end = rm.parseEnd
	duration := rm.end.Sub(rm.startLocked())
	base := rm.queryTagsLocked()
	rm.mu.Unlock()

	rm.emitFailure(duration, base, []error{err}, xgqlerr.Syntax)
}

// ValidationStart PARSING → VALIDATING。
func (rm *RequestMetrics) ValidationStart() {
	if rm == nil {
		return
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.state != StateParsing || !rm.parsed {
		rm.ignoreLocked("ValidationStart")
		return
	}
	rm.state = StateValidating
	rm.validateStart = time.Now()
}

// ValidationEnd 结束校验。errs 非空时每个错误发射一次 gql.error（默认分类
// BAD_REQUEST/INVALID_ARGUMENT），并发射一次失败的 gql.query，进入 VALIDATION_FAILED。
func (rm *RequestMetrics) ValidationEnd(errs []error) {
	if rm == nil {
		return
	}
	errs = compactErrors(errs)
	rm.mu.Lock()
	if rm.state != StateValidating || rm.validated {
		rm.ignoreLocked("ValidationEnd")
		rm.mu.Unlock()
		return
	}
	rm.validateEnd = time.Now()
	if len(errs) == 0 {
		rm.validated = true
		rm.mu.Unlock()
		return
	}
	rm.state = StateValidationFailed
	rm.end = rm.validateEnd
	duration := rm.end.Sub(rm.startLocked())
	base := rm.queryTagsLocked()
	rm.mu.Unlock()

	rm.emitFailure(duration, base, errs, xgqlerr.Validation)
}

// ExecuteStart 进入 EXECUTING，记录操作类型与名称，解析签名并估算复杂度。
//
// 允许从 CREATED（引擎跳过了解析 hook）、解析成功或校验成功的状态进入。
func (rm *RequestMetrics) ExecuteStart(op OperationInfo) {
	if rm == nil {
		return
	}
	rm.mu.Lock()
	ok := rm.state == StateCreated ||
		(rm.state == StateParsing && rm.parsed) ||
		(rm.state == StateValidating && rm.validated)
	if !ok {
		rm.ignoreLocked("ExecuteStart")
		rm.mu.Unlock()
		return
	}
	rm.state = StateExecuting
	rm.executeStart = time.Now()
	if op.Type == "" {
		op.Type = OperationNone
	}
	rm.op = op
	rm.opName = op.ResolvedName()
	rm.mu.Unlock()

	// 签名与复杂度在锁外计算，可能较慢
	in := rm.inst
	var sig xgqlsig.QuerySignature
	if in.signatures != nil && op.Query != "" {
		s, err := in.signatures.Resolve(rm.ctx, op.Query, op.Name)
		if err != nil {
			in.logger.Debug(rm.ctx, "query signature unavailable", xlog.Operation(rm.opName), xlog.Err(err))
		} else {
			sig = s
		}
	}
	score, hasScore := rm.estimate(op)

	rm.mu.Lock()
	rm.signature = sig
	rm.complexity, rm.hasScore = score, hasScore
	rm.mu.Unlock()

	if rm.span != nil {
		rm.span.SetTags(NewTags(TagOperation, string(op.Type), TagOperationName, rm.opName))
	}
}

func (rm *RequestMetrics) estimate(op OperationInfo) (score int, ok bool) {
	in := rm.inst
	if in.complexity == nil {
		return 0, false
	}
	defer func() {
		if r := recover(); r != nil {
			in.panics.Add(1)
			in.logger.Warn(rm.ctx, "complexity estimator panic recovered", xlog.Panic(r))
			score, ok = 0, false
		}
	}()
	return in.complexity.Estimate(op)
}

// ExecuteEnd 结束执行：有任何错误时 outcome 为 failure；每个顶层错误发射一次 gql.error，
// 整个操作只发射一次 gql.query。
func (rm *RequestMetrics) ExecuteEnd(errs []error) {
	if rm == nil {
		return
	}
	errs = compactErrors(errs)
	rm.mu.Lock()
	if rm.state != StateExecuting {
		rm.ignoreLocked("ExecuteEnd")
		rm.mu.Unlock()
		return
	}
	failed := len(errs) > 0
	if failed {
		rm.state = StateExecutionFailed
	} else {
		rm.state = StateCompleted
	}
	rm.end = time.Now()
	duration := rm.end.Sub(rm.startLocked())
	base := rm.queryTagsLocked()
	op := rm.op
	rm.mu.Unlock()

	in := rm.inst
	ctxTags := in.contextualTags(rm.ctx)
	for _, err := range errs {
		in.count(rm.ctx, in.names.error, errorTags(base, err, xgqlerr.Classification{}).Merge(ctxTags))
	}
	queryTags := base.With(TagOutcome, outcomeOf(failed)).
		Merge(ctxTags).
		Merge(in.executionTags(rm.ctx, op, errs))
	in.record(rm.ctx, in.names.query, duration, queryTags)
	rm.finish(errors.Join(errs...), NewTags(TagOutcome, outcomeOf(failed)))
}

// emitFailure 解析或校验失败：每个错误一次 gql.error，一次失败的 gql.query。
func (rm *RequestMetrics) emitFailure(duration time.Duration, base Tags, errs []error, fallback xgqlerr.Classification) {
	in := rm.inst
	ctxTags := in.contextualTags(rm.ctx)
	for _, err := range errs {
		in.count(rm.ctx, in.names.error, errorTags(base, err, fallback).Merge(ctxTags))
	}
	queryTags := base.With(TagOutcome, OutcomeFailure).
		Merge(ctxTags).
		Merge(in.executionTags(rm.ctx, rm.operation(), errs))
	in.record(rm.ctx, in.names.query, duration, queryTags)
	rm.finish(errors.Join(errs...), NewTags(TagOutcome, OutcomeFailure))
}

func (rm *RequestMetrics) operation() OperationInfo {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.op
}

// finish 终止后的收尾：计数并结束 span。
func (rm *RequestMetrics) finish(err error, tags Tags) {
	rm.inst.finished.Add(1)
	rm.span.End(err, tags)
}

// queryTagsLocked 当前的操作级标签（不含 outcome），调用方持有锁。
func (rm *RequestMetrics) queryTagsLocked() Tags {
	name := rm.opName
	if name == "" {
		name = AnonymousName
	}
	complexity := ValueNone
	if rm.hasScore {
		complexity = strconv.Itoa(rm.complexity)
	}
	// NONE 表示请求没有经过 APQ 分类器
	pq := "NONE"
	if rm.pqInvolved {
		pq = rm.pqState.TagValue()
	}
	return NewTags(
		TagOperation, string(rm.op.Type),
		TagOperationName, name,
		TagComplexity, complexity,
		TagSignatureHash, orNone(rm.signature.Hash),
		TagPersistedQueryType, pq,
	)
}

// errorTags gql.error 的标签：操作级标签加分类与路径。
func errorTags(base Tags, err error, fallback xgqlerr.Classification) Tags {
	c := xgqlerr.ClassifyOr(err, fallback)
	path := ValueNone
	if p := xgqlerr.Path(err); len(p) > 0 {
		path = xgqlerr.FormatPath(p)
	}
	return base.
		With(TagErrorCode, string(c.Type)).
		With(TagErrorDetail, string(c.Detail)).
		With(TagPath, path).
		With(TagOutcome, OutcomeFailure)
}

func compactErrors(errs []error) []error {
	out := errs[:0:0]
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
