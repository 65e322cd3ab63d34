package xgqlmetrics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/omeyang/xgql/pkg/graphql/xapq"
	"github.com/omeyang/xgql/pkg/graphql/xgqlerr"
	"github.com/omeyang/xgql/pkg/graphql/xgqlsig"
	"github.com/omeyang/xgql/pkg/observability/xcardinality"
	"github.com/omeyang/xgql/pkg/observability/xlog"
)

func parseDoc(t *testing.T, query string) *ast.QueryDocument {
	t.Helper()
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	require.Nil(t, err)
	return doc
}

func startExecution(t *testing.T, h *harness, query, opName string) *RequestMetrics {
	t.Helper()
	rm := h.inst.BeginRequest(context.Background())
	rm.ParseStart()
	doc := parseDoc(t, query)
	rm.ParseEnd(nil)
	rm.ValidationStart()
	rm.ValidationEnd(nil)
	info, ok := OperationFromDocument(doc, opName, query)
	require.True(t, ok)
	rm.ExecuteStart(info)
	require.Equal(t, StateExecuting, rm.State())
	return rm
}

// =============================================================================
// 成功路径
// =============================================================================

func TestLifecycle_SuccessfulPing(t *testing.T) {
	h := newHarness(t)
	rm := startExecution(t, h, "query my_op_1{ping}", "")

	f := rm.FieldStart(rm.Context(), Field{ParentType: "Query", Name: "ping", Path: []any{"ping"}})
	f.End(nil)
	rm.ExecuteEnd(nil)

	queries := h.points("gql.query")
	require.Len(t, queries, 1)
	assert.EqualValues(t, 1, queries[0].count)
	assert.Equal(t, map[string]string{
		TagOutcome:            OutcomeSuccess,
		TagOperation:          "QUERY",
		TagOperationName:      "my_op_1",
		TagComplexity:         ValueNone,
		TagSignatureHash:      ValueNone,
		TagPersistedQueryType: "NONE",
	}, queries[0].attrs)

	resolvers := h.points("gql.resolver")
	require.Len(t, resolvers, 1)
	assert.EqualValues(t, 1, resolvers[0].count)
	assert.Equal(t, "Query.ping", resolvers[0].attrs[TagField])
	assert.Equal(t, OutcomeSuccess, resolvers[0].attrs[TagOutcome])
	assert.Equal(t, "my_op_1", resolvers[0].attrs[TagOperationName])

	assert.Empty(t, h.points("gql.error"))
	assert.Equal(t, StateCompleted, rm.State())
	assert.NotEmpty(t, rm.ID())
	assert.Greater(t, rm.Duration(), time.Duration(0))

	st := h.inst.Stats()
	assert.EqualValues(t, 1, st.RequestsStarted)
	assert.EqualValues(t, 1, st.RequestsFinished)
	assert.Zero(t, st.IgnoredHooks)
}

func TestLifecycle_AnonymousNameFallback(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"{ ping }", "anonymous_ping"},
		{"query { ...F } fragment F on Query { user }", "anonymous_user"},
		{"query { ... on Query { hello } }", "anonymous_hello"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			h := newHarness(t)
			rm := startExecution(t, h, tt.query, "")
			rm.ExecuteEnd(nil)
			assert.EqualValues(t, 1, h.total("gql.query", map[string]string{TagOperationName: tt.want}))
		})
	}
}

func TestLifecycle_SkippedParseHooks(t *testing.T) {
	h := newHarness(t)
	rm := h.inst.BeginRequest(context.Background())
	rm.ExecuteStart(OperationInfo{Type: OperationMutation, Name: "Save"})
	rm.ExecuteEnd(nil)
	assert.EqualValues(t, 1, h.total("gql.query", map[string]string{
		TagOperation: "MUTATION", TagOperationName: "Save", TagOutcome: OutcomeSuccess,
	}))
}

// =============================================================================
// 失败路径
// =============================================================================

func TestLifecycle_ParseFailure(t *testing.T) {
	h := newHarness(t)
	rm := h.inst.BeginRequest(context.Background())
	rm.ParseStart()
	_, perr := parser.ParseQuery(&ast.Source{Input: "query {"})
	require.NotNil(t, perr)
	rm.ParseEnd(perr)

	assert.Equal(t, StateParseFailed, rm.State())
	assert.EqualValues(t, 1, h.total("gql.query", map[string]string{
		TagOutcome: OutcomeFailure, TagOperation: "none", TagOperationName: AnonymousName,
	}))
	assert.EqualValues(t, 1, h.total("gql.error", map[string]string{
		TagErrorCode: "BAD_REQUEST", TagErrorDetail: "INVALID_SYNTAX", TagOutcome: OutcomeFailure,
	}))

	// 终止后的 hook 被忽略
	rm.ValidationStart()
	rm.ExecuteStart(OperationInfo{Type: OperationQuery})
	assert.Nil(t, rm.FieldStart(context.Background(), Field{ParentType: "Query", Name: "x"}))
	rm.ExecuteEnd([]error{errors.New("late")})
	assert.EqualValues(t, 1, h.total("gql.query", nil))
	assert.EqualValues(t, 4, h.inst.Stats().IgnoredHooks)
}

func TestLifecycle_ValidationFailure(t *testing.T) {
	h := newHarness(t)
	rm := h.inst.BeginRequest(context.Background())
	rm.ParseStart()
	rm.ParseEnd(nil)
	rm.ValidationStart()
	rm.ValidationEnd([]error{
		&gqlerror.Error{Message: "Cannot query field \"nope\"", Rule: "FieldsOnCorrectType"},
		&gqlerror.Error{Message: "Unknown argument", Rule: "KnownArgumentNames"},
		nil,
	})

	assert.Equal(t, StateValidationFailed, rm.State())
	assert.EqualValues(t, 2, h.total("gql.error", map[string]string{
		TagErrorCode: "BAD_REQUEST", TagErrorDetail: "INVALID_ARGUMENT",
	}))
	assert.EqualValues(t, 1, h.total("gql.query", map[string]string{TagOutcome: OutcomeFailure}))
}

func TestLifecycle_ResolverErrors(t *testing.T) {
	h := newHarness(t)
	rm := startExecution(t, h, "query Q { a b c }", "")

	errA := xgqlerr.Newf(xgqlerr.DetailServiceError, "a failed").WithPath("a")
	errB := xgqlerr.Wrap(errors.New("boom"), xgqlerr.DetailUnknown).WithPath("b")

	rm.FieldStart(rm.Context(), Field{ParentType: "Query", Name: "a", Path: []any{"a"}}).End(errA)
	rm.FieldStart(rm.Context(), Field{ParentType: "Query", Name: "b", Path: []any{"b"}}).End(errB)
	rm.FieldStart(rm.Context(), Field{ParentType: "Query", Name: "c", Path: []any{"c"}}).End(nil)
	rm.ExecuteEnd([]error{errA, errB})

	assert.Equal(t, StateExecutionFailed, rm.State())
	assert.EqualValues(t, 1, h.total("gql.query", nil))
	assert.EqualValues(t, 1, h.total("gql.query", map[string]string{TagOutcome: OutcomeFailure}))
	assert.EqualValues(t, 2, h.total("gql.resolver", map[string]string{TagOutcome: OutcomeFailure}))
	assert.EqualValues(t, 1, h.total("gql.resolver", map[string]string{TagOutcome: OutcomeSuccess}))
	assert.EqualValues(t, 2, h.total("gql.error", nil))
	assert.EqualValues(t, 1, h.total("gql.error", map[string]string{
		TagPath: "[a]", TagErrorCode: "UNAVAILABLE", TagErrorDetail: "SERVICE_ERROR",
	}))
	assert.EqualValues(t, 1, h.total("gql.error", map[string]string{
		TagPath: "[b]", TagErrorCode: "INTERNAL", TagErrorDetail: "UNKNOWN",
	}))
}

func TestLifecycle_UnclassifiedErrorWithoutPath(t *testing.T) {
	h := newHarness(t)
	rm := startExecution(t, h, "{ ping }", "")
	rm.ExecuteEnd([]error{errors.New("opaque")})
	assert.EqualValues(t, 1, h.total("gql.error", map[string]string{
		TagPath: ValueNone, TagErrorCode: "INTERNAL", TagErrorDetail: "UNKNOWN",
	}))
}

// =============================================================================
// 字段
// =============================================================================

type toggle bool

func (t toggle) InstrumentationEnabled() bool { return bool(t) }

func TestField_OptOutAndTrivial(t *testing.T) {
	h := newHarness(t)
	rm := startExecution(t, h, "{ a b c }", "")

	off := rm.FieldStart(rm.Context(), Field{ParentType: "Query", Name: "a", Definition: toggle(false)})
	trivial := rm.FieldStart(rm.Context(), Field{ParentType: "Query", Name: "b", Trivial: true})
	on := rm.FieldStart(rm.Context(), Field{ParentType: "Query", Name: "c", Definition: toggle(true)})
	assert.False(t, off.Instrumented())
	assert.False(t, trivial.Instrumented())
	assert.True(t, on.Instrumented())
	off.End(nil)
	trivial.End(nil)
	on.End(nil)
	rm.ExecuteEnd(nil)

	resolvers := h.points("gql.resolver")
	require.Len(t, resolvers, 1)
	assert.Equal(t, "Query.c", resolvers[0].attrs[TagField])
	assert.Len(t, rm.Fields(), 3)
	assert.Equal(t, OutcomeSuccess, off.Outcome())
}

func TestField_TrivialEnabled(t *testing.T) {
	h := newHarness(t, WithTrivialFields(true))
	rm := startExecution(t, h, "{ b }", "")
	rm.FieldStart(rm.Context(), Field{ParentType: "Query", Name: "b", Trivial: true}).End(nil)
	rm.ExecuteEnd(nil)
	assert.EqualValues(t, 1, h.total("gql.resolver", map[string]string{TagField: "Query.b"}))
}

func TestField_AsyncCompletionAfterOperationEnd(t *testing.T) {
	h := newHarness(t)
	rm := startExecution(t, h, "query Slow { slow }", "")

	f := rm.FieldStart(rm.Context(), Field{ParentType: "Query", Name: "slow"})
	rm.ExecuteEnd(nil)
	assert.False(t, f.Done())
	assert.Empty(t, h.points("gql.resolver"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.End(errors.New("late failure"))
	}()
	<-done
	f.End(nil) // 第二次调用无效

	assert.True(t, f.Done())
	assert.Equal(t, OutcomeFailure, f.Outcome())
	assert.Equal(t, xgqlerr.Default, f.Classification())
	assert.Greater(t, f.Duration(), time.Duration(0))
	// 捕获的操作标签仍是字段开始时的值
	assert.EqualValues(t, 1, h.total("gql.resolver", map[string]string{
		TagField: "Query.slow", TagOutcome: OutcomeFailure, TagOperationName: "Slow",
	}))
}

func TestField_ConcurrentCompletion(t *testing.T) {
	h := newHarness(t)
	rm := startExecution(t, h, "{ item }", "")

	const n = 200
	var wg sync.WaitGroup
	for i := range n {
		f := rm.FieldStart(rm.Context(), Field{ParentType: "Item", Name: "name", Path: []any{"item", i, "name"}})
		wg.Add(2)
		// 两个 goroutine 抢着完成同一个字段，只有一次生效
		for range 2 {
			go func() {
				defer wg.Done()
				f.End(nil)
			}()
		}
	}
	wg.Wait()
	rm.ExecuteEnd(nil)

	assert.EqualValues(t, n, h.total("gql.resolver", map[string]string{TagField: "Item.name"}))
	assert.Len(t, rm.Fields(), n)
}

func TestField_NilSafety(t *testing.T) {
	var f *FieldFetch
	assert.NotPanics(t, func() {
		f.End(nil)
		assert.False(t, f.Done())
		assert.Empty(t, f.Outcome())
		assert.Zero(t, f.Duration())
		assert.Equal(t, Field{}, f.Field())
		assert.False(t, f.Instrumented())
	})

	var rm *RequestMetrics
	assert.NotPanics(t, func() {
		rm.ParseStart()
		rm.ParseEnd(errors.New("x"))
		rm.ValidationStart()
		rm.ValidationEnd(nil)
		rm.ExecuteStart(OperationInfo{})
		assert.Nil(t, rm.FieldStart(context.Background(), Field{}))
		rm.ExecuteEnd(nil)
		rm.PersistedQueryNotFound("h")
		rm.SetPersistedQueryState(xapq.StateAPQ)
		assert.NotNil(t, rm.Context())
	})

	var inst *Instrumentation
	assert.Nil(t, inst.BeginRequest(context.Background()))
	assert.Equal(t, Stats{}, inst.Stats())
}

// =============================================================================
// 持久化查询
// =============================================================================

func TestPersistedQuery_NotFound(t *testing.T) {
	h := newHarness(t)
	rm := h.inst.BeginRequest(context.Background())
	rm.PersistedQueryNotFound("abc123")

	assert.Equal(t, StatePersistedQueryNotFound, rm.State())
	pts := h.points("gql.persistedQueryNotFound")
	require.Len(t, pts, 1)
	assert.EqualValues(t, 1, pts[0].count)
	assert.Equal(t, map[string]string{TagPersistedQueryID: "abc123"}, pts[0].attrs)
	assert.Empty(t, h.points("gql.query"))

	rm.ParseStart()
	assert.EqualValues(t, 1, h.inst.Stats().IgnoredHooks)
}

func TestPersistedQuery_TypeTag(t *testing.T) {
	tests := []struct {
		name  string
		state *xapq.State
		want  string
	}{
		{"classifier not involved", nil, "NONE"},
		{"plain request", ptr(xapq.StateNone), "NOT_APQ"},
		{"hash only", ptr(xapq.StateAPQ), "APQ"},
		{"hash and text", ptr(xapq.StateFullAPQ), "FULL_APQ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			rm := h.inst.BeginRequest(context.Background())
			if tt.state != nil {
				rm.SetPersistedQueryState(*tt.state)
			}
			rm.ParseStart()
			rm.ParseEnd(nil)
			rm.ExecuteStart(OperationInfo{Type: OperationQuery, Name: "Q"})
			rm.FieldStart(rm.Context(), Field{ParentType: "Query", Name: "ping"}).End(nil)
			rm.ExecuteEnd(nil)
			assert.EqualValues(t, 1, h.total("gql.query", map[string]string{TagPersistedQueryType: tt.want}))
			assert.EqualValues(t, 1, h.total("gql.resolver", map[string]string{TagPersistedQueryType: tt.want}))
		})
	}
}

func ptr[T any](v T) *T { return &v }

// =============================================================================
// 签名、复杂度、基数
// =============================================================================

func TestSignatureAndComplexityTags(t *testing.T) {
	repo, err := xgqlsig.New(xgqlsig.WithLogger(xlog.Nop()))
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	h := newHarness(t,
		WithSignatureRepository(repo),
		WithComplexityEstimator(FieldCountComplexity{}))
	query := `query Q { user(id: 1) { id ...N } } fragment N on User { name }`
	rm := startExecution(t, h, query, "")
	rm.ExecuteEnd(nil)

	want, err := xgqlsig.Compute(nil, query, "")
	require.NoError(t, err)
	assert.Equal(t, want, rm.Signature())
	assert.EqualValues(t, 1, h.total("gql.query", map[string]string{
		TagSignatureHash: want.Hash,
		TagComplexity:    "3",
	}))
}

func TestSignatureFailureOmitsHash(t *testing.T) {
	repo, err := xgqlsig.New(xgqlsig.WithLogger(xlog.Nop()))
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	h := newHarness(t, WithSignatureRepository(repo))
	rm := h.inst.BeginRequest(context.Background())
	// 文档中有两个操作但未指定名称，签名计算失败
	rm.ExecuteStart(OperationInfo{Type: OperationQuery, Query: "query A { a } query B { b }"})
	rm.ExecuteEnd(nil)
	assert.EqualValues(t, 1, h.total("gql.query", map[string]string{TagSignatureHash: ValueNone}))
}

func TestCardinalityBound(t *testing.T) {
	ledger, err := xcardinality.New(xcardinality.WithLimit(10))
	require.NoError(t, err)
	h := newHarness(t, WithLedger(ledger))

	for i := range 50 {
		rm := h.inst.BeginRequest(context.Background())
		rm.ExecuteStart(OperationInfo{Type: OperationQuery, Name: fmt.Sprintf("op_%d", i)})
		rm.ExecuteEnd(nil)
	}

	names := map[string]int64{}
	for _, p := range h.points("gql.query") {
		names[p.attrs[TagOperationName]] += p.count
	}
	assert.Len(t, names, 11)
	assert.EqualValues(t, 40, names[xcardinality.DefaultSentinel])
	assert.Equal(t, 10, ledger.Len("gql.query", TagOperationName))
}

func TestLimitedDimensionsOverride(t *testing.T) {
	ledger, err := xcardinality.New(xcardinality.WithLimit(1))
	require.NoError(t, err)
	h := newHarness(t, WithLedger(ledger), WithLimitedDimensions(TagField))

	rm := startExecution(t, h, "{ a b }", "")
	rm.FieldStart(rm.Context(), Field{ParentType: "Query", Name: "a"}).End(nil)
	rm.FieldStart(rm.Context(), Field{ParentType: "Query", Name: "b"}).End(nil)
	rm.ExecuteEnd(nil)

	assert.EqualValues(t, 1, h.total("gql.resolver", map[string]string{TagField: "Query.a"}))
	assert.EqualValues(t, 1, h.total("gql.resolver", map[string]string{TagField: xcardinality.DefaultSentinel}))
}

// =============================================================================
// 定制器与容错
// =============================================================================

func TestCustomizers(t *testing.T) {
	type tenantKey struct{}
	h := newHarness(t,
		WithContextualTags(ContextualTagsFunc(func(ctx context.Context) Tags {
			tenant, _ := ctx.Value(tenantKey{}).(string)
			return NewTags("tenant", tenant)
		})),
		WithExecutionTags(ExecutionTagsFunc(func(_ context.Context, op OperationInfo, errs []error) Tags {
			return NewTags("errors", fmt.Sprint(len(errs)))
		})),
		WithFieldFetchTags(FieldFetchTagsFunc(func(_ context.Context, f Field, _ error) Tags {
			return NewTags("parent", f.ParentType)
		})),
	)

	ctx := context.WithValue(context.Background(), tenantKey{}, "acme")
	rm := h.inst.BeginRequest(ctx)
	rm.ExecuteStart(OperationInfo{Type: OperationQuery, Name: "Q"})
	rm.FieldStart(rm.Context(), Field{ParentType: "Query", Name: "x"}).End(nil)
	rm.ExecuteEnd([]error{errors.New("e")})

	assert.EqualValues(t, 1, h.total("gql.query", map[string]string{"tenant": "acme", "errors": "1"}))
	assert.EqualValues(t, 1, h.total("gql.error", map[string]string{"tenant": "acme"}))
	assert.EqualValues(t, 1, h.total("gql.resolver", map[string]string{"parent": "Query"}))
}

func TestCustomizerPanicIsSwallowed(t *testing.T) {
	h := newHarness(t,
		WithContextualTags(ContextualTagsFunc(func(context.Context) Tags { panic("boom") })),
		WithFieldFetchTags(FieldFetchTagsFunc(func(context.Context, Field, error) Tags { panic("boom") })),
		WithComplexityEstimator(ComplexityFunc(func(OperationInfo) (int, bool) { panic("boom") })),
	)

	assert.NotPanics(t, func() {
		rm := startExecution(t, h, "{ ping }", "")
		rm.FieldStart(rm.Context(), Field{ParentType: "Query", Name: "ping"}).End(nil)
		rm.ExecuteEnd(nil)
	})
	assert.EqualValues(t, 1, h.total("gql.query", map[string]string{TagComplexity: ValueNone}))
	assert.EqualValues(t, 1, h.total("gql.resolver", nil))
	assert.EqualValues(t, 3, h.inst.Stats().Panics)
}

type panickingSink struct{}

func (panickingSink) Count(context.Context, string, int64, Tags)         { panic("sink down") }
func (panickingSink) Record(context.Context, string, time.Duration, Tags) { panic("sink down") }

func TestSinkPanicIsSwallowed(t *testing.T) {
	inst, err := New(WithSink(panickingSink{}), WithLogger(xlog.Nop()))
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		rm := inst.BeginRequest(context.Background())
		rm.ExecuteStart(OperationInfo{Type: OperationQuery})
		rm.FieldStart(rm.Context(), Field{ParentType: "Query", Name: "x"}).End(nil)
		rm.ExecuteEnd([]error{errors.New("e")})
	})
	// resolver + error + query
	assert.EqualValues(t, 3, inst.Stats().Panics)
}

func TestPrefix(t *testing.T) {
	h := newHarness(t, WithPrefix("api"))
	rm := h.inst.BeginRequest(context.Background())
	rm.ExecuteStart(OperationInfo{Type: OperationQuery})
	rm.ExecuteEnd(nil)
	assert.EqualValues(t, 1, h.total("api.query", nil))
	assert.Equal(t, "api.error", h.inst.MetricName(MetricError))
	assert.Empty(t, h.inst.MetricName("unknown"))
}
