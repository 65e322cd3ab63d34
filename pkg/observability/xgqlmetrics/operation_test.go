package xgqlmetrics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// =============================================================================
// OperationInfo
// =============================================================================

func TestOperationFromDocument(t *testing.T) {
	doc := parseDoc(t, `
		query A { a }
		mutation B { b }
		subscription C { ... on Subscription { c } }
	`)

	tests := []struct {
		opName   string
		ok       bool
		wantType OperationType
		wantName string
	}{
		{"A", true, OperationQuery, "A"},
		{"B", true, OperationMutation, "B"},
		{"C", true, OperationSubscription, "C"},
		{"", false, OperationNone, AnonymousName},
		{"Missing", false, OperationNone, "Missing"},
	}
	for _, tt := range tests {
		t.Run(tt.opName, func(t *testing.T) {
			info, ok := OperationFromDocument(doc, tt.opName, "")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.wantType, info.Type)
			assert.Equal(t, tt.wantName, info.ResolvedName())
		})
	}

	info, ok := OperationFromDocument(nil, "", "")
	assert.False(t, ok)
	assert.Equal(t, OperationNone, info.Type)
}

func TestOperationInfo_ResolvedName(t *testing.T) {
	assert.Equal(t, "Named", OperationInfo{Name: "Named", FirstField: "x"}.ResolvedName())
	assert.Equal(t, "anonymous_x", OperationInfo{Name: "  ", FirstField: "x"}.ResolvedName())
	assert.Equal(t, AnonymousName, OperationInfo{}.ResolvedName())
}

func TestOperationTypeOf(t *testing.T) {
	assert.Equal(t, OperationQuery, OperationTypeOf(ast.Query))
	assert.Equal(t, OperationMutation, OperationTypeOf(ast.Mutation))
	assert.Equal(t, OperationSubscription, OperationTypeOf(ast.Subscription))
	assert.Equal(t, OperationNone, OperationTypeOf(ast.Operation("other")))
}

func TestFirstField_FragmentCycle(t *testing.T) {
	// 循环 fragment 在校验阶段才会被拒绝，这里只要求不死循环
	doc := parseDoc(t, `query { ...A } fragment A on Query { ...B } fragment B on Query { ...A }`)
	info, ok := OperationFromDocument(doc, "", "")
	require.True(t, ok)
	assert.Empty(t, info.FirstField)
	assert.Equal(t, AnonymousName, info.ResolvedName())
}

func TestFieldCountComplexity(t *testing.T) {
	doc := parseDoc(t, `
		query Q {
			viewer { id friends { id ...Name } }
			... on Query { ping }
		}
		fragment Name on User { first last }
	`)
	info, ok := OperationFromDocument(doc, "Q", "")
	require.True(t, ok)
	score, ok := FieldCountComplexity{}.Estimate(info)
	assert.True(t, ok)
	// viewer id friends id first last ping
	assert.Equal(t, 7, score)

	_, ok = FieldCountComplexity{}.Estimate(OperationInfo{})
	assert.False(t, ok)
}

// =============================================================================
// State
// =============================================================================

func TestState(t *testing.T) {
	terminal := map[State]bool{
		StateParseFailed:            true,
		StateValidationFailed:       true,
		StateCompleted:              true,
		StateExecutionFailed:        true,
		StatePersistedQueryNotFound: true,
	}
	for s := StateCreated; s <= StatePersistedQueryNotFound; s++ {
		assert.NotEqual(t, "UNKNOWN", s.String())
		assert.Equal(t, terminal[s], s.Terminal(), s.String())
	}
	assert.Equal(t, "UNKNOWN", State(99).String())
	assert.Equal(t, "UNKNOWN", State(-1).String())
}

func TestField_Coordinate(t *testing.T) {
	assert.Equal(t, "User.name", Field{ParentType: "User", Name: "name"}.Coordinate())
}

// =============================================================================
// Span
// =============================================================================

func TestSpanPerOperation(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	h := newHarness(t, WithTracerProvider(tp))

	ok := h.inst.BeginRequest(context.Background())
	ok.ExecuteStart(OperationInfo{Type: OperationQuery, Name: "Good"})
	ok.ExecuteEnd(nil)

	bad := h.inst.BeginRequest(context.Background())
	bad.ExecuteStart(OperationInfo{Type: OperationMutation, Name: "Bad"})
	bad.ExecuteEnd([]error{errors.New("boom")})
	bad.ExecuteEnd(nil) // 被忽略，span 不会结束两次

	spans := exp.GetSpans()
	require.Len(t, spans, 2)
	for _, s := range spans {
		assert.Equal(t, SpanName, s.Name)
	}

	attrs := func(s tracetest.SpanStub) map[string]string {
		out := map[string]string{}
		for _, kv := range s.Attributes {
			out[string(kv.Key)] = kv.Value.Emit()
		}
		return out
	}
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Equal(t, "Good", attrs(spans[0])[TagOperationName])
	assert.Equal(t, ok.ID(), attrs(spans[0])["request.id"])

	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Equal(t, "MUTATION", attrs(spans[1])[TagOperation])
	assert.Equal(t, OutcomeFailure, attrs(spans[1])[TagOutcome])
	assert.Len(t, spans[1].Events, 1)
}
