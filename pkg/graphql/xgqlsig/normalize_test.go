package xgqlsig

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalize(t *testing.T, query, op string) string {
	t.Helper()
	sig, err := ASTNormalizer{}.Normalize(query, op)
	require.NoError(t, err)
	return sig
}

// =============================================================================
// 等价查询得到相同签名
// =============================================================================

func TestNormalize_Equivalent(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{
			name: "whitespace and comments",
			a:    "query Q { user { id name } }",
			b:    "# comment\nquery Q {\n  user {\n    id\n    # inner\n    name\n  }\n}",
		},
		{
			name: "field order",
			a:    "query Q { user { name id } }",
			b:    "query Q { user { id name } }",
		},
		{
			name: "aliases dropped",
			a:    "query Q { me: user { handle: name } }",
			b:    "query Q { user { name } }",
		},
		{
			name: "literal values hidden",
			a:    `query Q { user(id: 42, name: "alice", active: true, tags: ["a", "b"], filter: {x: 1}) { id } }`,
			b:    `query Q { user(id: 7, name: "bob", active: false, tags: [], filter: {}) { id } }`,
		},
		{
			name: "argument order",
			a:    `query Q { user(b: 1, a: 2) { id } }`,
			b:    `query Q { user(a: 9, b: 8) { id } }`,
		},
		{
			name: "float and block string",
			a:    `query Q { f(x: 1.5, s: """long""") }`,
			b:    `query Q { f(x: 3, s: "short") }`,
		},
		{
			name: "shorthand query",
			a:    "{ ping }",
			b:    "query { ping }",
		},
		{
			name: "variable definitions order and defaults",
			a:    "query Q($b: Int = 5, $a: String) { f(a: $a, b: $b) }",
			b:    "query Q($a: String, $b: Int = 9) { f(b: $b, a: $a) }",
		},
		{
			name: "same field with different arguments",
			a:    "{ x: user(id: 1) { name } y: user(id: 2) { email } }",
			b:    "{ y: user(id: 2) { email } x: user(id: 1) { name } }",
		},
		{
			name: "same field with different argument names",
			a:    "{ user(id: 1) { id } user(handle: \"a\") { id } }",
			b:    "{ user(handle: \"b\") { id } user(id: 2) { id } }",
		},
		{
			name: "unused fragments dropped",
			a:    "query Q { user { ...U } } fragment U on User { id } fragment Unused on User { name }",
			b:    "fragment U on User { id } query Q { user { ...U } }",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, normalize(t, tt.a, ""), normalize(t, tt.b, ""))
		})
	}
}

// =============================================================================
// 结构不同的查询得到不同签名
// =============================================================================

func TestNormalize_Distinct(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"different fields", "query Q { user { id } }", "query Q { user { name } }"},
		{"different operation name", "query A { ping }", "query B { ping }"},
		{"enum kept", "query Q { users(order: ASC) { id } }", "query Q { users(order: DESC) { id } }"},
		{"variable kept", "query Q($a: Int) { f(x: $a) }", "query Q($b: Int) { f(x: $b) }"},
		{"mutation vs query", "query Q { ping }", "mutation Q { ping }"},
		{"directive", "query Q { ping @include(if: true) }", "query Q { ping }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, normalize(t, tt.a, ""), normalize(t, tt.b, ""))
		})
	}
}

func TestNormalize_HidesLiterals(t *testing.T) {
	sig := normalize(t, `query Q { user(id: 12345, name: "secret-value") { id } }`, "")
	assert.NotContains(t, sig, "12345")
	assert.NotContains(t, sig, "secret-value")
	assert.Contains(t, sig, "user")
	assert.NotContains(t, sig, "\n")
	assert.NotContains(t, sig, "  ")
}

func TestNormalize_SelectsOperation(t *testing.T) {
	doc := "query A { a } query B { b ...F } fragment F on Query { c }"

	a := normalize(t, doc, "A")
	b := normalize(t, doc, "B")
	assert.NotContains(t, a, "b")
	assert.NotContains(t, a, "fragment")
	assert.Contains(t, b, "fragment F")
	assert.Equal(t, normalize(t, "query A { a }", ""), a)

	_, err := ASTNormalizer{}.Normalize(doc, "")
	assert.ErrorIs(t, err, ErrOperationNotFound)
	_, err = ASTNormalizer{}.Normalize(doc, "C")
	assert.ErrorIs(t, err, ErrOperationNotFound)
}

func TestNormalize_TransitiveFragmentsAndCycles(t *testing.T) {
	q := "query Q { ...A } fragment A on Query { x ...B } fragment B on Query { y ...A } fragment C on Query { z }"
	sig := normalize(t, q, "")
	assert.Contains(t, sig, "fragment A")
	assert.Contains(t, sig, "fragment B")
	assert.NotContains(t, sig, "fragment C")
}

func TestNormalize_SyntaxError(t *testing.T) {
	_, err := ASTNormalizer{}.Normalize("query {", "")
	assert.ErrorIs(t, err, ErrNormalize)
}

func TestSelectionKeyGroups(t *testing.T) {
	sig := normalize(t, "query Q { ... on Query { b } ...F a } fragment F on Query { c }", "")
	ia := strings.Index(sig, " a ")
	iF := strings.Index(sig, "F")
	iOn := strings.Index(sig, "on Query")
	require.True(t, ia >= 0 && iF >= 0 && iOn >= 0, sig)
	assert.Less(t, ia, iF, sig)
	assert.Less(t, iF, iOn, sig)
}

func TestCompute(t *testing.T) {
	sig, err := Compute(nil, "{ ping }", "")
	require.NoError(t, err)
	assert.Equal(t, HashOf(sig.Signature), sig.Hash)
	assert.Len(t, sig.Hash, 64)
	assert.False(t, sig.IsZero())

	custom := NormalizerFunc(func(q, _ string) (string, error) { return "fixed", nil })
	sig, err = Compute(custom, "{ anything }", "")
	require.NoError(t, err)
	assert.Equal(t, QuerySignature{Signature: "fixed", Hash: HashOf("fixed")}, sig)
}
