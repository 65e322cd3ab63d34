package xgqlmetrics

import "github.com/omeyang/xgql/pkg/observability/xmetrics"

// Tags 标签集合，按值捕获不会被后续修改影响。
type Tags = xmetrics.Tags

// 标签键。
const (
	TagOutcome            = "outcome"
	TagOperation          = "operation"
	TagOperationName      = "operation.name"
	TagComplexity         = "query.complexity"
	TagSignatureHash      = "query.sig.hash"
	TagPersistedQueryType = "persistedQueryType"
	TagField              = "field"
	TagErrorCode          = "errorCode"
	TagErrorDetail        = "errorDetail"
	TagPath               = "path"
	TagPersistedQueryID   = "persistedQueryId"
)

// 标签值。
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"

	// ValueNone 缺失值。
	ValueNone = "none"
	// AnonymousName 无法得到操作名时的取值。
	AnonymousName = "anonymous"
	// DerivedNamePrefix 由首个顶层字段派生的操作名前缀。
	DerivedNamePrefix = AnonymousName + "_"
)

// DefaultLimitedDimensions 默认经过基数限制的标签维度。
var DefaultLimitedDimensions = []string{
	TagOperationName,
	TagSignatureHash,
	TagPersistedQueryID,
	TagPath,
}

// NewTags 从键值对创建 Tags。
func NewTags(kv ...string) Tags {
	return xmetrics.NewTags(kv...)
}

func orNone(s string) string {
	if s == "" {
		return ValueNone
	}
	return s
}

func outcomeOf(failed bool) string {
	if failed {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
