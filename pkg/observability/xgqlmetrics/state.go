package xgqlmetrics

// State 请求生命周期状态。
type State int

// 生命周期状态。
const (
	StateCreated State = iota
	StateParsing
	StateParseFailed
	StateValidating
	StateValidationFailed
	StateExecuting
	StateCompleted
	StateExecutionFailed
	StatePersistedQueryNotFound
)

var stateNames = [...]string{
	StateCreated:                "CREATED",
	StateParsing:                "PARSING",
	StateParseFailed:            "PARSE_FAILED",
	StateValidating:             "VALIDATING",
	StateValidationFailed:       "VALIDATION_FAILED",
	StateExecuting:              "EXECUTING",
	StateCompleted:              "COMPLETED",
	StateExecutionFailed:        "EXECUTION_FAILED",
	StatePersistedQueryNotFound: "PERSISTED_QUERY_NOT_FOUND",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// Terminal 报告是否为终止状态。
func (s State) Terminal() bool {
	switch s {
	case StateParseFailed, StateValidationFailed, StateCompleted,
		StateExecutionFailed, StatePersistedQueryNotFound:
		return true
	}
	return false
}
