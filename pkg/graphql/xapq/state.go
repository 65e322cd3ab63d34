package xapq

// State 请求的持久化查询状态。
type State int

// 状态取值，零值为 StateNone。
const (
	StateNone State = iota
	StateAPQ
	StateFullAPQ
	StateNotFound
)

var stateNames = [...]string{
	StateNone:     "NONE",
	StateAPQ:      "APQ",
	StateFullAPQ:  "FULL_APQ",
	StateNotFound: "NOT_FOUND",
}

// String 返回 NONE / APQ / FULL_APQ / NOT_FOUND。
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// TagValue 返回 persistedQueryType 标签值：经过分类但未使用协议的请求记为 NOT_APQ。
func (s State) TagValue() string {
	if s == StateNone {
		return "NOT_APQ"
	}
	return s.String()
}

// IsPersisted 报告请求是否使用了持久化查询协议。
func (s State) IsPersisted() bool {
	return s == StateAPQ || s == StateFullAPQ || s == StateNotFound
}
