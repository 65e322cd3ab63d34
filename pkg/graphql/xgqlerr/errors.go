package xgqlerr

import "errors"

// 预定义的错误类别哨兵，用于 errors.Is 匹配。
var (
	// ErrSyntax 表示查询文本无法解析。
	ErrSyntax = errors.New("xgqlerr: invalid syntax")

	// ErrBadRequest 表示请求本身不合法（缺少查询、变量格式错误等）。
	ErrBadRequest = errors.New("xgqlerr: bad request")
)

// ExtensionType / ExtensionDetail 是 GraphQL 错误 extensions 中携带分类的字段名。
const (
	ExtensionType   = "errorType"
	ExtensionDetail = "errorDetail"
)
