package xgqlerr

import (
	"fmt"
	"maps"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// Classified 由显式声明分类的错误实现。
// [Classify] 在错误链中发现该能力时直接采用其声明。
type Classified interface {
	ErrorType() ErrorType
	ErrorDetail() ErrorDetail
}

// Error 是携带分类的 GraphQL 错误。
//
// 与 gqlerror.Error 不同，Error 持有原始 cause，可通过 errors.Is/As 穿透。
type Error struct {
	Message        string
	Classification Classification
	// Path 响应路径，元素为 string（字段名）或 int（列表下标）。
	Path       []any
	Extensions map[string]any
	cause      error
}

var _ Classified = (*Error)(nil)

// New 创建错误，类型取细节的父类型。
func New(detail ErrorDetail, msg string) *Error {
	return &Error{
		Message:        msg,
		Classification: Classification{Type: detail.Type(), Detail: detail}.normalize(),
	}
}

// Newf 与 New 相同，支持格式化消息。
func Newf(detail ErrorDetail, format string, args ...any) *Error {
	return New(detail, fmt.Sprintf(format, args...))
}

// NewTyped 显式指定类型与细节。
func NewTyped(t ErrorType, detail ErrorDetail, msg string) *Error {
	return &Error{
		Message:        msg,
		Classification: Classification{Type: t, Detail: detail}.normalize(),
	}
}

// Wrap 用指定细节包装 err。err 为 nil 时返回 nil。
func Wrap(err error, detail ErrorDetail) *Error {
	if err == nil {
		return nil
	}
	e := New(detail, err.Error())
	e.cause = err
	return e
}

// WithPath 返回带响应路径的副本。
func (e *Error) WithPath(path ...any) *Error {
	cp := *e
	cp.Path = append([]any(nil), path...)
	return &cp
}

// AtPath 把任意错误绑定到响应路径。
//
// *Error 直接返回带路径的副本；其他错误按当前分类包装，cause 保留。
func AtPath(err error, path ...any) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok && e != nil {
		return e.WithPath(path...)
	}
	c := Classify(err)
	return &Error{
		Message:        err.Error(),
		Classification: c,
		Path:           append([]any(nil), path...),
		cause:          err,
	}
}

// WithExtension 返回附加扩展字段的副本。
func (e *Error) WithExtension(key string, value any) *Error {
	cp := *e
	cp.Extensions = maps.Clone(e.Extensions)
	if cp.Extensions == nil {
		cp.Extensions = make(map[string]any, 1)
	}
	cp.Extensions[key] = value
	return &cp
}

// Error 实现 error 接口。
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Classification.String()
}

// Unwrap 返回原始 cause。
func (e *Error) Unwrap() error { return e.cause }

// ErrorType 实现 Classified。
func (e *Error) ErrorType() ErrorType { return e.Classification.Type }

// ErrorDetail 实现 Classified。
func (e *Error) ErrorDetail() ErrorDetail { return e.Classification.Detail }

// ToGQLError 转换为 gqlparser 错误，extensions 中写入分类。
func (e *Error) ToGQLError() *gqlerror.Error {
	ext := make(map[string]any, len(e.Extensions)+2)
	maps.Copy(ext, e.Extensions)
	ext[ExtensionType] = string(e.Classification.Type)
	ext[ExtensionDetail] = string(e.Classification.Detail)
	return &gqlerror.Error{
		Message:    e.Error(),
		Path:       toASTPath(e.Path),
		Extensions: ext,
	}
}

// mergeCause 把 cause 链上 gqlerror.Error 的位置信息并入 out。
func (e *Error) mergeCause(out *gqlerror.Error) *gqlerror.Error {
	if e.cause == nil {
		return out
	}
	ge, ok := asGQLError(e.cause)
	if !ok {
		return out
	}
	// Wrap/AtPath 用 cause.Error() 作为消息，其中含 gqlerror 的位置前缀
	if e.Message == e.cause.Error() {
		out.Message = ge.Message
	}
	out.Locations = ge.Locations
	out.Rule = ge.Rule
	if len(out.Path) == 0 {
		out.Path = ge.Path
	}
	for k, v := range ge.Extensions {
		if _, exists := out.Extensions[k]; !exists {
			out.Extensions[k] = v
		}
	}
	return out
}

// ToGQLError 把任意错误转换为带分类 extensions 的 gqlparser 错误。
//
// *Error 的路径与分类优先，其 cause 中的 gqlerror.Error 只贡献 locations 和缺失的扩展字段。
// 其他已是 gqlerror.Error 的错误保留原有 message/path/locations，只补充缺失的分类字段。
func ToGQLError(err error) *gqlerror.Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok && e != nil {
		return e.mergeCause(e.ToGQLError())
	}

	c := Classify(err)
	if ge, ok := asGQLError(err); ok {
		cp := *ge
		cp.Extensions = maps.Clone(ge.Extensions)
		if cp.Extensions == nil {
			cp.Extensions = make(map[string]any, 2)
		}
		if _, exists := cp.Extensions[ExtensionType]; !exists {
			cp.Extensions[ExtensionType] = string(c.Type)
		}
		if _, exists := cp.Extensions[ExtensionDetail]; !exists {
			cp.Extensions[ExtensionDetail] = string(c.Detail)
		}
		return &cp
	}

	out := &gqlerror.Error{
		Message: err.Error(),
		Extensions: map[string]any{
			ExtensionType:   string(c.Type),
			ExtensionDetail: string(c.Detail),
		},
	}
	if path := Path(err); len(path) > 0 {
		out.Path = toASTPath(path)
	}
	return out
}

func toASTPath(path []any) ast.Path {
	if len(path) == 0 {
		return nil
	}
	out := make(ast.Path, 0, len(path))
	for _, p := range path {
		switch v := p.(type) {
		case int:
			out = append(out, ast.PathIndex(v))
		case string:
			out = append(out, ast.PathName(v))
		default:
			out = append(out, ast.PathName(fmt.Sprint(v)))
		}
	}
	return out
}
