package xgqlerr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// 常用的固定分类。
var (
	Validation = Classification{Type: TypeBadRequest, Detail: DetailInvalidArgument}
	Syntax     = Classification{Type: TypeBadRequest, Detail: DetailInvalidSyntax}
)

// Classify 将错误映射为稳定的 (ErrorType, ErrorDetail)。
//
// nil 返回零值；无法识别的错误返回 [Default]。从不 panic。
func Classify(err error) Classification {
	return classify(err, Classification{})
}

// ClassifyOr 与 Classify 相同，但当错误没有显式声明分类时使用 fallback。
//
// 用于调用方已知错误来源的场景，例如解析阶段的错误一律按 [Syntax] 处理。
func ClassifyOr(err error, fallback Classification) Classification {
	return classify(err, fallback)
}

func classify(err error, fallback Classification) (c Classification) {
	if err == nil {
		return Classification{}
	}
	defer func() {
		// 自定义 Classified 实现 panic 时兜底
		if r := recover(); r != nil {
			c = Default
		}
	}()

	if declared, ok := declaredClassification(err); ok {
		return declared
	}
	if !fallback.IsZero() {
		return fallback.normalize()
	}
	if known, ok := wellKnownClassification(err); ok {
		return known
	}
	return Default
}

// declaredClassification 查找错误链中显式声明的分类。
func declaredClassification(err error) (Classification, bool) {
	var cl Classified
	if errors.As(err, &cl) && cl != nil {
		return Classification{Type: cl.ErrorType(), Detail: cl.ErrorDetail()}.normalize(), true
	}
	if ge, ok := asGQLError(err); ok && len(ge.Extensions) > 0 {
		rawType, hasType := ge.Extensions[ExtensionType].(string)
		rawDetail, hasDetail := ge.Extensions[ExtensionDetail].(string)
		if !hasType && !hasDetail {
			return Classification{}, false
		}
		t, _ := ParseErrorType(rawType)
		d, _ := ParseErrorDetail(rawDetail)
		if !hasType {
			t = ""
		}
		return Classification{Type: t, Detail: d}.normalize(), true
	}
	return Classification{}, false
}

// wellKnownClassification 匹配已知的错误类别。
func wellKnownClassification(err error) (Classification, bool) {
	if ge, ok := asGQLError(err); ok && ge.Rule != "" {
		return Validation, true
	}
	switch {
	case errors.Is(err, ErrSyntax):
		return Syntax, true
	case errors.Is(err, ErrBadRequest):
		return Validation, true
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return Classification{Type: TypeUnavailable, Detail: DetailDeadlineExceeded}, true
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return Classification{Type: TypeUnavailable, Detail: DetailTCPFailure}, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Classification{Type: TypeUnavailable, Detail: DetailDeadlineExceeded}, true
		}
		return Classification{Type: TypeUnavailable, Detail: DetailTCPFailure}, true
	}
	return Classification{}, false
}

func asGQLError(err error) (*gqlerror.Error, bool) {
	var ge *gqlerror.Error
	if errors.As(err, &ge) && ge != nil {
		return ge, true
	}
	return nil, false
}

// Path 提取错误携带的响应路径，没有路径时返回 nil。
func Path(err error) []any {
	var e *Error
	if errors.As(err, &e) && e != nil && len(e.Path) > 0 {
		return e.Path
	}
	if ge, ok := asGQLError(err); ok && len(ge.Path) > 0 {
		out := make([]any, 0, len(ge.Path))
		for _, p := range ge.Path {
			switch v := p.(type) {
			case ast.PathIndex:
				out = append(out, int(v))
			case ast.PathName:
				out = append(out, string(v))
			}
		}
		return out
	}
	return nil
}

// PathString 以 "[a, 0, b]" 形式渲染错误路径，没有路径时返回 "[]"。
func PathString(err error) string {
	return FormatPath(Path(err))
}

// FormatPath 以 "[a, 0, b]" 形式渲染路径。
func FormatPath(path []any) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, p := range path {
		if i > 0 {
			b.WriteString(", ")
		}
		switch v := p.(type) {
		case string:
			b.WriteString(v)
		case int:
			b.WriteString(strconv.Itoa(v))
		default:
			b.WriteString(fmt.Sprint(v))
		}
	}
	b.WriteByte(']')
	return b.String()
}
