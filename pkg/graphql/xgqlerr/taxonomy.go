package xgqlerr

import "net/http"

// ErrorType 错误的粗粒度分类。
type ErrorType string

// 支持的错误类型。
const (
	TypeUnknown            ErrorType = "UNKNOWN"
	TypeInternal           ErrorType = "INTERNAL"
	TypeNotFound           ErrorType = "NOT_FOUND"
	TypeUnauthenticated    ErrorType = "UNAUTHENTICATED"
	TypePermissionDenied   ErrorType = "PERMISSION_DENIED"
	TypeBadRequest         ErrorType = "BAD_REQUEST"
	TypeUnavailable        ErrorType = "UNAVAILABLE"
	TypeFailedPrecondition ErrorType = "FAILED_PRECONDITION"
)

var typeStatus = map[ErrorType]int{
	TypeUnknown:            http.StatusInternalServerError,
	TypeInternal:           http.StatusInternalServerError,
	TypeNotFound:           http.StatusNotFound,
	TypeUnauthenticated:    http.StatusUnauthorized,
	TypePermissionDenied:   http.StatusForbidden,
	TypeBadRequest:         http.StatusBadRequest,
	TypeUnavailable:        http.StatusServiceUnavailable,
	TypeFailedPrecondition: http.StatusBadRequest,
}

// IsValid 报告 t 是否属于封闭集合。
func (t ErrorType) IsValid() bool {
	_, ok := typeStatus[t]
	return ok
}

// HTTPStatus 返回该类型对应的 HTTP 状态码，未知类型按 500 处理。
func (t ErrorType) HTTPStatus() int {
	if s, ok := typeStatus[t]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// String 实现 fmt.Stringer。
func (t ErrorType) String() string { return string(t) }

// ParseErrorType 解析字符串，未知值返回 (TypeUnknown, false)。
func ParseErrorType(s string) (ErrorType, bool) {
	t := ErrorType(s)
	if t.IsValid() {
		return t, true
	}
	return TypeUnknown, false
}

// ErrorDetail 错误的细粒度分类。
type ErrorDetail string

// 支持的错误细节。
const (
	DetailUnknown              ErrorDetail = "UNKNOWN"
	DetailFieldNotFound        ErrorDetail = "FIELD_NOT_FOUND"
	DetailInvalidCursor        ErrorDetail = "INVALID_CURSOR"
	DetailUnimplemented        ErrorDetail = "UNIMPLEMENTED"
	DetailInvalidArgument      ErrorDetail = "INVALID_ARGUMENT"
	DetailInvalidSyntax        ErrorDetail = "INVALID_SYNTAX"
	DetailDeadlineExceeded     ErrorDetail = "DEADLINE_EXCEEDED"
	DetailServiceError         ErrorDetail = "SERVICE_ERROR"
	DetailThrottledCPU         ErrorDetail = "THROTTLED_CPU"
	DetailThrottledConcurrency ErrorDetail = "THROTTLED_CONCURRENCY"
	DetailEnhanceYourCalm      ErrorDetail = "ENHANCE_YOUR_CALM"
	DetailTooManyRequests      ErrorDetail = "TOO_MANY_REQUESTS"
	DetailTCPFailure           ErrorDetail = "TCP_FAILURE"
	DetailMissingResource      ErrorDetail = "MISSING_RESOURCE"
)

// detailParent 细节到父类型的固定映射。
var detailParent = map[ErrorDetail]ErrorType{
	DetailUnknown:              TypeInternal,
	DetailFieldNotFound:        TypeNotFound,
	DetailInvalidCursor:        TypeBadRequest,
	DetailUnimplemented:        TypeBadRequest,
	DetailInvalidArgument:      TypeBadRequest,
	DetailInvalidSyntax:        TypeBadRequest,
	DetailDeadlineExceeded:     TypeUnavailable,
	DetailServiceError:         TypeUnavailable,
	DetailThrottledCPU:         TypeUnavailable,
	DetailThrottledConcurrency: TypeUnavailable,
	DetailEnhanceYourCalm:      TypeUnavailable,
	DetailTooManyRequests:      TypeUnavailable,
	DetailTCPFailure:           TypeUnavailable,
	DetailMissingResource:      TypeNotFound,
}

// IsValid 报告 d 是否属于封闭集合。
func (d ErrorDetail) IsValid() bool {
	_, ok := detailParent[d]
	return ok
}

// Type 返回细节的父类型，未知细节返回 TypeInternal。
func (d ErrorDetail) Type() ErrorType {
	if t, ok := detailParent[d]; ok {
		return t
	}
	return TypeInternal
}

// String 实现 fmt.Stringer。
func (d ErrorDetail) String() string { return string(d) }

// ParseErrorDetail 解析字符串，未知值返回 (DetailUnknown, false)。
func ParseErrorDetail(s string) (ErrorDetail, bool) {
	d := ErrorDetail(s)
	if d.IsValid() {
		return d, true
	}
	return DetailUnknown, false
}

// Classification 一次分类的结果，零值表示"无错误"。
type Classification struct {
	Type   ErrorType
	Detail ErrorDetail
}

// Default 未能识别的错误使用的分类。
var Default = Classification{Type: TypeInternal, Detail: DetailUnknown}

// IsZero 报告是否为零值。
func (c Classification) IsZero() bool {
	return c.Type == "" && c.Detail == ""
}

// HTTPStatus 返回分类对应的 HTTP 状态码。
func (c Classification) HTTPStatus() int {
	return c.Type.HTTPStatus()
}

// String 返回 "TYPE/DETAIL" 形式，便于日志输出。
func (c Classification) String() string {
	return string(c.Type) + "/" + string(c.Detail)
}

// normalize 把非法值收敛到封闭集合内。
func (c Classification) normalize() Classification {
	if !c.Type.IsValid() {
		if c.Detail.IsValid() {
			c.Type = c.Detail.Type()
		} else {
			c.Type = TypeInternal
		}
	}
	if !c.Detail.IsValid() {
		c.Detail = DetailUnknown
	}
	return c
}
