package xlog

import (
	"log/slog"
	"time"
)

// 标准字段名。
const (
	KeyError     = "error"
	KeyDuration  = "duration"
	KeyComponent = "component"
	KeyRequestID = "request_id"
	KeyOperation = "operation.name"
	KeyField     = "field"
	KeyMetric    = "metric"
	KeyPanic     = "panic"
)

// Err 错误属性，nil 时返回会被 slog 忽略的空属性。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 人类可读的耗时属性。
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Component 组件名属性。
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// RequestID 请求 ID 属性。
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// Operation GraphQL 操作名属性。
func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// Field 字段坐标属性（ParentType.fieldName）。
func Field(coordinate string) slog.Attr {
	return slog.String(KeyField, coordinate)
}

// Metric 指标名属性。
func Metric(name string) slog.Attr {
	return slog.String(KeyMetric, name)
}

// Panic recover 得到的值。
func Panic(v any) slog.Attr {
	return slog.Any(KeyPanic, v)
}
