package xmetrics

import (
	"context"
	"time"
)

// Sink 指标发射目标。实现必须并发安全且不阻塞调用方。
type Sink interface {
	// Count 计数器 name 增加 n。
	Count(ctx context.Context, name string, n int64, tags Tags)
	// Record 计时器 name 记录一次耗时。
	Record(ctx context.Context, name string, d time.Duration, tags Tags)
}

// NoopSink 丢弃一切。
type NoopSink struct{}

// Count 空实现。
func (NoopSink) Count(context.Context, string, int64, Tags) {}

// Record 空实现。
func (NoopSink) Record(context.Context, string, time.Duration, Tags) {}
