// Package xlog 基于 log/slog 的结构化日志。
//
// # 设计
//
//   - 所有方法强制传入 context.Context，并只接受 slog.Attr
//   - Builder 一次性配置输出、级别、格式、轮转（first-error-wins）
//   - EnrichHandler 自动注入通过 [ContextWithAttrs] 挂在 context 上的请求级字段
//     （如 request_id、operation.name），便于按请求串联埋点日志
//   - 日志写入失败不向调用方返回错误，只计数并回调 OnError
//
// # 使用示例
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("debug").
//		SetFormat("json").
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//
//	ctx = xlog.ContextWithAttrs(ctx, xlog.RequestID(id))
//	logger.Warn(ctx, "tag customizer failed", xlog.Err(err))
//
// # 全局 Logger
//
// [Default] 惰性创建（stderr、Info、text），[SetDefault] 替换，[Nop] 返回丢弃一切的实现。
// 库代码通过 Option 注入 Logger，未注入时使用 Default()。
package xlog
