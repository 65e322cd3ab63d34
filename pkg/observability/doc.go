// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展
//   - xmetrics: 指标写入与追踪的底层抽象（Sink、Tags、Tracer）
//   - xcardinality: 有界基数账本，超限取值折叠为哨兵值
//   - xgqlmetrics: GraphQL 执行生命周期埋点
//
// 设计原则：
//   - 遵循 OpenTelemetry 语义规范
//   - 埋点失败不影响业务结果
//   - 标签基数有上界
package observability
