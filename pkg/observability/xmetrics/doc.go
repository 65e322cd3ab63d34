// Package xmetrics 计数器与计时器的发射层。
//
// 埋点代码只依赖 [Sink]：Count 递增计数器，Record 记录一次耗时。
// [OTelSink] 把它们映射到 OpenTelemetry 的 Int64Counter 与 Float64Histogram（单位秒），
// 按指标名惰性创建并缓存 instrument。时序后端（Prometheus、stdout 等）由调用方
// 通过 MeterProvider 决定，本包不关心。
//
// [Tags] 是有序、键唯一的字符串标签集合，追加操作返回新值，
// 已经交给 Sink 的标签不会被后续修改影响。
//
// [Tracer] 为长流程提供可选的 span，End 幂等。
package xmetrics
