// Package xgqlmetrics GraphQL 执行生命周期埋点。
//
// 执行引擎在每个阶段调用 [RequestMetrics] 的 hook，本包据此构建标签、
// 分类错误并向 [xmetrics.Sink] 发射有界的时序：
//
//	CREATED → PARSING → PARSE_FAILED
//	                  → VALIDATING → VALIDATION_FAILED
//	                               → EXECUTING → (字段获取)* → COMPLETED | EXECUTION_FAILED
//	CREATED → PERSISTED_QUERY_NOT_FOUND
//
// 终止状态之后的 hook 被忽略并记录 debug 日志，从不 panic。
//
// # 指标（默认前缀 gql）
//
//   - gql.query：每个操作一次的计时器，标签 outcome、operation、operation.name、
//     query.complexity、query.sig.hash、persistedQueryType 以及自定义标签
//   - gql.resolver：每个字段一次的计时器，标签 field、outcome 与字段开始时捕获的操作标签
//   - gql.error：每个顶层错误一次的计数器，标签 errorCode、errorDetail、path、outcome=failure
//   - gql.persistedQueryNotFound：APQ 未命中计数器，标签 persistedQueryId
//
// 缺失的标签值统一为 "none"。operation.name、query.sig.hash、persistedQueryId、path
// 默认经过 [xcardinality] 限流，每个维度最多 L 个真实值加一个 "limited"。
//
// # 使用
//
//	inst, err := xgqlmetrics.New(
//		xgqlmetrics.WithMeterProvider(mp),
//		xgqlmetrics.WithSignatureRepository(repo),
//	)
//	rm := inst.BeginRequest(ctx)
//	rm.ParseStart()
//	doc, err := parse(query)
//	rm.ParseEnd(err)
//	...
//	info, _ := xgqlmetrics.OperationFromDocument(doc, opName, query)
//	rm.ExecuteStart(info)
//	f := rm.FieldStart(ctx, xgqlmetrics.Field{ParentType: "Query", Name: "ping"})
//	f.End(resolveErr) // 同步或异步完成都走同一个回调
//	rm.ExecuteEnd(errs)
package xgqlmetrics
