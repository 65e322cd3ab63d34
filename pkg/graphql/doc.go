// Package graphql 提供 GraphQL 服务端通用组件。
//
// 子包列表：
//   - xgqlerr: 封闭的错误分类体系与 gqlparser 错误转换
//   - xgqlsig: 查询签名（规范化 + SHA-256），本地缓存与 Redis 共享
//   - xapq: Automatic Persisted Queries 分类与存储
//   - xdataloader: 批量加载函数的耗时与键数埋点
package graphql
