// Package xapq 实现 Automatic Persisted Queries 的请求分类。
//
// 请求通过 extensions.persistedQuery{version, sha256Hash} 声明查询哈希，
// 分类规则：
//
//	| 哈希 | 查询文本 | Store 命中 | 状态          |
//	|------|----------|------------|---------------|
//	| 无   | 有       | -          | StateNone     |
//	| 有   | 有       | -          | StateFullAPQ  | 写入 hash → text
//	| 有   | 无       | 命中       | StateAPQ      | 返回存储的文本
//	| 有   | 无       | 未命中     | StateNotFound | 返回 ErrPersistedQueryNotFound
//
// 分类发生在解析与校验之前。Store 读取故障按未命中处理（客户端会带全文重发），
// 写入故障只记录日志，不影响本次请求。
//
// 存储实现：[MemoryStore]（ristretto，按文本长度计成本）与 [RedisStore]（go-redis，
// 带 TTL，写入经 retry-go 重试）。
package xapq
