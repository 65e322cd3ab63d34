// Package xcardinality 限制指标标签取值的基数。
//
// 客户端可以构造任意多的 operation name、persisted query hash，
// 若直接作为标签写入时序后端，序列数会无限增长。Ledger 为每个
// (指标名, 标签维度) 维护一个容量为 L 的已接受取值集合：
//
//   - 取值已在集合中：原样返回
//   - 集合未满：加入集合并原样返回
//   - 集合已满：返回哨兵值（默认 "limited"），集合不变
//
// 因此每个维度最多产生 L+1 个不同取值，与请求量无关。
//
// # 并发模型
//
// 集合按 xxhash 分片，分片内使用读写锁；容量通过原子计数器 CAS 预留，
// 同一取值的并发插入只计一次，两个请求不可能同时拿到最后一个槽位。
//
// # 使用示例
//
//	ledger, _ := xcardinality.New(xcardinality.WithLimit(100))
//	resolver := xcardinality.NewResolver(ledger, "operation.name")
//	name := resolver.Resolve("gql.query", "operation.name", opName)
package xcardinality
