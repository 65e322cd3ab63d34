// Package xgqlsig 计算并缓存 GraphQL 查询签名。
//
// 签名是查询文本的结构化规范形式，哈希是签名的 SHA-256 十六进制摘要。
// 同一 (operationName, query) 永远得到相同的签名与哈希，因此可以作为
// 低基数、稳定的仪表盘分组键，替代原始查询文本。
//
// # 规范化规则（ASTNormalizer）
//
//  1. 只保留被选中的 operation（按名称，或文档中唯一的那个）及其传递引用的 fragment
//  2. 去掉字段别名
//  3. 隐藏字面量：数字 → 0，字符串 → ""，布尔 → false，列表 → []，对象 → {}；
//     枚举、null 与变量保持原样，变量默认值同样隐藏
//  4. 排序：变量定义、参数、指令按名称；选择集中字段按名称、fragment spread 按名称、
//     inline fragment 按类型条件，三类依次排列；fragment 定义按名称
//  5. 使用 gqlparser formatter 打印，空白折叠为单个空格；注释在解析阶段已丢弃
//
// 仪表盘依赖规则的稳定性而不是具体形式，修改规则等同于修改所有历史哈希。
// 需要其他规则时实现 [Normalizer] 并通过 [WithNormalizer] 注入。
//
// # 缓存
//
// [Repository] 使用 hashicorp LRU（TTL 在读取时惰性过期）+ singleflight：
// 缓存启用时每个键最多计算一次，并发的相同请求共享同一次计算；
// 关闭缓存后每次直接计算，结果仍然确定。可选的 [Store]（如 [RedisStore]）
// 在本地未命中时被查询，受 gobreaker 熔断保护，任何存储故障都降级为直接计算。
package xgqlsig
