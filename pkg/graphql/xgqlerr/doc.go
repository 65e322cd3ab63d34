// Package xgqlerr 定义 GraphQL 错误分类体系（ErrorType × ErrorDetail）。
//
// # 分类体系
//
// ErrorType 是粗粒度分类，每个类型映射到一个 HTTP 状态码（[ErrorType.HTTPStatus]）；
// ErrorDetail 是细粒度分类，每个细节有固定的父类型（[ErrorDetail.Type]）。
// 两者都是封闭集合，未知值一律归入 UNKNOWN。
//
// # 分类规则
//
// [Classify] 按以下顺序匹配，首个命中即返回：
//   - 错误链中任意一层实现了 [Classified]
//   - gqlparser 错误的 extensions 中声明了 errorType / errorDetail
//   - 校验错误（gqlerror.Rule 非空）→ {BAD_REQUEST, INVALID_ARGUMENT}
//   - 语法错误（[ErrSyntax]）→ {BAD_REQUEST, INVALID_SYNTAX}
//   - [ErrBadRequest] → {BAD_REQUEST, INVALID_ARGUMENT}
//   - context.DeadlineExceeded → {UNAVAILABLE, DEADLINE_EXCEEDED}
//   - 网络错误 → {UNAVAILABLE, TCP_FAILURE}
//   - 其余 → {INTERNAL, UNKNOWN}
//
// Classify 从不 panic，也从不返回错误：分类是指标的旁路，不能影响查询结果。
//
// # 使用示例
//
//	err := xgqlerr.New(xgqlerr.DetailFieldNotFound, "user not found")
//	c := xgqlerr.Classify(err)
//	fmt.Println(c.Type, c.Detail) // NOT_FOUND FIELD_NOT_FOUND
package xgqlerr
