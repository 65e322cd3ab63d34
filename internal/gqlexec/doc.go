// Package gqlexec 是一个最小的 GraphQL 执行器，用于端到端驱动 xgqlmetrics 的生命周期 hook。
//
// 它覆盖 query 与 mutation、fragment、@skip/@include、同步与异步解析器、
// 以及 APQ 分类；不支持 subscription、不做 non-null 传播。
// 仅供测试与 demo 使用，不是产品接口。
package gqlexec
