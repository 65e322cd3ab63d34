package xgqlmetrics

import "context"

// ContextualTagCustomizer 为 gql.query 与 gql.error 追加请求上下文相关标签（如租户、客户端名）。
type ContextualTagCustomizer interface {
	ContextualTags(ctx context.Context) Tags
}

// ExecutionTagCustomizer 在操作结束时为 gql.query 追加标签。
type ExecutionTagCustomizer interface {
	ExecutionTags(ctx context.Context, op OperationInfo, errs []error) Tags
}

// FieldFetchTagCustomizer 为 gql.resolver 追加标签。
type FieldFetchTagCustomizer interface {
	FieldFetchTags(ctx context.Context, field Field, err error) Tags
}

// ContextualTagsFunc 函数适配器。
type ContextualTagsFunc func(ctx context.Context) Tags

// ContextualTags 实现 ContextualTagCustomizer。
func (f ContextualTagsFunc) ContextualTags(ctx context.Context) Tags { return f(ctx) }

// ExecutionTagsFunc 函数适配器。
type ExecutionTagsFunc func(ctx context.Context, op OperationInfo, errs []error) Tags

// ExecutionTags 实现 ExecutionTagCustomizer。
func (f ExecutionTagsFunc) ExecutionTags(ctx context.Context, op OperationInfo, errs []error) Tags {
	return f(ctx, op, errs)
}

// FieldFetchTagsFunc 函数适配器。
type FieldFetchTagsFunc func(ctx context.Context, field Field, err error) Tags

// FieldFetchTags 实现 FieldFetchTagCustomizer。
func (f FieldFetchTagsFunc) FieldFetchTags(ctx context.Context, field Field, err error) Tags {
	return f(ctx, field, err)
}
