package gqlexec

import (
	"context"
	"errors"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"

	"github.com/omeyang/xgql/pkg/graphql/xapq"
	"github.com/omeyang/xgql/pkg/graphql/xgqlerr"
	"github.com/omeyang/xgql/pkg/observability/xgqlmetrics"
	"github.com/omeyang/xgql/pkg/observability/xlog"
)

// Request GraphQL over HTTP 请求体。
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

// Response GraphQL 响应。
type Response struct {
	Data   map[string]any `json:"data"`
	Errors gqlerror.List  `json:"errors,omitempty"`
}

// Option 配置 Executor。
type Option func(*Executor)

// WithPersistedQueries 启用 APQ 分类。
func WithPersistedQueries(c *xapq.Classifier) Option {
	return func(e *Executor) { e.apq = c }
}

// WithLogger 设置日志，nil 被忽略。
func WithLogger(l xlog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// Executor 带埋点的执行器，并发安全。
type Executor struct {
	schema *Schema
	inst   *xgqlmetrics.Instrumentation
	apq    *xapq.Classifier
	logger xlog.Logger
}

// New 创建执行器。inst 为 nil 时不埋点（所有 hook 对 nil 安全）。
func New(schema *Schema, inst *xgqlmetrics.Instrumentation, opts ...Option) *Executor {
	e := &Executor{schema: schema, inst: inst}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.logger == nil {
		e.logger = xlog.Default()
	}
	e.logger = e.logger.With(xlog.Component("gqlexec"))
	return e
}

// Execute 执行一个请求。请求级错误（APQ 未命中、语法、校验）时 Data 为 nil。
func (e *Executor) Execute(ctx context.Context, req Request) *Response {
	rm := e.inst.BeginRequest(ctx)
	if rm != nil {
		ctx = rm.Context()
	}

	query, resp := e.classify(ctx, rm, req)
	if resp != nil {
		return resp
	}

	rm.ParseStart()
	doc, perr := parser.ParseQuery(&ast.Source{Name: "request", Input: query})
	if perr != nil {
		rm.ParseEnd(perr)
		return errorResponse(perr)
	}
	rm.ParseEnd(nil)

	rm.ValidationStart()
	verrs := toErrors(validator.Validate(e.schema.schema, doc))
	info, ok := xgqlmetrics.OperationFromDocument(doc, req.OperationName, query)
	if len(verrs) == 0 && !ok {
		verrs = append(verrs, xgqlerr.Newf(xgqlerr.DetailInvalidArgument, "operation %q not found", req.OperationName))
	}
	if len(verrs) > 0 {
		rm.ValidationEnd(verrs)
		return errorsResponse(verrs)
	}
	rm.ValidationEnd(nil)

	rm.ExecuteStart(info)
	x := &execution{
		schema: e.schema,
		doc:    doc,
		rm:     rm,
		logger: e.logger,
	}
	data, errs := x.run(ctx, info.Operation, req.Variables)
	rm.ExecuteEnd(errs)

	resp = errorsResponse(errs)
	resp.Data = data
	return resp
}

// classify 处理 APQ。返回要执行的查询文本；请求需要短路时返回非 nil 的响应。
func (e *Executor) classify(ctx context.Context, rm *xgqlmetrics.RequestMetrics, req Request) (string, *Response) {
	if e.apq == nil {
		return req.Query, nil
	}
	pq, err := xapq.RequestFromExtensions(req.Query, req.Extensions)
	var res xapq.Result
	if err == nil {
		res, err = e.apq.Classify(ctx, pq)
	}
	switch {
	case errors.Is(err, xapq.ErrPersistedQueryNotFound):
		rm.PersistedQueryNotFound(res.Hash)
		return "", errorResponse(err)
	case err != nil:
		// 非法的 APQ 请求按请求解析失败处理，分类取错误自身声明的 BAD_REQUEST
		e.logger.Debug(ctx, "persisted query rejected", xlog.Err(err))
		rm.ParseStart()
		rm.ParseEnd(err)
		return "", errorResponse(err)
	}
	rm.SetPersistedQueryState(res.State)
	return res.Query, nil
}

func errorResponse(err error) *Response {
	return errorsResponse([]error{err})
}

// errorsResponse 转换错误，extensions 中带 errorType 与 errorDetail。
func errorsResponse(errs []error) *Response {
	resp := &Response{}
	for _, err := range errs {
		resp.Errors = append(resp.Errors, xgqlerr.ToGQLError(err))
	}
	return resp
}

func toErrors(list gqlerror.List) []error {
	out := make([]error, 0, len(list))
	for _, e := range list {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}
