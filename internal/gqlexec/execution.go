package gqlexec

import (
	"context"
	"reflect"
	"sync"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/validator"

	"github.com/omeyang/xgql/pkg/graphql/xgqlerr"
	"github.com/omeyang/xgql/pkg/observability/xgqlmetrics"
	"github.com/omeyang/xgql/pkg/observability/xlog"
)

// execution 单次操作的执行状态。
type execution struct {
	schema *Schema
	doc    *ast.QueryDocument
	rm     *xgqlmetrics.RequestMetrics
	logger xlog.Logger
	vars   map[string]any

	mu   sync.Mutex
	errs []error
}

func (x *execution) addError(err error) {
	x.mu.Lock()
	x.errs = append(x.errs, err)
	x.mu.Unlock()
}

// run 执行操作，返回数据与顶层错误（每个失败字段一个）。
func (x *execution) run(ctx context.Context, op *ast.OperationDefinition, variables map[string]any) (map[string]any, []error) {
	vars, verr := validator.VariableValues(x.schema.schema, op, variables)
	if verr != nil {
		return nil, []error{xgqlerr.Wrap(verr, xgqlerr.DetailInvalidArgument)}
	}
	x.vars = vars

	var root *ast.Definition
	switch op.Operation {
	case ast.Query:
		root = x.schema.schema.Query
	case ast.Mutation:
		root = x.schema.schema.Mutation
	default:
		return nil, []error{xgqlerr.Newf(xgqlerr.DetailUnimplemented, "%s operations are not supported", op.Operation)}
	}
	if root == nil {
		return nil, []error{xgqlerr.Newf(xgqlerr.DetailInvalidArgument, "schema has no %s root", op.Operation)}
	}

	// mutation 的顶层字段按顺序执行
	data := x.selectionSet(ctx, root, op.SelectionSet, nil, nil, op.Operation == ast.Mutation)

	x.mu.Lock()
	defer x.mu.Unlock()
	return data, x.errs
}

// selectionSet 解析对象的选择集。异步解析器并发完成，返回前等待全部结束。
func (x *execution) selectionSet(ctx context.Context, typ *ast.Definition, set ast.SelectionSet, source any, path []any, serial bool) map[string]any {
	fields := x.collectFields(typ, set, map[string]bool{})
	out := make(map[string]any, len(fields))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, f := range fields {
		key := responseKey(f)
		fieldPath := appendPath(path, key)
		value, async := x.resolveField(ctx, typ, f, source, fieldPath)
		if async == nil || serial {
			if async != nil {
				value = async()
			}
			mu.Lock()
			out[key] = value
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := async()
			mu.Lock()
			out[key] = v
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}

// resolveField 解析单个字段。解析器返回 Async 时 value 为 nil，由调用方执行 async。
func (x *execution) resolveField(ctx context.Context, typ *ast.Definition, f *ast.Field, source any, path []any) (value any, async func() any) {
	if f.Name == "__typename" {
		return typ.Name, nil
	}
	def := typ.Fields.ForName(f.Name)
	if def == nil {
		// 校验阶段已拒绝未知字段
		return nil, nil
	}

	coord := typ.Name + "." + f.Name
	resolve, custom := x.schema.resolvers[coord]
	fetch := x.rm.FieldStart(ctx, xgqlmetrics.Field{
		ParentType: typ.Name,
		Name:       f.Name,
		Path:       path,
		Trivial:    !custom,
		Definition: fieldDefinition{def},
	})
	if !custom {
		v := property(source, f.Name)
		fetch.End(nil)
		return x.complete(ctx, def.Type, f.SelectionSet, v, path), nil
	}

	params := ResolveParams{Source: source, Args: f.ArgumentMap(x.vars), Field: f, Path: path}
	v, err := x.call(ctx, coord, func() (any, error) { return resolve(ctx, params) })
	if a, ok := v.(Async); ok && err == nil {
		return nil, func() any {
			v, err := x.call(ctx, coord, func() (any, error) { return a(ctx) })
			return x.finish(ctx, fetch, def, f, v, err, path)
		}
	}
	return x.finish(ctx, fetch, def, f, v, err, path), nil
}

// finish 结束字段获取并补全值。字段耗时只覆盖解析器本身，子字段各自计时。
func (x *execution) finish(ctx context.Context, fetch *xgqlmetrics.FieldFetch, def *ast.FieldDefinition, f *ast.Field, v any, err error, path []any) any {
	fetch.End(err)
	if err != nil {
		x.addError(xgqlerr.AtPath(err, path...))
		return nil
	}
	return x.complete(ctx, def.Type, f.SelectionSet, v, path)
}

// call 执行解析器，panic 转为 INTERNAL 错误。
func (x *execution) call(ctx context.Context, coord string, fn func() (any, error)) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			x.logPanic(ctx, coord, r)
			v, err = nil, xgqlerr.Newf(xgqlerr.DetailUnknown, "resolver %s panicked", coord)
		}
	}()
	return fn()
}

func (x *execution) logPanic(ctx context.Context, coord string, r any) {
	x.logger.Error(ctx, "resolver panic recovered", xlog.Field(coord), xlog.Panic(r))
}

// complete 按字段类型补全值：列表逐项补全，对象类型递归解析子选择集。
func (x *execution) complete(ctx context.Context, t *ast.Type, set ast.SelectionSet, v any, path []any) any {
	if v == nil || t == nil {
		return nil
	}
	if t.Elem != nil {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			x.addError(xgqlerr.Newf(xgqlerr.DetailUnknown, "expected list, got %T", v).WithPath(path...))
			return nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = x.complete(ctx, t.Elem, set, rv.Index(i).Interface(), appendPath(path, i))
		}
		return out
	}

	def := x.schema.schema.Types[t.NamedType]
	if def == nil {
		return v
	}
	switch def.Kind {
	case ast.Object:
		return x.selectionSet(ctx, def, set, v, path, false)
	case ast.Interface, ast.Union:
		concrete := x.concreteType(def, v)
		if concrete == nil {
			x.addError(xgqlerr.Newf(xgqlerr.DetailUnknown, "cannot resolve concrete type of %s", def.Name).WithPath(path...))
			return nil
		}
		return x.selectionSet(ctx, concrete, set, v, path, false)
	default:
		return v
	}
}

// concreteType 按值中的 __typename 确定抽象类型的具体类型。
func (x *execution) concreteType(abstract *ast.Definition, v any) *ast.Definition {
	name, _ := property(v, "__typename").(string)
	for _, d := range x.schema.schema.GetPossibleTypes(abstract) {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// collectFields 展开 fragment 并合并同名响应键的字段。
func (x *execution) collectFields(typ *ast.Definition, set ast.SelectionSet, visited map[string]bool) []*ast.Field {
	var (
		order []string
		byKey = map[string]*ast.Field{}
	)
	var walk func(set ast.SelectionSet)
	walk = func(set ast.SelectionSet) {
		for _, sel := range set {
			switch s := sel.(type) {
			case *ast.Field:
				if !x.included(s.Directives) {
					continue
				}
				key := responseKey(s)
				if prev, ok := byKey[key]; ok {
					merged := *prev
					merged.SelectionSet = append(append(ast.SelectionSet{}, prev.SelectionSet...), s.SelectionSet...)
					byKey[key] = &merged
					continue
				}
				order = append(order, key)
				byKey[key] = s
			case *ast.InlineFragment:
				if x.included(s.Directives) && x.applies(typ, s.TypeCondition) {
					walk(s.SelectionSet)
				}
			case *ast.FragmentSpread:
				if visited[s.Name] || !x.included(s.Directives) {
					continue
				}
				frag := x.doc.Fragments.ForName(s.Name)
				if frag == nil || !x.applies(typ, frag.TypeCondition) {
					continue
				}
				visited[s.Name] = true
				walk(frag.SelectionSet)
			}
		}
	}
	walk(set)

	out := make([]*ast.Field, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out
}

// applies 报告类型条件是否匹配 typ。
func (x *execution) applies(typ *ast.Definition, cond string) bool {
	if cond == "" || cond == typ.Name {
		return true
	}
	abstract := x.schema.schema.Types[cond]
	if abstract == nil {
		return false
	}
	for _, d := range x.schema.schema.GetPossibleTypes(abstract) {
		if d.Name == typ.Name {
			return true
		}
	}
	return false
}

// included 处理 @skip 与 @include。
func (x *execution) included(dirs ast.DirectiveList) bool {
	if d := dirs.ForName("skip"); d != nil {
		if skip, _ := d.ArgumentMap(x.vars)["if"].(bool); skip {
			return false
		}
	}
	if d := dirs.ForName("include"); d != nil {
		if include, _ := d.ArgumentMap(x.vars)["if"].(bool); !include {
			return false
		}
	}
	return true
}

func responseKey(f *ast.Field) string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

func appendPath(path []any, elem any) []any {
	out := make([]any, len(path), len(path)+1)
	copy(out, path)
	return append(out, elem)
}

// property 读取父对象属性，支持 map[string]any 与实现 Property 的类型。
func property(source any, name string) any {
	switch s := source.(type) {
	case map[string]any:
		return s[name]
	case interface{ Property(string) any }:
		return s.Property(name)
	default:
		return nil
	}
}
