package gqlexec

import (
	"context"
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// DirectiveNoInstrumentation 字段定义上的该指令关闭 gql.resolver 埋点。
const DirectiveNoInstrumentation = "noInstrumentation"

// ResolveParams 解析器参数。
type ResolveParams struct {
	// Source 父对象，根字段为 nil。
	Source any
	Args   map[string]any
	Field  *ast.Field
	Path   []any
}

// ResolveFunc 字段解析器。返回 [Async] 时在独立 goroutine 中完成。
type ResolveFunc func(ctx context.Context, p ResolveParams) (any, error)

// Async 异步结果，由执行器在独立 goroutine 中调用。
type Async func(ctx context.Context) (any, error)

// Resolvers 以 "Type.field" 为键的解析器表。没有解析器的字段直接读取父对象
// （map[string]any）的同名属性，视为 trivial 字段。
type Resolvers map[string]ResolveFunc

// Schema 可执行的 schema。
type Schema struct {
	schema    *ast.Schema
	resolvers Resolvers
}

// NewSchema 加载 SDL 并绑定解析器。解析器引用的字段必须存在。
func NewSchema(sdl string, resolvers Resolvers) (*Schema, error) {
	s, gerr := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: sdl})
	if gerr != nil {
		return nil, fmt.Errorf("gqlexec: load schema: %w", gerr)
	}
	for coord := range resolvers {
		if fieldByCoordinate(s, coord) == nil {
			return nil, fmt.Errorf("gqlexec: resolver for unknown field %s", coord)
		}
	}
	return &Schema{schema: s, resolvers: resolvers}, nil
}

// AST 返回底层 schema。
func (s *Schema) AST() *ast.Schema { return s.schema }

func fieldByCoordinate(s *ast.Schema, coord string) *ast.FieldDefinition {
	typeName, fieldName, ok := strings.Cut(coord, ".")
	if !ok {
		return nil
	}
	def := s.Types[typeName]
	if def == nil {
		return nil
	}
	return def.Fields.ForName(fieldName)
}

// fieldDefinition 包装字段定义，实现 xgqlmetrics.InstrumentationToggle。
type fieldDefinition struct {
	*ast.FieldDefinition
}

// InstrumentationEnabled 没有 @noInstrumentation 时返回 true。
func (d fieldDefinition) InstrumentationEnabled() bool {
	return d.FieldDefinition == nil || d.Directives.ForName(DirectiveNoInstrumentation) == nil
}
