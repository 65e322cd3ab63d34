package xgqlsig

import (
	"fmt"
	"slices"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"
)

// ASTNormalizer 基于 gqlparser AST 的默认规范化实现，规则见包文档。
type ASTNormalizer struct{}

var _ Normalizer = ASTNormalizer{}

// Normalize 实现 Normalizer。
func (ASTNormalizer) Normalize(query, operationName string) (string, error) {
	doc, perr := parser.ParseQuery(&ast.Source{Name: "signature", Input: query})
	if perr != nil {
		return "", fmt.Errorf("%w: %s", ErrNormalize, perr.Error())
	}
	return NormalizeDocument(doc, operationName)
}

// NormalizeDocument 规范化已解析的文档，会原地修改 doc。
// 调用方已经持有 AST 时使用，避免重复解析。
func NormalizeDocument(doc *ast.QueryDocument, operationName string) (string, error) {
	op := selectOperation(doc, operationName)
	if op == nil {
		return "", fmt.Errorf("%w: %q", ErrOperationNotFound, operationName)
	}

	names := make(map[string]struct{})
	collectFragments(doc, op.SelectionSet, names)

	out := &ast.QueryDocument{Operations: ast.OperationList{op}}
	for _, f := range doc.Fragments {
		if _, ok := names[f.Name]; !ok {
			continue
		}
		if out.Fragments.ForName(f.Name) != nil {
			continue
		}
		out.Fragments = append(out.Fragments, f)
	}
	slices.SortFunc(out.Fragments, func(a, b *ast.FragmentDefinition) int {
		return strings.Compare(a.Name, b.Name)
	})

	normalizeOperation(op)
	for _, f := range out.Fragments {
		f.Directives = normalizeDirectives(f.Directives)
		f.SelectionSet = normalizeSelectionSet(f.SelectionSet)
	}

	var sb strings.Builder
	formatter.NewFormatter(&sb).FormatQueryDocument(out)
	return strings.Join(strings.Fields(sb.String()), " "), nil
}

// selectOperation 名称为空时仅在文档只有一个 operation 时命中。
func selectOperation(doc *ast.QueryDocument, name string) *ast.OperationDefinition {
	if doc == nil {
		return nil
	}
	if name == "" {
		if len(doc.Operations) == 1 {
			return doc.Operations[0]
		}
		return nil
	}
	for _, op := range doc.Operations {
		if op.Name == name {
			return op
		}
	}
	return nil
}

func collectFragments(doc *ast.QueryDocument, set ast.SelectionSet, seen map[string]struct{}) {
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			collectFragments(doc, s.SelectionSet, seen)
		case *ast.InlineFragment:
			collectFragments(doc, s.SelectionSet, seen)
		case *ast.FragmentSpread:
			if _, ok := seen[s.Name]; ok {
				continue
			}
			seen[s.Name] = struct{}{}
			if def := doc.Fragments.ForName(s.Name); def != nil {
				collectFragments(doc, def.SelectionSet, seen)
			}
		}
	}
}

func normalizeOperation(op *ast.OperationDefinition) {
	for _, v := range op.VariableDefinitions {
		v.DefaultValue = hideValue(v.DefaultValue)
		v.Directives = normalizeDirectives(v.Directives)
	}
	slices.SortStableFunc(op.VariableDefinitions, func(a, b *ast.VariableDefinition) int {
		return strings.Compare(a.Variable, b.Variable)
	})
	op.Directives = normalizeDirectives(op.Directives)
	op.SelectionSet = normalizeSelectionSet(op.SelectionSet)
}

func normalizeSelectionSet(set ast.SelectionSet) ast.SelectionSet {
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			s.Alias = s.Name
			s.Arguments = normalizeArguments(s.Arguments)
			s.Directives = normalizeDirectives(s.Directives)
			s.SelectionSet = normalizeSelectionSet(s.SelectionSet)
		case *ast.FragmentSpread:
			s.Directives = normalizeDirectives(s.Directives)
		case *ast.InlineFragment:
			s.Directives = normalizeDirectives(s.Directives)
			s.SelectionSet = normalizeSelectionSet(s.SelectionSet)
		}
	}
	// 同名字段（别名已去掉）按规范化后的子树文本决胜
	texts := make(map[ast.Selection]string, len(set))
	for _, sel := range set {
		texts[sel] = selectionText(sel)
	}
	slices.SortStableFunc(set, func(a, b ast.Selection) int {
		if c := strings.Compare(selectionKey(a), selectionKey(b)); c != 0 {
			return c
		}
		return strings.Compare(texts[a], texts[b])
	})
	return set
}

func selectionText(sel ast.Selection) string {
	var sb strings.Builder
	formatter.NewFormatter(&sb).FormatQueryDocument(&ast.QueryDocument{
		Operations: ast.OperationList{{Operation: ast.Query, SelectionSet: ast.SelectionSet{sel}}},
	})
	return sb.String()
}

// selectionKey 前缀保证字段、spread、inline fragment 分组排列。
func selectionKey(sel ast.Selection) string {
	switch s := sel.(type) {
	case *ast.Field:
		return "0" + s.Name
	case *ast.FragmentSpread:
		return "1" + s.Name
	case *ast.InlineFragment:
		return "2" + s.TypeCondition
	}
	return "3"
}

func normalizeArguments(args ast.ArgumentList) ast.ArgumentList {
	for _, a := range args {
		a.Value = hideValue(a.Value)
	}
	slices.SortStableFunc(args, func(a, b *ast.Argument) int {
		return strings.Compare(a.Name, b.Name)
	})
	return args
}

func normalizeDirectives(dirs ast.DirectiveList) ast.DirectiveList {
	for _, d := range dirs {
		d.Arguments = normalizeArguments(d.Arguments)
	}
	slices.SortStableFunc(dirs, func(a, b *ast.Directive) int {
		return strings.Compare(a.Name, b.Name)
	})
	return dirs
}

// hideValue 把字面量替换为类型占位值，变量、枚举、null 原样保留。
func hideValue(v *ast.Value) *ast.Value {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case ast.IntValue, ast.FloatValue:
		v.Kind, v.Raw = ast.IntValue, "0"
	case ast.StringValue, ast.BlockValue:
		v.Kind, v.Raw = ast.StringValue, ""
	case ast.BooleanValue:
		v.Raw = "false"
	case ast.ListValue, ast.ObjectValue:
		v.Children = nil
	}
	return v
}
