package xgqlmetrics

import "github.com/vektah/gqlparser/v2/ast"

// ComplexityEstimator 估算操作复杂度，ok 为 false 时标签取 none。
type ComplexityEstimator interface {
	Estimate(op OperationInfo) (score int, ok bool)
}

// ComplexityFunc 函数适配器。
type ComplexityFunc func(op OperationInfo) (int, bool)

// Estimate 实现 ComplexityEstimator。
func (f ComplexityFunc) Estimate(op OperationInfo) (int, bool) { return f(op) }

// FieldCountComplexity 统计选择集中字段数量（展开 fragment）。
// 列表字段不按实际长度放大，只反映查询形状。
type FieldCountComplexity struct{}

// Estimate 实现 ComplexityEstimator。
func (FieldCountComplexity) Estimate(op OperationInfo) (int, bool) {
	if op.Operation == nil {
		return 0, false
	}
	return countFields(op.Document, op.Operation.SelectionSet, map[string]bool{}), true
}

func countFields(doc *ast.QueryDocument, set ast.SelectionSet, expanding map[string]bool) int {
	n := 0
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			n += 1 + countFields(doc, s.SelectionSet, expanding)
		case *ast.InlineFragment:
			n += countFields(doc, s.SelectionSet, expanding)
		case *ast.FragmentSpread:
			if doc == nil || expanding[s.Name] {
				continue
			}
			if def := doc.Fragments.ForName(s.Name); def != nil {
				expanding[s.Name] = true
				n += countFields(doc, def.SelectionSet, expanding)
				delete(expanding, s.Name)
			}
		}
	}
	return n
}
