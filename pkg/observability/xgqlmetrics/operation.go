package xgqlmetrics

import (
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// OperationType 操作类型标签值。
type OperationType string

// 操作类型。
const (
	OperationQuery        OperationType = "QUERY"
	OperationMutation     OperationType = "MUTATION"
	OperationSubscription OperationType = "SUBSCRIPTION"
	OperationNone         OperationType = "none"
)

// OperationTypeOf 把 gqlparser 的操作类型映射为标签值。
func OperationTypeOf(op ast.Operation) OperationType {
	switch op {
	case ast.Query:
		return OperationQuery
	case ast.Mutation:
		return OperationMutation
	case ast.Subscription:
		return OperationSubscription
	}
	return OperationNone
}

// OperationInfo 执行开始时的操作描述。
type OperationInfo struct {
	Type OperationType
	// Name 客户端显式给出的操作名，可为空。
	Name string
	// FirstField 第一个顶层字段名，用于派生匿名操作名。
	FirstField string
	// Query 原始查询文本，用于计算签名。
	Query string

	// Document 与 Operation 可选，复杂度估算器使用。
	Document  *ast.QueryDocument
	Operation *ast.OperationDefinition
}

// ResolvedName 返回操作名标签值：显式名称，否则 anonymous_<首字段>，否则 anonymous。
func (o OperationInfo) ResolvedName() string {
	if name := strings.TrimSpace(o.Name); name != "" {
		return name
	}
	if o.FirstField != "" {
		return DerivedNamePrefix + o.FirstField
	}
	return AnonymousName
}

// OperationFromDocument 从已解析的文档中选出操作并填充 OperationInfo。
//
// operationName 为空且文档只有一个操作时选中该操作；找不到时 ok 为 false，
// 返回的 OperationInfo 类型为 none。
func OperationFromDocument(doc *ast.QueryDocument, operationName, query string) (info OperationInfo, ok bool) {
	info = OperationInfo{Type: OperationNone, Name: operationName, Query: query, Document: doc}
	if doc == nil {
		return info, false
	}
	var op *ast.OperationDefinition
	if operationName == "" {
		if len(doc.Operations) == 1 {
			op = doc.Operations[0]
		}
	} else {
		op = doc.Operations.ForName(operationName)
	}
	if op == nil {
		return info, false
	}
	info.Operation = op
	info.Type = OperationTypeOf(op.Operation)
	info.Name = op.Name
	info.FirstField = firstField(doc, op.SelectionSet, map[string]bool{})
	return info, true
}

// firstField 返回选择集中第一个字段名，穿透 fragment。
func firstField(doc *ast.QueryDocument, set ast.SelectionSet, seen map[string]bool) string {
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			return s.Name
		case *ast.InlineFragment:
			if name := firstField(doc, s.SelectionSet, seen); name != "" {
				return name
			}
		case *ast.FragmentSpread:
			if seen[s.Name] {
				continue
			}
			seen[s.Name] = true
			if def := doc.Fragments.ForName(s.Name); def != nil {
				if name := firstField(doc, def.SelectionSet, seen); name != "" {
					return name
				}
			}
		}
	}
	return ""
}
