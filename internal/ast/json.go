package ast

import (
	"lumen/internal/span"
	"lumen/internal/token"
)

// NodeToMap converts an AST node to a map suitable for JSON or YAML serialization.
// This produces a tagged-union structure: every node has "kind", "start" and "end"
// fields. Decode is its inverse.
func NodeToMap(node Node) map[string]interface{} {
	if node == nil {
		return nil
	}

	switch n := node.(type) {
	case *Program:
		return m("Program", n.Span, "body", nodeSlice(n.Body))

	// ---- Expressions ----
	case *Identifier:
		return m("Identifier", n.Span, "name", n.Name)
	case *NumericLiteral:
		return m("NumericLiteral", n.Span, "value", n.Value)
	case *StringLiteral:
		return m("StringLiteral", n.Span, "value", n.Value)
	case *ObjectLiteral:
		props := make([]interface{}, len(n.Properties))
		for i, p := range n.Properties {
			props[i] = NodeToMap(p)
		}
		return m("ObjectLiteral", n.Span, "properties", props)
	case *ObjectProperty:
		result := m("ObjectProperty", n.Span, "key", n.Key)
		if n.Value != nil {
			result["value"] = NodeToMap(n.Value)
		}
		return result
	case *ArrayLiteral:
		return m("ArrayLiteral", n.Span, "elements", exprSlice(n.Elements))
	case *MemberExpr:
		return m("MemberExpr", n.Span,
			"object", NodeToMap(n.Object),
			"property", NodeToMap(n.Property),
			"computed", n.Computed)
	case *CallExpr:
		return m("CallExpr", n.Span,
			"callee", NodeToMap(n.Callee),
			"arguments", exprSlice(n.Arguments))
	case *AssignmentExp:
		return m("AssignmentExp", n.Span,
			"assigne", NodeToMap(n.Assigne),
			"operator", opStr(n.Operator),
			"value", NodeToMap(n.Value))
	case *BinaryExp:
		return m("BinaryExp", n.Span,
			"left", NodeToMap(n.Left),
			"operator", opStr(n.Operator),
			"right", NodeToMap(n.Right))
	case *PrefixUnaryExp:
		return m("PrefixUnaryExp", n.Span, "operator", opStr(n.Operator), "operand", NodeToMap(n.Operand))
	case *PostfixUnaryExp:
		return m("PostfixUnaryExp", n.Span, "operator", opStr(n.Operator), "operand", NodeToMap(n.Operand))
	case *TernaryExp:
		return m("TernaryExp", n.Span,
			"test", NodeToMap(n.Test),
			"consequent", NodeToMap(n.Consequent),
			"alternate", NodeToMap(n.Alternate))

	// ---- Statements ----
	case *BlockStmt:
		return m("BlockStmt", n.Span, "body", nodeSlice(n.Body))
	case *VarDeclaration:
		result := m("VarDeclaration", n.Span,
			"name", n.Name,
			"constant", n.Constant,
			"operator", opStr(n.Operator))
		if n.Init != nil {
			result["value"] = NodeToMap(n.Init)
		}
		return result
	case *FunctionDeclaration:
		params := make([]interface{}, len(n.Params))
		for i, p := range n.Params {
			params[i] = p
		}
		return m("FunctionDeclaration", n.Span,
			"name", n.Name,
			"parameters", params,
			"body", NodeToMap(n.Body))
	case *IfStmt:
		result := m("IfStmt", n.Span,
			"test", NodeToMap(n.Test),
			"consequent", NodeToMap(n.Consequent))
		if n.Alternate != nil {
			result["alternate"] = NodeToMap(n.Alternate)
		}
		return result
	case *WhileStmt:
		return m("WhileStmt", n.Span, "test", NodeToMap(n.Test), "body", NodeToMap(n.Body))
	case *ThrowStmt:
		return m("ThrowStmt", n.Span, "argument", NodeToMap(n.Argument))
	case *TryStmt:
		result := m("TryStmt", n.Span,
			"block", NodeToMap(n.Block),
			"handler", NodeToMap(n.Handler))
		if n.Param != "" {
			result["param"] = n.Param
		}
		return result

	default:
		return map[string]interface{}{"kind": "Unknown"}
	}
}

// ---- helpers ----

// m builds a map with kind, start/end positions, and extra key-value pairs.
func m(kind string, s span.Span, kvs ...interface{}) map[string]interface{} {
	result := map[string]interface{}{
		"kind":  kind,
		"start": posToMap(s.Start),
		"end":   posToMap(s.End),
	}
	for i := 0; i+1 < len(kvs); i += 2 {
		key := kvs[i].(string)
		result[key] = kvs[i+1]
	}
	return result
}

func posToMap(p span.Position) map[string]interface{} {
	return map[string]interface{}{
		"offset": p.Offset,
		"line":   p.Line,
		"column": p.Column,
	}
}

func nodeSlice(nodes []Node) []interface{} {
	result := make([]interface{}, len(nodes))
	for i, n := range nodes {
		result[i] = NodeToMap(n)
	}
	return result
}

func exprSlice(exprs []Expr) []interface{} {
	result := make([]interface{}, len(exprs))
	for i, e := range exprs {
		result[i] = NodeToMap(e)
	}
	return result
}

func opStr(kind token.Kind) string {
	return kind.String()
}
