package ast

import (
	"encoding/json"
	"fmt"
	"lumen/internal/span"
	"lumen/internal/token"

	"gopkg.in/yaml.v3"
)

// DecodeJSON decodes a kind-tagged JSON document (as produced by NodeToMap) into a Program.
func DecodeJSON(data []byte) (*Program, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("ast: invalid JSON: %w", err)
	}
	return decodeProgram(raw)
}

// DecodeYAML decodes the same kind-tagged structure written as YAML.
func DecodeYAML(data []byte) (*Program, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("ast: invalid YAML: %w", err)
	}
	return decodeProgram(raw)
}

func decodeProgram(raw map[string]any) (*Program, error) {
	node, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	prog, ok := node.(*Program)
	if !ok {
		return nil, fmt.Errorf("ast: root node must be Program, got %T", node)
	}
	return prog, nil
}

// Decode converts a kind-tagged map back into a typed node.
func Decode(node map[string]any) (Node, error) {
	if node == nil {
		return nil, fmt.Errorf("ast: missing node")
	}
	kind, _ := node["kind"].(string)
	sp := decodeSpan(node)

	switch kind {
	case "Program":
		body, err := decodeNodes(node["body"])
		if err != nil {
			return nil, err
		}
		return &Program{NodeBase: NodeBase{Span: sp}, Body: body}, nil

	// ---- Expressions ----
	case "Identifier":
		name, _ := node["name"].(string)
		if name == "" {
			return nil, fmt.Errorf("ast: Identifier at %s has no name", sp.Start)
		}
		return &Identifier{ExprBase: exprBase(sp), Name: name}, nil
	case "NumericLiteral":
		val, ok := toFloat(node["value"])
		if !ok {
			return nil, fmt.Errorf("ast: NumericLiteral at %s has non-numeric value %v", sp.Start, node["value"])
		}
		return &NumericLiteral{ExprBase: exprBase(sp), Value: val}, nil
	case "StringLiteral":
		val, _ := node["value"].(string)
		return &StringLiteral{ExprBase: exprBase(sp), Value: val}, nil
	case "ObjectLiteral":
		rawProps, _ := node["properties"].([]any)
		props := make([]*ObjectProperty, 0, len(rawProps))
		for _, raw := range rawProps {
			child, err := decodeChild(raw)
			if err != nil {
				return nil, err
			}
			prop, ok := child.(*ObjectProperty)
			if !ok {
				return nil, fmt.Errorf("ast: invalid object property %T", child)
			}
			props = append(props, prop)
		}
		return &ObjectLiteral{ExprBase: exprBase(sp), Properties: props}, nil
	case "ObjectProperty":
		key, _ := node["key"].(string)
		prop := &ObjectProperty{NodeBase: NodeBase{Span: sp}, Key: key}
		if node["value"] != nil {
			val, err := decodeExpr(node["value"])
			if err != nil {
				return nil, err
			}
			prop.Value = val
		}
		return prop, nil
	case "ArrayLiteral":
		elems, err := decodeExprs(node["elements"])
		if err != nil {
			return nil, err
		}
		return &ArrayLiteral{ExprBase: exprBase(sp), Elements: elems}, nil
	case "MemberExpr":
		obj, err := decodeExpr(node["object"])
		if err != nil {
			return nil, err
		}
		prop, err := decodeExpr(node["property"])
		if err != nil {
			return nil, err
		}
		computed, _ := node["computed"].(bool)
		return &MemberExpr{ExprBase: exprBase(sp), Object: obj, Property: prop, Computed: computed}, nil
	case "CallExpr":
		callee, err := decodeExpr(node["callee"])
		if err != nil {
			return nil, err
		}
		args, err := decodeExprs(node["arguments"])
		if err != nil {
			return nil, err
		}
		return &CallExpr{ExprBase: exprBase(sp), Callee: callee, Arguments: args}, nil
	case "AssignmentExp":
		target, err := decodeExpr(node["assigne"])
		if err != nil {
			return nil, err
		}
		op, err := decodeOperator(node, token.ASSIGN)
		if err != nil {
			return nil, err
		}
		val, err := decodeExpr(node["value"])
		if err != nil {
			return nil, err
		}
		return &AssignmentExp{ExprBase: exprBase(sp), Assigne: target, Operator: op, Value: val}, nil
	case "BinaryExp":
		left, err := decodeExpr(node["left"])
		if err != nil {
			return nil, err
		}
		op, err := decodeOperator(node, token.ILLEGAL)
		if err != nil {
			return nil, err
		}
		right, err := decodeExpr(node["right"])
		if err != nil {
			return nil, err
		}
		return &BinaryExp{ExprBase: exprBase(sp), Left: left, Operator: op, Right: right}, nil
	case "PrefixUnaryExp", "PostfixUnaryExp":
		op, err := decodeOperator(node, token.ILLEGAL)
		if err != nil {
			return nil, err
		}
		operand, err := decodeExpr(node["operand"])
		if err != nil {
			return nil, err
		}
		if kind == "PrefixUnaryExp" {
			return &PrefixUnaryExp{ExprBase: exprBase(sp), Operator: op, Operand: operand}, nil
		}
		return &PostfixUnaryExp{ExprBase: exprBase(sp), Operator: op, Operand: operand}, nil
	case "TernaryExp":
		test, err := decodeExpr(node["test"])
		if err != nil {
			return nil, err
		}
		cons, err := decodeExpr(node["consequent"])
		if err != nil {
			return nil, err
		}
		alt, err := decodeExpr(node["alternate"])
		if err != nil {
			return nil, err
		}
		return &TernaryExp{ExprBase: exprBase(sp), Test: test, Consequent: cons, Alternate: alt}, nil

	// ---- Statements ----
	case "BlockStmt":
		body, err := decodeNodes(node["body"])
		if err != nil {
			return nil, err
		}
		return &BlockStmt{StmtBase: stmtBase(sp), Body: body}, nil
	case "VarDeclaration":
		name, _ := node["name"].(string)
		constant, _ := node["constant"].(bool)
		op, err := decodeOperator(node, token.ASSIGN)
		if err != nil {
			return nil, err
		}
		decl := &VarDeclaration{StmtBase: stmtBase(sp), Name: name, Constant: constant, Operator: op}
		if node["value"] != nil {
			init, err := decodeExpr(node["value"])
			if err != nil {
				return nil, err
			}
			decl.Init = init
		}
		return decl, nil
	case "FunctionDeclaration":
		name, _ := node["name"].(string)
		params, err := decodeParams(node["parameters"])
		if err != nil {
			return nil, err
		}
		body, err := decodeBlock(node["body"])
		if err != nil {
			return nil, err
		}
		return &FunctionDeclaration{StmtBase: stmtBase(sp), Name: name, Params: params, Body: body}, nil
	case "IfStmt":
		test, err := decodeExpr(node["test"])
		if err != nil {
			return nil, err
		}
		cons, err := decodeBlock(node["consequent"])
		if err != nil {
			return nil, err
		}
		stmt := &IfStmt{StmtBase: stmtBase(sp), Test: test, Consequent: cons}
		if node["alternate"] != nil {
			child, err := decodeChild(node["alternate"])
			if err != nil {
				return nil, err
			}
			switch alt := child.(type) {
			case *BlockStmt:
				stmt.Alternate = alt
			case *IfStmt:
				stmt.Alternate = alt
			default:
				return nil, fmt.Errorf("ast: invalid else branch %T", child)
			}
		}
		return stmt, nil
	case "WhileStmt":
		test, err := decodeExpr(node["test"])
		if err != nil {
			return nil, err
		}
		body, err := decodeBlock(node["body"])
		if err != nil {
			return nil, err
		}
		return &WhileStmt{StmtBase: stmtBase(sp), Test: test, Body: body}, nil
	case "ThrowStmt":
		arg, err := decodeExpr(node["argument"])
		if err != nil {
			return nil, err
		}
		return &ThrowStmt{StmtBase: stmtBase(sp), Argument: arg}, nil
	case "TryStmt":
		block, err := decodeBlock(node["block"])
		if err != nil {
			return nil, err
		}
		handler, err := decodeBlock(node["handler"])
		if err != nil {
			return nil, err
		}
		param, _ := node["param"].(string)
		return &TryStmt{StmtBase: stmtBase(sp), Block: block, Param: param, Handler: handler}, nil

	default:
		return nil, fmt.Errorf("ast: unknown node kind %q", kind)
	}
}

// ---- decode helpers ----

func decodeChild(raw any) (Node, error) {
	child, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("ast: expected node object, got %T", raw)
	}
	return Decode(child)
}

func decodeExpr(raw any) (Expr, error) {
	child, err := decodeChild(raw)
	if err != nil {
		return nil, err
	}
	expr, ok := child.(Expr)
	if !ok {
		return nil, fmt.Errorf("ast: expected expression, got %T", child)
	}
	return expr, nil
}

func decodeBlock(raw any) (*BlockStmt, error) {
	child, err := decodeChild(raw)
	if err != nil {
		return nil, err
	}
	block, ok := child.(*BlockStmt)
	if !ok {
		return nil, fmt.Errorf("ast: expected BlockStmt, got %T", child)
	}
	return block, nil
}

func decodeNodes(raw any) ([]Node, error) {
	list, _ := raw.([]any)
	nodes := make([]Node, 0, len(list))
	for _, item := range list {
		child, err := decodeChild(item)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, child)
	}
	return nodes, nil
}

func decodeExprs(raw any) ([]Expr, error) {
	list, _ := raw.([]any)
	exprs := make([]Expr, 0, len(list))
	for _, item := range list {
		expr, err := decodeExpr(item)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
	}
	return exprs, nil
}

// decodeParams accepts either plain names or Identifier nodes.
func decodeParams(raw any) ([]string, error) {
	list, _ := raw.([]any)
	params := make([]string, 0, len(list))
	for _, item := range list {
		switch p := item.(type) {
		case string:
			params = append(params, p)
		case map[string]any:
			child, err := Decode(p)
			if err != nil {
				return nil, err
			}
			ident, ok := child.(*Identifier)
			if !ok {
				return nil, fmt.Errorf("ast: invalid parameter %T", child)
			}
			params = append(params, ident.Name)
		default:
			return nil, fmt.Errorf("ast: invalid parameter %v", item)
		}
	}
	return params, nil
}

func decodeOperator(node map[string]any, fallback token.Kind) (token.Kind, error) {
	raw, ok := node["operator"].(string)
	if !ok || raw == "" {
		if fallback == token.ILLEGAL {
			return token.ILLEGAL, fmt.Errorf("ast: %v node is missing its operator", node["kind"])
		}
		return fallback, nil
	}
	op, ok := token.LookupOperator(raw)
	if !ok {
		return token.ILLEGAL, fmt.Errorf("ast: unknown operator %q", raw)
	}
	return op, nil
}

func decodeSpan(node map[string]any) span.Span {
	return span.Span{Start: decodePos(node["start"]), End: decodePos(node["end"])}
}

func decodePos(raw any) span.Position {
	pm, ok := raw.(map[string]any)
	if !ok {
		return span.Position{}
	}
	line, _ := toFloat(pm["line"])
	col, _ := toFloat(pm["column"])
	off, _ := toFloat(pm["offset"])
	return span.Position{Offset: int(off), Line: int(line), Column: int(col)}
}

// toFloat normalizes the numeric types produced by encoding/json (float64)
// and yaml.v3 (int, float64).
func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func exprBase(s span.Span) ExprBase {
	return ExprBase{NodeBase: NodeBase{Span: s}}
}

func stmtBase(s span.Span) StmtBase {
	return StmtBase{NodeBase: NodeBase{Span: s}}
}
