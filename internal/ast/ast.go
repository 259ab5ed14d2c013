// Package ast defines the abstract syntax tree consumed by the lumen evaluator.
package ast

import (
	"lumen/internal/span"
	"lumen/internal/token"
)

// ============================================================
// Node interfaces
// ============================================================

// Node is the interface implemented by all AST nodes.
type Node interface {
	nodeNode()
	GetSpan() span.Span
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// ============================================================
// Base types (embedded to provide common fields)
// ============================================================

// NodeBase provides the common Span field for all AST nodes.
type NodeBase struct {
	Span span.Span
}

func (n NodeBase) nodeNode()          {}
func (n NodeBase) GetSpan() span.Span { return n.Span }

// ExprBase is embedded by all expression nodes.
type ExprBase struct{ NodeBase }

func (ExprBase) exprNode() {}

// StmtBase is embedded by all statement nodes.
type StmtBase struct{ NodeBase }

func (StmtBase) stmtNode() {}

// ============================================================
// Program (AST root)
// ============================================================

// Program is the root of a parsed source file. Body holds statements and bare
// expressions in source order.
type Program struct {
	NodeBase
	Body []Node
}

// ============================================================
// Expressions
// ============================================================

// Identifier represents a name reference.
type Identifier struct {
	ExprBase
	Name string
}

// NumericLiteral represents a number literal.
type NumericLiteral struct {
	ExprBase
	Value float64
}

// StringLiteral represents a string literal.
type StringLiteral struct {
	ExprBase
	Value string
}

// ObjectProperty is one entry of an object literal. Value is nil for the
// shorthand form {name}.
type ObjectProperty struct {
	NodeBase
	Key   string
	Value Expr
}

// ObjectLiteral represents {key: value, other}.
type ObjectLiteral struct {
	ExprBase
	Properties []*ObjectProperty
}

// ArrayLiteral represents [a, b, c].
type ArrayLiteral struct {
	ExprBase
	Elements []Expr
}

// MemberExpr represents obj.prop (Computed=false, Property is an *Identifier)
// or obj[expr] (Computed=true).
type MemberExpr struct {
	ExprBase
	Object   Expr
	Property Expr
	Computed bool
}

// CallExpr represents callee(args...).
type CallExpr struct {
	ExprBase
	Callee    Expr
	Arguments []Expr
}

// AssignmentExp represents assigne op value, where op is = or a compound operator.
type AssignmentExp struct {
	ExprBase
	Assigne  Expr // *Identifier or *MemberExpr
	Operator token.Kind
	Value    Expr
}

// BinaryExp represents left op right.
type BinaryExp struct {
	ExprBase
	Left     Expr
	Operator token.Kind
	Right    Expr
}

// PrefixUnaryExp represents ++x, --x, !x, -x and typeof x.
type PrefixUnaryExp struct {
	ExprBase
	Operator token.Kind
	Operand  Expr
}

// PostfixUnaryExp represents x++ and x--.
type PostfixUnaryExp struct {
	ExprBase
	Operator token.Kind
	Operand  Expr
}

// TernaryExp represents test ? consequent : alternate.
type TernaryExp struct {
	ExprBase
	Test       Expr
	Consequent Expr
	Alternate  Expr
}

// ============================================================
// Statements
// ============================================================

// BlockStmt represents { ... }. It is used for function bodies and the
// bodies of if/while/try.
type BlockStmt struct {
	StmtBase
	Body []Node
}

// VarDeclaration represents let/var/const name [op init]. Operator records the
// operator the source used so the evaluator can reject compound forms.
type VarDeclaration struct {
	StmtBase
	Name     string
	Constant bool
	Operator token.Kind
	Init     Expr // may be nil
}

// FunctionDeclaration represents function name(params) { body }.
type FunctionDeclaration struct {
	StmtBase
	Name   string
	Params []string
	Body   *BlockStmt
}

// IfStmt represents if (test) { ... } [else ...]. Alternate is nil, a
// *BlockStmt or a nested *IfStmt.
type IfStmt struct {
	StmtBase
	Test       Expr
	Consequent *BlockStmt
	Alternate  Stmt
}

// WhileStmt represents while (test) { ... }.
type WhileStmt struct {
	StmtBase
	Test Expr
	Body *BlockStmt
}

// ThrowStmt represents throw expr.
type ThrowStmt struct {
	StmtBase
	Argument Expr
}

// TryStmt represents try { ... } catch (param) { ... }.
type TryStmt struct {
	StmtBase
	Block   *BlockStmt
	Param   string // may be empty
	Handler *BlockStmt
}
