package runtime

import (
	"lumen/internal/ast"
	"lumen/internal/span"
	"lumen/internal/token"
	"math"
)

// ============================================================
// Binary operators
// ============================================================

func (i *Interpreter) evalBinary(n *ast.BinaryExp, env *Environment) (Value, error) {
	left, err := i.Evaluate(n.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := i.Evaluate(n.Right, env)
	if err != nil {
		return nil, err
	}
	return binaryOp(n.Operator, left, right, n.Span)
}

// binaryOp tries the numeric path, then string concatenation, then the
// operators shared by every kind.
func binaryOp(op token.Kind, left, right Value, s span.Span) (Value, error) {
	if l, ok := left.(NumberVal); ok {
		if r, ok := right.(NumberVal); ok {
			if val, handled, err := numericOp(op, float64(l), float64(r), s); handled {
				return val, err
			}
		}
	}
	if op == token.PLUS && isStringCombination(left, right) {
		return StringVal(left.String() + right.String()), nil
	}
	return sharedOp(op, left, right, s)
}

func numericOp(op token.Kind, l, r float64, s span.Span) (Value, bool, error) {
	switch op {
	case token.PLUS:
		return NumberVal(l + r), true, nil
	case token.MINUS:
		return NumberVal(l - r), true, nil
	case token.STAR:
		return NumberVal(l * r), true, nil
	case token.PERCENT:
		return NumberVal(math.Mod(l, r)), true, nil
	case token.SLASH:
		if r == 0 {
			return nil, true, runtimeErr(DivisionByZero, s, "division by zero")
		}
		return NumberVal(l / r), true, nil
	case token.LT:
		return BoolVal(l < r), true, nil
	case token.LTE:
		return BoolVal(l <= r), true, nil
	case token.GT:
		return BoolVal(l > r), true, nil
	case token.GTE:
		return BoolVal(l >= r), true, nil
	}
	return nil, false, nil
}

// isStringCombination reports string/string or string/number in either order.
func isStringCombination(left, right Value) bool {
	_, ls := left.(StringVal)
	_, rs := right.(StringVal)
	_, ln := left.(NumberVal)
	_, rn := right.(NumberVal)
	return (ls && (rs || rn)) || (rs && ln)
}

func sharedOp(op token.Kind, left, right Value, s span.Span) (Value, error) {
	switch op {
	case token.EQ:
		return BoolVal(StrictEquals(left, right)), nil
	case token.NEQ:
		return BoolVal(!StrictEquals(left, right)), nil
	case token.AND:
		return logicalAnd(left, right), nil
	case token.OR:
		return logicalOr(left, right), nil
	}
	return nil, runtimeErr(UnsupportedOperator, s, "operator '%s' is not supported between %s and %s", op, left.Kind(), right.Kind())
}

// logicalAnd returns one of its operands, never a synthesized boolean. Both
// operands have already been evaluated.
func logicalAnd(left, right Value) Value {
	if !IsTruthy(left) {
		return left
	}
	return right
}

func logicalOr(left, right Value) Value {
	if IsTruthy(left) {
		return left
	}
	return right
}

// ============================================================
// Assignment
// ============================================================

func (i *Interpreter) evalAssignment(n *ast.AssignmentExp, env *Environment) (Value, error) {
	rhs, err := i.Evaluate(n.Value, env)
	if err != nil {
		return nil, err
	}

	switch target := n.Assigne.(type) {
	case *ast.Identifier:
		current, err := env.LookupVar(target.Name, target.Span)
		if err != nil {
			return nil, err
		}
		val, err := compoundOp(n.Operator, current, rhs, n.Span)
		if err != nil {
			return nil, err
		}
		return env.AssignVar(target.Name, val, target.Span)

	case *ast.MemberExpr:
		ref, err := i.resolveMember(target, env)
		if err != nil {
			return nil, err
		}
		if err := checkAssignable(ref, target); err != nil {
			return nil, err
		}
		val, err := compoundOp(n.Operator, ref.value, rhs, n.Span)
		if err != nil {
			return nil, err
		}
		if err := assignMember(ref, val, target); err != nil {
			return nil, err
		}
		return val, nil

	default:
		return nil, runtimeErr(InvalidAssignmentTarget, n.Span, "invalid assignment target")
	}
}

// compoundOp computes the value an assignment stores.
func compoundOp(op token.Kind, current, rhs Value, s span.Span) (Value, error) {
	switch op {
	case token.ASSIGN:
		return rhs, nil
	case token.OR_ASSIGN:
		return logicalOr(current, rhs), nil
	case token.AND_ASSIGN:
		return logicalAnd(current, rhs), nil
	case token.PLUS_ASSIGN:
		if l, ok := current.(NumberVal); ok {
			if r, ok := rhs.(NumberVal); ok {
				return l + r, nil
			}
		}
		if isStringCombination(current, rhs) {
			return StringVal(current.String() + rhs.String()), nil
		}
		return nil, mismatch(op, current, rhs, s)
	case token.MINUS_ASSIGN, token.STAR_ASSIGN, token.SLASH_ASSIGN, token.PERCENT_ASSIGN:
		l, lok := current.(NumberVal)
		r, rok := rhs.(NumberVal)
		if !lok || !rok {
			return nil, mismatch(op, current, rhs, s)
		}
		switch op {
		case token.MINUS_ASSIGN:
			return l - r, nil
		case token.STAR_ASSIGN:
			return l * r, nil
		case token.SLASH_ASSIGN:
			if r == 0 {
				return nil, runtimeErr(DivisionByZero, s, "division by zero")
			}
			return l / r, nil
		default:
			return NumberVal(math.Mod(float64(l), float64(r))), nil
		}
	}
	return nil, runtimeErr(UnsupportedOperator, s, "'%s' is not an assignment operator", op)
}

func mismatch(op token.Kind, left, right Value, s span.Span) *RuntimeError {
	return runtimeErr(OperatorTypeMismatch, s, "cannot apply '%s' to %s and %s", op, left.Kind(), right.Kind())
}

// ============================================================
// Unary operators
// ============================================================

func (i *Interpreter) evalPrefix(n *ast.PrefixUnaryExp, env *Environment) (Value, error) {
	switch n.Operator {
	case token.INC, token.DEC:
		return i.evalIncDec(n.Operand, n.Operator, true, n.Span, env)
	}

	operand, err := i.Evaluate(n.Operand, env)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case token.BANG:
		return BoolVal(!IsTruthy(operand)), nil
	case token.KW_TYPEOF:
		return StringVal(operand.Kind().String()), nil
	case token.MINUS:
		num, ok := operand.(NumberVal)
		if !ok {
			return nil, runtimeErr(OperatorTypeMismatch, n.Span, "cannot negate %s", operand.Kind())
		}
		return -num, nil
	}
	return nil, runtimeErr(UnsupportedOperator, n.Span, "unsupported prefix operator '%s'", n.Operator)
}

func (i *Interpreter) evalPostfix(n *ast.PostfixUnaryExp, env *Environment) (Value, error) {
	switch n.Operator {
	case token.INC, token.DEC:
		return i.evalIncDec(n.Operand, n.Operator, false, n.Span, env)
	}
	return nil, runtimeErr(UnsupportedOperator, n.Span, "unsupported postfix operator '%s'", n.Operator)
}

// evalIncDec implements ++ and --. Prefix forms return the new value, postfix
// forms the old one.
func (i *Interpreter) evalIncDec(operand ast.Expr, op token.Kind, prefix bool, s span.Span, env *Environment) (Value, error) {
	delta := NumberVal(1)
	if op == token.DEC {
		delta = -1
	}

	var old NumberVal
	switch target := operand.(type) {
	case *ast.Identifier:
		current, err := env.LookupVar(target.Name, target.Span)
		if err != nil {
			return nil, err
		}
		num, ok := current.(NumberVal)
		if !ok {
			return nil, runtimeErr(InvalidIncrementOperand, s, "'%s' requires a number, got %s", op, current.Kind())
		}
		old = num
		if _, err := env.AssignVar(target.Name, old+delta, target.Span); err != nil {
			return nil, err
		}

	case *ast.MemberExpr:
		ref, err := i.resolveMember(target, env)
		if err != nil {
			return nil, err
		}
		num, ok := ref.value.(NumberVal)
		if !ok {
			return nil, runtimeErr(InvalidIncrementOperand, s, "'%s' requires a number, got %s", op, ref.value.Kind())
		}
		old = num
		if err := checkAssignable(ref, target); err != nil {
			return nil, err
		}
		if err := assignMember(ref, old+delta, target); err != nil {
			return nil, err
		}

	default:
		return nil, runtimeErr(InvalidIncrementOperand, s, "'%s' requires a variable or member expression", op)
	}

	if prefix {
		return old + delta, nil
	}
	return old, nil
}
