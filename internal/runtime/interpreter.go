package runtime

import (
	"errors"
	"io"
	"lumen/internal/ast"
	"lumen/internal/span"
	"lumen/internal/token"
)

// ============================================================
// Interpreter
// ============================================================

// Interpreter walks the AST and evaluates it.
type Interpreter struct {
	global *Environment
	output io.Writer
}

// NewInterpreter creates an interpreter whose global environment holds the
// built-in bindings.
func NewInterpreter(output io.Writer) *Interpreter {
	global := NewEnvironment(nil)
	RegisterGlobals(global, output)
	return &Interpreter{global: global, output: output}
}

// NewInterpreterWithEnv creates an interpreter over a caller-prepared global
// environment. Nothing is registered in it.
func NewInterpreterWithEnv(global *Environment, output io.Writer) *Interpreter {
	return &Interpreter{global: global, output: output}
}

// Env returns the global environment.
func (i *Interpreter) Env() *Environment {
	return i.global
}

// Run evaluates a program in the global environment and returns the value of
// its last statement.
func (i *Interpreter) Run(prog *ast.Program) (Value, error) {
	return i.Evaluate(prog, i.global)
}

// Evaluate evaluates node in env. Unknown node types are reported as *Fault.
func (i *Interpreter) Evaluate(node ast.Node, env *Environment) (Value, error) {
	switch n := node.(type) {
	// statements
	case *ast.Program:
		return i.evalBody(n.Body, env)
	case *ast.BlockStmt:
		return i.evalBody(n.Body, env)
	case *ast.VarDeclaration:
		return i.evalVarDeclaration(n, env)
	case *ast.FunctionDeclaration:
		return i.evalFunctionDeclaration(n, env)
	case *ast.IfStmt:
		return i.evalIf(n, env)
	case *ast.WhileStmt:
		return i.evalWhile(n, env)
	case *ast.ThrowStmt:
		return i.evalThrow(n, env)
	case *ast.TryStmt:
		return i.evalTry(n, env)

	// expressions
	case *ast.Identifier:
		return env.LookupVar(n.Name, n.Span)
	case *ast.NumericLiteral:
		return NumberVal(n.Value), nil
	case *ast.StringLiteral:
		return StringVal(n.Value), nil
	case *ast.ObjectLiteral:
		return i.evalObjectLiteral(n, env)
	case *ast.ArrayLiteral:
		return i.evalArrayLiteral(n, env)
	case *ast.MemberExpr:
		ref, err := i.resolveMember(n, env)
		if err != nil {
			return nil, err
		}
		return ref.value, nil
	case *ast.CallExpr:
		return i.evalCall(n, env)
	case *ast.AssignmentExp:
		return i.evalAssignment(n, env)
	case *ast.BinaryExp:
		return i.evalBinary(n, env)
	case *ast.PrefixUnaryExp:
		return i.evalPrefix(n, env)
	case *ast.PostfixUnaryExp:
		return i.evalPostfix(n, env)
	case *ast.TernaryExp:
		return i.evalTernary(n, env)
	case nil:
		return nil, fault(span.Span{}, "cannot evaluate a nil node")
	default:
		return nil, fault(node.GetSpan(), "unhandled node type %T", node)
	}
}

// ============================================================
// Statements
// ============================================================

// evalBody evaluates nodes in order in env; the result is the last value.
func (i *Interpreter) evalBody(nodes []ast.Node, env *Environment) (Value, error) {
	var result Value = Undefined
	for _, node := range nodes {
		val, err := i.Evaluate(node, env)
		if err != nil {
			return nil, err
		}
		result = val
	}
	return result, nil
}

func (i *Interpreter) evalVarDeclaration(n *ast.VarDeclaration, env *Environment) (Value, error) {
	var val Value = Undefined
	if n.Init != nil {
		v, err := i.Evaluate(n.Init, env)
		if err != nil {
			return nil, err
		}
		val = v
	}
	if n.Operator != token.ASSIGN {
		return nil, runtimeErr(UnsupportedOperator, n.Span, "declarations only support '=', got '%s'", n.Operator)
	}
	if err := env.DeclareVar(n.Name, val, n.Constant, n.Span); err != nil {
		return nil, err
	}
	return Undefined, nil
}

func (i *Interpreter) evalFunctionDeclaration(n *ast.FunctionDeclaration, env *Environment) (Value, error) {
	fn := NewFunction(n.Name, n.Params, n.Body, env)
	if err := env.DeclareVar(n.Name, fn, true, n.Span); err != nil {
		return nil, err
	}
	return Undefined, nil
}

func (i *Interpreter) evalIf(n *ast.IfStmt, env *Environment) (Value, error) {
	test, err := i.Evaluate(n.Test, env)
	if err != nil {
		return nil, err
	}
	if IsTruthy(test) {
		if _, err := i.evalBody(n.Consequent.Body, NewEnvironment(env)); err != nil {
			return nil, err
		}
		return Undefined, nil
	}
	switch alt := n.Alternate.(type) {
	case nil:
	case *ast.BlockStmt:
		if _, err := i.evalBody(alt.Body, NewEnvironment(env)); err != nil {
			return nil, err
		}
	default:
		if _, err := i.Evaluate(alt, env); err != nil {
			return nil, err
		}
	}
	return Undefined, nil
}

func (i *Interpreter) evalWhile(n *ast.WhileStmt, env *Environment) (Value, error) {
	for {
		test, err := i.Evaluate(n.Test, env)
		if err != nil {
			return nil, err
		}
		if !IsTruthy(test) {
			return Undefined, nil
		}
		if _, err := i.evalBody(n.Body.Body, NewEnvironment(env)); err != nil {
			return nil, err
		}
	}
}

func (i *Interpreter) evalThrow(n *ast.ThrowStmt, env *Environment) (Value, error) {
	val, err := i.Evaluate(n.Argument, env)
	if err != nil {
		return nil, err
	}
	return nil, &ThrownError{Value: val, Span: n.Span}
}

// evalTry runs the block and hands user exceptions to the handler. Runtime
// errors and faults are not catchable.
func (i *Interpreter) evalTry(n *ast.TryStmt, env *Environment) (Value, error) {
	_, err := i.evalBody(n.Block.Body, NewEnvironment(env))
	if err == nil {
		return Undefined, nil
	}

	var caught Value
	var thrown *ThrownError
	var apiErr *APIException
	switch {
	case errors.As(err, &thrown):
		caught = thrown.Value
	case errors.As(err, &apiErr):
		caught = apiErr.Value()
	default:
		return nil, err
	}

	handlerEnv := NewEnvironment(env)
	if n.Param != "" {
		if err := handlerEnv.DeclareVar(n.Param, caught, false, n.Span); err != nil {
			return nil, err
		}
	}
	if _, err := i.evalBody(n.Handler.Body, handlerEnv); err != nil {
		return nil, err
	}
	return Undefined, nil
}

// ============================================================
// Calls
// ============================================================

func (i *Interpreter) evalCall(n *ast.CallExpr, env *Environment) (Value, error) {
	args := make([]Value, 0, len(n.Arguments))
	for _, argExpr := range n.Arguments {
		val, err := i.Evaluate(argExpr, env)
		if err != nil {
			return nil, err
		}
		args = append(args, val)
	}

	callee, err := i.Evaluate(n.Callee, env)
	if err != nil {
		return nil, err
	}
	return i.callValue(callee, args, env, n.Span)
}

func (i *Interpreter) callValue(callee Value, args []Value, env *Environment, s span.Span) (Value, error) {
	switch fn := callee.(type) {
	case *NativeFuncVal:
		val, err := fn.Fn(args, env)
		return hostResult(val, err, fn.Name, s)
	case *FuncVal:
		return i.callFunction(fn, args, s)
	case *StaticFuncVal:
		if fn.Receiver == nil {
			return nil, runtimeErr(NotCallable, s, "method '%s' is not bound to a receiver", fn.Name)
		}
		val, err := fn.Fn(fn.Receiver, s.Start, args...)
		return hostResult(val, err, fn.Name, s)
	default:
		return nil, runtimeErr(NotCallable, s, "value of type %s is not callable", callee.Kind())
	}
}

// callFunction binds parameters in a child of the closure environment and
// runs the body. Calls always evaluate to Undefined.
func (i *Interpreter) callFunction(fn *FuncVal, args []Value, s span.Span) (Value, error) {
	local := NewEnvironment(fn.Closure)
	for idx, param := range fn.Params {
		var val Value = Undefined
		if idx < len(args) {
			val = args[idx]
		}
		if err := local.DeclareVar(param, val, false, s); err != nil {
			return nil, err
		}
	}
	if fn.Body != nil {
		for _, stmt := range fn.Body.Body {
			if _, err := i.Evaluate(stmt, local); err != nil {
				return nil, err
			}
		}
	}
	return Undefined, nil
}

// hostResult normalizes what a native or static function returned: plain Go
// errors become API exceptions so scripts can catch them.
func hostResult(val Value, err error, name string, s span.Span) (Value, error) {
	if err != nil {
		var (
			apiErr *APIException
			rerr   *RuntimeError
			terr   *ThrownError
			ferr   *Fault
		)
		if errors.As(err, &apiErr) || errors.As(err, &rerr) || errors.As(err, &terr) || errors.As(err, &ferr) {
			return nil, err
		}
		return nil, &APIException{Kind: "Error", ThrownBy: name, Message: err.Error(), Pos: s.Start}
	}
	if val == nil {
		return Undefined, nil
	}
	return val, nil
}

// ============================================================
// Literals and ternary
// ============================================================

func (i *Interpreter) evalObjectLiteral(n *ast.ObjectLiteral, env *Environment) (Value, error) {
	obj := NewObject(nil)
	for _, prop := range n.Properties {
		var (
			val Value
			err error
		)
		if prop.Value != nil {
			val, err = i.Evaluate(prop.Value, env)
		} else {
			val, err = env.LookupVar(prop.Key, prop.Span)
		}
		if err != nil {
			return nil, err
		}
		obj.Set(prop.Key, val)
	}
	return obj, nil
}

func (i *Interpreter) evalArrayLiteral(n *ast.ArrayLiteral, env *Environment) (Value, error) {
	elems := make([]Value, 0, len(n.Elements))
	for _, elemExpr := range n.Elements {
		val, err := i.Evaluate(elemExpr, env)
		if err != nil {
			return nil, err
		}
		elems = append(elems, val)
	}
	return NewArray(elems...), nil
}

func (i *Interpreter) evalTernary(n *ast.TernaryExp, env *Environment) (Value, error) {
	test, err := i.Evaluate(n.Test, env)
	if err != nil {
		return nil, err
	}
	if IsTruthy(test) {
		return i.Evaluate(n.Consequent, env)
	}
	return i.Evaluate(n.Alternate, env)
}
