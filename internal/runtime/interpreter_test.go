package runtime

import (
	"bytes"
	"fmt"
	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/lexer"
	"lumen/internal/parser"
	"lumen/internal/span"
	"lumen/internal/token"
	"math"
	"strings"
	"testing"

	"github.com/go-test/deep"
)

// parseSource lexes and parses source, failing on any diagnostic.
func parseSource(t *testing.T, source string) *ast.Program {
	t.Helper()
	tokens, lexDiags := lexer.New(source, "test.lm").Tokenize()
	prog, parseDiags := parser.New(tokens).ParseProgram()
	if diags := append(lexDiags, parseDiags...); diag.HasErrors(diags) {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	return prog
}

// runSource parses and executes source code, returning captured stdout and any error.
func runSource(t *testing.T, source string) (string, error) {
	t.Helper()
	prog := parseSource(t, source)
	var buf bytes.Buffer
	interp := NewInterpreter(&buf)
	_, err := interp.Run(prog)
	return buf.String(), err
}

func expectOutput(t *testing.T, source, expected string) {
	t.Helper()
	out, err := runSource(t, source)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if strings.TrimRight(out, "\n") != strings.TrimRight(expected, "\n") {
		t.Errorf("output mismatch:\nexpected: %q\ngot:      %q", expected, out)
	}
}

func expectError(t *testing.T, source, contains string) {
	t.Helper()
	_, err := runSource(t, source)
	if err == nil {
		t.Fatalf("expected error containing %q, got nil", contains)
	}
	if !strings.Contains(err.Error(), contains) {
		t.Errorf("expected error containing %q, got: %v", contains, err)
	}
}

func expectKind(t *testing.T, source string, kind ErrorKind) {
	t.Helper()
	_, err := runSource(t, source)
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if !IsKind(err, kind) {
		t.Errorf("expected %s error, got: %v", kind, err)
	}
}

// evalSource runs source in a fresh interpreter and returns the program value.
func evalSource(t *testing.T, source string) Value {
	t.Helper()
	prog := parseSource(t, source)
	val, err := NewInterpreter(&bytes.Buffer{}).Run(prog)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	return val
}

// ---- Literals and output ----

func TestPrintLiteral(t *testing.T) {
	expectOutput(t, `print(42)`, "42\n")
	expectOutput(t, `print("hello")`, "hello\n")
	expectOutput(t, `print(1.5, 'single')`, "1.5 single\n")
}

func TestPrintContainers(t *testing.T) {
	expectOutput(t, `print([1, "a", [true, null]])`, `[1, "a", [true, null]]`)
	expectOutput(t, `print({b: 1, a: "x"})`, `{a: "x", b: 1}`)
	expectOutput(t, `print({}, [])`, `{} []`)
}

func TestProgramValue(t *testing.T) {
	if diff := deep.Equal(evalSource(t, "1 + 2"), Value(NumberVal(3))); diff != nil {
		t.Error(diff)
	}
	if diff := deep.Equal(evalSource(t, "let x = 1"), Undefined); diff != nil {
		t.Error(diff)
	}
	if diff := deep.Equal(evalSource(t, ""), Undefined); diff != nil {
		t.Error(diff)
	}
	if diff := deep.Equal(evalSource(t, "let a = [1]\na"), Value(NewArray(NumberVal(1)))); diff != nil {
		t.Error(diff)
	}
}

// ---- Arithmetic ----

func TestNumericOperatorsMatchFloat64(t *testing.T) {
	pairs := [][2]float64{{7, 2}, {-7, 2}, {0.1, 0.2}, {1e10, 3}, {5.5, -1.25}, {-0.5, 0.25}}
	ops := []struct {
		kind token.Kind
		fn   func(a, b float64) float64
	}{
		{token.PLUS, func(a, b float64) float64 { return a + b }},
		{token.MINUS, func(a, b float64) float64 { return a - b }},
		{token.STAR, func(a, b float64) float64 { return a * b }},
		{token.SLASH, func(a, b float64) float64 { return a / b }},
		{token.PERCENT, math.Mod},
	}

	interp := NewInterpreterWithEnv(NewEnvironment(nil), &bytes.Buffer{})
	for _, pair := range pairs {
		for _, op := range ops {
			node := &ast.BinaryExp{
				Left:     &ast.NumericLiteral{Value: pair[0]},
				Operator: op.kind,
				Right:    &ast.NumericLiteral{Value: pair[1]},
			}
			got, err := interp.Evaluate(node, interp.Env())
			if err != nil {
				t.Fatalf("%v %s %v: %v", pair[0], op.kind, pair[1], err)
			}
			if want := NumberVal(op.fn(pair[0], pair[1])); got != want {
				t.Errorf("%v %s %v = %v, want %v", pair[0], op.kind, pair[1], got, want)
			}
		}
	}
}

func TestArithmetic(t *testing.T) {
	expectOutput(t, `print(1 + 2 * 3)`, "7\n")
	expectOutput(t, `print((1 + 2) * 3)`, "9\n")
	expectOutput(t, `print(10 / 4)`, "2.5\n")
	expectOutput(t, `print(10 % 3)`, "1\n")
	expectOutput(t, `print(0.1 + 0.2)`, "0.30000000000000004\n")
	expectOutput(t, `print(-3 - -2)`, "-1\n")
	expectOutput(t, `print(5 % 0)`, "NaN\n")
}

func TestDivisionByZero(t *testing.T) {
	for _, src := range []string{`1 / 0`, `-1 / 0`, `0 / 0`, `let x = 4` + "\n" + `x /= 0`} {
		expectKind(t, src, DivisionByZero)
	}
}

func TestRelational(t *testing.T) {
	expectOutput(t, `print(1 < 2, 2 <= 2, 3 > 4, 4 >= 5)`, "true true false false\n")
	expectKind(t, `"a" < "b"`, UnsupportedOperator)
}

func TestStringConcatenation(t *testing.T) {
	expectOutput(t, `print("a" + "b")`, "ab\n")
	expectOutput(t, `print("n=" + 1.5)`, "n=1.5\n")
	expectOutput(t, `print(2 + "x")`, "2x\n")
	expectKind(t, `"a" - 1`, UnsupportedOperator)
	expectKind(t, `true + 1`, UnsupportedOperator)
	expectKind(t, `[1] + [2]`, UnsupportedOperator)
}

// ---- Equality and logic ----

func TestEquality(t *testing.T) {
	expectOutput(t, `print(1 == 1, "1" == 1, "a" != "b")`, "true false true\n")
	expectOutput(t, `print(null == null, null == undefined)`, "true false\n")
	expectOutput(t, `
let a = [1]
let b = a
print(a == b, a == [1])
`, "true false\n")
}

func TestLogicalOperatorsReturnOperands(t *testing.T) {
	if diff := deep.Equal(evalSource(t, `0 && "x"`), Value(NumberVal(0))); diff != nil {
		t.Error(diff)
	}
	if diff := deep.Equal(evalSource(t, `"" || "fallback"`), Value(StringVal("fallback"))); diff != nil {
		t.Error(diff)
	}
	if diff := deep.Equal(evalSource(t, `1 && "x"`), Value(StringVal("x"))); diff != nil {
		t.Error(diff)
	}
	if diff := deep.Equal(evalSource(t, `"a" || 0`), Value(StringVal("a"))); diff != nil {
		t.Error(diff)
	}
	if diff := deep.Equal(evalSource(t, `null || undefined`), Undefined); diff != nil {
		t.Error(diff)
	}
}

func TestLogicalOperatorsEvaluateBothOperands(t *testing.T) {
	expectOutput(t, `
let n = 0
false && n++
true || n++
print(n)
`, "2\n")
}

func TestTruthiness(t *testing.T) {
	expectOutput(t, `print(!0, !"", !null, !undefined, !false, !NaN)`, "true true true true true true\n")
	expectOutput(t, `print(!1, !"0", ![], !{})`, "false false false false\n")
}

// ---- Unary ----

func TestTypeof(t *testing.T) {
	expectOutput(t, `print(typeof 1, typeof "s", typeof true, typeof null, typeof undefined)`,
		"number string boolean null undefined\n")
	expectOutput(t, `print(typeof {}, typeof [], typeof print, typeof "s".length)`,
		"object array native-function static-function\n")
	expectOutput(t, `
function f() {}
print(typeof f)
`, "function\n")
	expectKind(t, `typeof missing`, UnresolvedIdentifier)
}

func TestNegation(t *testing.T) {
	expectOutput(t, `print(-(2 * 3))`, "-6\n")
	expectKind(t, `-"a"`, OperatorTypeMismatch)
}

func TestIncrementIdentifier(t *testing.T) {
	expectOutput(t, `
let i = 5
print(i++)
print(i)
print(++i)
print(--i)
print(i--)
print(i)
`, "5\n6\n7\n6\n6\n5\n")
}

func TestIncrementArrayAliasing(t *testing.T) {
	expectOutput(t, `
let a = [10]
let b = a
print(++a[0])
print(a)
print(a[0]--)
print(b)
`, "11\n[11]\n11\n[10]\n")
}

func TestIncrementObjectProperty(t *testing.T) {
	expectOutput(t, `
let o = {n: 1}
o.n++
++o["n"]
print(o.n)
`, "3\n")
}

func TestIncrementErrors(t *testing.T) {
	expectKind(t, "let s = \"a\"\ns++", InvalidIncrementOperand)
	expectKind(t, "5++", InvalidIncrementOperand)
	expectKind(t, "let o = {}\no.missing++", InvalidIncrementOperand)
	expectKind(t, "const c = 1\nc++", ConstantReassignment)
	expectKind(t, "missing++", UnresolvedIdentifier)
}

// ---- Ternary ----

func TestTernaryEvaluatesOneBranch(t *testing.T) {
	expectOutput(t, `
let x = 0
true ? x++ : x--
print(x)
0 ? x++ : x--
print(x)
print(1 ? "yes" : "no")
`, "1\n0\nyes\n")
}

// ---- Variables ----

func TestDeclarations(t *testing.T) {
	expectOutput(t, `
var a = 1
let b
const c = "c"
print(a, b, c)
`, "1 undefined c\n")
	expectKind(t, "let x = 1\nlet x = 2", DuplicateBinding)
	expectKind(t, "const x = 1\nx = 2", ConstantReassignment)
	expectKind(t, `print(y)`, UnresolvedIdentifier)
	expectKind(t, `y = 1`, UnresolvedIdentifier)
}

func TestDeclarationRejectsCompoundOperator(t *testing.T) {
	expectKind(t, `let x += 1`, UnsupportedOperator)
}

func TestShadowingInBlocks(t *testing.T) {
	expectOutput(t, `
let x = 1
if (true) {
  let x = 2
  print(x)
}
print(x)
`, "2\n1\n")
}

func TestBuiltinsAreConstant(t *testing.T) {
	expectKind(t, `true = false`, ConstantReassignment)
	expectKind(t, `let print = 1`, DuplicateBinding)
}

// ---- Compound assignment ----

func TestCompoundAssignment(t *testing.T) {
	expectOutput(t, `
let n = 10
n += 5
n -= 3
n *= 2
n /= 4
n %= 4
print(n)
let s = "a"
s += "b"
s += 1
print(s)
`, "2\nab1\n")
	expectKind(t, "let b = true\nb += 1", OperatorTypeMismatch)
	expectKind(t, "let n = 1\nn -= \"a\"", OperatorTypeMismatch)
	expectKind(t, "let a = []\na *= 2", OperatorTypeMismatch)
}

func TestLogicalAssignment(t *testing.T) {
	expectOutput(t, `
let v = 0
v ||= 5
let w = 1
w &&= 7
let z = null
z &&= 9
print(v, w, z)
`, "5 7 null\n")
}

func TestAssignmentValue(t *testing.T) {
	expectOutput(t, `
let a
let b
a = b = 3
print(a, b)
print(a += 1)
`, "3 3\n4\n")
}

// ---- Members ----

func TestObjectRoundTrip(t *testing.T) {
	expectOutput(t, `
let o = {"k": 1}
print(o.k)
o.k = "s"
print(o.k, typeof o.k)
o["other"] = true
print(o)
`, "1\ns string\n{k: \"s\", other: true}\n")
}

func TestOwnPropertyShadowsPrototype(t *testing.T) {
	expectOutput(t, `
let o = {length: 5}
print(o.length)
let p = {a: 1, b: 2}
print(p.length())
print(typeof p.length)
`, "5\n2\nstatic-function\n")
}

func TestObjectLiteralShorthandAndDuplicates(t *testing.T) {
	expectOutput(t, `
let a = 1
let o = {a, b: 2, a: 3}
print(o)
`, "{a: 3, b: 2}\n")
	expectKind(t, `let o = {nope}`, UnresolvedIdentifier)
}

func TestIndexAccess(t *testing.T) {
	expectOutput(t, `print("héllo"[1], "abc"[5], "abc"[1.5])`, "é undefined undefined\n")
	expectOutput(t, `print([1, 2][1], [1, 2][5], [1, 2][-1])`, "2 undefined undefined\n")
	expectOutput(t, "let a = [1]\nprint(a[1e300], a[16777216], \"ab\"[1e300])", "undefined undefined undefined\n")
	expectKind(t, "let o = {}\no[0]", IndexAccessUnsupported)
	expectKind(t, "(5)[0]", IndexAccessUnsupported)
	expectKind(t, "let o = {}\no[true]", InvalidPropertyType)
	expectKind(t, "let o = {}\no[null]", InvalidPropertyType)
}

func TestMissingMembersAreUndefined(t *testing.T) {
	expectOutput(t, `print({}.nope, [].nope, "s".nope, (1).nope, true.nope)`,
		"undefined undefined undefined undefined undefined\n")
}

func TestInvalidMemberAccessTarget(t *testing.T) {
	expectKind(t, `null.x`, InvalidMemberAccessTarget)
	expectKind(t, `undefined["x"]`, InvalidMemberAccessTarget)
	expectKind(t, `print.name`, InvalidMemberAccessTarget)
}

func TestArrayIndexAssignment(t *testing.T) {
	expectOutput(t, `
let a = [1, 2]
a[0] = "x"
a[2] = 3
a[5] = 6
print(a)
`, `["x", 2, 3, undefined, undefined, 6]`)
	expectKind(t, "let a = [1]\na[-1] = 0", InvalidPropertyType)
	expectKind(t, "let a = [1]\na[0.5] = 0", InvalidPropertyType)
	expectError(t, "let a = [1]\na[1e300] = 2", "exceeds the maximum length 16777216")
	expectError(t, "let a = [1]\na[1e9] = 1", "exceeds the maximum length")
	expectKind(t, "let a = [1]\na[16777216] = 1", InvalidPropertyType)
}

func TestStringRepeatLimit(t *testing.T) {
	expectOutput(t, `print("ab".repeat(2.7), "".repeat(1e18))`, "abab \n")
	expectError(t, `let s = "ab".repeat(1e18)`, "RangeError in repeat")
	expectOutput(t, `
try {
  "ab".repeat(1e9)
} catch (e) {
  print(e.kind, e.message)
}
`, "RangeError result would exceed 268435456 bytes\n")
}

func TestAssignmentTargets(t *testing.T) {
	expectKind(t, "let n = 5\nn.x = 1", InvalidAssignmentTarget)
	expectKind(t, "let s = \"abc\"\ns.x = 1", InvalidAssignmentTarget)
	expectKind(t, "let a = [1]\na.foo = 2", ArrayPropertyAssignmentForbidden)
	expectKind(t, "let a = [1]\na[\"0\"] = 2", ArrayPropertyAssignmentForbidden)
}

func TestReferenceAliasing(t *testing.T) {
	expectOutput(t, `
let a = {n: 1}
let b = a
b.n = 2
print(a.n)
let xs = []
let ys = xs
ys.push(1)
print(xs)
`, "2\n[1]\n")
}

// ---- Functions ----

func TestFunctionCallsReturnUndefined(t *testing.T) {
	expectOutput(t, `
function f() { 1 }
print(f())
`, "undefined\n")
}

func TestMissingArgumentsAreUndefined(t *testing.T) {
	expectOutput(t, `
function f(a, b) { print(a, b) }
f(1)
f(1, 2, 3)
`, "1 undefined\n1 2\n")
}

func TestFunctionIsConstant(t *testing.T) {
	expectKind(t, "function f() {}\nf = 1", ConstantReassignment)
	expectKind(t, "function f() {}\nfunction f() {}", DuplicateBinding)
}

func TestRecursion(t *testing.T) {
	expectOutput(t, `
let count = 0
function down(n) {
  if (n > 0) {
    count += 1
    down(n - 1)
  }
}
down(5)
print(count)
`, "5\n")
}

func TestClosureOutlivesCall(t *testing.T) {
	expectOutput(t, `
let holder = {}
function outer(x) {
  function inner() { print(x) }
  holder.fn = inner
}
outer(42)
outer(7)
holder.fn()
`, "7\n")
}

func TestClosureSharesEnvironment(t *testing.T) {
	expectOutput(t, `
let counter = {}
function makeCounter() {
  let n = 0
  function inc() {
    n++
    print(n)
  }
  counter.inc = inc
}
makeCounter()
counter.inc()
counter.inc()
`, "1\n2\n")
}

func TestArgumentsBeforeCallee(t *testing.T) {
	expectOutput(t, `
let o = {}
o.f(o.f = print)
`, "<native print>\n")
}

func TestNotCallable(t *testing.T) {
	expectKind(t, "let x = 1\nx()", NotCallable)
	expectKind(t, `"s"()`, NotCallable)
	expectKind(t, `({}).nope()`, NotCallable)
}

func TestUnboundStaticNotCallable(t *testing.T) {
	env := NewEnvironment(nil)
	fn := NewStatic("m", func(recv Value, pos span.Position, args ...Value) (Value, error) {
		return recv, nil
	})
	if err := env.DeclareVar("m", fn, true, span.Span{}); err != nil {
		t.Fatal(err)
	}
	interp := NewInterpreterWithEnv(env, &bytes.Buffer{})
	call := &ast.CallExpr{Callee: &ast.Identifier{Name: "m"}}

	_, err := interp.Evaluate(call, env)
	if !IsKind(err, NotCallable) {
		t.Fatalf("expected NotCallable, got %v", err)
	}

	if err := env.DeclareVar("bound", fn.Bind(StringVal("r")), true, span.Span{}); err != nil {
		t.Fatal(err)
	}
	got, err := interp.Evaluate(&ast.CallExpr{Callee: &ast.Identifier{Name: "bound"}}, env)
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(got, Value(StringVal("r"))); diff != nil {
		t.Error(diff)
	}
}

func TestNativeReceivesEnvironment(t *testing.T) {
	env := NewEnvironment(nil)
	var seen *Environment
	native := NewNative("probe", func(args []Value, e *Environment) (Value, error) {
		seen = e
		return NumberVal(len(args)), nil
	})
	if err := env.DeclareVar("probe", native, true, span.Span{}); err != nil {
		t.Fatal(err)
	}
	interp := NewInterpreterWithEnv(env, &bytes.Buffer{})
	call := &ast.CallExpr{
		Callee:    &ast.Identifier{Name: "probe"},
		Arguments: []ast.Expr{&ast.NumericLiteral{Value: 1}, &ast.StringLiteral{Value: "a"}},
	}
	got, err := interp.Evaluate(call, env)
	if err != nil {
		t.Fatal(err)
	}
	if got != NumberVal(2) {
		t.Errorf("got %v, want 2", got)
	}
	if seen != env {
		t.Error("native function did not receive the calling environment")
	}
}

// ---- Control flow ----

func TestIfElseChain(t *testing.T) {
	expectOutput(t, `
function grade(n) {
  if (n >= 90) {
    print("A")
  } else if (n >= 80) {
    print("B")
  } else {
    print("C")
  }
}
grade(95)
grade(85)
grade(10)
`, "A\nB\nC\n")
}

func TestWhileLoop(t *testing.T) {
	expectOutput(t, `
let i = 0
let total = 0
while (i < 5) {
  total += i
  i++
}
print(total)
`, "10\n")
}

func TestWhileBodyScopePerIteration(t *testing.T) {
	expectOutput(t, `
let i = 0
while (i < 3) {
  let sq = i * i
  print(sq)
  i++
}
`, "0\n1\n4\n")
}

// ---- Exceptions ----

func TestThrowCatch(t *testing.T) {
	expectOutput(t, `
try {
  throw "boom"
} catch (e) {
  print("caught", e)
}
`, "caught boom\n")
}

func TestThrowFromFunction(t *testing.T) {
	expectOutput(t, `
function fail(msg) { throw {message: msg} }
try {
  fail("deep")
  print("unreachable")
} catch (err) {
  print(err.message)
}
`, "deep\n")
}

func TestCatchAPIException(t *testing.T) {
	expectOutput(t, `
try {
  "a".repeat(-1)
} catch (e) {
  print(e.kind, e.thrownBy, e.line)
}
`, "RangeError repeat 3\n")
	expectOutput(t, `
try {
  len(1)
} catch (e) {
  print(e.kind, e.message)
}
`, "Error len() not supported for type 'number'\n")
}

func TestRuntimeErrorsAreNotCaught(t *testing.T) {
	expectKind(t, `
try {
  1 / 0
} catch (e) {
  print("no")
}
`, DivisionByZero)
}

func TestCatchWithoutParam(t *testing.T) {
	expectOutput(t, `
try { throw 1 } catch { print("handled") }
`, "handled\n")
}

func TestUncaughtThrow(t *testing.T) {
	expectError(t, `throw [1, "x"]`, `uncaught throw at 1:1: [1, "x"]`)
}

// ---- Errors ----

func TestRuntimeErrorPosition(t *testing.T) {
	expectError(t, "let a = 1\nprint(a / 0)", "runtime error at 2:7: [DivisionByZero] division by zero")
}

func TestFaultOnUnknownNode(t *testing.T) {
	interp := NewInterpreterWithEnv(NewEnvironment(nil), &bytes.Buffer{})
	_, err := interp.Evaluate(&ast.ObjectProperty{Key: "k"}, interp.Env())
	if Category(err) != CategoryInternal {
		t.Fatalf("expected internal fault, got %v", err)
	}
	_, err = interp.Evaluate(nil, interp.Env())
	if Category(err) != CategoryInternal {
		t.Fatalf("expected internal fault for nil node, got %v", err)
	}
}

func TestCategory(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{runtimeErr(NotCallable, span.Span{}, "x"), CategoryRuntime},
		{&ThrownError{Value: Null}, CategoryThrown},
		{&APIException{Kind: "TypeError"}, CategoryThrown},
		{fault(span.Span{}, "x"), CategoryInternal},
		{fmt.Errorf("wrapped: %w", runtimeErr(DivisionByZero, span.Span{}, "x")), CategoryRuntime},
	}
	for _, tt := range tests {
		if got := Category(tt.err); got != tt.want {
			t.Errorf("Category(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestCircularFormatting(t *testing.T) {
	expectOutput(t, `
let a = []
a[0] = a
print(a)
let o = {}
o.self = o
print(o)
`, "[[Circular]]\n{self: [Circular]}\n")
}
