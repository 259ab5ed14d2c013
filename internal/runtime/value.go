// Package runtime implements the evaluator and runtime value system for lumen.
package runtime

import (
	"fmt"
	"lumen/internal/ast"
	"lumen/internal/span"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind tags every runtime value. Its String form is what typeof returns.
type Kind int

const (
	KindNumber Kind = iota
	KindString
	KindBoolean
	KindNull
	KindUndefined
	KindObject
	KindArray
	KindFunction
	KindNativeFunction
	KindStaticFunction
)

var kindNames = [...]string{
	KindNumber:         "number",
	KindString:         "string",
	KindBoolean:        "boolean",
	KindNull:           "null",
	KindUndefined:      "undefined",
	KindObject:         "object",
	KindArray:          "array",
	KindFunction:       "function",
	KindNativeFunction: "native-function",
	KindStaticFunction: "static-function",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is the interface for all runtime values.
type Value interface {
	Kind() Kind
	String() string
	// Proto returns the built-in prototype record for the value's kind, or nil.
	Proto() *Prototype
}

// ---- Primitive values ----

// NumberVal represents a double-precision number.
type NumberVal float64

func (v NumberVal) Kind() Kind        { return KindNumber }
func (v NumberVal) String() string    { return formatNumber(float64(v)) }
func (v NumberVal) Proto() *Prototype { return NumberProto }

// StringVal represents a string value.
type StringVal string

func (v StringVal) Kind() Kind        { return KindString }
func (v StringVal) String() string    { return string(v) }
func (v StringVal) Proto() *Prototype { return StringProto }

// BoolVal represents a boolean value.
type BoolVal bool

func (v BoolVal) Kind() Kind        { return KindBoolean }
func (v BoolVal) String() string    { return strconv.FormatBool(bool(v)) }
func (v BoolVal) Proto() *Prototype { return BooleanProto }

// NullVal represents null.
type NullVal struct{}

func (NullVal) Kind() Kind        { return KindNull }
func (NullVal) String() string    { return "null" }
func (NullVal) Proto() *Prototype { return nil }

// UndefinedVal represents undefined.
type UndefinedVal struct{}

func (UndefinedVal) Kind() Kind        { return KindUndefined }
func (UndefinedVal) String() string    { return "undefined" }
func (UndefinedVal) Proto() *Prototype { return nil }

// Null and Undefined are the only instances their kinds need.
var (
	Null      Value = NullVal{}
	Undefined Value = UndefinedVal{}
)

// ---- Reference values ----
// Objects, arrays and functions are pointers: copying a Value copies the
// reference, so mutation through one alias is visible through all others.

// ObjectVal represents a string-keyed property bag.
type ObjectVal struct {
	Props map[string]Value
}

func (v *ObjectVal) Kind() Kind        { return KindObject }
func (v *ObjectVal) String() string    { return formatValue(v, nil) }
func (v *ObjectVal) Proto() *Prototype { return ObjectProto }

// Get returns an own property.
func (v *ObjectVal) Get(key string) (Value, bool) {
	val, ok := v.Props[key]
	return val, ok
}

// Set stores an own property, replacing any previous value.
func (v *ObjectVal) Set(key string, val Value) {
	v.Props[key] = val
}

// Keys returns the own property names in sorted order.
func (v *ObjectVal) Keys() []string {
	keys := make([]string, 0, len(v.Props))
	for k := range v.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ArrayVal represents an ordered sequence of values.
type ArrayVal struct {
	Elements []Value
}

func (v *ArrayVal) Kind() Kind        { return KindArray }
func (v *ArrayVal) String() string    { return formatValue(v, nil) }
func (v *ArrayVal) Proto() *Prototype { return ArrayProto }

// ---- Callable values ----

// FuncVal represents a user-defined function together with the environment
// it was declared in.
type FuncVal struct {
	Name    string
	Params  []string
	Body    *ast.BlockStmt
	Closure *Environment
}

func (v *FuncVal) Kind() Kind        { return KindFunction }
func (v *FuncVal) String() string    { return fmt.Sprintf("<function %s>", v.Name) }
func (v *FuncVal) Proto() *Prototype { return TopProto }

// NativeFn is the host signature for unbound built-in functions.
type NativeFn func(args []Value, env *Environment) (Value, error)

// NativeFuncVal represents a host function such as print or Math.floor.
type NativeFuncVal struct {
	Name string
	Fn   NativeFn
}

func (v *NativeFuncVal) Kind() Kind        { return KindNativeFunction }
func (v *NativeFuncVal) String() string    { return fmt.Sprintf("<native %s>", v.Name) }
func (v *NativeFuncVal) Proto() *Prototype { return nil }

// StaticFn is the host signature for prototype methods. Domain failures are
// reported as *APIException.
type StaticFn func(receiver Value, pos span.Position, args ...Value) (Value, error)

// StaticFuncVal represents a prototype method. Receiver is nil in the
// prototype record and set on the copy handed out by Resolve.
type StaticFuncVal struct {
	Name     string
	Fn       StaticFn
	Receiver Value
}

func (v *StaticFuncVal) Kind() Kind        { return KindStaticFunction }
func (v *StaticFuncVal) String() string    { return fmt.Sprintf("<method %s>", v.Name) }
func (v *StaticFuncVal) Proto() *Prototype { return nil }

// Bind returns a copy of the method bound to receiver.
func (v *StaticFuncVal) Bind(receiver Value) *StaticFuncVal {
	return &StaticFuncVal{Name: v.Name, Fn: v.Fn, Receiver: receiver}
}

// ---- Factories ----

// Number wraps f as a Number value.
func Number(f float64) Value { return NumberVal(f) }

// String wraps s as a String value.
func String(s string) Value { return StringVal(s) }

// Bool wraps b as a Boolean value.
func Bool(b bool) Value { return BoolVal(b) }

// NewObject creates an object holding props (which may be nil).
func NewObject(props map[string]Value) *ObjectVal {
	if props == nil {
		props = make(map[string]Value)
	}
	return &ObjectVal{Props: props}
}

// NewArray creates an array holding elems.
func NewArray(elems ...Value) *ArrayVal {
	if elems == nil {
		elems = []Value{}
	}
	return &ArrayVal{Elements: elems}
}

// NewFunction creates a function value closing over env.
func NewFunction(name string, params []string, body *ast.BlockStmt, env *Environment) *FuncVal {
	return &FuncVal{Name: name, Params: params, Body: body, Closure: env}
}

// NewNative wraps a host function.
func NewNative(name string, fn NativeFn) *NativeFuncVal {
	return &NativeFuncVal{Name: name, Fn: fn}
}

// NewStatic wraps a prototype method body.
func NewStatic(name string, fn StaticFn) *StaticFuncVal {
	return &StaticFuncVal{Name: name, Fn: fn}
}

// ---- Truthiness and equality ----

// IsTruthy reports the truthiness of v: 0, NaN, "", null, undefined and false
// are falsy; everything else, including empty objects and arrays, is truthy.
func IsTruthy(v Value) bool {
	switch val := v.(type) {
	case NullVal, UndefinedVal:
		return false
	case BoolVal:
		return bool(val)
	case NumberVal:
		f := float64(val)
		return f != 0 && !math.IsNaN(f)
	case StringVal:
		return val != ""
	default:
		return true
	}
}

// StrictEquals compares primitives by value and everything else by reference.
func StrictEquals(a, b Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case NumberVal:
		return av == b.(NumberVal)
	case StringVal:
		return av == b.(StringVal)
	case BoolVal:
		return av == b.(BoolVal)
	case NullVal, UndefinedVal:
		return true
	default:
		return a == b
	}
}

// ---- Formatting ----

// formatNumber renders f the way scripts expect to see it: integral values
// without a fractional part, NaN and Infinity spelled out.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	// Go writes e-07 / e+21; drop the leading zero of the exponent.
	if i := strings.IndexAny(s, "e"); i >= 0 && i+2 < len(s) && s[i+2] == '0' {
		s = s[:i+2] + s[i+3:]
	}
	return s
}

// formatValue renders containers recursively, quoting nested strings and
// marking cycles.
func formatValue(v Value, seen map[Value]bool) string {
	switch val := v.(type) {
	case *ArrayVal:
		if seen[val] {
			return "[Circular]"
		}
		seen = markSeen(seen, val)
		defer delete(seen, val)
		parts := make([]string, len(val.Elements))
		for i, elem := range val.Elements {
			parts[i] = formatNested(elem, seen)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *ObjectVal:
		if seen[val] {
			return "[Circular]"
		}
		seen = markSeen(seen, val)
		defer delete(seen, val)
		keys := val.Keys()
		if len(keys) == 0 {
			return "{}"
		}
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + formatNested(val.Props[k], seen)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return v.String()
	}
}

func formatNested(v Value, seen map[Value]bool) string {
	if s, ok := v.(StringVal); ok {
		return strconv.Quote(string(s))
	}
	return formatValue(v, seen)
}

func markSeen(seen map[Value]bool, v Value) map[Value]bool {
	if seen == nil {
		seen = make(map[Value]bool)
	}
	seen[v] = true
	return seen
}

// ValuesString formats a slice of values with a separator.
func ValuesString(vals []Value, sep string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.String()
	}
	return strings.Join(parts, sep)
}
