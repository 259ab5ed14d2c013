package runtime

import (
	"lumen/internal/span"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ============================================================
// Argument helpers
// ============================================================

func argAt(args []Value, i int) Value {
	if i < len(args) && args[i] != nil {
		return args[i]
	}
	return Undefined
}

// numberArg returns args[i] as a float64, or def when it is missing.
func numberArg(by string, pos span.Position, args []Value, i int, def float64) (float64, error) {
	switch v := argAt(args, i).(type) {
	case UndefinedVal:
		return def, nil
	case NumberVal:
		return float64(v), nil
	default:
		return 0, typeError(by, pos, "argument %d must be a number, got %s", i+1, v.Kind())
	}
}

func stringArg(by string, pos span.Position, args []Value, i int) (string, error) {
	v, ok := argAt(args, i).(StringVal)
	if !ok {
		return "", typeError(by, pos, "argument %d must be a string, got %s", i+1, argAt(args, i).Kind())
	}
	return string(v), nil
}

func receiverArray(by string, pos span.Position, recv Value) (*ArrayVal, error) {
	arr, ok := recv.(*ArrayVal)
	if !ok {
		return nil, typeError(by, pos, "receiver must be an array, got %s", recv.Kind())
	}
	return arr, nil
}

func receiverString(by string, pos span.Position, recv Value) (string, error) {
	s, ok := recv.(StringVal)
	if !ok {
		return "", typeError(by, pos, "receiver must be a string, got %s", recv.Kind())
	}
	return string(s), nil
}

// relativeIndex clamps a possibly negative index into [0, length].
func relativeIndex(idx float64, length int) int {
	if math.IsNaN(idx) {
		return 0
	}
	idx = math.Trunc(idx)
	if idx < 0 {
		idx += float64(length)
	}
	if idx < 0 {
		return 0
	}
	if idx > float64(length) {
		return length
	}
	return int(idx)
}

// ============================================================
// Top
// ============================================================

var topMethods = map[string]StaticFn{
	"toString": func(recv Value, pos span.Position, args ...Value) (Value, error) {
		return StringVal(formatValue(recv, nil)), nil
	},
	"valueOf": func(recv Value, pos span.Position, args ...Value) (Value, error) {
		return recv, nil
	},
}

// ============================================================
// Object
// ============================================================

func receiverObject(by string, pos span.Position, recv Value) (*ObjectVal, error) {
	obj, ok := recv.(*ObjectVal)
	if !ok {
		return nil, typeError(by, pos, "receiver must be an object, got %s", recv.Kind())
	}
	return obj, nil
}

var objectMethods = map[string]StaticFn{
	"length": func(recv Value, pos span.Position, args ...Value) (Value, error) {
		obj, err := receiverObject("length", pos, recv)
		if err != nil {
			return nil, err
		}
		return NumberVal(len(obj.Props)), nil
	},
	"keys": func(recv Value, pos span.Position, args ...Value) (Value, error) {
		obj, err := receiverObject("keys", pos, recv)
		if err != nil {
			return nil, err
		}
		keys := obj.Keys()
		elems := make([]Value, len(keys))
		for i, k := range keys {
			elems[i] = StringVal(k)
		}
		return NewArray(elems...), nil
	},
	"values": func(recv Value, pos span.Position, args ...Value) (Value, error) {
		obj, err := receiverObject("values", pos, recv)
		if err != nil {
			return nil, err
		}
		keys := obj.Keys()
		elems := make([]Value, len(keys))
		for i, k := range keys {
			elems[i] = obj.Props[k]
		}
		return NewArray(elems...), nil
	},
	"has": func(recv Value, pos span.Position, args ...Value) (Value, error) {
		obj, err := receiverObject("has", pos, recv)
		if err != nil {
			return nil, err
		}
		key, err := stringArg("has", pos, args, 0)
		if err != nil {
			return nil, err
		}
		_, ok := obj.Props[key]
		return BoolVal(ok), nil
	},
}

// ============================================================
// Array
// ============================================================

// joinElement renders an array element for join: strings raw, null and
// undefined as empty.
func joinElement(v Value) string {
	switch v.(type) {
	case NullVal, UndefinedVal:
		return ""
	case StringVal:
		return v.String()
	default:
		return formatValue(v, nil)
	}
}

// flatten inlines nested arrays up to depth levels.
func flatten(elems []Value, depth float64) []Value {
	out := make([]Value, 0, len(elems))
	for _, elem := range elems {
		if inner, ok := elem.(*ArrayVal); ok && depth >= 1 {
			out = append(out, flatten(inner.Elements, depth-1)...)
			continue
		}
		out = append(out, elem)
	}
	return out
}

var arrayMethods = map[string]StaticFn{
	"length": func(recv Value, pos span.Position, args ...Value) (Value, error) {
		arr, err := receiverArray("length", pos, recv)
		if err != nil {
			return nil, err
		}
		return NumberVal(len(arr.Elements)), nil
	},
	"push": func(recv Value, pos span.Position, args ...Value) (Value, error) {
		arr, err := receiverArray("push", pos, recv)
		if err != nil {
			return nil, err
		}
		arr.Elements = append(arr.Elements, args...)
		return NumberVal(len(arr.Elements)), nil
	},
	"pop": func(recv Value, pos span.Position, args ...Value) (Value, error) {
		arr, err := receiverArray("pop", pos, recv)
		if err != nil {
			return nil, err
		}
		n := len(arr.Elements)
		if n == 0 {
			return Undefined, nil
		}
		last := arr.Elements[n-1]
		arr.Elements = arr.Elements[:n-1]
		return last, nil
	},
	"join": func(recv Value, pos span.Position, args ...Value) (Value, error) {
		arr, err := receiverArray("join", pos, recv)
		if err != nil {
			return nil, err
		}
		sep := ","
		if _, missing := argAt(args, 0).(UndefinedVal); !missing {
			if sep, err = stringArg("join", pos, args, 0); err != nil {
				return nil, err
			}
		}
		parts := make([]string, len(arr.Elements))
		for i, elem := range arr.Elements {
			parts[i] = joinElement(elem)
		}
		return StringVal(strings.Join(parts, sep)), nil
	},
	"includes": func(recv Value, pos span.Position, args ...Value) (Value, error) {
		arr, err := receiverArray("includes", pos, recv)
		if err != nil {
			return nil, err
		}
		target := argAt(args, 0)
		for _, elem := range arr.Elements {
			if StrictEquals(elem, target) {
				return BoolVal(true), nil
			}
		}
		return BoolVal(false), nil
	},
	"indexOf": func(recv Value, pos span.Position, args ...Value) (Value, error) {
		arr, err := receiverArray("indexOf", pos, recv)
		if err != nil {
			return nil, err
		}
		target := argAt(args, 0)
		for i, elem := range arr.Elements {
			if StrictEquals(elem, target) {
				return NumberVal(i), nil
			}
		}
		return NumberVal(-1), nil
	},
	"slice": func(recv Value, pos span.Position, args ...Value) (Value, error) {
		arr, err := receiverArray("slice", pos, recv)
		if err != nil {
			return nil, err
		}
		n := len(arr.Elements)
		start, err := numberArg("slice", pos, args, 0, 0)
		if err != nil {
			return nil, err
		}
		end, err := numberArg("slice", pos, args, 1, float64(n))
		if err != nil {
			return nil, err
		}
		from, to := relativeIndex(start, n), relativeIndex(end, n)
		if from >= to {
			return NewArray(), nil
		}
		out := make([]Value, to-from)
		copy(out, arr.Elements[from:to])
		return NewArray(out...), nil
	},
	"reverse": func(recv Value, pos span.Position, args ...Value) (Value, error) {
		arr, err := receiverArray("reverse", pos, recv)
		if err != nil {
			return nil, err
		}
		for i, j := 0, len(arr.Elements)-1; i < j; i, j = i+1, j-1 {
			arr.Elements[i], arr.Elements[j] = arr.Elements[j], arr.Elements[i]
		}
		return arr, nil
	},
	"flat": func(recv Value, pos span.Position, args ...Value) (Value, error) {
		arr, err := receiverArray("flat", pos, recv)
		if err != nil {
			return nil, err
		}
		depth, err := numberArg("flat", pos, args, 0, 1)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(depth) || depth < 0 {
			depth = 0
		}
		return NewArray(flatten(arr.Elements, depth)...), nil
	},
}

// ============================================================
// String
// ============================================================

// runeIndex converts a byte offset in s into a character index.
func runeIndex(s string, byteIdx int) int {
	if byteIdx < 0 {
		return -1
	}
	return utf8.RuneCountInString(s[:byteIdx])
}

func stringPredicate(name string, pred func(s, sub string) bool) StaticFn {
	return func(recv Value, pos span.Position, args ...Value) (Value, error) {
		s, err := receiverString(name, pos, recv)
		if err != nil {
			return nil, err
		}
		sub, err := stringArg(name, pos, args, 0)
		if err != nil {
			return nil, err
		}
		return BoolVal(pred(s, sub)), nil
	}
}

func stringTransform(name string, fn func(string) string) StaticFn {
	return func(recv Value, pos span.Position, args ...Value) (Value, error) {
		s, err := receiverString(name, pos, recv)
		if err != nil {
			return nil, err
		}
		return StringVal(fn(s)), nil
	}
}

var stringMethods = map[string]StaticFn{
	"length": func(recv Value, pos span.Position, args ...Value) (Value, error) {
		s, err := receiverString("length", pos, recv)
		if err != nil {
			return nil, err
		}
		return NumberVal(utf8.RuneCountInString(s)), nil
	},
	"toUpperCase": stringTransform("toUpperCase", strings.ToUpper),
	"toLowerCase": stringTransform("toLowerCase", strings.ToLower),
	"trim":        stringTransform("trim", strings.TrimSpace),
	"includes":    stringPredicate("includes", strings.Contains),
	"startsWith":  stringPredicate("startsWith", strings.HasPrefix),
	"endsWith":    stringPredicate("endsWith", strings.HasSuffix),
	"split": func(recv Value, pos span.Position, args ...Value) (Value, error) {
		s, err := receiverString("split", pos, recv)
		if err != nil {
			return nil, err
		}
		if _, missing := argAt(args, 0).(UndefinedVal); missing {
			return NewArray(StringVal(s)), nil
		}
		sep, err := stringArg("split", pos, args, 0)
		if err != nil {
			return nil, err
		}
		parts := strings.Split(s, sep)
		elems := make([]Value, len(parts))
		for i, part := range parts {
			elems[i] = StringVal(part)
		}
		return NewArray(elems...), nil
	},
	"indexOf": func(recv Value, pos span.Position, args ...Value) (Value, error) {
		s, err := receiverString("indexOf", pos, recv)
		if err != nil {
			return nil, err
		}
		sub, err := stringArg("indexOf", pos, args, 0)
		if err != nil {
			return nil, err
		}
		return NumberVal(runeIndex(s, strings.Index(s, sub))), nil
	},
	"charAt": func(recv Value, pos span.Position, args ...Value) (Value, error) {
		s, err := receiverString("charAt", pos, recv)
		if err != nil {
			return nil, err
		}
		idx, err := numberArg("charAt", pos, args, 0, 0)
		if err != nil {
			return nil, err
		}
		if ch, ok := charAt(s, idx); ok {
			return StringVal(ch), nil
		}
		return StringVal(""), nil
	},
	"repeat": func(recv Value, pos span.Position, args ...Value) (Value, error) {
		s, err := receiverString("repeat", pos, recv)
		if err != nil {
			return nil, err
		}
		count, err := numberArg("repeat", pos, args, 0, 0)
		if err != nil {
			return nil, err
		}
		if count < 0 || math.IsInf(count, 0) || math.IsNaN(count) {
			return nil, rangeError("repeat", pos, "invalid count %s", formatNumber(count))
		}
		if float64(len(s))*math.Trunc(count) > maxStringLength {
			return nil, rangeError("repeat", pos, "result would exceed %d bytes", maxStringLength)
		}
		return StringVal(strings.Repeat(s, int(count))), nil
	},
}

// maxStringLength bounds strings built by repeat.
const maxStringLength = 1 << 28

// charAt returns the character at a (rune) index of s.
func charAt(s string, idx float64) (string, bool) {
	if idx < 0 || idx != math.Trunc(idx) {
		return "", false
	}
	runes := []rune(s)
	if idx >= float64(len(runes)) {
		return "", false
	}
	return string(runes[int(idx)]), true
}

// ============================================================
// Number and Boolean
// ============================================================

var numberMethods = map[string]StaticFn{
	"toFixed": func(recv Value, pos span.Position, args ...Value) (Value, error) {
		n, ok := recv.(NumberVal)
		if !ok {
			return nil, typeError("toFixed", pos, "receiver must be a number, got %s", recv.Kind())
		}
		digits, err := numberArg("toFixed", pos, args, 0, 0)
		if err != nil {
			return nil, err
		}
		if digits < 0 || digits > 100 || digits != math.Trunc(digits) {
			return nil, rangeError("toFixed", pos, "digits must be an integer between 0 and 100")
		}
		f := float64(n)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return StringVal(formatNumber(f)), nil
		}
		return StringVal(strconv.FormatFloat(f, 'f', int(digits), 64)), nil
	},
}

var booleanMethods = map[string]StaticFn{
	"toString": func(recv Value, pos span.Position, args ...Value) (Value, error) {
		b, ok := recv.(BoolVal)
		if !ok {
			return nil, typeError("toString", pos, "receiver must be a boolean, got %s", recv.Kind())
		}
		return StringVal(strconv.FormatBool(bool(b))), nil
	},
}
