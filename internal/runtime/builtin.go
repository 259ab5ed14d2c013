package runtime

import (
	"fmt"
	"io"
	"lumen/internal/span"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// RegisterGlobals installs the literal constants, the console and Math
// objects, and the top-level native functions into env. Every binding is
// constant.
func RegisterGlobals(env *Environment, w io.Writer) {
	define := func(name string, v Value) {
		// env is fresh or owned by the caller; a duplicate here is a programming error.
		if err := env.DeclareVar(name, v, true, span.Span{}); err != nil {
			panic(err)
		}
	}

	define("true", BoolVal(true))
	define("false", BoolVal(false))
	define("null", Null)
	define("undefined", Undefined)
	define("NaN", NumberVal(math.NaN()))
	define("Infinity", NumberVal(math.Inf(1)))

	printer := func(name string) *NativeFuncVal {
		return NewNative(name, func(args []Value, env *Environment) (Value, error) {
			fmt.Fprintln(w, ValuesString(args, " "))
			return Undefined, nil
		})
	}

	define("console", NewObject(map[string]Value{
		"log":   printer("console.log"),
		"error": printer("console.error"),
	}))
	define("print", printer("print"))
	define("Math", mathObject())

	define("str", NewNative("str", func(args []Value, env *Environment) (Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("str() expects 1 argument, got %d", len(args))
		}
		if s, ok := args[0].(StringVal); ok {
			return s, nil
		}
		return StringVal(formatValue(args[0], nil)), nil
	}))

	define("num", NewNative("num", func(args []Value, env *Environment) (Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("num() expects 1 argument, got %d", len(args))
		}
		switch v := args[0].(type) {
		case NumberVal:
			return v, nil
		case BoolVal:
			if v {
				return NumberVal(1), nil
			}
			return NumberVal(0), nil
		case StringVal:
			text := strings.TrimSpace(string(v))
			if text == "" {
				return NumberVal(0), nil
			}
			f, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return NumberVal(math.NaN()), nil
			}
			return NumberVal(f), nil
		case NullVal:
			return NumberVal(0), nil
		default:
			return NumberVal(math.NaN()), nil
		}
	}))

	define("len", NewNative("len", func(args []Value, env *Environment) (Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("len() expects 1 argument, got %d", len(args))
		}
		switch v := args[0].(type) {
		case StringVal:
			return NumberVal(utf8.RuneCountInString(string(v))), nil
		case *ArrayVal:
			return NumberVal(len(v.Elements)), nil
		case *ObjectVal:
			return NumberVal(len(v.Props)), nil
		default:
			return nil, fmt.Errorf("len() not supported for type '%s'", args[0].Kind())
		}
	}))
}

func mathObject() *ObjectVal {
	unary := func(name string, fn func(float64) float64) *NativeFuncVal {
		return NewNative("Math."+name, func(args []Value, env *Environment) (Value, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("Math.%s() expects 1 argument, got %d", name, len(args))
			}
			n, ok := args[0].(NumberVal)
			if !ok {
				return nil, fmt.Errorf("Math.%s() expects a number, got '%s'", name, args[0].Kind())
			}
			return NumberVal(fn(float64(n))), nil
		})
	}
	extreme := func(name string, start float64, pick func(a, b float64) float64) *NativeFuncVal {
		return NewNative("Math."+name, func(args []Value, env *Environment) (Value, error) {
			result := start
			for _, arg := range args {
				n, ok := arg.(NumberVal)
				if !ok {
					return nil, fmt.Errorf("Math.%s() expects numbers, got '%s'", name, arg.Kind())
				}
				result = pick(result, float64(n))
			}
			return NumberVal(result), nil
		})
	}

	return NewObject(map[string]Value{
		"PI":    NumberVal(math.Pi),
		"E":     NumberVal(math.E),
		"floor": unary("floor", math.Floor),
		"ceil":  unary("ceil", math.Ceil),
		"round": unary("round", func(f float64) float64 { return math.Floor(f + 0.5) }),
		"abs":   unary("abs", math.Abs),
		"sqrt":  unary("sqrt", math.Sqrt),
		"pow": NewNative("Math.pow", func(args []Value, env *Environment) (Value, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("Math.pow() expects 2 arguments, got %d", len(args))
			}
			base, ok1 := args[0].(NumberVal)
			exp, ok2 := args[1].(NumberVal)
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("Math.pow() expects numbers")
			}
			return NumberVal(math.Pow(float64(base), float64(exp))), nil
		}),
		"min": extreme("min", math.Inf(1), math.Min),
		"max": extreme("max", math.Inf(-1), math.Max),
	})
}
