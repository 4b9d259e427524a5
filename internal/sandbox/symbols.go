package sandbox

import (
	"fmt"
	"math"
	"math/big"
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/expr-lang/expr"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// defaultSymbols is the allow-list installed in every new Sandbox.
func defaultSymbols() map[string]Func {
	return map[string]Func{
		"random":   random,
		"randint":  randint,
		"abs":      absolute,
		"int":      toInt,
		"float":    toFloat,
		"str":      toStr,
		"len":      length,
		"upper":    stringFunc("upper", strings.ToUpper),
		"lower":    stringFunc("lower", strings.ToLower),
		"trim":     trim,
		"replace":  replace,
		"jsonpath": jsonPath,
	}
}

func arity(name string, args []any, min, max int) error {
	if len(args) < min || len(args) > max {
		if min == max {
			return fmt.Errorf("%s expects %d argument(s), got %d", name, min, len(args))
		}
		return fmt.Errorf("%s expects %d to %d arguments, got %d", name, min, max, len(args))
	}
	return nil
}

// random returns a pseudo-random float in [0, 1).
func random(args ...any) (any, error) {
	if err := arity("random", args, 0, 0); err != nil {
		return nil, err
	}
	return rand.Float64(), nil
}

// randint returns a pseudo-random integer in [lo, hi].
func randint(args ...any) (any, error) {
	if err := arity("randint", args, 2, 2); err != nil {
		return nil, err
	}
	lo, err := intOf(args[0])
	if err != nil {
		return nil, err
	}
	hi, err := intOf(args[1])
	if err != nil {
		return nil, err
	}
	if hi < lo {
		return nil, fmt.Errorf("randint: empty range [%d, %d]", lo, hi)
	}
	return lo + rand.IntN(hi-lo+1), nil
}

func absolute(args ...any) (any, error) {
	if err := arity("abs", args, 1, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case int:
		if v < 0 {
			return -v, nil
		}
		return v, nil
	case int64:
		if v < 0 {
			return -v, nil
		}
		return v, nil
	}
	f, err := floatOf(args[0])
	if err != nil {
		return nil, err
	}
	return math.Abs(f), nil
}

func toInt(args ...any) (any, error) {
	if err := arity("int", args, 1, 1); err != nil {
		return nil, err
	}
	return intOf(args[0])
}

func toFloat(args ...any) (any, error) {
	if err := arity("float", args, 1, 1); err != nil {
		return nil, err
	}
	return floatOf(args[0])
}

func toStr(args ...any) (any, error) {
	if err := arity("str", args, 1, 1); err != nil {
		return nil, err
	}
	return Render(args[0]), nil
}

func length(args ...any) (any, error) {
	if err := arity("len", args, 1, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case string:
		return utf8.RuneCountInString(v), nil
	case []string:
		return len(v), nil
	case []any:
		return len(v), nil
	case nil:
		return 0, nil
	default:
		return utf8.RuneCountInString(Render(v)), nil
	}
}

func stringFunc(name string, fn func(string) string) Func {
	return func(args ...any) (any, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		return fn(Render(args[0])), nil
	}
}

// trim strips surrounding whitespace, or the characters in an optional cutset.
func trim(args ...any) (any, error) {
	if err := arity("trim", args, 1, 2); err != nil {
		return nil, err
	}
	if len(args) == 2 {
		return strings.Trim(Render(args[0]), Render(args[1])), nil
	}
	return strings.TrimSpace(Render(args[0])), nil
}

func replace(args ...any) (any, error) {
	if err := arity("replace", args, 3, 3); err != nil {
		return nil, err
	}
	return strings.ReplaceAll(Render(args[0]), Render(args[1]), Render(args[2])), nil
}

// jsonPath parses the first argument as JSON and returns the first value
// matched by the JSONPath in the second, or nil when nothing matches.
func jsonPath(args ...any) (any, error) {
	if err := arity("jsonpath", args, 2, 2); err != nil {
		return nil, err
	}
	doc := Render(args[0])
	if strings.TrimSpace(doc) == "" {
		return nil, nil
	}
	data, err := oj.ParseString(doc)
	if err != nil {
		return nil, fmt.Errorf("jsonpath: cell is not JSON: %w", err)
	}
	path, err := jp.ParseString(Render(args[1]))
	if err != nil {
		return nil, fmt.Errorf("jsonpath: %w", err)
	}
	results := path.Get(data)
	if len(results) == 0 {
		return nil, nil
	}
	switch v := results[0].(type) {
	case map[string]any, []any:
		return oj.JSON(v), nil
	default:
		return v, nil
	}
}

func intOf(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.Atoi(s); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot use %q as an integer", t)
		}
		return int(f), nil
	case nil:
		return 0, fmt.Errorf("cannot use nil as an integer")
	default:
		return 0, fmt.Errorf("cannot use %T as an integer", v)
	}
}

func floatOf(v any) (float64, error) {
	switch t := v.(type) {
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case float64:
		return t, nil
	case *big.Int:
		f, _ := new(big.Float).SetInt(t).Float64()
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot use %q as a number", t)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("cannot use nil as a number")
	default:
		return 0, fmt.Errorf("cannot use %T as a number", v)
	}
}

// arithmeticOps maps operators to the hidden functions overloading them for
// text/number operands. ints is nil for operators that always produce a
// float.
var arithmeticOps = []struct {
	op     string
	name   string
	ints   func(z, a, b *big.Int) *big.Int
	floats func(a, b float64) (float64, error)
}{
	{"+", "__text_add", (*big.Int).Add, func(a, b float64) (float64, error) { return a + b, nil }},
	{"-", "__text_sub", (*big.Int).Sub, func(a, b float64) (float64, error) { return a - b, nil }},
	{"*", "__text_mul", (*big.Int).Mul, func(a, b float64) (float64, error) { return a * b, nil }},
	{"/", "__text_div", nil, func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return a / b, nil
	}},
}

// integral returns v as an exact integer when it is an integer or integer text.
func integral(v any) (*big.Int, bool) {
	switch t := v.(type) {
	case int:
		return big.NewInt(int64(t)), true
	case int64:
		return big.NewInt(t), true
	case *big.Int:
		return t, true
	case string:
		return new(big.Int).SetString(strings.TrimSpace(t), 10)
	default:
		return nil, false
	}
}

// narrow returns n as an int64 when it fits.
func narrow(n *big.Int) any {
	if n.IsInt64() {
		return n.Int64()
	}
	return n
}

// textArithmetic overloads + - * / when exactly one operand is text, parsing
// that operand as a number. Text+text keeps expr's concatenation.
func textArithmetic() []expr.Option {
	opts := make([]expr.Option, 0, len(arithmeticOps)*2)
	for _, a := range arithmeticOps {
		opts = append(opts,
			expr.Function(a.name, func(params ...any) (any, error) {
				if len(params) != 2 {
					return nil, fmt.Errorf("expected 2 operands, got %d", len(params))
				}
				if a.ints != nil {
					l, lok := integral(params[0])
					r, rok := integral(params[1])
					if lok && rok {
						return narrow(a.ints(new(big.Int), l, r)), nil
					}
				}
				l, err := floatOf(params[0])
				if err != nil {
					return nil, err
				}
				r, err := floatOf(params[1])
				if err != nil {
					return nil, err
				}
				return a.floats(l, r)
			},
				new(func(string, int) float64),
				new(func(int, string) float64),
				new(func(string, float64) float64),
				new(func(float64, string) float64),
			),
			expr.Operator(a.op, a.name),
		)
	}
	return opts
}
