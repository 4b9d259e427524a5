package registry

import (
	"math"
	"strconv"
	"strings"

	"github.com/csvsub/runtime/internal/errhandling"
)

// Builtin converter names.
const (
	BuiltinUpper = "upper"
	BuiltinLower = "lower"
	BuiltinTrim  = "trim"
	BuiltinInt   = "int"
	BuiltinAbs   = "abs"
	BuiltinEmpty = "empty"
)

// registerBuiltins registers the converters every NewWithBuiltins registry starts with.
func registerBuiltins(r *Registry) {
	r.Register(BuiltinUpper, func(cell string) (string, error) {
		return strings.ToUpper(cell), nil
	})

	r.Register(BuiltinLower, func(cell string) (string, error) {
		return strings.ToLower(cell), nil
	})

	r.Register(BuiltinTrim, func(cell string) (string, error) {
		return strings.TrimSpace(cell), nil
	})

	// int - truncates a numeric cell toward zero
	r.Register(BuiltinInt, func(cell string) (string, error) {
		f, err := parseNumber(BuiltinInt, cell)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(int64(f), 10), nil
	})

	r.Register(BuiltinAbs, func(cell string) (string, error) {
		f, err := parseNumber(BuiltinAbs, cell)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(math.Abs(f), 'f', -1, 64), nil
	})

	// empty - blanks the column
	r.Register(BuiltinEmpty, func(string) (string, error) {
		return "", nil
	})
}

func parseNumber(converter, cell string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0, errhandling.New(errhandling.KindEvaluation,
			converter+": "+strconv.Quote(cell)+" is not a number", err)
	}
	return f, nil
}
