// Package sandbox compiles and evaluates short expressions against an
// explicit allow-list of functions.
//
// Expressions use the expr language (github.com/expr-lang/expr): sources are
// parsed into an expression tree, type-checked and run by expr's VM. Every
// expr builtin is disabled; the only callable names are the ones installed in
// the Sandbox's symbol table, plus the parameter the program is bound to.
//
// Cells are always text. Arithmetic between text and a number parses the text
// as a number, so "x: x + 1" turns "5" into "6"; int() and float() parse
// explicitly. Program results are rendered back to text with Render.
package sandbox

import (
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/csvsub/runtime/internal/errhandling"
	"github.com/csvsub/runtime/internal/logger"
)

// DefaultParam is the parameter name of converters written without an
// explicit "<name>:" prefix.
const DefaultParam = "x"

// RowParam is the parameter name of row predicates.
const RowParam = "row"

// Func is an allow-listed function callable from expressions and scripts.
type Func func(args ...any) (any, error)

// explicitParam matches the "<name>: <body>" converter form.
var explicitParam = regexp.MustCompile(`(?s)^\s*([A-Za-z_][A-Za-z0-9_]*)\s*:(.*)$`)

// Sandbox holds the allow-listed symbol table used to compile programs.
// A Sandbox is immutable after New and safe to share.
type Sandbox struct {
	symbols map[string]Func
	lenient bool
}

// Option configures a Sandbox.
type Option func(*Sandbox)

// WithSymbol adds or replaces an allow-listed function.
func WithSymbol(name string, fn Func) Option {
	return func(s *Sandbox) {
		s.symbols[name] = fn
	}
}

// WithoutSymbol removes a function from the allow-list.
func WithoutSymbol(name string) Option {
	return func(s *Sandbox) {
		delete(s.symbols, name)
	}
}

// Lenient makes names outside the allow-list evaluate to nil instead of
// failing at compile time. Programs with a misspelled function or variable
// then compile and quietly produce empty cells, so this should only be used
// to run converters written for the permissive behavior.
func Lenient() Option {
	return func(s *Sandbox) {
		s.lenient = true
	}
}

// New creates a Sandbox with the default allow-list.
func New(opts ...Option) *Sandbox {
	s := &Sandbox{symbols: defaultSymbols()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Symbols returns the sorted names of the allow-listed functions.
func (s *Sandbox) Symbols() []string {
	names := make([]string, 0, len(s.symbols))
	for name := range s.symbols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsLenient reports whether unknown names resolve to nil.
func (s *Sandbox) IsLenient() bool {
	return s.lenient
}

// Program is a compiled one-argument expression.
type Program struct {
	source  string
	param   string
	bound   map[string]any
	program *vm.Program
}

// Source returns the expression text the program was compiled from.
func (p *Program) Source() string {
	return p.source
}

// Compile compiles source as a function of one text argument named param.
func (s *Sandbox) Compile(source, param string) (*Program, error) {
	return s.compile(source, param, "", nil, false)
}

// CompileConverter compiles a converter body. Two shapes are accepted:
// "<name>: <body>" binds the cell to <name>; a bare "<body>" binds it to
// DefaultParam, which the body may also ignore.
func (s *Sandbox) CompileConverter(source string) (*Program, error) {
	param, body := SplitParam(source)
	return s.Compile(body, param)
}

// CompileRowPredicate compiles a boolean expression over a row bound to
// RowParam. Values in bound are visible to the expression by name, so
// expected values never have to be spliced into the source text.
func (s *Sandbox) CompileRowPredicate(source string, bound map[string]any) (*Program, error) {
	return s.compile(source, RowParam, []string(nil), bound, true)
}

// SplitParam separates the explicit parameter of a converter body, returning
// DefaultParam and the whole source when there is none.
func SplitParam(source string) (param, body string) {
	if m := explicitParam.FindStringSubmatch(source); m != nil {
		return m[1], m[2]
	}
	return DefaultParam, source
}

func (s *Sandbox) compile(source, param string, sample any, bound map[string]any, predicate bool) (*Program, error) {
	if strings.TrimSpace(source) == "" {
		return nil, errhandling.Newf(errhandling.KindInvalidExpression, "expression cannot be empty")
	}
	if _, clash := s.symbols[param]; clash {
		return nil, errhandling.Newf(errhandling.KindInvalidExpression,
			"parameter %q shadows an allow-listed function", param)
	}

	env := make(map[string]any, len(bound)+1)
	for name, v := range bound {
		env[name] = v
	}
	env[param] = sample

	opts := s.options(env)
	if predicate {
		opts = append(opts, expr.AsBool())
	}

	program, err := expr.Compile(source, opts...)
	if err != nil {
		return nil, errhandling.New(errhandling.KindInvalidExpression,
			fmt.Sprintf("cannot compile %q", source), err)
	}

	logger.Debug("expression compiled",
		slog.String("expression", source),
		slog.String("param", param),
		slog.Bool("lenient", s.lenient),
	)

	return &Program{
		source:  source,
		param:   param,
		bound:   bound,
		program: program,
	}, nil
}

func (s *Sandbox) options(env map[string]any) []expr.Option {
	opts := []expr.Option{
		expr.Env(env),
		expr.DisableAllBuiltins(),
	}
	for _, name := range s.Symbols() {
		opts = append(opts, expr.Function(name, s.symbols[name]))
	}
	opts = append(opts, textArithmetic()...)
	if s.lenient {
		opts = append(opts, expr.AllowUndefinedVariables())
	}
	return opts
}

// Call evaluates the program with arg bound to its parameter.
func (p *Program) Call(arg any) (any, error) {
	env := make(map[string]any, len(p.bound)+1)
	for name, v := range p.bound {
		env[name] = v
	}
	env[p.param] = arg

	out, err := expr.Run(p.program, env)
	if err != nil {
		return nil, errhandling.New(errhandling.KindEvaluation,
			fmt.Sprintf("cannot evaluate %q", p.source), err)
	}
	return out, nil
}

// Render converts an evaluation result to cell text. nil renders as "".
func Render(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case *big.Int:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
