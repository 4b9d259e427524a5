// Package registry maps converter names to converter functions.
//
// # Overview
//
// A converter turns one cell into another. Converters are registered by name,
// either as Go functions, as sandboxed expressions, or as JavaScript scripts,
// and engines look them up at write time through Resolve.
//
// A name that was never registered is not necessarily an error: Resolve
// compiles it as an inline expression (for example "x: x + 1" or
// "upper(x)") and memoizes the result under that name. Only when the name
// neither resolves nor compiles does Resolve fail with an unknown converter
// error.
//
// # Registries and the default
//
// Registries are plain values created with New or NewWithBuiltins and
// injected into engines. For command-line use a process-wide default exists;
// it is created by Init and returned by Default.
//
// Example:
//
//	reg := registry.NewWithBuiltins(sandbox.New())
//	if err := reg.RegisterExpr("cents", "x: x * 100"); err != nil {
//	    return err
//	}
//	conv, err := reg.Resolve("cents")
//
// Registration is safe for concurrent use, but converters are expected to be
// registered before any engine starts writing.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/csvsub/runtime/internal/errhandling"
	"github.com/csvsub/runtime/internal/logger"
	"github.com/csvsub/runtime/internal/sandbox"
)

// Converter transforms a single cell.
type Converter func(cell string) (string, error)

// Registry holds named converters and the sandbox used to compile
// expression and script converters.
type Registry struct {
	mu         sync.RWMutex
	sandbox    *sandbox.Sandbox
	converters map[string]Converter
}

// New creates an empty registry compiling with sb. A nil sb uses a default
// strict sandbox.
func New(sb *sandbox.Sandbox) *Registry {
	if sb == nil {
		sb = sandbox.New()
	}
	return &Registry{
		sandbox:    sb,
		converters: make(map[string]Converter),
	}
}

// NewWithBuiltins creates a registry pre-loaded with the built-in converters.
func NewWithBuiltins(sb *sandbox.Sandbox) *Registry {
	r := New(sb)
	registerBuiltins(r)
	return r
}

// Sandbox returns the sandbox the registry compiles with.
func (r *Registry) Sandbox() *sandbox.Sandbox {
	return r.sandbox
}

// Register adds a converter under name, replacing any previous one.
func (r *Registry) Register(name string, conv Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converters[name] = conv
}

// RegisterExpr compiles source as a converter expression and registers it.
func (r *Registry) RegisterExpr(name, source string) error {
	prog, err := r.sandbox.CompileConverter(source)
	if err != nil {
		return fmt.Errorf("converter %q: %w", name, err)
	}
	r.Register(name, FromProgram(prog))
	logger.Debug("converter registered",
		slog.String("converter", name),
		slog.String("kind", "expr"),
	)
	return nil
}

// RegisterScript compiles a JavaScript converter and registers it. The script
// must define convert(x).
func (r *Registry) RegisterScript(name, source string) error {
	script, err := r.sandbox.CompileScript(source)
	if err != nil {
		return fmt.Errorf("converter %q: %w", name, err)
	}
	r.Register(name, FromScript(script))
	logger.Debug("converter registered",
		slog.String("converter", name),
		slog.String("kind", "script"),
	)
	return nil
}

// Lookup returns the converter registered under name without compiling.
func (r *Registry) Lookup(name string) (Converter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.converters[name]
	return conv, ok
}

// Resolve returns the converter registered under name. Unknown names are
// compiled as inline expressions and memoized.
func (r *Registry) Resolve(name string) (Converter, error) {
	if conv, ok := r.Lookup(name); ok {
		return conv, nil
	}

	prog, err := r.sandbox.CompileConverter(name)
	if err != nil {
		return nil, errhandling.New(errhandling.KindUnknownConverter,
			fmt.Sprintf("%q is neither a registered converter nor a valid expression", name), err)
	}

	conv := FromProgram(prog)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.converters[name]; ok {
		return existing, nil
	}
	r.converters[name] = conv
	logger.Debug("inline converter compiled", slog.String("converter", name))
	return conv, nil
}

// Names returns the sorted names of all registered converters, including
// memoized inline expressions.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.converters))
	for name := range r.converters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear removes all registered converters.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converters = make(map[string]Converter)
}

// FromProgram adapts a compiled expression to a Converter.
func FromProgram(prog *sandbox.Program) Converter {
	return func(cell string) (string, error) {
		out, err := prog.Call(cell)
		if err != nil {
			return "", err
		}
		return sandbox.Render(out), nil
	}
}

// FromScript adapts a compiled script to a Converter.
func FromScript(script *sandbox.Script) Converter {
	return func(cell string) (string, error) {
		out, err := script.Call(cell)
		if err != nil {
			return "", err
		}
		return sandbox.Render(out), nil
	}
}

var (
	defaultMu       sync.Mutex
	defaultRegistry *Registry
)

// Init replaces the process-wide default registry with a fresh one compiling
// with sb and holding the built-in converters.
func Init(sb *sandbox.Sandbox) *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultRegistry = NewWithBuiltins(sb)
	return defaultRegistry
}

// Default returns the process-wide registry, initializing it with a strict
// sandbox if Init was never called.
func Default() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRegistry == nil {
		defaultRegistry = NewWithBuiltins(nil)
	}
	return defaultRegistry
}
