package sandbox

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/dop251/goja"

	"github.com/csvsub/runtime/internal/errhandling"
	"github.com/csvsub/runtime/internal/logger"
)

// MaxScriptLength is the maximum allowed script length in bytes (100KB).
const MaxScriptLength = 100 * 1024

// ScriptEntryPoint is the function every converter script must define.
const ScriptEntryPoint = "convert"

// Script is a JavaScript converter running in its own goja runtime.
//
// The runtime only sees the Sandbox's allow-listed functions as globals; goja
// itself exposes no filesystem, network or process access. Goja runtimes are
// not goroutine-safe, so calls are serialized.
type Script struct {
	mu        sync.Mutex
	source    string
	runtime   *goja.Runtime
	convertFn goja.Callable
}

// CompileScript evaluates source and returns its convert(cell) function.
func (s *Sandbox) CompileScript(source string) (*Script, error) {
	if isWhitespaceOnly(source) {
		return nil, errhandling.Newf(errhandling.KindInvalidExpression, "script cannot be empty")
	}
	if len(source) > MaxScriptLength {
		return nil, errhandling.Newf(errhandling.KindInvalidExpression,
			"script exceeds maximum length: %d bytes exceeds maximum %d bytes", len(source), MaxScriptLength)
	}

	vm := goja.New()
	for _, name := range s.Symbols() {
		if err := vm.Set(name, s.symbols[name]); err != nil {
			return nil, errhandling.New(errhandling.KindInvalidExpression,
				fmt.Sprintf("cannot install %q in script runtime", name), err)
		}
	}

	if _, err := vm.RunString(source); err != nil {
		return nil, errhandling.New(errhandling.KindInvalidExpression, "script compilation failed", err)
	}

	fnVal := vm.Get(ScriptEntryPoint)
	if fnVal == nil || goja.IsUndefined(fnVal) {
		return nil, errhandling.Newf(errhandling.KindInvalidExpression,
			"%s function not found in script", ScriptEntryPoint)
	}
	convertFn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return nil, errhandling.Newf(errhandling.KindInvalidExpression,
			"%s is not a function", ScriptEntryPoint)
	}

	logger.Debug("script compiled", slog.Int("script_length", len(source)))

	return &Script{
		source:    source,
		runtime:   vm,
		convertFn: convertFn,
	}, nil
}

// Call runs convert(cell). undefined and null results are returned as nil.
func (sc *Script) Call(cell string) (any, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	result, err := sc.convertFn(goja.Undefined(), sc.runtime.ToValue(cell))
	if err != nil {
		if jsErr, ok := err.(*goja.Exception); ok {
			return nil, errhandling.New(errhandling.KindEvaluation,
				fmt.Sprintf("script failed on %q: %v", cell, jsErr.Value()), err)
		}
		return nil, errhandling.New(errhandling.KindEvaluation,
			fmt.Sprintf("script failed on %q", cell), err)
	}

	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return nil, nil
	}
	return result.Export(), nil
}

func isWhitespaceOnly(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
