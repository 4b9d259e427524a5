// Package errhandling provides the error taxonomy shared by the csvsub packages.
// Every failure raised by the engine is a *ClassifiedError carrying a Kind, so
// callers can branch with errors.Is against the sentinel of that kind and the
// CLI can map kinds to exit codes.
package errhandling

import (
	"errors"
	"fmt"
	"os"
)

// Kind represents the category of an error.
type Kind string

// Error kinds.
const (
	// KindInvalidAddress is a column label containing non-letter characters.
	// Fatal to the triggering call; the caller may skip that constraint.
	KindInvalidAddress Kind = "invalid_address"

	// KindInvalidColumnMarking is a column selector that is neither an
	// integer nor a valid address.
	KindInvalidColumnMarking Kind = "invalid_column_marking"

	// KindInvalidToken is a filter or convert token that does not split into
	// exactly two parts.
	KindInvalidToken Kind = "invalid_token"

	// KindInvalidExpression is converter or predicate text that does not
	// compile under the sandbox grammar.
	KindInvalidExpression Kind = "invalid_expression"

	// KindUnknownConverter is a converter name that was never registered and
	// does not compile as an inline expression either.
	KindUnknownConverter Kind = "unknown_converter"

	// KindColumnOutOfRange is a resolved column index beyond the matrix width.
	KindColumnOutOfRange Kind = "column_out_of_range"

	// KindEvaluation is a runtime failure inside a compiled expression or script.
	KindEvaluation Kind = "evaluation"

	// KindIO is an unreadable source or an unwritable destination.
	KindIO Kind = "io"

	// KindUnknown represents unclassified errors.
	KindUnknown Kind = "unknown"
)

// Sentinel errors, one per kind. A *ClassifiedError matches the sentinel of
// its kind with errors.Is.
var (
	ErrInvalidAddress       = errors.New("invalid column address")
	ErrInvalidColumnMarking = errors.New("invalid column marking")
	ErrInvalidToken         = errors.New("invalid token")
	ErrInvalidExpression    = errors.New("invalid expression")
	ErrUnknownConverter     = errors.New("unknown converter")
	ErrColumnOutOfRange     = errors.New("column out of range")
	ErrEvaluation           = errors.New("evaluation failed")
	ErrIO                   = errors.New("i/o failure")
)

var sentinels = map[Kind]error{
	KindInvalidAddress:       ErrInvalidAddress,
	KindInvalidColumnMarking: ErrInvalidColumnMarking,
	KindInvalidToken:         ErrInvalidToken,
	KindInvalidExpression:    ErrInvalidExpression,
	KindUnknownConverter:     ErrUnknownConverter,
	KindColumnOutOfRange:     ErrColumnOutOfRange,
	KindEvaluation:           ErrEvaluation,
	KindIO:                   ErrIO,
}

// ClassifiedError wraps an error with its kind and a human-readable message.
type ClassifiedError struct {
	// Kind is the error classification.
	Kind Kind

	// Message is a human-readable error message.
	Message string

	// OriginalErr is the underlying error, if any.
	OriginalErr error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.OriginalErr)
	}
	return e.Message
}

// Unwrap returns the original error for use with errors.Is and errors.As.
func (e *ClassifiedError) Unwrap() error {
	return e.OriginalErr
}

// Is reports whether target is the sentinel of this error's kind.
func (e *ClassifiedError) Is(target error) bool {
	sentinel, ok := sentinels[e.Kind]
	return ok && target == sentinel
}

// New creates a ClassifiedError.
func New(kind Kind, message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Kind:        kind,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// Newf creates a ClassifiedError with a formatted message and no cause.
func Newf(kind Kind, format string, args ...any) *ClassifiedError {
	return New(kind, fmt.Sprintf(format, args...), nil)
}

// NewIOError classifies a filesystem failure on path.
func NewIOError(op, path string, originalErr error) *ClassifiedError {
	return New(KindIO, fmt.Sprintf("%s %s", op, path), originalErr)
}

// KindOf returns the kind of err. Unclassified filesystem errors are reported
// as KindIO; everything else unclassified as KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.Kind
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return KindIO
	}

	return KindUnknown
}

// IsUsageError reports whether err was caused by bad user input (addresses,
// selectors, expressions, converter names) rather than by the environment.
func IsUsageError(err error) bool {
	switch KindOf(err) {
	case KindInvalidAddress, KindInvalidColumnMarking, KindInvalidToken, KindInvalidExpression,
		KindUnknownConverter, KindColumnOutOfRange:
		return true
	default:
		return false
	}
}
