package config

import (
	"fmt"
	"strings"
)

// Error types of ParseError.
const (
	ErrorTypeIO     = "io"
	ErrorTypeSyntax = "syntax"
	ErrorTypeFormat = "format"
)

// Supported job file formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ParseError is a failure to read or decode a job file.
type ParseError struct {
	// Path is the job file, empty when parsing a string
	Path string
	// Line is 1-based, 0 if unknown
	Line int
	// Column is 1-based, 0 if unknown
	Column int
	// Message describes the failure
	Message string
	// Type is one of the ErrorType constants
	Type string
}

// Error implements the error interface.
func (e ParseError) Error() string {
	var sb strings.Builder
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, "line %d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&sb, ", column %d", e.Column)
		}
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	return sb.String()
}

// ValidationError is a schema violation.
type ValidationError struct {
	// Path is the JSON pointer of the offending value, e.g. "/stages/0/1"
	Path string
	// Type is a short category: required, type, pattern, enum, ...
	Type string
	// Message is the validator's description
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Result is the outcome of parsing and validating one job document.
type Result struct {
	// Data is the decoded document
	Data map[string]interface{}
	// ParseErrors are read and decode failures; validation is skipped when set
	ParseErrors []ParseError
	// ValidationErrors are schema violations
	ValidationErrors []ValidationError
	// FilePath is the job file, empty when parsing a string
	FilePath string
	// Format is FormatJSON or FormatYAML
	Format string
}

// IsValid returns true if no errors occurred.
func (r *Result) IsValid() bool {
	return len(r.ParseErrors) == 0 && len(r.ValidationErrors) == 0
}

// AllErrors returns parse errors followed by validation errors.
func (r *Result) AllErrors() []error {
	errs := make([]error, 0, len(r.ParseErrors)+len(r.ValidationErrors))
	for _, e := range r.ParseErrors {
		errs = append(errs, e)
	}
	for _, e := range r.ValidationErrors {
		errs = append(errs, e)
	}
	return errs
}

// Err joins every error of the result, or returns nil when it is valid.
func (r *Result) Err() error {
	if r.IsValid() {
		return nil
	}
	msgs := make([]string, 0, len(r.ParseErrors)+len(r.ValidationErrors))
	for _, e := range r.AllErrors() {
		msgs = append(msgs, e.Error())
	}
	name := r.FilePath
	if name == "" {
		name = "job"
	}
	return fmt.Errorf("invalid %s: %s", name, strings.Join(msgs, "; "))
}
