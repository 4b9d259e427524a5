package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema/job-schema.json
var embeddedSchema []byte

const schemaURL = "https://csvsub.dev/schemas/job/v1/job-schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaInitErr  error
)

// EmbeddedSchema returns the job file schema.
func EmbeddedSchema() []byte {
	return embeddedSchema
}

// getCompiledSchema compiles the embedded schema once.
func getCompiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var doc interface{}
		if err := json.Unmarshal(embeddedSchema, &doc); err != nil {
			schemaInitErr = fmt.Errorf("failed to parse embedded schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, doc); err != nil {
			schemaInitErr = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}

		var err error
		compiledSchema, err = compiler.Compile(schemaURL)
		if err != nil {
			schemaInitErr = fmt.Errorf("failed to compile schema: %w", err)
		}
	})
	return compiledSchema, schemaInitErr
}

// ValidationResult holds the schema violations of a job document.
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// Validate checks a decoded job document against the embedded schema.
func Validate(data map[string]interface{}) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if data == nil {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{
			Path:    "/",
			Type:    "required",
			Message: "job is empty",
		})
		return result
	}

	schema, err := getCompiledSchema()
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{
			Path:    "/",
			Type:    "schema",
			Message: fmt.Sprintf("failed to load schema: %v", err),
		})
		return result
	}

	if err := schema.Validate(data); err != nil {
		result.Valid = false
		if verr, ok := err.(*jsonschema.ValidationError); ok {
			result.Errors = flattenValidationError(verr)
		} else {
			result.Errors = append(result.Errors, ValidationError{
				Path:    "/",
				Type:    "validation",
				Message: err.Error(),
			})
		}
	}
	return result
}

// flattenValidationError collects the leaf causes of a validation error.
func flattenValidationError(err *jsonschema.ValidationError) []ValidationError {
	if len(err.Causes) == 0 {
		return []ValidationError{{
			Path:    instancePath(err.InstanceLocation),
			Type:    errorType(err.Error()),
			Message: err.Error(),
		}}
	}

	var out []ValidationError
	for _, cause := range err.Causes {
		out = append(out, flattenValidationError(cause)...)
	}
	return out
}

func instancePath(loc []string) string {
	if len(loc) == 0 {
		return "/"
	}
	return "/" + strings.Join(loc, "/")
}

func errorType(msg string) string {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "missing propert"), strings.Contains(msg, "required"):
		return "required"
	case strings.Contains(msg, "additional properties"), strings.Contains(msg, "additionalproperties"):
		return "additionalProperties"
	case strings.Contains(msg, "does not match pattern"), strings.Contains(msg, "pattern"):
		return "pattern"
	case strings.Contains(msg, "oneof"):
		return "oneOf"
	case strings.Contains(msg, "got ") && strings.Contains(msg, "want "):
		return "type"
	case strings.Contains(msg, "length"):
		return "length"
	default:
		return "validation"
	}
}
