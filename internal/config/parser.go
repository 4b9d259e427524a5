package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseFile reads, decodes and validates the job file at path. The format is
// taken from the extension (.json, .yaml, .yml) or detected from content.
func ParseFile(path string) *Result {
	result := &Result{FilePath: path}

	content, err := os.ReadFile(path)
	if err != nil {
		result.ParseErrors = append(result.ParseErrors, ParseError{
			Path:    path,
			Message: fmt.Sprintf("failed to read file: %v", err),
			Type:    ErrorTypeIO,
		})
		return result
	}

	parsed := ParseString(string(content), DetectFormat(path))
	parsed.FilePath = path
	for i := range parsed.ParseErrors {
		if parsed.ParseErrors[i].Path == "" {
			parsed.ParseErrors[i].Path = path
		}
	}
	return parsed
}

// ParseString decodes and validates job content. An empty format is
// detected from the content.
func ParseString(content, format string) *Result {
	result := &Result{Format: format}

	if format == "" {
		switch {
		case IsJSON(content):
			format = FormatJSON
		case IsYAML(content):
			format = FormatYAML
		default:
			result.ParseErrors = append(result.ParseErrors, ParseError{
				Message: "unable to detect job format: not valid JSON or YAML",
				Type:    ErrorTypeFormat,
			})
			return result
		}
		result.Format = format
	}

	var (
		data map[string]interface{}
		perr *ParseError
	)
	switch format {
	case FormatJSON:
		data, perr = decodeJSON(content)
	case FormatYAML:
		data, perr = decodeYAML(content)
	default:
		perr = &ParseError{Message: fmt.Sprintf("unsupported format: %s", format), Type: ErrorTypeFormat}
	}
	if perr != nil {
		result.ParseErrors = append(result.ParseErrors, *perr)
		return result
	}

	result.Data = data
	result.ValidationErrors = Validate(data).Errors
	return result
}

// DetectFormat returns the format implied by the file extension, or "".
func DetectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return ""
	}
}

// IsJSON reports whether content looks like a JSON document.
func IsJSON(content string) bool {
	content = strings.TrimSpace(content)
	return strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[")
}

// IsYAML reports whether content decodes as a non-empty YAML document.
// JSON is valid YAML, so this also holds for JSON content.
func IsYAML(content string) bool {
	if strings.TrimSpace(content) == "" {
		return false
	}
	var data interface{}
	return yaml.Unmarshal([]byte(content), &data) == nil && data != nil
}

func decodeJSON(content string) (map[string]interface{}, *ParseError) {
	if strings.TrimSpace(content) == "" {
		return nil, &ParseError{Message: "empty content: expected JSON object", Type: ErrorTypeSyntax}
	}

	var data interface{}
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		perr := &ParseError{Message: err.Error(), Type: ErrorTypeSyntax}
		if syntaxErr, ok := err.(*json.SyntaxError); ok {
			perr.Line, perr.Column = offsetToLineColumn(content, syntaxErr.Offset)
			perr.Message = fmt.Sprintf("JSON syntax error: %s", syntaxErr.Error())
		}
		return nil, perr
	}
	return asObject(data, "JSON object")
}

func decodeYAML(content string) (map[string]interface{}, *ParseError) {
	if strings.TrimSpace(content) == "" {
		return nil, &ParseError{Message: "empty content: expected YAML document", Type: ErrorTypeSyntax}
	}

	var data interface{}
	if err := yaml.Unmarshal([]byte(content), &data); err != nil {
		perr := &ParseError{Message: err.Error(), Type: ErrorTypeSyntax}
		if typeErr, ok := err.(*yaml.TypeError); ok {
			perr.Message = fmt.Sprintf("YAML type error: %s", strings.Join(typeErr.Errors, "; "))
		}
		// yaml.v3 reports "yaml: line N: ..."
		var line int
		if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil {
			perr.Line = line
		}
		return nil, perr
	}
	return asObject(data, "YAML mapping")
}

func asObject(data interface{}, want string) (map[string]interface{}, *ParseError) {
	obj, ok := data.(map[string]interface{})
	if !ok {
		return nil, &ParseError{
			Message: fmt.Sprintf("invalid job: expected %s, got %T", want, data),
			Type:    ErrorTypeFormat,
		}
	}
	return obj, nil
}

// offsetToLineColumn converts a byte offset to 1-based line and column.
func offsetToLineColumn(content string, offset int64) (line, column int) {
	line, column = 1, 1
	for i := int64(0); i < offset-1 && i < int64(len(content)); i++ {
		if content[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}
