package config

import (
	"strings"
	"testing"
)

func TestParseFile_YAMLJob(t *testing.T) {
	result := ParseFile("testdata/job.yaml")

	if !result.IsValid() {
		t.Fatalf("expected valid result, got errors: %v", result.AllErrors())
	}
	if result.Format != FormatYAML {
		t.Errorf("expected format %q, got %q", FormatYAML, result.Format)
	}
	if result.FilePath != "testdata/job.yaml" {
		t.Errorf("expected FilePath to be set, got %q", result.FilePath)
	}
	if result.Data["keepHeader"] != true {
		t.Errorf("expected keepHeader true, got %v", result.Data["keepHeader"])
	}
	stages, ok := result.Data["stages"].([]interface{})
	if !ok || len(stages) != 2 {
		t.Fatalf("expected 2 stages, got %v", result.Data["stages"])
	}
}

func TestParseFile_JSONJob(t *testing.T) {
	result := ParseFile("testdata/job.json")

	if !result.IsValid() {
		t.Fatalf("expected valid result, got errors: %v", result.AllErrors())
	}
	if result.Format != FormatJSON {
		t.Errorf("expected format %q, got %q", FormatJSON, result.Format)
	}
	if result.Data["encoding"] != "windows-1252" {
		t.Errorf("expected encoding windows-1252, got %v", result.Data["encoding"])
	}
}

func TestParseFile_InvalidJSON(t *testing.T) {
	result := ParseFile("testdata/invalid-syntax.json")

	if result.IsValid() {
		t.Fatal("expected parsing to fail for invalid JSON")
	}
	if len(result.ParseErrors) != 1 {
		t.Fatalf("expected 1 parse error, got %d", len(result.ParseErrors))
	}
	perr := result.ParseErrors[0]
	if perr.Type != ErrorTypeSyntax {
		t.Errorf("expected error type %q, got %q", ErrorTypeSyntax, perr.Type)
	}
	if perr.Line == 0 {
		t.Error("expected a line number for a JSON syntax error")
	}
	if perr.Path != "testdata/invalid-syntax.json" {
		t.Errorf("expected path to be filled in, got %q", perr.Path)
	}
	if len(result.ValidationErrors) != 0 {
		t.Errorf("validation must be skipped on parse errors, got %v", result.ValidationErrors)
	}
}

func TestParseFile_EmptyFile(t *testing.T) {
	result := ParseFile("testdata/empty.yaml")

	if result.IsValid() {
		t.Fatal("expected parsing to fail for empty file")
	}
	if result.ParseErrors[0].Type != ErrorTypeSyntax {
		t.Errorf("expected error type %q, got %q", ErrorTypeSyntax, result.ParseErrors[0].Type)
	}
}

func TestParseFile_NonExistentFile(t *testing.T) {
	result := ParseFile("testdata/does-not-exist.yaml")

	if result.IsValid() {
		t.Fatal("expected error for missing file")
	}
	if result.ParseErrors[0].Type != ErrorTypeIO {
		t.Errorf("expected error type %q, got %q", ErrorTypeIO, result.ParseErrors[0].Type)
	}
	if !strings.Contains(result.ParseErrors[0].Message, "failed to read file") {
		t.Errorf("unexpected message: %s", result.ParseErrors[0].Message)
	}
}

func TestParseFile_ValidationErrors(t *testing.T) {
	result := ParseFile("testdata/invalid-schema.yaml")

	if len(result.ParseErrors) != 0 {
		t.Fatalf("expected no parse errors, got %v", result.ParseErrors)
	}
	if len(result.ValidationErrors) == 0 {
		t.Fatal("expected validation errors")
	}
	if result.Data == nil {
		t.Error("decoded data must be kept alongside validation errors")
	}
}

func TestParseString(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		format     string
		wantFormat string
		wantErr    string
	}{
		{name: "json auto", content: `{"source": "a.csv"}`, wantFormat: FormatJSON},
		{name: "yaml auto", content: "source: a.csv\n", wantFormat: FormatYAML},
		{name: "explicit yaml", content: `{"source": "a.csv"}`, format: FormatYAML, wantFormat: FormatYAML},
		{name: "json array", content: `[1, 2]`, wantFormat: FormatJSON, wantErr: ErrorTypeFormat},
		{name: "yaml null", content: "null", format: FormatYAML, wantFormat: FormatYAML, wantErr: ErrorTypeFormat},
		{name: "yaml scalar", content: "just text", wantFormat: FormatYAML, wantErr: ErrorTypeFormat},
		{name: "undetectable", content: "   ", wantErr: ErrorTypeFormat},
		{name: "unsupported", content: "a=b", format: "toml", wantFormat: "toml", wantErr: ErrorTypeFormat},
		{name: "bad yaml", content: "source: [a", format: FormatYAML, wantFormat: FormatYAML, wantErr: ErrorTypeSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseString(tt.content, tt.format)
			if result.Format != tt.wantFormat {
				t.Errorf("format = %q, want %q", result.Format, tt.wantFormat)
			}
			if tt.wantErr == "" {
				if !result.IsValid() {
					t.Fatalf("expected valid result, got %v", result.AllErrors())
				}
				return
			}
			if len(result.ParseErrors) == 0 {
				t.Fatal("expected a parse error")
			}
			if result.ParseErrors[0].Type != tt.wantErr {
				t.Errorf("error type = %q, want %q", result.ParseErrors[0].Type, tt.wantErr)
			}
		})
	}
}

func TestDetectFormat(t *testing.T) {
	tests := map[string]string{
		"job.json":   FormatJSON,
		"JOB.JSON":   FormatJSON,
		"job.yaml":   FormatYAML,
		"job.yml":    FormatYAML,
		"job.txt":    "",
		"job":        "",
		"dir.v1/job": "",
	}
	for path, want := range tests {
		if got := DetectFormat(path); got != want {
			t.Errorf("DetectFormat(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestIsJSONAndIsYAML(t *testing.T) {
	if !IsJSON("  {\"a\": 1}") {
		t.Error("expected object to be JSON")
	}
	if IsJSON("a: 1") {
		t.Error("expected mapping not to be JSON")
	}
	if !IsYAML("a: 1") {
		t.Error("expected mapping to be YAML")
	}
	if IsYAML("# only a comment\n") {
		t.Error("a comment-only document is not a YAML job")
	}
	if IsYAML("") {
		t.Error("empty content is not YAML")
	}
}

func TestOffsetToLineColumn(t *testing.T) {
	content := "ab\ncd\nef"
	tests := []struct {
		offset       int64
		line, column int
	}{
		{1, 1, 1},
		{2, 1, 2},
		{4, 2, 1},
		{8, 3, 2},
	}
	for _, tt := range tests {
		line, col := offsetToLineColumn(content, tt.offset)
		if line != tt.line || col != tt.column {
			t.Errorf("offset %d: got %d:%d, want %d:%d", tt.offset, line, col, tt.line, tt.column)
		}
	}
}

func TestResult_Err(t *testing.T) {
	valid := &Result{Data: map[string]interface{}{}}
	if err := valid.Err(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}

	r := &Result{
		FilePath:         "job.yaml",
		ParseErrors:      []ParseError{{Message: "bad", Line: 3, Column: 2}},
		ValidationErrors: []ValidationError{{Path: "/source", Message: "missing"}},
	}
	if got := len(r.AllErrors()); got != 2 {
		t.Fatalf("expected 2 errors, got %d", got)
	}
	want := "invalid job.yaml: line 3, column 2: bad; /source: missing"
	if err := r.Err(); err == nil || err.Error() != want {
		t.Errorf("Err() = %v, want %q", err, want)
	}

	anon := &Result{ValidationErrors: []ValidationError{{Message: "job is empty"}}}
	if err := anon.Err(); err == nil || err.Error() != "invalid job: job is empty" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseError_Error(t *testing.T) {
	tests := []struct {
		err  ParseError
		want string
	}{
		{ParseError{Message: "boom"}, "boom"},
		{ParseError{Path: "a.json", Message: "boom"}, "a.json: boom"},
		{ParseError{Path: "a.json", Line: 2, Message: "boom"}, "a.json: line 2: boom"},
		{ParseError{Path: "a.json", Line: 2, Column: 7, Message: "boom"}, "a.json: line 2, column 7: boom"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
