package config

import (
	"encoding/json"
	"testing"
)

func TestValidate_ValidJob(t *testing.T) {
	data := map[string]interface{}{
		"source":     "people.csv",
		"keepHeader": true,
		"delimiter":  ";",
		"stages": []interface{}{
			[]interface{}{"A=Jack", "B=M"},
			[]interface{}{"C="},
		},
		"convert": map[string]interface{}{"A": "upper", "2": "x: x + 1"},
		"converters": []interface{}{
			map[string]interface{}{"name": "inc", "expr": "x: x + 1"},
			map[string]interface{}{"name": "js", "script": "function convert(c) { return c }"},
		},
	}

	result := Validate(data)
	if !result.Valid {
		t.Errorf("expected valid job, got errors: %v", result.Errors)
	}
}

func TestValidate_EmptyJob(t *testing.T) {
	if result := Validate(map[string]interface{}{}); !result.Valid {
		t.Errorf("an empty mapping has no required fields, got %v", result.Errors)
	}
}

func TestValidate_NilData(t *testing.T) {
	result := Validate(nil)
	if result.Valid {
		t.Fatal("expected nil data to be invalid")
	}
	if result.Errors[0].Message != "job is empty" {
		t.Errorf("unexpected message: %s", result.Errors[0].Message)
	}
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name     string
		data     map[string]interface{}
		wantPath string
	}{
		{
			name:     "unknown property",
			data:     map[string]interface{}{"unknown": true},
			wantPath: "/",
		},
		{
			name:     "wide delimiter",
			data:     map[string]interface{}{"delimiter": ";;"},
			wantPath: "/delimiter",
		},
		{
			name:     "token without value separator",
			data:     map[string]interface{}{"stages": []interface{}{[]interface{}{"A"}}},
			wantPath: "/stages/0/0",
		},
		{
			name:     "empty stage",
			data:     map[string]interface{}{"stages": []interface{}{[]interface{}{}}},
			wantPath: "/stages/0",
		},
		{
			name:     "keepHeader wrong type",
			data:     map[string]interface{}{"keepHeader": "yes"},
			wantPath: "/keepHeader",
		},
		{
			name: "converter with expr and script",
			data: map[string]interface{}{"converters": []interface{}{
				map[string]interface{}{"name": "x", "expr": "1", "script": "function convert(c) {}"},
			}},
			wantPath: "/converters/0",
		},
		{
			name: "converter without body",
			data: map[string]interface{}{"converters": []interface{}{
				map[string]interface{}{"name": "x"},
			}},
			wantPath: "/converters/0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.data)
			if result.Valid {
				t.Fatal("expected validation to fail")
			}
			found := false
			for _, e := range result.Errors {
				if e.Path == tt.wantPath {
					found = true
				}
			}
			if !found {
				t.Errorf("expected an error at %s, got %v", tt.wantPath, result.Errors)
			}
		})
	}
}

func TestValidate_ConvertColumnNames(t *testing.T) {
	for _, col := range []string{"A", "aa", "0", "12"} {
		data := map[string]interface{}{"convert": map[string]interface{}{col: "upper"}}
		if result := Validate(data); !result.Valid {
			t.Errorf("column %q: expected valid, got %v", col, result.Errors)
		}
	}
	for _, col := range []string{"A1", "-1", "a b", ""} {
		data := map[string]interface{}{"convert": map[string]interface{}{col: "upper"}}
		if result := Validate(data); result.Valid {
			t.Errorf("column %q: expected invalid", col)
		}
	}
}

func TestEmbeddedSchema(t *testing.T) {
	var doc map[string]interface{}
	if err := json.Unmarshal(EmbeddedSchema(), &doc); err != nil {
		t.Fatalf("embedded schema is not JSON: %v", err)
	}
	if doc["$id"] != schemaURL {
		t.Errorf("expected $id %q, got %v", schemaURL, doc["$id"])
	}
}

func TestErrorType(t *testing.T) {
	tests := map[string]string{
		"missing property 'name'":                    "required",
		"additional properties 'foo' not allowed":    "additionalProperties",
		"'A' does not match pattern '^[^=]+=[^=]*$'": "pattern",
		"got string, want boolean":                   "type",
		"something else":                             "validation",
	}
	for msg, want := range tests {
		if got := errorType(msg); got != want {
			t.Errorf("errorType(%q) = %q, want %q", msg, got, want)
		}
	}
}
