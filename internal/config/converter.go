package config

import (
	"fmt"
	"os"
	"sort"
	"unicode/utf8"

	"github.com/csvsub/runtime/internal/matrix"
	"github.com/csvsub/runtime/internal/pathutil"
	"github.com/csvsub/runtime/internal/registry"
)

// Job is a validated job file.
type Job struct {
	// Path is the job file the job was loaded from
	Path       string
	Source     string
	Encoding   string
	Delimiter  rune
	Sheet      string
	KeepHeader bool
	// Output is the destination; empty means a timestamped file next to Source
	Output string
	// Stages are AND groups of column=value tokens, combined with OR
	Stages [][]string
	// Convert maps columns to converter names or inline expressions
	Convert    map[string]string
	Converters []ConverterDef
	Lenient    bool
}

// ConverterDef defines a named converter. Exactly one of Expr and Script is
// set; scriptFile entries are read into Script when the job is loaded.
type ConverterDef struct {
	Name   string
	Expr   string
	Script string
}

// ReadOptions returns the matrix options for reading the job's source.
func (j *Job) ReadOptions() matrix.ReadOptions {
	return matrix.ReadOptions{
		Encoding:   j.Encoding,
		Delimiter:  j.Delimiter,
		KeepHeader: j.KeepHeader,
		Sheet:      j.Sheet,
	}
}

// LoadJob parses, validates and converts the job file at path.
func LoadJob(path string) (*Job, error) {
	result := ParseFile(path)
	if err := result.Err(); err != nil {
		return nil, err
	}
	job, err := ToJob(result.Data, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return job, nil
}

// ToJob converts a validated job document. Relative paths in the document
// (source, output, scriptFile) are resolved against the directory of
// jobPath.
func ToJob(data map[string]interface{}, jobPath string) (*Job, error) {
	if data == nil {
		return nil, fmt.Errorf("job data is nil")
	}

	job := &Job{
		Path:    jobPath,
		Convert: make(map[string]string),
	}

	if s, ok := data["source"].(string); ok {
		job.Source = pathutil.ResolveRelative(jobPath, s)
	}
	if s, ok := data["output"].(string); ok {
		job.Output = pathutil.ResolveRelative(jobPath, s)
	}
	job.Encoding, _ = data["encoding"].(string)
	job.Sheet, _ = data["sheet"].(string)
	job.KeepHeader, _ = data["keepHeader"].(bool)
	job.Lenient, _ = data["lenient"].(bool)

	if s, ok := data["delimiter"].(string); ok {
		d, err := ParseDelimiter(s)
		if err != nil {
			return nil, err
		}
		job.Delimiter = d
	}

	if raw, ok := data["stages"].([]interface{}); ok {
		for i, st := range raw {
			tokens, err := stringSlice(st)
			if err != nil {
				return nil, fmt.Errorf("stages[%d]: %w", i, err)
			}
			job.Stages = append(job.Stages, tokens)
		}
	}

	if raw, ok := data["convert"].(map[string]interface{}); ok {
		for col, v := range raw {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("convert.%s: expected string, got %T", col, v)
			}
			job.Convert[col] = s
		}
	}

	defs, err := toConverterDefs(data["converters"], jobPath)
	if err != nil {
		return nil, err
	}
	job.Converters = defs

	return job, nil
}

// LoadConverterDefs reads the "converters" section of a job-formatted file.
// Other sections are validated but ignored.
func LoadConverterDefs(path string) ([]ConverterDef, error) {
	result := ParseFile(path)
	if err := result.Err(); err != nil {
		return nil, err
	}
	defs, err := toConverterDefs(result.Data["converters"], path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// RegisterConverters compiles and registers defs into r, in order.
func RegisterConverters(r *registry.Registry, defs []ConverterDef) error {
	for _, d := range defs {
		var err error
		if d.Script != "" {
			err = r.RegisterScript(d.Name, d.Script)
		} else {
			err = r.RegisterExpr(d.Name, d.Expr)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ParseDelimiter accepts a single character, or the names "tab", "\t".
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter %q must be a single character", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == '"' || r == '\n' || r == '\r' || r == utf8.RuneError {
		return 0, fmt.Errorf("delimiter %q is not allowed", s)
	}
	return r, nil
}

func toConverterDefs(raw interface{}, jobPath string) ([]ConverterDef, error) {
	items, ok := raw.([]interface{})
	if !ok {
		return nil, nil
	}

	defs := make([]ConverterDef, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("converters[%d]: expected object, got %T", i, item)
		}
		def := ConverterDef{}
		def.Name, _ = m["name"].(string)
		def.Expr, _ = m["expr"].(string)
		def.Script, _ = m["script"].(string)

		if file, ok := m["scriptFile"].(string); ok {
			script, err := readScriptFile(jobPath, file)
			if err != nil {
				return nil, fmt.Errorf("converters[%d] %q: %w", i, def.Name, err)
			}
			def.Script = script
		}
		if def.Name == "" || (def.Expr == "" && def.Script == "") {
			return nil, fmt.Errorf("converters[%d]: name and one of expr, script or scriptFile are required", i)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func readScriptFile(jobPath, file string) (string, error) {
	if err := pathutil.ValidateFilePath(file); err != nil {
		return "", err
	}
	content, err := os.ReadFile(pathutil.ResolveRelative(jobPath, file))
	if err != nil {
		return "", fmt.Errorf("failed to read script file: %w", err)
	}
	return string(content), nil
}

func stringSlice(v interface{}) ([]string, error) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected list, got %T", v)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", item)
		}
		out = append(out, s)
	}
	return out, nil
}

// SortedColumns returns the keys of Convert in sorted order.
func (j *Job) SortedColumns() []string {
	cols := make([]string, 0, len(j.Convert))
	for c := range j.Convert {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}
