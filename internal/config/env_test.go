package config

import (
	"os"
	"path/filepath"
	"testing"
)

var settingsVars = []string{
	"CSVSUB_ENCODING", "CSVSUB_DELIMITER", "CSVSUB_KEEP_HEADER",
	"CSVSUB_LENIENT", "CSVSUB_LOG_LEVEL", "CSVSUB_LOG_FORMAT", "CSVSUB_CONVERTERS",
}

// clearSettings resets every settings variable for the duration of the test.
func clearSettings(t *testing.T) {
	t.Helper()
	for _, name := range settingsVars {
		t.Setenv(name, "")
	}
}

func TestLoadSettings_Defaults(t *testing.T) {
	clearSettings(t)

	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	want := Settings{
		Encoding:  "utf-8-sig",
		Delimiter: ",",
		LogLevel:  "warn",
		LogFormat: "json",
	}
	if *s != want {
		t.Errorf("got %+v, want %+v", *s, want)
	}
	if s.DelimiterRune() != ',' {
		t.Errorf("DelimiterRune = %q", s.DelimiterRune())
	}
}

func TestLoadSettings_Environment(t *testing.T) {
	clearSettings(t)
	t.Setenv("CSVSUB_DELIMITER", "tab")
	t.Setenv("CSVSUB_KEEP_HEADER", "true")
	t.Setenv("CSVSUB_LOG_FORMAT", "human")

	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if s.DelimiterRune() != '\t' || !s.KeepHeader || s.LogFormat != "human" {
		t.Errorf("unexpected settings: %+v", *s)
	}
}

func TestLoadSettings_EnvFileOverrides(t *testing.T) {
	clearSettings(t)
	t.Setenv("CSVSUB_ENCODING", "latin1")

	path := filepath.Join(t.TempDir(), "csvsub.env")
	content := "CSVSUB_ENCODING=windows-1252\nCSVSUB_LENIENT=1\nCSVSUB_CONVERTERS=jobs/converters.yaml\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if s.Encoding != "windows-1252" {
		t.Errorf("env file must override the environment, got %q", s.Encoding)
	}
	if !s.Lenient {
		t.Error("expected lenient")
	}
	if s.Converters != "jobs/converters.yaml" {
		t.Errorf("Converters = %q", s.Converters)
	}
}

func TestLoadSettings_Errors(t *testing.T) {
	t.Run("missing env file", func(t *testing.T) {
		clearSettings(t)
		if _, err := LoadSettings(filepath.Join(t.TempDir(), "nope.env")); err == nil {
			t.Error("expected error for missing env file")
		}
	})
	t.Run("bad boolean", func(t *testing.T) {
		clearSettings(t)
		t.Setenv("CSVSUB_KEEP_HEADER", "maybe")
		if _, err := LoadSettings(); err == nil {
			t.Error("expected error for bad boolean")
		}
	})
	t.Run("bad delimiter", func(t *testing.T) {
		clearSettings(t)
		t.Setenv("CSVSUB_DELIMITER", ";;")
		if _, err := LoadSettings(); err == nil {
			t.Error("expected error for bad delimiter")
		}
	})
}
