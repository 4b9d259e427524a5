package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is loaded from the working directory when present.
const DefaultEnvFile = ".env"

// Settings are process-wide defaults read from CSVSUB_* variables.
// Command-line flags take precedence over them.
type Settings struct {
	Encoding   string `env:"CSVSUB_ENCODING" default:"utf-8-sig"`
	Delimiter  string `env:"CSVSUB_DELIMITER" default:","`
	KeepHeader bool   `env:"CSVSUB_KEEP_HEADER" default:"false"`
	Lenient    bool   `env:"CSVSUB_LENIENT" default:"false"`
	LogLevel   string `env:"CSVSUB_LOG_LEVEL" default:"warn"`
	LogFormat  string `env:"CSVSUB_LOG_FORMAT" default:"json"`
	// Converters is a job-formatted file whose converters are registered at startup
	Converters string `env:"CSVSUB_CONVERTERS"`
}

// LoadSettings loads env files then reads Settings from the environment.
// Explicit files must exist and override variables already set. Without
// files, DefaultEnvFile is loaded if present and never overrides.
func LoadSettings(envFiles ...string) (*Settings, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Overload(envFiles...); err != nil {
			return nil, fmt.Errorf("load env files: %w", err)
		}
	} else if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", DefaultEnvFile, err)
	}

	s := &Settings{}
	if err := loadEnvStruct(reflect.ValueOf(s).Elem()); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	if _, err := ParseDelimiter(s.Delimiter); err != nil {
		return nil, fmt.Errorf("settings: CSVSUB_DELIMITER: %w", err)
	}
	return s, nil
}

// DelimiterRune returns the parsed delimiter, or ',' if it is invalid.
func (s *Settings) DelimiterRune() rune {
	r, err := ParseDelimiter(s.Delimiter)
	if err != nil {
		return ','
	}
	return r
}

func loadEnvStruct(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := field.Tag.Get("env")
		if name == "" {
			continue
		}

		value, ok := os.LookupEnv(name)
		if !ok || value == "" {
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		fv := v.Field(i)
		switch fv.Kind() {
		case reflect.String:
			fv.SetString(value)
		case reflect.Bool:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid value for %s=%q: invalid boolean", name, value)
			}
			fv.SetBool(b)
		default:
			return fmt.Errorf("unsupported field type %s for %s", fv.Kind(), name)
		}
	}
	return nil
}
