// Package pathutil provides shared path helpers.
package pathutil

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OutputTimeLayout names auto-generated output files.
const OutputTimeLayout = "2006-01-02 15-04-05"

// OutputExt is the extension of auto-generated output files.
const OutputExt = ".csv"

// ValidateFilePath validates a file path for path traversal and invalid characters.
// Uses segment-based detection so that "scripts/../etc/passwd" is rejected before
// cleaning (cleaned path would be "etc/passwd" and could bypass a simple ".." check).
// Returns an error if the path is empty, contains null bytes, or has ".." in any segment.
func ValidateFilePath(filePath string) error {
	if filePath == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	if strings.Contains(filePath, "\x00") {
		return fmt.Errorf("file path contains invalid characters")
	}

	normalized := filepath.ToSlash(filePath)
	for _, segment := range strings.Split(normalized, "/") {
		if segment == ".." {
			return fmt.Errorf("file path contains path traversal: %q", filePath)
		}
	}
	return nil
}

// DefaultOutputPath returns "<dir of source>/<YYYY-MM-DD HH-MM-SS>.csv" for now.
func DefaultOutputPath(source string, now time.Time) string {
	return filepath.Join(filepath.Dir(source), now.Format(OutputTimeLayout)+OutputExt)
}

// TempSibling returns a unique hidden path next to path, used to write a file
// before renaming it into place.
func TempSibling(path string) string {
	dir, name := filepath.Split(path)
	return filepath.Join(dir, "."+name+"."+uuid.NewString()+".tmp")
}

// ResolveRelative resolves p against the directory of base unless p is absolute.
func ResolveRelative(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(base), p)
}
