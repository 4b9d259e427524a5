package matrix

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/csvsub/runtime/internal/errhandling"
	"github.com/csvsub/runtime/internal/pathutil"
)

func readDelimitedFile(path string, opts ReadOptions) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errhandling.NewIOError("open", path, err)
	}
	defer f.Close()

	records, err := readDelimited(f, opts)
	if err != nil {
		return nil, errhandling.NewIOError("read", path, err)
	}
	return records, nil
}

func readDelimited(r io.Reader, opts ReadOptions) ([][]string, error) {
	enc, err := LookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(decodeReader(r, enc))
	cr.Comma = opts.delimiter()
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("malformed input at line %d: %w", parseErr.Line, parseErr.Err)
		}
		return nil, err
	}
	return records, nil
}

// Encode writes m to w: the header first when present, then every row.
// Records end with "\n".
func Encode(w io.Writer, m *Matrix, opts WriteOptions) error {
	enc, err := LookupEncoding(opts.Encoding)
	if err != nil {
		return err
	}

	ew := encodeWriter(w, enc)
	cw := csv.NewWriter(ew)
	cw.Comma = opts.delimiter()

	if m.HasHeader() {
		if err := cw.Write(m.Header); err != nil {
			return err
		}
	}
	for _, row := range m.Rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return ew.Close()
}

// Write stores m at path. The data is written to a temporary sibling file
// that replaces path only once it is complete.
func Write(path string, m *Matrix, opts WriteOptions) error {
	tmp := pathutil.TempSibling(path)

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errhandling.NewIOError("create", path, err)
	}

	if err := Encode(f, m, opts); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return errhandling.NewIOError("write", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return errhandling.NewIOError("write", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errhandling.NewIOError("rename", path, err)
	}
	return nil
}
