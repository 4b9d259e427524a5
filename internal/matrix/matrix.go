// Package matrix holds tabular data as rows of text cells and reads and
// writes it as delimited text or Excel workbooks.
package matrix

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/csvsub/runtime/internal/errhandling"
	"github.com/csvsub/runtime/internal/logger"
)

// DefaultDelimiter separates fields when none is configured.
const DefaultDelimiter = ','

// Row is one record. Cells are always text.
type Row []string

// Clone returns a copy of the row.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Matrix is a loaded table. Every row has the same width. Header is set only
// when the source was read with a header row; it is never filtered or
// converted.
type Matrix struct {
	Header Row
	Rows   []Row
}

// Len returns the number of data rows.
func (m *Matrix) Len() int {
	return len(m.Rows)
}

// Width returns the number of columns.
func (m *Matrix) Width() int {
	if len(m.Rows) > 0 {
		return len(m.Rows[0])
	}
	return len(m.Header)
}

// HasHeader reports whether a header row was captured.
func (m *Matrix) HasHeader() bool {
	return m.Header != nil
}

// Clone returns a deep copy, so converters can rewrite cells without
// touching the cached matrix.
func (m *Matrix) Clone() *Matrix {
	out := &Matrix{
		Header: m.Header.Clone(),
		Rows:   make([]Row, len(m.Rows)),
	}
	for i, row := range m.Rows {
		out.Rows[i] = row.Clone()
	}
	return out
}

// ReadOptions configures Load.
type ReadOptions struct {
	// Encoding of delimited sources; empty means DefaultEncoding.
	Encoding string
	// Delimiter separating fields; zero means DefaultDelimiter.
	Delimiter rune
	// KeepHeader captures the first row as Header instead of data.
	KeepHeader bool
	// Sheet selects the worksheet of .xlsx sources; empty means the first.
	Sheet string
}

// WriteOptions configures Write.
type WriteOptions struct {
	// Encoding of the output; empty means DefaultEncoding.
	Encoding string
	// Delimiter separating fields; zero means DefaultDelimiter.
	Delimiter rune
}

func (o ReadOptions) delimiter() rune {
	if o.Delimiter == 0 {
		return DefaultDelimiter
	}
	return o.Delimiter
}

func (o WriteOptions) delimiter() rune {
	if o.Delimiter == 0 {
		return DefaultDelimiter
	}
	return o.Delimiter
}

// IsWorkbook reports whether path names an Excel workbook.
func IsWorkbook(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return true
	default:
		return false
	}
}

// Load reads the file at path, dispatching on its extension.
func Load(path string, opts ReadOptions) (*Matrix, error) {
	start := time.Now()

	var (
		records [][]string
		err     error
	)
	if IsWorkbook(path) {
		records, err = readWorkbook(path, opts.Sheet)
	} else {
		records, err = readDelimitedFile(path, opts)
	}
	if err != nil {
		return nil, err
	}

	m := build(records, opts.KeepHeader)

	logger.Debug("matrix loaded",
		slog.String("source", path),
		slog.Int("rows", m.Len()),
		slog.Int("width", m.Width()),
		slog.Bool("header", m.HasHeader()),
		slog.Duration("duration", time.Since(start)),
	)
	return m, nil
}

// build pads records to equal width and splits off the header.
func build(records [][]string, keepHeader bool) *Matrix {
	width := 0
	for _, rec := range records {
		if len(rec) > width {
			width = len(rec)
		}
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := make(Row, width)
		copy(row, rec)
		rows = append(rows, row)
	}

	m := &Matrix{Rows: rows}
	if keepHeader && len(rows) > 0 {
		m.Header = rows[0]
		m.Rows = rows[1:]
	}
	return m
}

// FromRecords builds a matrix from in-memory records, padding short rows.
func FromRecords(records [][]string, keepHeader bool) *Matrix {
	return build(records, keepHeader)
}

// CheckColumn fails with a column-out-of-range error when col is not a
// column of m.
func (m *Matrix) CheckColumn(col int) error {
	if col < 0 || col >= m.Width() {
		return errhandling.New(errhandling.KindColumnOutOfRange,
			fmt.Sprintf("column %d is out of range for width %d", col, m.Width()), nil)
	}
	return nil
}
