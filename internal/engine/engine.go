// Package engine ties a source file to its filter stages and column
// converters and writes the result.
//
// An Engine starts Unloaded. The source is read on the first operation that
// needs rows (Sub, WriteAll or Matrix) and cached for the Engine's lifetime.
// Convert and ConvertAll only record converters; they are applied once, by
// WriteAll, to a working copy of the exported rows.
package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/csvsub/runtime/internal/address"
	"github.com/csvsub/runtime/internal/filter"
	"github.com/csvsub/runtime/internal/logger"
	"github.com/csvsub/runtime/internal/matrix"
	"github.com/csvsub/runtime/internal/pathutil"
	"github.com/csvsub/runtime/internal/registry"
)

// EmptyResultMessage is returned by WriteAll instead of a path when there is
// nothing to export.
const EmptyResultMessage = "The csv matrix is empty."

// Engine filters and converts one source file.
type Engine struct {
	source   string
	read     matrix.ReadOptions
	registry *registry.Registry
	filter   *filter.Filter
	now      func() time.Time
	log      *slog.Logger

	matrix   *matrix.Matrix
	stages   filter.Set
	strategy map[int]column
}

// column is one entry of the convert strategy.
type column struct {
	name string
	conv registry.Converter
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry resolves converters from r instead of registry.Default().
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithReadOptions sets how the source is read. The encoding and delimiter
// are reused for the output.
func WithReadOptions(opts matrix.ReadOptions) Option {
	return func(e *Engine) {
		e.read = opts
	}
}

// WithKeepHeader captures the first source row as a header that is written
// back unchanged.
func WithKeepHeader(keep bool) Option {
	return func(e *Engine) {
		e.read.KeepHeader = keep
	}
}

// WithClock replaces time.Now for naming generated output files.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Unloaded engine for the file at source.
func New(source string, opts ...Option) *Engine {
	e := &Engine{
		source:   source,
		now:      time.Now,
		strategy: make(map[int]column),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = registry.Default()
	}
	e.filter = filter.New(e.registry.Sandbox())
	e.log = logger.WithSource(source)
	return e
}

// Source returns the source file path.
func (e *Engine) Source() string {
	return e.source
}

// Loaded reports whether the source has been read.
func (e *Engine) Loaded() bool {
	return e.matrix != nil
}

// Matrix returns the source matrix, reading it on first use.
func (e *Engine) Matrix() (*matrix.Matrix, error) {
	if e.matrix != nil {
		return e.matrix, nil
	}
	m, err := matrix.Load(e.source, e.read)
	if err != nil {
		return nil, err
	}
	e.matrix = m
	return m, nil
}

// Sub parses "column=value" tokens into one AND group and adds the matching
// rows as a new stage.
func (e *Engine) Sub(tokens ...string) (filter.Stage, error) {
	group, err := filter.ParseGroup(tokens...)
	if err != nil {
		return filter.Stage{}, err
	}
	return e.SubGroup(group)
}

// SubGroup adds the rows matching every constraint of group as a new stage.
// An empty group does nothing and does not read the source.
func (e *Engine) SubGroup(group filter.Group) (filter.Stage, error) {
	if len(group) == 0 {
		return filter.Stage{}, nil
	}
	start := time.Now()

	m, err := e.Matrix()
	if err != nil {
		return filter.Stage{}, err
	}

	stage, ok, err := e.filter.Apply(m, group)
	if err != nil {
		return filter.Stage{}, err
	}
	if ok {
		e.stages.Add(stage)
		logger.LogStage(e.source, e.stages.Len()-1, group.Strings(), len(stage.Rows), time.Since(start))
	}
	return stage, nil
}

// Stages returns the stages added so far, in order.
func (e *Engine) Stages() []filter.Stage {
	return e.stages.Stages()
}

// Convert applies the converter named converter to column at write time.
// converter is a registered name or an inline expression. A later call for
// the same column replaces the earlier one.
func (e *Engine) Convert(col, converter string) error {
	idx, err := address.ParseColumn(col)
	if err != nil {
		return err
	}
	conv, err := e.registry.Resolve(converter)
	if err != nil {
		return fmt.Errorf("convert column %s: %w", col, err)
	}
	e.strategy[idx] = column{name: converter, conv: conv}
	e.log.Debug("converter assigned",
		slog.String("column", col),
		slog.Int("column_index", idx),
		slog.String("converter", converter),
	)
	return nil
}

// ConvertAll calls Convert for every column in converters, in column order.
func (e *Engine) ConvertAll(converters map[string]string) error {
	cols := make([]string, 0, len(converters))
	for col := range converters {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	for _, col := range cols {
		if err := e.Convert(col, converters[col]); err != nil {
			return err
		}
	}
	return nil
}

// ConvertedColumns returns the 0-based indices that have a converter, sorted.
func (e *Engine) ConvertedColumns() []int {
	cols := make([]int, 0, len(e.strategy))
	for idx := range e.strategy {
		cols = append(cols, idx)
	}
	sort.Ints(cols)
	return cols
}

// ExportRows returns the rows WriteAll would write, before conversion: the
// whole matrix when Sub was never called, otherwise the union of all stages.
func (e *Engine) ExportRows() ([]matrix.Row, error) {
	if e.stages.Len() > 0 {
		return e.stages.Union(), nil
	}
	m, err := e.Matrix()
	if err != nil {
		return nil, err
	}
	return m.Rows, nil
}

// WriteAll converts and writes the export rows to dest, or to a timestamped
// file next to the source when dest is empty. It returns the number of rows
// written and the destination. When there is nothing to export it writes no
// file and returns 0 and EmptyResultMessage.
func (e *Engine) WriteAll(dest string) (int, string, error) {
	start := time.Now()

	rows, err := e.ExportRows()
	if err != nil {
		return 0, "", err
	}
	if len(rows) == 0 {
		e.log.Info("nothing to export")
		return 0, EmptyResultMessage, nil
	}

	m := e.matrix
	out := &matrix.Matrix{Rows: rows}
	if e.read.KeepHeader {
		out.Header = m.Header
	}

	cols := e.ConvertedColumns()
	if len(cols) > 0 {
		out, err = e.apply(m, out, cols)
		if err != nil {
			return 0, "", err
		}
	}

	if dest == "" {
		dest = pathutil.DefaultOutputPath(e.source, e.now())
	}
	if err := matrix.Write(dest, out, matrix.WriteOptions{
		Encoding:  e.read.Encoding,
		Delimiter: e.read.Delimiter,
	}); err != nil {
		return 0, "", err
	}

	logger.LogWrite(e.source, dest, out.Len(), cols, time.Since(start))
	return out.Len(), dest, nil
}

// apply runs the strategy over a copy of out, column by column in
// increasing order within each row.
func (e *Engine) apply(m, out *matrix.Matrix, cols []int) (*matrix.Matrix, error) {
	for _, idx := range cols {
		if err := m.CheckColumn(idx); err != nil {
			return nil, fmt.Errorf("convert %s: %w", e.strategy[idx].name, err)
		}
	}

	work := out.Clone()
	for r, row := range work.Rows {
		for _, idx := range cols {
			c := e.strategy[idx]
			v, err := c.conv(row[idx])
			if err != nil {
				return nil, fmt.Errorf("row %d, column %s (%s): %w", r+1, columnLabel(idx), c.name, err)
			}
			row[idx] = v
		}
	}
	return work, nil
}

func columnLabel(idx int) string {
	return address.Label(idx + 1)
}
