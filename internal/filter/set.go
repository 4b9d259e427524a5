package filter

import "github.com/csvsub/runtime/internal/matrix"

// Set is an ordered sequence of stages. Its rows are the OR of the stages'
// groups.
type Set struct {
	stages []Stage
}

// Add appends a stage.
func (s *Set) Add(stage Stage) {
	s.stages = append(s.stages, stage)
}

// Len returns the number of stages.
func (s *Set) Len() int {
	return len(s.stages)
}

// Stages returns the stages in the order they were added.
func (s *Set) Stages() []Stage {
	out := make([]Stage, len(s.stages))
	copy(out, s.stages)
	return out
}

// RowCount returns the number of rows Union would return.
func (s *Set) RowCount() int {
	n := 0
	for _, st := range s.stages {
		n += len(st.Rows)
	}
	return n
}

// Union concatenates the rows of every stage in stage order. A row matched
// by several stages appears once per stage.
func (s *Set) Union() []matrix.Row {
	rows := make([]matrix.Row, 0, s.RowCount())
	for _, st := range s.stages {
		rows = append(rows, st.Rows...)
	}
	return rows
}
