// Package filter selects matrix rows with equality constraints.
//
// Constraints passed to one Apply call form a Group and combine with AND.
// Every Apply produces a Stage; stages collected in a Set combine with OR, as
// a multiset union that keeps stage order, then row order, and never removes
// duplicates.
package filter

import (
	"fmt"
	"strings"

	"github.com/csvsub/runtime/internal/address"
	"github.com/csvsub/runtime/internal/errhandling"
	"github.com/csvsub/runtime/internal/matrix"
	"github.com/csvsub/runtime/internal/sandbox"
)

// Separator splits a filter token into column and expected value.
const Separator = "="

// Constraint requires the cell in Column to equal Value exactly. Column is
// an alphabetic address ("A", "AA") or a literal 0-based index ("12").
type Constraint struct {
	Column string
	Value  string
}

// String returns the constraint in token form.
func (c Constraint) String() string {
	return c.Column + Separator + c.Value
}

// ParseConstraint parses a "column=value" token. The token must split into
// exactly two parts, so values cannot contain "=".
func ParseConstraint(token string) (Constraint, error) {
	parts := strings.Split(token, Separator)
	if len(parts) != 2 {
		return Constraint{}, errhandling.Newf(errhandling.KindInvalidToken,
			"filter token %q must have the form column=value", token)
	}
	if parts[0] == "" {
		return Constraint{}, errhandling.Newf(errhandling.KindInvalidToken,
			"filter token %q has no column", token)
	}
	return Constraint{Column: parts[0], Value: parts[1]}, nil
}

// Group is a conjunction of constraints.
type Group []Constraint

// ParseGroup parses every token into one group.
func ParseGroup(tokens ...string) (Group, error) {
	group := make(Group, 0, len(tokens))
	for _, tok := range tokens {
		c, err := ParseConstraint(tok)
		if err != nil {
			return nil, err
		}
		group = append(group, c)
	}
	return group, nil
}

// Strings returns the constraints in token form.
func (g Group) Strings() []string {
	out := make([]string, len(g))
	for i, c := range g {
		out[i] = c.String()
	}
	return out
}

// Stage is the result of one Apply: the group that produced it and the
// matching rows in source order. Rows share cells with the matrix they were
// selected from and must not be modified.
type Stage struct {
	Group Group
	Rows  []matrix.Row
}

// Filter builds and evaluates stage predicates.
type Filter struct {
	sandbox *sandbox.Sandbox
}

// New creates a Filter compiling predicates with sb. A nil sb uses a default
// strict sandbox.
func New(sb *sandbox.Sandbox) *Filter {
	if sb == nil {
		sb = sandbox.New()
	}
	return &Filter{sandbox: sb}
}

// Apply selects the rows of m satisfying every constraint of group. The
// boolean is false when group is empty, in which case no stage is produced.
func (f *Filter) Apply(m *matrix.Matrix, group Group) (Stage, bool, error) {
	if len(group) == 0 {
		return Stage{}, false, nil
	}
	columns := make([]int, len(group))
	for i, c := range group {
		col, err := address.ParseColumn(c.Column)
		if err != nil {
			return Stage{}, false, err
		}
		columns[i] = col
	}

	stage := Stage{Group: group, Rows: []matrix.Row{}}
	if m.Width() == 0 {
		return stage, true, nil
	}
	for i, c := range group {
		if err := m.CheckColumn(columns[i]); err != nil {
			return Stage{}, false, fmt.Errorf("constraint %s: %w", c, err)
		}
	}

	pred, err := f.compile(group, columns)
	if err != nil {
		return Stage{}, false, err
	}

	for _, row := range m.Rows {
		out, err := pred.Call([]string(row))
		if err != nil {
			return Stage{}, false, err
		}
		if matched, _ := out.(bool); matched {
			stage.Rows = append(stage.Rows, row)
		}
	}
	return stage, true, nil
}

// compile turns the group into one predicate over row. Expected values are
// bound as data, so they are never parsed as expression text.
func (f *Filter) compile(group Group, columns []int) (*sandbox.Program, error) {
	terms := make([]string, len(group))
	want := make([]string, len(group))
	for i, c := range group {
		terms[i] = fmt.Sprintf("%s[%d] == want[%d]", sandbox.RowParam, columns[i], i)
		want[i] = c.Value
	}
	return f.sandbox.CompileRowPredicate(strings.Join(terms, " && "), map[string]any{"want": want})
}
