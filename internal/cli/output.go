// Package cli provides CLI output formatting and display functions.
// Results go to the writer passed in (stdout in the binary); diagnostics to
// the error writer.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/csvsub/runtime/internal/address"
	"github.com/csvsub/runtime/internal/config"
)

// ResultLine formats the outcome of a write. rows is 0 when nothing was
// exported, in which case pathOrMessage is the explanation.
func ResultLine(rows int, pathOrMessage string) string {
	if rows == 0 {
		return pathOrMessage
	}
	return fmt.Sprintf("%d filter result saved. %s", rows, pathOrMessage)
}

// PrintResult prints the outcome of a write.
func PrintResult(w io.Writer, rows int, pathOrMessage string) {
	fmt.Fprintln(w, ResultLine(rows, pathOrMessage))
}

// PrintJobSummary prints the main settings of a valid job.
func PrintJobSummary(w io.Writer, job *config.Job) {
	fmt.Fprintf(w, "  Source: %s\n", job.Source)
	if job.Output != "" {
		fmt.Fprintf(w, "  Output: %s\n", job.Output)
	}
	fmt.Fprintf(w, "  Stages: %d\n", len(job.Stages))
	for i, stage := range job.Stages {
		fmt.Fprintf(w, "    %d. %s\n", i+1, strings.Join(stage, " AND "))
	}
	for _, col := range job.SortedColumns() {
		fmt.Fprintf(w, "  Convert %s: %s\n", col, job.Convert[col])
	}
	for _, def := range job.Converters {
		kind := "expr"
		if def.Script != "" {
			kind = "script"
		}
		fmt.Fprintf(w, "  Converter %s (%s)\n", def.Name, kind)
	}
}

// PrintAddresses resolves each label and prints "<label> = <column>" lines.
// It returns the number of labels that failed to resolve.
func PrintAddresses(w, errW io.Writer, labels []string) int {
	failed := 0
	for _, label := range labels {
		n, err := address.Resolve(label)
		if err != nil {
			fmt.Fprintf(errW, "✗ %v\n", err)
			failed++
			continue
		}
		fmt.Fprintf(w, "%s = %d\n", label, n)
	}
	return failed
}

// PrintNames prints one name per line.
func PrintNames(w io.Writer, names []string) {
	for _, name := range names {
		fmt.Fprintln(w, name)
	}
}
