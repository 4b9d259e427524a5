package cli

import (
	"fmt"
	"strings"

	"github.com/csvsub/runtime/internal/errhandling"
	"github.com/csvsub/runtime/internal/filter"
)

// Token separators and keywords of the run command.
const (
	ConvertSeparator = "::"
	StageSeparator   = "OR"
)

// Directive assigns a converter name or inline expression to a column.
type Directive struct {
	Column    string
	Converter string
}

// Plan is the parsed token list of a run command.
type Plan struct {
	// Stages are AND groups in command-line order; OR separates them
	Stages []filter.Group
	// Convert directives in command-line order; later ones win per column
	Convert []Directive
}

// ParseTokens classifies run tokens. A token splitting on "::" into exactly
// two parts is a convert directive, otherwise one splitting on "=" into
// exactly two parts is a filter constraint. The literal OR closes the
// current stage. Anything else fails with KindInvalidToken.
func ParseTokens(tokens []string) (*Plan, error) {
	if len(tokens) == 0 {
		return nil, errhandling.Newf(errhandling.KindInvalidToken,
			"expected at least one column=value or column::converter token")
	}

	plan := &Plan{}
	var group filter.Group
	flush := func() {
		if len(group) > 0 {
			plan.Stages = append(plan.Stages, group)
			group = nil
		}
	}

	for _, tok := range tokens {
		if tok == StageSeparator {
			flush()
			continue
		}
		if parts := strings.Split(tok, ConvertSeparator); len(parts) == 2 {
			if parts[0] == "" || parts[1] == "" {
				return nil, errhandling.Newf(errhandling.KindInvalidToken,
					"convert token %q must be column::converter", tok)
			}
			plan.Convert = append(plan.Convert, Directive{Column: parts[0], Converter: parts[1]})
			continue
		}
		c, err := filter.ParseConstraint(tok)
		if err != nil {
			return nil, errhandling.New(errhandling.KindInvalidToken,
				fmt.Sprintf("unrecognized token %q", tok), err)
		}
		group = append(group, c)
	}
	flush()
	return plan, nil
}
