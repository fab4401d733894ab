package catalog

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/yeardle/internal/puzzle"
)

const schemaSource = `
import (
	"list"
	"strings"
)

#Hint: string & strings.MinRunes(1) & strings.MaxRunes(280)

#Entry: {
	year:  int & >=-9999 & <=9999
	hints: [...#Hint] & list.MinItems(6) & list.MaxItems(6)
}
`

// schema checks catalog entries against the CUE definition above.
// A cue.Context is not safe for concurrent use, so neither is schema.
type schema struct {
	ctx   *cue.Context
	entry cue.Value
}

func newSchema() (*schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaSource, cue.Filename("catalog.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}
	return &schema{ctx: ctx, entry: v.LookupPath(cue.ParsePath("#Entry"))}, nil
}

type entryDoc struct {
	Year  int      `json:"year"`
	Hints []string `json:"hints"`
}

// check validates one entry. The first CUE error becomes the message.
func (s *schema) check(year int, hints []string) error {
	v := s.ctx.Encode(entryDoc{Year: year, Hints: hints})
	if err := s.entry.Unify(v).Validate(cue.Concrete(true)); err != nil {
		msg := err.Error()
		if errs := cueerrors.Errors(err); len(errs) > 0 {
			msg = errs[0].Error()
		}
		return puzzle.NewValidationError(puzzle.CodeInvalidPuzzle, "hints",
			fmt.Sprintf("year %d: %s", year, msg))
	}
	return nil
}
