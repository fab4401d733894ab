package catalog

import (
	"context"
	"fmt"

	"github.com/roach88/yeardle/internal/day"
	"github.com/roach88/yeardle/internal/puzzle"
)

// Publisher is the puzzle table a catalog year is published into.
// *store.Store implements it.
type Publisher interface {
	DailyPuzzle(ctx context.Context, d day.Day) (*puzzle.Puzzle, error)
	NextPuzzleNumber(ctx context.Context) (int, error)
	PutPuzzle(ctx context.Context, p puzzle.Puzzle) error
}

// Publish schedules year as the puzzle for date, numbered after the last
// published puzzle. A date that already has a puzzle is rejected.
func (c *Catalog) Publish(ctx context.Context, pub Publisher, ids puzzle.IDGenerator, year int, date day.Day) (puzzle.Puzzle, error) {
	hints, ok := c.Get(year)
	if !ok {
		return puzzle.Puzzle{}, fmt.Errorf("publish %d: %w", year, ErrMissing)
	}

	existing, err := pub.DailyPuzzle(ctx, date)
	switch {
	case err == nil:
		return puzzle.Puzzle{}, puzzle.NewValidationError(puzzle.CodeInvalidDate, "date",
			fmt.Sprintf("puzzle #%d is already published for %s", existing.Number, date))
	case !puzzle.IsNotFound(err):
		return puzzle.Puzzle{}, fmt.Errorf("publish %d: %w", year, err)
	}

	n, err := pub.NextPuzzleNumber(ctx)
	if err != nil {
		return puzzle.Puzzle{}, fmt.Errorf("publish %d: %w", year, err)
	}
	p := puzzle.Puzzle{
		ID:         ids.Generate(),
		Number:     n,
		TargetYear: year,
		Events:     hints,
		Date:       date,
	}
	if err := pub.PutPuzzle(ctx, p); err != nil {
		return puzzle.Puzzle{}, fmt.Errorf("publish %d: %w", year, err)
	}
	return p, nil
}
