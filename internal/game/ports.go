package game

import (
	"context"

	"github.com/roach88/yeardle/internal/puzzle"
	"github.com/roach88/yeardle/internal/store"
	"github.com/roach88/yeardle/internal/streak"
)

// Remote is the persistence the orchestrator writes through. *store.Store
// implements it.
type Remote interface {
	SubmitGuess(ctx context.Context, userID, puzzleID string, guess int) (puzzle.GuessResult, error)
	RecomputePuzzleStats(ctx context.Context, puzzleID string) (puzzle.Stats, error)

	User(ctx context.Context, id string) (puzzle.User, error)
	EnsureUser(ctx context.Context, id string) (puzzle.User, error)
	ApplyStreakCommand(ctx context.Context, userID string, cmd streak.Command) (puzzle.User, error)
	SaveMergedStreak(ctx context.Context, u puzzle.User, source streak.MergeSource) error
	RepairStreak(ctx context.Context, userID string) (puzzle.User, int, error)

	MigrateSession(ctx context.Context, userID string, buf puzzle.SessionBuffer) (*puzzle.PlayRecord, store.MigrateAction, error)
}

// Local is the device-local session. *session.Store implements it.
type Local interface {
	Current() (puzzle.SessionBuffer, error)
	Append(puzzleID string, guess int) (puzzle.SessionBuffer, error)
	Rollover(puzzleID string) (bool, error)
	Clear() error
	AnonymousStreak() (streak.AnonymousStreak, error)
	SetAnonymousStreak(streak.AnonymousStreak) error
}

var _ Remote = (*store.Store)(nil)
