// Package sources reads the four inputs the game state is derived from:
// the puzzle record, the player's identity, the server-side play record and
// the device-local session buffer.
//
// Each reader produces an immutable state value. Readers resolve
// independently and may resolve again later; nothing here holds the
// combined picture. That is internal/derive's job.
package sources

import (
	"context"

	"github.com/roach88/yeardle/internal/day"
	"github.com/roach88/yeardle/internal/puzzle"
)

// Status is the resolution state of an asynchronous source.
type Status int

const (
	Loading Status = iota
	Resolved
	Failed
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// PuzzleState is one observation of the puzzle source. A Resolved state
// with a nil Puzzle means "no such puzzle".
type PuzzleState struct {
	Status Status
	Puzzle *puzzle.Puzzle
	Err    error
}

// AuthState is one observation of the identity source.
type AuthState struct {
	Identity Identity
}

// ProgressState is one observation of the per-user play record, tagged
// with the user and puzzle it was read for. A Resolved state with a nil
// Record means the player has not played yet.
type ProgressState struct {
	Status   Status
	UserID   string
	PuzzleID string
	Record   *puzzle.PlayRecord
	Err      error
}

// For reports whether the observation was made for userID on puzzleID.
// Anything else is stale and must not be merged.
func (s ProgressState) For(userID, puzzleID string) bool {
	return s.UserID == userID && s.PuzzleID == puzzleID
}

// SessionState is the device-local buffer. It is always available.
type SessionState struct {
	Buffer puzzle.SessionBuffer
}

// PuzzleReader fetches puzzle records.
type PuzzleReader interface {
	DailyPuzzle(ctx context.Context, d day.Day) (*puzzle.Puzzle, error)
	PuzzleByNumber(ctx context.Context, n int) (*puzzle.Puzzle, error)
}

// ProgressReader fetches play records.
type ProgressReader interface {
	PlayRecord(ctx context.Context, userID, puzzleID string) (*puzzle.PlayRecord, error)
}

// SessionReader returns whatever buffer the device currently holds. The
// buffer may belong to a different puzzle; derivation filters by id.
type SessionReader interface {
	Current() (puzzle.SessionBuffer, error)
}

// Selector chooses which puzzle the player is looking at: the daily puzzle
// for a given day, or an archive puzzle by number.
type Selector struct {
	Day    day.Day
	Number int
}

// Daily selects the puzzle scheduled for d.
func Daily(d day.Day) Selector { return Selector{Day: d} }

// ByNumber selects an archive puzzle.
func ByNumber(n int) Selector { return Selector{Number: n} }

// ReadPuzzle resolves the puzzle source for sel.
func ReadPuzzle(ctx context.Context, r PuzzleReader, sel Selector) PuzzleState {
	var (
		p   *puzzle.Puzzle
		err error
	)
	if sel.Number > 0 {
		p, err = r.PuzzleByNumber(ctx, sel.Number)
	} else {
		p, err = r.DailyPuzzle(ctx, sel.Day)
	}
	switch {
	case puzzle.IsNotFound(err):
		return PuzzleState{Status: Resolved}
	case err != nil:
		return PuzzleState{Status: Failed, Err: err}
	}
	return PuzzleState{Status: Resolved, Puzzle: p}
}

// ReadProgress resolves the play record for the identity on puzzleID.
//
// Signed-out players and identities whose id is not a persistence-layer id
// resolve immediately with no record; no query is issued for them.
func ReadProgress(ctx context.Context, r ProgressReader, id Identity, puzzleID string) ProgressState {
	userID, ok := id.PersistenceID()
	if !ok {
		return ProgressState{Status: Resolved}
	}
	st := ProgressState{UserID: userID, PuzzleID: puzzleID}
	rec, err := r.PlayRecord(ctx, userID, puzzleID)
	switch {
	case puzzle.IsNotFound(err):
		st.Status = Resolved
	case err != nil:
		st.Status, st.Err = Failed, err
	default:
		st.Status, st.Record = Resolved, rec
	}
	return st
}

// ReadSession loads the local buffer. A read failure yields an empty buffer
// alongside the error: local state is best-effort and never blocks play.
func ReadSession(r SessionReader) (SessionState, error) {
	buf, err := r.Current()
	if err != nil {
		return SessionState{}, err
	}
	return SessionState{Buffer: buf}, nil
}
