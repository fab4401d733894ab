package derive

import (
	"errors"

	"github.com/roach88/yeardle/internal/puzzle"
	"github.com/roach88/yeardle/internal/sources"
)

// Snapshot is one observation of every source.
type Snapshot struct {
	Puzzle   sources.PuzzleState
	Auth     sources.AuthState
	Progress sources.ProgressState
	Session  sources.SessionState
}

// Initial is the snapshot before any source has resolved.
func Initial() Snapshot {
	return Snapshot{
		Puzzle:   sources.PuzzleState{Status: sources.Loading},
		Auth:     sources.AuthState{Identity: sources.PendingIdentity},
		Progress: sources.ProgressState{Status: sources.Loading},
	}
}

// Error reasons.
const (
	ReasonPuzzleUnavailable = "puzzle-unavailable"
	ReasonPuzzleNotFound    = "puzzle-not-found"
	ReasonCorruptProgress   = "corrupt-progress"
)

// Derive combines the four sources into one GameState. It is pure: the
// same inputs always produce deep-equal output, and the returned state
// shares no slices with the inputs.
//
// Rules, first match wins:
//  1. puzzle loading: LoadingPuzzle
//  2. puzzle failed or absent: Error
//  3. identity resolving: LoadingAuth
//  4. signed in with a persistence id and progress loading, or only a stale
//     observation for another user or puzzle: LoadingProgress
//  5. Ready, with guesses merged from the server record and session buffer
func Derive(puzzleSrc sources.PuzzleState, authSrc sources.AuthState, progressSrc sources.ProgressState, sessionSrc sources.SessionState) GameState {
	switch {
	case puzzleSrc.Status == sources.Loading:
		return LoadingPuzzle{}
	case puzzleSrc.Status == sources.Failed:
		return Error{Reason: ReasonPuzzleUnavailable}
	case puzzleSrc.Puzzle == nil:
		return Error{Reason: ReasonPuzzleNotFound}
	}
	if authSrc.Identity.IsLoading {
		return LoadingAuth{}
	}

	p := *puzzleSrc.Puzzle
	session := sessionSrc.Buffer.For(p.ID)

	var server []int
	if uid, ok := authSrc.Identity.PersistenceID(); ok {
		if progressSrc.Status == sources.Loading || !progressSrc.For(uid, p.ID) {
			return LoadingProgress{}
		}
		// A transient failure falls through to session-only guesses; a
		// corrupt record does not.
		var ie *puzzle.InvariantError
		if progressSrc.Status == sources.Failed && errors.As(progressSrc.Err, &ie) {
			return Error{Reason: ReasonCorruptProgress}
		}
		if progressSrc.Record != nil {
			server = progressSrc.Record.Guesses
		}
	}
	guesses := MergeGuesses(server, session)

	return Ready{
		Puzzle:           clonePuzzle(p),
		Guesses:          guesses,
		IsComplete:       puzzle.IsComplete(guesses, p.TargetYear),
		HasWon:           puzzle.Contains(guesses, p.TargetYear),
		RemainingGuesses: puzzle.Remaining(guesses),
	}
}

// DeriveSnapshot is Derive over a Snapshot.
func DeriveSnapshot(s Snapshot) GameState {
	return Derive(s.Puzzle, s.Auth, s.Progress, s.Session)
}

// MergeGuesses returns server's guesses in order followed by each session
// guess not already present, in session order. Comparison is by value, not
// position: a guess made offline and later synced is never dropped, and a
// guess already on the server is never duplicated. The result is always a
// fresh, non-nil slice.
func MergeGuesses(server, session []int) []int {
	out := make([]int, 0, len(server)+len(session))
	seen := make(map[int]struct{}, len(server)+len(session))
	for _, g := range server {
		out = append(out, g)
		seen[g] = struct{}{}
	}
	for _, g := range session {
		if _, dup := seen[g]; dup {
			continue
		}
		out = append(out, g)
		seen[g] = struct{}{}
	}
	return out
}

func clonePuzzle(p puzzle.Puzzle) puzzle.Puzzle {
	p.Events = append([]string(nil), p.Events...)
	return p
}
