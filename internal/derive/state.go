// Package derive projects the four source observations onto a single game
// state.
//
// ARCHITECTURE:
//
// State as projection, not accumulation:
// Sources resolve in any order and may re-resolve at any time (a slow
// progress read can land seconds after the UI rendered "ready"). Instead of
// mutating one state object as each source arrives, every change produces a
// fresh Snapshot and Derive recomputes the whole GameState from it.
//
// Derive performs no I/O and keeps nothing between calls, so it is safe to
// call at any frequency from any goroutine. Board is the only stateful type
// here; it stores the latest Snapshot and republishes Derive's output.
package derive

import (
	"encoding/json"

	"github.com/roach88/yeardle/internal/day"
	"github.com/roach88/yeardle/internal/puzzle"
)

// Kind names a GameState variant.
type Kind string

const (
	KindLoadingPuzzle   Kind = "loading-puzzle"
	KindLoadingAuth     Kind = "loading-auth"
	KindLoadingProgress Kind = "loading-progress"
	KindReady           Kind = "ready"
	KindError           Kind = "error"
)

// GameState is a sealed interface. Exactly one of LoadingPuzzle,
// LoadingAuth, LoadingProgress, Ready or Error holds at any instant.
type GameState interface {
	Kind() Kind
	gameState()
}

// LoadingPuzzle: the puzzle record has not arrived.
type LoadingPuzzle struct{}

// LoadingAuth: the puzzle is known but identity is still resolving.
type LoadingAuth struct{}

// LoadingProgress: a signed-in player's play record has not arrived.
type LoadingProgress struct{}

// Ready is a playable (or finished) game.
type Ready struct {
	Puzzle           puzzle.Puzzle
	Guesses          []int
	IsComplete       bool
	HasWon           bool
	RemainingGuesses int
}

// Error is a terminal state for this snapshot, e.g. no puzzle for the day.
type Error struct {
	Reason string
}

func (LoadingPuzzle) Kind() Kind   { return KindLoadingPuzzle }
func (LoadingAuth) Kind() Kind     { return KindLoadingAuth }
func (LoadingProgress) Kind() Kind { return KindLoadingProgress }
func (Ready) Kind() Kind           { return KindReady }
func (Error) Kind() Kind           { return KindError }

func (LoadingPuzzle) gameState()   {}
func (LoadingAuth) gameState()     {}
func (LoadingProgress) gameState() {}
func (Ready) gameState()           {}
func (Error) gameState()           {}

// RevealedHints is how many of the puzzle's events the player can see: one
// more than the guesses made, or all of them once the game is over.
func (r Ready) RevealedHints() int {
	if r.IsComplete {
		return len(r.Puzzle.Events)
	}
	return min(len(r.Puzzle.Events), len(r.Guesses)+1)
}

type kindOnly struct {
	Kind Kind `json:"kind"`
}

func (LoadingPuzzle) MarshalJSON() ([]byte, error) {
	return json.Marshal(kindOnly{Kind: KindLoadingPuzzle})
}

func (LoadingAuth) MarshalJSON() ([]byte, error) {
	return json.Marshal(kindOnly{Kind: KindLoadingAuth})
}

func (LoadingProgress) MarshalJSON() ([]byte, error) {
	return json.Marshal(kindOnly{Kind: KindLoadingProgress})
}

func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind   Kind   `json:"kind"`
		Reason string `json:"reason"`
	}{KindError, e.Reason})
}

// readyView is the wire shape of Ready. The target year is only included
// once the game is over.
type readyView struct {
	Kind             Kind     `json:"kind"`
	PuzzleID         string   `json:"puzzle_id"`
	PuzzleNumber     int      `json:"puzzle_number"`
	Date             day.Day  `json:"date"`
	Hints            []string `json:"hints"`
	Guesses          []int    `json:"guesses"`
	IsComplete       bool     `json:"is_complete"`
	HasWon           bool     `json:"has_won"`
	RemainingGuesses int      `json:"remaining_guesses"`
	TargetYear       *int     `json:"target_year,omitempty"`
}

func (r Ready) MarshalJSON() ([]byte, error) {
	v := readyView{
		Kind:             KindReady,
		PuzzleID:         r.Puzzle.ID,
		PuzzleNumber:     r.Puzzle.Number,
		Date:             r.Puzzle.Date,
		Hints:            r.Puzzle.Events[:r.RevealedHints()],
		Guesses:          r.Guesses,
		IsComplete:       r.IsComplete,
		HasWon:           r.HasWon,
		RemainingGuesses: r.RemainingGuesses,
	}
	if v.Guesses == nil {
		v.Guesses = []int{}
	}
	if r.IsComplete {
		target := r.Puzzle.TargetYear
		v.TargetYear = &target
	}
	return json.Marshal(v)
}
