// Package puzzle holds the shared data model of the year-guessing game:
// puzzles, per-player play records, the device-local session buffer and the
// streak-bearing user record.
package puzzle

import (
	"slices"
	"time"

	"github.com/roach88/yeardle/internal/day"
)

const (
	// MaxGuesses is the number of guesses a player gets per puzzle.
	MaxGuesses = 6

	// EventCount is the number of hints every puzzle carries.
	EventCount = 6

	// MinYear and MaxYear bound an acceptable guess. Negative years are BC.
	MinYear = -9999
	MaxYear = 9999
)

// Puzzle is one day's set of six ordered hints plus the year to guess.
// Immutable once created.
type Puzzle struct {
	ID         string   `json:"id"`
	Number     int      `json:"number"`
	TargetYear int      `json:"target_year"`
	Events     []string `json:"events"` // index = hint order
	Date       day.Day  `json:"date"`
}

// Validate checks the structural invariants of a puzzle record.
func (p Puzzle) Validate() error {
	if p.ID == "" {
		return NewValidationError(CodeInvalidPuzzle, "id", "puzzle id is required")
	}
	if p.Number < 1 {
		return NewValidationError(CodeInvalidPuzzle, "number", "puzzle number must be positive")
	}
	if len(p.Events) != EventCount {
		return NewValidationError(CodeInvalidPuzzle, "events", "puzzle must have exactly 6 events")
	}
	for _, e := range p.Events {
		if e == "" {
			return NewValidationError(CodeInvalidPuzzle, "events", "puzzle events must be non-empty")
		}
	}
	if p.TargetYear < MinYear || p.TargetYear > MaxYear {
		return NewValidationError(CodeInvalidPuzzle, "target_year", "target year out of range")
	}
	if p.Date.IsZero() {
		return NewValidationError(CodeInvalidPuzzle, "date", "puzzle date is required")
	}
	return nil
}

// PlayRecord is the durable server record of one user's guesses on one puzzle.
type PlayRecord struct {
	UserID      string     `json:"user_id"`
	PuzzleID    string     `json:"puzzle_id"`
	Guesses     []int      `json:"guesses"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// SessionBuffer mirrors a PlayRecord for guesses not yet confirmed by the
// server. It is keyed by puzzle id and only ever holds one puzzle.
type SessionBuffer struct {
	PuzzleID string `json:"puzzle_id"`
	Guesses  []int  `json:"guesses"`
}

// For returns the buffer's guesses if it belongs to puzzleID, otherwise nil.
// A buffer left over from a previous day never leaks into a new puzzle.
func (b SessionBuffer) For(puzzleID string) []int {
	if b.PuzzleID != puzzleID {
		return nil
	}
	return b.Guesses
}

// User carries the streak state of an authenticated player.
type User struct {
	ID                string   `json:"id"`
	CurrentStreak     int      `json:"current_streak"`
	LongestStreak     int      `json:"longest_streak"`
	LastCompletedDate *day.Day `json:"last_completed_date,omitempty"`
}

// GuessResult is what the remote guess-submission operation reports back.
type GuessResult struct {
	Correct    bool  `json:"correct"`
	Guesses    []int `json:"guesses"`
	TargetYear int   `json:"target_year"`
}

// Stats are aggregate results for a single puzzle.
type Stats struct {
	PuzzleID           string  `json:"puzzle_id"`
	Plays              int     `json:"plays"`
	Wins               int     `json:"wins"`
	AverageWinningTurn float64 `json:"average_winning_turn"`
}

// Contains reports whether year appears in guesses.
func Contains(guesses []int, year int) bool {
	return slices.Contains(guesses, year)
}

// IsComplete reports whether a guess list ends the game for target.
func IsComplete(guesses []int, target int) bool {
	return Contains(guesses, target) || len(guesses) >= MaxGuesses
}

// Remaining returns the guesses left, floored at zero.
func Remaining(guesses []int) int {
	return max(0, MaxGuesses-len(guesses))
}

// ValidGuess reports whether year lies in the representable range.
func ValidGuess(year int) bool {
	return year >= MinYear && year <= MaxYear
}
