// Package session keeps the device-local state of one player: the buffer
// of guesses not yet confirmed by the server, the anonymous streak the
// device tracks while signed out, and the session token.
//
// Local state is best-effort. A corrupt file reads as an error and is
// replaced on the next write.
package session

import (
	"errors"
	"slices"
	"sync"

	"github.com/roach88/yeardle/internal/puzzle"
	"github.com/roach88/yeardle/internal/streak"
)

// State is everything the device remembers between runs.
type State struct {
	Buffer    puzzle.SessionBuffer   `json:"buffer"`
	Anonymous streak.AnonymousStreak `json:"anonymous_streak"`
	Token     string                 `json:"token,omitempty"`
}

type backend interface {
	load() (State, error)
	save(State) error
}

// ErrCorrupt is returned when stored state cannot be decoded.
var ErrCorrupt = errors.New("session state corrupt")

// Store serializes access to a backend.
//
// Thread-safety: all methods are safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	backend backend
}

// Current returns the buffer as stored. It may belong to a puzzle other
// than the one being played.
func (s *Store) Current() (puzzle.SessionBuffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.backend.load()
	if err != nil {
		return puzzle.SessionBuffer{}, err
	}
	return st.Buffer, nil
}

// Append adds guess to the buffer for puzzleID and returns the new buffer.
// A buffer for another puzzle is discarded first. A year already in the
// buffer is not added twice.
func (s *Store) Append(puzzleID string, guess int) (puzzle.SessionBuffer, error) {
	var out puzzle.SessionBuffer
	err := s.update(func(st *State) {
		if st.Buffer.PuzzleID != puzzleID {
			st.Buffer = puzzle.SessionBuffer{PuzzleID: puzzleID}
		}
		if !slices.Contains(st.Buffer.Guesses, guess) {
			st.Buffer.Guesses = append(st.Buffer.Guesses, guess)
		}
		out = puzzle.SessionBuffer{PuzzleID: puzzleID, Guesses: slices.Clone(st.Buffer.Guesses)}
	})
	return out, err
}

// Rollover discards the buffer if it belongs to a puzzle other than
// puzzleID. It reports whether anything was discarded.
func (s *Store) Rollover(puzzleID string) (bool, error) {
	dropped := false
	err := s.update(func(st *State) {
		if st.Buffer.PuzzleID != "" && st.Buffer.PuzzleID != puzzleID {
			st.Buffer = puzzle.SessionBuffer{}
			dropped = true
		}
	})
	return dropped, err
}

// Clear empties the buffer, typically after a successful migration.
func (s *Store) Clear() error {
	return s.update(func(st *State) { st.Buffer = puzzle.SessionBuffer{} })
}

// AnonymousStreak returns the streak tracked while signed out.
func (s *Store) AnonymousStreak() (streak.AnonymousStreak, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.backend.load()
	if err != nil {
		return streak.AnonymousStreak{}, err
	}
	return st.Anonymous, nil
}

// SetAnonymousStreak replaces the signed-out streak.
func (s *Store) SetAnonymousStreak(a streak.AnonymousStreak) error {
	return s.update(func(st *State) { st.Anonymous = a })
}

// Token returns the stored session token, or "" when signed out. It has the
// shape of sources.TokenSource.
func (s *Store) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.backend.load()
	if err != nil {
		return "", err
	}
	return st.Token, nil
}

// SetToken stores a session token; "" signs out. The buffer is untouched.
func (s *Store) SetToken(token string) error {
	return s.update(func(st *State) { st.Token = token })
}

// update applies mutate to the stored state. Corrupt state is replaced.
func (s *Store) update(mutate func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.backend.load()
	if err != nil {
		if !errors.Is(err, ErrCorrupt) {
			return err
		}
		st = State{}
	}
	mutate(&st)
	return s.backend.save(st)
}
