package derive

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/yeardle/internal/puzzle"
	"github.com/roach88/yeardle/internal/sources"
)

func TestBoard_AnyResolutionOrder(t *testing.T) {
	p := testPuzzle()
	steps := map[string]func(*Board){
		"puzzle":   func(b *Board) { b.SetPuzzle(resolved(p)) },
		"auth":     func(b *Board) { b.SetAuth(signedIn) },
		"progress": func(b *Board) { b.SetProgress(record(1900)) },
		"session":  func(b *Board) { b.SetSession(buffer("p-8", 1950)) },
	}
	orders := [][]string{
		{"puzzle", "auth", "progress", "session"},
		{"session", "progress", "auth", "puzzle"},
		{"auth", "session", "puzzle", "progress"},
	}

	var results []GameState
	for _, order := range orders {
		b := NewBoard()
		for _, name := range order {
			steps[name](b)
		}
		results = append(results, b.State())
	}

	for _, got := range results {
		require.IsType(t, Ready{}, got)
		assert.Equal(t, []int{1900, 1950}, got.(Ready).Guesses)
	}
}

func TestBoard_ProgressArrivesLate(t *testing.T) {
	b := NewBoard()
	assert.Equal(t, KindLoadingPuzzle, b.State().Kind())

	b.SetPuzzle(resolved(testPuzzle()))
	assert.Equal(t, KindLoadingAuth, b.State().Kind())

	b.SetAuth(signedIn)
	assert.Equal(t, KindLoadingProgress, b.State().Kind())

	b.SetProgress(record(1900, 1969))
	got := b.State().(Ready)
	assert.True(t, got.HasWon)
}

func TestBoard_PuzzleSwapInvalidatesProgress(t *testing.T) {
	b := NewBoard()
	b.SetPuzzle(resolved(testPuzzle()))
	b.SetAuth(signedIn)
	b.SetProgress(record(1900))
	require.Equal(t, KindReady, b.State().Kind())

	next := testPuzzle()
	next.ID = "p-9"
	next.Number = 9
	b.SetPuzzle(resolved(next))
	assert.Equal(t, KindLoadingProgress, b.State().Kind())

	b.SetProgress(sources.ProgressState{Status: sources.Resolved, UserID: userID, PuzzleID: "p-9"})
	got := b.State()
	require.IsType(t, Ready{}, got)
	assert.Empty(t, got.(Ready).Guesses)

	// A late reply for the old puzzle does not leak into the new one.
	b.SetProgress(record(1900))
	assert.Equal(t, KindLoadingProgress, b.State().Kind())
}

func TestBoard_UserSwitchInvalidatesProgress(t *testing.T) {
	b := NewBoard()
	b.SetPuzzle(resolved(testPuzzle()))
	b.SetAuth(signedIn)
	b.SetProgress(record(1900))

	b.SetAuth(sources.AuthState{Identity: sources.Identity{
		UserID:          "0192f3a0-0000-7000-8000-000000000002",
		IsAuthenticated: true,
	}})
	assert.Equal(t, KindLoadingProgress, b.State().Kind())
	assert.Equal(t, userID, b.Snapshot().Progress.UserID)
}

func TestBoard_Subscribe(t *testing.T) {
	b := NewBoard()
	ch, cancel := b.Subscribe()

	first := <-ch
	assert.Equal(t, KindLoadingPuzzle, first.Kind())

	b.SetPuzzle(resolved(testPuzzle()))
	b.SetAuth(signedOut)

	// Latest wins: only the newest state is buffered.
	latest := <-ch
	assert.Equal(t, KindReady, latest.Kind())
	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra state %v", extra.Kind())
	default:
	}

	cancel()
	_, open := <-ch
	assert.False(t, open)
	cancel()
}

func TestBoard_ConcurrentSources(t *testing.T) {
	b := NewBoard()
	p := testPuzzle()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(4)
		go func() { defer wg.Done(); b.SetPuzzle(resolved(p)) }()
		go func() { defer wg.Done(); b.SetAuth(signedOut) }()
		go func() { defer wg.Done(); b.SetSession(buffer(p.ID, 1900+i%3)) }()
		go func() { defer wg.Done(); _ = b.State() }()
	}
	wg.Wait()

	got := b.State()
	require.IsType(t, Ready{}, got)
	assert.Len(t, got.(Ready).Guesses, 1)
	assert.LessOrEqual(t, got.(Ready).RemainingGuesses, puzzle.MaxGuesses)
}
