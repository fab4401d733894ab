package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/yeardle/internal/day"
	"github.com/roach88/yeardle/internal/puzzle"
)

func TestPuzzleReads(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustPutPuzzle(t, s, testPuzzle("p-2", 2, "2025-10-09"))
	mustPutPuzzle(t, s, testPuzzle("p-1", 1, "2025-10-08"))

	p, err := s.DailyPuzzle(ctx, day.MustParse("2025-10-09"))
	require.NoError(t, err)
	assert.Equal(t, "p-2", p.ID)

	p, err = s.PuzzleByNumber(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "p-1", p.ID)

	_, err = s.DailyPuzzle(ctx, day.MustParse("2025-10-10"))
	assert.True(t, puzzle.IsNotFound(err))

	_, err = s.PuzzleByNumber(ctx, 99)
	assert.True(t, puzzle.IsNotFound(err))

	all, err := s.ListPuzzles(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 1, all[0].Number)
	assert.Equal(t, 2, all[1].Number)

	n, err := s.NextPuzzleNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestListPuzzles_Empty(t *testing.T) {
	s := createTestStore(t)

	all, err := s.ListPuzzles(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	n, err := s.NextPuzzleNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPlayRecord_NotFound(t *testing.T) {
	s := createTestStore(t)
	mustPutPuzzle(t, s, testPuzzle("p-1", 1, "2025-10-08"))

	_, err := s.PlayRecord(context.Background(), alice, "p-1")
	assert.True(t, puzzle.IsNotFound(err))
}

func TestPlayRecord_CompletedWithoutGuessesIsCorrupt(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustPutPuzzle(t, s, testPuzzle("p-1", 1, "2025-10-08"))
	_, err := s.SubmitGuess(ctx, alice, "p-1", 1969)
	require.NoError(t, err)

	_, err = s.db.Exec(`DELETE FROM guesses WHERE user_id = ?`, alice)
	require.NoError(t, err)

	_, err = s.PlayRecord(ctx, alice, "p-1")
	var ie *puzzle.InvariantError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, puzzle.CodeMissingHistory, ie.Code)
}

func TestUser(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.User(ctx, alice)
	assert.True(t, puzzle.IsNotFound(err))

	u, err := s.EnsureUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, puzzle.User{ID: alice}, u)

	again, err := s.EnsureUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, u, again)
}

func TestPuzzleStats_NotComputed(t *testing.T) {
	s := createTestStore(t)

	_, err := s.PuzzleStats(context.Background(), "p-1")
	assert.True(t, puzzle.IsNotFound(err))
}
