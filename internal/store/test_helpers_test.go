package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/yeardle/internal/day"
	"github.com/roach88/yeardle/internal/puzzle"
	"github.com/roach88/yeardle/internal/testutil"
)

const (
	alice = "0192f3a0-7c1e-7b2a-9c3d-1e2f3a4b5c6d"
	bob   = "0192f3a0-7c1e-7b2a-9c3d-1e2f3a4b5c6e"
)

// createTestStore creates a new temp-dir store with its clock pinned to
// noon UTC on 2025-10-08.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, _ := createTestStoreWithClock(t, "2025-10-08")
	return s
}

func createTestStoreWithClock(t *testing.T, today string) (*Store, *testutil.FixedClock) {
	t.Helper()
	clock := testutil.NewFixedClock(today)
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(clock))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, clock
}

// testPuzzle creates a puzzle with target year 1969.
func testPuzzle(id string, number int, date string) puzzle.Puzzle {
	return puzzle.Puzzle{
		ID:         id,
		Number:     number,
		TargetYear: 1969,
		Events:     []string{"e1", "e2", "e3", "e4", "e5", "e6"},
		Date:       day.MustParse(date),
	}
}

func mustPutPuzzle(t *testing.T, s *Store, p puzzle.Puzzle) {
	t.Helper()
	if err := s.PutPuzzle(context.Background(), p); err != nil {
		t.Fatalf("PutPuzzle(%s) failed: %v", p.ID, err)
	}
}
