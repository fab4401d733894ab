package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/yeardle/internal/day"
	"github.com/roach88/yeardle/internal/puzzle"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const puzzleColumns = `id, number, target_year, events, date`

// DailyPuzzle returns the puzzle scheduled for d.
// Returns puzzle.ErrNotFound if no puzzle is published for that day.
func (s *Store) DailyPuzzle(ctx context.Context, d day.Day) (*puzzle.Puzzle, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+puzzleColumns+` FROM puzzles WHERE date = ?`, d.String())
	p, err := scanPuzzle(row)
	if err != nil {
		return nil, fmt.Errorf("daily puzzle %s: %w", d, err)
	}
	return p, nil
}

// PuzzleByNumber returns an archive puzzle by its sequential number.
func (s *Store) PuzzleByNumber(ctx context.Context, n int) (*puzzle.Puzzle, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+puzzleColumns+` FROM puzzles WHERE number = ?`, n)
	p, err := scanPuzzle(row)
	if err != nil {
		return nil, fmt.Errorf("puzzle #%d: %w", n, err)
	}
	return p, nil
}

// Puzzle returns a puzzle by id.
func (s *Store) Puzzle(ctx context.Context, id string) (*puzzle.Puzzle, error) {
	return puzzleByID(ctx, s.db, id)
}

func puzzleByID(ctx context.Context, q queryer, id string) (*puzzle.Puzzle, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+puzzleColumns+` FROM puzzles WHERE id = ?`, id)
	p, err := scanPuzzle(row)
	if err != nil {
		return nil, fmt.Errorf("puzzle %s: %w", id, err)
	}
	return p, nil
}

// ListPuzzles returns every published puzzle ordered by number.
// Returns an empty slice (not nil) if none exist.
func (s *Store) ListPuzzles(ctx context.Context) ([]puzzle.Puzzle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+puzzleColumns+` FROM puzzles ORDER BY number ASC`)
	if err != nil {
		return nil, fmt.Errorf("query puzzles: %w", err)
	}
	defer rows.Close()

	puzzles := []puzzle.Puzzle{}
	for rows.Next() {
		p, err := scanPuzzle(rows)
		if err != nil {
			return nil, err
		}
		puzzles = append(puzzles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate puzzles: %w", err)
	}
	return puzzles, nil
}

// NextPuzzleNumber returns the number the next published puzzle receives.
func (s *Store) NextPuzzleNumber(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(number), 0) + 1 FROM puzzles`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("next puzzle number: %w", err)
	}
	return n, nil
}

// PlayRecord returns one user's record on one puzzle.
// Returns puzzle.ErrNotFound if the user has not guessed yet, and an
// InvariantError if a completed record has lost its guesses.
func (s *Store) PlayRecord(ctx context.Context, userID, puzzleID string) (*puzzle.PlayRecord, error) {
	rec, err := playRecord(ctx, s.db, userID, puzzleID)
	if err != nil {
		return nil, err
	}
	if rec.CompletedAt != nil && len(rec.Guesses) == 0 {
		return nil, puzzle.NewInvariantError(puzzle.CodeMissingHistory,
			"completed play record has no guesses",
			map[string]string{"user_id": userID, "puzzle_id": puzzleID})
	}
	return rec, nil
}

func playRecord(ctx context.Context, q queryer, userID, puzzleID string) (*puzzle.PlayRecord, error) {
	var completed sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT completed_at FROM play_records
		WHERE user_id = ? AND puzzle_id = ?
	`, userID, puzzleID).Scan(&completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("play record %s/%s: %w", userID, puzzleID, puzzle.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("play record %s/%s: %w", userID, puzzleID, err)
	}

	completedAt, err := parseTime(completed)
	if err != nil {
		return nil, fmt.Errorf("play record %s/%s: %w", userID, puzzleID, err)
	}

	guesses, err := readGuesses(ctx, q, userID, puzzleID)
	if err != nil {
		return nil, err
	}

	return &puzzle.PlayRecord{
		UserID:      userID,
		PuzzleID:    puzzleID,
		Guesses:     guesses,
		CompletedAt: completedAt,
	}, nil
}

// readGuesses returns the guesses in submission order, never nil.
func readGuesses(ctx context.Context, q queryer, userID, puzzleID string) ([]int, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT year FROM guesses
		WHERE user_id = ? AND puzzle_id = ?
		ORDER BY position ASC
	`, userID, puzzleID)
	if err != nil {
		return nil, fmt.Errorf("query guesses: %w", err)
	}
	defer rows.Close()

	guesses := []int{}
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("scan guess: %w", err)
		}
		guesses = append(guesses, y)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate guesses: %w", err)
	}
	return guesses, nil
}

// User returns a player's streak record.
func (s *Store) User(ctx context.Context, id string) (puzzle.User, error) {
	return userByID(ctx, s.db, id)
}

func userByID(ctx context.Context, q queryer, id string) (puzzle.User, error) {
	var (
		u    puzzle.User
		last sql.NullString
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, current_streak, longest_streak, last_completed_date
		FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.CurrentStreak, &u.LongestStreak, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return puzzle.User{}, fmt.Errorf("user %s: %w", id, puzzle.ErrNotFound)
	}
	if err != nil {
		return puzzle.User{}, fmt.Errorf("user %s: %w", id, err)
	}
	if u.LastCompletedDate, err = parseDay(last); err != nil {
		return puzzle.User{}, fmt.Errorf("user %s: %w", id, err)
	}
	return u, nil
}

// PuzzleStats returns the last computed aggregate for a puzzle.
func (s *Store) PuzzleStats(ctx context.Context, puzzleID string) (puzzle.Stats, error) {
	st := puzzle.Stats{PuzzleID: puzzleID}
	err := s.db.QueryRowContext(ctx, `
		SELECT plays, wins, average_winning_turn FROM puzzle_stats WHERE puzzle_id = ?
	`, puzzleID).Scan(&st.Plays, &st.Wins, &st.AverageWinningTurn)
	if errors.Is(err, sql.ErrNoRows) {
		return puzzle.Stats{}, fmt.Errorf("stats %s: %w", puzzleID, puzzle.ErrNotFound)
	}
	if err != nil {
		return puzzle.Stats{}, fmt.Errorf("stats %s: %w", puzzleID, err)
	}
	return st, nil
}

// StreakEvent is one row of the streak audit log.
type StreakEvent struct {
	Seq           int64    `json:"seq"`
	UserID        string   `json:"user_id"`
	Kind          string   `json:"kind"`
	Reason        string   `json:"reason,omitempty"`
	Date          *day.Day `json:"date,omitempty"`
	CurrentStreak int      `json:"current_streak"`
	LongestStreak int      `json:"longest_streak"`
}

// History returns a user's streak events in the order they were applied.
func (s *Store) History(ctx context.Context, userID string) ([]StreakEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, user_id, kind, reason, date, current_streak, longest_streak
		FROM streak_events
		WHERE user_id = ?
		ORDER BY seq ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query streak events: %w", err)
	}
	defer rows.Close()

	events := []StreakEvent{}
	for rows.Next() {
		var (
			e    StreakEvent
			date sql.NullString
		)
		if err := rows.Scan(&e.Seq, &e.UserID, &e.Kind, &e.Reason, &date, &e.CurrentStreak, &e.LongestStreak); err != nil {
			return nil, fmt.Errorf("scan streak event: %w", err)
		}
		if e.Date, err = parseDay(date); err != nil {
			return nil, fmt.Errorf("scan streak event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate streak events: %w", err)
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPuzzle(row rowScanner) (*puzzle.Puzzle, error) {
	var (
		p      puzzle.Puzzle
		events string
		date   string
	)
	err := row.Scan(&p.ID, &p.Number, &p.TargetYear, &events, &date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, puzzle.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan puzzle: %w", err)
	}
	if p.Events, err = unmarshalEvents(events); err != nil {
		return nil, err
	}
	if p.Date, err = day.Parse(date); err != nil {
		return nil, fmt.Errorf("scan puzzle: %w", err)
	}
	return &p, nil
}
