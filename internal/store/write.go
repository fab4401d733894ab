package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strconv"

	"github.com/roach88/yeardle/internal/day"
	"github.com/roach88/yeardle/internal/puzzle"
	"github.com/roach88/yeardle/internal/streak"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PutPuzzle inserts a puzzle record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - re-publishing the same id
// is silently ignored. A second puzzle for an already-taken date or number
// violates a UNIQUE constraint and returns an error.
func (s *Store) PutPuzzle(ctx context.Context, p puzzle.Puzzle) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("put puzzle: %w", err)
	}
	events, err := marshalEvents(p.Events)
	if err != nil {
		return fmt.Errorf("put puzzle: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO puzzles (id, number, target_year, events, date)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, p.ID, p.Number, p.TargetYear, events, p.Date.String())
	if err != nil {
		return fmt.Errorf("put puzzle: %w", err)
	}
	return nil
}

// EnsureUser creates the user row if it does not exist and returns it.
func (s *Store) EnsureUser(ctx context.Context, id string) (puzzle.User, error) {
	if err := ensureUser(ctx, s.db, id); err != nil {
		return puzzle.User{}, err
	}
	return s.User(ctx, id)
}

func ensureUser(ctx context.Context, e execer, id string) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO users (id) VALUES (?)
		ON CONFLICT(id) DO NOTHING
	`, id)
	if err != nil {
		return fmt.Errorf("ensure user %s: %w", id, err)
	}
	return nil
}

// SubmitGuess appends guess to the user's record on a puzzle and reports the
// outcome.
//
// Safe against the caller's own retry: a year already on the record is not
// appended again, and the current record is returned as if the write had just
// happened. The first guess creates the record; the guess that finishes the
// game stamps completed_at.
func (s *Store) SubmitGuess(ctx context.Context, userID, puzzleID string, guess int) (puzzle.GuessResult, error) {
	if !puzzle.ValidGuess(guess) {
		return puzzle.GuessResult{}, puzzle.NewValidationError(puzzle.CodeInvalidGuess, "guess",
			fmt.Sprintf("year must be between %d and %d", puzzle.MinYear, puzzle.MaxYear))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return puzzle.GuessResult{}, fmt.Errorf("submit guess: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	p, err := puzzleByID(ctx, tx, puzzleID)
	if err != nil {
		return puzzle.GuessResult{}, fmt.Errorf("submit guess: %w", err)
	}
	if err := ensureUser(ctx, tx, userID); err != nil {
		return puzzle.GuessResult{}, fmt.Errorf("submit guess: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO play_records (user_id, puzzle_id) VALUES (?, ?)
		ON CONFLICT(user_id, puzzle_id) DO NOTHING
	`, userID, puzzleID)
	if err != nil {
		return puzzle.GuessResult{}, fmt.Errorf("submit guess: create record: %w", err)
	}

	guesses, err := readGuesses(ctx, tx, userID, puzzleID)
	if err != nil {
		return puzzle.GuessResult{}, fmt.Errorf("submit guess: %w", err)
	}
	result := func() puzzle.GuessResult {
		return puzzle.GuessResult{Correct: guess == p.TargetYear, Guesses: guesses, TargetYear: p.TargetYear}
	}

	if puzzle.Contains(guesses, guess) {
		return result(), nil
	}
	if puzzle.IsComplete(guesses, p.TargetYear) {
		return puzzle.GuessResult{}, puzzle.NewValidationError(puzzle.CodeGameOver, "guess", "this puzzle is already finished")
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO guesses (user_id, puzzle_id, position, year)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, userID, puzzleID, len(guesses), guess)
	if err != nil {
		return puzzle.GuessResult{}, fmt.Errorf("submit guess: insert: %w", err)
	}
	if err := requireRow(res, "insert guess", map[string]string{
		"user_id":   userID,
		"puzzle_id": puzzleID,
		"position":  strconv.Itoa(len(guesses)),
	}); err != nil {
		return puzzle.GuessResult{}, err
	}
	guesses = append(guesses, guess)

	if puzzle.IsComplete(guesses, p.TargetYear) {
		if err := markCompleted(ctx, tx, userID, puzzleID, formatTime(s.clock.Now())); err != nil {
			return puzzle.GuessResult{}, fmt.Errorf("submit guess: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return puzzle.GuessResult{}, fmt.Errorf("submit guess: commit: %w", err)
	}
	return result(), nil
}

func markCompleted(ctx context.Context, e execer, userID, puzzleID, at string) error {
	_, err := e.ExecContext(ctx, `
		UPDATE play_records SET completed_at = ?
		WHERE user_id = ? AND puzzle_id = ? AND completed_at IS NULL
	`, at, userID, puzzleID)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

// ApplyStreakCommand applies cmd to the user's streak in one transaction
// and appends it to the audit log. NoChange writes nothing.
//
// Returns puzzle.ErrNotFound if the user does not exist and an
// InvariantError if the update touched no row.
func (s *Store) ApplyStreakCommand(ctx context.Context, userID string, cmd streak.Command) (puzzle.User, error) {
	if cmd.Kind() == streak.KindNoChange {
		return s.User(ctx, userID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return puzzle.User{}, fmt.Errorf("apply streak command: begin tx: %w", err)
	}
	defer tx.Rollback()

	u, err := userByID(ctx, tx, userID)
	if err != nil {
		return puzzle.User{}, fmt.Errorf("apply streak command: %w", err)
	}
	next := streak.Apply(u, cmd)
	if err := writeStreak(ctx, tx, next); err != nil {
		return puzzle.User{}, err
	}

	date := streak.CommandDate(cmd)
	if err := appendEvent(ctx, tx, next, string(cmd.Kind()), string(streak.CommandReason(cmd)), &date); err != nil {
		return puzzle.User{}, err
	}

	if err := tx.Commit(); err != nil {
		return puzzle.User{}, fmt.Errorf("apply streak command: commit: %w", err)
	}
	return next, nil
}

// SaveMergedStreak persists the outcome of a sign-in streak merge. The audit
// log records it with kind "merge" and the merge source as reason.
func (s *Store) SaveMergedStreak(ctx context.Context, u puzzle.User, source streak.MergeSource) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save merged streak: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := writeStreak(ctx, tx, u); err != nil {
		return err
	}
	if err := appendEvent(ctx, tx, u, "merge", string(source), u.LastCompletedDate); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save merged streak: commit: %w", err)
	}
	return nil
}

func writeStreak(ctx context.Context, e execer, u puzzle.User) error {
	res, err := e.ExecContext(ctx, `
		UPDATE users
		SET current_streak = ?, longest_streak = ?, last_completed_date = ?
		WHERE id = ?
	`, u.CurrentStreak, u.LongestStreak, nullDay(u.LastCompletedDate), u.ID)
	if err != nil {
		return fmt.Errorf("write streak %s: %w", u.ID, err)
	}
	return requireRow(res, "update user streak", map[string]string{"user_id": u.ID})
}

func appendEvent(ctx context.Context, e execer, u puzzle.User, kind, reason string, date *day.Day) error {
	if date != nil && date.IsZero() {
		date = nil
	}
	_, err := e.ExecContext(ctx, `
		INSERT INTO streak_events (user_id, kind, reason, date, current_streak, longest_streak)
		VALUES (?, ?, ?, ?, ?, ?)
	`, u.ID, kind, reason, nullDay(date), u.CurrentStreak, u.LongestStreak)
	if err != nil {
		return fmt.Errorf("append streak event: %w", err)
	}
	return nil
}

// requireRow turns an UPDATE or INSERT that touched nothing into an
// InvariantError carrying details.
func requireRow(res sql.Result, op string, details map[string]string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return puzzle.NewInvariantError(puzzle.CodeNoRowsAffected, op+" affected no rows", details)
	}
	return nil
}

// MigrateAction says what MigrateSession did with a session buffer.
type MigrateAction string

const (
	MigrateCopied   MigrateAction = "copied"
	MigrateReplaced MigrateAction = "replaced"
	MigrateKept     MigrateAction = "kept"
)

// MigrateSession moves a device-local buffer into the user's play record.
// With no record the buffer is copied; with an unfinished one, the buffer
// replaces it only if it holds strictly more guesses. A completed record is
// never replaced. The buffer is validated first and
// never trusted to end a game it could not have ended.
func (s *Store) MigrateSession(ctx context.Context, userID string, buf puzzle.SessionBuffer) (*puzzle.PlayRecord, MigrateAction, error) {
	if err := validateBuffer(buf); err != nil {
		return nil, "", fmt.Errorf("migrate session: %w", err)
	}
	if len(buf.Guesses) == 0 {
		return nil, MigrateKept, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("migrate session: begin tx: %w", err)
	}
	defer tx.Rollback()

	p, err := puzzleByID(ctx, tx, buf.PuzzleID)
	if err != nil {
		return nil, "", fmt.Errorf("migrate session: %w", err)
	}
	if i := slices.Index(buf.Guesses, p.TargetYear); i >= 0 && i != len(buf.Guesses)-1 {
		return nil, "", puzzle.NewValidationError(puzzle.CodeGameOver, "guesses", "buffer continues after the winning guess")
	}
	if err := ensureUser(ctx, tx, userID); err != nil {
		return nil, "", fmt.Errorf("migrate session: %w", err)
	}

	existing, err := playRecord(ctx, tx, userID, buf.PuzzleID)
	if err != nil && !puzzle.IsNotFound(err) {
		return nil, "", fmt.Errorf("migrate session: %w", err)
	}

	action := MigrateCopied
	if existing != nil {
		// A finished game is final, whatever the device holds.
		if existing.CompletedAt != nil || len(buf.Guesses) <= len(existing.Guesses) {
			return existing, MigrateKept, nil
		}
		action = MigrateReplaced
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM guesses WHERE user_id = ? AND puzzle_id = ?
		`, userID, buf.PuzzleID); err != nil {
			return nil, "", fmt.Errorf("migrate session: clear guesses: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE play_records SET completed_at = NULL WHERE user_id = ? AND puzzle_id = ?
		`, userID, buf.PuzzleID); err != nil {
			return nil, "", fmt.Errorf("migrate session: reset completion: %w", err)
		}
	} else if _, err := tx.ExecContext(ctx, `
		INSERT INTO play_records (user_id, puzzle_id) VALUES (?, ?)
	`, userID, buf.PuzzleID); err != nil {
		return nil, "", fmt.Errorf("migrate session: create record: %w", err)
	}

	for i, g := range buf.Guesses {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO guesses (user_id, puzzle_id, position, year) VALUES (?, ?, ?, ?)
		`, userID, buf.PuzzleID, i, g); err != nil {
			return nil, "", fmt.Errorf("migrate session: insert guess: %w", err)
		}
	}
	if puzzle.IsComplete(buf.Guesses, p.TargetYear) {
		if err := markCompleted(ctx, tx, userID, buf.PuzzleID, formatTime(s.clock.Now())); err != nil {
			return nil, "", fmt.Errorf("migrate session: %w", err)
		}
	}

	rec, err := playRecord(ctx, tx, userID, buf.PuzzleID)
	if err != nil {
		return nil, "", fmt.Errorf("migrate session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("migrate session: commit: %w", err)
	}
	return rec, action, nil
}

func validateBuffer(buf puzzle.SessionBuffer) error {
	if buf.PuzzleID == "" {
		return puzzle.NewValidationError(puzzle.CodeInvalidPuzzle, "puzzle_id", "buffer has no puzzle id")
	}
	if len(buf.Guesses) > puzzle.MaxGuesses {
		return puzzle.NewValidationError(puzzle.CodeGameOver, "guesses", "buffer holds more than 6 guesses")
	}
	seen := make(map[int]bool, len(buf.Guesses))
	for _, g := range buf.Guesses {
		if !puzzle.ValidGuess(g) {
			return puzzle.NewValidationError(puzzle.CodeInvalidGuess, "guesses", fmt.Sprintf("year %d out of range", g))
		}
		if seen[g] {
			return puzzle.NewValidationError(puzzle.CodeDuplicateGuess, "guesses", fmt.Sprintf("year %d repeated", g))
		}
		seen[g] = true
	}
	return nil
}

// RecomputePuzzleStats recomputes and stores the aggregate for one puzzle:
// completed plays, wins, and the mean guess number of winning plays.
func (s *Store) RecomputePuzzleStats(ctx context.Context, puzzleID string) (puzzle.Stats, error) {
	st := puzzle.Stats{PuzzleID: puzzleID}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(w.position),
			COALESCE(AVG(w.position + 1), 0.0)
		FROM play_records pr
		JOIN puzzles p ON p.id = pr.puzzle_id
		LEFT JOIN guesses w
			ON w.user_id = pr.user_id AND w.puzzle_id = pr.puzzle_id AND w.year = p.target_year
		WHERE pr.puzzle_id = ? AND pr.completed_at IS NOT NULL
	`, puzzleID).Scan(&st.Plays, &st.Wins, &st.AverageWinningTurn)
	if err != nil {
		return puzzle.Stats{}, fmt.Errorf("recompute stats %s: %w", puzzleID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO puzzle_stats (puzzle_id, plays, wins, average_winning_turn)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(puzzle_id) DO UPDATE SET
			plays = excluded.plays,
			wins = excluded.wins,
			average_winning_turn = excluded.average_winning_turn
	`, puzzleID, st.Plays, st.Wins, st.AverageWinningTurn)
	if err != nil {
		return puzzle.Stats{}, fmt.Errorf("store stats %s: %w", puzzleID, err)
	}
	return st, nil
}
