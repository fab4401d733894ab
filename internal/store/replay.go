package store

import (
	"context"
	"fmt"

	"github.com/roach88/yeardle/internal/day"
	"github.com/roach88/yeardle/internal/puzzle"
	"github.com/roach88/yeardle/internal/streak"
)

// DailyCompletion is a play record finished on its puzzle's own day, the
// only kind that can move a streak.
type DailyCompletion struct {
	PuzzleID string
	Date     day.Day
	Won      bool
}

// DailyCompletions returns the user's streak-affecting completions after
// since (all of them when since is nil), oldest first.
func (s *Store) DailyCompletions(ctx context.Context, userID string, since *day.Day) ([]DailyCompletion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.date,
			EXISTS (
				SELECT 1 FROM guesses g
				WHERE g.user_id = pr.user_id AND g.puzzle_id = pr.puzzle_id AND g.year = p.target_year
			)
		FROM play_records pr
		JOIN puzzles p ON p.id = pr.puzzle_id
		WHERE pr.user_id = ?
			AND pr.completed_at IS NOT NULL
			AND substr(pr.completed_at, 1, 10) = p.date
			AND (? IS NULL OR p.date > ?)
		ORDER BY p.date ASC
	`, userID, nullDay(since), nullDay(since))
	if err != nil {
		return nil, fmt.Errorf("query daily completions: %w", err)
	}
	defer rows.Close()

	out := []DailyCompletion{}
	for rows.Next() {
		var (
			c    DailyCompletion
			date string
		)
		if err := rows.Scan(&c.PuzzleID, &date, &c.Won); err != nil {
			return nil, fmt.Errorf("scan daily completion: %w", err)
		}
		if c.Date, err = day.Parse(date); err != nil {
			return nil, fmt.Errorf("scan daily completion: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily completions: %w", err)
	}
	return out, nil
}

// RepairStreak replays daily completions the user's streak has not seen yet.
//
// A guess and its streak update are separate writes; a crash between them
// leaves a completed daily record newer than last_completed_date. Replaying
// Decide over those records, oldest first, brings the streak back in line.
// Returns the user and the number of commands applied.
func (s *Store) RepairStreak(ctx context.Context, userID string) (puzzle.User, int, error) {
	u, err := s.User(ctx, userID)
	if err != nil {
		return puzzle.User{}, 0, fmt.Errorf("repair streak: %w", err)
	}

	missed, err := s.DailyCompletions(ctx, userID, u.LastCompletedDate)
	if err != nil {
		return puzzle.User{}, 0, fmt.Errorf("repair streak: %w", err)
	}
	if len(missed) == 0 {
		return u, 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return puzzle.User{}, 0, fmt.Errorf("repair streak: begin tx: %w", err)
	}
	defer tx.Rollback()

	applied := 0
	for _, c := range missed {
		cmd := streak.Decide(u.LastCompletedDate, u.CurrentStreak, c.Date, c.Won)
		if cmd.Kind() == streak.KindNoChange {
			continue
		}
		u = streak.Apply(u, cmd)
		date := streak.CommandDate(cmd)
		if err := appendEvent(ctx, tx, u, string(cmd.Kind()), string(streak.CommandReason(cmd)), &date); err != nil {
			return puzzle.User{}, 0, fmt.Errorf("repair streak: %w", err)
		}
		applied++
	}
	if err := writeStreak(ctx, tx, u); err != nil {
		return puzzle.User{}, 0, fmt.Errorf("repair streak: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return puzzle.User{}, 0, fmt.Errorf("repair streak: commit: %w", err)
	}
	return u, applied, nil
}
