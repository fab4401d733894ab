// Package store provides SQLite-backed durable storage for puzzles, play
// records, guesses and player streaks.
//
// The store is the persistence side of the game: it implements the puzzle
// and progress readers consumed by internal/sources, the guess-submission
// write, and streak persistence.
//
// # Critical Patterns
//
// Guess idempotency:
//   - PRIMARY KEY(user_id, puzzle_id, position) plus UNIQUE(user_id, puzzle_id, year)
//   - Re-submitting a year already on the record is a no-op, never a second append
//
// Streaks move only through commands:
//   - ApplyStreakCommand applies a streak.Command inside one transaction
//   - Every applied command is appended to streak_events for audit
//   - An UPDATE that matches no user row is an invariant violation, not a retry
//
// Deterministic query results:
//   - Guesses are always read ORDER BY position ASC
//   - Lists of puzzles are ordered by number
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
