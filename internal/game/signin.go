package game

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/yeardle/internal/day"
	"github.com/roach88/yeardle/internal/puzzle"
	"github.com/roach88/yeardle/internal/sources"
	"github.com/roach88/yeardle/internal/store"
	"github.com/roach88/yeardle/internal/streak"
)

// SignInReport describes what SignIn reconciled.
type SignInReport struct {
	User       puzzle.User         `json:"user"`
	Replayed   int                 `json:"replayed"`
	Migration  store.MigrateAction `json:"migration,omitempty"`
	Merge      streak.MergeSource  `json:"merge,omitempty"`
	MergeError string              `json:"merge_error,omitempty"`
}

// SignIn switches the board to ident and reconciles device-local state with
// the account:
//
//  1. the user row is created if missing
//  2. completions whose streak update was lost are replayed
//  3. a non-empty session buffer is migrated into the play record
//  4. the anonymous streak is merged into the server streak
//
// Only the first two are fatal. A bad buffer or anonymous streak is logged
// and discarded; it never blocks sign-in.
func (s *Service) SignIn(ctx context.Context, ident sources.Identity) (SignInReport, error) {
	uid, ok := ident.PersistenceID()
	if !ok {
		return SignInReport{}, puzzle.NewValidationError(puzzle.CodeInvalidID, "user_id",
			"sign-in requires a persistence-layer user id")
	}
	today := day.Today(s.clock)
	ctx = detached(ctx)
	log := s.logger.With(zap.String("user_id", uid))

	s.board.SetAuth(sources.AuthState{Identity: ident})

	if _, err := call(s.breaker, func() (puzzle.User, error) { return s.remote.EnsureUser(ctx, uid) }); err != nil {
		return SignInReport{}, fmt.Errorf("sign in: %w", wrapRemote("ensure user", err))
	}

	var report SignInReport
	type repaired struct {
		user puzzle.User
		n    int
	}
	r, err := call(s.breaker, func() (repaired, error) {
		u, n, err := s.remote.RepairStreak(ctx, uid)
		return repaired{u, n}, err
	})
	if err != nil {
		return SignInReport{}, fmt.Errorf("sign in: %w", wrapRemote("repair streak", err))
	}
	report.User, report.Replayed = r.user, r.n
	if r.n > 0 {
		log.Info("replayed completions missing from streak", zap.Int("count", r.n))
	}

	report.Migration = s.migrate(ctx, uid, log)

	anon := s.anonymous()
	if anon == (streak.AnonymousStreak{}) {
		report.Merge = streak.SourceServer
		return report, nil
	}

	merged := streak.MergeAnonymous(report.User, anon, today, s.limits)
	report.Merge = merged.Source
	switch {
	case merged.Rejected != nil:
		report.MergeError = merged.Rejected.Error()
		log.Warn("anonymous streak rejected", zap.Error(merged.Rejected))
	case merged.Changed():
		if _, err := call(s.breaker, func() (struct{}, error) {
			return struct{}{}, s.remote.SaveMergedStreak(ctx, merged.User, merged.Source)
		}); err != nil {
			// Keep the device streak so the next sign-in retries.
			log.Warn("merged streak not saved", zap.Error(err))
			report.MergeError = err.Error()
			return report, nil
		}
		report.User = merged.User
		log.Info("merged anonymous streak",
			zap.String("source", string(merged.Source)),
			zap.Int("current_streak", merged.User.CurrentStreak),
		)
	}
	s.metrics.RecordMerge(string(merged.Source))

	if err := s.local.SetAnonymousStreak(streak.AnonymousStreak{}); err != nil {
		log.Warn("anonymous streak not cleared", zap.Error(err))
	}
	return report, nil
}

// migrate moves the session buffer into the user's play record. The buffer
// is cleared once the server holds it, or once it can never be migrated.
func (s *Service) migrate(ctx context.Context, uid string, log *zap.Logger) store.MigrateAction {
	buf, err := s.local.Current()
	if err != nil {
		log.Warn("session buffer unreadable, skipping migration", zap.Error(err))
		return ""
	}
	if len(buf.Guesses) == 0 {
		return ""
	}

	type migrated struct {
		rec    *puzzle.PlayRecord
		action store.MigrateAction
	}
	m, err := call(s.breaker, func() (migrated, error) {
		rec, action, err := s.remote.MigrateSession(ctx, uid, buf)
		return migrated{rec, action}, err
	})
	switch {
	case puzzle.IsValidationError(err) || puzzle.IsNotFound(err):
		log.Warn("discarding invalid session buffer", zap.String("puzzle_id", buf.PuzzleID), zap.Error(err))
	case err != nil:
		log.Warn("session migration failed, buffer kept", zap.Error(wrapRemote("migrate session", err)))
		return ""
	default:
		log.Info("migrated session buffer",
			zap.String("puzzle_id", buf.PuzzleID),
			zap.String("action", string(m.action)),
		)
	}

	if err := s.local.Clear(); err != nil {
		log.Warn("session buffer not cleared", zap.Error(err))
	}
	s.board.SetSession(sources.SessionState{})

	if m.rec != nil {
		if p := s.board.Snapshot().Puzzle.Puzzle; p != nil && p.ID == m.rec.PuzzleID {
			s.board.SetProgress(sources.ProgressState{
				Status:   sources.Resolved,
				UserID:   uid,
				PuzzleID: p.ID,
				Record:   m.rec,
			})
		}
	}
	return m.action
}

func (s *Service) anonymous() streak.AnonymousStreak {
	anon, err := s.local.AnonymousStreak()
	if err != nil {
		s.logger.Warn("anonymous streak unreadable", zap.Error(err))
		return streak.AnonymousStreak{}
	}
	return anon
}
