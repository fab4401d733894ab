package game

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/roach88/yeardle/internal/day"
	"github.com/roach88/yeardle/internal/derive"
	"github.com/roach88/yeardle/internal/observability"
	"github.com/roach88/yeardle/internal/puzzle"
	"github.com/roach88/yeardle/internal/sources"
	"github.com/roach88/yeardle/internal/streak"
)

type guessInput struct {
	Year int `validate:"gte=-9999,lte=9999"`
}

// Submit records one guess and reports whether it was accepted and, for a
// signed-in player, confirmed by the server. It does not return an error and
// a panic from a port is recovered and reported as unsynced; LastNotice
// explains a false result.
//
// The guess is written to the local buffer before any remote call and is
// never rolled back. A signed-in guess that fails to sync stays visible and
// reconciles through guess merging on the next load.
func (s *Service) Submit(ctx context.Context, guess int) (accepted bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("guess submission panicked",
				zap.Int("guess", guess), zap.Any("panic", r), zap.Stack("stack"))
			s.setNotice(&Notice{Code: NoticeNotSynced, Message: "guess saved on this device but not synced yet"})
			s.metrics.RecordGuess(observability.OutcomeUnsynced)
			accepted = false
		}
	}()

	today := day.Today(s.clock)

	ready, err := s.admit(guess)
	if err != nil {
		s.reject(err)
		return false
	}
	defer s.inFlight.Store(false)
	s.setNotice(nil)

	p := ready.Puzzle
	s.appendLocal(p.ID, guess)

	uid, signedIn := s.board.Snapshot().Auth.Identity.PersistenceID()
	if !signedIn {
		guesses := derive.MergeGuesses(ready.Guesses, []int{guess})
		s.settleAnonymous(p, today, guesses)
		s.metrics.RecordGuess(observability.OutcomeLocal)
		return true
	}

	ctx = detached(ctx)
	res, err := call(s.breaker, func() (puzzle.GuessResult, error) {
		return s.remote.SubmitGuess(ctx, uid, p.ID, guess)
	})
	if err != nil {
		s.unsynced(uid, p.ID, guess, wrapRemote("submit guess", err))
		return false
	}

	rec := &puzzle.PlayRecord{UserID: uid, PuzzleID: p.ID, Guesses: res.Guesses}
	complete := puzzle.IsComplete(res.Guesses, res.TargetYear)
	if complete {
		at := s.now()
		rec.CompletedAt = &at
	}
	s.board.SetProgress(sources.ProgressState{Status: sources.Resolved, UserID: uid, PuzzleID: p.ID, Record: rec})
	s.metrics.RecordGuess(observability.OutcomeAccepted)

	if res.Correct {
		if _, err := call(s.breaker, func() (puzzle.Stats, error) {
			return s.remote.RecomputePuzzleStats(ctx, p.ID)
		}); err != nil {
			s.logger.Warn("puzzle stats recompute failed", zap.String("puzzle_id", p.ID), zap.Error(err))
		}
	}
	if complete {
		s.settleStreak(ctx, uid, p, today, res.Correct)
	}
	return true
}

// admit runs every synchronous check and, on success, holds the in-flight
// guard. The caller must release it.
func (s *Service) admit(guess int) (derive.Ready, error) {
	if err := s.validate.Struct(guessInput{Year: guess}); err != nil {
		return derive.Ready{}, puzzle.NewValidationError(puzzle.CodeInvalidGuess, "guess",
			"guess must be a year between -9999 and 9999")
	}

	ready, ok := s.board.State().(derive.Ready)
	if !ok {
		return derive.Ready{}, puzzle.NewValidationError(puzzle.CodeNotReady, "", "the puzzle is not ready yet")
	}
	if ready.IsComplete || ready.RemainingGuesses <= 0 {
		return derive.Ready{}, puzzle.NewValidationError(puzzle.CodeGameOver, "", "no guesses remain for this puzzle")
	}
	if puzzle.Contains(ready.Guesses, guess) {
		return derive.Ready{}, puzzle.NewValidationError(puzzle.CodeDuplicateGuess, "guess", "you already guessed that year")
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return derive.Ready{}, puzzle.NewValidationError(puzzle.CodeInFlight, "", "a guess is already being submitted")
	}
	return ready, nil
}

func (s *Service) reject(err error) {
	var ve *puzzle.ValidationError
	if errors.As(err, &ve) {
		s.setNotice(&Notice{Code: ve.Code, Message: ve.Message})
	}
	s.metrics.RecordGuess(observability.OutcomeRejected)
}

// appendLocal writes the guess to the session buffer and publishes it. If
// the device store fails, the board still shows the guess for this run.
func (s *Service) appendLocal(puzzleID string, guess int) {
	buf, err := s.local.Append(puzzleID, guess)
	if err != nil {
		s.logger.Warn("session buffer write failed", zap.String("puzzle_id", puzzleID), zap.Error(err))
		prev := s.board.Snapshot().Session.Buffer.For(puzzleID)
		buf = puzzle.SessionBuffer{PuzzleID: puzzleID, Guesses: derive.MergeGuesses(prev, []int{guess})}
	}
	s.board.SetSession(sources.SessionState{Buffer: buf})
}

// unsynced handles a failed remote write: log it, leave the optimistic
// guess in place and tell the player. An invariant violation means the
// stored record cannot be trusted, so the board moves to an error state.
func (s *Service) unsynced(uid, puzzleID string, guess int, err error) {
	fields := []zap.Field{zap.String("puzzle_id", puzzleID), zap.Int("guess", guess), zap.Error(err)}

	var ve *puzzle.ValidationError
	var ie *puzzle.InvariantError
	switch {
	case errors.As(err, &ve):
		s.logger.Info("server rejected guess", fields...)
		s.setNotice(&Notice{Code: ve.Code, Message: ve.Message})
		s.metrics.RecordGuess(observability.OutcomeRejected)
		return
	case errors.As(err, &ie):
		for k, v := range ie.Details {
			fields = append(fields, zap.String(k, v))
		}
		s.logger.Error("guess write violated an invariant", fields...)
		s.board.SetProgress(sources.ProgressState{Status: sources.Failed, UserID: uid, PuzzleID: puzzleID, Err: err})
	default:
		s.logger.Warn("guess not synced", fields...)
	}
	s.setNotice(&Notice{Code: NoticeNotSynced, Message: "guess saved on this device but not synced yet"})
	s.metrics.RecordGuess(observability.OutcomeUnsynced)
}

// settleStreak runs the streak engine for a finished game. Archive puzzles
// are classified out before Decide sees them.
func (s *Service) settleStreak(ctx context.Context, uid string, p puzzle.Puzzle, today day.Day, won bool) {
	log := s.logger.With(zap.String("user_id", uid), zap.String("puzzle_id", p.ID))

	if streak.Classify(p.Date, today) == streak.Archive {
		log.Debug("archive puzzle does not affect streak", zap.Stringer("puzzle_date", p.Date))
		return
	}

	u, err := call(s.breaker, func() (puzzle.User, error) { return s.remote.User(ctx, uid) })
	if err != nil {
		s.streakNotSaved(log, wrapRemote("load user", err))
		return
	}

	cmd := streak.Decide(u.LastCompletedDate, u.CurrentStreak, today, won)
	if cmd.Kind() == streak.KindNoChange {
		return
	}
	if _, err := call(s.breaker, func() (puzzle.User, error) {
		return s.remote.ApplyStreakCommand(ctx, uid, cmd)
	}); err != nil {
		s.streakNotSaved(log, wrapRemote("apply streak command", err))
		return
	}
	s.metrics.RecordStreakCommand(string(cmd.Kind()))
	log.Info("streak updated",
		zap.String("kind", string(cmd.Kind())),
		zap.String("reason", string(streak.CommandReason(cmd))),
	)
}

func (s *Service) streakNotSaved(log *zap.Logger, err error) {
	var ie *puzzle.InvariantError
	if errors.As(err, &ie) {
		fields := []zap.Field{zap.Error(err)}
		for k, v := range ie.Details {
			fields = append(fields, zap.String(k, v))
		}
		log.Error("streak update violated an invariant", fields...)
	} else {
		log.Warn("streak update failed", zap.Error(err))
	}
	s.setNotice(&Notice{Code: NoticeStreakNotSaved, Message: "your guess was saved but your streak could not be updated"})
}

// settleAnonymous keeps the device's own streak for a signed-out player
// who finishes today's puzzle. It is untrusted and only ever reaches an
// account through MergeAnonymous at sign-in.
func (s *Service) settleAnonymous(p puzzle.Puzzle, today day.Day, guesses []int) {
	if !puzzle.IsComplete(guesses, p.TargetYear) || streak.Classify(p.Date, today) == streak.Archive {
		return
	}
	anon, err := s.local.AnonymousStreak()
	if err != nil {
		s.logger.Warn("anonymous streak unreadable, starting fresh", zap.Error(err))
		anon = streak.AnonymousStreak{}
	}
	cmd := streak.Decide(anon.Last(), anon.Streak, today, puzzle.Contains(guesses, p.TargetYear))
	if cmd.Kind() == streak.KindNoChange {
		return
	}
	if err := s.local.SetAnonymousStreak(streak.ApplyAnonymous(anon, cmd)); err != nil {
		s.logger.Warn("anonymous streak write failed", zap.Error(err))
	}
}
