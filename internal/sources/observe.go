package sources

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Sink receives source observations as they resolve. Implementations must
// be safe for concurrent use; calls arrive in no particular order.
type Sink interface {
	SetPuzzle(PuzzleState)
	SetAuth(AuthState)
	SetProgress(ProgressState)
	SetSession(SessionState)
}

// Readers bundles one reader per source.
type Readers struct {
	Puzzles  PuzzleReader
	Identity IdentityReader
	Progress ProgressReader
	Session  SessionReader
}

// Observe resolves every source for sel and reports each one to sink as
// soon as it is available. Puzzle, identity and session are read
// concurrently; progress is read once the puzzle and identity are known.
// Observe returns after every source has reported.
func Observe(ctx context.Context, r Readers, sel Selector, sink Sink, logger *zap.Logger) {
	var (
		wg    sync.WaitGroup
		ps    PuzzleState
		ident Identity
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		ps = ReadPuzzle(ctx, r.Puzzles, sel)
		if ps.Err != nil {
			logger.Warn("puzzle source failed", zap.Error(ps.Err))
		}
		sink.SetPuzzle(ps)
	}()
	go func() {
		defer wg.Done()
		id, err := r.Identity.Identity(ctx)
		if err != nil {
			logger.Warn("identity source failed, continuing signed out", zap.Error(err))
		}
		ident = id
		sink.SetAuth(AuthState{Identity: id})
	}()
	go func() {
		defer wg.Done()
		st, err := ReadSession(r.Session)
		if err != nil {
			logger.Warn("session buffer unreadable, starting empty", zap.Error(err))
		}
		sink.SetSession(st)
	}()
	wg.Wait()

	if ps.Puzzle == nil {
		// Derivation never reaches the progress rule without a puzzle.
		return
	}
	progress := ReadProgress(ctx, r.Progress, ident, ps.Puzzle.ID)
	if progress.Err != nil {
		logger.Warn("progress source failed",
			zap.String("puzzle_id", ps.Puzzle.ID),
			zap.Error(progress.Err),
		)
	}
	sink.SetProgress(progress)
}
