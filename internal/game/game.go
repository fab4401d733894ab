// Package game is the only part of the system that mutates shared state.
//
// Service.Submit takes one guess through validation, the optimistic local
// write, the remote write and, when the game ends, the streak engine.
// Service.SignIn reconciles what a device did while signed out with the
// account it signs into. Everything the player sees is still derived: the
// service writes observations into a derive.Board and reads state back out.
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/roach88/yeardle/internal/config"
	"github.com/roach88/yeardle/internal/day"
	"github.com/roach88/yeardle/internal/derive"
	"github.com/roach88/yeardle/internal/observability"
	"github.com/roach88/yeardle/internal/puzzle"
	"github.com/roach88/yeardle/internal/sources"
	"github.com/roach88/yeardle/internal/streak"
)

// Notice codes for outcomes that are not validation failures.
const (
	NoticeNotSynced      puzzle.ErrorCode = "NOT_SYNCED"
	NoticeStreakNotSaved puzzle.ErrorCode = "STREAK_NOT_SAVED"
)

// Notice is the user-facing message left by the last Submit.
type Notice struct {
	Code    puzzle.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// Options configures a Service. Board, Remote and Local are required.
type Options struct {
	Board   *derive.Board
	Remote  Remote
	Local   Local
	Clock   day.Clock
	Logger  *zap.Logger
	Metrics *observability.Collector
	Limits  streak.Limits
	Breaker config.BreakerConfig
}

// Service orchestrates guess submission and sign-in for one player session.
//
// Thread-safety: all methods are safe for concurrent use. At most one
// Submit is in flight at a time; a second concurrent call is rejected, not
// queued.
type Service struct {
	board    *derive.Board
	remote   Remote
	local    Local
	clock    day.Clock
	logger   *zap.Logger
	metrics  *observability.Collector
	limits   streak.Limits
	breaker  *gobreaker.CircuitBreaker
	validate *validator.Validate

	inFlight atomic.Bool

	mu     sync.Mutex
	notice *Notice
}

// New creates a Service. Unset optional fields fall back to the system
// clock, a no-op logger, a private metrics registry and default limits.
func New(opts Options) *Service {
	s := &Service{
		board:    opts.Board,
		remote:   opts.Remote,
		local:    opts.Local,
		clock:    opts.Clock,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		limits:   opts.Limits,
		validate: validator.New(),
	}
	if s.clock == nil {
		s.clock = day.System{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = observability.NewCollector("yeardle")
	}
	if s.limits == (streak.Limits{}) {
		s.limits = streak.DefaultLimits
	}
	breakerCfg := opts.Breaker
	if breakerCfg == (config.BreakerConfig{}) {
		breakerCfg = config.Default().Breaker
	}
	s.breaker = newBreaker("progress", breakerCfg, s.logger, s.metrics)
	return s
}

// Board returns the board the service publishes to.
func (s *Service) Board() *derive.Board {
	return s.board
}

// State is the current derived game state.
func (s *Service) State() derive.GameState {
	return s.board.State()
}

// LastNotice returns the message left by the most recent Submit, or nil if
// it succeeded cleanly.
func (s *Service) LastNotice() *Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notice
}

func (s *Service) setNotice(n *Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = n
}

// Load observes every source for sel and publishes the results to the
// board. Loading today's daily puzzle discards a buffer left over from an
// earlier puzzle.
func (s *Service) Load(ctx context.Context, readers sources.Readers, sel sources.Selector) derive.GameState {
	sources.Observe(ctx, readers, sel, s.board, s.logger)

	snap := s.board.Snapshot()
	if sel.Number == 0 && snap.Puzzle.Puzzle != nil {
		dropped, err := s.local.Rollover(snap.Puzzle.Puzzle.ID)
		if err != nil {
			s.logger.Warn("session rollover failed", zap.Error(err))
		}
		if dropped {
			s.logger.Info("discarded session buffer from a previous puzzle",
				zap.String("puzzle_id", snap.Puzzle.Puzzle.ID))
			s.board.SetSession(sources.SessionState{})
		}
	}
	return s.board.State()
}

// SignOut collapses the board back to the signed-out view. The session
// buffer is untouched, so signing back in recovers it.
func (s *Service) SignOut() {
	s.board.SetAuth(sources.AuthState{Identity: sources.Anonymous})
}

// detached returns a context for remote calls that outlives the caller's: a
// player navigating away must not abort a write already under way.
func detached(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func (s *Service) now() time.Time {
	return s.clock.Now()
}

// wrapRemote annotates a breaker rejection so logs say why no call was made.
func wrapRemote(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: remote unavailable: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
