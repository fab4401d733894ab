package derive

import (
	"slices"
	"sync"

	"github.com/roach88/yeardle/internal/sources"
)

// Board keeps the latest observation of every source and the GameState
// derived from it. It implements sources.Sink.
//
// Thread-safety: all methods are safe for concurrent use. Derive runs under
// the mutex so published states follow the order observations arrived in.
type Board struct {
	mu    sync.Mutex
	snap  Snapshot
	state GameState
	subs  []chan GameState
}

// NewBoard creates a board with every source still loading.
func NewBoard() *Board {
	snap := Initial()
	return &Board{snap: snap, state: DeriveSnapshot(snap)}
}

// SetPuzzle records a puzzle observation.
func (b *Board) SetPuzzle(p sources.PuzzleState) {
	b.update(func(s *Snapshot) { s.Puzzle = p })
}

// SetAuth records an identity observation. The session buffer is kept, so
// signing out and back in recovers it. A progress record read for another
// user stays in the snapshot but Derive no longer merges it.
func (b *Board) SetAuth(a sources.AuthState) {
	b.update(func(s *Snapshot) { s.Auth = a })
}

// SetProgress records a play-record observation.
func (b *Board) SetProgress(p sources.ProgressState) {
	b.update(func(s *Snapshot) { s.Progress = p })
}

// SetSession records a session-buffer observation.
func (b *Board) SetSession(st sources.SessionState) {
	b.update(func(s *Snapshot) { s.Session = st })
}

// State returns the current derived state.
func (b *Board) State() GameState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot returns a copy of the current observations.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snap
}

// Subscribe returns a channel that receives the current state immediately
// and every subsequent state. Delivery is latest-wins: a slow reader sees
// the newest state, not every intermediate one. Call the returned function
// to unsubscribe.
func (b *Board) Subscribe() (<-chan GameState, func()) {
	ch := make(chan GameState, 1)

	b.mu.Lock()
	ch <- b.state
	b.subs = append(b.subs, ch)
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if i := slices.Index(b.subs, ch); i >= 0 {
			b.subs = slices.Delete(b.subs, i, i+1)
			close(ch)
		}
	}
}

func (b *Board) update(mutate func(*Snapshot)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	mutate(&b.snap)
	b.state = DeriveSnapshot(b.snap)

	for _, ch := range b.subs {
		publish(ch, b.state)
	}
}

// publish replaces any unread state in ch with st.
func publish(ch chan GameState, st GameState) {
	select {
	case <-ch:
	default:
	}
	ch <- st
}
