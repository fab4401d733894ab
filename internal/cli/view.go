package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/yeardle/internal/derive"
	"github.com/roach88/yeardle/internal/game"
	"github.com/roach88/yeardle/internal/puzzle"
	"github.com/roach88/yeardle/internal/store"
	"github.com/roach88/yeardle/internal/streak"
)

// stateView renders a GameState. JSON output is the state's own encoding.
type stateView struct {
	state derive.GameState
}

func (v stateView) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.state)
}

func (v stateView) String() string {
	switch st := v.state.(type) {
	case derive.Ready:
		return renderReady(st)
	case derive.Error:
		return "No puzzle available: " + st.Reason
	default:
		return "Loading (" + string(st.Kind()) + ")"
	}
}

func renderReady(r derive.Ready) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Puzzle #%d (%s)\n", r.Puzzle.Number, r.Puzzle.Date)
	for i, hint := range r.Puzzle.Events[:r.RevealedHints()] {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, hint)
	}

	guesses := make([]string, len(r.Guesses))
	for i, g := range r.Guesses {
		guesses[i] = strconv.Itoa(g)
	}
	if len(guesses) == 0 {
		guesses = []string{"none"}
	}
	fmt.Fprintf(&b, "Guesses: %s\n", strings.Join(guesses, ", "))

	switch {
	case r.HasWon:
		fmt.Fprintf(&b, "Solved in %d! The year was %d.", len(r.Guesses), r.Puzzle.TargetYear)
	case r.IsComplete:
		fmt.Fprintf(&b, "Out of guesses. The year was %d.", r.Puzzle.TargetYear)
	default:
		fmt.Fprintf(&b, "Remaining: %d", r.RemainingGuesses)
	}
	return b.String()
}

// guessView is the result of one submission.
type guessView struct {
	Accepted bool             `json:"accepted"`
	Notice   *game.Notice     `json:"notice,omitempty"`
	State    derive.GameState `json:"state"`
}

func (v guessView) String() string {
	s := stateView{v.State}.String()
	if v.Notice != nil {
		s += "\nNote: " + v.Notice.Message
	}
	return s
}

type signInView struct {
	game.SignInReport
	Token string `json:"token"`
}

func (v signInView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Signed in as %s\n", v.User.ID)
	if v.Replayed > 0 {
		fmt.Fprintf(&b, "Recovered %d completed puzzle(s) missing from your streak\n", v.Replayed)
	}
	switch v.Migration {
	case store.MigrateCopied, store.MigrateReplaced:
		b.WriteString("Saved this device's guesses to your account\n")
	}
	switch {
	case v.MergeError != "":
		fmt.Fprintf(&b, "Offline streak not merged: %s\n", v.MergeError)
	case v.Merge == streak.SourceCombined || v.Merge == streak.SourceAnonymous:
		b.WriteString("Merged your offline streak\n")
	}
	fmt.Fprintf(&b, "Streak: %d (best %d)", v.User.CurrentStreak, v.User.LongestStreak)
	return b.String()
}

type streakView struct {
	SignedIn  bool                   `json:"signed_in"`
	User      *puzzle.User           `json:"user,omitempty"`
	Replayed  int                    `json:"replayed,omitempty"`
	History   []store.StreakEvent    `json:"history,omitempty"`
	Anonymous streak.AnonymousStreak `json:"anonymous"`
}

func (v streakView) String() string {
	if !v.SignedIn || v.User == nil {
		s := fmt.Sprintf("Streak (this device): %d", v.Anonymous.Streak)
		if v.Anonymous.LastCompletedDate != "" {
			s += ", last played " + v.Anonymous.LastCompletedDate
		}
		return s
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Streak: %d (best %d)", v.User.CurrentStreak, v.User.LongestStreak)
	if v.User.LastCompletedDate != nil {
		fmt.Fprintf(&b, ", last played %s", v.User.LastCompletedDate)
	}
	for _, e := range v.History {
		date := "-"
		if e.Date != nil {
			date = e.Date.String()
		}
		fmt.Fprintf(&b, "\n  #%d %s %s %s -> %d", e.Seq, date, e.Kind, e.Reason, e.CurrentStreak)
	}
	return b.String()
}

type messageView struct {
	Message string `json:"message"`
}

func (v messageView) String() string { return v.Message }

type puzzleListView struct {
	Puzzles []puzzle.Puzzle `json:"puzzles"`
}

func (v puzzleListView) String() string {
	if len(v.Puzzles) == 0 {
		return "No puzzles published"
	}
	lines := make([]string, len(v.Puzzles))
	for i, p := range v.Puzzles {
		lines[i] = fmt.Sprintf("#%d  %s  %d", p.Number, p.Date, p.TargetYear)
	}
	return strings.Join(lines, "\n")
}

type catalogView struct {
	Years []int  `json:"years"`
	Total int    `json:"total_puzzles"`
	Range string `json:"date_range"`
}

func (v catalogView) String() string {
	if v.Total == 0 {
		return "Catalog is empty"
	}
	return fmt.Sprintf("%d puzzle(s) in catalog, %s", v.Total, v.Range)
}
