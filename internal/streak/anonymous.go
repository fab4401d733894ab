package streak

import (
	"fmt"

	"github.com/roach88/yeardle/internal/day"
	"github.com/roach88/yeardle/internal/puzzle"
)

// AnonymousStreak is the streak a signed-out device tracked for itself.
// Both fields come straight from the client and are untrusted.
type AnonymousStreak struct {
	Streak            int    `json:"streak"`
	LastCompletedDate string `json:"last_completed_date,omitempty"`
}

// Last parses LastCompletedDate, returning nil when it is absent or malformed.
func (a AnonymousStreak) Last() *day.Day {
	if a.LastCompletedDate == "" {
		return nil
	}
	d, err := day.Parse(a.LastCompletedDate)
	if err != nil {
		return nil
	}
	return &d
}

// ApplyAnonymous applies cmd to a device-local streak.
func ApplyAnonymous(a AnonymousStreak, cmd Command) AnonymousStreak {
	switch c := cmd.(type) {
	case Increment:
		return AnonymousStreak{Streak: c.NewStreak, LastCompletedDate: c.Date.String()}
	case Initialize:
		return AnonymousStreak{Streak: 1, LastCompletedDate: c.Date.String()}
	case Reset:
		return AnonymousStreak{Streak: 0, LastCompletedDate: c.Date.String()}
	default:
		return a
	}
}

// Limits bound what an anonymous streak may claim.
type Limits struct {
	WindowDays int // how far back a claimed date may reach
	MaxStreak  int // largest believable streak count
}

// DefaultLimits: 90-day window, 365-day cap.
var DefaultLimits = Limits{WindowDays: 90, MaxStreak: 365}

// ValidateAnonymous bounds-checks an untrusted streak against today.
// It returns the parsed last-completed day on success.
func ValidateAnonymous(a AnonymousStreak, today day.Day, lim Limits) (day.Day, error) {
	if a.Streak < 0 || a.Streak > lim.MaxStreak {
		return day.Day{}, puzzle.NewValidationError(puzzle.CodeInvalidStreak, "streak",
			fmt.Sprintf("streak %d outside 0..%d", a.Streak, lim.MaxStreak))
	}
	last, err := day.Parse(a.LastCompletedDate)
	if err != nil {
		return day.Day{}, puzzle.NewValidationError(puzzle.CodeInvalidDate, "last_completed_date", err.Error())
	}
	if last.After(today) {
		return day.Day{}, puzzle.NewValidationError(puzzle.CodeInvalidDate, "last_completed_date", "date is in the future")
	}
	if today.Sub(last) > lim.WindowDays {
		return day.Day{}, puzzle.NewValidationError(puzzle.CodeInvalidDate, "last_completed_date",
			fmt.Sprintf("date older than %d days", lim.WindowDays))
	}
	if a.Streak > 0 && today.Sub(firstDay(last, a.Streak)) > lim.WindowDays {
		return day.Day{}, puzzle.NewValidationError(puzzle.CodeInvalidStreak, "streak",
			fmt.Sprintf("streak would start more than %d days ago", lim.WindowDays))
	}
	return last, nil
}

// firstDay is the implied start of a streak of count days ending on last.
func firstDay(last day.Day, count int) day.Day {
	return last.AddDays(-(count - 1))
}

// MergeSource tags where a merged streak came from.
type MergeSource string

const (
	SourceCombined  MergeSource = "combined"
	SourceAnonymous MergeSource = "anonymous"
	SourceServer    MergeSource = "server"
)

// MergeResult is the outcome of MergeAnonymous. Rejected is set when the
// anonymous data failed validation or the merge itself failed; User is then
// the server state unchanged.
type MergeResult struct {
	User     puzzle.User
	Source   MergeSource
	Rejected error
}

// Changed reports whether the merge produced something other than the
// server's own state.
func (r MergeResult) Changed() bool {
	return r.Rejected == nil && r.Source != SourceServer
}

// MergeAnonymous reconciles a device-local streak with the server's streak
// at sign-in. It never fails: invalid input or an internal fault yields the
// server state, tagged SourceServer, with the cause in Rejected.
//
// Contiguous streaks (server's last day is the day before the anonymous
// streak began) are summed. Otherwise the larger streak wins, and on a tie
// the one completed more recently.
func MergeAnonymous(server puzzle.User, anon AnonymousStreak, today day.Day, lim Limits) MergeResult {
	return safeMerge(mergeAnonymous, server, anon, today, lim)
}

type mergeFunc func(server puzzle.User, anon AnonymousStreak, today day.Day, lim Limits) MergeResult

// safeMerge runs fn, turning a panic into a rejected merge that keeps the
// server state.
func safeMerge(fn mergeFunc, server puzzle.User, anon AnonymousStreak, today day.Day, lim Limits) (res MergeResult) {
	defer func() {
		if r := recover(); r != nil {
			res = MergeResult{User: server, Source: SourceServer, Rejected: fmt.Errorf("merge anonymous streak: %v", r)}
		}
	}()
	return fn(server, anon, today, lim)
}

func mergeAnonymous(server puzzle.User, anon AnonymousStreak, today day.Day, lim Limits) (res MergeResult) {
	last, err := ValidateAnonymous(anon, today, lim)
	if err != nil {
		return MergeResult{User: server, Source: SourceServer, Rejected: err}
	}
	if anon.Streak == 0 {
		return MergeResult{User: server, Source: SourceServer}
	}

	merged := server
	first := firstDay(last, anon.Streak)

	switch {
	case server.LastCompletedDate != nil && server.LastCompletedDate.AddDays(1) == first:
		merged.CurrentStreak = server.CurrentStreak + anon.Streak
		merged.LastCompletedDate = day.Ptr(later(*server.LastCompletedDate, last))
		res.Source = SourceCombined
	case anon.Streak > server.CurrentStreak:
		merged.CurrentStreak = anon.Streak
		merged.LastCompletedDate = day.Ptr(last)
		res.Source = SourceAnonymous
	case anon.Streak == server.CurrentStreak && moreRecent(last, server.LastCompletedDate):
		merged.LastCompletedDate = day.Ptr(last)
		res.Source = SourceAnonymous
	default:
		res.Source = SourceServer
	}

	merged.LongestStreak = max(merged.LongestStreak, merged.CurrentStreak)
	res.User = merged
	return res
}

func later(a, b day.Day) day.Day {
	if a.After(b) {
		return a
	}
	return b
}

// moreRecent reports whether d is strictly later than other (absent counts
// as earliest).
func moreRecent(d day.Day, other *day.Day) bool {
	return other == nil || d.After(*other)
}
