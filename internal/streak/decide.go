package streak

import (
	"github.com/roach88/yeardle/internal/day"
	"github.com/roach88/yeardle/internal/puzzle"
)

// Decide computes the effect a completed daily game has on a streak.
//
// Rules, first match wins:
//  1. last == today: NoChange, whatever the outcome (same-day replay)
//  2. lost: Reset{today, "loss"}
//  3. no previous completion: Initialize{today, "first-win"}
//  4. last == today-1: Increment{current+1, today, "consecutive-day-win"}
//  5. otherwise: Initialize{today, "restart-after-gap"}
//
// Decide is total over valid days. Callers validate date text before calling.
func Decide(lastCompleted *day.Day, currentStreak int, today day.Day, hasWon bool) Command {
	if lastCompleted != nil && *lastCompleted == today {
		return NoChange{}
	}
	if !hasWon {
		return Reset{Date: today, Reason: ReasonLoss}
	}
	if lastCompleted == nil {
		return Initialize{Date: today, Reason: ReasonFirstWin}
	}
	if lastCompleted.AddDays(1) == today {
		return Increment{NewStreak: currentStreak + 1, Date: today, Reason: ReasonConsecutiveDayWin}
	}
	return Initialize{Date: today, Reason: ReasonRestartAfterGap}
}

// Apply returns u with cmd applied. LongestStreak is never lowered.
func Apply(u puzzle.User, cmd Command) puzzle.User {
	switch c := cmd.(type) {
	case Increment:
		u.CurrentStreak = c.NewStreak
		u.LongestStreak = max(u.LongestStreak, c.NewStreak)
		u.LastCompletedDate = day.Ptr(c.Date)
	case Initialize:
		u.CurrentStreak = 1
		u.LongestStreak = max(u.LongestStreak, 1)
		u.LastCompletedDate = day.Ptr(c.Date)
	case Reset:
		u.CurrentStreak = 0
		u.LastCompletedDate = day.Ptr(c.Date)
	}
	return u
}

// Effect classifies a completed puzzle before the streak engine sees it.
type Effect int

const (
	// StreakAffecting: the puzzle is today's daily puzzle.
	StreakAffecting Effect = iota
	// Archive: any other date; never touches a streak.
	Archive
)

func (e Effect) String() string {
	if e == StreakAffecting {
		return "streak-affecting"
	}
	return "archive"
}

// Classify is the business-rule gate in front of Decide. today must be
// captured once per request.
func Classify(puzzleDate, today day.Day) Effect {
	if puzzleDate == today {
		return StreakAffecting
	}
	return Archive
}
