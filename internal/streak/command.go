// Package streak decides what a finished daily game does to a player's
// day-streak.
//
// Decisions are expressed as a closed set of commands rather than a bare
// integer. A numeric result cannot tell "reset to zero" apart from "nothing
// to do", and the store must act very differently on each.
//
// Everything in this package is pure: Decide, Apply, Classify and
// MergeAnonymous take values and return values, so callers can run them
// inside whatever transaction they already hold.
package streak

import (
	"encoding/json"

	"github.com/roach88/yeardle/internal/day"
)

// Kind names a command variant.
type Kind string

const (
	KindNoChange   Kind = "no-change"
	KindIncrement  Kind = "increment"
	KindReset      Kind = "reset"
	KindInitialize Kind = "initialize"
)

// Reason records why a command was issued.
type Reason string

const (
	ReasonLoss              Reason = "loss"
	ReasonFirstWin          Reason = "first-win"
	ReasonConsecutiveDayWin Reason = "consecutive-day-win"
	ReasonRestartAfterGap   Reason = "restart-after-gap"
)

// Command is a sealed interface. Only NoChange, Increment, Reset and
// Initialize implement it.
type Command interface {
	Kind() Kind
	command()
}

// NoChange leaves streak state untouched.
type NoChange struct{}

// Increment extends a streak by one consecutive day.
type Increment struct {
	NewStreak int
	Date      day.Day
	Reason    Reason
}

// Reset zeroes the current streak and stamps the date of the loss.
type Reset struct {
	Date   day.Day
	Reason Reason
}

// Initialize starts a fresh streak of one.
type Initialize struct {
	Date   day.Day
	Reason Reason
}

func (NoChange) Kind() Kind   { return KindNoChange }
func (Increment) Kind() Kind  { return KindIncrement }
func (Reset) Kind() Kind      { return KindReset }
func (Initialize) Kind() Kind { return KindInitialize }

func (NoChange) command()   {}
func (Increment) command()  {}
func (Reset) command()      {}
func (Initialize) command() {}

// wireCommand is the JSON shape shared by all variants.
type wireCommand struct {
	Kind      Kind    `json:"kind"`
	NewStreak int     `json:"new_streak,omitempty"`
	Date      day.Day `json:"date,omitzero"`
	Reason    Reason  `json:"reason,omitempty"`
}

func (NoChange) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireCommand{Kind: KindNoChange})
}

func (c Increment) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireCommand{Kind: KindIncrement, NewStreak: c.NewStreak, Date: c.Date, Reason: c.Reason})
}

func (c Reset) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireCommand{Kind: KindReset, Date: c.Date, Reason: c.Reason})
}

func (c Initialize) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireCommand{Kind: KindInitialize, NewStreak: 1, Date: c.Date, Reason: c.Reason})
}

// CommandDate returns the date a command stamps, or the zero Day for NoChange.
func CommandDate(cmd Command) day.Day {
	switch c := cmd.(type) {
	case Increment:
		return c.Date
	case Reset:
		return c.Date
	case Initialize:
		return c.Date
	default:
		return day.Day{}
	}
}

// CommandReason returns the reason attached to a command, if any.
func CommandReason(cmd Command) Reason {
	switch c := cmd.(type) {
	case Increment:
		return c.Reason
	case Reset:
		return c.Reason
	case Initialize:
		return c.Reason
	default:
		return ""
	}
}
