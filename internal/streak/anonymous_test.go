package streak

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/yeardle/internal/day"
	"github.com/roach88/yeardle/internal/puzzle"
)

func TestValidateAnonymous(t *testing.T) {
	today := d("2025-10-13")

	tests := []struct {
		name string
		anon AnonymousStreak
		code puzzle.ErrorCode
	}{
		{"ok", AnonymousStreak{Streak: 3, LastCompletedDate: "2025-10-13"}, ""},
		{"zero streak", AnonymousStreak{Streak: 0, LastCompletedDate: "2025-10-01"}, ""},
		{"at window edge", AnonymousStreak{Streak: 1, LastCompletedDate: "2025-07-15"}, ""},
		{"past window", AnonymousStreak{Streak: 1, LastCompletedDate: "2025-07-14"}, puzzle.CodeInvalidDate},
		{"future", AnonymousStreak{Streak: 1, LastCompletedDate: "2025-10-14"}, puzzle.CodeInvalidDate},
		{"malformed", AnonymousStreak{Streak: 1, LastCompletedDate: "2025-10-1"}, puzzle.CodeInvalidDate},
		{"impossible date", AnonymousStreak{Streak: 1, LastCompletedDate: "2025-02-30"}, puzzle.CodeInvalidDate},
		{"missing date", AnonymousStreak{Streak: 1}, puzzle.CodeInvalidDate},
		{"negative", AnonymousStreak{Streak: -1, LastCompletedDate: "2025-10-13"}, puzzle.CodeInvalidStreak},
		{"start outside window", AnonymousStreak{Streak: 92, LastCompletedDate: "2025-10-13"}, puzzle.CodeInvalidStreak},
		{"start inside window", AnonymousStreak{Streak: 91, LastCompletedDate: "2025-10-13"}, ""},
		{"over cap", AnonymousStreak{Streak: 400, LastCompletedDate: "2025-10-13"}, puzzle.CodeInvalidStreak},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateAnonymous(tt.anon, today, DefaultLimits)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			var ve *puzzle.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.code, ve.Code)
		})
	}
}

func TestValidateAnonymous_CapCheckedBeforeDate(t *testing.T) {
	_, err := ValidateAnonymous(AnonymousStreak{Streak: 400, LastCompletedDate: "not-a-date"}, d("2025-10-13"), DefaultLimits)
	require.Error(t, err)

	var ve *puzzle.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "streak", ve.Field)
	assert.Equal(t, puzzle.CodeInvalidStreak, ve.Code)
}

func TestMergeAnonymous_Combined(t *testing.T) {
	server := puzzle.User{ID: "u", CurrentStreak: 4, LongestStreak: 4, LastCompletedDate: day.Ptr(d("2025-10-10"))}
	anon := AnonymousStreak{Streak: 3, LastCompletedDate: "2025-10-13"}

	res := MergeAnonymous(server, anon, d("2025-10-13"), DefaultLimits)

	require.NoError(t, res.Rejected)
	assert.Equal(t, SourceCombined, res.Source)
	assert.Equal(t, 7, res.User.CurrentStreak)
	assert.Equal(t, 7, res.User.LongestStreak)
	assert.Equal(t, "2025-10-13", res.User.LastCompletedDate.String())
	assert.True(t, res.Changed())
}

func TestMergeAnonymous_NotContiguous(t *testing.T) {
	today := d("2025-10-13")

	t.Run("anonymous larger", func(t *testing.T) {
		server := puzzle.User{CurrentStreak: 2, LongestStreak: 10, LastCompletedDate: day.Ptr(d("2025-10-01"))}
		res := MergeAnonymous(server, AnonymousStreak{Streak: 3, LastCompletedDate: "2025-10-13"}, today, DefaultLimits)

		assert.Equal(t, SourceAnonymous, res.Source)
		assert.Equal(t, 3, res.User.CurrentStreak)
		assert.Equal(t, 10, res.User.LongestStreak)
		assert.Equal(t, "2025-10-13", res.User.LastCompletedDate.String())
	})

	t.Run("server larger", func(t *testing.T) {
		server := puzzle.User{CurrentStreak: 8, LongestStreak: 8, LastCompletedDate: day.Ptr(d("2025-10-12"))}
		res := MergeAnonymous(server, AnonymousStreak{Streak: 3, LastCompletedDate: "2025-10-13"}, today, DefaultLimits)

		assert.Equal(t, SourceServer, res.Source)
		assert.Equal(t, server, res.User)
		assert.False(t, res.Changed())
	})

	t.Run("tie prefers more recent anonymous", func(t *testing.T) {
		server := puzzle.User{CurrentStreak: 3, LongestStreak: 3, LastCompletedDate: day.Ptr(d("2025-10-05"))}
		res := MergeAnonymous(server, AnonymousStreak{Streak: 3, LastCompletedDate: "2025-10-13"}, today, DefaultLimits)

		assert.Equal(t, SourceAnonymous, res.Source)
		assert.Equal(t, 3, res.User.CurrentStreak)
		assert.Equal(t, "2025-10-13", res.User.LastCompletedDate.String())
	})

	t.Run("tie prefers more recent server", func(t *testing.T) {
		server := puzzle.User{CurrentStreak: 3, LongestStreak: 3, LastCompletedDate: day.Ptr(d("2025-10-13"))}
		res := MergeAnonymous(server, AnonymousStreak{Streak: 3, LastCompletedDate: "2025-10-12"}, today, DefaultLimits)

		assert.Equal(t, SourceServer, res.Source)
		assert.Equal(t, server, res.User)
	})

	t.Run("server never completed", func(t *testing.T) {
		res := MergeAnonymous(puzzle.User{ID: "u"}, AnonymousStreak{Streak: 2, LastCompletedDate: "2025-10-13"}, today, DefaultLimits)

		assert.Equal(t, SourceAnonymous, res.Source)
		assert.Equal(t, 2, res.User.CurrentStreak)
		assert.Equal(t, 2, res.User.LongestStreak)
	})
}

func TestMergeAnonymous_RejectedFallsBackToServer(t *testing.T) {
	server := puzzle.User{ID: "u", CurrentStreak: 2, LongestStreak: 5, LastCompletedDate: day.Ptr(d("2025-10-12"))}

	res := MergeAnonymous(server, AnonymousStreak{Streak: 400, LastCompletedDate: "2025-10-13"}, d("2025-10-13"), DefaultLimits)

	assert.Error(t, res.Rejected)
	assert.Equal(t, SourceServer, res.Source)
	assert.Equal(t, server, res.User)
	assert.False(t, res.Changed())
}

func TestMergeAnonymous_PanicFallsBackToServer(t *testing.T) {
	server := puzzle.User{ID: "u", CurrentStreak: 2, LongestStreak: 5, LastCompletedDate: day.Ptr(d("2025-10-12"))}
	anon := AnonymousStreak{Streak: 1, LastCompletedDate: "2025-10-13"}
	boom := func(puzzle.User, AnonymousStreak, day.Day, Limits) MergeResult {
		var m map[string]int
		m["streak"]++
		return MergeResult{}
	}

	var res MergeResult
	require.NotPanics(t, func() { res = safeMerge(boom, server, anon, d("2025-10-13"), DefaultLimits) })

	require.Error(t, res.Rejected)
	assert.Contains(t, res.Rejected.Error(), "merge anonymous streak")
	assert.Equal(t, SourceServer, res.Source)
	assert.Equal(t, server, res.User)
	assert.False(t, res.Changed())
}

func TestMergeAnonymous_ZeroStreakIsNoop(t *testing.T) {
	server := puzzle.User{ID: "u", CurrentStreak: 0}
	res := MergeAnonymous(server, AnonymousStreak{Streak: 0, LastCompletedDate: "2025-10-13"}, d("2025-10-13"), DefaultLimits)

	assert.NoError(t, res.Rejected)
	assert.Equal(t, SourceServer, res.Source)
	assert.Equal(t, server, res.User)
}

func TestApplyAnonymous(t *testing.T) {
	a := AnonymousStreak{Streak: 2, LastCompletedDate: "2025-10-07"}

	cmd := Decide(a.Last(), a.Streak, d("2025-10-08"), true)
	got := ApplyAnonymous(a, cmd)
	assert.Equal(t, AnonymousStreak{Streak: 3, LastCompletedDate: "2025-10-08"}, got)

	got = ApplyAnonymous(got, Decide(got.Last(), got.Streak, d("2025-10-09"), false))
	assert.Equal(t, AnonymousStreak{Streak: 0, LastCompletedDate: "2025-10-09"}, got)

	assert.Equal(t, got, ApplyAnonymous(got, NoChange{}))
}

func TestAnonymousLast(t *testing.T) {
	assert.Nil(t, AnonymousStreak{}.Last())
	assert.Nil(t, AnonymousStreak{LastCompletedDate: "garbage"}.Last())
	assert.Equal(t, "2025-10-08", AnonymousStreak{LastCompletedDate: "2025-10-08"}.Last().String())
}
