package day

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	d, err := Parse("2025-10-08")
	require.NoError(t, err)
	assert.Equal(t, "2025-10-08", d.String())
	assert.Equal(t, time.Date(2025, 10, 8, 0, 0, 0, 0, time.UTC), d.Time())
}

func TestParse_Rejects(t *testing.T) {
	cases := []string{
		"",
		"2025-2-05",
		"2025-02-30",
		"2025-13-01",
		"25-10-08",
		"2025-10-08T00:00:00Z",
		" 2025-10-08",
		"2025/10/08",
	}
	for _, s := range cases {
		t.Run(s, func(t *testing.T) {
			_, err := Parse(s)
			assert.Error(t, err)
		})
	}
}

func TestParse_LeapDay(t *testing.T) {
	_, err := Parse("2024-02-29")
	assert.NoError(t, err)

	_, err = Parse("2025-02-29")
	assert.Error(t, err)
}

func TestAddDaysAndSub(t *testing.T) {
	d := MustParse("2025-10-08")

	assert.Equal(t, "2025-10-07", d.AddDays(-1).String())
	assert.Equal(t, "2025-11-01", d.AddDays(24).String())
	assert.Equal(t, "2024-12-31", MustParse("2025-01-01").AddDays(-1).String())

	assert.Equal(t, 3, d.Sub(MustParse("2025-10-05")))
	assert.Equal(t, -1, MustParse("2025-10-07").Sub(d))
	assert.Equal(t, 0, d.Sub(d))
}

func TestSub_AcrossDST(t *testing.T) {
	// UTC has no DST, so day arithmetic stays whole across March/October.
	assert.Equal(t, 1, MustParse("2025-03-31").Sub(MustParse("2025-03-30")))
	assert.Equal(t, 1, MustParse("2025-10-27").Sub(MustParse("2025-10-26")))
}

func TestOf_UsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	local := time.Date(2025, 10, 9, 5, 0, 0, 0, loc)

	assert.Equal(t, "2025-10-08", Of(local).String())
}

func TestOrdering(t *testing.T) {
	a := MustParse("2025-10-07")
	b := MustParse("2025-10-08")

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.After(a))
	assert.True(t, a == MustParse("2025-10-07"))
}

func TestJSON(t *testing.T) {
	type wrapper struct {
		D *Day `json:"d"`
	}

	data, err := json.Marshal(wrapper{D: Ptr(MustParse("2025-10-08"))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2025-10-08"}`, string(data))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2025-01-31"}`), &w))
	require.NotNil(t, w.D)
	assert.Equal(t, "2025-01-31", w.D.String())

	assert.Error(t, json.Unmarshal([]byte(`{"d":"2025-01-32"}`), &w))
}

func TestZero(t *testing.T) {
	var d Day
	assert.True(t, d.IsZero())
	assert.Equal(t, "", d.String())
}
