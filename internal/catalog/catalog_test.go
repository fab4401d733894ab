package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/yeardle/internal/day"
	"github.com/roach88/yeardle/internal/puzzle"
	"github.com/roach88/yeardle/internal/store"
	"github.com/roach88/yeardle/internal/testutil"
)

func hints(prefix string) []string {
	return []string{prefix + "1", prefix + "2", prefix + "3", prefix + "4", prefix + "5", prefix + "6"}
}

func newCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New()
	require.NoError(t, err)
	return c
}

func TestAddUpdate(t *testing.T) {
	c := newCatalog(t)

	require.NoError(t, c.Add(1969, hints("moon ")))
	assert.ErrorIs(t, c.Add(1969, hints("again ")), ErrExists)

	require.NoError(t, c.Update(1969, hints("landing ")))
	got, ok := c.Get(1969)
	require.True(t, ok)
	assert.Equal(t, "landing 1", got[0])

	assert.ErrorIs(t, c.Update(1970, hints("x")), ErrMissing)
	_, ok = c.Get(1970)
	assert.False(t, ok)
}

func TestSchemaRejects(t *testing.T) {
	c := newCatalog(t)
	cases := map[string]struct {
		year  int
		hints []string
	}{
		"five hints":     {1969, hints("a")[:5]},
		"seven hints":    {1969, append(hints("a"), "b")},
		"blank hint":     {1969, []string{"a", "b", "c", "d", "e", "   "}},
		"year too large": {10000, hints("a")},
		"year too small": {-10000, hints("a")},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := c.Add(tc.year, tc.hints)
			require.Error(t, err)
			assert.True(t, puzzle.IsValidationError(err))
			assert.Empty(t, c.Years())
		})
	}
}

func TestNormalizesHints(t *testing.T) {
	c := newCatalog(t)
	decomposed := "Cafe\u0301 opens"
	require.NoError(t, c.Add(1900, []string{"  " + decomposed + " ", "b", "c", "d", "e", "f"}))

	got, _ := c.Get(1900)
	assert.Equal(t, "Caf\u00e9 opens", got[0])
}

func TestYearsSortNumerically(t *testing.T) {
	c := newCatalog(t)
	for _, y := range []int{2000, -44, 5, 1066} {
		require.NoError(t, c.Add(y, hints("h")))
	}
	assert.Equal(t, []int{-44, 5, 1066, 2000}, c.Years())
	assert.Equal(t, Meta{TotalPuzzles: 4, DateRange: "-44-2000"}, c.Meta())
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "puzzles.json")
	c := newCatalog(t)
	require.NoError(t, c.Add(1969, hints("AT&T ")))
	require.NoError(t, c.Add(-44, hints("Caesar ")))
	require.NoError(t, c.Save(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "catalog", raw)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c.Years(), loaded.Years())
	got, _ := loaded.Get(-44)
	assert.Equal(t, hints("Caesar "), got)
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Empty(t, c.Years())
	assert.Equal(t, Meta{}, c.Meta())
}

func TestParseRejectsBadDocuments(t *testing.T) {
	_, err := Parse([]byte(`{"puzzles": {"nineteen": ["a","b","c","d","e","f"]}}`))
	assert.True(t, puzzle.IsValidationError(err))

	_, err = Parse([]byte(`{"puzzles": {"1969": ["a"]}}`))
	assert.True(t, puzzle.IsValidationError(err))

	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewFixedClock("2025-10-08")
	st, err := store.Open(filepath.Join(t.TempDir(), "pub.db"), store.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	c := newCatalog(t)
	require.NoError(t, c.Add(1969, hints("moon ")))
	require.NoError(t, c.Add(1989, hints("wall ")))
	ids := puzzle.NewFixedGenerator("pz-1", "pz-2", "pz-3")

	p, err := c.Publish(ctx, st, ids, 1969, day.MustParse("2025-10-08"))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, "pz-1", p.ID)

	p, err = c.Publish(ctx, st, ids, 1989, day.MustParse("2025-10-09"))
	require.NoError(t, err)
	assert.Equal(t, 2, p.Number)

	stored, err := st.DailyPuzzle(ctx, day.MustParse("2025-10-09"))
	require.NoError(t, err)
	assert.Equal(t, 1989, stored.TargetYear)
	assert.Equal(t, hints("wall "), stored.Events)

	_, err = c.Publish(ctx, st, ids, 1989, day.MustParse("2025-10-09"))
	assert.True(t, puzzle.IsValidationError(err))

	_, err = c.Publish(ctx, st, ids, 2001, day.MustParse("2025-10-10"))
	assert.ErrorIs(t, err, ErrMissing)
}
