package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/yeardle/internal/puzzle"
	"github.com/roach88/yeardle/internal/testutil"
)

const testUserID = "0192f3a0-7c1e-7b2a-9c3d-1e2f3a4b5c6d"

var moonHints = []string{
	"Woodstock draws 400,000 to a dairy farm",
	"The first ATM opens in London",
	"Concorde makes its maiden flight",
	"Sesame Street premieres",
	"ARPANET sends its first message",
	"Apollo 11 lands on the Moon",
}

type cliHarness struct {
	t     *testing.T
	clock *testutil.FixedClock
	ids   puzzle.IDGenerator
}

// newCLIHarness points every path at a temp dir and pins the clock to
// noon UTC on 2025-10-08.
func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("YEARDLE_ENV", "test")
	t.Setenv("YEARDLE_LOG_LEVEL", "error")
	t.Setenv("YEARDLE_DB", filepath.Join(dir, "data", "yeardle.db"))
	t.Setenv("YEARDLE_SESSION", filepath.Join(dir, "session.json"))
	t.Setenv("YEARDLE_CATALOG", filepath.Join(dir, "puzzles.json"))
	t.Setenv("YEARDLE_JWT_SECRET", "test-secret")

	return &cliHarness{
		t:     t,
		clock: testutil.NewFixedClock("2025-10-08"),
		ids:   puzzle.NewFixedGenerator("pz-1", "pz-2", "pz-3"),
	}
}

func (h *cliHarness) run(args ...string) (string, error) {
	h.t.Helper()
	cmd := newRootCommand(&RootOptions{Clock: h.clock, IDs: h.ids})
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func (h *cliHarness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "output: %s", out)
	return out
}

func (h *cliHarness) runJSON(args ...string) (map[string]any, error) {
	h.t.Helper()
	out, err := h.run(append(args, "--format", "json")...)
	var resp CLIResponse
	require.NoError(h.t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	data, _ := resp.Data.(map[string]any)
	return data, err
}

func hintArgs(hints []string) []string {
	var args []string
	for _, h := range hints {
		args = append(args, "--hint", h)
	}
	return args
}

func (h *cliHarness) publishMoon() {
	h.t.Helper()
	h.mustRun(append([]string{"puzzle", "add", "--year", "1969"}, hintArgs(moonHints)...)...)
	h.mustRun("puzzle", "publish", "--year", "1969", "--date", "2025-10-08")
}

func TestPuzzleCommands(t *testing.T) {
	h := newCLIHarness(t)

	out := h.mustRun(append([]string{"puzzle", "add", "--year", "1969"}, hintArgs(moonHints)...)...)
	assert.Contains(t, out, "Successfully added year 1969")

	_, err := h.run(append([]string{"puzzle", "add", "--year", "1969"}, hintArgs(moonHints)...)...)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = h.run(append([]string{"puzzle", "add", "--year", "1970"}, hintArgs(moonHints[:5])...)...)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = h.run(append([]string{"puzzle", "update", "--year", "1971"}, hintArgs(moonHints)...)...)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out = h.mustRun("puzzle", "publish", "--year", "1969", "--date", "2025-10-08")
	assert.Contains(t, out, "Published puzzle #1 for 2025-10-08")

	_, err = h.run("puzzle", "publish", "--year", "1969", "--date", "2025-10-08")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = h.run("puzzle", "publish", "--year", "1969", "--date", "10/08/2025")
	assert.Error(t, err)

	out = h.mustRun("puzzle", "list")
	assert.Contains(t, out, "#1  2025-10-08  1969")

	out = h.mustRun("puzzle", "list", "--catalog")
	assert.Contains(t, out, "1 puzzle(s) in catalog, 1969-1969")
}

func TestStateWithoutPuzzle(t *testing.T) {
	h := newCLIHarness(t)
	out := h.mustRun("state")
	assert.Contains(t, out, "No puzzle available: puzzle-not-found")
}

func TestPlayFlow(t *testing.T) {
	h := newCLIHarness(t)
	h.publishMoon()

	out := h.mustRun("state")
	assert.Contains(t, out, "Puzzle #1 (2025-10-08)")
	assert.Contains(t, out, "1. Woodstock draws 400,000 to a dairy farm")
	assert.NotContains(t, out, "2. The first ATM")
	assert.Contains(t, out, "Remaining: 6")

	out = h.mustRun("guess", "1950")
	assert.Contains(t, out, "Guesses: 1950")
	assert.Contains(t, out, "2. The first ATM")

	out, err := h.run("guess", "1950")
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "you already guessed that year")

	_, err = h.run("guess", "nineteen")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out = h.mustRun("signin", "--subject", "user_2abc", "--user-id", testUserID)
	assert.Contains(t, out, "Signed in as "+testUserID)
	assert.Contains(t, out, "Saved this device's guesses to your account")

	data, err := h.runJSON("guess", "1969")
	require.NoError(t, err)
	assert.Equal(t, true, data["accepted"])
	state := data["state"].(map[string]any)
	assert.Equal(t, true, state["has_won"])
	assert.Equal(t, []any{1950.0, 1969.0}, state["guesses"])
	assert.Equal(t, 1969.0, state["target_year"])

	data, err = h.runJSON("streak")
	require.NoError(t, err)
	assert.Equal(t, true, data["signed_in"])
	user := data["user"].(map[string]any)
	assert.Equal(t, 1.0, user["current_streak"])
	assert.Len(t, data["history"], 1)

	out = h.mustRun("signout")
	assert.Contains(t, out, "Signed out")

	out = h.mustRun("streak")
	assert.Contains(t, out, "Streak (this device): 0")
}

func TestMetricsTextfile(t *testing.T) {
	h := newCLIHarness(t)
	h.publishMoon()
	path := filepath.Join(t.TempDir(), "metrics", "yeardle.prom")
	t.Setenv("YEARDLE_METRICS", path)

	h.mustRun("guess", "1950")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `yeardle_guesses_submitted_total{outcome="local"} 1`)
}

func TestAnonymousStreakMergesAtSignIn(t *testing.T) {
	h := newCLIHarness(t)
	h.publishMoon()

	out := h.mustRun("guess", "1969")
	assert.Contains(t, out, "Solved in 1!")

	out = h.mustRun("streak")
	assert.Contains(t, out, "Streak (this device): 1, last played 2025-10-08")

	out = h.mustRun("signin", "--subject", "user_2abc", "--user-id", testUserID)
	assert.Contains(t, out, "Merged your offline streak")
	assert.Contains(t, out, "Streak: 1 (best 1)")

	// The device streak was consumed; signing in again adds nothing.
	h.mustRun("signout")
	out = h.mustRun("signin", "--subject", "user_2abc", "--user-id", testUserID)
	assert.Contains(t, out, "Streak: 1 (best 1)")
	assert.NotContains(t, out, "Merged")
}

func TestSignInRejectsProviderID(t *testing.T) {
	h := newCLIHarness(t)
	_, err := h.run("signin", "--subject", "user_2abc", "--user-id", "user_2abc")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
