package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/yeardle/internal/puzzle"
)

// PlayOptions holds flags shared by state and guess.
type PlayOptions struct {
	*RootOptions
	Number int
}

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show the current game",
		Long: `Show today's puzzle with the hints revealed so far and your guesses.

Example:
  yeardle state
  yeardle state --number 12 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(opts.RootOptions, cmd, func(ctx context.Context, a *app) error {
				return a.out.Success(stateView{a.load(ctx, opts.Number)})
			})
		},
	}

	cmd.Flags().IntVar(&opts.Number, "number", 0, "archive puzzle number (default: today's puzzle); while signed out this replaces the device's unsynced guesses")

	return cmd
}

// NewGuessCommand creates the guess command.
func NewGuessCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "guess <year>",
		Short: "Submit a guess",
		Long: `Submit a year for today's puzzle. Negative years are BC.

The guess is saved on this device first. When signed in it is also synced to
your account; if that fails the guess stays visible and syncs on sign-in.

This device holds unsynced guesses for one puzzle at a time. While signed
out, guessing on another puzzle with --number replaces the guesses kept for
the previous one, today's included.

Example:
  yeardle guess 1969
  yeardle guess -- -44`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(opts.RootOptions, cmd, func(ctx context.Context, a *app) error {
				return runGuess(ctx, a, opts, args[0])
			})
		},
	}

	cmd.Flags().IntVar(&opts.Number, "number", 0, "archive puzzle number (default: today's puzzle)")

	return cmd
}

func runGuess(ctx context.Context, a *app, opts *PlayOptions, arg string) error {
	year, err := strconv.Atoi(arg)
	if err != nil {
		return a.out.Fail(ExitCommandError, string(puzzle.CodeInvalidGuess), errInvalidYear(arg))
	}

	a.load(ctx, opts.Number)
	accepted := a.service.Submit(ctx, year)
	view := guessView{Accepted: accepted, Notice: a.service.LastNotice(), State: a.service.State()}

	if err := a.out.Success(view); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	if !accepted {
		msg := "guess not accepted"
		if view.Notice != nil {
			msg = view.Notice.Message
		}
		return NewExitError(ExitFailure, msg)
	}
	return nil
}

func errInvalidYear(arg string) error {
	return puzzle.NewValidationError(puzzle.CodeInvalidGuess, "year", fmt.Sprintf("%q is not a year", arg))
}
