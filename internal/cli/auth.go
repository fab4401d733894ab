package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/yeardle/internal/puzzle"
	"github.com/roach88/yeardle/internal/sources"
)

// SignInOptions holds flags for the signin command.
type SignInOptions struct {
	*RootOptions
	Subject string
	UserID  string
}

// NewSignInCommand creates the signin command.
func NewSignInCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SignInOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in and sync this device",
		Long: `Sign in to an account, creating it if needed.

Guesses made on this device while signed out are saved to the account, and
the offline streak is merged with the account's streak. Omit --user-id to
create a new account.

Example:
  yeardle signin --subject user_2abc
  yeardle signin --subject user_2abc --user-id 0192f3a0-7c1e-7b2a-9c3d-1e2f3a4b5c6d`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(opts.RootOptions, cmd, func(ctx context.Context, a *app) error {
				return runSignIn(ctx, a, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Subject, "subject", "", "identity-provider subject (required)")
	cmd.Flags().StringVar(&opts.UserID, "user-id", "", "existing account id (default: new account)")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

func runSignIn(ctx context.Context, a *app, opts *SignInOptions) error {
	uid := opts.UserID
	if uid == "" {
		uid = a.ids.Generate()
	}
	uid, err := puzzle.ParseID(uid)
	if err != nil {
		return a.out.Fail(ExitCommandError, CodeIdentity, err)
	}

	token, err := sources.IssueToken(a.cfg.JWT.Secret, a.cfg.JWT.Issuer, opts.Subject, uid, a.clock.Now(), a.cfg.JWT.TTL)
	if err != nil {
		return a.out.Fail(ExitCommandError, CodeIdentity, err)
	}
	if err := a.local.SetToken(token); err != nil {
		return a.out.Fail(ExitCommandError, CodeStorage, err)
	}

	// Load first so the board holds today's puzzle when progress migrates.
	a.load(ctx, 0)
	report, err := a.service.SignIn(ctx, sources.Identity{UserID: uid, IsAuthenticated: true})
	if err != nil {
		return a.out.Fail(ExitCommandError, CodeStorage, err)
	}
	return a.out.Success(signInView{SignInReport: report, Token: token})
}

// NewSignOutCommand creates the signout command.
func NewSignOutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "signout",
		Short:         "Sign out of this device",
		Long:          "Forget the session token. Guesses kept on this device are not removed.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(rootOpts, cmd, func(ctx context.Context, a *app) error {
				if err := a.local.SetToken(""); err != nil {
					return a.out.Fail(ExitCommandError, CodeStorage, err)
				}
				a.service.SignOut()
				return a.out.Success(messageView{Message: "Signed out"})
			})
		},
	}
}

// NewStreakCommand creates the streak command.
func NewStreakCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "streak",
		Short: "Show your streak",
		Long: `Show the current and longest streak with the history of changes.

Signed out, this shows the streak tracked on this device.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(rootOpts, cmd, runStreak)
		},
	}
}

func runStreak(ctx context.Context, a *app) error {
	anon, err := a.local.AnonymousStreak()
	if err != nil {
		a.out.VerboseLog("anonymous streak unreadable: %v", err)
	}
	view := streakView{Anonymous: anon}

	uid, ok := a.signedIn(ctx)
	if !ok {
		return a.out.Success(view)
	}

	u, replayed, err := a.store.RepairStreak(ctx, uid)
	if err != nil {
		return a.out.Fail(ExitCommandError, CodeStorage, err)
	}
	history, err := a.store.History(ctx, uid)
	if err != nil {
		return a.out.Fail(ExitCommandError, CodeStorage, err)
	}
	view.SignedIn, view.User, view.Replayed, view.History = true, &u, replayed, history
	return a.out.Success(view)
}
