package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/yeardle/internal/catalog"
	"github.com/roach88/yeardle/internal/day"
	"github.com/roach88/yeardle/internal/puzzle"
)

// CatalogOptions holds flags for the puzzle subcommands.
type CatalogOptions struct {
	*RootOptions
	Year    int
	Hints   []string
	Date    string
	Catalog bool
}

// NewPuzzleCommand creates the puzzle command group.
func NewPuzzleCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "puzzle",
		Short: "Manage the puzzle catalog and schedule",
		Long: `Edit the catalog of candidate years and publish them as daily puzzles.

The catalog path comes from config (catalog) or YEARDLE_CATALOG.`,
	}

	cmd.AddCommand(newPuzzleEditCommand(rootOpts, "add", "added", "Add a new year with its hints", (*catalog.Catalog).Add))
	cmd.AddCommand(newPuzzleEditCommand(rootOpts, "update", "updated", "Replace the hints of an existing year", (*catalog.Catalog).Update))
	cmd.AddCommand(newPuzzlePublishCommand(rootOpts))
	cmd.AddCommand(newPuzzleListCommand(rootOpts))

	return cmd
}

func newPuzzleEditCommand(rootOpts *RootOptions, use, done, short string, edit func(*catalog.Catalog, int, []string) error) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `. Exactly six hints are required, in reveal order.

Example:
  yeardle puzzle ` + use + ` --year 1969 \
    --hint "Woodstock draws 400,000 to a dairy farm" --hint ... (six in total)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(opts.RootOptions, cmd, func(ctx context.Context, a *app) error {
				c, err := catalog.Load(a.cfg.CatalogPath)
				if err != nil {
					return a.out.Fail(ExitCommandError, CodeCatalog, err)
				}
				if err := edit(c, opts.Year, opts.Hints); err != nil {
					return a.out.Fail(catalogExitCode(err), CodeCatalog, err)
				}
				if err := c.Save(a.cfg.CatalogPath); err != nil {
					return a.out.Fail(ExitCommandError, CodeCatalog, err)
				}
				return a.out.Success(messageView{Message: fmt.Sprintf("Successfully %s year %d", done, opts.Year)})
			})
		},
	}

	cmd.Flags().IntVar(&opts.Year, "year", 0, "the year (negative for BC) (required)")
	cmd.Flags().StringArrayVar(&opts.Hints, "hint", nil, "a hint; repeat six times in reveal order (required)")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("hint")

	return cmd
}

func newPuzzlePublishCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a catalog year as the puzzle for a date",
		Long: `Publish a catalog year as the daily puzzle for a date. The puzzle gets the
next sequential number.

Example:
  yeardle puzzle publish --year 1969 --date 2025-10-08`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(opts.RootOptions, cmd, func(ctx context.Context, a *app) error {
				d, err := day.Parse(opts.Date)
				if err != nil {
					return a.out.Fail(ExitCommandError, CodeCatalog, err)
				}
				c, err := catalog.Load(a.cfg.CatalogPath)
				if err != nil {
					return a.out.Fail(ExitCommandError, CodeCatalog, err)
				}
				p, err := c.Publish(ctx, a.store, a.ids, opts.Year, d)
				if err != nil {
					return a.out.Fail(catalogExitCode(err), CodeCatalog, err)
				}
				return a.out.Success(messageView{Message: fmt.Sprintf("Published puzzle #%d for %s", p.Number, p.Date)})
			})
		},
	}

	cmd.Flags().IntVar(&opts.Year, "year", 0, "catalog year to publish (required)")
	cmd.Flags().StringVar(&opts.Date, "date", "", "puzzle date, YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

func newPuzzleListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List published puzzles, or catalog years with --catalog",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(opts.RootOptions, cmd, func(ctx context.Context, a *app) error {
				if opts.Catalog {
					c, err := catalog.Load(a.cfg.CatalogPath)
					if err != nil {
						return a.out.Fail(ExitCommandError, CodeCatalog, err)
					}
					meta := c.Meta()
					return a.out.Success(catalogView{Years: c.Years(), Total: meta.TotalPuzzles, Range: meta.DateRange})
				}
				puzzles, err := a.store.ListPuzzles(ctx)
				if err != nil {
					return a.out.Fail(ExitCommandError, CodeStorage, err)
				}
				return a.out.Success(puzzleListView{Puzzles: puzzles})
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Catalog, "catalog", false, "list catalog years instead of published puzzles")

	return cmd
}

// catalogExitCode separates operator mistakes from environment failures.
func catalogExitCode(err error) int {
	if errors.Is(err, catalog.ErrExists) || errors.Is(err, catalog.ErrMissing) || puzzle.IsValidationError(err) {
		return ExitFailure
	}
	return ExitCommandError
}
