package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ratings_dashboard/internal/domain"
)

// Queries is the read side the reports need; *app.QueryService satisfies it.
type Queries interface {
	Dataset(ctx context.Context) (domain.Dataset, error)
	MonthlyRatings(ctx context.Context) (domain.MonthlySeries, error)
	Flagged(ctx context.Context, from, to *time.Time) (domain.FlaggedPage, error)
}

// Factory builds the query side for a data directory and its file patterns.
type Factory func(dir string, patterns []string) Queries

// Options contain configuration for the CLI
type Options struct {
	NewQueries Factory
	Output     io.Writer
	Dir        string
	Patterns   []string
}

// CLI represents the command-line interface
type CLI struct {
	newQueries Factory
	reporter   *Reporter
	rootCmd    *cobra.Command

	dir      string
	patterns []string
}

func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	cli := &CLI{
		newQueries: opts.NewQueries,
		reporter:   NewReporter(opts.Output),
	}
	cli.rootCmd = cli.newRootCmd(opts)
	return cli
}

func (cli *CLI) Execute(ctx context.Context) error {
	return cli.rootCmd.ExecuteContext(ctx)
}

func (cli *CLI) newRootCmd(opts Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ratings-report",
		Short:         "Brand rating reports from deduped review exports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(opts.Output)

	cmd.PersistentFlags().StringVar(&cli.dir, "dir", opts.Dir, "Directory holding the review exports")
	cmd.PersistentFlags().StringSliceVar(&cli.patterns, "pattern", opts.Patterns, "Glob pattern(s) selecting export files")

	cmd.AddCommand(cli.newMonthlyCmd(), cli.newFlaggedCmd(), cli.newFilesCmd())
	return cmd
}

func (cli *CLI) queries() Queries { return cli.newQueries(cli.dir, cli.patterns) }

func (cli *CLI) newMonthlyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monthly",
		Short: "Monthly average rating per brand, gaps carried forward",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := cli.queries().MonthlyRatings(cmd.Context())
			if errors.Is(err, domain.ErrEmptyDataset) {
				return cli.reporter.Message(MsgNoData)
			}
			if err != nil {
				return fmt.Errorf("monthly ratings: %w", err)
			}
			return cli.reporter.Monthly(s)
		},
	}
}

func (cli *CLI) newFlaggedCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "flagged",
		Short: "Reviews flagged for management",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseDay("from", from)
			if err != nil {
				return err
			}
			t, err := parseDay("to", to)
			if err != nil {
				return err
			}
			page, err := cli.queries().Flagged(cmd.Context(), f, t)
			if errors.Is(err, domain.ErrFeatureUnavailable) {
				return cli.reporter.Message(MsgNoFlagColumn)
			}
			if err != nil {
				return fmt.Errorf("flagged reviews: %w", err)
			}
			return cli.reporter.Flagged(page)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "First day to show (YYYY-MM-DD); defaults to the earliest flagged day")
	cmd.Flags().StringVar(&to, "to", "", "Last day to show (YYYY-MM-DD); defaults to the latest flagged day")
	return cmd
}

func (cli *CLI) newFilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "Per-file load outcome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := cli.queries().Dataset(cmd.Context())
			if err != nil {
				return fmt.Errorf("load dataset: %w", err)
			}
			if len(ds.Files) == 0 {
				return cli.reporter.Message(MsgNoData)
			}
			return cli.reporter.Files(ds)
		},
	}
}

func parseDay(flag, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w: %q is not a YYYY-MM-DD date", flag, domain.ErrInvalidRange, v)
	}
	return &t, nil
}
