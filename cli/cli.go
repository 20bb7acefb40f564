/*
Package cli implements the revenue command-line tool.

COMMANDS:
  report   Build schedules for a deal book and print the revenue report
  import   Replace the deals in a SQLite database with a deal file

DEAL SOURCES:
  --deals FILE   JSON array of deals (see factory/deal.go)
  --db PATH      SQLite database written by the server or by import

  report reads --deals when given, otherwise --db.

SETTINGS:
  Defaults come from config.Load (file via --config, REVENUE_* environment).
  --decay, --mode and --workers override them.

EXAMPLES:
  revenue report --deals book.json --decay 0.25 --from 2018-01 --to 2018-12
  revenue report --db revenue.db --cutoff 2018-09
  revenue import --deals book.json --db revenue.db
*/
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/warp/revenue-engine/config"
	"github.com/warp/revenue-engine/deals"
	"github.com/warp/revenue-engine/deals/store"
	"github.com/warp/revenue-engine/factory"
	"github.com/warp/revenue-engine/generic"
	"github.com/warp/revenue-engine/report"
	"github.com/warp/revenue-engine/store/sqlite"
)

// CLI represents the command-line interface
type CLI struct {
	reporter *report.Reporter
	output   io.Writer
	logs     io.Writer
	rootCmd  *cobra.Command

	configPath string
}

// Options contain configuration for the CLI
type Options struct {
	Output io.Writer
	// Logs receives structured logs. Defaults to stderr.
	Logs io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Logs == nil {
		opts.Logs = os.Stderr
	}

	cli := &CLI{
		reporter: report.NewReporter(opts.Output),
		output:   opts.Output,
		logs:     opts.Logs,
	}
	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

// SetArgs overrides os.Args, for tests.
func (cli *CLI) SetArgs(args []string) {
	cli.rootCmd.SetArgs(args)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "revenue",
		Short:         "Deal revenue schedules and totals",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&cli.configPath, "config", "c", "", "Path to a config file")

	cmd.AddCommand(cli.newReportCmd())
	cmd.AddCommand(cli.newImportCmd())
	return cmd
}

// setup loads config and returns a logger-carrying context.
func (cli *CLI) setup(cmd *cobra.Command) (context.Context, *config.Config, error) {
	cfg, err := config.Load(cli.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := cfg.Logger(cli.logs)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logger.WithContext(ctx), cfg, nil
}

// =============================================================================
// REPORT
// =============================================================================

type reportCmd struct {
	cli       *CLI
	dealsPath string
	dbPath    string
	decay     string
	mode      string
	workers   int
	from      string
	to        string
	cutoff    string
	title     string
}

func (cli *CLI) newReportCmd() *cobra.Command {
	rc := &reportCmd{cli: cli}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print schedules and total monthly revenue for a deal book",
		RunE:  rc.run,
	}
	cmd.Flags().StringVar(&rc.dealsPath, "deals", "", "JSON file with an array of deals")
	cmd.Flags().StringVar(&rc.dbPath, "db", "", "SQLite database to read deals from")
	cmd.Flags().StringVar(&rc.decay, "decay", "", "Yearly decay rate, e.g. 0.2 (overrides config)")
	cmd.Flags().StringVar(&rc.mode, "mode", "", "Decay mode: projected or stated (overrides config)")
	cmd.Flags().IntVar(&rc.workers, "workers", 0, "Parallel schedule builds (overrides config)")
	cmd.Flags().StringVar(&rc.from, "from", "", "First month of the series, YYYY-MM")
	cmd.Flags().StringVar(&rc.to, "to", "", "Last month of the series, YYYY-MM")
	cmd.Flags().StringVar(&rc.cutoff, "cutoff", "", "Reporting month to call out, YYYY-MM")
	cmd.Flags().StringVar(&rc.title, "title", "", "Report title")
	return cmd
}

func (rc *reportCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cfg, err := rc.cli.setup(cmd)
	if err != nil {
		return err
	}
	if rc.decay != "" {
		cfg.Schedule.DecayRate = rc.decay
	}
	if rc.mode != "" {
		cfg.Schedule.Mode = rc.mode
	}
	if rc.workers != 0 {
		cfg.Schedule.Workers = rc.workers
	}
	builder, err := cfg.ScheduleBuilder()
	if err != nil {
		return err
	}

	period, err := generic.ParsePeriod(rc.from, rc.to)
	if err != nil {
		return err
	}
	opts := report.Options{Title: rc.title, Period: period}
	if rc.cutoff != "" {
		m, err := generic.ParseMonth(rc.cutoff)
		if err != nil {
			return err
		}
		opts.Cutoff = &m
	}

	src, err := rc.openStore(ctx)
	if err != nil {
		return err
	}
	defer src.close()

	book, err := src.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list deals: %w", err)
	}

	batch := deals.Process(ctx, book, builder, deals.Options{Workers: cfg.Schedule.Workers})
	zerolog.Ctx(ctx).Info().
		Int("deals", len(book)).
		Int("failed", len(batch.Failed())).
		Msg("schedules built")

	return rc.cli.reporter.Handle(report.Build(batch, builder, opts))
}

type closableStore struct {
	deals.Store
	close func() error
}

func (rc *reportCmd) openStore(ctx context.Context) (closableStore, error) {
	switch {
	case rc.dealsPath != "":
		book, err := readDeals(rc.dealsPath)
		if err != nil {
			return closableStore{}, err
		}
		mem, err := store.NewMemoryWith(ctx, book)
		if err != nil {
			return closableStore{}, err
		}
		return closableStore{Store: mem, close: func() error { return nil }}, nil
	case rc.dbPath != "":
		db, err := sqlite.New(rc.dbPath)
		if err != nil {
			return closableStore{}, fmt.Errorf("failed to open database: %w", err)
		}
		return closableStore{Store: db, close: db.Close}, nil
	default:
		return closableStore{}, fmt.Errorf("one of --deals or --db is required")
	}
}

func readDeals(path string) ([]deals.Deal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read deals file: %w", err)
	}
	return factory.NewDealFactory().ParseDeals(data)
}

// =============================================================================
// IMPORT
// =============================================================================

type importCmd struct {
	cli       *CLI
	dealsPath string
	dbPath    string
}

func (cli *CLI) newImportCmd() *cobra.Command {
	ic := &importCmd{cli: cli}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the deals stored in a SQLite database with a deal file",
		RunE:  ic.run,
	}
	cmd.Flags().StringVar(&ic.dealsPath, "deals", "", "JSON file with an array of deals")
	cmd.Flags().StringVar(&ic.dbPath, "db", "", "SQLite database path (defaults to db.path)")
	_ = cmd.MarkFlagRequired("deals")
	return cmd
}

func (ic *importCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cfg, err := ic.cli.setup(cmd)
	if err != nil {
		return err
	}
	dbPath := ic.dbPath
	if dbPath == "" {
		dbPath = cfg.DB.Path
	}

	book, err := readDeals(ic.dealsPath)
	if err != nil {
		return err
	}

	db, err := sqlite.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.ReplaceAll(ctx, book); err != nil {
		return fmt.Errorf("failed to import deals: %w", err)
	}

	zerolog.Ctx(ctx).Info().Int("deals", len(book)).Str("db", dbPath).Msg("deals imported")
	fmt.Fprintf(ic.cli.output, "imported %d deals into %s\n", len(book), dbPath)
	return nil
}
