package main

import (
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"cellsanity/adapters/figures"
	"cellsanity/adapters/postgres"
	"cellsanity/adapters/tabular"
	"cellsanity/app"
	"cellsanity/internal/config"
	"cellsanity/internal/evidence"
	"cellsanity/ports"
	"cellsanity/ui"
)

func main() {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "cellsanity",
		Short: "Physical plausibility validation for battery cycling telemetry",
		Long: `cellsanity runs read-only physical sanity checks over battery cycling
telemetry tables (measurements, impedance, cycles) and exports evidence
artifacts: a per-cell summary table, figures, and a compact JSON record.

It never modifies, interpolates or smooths the source data.`,
	}

	rootCmd.AddCommand(newRunCmd(), newServeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var inputDir, outDir, repCell string
	var workers int
	var noFigures bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the validation pipeline once over the input tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if inputDir != "" {
				cfg.Data.InputDir = inputDir
			}
			if outDir != "" {
				cfg.Output.Dir = outDir
			}
			if repCell != "" {
				cfg.Output.RepCell = repCell
			}
			if workers > 0 {
				cfg.Output.Workers = workers
			}

			reader := tabular.NewReader(
				cfg.Data.CyclesPath(),
				cfg.Data.MeasurementsPath(),
				cfg.Data.ImpedancePath(),
			)
			composer := evidence.NewComposer(cfg.Output.Dir)
			var renderer *figures.Renderer
			if !noFigures {
				renderer = figures.NewRenderer(cfg.Output.Dir)
			}

			ledger, cleanup, err := openLedger(cmd, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			svc := app.NewSanityService(reader, composer, renderer, ledger, cfg.Output.RepCell, cfg.Output.Workers)
			result, err := svc.Run(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("summary: %s\n", result.Evidence.SummaryCSVPath)
			fmt.Printf("cells=%d discharge_cycles=%d time_violations=%d re_nonpos=%d rct_nonpos=%d\n",
				len(result.Summaries),
				result.Global.DischargeCycles,
				result.Global.TimeViolations,
				result.Global.ReNonPositive,
				result.Global.RctNonPositive,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&inputDir, "input-dir", "", "Directory containing the input tables (overrides INPUT_DIR)")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Directory for evidence artifacts (overrides OUT_DIR)")
	cmd.Flags().StringVar(&repCell, "rep-cell", "", "Cell for the representative discharge profile (overrides REP_CELL)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Per-partition reduction parallelism (overrides WORKERS)")
	cmd.Flags().BoolVar(&noFigures, "no-figures", false, "Skip figure rendering")

	return cmd
}

func newServeCmd() *cobra.Command {
	var outDir, port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve previously generated evidence artifacts over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if outDir != "" {
				cfg.Output.Dir = outDir
			}
			if port != "" {
				cfg.Server.Port = port
			}
			return ui.NewServer(cfg.Output.Dir).Listen(cfg.Server.Port)
		},
	}

	cmd.Flags().StringVar(&outDir, "out-dir", "", "Directory holding evidence artifacts (overrides OUT_DIR)")
	cmd.Flags().StringVar(&port, "port", "", "Listen port (overrides PORT)")

	return cmd
}

// openLedger connects the optional run ledger. An unset DATABASE_URL simply
// disables persistence.
func openLedger(cmd *cobra.Command, cfg *config.Config) (ports.RunLedger, func(), error) {
	if cfg.Ledger.DatabaseURL == "" {
		return nil, func() {}, nil
	}

	db, err := sqlx.ConnectContext(cmd.Context(), "postgres", cfg.Ledger.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect run ledger: %w", err)
	}
	repo := postgres.NewRunRepository(db)
	if err := repo.Migrate(cmd.Context()); err != nil {
		db.Close()
		return nil, nil, err
	}
	return repo, func() { db.Close() }, nil
}
