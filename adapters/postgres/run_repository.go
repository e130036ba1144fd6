package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/jmoiron/sqlx"

	"cellsanity/domain/telemetry"
)

// RunRepository persists validation runs and their per-cell summaries.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Migrate creates the ledger tables when they do not exist yet.
func (r *RunRepository) Migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS sanity_runs (
			run_id TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			input_fingerprint TEXT NOT NULL,
			discharge_samples INTEGER NOT NULL,
			discharge_cycles INTEGER NOT NULL,
			time_violations INTEGER NOT NULL,
			impedance_rows INTEGER NOT NULL,
			re_nonpos INTEGER NOT NULL,
			rct_nonpos INTEGER NOT NULL,
			rep_cell TEXT NOT NULL,
			rep_cycle_index INTEGER NOT NULL,
			rep_cycle_samples INTEGER NOT NULL,
			summary_csv TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS sanity_cell_summaries (
			run_id TEXT NOT NULL REFERENCES sanity_runs(run_id) ON DELETE CASCADE,
			cell_id TEXT NOT NULL,
			discharge_cycles INTEGER NOT NULL,
			current_mean_a DOUBLE PRECISION,
			current_std_median_a DOUBLE PRECISION,
			volt_mono_frac_mean DOUBLE PRECISION,
			temp_min_mean_c DOUBLE PRECISION,
			temp_max_mean_c DOUBLE PRECISION,
			capacity_trend DOUBLE PRECISION,
			PRIMARY KEY (run_id, cell_id)
		);`

	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate run ledger schema: %w", err)
	}
	return nil
}

// RecordRun stores one run and its summary rows in a single transaction.
func (r *RunRepository) RecordRun(ctx context.Context, run telemetry.RunEvidence, summaries []telemetry.CellSummary) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin ledger transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sanity_runs (
			run_id, created_at, input_fingerprint,
			discharge_samples, discharge_cycles, time_violations,
			impedance_rows, re_nonpos, rct_nonpos,
			rep_cell, rep_cycle_index, rep_cycle_samples, summary_csv
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		run.RunID,
		run.CreatedAt,
		run.InputFingerprint,
		run.Global.DischargeSamples,
		run.Global.DischargeCycles,
		run.Global.TimeViolations,
		run.Global.ImpedanceRows,
		run.Global.ReNonPositive,
		run.Global.RctNonPositive,
		run.RepCell,
		run.RepCycleIndex,
		run.RepCycleSamples,
		run.SummaryCSVPath,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.RunID, err)
	}

	for _, s := range summaries {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sanity_cell_summaries (
				run_id, cell_id, discharge_cycles,
				current_mean_a, current_std_median_a, volt_mono_frac_mean,
				temp_min_mean_c, temp_max_mean_c, capacity_trend
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			run.RunID,
			s.CellID,
			s.DischargeCycles,
			nullableFloat(s.CurrentMeanA),
			nullableFloat(s.CurrentStdMedianA),
			nullableFloat(s.VoltMonoFracMean),
			nullableFloat(s.TempMinMeanC),
			nullableFloat(s.TempMaxMeanC),
			nullableFloat(s.CapacityTrend),
		)
		if err != nil {
			return fmt.Errorf("failed to insert summary for cell %s: %w", s.CellID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger transaction: %w", err)
	}
	return nil
}

// nullableFloat maps the NaN sentinel to SQL NULL so undefined statistics
// stay distinct from real values in the ledger.
func nullableFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
