package ports

import (
	"context"

	"cellsanity/domain/telemetry"
)

// RunLedger persists run-level evidence for traceability. Persistence is an
// optional add-on: the validation core never reads a ledger back, so a run is
// valid with or without one.
type RunLedger interface {
	// RecordRun stores one run's evidence record and its per-cell summary
	// rows.
	RecordRun(ctx context.Context, run telemetry.RunEvidence, summaries []telemetry.CellSummary) error
}
