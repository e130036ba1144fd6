package app

import (
	"context"

	"cellsanity/adapters/figures"
	"cellsanity/adapters/tabular"
	"cellsanity/domain/core"
	"cellsanity/domain/telemetry"
	"cellsanity/internal"
	"cellsanity/internal/consistency"
	"cellsanity/internal/cyclestats"
	"cellsanity/internal/evidence"
	"cellsanity/internal/partition"
	"cellsanity/internal/summary"
	"cellsanity/ports"
)

// SanityService runs the full read-only validation pipeline as one batch pass:
// load, partition, per-cycle reduction, consistency scans, aggregation,
// evidence composition. Re-running it on unchanged input reproduces identical
// summary artifacts.
type SanityService struct {
	reader   *tabular.Reader
	composer *evidence.Composer
	renderer *figures.Renderer
	ledger   ports.RunLedger // nil disables persistence
	log      *internal.Logger

	repCell string
	workers int
}

// NewSanityService wires the pipeline. ledger may be nil.
func NewSanityService(reader *tabular.Reader, composer *evidence.Composer, renderer *figures.Renderer, ledger ports.RunLedger, repCell string, workers int) *SanityService {
	return &SanityService{
		reader:   reader,
		composer: composer,
		renderer: renderer,
		ledger:   ledger,
		log:      internal.NewLogger("sanity"),
		repCell:  repCell,
		workers:  workers,
	}
}

// Result carries everything one run produced.
type Result struct {
	Global     telemetry.GlobalCounts
	CycleStats []telemetry.CycleStats
	Summaries  []telemetry.CellSummary
	Evidence   telemetry.RunEvidence
}

// Run executes the whole pipeline. The only fatal conditions are missing
// input tables, malformed rows, and artifact write failures; plausibility
// violations and undefined statistics are results, not errors.
func (s *SanityService) Run(ctx context.Context) (*Result, error) {
	runID := core.NewRunID().String()
	s.log.Info("run %s starting", runID)

	ds, err := s.reader.Load()
	if err != nil {
		return nil, err
	}

	parts := partition.New(telemetry.OpDischarge).Group(ds.Measurements)
	s.log.Info("discharge samples=%d partitions=%d", parts.SampleCount(), parts.Len())

	calc := cyclestats.NewCalculator()
	cycleStats := calc.ComputeAll(parts.All(), s.workers)

	checker := consistency.NewChecker()
	reNonPos, rctNonPos := checker.ImpedanceCounts(ds.Impedance)
	global := telemetry.GlobalCounts{
		DischargeSamples: parts.SampleCount(),
		DischargeCycles:  parts.Len(),
		TimeViolations:   checker.TimeViolations(parts.All()),
		ImpedanceRows:    len(ds.Impedance),
		ReNonPositive:    reNonPos,
		RctNonPositive:   rctNonPos,
	}

	summaries := summary.NewAggregator().Summarize(cycleStats, global)

	in := evidence.Inputs{
		RunID:            runID,
		InputFingerprint: ds.Fingerprint.String(),
		Global:           global,
		Summaries:        summaries,
		RepCell:          s.repCell,
		RepCycleIndex:    -1,
	}

	if s.renderer != nil {
		capPath, err := s.renderer.CapacityFade(cycleStats)
		if err != nil {
			return nil, err
		}
		in.CapacityFigPath = capPath
	}

	rep, err := summary.RepresentativeCycle(parts, s.repCell)
	if err != nil {
		if !core.IsNotFoundError(err) {
			return nil, err
		}
		// Fatal for the profile artifact only; the rest of the run stands.
		s.log.Error("representative cycle selection failed: %v", err)
	} else {
		in.RepCycleIndex = rep.Key.CycleIndex
		in.RepCycleSamples = len(rep.Samples)
		if s.renderer != nil {
			profPath, err := s.renderer.DischargeProfile(rep)
			if err != nil {
				return nil, err
			}
			in.DischargeFigPath = profPath
		}
	}

	record, err := s.composer.Compose(in)
	if err != nil {
		return nil, err
	}

	if s.ledger != nil {
		if err := s.ledger.RecordRun(ctx, record, summaries); err != nil {
			// The ledger is traceability on top of the artifacts, not a
			// required output; a failed insert does not invalidate the run.
			s.log.Warn("run ledger insert failed: %v", err)
		}
	}

	s.log.Info("run %s complete: cells=%d time_violations=%d re_nonpos=%d rct_nonpos=%d",
		runID, len(summaries), global.TimeViolations, global.ReNonPositive, global.RctNonPositive)

	return &Result{
		Global:     global,
		CycleStats: cycleStats,
		Summaries:  summaries,
		Evidence:   record,
	}, nil
}
