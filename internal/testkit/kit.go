package testkit

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"cellsanity/domain/telemetry"
)

// Kit builds synthetic telemetry fixtures with known plausibility properties.
// All generation is driven by a fixed seed so fixtures reproduce exactly.
type Kit struct {
	rng *rand.Rand
}

// New creates a test kit with a deterministic seed.
func New(seed int64) *Kit {
	return &Kit{rng: rand.New(rand.NewSource(seed))}
}

// DischargeCycle generates one clean discharge partition: strictly increasing
// time index, strictly dropping voltage, roughly constant current, and a
// capacity reading only on the final sample.
func (k *Kit) DischargeCycle(cellID string, cycleIndex, n int, capacity float64) []telemetry.Sample {
	samples := make([]telemetry.Sample, n)
	voltage := 4.2
	for i := 0; i < n; i++ {
		voltage -= 0.01 + k.rng.Float64()*0.01
		cap := math.NaN()
		if i == n-1 {
			cap = capacity
		}
		samples[i] = telemetry.Sample{
			CellID:      cellID,
			CycleIndex:  cycleIndex,
			TimeIndex:   i,
			Op:          telemetry.OpDischarge,
			Current:     -2.0 + k.rng.Float64()*0.02,
			Voltage:     voltage,
			Temperature: 24.0 + k.rng.Float64()*2.0,
			Capacity:    cap,
		}
	}
	return samples
}

// Fleet generates a multi-cell dataset whose capacity fades monotonically
// with cycle index, which drives the trend indicator toward -1.
func (k *Kit) Fleet(cells, cyclesPerCell, samplesPerCycle int) []telemetry.Sample {
	var out []telemetry.Sample
	for c := 0; c < cells; c++ {
		cellID := cellName(c)
		for cyc := 0; cyc < cyclesPerCell; cyc++ {
			capacity := 1.85 - 0.004*float64(cyc)
			out = append(out, k.DischargeCycle(cellID, cyc, samplesPerCycle, capacity)...)
		}
	}
	return out
}

// ImpedanceRows generates rows with the requested number of non-positive Re
// and Rct entries placed at the front.
func (k *Kit) ImpedanceRows(cellID string, n, reNonPos, rctNonPos int) []telemetry.ImpedanceRow {
	rows := make([]telemetry.ImpedanceRow, n)
	for i := range rows {
		re := 0.04 + k.rng.Float64()*0.02
		rct := 0.06 + k.rng.Float64()*0.03
		if i < reNonPos {
			re = -re
		}
		if i < rctNonPos {
			rct = 0
		}
		rows[i] = telemetry.ImpedanceRow{CellID: cellID, Re: re, Rct: rct}
	}
	return rows
}

func cellName(i int) string {
	return "B" + string(rune('0'+(i/10)%10)) + string(rune('0'+i%10)) + "29"
}

// MemoryLedger is an in-memory RunLedger for tests.
type MemoryLedger struct {
	mu        sync.Mutex
	Runs      []telemetry.RunEvidence
	Summaries map[string][]telemetry.CellSummary
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{Summaries: make(map[string][]telemetry.CellSummary)}
}

// RecordRun appends the run and keeps its summaries keyed by run id.
func (m *MemoryLedger) RecordRun(_ context.Context, run telemetry.RunEvidence, summaries []telemetry.CellSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Runs = append(m.Runs, run)
	m.Summaries[run.RunID] = append([]telemetry.CellSummary(nil), summaries...)
	return nil
}
