package telemetry

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// OpType enumerates the operation a telemetry sample was recorded under.
type OpType string

const (
	OpCharge    OpType = "charge"
	OpDischarge OpType = "discharge"
	OpImpedance OpType = "impedance"
	OpOther     OpType = "other"
)

// ParseOpType maps a raw operation_type cell to an OpType. Unknown labels
// collapse to OpOther rather than failing the load.
func ParseOpType(s string) OpType {
	switch s {
	case "charge":
		return OpCharge
	case "discharge":
		return OpDischarge
	case "impedance":
		return OpImpedance
	default:
		return OpOther
	}
}

// Sample is one telemetry reading. Immutable once loaded. Capacity is NaN for
// samples that carry no capacity reading.
type Sample struct {
	CellID      string
	CycleIndex  int
	TimeIndex   int
	Op          OpType
	Current     float64
	Voltage     float64
	Temperature float64
	Capacity    float64
}

// CycleKey identifies one (cell, cycle) pair.
type CycleKey struct {
	CellID     string
	CycleIndex int
}

func (k CycleKey) String() string {
	return fmt.Sprintf("%s/%d", k.CellID, k.CycleIndex)
}

// Less orders keys lexicographically by (cell id, cycle index).
func (k CycleKey) Less(other CycleKey) bool {
	if k.CellID != other.CellID {
		return k.CellID < other.CellID
	}
	return k.CycleIndex < other.CycleIndex
}

// CyclePartition holds the samples of one (cell, cycle) pair for a single
// operation type. Partitions are non-empty by construction: a key with no
// matching samples is simply never materialized.
type CyclePartition struct {
	Key     CycleKey
	Samples []Sample
}

// SortedByTime returns a copy of the partition's samples ordered by time
// index ascending. Storage order inside a partition is unspecified, so
// consumers that care about step order must go through here.
func (p CyclePartition) SortedByTime() []Sample {
	out := make([]Sample, len(p.Samples))
	copy(out, p.Samples)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TimeIndex < out[j].TimeIndex
	})
	return out
}

// CycleStats is the fixed-shape reduction of one discharge partition.
// Statistics that are undefined for the partition carry a NaN sentinel;
// callers must treat the sentinel as "insufficient data", never as a
// comparable numeric value and never as zero.
type CycleStats struct {
	CellID       string
	CycleIndex   int
	SampleCount  int
	CurrentMean  float64
	CurrentStd   float64 // sample (n-1) std; NaN when n < 2
	VoltMonoFrac float64 // fraction of strictly negative dV steps; NaN when n < 2
	TempMin      float64
	TempMax      float64
	MaxCapacity  float64 // max over non-NaN capacities; NaN when none present
}

// ImpedanceRow is one impedance-sweep measurement. Re and Rct are expected
// strictly positive by physical plausibility; the schema does not enforce it.
type ImpedanceRow struct {
	CellID string
	Re     float64
	Rct    float64
}

// GlobalCounts are dataset-wide counters. They are broadcast verbatim into
// every CellSummary row for reporting convenience.
type GlobalCounts struct {
	DischargeSamples int `json:"discharge_samples"`
	DischargeCycles  int `json:"unique_discharge_cycles"`
	TimeViolations   int `json:"time_monotonicity_violations_all_cells"`
	ImpedanceRows    int `json:"impedance_rows"`
	ReNonPositive    int `json:"re_nonpos_count"`
	RctNonPositive   int `json:"rct_nonpos_count"`
}

// CellSummary folds one cell's CycleStats into a single row.
type CellSummary struct {
	CellID            string
	DischargeCycles   int
	CurrentMeanA      float64
	CurrentStdMedianA float64
	VoltMonoFracMean  float64
	TempMinMeanC      float64
	TempMaxMeanC      float64

	// CapacityTrend is a Spearman-style association between cycle index and
	// max discharge capacity. It is a sanity-check heuristic only and must
	// never be consumed as a statistical result.
	CapacityTrend float64

	// Dataset-wide counters, identical in every row.
	TimeViolations int
	ReNonPositive  int
	RctNonPositive int
	ImpedanceRows  int
}

// RunEvidence is the compact structured record written for one validation
// run, capturing the dataset-wide counts and artifact paths.
type RunEvidence struct {
	RunID            string       `json:"run_id" db:"run_id"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	InputFingerprint string       `json:"input_fingerprint,omitempty" db:"input_fingerprint"`
	Global           GlobalCounts `json:"global"`
	RepCell          string       `json:"rep_cell" db:"rep_cell"`
	RepCycleIndex    int          `json:"rep_cycle_index" db:"rep_cycle_index"`
	RepCycleSamples  int          `json:"rep_cycle_samples" db:"rep_cycle_samples"`
	SummaryCSVPath   string       `json:"table_summary_csv"`
	SummaryXLSXPath  string       `json:"table_summary_xlsx,omitempty"`
	CapacityFigPath  string       `json:"fig_capacity,omitempty"`
	DischargeFigPath string       `json:"fig_discharge,omitempty"`
	ReportPath       string       `json:"report_md,omitempty"`
}

// IsMissing reports whether v is the undefined-statistic sentinel.
func IsMissing(v float64) bool { return math.IsNaN(v) }
