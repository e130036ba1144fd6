package summary

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"cellsanity/domain/telemetry"
	"cellsanity/internal/rankcorr"
)

// Aggregator folds per-cycle statistics into one summary row per cell.
type Aggregator struct{}

// NewAggregator creates a new summary aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Summarize produces one row per cell, sorted by cell id. Per-cycle NaN
// sentinels are excluded from every mean and median here, never coerced to
// zero; a column with no defined value at all stays NaN. The dataset-wide
// counters in global are copied verbatim into every row - they are global
// despite living in a per-cell table, which is intentional for reporting.
func (a *Aggregator) Summarize(cycleStats []telemetry.CycleStats, global telemetry.GlobalCounts) []telemetry.CellSummary {
	byCell := make(map[string][]telemetry.CycleStats)
	cells := make([]string, 0)
	for _, cs := range cycleStats {
		if _, seen := byCell[cs.CellID]; !seen {
			cells = append(cells, cs.CellID)
		}
		byCell[cs.CellID] = append(byCell[cs.CellID], cs)
	}
	sort.Strings(cells)

	out := make([]telemetry.CellSummary, 0, len(cells))
	for _, cell := range cells {
		sub := byCell[cell]
		sort.Slice(sub, func(i, j int) bool { return sub[i].CycleIndex < sub[j].CycleIndex })

		n := len(sub)
		cycleIdx := make([]float64, n)
		capMax := make([]float64, n)
		currentMeans := make([]float64, n)
		currentStds := make([]float64, n)
		monoFracs := make([]float64, n)
		tempMins := make([]float64, n)
		tempMaxs := make([]float64, n)
		distinct := make(map[int]struct{}, n)
		for i, cs := range sub {
			cycleIdx[i] = float64(cs.CycleIndex)
			capMax[i] = cs.MaxCapacity
			currentMeans[i] = cs.CurrentMean
			currentStds[i] = cs.CurrentStd
			monoFracs[i] = cs.VoltMonoFrac
			tempMins[i] = cs.TempMin
			tempMaxs[i] = cs.TempMax
			distinct[cs.CycleIndex] = struct{}{}
		}

		out = append(out, telemetry.CellSummary{
			CellID:            cell,
			DischargeCycles:   len(distinct),
			CurrentMeanA:      meanDefined(currentMeans),
			CurrentStdMedianA: medianDefined(currentStds),
			VoltMonoFracMean:  meanDefined(monoFracs),
			TempMinMeanC:      meanDefined(tempMins),
			TempMaxMeanC:      meanDefined(tempMaxs),
			CapacityTrend:     rankcorr.Indicator(cycleIdx, capMax),
			TimeViolations:    global.TimeViolations,
			ReNonPositive:     global.ReNonPositive,
			RctNonPositive:    global.RctNonPositive,
			ImpedanceRows:     global.ImpedanceRows,
		})
	}
	return out
}

// meanDefined averages the defined values only.
func meanDefined(vals []float64) float64 {
	def := defined(vals)
	if len(def) == 0 {
		return math.NaN()
	}
	m, err := stats.Mean(def)
	if err != nil {
		return math.NaN()
	}
	return m
}

// medianDefined takes the median of the defined values only. The median is
// used for per-cycle current stds because short partitions produce NaN stds
// and the occasional outlier would skew a mean.
func medianDefined(vals []float64) float64 {
	def := defined(vals)
	if len(def) == 0 {
		return math.NaN()
	}
	m, err := stats.Median(def)
	if err != nil {
		return math.NaN()
	}
	return m
}

func defined(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
