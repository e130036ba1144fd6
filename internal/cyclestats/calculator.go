package cyclestats

import (
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/montanaflynn/stats"

	"cellsanity/domain/telemetry"
)

// Calculator reduces one discharge partition to a CycleStats row. Reductions
// are pure functions over immutable partitions; nothing is shared between
// calls.
type Calculator struct{}

// NewCalculator creates a new cycle statistics calculator
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Compute reduces one partition. Partitions are non-empty by construction,
// so min/max over the partition are always defined; undefined statistics
// (n < 2, or no capacity readings) come back as the NaN sentinel.
func (c *Calculator) Compute(p telemetry.CyclePartition) telemetry.CycleStats {
	ordered := p.SortedByTime()

	currents := make([]float64, len(ordered))
	voltages := make([]float64, len(ordered))
	temps := make([]float64, len(ordered))
	caps := make([]float64, len(ordered))
	for i, s := range ordered {
		currents[i] = s.Current
		voltages[i] = s.Voltage
		temps[i] = s.Temperature
		caps[i] = s.Capacity
	}

	currentMean, _ := stats.Mean(currents)
	currentStd := math.NaN()
	if len(currents) >= 2 {
		if v, err := stats.StandardDeviationSample(currents); err == nil {
			currentStd = v
		}
	}

	tempMin, _ := stats.Min(temps)
	tempMax, _ := stats.Max(temps)

	return telemetry.CycleStats{
		CellID:       p.Key.CellID,
		CycleIndex:   p.Key.CycleIndex,
		SampleCount:  len(ordered),
		CurrentMean:  currentMean,
		CurrentStd:   currentStd,
		VoltMonoFrac: monotonicFraction(voltages),
		TempMin:      tempMin,
		TempMax:      tempMax,
		MaxCapacity:  maxDefined(caps),
	}
}

// ComputeAll reduces every partition. Each reduction is independent of every
// other, so they run on up to workers goroutines; results land at the same
// position as their partition, preserving the set's lexicographic order.
func (c *Calculator) ComputeAll(parts []telemetry.CyclePartition, workers int) []telemetry.CycleStats {
	if workers < 1 {
		workers = 1
	}
	out := make([]telemetry.CycleStats, len(parts))
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i := range parts {
		i := i // per-iteration copy; required while go.mod targets go < 1.22
		g.Go(func() error {
			out[i] = c.Compute(parts[i])
			return nil
		})
	}
	// Reductions cannot fail; Wait only fences the goroutines.
	_ = g.Wait()
	return out
}

// monotonicFraction is the share of consecutive time-ordered steps whose
// voltage difference is strictly negative. Undefined below 2 samples.
func monotonicFraction(v []float64) float64 {
	if len(v) < 2 {
		return math.NaN()
	}
	drops := 0
	for i := 1; i < len(v); i++ {
		if v[i]-v[i-1] < 0 {
			drops++
		}
	}
	return float64(drops) / float64(len(v)-1)
}

// maxDefined is the max over non-NaN values. Missing capacities are excluded
// from the reduction, never treated as zero; all-missing yields the sentinel.
func maxDefined(vals []float64) float64 {
	max := math.NaN()
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(max) || v > max {
			max = v
		}
	}
	return max
}
