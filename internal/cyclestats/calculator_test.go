package cyclestats

import (
	"math"
	"testing"

	"cellsanity/domain/telemetry"
)

func dischargePartition(cell string, cycle int, voltages []float64) telemetry.CyclePartition {
	samples := make([]telemetry.Sample, len(voltages))
	for i, v := range voltages {
		samples[i] = telemetry.Sample{
			CellID:      cell,
			CycleIndex:  cycle,
			TimeIndex:   i,
			Op:          telemetry.OpDischarge,
			Current:     -2.0,
			Voltage:     v,
			Temperature: 25.0,
			Capacity:    math.NaN(),
		}
	}
	return telemetry.CyclePartition{
		Key:     telemetry.CycleKey{CellID: cell, CycleIndex: cycle},
		Samples: samples,
	}
}

// TestCompute_VoltageMonotonicFraction covers the strictly-dropping example:
// voltages [4.2 4.1 4.05 4.0] have 3 of 3 negative steps
func TestCompute_VoltageMonotonicFraction(t *testing.T) {
	part := dischargePartition("B0029", 1, []float64{4.2, 4.1, 4.05, 4.0})

	cs := NewCalculator().Compute(part)

	if cs.VoltMonoFrac != 1.0 {
		t.Errorf("Expected monotonic fraction 1.0, got %f", cs.VoltMonoFrac)
	}
	if cs.SampleCount != 4 {
		t.Errorf("Expected 4 samples, got %d", cs.SampleCount)
	}
}

// TestCompute_MonotonicFractionPartial verifies mixed-direction steps
func TestCompute_MonotonicFractionPartial(t *testing.T) {
	// Steps: down, up, down -> 2 of 3 strictly negative.
	part := dischargePartition("B0029", 1, []float64{4.2, 4.1, 4.15, 4.0})

	cs := NewCalculator().Compute(part)

	want := 2.0 / 3.0
	if math.Abs(cs.VoltMonoFrac-want) > 1e-12 {
		t.Errorf("Expected monotonic fraction %f, got %f", want, cs.VoltMonoFrac)
	}
}

// TestCompute_SingleSampleSentinels verifies n<2 statistics are NaN, not zero
func TestCompute_SingleSampleSentinels(t *testing.T) {
	part := dischargePartition("B0029", 1, []float64{4.2})

	cs := NewCalculator().Compute(part)

	if !math.IsNaN(cs.CurrentStd) {
		t.Errorf("Expected NaN std for single sample, got %f", cs.CurrentStd)
	}
	if !math.IsNaN(cs.VoltMonoFrac) {
		t.Errorf("Expected NaN monotonic fraction for single sample, got %f", cs.VoltMonoFrac)
	}
	// Min/max remain defined: the partition is non-empty.
	if cs.TempMin != 25.0 || cs.TempMax != 25.0 {
		t.Errorf("Expected temp min/max 25.0, got %f/%f", cs.TempMin, cs.TempMax)
	}
}

// TestCompute_IdenticalSamplesZeroStd verifies constant current gives 0.0, not NaN
func TestCompute_IdenticalSamplesZeroStd(t *testing.T) {
	part := dischargePartition("B0029", 1, []float64{4.2, 4.1, 4.0})

	cs := NewCalculator().Compute(part)

	if cs.CurrentStd != 0.0 {
		t.Errorf("Expected 0.0 std for identical currents, got %f", cs.CurrentStd)
	}
	if cs.CurrentMean != -2.0 {
		t.Errorf("Expected mean current -2.0, got %f", cs.CurrentMean)
	}
}

// TestCompute_SampleStdDenominator verifies the (n-1) denominator
func TestCompute_SampleStdDenominator(t *testing.T) {
	part := dischargePartition("B0029", 1, []float64{4.2, 4.1})
	part.Samples[0].Current = -1.0
	part.Samples[1].Current = -3.0

	cs := NewCalculator().Compute(part)

	// Sample std of {-1, -3}: sqrt(((1)^2 + (-1)^2) / (2-1)) = sqrt(2).
	want := math.Sqrt2
	if math.Abs(cs.CurrentStd-want) > 1e-12 {
		t.Errorf("Expected sample std %f, got %f", want, cs.CurrentStd)
	}
}

// TestCompute_MaxCapacityIgnoresMissing verifies NaN capacities are excluded,
// not coerced to zero
func TestCompute_MaxCapacityIgnoresMissing(t *testing.T) {
	part := dischargePartition("B0029", 1, []float64{4.2, 4.1, 4.0})
	part.Samples[2].Capacity = 1.82

	cs := NewCalculator().Compute(part)

	if cs.MaxCapacity != 1.82 {
		t.Errorf("Expected max capacity 1.82, got %f", cs.MaxCapacity)
	}

	// Negative capacity must still win over the missing-value sentinel.
	part.Samples[2].Capacity = -0.5
	cs = NewCalculator().Compute(part)
	if cs.MaxCapacity != -0.5 {
		t.Errorf("Expected max capacity -0.5, got %f", cs.MaxCapacity)
	}
}

// TestCompute_AllCapacitiesMissing verifies the all-missing sentinel
func TestCompute_AllCapacitiesMissing(t *testing.T) {
	part := dischargePartition("B0029", 1, []float64{4.2, 4.1})

	cs := NewCalculator().Compute(part)

	if !math.IsNaN(cs.MaxCapacity) {
		t.Errorf("Expected NaN max capacity, got %f", cs.MaxCapacity)
	}
}

// TestCompute_UsesTimeOrder verifies statistics follow time order, not
// storage order
func TestCompute_UsesTimeOrder(t *testing.T) {
	part := dischargePartition("B0029", 1, []float64{4.0, 4.1, 4.2})
	// Reverse time so the time-ordered walk sees strictly dropping voltage.
	for i := range part.Samples {
		part.Samples[i].TimeIndex = len(part.Samples) - 1 - i
	}

	cs := NewCalculator().Compute(part)

	if cs.VoltMonoFrac != 1.0 {
		t.Errorf("Expected monotonic fraction 1.0 after time ordering, got %f", cs.VoltMonoFrac)
	}
}

// TestComputeAll_PreservesOrderAcrossWorkers verifies the parallel reduction
// keeps partition order
func TestComputeAll_PreservesOrderAcrossWorkers(t *testing.T) {
	parts := make([]telemetry.CyclePartition, 40)
	for i := range parts {
		parts[i] = dischargePartition("B0029", i, []float64{4.2, 4.1, 4.0})
	}

	for _, workers := range []int{1, 4, 16} {
		out := NewCalculator().ComputeAll(parts, workers)
		if len(out) != len(parts) {
			t.Fatalf("workers=%d: expected %d results, got %d", workers, len(parts), len(out))
		}
		for i, cs := range out {
			if cs.CycleIndex != i {
				t.Errorf("workers=%d: position %d holds cycle %d", workers, i, cs.CycleIndex)
			}
		}
	}
}
