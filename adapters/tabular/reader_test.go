package tabular

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "cellsanity/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write fixture %s: %v", name, err)
	}
	return path
}

const cyclesCSV = "cell_id,cycle_index,ambient_temp\nB0029,1,24\nB0029,2,24\n"

const measurementsCSV = `cell_id,cycle_index,t_index,operation_type,Current_measured,Voltage_measured,Temperature_measured,Capacity
B0029,1,0,discharge,-2.01,4.2,24.1,
B0029,1,1,discharge,-1.99,4.1,24.3,
B0029,1,2,discharge,-2.0,4.0,24.6,1.82
B0029,1,0,charge,1.5,3.9,24.0,
`

const impedanceCSV = "cell_id,Re,Rct\nB0029,0.05,0.07\nB0029,-0.01,0.06\n"

func writeDataset(t *testing.T, dir string) *Reader {
	t.Helper()
	cycles := writeFile(t, dir, "cycles_raw.csv", cyclesCSV)
	meas := writeFile(t, dir, "measurements_raw.csv", measurementsCSV)
	imp := writeFile(t, dir, "impedance_raw.csv", impedanceCSV)
	return NewReader(cycles, meas, imp)
}

// TestLoad_ParsesAllTables verifies a clean load end to end
func TestLoad_ParsesAllTables(t *testing.T) {
	ds, err := writeDataset(t, t.TempDir()).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if ds.CycleRows != 2 {
		t.Errorf("Expected 2 cycle rows, got %d", ds.CycleRows)
	}
	if len(ds.Measurements) != 4 {
		t.Fatalf("Expected 4 measurement samples, got %d", len(ds.Measurements))
	}
	if len(ds.Impedance) != 2 {
		t.Fatalf("Expected 2 impedance rows, got %d", len(ds.Impedance))
	}
	if ds.Fingerprint.IsEmpty() {
		t.Error("Expected a non-empty input fingerprint")
	}

	s := ds.Measurements[0]
	if s.CellID != "B0029" || s.CycleIndex != 1 || s.TimeIndex != 0 {
		t.Errorf("Unexpected first sample: %+v", s)
	}
	if s.Current != -2.01 || s.Voltage != 4.2 {
		t.Errorf("Unexpected first sample values: %+v", s)
	}
	if ds.Impedance[1].Re != -0.01 {
		t.Errorf("Expected Re -0.01, got %f", ds.Impedance[1].Re)
	}
}

// TestLoad_EmptyCapacityIsMissing verifies empty capacity cells parse to the
// NaN sentinel, not zero
func TestLoad_EmptyCapacityIsMissing(t *testing.T) {
	ds, err := writeDataset(t, t.TempDir()).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !math.IsNaN(ds.Measurements[0].Capacity) {
		t.Errorf("Expected NaN capacity for empty cell, got %f", ds.Measurements[0].Capacity)
	}
	if ds.Measurements[2].Capacity != 1.82 {
		t.Errorf("Expected capacity 1.82 on terminal sample, got %f", ds.Measurements[2].Capacity)
	}
}

// TestLoad_MissingTableIsPreconditionFailure verifies the fatal path reports
// the missing file
func TestLoad_MissingTableIsPreconditionFailure(t *testing.T) {
	dir := t.TempDir()
	cycles := writeFile(t, dir, "cycles_raw.csv", cyclesCSV)
	meas := writeFile(t, dir, "measurements_raw.csv", measurementsCSV)
	missing := filepath.Join(dir, "impedance_raw.csv")

	_, err := NewReader(cycles, meas, missing).Load()
	if err == nil {
		t.Fatal("Expected precondition failure for missing impedance table")
	}
	if apperrors.GetCode(err) != apperrors.CodePreconditionFailed {
		t.Errorf("Expected code %s, got %s", apperrors.CodePreconditionFailed, apperrors.GetCode(err))
	}
	if got := err.Error(); !strings.Contains(got, missing) {
		t.Errorf("Expected error to name the missing path, got %q", got)
	}
}

// TestLoad_MissingColumnFails verifies header validation
func TestLoad_MissingColumnFails(t *testing.T) {
	dir := t.TempDir()
	cycles := writeFile(t, dir, "cycles_raw.csv", cyclesCSV)
	meas := writeFile(t, dir, "measurements_raw.csv", measurementsCSV)
	imp := writeFile(t, dir, "impedance_raw.csv", "cell_id,Re\nB0029,0.05\n")

	_, err := NewReader(cycles, meas, imp).Load()
	if err == nil {
		t.Fatal("Expected failure for missing Rct column")
	}
}

// TestLoad_MalformedNumericCellFails verifies row-level errors carry position
func TestLoad_MalformedNumericCellFails(t *testing.T) {
	dir := t.TempDir()
	cycles := writeFile(t, dir, "cycles_raw.csv", cyclesCSV)
	bad := `cell_id,cycle_index,t_index,operation_type,Current_measured,Voltage_measured,Temperature_measured,Capacity
B0029,1,0,discharge,not-a-number,4.2,24.1,
`
	meas := writeFile(t, dir, "measurements_raw.csv", bad)
	imp := writeFile(t, dir, "impedance_raw.csv", impedanceCSV)

	_, err := NewReader(cycles, meas, imp).Load()
	if err == nil {
		t.Fatal("Expected failure for malformed current cell")
	}
	if !strings.Contains(err.Error(), "row 2") {
		t.Errorf("Expected error to name row 2, got %q", err.Error())
	}
}

// TestLoad_UnknownOperationTypeIsOther verifies op parsing never fails the load
func TestLoad_UnknownOperationTypeIsOther(t *testing.T) {
	dir := t.TempDir()
	cycles := writeFile(t, dir, "cycles_raw.csv", cyclesCSV)
	meas := writeFile(t, dir, "measurements_raw.csv",
		"cell_id,cycle_index,t_index,operation_type,Current_measured,Voltage_measured,Temperature_measured,Capacity\n"+
			"B0029,1,0,rest,0.0,3.9,24.0,\n")
	imp := writeFile(t, dir, "impedance_raw.csv", impedanceCSV)

	ds, err := NewReader(cycles, meas, imp).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := ds.Measurements[0].Op; got != "other" {
		t.Errorf("Expected op type other, got %s", got)
	}
}
