package evidence

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cellsanity/domain/telemetry"
)

func testInputs() Inputs {
	return Inputs{
		RunID:            "run-1",
		InputFingerprint: "aabbcc",
		Global: telemetry.GlobalCounts{
			DischargeSamples: 400,
			DischargeCycles:  20,
			TimeViolations:   1,
			ImpedanceRows:    60,
			ReNonPositive:    1,
			RctNonPositive:   0,
		},
		Summaries: []telemetry.CellSummary{
			{
				CellID:            "B0029",
				DischargeCycles:   20,
				CurrentMeanA:      -1.9987,
				CurrentStdMedianA: 0.0213,
				VoltMonoFracMean:  0.97,
				TempMinMeanC:      23.8,
				TempMaxMeanC:      31.2,
				CapacityTrend:     -0.98,
				TimeViolations:    1,
				ReNonPositive:     1,
				RctNonPositive:    0,
				ImpedanceRows:     60,
			},
		},
		RepCell:         "B0029",
		RepCycleIndex:   1,
		RepCycleSamples: 20,
	}
}

// TestCompose_WritesAllArtifacts verifies the artifact set of one run
func TestCompose_WritesAllArtifacts(t *testing.T) {
	dir := t.TempDir()

	record, err := NewComposer(dir).Compose(testInputs())
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	for _, p := range []string{
		record.SummaryCSVPath,
		record.SummaryXLSXPath,
		record.ReportPath,
		filepath.Join(dir, "evidence", "evidence_summary.json"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("Expected artifact %s: %v", p, err)
		}
	}
}

// TestCompose_SummaryCSVShape verifies header and row content
func TestCompose_SummaryCSVShape(t *testing.T) {
	dir := t.TempDir()

	record, err := NewComposer(dir).Compose(testInputs())
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	f, err := os.Open(record.SummaryCSVPath)
	if err != nil {
		t.Fatalf("Failed to open summary CSV: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse summary CSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected header + 1 row, got %d rows", len(rows))
	}
	if rows[0][0] != "Cell" || rows[0][7] != "capacity_cycle_monotonicity_indicator" {
		t.Errorf("Unexpected header: %v", rows[0])
	}
	if rows[1][0] != "B0029" {
		t.Errorf("Expected cell B0029, got %s", rows[1][0])
	}
	if rows[1][8] != "1" {
		t.Errorf("Expected time violation count 1, got %s", rows[1][8])
	}
}

// TestCompose_NaNRendersAsSentinel verifies undefined statistics print as NaN,
// never zero
func TestCompose_NaNRendersAsSentinel(t *testing.T) {
	dir := t.TempDir()
	in := testInputs()
	in.Summaries[0].CurrentStdMedianA = math.NaN()
	in.Summaries[0].CapacityTrend = math.NaN()

	record, err := NewComposer(dir).Compose(in)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	data, err := os.ReadFile(record.SummaryCSVPath)
	if err != nil {
		t.Fatalf("Failed to read summary CSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	cells := strings.Split(lines[1], ",")
	if cells[3] != "NaN" {
		t.Errorf("Expected NaN for undefined std median, got %q", cells[3])
	}
	if cells[7] != "NaN" {
		t.Errorf("Expected NaN for undefined trend, got %q", cells[7])
	}
}

// TestCompose_DeterministicSummaryTable verifies reruns on identical input
// are byte-identical
func TestCompose_DeterministicSummaryTable(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()

	recA, err := NewComposer(dirA).Compose(testInputs())
	if err != nil {
		t.Fatalf("First compose failed: %v", err)
	}
	recB, err := NewComposer(dirB).Compose(testInputs())
	if err != nil {
		t.Fatalf("Second compose failed: %v", err)
	}

	a, _ := os.ReadFile(recA.SummaryCSVPath)
	b, _ := os.ReadFile(recB.SummaryCSVPath)
	if !bytes.Equal(a, b) {
		t.Error("Summary CSVs differ between identical runs")
	}
}

// TestCompose_EvidenceJSONRoundTrip verifies the compact record content
func TestCompose_EvidenceJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()

	if _, err := NewComposer(dir).Compose(testInputs()); err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "evidence", "evidence_summary.json"))
	if err != nil {
		t.Fatalf("Failed to read evidence JSON: %v", err)
	}
	var rec telemetry.RunEvidence
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("Failed to parse evidence JSON: %v", err)
	}
	if rec.Global.DischargeSamples != 400 {
		t.Errorf("Expected 400 discharge samples, got %d", rec.Global.DischargeSamples)
	}
	if rec.RepCell != "B0029" || rec.RepCycleIndex != 1 {
		t.Errorf("Unexpected representative cycle: %s/%d", rec.RepCell, rec.RepCycleIndex)
	}
}

// TestCompose_ReportCarriesHeuristicDisclaimer verifies the indicator is
// labeled as a sanity signal
func TestCompose_ReportCarriesHeuristicDisclaimer(t *testing.T) {
	dir := t.TempDir()

	record, err := NewComposer(dir).Compose(testInputs())
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	data, err := os.ReadFile(record.ReportPath)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	if !strings.Contains(string(data), "sanity-check heuristic") {
		t.Error("Report must label the monotonicity indicator as a sanity-check heuristic")
	}
}
