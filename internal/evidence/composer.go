package evidence

import (
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"cellsanity/domain/telemetry"
	"cellsanity/internal"
	apperrors "cellsanity/internal/errors"
)

// Inputs carries everything the composer packages for one run. Figure paths
// are set by the caller once rendering succeeded; empty paths mean the figure
// was skipped.
type Inputs struct {
	RunID            string
	InputFingerprint string
	Global           telemetry.GlobalCounts
	Summaries        []telemetry.CellSummary
	RepCell          string
	RepCycleIndex    int // -1 when representative selection failed
	RepCycleSamples  int
	CapacityFigPath  string
	DischargeFigPath string
}

// Composer writes the evidence artifacts of one validation run: the per-cell
// summary table (CSV and xlsx), the compact JSON record, and a markdown
// report. Output is deterministic: identical inputs produce byte-identical
// summary tables across reruns.
type Composer struct {
	outDir string
	log    *internal.Logger
}

// NewComposer creates a composer rooted at outDir. Artifacts land in
// outDir/evidence.
func NewComposer(outDir string) *Composer {
	return &Composer{outDir: outDir, log: internal.NewLogger("evidence")}
}

// Compose writes all evidence artifacts and returns the populated run record.
func (c *Composer) Compose(in Inputs) (telemetry.RunEvidence, error) {
	evidenceDir := filepath.Join(c.outDir, "evidence")
	if err := os.MkdirAll(evidenceDir, 0o755); err != nil {
		return telemetry.RunEvidence{}, apperrors.ArtifactError("evidence directory", err)
	}

	csvPath := filepath.Join(evidenceDir, "table_physical_sanity_summary.csv")
	if err := c.writeSummaryCSV(in.Summaries, csvPath); err != nil {
		return telemetry.RunEvidence{}, apperrors.ArtifactError("summary CSV", err)
	}
	c.log.Info("saved evidence: %s", csvPath)

	xlsxPath := filepath.Join(evidenceDir, "table_physical_sanity_summary.xlsx")
	if err := c.writeSummaryXLSX(in.Summaries, xlsxPath); err != nil {
		return telemetry.RunEvidence{}, apperrors.ArtifactError("summary workbook", err)
	}
	c.log.Info("saved evidence: %s", xlsxPath)

	record := telemetry.RunEvidence{
		RunID:            in.RunID,
		CreatedAt:        time.Now().UTC(),
		InputFingerprint: in.InputFingerprint,
		Global:           in.Global,
		RepCell:          in.RepCell,
		RepCycleIndex:    in.RepCycleIndex,
		RepCycleSamples:  in.RepCycleSamples,
		SummaryCSVPath:   csvPath,
		SummaryXLSXPath:  xlsxPath,
		CapacityFigPath:  in.CapacityFigPath,
		DischargeFigPath: in.DischargeFigPath,
	}

	reportPath := filepath.Join(evidenceDir, "report.md")
	if err := c.writeReport(in, reportPath); err != nil {
		return telemetry.RunEvidence{}, apperrors.ArtifactError("markdown report", err)
	}
	record.ReportPath = reportPath
	c.log.Info("saved evidence: %s", reportPath)

	jsonPath := filepath.Join(evidenceDir, "evidence_summary.json")
	if err := writeJSON(jsonPath, record); err != nil {
		return telemetry.RunEvidence{}, apperrors.ArtifactError("evidence JSON", err)
	}
	c.log.Info("saved evidence: %s", jsonPath)

	return record, nil
}

// summaryHeader is the fixed column order of the per-cell summary table.
var summaryHeader = []string{
	"Cell",
	"N_discharge_cycles",
	"I_mean_A",
	"I_std_median_A",
	"V_monotonic_frac_mean",
	"Tmin_mean_C",
	"Tmax_mean_C",
	"capacity_cycle_monotonicity_indicator",
	"TimeMonotonicityViolations_allCells",
	"Re_nonpos_allRows",
	"Rct_nonpos_allRows",
	"Impedance_rows",
}

func summaryRow(s telemetry.CellSummary) []string {
	return []string{
		s.CellID,
		strconv.Itoa(s.DischargeCycles),
		formatFloat(s.CurrentMeanA),
		formatFloat(s.CurrentStdMedianA),
		formatFloat(s.VoltMonoFracMean),
		formatFloat(s.TempMinMeanC),
		formatFloat(s.TempMaxMeanC),
		formatFloat(s.CapacityTrend),
		strconv.Itoa(s.TimeViolations),
		strconv.Itoa(s.ReNonPositive),
		strconv.Itoa(s.RctNonPositive),
		strconv.Itoa(s.ImpedanceRows),
	}
}

func (c *Composer) writeSummaryCSV(summaries []telemetry.CellSummary, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(summaryHeader); err != nil {
		return err
	}
	for _, s := range summaries {
		if err := w.Write(summaryRow(s)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (c *Composer) writeSummaryXLSX(summaries []telemetry.CellSummary, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := make([]interface{}, len(summaryHeader))
	for i, h := range summaryHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, s := range summaries {
		row := summaryRow(s)
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// formatFloat renders a float deterministically. The NaN sentinel prints as
// "NaN" so undefined statistics stay visibly distinct from zero.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
