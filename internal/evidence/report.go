package evidence

import (
	"fmt"
	"os"
	"strings"
)

// writeReport renders the run as a markdown report. The report repeats the
// summary table and the dataset-wide counters for human review; the CSV and
// JSON artifacts remain the machine-readable outputs.
func (c *Composer) writeReport(in Inputs, path string) error {
	var b strings.Builder

	b.WriteString("# Physical sanity check report\n\n")
	b.WriteString("Read-only inspection of battery cycling telemetry. No data was modified,\n")
	b.WriteString("interpolated or smoothed by this run.\n\n")
	fmt.Fprintf(&b, "Run `%s`", in.RunID)
	if in.InputFingerprint != "" {
		fmt.Fprintf(&b, ", input fingerprint `%s`", in.InputFingerprint)
	}
	b.WriteString("\n\n")

	b.WriteString("## Dataset-wide counters\n\n")
	fmt.Fprintf(&b, "| Counter | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Discharge samples | %d |\n", in.Global.DischargeSamples)
	fmt.Fprintf(&b, "| Unique discharge cycles | %d |\n", in.Global.DischargeCycles)
	fmt.Fprintf(&b, "| Cycles with non-increasing t_index | %d |\n", in.Global.TimeViolations)
	fmt.Fprintf(&b, "| Impedance rows | %d |\n", in.Global.ImpedanceRows)
	fmt.Fprintf(&b, "| Re <= 0 rows | %d |\n", in.Global.ReNonPositive)
	fmt.Fprintf(&b, "| Rct <= 0 rows | %d |\n", in.Global.RctNonPositive)
	b.WriteString("\n")

	b.WriteString("## Per-cell summary\n\n")
	b.WriteString("| " + strings.Join(summaryHeader, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat("---|", len(summaryHeader)) + "\n")
	for _, s := range in.Summaries {
		b.WriteString("| " + strings.Join(summaryRow(s), " | ") + " |\n")
	}
	b.WriteString("\n")
	b.WriteString("`capacity_cycle_monotonicity_indicator` is a sanity-check heuristic only.\n")
	b.WriteString("It is not a statistical result and must not be used for quantitative\n")
	b.WriteString("inference. `NaN` marks statistics undefined for lack of data.\n\n")

	b.WriteString("## Representative discharge cycle\n\n")
	if in.RepCycleIndex >= 0 {
		fmt.Fprintf(&b, "Cell `%s`, cycle %d, %d samples.\n", in.RepCell, in.RepCycleIndex, in.RepCycleSamples)
	} else {
		fmt.Fprintf(&b, "No discharge samples found for requested cell `%s`; profile figure skipped.\n", in.RepCell)
	}
	b.WriteString("\n")

	if in.CapacityFigPath != "" || in.DischargeFigPath != "" {
		b.WriteString("## Figures\n\n")
		if in.CapacityFigPath != "" {
			fmt.Fprintf(&b, "- Capacity vs cycle index: `%s`\n", in.CapacityFigPath)
		}
		if in.DischargeFigPath != "" {
			fmt.Fprintf(&b, "- Representative discharge profile: `%s`\n", in.DischargeFigPath)
		}
	}

	return os.WriteFile(path, []byte(b.String()), 0o644)
}
