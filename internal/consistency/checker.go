package consistency

import (
	"cellsanity/domain/telemetry"
)

// Checker runs the read-only plausibility scans over discharge partitions and
// impedance rows. Violations are data, not program errors: the scans never
// alter what they inspect and never fail on a "true" violation.
type Checker struct{}

// NewChecker creates a new consistency checker
func NewChecker() *Checker {
	return &Checker{}
}

// TimeViolations counts the partitions whose time index fails to strictly
// increase. The count is partition-level: a partition with one bad step and a
// partition with many both contribute exactly 1.
func (c *Checker) TimeViolations(parts []telemetry.CyclePartition) int {
	violations := 0
	for _, p := range parts {
		ordered := p.SortedByTime()
		for i := 1; i < len(ordered); i++ {
			if ordered[i].TimeIndex-ordered[i-1].TimeIndex <= 0 {
				violations++
				break
			}
		}
	}
	return violations
}

// ImpedanceCounts counts rows with non-positive Re and, independently, rows
// with non-positive Rct over the full row set. A row failing both plausibility
// bounds counts toward both counters.
func (c *Checker) ImpedanceCounts(rows []telemetry.ImpedanceRow) (reNonPos, rctNonPos int) {
	for _, r := range rows {
		if r.Re <= 0 {
			reNonPos++
		}
		if r.Rct <= 0 {
			rctNonPos++
		}
	}
	return reNonPos, rctNonPos
}
