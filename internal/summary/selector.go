package summary

import (
	"cellsanity/domain/core"
	"cellsanity/domain/telemetry"
	"cellsanity/internal/partition"
)

// RepresentativeCycle selects the discharge partition a cell's profile figure
// is drawn from: the smallest cycle index the cell has, with samples ordered
// by time index. A cell with no discharge samples at all is a NotFound
// condition carrying the cell id; that failure is fatal only for the profile
// artifact, not for the rest of the run.
func RepresentativeCycle(set *partition.Set, cellID string) (telemetry.CyclePartition, error) {
	parts := set.ForCell(cellID)
	if len(parts) == 0 {
		return telemetry.CyclePartition{}, core.NewNotFoundError("discharge samples for cell", cellID)
	}
	// ForCell returns cycle-index order, so the first partition is the
	// smallest cycle index.
	chosen := parts[0]
	return telemetry.CyclePartition{Key: chosen.Key, Samples: chosen.SortedByTime()}, nil
}
