package partition

import (
	"sort"

	"cellsanity/domain/telemetry"
)

// Partitioner groups raw samples into per-(cell, cycle) partitions for one
// operation type.
type Partitioner struct {
	op telemetry.OpType
}

// New creates a partitioner for the given operation type.
func New(op telemetry.OpType) *Partitioner {
	return &Partitioner{op: op}
}

// Group partitions samples by (cell id, cycle index), keeping only the target
// operation type. Key equality is exact string/integer equality. Samples
// inside each partition are ordered by time index ascending, and the set
// iterates its keys lexicographically regardless of input order.
func (p *Partitioner) Group(samples []telemetry.Sample) *Set {
	byKey := make(map[telemetry.CycleKey][]telemetry.Sample)
	for _, s := range samples {
		if s.Op != p.op {
			continue
		}
		k := telemetry.CycleKey{CellID: s.CellID, CycleIndex: s.CycleIndex}
		byKey[k] = append(byKey[k], s)
	}

	keys := make([]telemetry.CycleKey, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	// Map iteration order is not reproducible run to run; reports depend on
	// a stable lexicographic walk, so sort explicitly.
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	parts := make([]telemetry.CyclePartition, 0, len(keys))
	total := 0
	for _, k := range keys {
		ss := byKey[k]
		sort.SliceStable(ss, func(i, j int) bool { return ss[i].TimeIndex < ss[j].TimeIndex })
		parts = append(parts, telemetry.CyclePartition{Key: k, Samples: ss})
		total += len(ss)
	}
	return &Set{parts: parts, sampleCount: total}
}

// Set is an ordered collection of non-empty cycle partitions.
type Set struct {
	parts       []telemetry.CyclePartition
	sampleCount int
}

// Len returns the number of partitions.
func (s *Set) Len() int { return len(s.parts) }

// SampleCount returns the total number of samples across all partitions.
func (s *Set) SampleCount() int { return s.sampleCount }

// All returns the partitions in lexicographic (cell id, cycle index) order.
func (s *Set) All() []telemetry.CyclePartition { return s.parts }

// ForCell returns one cell's partitions in cycle-index order.
func (s *Set) ForCell(cellID string) []telemetry.CyclePartition {
	var out []telemetry.CyclePartition
	for _, p := range s.parts {
		if p.Key.CellID == cellID {
			out = append(out, p)
		}
	}
	return out
}
