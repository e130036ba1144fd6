package rankcorr

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Indicator computes a Spearman-style rank correlation between two sequences:
// both are rank-transformed with tie-averaged ranks, then the Pearson
// correlation of the rank sequences is taken as the ratio of the centered dot
// product to the product of the centered L2 norms.
//
// It is a monotonic-association sanity signal only, never a rigorous
// statistical result, and must not be consumed as ground truth downstream.
//
// Pairs where either value is NaN are dropped before ranking. Fewer than 3
// usable pairs, or a rank sequence with machine-zero variance, yield the NaN
// sentinel: correlation is undefined when one variable is constant, and the
// sentinel is never coerced to zero.
func Indicator(x, y []float64) float64 {
	if len(x) != len(y) {
		return math.NaN()
	}

	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 3 {
		return math.NaN()
	}

	rx := averageRanks(xs)
	ry := averageRanks(ys)

	floats.AddConst(-stat.Mean(rx, nil), rx)
	floats.AddConst(-stat.Mean(ry, nil), ry)

	denom := math.Sqrt(floats.Dot(rx, rx) * floats.Dot(ry, ry))
	if denom == 0 {
		return math.NaN()
	}

	rho := floats.Dot(rx, ry) / denom
	// Floating point can push the ratio marginally past the bounds.
	if rho > 1 {
		rho = 1
	} else if rho < -1 {
		rho = -1
	}
	return rho
}

// averageRanks assigns 1-based ranks, tied values receiving the mean of the
// ranks they would jointly occupy.
func averageRanks(data []float64) []float64 {
	n := len(data)

	type pair struct {
		value float64
		index int
	}
	pairs := make([]pair, n)
	for i, v := range data {
		pairs[i] = pair{value: v, index: i}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].value < pairs[j].value })

	ranks := make([]float64, n)
	i := 0
	for i < n {
		j := i + 1
		for j < n && pairs[j].value == pairs[i].value {
			j++
		}
		avgRank := float64(i+1) + float64(j-i-1)/2.0
		for k := i; k < j; k++ {
			ranks[pairs[k].index] = avgRank
		}
		i = j
	}
	return ranks
}
