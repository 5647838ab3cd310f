package detectors

import (
	"slices"

	"gonum.org/v1/gonum/floats"
)

type neighbor struct {
	index    int
	distance float64
}

// nearestNeighbors returns the k closest reference rows to sample, skipping
// the reference row at index exclude (-1 to keep every row).
func nearestNeighbors(reference [][]float64, sample []float64, k, exclude int) []neighbor {
	candidates := make([]neighbor, 0, len(reference))
	for i, row := range reference {
		if i == exclude {
			continue
		}
		candidates = append(candidates, neighbor{index: i, distance: floats.Distance(sample, row, 2)})
	}

	slices.SortStableFunc(candidates, func(a, b neighbor) int {
		switch {
		case a.distance < b.distance:
			return -1
		case a.distance > b.distance:
			return 1
		default:
			return 0
		}
	})

	return candidates[:min(k, len(candidates))]
}

func effectiveNeighbors(k, nSamples int) int {
	if k <= 0 {
		k = DefaultConfig().Neighbors
	}
	return min(k, nSamples-1)
}
