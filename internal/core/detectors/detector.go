// Package detectors implements the unsupervised anomaly detectors a training
// job can fit. Every detector scores each training row (higher is more
// anomalous) and flags the top contamination fraction as outliers.
package detectors

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/stat"
)

const (
	IsolationForest = "iforest"
	AngleBased      = "abod"
	NearestNeighbor = "knn"
)

var ErrUnknownAlgorithm = errors.New("unknown algorithm")

type Config struct {
	Contamination float64
	Seed          int64
	Neighbors     int
	Trees         int
	SampleSize    int
}

func DefaultConfig() Config {
	return Config{
		Contamination: 0.05,
		Seed:          123,
		Neighbors:     5,
		Trees:         100,
		SampleSize:    256,
	}
}

type Detector interface {
	Algorithm() string

	// Fit trains on row-major data and scores every training row.
	Fit(data [][]float64) error

	TrainingScores() []float64

	Threshold() float64

	// Score computes anomaly scores for rows not seen during training.
	Score(data [][]float64) ([]float64, error)
}

type factory func(cfg Config) Detector

var registry = map[string]factory{
	IsolationForest: func(cfg Config) Detector { return newIForest(cfg) },
	AngleBased:      func(cfg Config) Detector { return newABOD(cfg) },
	NearestNeighbor: func(cfg Config) Detector { return newKNN(cfg) },
}

func New(algorithm string, cfg Config) (Detector, error) {
	f, ok := registry[algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
	return f(cfg), nil
}

func Supported() []string {
	algorithms := make([]string, 0, len(registry))
	for name := range registry {
		algorithms = append(algorithms, name)
	}
	sort.Strings(algorithms)
	return algorithms
}

// Labels flags a score as anomalous when it is strictly above threshold.
func Labels(scores []float64, threshold float64) []int {
	labels := make([]int, len(scores))
	for i, s := range scores {
		if s > threshold {
			labels[i] = 1
		}
	}
	return labels
}

// contaminationThreshold is the (1 - contamination) quantile of the scores.
func contaminationThreshold(scores []float64, contamination float64) float64 {
	sorted := slices.Clone(scores)
	slices.Sort(sorted)
	return stat.Quantile(1-contamination, stat.LinInterp, sorted, nil)
}

func validate(data [][]float64) (int, error) {
	if len(data) == 0 {
		return 0, errors.New("empty training data")
	}
	nFeatures := len(data[0])
	if nFeatures == 0 {
		return 0, errors.New("training data has no numeric features")
	}
	for i, row := range data {
		if len(row) != nFeatures {
			return 0, fmt.Errorf("row %d has %d features, expected %d", i, len(row), nFeatures)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, fmt.Errorf("row %d contains a non-finite value", i)
			}
		}
	}
	return nFeatures, nil
}

func checkFeatures(data [][]float64, nFeatures int) error {
	for i, row := range data {
		if len(row) != nFeatures {
			return fmt.Errorf("row %d has %d features, model expects %d", i, len(row), nFeatures)
		}
	}
	return nil
}
