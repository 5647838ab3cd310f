package detectors

import (
	"errors"
	"fmt"

	"anomaly-trainer/internal/core/utils"
)

// KNN scores a row by the distance to its k-th nearest training neighbour.
type KNN struct {
	Neighbors     int
	Contamination float64

	Reference      [][]float64
	Scores         []float64
	ThresholdValue float64
}

func newKNN(cfg Config) *KNN {
	return &KNN{Neighbors: cfg.Neighbors, Contamination: cfg.Contamination}
}

func (d *KNN) Algorithm() string {
	return NearestNeighbor
}

func (d *KNN) Fit(data [][]float64) error {
	if _, err := validate(data); err != nil {
		return err
	}
	if len(data) < 2 {
		return fmt.Errorf("knn needs at least 2 rows, got %d", len(data))
	}

	d.Neighbors = effectiveNeighbors(d.Neighbors, len(data))
	d.Reference = data

	d.Scores = utils.MapRows(len(data), 0, func(i int) float64 {
		return d.kthDistance(data[i], i)
	})
	d.ThresholdValue = contaminationThreshold(d.Scores, d.Contamination)
	return nil
}

func (d *KNN) kthDistance(sample []float64, exclude int) float64 {
	neighbors := nearestNeighbors(d.Reference, sample, d.Neighbors, exclude)
	return neighbors[len(neighbors)-1].distance
}

func (d *KNN) TrainingScores() []float64 {
	return d.Scores
}

func (d *KNN) Threshold() float64 {
	return d.ThresholdValue
}

func (d *KNN) Score(data [][]float64) ([]float64, error) {
	if len(d.Reference) == 0 {
		return nil, errors.New("model not trained")
	}
	if err := checkFeatures(data, len(d.Reference[0])); err != nil {
		return nil, err
	}

	return utils.MapRows(len(data), 0, func(i int) float64 {
		return d.kthDistance(data[i], -1)
	}), nil
}
