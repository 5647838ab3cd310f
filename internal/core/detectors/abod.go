package detectors

import (
	"errors"
	"fmt"

	"anomaly-trainer/internal/core/utils"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ABOD is the fast angle-based outlier detector. A point whose neighbours are
// all seen under similar angles sits outside the data, so the variance of the
// distance weighted cosines over neighbour pairs is low. The score is the
// negated variance so higher still means more anomalous.
type ABOD struct {
	Neighbors     int
	Contamination float64

	Reference      [][]float64
	Scores         []float64
	ThresholdValue float64
}

func newABOD(cfg Config) *ABOD {
	return &ABOD{Neighbors: cfg.Neighbors, Contamination: cfg.Contamination}
}

func (d *ABOD) Algorithm() string {
	return AngleBased
}

func (d *ABOD) Fit(data [][]float64) error {
	if _, err := validate(data); err != nil {
		return err
	}
	if len(data) < 3 {
		return fmt.Errorf("abod needs at least 3 rows, got %d", len(data))
	}

	d.Neighbors = effectiveNeighbors(d.Neighbors, len(data))
	d.Reference = data

	d.Scores = utils.MapRows(len(data), 0, func(i int) float64 {
		return d.angleScore(data[i], i)
	})
	d.ThresholdValue = contaminationThreshold(d.Scores, d.Contamination)
	return nil
}

func (d *ABOD) angleScore(sample []float64, exclude int) float64 {
	neighbors := nearestNeighbors(d.Reference, sample, d.Neighbors, exclude)

	diff := func(row []float64) []float64 {
		v := make([]float64, len(sample))
		floats.SubTo(v, row, sample)
		return v
	}

	var cosines []float64
	for a := 0; a < len(neighbors); a++ {
		va := diff(d.Reference[neighbors[a].index])
		na := floats.Dot(va, va)
		if na == 0 {
			continue
		}
		for b := a + 1; b < len(neighbors); b++ {
			vb := diff(d.Reference[neighbors[b].index])
			nb := floats.Dot(vb, vb)
			if nb == 0 {
				continue
			}
			cosines = append(cosines, floats.Dot(va, vb)/(na*nb))
		}
	}

	if len(cosines) == 0 {
		return 0
	}
	return -stat.PopVariance(cosines, nil)
}

func (d *ABOD) TrainingScores() []float64 {
	return d.Scores
}

func (d *ABOD) Threshold() float64 {
	return d.ThresholdValue
}

func (d *ABOD) Score(data [][]float64) ([]float64, error) {
	if len(d.Reference) == 0 {
		return nil, errors.New("model not trained")
	}
	if err := checkFeatures(data, len(d.Reference[0])); err != nil {
		return nil, err
	}

	return utils.MapRows(len(data), 0, func(i int) float64 {
		return d.angleScore(data[i], -1)
	}), nil
}
