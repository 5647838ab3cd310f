package detectors

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clusterWithOutliers returns 95 points around the origin followed by 5
// points evenly spaced on a circle of radius 10, far from the cluster and
// from each other.
func clusterWithOutliers() ([][]float64, []int) {
	rng := rand.New(rand.NewSource(7))

	var data [][]float64
	for i := 0; i < 95; i++ {
		data = append(data, []float64{rng.Float64()*2 - 1, rng.Float64()*2 - 1})
	}

	var outliers []int
	for i := 0; i < 5; i++ {
		angle := 2 * math.Pi * float64(i) / 5
		outliers = append(outliers, len(data))
		data = append(data, []float64{10 * math.Cos(angle), 10 * math.Sin(angle)})
	}
	return data, outliers
}

func TestNew(t *testing.T) {
	for _, algorithm := range []string{IsolationForest, AngleBased, NearestNeighbor} {
		d, err := New(algorithm, DefaultConfig())
		require.NoError(t, err)
		assert.Equal(t, algorithm, d.Algorithm())
	}

	_, err := New("lof", DefaultConfig())
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)

	assert.Equal(t, []string{"abod", "iforest", "knn"}, Supported())
}

func TestDetectors_RankOutliersFirst(t *testing.T) {
	data, outliers := clusterWithOutliers()

	for _, algorithm := range Supported() {
		t.Run(algorithm, func(t *testing.T) {
			d, err := New(algorithm, DefaultConfig())
			require.NoError(t, err)
			require.NoError(t, d.Fit(data))

			scores := d.TrainingScores()
			require.Len(t, scores, len(data))

			var maxInlier, inlierSum float64 = math.Inf(-1), 0
			for i := 0; i < 95; i++ {
				maxInlier = max(maxInlier, scores[i])
				inlierSum += scores[i]
			}
			inlierMean := inlierSum / 95

			for _, idx := range outliers {
				if algorithm == IsolationForest {
					assert.Greater(t, scores[idx], inlierMean, "outlier %d", idx)
				} else {
					assert.Greater(t, scores[idx], maxInlier, "outlier %d", idx)
				}
			}

			labels := Labels(scores, d.Threshold())
			anomalous := 0
			for _, l := range labels {
				anomalous += l
			}
			assert.GreaterOrEqual(t, anomalous, 3)
			assert.LessOrEqual(t, anomalous, 6)
		})
	}
}

func TestIForest_Deterministic(t *testing.T) {
	data, _ := clusterWithOutliers()

	first, err := New(IsolationForest, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, first.Fit(data))

	second, err := New(IsolationForest, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, second.Fit(data))

	assert.Equal(t, first.TrainingScores(), second.TrainingScores())
}

func TestFit_InvalidData(t *testing.T) {
	for _, algorithm := range Supported() {
		d, err := New(algorithm, DefaultConfig())
		require.NoError(t, err)

		assert.Error(t, d.Fit(nil), algorithm)
		assert.Error(t, d.Fit([][]float64{{}, {}}), algorithm)
		assert.Error(t, d.Fit([][]float64{{1, 2}, {1}}), algorithm)
		assert.Error(t, d.Fit([][]float64{{1}, {math.NaN()}, {2}}), algorithm)
	}
}

func TestFit_IdenticalRows(t *testing.T) {
	data := [][]float64{{1, 1}, {1, 1}, {1, 1}, {1, 1}}

	for _, algorithm := range Supported() {
		d, err := New(algorithm, DefaultConfig())
		require.NoError(t, err)
		require.NoError(t, d.Fit(data), algorithm)

		for _, l := range Labels(d.TrainingScores(), d.Threshold()) {
			assert.Equal(t, 0, l, algorithm)
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	data, _ := clusterWithOutliers()
	probe := [][]float64{{0, 0}, {3, 3}, {-8, 1}}

	for _, algorithm := range Supported() {
		t.Run(algorithm, func(t *testing.T) {
			d, err := New(algorithm, DefaultConfig())
			require.NoError(t, err)
			require.NoError(t, d.Fit(data))

			encoded, err := Encode(d)
			require.NoError(t, err)

			decoded, err := Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, algorithm, decoded.Algorithm())
			assert.Equal(t, d.Threshold(), decoded.Threshold())
			assert.Equal(t, d.TrainingScores(), decoded.TrainingScores())

			want, err := d.Score(probe)
			require.NoError(t, err)
			got, err := decoded.Score(probe)
			require.NoError(t, err)
			assert.InDeltaSlice(t, want, got, 1e-12)

			_, err = decoded.Score([][]float64{{1, 2, 3}})
			assert.Error(t, err)
		})
	}

	_, err := Decode([]byte("not a model"))
	assert.Error(t, err)
}
