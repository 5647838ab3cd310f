package detectors

import (
	"errors"
	"math"
	"math/rand"
)

type isoNode struct {
	Feature int
	Split   float64
	Left    *isoNode
	Right   *isoNode
	Size    int
}

func (n *isoNode) isLeaf() bool {
	return n.Left == nil && n.Right == nil
}

// IForest is an isolation forest: anomalies are isolated by fewer random
// axis-aligned splits than normal points.
type IForest struct {
	NTrees        int
	SampleSize    int
	Contamination float64
	Seed          int64
	NFeatures     int

	Trees          []*isoNode
	AvgPathLength  float64
	ThresholdValue float64
	Scores         []float64

	rng      *rand.Rand
	maxDepth int
}

func newIForest(cfg Config) *IForest {
	return &IForest{
		NTrees:        cfg.Trees,
		SampleSize:    cfg.SampleSize,
		Contamination: cfg.Contamination,
		Seed:          cfg.Seed,
	}
}

func (f *IForest) Algorithm() string {
	return IsolationForest
}

func (f *IForest) Fit(data [][]float64) error {
	nFeatures, err := validate(data)
	if err != nil {
		return err
	}
	if f.NTrees <= 0 {
		return errors.New("number of trees must be positive")
	}

	f.rng = rand.New(rand.NewSource(f.Seed))
	f.NFeatures = nFeatures

	sampleSize := min(f.SampleSize, len(data))
	if sampleSize <= 0 {
		sampleSize = len(data)
	}
	f.maxDepth = int(math.Ceil(math.Log2(float64(max(sampleSize, 2)))))

	f.Trees = make([]*isoNode, f.NTrees)
	for i := range f.Trees {
		indices := f.rng.Perm(len(data))[:sampleSize]
		sample := make([][]float64, sampleSize)
		for j, idx := range indices {
			sample[j] = data[idx]
		}
		f.Trees[i] = f.buildNode(sample, 0)
	}

	f.AvgPathLength = averagePathLength(float64(sampleSize))

	f.Scores = f.score(data)
	f.ThresholdValue = contaminationThreshold(f.Scores, f.Contamination)
	return nil
}

func (f *IForest) buildNode(data [][]float64, depth int) *isoNode {
	n := len(data)
	if depth >= f.maxDepth || n <= 1 {
		return &isoNode{Size: n}
	}

	feature := f.rng.Intn(f.NFeatures)

	minVal, maxVal := data[0][feature], data[0][feature]
	for _, row := range data[1:] {
		minVal = min(minVal, row[feature])
		maxVal = max(maxVal, row[feature])
	}
	if minVal == maxVal {
		return &isoNode{Size: n}
	}

	split := minVal + f.rng.Float64()*(maxVal-minVal)

	var left, right [][]float64
	for _, row := range data {
		if row[feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	if len(left) == 0 || len(right) == 0 {
		return &isoNode{Size: n}
	}

	return &isoNode{
		Feature: feature,
		Split:   split,
		Left:    f.buildNode(left, depth+1),
		Right:   f.buildNode(right, depth+1),
	}
}

func (f *IForest) score(data [][]float64) []float64 {
	scores := make([]float64, len(data))
	for i, sample := range data {
		var total float64
		for _, tree := range f.Trees {
			total += pathLength(sample, tree, 0)
		}
		avg := total / float64(len(f.Trees))

		if f.AvgPathLength == 0 {
			scores[i] = 0.5
			continue
		}
		// s(x, n) = 2^(-E(h(x)) / c(n))
		scores[i] = math.Pow(2, -avg/f.AvgPathLength)
	}
	return scores
}

func pathLength(sample []float64, n *isoNode, depth int) float64 {
	if n.isLeaf() {
		return float64(depth) + averagePathLength(float64(n.Size))
	}
	if sample[n.Feature] < n.Split {
		return pathLength(sample, n.Left, depth+1)
	}
	return pathLength(sample, n.Right, depth+1)
}

// averagePathLength is c(n), the average path length of an unsuccessful
// binary search tree lookup among n points.
func averagePathLength(n float64) float64 {
	if n <= 1 {
		return 0
	}
	if n == 2 {
		return 1
	}
	return 2*(math.Log(n-1)+0.5772156649) - 2*(n-1)/n
}

func (f *IForest) TrainingScores() []float64 {
	return f.Scores
}

func (f *IForest) Threshold() float64 {
	return f.ThresholdValue
}

func (f *IForest) Score(data [][]float64) ([]float64, error) {
	if len(f.Trees) == 0 {
		return nil, errors.New("model not trained")
	}
	if err := checkFeatures(data, f.NFeatures); err != nil {
		return nil, err
	}
	return f.score(data), nil
}
