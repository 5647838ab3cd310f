package core

import (
	"context"
	"log/slog"
	"slices"

	"anomaly-trainer/internal/core/detectors"
	"anomaly-trainer/internal/core/types"
	apperrors "anomaly-trainer/internal/errors"
)

// Model is a fitted detector ready to be persisted.
type Model interface {
	Algorithm() string

	Save() ([]byte, error)
}

// Fitter is the model fitting capability used by the training processor.
type Fitter interface {
	Fit(ctx context.Context, table *types.Table, algorithm string) (Model, types.ScoredResult, error)
}

type detectorModel struct {
	detector detectors.Detector
}

func (m *detectorModel) Algorithm() string {
	return m.detector.Algorithm()
}

func (m *detectorModel) Save() ([]byte, error) {
	return detectors.Encode(m.detector)
}

func (m *detectorModel) Detector() detectors.Detector {
	return m.detector
}

// LoadModel decodes an artifact produced by Model.Save.
func LoadModel(data []byte) (detectors.Detector, error) {
	return detectors.Decode(data)
}

// DetectorFitter fits the in-process detectors. Only the configured subset of
// algorithms is accepted.
type DetectorFitter struct {
	config     detectors.Config
	algorithms []string
}

func NewDetectorFitter(config detectors.Config, algorithms []string) *DetectorFitter {
	if len(algorithms) == 0 {
		algorithms = detectors.Supported()
	}
	return &DetectorFitter{config: config, algorithms: algorithms}
}

func (f *DetectorFitter) Supports(algorithm string) bool {
	return slices.Contains(f.algorithms, algorithm)
}

func (f *DetectorFitter) Fit(ctx context.Context, table *types.Table, algorithm string) (model Model, result types.ScoredResult, err error) {
	if !f.Supports(algorithm) {
		return nil, types.ScoredResult{}, apperrors.Newf(apperrors.UnsupportedAlgorithm, "algorithm %q is not one of %v", algorithm, f.algorithms)
	}

	detector, err := detectors.New(algorithm, f.config)
	if err != nil {
		return nil, types.ScoredResult{}, apperrors.Wrapf(apperrors.UnsupportedAlgorithm, err, "algorithm %q", algorithm)
	}

	features, data := table.NumericFeatures()
	if len(features) == 0 {
		return nil, types.ScoredResult{}, apperrors.New(apperrors.FittingFailed, "dataset has no numeric feature columns")
	}

	defer func() {
		if r := recover(); r != nil {
			model, result = nil, types.ScoredResult{}
			err = apperrors.Newf(apperrors.FittingFailed, "%s panicked during fit: %v", algorithm, r)
		}
	}()

	slog.Debug("fitting detector", "algorithm", algorithm, "features", features, "rows", len(data))

	if err := detector.Fit(data); err != nil {
		return nil, types.ScoredResult{}, apperrors.Wrapf(apperrors.FittingFailed, err, "error fitting %s", algorithm)
	}

	scores := detector.TrainingScores()
	if len(scores) != table.NumRows() {
		return nil, types.ScoredResult{}, apperrors.Newf(apperrors.FittingFailed, "%s scored %d rows, dataset has %d", algorithm, len(scores), table.NumRows())
	}

	labels := detectors.Labels(scores, detector.Threshold())
	result.Rows = make([]types.ScoredRow, len(scores))
	for i := range scores {
		result.Rows[i] = types.ScoredRow{Score: scores[i], Label: labels[i]}
	}

	return &detectorModel{detector: detector}, result, nil
}
