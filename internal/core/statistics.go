package core

import (
	"math"

	"anomaly-trainer/internal/core/types"
	apperrors "anomaly-trainer/internal/errors"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

const StatisticsPrecision = 3

// NormalStatistics describe the anomaly scores of the rows a model considers
// normal.
type NormalStatistics struct {
	Mean decimal.Decimal
	Std  decimal.Decimal
}

// RoundHalfUp rounds the shortest decimal representation of v, with ties
// going away from zero.
func RoundHalfUp(v float64, places int32) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(places)
}

// ExtractStatistics computes the mean and sample standard deviation of the
// normal-labelled scores. At least two normal rows are required since the
// sample deviation of a single value is undefined.
func ExtractStatistics(result types.ScoredResult) (NormalStatistics, error) {
	scores := result.NormalScores()
	if len(scores) < 2 {
		return NormalStatistics{}, apperrors.Newf(apperrors.InsufficientNormalSamples, "%d of %d rows are labelled normal, need at least 2", len(scores), result.Len())
	}

	mean, std := stat.MeanStdDev(scores, nil)
	if math.IsNaN(mean) || math.IsInf(mean, 0) || math.IsNaN(std) || math.IsInf(std, 0) {
		return NormalStatistics{}, apperrors.New(apperrors.FittingFailed, "normal scores produced non-finite statistics")
	}

	return NormalStatistics{
		Mean: RoundHalfUp(mean, StatisticsPrecision),
		Std:  RoundHalfUp(std, StatisticsPrecision),
	}, nil
}
