package types

const (
	NormalLabel    = 0
	AnomalousLabel = 1
)

// ScoredRow is the per-row output of a fitted detector.
type ScoredRow struct {
	Score float64
	Label int
}

func (r ScoredRow) IsNormal() bool {
	return r.Label == NormalLabel
}

// ScoredResult holds one ScoredRow per input dataset row, in input order.
type ScoredResult struct {
	Rows []ScoredRow
}

func (r *ScoredResult) Len() int {
	return len(r.Rows)
}

func (r *ScoredResult) NormalScores() []float64 {
	var scores []float64
	for _, row := range r.Rows {
		if row.IsNormal() {
			scores = append(scores, row.Score)
		}
	}
	return scores
}
