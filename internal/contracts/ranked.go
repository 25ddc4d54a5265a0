package contracts

// ScoreDetail contains the batch-normalized factor values behind a composite score
// Each value is in [0, 1]; an unavailable factor scores 0.
type ScoreDetail struct {
	ReturnOnRisk        float64 `json:"return_on_risk"`
	ProbabilityOfProfit float64 `json:"probability_of_profit"`
	ExpectedMoveSafety  float64 `json:"expected_move_safety"`
	Liquidity           float64 `json:"liquidity"`
	IVRank              float64 `json:"iv_rank"`
}

// IsTopRanked checks if the candidate is in top N ranks
func (a *Analytics) IsTopRanked(n int) bool {
	return a.Rank <= n && a.Rank > 0
}

// Score returns the composite score or 0 when unranked
func (a *Analytics) Score() float64 {
	if a.CompositeScore == nil {
		return 0
	}
	return *a.CompositeScore
}
