package contracts

import "time"

// ReturnOnRiskCap stands in for an unbounded return on risk (max loss == 0)
const ReturnOnRiskCap = 10_000.0

// Analytics holds the derived metrics for one iron condor
// ⭐ SSOT: S2 → S3/S4 분석 결과 전달
//
// Optional metrics are nil when they could not be computed; they are never
// defaulted. CompositeScore, Rank and Scores are written only by the ranker,
// on its own copies.
type Analytics struct {
	Condor IronCondor `json:"condor"`
	Spot   float64    `json:"spot"`
	DTE    int        `json:"dte"`

	NetCredit      float64 `json:"net_credit"`
	MaxProfit      float64 `json:"max_profit"`
	MaxLoss        float64 `json:"max_loss"`
	BreakevenLower float64 `json:"breakeven_lower"`
	BreakevenUpper float64 `json:"breakeven_upper"`
	ReturnOnRisk   float64 `json:"return_on_risk"` // percent

	ProbabilityOfProfit *float64 `json:"probability_of_profit,omitempty"`

	ExpectedMoveStraddle *float64 `json:"expected_move_straddle,omitempty"`
	ExpectedMoveIV       float64  `json:"expected_move_iv"`

	CurrentIV    float64  `json:"current_iv"`
	IVRank       float64  `json:"iv_rank"`
	IVPercentile float64  `json:"iv_percentile"`
	RealizedVol  *float64 `json:"realized_vol,omitempty"`
	IVToRVRatio  *float64 `json:"iv_to_rv_ratio,omitempty"`

	DistancePct     float64 `json:"distance_pct"`
	PutDistancePct  float64 `json:"put_distance_pct"`
	CallDistancePct float64 `json:"call_distance_pct"`

	LiquidityScore float64 `json:"liquidity_score"`

	IsPreEarnings bool       `json:"is_pre_earnings"`
	EarningsDate  *time.Time `json:"earnings_date,omitempty"`

	CompositeScore *float64     `json:"composite_score,omitempty"`
	Rank           int          `json:"rank,omitempty"` // 1-based, 0 = unranked
	Scores         *ScoreDetail `json:"scores,omitempty"`
}

// Ticker returns the underlying of the analyzed condor
func (a Analytics) Ticker() string {
	return a.Condor.Ticker()
}

// ExpectedMove prefers the straddle estimate and falls back to the IV estimate
func (a Analytics) ExpectedMove() float64 {
	if a.ExpectedMoveStraddle != nil && *a.ExpectedMoveStraddle > 0 {
		return *a.ExpectedMoveStraddle
	}
	return a.ExpectedMoveIV
}

// ShortStrikeDistance is the smaller distance from spot to either short strike
func (a Analytics) ShortStrikeDistance() float64 {
	put := a.Spot - a.Condor.ShortPut.Strike
	call := a.Condor.ShortCall.Strike - a.Spot
	if put < 0 {
		put = -put
	}
	if call < 0 {
		call = -call
	}
	if put < call {
		return put
	}
	return call
}
