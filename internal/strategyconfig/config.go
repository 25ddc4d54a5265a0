package strategyconfig

import "time"

// Config는 아이언 콘도르 스크리닝 전략의 전체 설정
type Config struct {
	Meta      Meta      `yaml:"meta" json:"meta"`
	Strategy  Strategy  `yaml:"strategy" json:"strategy"`
	Filter    Filter    `yaml:"filter" json:"filter"`
	Scoring   Scoring   `yaml:"scoring" json:"scoring"`
	Analytics Analytics `yaml:"analytics" json:"analytics"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

// Strategy S1: 후보 생성 파라미터
type Strategy struct {
	MinDTE          int       `yaml:"min_dte" json:"min_dte"`
	MaxDTE          int       `yaml:"max_dte" json:"max_dte"`
	TargetDelta     float64   `yaml:"target_delta" json:"target_delta"`       // |delta| of the short legs
	DeltaTolerance  float64   `yaml:"delta_tolerance" json:"delta_tolerance"` // max | |delta| - target |
	PutWingWidths   []float64 `yaml:"put_wing_widths" json:"put_wing_widths"`
	CallWingWidths  []float64 `yaml:"call_wing_widths" json:"call_wing_widths"`
	AllowAsymmetric bool      `yaml:"allow_asymmetric" json:"allow_asymmetric"`
}

// WidthPairs returns the (put, call) wing width combinations to try
func (s Strategy) WidthPairs() [][2]float64 {
	pairs := make([][2]float64, 0, len(s.PutWingWidths)*len(s.CallWingWidths))
	for _, pw := range s.PutWingWidths {
		for _, cw := range s.CallWingWidths {
			if !s.AllowAsymmetric && pw != cw {
				continue
			}
			pairs = append(pairs, [2]float64{pw, cw})
		}
	}
	return pairs
}

// Filter S0/S3: Hard Cut 기준
//
// Chain-level gates (iv rank / percentile) reject the whole chain; option
// gates apply per contract; candidate gates run after analytics.
type Filter struct {
	MinIVRank          float64 `yaml:"min_iv_rank" json:"min_iv_rank"`
	MinIVPercentile    float64 `yaml:"min_iv_percentile" json:"min_iv_percentile"`
	MaxBidAskSpreadPct float64 `yaml:"max_bid_ask_spread_pct" json:"max_bid_ask_spread_pct"`
	MinOpenInterest    int64   `yaml:"min_open_interest" json:"min_open_interest"`
	MinVolume          int64   `yaml:"min_volume" json:"min_volume"`

	MaxLossCap             *float64 `yaml:"max_loss_cap,omitempty" json:"max_loss_cap,omitempty"`
	MinProbabilityOfProfit *float64 `yaml:"min_probability_of_profit,omitempty" json:"min_probability_of_profit,omitempty"`
	ExcludePreEarnings     bool     `yaml:"exclude_pre_earnings" json:"exclude_pre_earnings"`
	Expression             string   `yaml:"expression,omitempty" json:"expression,omitempty"` // e.g. "return_on_risk >= 20.0"

	TopN int `yaml:"top_n" json:"top_n"` // 0 = all
}

// Scoring S4: 종합 점수 가중치
type Scoring struct {
	Weights Weights `yaml:"weights" json:"weights"`
}

// Weights 팩터별 가중치 (>= 0, 합이 1이 아니면 경고)
type Weights struct {
	ReturnOnRisk        float64 `yaml:"return_on_risk" json:"return_on_risk"`
	ProbabilityOfProfit float64 `yaml:"probability_of_profit" json:"probability_of_profit"`
	ExpectedMoveSafety  float64 `yaml:"expected_move_safety" json:"expected_move_safety"`
	Liquidity           float64 `yaml:"liquidity" json:"liquidity"`
	IVRank              float64 `yaml:"iv_rank" json:"iv_rank"`
}

// Sum returns the total of all weights
func (w Weights) Sum() float64 {
	return w.ReturnOnRisk + w.ProbabilityOfProfit + w.ExpectedMoveSafety + w.Liquidity + w.IVRank
}

// Analytics S2: 분석 상수
type Analytics struct {
	RiskFreeRate          float64        `yaml:"risk_free_rate" json:"risk_free_rate"`
	StraddleDiscount      float64        `yaml:"straddle_discount" json:"straddle_discount"`
	PreEarningsWindowDays int            `yaml:"pre_earnings_window_days" json:"pre_earnings_window_days"`
	TradingDaysPerYear    float64        `yaml:"trading_days_per_year" json:"trading_days_per_year"`
	GarmanKlassRange      string         `yaml:"garman_klass_range" json:"garman_klass_range"` // prev_close | high_low
	Liquidity             LiquidityModel `yaml:"liquidity" json:"liquidity"`
}

// LiquidityModel weights and saturation caps of the liquidity score
type LiquidityModel struct {
	SpreadWeight float64 `yaml:"spread_weight" json:"spread_weight"`
	OIWeight     float64 `yaml:"oi_weight" json:"oi_weight"`
	VolumeWeight float64 `yaml:"volume_weight" json:"volume_weight"`
	MaxSpreadPct float64 `yaml:"max_spread_pct" json:"max_spread_pct"` // spread at which the component reaches 0
	OICap        float64 `yaml:"oi_cap" json:"oi_cap"`                 // OI at which the component saturates
	VolumeCap    float64 `yaml:"volume_cap" json:"volume_cap"`
}

// DecisionSnapshot records the exact configuration behind a screening run
type DecisionSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	StrategyID string    `json:"strategy_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Default returns the baseline configuration; YAML values override it
func Default() Config {
	return Config{
		Meta: Meta{
			StrategyID: "iron_condor_default",
			Version:    "1",
		},
		Strategy: DefaultStrategy(),
		Filter: Filter{
			MinIVRank:          40,
			MinIVPercentile:    40,
			MaxBidAskSpreadPct: 0.15,
			MinOpenInterest:    500,
			MinVolume:          1,
			TopN:               10,
		},
		Scoring:   Scoring{Weights: DefaultWeights()},
		Analytics: DefaultAnalytics(),
	}
}

// DefaultStrategy 30~45 DTE, 16 delta shorts, 5pt wings
func DefaultStrategy() Strategy {
	return Strategy{
		MinDTE:          30,
		MaxDTE:          45,
		TargetDelta:     0.16,
		DeltaTolerance:  0.05,
		PutWingWidths:   []float64{5},
		CallWingWidths:  []float64{5},
		AllowAsymmetric: false,
	}
}

// DefaultWeights sums to 1.0
func DefaultWeights() Weights {
	return Weights{
		ReturnOnRisk:        0.30,
		ProbabilityOfProfit: 0.20,
		ExpectedMoveSafety:  0.20,
		Liquidity:           0.15,
		IVRank:              0.15,
	}
}

// DefaultAnalytics 기본 분석 상수
func DefaultAnalytics() Analytics {
	return Analytics{
		RiskFreeRate:          0.02,
		StraddleDiscount:      0.85,
		PreEarningsWindowDays: 7,
		TradingDaysPerYear:    252,
		GarmanKlassRange:      "prev_close",
		Liquidity: LiquidityModel{
			SpreadWeight: 0.5,
			OIWeight:     0.3,
			VolumeWeight: 0.2,
			MaxSpreadPct: 0.15,
			OICap:        5000,
			VolumeCap:    1000,
		},
	}
}
