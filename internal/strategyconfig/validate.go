package strategyconfig

import (
	"fmt"
	"math"

	"github.com/wonny/condor/internal/contracts"
)

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

func invalid(field, msg string) error {
	return &contracts.ConfigurationError{Field: field, Message: msg}
}

// Validate checks all required constraints
// 실패 시 *contracts.ConfigurationError 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	if cfg.Meta.StrategyID == "" {
		return invalid("meta.strategy_id", "required")
	}
	if err := ValidateStrategy(cfg.Strategy); err != nil {
		return err
	}
	if err := ValidateFilter(cfg.Filter); err != nil {
		return err
	}
	if err := ValidateScoring(cfg.Scoring); err != nil {
		return err
	}
	return ValidateAnalytics(cfg.Analytics)
}

// ValidateStrategy checks the candidate builder parameters
func ValidateStrategy(s Strategy) error {
	if s.MinDTE < 0 {
		return invalid("strategy.min_dte", "must be >= 0")
	}
	if s.MinDTE > s.MaxDTE {
		return invalid("strategy.min_dte", fmt.Sprintf("must be <= max_dte (%d > %d)", s.MinDTE, s.MaxDTE))
	}
	if !(s.TargetDelta > 0 && s.TargetDelta < 1) {
		return invalid("strategy.target_delta", "must be in (0, 1)")
	}
	if s.DeltaTolerance < 0 || math.IsNaN(s.DeltaTolerance) {
		return invalid("strategy.delta_tolerance", "must be >= 0")
	}
	if len(s.PutWingWidths) == 0 {
		return invalid("strategy.put_wing_widths", "must not be empty")
	}
	if len(s.CallWingWidths) == 0 {
		return invalid("strategy.call_wing_widths", "must not be empty")
	}
	for i, w := range s.PutWingWidths {
		if !(w > 0) {
			return invalid(fmt.Sprintf("strategy.put_wing_widths[%d]", i), "must be > 0")
		}
	}
	for i, w := range s.CallWingWidths {
		if !(w > 0) {
			return invalid(fmt.Sprintf("strategy.call_wing_widths[%d]", i), "must be > 0")
		}
	}
	return nil
}

// ValidateFilter checks hard-cut thresholds
// The expression is compiled by the screener, not here.
func ValidateFilter(f Filter) error {
	if f.MinIVRank < 0 || f.MinIVRank > 100 {
		return invalid("filter.min_iv_rank", "must be in [0, 100]")
	}
	if f.MinIVPercentile < 0 || f.MinIVPercentile > 100 {
		return invalid("filter.min_iv_percentile", "must be in [0, 100]")
	}
	if f.MaxBidAskSpreadPct <= 0 {
		return invalid("filter.max_bid_ask_spread_pct", "must be > 0")
	}
	if f.MinOpenInterest < 0 {
		return invalid("filter.min_open_interest", "must be >= 0")
	}
	if f.MinVolume < 0 {
		return invalid("filter.min_volume", "must be >= 0")
	}
	if f.MaxLossCap != nil && *f.MaxLossCap <= 0 {
		return invalid("filter.max_loss_cap", "must be > 0")
	}
	if p := f.MinProbabilityOfProfit; p != nil && (*p < 0 || *p > 1) {
		return invalid("filter.min_probability_of_profit", "must be in [0, 1]")
	}
	if f.TopN < 0 {
		return invalid("filter.top_n", "must be >= 0")
	}
	return nil
}

// ValidateScoring rejects negative weights; the sum is only a warning
func ValidateScoring(s Scoring) error {
	w := s.Weights
	fields := []struct {
		name  string
		value float64
	}{
		{"return_on_risk", w.ReturnOnRisk},
		{"probability_of_profit", w.ProbabilityOfProfit},
		{"expected_move_safety", w.ExpectedMoveSafety},
		{"liquidity", w.Liquidity},
		{"iv_rank", w.IVRank},
	}
	for _, f := range fields {
		if f.value < 0 || math.IsNaN(f.value) {
			return invalid("scoring.weights."+f.name, "must be >= 0")
		}
	}
	return nil
}

// ValidateAnalytics checks analytics constants
func ValidateAnalytics(a Analytics) error {
	if a.StraddleDiscount <= 0 || a.StraddleDiscount > 1 {
		return invalid("analytics.straddle_discount", "must be in (0, 1]")
	}
	if a.PreEarningsWindowDays < 0 {
		return invalid("analytics.pre_earnings_window_days", "must be >= 0")
	}
	if a.TradingDaysPerYear <= 0 {
		return invalid("analytics.trading_days_per_year", "must be > 0")
	}
	if a.GarmanKlassRange != "prev_close" && a.GarmanKlassRange != "high_low" {
		return invalid("analytics.garman_klass_range", "must be prev_close or high_low")
	}
	l := a.Liquidity
	if l.SpreadWeight < 0 || l.OIWeight < 0 || l.VolumeWeight < 0 {
		return invalid("analytics.liquidity", "weights must be >= 0")
	}
	if l.MaxSpreadPct <= 0 || l.OICap <= 0 || l.VolumeCap <= 0 {
		return invalid("analytics.liquidity", "caps must be > 0")
	}
	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if sum := cfg.Scoring.Weights.Sum(); math.Abs(sum-1.0) > 1e-6 {
		warnings = append(warnings, Warning{
			Code:    "WEIGHTS_SUM",
			Message: fmt.Sprintf("scoring weights sum to %.4f, composite scores will be clamped to [0, 1]", sum),
		})
	}

	if len(cfg.Strategy.WidthPairs()) == 0 {
		warnings = append(warnings, Warning{
			Code:    "NO_WIDTH_PAIRS",
			Message: "allow_asymmetric=false and no put/call wing width in common: no candidates can be built",
		})
	}

	if cfg.Strategy.TargetDelta > 0.35 {
		warnings = append(warnings, Warning{
			Code:    "AGGRESSIVE_DELTA",
			Message: "short delta > 0.35: short strikes close to the money",
		})
	}

	if cfg.Filter.MinOpenInterest < 100 {
		warnings = append(warnings, Warning{
			Code:    "LOW_OPEN_INTEREST",
			Message: "min_open_interest < 100: fills may be poor",
		})
	}

	l := cfg.Analytics.Liquidity
	if math.Abs(l.SpreadWeight+l.OIWeight+l.VolumeWeight-1.0) > 1e-6 {
		warnings = append(warnings, Warning{
			Code:    "LIQUIDITY_WEIGHTS_SUM",
			Message: "liquidity component weights do not sum to 1.0",
		})
	}

	return warnings
}
