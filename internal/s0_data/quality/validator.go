package quality

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/condor/internal/contracts"
)

// Flag codes
const (
	FlagDeltaSign     = "delta_sign"
	FlagDeltaRange    = "delta_range"
	FlagNegativeGamma = "negative_gamma"
	FlagNegativeVega  = "negative_vega"
	FlagZeroBid       = "zero_bid"
	FlagMissingIV     = "missing_iv"
	FlagExpired       = "expired"
)

// Issue is one flagged option; the option itself is never corrected
type Issue struct {
	Option string `json:"option"`
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// Snapshot summarizes the quality of one chain
type Snapshot struct {
	Ticker       string             `json:"ticker"`
	AsOf         time.Time          `json:"as_of"`
	TotalOptions int                `json:"total_options"`
	CleanOptions int                `json:"clean_options"`
	Coverage     map[string]float64 `json:"coverage"`
	QualityScore float64            `json:"quality_score"`
	Passed       bool               `json:"passed"`
	Issues       []Issue            `json:"issues,omitempty"`
}

// FlagCounts returns issue counts per code
func (s *Snapshot) FlagCounts() map[string]int {
	counts := make(map[string]int)
	for _, is := range s.Issues {
		counts[is.Code]++
	}
	return counts
}

// Config holds quality gate thresholds
type Config struct {
	MinDeltaCoverage float64 `yaml:"min_delta_coverage"` // 0.90
	MinIVCoverage    float64 `yaml:"min_iv_coverage"`    // 0.90
	MinQuoteCoverage float64 `yaml:"min_quote_coverage"` // 0.80
	MinScore         float64 `yaml:"min_score"`          // 0.80
}

// DefaultConfig returns the default thresholds
func DefaultConfig() Config {
	return Config{
		MinDeltaCoverage: 0.90,
		MinIVCoverage:    0.90,
		MinQuoteCoverage: 0.80,
		MinScore:         0.80,
	}
}

// QualityGate validates option chain quality
type QualityGate struct {
	config Config
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(config Config) *QualityGate {
	return &QualityGate{config: config}
}

// Check flags suspicious options and scores the chain
// ⭐ SSOT: S0 → S1 품질 검증
//
// Flags are informational: sign-mismatched deltas stay in the chain and
// the builder decides what to do with them.
func (g *QualityGate) Check(options []contracts.Option, asOf time.Time) *Snapshot {
	snapshot := &Snapshot{
		AsOf:         contracts.DateOf(asOf),
		TotalOptions: len(options),
		Coverage:     make(map[string]float64),
	}
	if len(options) > 0 {
		snapshot.Ticker = options[0].Ticker
	}

	var withDelta, withIV, withQuote int
	for _, o := range options {
		issues := validateOption(o, snapshot.AsOf)
		if len(issues) == 0 {
			snapshot.CleanOptions++
		}
		snapshot.Issues = append(snapshot.Issues, issues...)

		if o.HasDelta() {
			withDelta++
		}
		if o.ImpliedVol > 0 {
			withIV++
		}
		if o.Bid > 0 && o.Ask >= o.Bid {
			withQuote++
		}
	}

	// 1. 커버리지
	snapshot.Coverage["delta"] = ratio(withDelta, len(options))
	snapshot.Coverage["iv"] = ratio(withIV, len(options))
	snapshot.Coverage["quote"] = ratio(withQuote, len(options))
	snapshot.Coverage["clean"] = ratio(snapshot.CleanOptions, len(options))

	// 2. 품질 점수
	snapshot.QualityScore = g.calculateScore(snapshot.Coverage)
	snapshot.Passed = g.passed(snapshot)

	return snapshot
}

func (g *QualityGate) passed(s *Snapshot) bool {
	return s.TotalOptions > 0 &&
		s.Coverage["delta"] >= g.config.MinDeltaCoverage &&
		s.Coverage["iv"] >= g.config.MinIVCoverage &&
		s.Coverage["quote"] >= g.config.MinQuoteCoverage &&
		s.QualityScore >= g.config.MinScore
}

// calculateScore calculates overall quality score using weighted average
func (g *QualityGate) calculateScore(coverage map[string]float64) float64 {
	// 가중치 (합계 = 1.0)
	weights := map[string]float64{
		"delta": 0.35, // 숏 레그 선택에 필수
		"iv":    0.25, // IV rank / 예상 변동폭
		"quote": 0.25, // 크레딧 계산
		"clean": 0.15,
	}

	score := 0.0
	for key, weight := range weights {
		if cov, exists := coverage[key]; exists {
			score += cov * weight
		}
	}

	return score
}

// validateOption returns every issue found on one option
func validateOption(o contracts.Option, asOf time.Time) []Issue {
	var issues []Issue
	add := func(code, detail string) {
		issues = append(issues, Issue{Option: o.String(), Code: code, Detail: detail})
	}

	if o.DeltaSignMismatch() {
		add(FlagDeltaSign, fmt.Sprintf("%s with delta %.4f", o.Type, *o.Delta))
	}
	if o.Delta != nil && math.Abs(*o.Delta) > 1 {
		add(FlagDeltaRange, fmt.Sprintf("|delta| %.4f > 1", math.Abs(*o.Delta)))
	}
	if o.Gamma != nil && *o.Gamma < 0 {
		add(FlagNegativeGamma, fmt.Sprintf("gamma %.4f", *o.Gamma))
	}
	if o.Vega != nil && *o.Vega < 0 {
		add(FlagNegativeVega, fmt.Sprintf("vega %.4f", *o.Vega))
	}
	if o.Bid == 0 {
		add(FlagZeroBid, "no bid")
	}
	if o.ImpliedVol <= 0 {
		add(FlagMissingIV, "implied vol missing")
	}
	if !asOf.IsZero() && o.DTE(asOf) < 0 {
		add(FlagExpired, fmt.Sprintf("expired %s", o.Expiration.Format(contracts.DateLayout)))
	}

	return issues
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
