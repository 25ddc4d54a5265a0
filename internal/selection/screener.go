package selection

import (
	"fmt"
	"strings"

	"github.com/maja42/goval"

	"github.com/wonny/condor/internal/contracts"
	"github.com/wonny/condor/internal/metrics"
	"github.com/wonny/condor/internal/strategyconfig"
	"github.com/wonny/condor/pkg/logger"
)

// Screen reject reasons
const (
	FilterMaxLoss         = "max_loss"
	FilterPoP             = "probability_of_profit"
	FilterPreEarnings     = "pre_earnings"
	FilterExpression      = "expression"
	FilterExpressionError = "expression_error"
)

// Screener implements S3: candidate-level Hard Cut filtering
// ⭐ SSOT: S3 스크리닝 로직은 여기서만
type Screener struct {
	config  strategyconfig.Filter
	eval    *goval.Evaluator
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// ScreenReport counts what the screener removed
type ScreenReport struct {
	TotalInput int            `json:"total_input"`
	Passed     int            `json:"passed"`
	Filtered   map[string]int `json:"filtered"`
}

// NewScreener creates a screener
//
// A filter expression that does not parse, or does not produce a boolean
// for a sample candidate, is a ConfigurationError.
func NewScreener(config strategyconfig.Filter, log *logger.Logger, m *metrics.Metrics) (*Screener, error) {
	if err := strategyconfig.ValidateFilter(config); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	s := &Screener{
		config:  config,
		eval:    goval.NewEvaluator(),
		logger:  log,
		metrics: m,
	}

	if strings.TrimSpace(config.Expression) != "" {
		if _, err := s.evaluate(contracts.Analytics{}); err != nil {
			return nil, &contracts.ConfigurationError{Field: "filter.expression", Message: err.Error()}
		}
	}

	return s, nil
}

// Screen applies hard cuts in input order; the input slice is not modified
func (s *Screener) Screen(batch []contracts.Analytics) ([]contracts.Analytics, ScreenReport) {
	report := ScreenReport{
		TotalInput: len(batch),
		Filtered:   make(map[string]int),
	}

	passed := make([]contracts.Analytics, 0, len(batch))
	for _, a := range batch {
		reason := s.checkConditions(a)
		if reason != "" {
			report.Filtered[reason]++
			s.metrics.Rejected(contracts.StageScreener, reason)
			continue
		}
		passed = append(passed, a)
	}
	report.Passed = len(passed)

	s.logger.WithFields(map[string]interface{}{
		"total_input":  report.TotalInput,
		"passed":       report.Passed,
		"filtered_out": report.TotalInput - report.Passed,
		"filters":      report.Filtered,
	}).Info("Screening completed")

	return passed, report
}

// checkConditions returns "" when a passes every cut, otherwise the filter name
func (s *Screener) checkConditions(a contracts.Analytics) string {
	// Max loss cap ($ per contract)
	if s.config.MaxLossCap != nil && a.MaxLoss > *s.config.MaxLossCap {
		return FilterMaxLoss
	}

	// PoP 최소값 (PoP 없으면 탈락)
	if floor := s.config.MinProbabilityOfProfit; floor != nil {
		if a.ProbabilityOfProfit == nil || *a.ProbabilityOfProfit < *floor {
			return FilterPoP
		}
	}

	// 실적 발표 관통 제외
	if s.config.ExcludePreEarnings && a.IsPreEarnings {
		return FilterPreEarnings
	}

	if strings.TrimSpace(s.config.Expression) != "" {
		ok, err := s.evaluate(a)
		if err != nil {
			s.logger.WithError(err).WithField("condor", a.Condor.Key()).Warn("filter expression failed")
			return FilterExpressionError
		}
		if !ok {
			return FilterExpression
		}
	}

	return ""
}

func (s *Screener) evaluate(a contracts.Analytics) (bool, error) {
	result, err := s.eval.Evaluate(s.config.Expression, Variables(a), nil)
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", s.config.Expression, err)
	}
	ok, isBool := result.(bool)
	if !isBool {
		return false, fmt.Errorf("expression %q must be boolean, got %T", s.config.Expression, result)
	}
	return ok, nil
}

// Variables exposes one candidate to the filter expression
//
// Unavailable optional metrics read as 0; use pop_available / rv_available
// to tell them apart.
func Variables(a contracts.Analytics) map[string]interface{} {
	pop, popOK := 0.0, a.ProbabilityOfProfit != nil
	if popOK {
		pop = *a.ProbabilityOfProfit
	}
	rv, rvOK := 0.0, a.RealizedVol != nil
	if rvOK {
		rv = *a.RealizedVol
	}
	ivToRV := 0.0
	if a.IVToRVRatio != nil {
		ivToRV = *a.IVToRVRatio
	}

	return map[string]interface{}{
		"ticker":                a.Condor.ShortPut.Ticker,
		"spot":                  a.Spot,
		"dte":                   float64(a.DTE),
		"net_credit":            a.NetCredit,
		"max_profit":            a.MaxProfit,
		"max_loss":              a.MaxLoss,
		"return_on_risk":        a.ReturnOnRisk,
		"probability_of_profit": pop,
		"pop_available":         popOK,
		"expected_move":         a.ExpectedMove(),
		"current_iv":            a.CurrentIV,
		"iv_rank":               a.IVRank,
		"iv_percentile":         a.IVPercentile,
		"realized_vol":          rv,
		"rv_available":          rvOK,
		"iv_to_rv":              ivToRV,
		"distance_pct":          a.DistancePct,
		"liquidity_score":       a.LiquidityScore,
		"is_pre_earnings":       a.IsPreEarnings,
		"put_wing_width":        a.Condor.PutWingWidth(),
		"call_wing_width":       a.Condor.CallWingWidth(),
	}
}
