package s0_data

import (
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/wonny/condor/internal/contracts"
	"github.com/wonny/condor/internal/metrics"
	"github.com/wonny/condor/internal/strategyconfig"
	"github.com/wonny/condor/pkg/logger"
)

// Option-level reject reasons
const (
	RejectIVRank       = "iv_rank"
	RejectIVPercentile = "iv_percentile"
	RejectWideSpread   = "wide_spread"
	RejectLowOI        = "low_oi"
	RejectNoVolume     = "no_volume"
)

// FilterResult is the output of the S0 hard filter
type FilterResult struct {
	Passed []contracts.Option `json:"-"`
	Total  int                `json:"total"`

	// ChainRejected is set when an IV gate rejected the entire chain
	ChainRejected string         `json:"chain_rejected,omitempty"`
	Rejected      map[string]int `json:"rejected"`
}

// PassedCount returns the number of options that survived
func (r FilterResult) PassedCount() int {
	return len(r.Passed)
}

// Reasons returns reject reasons sorted by count desc, then name
func (r FilterResult) Reasons() []string {
	reasons := make([]string, 0, len(r.Rejected))
	for reason := range r.Rejected {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool {
		ci, cj := r.Rejected[reasons[i]], r.Rejected[reasons[j]]
		if ci != cj {
			return ci > cj
		}
		return reasons[i] < reasons[j]
	})
	return reasons
}

// Filterer implements the S0 hard filter
// ⭐ SSOT: S0 Hard Cut (체인 IV 게이트 + 옵션별 유동성)
type Filterer struct {
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewFilterer creates a filterer
func NewFilterer(log *logger.Logger, m *metrics.Metrics) *Filterer {
	if log == nil {
		log = logger.Nop()
	}
	return &Filterer{logger: log, metrics: m}
}

// Filter applies chain-level IV gates, then per-option liquidity gates
//
// ivRank and ivPercentile describe the whole underlying: failing either
// rejects every option. The input slice is never modified.
func (f *Filterer) Filter(options []contracts.Option, ivRank, ivPercentile float64, cfg strategyconfig.Filter) FilterResult {
	res := FilterResult{
		Total:    len(options),
		Rejected: make(map[string]int),
	}

	// 1. 체인 단위 IV 게이트
	switch {
	case ivRank < cfg.MinIVRank:
		res.ChainRejected = RejectIVRank
	case ivPercentile < cfg.MinIVPercentile:
		res.ChainRejected = RejectIVPercentile
	}
	if res.ChainRejected != "" {
		res.Rejected[res.ChainRejected] = len(options)
		f.metrics.Rejected(contracts.StageData, res.ChainRejected)
		f.logger.WithFields(map[string]interface{}{
			"iv_rank":       ivRank,
			"iv_percentile": ivPercentile,
			"reason":        res.ChainRejected,
		}).Warn("chain rejected by IV gate")
		return res
	}

	// 2. 옵션별 유동성 게이트
	res.Passed = make([]contracts.Option, 0, len(options))
	for _, o := range options {
		reason := optionRejectReason(o, cfg)
		if reason != "" {
			res.Rejected[reason]++
			f.metrics.Rejected(contracts.StageData, reason)
			continue
		}
		res.Passed = append(res.Passed, o)
	}

	f.logger.WithFields(map[string]interface{}{
		"passed": len(res.Passed),
		"total":  res.Total,
	}).Info("S0 filter complete")
	if len(res.Rejected) > 0 {
		f.logger.Debugf("S0 rejected: %v", res.Rejected)
	}

	return res
}

// optionRejectReason returns "" when the option passes every gate
func optionRejectReason(o contracts.Option, cfg strategyconfig.Filter) string {
	switch {
	case o.SpreadPct() > cfg.MaxBidAskSpreadPct:
		return RejectWideSpread
	case o.OpenInterest < cfg.MinOpenInterest:
		return RejectLowOI
	case o.Volume < cfg.MinVolume:
		return RejectNoVolume
	default:
		return ""
	}
}

// ChainIV returns the mean implied vol of the chain, ignoring zero IVs
func ChainIV(options []contracts.Option) (float64, error) {
	ivs := make([]float64, 0, len(options))
	for _, o := range options {
		if o.ImpliedVol > 0 {
			ivs = append(ivs, o.ImpliedVol)
		}
	}
	if len(ivs) == 0 {
		return 0, &contracts.DataError{Op: "chain_iv", Message: "no option carries an implied vol"}
	}

	mean, err := stats.Mean(ivs)
	if err != nil {
		return 0, fmt.Errorf("chain iv mean: %w", err)
	}
	return mean, nil
}
