package selection

import (
	"math"
	"sort"

	"github.com/wonny/condor/internal/contracts"
	"github.com/wonny/condor/internal/strategyconfig"
	"github.com/wonny/condor/pkg/logger"
)

// Ranker implements S4: batch-normalized composite scoring and ranking
// ⭐ SSOT: S4 랭킹 로직은 여기서만
//
// Normalization bounds are computed from the batch passed to each Rank
// call, so composite scores compare candidates within one call only.
// Never compare scores across runs or tickers.
type Ranker struct {
	logger *logger.Logger
}

// NewRanker creates a new ranker
func NewRanker(log *logger.Logger) *Ranker {
	if log == nil {
		log = logger.Nop()
	}
	return &Ranker{logger: log}
}

// factor extracts one raw score input; ok=false means unavailable
type factor func(a *contracts.Analytics) (float64, bool)

var (
	factorReturnOnRisk = func(a *contracts.Analytics) (float64, bool) {
		return a.ReturnOnRisk, true
	}
	factorPoP = func(a *contracts.Analytics) (float64, bool) {
		if a.ProbabilityOfProfit == nil {
			return 0, false
		}
		return *a.ProbabilityOfProfit, true
	}
	// 숏 행사가 거리 / 예상 변동폭 (클수록 안전)
	factorExpectedMoveSafety = func(a *contracts.Analytics) (float64, bool) {
		move := a.ExpectedMove()
		if !(move > 0) {
			return 0, false
		}
		return a.ShortStrikeDistance() / move, true
	}
	factorLiquidity = func(a *contracts.Analytics) (float64, bool) {
		return a.LiquidityScore, true
	}
	factorIVRank = func(a *contracts.Analytics) (float64, bool) {
		return a.IVRank, true
	}
)

// Rank scores and orders a batch
//
// Every factor is min-max scaled over the whole batch before truncation.
// A factor with zero range scores 1.0; an unavailable factor scores 0 and
// does not move the bounds. Ties break on higher return on risk, then
// nearer expiration, then input order. topN <= 0 keeps everything.
// The input is not modified; repeated calls return identical order.
func (r *Ranker) Rank(batch []contracts.Analytics, cfg strategyconfig.Scoring, topN int) ([]contracts.Analytics, error) {
	if err := strategyconfig.ValidateScoring(cfg); err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return []contracts.Analytics{}, nil
	}

	ranked := make([]contracts.Analytics, len(batch))
	copy(ranked, batch)

	ror := normalize(ranked, factorReturnOnRisk)
	pop := normalize(ranked, factorPoP)
	ems := normalize(ranked, factorExpectedMoveSafety)
	liq := normalize(ranked, factorLiquidity)
	ivr := normalize(ranked, factorIVRank)

	w := cfg.Weights
	for i := range ranked {
		detail := &contracts.ScoreDetail{
			ReturnOnRisk:        ror[i],
			ProbabilityOfProfit: pop[i],
			ExpectedMoveSafety:  ems[i],
			Liquidity:           liq[i],
			IVRank:              ivr[i],
		}
		composite := w.ReturnOnRisk*detail.ReturnOnRisk +
			w.ProbabilityOfProfit*detail.ProbabilityOfProfit +
			w.ExpectedMoveSafety*detail.ExpectedMoveSafety +
			w.Liquidity*detail.Liquidity +
			w.IVRank*detail.IVRank
		composite = math.Max(0, math.Min(1, composite))

		ranked[i].Scores = detail
		ranked[i].CompositeScore = &composite
	}

	// 정렬 (결정적 tie-break)
	order := make([]int, len(ranked))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return less(&ranked[order[i]], &ranked[order[j]], order[i], order[j])
	})

	if topN <= 0 || topN > len(order) {
		topN = len(order)
	}
	out := make([]contracts.Analytics, topN)
	for i := 0; i < topN; i++ {
		out[i] = ranked[order[i]]
		out[i].Rank = i + 1
	}

	r.logger.WithFields(map[string]interface{}{
		"total_input": len(batch),
		"returned":    len(out),
		"top_score":   out[0].Score(),
	}).Info("Ranking completed")

	return out, nil
}

// less orders by composite desc, return on risk desc, expiration asc, index asc
func less(a, b *contracts.Analytics, ia, ib int) bool {
	if sa, sb := a.Score(), b.Score(); sa != sb {
		return sa > sb
	}
	if a.ReturnOnRisk != b.ReturnOnRisk {
		return a.ReturnOnRisk > b.ReturnOnRisk
	}
	if ea, eb := a.Condor.Expiration(), b.Condor.Expiration(); !ea.Equal(eb) {
		return ea.Before(eb)
	}
	return ia < ib
}

// normalize min-max scales f over the batch
func normalize(batch []contracts.Analytics, f factor) []float64 {
	values := make([]float64, len(batch))
	available := make([]bool, len(batch))
	lo, hi := math.Inf(1), math.Inf(-1)

	for i := range batch {
		v, ok := f(&batch[i])
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		values[i], available[i] = v, true
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	out := make([]float64, len(batch))
	for i := range batch {
		switch {
		case !available[i]:
			out[i] = 0
		case hi == lo:
			out[i] = 1.0
		default:
			out[i] = (values[i] - lo) / (hi - lo)
		}
	}
	return out
}
