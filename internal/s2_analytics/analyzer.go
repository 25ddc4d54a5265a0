package s2_analytics

import (
	"errors"
	"iter"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/wonny/condor/internal/contracts"
	"github.com/wonny/condor/internal/metrics"
	"github.com/wonny/condor/internal/strategyconfig"
	"github.com/wonny/condor/pkg/logger"
)

// zeroLossEpsilon treats float residue in max loss as zero
const zeroLossEpsilon = 1e-9

// Analyzer implements S2: per-candidate risk/reward and volatility analytics
// ⭐ SSOT: S2 분석 로직은 여기서만
type Analyzer struct {
	cfg     strategyconfig.Analytics
	greeks  contracts.GreeksProvider
	logger  *logger.Logger
	metrics *metrics.Metrics
}

var _ contracts.CondorAnalyzer = (*Analyzer)(nil)

// NewAnalyzer creates an analyzer; a nil greeks provider means Black–Scholes
func NewAnalyzer(cfg strategyconfig.Analytics, greeks contracts.GreeksProvider, log *logger.Logger, m *metrics.Metrics) *Analyzer {
	if greeks == nil {
		greeks = BlackScholes{RiskFreeRate: cfg.RiskFreeRate}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Analyzer{
		cfg:     cfg,
		greeks:  greeks,
		logger:  log,
		metrics: m,
	}
}

// ValidateContext checks the market inputs every candidate depends on
func ValidateContext(mkt contracts.MarketContext) error {
	if !(mkt.Spot > 0) {
		return &contracts.DataError{Op: "analyze", Message: "spot must be > 0"}
	}
	if mkt.AsOf.IsZero() {
		return &contracts.DataError{Op: "analyze", Message: "as-of date is required"}
	}
	if len(mkt.HistoricalIVs) == 0 {
		return &contracts.DataError{Op: "analyze", Message: "historical IVs are empty"}
	}
	return nil
}

// Analyze derives all metrics for one condor
//
// Missing Greeks degrade to the fallback provider or to an unavailable
// (nil) metric. A malformed market context is a DataError.
func (a *Analyzer) Analyze(ic contracts.IronCondor, mkt contracts.MarketContext) (contracts.Analytics, error) {
	if err := ValidateContext(mkt); err != nil {
		return contracts.Analytics{}, err
	}

	spot := mkt.Spot
	res := contracts.Analytics{
		Condor:         ic,
		Spot:           spot,
		DTE:            ic.ShortPut.DTE(mkt.AsOf),
		NetCredit:      ic.NetCredit(),
		MaxProfit:      ic.MaxProfit(),
		MaxLoss:        ic.MaxLoss(),
		BreakevenLower: ic.BreakevenLower(),
		BreakevenUpper: ic.BreakevenUpper(),
	}

	// 리스크 대비 수익
	if math.Abs(res.MaxLoss) < zeroLossEpsilon {
		res.MaxLoss = 0
		res.ReturnOnRisk = contracts.ReturnOnRiskCap
	} else {
		res.ReturnOnRisk = math.Min(res.MaxProfit/res.MaxLoss*100, contracts.ReturnOnRiskCap)
	}

	res.ProbabilityOfProfit = a.probabilityOfProfit(ic, spot, mkt)

	// IV 위치
	currentIV, err := stats.Mean([]float64{ic.ShortPut.ImpliedVol, ic.ShortCall.ImpliedVol})
	if err != nil {
		return contracts.Analytics{}, &contracts.DataError{Op: "analyze", Message: err.Error()}
	}
	res.CurrentIV = currentIV
	if res.IVRank, err = IVRank(currentIV, mkt.HistoricalIVs); err != nil {
		return contracts.Analytics{}, err
	}
	if res.IVPercentile, err = IVPercentile(currentIV, mkt.HistoricalIVs); err != nil {
		return contracts.Analytics{}, err
	}

	// 예상 변동폭
	source := mkt.Chain
	if len(source) == 0 {
		legs := ic.Legs()
		source = legs[:]
	}
	atm := FindATM(source, ic, spot)
	if move, ok := StraddleMove(atm, a.cfg.StraddleDiscount); ok {
		res.ExpectedMoveStraddle = &move
	}
	moveIV, ok := atmIV(atm)
	if !ok {
		moveIV = currentIV
	}
	res.ExpectedMoveIV = IVMove(spot, moveIV, res.DTE)

	// 실현 변동성
	if len(mkt.OHLC) > 0 {
		if rv, ok := GarmanKlass(mkt.OHLC, RangeMode(a.cfg.GarmanKlassRange), a.cfg.TradingDaysPerYear); ok {
			res.RealizedVol = &rv
			if rv > 0 {
				ratio := currentIV / rv
				res.IVToRVRatio = &ratio
			}
		}
	}

	// 숏 행사가 거리
	res.PutDistancePct = math.Abs(spot-ic.ShortPut.Strike) / spot * 100
	res.CallDistancePct = math.Abs(spot-ic.ShortCall.Strike) / spot * 100
	res.DistancePct = math.Min(res.PutDistancePct, res.CallDistancePct)

	res.LiquidityScore = LiquidityScore(ic, a.cfg.Liquidity)

	if mkt.EarningsDate != nil {
		earnings := contracts.DateOf(*mkt.EarningsDate)
		res.EarningsDate = &earnings
		days := contracts.DaysBetween(ic.Expiration(), earnings)
		res.IsPreEarnings = days >= 0 && days <= a.cfg.PreEarningsWindowDays
	}

	return res, nil
}

// probabilityOfProfit = clamp(1 - |Δsp| - |Δsc|, 0, 1), nil when a delta is unavailable
func (a *Analyzer) probabilityOfProfit(ic contracts.IronCondor, spot float64, mkt contracts.MarketContext) *float64 {
	sp, ok := a.delta(ic.ShortPut, spot, mkt)
	if !ok {
		return nil
	}
	sc, ok := a.delta(ic.ShortCall, spot, mkt)
	if !ok {
		return nil
	}
	pop := clamp(1-math.Abs(sp)-math.Abs(sc), 0, 1)
	return &pop
}

func (a *Analyzer) delta(o contracts.Option, spot float64, mkt contracts.MarketContext) (float64, bool) {
	if o.HasDelta() {
		return *o.Delta, true
	}
	d, ok := a.greeks.Delta(o, spot, mkt.AsOf)
	if ok {
		a.logger.WithField("option", o.String()).Debug("delta filled from model")
	}
	return d, ok
}

// AnalyzeAll drains a candidate sequence
//
// A malformed market context fails before anything is pulled. Per-candidate
// data errors are logged, counted and skipped.
func (a *Analyzer) AnalyzeAll(candidates iter.Seq[contracts.IronCondor], mkt contracts.MarketContext) ([]contracts.Analytics, error) {
	if err := ValidateContext(mkt); err != nil {
		a.metrics.DataError(contracts.StageAnalytics)
		return nil, err
	}

	out := make([]contracts.Analytics, 0)
	for ic := range candidates {
		res, err := a.Analyze(ic, mkt)
		if err != nil {
			var dataErr *contracts.DataError
			if !errors.As(err, &dataErr) {
				return nil, err
			}
			a.metrics.DataError(contracts.StageAnalytics)
			a.logger.WithError(err).WithField("condor", ic.Key()).Warn("analytics skipped")
			continue
		}
		out = append(out, res)
	}
	return out, nil
}
