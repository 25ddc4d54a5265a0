package s2_analytics

import (
	"math"
	"time"

	"github.com/wonny/condor/internal/contracts"
)

// BlackScholes fills missing deltas from the Black–Scholes model
// It is only a fallback for absent quotes, not a pricer.
type BlackScholes struct {
	RiskFreeRate float64
}

var _ contracts.GreeksProvider = BlackScholes{}

// Delta returns N(d1) for calls and N(d1)-1 for puts
func (bs BlackScholes) Delta(opt contracts.Option, spot float64, asOf time.Time) (float64, bool) {
	t := float64(opt.DTE(asOf)) / 365.0
	sigma := opt.ImpliedVol
	if spot <= 0 || opt.Strike <= 0 || t <= 0 || sigma <= 0 {
		return 0, false
	}

	d1 := (math.Log(spot/opt.Strike) + (bs.RiskFreeRate+sigma*sigma/2)*t) / (sigma * math.Sqrt(t))

	switch opt.Type {
	case contracts.OptionCall:
		return normCDF(d1), true
	case contracts.OptionPut:
		return normCDF(d1) - 1, true
	default:
		return 0, false
	}
}

func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}
