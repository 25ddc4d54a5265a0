package s2_analytics

import (
	"math"

	"github.com/wonny/condor/internal/contracts"
	"github.com/wonny/condor/internal/strategyconfig"
)

// LiquidityScore combines spread, open interest and volume of the four legs
//
// Each component takes the WORST leg, so one illiquid leg cannot be hidden
// by three liquid ones:
//
//	spread = max(0, 1 - spread% / max_spread)
//	oi     = min(1, oi / oi_cap)
//	volume = min(1, volume / volume_cap)
func LiquidityScore(ic contracts.IronCondor, m strategyconfig.LiquidityModel) float64 {
	spread, oi, vol := 1.0, 1.0, 1.0

	for _, leg := range ic.Legs() {
		s := 0.0
		if pct := leg.SpreadPct(); !math.IsInf(pct, 1) {
			s = math.Max(0, 1-pct/m.MaxSpreadPct)
		}
		spread = math.Min(spread, s)
		oi = math.Min(oi, math.Min(1, float64(leg.OpenInterest)/m.OICap))
		vol = math.Min(vol, math.Min(1, float64(leg.Volume)/m.VolumeCap))
	}

	return m.SpreadWeight*spread + m.OIWeight*oi + m.VolumeWeight*vol
}
