package s2_analytics

import (
	"math"

	"github.com/wonny/condor/internal/contracts"
)

// ATMPair is the call and put nearest to spot on one expiration
type ATMPair struct {
	Call *contracts.Option
	Put  *contracts.Option
}

// FindATM scans candidates of the condor's ticker and expiration
// Ties in distance resolve to the lower strike.
func FindATM(candidates []contracts.Option, ic contracts.IronCondor, spot float64) ATMPair {
	var pair ATMPair
	callDist, putDist := math.Inf(1), math.Inf(1)
	exp := contracts.DateOf(ic.Expiration())

	for i := range candidates {
		o := candidates[i]
		if o.Ticker != ic.Ticker() || !contracts.DateOf(o.Expiration).Equal(exp) {
			continue
		}
		dist := math.Abs(o.Strike - spot)

		switch o.Type {
		case contracts.OptionCall:
			if dist < callDist || (dist == callDist && o.Strike < pair.Call.Strike) {
				callDist, pair.Call = dist, &o
			}
		case contracts.OptionPut:
			if dist < putDist || (dist == putDist && o.Strike < pair.Put.Strike) {
				putDist, pair.Put = dist, &o
			}
		}
	}
	return pair
}

// StraddleMove = (call.mid + put.mid) * discount
func StraddleMove(atm ATMPair, discount float64) (float64, bool) {
	if atm.Call == nil || atm.Put == nil {
		return 0, false
	}
	return (atm.Call.Mid() + atm.Put.Mid()) * discount, true
}

// IVMove = spot * iv * sqrt(dte/365)
func IVMove(spot, iv float64, dte int) float64 {
	if dte <= 0 || iv <= 0 || spot <= 0 {
		return 0
	}
	return spot * iv * math.Sqrt(float64(dte)/365.0)
}

// atmIV averages the IVs of the ATM pair, false when neither has one
func atmIV(atm ATMPair) (float64, bool) {
	sum, n := 0.0, 0
	for _, o := range []*contracts.Option{atm.Call, atm.Put} {
		if o != nil && o.ImpliedVol > 0 {
			sum += o.ImpliedVol
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
