package contracts

import (
	"fmt"
	"math"
	"time"
)

// ContractMultiplier is the number of shares per contract
const ContractMultiplier = 100.0

// creditEpsilon absorbs float noise when comparing credit to wing width
const creditEpsilon = 1e-9

// IronCondor is a short put spread plus a short call spread on one expiration
// ⭐ SSOT: S1 → S2 후보 전달
//
//	LongPut.Strike < ShortPut.Strike < ShortCall.Strike < LongCall.Strike
//
// Only NewIronCondor should build one; every invariant is checked there.
type IronCondor struct {
	LongPut   Option `json:"long_put"`
	ShortPut  Option `json:"short_put"`
	ShortCall Option `json:"short_call"`
	LongCall  Option `json:"long_call"`
}

// NewIronCondor validates the four legs and returns the position
func NewIronCondor(longPut, shortPut, shortCall, longCall Option) (IronCondor, error) {
	ic := IronCondor{LongPut: longPut, ShortPut: shortPut, ShortCall: shortCall, LongCall: longCall}

	if longPut.Type != OptionPut || shortPut.Type != OptionPut {
		return IronCondor{}, &RejectionError{Reason: RejectLegType, Message: "put legs must be puts"}
	}
	if shortCall.Type != OptionCall || longCall.Type != OptionCall {
		return IronCondor{}, &RejectionError{Reason: RejectLegType, Message: "call legs must be calls"}
	}

	for _, leg := range ic.Legs() {
		if leg.Ticker != shortPut.Ticker {
			return IronCondor{}, &RejectionError{Reason: RejectMixedUnderlying, Message: fmt.Sprintf("%s vs %s", leg.Ticker, shortPut.Ticker)}
		}
		if !DateOf(leg.Expiration).Equal(DateOf(shortPut.Expiration)) {
			return IronCondor{}, &RejectionError{Reason: RejectMixedExpiration, Message: fmt.Sprintf("%s vs %s",
				leg.Expiration.Format(DateLayout), shortPut.Expiration.Format(DateLayout))}
		}
	}

	if !(longPut.Strike < shortPut.Strike && shortPut.Strike < shortCall.Strike && shortCall.Strike < longCall.Strike) {
		return IronCondor{}, &RejectionError{Reason: RejectStrikeOrder, Message: fmt.Sprintf("strikes %g/%g/%g/%g not strictly increasing",
			longPut.Strike, shortPut.Strike, shortCall.Strike, longCall.Strike)}
	}
	if ic.PutWingWidth() <= 0 || ic.CallWingWidth() <= 0 {
		return IronCondor{}, &RejectionError{Reason: RejectWingWidth, Message: "wing widths must be > 0"}
	}

	credit := ic.NetCredit()
	if credit <= 0 {
		return IronCondor{}, &RejectionError{Reason: RejectNonPositiveCredit, Message: fmt.Sprintf("net credit %.4f", credit)}
	}

	// 무위험 차익 방지: max profit <= each wing * 100
	maxProfit := ic.MaxProfit()
	if maxProfit > ic.PutWingWidth()*ContractMultiplier+creditEpsilon ||
		maxProfit > ic.CallWingWidth()*ContractMultiplier+creditEpsilon {
		return IronCondor{}, &RejectionError{Reason: RejectCreditExceedsWidth, Message: fmt.Sprintf("max profit %.2f exceeds wing width (put %g, call %g)",
			maxProfit, ic.PutWingWidth(), ic.CallWingWidth())}
	}

	return ic, nil
}

// Legs returns the legs in strike order
func (ic IronCondor) Legs() [4]Option {
	return [4]Option{ic.LongPut, ic.ShortPut, ic.ShortCall, ic.LongCall}
}

// Ticker returns the shared underlying
func (ic IronCondor) Ticker() string {
	return ic.ShortPut.Ticker
}

// Expiration returns the shared expiration date
func (ic IronCondor) Expiration() time.Time {
	return ic.ShortPut.Expiration
}

func (ic IronCondor) PutWingWidth() float64 {
	return ic.ShortPut.Strike - ic.LongPut.Strike
}

func (ic IronCondor) CallWingWidth() float64 {
	return ic.LongCall.Strike - ic.ShortCall.Strike
}

// NetCredit = short mids - long mids, per share
func (ic IronCondor) NetCredit() float64 {
	return ic.ShortPut.Mid() + ic.ShortCall.Mid() - ic.LongPut.Mid() - ic.LongCall.Mid()
}

// MaxProfit is the credit per contract
func (ic IronCondor) MaxProfit() float64 {
	return ic.NetCredit() * ContractMultiplier
}

// MaxLoss uses the wider wing; only one side can finish in the money
func (ic IronCondor) MaxLoss() float64 {
	return (math.Max(ic.PutWingWidth(), ic.CallWingWidth()) - ic.NetCredit()) * ContractMultiplier
}

func (ic IronCondor) BreakevenLower() float64 {
	return ic.ShortPut.Strike - ic.NetCredit()
}

func (ic IronCondor) BreakevenUpper() float64 {
	return ic.ShortCall.Strike + ic.NetCredit()
}

// IsSymmetric reports equal wing widths
func (ic IronCondor) IsSymmetric() bool {
	return math.Abs(ic.PutWingWidth()-ic.CallWingWidth()) < creditEpsilon
}

// Key identifies the position, e.g. "SPY 2024-03-15 480/485/515/520"
func (ic IronCondor) Key() string {
	return fmt.Sprintf("%s %s %g/%g/%g/%g", ic.Ticker(), ic.Expiration().Format(DateLayout),
		ic.LongPut.Strike, ic.ShortPut.Strike, ic.ShortCall.Strike, ic.LongCall.Strike)
}
