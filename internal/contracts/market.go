package contracts

import "time"

// OHLC is one daily bar of the underlying
type OHLC struct {
	Date  time.Time `json:"date"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// IsValid rejects bars that would break log-range estimators
func (b OHLC) IsValid() bool {
	return b.Open > 0 && b.High > 0 && b.Low > 0 && b.Close > 0 && b.High >= b.Low
}

// MarketContext is the underlying-level input to the analytics stage
//
// Chain is optional; when present the ATM straddle is taken from it rather
// than from the condor's own legs.
type MarketContext struct {
	AsOf          time.Time  `json:"as_of"`
	Spot          float64    `json:"spot"`
	HistoricalIVs []float64  `json:"historical_ivs"`
	EarningsDate  *time.Time `json:"earnings_date,omitempty"`
	OHLC          []OHLC     `json:"ohlc,omitempty"`
	Chain         []Option   `json:"-"`
}
