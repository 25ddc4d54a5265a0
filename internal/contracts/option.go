package contracts

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// OptionType is the closed set of option kinds
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// ParseOptionType accepts "call"/"put" and the common one-letter forms
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return OptionCall, nil
	case "put", "p":
		return OptionPut, nil
	default:
		return "", fmt.Errorf("unknown option type %q", s)
	}
}

// IsValid reports whether t is one of the two option kinds
func (t OptionType) IsValid() bool {
	return t == OptionCall || t == OptionPut
}

// Option is a single listed contract quote
// ⭐ SSOT: S0 → S1 옵션 체인 레코드
//
// Greeks, IV rank/percentile and last price are optional and stay nil
// when the source did not provide them. A delta whose sign disagrees with
// the option type is kept as-is and only flagged.
type Option struct {
	Ticker       string     `json:"ticker"`
	Strike       float64    `json:"strike"`
	Expiration   time.Time  `json:"expiration"`
	Type         OptionType `json:"option_type"`
	Bid          float64    `json:"bid"`
	Ask          float64    `json:"ask"`
	Last         *float64   `json:"last,omitempty"`
	Volume       int64      `json:"volume"`
	OpenInterest int64      `json:"open_interest"`
	Delta        *float64   `json:"delta,omitempty"`
	Gamma        *float64   `json:"gamma,omitempty"`
	Theta        *float64   `json:"theta,omitempty"`
	Vega         *float64   `json:"vega,omitempty"`
	ImpliedVol   float64    `json:"implied_vol"`
	IVRank       *float64   `json:"iv_rank,omitempty"`
	IVPercentile *float64   `json:"iv_percentile,omitempty"`
}

// NewOption validates the quote invariants and returns the option
func NewOption(o Option) (Option, error) {
	o.Ticker = strings.ToUpper(strings.TrimSpace(o.Ticker))
	o.Expiration = DateOf(o.Expiration)

	switch {
	case o.Ticker == "":
		return Option{}, &DataError{Op: "option", Message: "ticker is required"}
	case !(o.Strike > 0):
		return Option{}, &DataError{Op: "option", Message: fmt.Sprintf("%s strike must be > 0, got %v", o.Ticker, o.Strike)}
	case !o.Type.IsValid():
		return Option{}, &DataError{Op: "option", Message: fmt.Sprintf("%s invalid option type %q", o.Ticker, o.Type)}
	case o.Bid < 0 || o.Ask < 0:
		return Option{}, &DataError{Op: "option", Message: fmt.Sprintf("%s %v%s negative quote", o.Ticker, o.Strike, o.Type)}
	case o.Bid > o.Ask:
		return Option{}, &DataError{Op: "option", Message: fmt.Sprintf("%s %v%s crossed quote bid=%v ask=%v", o.Ticker, o.Strike, o.Type, o.Bid, o.Ask)}
	case o.Volume < 0 || o.OpenInterest < 0:
		return Option{}, &DataError{Op: "option", Message: fmt.Sprintf("%s %v%s negative volume/open interest", o.Ticker, o.Strike, o.Type)}
	case o.ImpliedVol < 0 || math.IsNaN(o.ImpliedVol):
		return Option{}, &DataError{Op: "option", Message: fmt.Sprintf("%s %v%s invalid implied vol", o.Ticker, o.Strike, o.Type)}
	}

	return o, nil
}

// Mid returns (bid+ask)/2
func (o Option) Mid() float64 {
	return (o.Bid + o.Ask) / 2
}

// SpreadPct returns (ask-bid)/mid as a fraction, +Inf when mid <= 0
func (o Option) SpreadPct() float64 {
	mid := o.Mid()
	if mid <= 0 {
		return math.Inf(1)
	}
	return (o.Ask - o.Bid) / mid
}

// DTE returns whole calendar days from asOf to expiration
func (o Option) DTE(asOf time.Time) int {
	return DaysBetween(asOf, o.Expiration)
}

// HasDelta reports whether a delta is present
func (o Option) HasDelta() bool {
	return o.Delta != nil && !math.IsNaN(*o.Delta)
}

// DeltaSignMismatch flags calls with negative delta and puts with positive delta
func (o Option) DeltaSignMismatch() bool {
	if !o.HasDelta() {
		return false
	}
	d := *o.Delta
	if o.Type == OptionCall {
		return d < 0
	}
	return d > 0
}

// String is used in logs
func (o Option) String() string {
	suffix := "?"
	if o.Type != "" {
		suffix = strings.ToUpper(string(o.Type)[:1])
	}
	return fmt.Sprintf("%s %s %g%s", o.Ticker, o.Expiration.Format(DateLayout), o.Strike, suffix)
}

// DateLayout is the canonical calendar date format
const DateLayout = "2006-01-02"

// DateOf truncates t to its calendar date in UTC
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b
func DaysBetween(a, b time.Time) int {
	return int(math.Round(DateOf(b).Sub(DateOf(a)).Hours() / 24))
}

// Float64 returns a pointer to v, for optional fields
func Float64(v float64) *float64 {
	return &v
}
