package s2_analytics

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/wonny/condor/internal/contracts"
)

// IVRank positions current within [min, max] of history, in percent
//
// One sample or a zero range defines the rank as 100: current is itself the
// extremum. Empty history is a DataError.
func IVRank(current float64, history []float64) (float64, error) {
	if len(history) == 0 {
		return 0, &contracts.DataError{Op: "iv_rank", Message: "historical IVs are empty"}
	}

	lo, err := stats.Min(history)
	if err != nil {
		return 0, fmt.Errorf("iv_rank min: %w", err)
	}
	hi, err := stats.Max(history)
	if err != nil {
		return 0, fmt.Errorf("iv_rank max: %w", err)
	}

	if len(history) == 1 || hi == lo {
		return 100, nil
	}

	return clamp((current-lo)/(hi-lo)*100, 0, 100), nil
}

// IVPercentile is the share of history at or below current, in percent
func IVPercentile(current float64, history []float64) (float64, error) {
	if len(history) == 0 {
		return 0, &contracts.DataError{Op: "iv_percentile", Message: "historical IVs are empty"}
	}

	below := 0
	for _, h := range history {
		if h <= current {
			below++
		}
	}
	return float64(below) / float64(len(history)) * 100, nil
}

// RangeMode selects the range term of the Garman–Klass estimator
type RangeMode string

const (
	// RangePrevClose uses ln(H / previous close); the first bar only seeds C_prev
	RangePrevClose RangeMode = "prev_close"
	// RangeHighLow uses the classic ln(H / L)
	RangeHighLow RangeMode = "high_low"
)

var gkCloseCoef = 2*math.Ln2 - 1

// GarmanKlass returns annualized realized volatility from daily bars
//
//	σ² = mean(0.5·(ln(H/X))² − (2ln2−1)·(ln(C/O))²),  X = C_prev or L
//
// Invalid bars are skipped. Returns false when no bar contributes.
func GarmanKlass(bars []contracts.OHLC, mode RangeMode, periodsPerYear float64) (float64, bool) {
	terms := make([]float64, 0, len(bars))
	prevClose := 0.0

	for _, b := range bars {
		if !b.IsValid() {
			continue
		}

		var rangeTerm float64
		switch mode {
		case RangeHighLow:
			rangeTerm = math.Log(b.High / b.Low)
		default:
			if prevClose <= 0 {
				prevClose = b.Close
				continue
			}
			rangeTerm = math.Log(b.High / prevClose)
		}
		prevClose = b.Close

		co := math.Log(b.Close / b.Open)
		terms = append(terms, 0.5*rangeTerm*rangeTerm-gkCloseCoef*co*co)
	}

	if len(terms) == 0 {
		return 0, false
	}

	variance, err := stats.Mean(terms)
	if err != nil {
		return 0, false
	}
	// per-bar estimates can be negative; the variance cannot
	return math.Sqrt(math.Max(variance, 0) * periodsPerYear), true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
