package s2_analytics

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/condor/internal/contracts"
	"github.com/wonny/condor/internal/strategyconfig"
)

func TestIVRank(t *testing.T) {
	history := []float64{0.10, 0.20, 0.30}

	tests := []struct {
		name    string
		current float64
		history []float64
		want    float64
	}{
		{"midpoint", 0.20, history, 50},
		{"below min clamps", 0.05, history, 0},
		{"above max clamps", 0.50, history, 100},
		{"single sample", 0.25, []float64{0.25}, 100},
		{"single sample other value", 0.10, []float64{0.25}, 100},
		{"zero range", 0.15, []float64{0.2, 0.2, 0.2}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IVRank(tt.current, tt.history)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestIVRank_Monotonic(t *testing.T) {
	history := []float64{0.12, 0.31, 0.18, 0.25, 0.15}
	prev := -1.0
	for cur := 0.0; cur <= 0.5; cur += 0.01 {
		got, err := IVRank(cur, history)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
}

func TestIVRank_EmptyHistory(t *testing.T) {
	_, err := IVRank(0.2, nil)
	var dataErr *contracts.DataError
	assert.True(t, errors.As(err, &dataErr))

	_, err = IVPercentile(0.2, []float64{})
	assert.True(t, errors.As(err, &dataErr))
}

func TestIVPercentile(t *testing.T) {
	history := []float64{0.10, 0.20, 0.20, 0.40}

	got, err := IVPercentile(0.20, history)
	require.NoError(t, err)
	assert.InDelta(t, 75.0, got, 1e-9, "ties count as at-or-below")

	got, err = IVPercentile(0.05, history)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestGarmanKlass(t *testing.T) {
	bar := contracts.OHLC{Open: 100, High: 110, Low: 90, Close: 105}

	t.Run("high low", func(t *testing.T) {
		got, ok := GarmanKlass([]contracts.OHLC{bar}, RangeHighLow, 252)
		require.True(t, ok)

		hl := math.Log(110.0 / 90.0)
		co := math.Log(105.0 / 100.0)
		want := math.Sqrt((0.5*hl*hl - (2*math.Ln2-1)*co*co) * 252)
		assert.InDelta(t, want, got, 1e-12)
	})

	t.Run("previous close seeds from first bar", func(t *testing.T) {
		next := contracts.OHLC{Open: 104, High: 108, Low: 101, Close: 107}
		got, ok := GarmanKlass([]contracts.OHLC{bar, next}, RangePrevClose, 252)
		require.True(t, ok)

		hc := math.Log(108.0 / 105.0)
		co := math.Log(107.0 / 104.0)
		want := math.Sqrt((0.5*hc*hc - (2*math.Ln2-1)*co*co) * 252)
		assert.InDelta(t, want, got, 1e-12)
	})

	t.Run("single bar has no previous close", func(t *testing.T) {
		_, ok := GarmanKlass([]contracts.OHLC{bar}, RangePrevClose, 252)
		assert.False(t, ok)
	})

	t.Run("invalid bars skipped", func(t *testing.T) {
		bad := []contracts.OHLC{
			{Open: 0, High: 1, Low: 1, Close: 1},
			{Open: 100, High: 90, Low: 95, Close: 92},
		}
		_, ok := GarmanKlass(bad, RangeHighLow, 252)
		assert.False(t, ok)

		got, ok := GarmanKlass(append(bad, bar), RangeHighLow, 252)
		require.True(t, ok)
		single, _ := GarmanKlass([]contracts.OHLC{bar}, RangeHighLow, 252)
		assert.InDelta(t, single, got, 1e-12)
	})

	t.Run("flat bars", func(t *testing.T) {
		flat := contracts.OHLC{Open: 100, High: 100, Low: 100, Close: 100}
		got, ok := GarmanKlass([]contracts.OHLC{flat, flat, flat}, RangePrevClose, 252)
		require.True(t, ok)
		assert.Equal(t, 0.0, got)
	})
}

func TestBlackScholes_Delta(t *testing.T) {
	bs := BlackScholes{RiskFreeRate: 0.02}
	at := time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC)
	exp := at.AddDate(0, 0, 365)

	call := contracts.Option{Strike: 100, Expiration: exp, Type: contracts.OptionCall, ImpliedVol: 0.2}
	put := call
	put.Type = contracts.OptionPut

	cd, ok := bs.Delta(call, 100, at)
	require.True(t, ok)
	pd, ok := bs.Delta(put, 100, at)
	require.True(t, ok)

	// d1 = (0.02 + 0.02) / 0.2 = 0.2
	assert.InDelta(t, 0.5793, cd, 1e-4)
	assert.InDelta(t, cd-1, pd, 1e-12, "put-call delta parity")

	_, ok = bs.Delta(contracts.Option{Strike: 100, Expiration: at, Type: contracts.OptionCall, ImpliedVol: 0.2}, 100, at)
	assert.False(t, ok, "expired")
	_, ok = bs.Delta(contracts.Option{Strike: 100, Expiration: exp, Type: contracts.OptionCall}, 100, at)
	assert.False(t, ok, "no implied vol")
}

func TestLiquidityScore_WorstLeg(t *testing.T) {
	ic := scenarioCondor(t)
	model := strategyconfig.DefaultAnalytics().Liquidity

	// all legs: zero spread, volume and OI above caps
	assert.InDelta(t, 1.0, LiquidityScore(ic, model), 1e-9)

	ic.LongCall.OpenInterest = 100
	ic.LongPut.Volume = 500
	want := 0.5*1 + 0.3*(100.0/5000) + 0.2*0.5
	assert.InDelta(t, want, LiquidityScore(ic, model), 1e-9)

	ic.ShortCall.Bid, ic.ShortCall.Ask = 2.3, 2.7 // spread 16% > 15%
	want = 0.5*0 + 0.3*(100.0/5000) + 0.2*0.5
	assert.InDelta(t, want, LiquidityScore(ic, model), 1e-9)
}
