package s1_candidates

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/condor/internal/contracts"
	"github.com/wonny/condor/internal/metrics"
	"github.com/wonny/condor/internal/strategyconfig"
	"github.com/wonny/condor/pkg/logger"
)

var (
	asOf     = time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC)
	expiry35 = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	expiry7  = time.Date(2024, 2, 16, 0, 0, 0, 0, time.UTC)
)

func opt(ticker string, exp time.Time, typ contracts.OptionType, strike float64, delta *float64, bid, ask float64) contracts.Option {
	return contracts.Option{
		Ticker:       ticker,
		Strike:       strike,
		Expiration:   exp,
		Type:         typ,
		Bid:          bid,
		Ask:          ask,
		Volume:       100,
		OpenInterest: 1000,
		Delta:        delta,
		ImpliedVol:   0.20,
	}
}

// chain builds one expiration: shorts at 480P / 520C (16 delta)
func chain(ticker string, exp time.Time) []contracts.Option {
	d := contracts.Float64
	return []contracts.Option{
		opt(ticker, exp, contracts.OptionPut, 470, d(-0.08), 1.00, 1.10),
		opt(ticker, exp, contracts.OptionPut, 475, d(-0.10), 1.40, 1.50),
		opt(ticker, exp, contracts.OptionPut, 480, d(-0.16), 2.00, 2.10),
		opt(ticker, exp, contracts.OptionPut, 485, d(-0.22), 2.60, 2.70),
		opt(ticker, exp, contracts.OptionCall, 515, d(0.22), 2.40, 2.50),
		opt(ticker, exp, contracts.OptionCall, 520, d(0.16), 1.80, 1.90),
		opt(ticker, exp, contracts.OptionCall, 525, d(0.11), 1.20, 1.30),
		opt(ticker, exp, contracts.OptionCall, 530, d(0.07), 0.80, 0.90),
	}
}

func newBuilder() *Builder {
	return NewBuilder(asOf, logger.Nop(), nil)
}

func keys(ics []contracts.IronCondor) []string {
	out := make([]string, 0, len(ics))
	for _, ic := range ics {
		out = append(out, ic.Key())
	}
	return out
}

func TestBuilder_Generate_Default(t *testing.T) {
	seq, err := newBuilder().Generate(chain("SPY", expiry35), strategyconfig.DefaultStrategy())
	require.NoError(t, err)

	got := slices.Collect(seq)
	require.Len(t, got, 1)

	ic := got[0]
	assert.Equal(t, "SPY 2024-03-15 475/480/520/525", ic.Key())
	assert.InDelta(t, 1.20, ic.NetCredit(), 1e-9)
}

func TestBuilder_Generate_WingCombinations(t *testing.T) {
	cfg := strategyconfig.DefaultStrategy()
	cfg.PutWingWidths = []float64{5, 10}
	cfg.CallWingWidths = []float64{5, 10}

	t.Run("symmetric only", func(t *testing.T) {
		seq, err := newBuilder().Generate(chain("SPY", expiry35), cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"SPY 2024-03-15 475/480/520/525",
			"SPY 2024-03-15 470/480/520/530",
		}, keys(slices.Collect(seq)))
	})

	t.Run("asymmetric", func(t *testing.T) {
		asym := cfg
		asym.AllowAsymmetric = true
		seq, err := newBuilder().Generate(chain("SPY", expiry35), asym)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"SPY 2024-03-15 475/480/520/525",
			"SPY 2024-03-15 475/480/520/530",
			"SPY 2024-03-15 470/480/520/525",
			"SPY 2024-03-15 470/480/520/530",
		}, keys(slices.Collect(seq)))
	})
}

func TestBuilder_Generate_DTEWindowAndOrdering(t *testing.T) {
	options := append(chain("SPY", expiry35), chain("SPY", expiry7)...)
	options = append(options, chain("QQQ", expiry35)...)

	seq, err := newBuilder().Generate(options, strategyconfig.DefaultStrategy())
	require.NoError(t, err)

	got := slices.Collect(seq)
	require.Len(t, got, 2)
	assert.Equal(t, "QQQ", got[0].Ticker())
	assert.Equal(t, "SPY", got[1].Ticker())
	for _, ic := range got {
		assert.Equal(t, expiry35, ic.Expiration(), "7 DTE group must be dropped")
		for _, l := range ic.Legs() {
			assert.Equal(t, ic.Expiration(), l.Expiration, "legs never cross expirations")
		}
	}
}

func TestBuilder_Generate_MissingWingStrikeSkipped(t *testing.T) {
	cfg := strategyconfig.DefaultStrategy()
	cfg.PutWingWidths = []float64{7}
	cfg.CallWingWidths = []float64{7}

	seq, err := newBuilder().Generate(chain("SPY", expiry35), cfg)
	require.NoError(t, err)
	assert.Empty(t, slices.Collect(seq), "no interpolation between listed strikes")
}

func TestBuilder_Generate_ConfigurationError(t *testing.T) {
	cfg := strategyconfig.DefaultStrategy()
	cfg.MinDTE, cfg.MaxDTE = 60, 30

	seq, err := newBuilder().Generate(chain("SPY", expiry35), cfg)
	assert.Nil(t, seq)

	var cfgErr *contracts.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "strategy.min_dte", cfgErr.Field)
}

func TestBuilder_Generate_EmptyInput(t *testing.T) {
	seq, err := newBuilder().Generate(nil, strategyconfig.DefaultStrategy())
	require.NoError(t, err)
	assert.Empty(t, slices.Collect(seq))
}

func TestBuilder_Generate_SinglePass(t *testing.T) {
	seq, err := newBuilder().Generate(chain("SPY", expiry35), strategyconfig.DefaultStrategy())
	require.NoError(t, err)

	assert.Len(t, slices.Collect(seq), 1)
	assert.Empty(t, slices.Collect(seq), "second pass yields nothing")
}

func TestBuilder_Generate_EarlyStop(t *testing.T) {
	cfg := strategyconfig.DefaultStrategy()
	cfg.PutWingWidths = []float64{5, 10}
	cfg.CallWingWidths = []float64{5, 10}
	cfg.AllowAsymmetric = true

	seq, err := newBuilder().Generate(chain("SPY", expiry35), cfg)
	require.NoError(t, err)

	n := 0
	for range seq {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestBuilder_Generate_NonPositiveCreditRejected(t *testing.T) {
	d := contracts.Float64
	options := []contracts.Option{
		opt("SPY", expiry35, contracts.OptionPut, 475, d(-0.10), 2.50, 2.60),
		opt("SPY", expiry35, contracts.OptionPut, 480, d(-0.16), 2.00, 2.10),
		opt("SPY", expiry35, contracts.OptionCall, 520, d(0.16), 1.80, 1.90),
		opt("SPY", expiry35, contracts.OptionCall, 525, d(0.11), 1.90, 2.00),
	}

	m := metrics.New()
	seq, err := NewBuilder(asOf, logger.Nop(), m).Generate(options, strategyconfig.DefaultStrategy())
	require.NoError(t, err)

	assert.Empty(t, slices.Collect(seq))
	count, err := testutil.GatherAndCount(m.Registry(), "condor_rejections_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBuilder_Generate_InputNotAliased(t *testing.T) {
	options := chain("SPY", expiry35)
	seq, err := newBuilder().Generate(options, strategyconfig.DefaultStrategy())
	require.NoError(t, err)

	options[2].Bid, options[2].Ask = 0, 0 // mutate after Generate
	got := slices.Collect(seq)
	require.Len(t, got, 1)
	assert.InDelta(t, 2.05, got[0].ShortPut.Mid(), 1e-9)
}

func TestSelectShortLeg(t *testing.T) {
	d := contracts.Float64
	puts := []contracts.Option{
		opt("SPY", expiry35, contracts.OptionPut, 470, nil, 1, 1),
		opt("SPY", expiry35, contracts.OptionPut, 475, d(-0.14), 1, 1),
		opt("SPY", expiry35, contracts.OptionPut, 485, d(-0.18), 1, 1),
		opt("SPY", expiry35, contracts.OptionPut, 490, d(-0.30), 1, 1),
	}

	tests := []struct {
		name       string
		target     float64
		tolerance  float64
		wantStrike float64
		wantFound  bool
	}{
		{"tie resolves to lowest strike", 0.16, 0.05, 475, true},
		{"closest wins", 0.19, 0.05, 485, true},
		{"outside tolerance", 0.50, 0.05, 0, false},
		{"boundary is inclusive", 0.35, 0.05, 490, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := SelectShortLeg(puts, tt.target, tt.tolerance)
			assert.Equal(t, tt.wantFound, found)
			if found {
				assert.Equal(t, tt.wantStrike, got.Strike)
			}
		})
	}
}

func TestSelectShortLeg_NoDeltas(t *testing.T) {
	legs := []contracts.Option{opt("SPY", expiry35, contracts.OptionCall, 520, nil, 1, 1)}
	_, found := SelectShortLeg(legs, 0.16, 1)
	assert.False(t, found)
}
