package strategyconfig

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/condor/internal/contracts"
)

func TestLoad(t *testing.T) {
	path := "../../config/strategy/iron_condor_default.yaml"

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, yamlData, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "iron_condor_default", cfg.Meta.StrategyID)
	assert.Equal(t, []float64{5, 10}, cfg.Strategy.PutWingWidths)
	assert.True(t, cfg.Filter.ExcludePreEarnings)

	hash, err := Hash(cfg)
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	// 동일 설정 → 동일 해시
	hash2, _ := Hash(cfg)
	assert.Equal(t, hash, hash2, "hash not deterministic")

	t.Logf("config hash: %s, yaml size: %d bytes", hash, len(yamlData))
}

func TestParse_DefaultsForMissingFields(t *testing.T) {
	cfg, err := Parse([]byte("strategy:\n  min_dte: 20\n  max_dte: 60\n"))
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Strategy.MinDTE)
	assert.Equal(t, 60, cfg.Strategy.MaxDTE)
	assert.Equal(t, 0.16, cfg.Strategy.TargetDelta)
	assert.Equal(t, DefaultWeights(), cfg.Scoring.Weights)
	assert.Equal(t, 0.85, cfg.Analytics.StraddleDiscount)
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestParse_UnknownFieldFails(t *testing.T) {
	_, err := Parse([]byte("strategy:\n  min_dtee: 20\n"))
	assert.Error(t, err)
}

func TestValidateStrategy(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Strategy)
		field  string
	}{
		{"valid", func(s *Strategy) {}, ""},
		{"min above max", func(s *Strategy) { s.MinDTE, s.MaxDTE = 50, 40 }, "strategy.min_dte"},
		{"negative min", func(s *Strategy) { s.MinDTE = -1 }, "strategy.min_dte"},
		{"zero put width", func(s *Strategy) { s.PutWingWidths = []float64{5, 0} }, "strategy.put_wing_widths[1]"},
		{"no call widths", func(s *Strategy) { s.CallWingWidths = nil }, "strategy.call_wing_widths"},
		{"negative tolerance", func(s *Strategy) { s.DeltaTolerance = -0.01 }, "strategy.delta_tolerance"},
		{"delta out of range", func(s *Strategy) { s.TargetDelta = 1.2 }, "strategy.target_delta"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultStrategy()
			tt.mutate(&s)

			err := ValidateStrategy(s)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *contracts.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestValidateScoring_NegativeWeight(t *testing.T) {
	s := Scoring{Weights: DefaultWeights()}
	s.Weights.Liquidity = -0.1

	err := ValidateScoring(s)
	var cfgErr *contracts.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "scoring.weights.liquidity", cfgErr.Field)
}

func TestWarn(t *testing.T) {
	cfg := Default()
	assert.Empty(t, Warn(&cfg))

	cfg.Scoring.Weights.IVRank = 0.5
	cfg.Strategy.PutWingWidths = []float64{5}
	cfg.Strategy.CallWingWidths = []float64{10}

	codes := make([]string, 0)
	for _, w := range Warn(&cfg) {
		codes = append(codes, w.Code)
	}
	assert.Contains(t, codes, "WEIGHTS_SUM")
	assert.Contains(t, codes, "NO_WIDTH_PAIRS")
}

func TestStrategy_WidthPairs(t *testing.T) {
	s := Strategy{PutWingWidths: []float64{5, 10}, CallWingWidths: []float64{5, 10}}
	assert.Equal(t, [][2]float64{{5, 5}, {10, 10}}, s.WidthPairs())

	s.AllowAsymmetric = true
	assert.Len(t, s.WidthPairs(), 4)
}
