package s0_data

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/condor/internal/contracts"
)

const chainHeader = "ticker,strike,expiration,option_type,bid,ask,last,volume,open_interest,delta,gamma,theta,vega,implied_vol\n"

func TestLoadChainCSV(t *testing.T) {
	csv := chainHeader +
		"spy,545,2024-03-15,put,2.20,2.30,,1200,5000,-0.16,null,nan,,0.18\n" +
		"SPY,575,03/15/2024,CALL,2.45,2.55,2.5,900.0,4000,0.15,0.01,-0.05,0.3,0.17\n" +
		"SPY,abc,2024-03-15,put,1,1.1,,1,1,-0.1,,,,0.2\n" +
		"SPY,540,2024-03-15,straddle,1,1.1,,1,1,-0.1,,,,0.2\n" +
		"SPY,550,2024-03-15,put,2.5,2.4,,1,1,-0.2,,,,0.2\n" +
		"SPY,555,2024/03/15,put,2.5,2.6,,1,1,-0.2,,,,0.2\n"

	options, report, err := LoadChainCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, options, 2)

	assert.Equal(t, 6, report.Rows)
	assert.Equal(t, 2, report.Loaded)
	assert.Equal(t, 4, report.Skipped)
	assert.Len(t, report.Errors, 4)

	put := options[0]
	assert.Equal(t, "SPY", put.Ticker)
	assert.Equal(t, contracts.OptionPut, put.Type)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), put.Expiration)
	assert.Nil(t, put.Last)
	assert.Nil(t, put.Gamma, "null")
	assert.Nil(t, put.Theta, "nan")
	assert.Nil(t, put.Vega, "empty")
	require.NotNil(t, put.Delta)
	assert.Equal(t, -0.16, *put.Delta)
	assert.Equal(t, int64(5000), put.OpenInterest)

	call := options[1]
	assert.Equal(t, contracts.OptionCall, call.Type)
	assert.True(t, call.Expiration.Equal(put.Expiration), "both date formats parse to the same day")
	assert.Equal(t, int64(900), call.Volume)
	require.NotNil(t, call.Last)
	assert.Equal(t, 2.5, *call.Last)
}

func TestLoadChainCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"missing required column", "ticker,strike,expiration,option_type,bid,ask\nSPY,545,2024-03-15,put,1,1.1\n"},
		{"header only", chainHeader},
		{"no valid rows", chainHeader + "SPY,-5,2024-03-15,put,1,1.1,,1,1,-0.1,,,,0.2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := LoadChainCSV(strings.NewReader(tt.csv))
			require.Error(t, err)
			var dataErr *contracts.DataError
			assert.True(t, errors.As(err, &dataErr), "got %v", err)
		})
	}
}

func TestLoadChainCSV_MissingDeltaColumn(t *testing.T) {
	csv := "ticker,strike,expiration,option_type,bid,ask,volume,open_interest,implied_vol\n" +
		"SPY,545,2024-03-15,put,2.2,2.3,10,100,0.2\n"

	options, _, err := LoadChainCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, options, 1)
	assert.False(t, options[0].HasDelta())
}

func TestLoadOHLCCSV(t *testing.T) {
	csv := "date,open,high,low,close\n" +
		"2024-02-07,550,556,548,554\n" +
		"2024-02-08,554,551,560,558\n" + // high < low
		"bad,554,560,551,558\n" +
		"2024-02-09,558,561,552,553\n"

	bars, report, err := LoadOHLCCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 553.0, bars[1].Close)
	assert.Equal(t, time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC), bars[1].Date)
}

func TestLoadIVHistoryCSV(t *testing.T) {
	csv := "date,iv\n2024-02-07,0.18\n2024-02-08,null\n2024-02-09,0.21\n2024-02-10,-1\n"

	ivs, report, err := LoadIVHistoryCSV(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.18, 0.21}, ivs)
	assert.Equal(t, 2, report.Skipped)

	_, _, err = LoadIVHistoryCSV(strings.NewReader("date,iv\n2024-02-07,\n"))
	var dataErr *contracts.DataError
	assert.True(t, errors.As(err, &dataErr))
}

func TestLoadEarningsCalendarCSV(t *testing.T) {
	csv := "symbol,earnings_date,days_until_earnings,source\n" +
		"aapl,2024-03-14,34,nasdaq\n" +
		"SPY,unknown,,none\n" +
		"MSFT,,,\n" +
		"NVDA,02/21/2024,12,nasdaq\n"

	calendar, report, err := LoadEarningsCalendarCSV(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Len(t, calendar, 2)
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), calendar["AAPL"])
	assert.Equal(t, time.Date(2024, 2, 21, 0, 0, 0, 0, time.UTC), calendar["NVDA"])
	assert.Equal(t, 2, report.Skipped)
	_, ok := calendar["SPY"]
	assert.False(t, ok)
}

func TestParseInt(t *testing.T) {
	v, err := parseInt("volume", " 1200 ")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), v)

	v, err = parseInt("volume", "1200.0")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), v)

	_, err = parseInt("volume", "12.5")
	assert.Error(t, err)
}
