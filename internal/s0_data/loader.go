package s0_data

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/wonny/condor/internal/contracts"
)

// 지원하는 날짜 포맷 (ISO 우선)
var dateLayouts = []string{contracts.DateLayout, "01/02/2006"}

// LoadReport summarizes one CSV load
type LoadReport struct {
	Rows    int      `json:"rows"`
	Loaded  int      `json:"loaded"`
	Skipped int      `json:"skipped"`
	Foreign int      `json:"foreign,omitempty"` // rows of another underlying, counted in Skipped
	Errors  []string `json:"errors,omitempty"` // first few row errors, for logs
}

const maxReportedErrors = 5

// KeepTicker drops options of any other underlying and counts them as skipped
// A DataError is returned when nothing is left.
func KeepTicker(options []contracts.Option, ticker string, report *LoadReport) ([]contracts.Option, error) {
	kept := options[:0:0]
	for _, o := range options {
		if strings.EqualFold(o.Ticker, ticker) {
			kept = append(kept, o)
			continue
		}
		report.Foreign++
		report.Skipped++
		if len(report.Errors) < maxReportedErrors {
			report.Errors = append(report.Errors, fmt.Sprintf("foreign_ticker %s (want %s)", o.Ticker, ticker))
		}
	}
	report.Loaded = len(kept)

	if len(kept) == 0 {
		return nil, &contracts.DataError{Op: "load_chain", Message: fmt.Sprintf("no %s rows in chain", ticker)}
	}
	return kept, nil
}

func (r *LoadReport) skip(row int, err error) {
	r.Skipped++
	if len(r.Errors) < maxReportedErrors {
		r.Errors = append(r.Errors, fmt.Sprintf("row %d: %v", row, err))
	}
}

// chainRow mirrors the option chain CSV; cells stay strings so a bad cell
// only costs its own row
type chainRow struct {
	Ticker       string `csv:"ticker"`
	Strike       string `csv:"strike"`
	Expiration   string `csv:"expiration"`
	OptionType   string `csv:"option_type"`
	Bid          string `csv:"bid"`
	Ask          string `csv:"ask"`
	Last         string `csv:"last"`
	Volume       string `csv:"volume"`
	OpenInterest string `csv:"open_interest"`
	Delta        string `csv:"delta"`
	Gamma        string `csv:"gamma"`
	Theta        string `csv:"theta"`
	Vega         string `csv:"vega"`
	ImpliedVol   string `csv:"implied_vol"`
}

var requiredChainColumns = []string{
	"ticker", "strike", "expiration", "option_type", "bid", "ask",
	"volume", "open_interest", "implied_vol",
}

// LoadChainCSV parses an option chain
//
// Unparseable rows are skipped and counted. A missing required column or a
// file without a single valid row is a DataError.
func LoadChainCSV(r io.Reader) ([]contracts.Option, LoadReport, error) {
	var report LoadReport

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, report, fmt.Errorf("read chain csv: %w", err)
	}
	if err := checkHeader(data, requiredChainColumns); err != nil {
		return nil, report, err
	}

	var rows []chainRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, report, &contracts.DataError{Op: "load_chain", Message: err.Error()}
	}

	options := make([]contracts.Option, 0, len(rows))
	for i, row := range rows {
		report.Rows++
		opt, err := row.toOption()
		if err != nil {
			report.skip(i+2, err) // header is row 1
			continue
		}
		options = append(options, opt)
	}
	report.Loaded = len(options)

	if len(options) == 0 {
		return nil, report, &contracts.DataError{Op: "load_chain", Message: "no valid options"}
	}
	return options, report, nil
}

func (row chainRow) toOption() (contracts.Option, error) {
	var (
		o   contracts.Option
		err error
	)

	o.Ticker = row.Ticker
	if o.Type, err = contracts.ParseOptionType(row.OptionType); err != nil {
		return o, err
	}
	if o.Expiration, err = parseDate(row.Expiration); err != nil {
		return o, err
	}
	if o.Strike, err = parseFloat("strike", row.Strike); err != nil {
		return o, err
	}
	if o.Bid, err = parseFloat("bid", row.Bid); err != nil {
		return o, err
	}
	if o.Ask, err = parseFloat("ask", row.Ask); err != nil {
		return o, err
	}
	if o.Volume, err = parseInt("volume", row.Volume); err != nil {
		return o, err
	}
	if o.OpenInterest, err = parseInt("open_interest", row.OpenInterest); err != nil {
		return o, err
	}
	if o.ImpliedVol, err = parseFloat("implied_vol", row.ImpliedVol); err != nil {
		return o, err
	}

	optional := []struct {
		name string
		cell string
		dst  **float64
	}{
		{"last", row.Last, &o.Last},
		{"delta", row.Delta, &o.Delta},
		{"gamma", row.Gamma, &o.Gamma},
		{"theta", row.Theta, &o.Theta},
		{"vega", row.Vega, &o.Vega},
	}
	for _, f := range optional {
		if *f.dst, err = parseOptionalFloat(f.name, f.cell); err != nil {
			return o, err
		}
	}

	return contracts.NewOption(o)
}

type ohlcRow struct {
	Date  string `csv:"date"`
	Open  string `csv:"open"`
	High  string `csv:"high"`
	Low   string `csv:"low"`
	Close string `csv:"close"`
}

func (row ohlcRow) toBar() (contracts.OHLC, error) {
	var (
		bar contracts.OHLC
		err error
	)
	if bar.Date, err = parseDate(row.Date); err != nil {
		return bar, err
	}
	for _, f := range []struct {
		name string
		cell string
		dst  *float64
	}{
		{"open", row.Open, &bar.Open},
		{"high", row.High, &bar.High},
		{"low", row.Low, &bar.Low},
		{"close", row.Close, &bar.Close},
	} {
		if *f.dst, err = parseFloat(f.name, f.cell); err != nil {
			return bar, err
		}
	}
	if !bar.IsValid() {
		return bar, fmt.Errorf("invalid bar %s", row.Date)
	}
	return bar, nil
}

// LoadOHLCCSV parses daily bars (date,open,high,low,close), oldest first
// Invalid bars are skipped here so the estimator sees clean input. Files are
// often exported newest first, so bars are sorted by date whatever the row order.
func LoadOHLCCSV(r io.Reader) ([]contracts.OHLC, LoadReport, error) {
	var (
		report LoadReport
		rows   []ohlcRow
	)
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, report, &contracts.DataError{Op: "load_ohlc", Message: err.Error()}
	}

	bars := make([]contracts.OHLC, 0, len(rows))
	for i, row := range rows {
		report.Rows++
		bar, err := row.toBar()
		if err != nil {
			report.skip(i+2, err)
			continue
		}
		bars = append(bars, bar)
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	report.Loaded = len(bars)
	return bars, report, nil
}

type ivRow struct {
	Date string `csv:"date"`
	IV   string `csv:"iv"`
}

// LoadIVHistoryCSV parses historical implied volatility samples (date,iv)
// Empty history is a DataError since IV rank cannot be computed without it.
func LoadIVHistoryCSV(r io.Reader) ([]float64, LoadReport, error) {
	var (
		report LoadReport
		rows   []ivRow
	)
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, report, &contracts.DataError{Op: "load_iv_history", Message: err.Error()}
	}

	ivs := make([]float64, 0, len(rows))
	for i, row := range rows {
		report.Rows++
		iv, err := parseOptionalFloat("iv", row.IV)
		if err != nil || iv == nil || *iv <= 0 {
			report.skip(i+2, fmt.Errorf("invalid iv %q", row.IV))
			continue
		}
		ivs = append(ivs, *iv)
	}
	report.Loaded = len(ivs)

	if len(ivs) == 0 {
		return nil, report, &contracts.DataError{Op: "load_iv_history", Message: "no valid iv samples"}
	}
	return ivs, report, nil
}

type earningsRow struct {
	Symbol       string `csv:"symbol"`
	EarningsDate string `csv:"earnings_date"`
}

// LoadEarningsCalendarCSV parses symbol,earnings_date[,...] into symbol → date
// Rows with unknown or unparseable dates are skipped.
func LoadEarningsCalendarCSV(r io.Reader) (map[string]time.Time, LoadReport, error) {
	var (
		report LoadReport
		rows   []earningsRow
	)
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, report, &contracts.DataError{Op: "load_earnings", Message: err.Error()}
	}

	calendar := make(map[string]time.Time, len(rows))
	for i, row := range rows {
		report.Rows++
		symbol := strings.ToUpper(strings.TrimSpace(row.Symbol))
		if symbol == "" || isNull(row.EarningsDate) || strings.EqualFold(strings.TrimSpace(row.EarningsDate), "unknown") {
			report.skip(i+2, fmt.Errorf("no earnings date for %q", row.Symbol))
			continue
		}
		date, err := parseDate(row.EarningsDate)
		if err != nil {
			report.skip(i+2, err)
			continue
		}
		calendar[symbol] = date
	}
	report.Loaded = len(calendar)
	return calendar, report, nil
}

// checkHeader fails fast on a chain file that lacks required columns
func checkHeader(data []byte, required []string) error {
	line, _, _ := bytes.Cut(data, []byte("\n"))
	header := make(map[string]bool)
	for _, col := range strings.Split(strings.TrimSpace(string(line)), ",") {
		header[strings.TrimSpace(strings.Trim(col, "\ufeff\""))] = true
	}

	var missing []string
	for _, col := range required {
		if !header[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &contracts.DataError{Op: "load_chain", Message: "missing required columns: " + strings.Join(missing, ", ")}
	}
	return nil
}

func isNull(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "none", "nan":
		return true
	}
	return false
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func parseFloat(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}

func parseOptionalFloat(name, s string) (*float64, error) {
	if isNull(s) {
		return nil, nil
	}
	v, err := parseFloat(name, s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// parseInt accepts "1200" and "1200.0" (spreadsheet exports)
func parseInt(name, s string) (int64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := parseFloat(name, s)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return int64(f), nil
}
