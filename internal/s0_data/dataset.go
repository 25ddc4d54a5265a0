package s0_data

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wonny/condor/internal/contracts"
	"github.com/wonny/condor/pkg/logger"
)

// Per-ticker file names under the data directory
//
//	<data_dir>/<TICKER>/chain.csv        required
//	<data_dir>/<TICKER>/iv_history.csv   required
//	<data_dir>/<TICKER>/ohlc.csv         optional (realized vol, spot fallback)
const (
	ChainFile     = "chain.csv"
	IVHistoryFile = "iv_history.csv"
	OHLCFile      = "ohlc.csv"
)

// Dataset is everything S0 knows about one underlying
type Dataset struct {
	Ticker       string
	Options      []contracts.Option
	IVHistory    []float64
	OHLC         []contracts.OHLC
	EarningsDate *time.Time
	Reports      map[string]LoadReport
}

// LatestClose returns the close of the most recent bar, false without bars
// The OHLC loader keeps bars sorted oldest first.
func (d *Dataset) LatestClose() (float64, bool) {
	if len(d.OHLC) == 0 {
		return 0, false
	}
	return d.OHLC[len(d.OHLC)-1].Close, true
}

// Loader reads datasets from a directory tree
// ⭐ SSOT: S0 데이터 로드는 여기서만
type Loader struct {
	dataDir  string
	earnings map[string]time.Time
	logger   *logger.Logger
}

// NewLoader creates a loader rooted at dataDir
func NewLoader(dataDir string, log *logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{
		dataDir: dataDir,
		logger:  log,
	}
}

// LoadEarningsCalendar reads the symbol → earnings date map used by Load
// A missing calendar file is not an error: no ticker gets an earnings date.
func (l *Loader) LoadEarningsCalendar(path string) error {
	if path == "" {
		return nil
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		l.logger.WithField("path", path).Warn("earnings calendar not found")
		return nil
	}
	if err != nil {
		return fmt.Errorf("open earnings calendar: %w", err)
	}
	defer f.Close()

	calendar, report, err := LoadEarningsCalendarCSV(f)
	if err != nil {
		return err
	}
	l.earnings = calendar
	l.logReport("earnings", path, report)
	return nil
}

// Load reads one ticker's chain, IV history and optional OHLC window
func (l *Loader) Load(ticker string) (*Dataset, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, &contracts.DataError{Op: "load", Message: "ticker is required"}
	}

	ds := &Dataset{
		Ticker:  ticker,
		Reports: make(map[string]LoadReport),
	}
	dir := filepath.Join(l.dataDir, ticker)

	// 1. 옵션 체인 (필수)
	err := l.read(filepath.Join(dir, ChainFile), func(r io.Reader) (LoadReport, error) {
		options, report, err := LoadChainCSV(r)
		if err == nil {
			options, err = KeepTicker(options, ticker, &report)
		}
		ds.Options = options
		ds.Reports[ChainFile] = report
		return report, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s chain: %w", ticker, err)
	}

	// 2. IV 히스토리 (필수)
	err = l.read(filepath.Join(dir, IVHistoryFile), func(r io.Reader) (LoadReport, error) {
		ivs, report, err := LoadIVHistoryCSV(r)
		ds.IVHistory = ivs
		ds.Reports[IVHistoryFile] = report
		return report, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s iv history: %w", ticker, err)
	}

	// 3. OHLC (선택)
	err = l.read(filepath.Join(dir, OHLCFile), func(r io.Reader) (LoadReport, error) {
		bars, report, err := LoadOHLCCSV(r)
		ds.OHLC = bars
		ds.Reports[OHLCFile] = report
		return report, err
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s ohlc: %w", ticker, err)
	}

	if date, ok := l.earnings[ticker]; ok {
		ds.EarningsDate = &date
	}

	return ds, nil
}

func (l *Loader) read(path string, parse func(io.Reader) (LoadReport, error)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	report, err := parse(f)
	if err != nil {
		return err
	}
	l.logReport(filepath.Base(path), path, report)
	return nil
}

func (l *Loader) logReport(kind, path string, report LoadReport) {
	log := l.logger.WithFields(map[string]interface{}{
		"file":    path,
		"loaded":  report.Loaded,
		"skipped": report.Skipped,
	})
	if report.Skipped > 0 {
		log.WithField("errors", report.Errors).Warnf("%s: skipped invalid rows", kind)
		return
	}
	log.Debugf("%s loaded", kind)
}
