package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/condor/internal/contracts"
)

// ErrDuplicateTicker rejects a batch naming the same ticker twice
var ErrDuplicateTicker = errors.New("duplicate ticker in batch")

// BatchResult holds one run per ticker that completed and the error of every
// ticker that did not
type BatchResult struct {
	Runs   []*contracts.ScreenRun
	Errors map[string]error
}

// RunBatch screens tickers in parallel with at most concurrency runs in flight
//
// Tickers are independent: one failing ticker does not stop the others.
// Only cancellation of ctx aborts the batch. Runs come back sorted by ticker.
// A batch naming a ticker twice is rejected before anything runs.
func (r *Runner) RunBatch(ctx context.Context, inputs []ScreenInput, concurrency int) (*BatchResult, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	seen := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		ticker := strings.ToUpper(strings.TrimSpace(in.Ticker))
		if _, dup := seen[ticker]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTicker, ticker)
		}
		seen[ticker] = struct{}{}
	}

	result := &BatchResult{
		Runs:   make([]*contracts.ScreenRun, 0, len(inputs)),
		Errors: make(map[string]error),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			run, err := r.Run(gctx, in)
			ticker := strings.ToUpper(strings.TrimSpace(in.Ticker))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors[ticker] = err
				r.logger.WithError(err).WithField("ticker", ticker).Warn("Screen run failed")
				return nil
			}
			result.Runs = append(result.Runs, run)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	sort.Slice(result.Runs, func(i, j int) bool {
		return result.Runs[i].Ticker < result.Runs[j].Ticker
	})

	r.logger.WithFields(map[string]interface{}{
		"tickers":   len(inputs),
		"succeeded": len(result.Runs),
		"failed":    len(result.Errors),
	}).Info("Batch screen completed")

	return result, nil
}

// RankedRow is one candidate of a merged multi-ticker listing
type RankedRow struct {
	Ticker    string              `json:"ticker"`
	Analytics contracts.Analytics `json:"analytics"`
}

// Merge lists every ranked candidate grouped by ticker, then by rank
//
// Composite scores are batch-relative, so candidates of different tickers
// are never ordered against each other by score.
func Merge(runs []*contracts.ScreenRun) []RankedRow {
	sorted := make([]*contracts.ScreenRun, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Ticker < sorted[j].Ticker
	})

	rows := make([]RankedRow, 0)
	for _, run := range sorted {
		for _, a := range run.Ranked {
			rows = append(rows, RankedRow{Ticker: run.Ticker, Analytics: a})
		}
	}
	return rows
}
