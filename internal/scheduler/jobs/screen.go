package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/condor/internal/pipeline"
	"github.com/wonny/condor/pkg/logger"
)

// BatchRunner screens several tickers in one pass
type BatchRunner interface {
	RunBatch(ctx context.Context, inputs []pipeline.ScreenInput, concurrency int) (*pipeline.BatchResult, error)
}

// ScreenJob screens the configured tickers after the close
type ScreenJob struct {
	runner      BatchRunner
	tickers     []string
	schedule    string
	concurrency int
	logger      *logger.Logger
	now         func() time.Time
}

// NewScreenJob creates a new screening job
func NewScreenJob(runner BatchRunner, tickers []string, schedule string, concurrency int, log *logger.Logger) *ScreenJob {
	return &ScreenJob{
		runner:      runner,
		tickers:     tickers,
		schedule:    schedule,
		concurrency: concurrency,
		logger:      log,
		now:         time.Now,
	}
}

// Name returns the job name
func (j *ScreenJob) Name() string {
	return "screen_tickers"
}

// Schedule returns the cron schedule
// Default: weekdays at 4:30 PM, after the close
func (j *ScreenJob) Schedule() string {
	return j.schedule
}

// Run screens every ticker as of today
// It fails only when no ticker could be screened, so a retry is worth it.
func (j *ScreenJob) Run(ctx context.Context) error {
	if len(j.tickers) == 0 {
		j.logger.Warn("No tickers configured, skipping screen")
		return nil
	}

	asOf := j.now()
	asOf = time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)

	inputs := make([]pipeline.ScreenInput, 0, len(j.tickers))
	for _, ticker := range j.tickers {
		inputs = append(inputs, pipeline.ScreenInput{Ticker: ticker, AsOf: asOf})
	}

	result, err := j.runner.RunBatch(ctx, inputs, j.concurrency)
	if err != nil {
		return fmt.Errorf("screen batch: %w", err)
	}

	candidates := 0
	for _, run := range result.Runs {
		candidates += len(run.Ranked)
	}
	j.logger.WithFields(map[string]interface{}{
		"as_of":      asOf.Format("2006-01-02"),
		"succeeded":  len(result.Runs),
		"failed":     len(result.Errors),
		"candidates": candidates,
	}).Info("Scheduled screen completed")

	if len(result.Runs) == 0 {
		return fmt.Errorf("all %d tickers failed", len(result.Errors))
	}
	return nil
}
