package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/condor/pkg/logger"
)

// Scheduler manages scheduled jobs
// ⭐ SSOT: 스케줄 관리는 이 스케줄러에서만
//
// A run still in progress when its next tick fires is skipped, so one job
// never overlaps itself.
type Scheduler struct {
	cron    *cron.Cron
	logger  *logger.Logger
	jobs    map[string]Job
	history map[string]*JobHistory
	mu      sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc

	// Retry configuration
	maxRetries int
	retryDelay time.Duration
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithRetry sets how often a failed run is retried and the delay between tries
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(s *Scheduler) {
		s.maxRetries = max(maxRetries, 0)
		s.retryDelay = delay
	}
}

// New creates a new scheduler
func New(log *logger.Logger, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		logger:     log,
		jobs:       make(map[string]Job),
		history:    make(map[string]*JobHistory),
		ctx:        ctx,
		cancel:     cancel,
		maxRetries: 2,
		retryDelay: 1 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddJob adds a job to the scheduler
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobName := job.Name()
	if _, exists := s.jobs[jobName]; exists {
		return fmt.Errorf("job %s already exists", jobName)
	}

	_, err := s.cron.AddFunc(job.Schedule(), func() {
		s.runJob(s.ctx, job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", jobName, err)
	}

	s.jobs[jobName] = job
	s.history[jobName] = &JobHistory{}

	s.logger.WithFields(map[string]interface{}{
		"job":      jobName,
		"schedule": job.Schedule(),
	}).Info("Job added to scheduler")

	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// RunNow runs a job synchronously, outside of its schedule
func (s *Scheduler) RunNow(ctx context.Context, jobName string) (JobResult, error) {
	s.mu.RLock()
	job, exists := s.jobs[jobName]
	s.mu.RUnlock()

	if !exists {
		return JobResult{}, fmt.Errorf("job %s not found", jobName)
	}
	return s.runJob(ctx, job), nil
}

// runJob executes a job with retry logic
func (s *Scheduler) runJob(ctx context.Context, job Job) JobResult {
	jobName := job.Name()
	result := JobResult{JobName: jobName, StartTime: time.Now()}

	s.logger.WithField("job", jobName).Info("Job started")

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		result.Attempts = attempt + 1

		lastErr = job.Run(ctx)
		if lastErr == nil || ctx.Err() != nil {
			break
		}

		s.logger.WithFields(map[string]interface{}{
			"job":     jobName,
			"attempt": attempt + 1,
			"error":   lastErr.Error(),
		}).Warn("Job execution failed, retrying")

		if attempt == s.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(s.retryDelay):
		}
	}

	result.Duration = time.Since(result.StartTime)
	result.Success = lastErr == nil
	if lastErr != nil {
		result.Error = lastErr.Error()
	}

	s.mu.Lock()
	if history, exists := s.history[jobName]; exists {
		history.AddResult(result)
	}
	s.mu.Unlock()

	log := s.logger.WithFields(map[string]interface{}{
		"job":      jobName,
		"duration": result.Duration,
		"attempts": result.Attempts,
	})
	if result.Success {
		log.Info("Job completed successfully")
	} else {
		log.WithError(lastErr).Error("Job failed after all retries")
	}

	return result
}

// JobStats represents statistics for a job
type JobStats struct {
	JobName     string     `json:"job_name"`
	Schedule    string     `json:"schedule"`
	TotalRuns   int        `json:"total_runs"`
	SuccessRate float64    `json:"success_rate"`
	LastRun     *JobResult `json:"last_run,omitempty"`
}

// Stats returns statistics for all jobs, sorted by name
func (s *Scheduler) Stats() []JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make([]JobStats, 0, len(s.jobs))
	for jobName, job := range s.jobs {
		history := s.history[jobName]
		st := JobStats{
			JobName:     jobName,
			Schedule:    job.Schedule(),
			TotalRuns:   len(history.Results),
			SuccessRate: history.SuccessRate(),
		}
		if last, ok := history.Latest(); ok {
			st.LastRun = &last
		}
		stats = append(stats, st)
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].JobName < stats[j].JobName })
	return stats
}
