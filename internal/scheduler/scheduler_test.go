package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/condor/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string

	mu    sync.Mutex
	calls int
	fails int // first n calls fail
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }

func (j *stubJob) Run(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls++
	if j.calls <= j.fails {
		return errors.New("boom")
	}
	return nil
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(logger.Nop())

	require.NoError(t, s.AddJob(&stubJob{name: "a", schedule: "@every 1h"}))
	assert.Error(t, s.AddJob(&stubJob{name: "a", schedule: "@every 1h"}), "duplicate name")
	assert.Error(t, s.AddJob(&stubJob{name: "b", schedule: "not a schedule"}))

	stats := s.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, "a", stats[0].JobName)
	assert.Nil(t, stats[0].LastRun)
}

func TestScheduler_RunNow(t *testing.T) {
	tests := []struct {
		name         string
		fails        int
		maxRetries   int
		wantSuccess  bool
		wantAttempts int
	}{
		{"succeeds first try", 0, 2, true, 1},
		{"succeeds after retry", 2, 2, true, 3},
		{"exhausts retries", 5, 2, false, 3},
		{"no retries", 1, 0, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(logger.Nop(), WithRetry(tt.maxRetries, 0))
			job := &stubJob{name: "screen", schedule: "@every 1h", fails: tt.fails}
			require.NoError(t, s.AddJob(job))

			result, err := s.RunNow(context.Background(), "screen")
			require.NoError(t, err)
			assert.Equal(t, tt.wantSuccess, result.Success)
			assert.Equal(t, tt.wantAttempts, result.Attempts)
			assert.Equal(t, tt.wantAttempts, job.calls)
			if !tt.wantSuccess {
				assert.Equal(t, "boom", result.Error)
			}

			stats := s.Stats()
			require.Len(t, stats, 1)
			assert.Equal(t, 1, stats[0].TotalRuns)
			require.NotNil(t, stats[0].LastRun)
		})
	}
}

func TestScheduler_RunNow_Unknown(t *testing.T) {
	s := New(logger.Nop())
	_, err := s.RunNow(context.Background(), "missing")
	assert.Error(t, err)
}

func TestScheduler_RetryStopsOnCancel(t *testing.T) {
	s := New(logger.Nop(), WithRetry(3, time.Hour))
	job := &stubJob{name: "screen", schedule: "@every 1h", fails: 10}
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	done := make(chan JobResult, 1)
	go func() {
		result, _ := s.RunNow(ctx, "screen")
		done <- result
	}()

	select {
	case result := <-done:
		assert.False(t, result.Success)
		assert.Less(t, result.Attempts, 4)
	case <-time.After(5 * time.Second):
		t.Fatal("retry did not stop after cancel")
	}
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	assert.Equal(t, 0.0, h.SuccessRate())

	for i := 0; i < maxHistory+10; i++ {
		h.AddResult(JobResult{JobName: "x", Success: i%2 == 0, Attempts: i})
	}
	assert.Len(t, h.Results, maxHistory)
	assert.InDelta(t, 0.5, h.SuccessRate(), 1e-9)

	last, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, maxHistory+9, last.Attempts)
}
