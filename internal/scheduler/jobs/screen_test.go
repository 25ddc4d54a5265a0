package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wonny/condor/internal/contracts"
	"github.com/wonny/condor/internal/pipeline"
	"github.com/wonny/condor/pkg/logger"
)

type mockBatchRunner struct {
	mock.Mock
}

func (m *mockBatchRunner) RunBatch(ctx context.Context, inputs []pipeline.ScreenInput, concurrency int) (*pipeline.BatchResult, error) {
	args := m.Called(ctx, inputs, concurrency)
	res, _ := args.Get(0).(*pipeline.BatchResult)
	return res, args.Error(1)
}

func TestScreenJob_Run(t *testing.T) {
	asOf := time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC)
	wantInputs := []pipeline.ScreenInput{
		{Ticker: "SPY", AsOf: asOf},
		{Ticker: "QQQ", AsOf: asOf},
	}

	tests := []struct {
		name    string
		result  *pipeline.BatchResult
		err     error
		wantErr bool
	}{
		{
			name: "partial success",
			result: &pipeline.BatchResult{
				Runs:   []*contracts.ScreenRun{{Ticker: "SPY", Ranked: make([]contracts.Analytics, 3)}},
				Errors: map[string]error{"QQQ": errors.New("missing chain")},
			},
		},
		{
			name: "all failed",
			result: &pipeline.BatchResult{
				Errors: map[string]error{"SPY": errors.New("x"), "QQQ": errors.New("y")},
			},
			wantErr: true,
		},
		{
			name:    "batch aborted",
			result:  &pipeline.BatchResult{},
			err:     context.Canceled,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockBatchRunner{}
			runner.On("RunBatch", mock.Anything, wantInputs, 2).Return(tt.result, tt.err)

			job := NewScreenJob(runner, []string{"SPY", "QQQ"}, "0 30 16 * * 1-5", 2, logger.Nop())
			job.now = func() time.Time { return time.Date(2024, 2, 9, 16, 30, 0, 0, time.UTC) }

			err := job.Run(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			runner.AssertExpectations(t)
		})
	}
}

func TestScreenJob_NoTickers(t *testing.T) {
	runner := &mockBatchRunner{}
	job := NewScreenJob(runner, nil, "@daily", 1, logger.Nop())

	assert.Equal(t, "screen_tickers", job.Name())
	assert.Equal(t, "@daily", job.Schedule())
	require.NoError(t, job.Run(context.Background()))
	runner.AssertNotCalled(t, "RunBatch", mock.Anything, mock.Anything, mock.Anything)
}
