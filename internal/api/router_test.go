package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/condor/internal/api/handlers"
	"github.com/wonny/condor/internal/contracts"
	"github.com/wonny/condor/internal/metrics"
	"github.com/wonny/condor/internal/pipeline"
	"github.com/wonny/condor/internal/selection"
	"github.com/wonny/condor/pkg/logger"
)

// fakeRunner saves a fixed run for every ticker it knows
type fakeRunner struct {
	repo  contracts.ScreenRunRepository
	known map[string]bool
	calls int
}

func (f *fakeRunner) Run(ctx context.Context, in pipeline.ScreenInput) (*contracts.ScreenRun, error) {
	f.calls++
	if !f.known[in.Ticker] {
		return &contracts.ScreenRun{Ticker: in.Ticker}, &contracts.DataError{Op: "load", Message: "no data"}
	}
	score := 1.0
	run := &contracts.ScreenRun{
		RunID:     "run-" + in.Ticker,
		Ticker:    in.Ticker,
		AsOf:      in.AsOf,
		Spot:      in.Spot,
		Ranked:    []contracts.Analytics{{Rank: 1, CompositeScore: &score}, {Rank: 2}},
		CreatedAt: time.Now(),
	}
	return run, f.repo.SaveRun(ctx, run)
}

func newTestRouter(t *testing.T, perMinute int) (http.Handler, *fakeRunner, *selection.MemoryRepository) {
	t.Helper()
	log := logger.Nop()
	repo := selection.NewMemoryRepository()
	runner := &fakeRunner{repo: repo, known: map[string]bool{"SPY": true}}

	h := handlers.NewScreenHandler(repo, runner, nil, time.Hour, log)
	return NewRouter(h, NewTriggerLimiter(nil, perMinute, log), metrics.New(), log), runner, repo
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	h, _, _ := newTestRouter(t, 10)

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "condor-api")

	rec = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Screens(t *testing.T) {
	h, runner, _ := newTestRouter(t, 10)

	t.Run("not found before any run", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/screens/SPY", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("trigger", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/screens", `{"ticker":"spy","as_of":"2024-02-09","spot":560}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var run contracts.ScreenRun
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
		assert.Equal(t, "SPY", run.Ticker)
		assert.Equal(t, 560.0, run.Spot)
		assert.Equal(t, time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC), run.AsOf)
	})

	t.Run("latest with top", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/screens/spy?top=1", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var run contracts.ScreenRun
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
		assert.Len(t, run.Ranked, 1)
	})

	t.Run("list", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/screens?limit=5", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Runs  []contracts.ScreenRun `json:"runs"`
			Count int                   `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Count)
		assert.Equal(t, "SPY", body.Runs[0].Ticker)
	})

	t.Run("bad requests", func(t *testing.T) {
		tests := []struct {
			method, path, body string
			want               int
		}{
			{http.MethodGet, "/api/screens/SPY?top=-1", "", http.StatusBadRequest},
			{http.MethodGet, "/api/screens?limit=abc", "", http.StatusBadRequest},
			{http.MethodPost, "/api/screens", `{"ticker":""}`, http.StatusBadRequest},
			{http.MethodPost, "/api/screens", `not json`, http.StatusBadRequest},
			{http.MethodPost, "/api/screens", `{"ticker":"SPY","as_of":"02/09/2024"}`, http.StatusBadRequest},
			{http.MethodPost, "/api/screens", `{"ticker":"QQQ"}`, http.StatusUnprocessableEntity},
		}
		for _, tt := range tests {
			rec := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, "%s %s %s", tt.method, tt.path, tt.body)
		}
	})

	assert.Equal(t, 2, runner.calls, "only valid requests reach the runner")
}

func TestRouter_TriggerRateLimit(t *testing.T) {
	h, runner, _ := newTestRouter(t, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, do(t, h, http.MethodPost, "/api/screens", `{"ticker":"SPY"}`).Code)
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 2, runner.calls)

	// reads are never limited
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/screens/SPY", "").Code)
}

func TestScreenHandler_RepositoryError(t *testing.T) {
	log := logger.Nop()
	h := handlers.NewScreenHandler(failingRepo{}, nil, nil, 0, log)
	router := NewRouter(h, NewTriggerLimiter(nil, 10, log), nil, log)

	assert.Equal(t, http.StatusInternalServerError, do(t, router, http.MethodGet, "/api/screens/SPY", "").Code)
	assert.Equal(t, http.StatusInternalServerError, do(t, router, http.MethodGet, "/api/screens", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, router, http.MethodPost, "/api/screens", `{"ticker":"SPY"}`).Code)
}

type failingRepo struct{}

func (failingRepo) SaveRun(context.Context, *contracts.ScreenRun) error {
	return errors.New("db down")
}

func (failingRepo) GetLatestRun(context.Context, string) (*contracts.ScreenRun, error) {
	return nil, errors.New("db down")
}

func (failingRepo) ListLatestRuns(context.Context, int) ([]contracts.ScreenRun, error) {
	return nil, errors.New("db down")
}
