package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/condor/internal/contracts"
	"github.com/wonny/condor/internal/pipeline"
	"github.com/wonny/condor/pkg/logger"
	"github.com/wonny/condor/pkg/redis"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// Runner screens one underlying on demand
type Runner interface {
	Run(ctx context.Context, in pipeline.ScreenInput) (*contracts.ScreenRun, error)
}

// ScreenHandler handles screening API endpoints
// ⭐ SSOT: 스크리닝 API 핸들러는 이 구조체에서만
type ScreenHandler struct {
	repo      contracts.ScreenRunRepository
	runner    Runner
	cache     *redis.Cache
	resultTTL time.Duration
	logger    *logger.Logger
}

// NewScreenHandler creates a new screen handler
// runner may be nil, which disables POST /api/screens.
func NewScreenHandler(repo contracts.ScreenRunRepository, runner Runner, cache *redis.Cache, resultTTL time.Duration, log *logger.Logger) *ScreenHandler {
	if resultTTL <= 0 {
		resultTTL = redis.TTLLong
	}
	return &ScreenHandler{
		repo:      repo,
		runner:    runner,
		cache:     cache,
		resultTTL: resultTTL,
		logger:    log,
	}
}

// GetLatest returns the latest run of a ticker
// GET /api/screens/{ticker}?top=N
func (h *ScreenHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ticker := strings.ToUpper(mux.Vars(r)["ticker"])

	top, err := queryInt(r, "top", 0)
	if err != nil || top < 0 {
		respondError(w, http.StatusBadRequest, "top must be a non-negative integer")
		return
	}

	var run contracts.ScreenRun
	found, err := h.cache.Get(ctx, redis.LatestRunKey(ticker), &run)
	if err != nil {
		h.logger.WithError(err).Warn("Cache read failed")
	}

	if !found {
		latest, err := h.repo.GetLatestRun(ctx, ticker)
		if errors.Is(err, contracts.ErrRunNotFound) {
			respondError(w, http.StatusNotFound, "No screen run for "+ticker)
			return
		}
		if err != nil {
			h.logger.WithError(err).WithField("ticker", ticker).Error("Failed to get screen run")
			respondError(w, http.StatusInternalServerError, "Failed to retrieve screen run")
			return
		}
		run = *latest
		h.storeCache(ctx, &run)
	}

	run.Ranked = run.Top(top)
	respondJSON(w, http.StatusOK, run)
}

// List returns the latest run per ticker without candidates
// GET /api/screens?limit=N
func (h *ScreenHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil || limit <= 0 {
		respondError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	limit = min(limit, maxListLimit)

	var runs []contracts.ScreenRun
	found, err := h.cache.Get(ctx, redis.RunListKey(limit), &runs)
	if err != nil {
		h.logger.WithError(err).Warn("Cache read failed")
	}

	if !found {
		runs, err = h.repo.ListLatestRuns(ctx, limit)
		if err != nil {
			h.logger.WithError(err).Error("Failed to list screen runs")
			respondError(w, http.StatusInternalServerError, "Failed to list screen runs")
			return
		}
		if err := h.cache.Set(ctx, redis.RunListKey(limit), runs, redis.TTLShort); err != nil {
			h.logger.WithError(err).Warn("Cache write failed")
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// TriggerRequest starts an on-demand screen
type TriggerRequest struct {
	Ticker string  `json:"ticker"`
	AsOf   string  `json:"as_of,omitempty"` // YYYY-MM-DD, default today
	Spot   float64 `json:"spot,omitempty"`  // default latest close
}

// Trigger screens a ticker from the server-side data directory
// POST /api/screens
func (h *ScreenHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		respondError(w, http.StatusServiceUnavailable, "Screening is not enabled on this server")
		return
	}

	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))
	if req.Ticker == "" {
		respondError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	in := pipeline.ScreenInput{Ticker: req.Ticker, Spot: req.Spot}
	if req.AsOf != "" {
		asOf, err := time.Parse("2006-01-02", req.AsOf)
		if err != nil {
			respondError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
			return
		}
		in.AsOf = asOf
	}

	ctx := r.Context()
	run, err := h.runner.Run(ctx, in)
	if err != nil {
		h.logger.WithError(err).WithField("ticker", req.Ticker).Warn("On-demand screen failed")

		var dataErr *contracts.DataError
		switch {
		case errors.As(err, &dataErr), errors.Is(err, fs.ErrNotExist):
			respondError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "Screen run failed")
		}
		return
	}

	h.storeCache(ctx, run)
	respondJSON(w, http.StatusCreated, run)
}

func (h *ScreenHandler) storeCache(ctx context.Context, run *contracts.ScreenRun) {
	if err := h.cache.Set(ctx, redis.LatestRunKey(run.Ticker), run, h.resultTTL); err != nil {
		h.logger.WithError(err).Warn("Cache write failed")
	}
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
