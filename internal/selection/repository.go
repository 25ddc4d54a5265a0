package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/condor/internal/contracts"
)

// Schema creates the screening tables; safe to run repeatedly
const Schema = `
CREATE SCHEMA IF NOT EXISTS condor;

CREATE TABLE IF NOT EXISTS condor.screen_runs (
	run_id        TEXT PRIMARY KEY,
	ticker        TEXT NOT NULL,
	as_of         DATE NOT NULL,
	spot          DOUBLE PRECISION NOT NULL,
	strategy_id   TEXT NOT NULL,
	config_hash   TEXT NOT NULL,
	chain_iv      DOUBLE PRECISION NOT NULL,
	iv_rank       DOUBLE PRECISION NOT NULL,
	iv_percentile DOUBLE PRECISION NOT NULL,
	quality_score DOUBLE PRECISION NOT NULL,
	filtered      INTEGER NOT NULL,
	generated     INTEGER NOT NULL,
	analyzed      INTEGER NOT NULL,
	screened      INTEGER NOT NULL,
	rejected      JSONB NOT NULL DEFAULT '{}',
	stages        JSONB NOT NULL DEFAULT '[]',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS screen_runs_ticker_created_idx
	ON condor.screen_runs (ticker, created_at DESC);

CREATE TABLE IF NOT EXISTS condor.screen_candidates (
	run_id          TEXT NOT NULL REFERENCES condor.screen_runs (run_id) ON DELETE CASCADE,
	rank            INTEGER NOT NULL,
	condor_key      TEXT NOT NULL,
	expiration      DATE NOT NULL,
	composite_score DOUBLE PRECISION NOT NULL,
	return_on_risk  DOUBLE PRECISION NOT NULL,
	max_loss        DOUBLE PRECISION NOT NULL,
	analytics       JSONB NOT NULL,
	PRIMARY KEY (run_id, rank)
);
`

// Repository handles screening run persistence
// ⭐ SSOT: Selection 데이터 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

var _ contracts.ScreenRunRepository = (*Repository)(nil)

// NewRepository creates a new selection repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the tables if they do not exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// SaveRun saves a run and its ranked candidates in one transaction
// Saving the same run id again replaces its candidates.
func (r *Repository) SaveRun(ctx context.Context, run *contracts.ScreenRun) error {
	rejectedJSON, err := json.Marshal(run.Rejected)
	if err != nil {
		return fmt.Errorf("failed to marshal rejected: %w", err)
	}
	stagesJSON, err := json.Marshal(run.Stages)
	if err != nil {
		return fmt.Errorf("failed to marshal stages: %w", err)
	}

	// Begin transaction
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	runQuery := `
		INSERT INTO condor.screen_runs (
			run_id, ticker, as_of, spot, strategy_id, config_hash,
			chain_iv, iv_rank, iv_percentile, quality_score,
			filtered, generated, analyzed, screened, rejected, stages, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (run_id) DO UPDATE SET
			spot = EXCLUDED.spot,
			config_hash = EXCLUDED.config_hash,
			chain_iv = EXCLUDED.chain_iv,
			iv_rank = EXCLUDED.iv_rank,
			iv_percentile = EXCLUDED.iv_percentile,
			quality_score = EXCLUDED.quality_score,
			filtered = EXCLUDED.filtered,
			generated = EXCLUDED.generated,
			analyzed = EXCLUDED.analyzed,
			screened = EXCLUDED.screened,
			rejected = EXCLUDED.rejected,
			stages = EXCLUDED.stages
	`
	_, err = tx.Exec(ctx, runQuery,
		run.RunID, run.Ticker, run.AsOf, run.Spot, run.StrategyID, run.ConfigHash,
		run.ChainIV, run.IVRank, run.IVPercentile, run.QualityScore,
		run.Filtered, run.Generated, run.Analyzed, run.Screened,
		rejectedJSON, stagesJSON, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save screen run: %w", err)
	}

	// Delete existing candidates for the run
	_, err = tx.Exec(ctx, "DELETE FROM condor.screen_candidates WHERE run_id = $1", run.RunID)
	if err != nil {
		return fmt.Errorf("failed to delete old candidates: %w", err)
	}

	// Insert new candidates
	query := `
		INSERT INTO condor.screen_candidates (
			run_id, rank, condor_key, expiration, composite_score,
			return_on_risk, max_loss, analytics
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, a := range run.Ranked {
		analyticsJSON, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("failed to marshal analytics: %w", err)
		}
		_, err = tx.Exec(ctx, query,
			run.RunID, a.Rank, a.Condor.Key(), a.Condor.Expiration(), a.Score(),
			a.ReturnOnRisk, a.MaxLoss, analyticsJSON,
		)
		if err != nil {
			return fmt.Errorf("failed to insert candidate: %w", err)
		}
	}

	// Commit transaction
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

const runColumns = `
	run_id, ticker, as_of, spot, strategy_id, config_hash,
	chain_iv, iv_rank, iv_percentile, quality_score,
	filtered, generated, analyzed, screened, rejected, stages, created_at
`

// GetLatestRun retrieves the most recent run of a ticker with its candidates
func (r *Repository) GetLatestRun(ctx context.Context, ticker string) (*contracts.ScreenRun, error) {
	query := `SELECT` + runColumns + `
		FROM condor.screen_runs
		WHERE ticker = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	run, err := scanRun(r.pool.QueryRow(ctx, query, ticker))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", ticker, contracts.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get screen run: %w", err)
	}

	ranked, err := r.getCandidates(ctx, run.RunID)
	if err != nil {
		return nil, err
	}
	run.Ranked = ranked

	return run, nil
}

// ListLatestRuns returns the latest run per ticker, without candidates
func (r *Repository) ListLatestRuns(ctx context.Context, limit int) ([]contracts.ScreenRun, error) {
	query := `
		SELECT * FROM (
			SELECT DISTINCT ON (ticker)` + runColumns + `
			FROM condor.screen_runs
			ORDER BY ticker, created_at DESC
		) latest
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query screen runs: %w", err)
	}
	defer rows.Close()

	runs := make([]contracts.ScreenRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan screen run: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

func (r *Repository) getCandidates(ctx context.Context, runID string) ([]contracts.Analytics, error) {
	query := `
		SELECT analytics
		FROM condor.screen_candidates
		WHERE run_id = $1
		ORDER BY rank ASC
	`

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	ranked := make([]contracts.Analytics, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		var a contracts.Analytics
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal candidate: %w", err)
		}
		ranked = append(ranked, a)
	}

	return ranked, rows.Err()
}

func scanRun(row pgx.Row) (*contracts.ScreenRun, error) {
	var (
		run          contracts.ScreenRun
		rejectedJSON []byte
		stagesJSON   []byte
	)

	err := row.Scan(
		&run.RunID, &run.Ticker, &run.AsOf, &run.Spot, &run.StrategyID, &run.ConfigHash,
		&run.ChainIV, &run.IVRank, &run.IVPercentile, &run.QualityScore,
		&run.Filtered, &run.Generated, &run.Analyzed, &run.Screened,
		&rejectedJSON, &stagesJSON, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(rejectedJSON, &run.Rejected); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rejected: %w", err)
	}
	if err := json.Unmarshal(stagesJSON, &run.Stages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stages: %w", err)
	}

	return &run, nil
}
