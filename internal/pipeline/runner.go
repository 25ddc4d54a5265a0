package pipeline

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/condor/internal/contracts"
	"github.com/wonny/condor/internal/metrics"
	"github.com/wonny/condor/internal/s0_data"
	"github.com/wonny/condor/internal/s0_data/quality"
	"github.com/wonny/condor/internal/s1_candidates"
	"github.com/wonny/condor/internal/s2_analytics"
	"github.com/wonny/condor/internal/selection"
	"github.com/wonny/condor/internal/strategyconfig"
	"github.com/wonny/condor/pkg/logger"
)

// ScreenInput selects one underlying to screen
type ScreenInput struct {
	Ticker string
	AsOf   time.Time // zero: today
	Spot   float64   // 0: latest OHLC close
}

// Runner coordinates the S0 → S4 pipeline for one underlying
// ⭐ SSOT: 파이프라인 조율은 여기서만
//
// A Runner holds no per-run state and may be shared between goroutines.
type Runner struct {
	config     *strategyconfig.Config
	configHash string

	loader      *s0_data.Loader
	qualityGate *quality.QualityGate
	filterer    *s0_data.Filterer
	analyzer    *s2_analytics.Analyzer
	screener    *selection.Screener
	ranker      *selection.Ranker

	// optional; nil disables persistence
	repo contracts.ScreenRunRepository

	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewRunner validates the strategy config and wires every stage
func NewRunner(cfg *strategyconfig.Config, loader *s0_data.Loader, repo contracts.ScreenRunRepository, log *logger.Logger, m *metrics.Metrics) (*Runner, error) {
	if err := strategyconfig.Validate(cfg); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("hash strategy config: %w", err)
	}

	screener, err := selection.NewScreener(cfg.Filter, log, m)
	if err != nil {
		return nil, err
	}

	for _, w := range strategyconfig.Warn(cfg) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	return &Runner{
		config:      cfg,
		configHash:  hash,
		loader:      loader,
		qualityGate: quality.NewQualityGate(quality.DefaultConfig()),
		filterer:    s0_data.NewFilterer(log, m),
		analyzer:    s2_analytics.NewAnalyzer(cfg.Analytics, nil, log, m),
		screener:    screener,
		ranker:      selection.NewRanker(log),
		repo:        repo,
		logger:      log,
		metrics:     m,
		now:         time.Now,
	}, nil
}

// Config returns the strategy the runner screens with
func (r *Runner) Config() *strategyconfig.Config {
	return r.config
}

// Run screens one underlying and persists the run when a repository is set
//
// A chain rejected by the IV gates is a successful run with no candidates.
// The context is checked between stages only.
func (r *Runner) Run(ctx context.Context, in ScreenInput) (run *contracts.ScreenRun, err error) {
	startTime := r.now()
	defer func() { r.metrics.RunFinished(err) }()

	asOf := in.AsOf
	if asOf.IsZero() {
		asOf = startTime
	}

	run = &contracts.ScreenRun{
		RunID:      uuid.NewString(),
		Ticker:     strings.ToUpper(strings.TrimSpace(in.Ticker)),
		AsOf:       contracts.DateOf(asOf),
		StrategyID: r.config.Meta.StrategyID,
		ConfigHash: r.configHash,
		Rejected:   make(map[string]int),
		Ranked:     []contracts.Analytics{},
		Stages:     make([]contracts.PipelineResult, 0, len(contracts.AllStages())),
		CreatedAt:  startTime.UTC(),
	}

	log := r.logger.WithRun(run.RunID, run.Ticker).WithField("as_of", run.AsOf.Format("2006-01-02"))
	log.Info("Starting screen run")

	// S0: 데이터 로드 + 품질 + 필터
	ds, filtered, err := r.runS0(run, in.Spot, log)
	if err != nil {
		r.metrics.DataError(contracts.StageData)
		return run, fmt.Errorf("S0 failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return run, err
	}

	if filtered.ChainRejected == "" {
		// S1 + S2: 후보 생성은 lazy, 분석 단계에서 소비
		analyzed, err := r.runS1S2(run, ds, filtered.Passed, log)
		if err != nil {
			return run, err
		}
		if err := ctx.Err(); err != nil {
			return run, err
		}

		// S3: Hard Cut
		screened := r.runS3(run, analyzed)

		// S4: 랭킹
		if err := r.runS4(run, screened); err != nil {
			return run, fmt.Errorf("S4 failed: %w", err)
		}
	} else {
		log.WithField("reason", filtered.ChainRejected).Info("Chain rejected by IV gate")
	}

	if r.repo != nil {
		if err := r.repo.SaveRun(ctx, run); err != nil {
			return run, fmt.Errorf("save screen run: %w", err)
		}
	}

	log.WithFields(map[string]interface{}{
		"duration": time.Since(startTime).Seconds(),
		"ranked":   len(run.Ranked),
	}).Info("Screen run completed")

	return run, nil
}

func (r *Runner) runS0(run *contracts.ScreenRun, spot float64, log *logger.Logger) (*s0_data.Dataset, s0_data.FilterResult, error) {
	stage := r.begin(contracts.StageData)

	ds, err := r.loader.Load(run.Ticker)
	if err != nil {
		return nil, s0_data.FilterResult{}, r.fail(run, stage, 0, err)
	}

	if !(spot > 0) {
		last, ok := ds.LatestClose()
		if !ok {
			return nil, s0_data.FilterResult{}, r.fail(run, stage, len(ds.Options),
				&contracts.DataError{Op: "spot", Message: "no spot given and no OHLC close to fall back to"})
		}
		spot = last
	}
	run.Spot = spot

	snapshot := r.qualityGate.Check(ds.Options, run.AsOf)
	snapshot.Ticker = run.Ticker
	run.QualityScore = snapshot.QualityScore
	if !snapshot.Passed {
		log.WithStage(contracts.StageData).WithFields(map[string]interface{}{
			"quality_score": snapshot.QualityScore,
			"flags":         snapshot.FlagCounts(),
		}).Warn("Chain quality below threshold")
	}

	chainIV, err := s0_data.ChainIV(ds.Options)
	if err != nil {
		return nil, s0_data.FilterResult{}, r.fail(run, stage, len(ds.Options), err)
	}
	ivRank, err := s2_analytics.IVRank(chainIV, ds.IVHistory)
	if err != nil {
		return nil, s0_data.FilterResult{}, r.fail(run, stage, len(ds.Options), err)
	}
	ivPct, err := s2_analytics.IVPercentile(chainIV, ds.IVHistory)
	if err != nil {
		return nil, s0_data.FilterResult{}, r.fail(run, stage, len(ds.Options), err)
	}
	run.ChainIV, run.IVRank, run.IVPercentile = chainIV, ivRank, ivPct

	result := r.filterer.Filter(ds.Options, ivRank, ivPct, r.config.Filter)
	run.Filtered = result.PassedCount()
	for reason, n := range result.Rejected {
		run.Rejected[contracts.StageData.ShortName()+":"+reason] += n
	}

	r.done(run, stage, len(ds.Options), run.Filtered, map[string]interface{}{
		"quality_score":  snapshot.QualityScore,
		"chain_iv":       chainIV,
		"iv_rank":        ivRank,
		"iv_percentile":  ivPct,
		"chain_rejected": result.ChainRejected,
	})
	return ds, result, nil
}

func (r *Runner) runS1S2(run *contracts.ScreenRun, ds *s0_data.Dataset, options []contracts.Option, log *logger.Logger) ([]contracts.Analytics, error) {
	stage := r.begin(contracts.StageCandidates)

	builder := s1_candidates.NewBuilder(run.AsOf, log.WithStage(contracts.StageCandidates), r.metrics)
	candidates, err := builder.Generate(options, r.config.Strategy)
	if err != nil {
		return nil, fmt.Errorf("S1 failed: %w", r.fail(run, stage, len(options), err))
	}
	// the builder's work happens while S2 drains the sequence
	r.done(run, stage, len(options), 0, map[string]interface{}{"lazy": true})
	s1 := len(run.Stages) - 1

	stage = r.begin(contracts.StageAnalytics)
	mkt := contracts.MarketContext{
		AsOf:          run.AsOf,
		Spot:          run.Spot,
		HistoricalIVs: ds.IVHistory,
		EarningsDate:  ds.EarningsDate,
		OHLC:          ds.OHLC,
		Chain:         ds.Options,
	}

	generated := 0
	analyzed, err := r.analyzer.AnalyzeAll(counted(candidates, &generated), mkt)
	if err != nil {
		return nil, fmt.Errorf("S2 failed: %w", r.fail(run, stage, generated, err))
	}

	run.Generated = generated
	run.Analyzed = len(analyzed)
	run.Stages[s1].OutputCount = generated
	r.metrics.Generated(run.Ticker, generated)
	r.done(run, stage, generated, len(analyzed), nil)

	return analyzed, nil
}

func (r *Runner) runS3(run *contracts.ScreenRun, analyzed []contracts.Analytics) []contracts.Analytics {
	stage := r.begin(contracts.StageScreener)

	screened, report := r.screener.Screen(analyzed)
	run.Screened = len(screened)
	for reason, n := range report.Filtered {
		run.Rejected[contracts.StageScreener.ShortName()+":"+reason] += n
	}

	r.done(run, stage, len(analyzed), len(screened), nil)
	return screened
}

func (r *Runner) runS4(run *contracts.ScreenRun, screened []contracts.Analytics) error {
	stage := r.begin(contracts.StageRanker)

	ranked, err := r.ranker.Rank(screened, r.config.Scoring, r.config.Filter.TopN)
	if err != nil {
		return r.fail(run, stage, len(screened), err)
	}
	run.Ranked = ranked

	r.done(run, stage, len(screened), len(ranked), nil)
	return nil
}

// stageTimer marks the start of one stage
type stageTimer struct {
	stage contracts.Stage
	start time.Time
}

func (r *Runner) begin(stage contracts.Stage) stageTimer {
	return stageTimer{stage: stage, start: time.Now()}
}

func (r *Runner) done(run *contracts.ScreenRun, t stageTimer, in, out int, meta map[string]interface{}) {
	d := time.Since(t.start)
	r.metrics.ObserveStage(t.stage, d)
	run.Stages = append(run.Stages, contracts.PipelineResult{
		Stage:       t.stage,
		Success:     true,
		InputCount:  in,
		OutputCount: out,
		Duration:    d.Milliseconds(),
		Metadata:    meta,
	})
}

func (r *Runner) fail(run *contracts.ScreenRun, t stageTimer, in int, err error) error {
	d := time.Since(t.start)
	r.metrics.ObserveStage(t.stage, d)
	run.Stages = append(run.Stages, contracts.PipelineResult{
		Stage:      t.stage,
		Success:    false,
		InputCount: in,
		Duration:   d.Milliseconds(),
		Error:      err.Error(),
	})
	return err
}

// counted passes a sequence through, counting yielded values
func counted[T any](seq iter.Seq[T], n *int) iter.Seq[T] {
	return func(yield func(T) bool) {
		for v := range seq {
			*n++
			if !yield(v) {
				return
			}
		}
	}
}
