package contracts

import (
	"context"
	"time"
)

// GreeksProvider fills a missing delta from a pricing model
// ⭐ SSOT: S2 Greeks 보강 인터페이스
type GreeksProvider interface {
	// Delta returns the model delta, false when it cannot be computed
	Delta(opt Option, spot float64, asOf time.Time) (float64, bool)
}

// CondorAnalyzer computes analytics for one candidate (S2)
// ⭐ SSOT: S2 분석 인터페이스
type CondorAnalyzer interface {
	Analyze(ic IronCondor, mkt MarketContext) (Analytics, error)
}

// ScreenRunRepository persists completed screenings
// ⭐ SSOT: 저장소 인터페이스는 여기서만
type ScreenRunRepository interface {
	SaveRun(ctx context.Context, run *ScreenRun) error
	GetLatestRun(ctx context.Context, ticker string) (*ScreenRun, error)
	ListLatestRuns(ctx context.Context, limit int) ([]ScreenRun, error)
}
