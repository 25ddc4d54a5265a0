package contracts

import "time"

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 메트릭, DB row에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S0 → S1 → S2 → S3 → S4
//   Data  Candidates  Analytics  Screener  Ranker

// Stage represents a pipeline stage
type Stage string

const (
	// StageData S0: 옵션 체인 로드 및 필터링
	// 위치: internal/s0_data/
	StageData Stage = "S0_DATA"

	// StageCandidates S1: 아이언 콘도르 후보 생성
	// 위치: internal/s1_candidates/
	StageCandidates Stage = "S1_CANDIDATES"

	// StageAnalytics S2: 후보별 리스크/수익 분석
	// 위치: internal/s2_analytics/
	StageAnalytics Stage = "S2_ANALYTICS"

	// StageScreener S3: Hard Cut 필터링 (max loss, PoP, 실적 발표, 표현식)
	// 위치: internal/selection/screener.go
	StageScreener Stage = "S3_SCREENER"

	// StageRanker S4: 배치 정규화 종합 점수 및 순위
	// 위치: internal/selection/ranker.go
	StageRanker Stage = "S4_RANKER"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S0", "S1")
func (s Stage) ShortName() string {
	switch s {
	case StageData:
		return "S0"
	case StageCandidates:
		return "S1"
	case StageAnalytics:
		return "S2"
	case StageScreener:
		return "S3"
	case StageRanker:
		return "S4"
	default:
		return "UNKNOWN"
	}
}

// Description returns a human readable description of the stage
func (s Stage) Description() string {
	switch s {
	case StageData:
		return "체인 로드/필터"
	case StageCandidates:
		return "콘도르 후보 생성"
	case StageAnalytics:
		return "리스크/수익 분석"
	case StageScreener:
		return "Hard Cut 필터링"
	case StageRanker:
		return "종합 점수/순위"
	default:
		return "알 수 없음"
	}
}

// AllStages returns all pipeline stages in order
func AllStages() []Stage {
	return []Stage{
		StageData,
		StageCandidates,
		StageAnalytics,
		StageScreener,
		StageRanker,
	}
}

// IsValidStage checks if a stage string is valid
func IsValidStage(s string) bool {
	for _, stage := range AllStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}

// PipelineResult represents the result of a pipeline stage execution
type PipelineResult struct {
	Stage       Stage                  `json:"stage"`
	Success     bool                   `json:"success"`
	InputCount  int                    `json:"input_count"`
	OutputCount int                    `json:"output_count"`
	Duration    int64                  `json:"duration_ms"`
	Error       string                 `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// ScreenRun is one completed screening of one underlying
// ⭐ SSOT: S4 → 저장/API 전달
type ScreenRun struct {
	RunID        string           `json:"run_id"`
	Ticker       string           `json:"ticker"`
	AsOf         time.Time        `json:"as_of"`
	Spot         float64          `json:"spot"`
	StrategyID   string           `json:"strategy_id"`
	ConfigHash   string           `json:"config_hash"`
	ChainIV      float64          `json:"chain_iv"`
	IVRank       float64          `json:"iv_rank"`
	IVPercentile float64          `json:"iv_percentile"`
	QualityScore float64          `json:"quality_score"`
	Filtered     int              `json:"filtered"` // options passing S0
	Generated    int              `json:"generated"`
	Analyzed     int              `json:"analyzed"`
	Screened     int              `json:"screened"`
	Rejected     map[string]int   `json:"rejected,omitempty"` // "S0:low_oi" → n
	Ranked       []Analytics      `json:"ranked"`
	Stages       []PipelineResult `json:"stages"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Top returns the first n ranked candidates
func (r *ScreenRun) Top(n int) []Analytics {
	if n <= 0 || n > len(r.Ranked) {
		n = len(r.Ranked)
	}
	return r.Ranked[:n]
}
