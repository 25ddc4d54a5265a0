package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/condor/internal/contracts"
	"github.com/wonny/condor/internal/pipeline"
)

// screenCmd represents the screen command
var screenCmd = &cobra.Command{
	Use:   "screen TICKER [TICKER...]",
	Short: "아이언 콘도르 스크리닝 실행",
	Long: `하나 이상의 티커에 대해 S0 → S4 파이프라인을 실행합니다.

데이터 위치: <data-dir>/<TICKER>/{chain,iv_history,ohlc}.csv

Composite score는 티커별 배치 기준이므로, 여러 티커 결과는
티커 → 순위 순으로 나열됩니다.

Example:
  go run ./cmd/condor screen SPY --spot 560.25 --as-of 2024-02-09
  go run ./cmd/condor screen SPY QQQ IWM --top 5
  go run ./cmd/condor screen SPY --json --save`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScreen,
}

var (
	screenAsOf        string
	screenSpot        float64
	screenTop         int
	screenConcurrency int
	screenJSON        bool
	screenSave        bool
)

func init() {
	rootCmd.AddCommand(screenCmd)

	// Flags
	screenCmd.Flags().StringVar(&screenAsOf, "as-of", "", "평가 기준일 YYYY-MM-DD (default today)")
	screenCmd.Flags().Float64Var(&screenSpot, "spot", 0, "기초자산 가격 (default 마지막 OHLC 종가, 단일 티커만)")
	screenCmd.Flags().IntVar(&screenTop, "top", 0, "티커별 상위 N개만 출력 (0 = 전체)")
	screenCmd.Flags().IntVar(&screenConcurrency, "concurrency", 0, "동시 실행 티커 수 (default $SCREEN_CONCURRENCY)")
	screenCmd.Flags().BoolVar(&screenJSON, "json", false, "JSON 출력")
	screenCmd.Flags().BoolVar(&screenSave, "save", false, "결과 저장 (DATABASE_URL)")
}

func runScreen(cmd *cobra.Command, args []string) error {
	if screenSpot != 0 && len(args) > 1 {
		return fmt.Errorf("--spot applies to a single ticker")
	}
	if screenTop < 0 {
		return fmt.Errorf("--top must be >= 0")
	}

	var asOf time.Time
	if screenAsOf != "" {
		t, err := time.Parse(contracts.DateLayout, screenAsOf)
		if err != nil {
			return fmt.Errorf("--as-of: %w", err)
		}
		asOf = t
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, screenSave)
	if err != nil {
		return err
	}
	defer a.Close()

	inputs := make([]pipeline.ScreenInput, 0, len(args))
	for _, ticker := range args {
		inputs = append(inputs, pipeline.ScreenInput{
			Ticker: strings.ToUpper(ticker),
			AsOf:   asOf,
			Spot:   screenSpot,
		})
	}

	concurrency := screenConcurrency
	if concurrency <= 0 {
		concurrency = a.cfg.Screener.Concurrency
	}

	result, err := a.runner.RunBatch(ctx, inputs, concurrency)
	if err != nil {
		return fmt.Errorf("screen: %w", err)
	}

	for _, run := range result.Runs {
		run.Ranked = run.Top(screenTop)
	}

	if screenJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.Runs); err != nil {
			return err
		}
	} else {
		for _, run := range result.Runs {
			PrintRunHeader(run)
		}
		fmt.Println()
		PrintRankedTable(pipeline.Merge(result.Runs))
	}

	for ticker, err := range result.Errors {
		PrintError(fmt.Sprintf("%s: %v", ticker, err))
	}
	if len(result.Runs) == 0 {
		return fmt.Errorf("all %d tickers failed", len(result.Errors))
	}
	return nil
}
