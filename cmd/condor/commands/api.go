package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/condor/internal/api"
	"github.com/wonny/condor/internal/api/handlers"
	"github.com/wonny/condor/internal/metrics"
	"github.com/wonny/condor/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- 최신 스크리닝 결과 조회 제공
- 온디맨드 스크리닝 트리거 제공 (rate limited)
- Prometheus 메트릭 노출

Endpoints:
  GET  /health                  - Health check
  GET  /metrics                 - Prometheus metrics
  GET  /api/screens             - 티커별 최신 실행 목록
  GET  /api/screens/{ticker}    - 티커 최신 실행 (?top=N)
  POST /api/screens             - 스크리닝 실행

Example:
  go run ./cmd/condor api
  go run ./cmd/condor api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default $PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Condor API Server ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	var m *metrics.Metrics
	if a.cfg.MetricsEnabled {
		m = a.metrics
	}

	cache := redis.NewCache(a.redis, "condor")
	screenHandler := handlers.NewScreenHandler(a.repo, a.runner, cache, a.cfg.Screener.ResultTTL, a.log)
	limiter := api.NewTriggerLimiter(a.redis, a.cfg.Screener.TriggerLimit, a.log)
	router := api.NewRouter(screenHandler, limiter, m, a.log)
	server := api.New(a.cfg, a.log, router)

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return err
	}

	a.log.Info("Server stopped")
	return nil
}
