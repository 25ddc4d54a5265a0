package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/condor/internal/selection"
	"github.com/wonny/condor/pkg/config"
	"github.com/wonny/condor/pkg/database"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "PostgreSQL 연결 테스트 및 스키마 생성",
	Long: `데이터베이스 연결을 테스트하고 스크리닝 결과 테이블을 생성합니다.

이 명령어는:
- config에서 DATABASE_URL 로드
- Health Check 실행 (Ping + Pool 통계)
- screen_runs / screen_candidates 테이블 생성 (IF NOT EXISTS)

Example:
  go run ./cmd/condor db`,
	RunE: runDB,
}

func init() {
	rootCmd.AddCommand(dbCmd)
}

func runDB(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Condor Database Check ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		PrintError("Failed to connect to database")
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		PrintError("Health check failed")
		return err
	}
	PrintSuccess("Database reachable")
	PrintKeyValue("Response Time", status.ResponseTime.String(), 14)
	PrintKeyValue("Connections", fmt.Sprintf("%d total / %d max (%d idle)",
		status.Stats.TotalConns, status.Stats.MaxConns, status.Stats.IdleConns), 14)

	if err := selection.NewRepository(db.Pool).EnsureSchema(ctx); err != nil {
		PrintError("Schema creation failed")
		return err
	}
	PrintSuccess("Schema ready")
	return nil
}
