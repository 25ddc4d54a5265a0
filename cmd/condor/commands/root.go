package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyPath string
	dataDir      string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "condor",
	Short: "Iron condor screener",
	Long: `Condor Unified CLI

옵션 체인에서 아이언 콘도르 후보를 생성하고 평가/순위화.
5단계 파이프라인: S0 데이터 → S1 후보 → S2 분석 → S3 스크리너 → S4 랭커.

Usage:
  go run ./cmd/condor [command]

Examples:
  go run ./cmd/condor screen SPY --spot 560 --top 10
  go run ./cmd/condor config check config/strategy/iron_condor_default.yaml
  go run ./cmd/condor api
  go run ./cmd/condor scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags (override STRATEGY_CONFIG / DATA_DIR)
	rootCmd.PersistentFlags().StringVar(&strategyPath, "strategy", "", "strategy YAML (default $STRATEGY_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "market data directory (default $DATA_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
