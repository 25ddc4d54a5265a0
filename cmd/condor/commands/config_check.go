package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/condor/internal/selection"
	"github.com/wonny/condor/internal/strategyconfig"
	"github.com/wonny/condor/pkg/config"
	"github.com/wonny/condor/pkg/logger"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "전략 설정 관리",
}

// configCheckCmd validates a strategy YAML without touching any data
var configCheckCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "전략 YAML 검증",
	Long: `전략 YAML을 로드하고 검증합니다.

이 명령어는:
- 알 수 없는 필드/범위 오류 검출 (fatal)
- filter.expression 컴파일
- 권장 제약 경고 출력 (non-fatal)
- config hash 출력

Example:
  go run ./cmd/condor config check
  go run ./cmd/condor config check config/strategy/iron_condor_default.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigCheck,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCheckCmd)
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	path := strategyPath
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		path = cfg.Screener.StrategyConfigPath
	}

	fmt.Printf("Checking %s\n", path)

	cfg, _, err := strategyconfig.Load(path)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	if _, err := selection.NewScreener(cfg.Filter, logger.Nop(), nil); err != nil {
		PrintError(err.Error())
		return err
	}

	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		return err
	}

	PrintKeyValue("Strategy", fmt.Sprintf("%s v%s", cfg.Meta.StrategyID, cfg.Meta.Version), 10)
	PrintKeyValue("Hash", hash, 10)
	PrintKeyValue("Widths", fmt.Sprintf("%v", cfg.Strategy.WidthPairs()), 10)

	for _, w := range strategyconfig.Warn(cfg) {
		PrintWarning(fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}

	PrintSuccess("Strategy config is valid")
	return nil
}
