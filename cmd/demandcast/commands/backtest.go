package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "롤링 오리진 백테스트 실행",
	Long: `전체 매출 히스토리에 대해 롤링 오리진 백테스트를 실행합니다.

이 명령어는:
- 컷오프별로 각 후보 모델을 학습/평가
- out-of-fold 예측을 DB에 저장
- 모델 x 수평선 버킷별 wMAPE/RMSE/bias 지표 계산

Example:
  go run ./cmd/demandcast backtest`,
	RunE: runBacktest,
}

func init() {
	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Demandcast: Rolling-Origin Backtest ===")

	cfg, log, db, err := initDeps()
	if err != nil {
		return err
	}
	defer db.Close()

	orchestrator := newOrchestrator(cfg, log, db)
	if err := orchestrator.RunBacktest(cmd.Context()); err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	fmt.Println("\n✅ Backtest completed")
	return nil
}
