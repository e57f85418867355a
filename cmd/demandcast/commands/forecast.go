package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	forecastStart string
	forecastEnd   string
)

// forecastCmd represents the forecast command group
var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "일별 예측 생성",
	Long:  `학습된 앙상블 가중치로 일별 p50/p80/p90 예측을 생성하고 산출물을 저장합니다.`,
}

var forecastRunCmd = &cobra.Command{
	Use:   "run",
	Short: "예측 파이프라인 실행",
	Long: `전체 예측 파이프라인을 실행합니다.

블렌딩 -> 스파이크 업리프트 -> 가드레일 -> 성장률 보정 -> 오버라이드 -> 가드레일
순서로 적용하고 CSV/JSON 산출물과 run log를 기록합니다.

Example:
  go run ./cmd/demandcast forecast run
  go run ./cmd/demandcast forecast run --start 2026-01-01 --end 2026-12-31`,
	RunE: runForecastRun,
}

func init() {
	forecastRunCmd.Flags().StringVar(&forecastStart, "start", "", "예측 시작일 (YYYY-MM-DD, 기본: 설정값)")
	forecastRunCmd.Flags().StringVar(&forecastEnd, "end", "", "예측 종료일 (YYYY-MM-DD, 기본: 설정값)")
	forecastCmd.AddCommand(forecastRunCmd)
	rootCmd.AddCommand(forecastCmd)
}

func runForecastRun(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Demandcast: Forecast Pipeline ===")

	cfg, log, db, err := initDeps()
	if err != nil {
		return err
	}
	defer db.Close()

	if forecastStart != "" {
		cfg.Forecast.Start = forecastStart
	}
	if forecastEnd != "" {
		cfg.Forecast.End = forecastEnd
	}
	fmt.Printf("📅 Window: %s ~ %s\n", cfg.Forecast.Start, cfg.Forecast.End)

	orchestrator := newOrchestrator(cfg, log, db)
	runLog, err := orchestrator.RunForecast(cmd.Context())
	if err != nil {
		return fmt.Errorf("run forecast: %w", err)
	}

	fmt.Println("\n✅ Forecast completed")
	fmt.Printf("   Run ID:          %s\n", runLog.RunID)
	fmt.Printf("   Window:          %s (%s ~ %s)\n", runLog.WindowSlug, runLog.WindowStart, runLog.WindowEnd)
	fmt.Printf("   Annual p50:      %s\n", runLog.AnnualP50Total.StringFixed(2))
	fmt.Printf("   Spike-adj days:  %d\n", runLog.SpikeAdjustedDays)
	fmt.Printf("   Calibration:     %s\n", runLog.CalibrationMode)
	for name, path := range runLog.OutputPaths {
		fmt.Printf("   %-16s %s\n", name+":", path)
	}
	return nil
}
