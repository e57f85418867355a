package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/demandcast/internal/pipeline"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "최신 예측 실행 상태 조회",
	Long: `가장 최근 예측 실행의 run log를 출력합니다.

Example:
  go run ./cmd/demandcast status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Demandcast: Latest Run ===")

	_, _, db, err := initDeps()
	if err != nil {
		return err
	}
	defer db.Close()

	runLog, err := pipeline.NewRepository(db.Pool).GetLatestRunLog(cmd.Context())
	if err != nil {
		return fmt.Errorf("get latest run log: %w", err)
	}
	if runLog == nil {
		fmt.Println("⚠️  No forecast runs found. Run 'forecast run' first.")
		return nil
	}

	fmt.Printf("\n📊 Run %s\n", runLog.RunID)
	fmt.Printf("   Created:         %s\n", runLog.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("   Git Commit:      %s\n", runLog.GitCommit)
	fmt.Printf("   Config:          %s\n", runLog.ConfigFingerprint[:12])
	fmt.Printf("   Window:          %s (%s ~ %s)\n", runLog.WindowSlug, runLog.WindowStart, runLog.WindowEnd)
	fmt.Printf("   Data Through:    %s\n", runLog.DataThrough)
	fmt.Printf("   Annual p50:      %s\n", runLog.AnnualP50Total.StringFixed(2))
	fmt.Printf("   Annual p80:      %s\n", runLog.AnnualP80Total.StringFixed(2))
	fmt.Printf("   Annual p90:      %s\n", runLog.AnnualP90Total.StringFixed(2))
	fmt.Printf("   Spike-adj days:  %d\n", runLog.SpikeAdjustedDays)
	fmt.Printf("   Calibration:     %s\n", runLog.CalibrationMode)

	if len(runLog.OutputPaths) > 0 {
		fmt.Println("\n   Output files:")
		for name, path := range runLog.OutputPaths {
			fmt.Printf("     %-18s %s\n", name, path)
		}
	}

	return nil
}
