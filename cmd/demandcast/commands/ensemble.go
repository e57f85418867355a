package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/demandcast/internal/ensemble"
)

// ensembleCmd represents the ensemble command group
var ensembleCmd = &cobra.Command{
	Use:   "ensemble",
	Short: "앙상블 가중치 관리",
	Long:  `백테스트 out-of-fold 예측으로부터 수평선 버킷별 앙상블 가중치를 학습/조회합니다.`,
}

var ensembleFitCmd = &cobra.Command{
	Use:   "fit",
	Short: "버킷별 앙상블 가중치 학습",
	Long: `저장된 out-of-fold 예측을 불러와 수평선 버킷별로
wMAPE를 최소화하는 모델 가중치를 학습하고 DB에 저장합니다.

백테스트가 먼저 실행되어 있어야 합니다.`,
	RunE: runEnsembleFit,
}

var ensembleShowCmd = &cobra.Command{
	Use:   "show",
	Short: "현재 앙상블 가중치 조회",
	RunE:  runEnsembleShow,
}

func init() {
	ensembleCmd.AddCommand(ensembleFitCmd)
	ensembleCmd.AddCommand(ensembleShowCmd)
	rootCmd.AddCommand(ensembleCmd)
}

func runEnsembleFit(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Demandcast: Ensemble Weight Fitting ===")

	cfg, log, db, err := initDeps()
	if err != nil {
		return err
	}
	defer db.Close()

	orchestrator := newOrchestrator(cfg, log, db)
	weights, err := orchestrator.FitEnsemble(cmd.Context())
	if err != nil {
		return fmt.Errorf("fit ensemble: %w", err)
	}

	printWeightTable(weights)
	fmt.Println("\n✅ Ensemble weights saved")
	return nil
}

func runEnsembleShow(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Demandcast: Ensemble Weights ===")

	_, _, db, err := initDeps()
	if err != nil {
		return err
	}
	defer db.Close()

	weights, err := ensemble.NewRepository(db.Pool).GetWeights(cmd.Context())
	if err != nil {
		return fmt.Errorf("get weights: %w", err)
	}
	if len(weights) == 0 {
		fmt.Println("⚠️  No ensemble weights found. Run 'ensemble fit' first.")
		return nil
	}

	printWeightTable(weights)
	return nil
}

func printWeightTable(weights ensemble.Weights) {
	fmt.Println()
	currentBucket := ""
	for _, row := range weights.Flatten() {
		if string(row.Bucket) != currentBucket {
			currentBucket = string(row.Bucket)
			fmt.Printf("📅 [%s]\n", currentBucket)
		}
		fmt.Printf("   %-28s %.4f\n", row.Model, row.Weight)
	}
}
