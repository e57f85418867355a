package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/demandcast/internal/backtest"
	"github.com/wonny/demandcast/internal/ensemble"
	"github.com/wonny/demandcast/internal/models"
	"github.com/wonny/demandcast/internal/pipeline"
	"github.com/wonny/demandcast/internal/salesdata"
	"github.com/wonny/demandcast/pkg/config"
	"github.com/wonny/demandcast/pkg/database"
	"github.com/wonny/demandcast/pkg/logger"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "demandcast",
	Short: "Demandcast - 일별 매장 매출 예측 파이프라인",
	Long: `Demandcast Unified CLI

멀티 모델 앙상블 기반 일별 매출 예측 시스템.
백테스트로 학습한 수평선별 가중치로 블렌딩하고,
스파이크 업리프트 / 성장률 보정 / 가드레일 오버레이를 적용합니다.

Usage:
  go run ./cmd/demandcast [command]

Examples:
  go run ./cmd/demandcast backtest
  go run ./cmd/demandcast ensemble fit
  go run ./cmd/demandcast forecast run
  go run ./cmd/demandcast api`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initDeps loads config, builds the logger, and connects to the database
func initDeps() (*config.Config, *logger.Logger, *database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	return cfg, log, db, nil
}

// newOrchestrator wires the pipeline against live repositories
func newOrchestrator(cfg *config.Config, log *logger.Logger, db *database.DB) *pipeline.Orchestrator {
	projectRoot, err := os.Getwd()
	if err != nil {
		projectRoot = "."
	}

	return pipeline.NewOrchestrator(
		cfg,
		log,
		models.BuildRegistry(cfg, log),
		salesdata.NewRepository(db.Pool),
		backtest.NewRepository(db.Pool),
		ensemble.NewRepository(db.Pool),
		pipeline.NewRepository(db.Pool),
		projectRoot,
	)
}
