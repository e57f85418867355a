package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/demandcast/internal/backtest"
	"github.com/wonny/demandcast/internal/ensemble"
	"github.com/wonny/demandcast/internal/models"
	"github.com/wonny/demandcast/internal/pipeline"
	"github.com/wonny/demandcast/internal/salesdata"
	"github.com/wonny/demandcast/pkg/config"
	"github.com/wonny/demandcast/pkg/logger"
)

// ForecastJob runs the full forecast pipeline nightly
// Schedule: 새벽 3시 (매출 집계 배치가 끝난 뒤)
type ForecastJob struct {
	cfg         *config.Config
	pool        *pgxpool.Pool
	logger      *logger.Logger
	projectRoot string
}

// NewForecastJob creates a new forecast job
func NewForecastJob(cfg *config.Config, pool *pgxpool.Pool, log *logger.Logger, projectRoot string) *ForecastJob {
	return &ForecastJob{
		cfg:         cfg,
		pool:        pool,
		logger:      log,
		projectRoot: projectRoot,
	}
}

// Name returns the job name
func (j *ForecastJob) Name() string {
	return "forecast_pipeline"
}

// Schedule returns the cron schedule (3 AM daily, after sales aggregation)
func (j *ForecastJob) Schedule() string {
	return "0 0 3 * * *"
}

// Run executes backtest refresh, weight fitting, and the forecast run
func (j *ForecastJob) Run(ctx context.Context) error {
	j.logger.Info("starting scheduled forecast pipeline")

	registry := models.BuildRegistry(j.cfg, j.logger)
	orchestrator := pipeline.NewOrchestrator(
		j.cfg,
		j.logger,
		registry,
		salesdata.NewRepository(j.pool),
		backtest.NewRepository(j.pool),
		ensemble.NewRepository(j.pool),
		pipeline.NewRepository(j.pool),
		j.projectRoot,
	)

	// ===== 1. 롤링 오리진 백테스트 갱신 =====
	j.logger.Info("step 1: rolling-origin backtest")
	if err := orchestrator.RunBacktest(ctx); err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	// ===== 2. 앙상블 가중치 적합 =====
	j.logger.Info("step 2: ensemble weight fitting")
	if _, err := orchestrator.FitEnsemble(ctx); err != nil {
		return fmt.Errorf("ensemble fit: %w", err)
	}

	// ===== 3. 예측 실행 =====
	j.logger.Info("step 3: forecast run")
	runLog, err := orchestrator.RunForecast(ctx)
	if err != nil {
		return fmt.Errorf("forecast run: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":              runLog.RunID,
		"window_slug":         runLog.WindowSlug,
		"spike_adjusted_days": runLog.SpikeAdjustedDays,
	}).Info("scheduled forecast pipeline completed")
	return nil
}
