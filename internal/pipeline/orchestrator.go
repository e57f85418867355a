package pipeline

import (
	"context"
	"fmt"

	"github.com/wonny/demandcast/internal/backtest"
	"github.com/wonny/demandcast/internal/calibration"
	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/ensemble"
	"github.com/wonny/demandcast/internal/overlay"
	"github.com/wonny/demandcast/internal/salesdata"
	"github.com/wonny/demandcast/pkg/config"
	"github.com/wonny/demandcast/pkg/logger"
)

// 아티팩트 파일 이름
const (
	FileDailyForecast  = "forecast_daily.csv"
	FileWeights        = "ensemble_weights.csv"
	FileSpikePriors    = "spike_uplift_priors.csv"
	FileCalibrationLog = "growth_calibration_log.csv"
	FileMonthlyScales  = "growth_monthly_scales.csv"
	FileMetrics        = "backtest_metrics.csv"
	FileRollups        = "rollups.json"
	FileRunLog         = "run_log.json"
)

// DataSource 히스토리와 영업시간 캘린더 읽기
type DataSource interface {
	GetHistory(ctx context.Context) ([]contracts.SalesObservation, error)
	GetHoursCalendar(ctx context.Context, window contracts.ForecastWindow) ([]contracts.HoursDay, error)
}

// OOFStore 백테스트 산출물 영속성
type OOFStore interface {
	SaveOOFPredictions(ctx context.Context, rows []contracts.OOFPrediction) error
	GetOOFPredictions(ctx context.Context) ([]contracts.OOFPrediction, error)
	SaveMetrics(ctx context.Context, metrics []backtest.ModelBucketMetric) error
}

// WeightStore 앙상블 가중치 영속성
type WeightStore interface {
	SaveWeights(ctx context.Context, weights ensemble.Weights) error
	GetWeights(ctx context.Context) (ensemble.Weights, error)
}

// ForecastStore 최종 예측과 실행 메타데이터 영속성
type ForecastStore interface {
	SaveForecast(ctx context.Context, runID string, records []contracts.ForecastRecord) error
	SaveRunLog(ctx context.Context, runLog *RunLog) error
}

// Orchestrator 예측 파이프라인 전체 흐름 조율자
// ⭐ SSOT: 오버레이 적용 순서는 여기서만 정의된다
// blend -> spike uplift -> guardrails -> growth calibration ->
// overrides -> guardrails
type Orchestrator struct {
	cfg      *config.Config
	log      *logger.Logger
	registry *contracts.ModelRegistry

	data     DataSource
	oofStore OOFStore
	weights  WeightStore
	store    ForecastStore

	projectRoot string
}

// NewOrchestrator wires the pipeline
func NewOrchestrator(
	cfg *config.Config,
	log *logger.Logger,
	registry *contracts.ModelRegistry,
	data DataSource,
	oofStore OOFStore,
	weights WeightStore,
	store ForecastStore,
	projectRoot string,
) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		log:         log.Component("pipeline"),
		registry:    registry,
		data:        data,
		oofStore:    oofStore,
		weights:     weights,
		store:       store,
		projectRoot: projectRoot,
	}
}

// RunBacktest executes the rolling-origin sweep and persists its outputs
func (o *Orchestrator) RunBacktest(ctx context.Context) error {
	history, err := o.data.GetHistory(ctx)
	if err != nil {
		return fmt.Errorf("load sales history: %w", err)
	}
	if len(history) == 0 {
		return fmt.Errorf("backtest: sales history is empty")
	}

	harness := backtest.NewHarness(o.registry, o.cfg.Backtest, o.log)
	rows, err := harness.Run(ctx, history)
	if err != nil {
		return fmt.Errorf("rolling-origin sweep: %w", err)
	}

	if err := o.oofStore.SaveOOFPredictions(ctx, rows); err != nil {
		return fmt.Errorf("persist oof predictions: %w", err)
	}

	metrics := backtest.ComputeMetrics(rows)
	if err := o.oofStore.SaveMetrics(ctx, metrics); err != nil {
		return fmt.Errorf("persist backtest metrics: %w", err)
	}

	writer, err := NewArtifactWriter(o.cfg.OutputsDir, "backtest")
	if err != nil {
		return err
	}
	if err := writer.WriteMetrics(FileMetrics, metrics); err != nil {
		return err
	}

	o.log.WithFields(map[string]interface{}{
		"oof_rows": len(rows),
		"metrics":  len(metrics),
	}).Info("backtest completed")
	return nil
}

// FitEnsemble learns per-bucket weights from persisted OOF predictions
// OOF 행이 하나도 없으면 치명적 오류다 (블렌딩 근거 없음)
func (o *Orchestrator) FitEnsemble(ctx context.Context) (ensemble.Weights, error) {
	rows, err := o.oofStore.GetOOFPredictions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load oof predictions: %w", err)
	}

	fitter := ensemble.NewFitter(o.cfg.Ensemble, o.log)
	weights, err := fitter.Fit(rows)
	if err != nil {
		return nil, err
	}

	if err := o.weights.SaveWeights(ctx, weights); err != nil {
		return nil, fmt.Errorf("persist ensemble weights: %w", err)
	}

	writer, err := NewArtifactWriter(o.cfg.OutputsDir, "backtest")
	if err != nil {
		return nil, err
	}
	if err := writer.WriteWeights(FileWeights, weights); err != nil {
		return nil, err
	}

	o.log.WithField("buckets", len(weights)).Info("ensemble weights fitted")
	return weights, nil
}

// RunForecast produces and persists the final daily forecast
func (o *Orchestrator) RunForecast(ctx context.Context) (*RunLog, error) {
	window, err := contracts.NewForecastWindow(o.cfg.Forecast.Start, o.cfg.Forecast.End)
	if err != nil {
		return nil, err
	}

	history, err := o.data.GetHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sales history: %w", err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("forecast: sales history is empty")
	}

	hours, err := o.data.GetHoursCalendar(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("load hours calendar: %w", err)
	}

	weights, err := o.weights.GetWeights(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ensemble weights: %w", err)
	}

	// (1) 모델별 예측 + 앙상블 블렌드
	perModel := o.predictAllModels(ctx, history, window)
	if len(perModel) == 0 {
		return nil, fmt.Errorf("forecast: no model produced predictions")
	}
	records, err := ensemble.Blend(perModel, weights)
	if err != nil {
		return nil, err
	}

	// (2) 스파이크 업리프트 (복구 가능)
	uplift := overlay.NewSpikeUplift(o.cfg.SpikeUplift, o.log)
	var priors map[string]contracts.SpikeUpliftPrior
	if o.cfg.SpikeUplift.Enabled {
		priors = uplift.ComputePriors(history, contracts.HistoryMaxDate(history))
		records = uplift.Apply(records, priors)
	}

	// (3) 가드레일
	records = ApplyGuardrails(records, hours)

	// (4) 성장률 보정 (복구 가능)
	growthResult := o.applyGrowth(records, history)
	if growthResult != nil {
		records = growthResult.Records
	}

	// (5) 수동 오버라이드 (선택 입력)
	overrides, err := salesdata.LoadOverrides(o.cfg.OverridesPath)
	if err != nil {
		o.log.WithError(err).Warn("overrides file unreadable, skipping")
	} else if len(overrides) > 0 {
		records = ApplyOverrides(records, overrides)
		o.log.WithField("override_days", len(overrides)).Info("manual overrides applied")
	}

	// (6) 가드레일 재적용
	records = ApplyGuardrails(records, hours)

	return o.persistRun(ctx, window, records, history, priors, growthResult)
}

// predictAllModels fits every registered model on full history and predicts
// the forecast window. 선택적 모델 실패는 경고 후 제외된다
func (o *Orchestrator) predictAllModels(ctx context.Context, history []contracts.SalesObservation, window contracts.ForecastWindow) map[string][]contracts.QuantilePoint {
	targets := window.Days()
	perModel := make(map[string][]contracts.QuantilePoint)

	for _, name := range o.registry.Names() {
		model, ok := o.registry.New(name)
		if !ok {
			continue
		}

		if err := model.Fit(ctx, history); err != nil {
			o.logModelFailure(name, "fit", err)
			continue
		}
		points, err := model.Predict(ctx, targets)
		if err != nil {
			o.logModelFailure(name, "predict", err)
			continue
		}
		if len(points) == 0 {
			o.log.WithField("model", name).Warn("model produced no predictions")
			continue
		}
		perModel[name] = points
	}

	return perModel
}

func (o *Orchestrator) logModelFailure(name, stage string, err error) {
	entry := o.log.WithError(err).WithField("model", name)
	if o.registry.IsOptional(name) {
		entry.Warnf("optional model %s failed, continuing without it", stage)
		return
	}
	entry.Warnf("model %s failed, continuing without it", stage)
}

// applyGrowth runs growth calibration with isolated failure handling
// 보정 실패는 복구 가능: 경고 후 무보정 예측으로 계속한다
func (o *Orchestrator) applyGrowth(records []contracts.ForecastRecord, history []contracts.SalesObservation) *calibration.Result {
	if !o.cfg.Growth.Enabled {
		return nil
	}

	growth := calibration.NewGrowth(o.cfg.Growth, o.log)
	result, err := growth.Apply(records, history)
	if err != nil {
		o.log.WithError(err).Warn("growth calibration failed, continuing unscaled")
		return nil
	}
	return result
}

// persistRun writes artifacts, the database rows, and the run metadata
func (o *Orchestrator) persistRun(
	ctx context.Context,
	window contracts.ForecastWindow,
	records []contracts.ForecastRecord,
	history []contracts.SalesObservation,
	priors map[string]contracts.SpikeUpliftPrior,
	growthResult *calibration.Result,
) (*RunLog, error) {
	writer, err := NewArtifactWriter(o.cfg.OutputsDir, window.Slug())
	if err != nil {
		return nil, err
	}

	if err := writer.WriteDailyForecast(FileDailyForecast, records); err != nil {
		return nil, err
	}

	outputPaths := map[string]string{
		"forecast_daily": writer.Path(FileDailyForecast),
	}

	if priors != nil {
		if err := writer.WriteSpikePriors(FileSpikePriors, priors, salesdata.SpikeFlagNames); err != nil {
			return nil, err
		}
		outputPaths["spike_priors"] = writer.Path(FileSpikePriors)
	}

	calibrationMode := "none"
	if growthResult != nil {
		calibrationMode = growthResult.Mode
		if err := writer.WriteCalibrationLog(FileCalibrationLog, growthResult.Log); err != nil {
			return nil, err
		}
		outputPaths["calibration_log"] = writer.Path(FileCalibrationLog)
		if len(growthResult.MonthlyScales) > 0 {
			if err := writer.WriteMonthlyScales(FileMonthlyScales, growthResult.MonthlyScales); err != nil {
				return nil, err
			}
			outputPaths["monthly_scales"] = writer.Path(FileMonthlyScales)
		}
	}

	rollups := BuildRollups(records)
	if err := writer.WriteRollups(FileRollups, rollups); err != nil {
		return nil, err
	}
	outputPaths["rollups"] = writer.Path(FileRollups)

	runLog, err := BuildRunLog(o.cfg, window, records, history, calibrationMode, o.projectRoot, outputPaths)
	if err != nil {
		return nil, err
	}
	if err := writer.WriteRunLog(FileRunLog, runLog); err != nil {
		return nil, err
	}

	if err := o.store.SaveForecast(ctx, runLog.RunID, records); err != nil {
		return nil, fmt.Errorf("persist forecast: %w", err)
	}
	if err := o.store.SaveRunLog(ctx, runLog); err != nil {
		return nil, fmt.Errorf("persist run log: %w", err)
	}

	o.log.WithFields(map[string]interface{}{
		"run_id":              runLog.RunID,
		"days":                len(records),
		"spike_adjusted_days": runLog.SpikeAdjustedDays,
		"calibration_mode":    calibrationMode,
	}).Info("forecast run persisted")

	if runLog.SpikeAdjustedDays == 0 && o.cfg.SpikeUplift.Enabled {
		o.log.Warn("no spike-adjusted days in this run")
	}

	return runLog, nil
}
