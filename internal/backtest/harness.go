package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/pkg/config"
	"github.com/wonny/demandcast/pkg/logger"
)

// Harness 롤링 오리진 백테스트 스위프
// 각 컷오프는 해당 시점 이전 데이터로만 학습한다 (out-of-fold 보장)
type Harness struct {
	registry *contracts.ModelRegistry
	cfg      config.BacktestConfig
	log      *logger.Logger
}

// NewHarness creates a rolling-origin backtest harness
func NewHarness(registry *contracts.ModelRegistry, cfg config.BacktestConfig, log *logger.Logger) *Harness {
	return &Harness{
		registry: registry,
		cfg:      cfg,
		log:      log.Component("backtest"),
	}
}

// Cutoffs returns the sweep's cutoff dates for a history span
// history_start + min_train_days 부터 step_days 간격으로
// history_end - buffer_days 까지
func (h *Harness) Cutoffs(historyStart, historyEnd time.Time) []time.Time {
	start := contracts.Day(historyStart).AddDate(0, 0, h.cfg.MinTrainDays)
	end := contracts.Day(historyEnd).AddDate(0, 0, -h.cfg.BufferDays)

	var cutoffs []time.Time
	for cutoff := start; !cutoff.After(end); cutoff = cutoff.AddDate(0, 0, h.cfg.StepDays) {
		cutoffs = append(cutoffs, cutoff)
	}
	return cutoffs
}

// Run executes the full sweep and returns out-of-fold prediction rows
// 개별 모델/컷오프 실패는 경고 후 계속한다 (스위프 전체를 중단하지 않음)
func (h *Harness) Run(ctx context.Context, history []contracts.SalesObservation) ([]contracts.OOFPrediction, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("backtest: empty sales history")
	}

	sorted := make([]contracts.SalesObservation, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	byDate := make(map[time.Time]contracts.SalesObservation, len(sorted))
	for _, obs := range sorted {
		byDate[contracts.Day(obs.Date)] = obs
	}

	historyStart := sorted[0].Date
	historyEnd := sorted[len(sorted)-1].Date
	cutoffs := h.Cutoffs(historyStart, historyEnd)

	h.log.WithFields(map[string]interface{}{
		"cutoffs":       len(cutoffs),
		"models":        len(h.registry.Names()),
		"history_start": historyStart.Format(contracts.DateFormat),
		"history_end":   historyEnd.Format(contracts.DateFormat),
	}).Info("rolling-origin sweep started")

	var rows []contracts.OOFPrediction
	for _, cutoff := range cutoffs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		targets := h.evalTargets(cutoff, historyEnd, byDate)
		if len(targets) == 0 {
			// 히스토리 끝에 너무 가까운 컷오프는 조용히 건너뛴다
			continue
		}

		train := truncateHistory(sorted, cutoff)
		rows = append(rows, h.runCutoff(ctx, cutoff, train, targets, byDate)...)
	}

	h.log.WithField("oof_rows", len(rows)).Info("rolling-origin sweep finished")
	return rows, nil
}

// evalTargets returns historical dates in (cutoff, cutoff+horizon] that exist
// in the record, so actuals are always joinable
func (h *Harness) evalTargets(cutoff, historyEnd time.Time, byDate map[time.Time]contracts.SalesObservation) []time.Time {
	remaining := int(historyEnd.Sub(cutoff).Hours() / 24)
	horizon := h.cfg.MaxHorizon
	if remaining < horizon {
		horizon = remaining
	}

	var targets []time.Time
	for d := 1; d <= horizon; d++ {
		target := cutoff.AddDate(0, 0, d)
		if _, ok := byDate[target]; ok {
			targets = append(targets, target)
		}
	}
	return targets
}

// runCutoff trains and evaluates every model for a single cutoff
func (h *Harness) runCutoff(
	ctx context.Context,
	cutoff time.Time,
	train []contracts.SalesObservation,
	targets []time.Time,
	byDate map[time.Time]contracts.SalesObservation,
) []contracts.OOFPrediction {
	var rows []contracts.OOFPrediction

	for _, name := range h.registry.Names() {
		model, ok := h.registry.New(name)
		if !ok {
			continue
		}

		if err := model.Fit(ctx, train); err != nil {
			h.log.WithError(err).WithFields(map[string]interface{}{
				"model":  name,
				"cutoff": cutoff.Format(contracts.DateFormat),
			}).Warn("model fit failed, skipping cutoff for this model")
			continue
		}

		points, err := model.Predict(ctx, targets)
		if err != nil {
			h.log.WithError(err).WithFields(map[string]interface{}{
				"model":  name,
				"cutoff": cutoff.Format(contracts.DateFormat),
			}).Warn("model predict failed, skipping cutoff for this model")
			continue
		}

		for _, p := range points {
			horizon := int(p.TargetDate.Sub(cutoff).Hours() / 24)
			row := contracts.OOFPrediction{
				Model:      name,
				CutoffDate: cutoff,
				TargetDate: p.TargetDate,
				Horizon:    horizon,
				Bucket:     contracts.BucketFor(horizon),
				P50:        p.P50,
				P80:        p.P80,
				P90:        p.P90,
			}
			if obs, ok := byDate[contracts.Day(p.TargetDate)]; ok {
				actual := obs.Net
				row.Actual = &actual
				row.Closed = obs.Closed
			}
			rows = append(rows, row)
		}
	}

	return rows
}

// truncateHistory returns observations with date <= cutoff
// 컷오프 이후 관측은 학습에 절대 노출되지 않는다
func truncateHistory(sorted []contracts.SalesObservation, cutoff time.Time) []contracts.SalesObservation {
	idx := sort.Search(len(sorted), func(i int) bool {
		return sorted[i].Date.After(cutoff)
	})
	return sorted[:idx]
}
