package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/pkg/config"
	"github.com/wonny/demandcast/pkg/logger"
)

// constantModel 테스트용 상수 예측 모델
type constantModel struct {
	name   string
	value  float64
	anchor time.Time
}

func (m *constantModel) Name() string { return m.name }

func (m *constantModel) Fit(_ context.Context, history []contracts.SalesObservation) error {
	m.anchor = contracts.HistoryMaxDate(history)
	return nil
}

func (m *constantModel) Predict(_ context.Context, targets []time.Time) ([]contracts.QuantilePoint, error) {
	points := make([]contracts.QuantilePoint, 0, len(targets))
	for _, t := range targets {
		points = append(points, contracts.QuantilePoint{
			TargetDate: contracts.Day(t),
			P50:        m.value,
			P80:        m.value,
			P90:        m.value,
			Horizon:    int(contracts.Day(t).Sub(m.anchor).Hours() / 24),
		})
	}
	return points, nil
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "json"})
}

func testHistory(start time.Time, n int) []contracts.SalesObservation {
	history := make([]contracts.SalesObservation, 0, n)
	for i := 0; i < n; i++ {
		history = append(history, contracts.SalesObservation{
			Date: contracts.Day(start.AddDate(0, 0, i)),
			Net:  1000,
		})
	}
	return history
}

func TestHarness_Cutoffs(t *testing.T) {
	cfg := config.BacktestConfig{MinTrainDays: 120, StepDays: 14, MaxHorizon: 380, BufferDays: 14}
	h := NewHarness(contracts.NewModelRegistry(), cfg, testLogger())

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 199) // 200일 히스토리

	cutoffs := h.Cutoffs(start, end)
	require.NotEmpty(t, cutoffs)

	assert.Equal(t, start.AddDate(0, 0, 120), cutoffs[0])
	last := cutoffs[len(cutoffs)-1]
	assert.False(t, last.After(end.AddDate(0, 0, -14)))
	for i := 1; i < len(cutoffs); i++ {
		assert.Equal(t, 14*24*time.Hour, cutoffs[i].Sub(cutoffs[i-1]))
	}
}

func TestHarness_Cutoffs_TooShortHistory(t *testing.T) {
	cfg := config.BacktestConfig{MinTrainDays: 120, StepDays: 14, MaxHorizon: 380, BufferDays: 14}
	h := NewHarness(contracts.NewModelRegistry(), cfg, testLogger())

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, h.Cutoffs(start, start.AddDate(0, 0, 60)))
}

func TestHarness_Run_LeakageSafeRows(t *testing.T) {
	registry := contracts.NewModelRegistry()
	registry.Register("const_a", func() contracts.PointForecaster {
		return &constantModel{name: "const_a", value: 900}
	})

	cfg := config.BacktestConfig{MinTrainDays: 60, StepDays: 30, MaxHorizon: 90, BufferDays: 14}
	h := NewHarness(registry, cfg, testLogger())

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	history := testHistory(start, 200)

	rows, err := h.Run(context.Background(), history)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	historyEnd := history[len(history)-1].Date
	for _, row := range rows {
		// 타깃은 항상 컷오프 이후, 히스토리 범위 안
		assert.True(t, row.TargetDate.After(row.CutoffDate))
		assert.False(t, row.TargetDate.After(historyEnd))
		assert.Equal(t, row.Horizon, int(row.TargetDate.Sub(row.CutoffDate).Hours()/24))
		assert.Equal(t, contracts.BucketFor(row.Horizon), row.Bucket)
		require.NotNil(t, row.Actual)
		assert.InDelta(t, 1000, *row.Actual, 1e-9)
	}
}

func TestHarness_Run_FailingModelDoesNotAbortSweep(t *testing.T) {
	registry := contracts.NewModelRegistry()
	registry.Register("healthy", func() contracts.PointForecaster {
		return &constantModel{name: "healthy", value: 1000}
	})
	registry.Register("broken", func() contracts.PointForecaster {
		return &failingModel{}
	})

	cfg := config.BacktestConfig{MinTrainDays: 60, StepDays: 30, MaxHorizon: 30, BufferDays: 14}
	h := NewHarness(registry, cfg, testLogger())

	history := testHistory(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 150)
	rows, err := h.Run(context.Background(), history)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	for _, row := range rows {
		assert.Equal(t, "healthy", row.Model)
	}
}

func TestHarness_Run_EmptyHistoryFails(t *testing.T) {
	h := NewHarness(contracts.NewModelRegistry(), config.BacktestConfig{}, testLogger())
	_, err := h.Run(context.Background(), nil)
	assert.Error(t, err)
}

type failingModel struct{}

func (m *failingModel) Name() string { return "broken" }
func (m *failingModel) Fit(context.Context, []contracts.SalesObservation) error {
	return assert.AnError
}
func (m *failingModel) Predict(context.Context, []time.Time) ([]contracts.QuantilePoint, error) {
	return nil, assert.AnError
}

func TestComputeMetrics(t *testing.T) {
	actual := func(v float64) *float64 { return &v }
	rows := []contracts.OOFPrediction{
		{Model: "m", Bucket: contracts.Bucket1to7, P50: 110, Actual: actual(100)},
		{Model: "m", Bucket: contracts.Bucket1to7, P50: 90, Actual: actual(100)},
		{Model: "m", Bucket: contracts.Bucket1to7, P50: 50, Actual: actual(100), Closed: true}, // 제외
		{Model: "m", Bucket: contracts.Bucket8to14, P50: 100},                                  // 실측 없음, 제외
	}

	metrics := ComputeMetrics(rows)
	require.Len(t, metrics, 1)

	m := metrics[0]
	assert.Equal(t, "m", m.Model)
	assert.Equal(t, contracts.Bucket1to7, m.Bucket)
	assert.Equal(t, 2, m.N)
	assert.InDelta(t, 20.0/200.0, m.WMAPE, 1e-9)
	assert.InDelta(t, 10.0, m.RMSE, 1e-9)
	assert.InDelta(t, 0.0, m.Bias, 1e-9)
}
