package calibration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/pkg/config"
	"github.com/wonny/demandcast/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "json"})
}

func growthConfig(mode string, rate float64) config.GrowthConfig {
	return config.GrowthConfig{
		Enabled:       true,
		TargetYoYRate: rate,
		Mode:          mode,
		MinScale:      0.70,
		MaxScale:      1.30,
	}
}

// fullYearHistory builds a complete baseline year at a flat daily level
func fullYearHistory(year int, daily float64) []contracts.SalesObservation {
	var history []contracts.SalesObservation
	for d := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC); d.Year() == year; d = d.AddDate(0, 0, 1) {
		history = append(history, contracts.SalesObservation{Date: d, Net: daily})
	}
	return history
}

// marchForecast builds forecast rows for March of the given year
// 3월에는 스파이크 플래그가 없다
func marchForecast(year int, daily float64) []contracts.ForecastRecord {
	var records []contracts.ForecastRecord
	for d := time.Date(year, 3, 1, 0, 0, 0, 0, time.UTC); d.Month() == time.March; d = d.AddDate(0, 0, 1) {
		records = append(records, contracts.ForecastRecord{
			Date: d, P50: daily, P80: daily * 1.1, P90: daily * 1.2,
			CalibrationScale: 1, AdjustmentMultiplier: 1,
		})
	}
	return records
}

func TestGrowth_MonthlyMode_HitsTargetTotal(t *testing.T) {
	// 기준 3월 총액 31000, 목표 +10% = 34100, 예측 합 31000 -> scale 1.1
	history := fullYearHistory(2024, 1000)
	records := marchForecast(2025, 1000)

	g := NewGrowth(growthConfig(ModeMonthly, 0.10), testLogger())
	result, err := g.Apply(records, history)
	require.NoError(t, err)

	var total float64
	for _, r := range result.Records {
		assert.InDelta(t, 1.1, r.CalibrationScale, 1e-9)
		total += r.P50
	}
	assert.InDelta(t, 31000*1.1, total, 1e-6)

	require.Len(t, result.MonthlyScales, 1)
	scale := result.MonthlyScales[0]
	assert.Equal(t, 3, scale.Month)
	assert.Equal(t, 2024, scale.BaselineYear)
	assert.InDelta(t, 1.1, scale.Scale, 1e-9)
	assert.InDelta(t, 34100, scale.AchievedTotal, 1e-6)
}

func TestGrowth_MonthlyMode_ConvergesOnTarget(t *testing.T) {
	// 이미 목표에 도달한 예측을 다시 보정하면 scale 은 1.0 으로 수렴한다
	history := fullYearHistory(2024, 1000)
	records := marchForecast(2025, 1000)

	g := NewGrowth(growthConfig(ModeMonthly, 0.10), testLogger())
	first, err := g.Apply(records, history)
	require.NoError(t, err)

	second, err := g.Apply(first.Records, history)
	require.NoError(t, err)

	require.Len(t, second.MonthlyScales, 1)
	assert.InDelta(t, 1.0, second.MonthlyScales[0].Scale, 1e-9)

	var firstTotal, secondTotal float64
	for i := range first.Records {
		firstTotal += first.Records[i].P50
		secondTotal += second.Records[i].P50
	}
	assert.InDelta(t, firstTotal, secondTotal, 1e-6)
}

func TestGrowth_ScaleClamped(t *testing.T) {
	// 목표 +100% 는 scale 2.0 이지만 상한 1.30 에서 잘린다
	history := fullYearHistory(2024, 1000)
	records := marchForecast(2025, 1000)

	g := NewGrowth(growthConfig(ModeMonthly, 1.0), testLogger())
	result, err := g.Apply(records, history)
	require.NoError(t, err)

	for _, r := range result.Records {
		assert.InDelta(t, 1.30, r.CalibrationScale, 1e-9)
	}
}

func TestGrowth_ClosedDaysExcluded(t *testing.T) {
	history := fullYearHistory(2024, 1000)
	records := marchForecast(2025, 1000)
	records[0].Closed = true
	records[0].P50, records[0].P80, records[0].P90 = 0, 0, 0

	g := NewGrowth(growthConfig(ModeMonthly, 0.10), testLogger())
	result, err := g.Apply(records, history)
	require.NoError(t, err)

	// 휴무일은 scale 1.0 으로 남고 0 유지
	assert.InDelta(t, 1.0, result.Records[0].CalibrationScale, 1e-9)
	assert.InDelta(t, 0, result.Records[0].P50, 1e-9)
	assert.Greater(t, result.Records[1].CalibrationScale, 1.0)
}

func TestGrowth_SpikeDaysExcluded(t *testing.T) {
	history := fullYearHistory(2024, 1000)

	// 독립기념일이 포함된 7월 예측
	var records []contracts.ForecastRecord
	for d := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC); d.Month() == time.July; d = d.AddDate(0, 0, 1) {
		records = append(records, contracts.ForecastRecord{
			Date: d, P50: 1000, P80: 1100, P90: 1200,
			CalibrationScale: 1, AdjustmentMultiplier: 1,
		})
	}

	g := NewGrowth(growthConfig(ModeMonthly, 0.10), testLogger())
	result, err := g.Apply(records, history)
	require.NoError(t, err)

	for _, r := range result.Records {
		if r.Date.Day() == 4 {
			assert.InDelta(t, 1.0, r.CalibrationScale, 1e-9)
			assert.InDelta(t, 1000, r.P50, 1e-9)
		} else {
			assert.Greater(t, r.CalibrationScale, 1.0)
		}
	}
}

func TestGrowth_MonthAbsentFromBaselineSkipped(t *testing.T) {
	// 기준 연도에 3월 데이터가 없다 -> scale 1.0
	var history []contracts.SalesObservation
	for d := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC); d.Year() == 2024; d = d.AddDate(0, 0, 1) {
		history = append(history, contracts.SalesObservation{Date: d, Net: 1000})
	}
	// 히스토리 최신일이 12/31 이어야 2024가 기준 연도가 된다
	records := marchForecast(2025, 1000)

	g := NewGrowth(growthConfig(ModeMonthly, 0.10), testLogger())
	result, err := g.Apply(records, history)
	require.NoError(t, err)

	for _, r := range result.Records {
		assert.InDelta(t, 1.0, r.CalibrationScale, 1e-9)
		assert.InDelta(t, 1000, r.P50, 1e-9)
	}
}

func TestGrowth_AnnualMode(t *testing.T) {
	history := fullYearHistory(2024, 1000)
	records := marchForecast(2025, 1000)

	g := NewGrowth(growthConfig(ModeAnnual, 0.10), testLogger())
	result, err := g.Apply(records, history)
	require.NoError(t, err)

	// 연간 목표가 월 예측 합보다 훨씬 크므로 상한에서 잘린다
	for _, r := range result.Records {
		assert.InDelta(t, 1.30, r.CalibrationScale, 1e-9)
	}
	assert.Equal(t, ModeAnnual, result.Mode)
}

func TestGrowth_AuditLogPerDay(t *testing.T) {
	history := fullYearHistory(2024, 1000)
	records := marchForecast(2025, 1000)

	g := NewGrowth(growthConfig(ModeMonthly, 0.10), testLogger())
	result, err := g.Apply(records, history)
	require.NoError(t, err)

	require.Len(t, result.Log, len(records))
	entry := result.Log[0]
	assert.Equal(t, 3, entry.Month)
	assert.InDelta(t, 1000, entry.P50Before, 1e-9)
	assert.InDelta(t, 1100, entry.P50After, 1e-9)
	assert.InDelta(t, 1.1, entry.Scale, 1e-9)
}

func TestGrowth_UnknownModeFails(t *testing.T) {
	g := NewGrowth(growthConfig("quarterly", 0.10), testLogger())
	_, err := g.Apply(marchForecast(2025, 1000), fullYearHistory(2024, 1000))
	assert.Error(t, err)
}

func TestGrowth_EmptyInputsFail(t *testing.T) {
	g := NewGrowth(growthConfig(ModeMonthly, 0.10), testLogger())

	_, err := g.Apply(nil, fullYearHistory(2024, 1000))
	assert.Error(t, err)

	_, err = g.Apply(marchForecast(2025, 1000), nil)
	assert.Error(t, err)
}
