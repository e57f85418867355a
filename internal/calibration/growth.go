package calibration

import (
	"fmt"
	"time"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/salesdata"
	"github.com/wonny/demandcast/pkg/config"
	"github.com/wonny/demandcast/pkg/logger"
)

// 보정 모드
const (
	ModeAnnual  = "annual"
	ModeMonthly = "monthly"
)

// Growth 성장률 보정 레이어
// 짧은 히스토리에서 추세를 학습하는 대신 운영자가 지정한 YoY 성장
// 가정을 명시적으로, 감사 가능하게 적용한다
type Growth struct {
	cfg config.GrowthConfig
	log *logger.Logger
}

// Result 보정 결과와 감사 로그
type Result struct {
	Records       []contracts.ForecastRecord
	Log           []contracts.CalibrationLogEntry
	MonthlyScales []contracts.MonthlyCalibrationScale
	Mode          string
}

// NewGrowth creates the growth calibration layer
func NewGrowth(cfg config.GrowthConfig, log *logger.Logger) *Growth {
	return &Growth{cfg: cfg, log: log.Component("growth-calibration")}
}

// Apply scales the forecast toward the target year-over-year total
// 제외 집합은 업리프트 오버레이가 쓰는 것과 같은 스파이크 플래그 목록과
// 휴무일이다 (방금 의도적으로 올린 날을 다시 스케일하지 않기 위해)
func (g *Growth) Apply(records []contracts.ForecastRecord, history []contracts.SalesObservation) (*Result, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("growth calibration: empty forecast")
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("growth calibration: empty sales history")
	}

	baselineYear := contracts.BaselineYear(contracts.HistoryMaxDate(history))

	out := make([]contracts.ForecastRecord, len(records))
	copy(out, records)

	var monthly []contracts.MonthlyCalibrationScale
	switch g.cfg.Mode {
	case ModeAnnual:
		g.applyAnnual(out, history, baselineYear)
	case ModeMonthly:
		monthly = g.applyMonthly(out, history, baselineYear)
	default:
		return nil, fmt.Errorf("growth calibration: unknown mode %q", g.cfg.Mode)
	}

	entries := make([]contracts.CalibrationLogEntry, len(out))
	for i := range out {
		entries[i] = contracts.CalibrationLogEntry{
			Date:      out[i].Date,
			Month:     int(out[i].Date.Month()),
			Excluded:  isExcluded(out[i]),
			P50Before: records[i].P50,
			P80Before: records[i].P80,
			P90Before: records[i].P90,
			P50After:  out[i].P50,
			P80After:  out[i].P80,
			P90After:  out[i].P90,
			Scale:     out[i].CalibrationScale,
		}
	}

	return &Result{Records: out, Log: entries, MonthlyScales: monthly, Mode: g.cfg.Mode}, nil
}

// isExcluded reports whether a day is kept out of calibration scaling
func isExcluded(r contracts.ForecastRecord) bool {
	if r.Closed {
		return true
	}
	return salesdata.IsSpikeDay(r.Date)
}

// applyAnnual scales every non-excluded forecast day by one annual factor
func (g *Growth) applyAnnual(records []contracts.ForecastRecord, history []contracts.SalesObservation, baselineYear int) {
	baselineTotal := baselineYearTotal(history, baselineYear, 0)
	if baselineTotal <= 0 {
		g.log.WithField("baseline_year", baselineYear).Warn("baseline year has no open-day sales, skipping calibration")
		return
	}

	target := baselineTotal * (1 + g.cfg.TargetYoYRate)

	var excludedTotal, nonExcludedTotal float64
	for i := range records {
		if isExcluded(records[i]) {
			excludedTotal += records[i].P50
		} else {
			nonExcludedTotal += records[i].P50
		}
	}
	if nonExcludedTotal <= 0 {
		g.log.Warn("no non-excluded forecast total, skipping calibration")
		return
	}

	scale := g.clampScale((target-excludedTotal)/nonExcludedTotal, "annual")
	scaleRecords(records, scale, func(r contracts.ForecastRecord) bool {
		return !isExcluded(r)
	})
}

// applyMonthly derives an independent scale per calendar month
// 월별 모드는 연간 모드가 못 잡는 계절 오배분을 고친다
func (g *Growth) applyMonthly(records []contracts.ForecastRecord, history []contracts.SalesObservation, baselineYear int) []contracts.MonthlyCalibrationScale {
	var summaries []contracts.MonthlyCalibrationScale

	for month := time.January; month <= time.December; month++ {
		baselineTotal := baselineYearTotal(history, baselineYear, month)

		var excludedTotal, nonExcludedTotal float64
		var forecastYear int
		for i := range records {
			if records[i].Date.Month() != month {
				continue
			}
			forecastYear = records[i].Date.Year()
			if isExcluded(records[i]) {
				excludedTotal += records[i].P50
			} else {
				nonExcludedTotal += records[i].P50
			}
		}
		if forecastYear == 0 {
			// 예측 기간에 이 달이 없다
			continue
		}

		summary := contracts.MonthlyCalibrationScale{
			Month:              int(month),
			BaselineYear:       baselineYear,
			ForecastYear:       forecastYear,
			BaselineMonthTotal: baselineTotal,
			NonSpikeBefore:     nonExcludedTotal,
			SpikeTotal:         excludedTotal,
			Scale:              1.0,
		}

		// 기준 연도에 없는 달이거나 스케일할 총량이 없으면 건너뛴다
		if baselineTotal > 0 && nonExcludedTotal > 0 {
			target := baselineTotal * (1 + g.cfg.TargetYoYRate)
			summary.TargetMonthTotal = target
			summary.Scale = g.clampScale((target-excludedTotal)/nonExcludedTotal, month.String())

			scaleRecords(records, summary.Scale, func(r contracts.ForecastRecord) bool {
				return r.Date.Month() == month && !isExcluded(r)
			})
		}

		summary.NonSpikeAfter = nonExcludedTotal * summary.Scale
		summary.AchievedTotal = summary.NonSpikeAfter + excludedTotal
		summaries = append(summaries, summary)
	}

	return summaries
}

// clampScale clips the scale into the configured bounds
func (g *Growth) clampScale(scale float64, label string) float64 {
	clamped := scale
	if clamped < g.cfg.MinScale {
		clamped = g.cfg.MinScale
	}
	if clamped > g.cfg.MaxScale {
		clamped = g.cfg.MaxScale
	}
	if clamped != scale {
		g.log.WithFields(map[string]interface{}{
			"scope":   label,
			"raw":     scale,
			"clamped": clamped,
		}).Warn("calibration scale clamped")
	}
	return clamped
}

// scaleRecords multiplies the quantiles of matching rows
// 제외된 날은 scale 1.0 으로 기록된다
func scaleRecords(records []contracts.ForecastRecord, scale float64, match func(contracts.ForecastRecord) bool) {
	for i := range records {
		if !match(records[i]) {
			continue
		}
		records[i].P50 *= scale
		records[i].P80 *= scale
		records[i].P90 *= scale
		records[i].CalibrationScale = scale
	}
}

// baselineYearTotal sums open-day sales for the baseline year
// month가 0이면 연간 합계를 반환한다
func baselineYearTotal(history []contracts.SalesObservation, year int, month time.Month) float64 {
	var total float64
	for _, obs := range history {
		if obs.Closed || obs.Date.Year() != year {
			continue
		}
		if month != 0 && obs.Date.Month() != month {
			continue
		}
		total += obs.Net
	}
	return total
}
