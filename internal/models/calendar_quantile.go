package models

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/demandcast/internal/contracts"
)

// 레지스트리 식별자 (수평선 범위로 분할된 분위수 회귀 계열)
const (
	NameCalendarQuantileShort = "calendar_quantile_short"
	NameCalendarQuantileLong  = "calendar_quantile_long"
)

// shortWindowDays 단기 모델 학습 윈도우 (최근 12주)
const shortWindowDays = 84

// shortMaxHorizon 단기 모델이 담당하는 최대 수평선
const shortMaxHorizon = 14

// calendarKey 분위수 그룹 키
// 단기 모델은 월을 0으로 둔다 (요일만 사용)
type calendarKey struct {
	weekday time.Weekday
	month   time.Month
}

// quantileTriple p50/p80/p90 묶음
type quantileTriple struct {
	p50, p80, p90 float64
}

// CalendarQuantile 캘린더 그룹별 경험 분위수 모델
// 단기: 최근 윈도우의 요일별 분위수, 수평선 1~14일만 담당
// 장기: 전체 히스토리의 요일x월 분위수, 희소 그룹은 요일 단독으로 폴백
type CalendarQuantile struct {
	name       string
	long       bool
	groups     map[calendarKey]quantileTriple
	byWeekday  map[time.Weekday]quantileTriple
	global     quantileTriple
	hasGlobal  bool
	maxHorizon int
	anchor     time.Time
}

// NewCalendarQuantileShort creates the short-horizon calendar quantile model
func NewCalendarQuantileShort() *CalendarQuantile {
	return &CalendarQuantile{name: NameCalendarQuantileShort, maxHorizon: shortMaxHorizon}
}

// NewCalendarQuantileLong creates the long-horizon calendar quantile model
func NewCalendarQuantileLong() *CalendarQuantile {
	return &CalendarQuantile{name: NameCalendarQuantileLong, long: true}
}

// Name returns the registry model identifier
func (m *CalendarQuantile) Name() string { return m.name }

// Fit trains the model on history
func (m *CalendarQuantile) Fit(_ context.Context, history []contracts.SalesObservation) error {
	open := contracts.OpenObservations(history)
	if len(open) == 0 {
		return fmt.Errorf("%s: no open days in history", m.name)
	}

	m.anchor = contracts.HistoryMaxDate(history)

	if !m.long {
		// 최근 윈도우로 절단
		lowerBound := m.anchor.AddDate(0, 0, -shortWindowDays)
		trimmed := open[:0:0]
		for _, obs := range open {
			if !obs.Date.Before(lowerBound) {
				trimmed = append(trimmed, obs)
			}
		}
		if len(trimmed) > 0 {
			open = trimmed
		}
	}

	grouped := make(map[calendarKey][]float64)
	weekdayValues := make(map[time.Weekday][]float64)
	all := make([]float64, 0, len(open))
	for _, obs := range open {
		key := calendarKey{weekday: obs.Date.Weekday()}
		if m.long {
			key.month = obs.Date.Month()
		}
		grouped[key] = append(grouped[key], obs.Net)
		weekdayValues[obs.Date.Weekday()] = append(weekdayValues[obs.Date.Weekday()], obs.Net)
		all = append(all, obs.Net)
	}

	m.groups = make(map[calendarKey]quantileTriple, len(grouped))
	for key, values := range grouped {
		m.groups[key] = empiricalTriple(values)
	}
	m.byWeekday = make(map[time.Weekday]quantileTriple, len(weekdayValues))
	for wd, values := range weekdayValues {
		m.byWeekday[wd] = empiricalTriple(values)
	}
	m.global = empiricalTriple(all)
	m.hasGlobal = true
	return nil
}

// Predict generates quantile predictions for the target dates
// 단기 모델은 담당 수평선 밖의 타깃을 건너뛴다 (블렌더가 재정규화)
func (m *CalendarQuantile) Predict(_ context.Context, targets []time.Time) ([]contracts.QuantilePoint, error) {
	if !m.hasGlobal {
		return nil, fmt.Errorf("%s: model not fitted", m.name)
	}

	points := make([]contracts.QuantilePoint, 0, len(targets))
	for _, target := range targets {
		day := contracts.Day(target)
		horizon := horizonDays(m.anchor, day)
		if m.maxHorizon > 0 && horizon > m.maxHorizon {
			continue
		}

		key := calendarKey{weekday: day.Weekday()}
		if m.long {
			key.month = day.Month()
		}
		triple, ok := m.groups[key]
		if !ok {
			triple, ok = m.byWeekday[day.Weekday()]
		}
		if !ok {
			triple = m.global
		}

		points = append(points, contracts.QuantilePoint{
			TargetDate: day,
			P50:        triple.p50,
			P80:        triple.p80,
			P90:        triple.p90,
			Horizon:    horizon,
		})
	}
	return points, nil
}

// empiricalTriple computes interpolated p50/p80/p90 over a sample
func empiricalTriple(values []float64) quantileTriple {
	if len(values) == 0 {
		return quantileTriple{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return quantileTriple{
		p50: stat.Quantile(0.5, stat.LinInterp, sorted, nil),
		p80: stat.Quantile(0.8, stat.LinInterp, sorted, nil),
		p90: stat.Quantile(0.9, stat.LinInterp, sorted, nil),
	}
}
