package models

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/demandcast/internal/contracts"
)

// NameWeekdayMedian 레지스트리 식별자
const NameWeekdayMedian = "weekday_median"

// weekdayMedianLookback 요일별로 보는 최근 동요일 영업일 수
const weekdayMedianLookback = 8

// WeekdayMedian 최근 8개 동요일 영업일 중앙값 베이스라인
type WeekdayMedian struct {
	medians map[time.Weekday]float64
	overall float64
	anchor  time.Time
}

// NewWeekdayMedian creates an unfitted weekday median model
func NewWeekdayMedian() *WeekdayMedian {
	return &WeekdayMedian{}
}

// Name returns the registry model identifier
func (m *WeekdayMedian) Name() string { return NameWeekdayMedian }

// Fit trains the model on history
func (m *WeekdayMedian) Fit(_ context.Context, history []contracts.SalesObservation) error {
	open := contracts.OpenObservations(history)
	if len(open) == 0 {
		return fmt.Errorf("weekday median: no open days in history")
	}

	sort.Slice(open, func(i, j int) bool { return open[i].Date.Before(open[j].Date) })

	byWeekday := make(map[time.Weekday][]float64)
	all := make([]float64, 0, len(open))
	for _, obs := range open {
		wd := obs.Date.Weekday()
		byWeekday[wd] = append(byWeekday[wd], obs.Net)
		all = append(all, obs.Net)
	}

	m.medians = make(map[time.Weekday]float64, len(byWeekday))
	for wd, values := range byWeekday {
		if len(values) > weekdayMedianLookback {
			values = values[len(values)-weekdayMedianLookback:]
		}
		m.medians[wd] = median(values)
	}
	m.overall = median(all)
	m.anchor = contracts.HistoryMaxDate(history)
	return nil
}

// Predict generates quantile predictions for the target dates
func (m *WeekdayMedian) Predict(_ context.Context, targets []time.Time) ([]contracts.QuantilePoint, error) {
	if m.medians == nil {
		return nil, fmt.Errorf("weekday median: model not fitted")
	}

	points := make([]contracts.QuantilePoint, 0, len(targets))
	for _, target := range targets {
		day := contracts.Day(target)
		value, ok := m.medians[day.Weekday()]
		if !ok {
			value = m.overall
		}
		points = append(points, contracts.QuantilePoint{
			TargetDate: day,
			P50:        value,
			P80:        value,
			P90:        value,
			Horizon:    horizonDays(m.anchor, day),
		})
	}
	return points, nil
}

// median computes the sample median (input order is not preserved)
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.LinInterp, sorted, nil)
}
