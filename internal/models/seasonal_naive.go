package models

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/demandcast/internal/contracts"
)

// NameSeasonalNaive 레지스트리 식별자
const NameSeasonalNaive = "seasonal_naive"

// SeasonalNaive 7일 랙 재귀 베이스라인
// 타깃이 히스토리 밖이면 이미 예측한 값을 다시 랙으로 쓴다
type SeasonalNaive struct {
	byDate   map[time.Time]float64
	openMean float64
	anchor   time.Time
}

// NewSeasonalNaive creates an unfitted seasonal naive model
func NewSeasonalNaive() *SeasonalNaive {
	return &SeasonalNaive{}
}

// Name returns the registry model identifier
func (m *SeasonalNaive) Name() string { return NameSeasonalNaive }

// Fit trains the model on history
func (m *SeasonalNaive) Fit(_ context.Context, history []contracts.SalesObservation) error {
	open := contracts.OpenObservations(history)
	if len(open) == 0 {
		return fmt.Errorf("seasonal naive: no open days in history")
	}

	m.byDate = make(map[time.Time]float64, len(history))
	var sum float64
	for _, obs := range history {
		m.byDate[contracts.Day(obs.Date)] = obs.Net
	}
	for _, obs := range open {
		sum += obs.Net
	}
	m.openMean = sum / float64(len(open))
	m.anchor = contracts.HistoryMaxDate(history)
	return nil
}

// Predict generates quantile predictions for the target dates
func (m *SeasonalNaive) Predict(_ context.Context, targets []time.Time) ([]contracts.QuantilePoint, error) {
	if m.byDate == nil {
		return nil, fmt.Errorf("seasonal naive: model not fitted")
	}

	// 재귀 랙을 위해 예측값을 같은 맵 계열에 누적
	predicted := make(map[time.Time]float64, len(targets))
	points := make([]contracts.QuantilePoint, 0, len(targets))

	for _, target := range targets {
		day := contracts.Day(target)
		lag := day.AddDate(0, 0, -7)

		value, ok := m.byDate[lag]
		if !ok {
			value, ok = predicted[lag]
		}
		if !ok {
			value = m.openMean
		}

		predicted[day] = value
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

// horizonDays returns whole days from the fit anchor to the target
func horizonDays(anchor, target time.Time) int {
	return int(contracts.Day(target).Sub(contracts.Day(anchor)).Hours() / 24)
}
