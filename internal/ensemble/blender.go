package ensemble

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/demandcast/internal/contracts"
)

// Blend combines per-model quantile predictions into one row per target date
// 날짜별로 실제 존재하는 모델에만 가중치를 재정규화해 적용한다
func Blend(perModel map[string][]contracts.QuantilePoint, weights Weights) ([]contracts.ForecastRecord, error) {
	if len(perModel) == 0 {
		return nil, fmt.Errorf("ensemble blend: no model predictions to combine")
	}

	type agg struct {
		p50, p80, p90 float64
		n             int
		horizon       int
	}

	// (날짜, 모델)별 중복 행은 방어적으로 평균
	byDate := make(map[time.Time]map[string]*agg)
	for model, points := range perModel {
		for _, p := range points {
			day := contracts.Day(p.TargetDate)
			models, ok := byDate[day]
			if !ok {
				models = make(map[string]*agg)
				byDate[day] = models
			}
			a, ok := models[model]
			if !ok {
				a = &agg{horizon: p.Horizon}
				models[model] = a
			}
			a.p50 += p.P50
			a.p80 += p.P80
			a.p90 += p.P90
			a.n++
		}
	}

	dates := make([]time.Time, 0, len(byDate))
	for day := range byDate {
		dates = append(dates, day)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	records := make([]contracts.ForecastRecord, 0, len(dates))
	for _, day := range dates {
		models := byDate[day]

		present := make([]string, 0, len(models))
		horizon := 0
		for model, a := range models {
			present = append(present, model)
			if a.horizon > horizon {
				horizon = a.horizon
			}
		}
		sort.Strings(present)

		bucket := contracts.BucketFor(horizon)
		effective := Renormalize(weights[bucket], present)

		record := contracts.ForecastRecord{
			Date:                 day,
			CalibrationScale:     1.0,
			AdjustmentMultiplier: 1.0,
		}
		for model, a := range models {
			w := effective[model]
			record.P50 += w * a.p50 / float64(a.n)
			record.P80 += w * a.p80 / float64(a.n)
			record.P90 += w * a.p90 / float64(a.n)
		}
		records = append(records, record)
	}

	return records, nil
}
