package pipeline

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/demandcast/internal/contracts"
)

// RollupWindow 운영 사이클에 정렬된 기간 합계
// 통화 합계는 decimal로 누적한다 (부동소수 누적 오차 방지)
type RollupWindow struct {
	Start     time.Time       `json:"window_start"`
	End       time.Time       `json:"window_end"` // 포함
	Days      int             `json:"days"`
	P50Total  decimal.Decimal `json:"p50_total"`
	P80Total  decimal.Decimal `json:"p80_total"`
	P90Total  decimal.Decimal `json:"p90_total"`
	Truncated bool            `json:"truncated"`
	Note      string          `json:"note,omitempty"`
}

// Rollups 발주/스케줄링 사이클 합계 묶음
type Rollups struct {
	OrderingWeekly   []RollupWindow `json:"ordering_weekly"`    // 일~토 7일
	OrderingWedToWed []RollupWindow `json:"ordering_wed_to_wed"` // 수~다음 수 8일 (양끝 포함)
	SchedulingWeekly []RollupWindow `json:"scheduling_weekly"`  // 수~화 7일
}

// BuildRollups aggregates the final forecast into operational cycles
func BuildRollups(records []contracts.ForecastRecord) Rollups {
	if len(records) == 0 {
		return Rollups{}
	}

	byDate := make(map[time.Time]contracts.ForecastRecord, len(records))
	first := contracts.Day(records[0].Date)
	last := first
	for _, r := range records {
		day := contracts.Day(r.Date)
		byDate[day] = r
		if day.Before(first) {
			first = day
		}
		if day.After(last) {
			last = day
		}
	}

	return Rollups{
		OrderingWeekly:   windowsFrom(byDate, firstWeekday(first, time.Sunday), last, 7),
		OrderingWedToWed: windowsFrom(byDate, firstWeekday(first, time.Wednesday), last, 8),
		SchedulingWeekly: windowsFrom(byDate, firstWeekday(first, time.Wednesday), last, 7),
	}
}

// windowsFrom builds fixed-length window sums stepping a full cycle at a time
// 예측 끝을 넘는 창은 잘라서 합산하고 표시한다
func windowsFrom(byDate map[time.Time]contracts.ForecastRecord, start, last time.Time, length int) []RollupWindow {
	// 8일 창(수~수)은 다음 창과 하루가 겹치므로 7일씩 전진한다
	step := length
	if step == 8 {
		step = 7
	}

	var windows []RollupWindow
	for ws := start; !ws.After(last); ws = ws.AddDate(0, 0, step) {
		we := ws.AddDate(0, 0, length-1)

		w := RollupWindow{Start: ws, End: we}
		if we.After(last) {
			w.End = last
			w.Truncated = true
			w.Note = "window truncated at forecast end"
		}

		for d := ws; !d.After(w.End); d = d.AddDate(0, 0, 1) {
			r, ok := byDate[d]
			if !ok {
				continue
			}
			w.Days++
			w.P50Total = w.P50Total.Add(decimal.NewFromFloat(r.P50))
			w.P80Total = w.P80Total.Add(decimal.NewFromFloat(r.P80))
			w.P90Total = w.P90Total.Add(decimal.NewFromFloat(r.P90))
		}

		if w.Days > 0 {
			windows = append(windows, w)
		}
	}

	return windows
}

// firstWeekday returns the first date on or after t with the given weekday
func firstWeekday(t time.Time, weekday time.Weekday) time.Time {
	offset := (int(weekday) - int(t.Weekday()) + 7) % 7
	return contracts.Day(t).AddDate(0, 0, offset)
}
