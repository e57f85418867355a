package pipeline

import (
	"time"

	"github.com/wonny/demandcast/internal/contracts"
)

// ApplyGuardrails 하드 불변식 강제 (멱등: 몇 번을 불러도 같은 결과)
// 휴무 플래그의 권위는 영업시간 캘린더다: 기존 플래그를 덮어쓴다
// 휴무일은 전 분위수 0, 모든 분위수는 0 이상,
// p80 = max(p50, p80), p90 = max(p80, p90)
func ApplyGuardrails(records []contracts.ForecastRecord, hours []contracts.HoursDay) []contracts.ForecastRecord {
	calendar := make(map[time.Time]contracts.HoursDay, len(hours))
	for _, h := range hours {
		calendar[contracts.Day(h.Date)] = h
	}

	out := make([]contracts.ForecastRecord, len(records))
	copy(out, records)

	for i := range out {
		if h, ok := calendar[contracts.Day(out[i].Date)]; ok {
			out[i].Closed = h.Closed
			out[i].OpenMinutes = h.OpenMinutes
		}

		if out[i].Closed {
			out[i].P50, out[i].P80, out[i].P90 = 0, 0, 0
			continue
		}

		if out[i].P50 < 0 {
			out[i].P50 = 0
		}
		if out[i].P80 < 0 {
			out[i].P80 = 0
		}
		if out[i].P90 < 0 {
			out[i].P90 = 0
		}

		if out[i].P80 < out[i].P50 {
			out[i].P80 = out[i].P50
		}
		if out[i].P90 < out[i].P80 {
			out[i].P90 = out[i].P80
		}
	}

	return out
}
