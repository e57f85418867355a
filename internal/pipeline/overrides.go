package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/demandcast/internal/contracts"
)

// ApplyOverrides 운영자 날짜별 수동 오버라이드 적용
// nil 분위수는 건드리지 않는다 (분위수 단위 교체)
// 오버라이드는 통제되지 않은 입력이다: 호출자는 이후 반드시
// 가드레일을 다시 돌려야 한다
func ApplyOverrides(records []contracts.ForecastRecord, overrides []contracts.DemandOverride) []contracts.ForecastRecord {
	if len(overrides) == 0 {
		return records
	}

	byDate := make(map[time.Time]contracts.DemandOverride, len(overrides))
	for _, ov := range overrides {
		byDate[contracts.Day(ov.Date)] = ov
	}

	out := make([]contracts.ForecastRecord, len(records))
	copy(out, records)

	for i := range out {
		ov, ok := byDate[contracts.Day(out[i].Date)]
		if !ok {
			continue
		}

		var replaced []string
		if ov.P50 != nil {
			out[i].P50 = *ov.P50
			replaced = append(replaced, "p50")
		}
		if ov.P80 != nil {
			out[i].P80 = *ov.P80
			replaced = append(replaced, "p80")
		}
		if ov.P90 != nil {
			out[i].P90 = *ov.P90
			replaced = append(replaced, "p90")
		}
		if len(replaced) > 0 {
			out[i].AdjustmentLog = appendLog(out[i].AdjustmentLog,
				fmt.Sprintf("override[%s]", strings.Join(replaced, ",")))
		}
	}

	return out
}

func appendLog(existing, entry string) string {
	if existing == "" {
		return entry
	}
	return existing + "; " + entry
}
