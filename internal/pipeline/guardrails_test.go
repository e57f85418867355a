package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/demandcast/internal/contracts"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestApplyGuardrails_ClosedDayZeroed(t *testing.T) {
	records := []contracts.ForecastRecord{
		{Date: day(2025, 1, 1), P50: 800, P80: 900, P90: 1000},
	}
	hours := []contracts.HoursDay{
		{Date: day(2025, 1, 1), Closed: true},
	}

	out := ApplyGuardrails(records, hours)
	require.Len(t, out, 1)
	assert.True(t, out[0].Closed)
	assert.Zero(t, out[0].P50)
	assert.Zero(t, out[0].P80)
	assert.Zero(t, out[0].P90)
}

func TestApplyGuardrails_CalendarFlagWins(t *testing.T) {
	// 레코드에 휴무로 들어와도 캘린더가 영업일이라면 영업일이다
	records := []contracts.ForecastRecord{
		{Date: day(2025, 1, 2), P50: 800, P80: 900, P90: 1000, Closed: true},
	}
	hours := []contracts.HoursDay{
		{Date: day(2025, 1, 2), Closed: false, OpenMinutes: 600},
	}

	out := ApplyGuardrails(records, hours)
	assert.False(t, out[0].Closed)
	assert.Equal(t, 600, out[0].OpenMinutes)
	assert.InDelta(t, 800, out[0].P50, 1e-9)
}

func TestApplyGuardrails_NegativeClampAndMonotonicity(t *testing.T) {
	records := []contracts.ForecastRecord{
		{Date: day(2025, 1, 3), P50: -100, P80: 50, P90: 20},
		{Date: day(2025, 1, 4), P50: 1000, P80: 900, P90: 800},
	}

	out := ApplyGuardrails(records, nil)

	assert.Zero(t, out[0].P50)
	assert.InDelta(t, 50, out[0].P80, 1e-9)
	assert.InDelta(t, 50, out[0].P90, 1e-9)

	assert.InDelta(t, 1000, out[1].P50, 1e-9)
	assert.InDelta(t, 1000, out[1].P80, 1e-9)
	assert.InDelta(t, 1000, out[1].P90, 1e-9)

	for _, r := range out {
		assert.GreaterOrEqual(t, r.P50, 0.0)
		assert.LessOrEqual(t, r.P50, r.P80)
		assert.LessOrEqual(t, r.P80, r.P90)
	}
}

func TestApplyGuardrails_Idempotent(t *testing.T) {
	records := []contracts.ForecastRecord{
		{Date: day(2025, 1, 3), P50: -100, P80: 50, P90: 20},
		{Date: day(2025, 1, 5), P50: 700, P80: 800, P90: 900},
	}
	hours := []contracts.HoursDay{
		{Date: day(2025, 1, 5), Closed: true},
	}

	once := ApplyGuardrails(records, hours)
	twice := ApplyGuardrails(once, hours)
	assert.Equal(t, once, twice)
}

func TestApplyOverrides_PerQuantileReplacement(t *testing.T) {
	p50 := 2500.0
	records := []contracts.ForecastRecord{
		{Date: day(2025, 7, 4), P50: 1000, P80: 1100, P90: 1200},
		{Date: day(2025, 7, 5), P50: 1000, P80: 1100, P90: 1200},
	}
	overrides := []contracts.DemandOverride{
		{Date: day(2025, 7, 4), P50: &p50},
	}

	out := ApplyOverrides(records, overrides)

	assert.InDelta(t, 2500, out[0].P50, 1e-9)
	assert.InDelta(t, 1100, out[0].P80, 1e-9) // nil 분위수는 그대로
	assert.Contains(t, out[0].AdjustmentLog, "override[p50]")

	assert.InDelta(t, 1000, out[1].P50, 1e-9)
	assert.Empty(t, out[1].AdjustmentLog)
}

func TestApplyOverrides_GuardrailsRepairOverrideViolation(t *testing.T) {
	// 오버라이드가 단조성을 깨면 뒤따르는 가드레일이 고친다
	p50 := 5000.0
	records := []contracts.ForecastRecord{
		{Date: day(2025, 7, 4), P50: 1000, P80: 1100, P90: 1200},
	}
	overrides := []contracts.DemandOverride{{Date: day(2025, 7, 4), P50: &p50}}

	out := ApplyGuardrails(ApplyOverrides(records, overrides), nil)

	assert.InDelta(t, 5000, out[0].P50, 1e-9)
	assert.InDelta(t, 5000, out[0].P80, 1e-9)
	assert.InDelta(t, 5000, out[0].P90, 1e-9)
}
