package salesdata

import (
	"time"

	"github.com/wonny/demandcast/internal/contracts"
)

// 반복 스파이크 데이 플래그 이름
// 플래그는 날짜만으로 결정된다 (조인 없음, 연도 무관)
const (
	FlagBlackFriday          = "is_black_friday"
	FlagThanksgivingDay      = "is_thanksgiving_day"
	FlagDayAfterThanksgiving = "is_day_after_thanksgiving"
	FlagMemorialDay          = "is_memorial_day"
	FlagMemorialDayWeekend   = "is_memorial_day_weekend"
	FlagLaborDay             = "is_labor_day"
	FlagLaborDayWeekend      = "is_labor_day_weekend"
	FlagIndependenceDay      = "is_independence_day"
	FlagChristmasEve         = "is_christmas_eve"
	FlagDayAfterChristmas    = "is_day_after_christmas"
	FlagYearEndWeek          = "is_year_end_week"
)

// SpikeFlagNames 모든 스파이크 플래그 (우선순위 없음, 적용은 max 정책)
var SpikeFlagNames = []string{
	FlagBlackFriday,
	FlagThanksgivingDay,
	FlagDayAfterThanksgiving,
	FlagMemorialDay,
	FlagMemorialDayWeekend,
	FlagLaborDay,
	FlagLaborDayWeekend,
	FlagIndependenceDay,
	FlagChristmasEve,
	FlagDayAfterChristmas,
	FlagYearEndWeek,
}

// SpikeFlagsFor returns the active spike flags for a calendar day
// 비활성 플래그는 맵에 넣지 않는다
func SpikeFlagsFor(t time.Time) map[string]bool {
	d := contracts.Day(t)
	flags := make(map[string]bool)

	thanksgiving := nthWeekday(d.Year(), time.November, time.Thursday, 4)
	memorial := lastWeekday(d.Year(), time.May, time.Monday)
	labor := nthWeekday(d.Year(), time.September, time.Monday, 1)

	if d.Equal(thanksgiving) {
		flags[FlagThanksgivingDay] = true
	}
	// 블랙 프라이데이와 추수감사절 다음날은 같은 날의 중복 정의다
	// 두 플래그가 동시에 켜져도 적용 배수는 max로 합쳐진다
	if d.Equal(thanksgiving.AddDate(0, 0, 1)) {
		flags[FlagBlackFriday] = true
		flags[FlagDayAfterThanksgiving] = true
	}

	if d.Equal(memorial) {
		flags[FlagMemorialDay] = true
	}
	if withinWeekendOf(d, memorial) {
		flags[FlagMemorialDayWeekend] = true
	}

	if d.Equal(labor) {
		flags[FlagLaborDay] = true
	}
	if withinWeekendOf(d, labor) {
		flags[FlagLaborDayWeekend] = true
	}

	if d.Month() == time.July && d.Day() == 4 {
		flags[FlagIndependenceDay] = true
	}
	if d.Month() == time.December && d.Day() == 24 {
		flags[FlagChristmasEve] = true
	}
	if d.Month() == time.December && d.Day() == 26 {
		flags[FlagDayAfterChristmas] = true
	}
	if d.Month() == time.December && d.Day() >= 26 {
		flags[FlagYearEndWeek] = true
	}

	return flags
}

// IsSpikeDay reports whether any spike flag is active on the day
func IsSpikeDay(t time.Time) bool {
	return len(SpikeFlagsFor(t)) > 0
}

// nthWeekday returns the n-th weekday of a month (n >= 1)
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+(n-1)*7)
}

// lastWeekday returns the last weekday of a month
func lastWeekday(year int, month time.Month, weekday time.Weekday) time.Time {
	last := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	offset := (int(last.Weekday()) - int(weekday) + 7) % 7
	return last.AddDate(0, 0, -offset)
}

// withinWeekendOf reports whether d falls on the Saturday-to-Monday span
// ending at a Monday holiday
func withinWeekendOf(d, mondayHoliday time.Time) bool {
	return !d.Before(mondayHoliday.AddDate(0, 0, -2)) && !d.After(mondayHoliday)
}
