package contracts

import (
	"fmt"
	"time"
)

// ForecastWindow 예측 기간 값 객체
// 연도 리터럴 대신 이 값 객체를 모든 컴포넌트에 명시적으로 전달한다
type ForecastWindow struct {
	Start time.Time
	End   time.Time
}

// NewForecastWindow parses a YYYY-MM-DD window
func NewForecastWindow(start, end string) (ForecastWindow, error) {
	s, err := time.Parse(DateFormat, start)
	if err != nil {
		return ForecastWindow{}, fmt.Errorf("invalid forecast start %q: %w", start, err)
	}
	e, err := time.Parse(DateFormat, end)
	if err != nil {
		return ForecastWindow{}, fmt.Errorf("invalid forecast end %q: %w", end, err)
	}
	if e.Before(s) {
		return ForecastWindow{}, fmt.Errorf("forecast end %s before start %s", end, start)
	}
	return ForecastWindow{Start: Day(s), End: Day(e)}, nil
}

// Days returns every calendar day in the window, inclusive
func (w ForecastWindow) Days() []time.Time {
	var days []time.Time
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Contains reports whether a date falls inside the window
func (w ForecastWindow) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Year returns the calendar year of the window start
func (w ForecastWindow) Year() int {
	return w.Start.Year()
}

// Slug returns the artifact naming slug
// 달력 연도 전체면 "YYYY", 아니면 "YYYYMMDD_YYYYMMDD"
func (w ForecastWindow) Slug() string {
	if w.Start.Month() == time.January && w.Start.Day() == 1 &&
		w.End.Month() == time.December && w.End.Day() == 31 &&
		w.Start.Year() == w.End.Year() {
		return fmt.Sprintf("%04d", w.Start.Year())
	}
	return w.Start.Format("20060102") + "_" + w.End.Format("20060102")
}

// BaselineYear selects the reference year for growth calibration
// 히스토리 최대 날짜가 12월 31일이면 그 해 (완결 연도), 아니면 그 전 해
func BaselineYear(historyMaxDate time.Time) int {
	if historyMaxDate.Month() == time.December && historyMaxDate.Day() == 31 {
		return historyMaxDate.Year()
	}
	return historyMaxDate.Year() - 1
}
