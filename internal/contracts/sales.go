package contracts

import "time"

// DateFormat 날짜 직렬화 표준 포맷
const DateFormat = "2006-01-02"

// SalesObservation 일별 매출 히스토리 행 (불변)
type SalesObservation struct {
	Date   time.Time `json:"date"`
	Net    float64   `json:"net"`       // 일 순매출
	Closed bool      `json:"is_closed"` // 휴무일 여부
}

// HoursDay 영업시간 캘린더 행
type HoursDay struct {
	Date        time.Time `json:"date"`
	Closed      bool      `json:"is_closed"`
	OpenMinutes int       `json:"open_minutes"`
}

// Day truncates a timestamp to midnight UTC
// 모든 날짜 키는 이 함수로 정규화
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two timestamps fall on the same calendar day
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

// OpenObservations filters the history to open days
func OpenObservations(history []SalesObservation) []SalesObservation {
	open := make([]SalesObservation, 0, len(history))
	for _, obs := range history {
		if !obs.Closed {
			open = append(open, obs)
		}
	}
	return open
}

// HistoryMaxDate returns the latest date in the history (zero time when empty)
func HistoryMaxDate(history []SalesObservation) time.Time {
	var max time.Time
	for _, obs := range history {
		if obs.Date.After(max) {
			max = obs.Date
		}
	}
	return max
}

// HistoryMinDate returns the earliest date in the history (zero time when empty)
func HistoryMinDate(history []SalesObservation) time.Time {
	var min time.Time
	for i, obs := range history {
		if i == 0 || obs.Date.Before(min) {
			min = obs.Date
		}
	}
	return min
}
