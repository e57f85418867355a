package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForecastWindow_Slug(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  string
	}{
		{"full calendar year", "2026-01-01", "2026-12-31", "2026"},
		{"partial window", "2026-03-01", "2026-08-31", "20260301_20260831"},
		{"cross-year window", "2026-07-01", "2027-06-30", "20260701_20270630"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewForecastWindow(tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.want, w.Slug())
		})
	}
}

func TestNewForecastWindow_Invalid(t *testing.T) {
	_, err := NewForecastWindow("2026-12-31", "2026-01-01")
	require.Error(t, err)

	_, err = NewForecastWindow("not-a-date", "2026-01-01")
	require.Error(t, err)
}

func TestForecastWindow_Days(t *testing.T) {
	w, err := NewForecastWindow("2026-02-26", "2026-03-02")
	require.NoError(t, err)

	days := w.Days()
	require.Len(t, days, 5)
	assert.Equal(t, time.Date(2026, 2, 26, 0, 0, 0, 0, time.UTC), days[0])
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), days[4])
	assert.True(t, w.Contains(days[2]))
	assert.False(t, w.Contains(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)))
}

func TestBaselineYear(t *testing.T) {
	// 12월 31일로 끝나면 그 해가 완결 연도
	assert.Equal(t, 2025, BaselineYear(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)))
	// 연중이면 전년도
	assert.Equal(t, 2024, BaselineYear(time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2025, BaselineYear(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestBucketFor(t *testing.T) {
	tests := []struct {
		horizon int
		want    HorizonBucket
	}{
		{1, Bucket1to7},
		{7, Bucket1to7},
		{8, Bucket8to14},
		{14, Bucket8to14},
		{15, Bucket15to30},
		{30, Bucket15to30},
		{31, Bucket31to90},
		{90, Bucket31to90},
		{91, Bucket91to380},
		{380, Bucket91to380},
		{0, BucketOther},
		{-3, BucketOther},
		{381, BucketOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BucketFor(tt.horizon), "horizon %d", tt.horizon)
	}
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	ts := time.Date(2026, 6, 15, 23, 45, 12, 0, loc)
	assert.Equal(t, time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC), Day(ts))
}
