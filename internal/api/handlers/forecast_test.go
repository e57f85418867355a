package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/demandcast/internal/contracts"
)

func TestFilterByRange(t *testing.T) {
	var records []contracts.ForecastRecord
	for i := 0; i < 10; i++ {
		records = append(records, contracts.ForecastRecord{
			Date: time.Date(2025, 7, 1+i, 0, 0, 0, 0, time.UTC),
		})
	}

	filtered, err := filterByRange(records, "2025-07-03", "2025-07-05")
	require.NoError(t, err)
	require.Len(t, filtered, 3)
	assert.Equal(t, 3, filtered[0].Date.Day())
	assert.Equal(t, 5, filtered[2].Date.Day())
}

func TestFilterByRange_OpenEnded(t *testing.T) {
	records := []contracts.ForecastRecord{
		{Date: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)},
		{Date: time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)},
	}

	filtered, err := filterByRange(records, "2025-07-05", "")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, 10, filtered[0].Date.Day())

	all, err := filterByRange(records, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFilterByRange_InvalidDate(t *testing.T) {
	_, err := filterByRange(nil, "not-a-date", "")
	assert.Error(t, err)
}
