package ensemble

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/demandcast/internal/contracts"
)

func TestBlend_WeightedSumPerDate(t *testing.T) {
	day := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)
	perModel := map[string][]contracts.QuantilePoint{
		"a": {{TargetDate: day, P50: 1000, P80: 1200, P90: 1400, Horizon: 3}},
		"b": {{TargetDate: day, P50: 2000, P80: 2200, P90: 2400, Horizon: 3}},
	}
	weights := Weights{
		contracts.Bucket1to7: {"a": 0.75, "b": 0.25},
	}

	records, err := Blend(perModel, weights)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.InDelta(t, 1250, r.P50, 1e-9)
	assert.InDelta(t, 1450, r.P80, 1e-9)
	assert.InDelta(t, 1650, r.P90, 1e-9)
	assert.InDelta(t, 1.0, r.CalibrationScale, 1e-9)
	assert.InDelta(t, 1.0, r.AdjustmentMultiplier, 1e-9)
}

func TestBlend_RenormalizesOverPresentModels(t *testing.T) {
	day := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)
	// c는 이 날짜에 예측이 없다
	perModel := map[string][]contracts.QuantilePoint{
		"a": {{TargetDate: day, P50: 1000, P80: 1000, P90: 1000, Horizon: 5}},
		"b": {{TargetDate: day, P50: 2000, P80: 2000, P90: 2000, Horizon: 5}},
	}
	weights := Weights{
		contracts.Bucket1to7: {"a": 0.3, "b": 0.3, "c": 0.4},
	}

	records, err := Blend(perModel, weights)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// a, b 각 0.5로 재정규화
	assert.InDelta(t, 1500, records[0].P50, 1e-9)
}

func TestBlend_AveragesDuplicateModelRows(t *testing.T) {
	day := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)
	perModel := map[string][]contracts.QuantilePoint{
		"a": {
			{TargetDate: day, P50: 1000, P80: 1000, P90: 1000, Horizon: 2},
			{TargetDate: day, P50: 2000, P80: 2000, P90: 2000, Horizon: 2},
		},
	}
	weights := Weights{contracts.Bucket1to7: {"a": 1.0}}

	records, err := Blend(perModel, weights)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InDelta(t, 1500, records[0].P50, 1e-9)
}

func TestBlend_UnknownBucket_UniformFallback(t *testing.T) {
	day := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)
	perModel := map[string][]contracts.QuantilePoint{
		"a": {{TargetDate: day, P50: 100, P80: 100, P90: 100, Horizon: 20}},
		"b": {{TargetDate: day, P50: 300, P80: 300, P90: 300, Horizon: 20}},
	}

	// 15-30 버킷 가중치가 학습되지 않았다
	records, err := Blend(perModel, Weights{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InDelta(t, 200, records[0].P50, 1e-9)
}

func TestBlend_SortedOutput(t *testing.T) {
	d1 := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	perModel := map[string][]contracts.QuantilePoint{
		"a": {
			{TargetDate: d2, P50: 2, P80: 2, P90: 2, Horizon: 4},
			{TargetDate: d1, P50: 1, P80: 1, P90: 1, Horizon: 3},
		},
	}

	records, err := Blend(perModel, Weights{contracts.Bucket1to7: {"a": 1}})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].Date.Before(records[1].Date))
}

func TestBlend_NoModelsIsError(t *testing.T) {
	_, err := Blend(nil, Weights{})
	assert.Error(t, err)
}
