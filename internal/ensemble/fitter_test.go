package ensemble

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/pkg/config"
	"github.com/wonny/demandcast/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "json"})
}

// makeBucketRows generates n complete OOF rows for two models in one bucket
// modelA는 실측과 일치, modelB는 2배로 빗나간다
func makeBucketRows(bucket contracts.HorizonBucket, horizon, n int) []contracts.OOFPrediction {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var rows []contracts.OOFPrediction
	for i := 0; i < n; i++ {
		cutoff := base.AddDate(0, 0, i*7)
		target := cutoff.AddDate(0, 0, horizon)
		actual := 1000.0 + float64(i%5)*50
		rows = append(rows,
			contracts.OOFPrediction{
				Model: "model_a", CutoffDate: cutoff, TargetDate: target,
				Horizon: horizon, Bucket: bucket, P50: actual, Actual: &actual,
			},
			contracts.OOFPrediction{
				Model: "model_b", CutoffDate: cutoff, TargetDate: target,
				Horizon: horizon, Bucket: bucket, P50: actual * 2, Actual: &actual,
			},
		)
	}
	return rows
}

func TestFitter_TwoModelBucket_SumsToOneAndPrefersAccurate(t *testing.T) {
	rows := makeBucketRows(contracts.Bucket1to7, 3, 60)

	fitter := NewFitter(config.EnsembleConfig{MinRows: 50}, testLogger())
	weights, err := fitter.Fit(rows)
	require.NoError(t, err)

	bucket := weights[contracts.Bucket1to7]
	require.Len(t, bucket, 2)

	var sum float64
	for _, w := range bucket {
		assert.GreaterOrEqual(t, w, 0.0)
		assert.LessOrEqual(t, w, 1.0)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-6)

	// 정확한 모델이 지배적 가중치를 받아야 한다
	assert.Greater(t, bucket["model_a"], 0.8)
}

func TestFitter_InsufficientRows_FirstBucketEqualWeights(t *testing.T) {
	rows := makeBucketRows(contracts.Bucket1to7, 3, 10) // 50행 미만

	fitter := NewFitter(config.EnsembleConfig{MinRows: 50}, testLogger())
	weights, err := fitter.Fit(rows)
	require.NoError(t, err)

	bucket := weights[contracts.Bucket1to7]
	assert.InDelta(t, 0.5, bucket["model_a"], 1e-9)
	assert.InDelta(t, 0.5, bucket["model_b"], 1e-9)
}

func TestFitter_InsufficientRows_LaterBucketInheritsPrevious(t *testing.T) {
	rows := makeBucketRows(contracts.Bucket1to7, 3, 60)
	// 8-14 버킷에는 몇 행만 둔다
	rows = append(rows, makeBucketRows(contracts.Bucket8to14, 10, 5)...)

	fitter := NewFitter(config.EnsembleConfig{MinRows: 50}, testLogger())
	weights, err := fitter.Fit(rows)
	require.NoError(t, err)

	assert.Equal(t, weights[contracts.Bucket1to7], weights[contracts.Bucket8to14])
}

func TestFitter_NoRowsIsFatal(t *testing.T) {
	fitter := NewFitter(config.EnsembleConfig{MinRows: 50}, testLogger())
	_, err := fitter.Fit(nil)
	assert.Error(t, err)
}

func TestFitter_ZeroActualSum_EqualWeights(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	zero := 0.0
	var rows []contracts.OOFPrediction
	for i := 0; i < 60; i++ {
		cutoff := base.AddDate(0, 0, i)
		target := cutoff.AddDate(0, 0, 3)
		rows = append(rows,
			contracts.OOFPrediction{Model: "a", CutoffDate: cutoff, TargetDate: target,
				Horizon: 3, Bucket: contracts.Bucket1to7, P50: 100, Actual: &zero},
			contracts.OOFPrediction{Model: "b", CutoffDate: cutoff, TargetDate: target,
				Horizon: 3, Bucket: contracts.Bucket1to7, P50: 200, Actual: &zero},
		)
	}

	fitter := NewFitter(config.EnsembleConfig{MinRows: 50}, testLogger())
	weights, err := fitter.Fit(rows)
	require.NoError(t, err)

	bucket := weights[contracts.Bucket1to7]
	assert.InDelta(t, 0.5, bucket["a"], 1e-9)
	assert.InDelta(t, 0.5, bucket["b"], 1e-9)
}

func TestRenormalize(t *testing.T) {
	learned := map[string]float64{"a": 0.6, "b": 0.3, "c": 0.1}

	// c가 빠지면 a, b를 0.9로 재정규화
	w := Renormalize(learned, []string{"a", "b"})
	assert.InDelta(t, 0.6/0.9, w["a"], 1e-9)
	assert.InDelta(t, 0.3/0.9, w["b"], 1e-9)
	assert.InDelta(t, 1.0, w["a"]+w["b"], 1e-9)
}

func TestRenormalize_DisjointModels_UniformFallback(t *testing.T) {
	learned := map[string]float64{"a": 0.6, "b": 0.4}

	w := Renormalize(learned, []string{"x", "y"})
	assert.InDelta(t, 0.5, w["x"], 1e-9)
	assert.InDelta(t, 0.5, w["y"], 1e-9)
}

func TestRenormalize_EmptyLearned_UniformFallback(t *testing.T) {
	w := Renormalize(nil, []string{"a", "b", "c"})
	var sum float64
	for _, v := range w {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestWeights_FlattenRoundTrip(t *testing.T) {
	original := Weights{
		contracts.Bucket1to7:  {"a": 0.7, "b": 0.3},
		contracts.Bucket8to14: {"a": 0.4, "b": 0.6},
	}

	restored, err := FromRows(original.Flatten())
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestFromRows_RejectsNegativeWeight(t *testing.T) {
	_, err := FromRows([]WeightRow{{Bucket: contracts.Bucket1to7, Model: "a", Weight: -0.1}})
	assert.Error(t, err)
}
