package backtest

import (
	"math"
	"sort"

	"github.com/wonny/demandcast/internal/contracts"
)

// ModelBucketMetric 모델 x 수평선 버킷별 평가 지표
type ModelBucketMetric struct {
	Model  string                  `json:"model_name"`
	Bucket contracts.HorizonBucket `json:"horizon_bucket"`
	N      int                     `json:"n"`
	WMAPE  float64                 `json:"wmape"`
	RMSE   float64                 `json:"rmse"`
	Bias   float64                 `json:"bias"` // mean(pred - actual)
}

// ComputeMetrics aggregates OOF rows into per-model, per-bucket metrics
// 실측값이 없는 행과 휴무일 행은 집계에서 빠진다
func ComputeMetrics(rows []contracts.OOFPrediction) []ModelBucketMetric {
	type key struct {
		model  string
		bucket contracts.HorizonBucket
	}
	type acc struct {
		n         int
		absErrSum float64
		actualSum float64
		sqErrSum  float64
		signedSum float64
	}

	groups := make(map[key]*acc)
	for _, row := range rows {
		if row.Actual == nil || row.Closed {
			continue
		}
		k := key{model: row.Model, bucket: row.Bucket}
		a, ok := groups[k]
		if !ok {
			a = &acc{}
			groups[k] = a
		}
		err := row.P50 - *row.Actual
		a.n++
		a.absErrSum += math.Abs(err)
		a.actualSum += *row.Actual
		a.sqErrSum += err * err
		a.signedSum += err
	}

	metrics := make([]ModelBucketMetric, 0, len(groups))
	for k, a := range groups {
		m := ModelBucketMetric{
			Model:  k.model,
			Bucket: k.bucket,
			N:      a.n,
			RMSE:   math.Sqrt(a.sqErrSum / float64(a.n)),
			Bias:   a.signedSum / float64(a.n),
		}
		if a.actualSum > 0 {
			m.WMAPE = a.absErrSum / a.actualSum
		}
		metrics = append(metrics, m)
	}

	sort.Slice(metrics, func(i, j int) bool {
		if metrics[i].Model != metrics[j].Model {
			return metrics[i].Model < metrics[j].Model
		}
		return bucketRank(metrics[i].Bucket) < bucketRank(metrics[j].Bucket)
	})
	return metrics
}

func bucketRank(b contracts.HorizonBucket) int {
	for i, known := range contracts.HorizonBuckets {
		if known == b {
			return i
		}
	}
	return len(contracts.HorizonBuckets)
}
