package ensemble

import (
	"fmt"
	"sort"

	"github.com/wonny/demandcast/internal/contracts"
)

// Weights 수평선 버킷 -> 모델 -> 가중치 (버킷 내 합 1)
// 적합 후에는 불변이다: 재적합만 있고 수정은 없다
type Weights map[contracts.HorizonBucket]map[string]float64

// WeightRow 평탄화된 영속 형태 (버킷, 모델, 가중치)
type WeightRow struct {
	Bucket contracts.HorizonBucket `json:"horizon_bucket"`
	Model  string                  `json:"model_name"`
	Weight float64                 `json:"weight"`
}

// Equal returns uniform weights over the given models
func Equal(models []string) map[string]float64 {
	if len(models) == 0 {
		return map[string]float64{}
	}
	w := make(map[string]float64, len(models))
	for _, m := range models {
		w[m] = 1.0 / float64(len(models))
	}
	return w
}

// Renormalize restricts bucket weights to the present models and rescales to
// sum 1. 합이 0이거나 교집합이 없으면 균등 가중치로 폴백한다 (NaN 금지)
func Renormalize(bucketWeights map[string]float64, present []string) map[string]float64 {
	if len(present) == 0 {
		return map[string]float64{}
	}

	var sum float64
	restricted := make(map[string]float64, len(present))
	for _, m := range present {
		if w, ok := bucketWeights[m]; ok && w > 0 {
			restricted[m] = w
			sum += w
		}
	}

	if sum <= 0 {
		return Equal(present)
	}

	for m := range restricted {
		restricted[m] /= sum
	}
	// 가중치가 0이었던 모델은 명시적으로 0을 갖는다
	for _, m := range present {
		if _, ok := restricted[m]; !ok {
			restricted[m] = 0
		}
	}
	return restricted
}

// Flatten converts nested weights to sorted flat rows
func (w Weights) Flatten() []WeightRow {
	var rows []WeightRow
	for _, bucket := range contracts.HorizonBuckets {
		models, ok := w[bucket]
		if !ok {
			continue
		}
		names := make([]string, 0, len(models))
		for m := range models {
			names = append(names, m)
		}
		sort.Strings(names)
		for _, m := range names {
			rows = append(rows, WeightRow{Bucket: bucket, Model: m, Weight: models[m]})
		}
	}
	return rows
}

// FromRows reconstructs nested weights from flat rows
func FromRows(rows []WeightRow) (Weights, error) {
	w := make(Weights)
	for _, row := range rows {
		if row.Weight < 0 {
			return nil, fmt.Errorf("negative weight %.6f for %s/%s", row.Weight, row.Bucket, row.Model)
		}
		bucket, ok := w[row.Bucket]
		if !ok {
			bucket = make(map[string]float64)
			w[row.Bucket] = bucket
		}
		bucket[row.Model] = row.Weight
	}
	return w, nil
}
