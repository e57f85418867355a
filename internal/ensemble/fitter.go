package ensemble

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/pkg/config"
	"github.com/wonny/demandcast/pkg/logger"
)

// Fitter 버킷별 볼록 결합 가중치 적합기
// 목적 함수는 wMAPE = Σ|Xw - y| / Σy, 제약은 심플렉스 (Σw=1, 0<=w<=1)
type Fitter struct {
	cfg config.EnsembleConfig
	log *logger.Logger
}

// NewFitter creates an ensemble weight fitter
func NewFitter(cfg config.EnsembleConfig, log *logger.Logger) *Fitter {
	return &Fitter{cfg: cfg, log: log.Component("ensemble-fit")}
}

// foldKey 피벗 행 키 (컷오프, 타깃)
type foldKey struct {
	cutoff time.Time
	target time.Time
}

// Fit learns per-bucket weights from out-of-fold predictions
// 제로 백테스트 행은 치명적 오류다 (블렌딩할 근거가 없음)
func (f *Fitter) Fit(rows []contracts.OOFPrediction) (Weights, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("ensemble fit: no out-of-fold predictions available")
	}

	roster := modelRoster(rows)

	weights := make(Weights, len(contracts.HorizonBuckets))
	var previous map[string]float64

	for i, bucket := range contracts.HorizonBuckets {
		// 버킷 로스터: 이 버킷에 예측이 실제로 존재하는 모델만
		// (단기 전용 모델은 긴 수평선 버킷에서 자연히 빠진다)
		X, y, bucketModels := pivotBucket(rows, bucket)

		var w map[string]float64
		switch {
		case len(X) < f.cfg.MinRows && i == 0:
			f.log.WithFields(map[string]interface{}{
				"bucket": string(bucket),
				"rows":   len(X),
			}).Warn("insufficient rows, falling back to equal weights")
			if len(bucketModels) > 0 {
				w = Equal(bucketModels)
			} else {
				w = Equal(roster)
			}
		case len(X) < f.cfg.MinRows:
			// 데이터가 얇은 버킷은 이웃 버킷의 가중치를 물려받는다
			f.log.WithFields(map[string]interface{}{
				"bucket": string(bucket),
				"rows":   len(X),
			}).Warn("insufficient rows, inheriting previous bucket weights")
			w = copyWeights(previous)
		default:
			w = f.solveBucket(bucket, X, y, bucketModels)
		}

		weights[bucket] = w
		previous = w
	}

	return weights, nil
}

// pivotBucket builds the complete-case design matrix for one bucket
// 버킷 내 모델 로스터 기준으로, 모델 값이 하나라도 빠진 행과
// 실측 없는 행은 버린다
func pivotBucket(rows []contracts.OOFPrediction, bucket contracts.HorizonBucket) ([][]float64, []float64, []string) {
	type cell struct {
		sum float64
		n   int
	}
	pivot := make(map[foldKey]map[string]*cell)
	actuals := make(map[foldKey]float64)
	hasActual := make(map[foldKey]bool)

	for _, row := range rows {
		if row.Bucket != bucket {
			continue
		}
		key := foldKey{cutoff: contracts.Day(row.CutoffDate), target: contracts.Day(row.TargetDate)}
		byModel, ok := pivot[key]
		if !ok {
			byModel = make(map[string]*cell)
			pivot[key] = byModel
		}
		c, ok := byModel[row.Model]
		if !ok {
			c = &cell{}
			byModel[row.Model] = c
		}
		c.sum += row.P50
		c.n++
		if row.Actual != nil {
			actuals[key] = *row.Actual
			hasActual[key] = true
		}
	}

	bucketSeen := make(map[string]bool)
	for _, byModel := range pivot {
		for model := range byModel {
			bucketSeen[model] = true
		}
	}
	roster := make([]string, 0, len(bucketSeen))
	for model := range bucketSeen {
		roster = append(roster, model)
	}
	sort.Strings(roster)

	keys := make([]foldKey, 0, len(pivot))
	for key := range pivot {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].cutoff.Equal(keys[j].cutoff) {
			return keys[i].cutoff.Before(keys[j].cutoff)
		}
		return keys[i].target.Before(keys[j].target)
	})

	var X [][]float64
	var y []float64
	for _, key := range keys {
		if !hasActual[key] {
			continue
		}
		byModel := pivot[key]
		featureRow := make([]float64, len(roster))
		complete := true
		for j, model := range roster {
			c, ok := byModel[model]
			if !ok {
				complete = false
				break
			}
			featureRow[j] = c.sum / float64(c.n)
		}
		if !complete {
			continue
		}
		X = append(X, featureRow)
		y = append(y, actuals[key])
	}

	return X, y, roster
}

// solveBucket minimizes wMAPE over the simplex
// 심플렉스 제약은 softmax 재매개변수화로 처리하고, 무제약 공간에서
// Nelder-Mead를 돌린다. 수렴 실패 시 균등 가중치 폴백.
func (f *Fitter) solveBucket(bucket contracts.HorizonBucket, X [][]float64, y []float64, models []string) map[string]float64 {
	var actualSum float64
	for _, v := range y {
		actualSum += v
	}
	if actualSum <= 0 {
		f.log.WithField("bucket", string(bucket)).Warn("non-positive actual sum, falling back to equal weights")
		return Equal(models)
	}

	k := len(models)
	if k == 1 {
		return map[string]float64{models[0]: 1.0}
	}

	objective := func(z []float64) float64 {
		w := softmax(z)
		var absErrSum float64
		for i, row := range X {
			var blend float64
			for j := range row {
				blend += row[j] * w[j]
			}
			absErrSum += math.Abs(blend - y[i])
		}
		return absErrSum / actualSum
	}

	problem := optimize.Problem{Func: objective}
	// z=0 은 균등 가중치 초기해
	initial := make([]float64, k)

	result, err := optimize.Minimize(problem, initial, nil, &optimize.NelderMead{})
	if err != nil || result == nil {
		f.log.WithField("bucket", string(bucket)).Warn("weight solver failed to converge, using equal weights")
		return Equal(models)
	}

	solved := softmax(result.X)
	w := make(map[string]float64, k)
	for j, model := range models {
		w[model] = solved[j]
	}

	f.log.WithFields(map[string]interface{}{
		"bucket": string(bucket),
		"rows":   len(X),
		"wmape":  result.F,
	}).Info("bucket weights fitted")
	return w
}

// softmax maps unconstrained parameters onto the probability simplex
func softmax(z []float64) []float64 {
	maxZ := z[0]
	for _, v := range z[1:] {
		if v > maxZ {
			maxZ = v
		}
	}
	exp := make([]float64, len(z))
	var sum float64
	for i, v := range z {
		exp[i] = math.Exp(v - maxZ)
		sum += exp[i]
	}
	for i := range exp {
		exp[i] /= sum
	}
	return exp
}

// modelRoster returns the sorted union of models present in the data
func modelRoster(rows []contracts.OOFPrediction) []string {
	seen := make(map[string]bool)
	for _, row := range rows {
		seen[row.Model] = true
	}
	roster := make([]string, 0, len(seen))
	for model := range seen {
		roster = append(roster, model)
	}
	sort.Strings(roster)
	return roster
}

func copyWeights(w map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}
