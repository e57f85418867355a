package overlay

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/salesdata"
	"github.com/wonny/demandcast/pkg/config"
	"github.com/wonny/demandcast/pkg/logger"
)

// baselineMinDays 매칭 기준일 폴백 체인에서 요구하는 최소 일수
const baselineMinDays = 3

// SpikeUplift 스파이크 데이 상승 오버레이
// 평활 계열 모델이 눌러버리는 반복 고수요 일을 승수로 보정한다
type SpikeUplift struct {
	cfg config.SpikeUpliftConfig
	log *logger.Logger
}

// NewSpikeUplift creates the spike uplift overlay
func NewSpikeUplift(cfg config.SpikeUpliftConfig, log *logger.Logger) *SpikeUplift {
	return &SpikeUplift{cfg: cfg, log: log.Component("spike-uplift")}
}

// ComputePriors learns one uplift multiplier per spike flag from history
// dsMax가 0이 아니면 그 이후 히스토리는 보지 않는다 (백테스트 누수 방지)
func (s *SpikeUplift) ComputePriors(history []contracts.SalesObservation, dsMax time.Time) map[string]contracts.SpikeUpliftPrior {
	open := contracts.OpenObservations(history)
	if !dsMax.IsZero() {
		truncated := open[:0:0]
		for _, obs := range open {
			if !obs.Date.After(contracts.Day(dsMax)) {
				truncated = append(truncated, obs)
			}
		}
		open = truncated
	}

	var spikeDays, nonSpikeDays []contracts.SalesObservation
	for _, obs := range open {
		if salesdata.IsSpikeDay(obs.Date) {
			spikeDays = append(spikeDays, obs)
		} else {
			nonSpikeDays = append(nonSpikeDays, obs)
		}
	}

	priors := make(map[string]contracts.SpikeUpliftPrior, len(salesdata.SpikeFlagNames))
	for _, flag := range salesdata.SpikeFlagNames {
		priors[flag] = s.computeFlagPrior(flag, spikeDays, nonSpikeDays)
	}
	return priors
}

// computeFlagPrior learns the multiplier for one flag
func (s *SpikeUplift) computeFlagPrior(flag string, spikeDays, nonSpikeDays []contracts.SalesObservation) contracts.SpikeUpliftPrior {
	var flagged []contracts.SalesObservation
	for _, obs := range spikeDays {
		if salesdata.SpikeFlagsFor(obs.Date)[flag] {
			flagged = append(flagged, obs)
		}
	}

	prior := contracts.SpikeUpliftPrior{
		Flag:           flag,
		Multiplier:     1.0,
		Confidence:     contracts.ConfidenceInsufficient,
		NObs:           len(flagged),
		BaselineMethod: contracts.BaselineNone,
	}
	if len(flagged) == 0 || len(flagged) < s.cfg.MinObservations {
		return prior
	}

	baseline, method := matchedBaseline(flagged, nonSpikeDays)
	if len(baseline) == 0 {
		return prior
	}

	baselineMedian := salesMedian(baseline)
	if baselineMedian <= 0 {
		return prior
	}

	raw := salesMedian(flagged) / baselineMedian
	shrunk := 1 + s.cfg.ShrinkageFactor*(raw-1)
	multiplier := clip(shrunk, s.cfg.MinMultiplier, s.cfg.MaxMultiplier)

	prior.Multiplier = multiplier
	prior.BaselineMethod = method
	prior.Confidence = confidenceFor(len(flagged))

	s.log.WithFields(map[string]interface{}{
		"flag":       flag,
		"n_obs":      len(flagged),
		"raw":        raw,
		"multiplier": multiplier,
		"baseline":   string(method),
	}).Debug("spike uplift prior computed")
	return prior
}

// matchedBaseline picks comparison days for the flag's observed spike days
// 동요일+동월 -> 동요일 -> 전체 비스파이크 영업일 순으로 폴백한다
func matchedBaseline(flagged, nonSpikeDays []contracts.SalesObservation) ([]contracts.SalesObservation, contracts.BaselineMethod) {
	type dowMonth struct {
		dow   time.Weekday
		month time.Month
	}
	wantExact := make(map[dowMonth]bool)
	wantDOW := make(map[time.Weekday]bool)
	for _, obs := range flagged {
		wantExact[dowMonth{dow: obs.Date.Weekday(), month: obs.Date.Month()}] = true
		wantDOW[obs.Date.Weekday()] = true
	}

	var exact, sameDOW []contracts.SalesObservation
	for _, obs := range nonSpikeDays {
		if wantExact[dowMonth{dow: obs.Date.Weekday(), month: obs.Date.Month()}] {
			exact = append(exact, obs)
		}
		if wantDOW[obs.Date.Weekday()] {
			sameDOW = append(sameDOW, obs)
		}
	}

	if len(exact) >= baselineMinDays {
		return exact, contracts.BaselineSameDOWMonth
	}
	if len(sameDOW) >= baselineMinDays {
		return sameDOW, contracts.BaselineSameDOW
	}
	if len(nonSpikeDays) >= baselineMinDays {
		return nonSpikeDays, contracts.BaselineAllNonSpike
	}
	return nil, contracts.BaselineNone
}

// Apply scales spike-day rows by the learned priors
// 한 날에 여러 플래그가 겹치면 배수는 곱이 아니라 max로 합친다
// (중복 정의된 같은 이벤트가 복리로 쌓이는 것을 막는다)
func (s *SpikeUplift) Apply(records []contracts.ForecastRecord, priors map[string]contracts.SpikeUpliftPrior) []contracts.ForecastRecord {
	out := make([]contracts.ForecastRecord, len(records))
	copy(out, records)

	adjusted := 0
	for i := range out {
		flags := salesdata.SpikeFlagsFor(out[i].Date)
		out[i].SpikeFlags = flags
		if len(flags) == 0 || out[i].Closed {
			continue
		}

		multiplier := 1.0
		hasPrior := false
		var applied []string
		names := make([]string, 0, len(flags))
		for flag := range flags {
			names = append(names, flag)
		}
		sort.Strings(names)
		for _, flag := range names {
			prior, ok := priors[flag]
			if !ok {
				continue
			}
			// 1.0 미만 배수(하향 보정)도 동일하게 max 대상이다
			if !hasPrior || prior.Multiplier > multiplier {
				multiplier = prior.Multiplier
				applied = []string{flag}
				hasPrior = true
			}
		}

		if !hasPrior || multiplier == 1.0 {
			continue
		}

		out[i].P50 *= multiplier
		out[i].P80 *= multiplier
		out[i].P90 *= multiplier
		out[i].AdjustmentMultiplier = multiplier
		out[i].AdjustmentLog = appendLog(out[i].AdjustmentLog,
			fmt.Sprintf("spike_uplift[%s]=%.3f", strings.Join(applied, ","), multiplier))
		adjusted++
	}

	s.log.WithField("adjusted_days", adjusted).Info("spike uplift applied")
	return out
}

func appendLog(existing, entry string) string {
	if existing == "" {
		return entry
	}
	return existing + "; " + entry
}

func salesMedian(observations []contracts.SalesObservation) float64 {
	values := make([]float64, 0, len(observations))
	for _, obs := range observations {
		values = append(values, obs.Net)
	}
	sort.Float64s(values)
	return stat.Quantile(0.5, stat.LinInterp, values, nil)
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func confidenceFor(n int) contracts.SpikeConfidence {
	switch {
	case n >= 5:
		return contracts.ConfidenceHigh
	case n >= 3:
		return contracts.ConfidenceMedium
	case n >= 2:
		return contracts.ConfidenceLow
	default:
		return contracts.ConfidenceVeryLow
	}
}
