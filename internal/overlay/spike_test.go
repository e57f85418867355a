package overlay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/salesdata"
	"github.com/wonny/demandcast/pkg/config"
	"github.com/wonny/demandcast/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "json"})
}

func defaultSpikeConfig() config.SpikeUpliftConfig {
	return config.SpikeUpliftConfig{
		Enabled:         true,
		MinObservations: 1,
		ShrinkageFactor: 0.5,
		MinMultiplier:   0.7,
		MaxMultiplier:   1.6,
	}
}

// historyWithSpikes builds two years of flat 1000/day history where every
// Black Friday(+Thanksgiving 다음날) sells at the given level
func historyWithSpikes(spikeLevel float64) []contracts.SalesObservation {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	var history []contracts.SalesObservation
	for d := start; d.Year() <= 2024; d = d.AddDate(0, 0, 1) {
		net := 1000.0
		if salesdata.SpikeFlagsFor(d)[salesdata.FlagBlackFriday] {
			net = spikeLevel
		}
		history = append(history, contracts.SalesObservation{Date: d, Net: net})
	}
	return history
}

func TestComputePriors_ShrinkageAndConfidence(t *testing.T) {
	// 스파이크 날 매출 2000, 기준 1000 -> raw 2.0, 수축 1.5
	s := NewSpikeUplift(defaultSpikeConfig(), testLogger())
	priors := s.ComputePriors(historyWithSpikes(2000), time.Time{})

	prior := priors[salesdata.FlagBlackFriday]
	assert.Equal(t, 2, prior.NObs)
	assert.InDelta(t, 1.5, prior.Multiplier, 1e-9)
	assert.Equal(t, contracts.ConfidenceLow, prior.Confidence)
	assert.NotEqual(t, contracts.BaselineNone, prior.BaselineMethod)
}

func TestComputePriors_CapsAtMaxMultiplier(t *testing.T) {
	// raw 4.0 -> 수축 2.5 -> 상한 1.6 캡
	s := NewSpikeUplift(defaultSpikeConfig(), testLogger())
	priors := s.ComputePriors(historyWithSpikes(4000), time.Time{})

	assert.InDelta(t, 1.6, priors[salesdata.FlagBlackFriday].Multiplier, 1e-9)
}

func TestComputePriors_SingleObservation(t *testing.T) {
	// 1회 관측 이벤트: min_observations=1 이면 배수가 나오고 신뢰도는 very_low
	start := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	var history []contracts.SalesObservation
	for d := start; d.Before(start.AddDate(0, 2, 0)); d = d.AddDate(0, 0, 1) {
		net := 1000.0
		if salesdata.SpikeFlagsFor(d)[salesdata.FlagThanksgivingDay] {
			net = 1800
		}
		history = append(history, contracts.SalesObservation{Date: d, Net: net})
	}

	s := NewSpikeUplift(defaultSpikeConfig(), testLogger())
	priors := s.ComputePriors(history, time.Time{})

	prior := priors[salesdata.FlagThanksgivingDay]
	assert.Equal(t, 1, prior.NObs)
	assert.Greater(t, prior.Multiplier, 1.0)
	assert.Equal(t, contracts.ConfidenceVeryLow, prior.Confidence)
}

func TestComputePriors_BelowMinObservations(t *testing.T) {
	cfg := defaultSpikeConfig()
	cfg.MinObservations = 3

	s := NewSpikeUplift(cfg, testLogger())
	priors := s.ComputePriors(historyWithSpikes(2000), time.Time{})

	prior := priors[salesdata.FlagBlackFriday]
	assert.InDelta(t, 1.0, prior.Multiplier, 1e-9)
	assert.Equal(t, contracts.ConfidenceInsufficient, prior.Confidence)
}

func TestComputePriors_DsMaxTruncation(t *testing.T) {
	// 2024년 블랙 프라이데이 이전으로 절단하면 2023년 1회만 남는다
	s := NewSpikeUplift(defaultSpikeConfig(), testLogger())
	priors := s.ComputePriors(historyWithSpikes(2000), time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, 1, priors[salesdata.FlagBlackFriday].NObs)
}

func TestApply_MaxPolicyOverOverlappingFlags(t *testing.T) {
	// 블랙 프라이데이에는 두 플래그가 동시에 켜진다: 곱(1.95)이 아니라 max(1.5)
	blackFriday := time.Date(2025, 11, 28, 0, 0, 0, 0, time.UTC)
	records := []contracts.ForecastRecord{
		{Date: blackFriday, P50: 1000, P80: 1200, P90: 1400, CalibrationScale: 1, AdjustmentMultiplier: 1},
	}
	priors := map[string]contracts.SpikeUpliftPrior{
		salesdata.FlagBlackFriday:          {Flag: salesdata.FlagBlackFriday, Multiplier: 1.5},
		salesdata.FlagDayAfterThanksgiving: {Flag: salesdata.FlagDayAfterThanksgiving, Multiplier: 1.3},
	}

	s := NewSpikeUplift(defaultSpikeConfig(), testLogger())
	out := s.Apply(records, priors)
	require.Len(t, out, 1)

	assert.InDelta(t, 1500, out[0].P50, 1e-9)
	assert.InDelta(t, 1800, out[0].P80, 1e-9)
	assert.InDelta(t, 1.5, out[0].AdjustmentMultiplier, 1e-9)
	assert.Contains(t, out[0].AdjustmentLog, "spike_uplift")
}

func TestApply_DownwardMultiplier(t *testing.T) {
	// 클립 하한(0.7)이 허용하는 1.0 미만 배수도 적용되어야 한다: max(0.8, 0.75)=0.8
	blackFriday := time.Date(2025, 11, 28, 0, 0, 0, 0, time.UTC)
	records := []contracts.ForecastRecord{
		{Date: blackFriday, P50: 1000, P80: 1200, P90: 1400, CalibrationScale: 1, AdjustmentMultiplier: 1},
	}
	priors := map[string]contracts.SpikeUpliftPrior{
		salesdata.FlagBlackFriday:          {Flag: salesdata.FlagBlackFriday, Multiplier: 0.8},
		salesdata.FlagDayAfterThanksgiving: {Flag: salesdata.FlagDayAfterThanksgiving, Multiplier: 0.75},
	}

	s := NewSpikeUplift(defaultSpikeConfig(), testLogger())
	out := s.Apply(records, priors)
	require.Len(t, out, 1)

	assert.InDelta(t, 800, out[0].P50, 1e-9)
	assert.InDelta(t, 960, out[0].P80, 1e-9)
	assert.InDelta(t, 1120, out[0].P90, 1e-9)
	assert.InDelta(t, 0.8, out[0].AdjustmentMultiplier, 1e-9)
	assert.Contains(t, out[0].AdjustmentLog, "spike_uplift[black_friday]=0.800")
}

func TestApply_NonSpikeDayUntouched(t *testing.T) {
	ordinary := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	records := []contracts.ForecastRecord{
		{Date: ordinary, P50: 1000, P80: 1100, P90: 1200, CalibrationScale: 1, AdjustmentMultiplier: 1},
	}

	s := NewSpikeUplift(defaultSpikeConfig(), testLogger())
	out := s.Apply(records, map[string]contracts.SpikeUpliftPrior{})

	assert.InDelta(t, 1000, out[0].P50, 1e-9)
	assert.InDelta(t, 1.0, out[0].AdjustmentMultiplier, 1e-9)
}

func TestApply_ClosedSpikeDayUntouched(t *testing.T) {
	blackFriday := time.Date(2025, 11, 28, 0, 0, 0, 0, time.UTC)
	records := []contracts.ForecastRecord{
		{Date: blackFriday, Closed: true, CalibrationScale: 1, AdjustmentMultiplier: 1},
	}
	priors := map[string]contracts.SpikeUpliftPrior{
		salesdata.FlagBlackFriday: {Flag: salesdata.FlagBlackFriday, Multiplier: 1.5},
	}

	s := NewSpikeUplift(defaultSpikeConfig(), testLogger())
	out := s.Apply(records, priors)

	assert.InDelta(t, 0, out[0].P50, 1e-9)
	assert.InDelta(t, 1.0, out[0].AdjustmentMultiplier, 1e-9)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	blackFriday := time.Date(2025, 11, 28, 0, 0, 0, 0, time.UTC)
	records := []contracts.ForecastRecord{
		{Date: blackFriday, P50: 1000, P80: 1000, P90: 1000, CalibrationScale: 1, AdjustmentMultiplier: 1},
	}
	priors := map[string]contracts.SpikeUpliftPrior{
		salesdata.FlagBlackFriday: {Flag: salesdata.FlagBlackFriday, Multiplier: 1.5},
	}

	s := NewSpikeUplift(defaultSpikeConfig(), testLogger())
	_ = s.Apply(records, priors)

	assert.InDelta(t, 1000, records[0].P50, 1e-9)
}
