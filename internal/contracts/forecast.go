package contracts

import "time"

// QuantilePoint 단일 모델의 1일 예측
type QuantilePoint struct {
	TargetDate time.Time `json:"target_date"`
	P50        float64   `json:"p50"`
	P80        float64   `json:"p80"`
	P90        float64   `json:"p90"`
	Horizon    int       `json:"horizon"` // 발행일로부터 일수
}

// ForecastRecord 오버레이 파이프라인을 통과하는 일별 예측 행
// 각 오버레이는 새 슬라이스를 반환한다 (숨은 순서 버그 방지)
type ForecastRecord struct {
	Date                 time.Time       `json:"date"`
	P50                  float64         `json:"p50"`
	P80                  float64         `json:"p80"`
	P90                  float64         `json:"p90"`
	Closed               bool            `json:"is_closed"`
	OpenMinutes          int             `json:"open_minutes"`
	SpikeFlags           map[string]bool `json:"spike_flags,omitempty"`
	CalibrationScale     float64         `json:"calibration_scale"`
	AdjustmentMultiplier float64         `json:"adjustment_multiplier"`
	AdjustmentLog        string          `json:"adjustment_log,omitempty"`
}

// OOFPrediction 롤링 오리진 백테스트의 out-of-fold 예측 행
// 컷오프 이후 데이터는 절대 학습에 쓰이지 않는다 (누수 방지)
type OOFPrediction struct {
	Model      string        `json:"model_name"`
	CutoffDate time.Time     `json:"cutoff_date"`
	TargetDate time.Time     `json:"target_date"`
	Horizon    int           `json:"horizon"`
	Bucket     HorizonBucket `json:"horizon_bucket"`
	P50        float64       `json:"p50"`
	P80        float64       `json:"p80"`
	P90        float64       `json:"p90"`
	Actual     *float64      `json:"y,omitempty"` // 실측값 (없으면 nil)
	Closed     bool          `json:"is_closed"`
}

// SpikeConfidence 스파이크 배수 신뢰도 (관측 수 기반)
type SpikeConfidence string

const (
	ConfidenceInsufficient SpikeConfidence = "insufficient"
	ConfidenceVeryLow      SpikeConfidence = "very_low"
	ConfidenceLow          SpikeConfidence = "low"
	ConfidenceMedium       SpikeConfidence = "medium"
	ConfidenceHigh         SpikeConfidence = "high"
)

// BaselineMethod 스파이크 기준일 매칭 방법 (폴백 체인 순)
type BaselineMethod string

const (
	BaselineSameDOWMonth BaselineMethod = "same_dow_month"
	BaselineSameDOW      BaselineMethod = "same_dow_any_month"
	BaselineAllNonSpike  BaselineMethod = "all_non_spike_days"
	BaselineNone         BaselineMethod = "none"
)

// SpikeUpliftPrior 스파이크 플래그별 상승 배수
type SpikeUpliftPrior struct {
	Flag           string          `json:"spike_flag"`
	Multiplier     float64         `json:"uplift_multiplier"`
	Confidence     SpikeConfidence `json:"confidence"`
	NObs           int             `json:"n_obs"`
	BaselineMethod BaselineMethod  `json:"baseline_method"`
}

// MonthlyCalibrationScale 월별 성장 보정 요약 행
type MonthlyCalibrationScale struct {
	Month              int     `json:"month"`
	BaselineYear       int     `json:"baseline_year"`
	ForecastYear       int     `json:"forecast_year"`
	BaselineMonthTotal float64 `json:"baseline_year_month_total"`
	TargetMonthTotal   float64 `json:"target_year_month_total"`
	NonSpikeBefore     float64 `json:"forecast_nonspike_total_before"`
	NonSpikeAfter      float64 `json:"forecast_nonspike_total_after"`
	SpikeTotal         float64 `json:"forecast_spike_total"`
	AchievedTotal      float64 `json:"achieved_month_total_after"`
	Scale              float64 `json:"month_scale"`
}

// CalibrationLogEntry 성장 보정 감사 로그 (일 단위)
type CalibrationLogEntry struct {
	Date      time.Time `json:"date"`
	Month     int       `json:"month"`
	Excluded  bool      `json:"is_excluded"`
	P50Before float64   `json:"p50_before"`
	P80Before float64   `json:"p80_before"`
	P90Before float64   `json:"p90_before"`
	P50After  float64   `json:"p50_after"`
	P80After  float64   `json:"p80_after"`
	P90After  float64   `json:"p90_after"`
	Scale     float64   `json:"calibration_scale"`
}

// DemandOverride 운영자 수동 오버라이드 (CSV 입력)
// nil 필드는 해당 분위수를 건드리지 않는다
type DemandOverride struct {
	Date time.Time `json:"date"`
	P50  *float64  `json:"p50,omitempty"`
	P80  *float64  `json:"p80,omitempty"`
	P90  *float64  `json:"p90,omitempty"`
}
