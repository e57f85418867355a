package models

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/pkg/config"
	"github.com/wonny/demandcast/pkg/httputil"
	"github.com/wonny/demandcast/pkg/logger"
)

// NameDeep 레지스트리 식별자
const NameDeep = "deep_univariate"

// Deep 외부 단변량 딥 모델 어댑터 (선택적)
// 모델 서버 장애는 복구 가능한 실패다: 호출자는 빈 출력으로 계속 진행한다
type Deep struct {
	client           *httputil.Client
	log              *logger.Logger
	baseURL          string
	predictionLength int
	history          []contracts.SalesObservation
	anchor           time.Time
}

// deepPredictRequest 모델 서버 요청 본문
type deepPredictRequest struct {
	History          []deepHistoryRow `json:"history"`
	TargetDates      []string         `json:"target_dates"`
	PredictionLength int              `json:"prediction_length"`
}

type deepHistoryRow struct {
	Date string  `json:"ds"`
	Net  float64 `json:"net"`
}

// deepPredictResponse 모델 서버 응답 본문
type deepPredictResponse struct {
	Predictions []struct {
		Date string  `json:"ds"`
		P50  float64 `json:"p50"`
		P80  float64 `json:"p80"`
		P90  float64 `json:"p90"`
	} `json:"predictions"`
}

// NewDeep creates the external model adapter
func NewDeep(cfg config.DeepModelConfig, log *logger.Logger) *Deep {
	client := httputil.New(log, cfg.Timeout).WithRateLimit(cfg.RequestsPerSec)
	return &Deep{
		client:           client,
		log:              log.Component("deep-model"),
		baseURL:          cfg.BaseURL,
		predictionLength: cfg.PredictionLength,
	}
}

// Name returns the registry model identifier
func (m *Deep) Name() string { return NameDeep }

// Fit stores the history snapshot; training happens server-side at predict time
func (m *Deep) Fit(_ context.Context, history []contracts.SalesObservation) error {
	open := contracts.OpenObservations(history)
	if len(open) == 0 {
		return fmt.Errorf("deep model: no open days in history")
	}
	m.history = history
	m.anchor = contracts.HistoryMaxDate(history)
	return nil
}

// Predict calls the external model server for the target dates
// 서버가 주는 날짜 범위 밖의 타깃은 응답에 없으므로 그대로 누락시킨다
func (m *Deep) Predict(ctx context.Context, targets []time.Time) ([]contracts.QuantilePoint, error) {
	if m.history == nil {
		return nil, fmt.Errorf("deep model: model not fitted")
	}

	req := deepPredictRequest{
		History:          make([]deepHistoryRow, 0, len(m.history)),
		TargetDates:      make([]string, 0, len(targets)),
		PredictionLength: m.predictionLength,
	}
	for _, obs := range m.history {
		if obs.Closed {
			continue
		}
		req.History = append(req.History, deepHistoryRow{
			Date: obs.Date.Format(contracts.DateFormat),
			Net:  obs.Net,
		})
	}
	for _, target := range targets {
		req.TargetDates = append(req.TargetDates, contracts.Day(target).Format(contracts.DateFormat))
	}

	var resp deepPredictResponse
	url := m.baseURL + "/predict"
	if err := m.client.PostJSON(ctx, url, req, &resp); err != nil {
		return nil, fmt.Errorf("deep model predict: %w", err)
	}

	points := make([]contracts.QuantilePoint, 0, len(resp.Predictions))
	for _, row := range resp.Predictions {
		day, err := time.Parse(contracts.DateFormat, row.Date)
		if err != nil {
			m.log.WithError(err).Warnf("deep model returned unparseable date %q, skipping", row.Date)
			continue
		}
		day = contracts.Day(day)
		points = append(points, contracts.QuantilePoint{
			TargetDate: day,
			P50:        row.P50,
			P80:        row.P80,
			P90:        row.P90,
			Horizon:    horizonDays(m.anchor, day),
		})
	}
	return points, nil
}
