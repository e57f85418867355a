package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/ensemble"
	"github.com/wonny/demandcast/internal/pipeline"
	"github.com/wonny/demandcast/pkg/logger"
	"github.com/wonny/demandcast/pkg/redis"
)

// 캐시 TTL: 예측은 하루 한 번 갱신되므로 길게 잡아도 안전하다
const forecastCacheTTL = 10 * time.Minute

// ForecastHandler handles read-only forecast API endpoints
// ⭐ SSOT: 예측 API 핸들러는 이 구조체에서만
type ForecastHandler struct {
	forecastRepo *pipeline.Repository
	weightRepo   *ensemble.Repository
	cache        *redis.Cache
	logger       *logger.Logger
}

// NewForecastHandler creates a new forecast handler
func NewForecastHandler(
	forecastRepo *pipeline.Repository,
	weightRepo *ensemble.Repository,
	cache *redis.Cache,
	log *logger.Logger,
) *ForecastHandler {
	return &ForecastHandler{
		forecastRepo: forecastRepo,
		weightRepo:   weightRepo,
		cache:        cache,
		logger:       log,
	}
}

// GetDailyForecast returns the latest run's daily forecast
// GET /api/forecast/daily?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *ForecastHandler) GetDailyForecast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var records []contracts.ForecastRecord
	cacheKey := "forecast:daily:latest"
	hit, err := h.cache.Get(ctx, cacheKey, &records)
	if err != nil {
		h.logger.WithError(err).Warn("forecast cache read failed")
	}
	if !hit {
		records, err = h.forecastRepo.GetLatestForecast(ctx)
		if err != nil {
			h.logger.WithError(err).Error("failed to load latest forecast")
			respondError(w, http.StatusInternalServerError, "failed to load forecast")
			return
		}
		if err := h.cache.Set(ctx, cacheKey, records, forecastCacheTTL); err != nil {
			h.logger.WithError(err).Warn("forecast cache write failed")
		}
	}

	if len(records) == 0 {
		respondError(w, http.StatusNotFound, "no forecast available")
		return
	}

	// 선택적 날짜 범위 필터
	records, err = filterByRange(records, r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"days":     len(records),
		"forecast": records,
	})
}

// GetRunLog returns the latest run metadata record
// GET /api/forecast/runlog
func (h *ForecastHandler) GetRunLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var runLog *pipeline.RunLog
	cacheKey := "forecast:runlog:latest"
	hit, err := h.cache.Get(ctx, cacheKey, &runLog)
	if err != nil {
		h.logger.WithError(err).Warn("runlog cache read failed")
	}
	if !hit || runLog == nil {
		runLog, err = h.forecastRepo.GetLatestRunLog(ctx)
		if err != nil {
			h.logger.WithError(err).Error("failed to load latest run log")
			respondError(w, http.StatusNotFound, "no run log available")
			return
		}
		if err := h.cache.Set(ctx, cacheKey, runLog, forecastCacheTTL); err != nil {
			h.logger.WithError(err).Warn("runlog cache write failed")
		}
	}

	respondJSON(w, http.StatusOK, runLog)
}

// GetWeights returns the persisted ensemble weight table
// GET /api/ensemble/weights
func (h *ForecastHandler) GetWeights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	weights, err := h.weightRepo.GetWeights(ctx)
	if err != nil {
		h.logger.WithError(err).Error("failed to load ensemble weights")
		respondError(w, http.StatusInternalServerError, "failed to load weights")
		return
	}
	if len(weights) == 0 {
		respondError(w, http.StatusNotFound, "no weights fitted yet")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"buckets": len(weights),
		"weights": weights.Flatten(),
	})
}

// filterByRange restricts records to an optional [from, to] date range
func filterByRange(records []contracts.ForecastRecord, from, to string) ([]contracts.ForecastRecord, error) {
	if from == "" && to == "" {
		return records, nil
	}

	start := time.Time{}
	end := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	var err error
	if from != "" {
		if start, err = time.Parse(contracts.DateFormat, from); err != nil {
			return nil, err
		}
	}
	if to != "" {
		if end, err = time.Parse(contracts.DateFormat, to); err != nil {
			return nil, err
		}
	}

	var filtered []contracts.ForecastRecord
	for _, r := range records {
		if r.Date.Before(start) || r.Date.After(end) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered, nil
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
