package models

import (
	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/pkg/config"
	"github.com/wonny/demandcast/pkg/logger"
)

// BuildRegistry wires the candidate model roster
// ⭐ SSOT: 후보 모델 목록은 여기서만 구성
func BuildRegistry(cfg *config.Config, log *logger.Logger) *contracts.ModelRegistry {
	registry := contracts.NewModelRegistry()

	registry.Register(NameSeasonalNaive, func() contracts.PointForecaster {
		return NewSeasonalNaive()
	})
	registry.Register(NameWeekdayMedian, func() contracts.PointForecaster {
		return NewWeekdayMedian()
	})
	registry.Register(NameCalendarQuantileShort, func() contracts.PointForecaster {
		return NewCalendarQuantileShort()
	})
	registry.Register(NameCalendarQuantileLong, func() contracts.PointForecaster {
		return NewCalendarQuantileLong()
	})

	if cfg.DeepModel.Enabled {
		deepCfg := cfg.DeepModel
		registry.RegisterOptional(NameDeep, func() contracts.PointForecaster {
			return NewDeep(deepCfg, log)
		})
	}

	return registry
}
