package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/demandcast/internal/contracts"
)

// Repository 최종 예측과 실행 메타데이터 저장소
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository 새 저장소 생성
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveForecast persists the final daily forecast for a run
func (r *Repository) SaveForecast(ctx context.Context, runID string, records []contracts.ForecastRecord) error {
	if len(records) == 0 {
		return fmt.Errorf("save forecast: no records")
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		flags, err := json.Marshal(rec.SpikeFlags)
		if err != nil {
			return fmt.Errorf("marshal spike flags: %w", err)
		}
		batch.Queue(`
			INSERT INTO forecasting.forecast_daily
				(run_id, ds, p50, p80, p90, is_closed, open_minutes,
				 spike_flags, calibration_scale, adjustment_multiplier, adjustment_log)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (run_id, ds)
			DO UPDATE SET
				p50 = EXCLUDED.p50,
				p80 = EXCLUDED.p80,
				p90 = EXCLUDED.p90,
				is_closed = EXCLUDED.is_closed,
				open_minutes = EXCLUDED.open_minutes,
				spike_flags = EXCLUDED.spike_flags,
				calibration_scale = EXCLUDED.calibration_scale,
				adjustment_multiplier = EXCLUDED.adjustment_multiplier,
				adjustment_log = EXCLUDED.adjustment_log`,
			runID, rec.Date, rec.P50, rec.P80, rec.P90, rec.Closed, rec.OpenMinutes,
			flags, rec.CalibrationScale, rec.AdjustmentMultiplier, rec.AdjustmentLog,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert forecast row: %w", err)
		}
	}
	return nil
}

// GetLatestForecast loads the most recent run's daily forecast
func (r *Repository) GetLatestForecast(ctx context.Context) ([]contracts.ForecastRecord, error) {
	query := `
		SELECT f.ds, f.p50, f.p80, f.p90, f.is_closed, f.open_minutes,
		       f.spike_flags, f.calibration_scale, f.adjustment_multiplier, f.adjustment_log
		FROM forecasting.forecast_daily f
		JOIN (
			SELECT run_id
			FROM forecasting.run_log
			ORDER BY created_at DESC
			LIMIT 1
		) latest ON latest.run_id = f.run_id
		ORDER BY f.ds`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query latest forecast: %w", err)
	}
	defer rows.Close()

	var records []contracts.ForecastRecord
	for rows.Next() {
		var rec contracts.ForecastRecord
		var flags []byte
		if err := rows.Scan(&rec.Date, &rec.P50, &rec.P80, &rec.P90, &rec.Closed,
			&rec.OpenMinutes, &flags, &rec.CalibrationScale,
			&rec.AdjustmentMultiplier, &rec.AdjustmentLog); err != nil {
			return nil, fmt.Errorf("scan forecast row: %w", err)
		}
		if len(flags) > 0 {
			if err := json.Unmarshal(flags, &rec.SpikeFlags); err != nil {
				return nil, fmt.Errorf("unmarshal spike flags: %w", err)
			}
		}
		rec.Date = contracts.Day(rec.Date)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// SaveRunLog persists the run metadata record
func (r *Repository) SaveRunLog(ctx context.Context, runLog *RunLog) error {
	paths, err := json.Marshal(runLog.OutputPaths)
	if err != nil {
		return fmt.Errorf("marshal output paths: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO forecasting.run_log
			(run_id, created_at, git_commit, config_fingerprint,
			 window_start, window_end, window_slug, data_through,
			 annual_p50_total, annual_p80_total, annual_p90_total,
			 spike_adjusted_days, calibration_mode, output_paths)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		runLog.RunID, runLog.CreatedAt, runLog.GitCommit, runLog.ConfigFingerprint,
		runLog.WindowStart, runLog.WindowEnd, runLog.WindowSlug, runLog.DataThrough,
		runLog.AnnualP50Total, runLog.AnnualP80Total, runLog.AnnualP90Total,
		runLog.SpikeAdjustedDays, runLog.CalibrationMode, paths,
	)
	if err != nil {
		return fmt.Errorf("insert run log: %w", err)
	}
	return nil
}

// GetLatestRunLog loads the most recent run metadata record
func (r *Repository) GetLatestRunLog(ctx context.Context) (*RunLog, error) {
	query := `
		SELECT run_id, created_at, git_commit, config_fingerprint,
		       window_start, window_end, window_slug, data_through,
		       annual_p50_total, annual_p80_total, annual_p90_total,
		       spike_adjusted_days, calibration_mode, output_paths
		FROM forecasting.run_log
		ORDER BY created_at DESC
		LIMIT 1`

	var runLog RunLog
	var paths []byte
	err := r.pool.QueryRow(ctx, query).Scan(
		&runLog.RunID, &runLog.CreatedAt, &runLog.GitCommit, &runLog.ConfigFingerprint,
		&runLog.WindowStart, &runLog.WindowEnd, &runLog.WindowSlug, &runLog.DataThrough,
		&runLog.AnnualP50Total, &runLog.AnnualP80Total, &runLog.AnnualP90Total,
		&runLog.SpikeAdjustedDays, &runLog.CalibrationMode, &paths,
	)
	if err != nil {
		return nil, fmt.Errorf("query latest run log: %w", err)
	}
	if len(paths) > 0 {
		if err := json.Unmarshal(paths, &runLog.OutputPaths); err != nil {
			return nil, fmt.Errorf("unmarshal output paths: %w", err)
		}
	}
	return &runLog, nil
}
