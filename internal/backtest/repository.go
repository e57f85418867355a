package backtest

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/demandcast/internal/contracts"
)

// Repository 백테스트 산출물 저장소
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository 새 저장소 생성
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveOOFPredictions persists the sweep's out-of-fold rows
// 같은 (모델, 컷오프, 타깃) 키는 최신 스위프 값으로 덮어쓴다
func (r *Repository) SaveOOFPredictions(ctx context.Context, rows []contracts.OOFPrediction) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO forecasting.backtest_oof
				(model_name, cutoff_date, target_date, horizon, horizon_bucket,
				 p50, p80, p90, y, is_closed)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (model_name, cutoff_date, target_date)
			DO UPDATE SET
				horizon = EXCLUDED.horizon,
				horizon_bucket = EXCLUDED.horizon_bucket,
				p50 = EXCLUDED.p50,
				p80 = EXCLUDED.p80,
				p90 = EXCLUDED.p90,
				y = EXCLUDED.y,
				is_closed = EXCLUDED.is_closed`,
			row.Model, row.CutoffDate, row.TargetDate, row.Horizon, string(row.Bucket),
			row.P50, row.P80, row.P90, row.Actual, row.Closed,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert oof prediction: %w", err)
		}
	}
	return nil
}

// GetOOFPredictions loads all persisted out-of-fold rows
func (r *Repository) GetOOFPredictions(ctx context.Context) ([]contracts.OOFPrediction, error) {
	query := `
		SELECT model_name, cutoff_date, target_date, horizon, horizon_bucket,
		       p50, p80, p90, y, is_closed
		FROM forecasting.backtest_oof
		ORDER BY model_name, cutoff_date, target_date`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query oof predictions: %w", err)
	}
	defer rows.Close()

	var preds []contracts.OOFPrediction
	for rows.Next() {
		var p contracts.OOFPrediction
		var bucket string
		if err := rows.Scan(&p.Model, &p.CutoffDate, &p.TargetDate, &p.Horizon, &bucket,
			&p.P50, &p.P80, &p.P90, &p.Actual, &p.Closed); err != nil {
			return nil, fmt.Errorf("scan oof row: %w", err)
		}
		p.Bucket = contracts.HorizonBucket(bucket)
		p.CutoffDate = contracts.Day(p.CutoffDate)
		p.TargetDate = contracts.Day(p.TargetDate)
		preds = append(preds, p)
	}

	return preds, rows.Err()
}

// SaveMetrics persists per-model, per-bucket evaluation metrics
func (r *Repository) SaveMetrics(ctx context.Context, metrics []ModelBucketMetric) error {
	if len(metrics) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO forecasting.backtest_metrics
				(model_name, horizon_bucket, n, wmape, rmse, bias, computed_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
			ON CONFLICT (model_name, horizon_bucket)
			DO UPDATE SET
				n = EXCLUDED.n,
				wmape = EXCLUDED.wmape,
				rmse = EXCLUDED.rmse,
				bias = EXCLUDED.bias,
				computed_at = NOW()`,
			m.Model, string(m.Bucket), m.N, m.WMAPE, m.RMSE, m.Bias,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range metrics {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert backtest metric: %w", err)
		}
	}
	return nil
}
