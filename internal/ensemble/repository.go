package ensemble

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/demandcast/internal/contracts"
)

// Repository 앙상블 가중치 저장소
// 저장은 전체 교체다: 부분 갱신은 없다
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository 새 저장소 생성
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveWeights replaces the persisted weight table with the given weights
func (r *Repository) SaveWeights(ctx context.Context, weights Weights) error {
	rows := weights.Flatten()
	if len(rows) == 0 {
		return fmt.Errorf("save weights: empty weight set")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin weights transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM forecasting.ensemble_weights`); err != nil {
		return fmt.Errorf("clear ensemble weights: %w", err)
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO forecasting.ensemble_weights (horizon_bucket, model_name, weight)
			VALUES ($1, $2, $3)`,
			string(row.Bucket), row.Model, row.Weight,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range rows {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("insert ensemble weight: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close weights batch: %w", err)
	}

	return tx.Commit(ctx)
}

// GetWeights loads and reconstructs the nested weight mapping
func (r *Repository) GetWeights(ctx context.Context) (Weights, error) {
	query := `
		SELECT horizon_bucket, model_name, weight
		FROM forecasting.ensemble_weights
		ORDER BY horizon_bucket, model_name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query ensemble weights: %w", err)
	}
	defer rows.Close()

	var flat []WeightRow
	for rows.Next() {
		var row WeightRow
		var bucket string
		if err := rows.Scan(&bucket, &row.Model, &row.Weight); err != nil {
			return nil, fmt.Errorf("scan weight row: %w", err)
		}
		row.Bucket = contracts.HorizonBucket(bucket)
		flat = append(flat, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return FromRows(flat)
}
