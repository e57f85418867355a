package salesdata

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/demandcast/internal/contracts"
)

// Repository 매출/영업시간 데이터 저장소
// 히스토리는 추가 전용이며 이 저장소는 읽기만 한다
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository 새 저장소 생성
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetHistory 전체 매출 히스토리 조회 (날짜 오름차순)
func (r *Repository) GetHistory(ctx context.Context) ([]contracts.SalesObservation, error) {
	query := `
		SELECT ds, net_sales, is_closed
		FROM forecasting.sales_daily
		ORDER BY ds`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query sales history: %w", err)
	}
	defer rows.Close()

	var history []contracts.SalesObservation
	for rows.Next() {
		var obs contracts.SalesObservation
		if err := rows.Scan(&obs.Date, &obs.Net, &obs.Closed); err != nil {
			return nil, fmt.Errorf("scan sales row: %w", err)
		}
		obs.Date = contracts.Day(obs.Date)
		history = append(history, obs)
	}

	return history, rows.Err()
}

// GetHoursCalendar 예측 기간의 영업시간 캘린더 조회
// 휴무 플래그의 최종 권위는 이 캘린더다
func (r *Repository) GetHoursCalendar(ctx context.Context, window contracts.ForecastWindow) ([]contracts.HoursDay, error) {
	query := `
		SELECT ds, is_closed, open_minutes
		FROM forecasting.hours_calendar
		WHERE ds BETWEEN $1 AND $2
		ORDER BY ds`

	rows, err := r.pool.Query(ctx, query, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("query hours calendar: %w", err)
	}
	defer rows.Close()

	var hours []contracts.HoursDay
	for rows.Next() {
		var h contracts.HoursDay
		if err := rows.Scan(&h.Date, &h.Closed, &h.OpenMinutes); err != nil {
			return nil, fmt.Errorf("scan hours row: %w", err)
		}
		h.Date = contracts.Day(h.Date)
		hours = append(hours, h)
	}

	return hours, rows.Err()
}
