package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"taskflow-backend/internal/models"
)

type DailySummaryRepo struct {
	pool *pgxpool.Pool
}

func NewDailySummaryRepo(pool *pgxpool.Pool) *DailySummaryRepo {
	return &DailySummaryRepo{pool: pool}
}

// GetByDate returns the record for the given UTC day key, or pgx.ErrNoRows
// if nothing has been generated for that day yet.
func (r *DailySummaryRepo) GetByDate(ctx context.Context, date time.Time) (*models.DailySummaryRecord, error) {
	rec := &models.DailySummaryRecord{}
	query := `SELECT date, summary, regenerate_count, created_at
		FROM daily_summaries WHERE date = $1`

	err := r.pool.QueryRow(ctx, query, date).Scan(
		&rec.Date, &rec.Summary, &rec.RegenerateCount, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Upsert stores the payload for the day and charges exactly one
// regeneration against the quota in a single statement. Creating the
// day's row counts as the first use; on conflict the counter increments
// only while still under maxPerDay, so two racing callers can never
// double-spend the last slot. When the cap is already spent no row comes
// back and the caller sees pgx.ErrNoRows.
func (r *DailySummaryRepo) Upsert(ctx context.Context, date time.Time, summary []byte, maxPerDay int) (*models.DailySummaryRecord, error) {
	rec := &models.DailySummaryRecord{}
	query := `
		INSERT INTO daily_summaries (date, summary, regenerate_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (date) DO UPDATE
		SET summary = EXCLUDED.summary,
		    regenerate_count = daily_summaries.regenerate_count + 1
		WHERE daily_summaries.regenerate_count < $3
		RETURNING date, summary, regenerate_count, created_at`

	err := r.pool.QueryRow(ctx, query, date, summary, maxPerDay).Scan(
		&rec.Date, &rec.Summary, &rec.RegenerateCount, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}
