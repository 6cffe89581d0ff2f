package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"SiteWatchPlatform/internal/domain"
	"SiteWatchPlatform/internal/repository"
	"SiteWatchPlatform/pkg/errors"
)

// SummaryRepository реализация репозитория сводок сканирований в PostgreSQL
type SummaryRepository struct {
	pool *pgxpool.Pool
}

// NewSummaryRepository создает новый экземпляр SummaryRepository
func NewSummaryRepository(pool *pgxpool.Pool) repository.SummaryRepository {
	return &SummaryRepository{
		pool: pool,
	}
}

// Save сохраняет сводку сканирования вместе с результатами проверок в одной транзакции
func (r *SummaryRepository) Save(ctx context.Context, summary *domain.ScanSummary) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to begin transaction").
			WithContext(ctx)
	}
	defer tx.Rollback(ctx)

	summaryQuery := `
		INSERT INTO scan_summaries (id, target_id, total, passed, failed, warnings, errors,
			status, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = tx.Exec(ctx, summaryQuery,
		summary.ID,
		summary.TargetID,
		summary.Total,
		summary.Passed,
		summary.Failed,
		summary.Warnings,
		summary.Errors,
		summary.Status,
		summary.DurationMs,
		summary.CreatedAt,
	)

	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to save scan summary").
			WithDetails(fmt.Sprintf("summary_id: %s, target_id: %s", summary.ID, summary.TargetID)).
			WithContext(ctx)
	}

	outcomeQuery := `
		INSERT INTO check_outcomes (summary_id, check_name, status, message, data, score,
			duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, outcome := range summary.Outcomes {
		_, err = tx.Exec(ctx, outcomeQuery,
			summary.ID,
			outcome.CheckName,
			outcome.Status,
			outcome.Message,
			outcome.Data,
			outcome.Score,
			outcome.DurationMs,
			outcome.CreatedAt,
		)

		if err != nil {
			return errors.Wrap(err, errors.ErrInternal, "failed to save check outcome").
				WithDetails(fmt.Sprintf("summary_id: %s, check: %s", summary.ID, outcome.CheckName)).
				WithContext(ctx)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to commit scan summary").
			WithDetails(fmt.Sprintf("summary_id: %s", summary.ID)).
			WithContext(ctx)
	}

	return nil
}

// GetRecent возвращает последние сводки цели, новые первыми
func (r *SummaryRepository) GetRecent(ctx context.Context, targetID string, limit int) ([]*domain.ScanSummary, error) {
	query := `
		SELECT id, target_id, total, passed, failed, warnings, errors,
			status, duration_ms, created_at
		FROM scan_summaries
		WHERE target_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, targetID, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to get recent summaries").
			WithDetails(fmt.Sprintf("target_id: %s", targetID)).
			WithContext(ctx)
	}
	defer rows.Close()

	var summaries []*domain.ScanSummary
	for rows.Next() {
		var summary domain.ScanSummary
		err := rows.Scan(
			&summary.ID,
			&summary.TargetID,
			&summary.Total,
			&summary.Passed,
			&summary.Failed,
			&summary.Warnings,
			&summary.Errors,
			&summary.Status,
			&summary.DurationMs,
			&summary.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrInternal, "failed to scan summary").
				WithContext(ctx)
		}
		summaries = append(summaries, &summary)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to iterate summaries").
			WithContext(ctx)
	}

	return summaries, nil
}

// CountFailuresSince возвращает количество проваленных сканирований цели с указанного времени
func (r *SummaryRepository) CountFailuresSince(ctx context.Context, targetID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM scan_summaries
		WHERE target_id = $1 AND status = $2 AND created_at >= $3
	`

	var count int
	err := r.pool.QueryRow(ctx, query, targetID, domain.ScanStatusFailed, since).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrInternal, "failed to count failures").
			WithDetails(fmt.Sprintf("target_id: %s", targetID)).
			WithContext(ctx)
	}

	return count, nil
}
