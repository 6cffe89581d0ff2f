package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"SiteWatchPlatform/internal/domain"
	"SiteWatchPlatform/internal/repository"
	"SiteWatchPlatform/pkg/errors"
)

// targetColumns перечисляет колонки цели в порядке сканирования
const targetColumns = `id, name, url, priority, interval_seconds, next_run_at,
		checks, channels, active, created_at, updated_at`

// TargetRepository реализация репозитория целей в PostgreSQL
type TargetRepository struct {
	pool *pgxpool.Pool
}

// NewTargetRepository создает новый экземпляр TargetRepository
func NewTargetRepository(pool *pgxpool.Pool) repository.TargetRepository {
	return &TargetRepository{
		pool: pool,
	}
}

// Create создает новую цель
func (r *TargetRepository) Create(ctx context.Context, target *domain.Target) error {
	query := `
		INSERT INTO targets (id, name, url, priority, interval_seconds, next_run_at,
			checks, channels, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		target.ID,
		target.Name,
		target.URL,
		target.Priority,
		int64(target.Interval.Seconds()),
		target.NextRunAt,
		target.Checks,
		target.Channels,
		target.Active,
		target.CreatedAt,
		target.UpdatedAt,
	)

	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create target").
			WithDetails(fmt.Sprintf("target_id: %s, url: %s", target.ID, target.URL)).
			WithContext(ctx)
	}

	return nil
}

// GetByID возвращает цель по ID
func (r *TargetRepository) GetByID(ctx context.Context, id string) (*domain.Target, error) {
	query := `SELECT ` + targetColumns + ` FROM targets WHERE id = $1`

	target, err := scanTarget(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.New(errors.ErrNotFound, "target not found").
				WithDetails(fmt.Sprintf("target_id: %s", id)).
				WithContext(ctx)
		}
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to get target").
			WithDetails(fmt.Sprintf("target_id: %s", id)).
			WithContext(ctx)
	}

	return target, nil
}

// FindDue возвращает активные цели, для которых наступило время сканирования
func (r *TargetRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.Target, error) {
	query := `SELECT ` + targetColumns + `
		FROM targets
		WHERE active = TRUE AND next_run_at <= $1
		ORDER BY next_run_at ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to find due targets").
			WithContext(ctx)
	}
	defer rows.Close()

	return collectTargets(ctx, rows)
}

// AdvanceNextRun сдвигает время следующего запуска цели на ее интервал.
// Сдвиг выполняется от прежнего next_run_at, а не от текущего момента.
func (r *TargetRepository) AdvanceNextRun(ctx context.Context, targetID string) error {
	query := `
		UPDATE targets
		SET next_run_at = next_run_at + make_interval(secs => interval_seconds),
			updated_at = $1
		WHERE id = $2
	`

	tag, err := r.pool.Exec(ctx, query, time.Now(), targetID)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to advance target schedule").
			WithDetails(fmt.Sprintf("target_id: %s", targetID)).
			WithContext(ctx)
	}

	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrNotFound, "target not found").
			WithDetails(fmt.Sprintf("target_id: %s", targetID)).
			WithContext(ctx)
	}

	return nil
}

// List возвращает список целей с пагинацией
func (r *TargetRepository) List(ctx context.Context, limit, offset int) ([]*domain.Target, error) {
	query := `SELECT ` + targetColumns + `
		FROM targets
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to list targets").
			WithContext(ctx)
	}
	defer rows.Close()

	return collectTargets(ctx, rows)
}

// collectTargets сканирует все строки выборки целей
func collectTargets(ctx context.Context, rows pgx.Rows) ([]*domain.Target, error) {
	var targets []*domain.Target
	for rows.Next() {
		target, err := scanTarget(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrInternal, "failed to scan target").
				WithContext(ctx)
		}
		targets = append(targets, target)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to iterate targets").
			WithContext(ctx)
	}

	return targets, nil
}

// scanTarget сканирует строку цели
func scanTarget(row pgx.Row) (*domain.Target, error) {
	var target domain.Target
	var intervalSeconds int64

	err := row.Scan(
		&target.ID,
		&target.Name,
		&target.URL,
		&target.Priority,
		&intervalSeconds,
		&target.NextRunAt,
		&target.Checks,
		&target.Channels,
		&target.Active,
		&target.CreatedAt,
		&target.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	target.Interval = time.Duration(intervalSeconds) * time.Second

	return &target, nil
}
