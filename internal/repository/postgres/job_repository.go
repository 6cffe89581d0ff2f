package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"SiteWatchPlatform/internal/domain"
	"SiteWatchPlatform/internal/repository"
	"SiteWatchPlatform/pkg/errors"
)

// jobColumns перечисляет колонки задачи в порядке сканирования
const jobColumns = `id, type, payload, priority, status, retry_count, max_retries,
		execute_at, started_at, completed_at, failed_at, worker_id, last_error,
		created_at, updated_at`

// JobRepository реализация репозитория очереди задач в PostgreSQL
type JobRepository struct {
	pool *pgxpool.Pool
}

// NewJobRepository создает новый экземпляр JobRepository
func NewJobRepository(pool *pgxpool.Pool) repository.JobRepository {
	return &JobRepository{
		pool: pool,
	}
}

// Create создает новую задачу
func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (id, type, payload, priority, status, retry_count, max_retries,
			execute_at, worker_id, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.Type,
		job.Payload,
		job.Priority,
		job.Status,
		job.RetryCount,
		job.MaxRetries,
		job.ExecuteAt,
		job.WorkerID,
		job.LastError,
		job.CreatedAt,
		job.UpdatedAt,
	)

	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create job").
			WithDetails(fmt.Sprintf("job_id: %s, type: %s", job.ID, job.Type)).
			WithContext(ctx)
	}

	return nil
}

// GetByID возвращает задачу по ID
func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	job, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.New(errors.ErrNotFound, "job not found").
				WithDetails(fmt.Sprintf("job_id: %s", id)).
				WithContext(ctx)
		}
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to get job").
			WithDetails(fmt.Sprintf("job_id: %s", id)).
			WithContext(ctx)
	}

	return job, nil
}

// Claim атомарно захватывает самую приоритетную готовую задачу для воркера.
// Условный UPDATE с FOR UPDATE SKIP LOCKED гарантирует, что два воркера
// не захватят одну строку; порядок выбора строго priority DESC, created_at ASC.
func (r *JobRepository) Claim(ctx context.Context, workerID string, now time.Time) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET status = $1, worker_id = $2, started_at = $3, updated_at = $3
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = $4 AND execute_at <= $3
			ORDER BY priority DESC, created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	job, err := scanJob(r.pool.QueryRow(ctx, query,
		domain.JobStatusProcessing,
		workerID,
		now,
		domain.JobStatusPending,
	))

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.New(errors.ErrNotFound, "no due jobs available").
				WithContext(ctx)
		}
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to claim job").
			WithDetails(fmt.Sprintf("worker_id: %s", workerID)).
			WithContext(ctx)
	}

	return job, nil
}

// MarkCompleted переводит захваченную воркером задачу в completed
func (r *JobRepository) MarkCompleted(ctx context.Context, jobID, workerID string) error {
	query := `
		UPDATE jobs
		SET status = $1, completed_at = $2, updated_at = $2
		WHERE id = $3 AND status = $4 AND worker_id = $5
	`

	tag, err := r.pool.Exec(ctx, query,
		domain.JobStatusCompleted,
		time.Now(),
		jobID,
		domain.JobStatusProcessing,
		workerID,
	)

	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to complete job").
			WithDetails(fmt.Sprintf("job_id: %s, worker_id: %s", jobID, workerID)).
			WithContext(ctx)
	}

	if tag.RowsAffected() == 0 {
		return r.transitionConflict(ctx, jobID, "complete")
	}

	return nil
}

// ScheduleRetry возвращает захваченную задачу в pending с отложенным временем
func (r *JobRepository) ScheduleRetry(ctx context.Context, jobID, workerID string, executeAt time.Time, lastError string) error {
	query := `
		UPDATE jobs
		SET status = $1, retry_count = retry_count + 1, execute_at = $2,
			last_error = $3, worker_id = '', started_at = NULL, updated_at = $4
		WHERE id = $5 AND status = $6 AND worker_id = $7
	`

	tag, err := r.pool.Exec(ctx, query,
		domain.JobStatusPending,
		executeAt,
		lastError,
		time.Now(),
		jobID,
		domain.JobStatusProcessing,
		workerID,
	)

	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to schedule job retry").
			WithDetails(fmt.Sprintf("job_id: %s, worker_id: %s", jobID, workerID)).
			WithContext(ctx)
	}

	if tag.RowsAffected() == 0 {
		return r.transitionConflict(ctx, jobID, "retry")
	}

	return nil
}

// MarkDeadLetter переводит захваченную задачу в dead_letter
func (r *JobRepository) MarkDeadLetter(ctx context.Context, jobID, workerID string, lastError string) error {
	return r.markTerminalFailure(ctx, jobID, workerID, lastError, domain.JobStatusDeadLetter, "dead-letter")
}

// MarkFailed переводит захваченную задачу в failed
func (r *JobRepository) MarkFailed(ctx context.Context, jobID, workerID string, lastError string) error {
	return r.markTerminalFailure(ctx, jobID, workerID, lastError, domain.JobStatusFailed, "fail")
}

// markTerminalFailure переводит задачу в конечное состояние отказа
func (r *JobRepository) markTerminalFailure(ctx context.Context, jobID, workerID, lastError string, status domain.JobStatus, action string) error {
	query := `
		UPDATE jobs
		SET status = $1, last_error = $2, failed_at = $3, updated_at = $3
		WHERE id = $4 AND status = $5 AND worker_id = $6
	`

	tag, err := r.pool.Exec(ctx, query,
		status,
		lastError,
		time.Now(),
		jobID,
		domain.JobStatusProcessing,
		workerID,
	)

	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, fmt.Sprintf("failed to %s job", action)).
			WithDetails(fmt.Sprintf("job_id: %s, worker_id: %s", jobID, workerID)).
			WithContext(ctx)
	}

	if tag.RowsAffected() == 0 {
		return r.transitionConflict(ctx, jobID, action)
	}

	return nil
}

// Cancel отменяет задачу, если она еще находится в pending
func (r *JobRepository) Cancel(ctx context.Context, jobID string) error {
	query := `
		UPDATE jobs
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	tag, err := r.pool.Exec(ctx, query,
		domain.JobStatusCancelled,
		time.Now(),
		jobID,
		domain.JobStatusPending,
	)

	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to cancel job").
			WithDetails(fmt.Sprintf("job_id: %s", jobID)).
			WithContext(ctx)
	}

	if tag.RowsAffected() == 0 {
		job, getErr := r.GetByID(ctx, jobID)
		if getErr != nil {
			return getErr
		}
		return errors.New(errors.ErrInvalidState, "job can only be cancelled while pending").
			WithDetails(fmt.Sprintf("job_id: %s, status: %s", jobID, job.Status)).
			WithContext(ctx)
	}

	return nil
}

// ReleaseStale возвращает зависшие processing задачи в pending
func (r *JobRepository) ReleaseStale(ctx context.Context, olderThan time.Time) (int, error) {
	query := `
		UPDATE jobs
		SET status = $1, worker_id = '', started_at = NULL, updated_at = $2
		WHERE status = $3 AND started_at < $4
	`

	tag, err := r.pool.Exec(ctx, query,
		domain.JobStatusPending,
		time.Now(),
		domain.JobStatusProcessing,
		olderThan,
	)

	if err != nil {
		return 0, errors.Wrap(err, errors.ErrInternal, "failed to release stale jobs").
			WithContext(ctx)
	}

	return int(tag.RowsAffected()), nil
}

// DeleteTerminalBefore удаляет конечные задачи старше указанного времени.
// Задачи в pending и processing не затрагиваются.
func (r *JobRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		DELETE FROM jobs
		WHERE status IN ($1, $2, $3, $4) AND updated_at < $5
	`

	tag, err := r.pool.Exec(ctx, query,
		domain.JobStatusCompleted,
		domain.JobStatusCancelled,
		domain.JobStatusDeadLetter,
		domain.JobStatusFailed,
		cutoff,
	)

	if err != nil {
		return 0, errors.Wrap(err, errors.ErrInternal, "failed to delete terminal jobs").
			WithContext(ctx)
	}

	return int(tag.RowsAffected()), nil
}

// ListByStatus возвращает задачи с указанным статусом
func (r *JobRepository) ListByStatus(ctx context.Context, status domain.JobStatus, limit, offset int) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + `
		FROM jobs
		WHERE status = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to list jobs").
			WithDetails(fmt.Sprintf("status: %s", status)).
			WithContext(ctx)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrInternal, "failed to scan job").
				WithContext(ctx)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to iterate jobs").
			WithContext(ctx)
	}

	return jobs, nil
}

// CountByStatus возвращает количество задач по статусам
func (r *JobRepository) CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM jobs GROUP BY status`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to count jobs").
			WithContext(ctx)
	}
	defer rows.Close()

	counts := make(map[domain.JobStatus]int)
	for rows.Next() {
		var status domain.JobStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, errors.Wrap(err, errors.ErrInternal, "failed to scan job count").
				WithContext(ctx)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to iterate job counts").
			WithContext(ctx)
	}

	return counts, nil
}

// HasUnfinishedScan проверяет наличие незавершенной задачи сканирования цели
func (r *JobRepository) HasUnfinishedScan(ctx context.Context, targetID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM jobs
			WHERE type = $1 AND status IN ($2, $3) AND payload->>'target_id' = $4
		)
	`

	var exists bool
	err := r.pool.QueryRow(ctx, query,
		domain.JobTypeScan,
		domain.JobStatusPending,
		domain.JobStatusProcessing,
		targetID,
	).Scan(&exists)

	if err != nil {
		return false, errors.Wrap(err, errors.ErrInternal, "failed to check unfinished scans").
			WithDetails(fmt.Sprintf("target_id: %s", targetID)).
			WithContext(ctx)
	}

	return exists, nil
}

// transitionConflict формирует ошибку несостоявшегося перехода состояния
func (r *JobRepository) transitionConflict(ctx context.Context, jobID, action string) error {
	job, err := r.GetByID(ctx, jobID)
	if err != nil {
		return err
	}

	return errors.New(errors.ErrInvalidState, fmt.Sprintf("cannot %s job in its current state", action)).
		WithDetails(fmt.Sprintf("job_id: %s, status: %s, worker_id: %s", jobID, job.Status, job.WorkerID)).
		WithContext(ctx)
}

// scanJob сканирует строку задачи с учетом NULL полей
func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	var startedAt, completedAt, failedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.Type,
		&job.Payload,
		&job.Priority,
		&job.Status,
		&job.RetryCount,
		&job.MaxRetries,
		&job.ExecuteAt,
		&startedAt,
		&completedAt,
		&failedAt,
		&job.WorkerID,
		&job.LastError,
		&job.CreatedAt,
		&job.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	if failedAt.Valid {
		job.FailedAt = &failedAt.Time
	}

	return &job, nil
}
