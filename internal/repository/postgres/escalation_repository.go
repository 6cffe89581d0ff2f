package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"SiteWatchPlatform/internal/domain"
	"SiteWatchPlatform/internal/repository"
	"SiteWatchPlatform/pkg/errors"
)

// escalationColumns перечисляет колонки эскалации в порядке сканирования
const escalationColumns = `id, target_id, level, trigger_reason, status, cooldown_until,
		resolved_at, resolution_reason, created_at, updated_at`

// EscalationRepository реализация репозитория эскалаций в PostgreSQL
type EscalationRepository struct {
	pool *pgxpool.Pool
}

// NewEscalationRepository создает новый экземпляр EscalationRepository
func NewEscalationRepository(pool *pgxpool.Pool) repository.EscalationRepository {
	return &EscalationRepository{
		pool: pool,
	}
}

// Create создает новую эскалацию
func (r *EscalationRepository) Create(ctx context.Context, escalation *domain.Escalation) error {
	query := `
		INSERT INTO escalations (id, target_id, level, trigger_reason, status, cooldown_until,
			resolution_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		escalation.ID,
		escalation.TargetID,
		escalation.Level,
		escalation.TriggerReason,
		escalation.Status,
		escalation.CooldownUntil,
		escalation.ResolutionReason,
		escalation.CreatedAt,
		escalation.UpdatedAt,
	)

	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create escalation").
			WithDetails(fmt.Sprintf("escalation_id: %s, target_id: %s", escalation.ID, escalation.TargetID)).
			WithContext(ctx)
	}

	return nil
}

// GetActiveByTarget возвращает активную эскалацию цели
func (r *EscalationRepository) GetActiveByTarget(ctx context.Context, targetID string) (*domain.Escalation, error) {
	query := `SELECT ` + escalationColumns + `
		FROM escalations
		WHERE target_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1`

	escalation, err := scanEscalation(r.pool.QueryRow(ctx, query, targetID, domain.EscalationStatusActive))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.New(errors.ErrNotFound, "no active escalation").
				WithDetails(fmt.Sprintf("target_id: %s", targetID)).
				WithContext(ctx)
		}
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to get active escalation").
			WithDetails(fmt.Sprintf("target_id: %s", targetID)).
			WithContext(ctx)
	}

	return escalation, nil
}

// Update обновляет эскалацию
func (r *EscalationRepository) Update(ctx context.Context, escalation *domain.Escalation) error {
	query := `
		UPDATE escalations
		SET level = $1, trigger_reason = $2, status = $3, cooldown_until = $4,
			resolved_at = $5, resolution_reason = $6, updated_at = $7
		WHERE id = $8
	`

	tag, err := r.pool.Exec(ctx, query,
		escalation.Level,
		escalation.TriggerReason,
		escalation.Status,
		escalation.CooldownUntil,
		escalation.ResolvedAt,
		escalation.ResolutionReason,
		escalation.UpdatedAt,
		escalation.ID,
	)

	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to update escalation").
			WithDetails(fmt.Sprintf("escalation_id: %s", escalation.ID)).
			WithContext(ctx)
	}

	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrNotFound, "escalation not found").
			WithDetails(fmt.Sprintf("escalation_id: %s", escalation.ID)).
			WithContext(ctx)
	}

	return nil
}

// ListActive возвращает все активные эскалации
func (r *EscalationRepository) ListActive(ctx context.Context) ([]*domain.Escalation, error) {
	query := `SELECT ` + escalationColumns + `
		FROM escalations
		WHERE status = $1
		ORDER BY level DESC, updated_at DESC`

	rows, err := r.pool.Query(ctx, query, domain.EscalationStatusActive)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to list active escalations").
			WithContext(ctx)
	}
	defer rows.Close()

	var escalations []*domain.Escalation
	for rows.Next() {
		escalation, err := scanEscalation(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrInternal, "failed to scan escalation").
				WithContext(ctx)
		}
		escalations = append(escalations, escalation)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to iterate escalations").
			WithContext(ctx)
	}

	return escalations, nil
}

// scanEscalation сканирует строку эскалации с учетом NULL полей
func scanEscalation(row pgx.Row) (*domain.Escalation, error) {
	var escalation domain.Escalation
	var resolvedAt sql.NullTime

	err := row.Scan(
		&escalation.ID,
		&escalation.TargetID,
		&escalation.Level,
		&escalation.TriggerReason,
		&escalation.Status,
		&escalation.CooldownUntil,
		&resolvedAt,
		&escalation.ResolutionReason,
		&escalation.CreatedAt,
		&escalation.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	if resolvedAt.Valid {
		escalation.ResolvedAt = &resolvedAt.Time
	}

	return &escalation, nil
}
