package repository

import (
	"context"
	"time"

	"SiteWatchPlatform/internal/domain"
)

// TargetRepository определяет интерфейс для работы с целями в БД
type TargetRepository interface {
	// Create создает новую цель
	Create(ctx context.Context, target *domain.Target) error

	// GetByID возвращает цель по ID
	GetByID(ctx context.Context, id string) (*domain.Target, error)

	// FindDue возвращает активные цели, для которых наступило время сканирования
	FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.Target, error)

	// AdvanceNextRun сдвигает время следующего запуска цели на ее интервал
	AdvanceNextRun(ctx context.Context, targetID string) error

	// List возвращает список целей с пагинацией
	List(ctx context.Context, limit, offset int) ([]*domain.Target, error)
}
