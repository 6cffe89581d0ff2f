package repository

import (
	"context"
	"time"

	"SiteWatchPlatform/internal/domain"
)

// LockRepository определяет интерфейс распределенных блокировок целей
type LockRepository interface {
	// TryLock пытается получить блокировку цели для планирования
	TryLock(ctx context.Context, targetID, ownerID string, ttl time.Duration) (*domain.LockInfo, error)

	// ReleaseLock освобождает блокировку, принадлежащую владельцу
	ReleaseLock(ctx context.Context, targetID, ownerID string) error

	// IsLocked проверяет, заблокирована ли цель
	IsLocked(ctx context.Context, targetID string) (bool, error)

	// GetLockInfo возвращает информацию о блокировке цели
	GetLockInfo(ctx context.Context, targetID string) (*domain.LockInfo, error)
}
