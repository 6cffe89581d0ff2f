package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"SiteWatchPlatform/internal/domain"
	"SiteWatchPlatform/internal/repository"
	"SiteWatchPlatform/pkg/errors"
)

// LockRepository реализация распределенных блокировок целей в Redis
type LockRepository struct {
	client *redis.Client
}

// NewLockRepository создает новый экземпляр LockRepository
func NewLockRepository(client *redis.Client) repository.LockRepository {
	return &LockRepository{
		client: client,
	}
}

// lockKey формирует ключ блокировки цели
func lockKey(targetID string) string {
	return fmt.Sprintf("lock:target:%s", targetID)
}

// TryLock пытается получить блокировку цели для планирования
func (r *LockRepository) TryLock(ctx context.Context, targetID, ownerID string, ttl time.Duration) (*domain.LockInfo, error) {
	now := time.Now()
	lockInfo := &domain.LockInfo{
		TargetID:  targetID,
		OwnerID:   ownerID,
		LockedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	lockData, err := json.Marshal(lockInfo)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to marshal lock info").
			WithContext(ctx)
	}

	// SET с опциями NX (только если ключ не существует) и EX (время жизни)
	acquired, err := r.client.SetNX(ctx, lockKey(targetID), lockData, ttl).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to acquire lock").
			WithDetails(fmt.Sprintf("target_id: %s, owner_id: %s", targetID, ownerID)).
			WithContext(ctx)
	}

	if !acquired {
		return nil, errors.New(errors.ErrConflict, "lock already acquired").
			WithDetails(fmt.Sprintf("target_id: %s", targetID)).
			WithContext(ctx)
	}

	return lockInfo, nil
}

// ReleaseLock освобождает блокировку, принадлежащую владельцу
func (r *LockRepository) ReleaseLock(ctx context.Context, targetID, ownerID string) error {
	key := lockKey(targetID)

	lockData, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			// Блокировка уже истекла или снята
			return nil
		}
		return errors.Wrap(err, errors.ErrInternal, "failed to get lock").
			WithDetails(fmt.Sprintf("target_id: %s", targetID)).
			WithContext(ctx)
	}

	var lockInfo domain.LockInfo
	if err := json.Unmarshal([]byte(lockData), &lockInfo); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to unmarshal lock info").
			WithContext(ctx)
	}

	if lockInfo.OwnerID != ownerID {
		return errors.New(errors.ErrConflict, "lock belongs to different owner").
			WithDetails(fmt.Sprintf("target_id: %s, expected_owner: %s, actual_owner: %s",
				targetID, ownerID, lockInfo.OwnerID)).
			WithContext(ctx)
	}

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to release lock").
			WithDetails(fmt.Sprintf("target_id: %s", targetID)).
			WithContext(ctx)
	}

	return nil
}

// IsLocked проверяет, заблокирована ли цель
func (r *LockRepository) IsLocked(ctx context.Context, targetID string) (bool, error) {
	exists, err := r.client.Exists(ctx, lockKey(targetID)).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrInternal, "failed to check lock existence").
			WithDetails(fmt.Sprintf("target_id: %s", targetID)).
			WithContext(ctx)
	}

	return exists > 0, nil
}

// GetLockInfo возвращает информацию о блокировке цели
func (r *LockRepository) GetLockInfo(ctx context.Context, targetID string) (*domain.LockInfo, error) {
	lockData, err := r.client.Get(ctx, lockKey(targetID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.New(errors.ErrNotFound, "lock not found").
				WithDetails(fmt.Sprintf("target_id: %s", targetID)).
				WithContext(ctx)
		}
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to get lock info").
			WithDetails(fmt.Sprintf("target_id: %s", targetID)).
			WithContext(ctx)
	}

	var lockInfo domain.LockInfo
	if err := json.Unmarshal([]byte(lockData), &lockInfo); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to unmarshal lock info").
			WithContext(ctx)
	}

	return &lockInfo, nil
}
