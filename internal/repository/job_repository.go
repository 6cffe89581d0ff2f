package repository

import (
	"context"
	"time"

	"SiteWatchPlatform/internal/domain"
)

// JobRepository определяет интерфейс для работы с очередью задач в БД
type JobRepository interface {
	// Create создает новую задачу
	Create(ctx context.Context, job *domain.Job) error

	// GetByID возвращает задачу по ID
	GetByID(ctx context.Context, id string) (*domain.Job, error)

	// Claim атомарно захватывает самую приоритетную готовую задачу для воркера
	Claim(ctx context.Context, workerID string, now time.Time) (*domain.Job, error)

	// MarkCompleted переводит захваченную воркером задачу в completed
	MarkCompleted(ctx context.Context, jobID, workerID string) error

	// ScheduleRetry возвращает захваченную задачу в pending с отложенным временем
	ScheduleRetry(ctx context.Context, jobID, workerID string, executeAt time.Time, lastError string) error

	// MarkDeadLetter переводит захваченную задачу в dead_letter
	MarkDeadLetter(ctx context.Context, jobID, workerID string, lastError string) error

	// MarkFailed переводит захваченную задачу в failed
	MarkFailed(ctx context.Context, jobID, workerID string, lastError string) error

	// Cancel отменяет задачу, если она еще находится в pending
	Cancel(ctx context.Context, jobID string) error

	// ReleaseStale возвращает зависшие processing задачи в pending
	ReleaseStale(ctx context.Context, olderThan time.Time) (int, error)

	// DeleteTerminalBefore удаляет конечные задачи старше указанного времени
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error)

	// ListByStatus возвращает задачи с указанным статусом
	ListByStatus(ctx context.Context, status domain.JobStatus, limit, offset int) ([]*domain.Job, error)

	// CountByStatus возвращает количество задач по статусам
	CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error)

	// HasUnfinishedScan проверяет наличие незавершенной задачи сканирования цели
	HasUnfinishedScan(ctx context.Context, targetID string) (bool, error)
}
