package repository

import (
	"context"
	"time"

	"SiteWatchPlatform/internal/domain"
)

// SummaryRepository определяет интерфейс для работы со сводками сканирований
type SummaryRepository interface {
	// Save сохраняет сводку сканирования вместе с результатами проверок
	Save(ctx context.Context, summary *domain.ScanSummary) error

	// GetRecent возвращает последние сводки цели, новые первыми
	GetRecent(ctx context.Context, targetID string, limit int) ([]*domain.ScanSummary, error)

	// CountFailuresSince возвращает количество проваленных сканирований цели с указанного времени
	CountFailuresSince(ctx context.Context, targetID string, since time.Time) (int, error)
}

// EscalationRepository определяет интерфейс для работы с эскалациями
type EscalationRepository interface {
	// Create создает новую эскалацию
	Create(ctx context.Context, escalation *domain.Escalation) error

	// GetActiveByTarget возвращает активную эскалацию цели
	GetActiveByTarget(ctx context.Context, targetID string) (*domain.Escalation, error)

	// Update обновляет эскалацию
	Update(ctx context.Context, escalation *domain.Escalation) error

	// ListActive возвращает все активные эскалации
	ListActive(ctx context.Context) ([]*domain.Escalation, error)
}
