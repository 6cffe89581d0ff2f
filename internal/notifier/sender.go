package notifier

import (
	"context"

	"SiteWatchPlatform/internal/domain"
)

// Sender определяет контракт отправки уведомлений.
// Эскалация знает только этот интерфейс, механика доставки по каналам
// (email, sms, webhook) скрыта за реализацией.
type Sender interface {
	// Send отправляет запрос на уведомление
	Send(ctx context.Context, req *domain.NotificationRequest) error
}
