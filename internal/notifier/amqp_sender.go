package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"SiteWatchPlatform/internal/domain"
	"SiteWatchPlatform/pkg/errors"
	"SiteWatchPlatform/pkg/logger"
	"SiteWatchPlatform/pkg/metrics"
	"SiteWatchPlatform/pkg/rabbitmq"
)

const (
	publishRetries       = 3
	publishRetryInterval = time.Second
)

// AMQPSender публикует запросы на уведомления в RabbitMQ.
// Сервис доставки уведомлений читает их из очереди по ключу notification.<канал>.
type AMQPSender struct {
	producer *rabbitmq.Producer
	logger   logger.Logger
	metrics  *metrics.Metrics
}

// NewAMQPSender создает новый экземпляр AMQPSender
func NewAMQPSender(producer *rabbitmq.Producer, log logger.Logger, m *metrics.Metrics) *AMQPSender {
	return &AMQPSender{
		producer: producer,
		logger:   log,
		metrics:  m,
	}
}

// Send сериализует запрос и публикует его с ключом маршрутизации канала
func (s *AMQPSender) Send(ctx context.Context, req *domain.NotificationRequest) error {
	if !domain.IsValidChannel(req.Channel) {
		return errors.New(errors.ErrValidation, "invalid notification channel").
			WithDetails(fmt.Sprintf("channel: %s", req.Channel)).
			WithContext(ctx)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to serialize notification request").
			WithDetails(fmt.Sprintf("notification_id: %s", req.ID)).
			WithContext(ctx)
	}

	routingKey := fmt.Sprintf("notification.%s", req.Channel)

	if err := s.producer.PublishWithRetry(ctx, body, publishRetries, publishRetryInterval,
		rabbitmq.WithRoutingKey(routingKey)); err != nil {
		s.metrics.IncNotification(string(req.Channel), "error")
		s.logger.Error("Failed to publish notification",
			logger.String("notification_id", req.ID),
			logger.String("channel", string(req.Channel)),
			logger.String("routing_key", routingKey),
			logger.Error(err),
		)
		return errors.Wrap(err, errors.ErrInternal, "failed to publish notification").
			WithDetails(fmt.Sprintf("notification_id: %s, routing_key: %s", req.ID, routingKey)).
			WithContext(ctx)
	}

	s.metrics.IncNotification(string(req.Channel), "sent")

	s.logger.Info("Notification published",
		logger.String("notification_id", req.ID),
		logger.String("channel", string(req.Channel)),
		logger.String("recipient", req.Recipient),
		logger.String("template_key", req.TemplateKey),
		logger.Int("delay_seconds", req.DelaySeconds),
	)

	return nil
}
