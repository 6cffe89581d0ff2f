package notifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SiteWatchPlatform/internal/domain"
	"SiteWatchPlatform/pkg/errors"
	"SiteWatchPlatform/pkg/logger"
	"SiteWatchPlatform/pkg/metrics"
)

func TestAMQPSender_Send_InvalidChannel(t *testing.T) {
	log, err := logger.NewLogger("test", "debug", "sitewatch")
	require.NoError(t, err)

	// Валидация канала отсекает запрос до обращения к брокеру
	sender := NewAMQPSender(nil, log, metrics.NewMetrics("sitewatch_test"))

	req := domain.NewNotificationRequest(domain.NotificationChannel("pager"), "ops@example.com", domain.TemplateEscalationLevel2, nil)

	sendErr := sender.Send(context.Background(), req)

	assert.Error(t, sendErr)
	assert.True(t, errors.IsCode(sendErr, errors.ErrValidation))
}
