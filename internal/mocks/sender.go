package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"SiteWatchPlatform/internal/domain"
)

// MockSender - универсальный мок для notifier.Sender
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, req *domain.NotificationRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
