package escalation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"SiteWatchPlatform/internal/checker"
	"SiteWatchPlatform/internal/domain"
	"SiteWatchPlatform/internal/mocks"
	"SiteWatchPlatform/pkg/errors"
	"SiteWatchPlatform/pkg/logger"
	"SiteWatchPlatform/pkg/metrics"
)

// stubCheck реализует checker.Check с фиксированной категорией
type stubCheck struct {
	name     string
	category domain.CheckCategory
}

func (c stubCheck) Name() string                   { return c.name }
func (c stubCheck) Description() string            { return "stub check" }
func (c stubCheck) Category() domain.CheckCategory { return c.category }

func (c stubCheck) Run(ctx context.Context, target *domain.Target) (*domain.CheckOutcome, error) {
	return domain.NewCheckOutcome(c.name, domain.CheckStatusPass, "ok"), nil
}

func newTestLogger(t *testing.T) logger.Logger {
	t.Helper()

	log, err := logger.NewLogger("test", "debug", "sitewatch")
	require.NoError(t, err)
	return log
}

func setupTestEvaluator(t *testing.T) (*Evaluator, *mocks.MockEscalationRepository, *mocks.MockSummaryRepository, *mocks.MockSender) {
	t.Helper()

	mockEscalationRepo := &mocks.MockEscalationRepository{}
	mockSummaryRepo := &mocks.MockSummaryRepository{}
	mockSender := &mocks.MockSender{}

	log := newTestLogger(t)
	registry := checker.NewRegistry(log)
	require.NoError(t, registry.Register(stubCheck{name: "http_status", category: domain.CheckCategoryCritical}))
	require.NoError(t, registry.Register(stubCheck{name: "latency", category: domain.CheckCategoryPerformance}))

	evaluator := NewEvaluator(mockEscalationRepo, mockSummaryRepo, registry, mockSender, nil, log, metrics.NewMetrics("sitewatch_test"))

	return evaluator, mockEscalationRepo, mockSummaryRepo, mockSender
}

func escalationTarget() *domain.Target {
	return &domain.Target{
		ID:   "550e8400-e29b-41d4-a716-446655440000",
		Name: "example",
		URL:  "https://example.com",
		Channels: []domain.ChannelConfig{
			{Channel: domain.ChannelEmail, Recipient: "ops@example.com"},
			{Channel: domain.ChannelSMS, Recipient: "+15550100"},
			{Channel: domain.ChannelWebhook, Recipient: "https://hooks.example.com/alerts"},
		},
	}
}

func failedSummary(targetID, failedCheck string) *domain.ScanSummary {
	return &domain.ScanSummary{
		ID:       "scan-1",
		TargetID: targetID,
		Total:    3,
		Passed:   2,
		Failed:   1,
		Status:   domain.ScanStatusFailed,
		Outcomes: []domain.CheckOutcome{
			{CheckName: failedCheck, Status: domain.CheckStatusFail, Message: "check failed"},
			{CheckName: "dns_resolve", Status: domain.CheckStatusPass, Message: "ok"},
		},
		CreatedAt: time.Now(),
	}
}

func passedSummary(targetID string) *domain.ScanSummary {
	return &domain.ScanSummary{
		ID:       "scan-2",
		TargetID: targetID,
		Total:    3,
		Passed:   3,
		Status:   domain.ScanStatusPassed,
		Outcomes: []domain.CheckOutcome{
			{CheckName: "http_status", Status: domain.CheckStatusPass, Message: "ok"},
		},
		CreatedAt: time.Now(),
	}
}

func notFoundErr() error {
	return errors.New(errors.ErrNotFound, "escalation not found")
}

func TestEvaluator_Evaluate_CriticalFailureCreatesLevel3(t *testing.T) {
	evaluator, mockEscalationRepo, _, mockSender := setupTestEvaluator(t)
	ctx := context.Background()

	// Тестовые данные: провалена проверка критической категории
	target := escalationTarget()
	summary := failedSummary(target.ID, "http_status")

	// Настраиваем моки
	mockEscalationRepo.On("GetActiveByTarget", ctx, target.ID).Return(nil, notFoundErr())
	mockEscalationRepo.On("Create", ctx, mock.MatchedBy(func(esc *domain.Escalation) bool {
		return esc.TargetID == target.ID &&
			esc.Level == domain.EscalationLevelCritical &&
			esc.Status == domain.EscalationStatusActive
	})).Return(nil)
	// Уровень 3 рассылается во все каналы без задержки
	mockSender.On("Send", ctx, mock.MatchedBy(func(req *domain.NotificationRequest) bool {
		return req.TemplateKey == domain.TemplateEscalationLevel3 && req.DelaySeconds == 0
	})).Return(nil)

	// Выполняем операцию
	result, err := evaluator.Evaluate(ctx, target, summary)

	// Проверяем результат
	assert.NoError(t, err)
	assert.Equal(t, domain.EvaluationEscalationCreated, result)

	// Проверяем вызовы моков
	mockEscalationRepo.AssertExpectations(t)
	mockSender.AssertNumberOfCalls(t, "Send", 3)
}

func TestEvaluator_Evaluate_ConsecutiveFailuresCreateLevel2(t *testing.T) {
	evaluator, mockEscalationRepo, mockSummaryRepo, mockSender := setupTestEvaluator(t)
	ctx := context.Background()

	// Провалена некритическая проверка, но это уже второй провал подряд
	target := escalationTarget()
	summary := failedSummary(target.ID, "latency")

	history := []*domain.ScanSummary{
		{ID: "scan-2", TargetID: target.ID, Status: domain.ScanStatusFailed},
		{ID: "scan-1", TargetID: target.ID, Status: domain.ScanStatusFailed},
	}

	mockSummaryRepo.On("GetRecent", ctx, target.ID, 10).Return(history, nil)
	mockEscalationRepo.On("GetActiveByTarget", ctx, target.ID).Return(nil, notFoundErr())
	mockEscalationRepo.On("Create", ctx, mock.MatchedBy(func(esc *domain.Escalation) bool {
		return esc.Level == domain.EscalationLevelHigh
	})).Return(nil)
	mockSender.On("Send", ctx, mock.MatchedBy(func(req *domain.NotificationRequest) bool {
		// Уровень 2: только email и sms, webhook не используется
		return req.TemplateKey == domain.TemplateEscalationLevel2 &&
			req.Channel != domain.ChannelWebhook &&
			req.DelaySeconds == int((5 * time.Minute).Seconds())
	})).Return(nil)

	result, err := evaluator.Evaluate(ctx, target, summary)

	assert.NoError(t, err)
	assert.Equal(t, domain.EvaluationEscalationCreated, result)

	mockEscalationRepo.AssertExpectations(t)
	mockSummaryRepo.AssertExpectations(t)
	mockSender.AssertNumberOfCalls(t, "Send", 2)
}

func TestEvaluator_Evaluate_FailuresInPeriodCreateLevel2(t *testing.T) {
	evaluator, mockEscalationRepo, mockSummaryRepo, mockSender := setupTestEvaluator(t)
	ctx := context.Background()

	target := escalationTarget()
	summary := failedSummary(target.ID, "latency")

	// Серия оборвана успешным сканированием, но за окно набралось три провала
	history := []*domain.ScanSummary{
		{ID: "scan-3", TargetID: target.ID, Status: domain.ScanStatusFailed},
		{ID: "scan-2", TargetID: target.ID, Status: domain.ScanStatusPassed},
	}

	mockSummaryRepo.On("GetRecent", ctx, target.ID, 10).Return(history, nil)
	mockSummaryRepo.On("CountFailuresSince", ctx, target.ID, mock.AnythingOfType("time.Time")).Return(3, nil)
	mockEscalationRepo.On("GetActiveByTarget", ctx, target.ID).Return(nil, notFoundErr())
	mockEscalationRepo.On("Create", ctx, mock.MatchedBy(func(esc *domain.Escalation) bool {
		return esc.Level == domain.EscalationLevelHigh
	})).Return(nil)
	mockSender.On("Send", ctx, mock.AnythingOfType("*domain.NotificationRequest")).Return(nil)

	result, err := evaluator.Evaluate(ctx, target, summary)

	assert.NoError(t, err)
	assert.Equal(t, domain.EvaluationEscalationCreated, result)

	mockSummaryRepo.AssertExpectations(t)
	mockEscalationRepo.AssertExpectations(t)
}

func TestEvaluator_Evaluate_BelowThresholds_NoEscalation(t *testing.T) {
	evaluator, mockEscalationRepo, mockSummaryRepo, mockSender := setupTestEvaluator(t)
	ctx := context.Background()

	target := escalationTarget()
	summary := failedSummary(target.ID, "latency")

	// Единственный провал: ни один порог не достигнут
	history := []*domain.ScanSummary{
		{ID: "scan-1", TargetID: target.ID, Status: domain.ScanStatusPassed},
	}

	mockSummaryRepo.On("GetRecent", ctx, target.ID, 10).Return(history, nil)
	mockSummaryRepo.On("CountFailuresSince", ctx, target.ID, mock.AnythingOfType("time.Time")).Return(1, nil)

	result, err := evaluator.Evaluate(ctx, target, summary)

	assert.NoError(t, err)
	assert.Equal(t, domain.EvaluationNoEscalationNeeded, result)

	// Провал ниже порогов не трогает хранилище эскалаций и не шлет уведомлений
	mockEscalationRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockSender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestEvaluator_Evaluate_ErrorsOnlyScanDoesNotEscalate(t *testing.T) {
	evaluator, mockEscalationRepo, _, mockSender := setupTestEvaluator(t)
	ctx := context.Background()

	target := escalationTarget()

	// Ошибки выполнения проверок - не провалы
	summary := &domain.ScanSummary{
		ID:       "scan-1",
		TargetID: target.ID,
		Total:    2,
		Passed:   1,
		Errors:   1,
		Status:   domain.ScanStatusError,
		Outcomes: []domain.CheckOutcome{
			{CheckName: "http_status", Status: domain.CheckStatusError, Message: "timeout exceeded"},
		},
	}

	result, err := evaluator.Evaluate(ctx, target, summary)

	assert.NoError(t, err)
	assert.Equal(t, domain.EvaluationNoEscalationNeeded, result)

	mockEscalationRepo.AssertNotCalled(t, "GetActiveByTarget", mock.Anything, mock.Anything)
	mockSender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestEvaluator_Evaluate_InCooldown(t *testing.T) {
	evaluator, mockEscalationRepo, _, mockSender := setupTestEvaluator(t)
	ctx := context.Background()

	target := escalationTarget()
	summary := failedSummary(target.ID, "http_status")

	// Активная эскалация в периоде охлаждения
	active := domain.NewEscalation(target.ID, domain.EscalationLevelHigh, "2 consecutive failed scans", 4*time.Hour)

	mockEscalationRepo.On("GetActiveByTarget", ctx, target.ID).Return(active, nil)

	result, err := evaluator.Evaluate(ctx, target, summary)

	// Охлаждение гасит уведомление даже при росте уровня до критического
	assert.NoError(t, err)
	assert.Equal(t, domain.EvaluationInCooldown, result)

	mockEscalationRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	mockSender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestEvaluator_Evaluate_NoIncreaseNeeded(t *testing.T) {
	evaluator, mockEscalationRepo, mockSummaryRepo, mockSender := setupTestEvaluator(t)
	ctx := context.Background()

	target := escalationTarget()
	summary := failedSummary(target.ID, "latency")

	history := []*domain.ScanSummary{
		{ID: "scan-2", TargetID: target.ID, Status: domain.ScanStatusFailed},
		{ID: "scan-1", TargetID: target.ID, Status: domain.ScanStatusFailed},
	}

	// Охлаждение истекло, но активный уровень уже выше вычисленного
	active := domain.NewEscalation(target.ID, domain.EscalationLevelCritical, "critical check failed: http_status", 4*time.Hour)
	active.CooldownUntil = time.Now().Add(-time.Minute)

	mockSummaryRepo.On("GetRecent", ctx, target.ID, 10).Return(history, nil)
	mockEscalationRepo.On("GetActiveByTarget", ctx, target.ID).Return(active, nil)

	result, err := evaluator.Evaluate(ctx, target, summary)

	assert.NoError(t, err)
	assert.Equal(t, domain.EvaluationNoIncreaseNeeded, result)

	mockEscalationRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	mockSender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestEvaluator_Evaluate_RaisesActiveEscalation(t *testing.T) {
	evaluator, mockEscalationRepo, _, mockSender := setupTestEvaluator(t)
	ctx := context.Background()

	target := escalationTarget()
	summary := failedSummary(target.ID, "http_status")

	// Активная эскалация уровня 2 с истекшим охлаждением
	active := domain.NewEscalation(target.ID, domain.EscalationLevelHigh, "2 consecutive failed scans", 4*time.Hour)
	active.CooldownUntil = time.Now().Add(-time.Minute)

	mockEscalationRepo.On("GetActiveByTarget", ctx, target.ID).Return(active, nil)
	mockEscalationRepo.On("Update", ctx, mock.MatchedBy(func(esc *domain.Escalation) bool {
		// Уровень поднят, охлаждение перезапущено
		return esc.Level == domain.EscalationLevelCritical && esc.CooldownUntil.After(time.Now())
	})).Return(nil)
	mockSender.On("Send", ctx, mock.MatchedBy(func(req *domain.NotificationRequest) bool {
		return req.TemplateKey == domain.TemplateEscalationLevel3
	})).Return(nil)

	result, err := evaluator.Evaluate(ctx, target, summary)

	assert.NoError(t, err)
	assert.Equal(t, domain.EvaluationEscalationUpdated, result)

	mockEscalationRepo.AssertExpectations(t)
	mockSender.AssertNumberOfCalls(t, "Send", 3)
}

func TestEvaluator_Evaluate_FullyPassedResolvesActive(t *testing.T) {
	evaluator, mockEscalationRepo, _, mockSender := setupTestEvaluator(t)
	ctx := context.Background()

	target := escalationTarget()
	summary := passedSummary(target.ID)

	active := domain.NewEscalation(target.ID, domain.EscalationLevelHigh, "2 consecutive failed scans", 4*time.Hour)

	mockEscalationRepo.On("GetActiveByTarget", ctx, target.ID).Return(active, nil)
	mockEscalationRepo.On("Update", ctx, mock.MatchedBy(func(esc *domain.Escalation) bool {
		return esc.Status == domain.EscalationStatusResolved && esc.ResolutionReason == "scan fully passed"
	})).Return(nil)
	mockSender.On("Send", ctx, mock.MatchedBy(func(req *domain.NotificationRequest) bool {
		return req.TemplateKey == domain.TemplateEscalationResolved && req.DelaySeconds == 0
	})).Return(nil)

	result, err := evaluator.Evaluate(ctx, target, summary)

	assert.NoError(t, err)
	assert.Equal(t, domain.EvaluationNoEscalationNeeded, result)

	mockEscalationRepo.AssertExpectations(t)
	// Уведомление о разрешении уходит в каналы уровня бывшей эскалации
	mockSender.AssertNumberOfCalls(t, "Send", 2)
}

func TestEvaluator_Evaluate_FullyPassedWithoutActive(t *testing.T) {
	evaluator, mockEscalationRepo, _, mockSender := setupTestEvaluator(t)
	ctx := context.Background()

	target := escalationTarget()
	summary := passedSummary(target.ID)

	mockEscalationRepo.On("GetActiveByTarget", ctx, target.ID).Return(nil, notFoundErr())

	result, err := evaluator.Evaluate(ctx, target, summary)

	assert.NoError(t, err)
	assert.Equal(t, domain.EvaluationNoEscalationNeeded, result)

	mockEscalationRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	mockSender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestEvaluator_Evaluate_NilArguments(t *testing.T) {
	evaluator, _, _, _ := setupTestEvaluator(t)
	ctx := context.Background()

	result, err := evaluator.Evaluate(ctx, nil, nil)

	assert.Error(t, err)
	assert.Empty(t, result)
	assert.True(t, errors.IsCode(err, errors.ErrValidation))
}

func TestEvaluator_Evaluate_SendErrorDoesNotFailEvaluation(t *testing.T) {
	evaluator, mockEscalationRepo, _, mockSender := setupTestEvaluator(t)
	ctx := context.Background()

	target := escalationTarget()
	summary := failedSummary(target.ID, "http_status")

	mockEscalationRepo.On("GetActiveByTarget", ctx, target.ID).Return(nil, notFoundErr())
	mockEscalationRepo.On("Create", ctx, mock.AnythingOfType("*domain.Escalation")).Return(nil)
	mockSender.On("Send", ctx, mock.AnythingOfType("*domain.NotificationRequest")).Return(assert.AnError)

	result, err := evaluator.Evaluate(ctx, target, summary)

	// Запись эскалации создана, ошибка доставки не откатывает результат
	assert.NoError(t, err)
	assert.Equal(t, domain.EvaluationEscalationCreated, result)

	mockEscalationRepo.AssertExpectations(t)
}

func TestEvaluator_ResolveEscalation_Success(t *testing.T) {
	evaluator, mockEscalationRepo, _, _ := setupTestEvaluator(t)
	ctx := context.Background()

	targetID := "550e8400-e29b-41d4-a716-446655440000"
	active := domain.NewEscalation(targetID, domain.EscalationLevelHigh, "2 consecutive failed scans", 4*time.Hour)

	mockEscalationRepo.On("GetActiveByTarget", ctx, targetID).Return(active, nil)
	mockEscalationRepo.On("Update", ctx, mock.MatchedBy(func(esc *domain.Escalation) bool {
		return esc.Status == domain.EscalationStatusResolved && esc.ResolutionReason == "target disabled"
	})).Return(nil)

	result, err := evaluator.ResolveEscalation(ctx, targetID, "target disabled")

	assert.NoError(t, err)
	assert.Equal(t, domain.EvaluationEscalationResolved, result)
	mockEscalationRepo.AssertExpectations(t)
}

func TestEvaluator_ResolveEscalation_NoActiveEscalation(t *testing.T) {
	evaluator, mockEscalationRepo, _, _ := setupTestEvaluator(t)
	ctx := context.Background()

	targetID := "550e8400-e29b-41d4-a716-446655440000"

	mockEscalationRepo.On("GetActiveByTarget", ctx, targetID).Return(nil, notFoundErr())

	result, err := evaluator.ResolveEscalation(ctx, targetID, "target disabled")

	// Отсутствие активной эскалации - успешный no-op
	assert.NoError(t, err)
	assert.Equal(t, domain.EvaluationNoEscalationNeeded, result)
	mockEscalationRepo.AssertExpectations(t)
}

func TestEvaluator_ListActive(t *testing.T) {
	evaluator, mockEscalationRepo, _, _ := setupTestEvaluator(t)
	ctx := context.Background()

	escalations := []*domain.Escalation{
		domain.NewEscalation("target-1", domain.EscalationLevelHigh, "2 consecutive failed scans", 4*time.Hour),
	}

	mockEscalationRepo.On("ListActive", ctx).Return(escalations, nil)

	listed, err := evaluator.ListActive(ctx)

	assert.NoError(t, err)
	assert.Len(t, listed, 1)
	mockEscalationRepo.AssertExpectations(t)
}

func TestEvaluator_Evaluate_UnknownFailedCheckIsNotCritical(t *testing.T) {
	evaluator, mockEscalationRepo, mockSummaryRepo, _ := setupTestEvaluator(t)
	ctx := context.Background()

	target := escalationTarget()
	// Проверка снята с регистрации после сканирования
	summary := failedSummary(target.ID, "removed_check")

	history := []*domain.ScanSummary{
		{ID: "scan-1", TargetID: target.ID, Status: domain.ScanStatusPassed},
	}

	mockSummaryRepo.On("GetRecent", ctx, target.ID, 10).Return(history, nil)
	mockSummaryRepo.On("CountFailuresSince", ctx, target.ID, mock.AnythingOfType("time.Time")).Return(1, nil)

	result, err := evaluator.Evaluate(ctx, target, summary)

	// Неизвестная проверка не считается критической, пороги не достигнуты
	assert.NoError(t, err)
	assert.Equal(t, domain.EvaluationNoEscalationNeeded, result)
	mockEscalationRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
