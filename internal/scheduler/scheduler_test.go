package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"SiteWatchPlatform/internal/domain"
	"SiteWatchPlatform/internal/mocks"
	"SiteWatchPlatform/internal/queue"
	"SiteWatchPlatform/pkg/errors"
	"SiteWatchPlatform/pkg/logger"
	"SiteWatchPlatform/pkg/metrics"
)

func newTestLogger(t *testing.T) logger.Logger {
	t.Helper()

	log, err := logger.NewLogger("test", "debug", "sitewatch")
	require.NoError(t, err)
	return log
}

func setupTestScheduler(t *testing.T) (*Scheduler, *mocks.MockTargetRepository, *mocks.MockLockRepository, *mocks.MockJobRepository) {
	t.Helper()

	mockTargetRepo := &mocks.MockTargetRepository{}
	mockLockRepo := &mocks.MockLockRepository{}
	mockJobRepo := &mocks.MockJobRepository{}

	log := newTestLogger(t)
	m := metrics.NewMetrics("sitewatch_test")
	queueService := queue.NewService(mockJobRepo, nil, log, m)
	scheduler := NewScheduler(mockTargetRepo, mockLockRepo, queueService, nil, log, m)

	return scheduler, mockTargetRepo, mockLockRepo, mockJobRepo
}

func dueTarget() *domain.Target {
	now := time.Now()

	return &domain.Target{
		ID:        "550e8400-e29b-41d4-a716-446655440000",
		Name:      "example",
		URL:       "https://example.com",
		Priority:  domain.JobPriorityHigh,
		Interval:  5 * time.Minute,
		NextRunAt: now.Add(-time.Minute),
		Active:    true,
		CreatedAt: now.Add(-time.Hour),
		UpdatedAt: now.Add(-time.Hour),
	}
}

func grantedLock(targetID string) *domain.LockInfo {
	now := time.Now()

	return &domain.LockInfo{
		TargetID:  targetID,
		OwnerID:   "scheduler-test",
		LockedAt:  now,
		ExpiresAt: now.Add(5 * time.Minute),
	}
}

func TestScheduler_RunSchedulingPass_Success(t *testing.T) {
	scheduler, mockTargetRepo, mockLockRepo, mockJobRepo := setupTestScheduler(t)
	ctx := context.Background()

	// Тестовые данные
	target := dueTarget()

	// Настраиваем моки
	mockTargetRepo.On("FindDue", ctx, mock.AnythingOfType("time.Time"), 100).Return([]*domain.Target{target}, nil)
	mockLockRepo.On("TryLock", ctx, target.ID, mock.AnythingOfType("string"), 5*time.Minute).Return(grantedLock(target.ID), nil)
	mockLockRepo.On("ReleaseLock", ctx, target.ID, mock.AnythingOfType("string")).Return(nil)
	mockTargetRepo.On("GetByID", ctx, target.ID).Return(target, nil)
	mockJobRepo.On("HasUnfinishedScan", ctx, target.ID).Return(false, nil)
	mockJobRepo.On("Create", ctx, mock.MatchedBy(func(job *domain.Job) bool {
		targetID, ok := job.TargetID()
		return ok && targetID == target.ID && job.Priority == domain.JobPriorityHigh
	})).Return(nil)
	mockTargetRepo.On("AdvanceNextRun", ctx, target.ID).Return(nil)

	// Выполняем операцию
	stats, err := scheduler.RunSchedulingPass(ctx)

	// Проверяем результат
	assert.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.Due)
	assert.Equal(t, 1, stats.Scheduled)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, 0, stats.Failed)

	// Проверяем вызовы моков
	mockTargetRepo.AssertExpectations(t)
	mockLockRepo.AssertExpectations(t)
	mockJobRepo.AssertExpectations(t)
}

func TestScheduler_RunSchedulingPass_NoDueTargets(t *testing.T) {
	scheduler, mockTargetRepo, mockLockRepo, _ := setupTestScheduler(t)
	ctx := context.Background()

	mockTargetRepo.On("FindDue", ctx, mock.AnythingOfType("time.Time"), 100).Return([]*domain.Target{}, nil)

	stats, err := scheduler.RunSchedulingPass(ctx)

	assert.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 0, stats.Due)
	assert.Equal(t, 0, stats.Scheduled)

	mockTargetRepo.AssertExpectations(t)
	mockLockRepo.AssertNotCalled(t, "TryLock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestScheduler_RunSchedulingPass_FindDueError(t *testing.T) {
	scheduler, mockTargetRepo, _, _ := setupTestScheduler(t)
	ctx := context.Background()

	mockTargetRepo.On("FindDue", ctx, mock.AnythingOfType("time.Time"), 100).Return(nil, assert.AnError)

	stats, err := scheduler.RunSchedulingPass(ctx)

	assert.Error(t, err)
	assert.Nil(t, stats)
	assert.True(t, errors.IsCode(err, errors.ErrInternal))
	mockTargetRepo.AssertExpectations(t)
}

func TestScheduler_RunSchedulingPass_LockConflictSkipsTarget(t *testing.T) {
	scheduler, mockTargetRepo, mockLockRepo, mockJobRepo := setupTestScheduler(t)
	ctx := context.Background()

	target := dueTarget()

	mockTargetRepo.On("FindDue", ctx, mock.AnythingOfType("time.Time"), 100).Return([]*domain.Target{target}, nil)
	// Цель уже захвачена другим экземпляром планировщика
	mockLockRepo.On("TryLock", ctx, target.ID, mock.AnythingOfType("string"), 5*time.Minute).
		Return(nil, errors.New(errors.ErrConflict, "lock already acquired"))

	stats, err := scheduler.RunSchedulingPass(ctx)

	// Проигранная гонка за блокировку - не ошибка, цель просто пропускается
	assert.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.Due)
	assert.Equal(t, 0, stats.Scheduled)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.Failed)

	mockLockRepo.AssertExpectations(t)
	mockTargetRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	mockJobRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestScheduler_RunSchedulingPass_NoLongerDueAfterRefetch(t *testing.T) {
	scheduler, mockTargetRepo, mockLockRepo, mockJobRepo := setupTestScheduler(t)
	ctx := context.Background()

	target := dueTarget()

	// Под блокировкой выясняется, что расписание уже сдвинуто
	refreshed := *target
	refreshed.NextRunAt = time.Now().Add(10 * time.Minute)

	mockTargetRepo.On("FindDue", ctx, mock.AnythingOfType("time.Time"), 100).Return([]*domain.Target{target}, nil)
	mockLockRepo.On("TryLock", ctx, target.ID, mock.AnythingOfType("string"), 5*time.Minute).Return(grantedLock(target.ID), nil)
	mockLockRepo.On("ReleaseLock", ctx, target.ID, mock.AnythingOfType("string")).Return(nil)
	mockTargetRepo.On("GetByID", ctx, target.ID).Return(&refreshed, nil)

	stats, err := scheduler.RunSchedulingPass(ctx)

	assert.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.Skipped)

	mockTargetRepo.AssertExpectations(t)
	mockJobRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockTargetRepo.AssertNotCalled(t, "AdvanceNextRun", mock.Anything, mock.Anything)
}

func TestScheduler_RunSchedulingPass_UnfinishedScanSkipsTarget(t *testing.T) {
	scheduler, mockTargetRepo, mockLockRepo, mockJobRepo := setupTestScheduler(t)
	ctx := context.Background()

	target := dueTarget()

	mockTargetRepo.On("FindDue", ctx, mock.AnythingOfType("time.Time"), 100).Return([]*domain.Target{target}, nil)
	mockLockRepo.On("TryLock", ctx, target.ID, mock.AnythingOfType("string"), 5*time.Minute).Return(grantedLock(target.ID), nil)
	mockLockRepo.On("ReleaseLock", ctx, target.ID, mock.AnythingOfType("string")).Return(nil)
	mockTargetRepo.On("GetByID", ctx, target.ID).Return(target, nil)
	// Предыдущее сканирование цели еще не закончено
	mockJobRepo.On("HasUnfinishedScan", ctx, target.ID).Return(true, nil)

	stats, err := scheduler.RunSchedulingPass(ctx)

	assert.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.Skipped)

	// Пропуск без постановки задания не должен сдвигать расписание
	mockJobRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockTargetRepo.AssertNotCalled(t, "AdvanceNextRun", mock.Anything, mock.Anything)
}

func TestScheduler_RunSchedulingPass_AdvanceError(t *testing.T) {
	scheduler, mockTargetRepo, mockLockRepo, mockJobRepo := setupTestScheduler(t)
	ctx := context.Background()

	target := dueTarget()

	mockTargetRepo.On("FindDue", ctx, mock.AnythingOfType("time.Time"), 100).Return([]*domain.Target{target}, nil)
	mockLockRepo.On("TryLock", ctx, target.ID, mock.AnythingOfType("string"), 5*time.Minute).Return(grantedLock(target.ID), nil)
	mockLockRepo.On("ReleaseLock", ctx, target.ID, mock.AnythingOfType("string")).Return(nil)
	mockTargetRepo.On("GetByID", ctx, target.ID).Return(target, nil)
	mockJobRepo.On("HasUnfinishedScan", ctx, target.ID).Return(false, nil)
	mockJobRepo.On("Create", ctx, mock.AnythingOfType("*domain.Job")).Return(nil)
	mockTargetRepo.On("AdvanceNextRun", ctx, target.ID).Return(assert.AnError)

	stats, err := scheduler.RunSchedulingPass(ctx)

	// Проход продолжается, цель учитывается как неудавшаяся
	assert.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 0, stats.Scheduled)
	assert.Equal(t, 1, stats.Failed)

	mockTargetRepo.AssertExpectations(t)
}

func TestScheduler_RunSchedulingPass_MixedBatch(t *testing.T) {
	scheduler, mockTargetRepo, mockLockRepo, mockJobRepo := setupTestScheduler(t)
	ctx := context.Background()

	first := dueTarget()
	second := dueTarget()
	second.ID = "550e8400-e29b-41d4-a716-446655440001"
	second.URL = "https://second.example.com"

	mockTargetRepo.On("FindDue", ctx, mock.AnythingOfType("time.Time"), 100).Return([]*domain.Target{first, second}, nil)

	// Первая цель планируется, вторая захвачена другим экземпляром
	mockLockRepo.On("TryLock", ctx, first.ID, mock.AnythingOfType("string"), 5*time.Minute).Return(grantedLock(first.ID), nil)
	mockLockRepo.On("ReleaseLock", ctx, first.ID, mock.AnythingOfType("string")).Return(nil)
	mockTargetRepo.On("GetByID", ctx, first.ID).Return(first, nil)
	mockJobRepo.On("HasUnfinishedScan", ctx, first.ID).Return(false, nil)
	mockJobRepo.On("Create", ctx, mock.AnythingOfType("*domain.Job")).Return(nil)
	mockTargetRepo.On("AdvanceNextRun", ctx, first.ID).Return(nil)

	mockLockRepo.On("TryLock", ctx, second.ID, mock.AnythingOfType("string"), 5*time.Minute).
		Return(nil, errors.New(errors.ErrConflict, "lock already acquired"))

	stats, err := scheduler.RunSchedulingPass(ctx)

	assert.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.Due)
	assert.Equal(t, 1, stats.Scheduled)
	assert.Equal(t, 1, stats.Skipped)

	mockTargetRepo.AssertExpectations(t)
	mockLockRepo.AssertExpectations(t)
	mockJobRepo.AssertExpectations(t)
}

func TestScheduler_FindDueTargets(t *testing.T) {
	scheduler, mockTargetRepo, _, _ := setupTestScheduler(t)
	ctx := context.Background()
	now := time.Now()

	targets := []*domain.Target{dueTarget()}

	mockTargetRepo.On("FindDue", ctx, now, 100).Return(targets, nil)

	found, err := scheduler.FindDueTargets(ctx, now)

	assert.NoError(t, err)
	assert.Len(t, found, 1)
	mockTargetRepo.AssertExpectations(t)
}

func TestScheduler_StartStop(t *testing.T) {
	scheduler, _, _, _ := setupTestScheduler(t)

	err := scheduler.Start()
	require.NoError(t, err)

	scheduler.Stop()
}
