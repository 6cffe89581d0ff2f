package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"SiteWatchPlatform/internal/domain"
)

// MockJobRepository - универсальный мок для JobRepository
type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) Create(ctx context.Context, job *domain.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockJobRepository) Claim(ctx context.Context, workerID string, now time.Time) (*domain.Job, error) {
	args := m.Called(ctx, workerID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockJobRepository) MarkCompleted(ctx context.Context, jobID, workerID string) error {
	args := m.Called(ctx, jobID, workerID)
	return args.Error(0)
}

func (m *MockJobRepository) ScheduleRetry(ctx context.Context, jobID, workerID string, executeAt time.Time, lastError string) error {
	args := m.Called(ctx, jobID, workerID, executeAt, lastError)
	return args.Error(0)
}

func (m *MockJobRepository) MarkDeadLetter(ctx context.Context, jobID, workerID string, lastError string) error {
	args := m.Called(ctx, jobID, workerID, lastError)
	return args.Error(0)
}

func (m *MockJobRepository) MarkFailed(ctx context.Context, jobID, workerID string, lastError string) error {
	args := m.Called(ctx, jobID, workerID, lastError)
	return args.Error(0)
}

func (m *MockJobRepository) Cancel(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *MockJobRepository) ReleaseStale(ctx context.Context, olderThan time.Time) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Int(0), args.Error(1)
}

func (m *MockJobRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}

func (m *MockJobRepository) ListByStatus(ctx context.Context, status domain.JobStatus, limit, offset int) ([]*domain.Job, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Job), args.Error(1)
}

func (m *MockJobRepository) CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.JobStatus]int), args.Error(1)
}

func (m *MockJobRepository) HasUnfinishedScan(ctx context.Context, targetID string) (bool, error) {
	args := m.Called(ctx, targetID)
	return args.Bool(0), args.Error(1)
}

// MockTargetRepository - универсальный мок для TargetRepository
type MockTargetRepository struct {
	mock.Mock
}

func (m *MockTargetRepository) Create(ctx context.Context, target *domain.Target) error {
	args := m.Called(ctx, target)
	return args.Error(0)
}

func (m *MockTargetRepository) GetByID(ctx context.Context, id string) (*domain.Target, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Target), args.Error(1)
}

func (m *MockTargetRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.Target, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Target), args.Error(1)
}

func (m *MockTargetRepository) AdvanceNextRun(ctx context.Context, targetID string) error {
	args := m.Called(ctx, targetID)
	return args.Error(0)
}

func (m *MockTargetRepository) List(ctx context.Context, limit, offset int) ([]*domain.Target, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Target), args.Error(1)
}

// MockSummaryRepository - универсальный мок для SummaryRepository
type MockSummaryRepository struct {
	mock.Mock
}

func (m *MockSummaryRepository) Save(ctx context.Context, summary *domain.ScanSummary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

func (m *MockSummaryRepository) GetRecent(ctx context.Context, targetID string, limit int) ([]*domain.ScanSummary, error) {
	args := m.Called(ctx, targetID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScanSummary), args.Error(1)
}

func (m *MockSummaryRepository) CountFailuresSince(ctx context.Context, targetID string, since time.Time) (int, error) {
	args := m.Called(ctx, targetID, since)
	return args.Int(0), args.Error(1)
}

// MockEscalationRepository - универсальный мок для EscalationRepository
type MockEscalationRepository struct {
	mock.Mock
}

func (m *MockEscalationRepository) Create(ctx context.Context, escalation *domain.Escalation) error {
	args := m.Called(ctx, escalation)
	return args.Error(0)
}

func (m *MockEscalationRepository) GetActiveByTarget(ctx context.Context, targetID string) (*domain.Escalation, error) {
	args := m.Called(ctx, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Escalation), args.Error(1)
}

func (m *MockEscalationRepository) Update(ctx context.Context, escalation *domain.Escalation) error {
	args := m.Called(ctx, escalation)
	return args.Error(0)
}

func (m *MockEscalationRepository) ListActive(ctx context.Context) ([]*domain.Escalation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Escalation), args.Error(1)
}

// MockLockRepository - универсальный мок для LockRepository
type MockLockRepository struct {
	mock.Mock
}

func (m *MockLockRepository) TryLock(ctx context.Context, targetID, ownerID string, ttl time.Duration) (*domain.LockInfo, error) {
	args := m.Called(ctx, targetID, ownerID, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LockInfo), args.Error(1)
}

func (m *MockLockRepository) ReleaseLock(ctx context.Context, targetID, ownerID string) error {
	args := m.Called(ctx, targetID, ownerID)
	return args.Error(0)
}

func (m *MockLockRepository) IsLocked(ctx context.Context, targetID string) (bool, error) {
	args := m.Called(ctx, targetID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLockRepository) GetLockInfo(ctx context.Context, targetID string) (*domain.LockInfo, error) {
	args := m.Called(ctx, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LockInfo), args.Error(1)
}
