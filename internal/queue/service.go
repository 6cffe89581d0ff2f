package queue

import (
	"context"
	"fmt"
	"math"
	"time"

	"SiteWatchPlatform/internal/domain"
	"SiteWatchPlatform/internal/repository"
	"SiteWatchPlatform/pkg/errors"
	"SiteWatchPlatform/pkg/logger"
	"SiteWatchPlatform/pkg/metrics"
)

// Config конфигурация очереди заданий
type Config struct {
	// Базовая задержка перед повторной постановкой неудавшегося задания
	RetryDelay time.Duration `json:"retry_delay"`

	// Множитель задержки: 1.0 дает фиксированную задержку, больше - экспоненциальную
	RetryMultiplier float64 `json:"retry_multiplier"`

	// Верхняя граница задержки повторов
	MaxRetryDelay time.Duration `json:"max_retry_delay"`

	// Количество попыток по умолчанию для новых заданий
	DefaultMaxRetries int `json:"default_max_retries"`

	// Переводить задания с исчерпанными попытками в dead_letter вместо failed
	DeadLetterEnabled bool `json:"dead_letter_enabled"`
}

// DefaultConfig возвращает конфигурацию очереди по умолчанию
func DefaultConfig() *Config {
	return &Config{
		RetryDelay:        30 * time.Second,
		RetryMultiplier:   2.0,
		MaxRetryDelay:     time.Hour,
		DefaultMaxRetries: 3,
		DeadLetterEnabled: true,
	}
}

// Service предоставляет бизнес-логику для работы с очередью заданий
type Service struct {
	repo    repository.JobRepository
	config  *Config
	logger  logger.Logger
	metrics *metrics.Metrics
}

// NewService создает новый экземпляр Service
func NewService(repo repository.JobRepository, config *Config, log logger.Logger, m *metrics.Metrics) *Service {
	if config == nil {
		config = DefaultConfig()
	}

	return &Service{
		repo:    repo,
		config:  config,
		logger:  log,
		metrics: m,
	}
}

// Enqueue ставит новое задание в очередь
func (s *Service) Enqueue(ctx context.Context, jobType domain.JobType, payload map[string]interface{}, priority domain.JobPriority, delay time.Duration) (*domain.Job, error) {
	if !domain.IsValidJobPriority(priority) {
		return nil, errors.New(errors.ErrValidation, "invalid job priority").
			WithDetails(fmt.Sprintf("priority: %d", priority)).
			WithContext(ctx)
	}

	job := domain.NewJob(jobType, payload, priority, s.config.DefaultMaxRetries, delay)

	if err := s.repo.Create(ctx, job); err != nil {
		s.logger.Error("Failed to enqueue job",
			logger.String("job_id", job.ID),
			logger.String("type", string(jobType)),
			logger.Error(err),
		)
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to enqueue job").
			WithDetails(fmt.Sprintf("job_id: %s, type: %s", job.ID, jobType)).
			WithContext(ctx)
	}

	s.metrics.IncJobEnqueued(string(jobType), priority.String())

	s.logger.Info("Job enqueued",
		logger.String("job_id", job.ID),
		logger.String("type", string(jobType)),
		logger.String("priority", priority.String()),
		logger.String("execute_at", job.ExecuteAt.Format(time.RFC3339)),
	)

	return job, nil
}

// EnqueueRequest описывает одно задание для пакетной постановки
type EnqueueRequest struct {
	Type     domain.JobType         `json:"type"`
	Payload  map[string]interface{} `json:"payload"`
	Priority domain.JobPriority     `json:"priority"`
	Delay    time.Duration          `json:"delay"`
}

// EnqueueResult результат постановки одного задания из пакета
type EnqueueResult struct {
	JobID string `json:"job_id,omitempty"`
	Err   error  `json:"-"`
}

// EnqueueBulk ставит пакет заданий в очередь, ошибка одного задания не прерывает остальные
func (s *Service) EnqueueBulk(ctx context.Context, requests []EnqueueRequest) []EnqueueResult {
	results := make([]EnqueueResult, len(requests))
	succeeded := 0

	for i, req := range requests {
		job, err := s.Enqueue(ctx, req.Type, req.Payload, req.Priority, req.Delay)
		if err != nil {
			results[i] = EnqueueResult{Err: err}
			continue
		}
		results[i] = EnqueueResult{JobID: job.ID}
		succeeded++
	}

	s.logger.Info("Bulk enqueue finished",
		logger.Int("requested", len(requests)),
		logger.Int("succeeded", succeeded),
		logger.Int("failed", len(requests)-succeeded),
	)

	return results
}

// Claim захватывает самое приоритетное готовое задание для воркера.
// Пустая очередь возвращает ошибку с кодом NOT_FOUND, воркер просто опрашивает снова.
func (s *Service) Claim(ctx context.Context, workerID string) (*domain.Job, error) {
	job, err := s.repo.Claim(ctx, workerID, time.Now())
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, err
		}
		s.logger.Error("Failed to claim job",
			logger.String("worker_id", workerID),
			logger.Error(err),
		)
		return nil, err
	}

	s.metrics.IncJobClaimed(string(job.Type))

	s.logger.Debug("Job claimed",
		logger.String("job_id", job.ID),
		logger.String("type", string(job.Type)),
		logger.String("priority", job.Priority.String()),
		logger.String("worker_id", workerID),
		logger.Int("retry_count", job.RetryCount),
	)

	return job, nil
}

// Complete переводит захваченное задание в completed
func (s *Service) Complete(ctx context.Context, job *domain.Job) error {
	if err := s.repo.MarkCompleted(ctx, job.ID, job.WorkerID); err != nil {
		s.logger.Error("Failed to complete job",
			logger.String("job_id", job.ID),
			logger.String("worker_id", job.WorkerID),
			logger.Error(err),
		)
		return err
	}

	duration := s.jobDuration(job)
	s.metrics.ObserveJob(string(job.Type), "completed", duration)

	s.logger.Info("Job completed",
		logger.String("job_id", job.ID),
		logger.String("type", string(job.Type)),
		logger.String("worker_id", job.WorkerID),
		logger.Duration("duration", duration),
	)

	return nil
}

// Fail обрабатывает неудачу задания: повтор с задержкой, dead_letter или failed
func (s *Service) Fail(ctx context.Context, job *domain.Job, cause error) error {
	lastError := "unknown error"
	if cause != nil {
		lastError = cause.Error()
	}

	// Невалидное задание или пропавшая цель не станут лучше от повтора
	permanent := errors.IsCode(cause, errors.ErrValidation) || errors.IsNotFound(cause)

	// Остались попытки - возвращаем задание в очередь с задержкой
	if !permanent && job.CanRetry() {
		delay := s.retryDelay(job.RetryCount)
		executeAt := time.Now().Add(delay)

		if err := s.repo.ScheduleRetry(ctx, job.ID, job.WorkerID, executeAt, lastError); err != nil {
			s.logger.Error("Failed to schedule job retry",
				logger.String("job_id", job.ID),
				logger.String("worker_id", job.WorkerID),
				logger.Error(err),
			)
			return err
		}

		s.metrics.IncJobRetry(string(job.Type))
		s.metrics.ObserveJob(string(job.Type), "retried", s.jobDuration(job))

		s.logger.Info("Job scheduled for retry",
			logger.String("job_id", job.ID),
			logger.String("type", string(job.Type)),
			logger.Int("retry_count", job.RetryCount+1),
			logger.Int("max_retries", job.MaxRetries),
			logger.Duration("retry_delay", delay),
			logger.String("execute_at", executeAt.Format(time.RFC3339)),
			logger.String("last_error", lastError),
		)

		return nil
	}

	// Попытки исчерпаны - dead_letter либо failed в зависимости от конфигурации
	if s.config.DeadLetterEnabled {
		if err := s.repo.MarkDeadLetter(ctx, job.ID, job.WorkerID, lastError); err != nil {
			s.logger.Error("Failed to dead-letter job",
				logger.String("job_id", job.ID),
				logger.String("worker_id", job.WorkerID),
				logger.Error(err),
			)
			return err
		}

		s.metrics.IncDeadLettered(string(job.Type))
		s.metrics.ObserveJob(string(job.Type), "dead_letter", s.jobDuration(job))

		s.logger.Warn("Job moved to dead letter queue",
			logger.String("job_id", job.ID),
			logger.String("type", string(job.Type)),
			logger.Int("retry_count", job.RetryCount),
			logger.String("last_error", lastError),
		)

		return nil
	}

	if err := s.repo.MarkFailed(ctx, job.ID, job.WorkerID, lastError); err != nil {
		s.logger.Error("Failed to mark job as failed",
			logger.String("job_id", job.ID),
			logger.String("worker_id", job.WorkerID),
			logger.Error(err),
		)
		return err
	}

	s.metrics.ObserveJob(string(job.Type), "failed", s.jobDuration(job))

	s.logger.Warn("Job marked as failed",
		logger.String("job_id", job.ID),
		logger.String("type", string(job.Type)),
		logger.Int("retry_count", job.RetryCount),
		logger.String("last_error", lastError),
	)

	return nil
}

// Cancel отменяет задание, допустимо только в статусе pending
func (s *Service) Cancel(ctx context.Context, jobID string) error {
	if err := s.repo.Cancel(ctx, jobID); err != nil {
		s.logger.Error("Failed to cancel job",
			logger.String("job_id", jobID),
			logger.Error(err),
		)
		return err
	}

	s.logger.Info("Job cancelled",
		logger.String("job_id", jobID),
	)

	return nil
}

// ReleaseStale возвращает зависшие в processing задания обратно в очередь.
// Защита от воркеров, упавших посреди выполнения задания.
func (s *Service) ReleaseStale(ctx context.Context, jobTimeout time.Duration) (int, error) {
	olderThan := time.Now().Add(-jobTimeout)

	released, err := s.repo.ReleaseStale(ctx, olderThan)
	if err != nil {
		s.logger.Error("Failed to release stale jobs",
			logger.Error(err),
		)
		return 0, err
	}

	if released > 0 {
		s.metrics.AddStaleReleased(released)
		s.logger.Warn("Released stale jobs back to queue",
			logger.Int("released", released),
			logger.Duration("job_timeout", jobTimeout),
		)
	}

	return released, nil
}

// CleanupTerminal удаляет задания в конечных статусах старше окна хранения
func (s *Service) CleanupTerminal(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)

	deleted, err := s.repo.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("Failed to cleanup terminal jobs",
			logger.Error(err),
		)
		return 0, err
	}

	if deleted > 0 {
		s.logger.Info("Cleaned up terminal jobs",
			logger.Int("deleted", deleted),
			logger.Duration("retention", retention),
		)
	}

	return deleted, nil
}

// GetJob возвращает задание по ID
func (s *Service) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	return s.repo.GetByID(ctx, jobID)
}

// HasUnfinishedScan проверяет наличие pending или processing задания сканирования цели
func (s *Service) HasUnfinishedScan(ctx context.Context, targetID string) (bool, error) {
	return s.repo.HasUnfinishedScan(ctx, targetID)
}

// ListDeadLetter возвращает задания из dead letter очереди для оператора
func (s *Service) ListDeadLetter(ctx context.Context, limit, offset int) ([]*domain.Job, error) {
	jobs, err := s.repo.ListByStatus(ctx, domain.JobStatusDeadLetter, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list dead letter jobs",
			logger.Error(err),
		)
		return nil, err
	}

	return jobs, nil
}

// Stats возвращает статистику очереди и обновляет gauge метрики глубины
func (s *Service) Stats(ctx context.Context) (*domain.QueueStats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("Failed to collect queue stats",
			logger.Error(err),
		)
		return nil, err
	}

	stats := &domain.QueueStats{
		ByStatus: counts,
	}
	for status, count := range counts {
		stats.Total += count
		s.metrics.SetQueueDepth(string(status), float64(count))
	}

	return stats, nil
}

// retryDelay вычисляет задержку перед повтором по номеру попытки
func (s *Service) retryDelay(retryCount int) time.Duration {
	delay := s.config.RetryDelay

	multiplier := s.config.RetryMultiplier
	if multiplier < 1.0 {
		multiplier = 1.0
	}
	if multiplier > 1.0 && retryCount > 0 {
		delay = time.Duration(float64(delay) * math.Pow(multiplier, float64(retryCount)))
	}

	if s.config.MaxRetryDelay > 0 && delay > s.config.MaxRetryDelay {
		delay = s.config.MaxRetryDelay
	}

	return delay
}

// jobDuration возвращает длительность выполнения задания
func (s *Service) jobDuration(job *domain.Job) time.Duration {
	if job.StartedAt == nil {
		return 0
	}
	return time.Since(*job.StartedAt)
}
