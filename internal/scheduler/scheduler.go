package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"SiteWatchPlatform/internal/domain"
	"SiteWatchPlatform/internal/queue"
	"SiteWatchPlatform/internal/repository"
	"SiteWatchPlatform/pkg/errors"
	"SiteWatchPlatform/pkg/logger"
	"SiteWatchPlatform/pkg/metrics"
)

// Config конфигурация планировщика
type Config struct {
	// Интервал между проходами планирования
	PassInterval time.Duration `json:"pass_interval"`

	// TTL распределенной блокировки цели
	LockTTL time.Duration `json:"lock_ttl"`

	// Максимум готовых целей, обрабатываемых за один проход
	BatchLimit int `json:"batch_limit"`
}

// DefaultConfig возвращает конфигурацию планировщика по умолчанию
func DefaultConfig() *Config {
	return &Config{
		PassInterval: time.Minute,
		LockTTL:      5 * time.Minute,
		BatchLimit:   100,
	}
}

// PassStats итоги одного прохода планирования
type PassStats struct {
	Due       int `json:"due"`
	Scheduled int `json:"scheduled"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Scheduler решает, какие цели готовы к сканированию, и ставит задания в очередь
type Scheduler struct {
	targetRepo repository.TargetRepository
	lockRepo   repository.LockRepository
	queue      *queue.Service
	config     *Config
	cron       *cron.Cron
	logger     logger.Logger
	metrics    *metrics.Metrics
	workerID   string
}

// NewScheduler создает новый экземпляр Scheduler
func NewScheduler(
	targetRepo repository.TargetRepository,
	lockRepo repository.LockRepository,
	queueService *queue.Service,
	config *Config,
	log logger.Logger,
	m *metrics.Metrics,
) *Scheduler {
	if config == nil {
		config = DefaultConfig()
	}

	return &Scheduler{
		targetRepo: targetRepo,
		lockRepo:   lockRepo,
		queue:      queueService,
		config:     config,
		cron:       cron.New(),
		logger:     log,
		metrics:    m,
		workerID:   fmt.Sprintf("scheduler-%s", uuid.New().String()[:8]),
	}
}

// FindDueTargets возвращает активные цели с наступившим временем сканирования
func (s *Scheduler) FindDueTargets(ctx context.Context, now time.Time) ([]*domain.Target, error) {
	targets, err := s.targetRepo.FindDue(ctx, now, s.config.BatchLimit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to find due targets").
			WithContext(ctx)
	}

	return targets, nil
}

// RunSchedulingPass обрабатывает все готовые цели: на каждую ставится одно задание
// сканирования, расписание цели сдвигается на ее интервал
func (s *Scheduler) RunSchedulingPass(ctx context.Context) (*PassStats, error) {
	now := time.Now()

	targets, err := s.FindDueTargets(ctx, now)
	if err != nil {
		return nil, err
	}

	s.metrics.IncSchedulingPass()
	stats := &PassStats{Due: len(targets)}

	if len(targets) == 0 {
		return stats, nil
	}

	s.logger.Debug("Scheduling pass started",
		logger.Int("due_targets", len(targets)),
		logger.String("worker_id", s.workerID),
	)

	// Каждая цель обрабатывается независимо, без общей блокировки на весь проход
	for _, target := range targets {
		scheduled, err := s.scheduleTarget(ctx, target, now)
		if err != nil {
			stats.Failed++
			s.logger.Error("Failed to schedule target",
				logger.String("target_id", target.ID),
				logger.String("url", target.URL),
				logger.Error(err),
			)
			continue
		}

		if scheduled {
			stats.Scheduled++
		} else {
			stats.Skipped++
		}
	}

	s.metrics.AddTargetsScheduled(stats.Scheduled)

	s.logger.Info("Scheduling pass finished",
		logger.Int("due", stats.Due),
		logger.Int("scheduled", stats.Scheduled),
		logger.Int("skipped", stats.Skipped),
		logger.Int("failed", stats.Failed),
		logger.String("worker_id", s.workerID),
	)

	return stats, nil
}

// scheduleTarget ставит задание сканирования для одной цели.
// Возвращает false без ошибки, если цель пропущена.
func (s *Scheduler) scheduleTarget(ctx context.Context, target *domain.Target, now time.Time) (bool, error) {
	// 1. Распределенная блокировка цели исключает двойное планирование
	// параллельными экземплярами планировщика
	_, err := s.lockRepo.TryLock(ctx, target.ID, s.workerID, s.config.LockTTL)
	if err != nil {
		if errors.IsConflict(err) {
			s.logger.Debug("Target already locked by another scheduler",
				logger.String("target_id", target.ID),
				logger.String("worker_id", s.workerID),
			)
			return false, nil
		}
		return false, err
	}

	defer func() {
		if releaseErr := s.lockRepo.ReleaseLock(ctx, target.ID, s.workerID); releaseErr != nil {
			s.logger.Error("Failed to release target lock",
				logger.String("target_id", target.ID),
				logger.String("worker_id", s.workerID),
				logger.Error(releaseErr),
			)
		}
	}()

	// 2. Перечитываем цель под блокировкой: другой планировщик мог уже
	// сдвинуть ее расписание
	current, err := s.targetRepo.GetByID(ctx, target.ID)
	if err != nil {
		return false, err
	}

	if !current.IsDue(now) {
		s.logger.Debug("Target no longer due, skipping",
			logger.String("target_id", target.ID),
			logger.String("next_run_at", current.NextRunAt.Format(time.RFC3339)),
		)
		return false, nil
	}

	// 3. Незавершенное сканирование цели - второе задание не ставим
	unfinished, err := s.queue.HasUnfinishedScan(ctx, target.ID)
	if err != nil {
		return false, err
	}

	if unfinished {
		s.logger.Debug("Target already has an unfinished scan job, skipping",
			logger.String("target_id", target.ID),
		)
		return false, nil
	}

	// 4. Ставим задание с приоритетом цели
	payload := map[string]interface{}{"target_id": target.ID}
	job, err := s.queue.Enqueue(ctx, domain.JobTypeScan, payload, current.Priority, 0)
	if err != nil {
		return false, err
	}

	// 5. Сдвигаем расписание сразу после постановки задания,
	// независимо от будущего исхода сканирования
	if err := s.targetRepo.AdvanceNextRun(ctx, target.ID); err != nil {
		return false, errors.Wrap(err, errors.ErrInternal, "failed to advance target schedule").
			WithDetails(fmt.Sprintf("target_id: %s, job_id: %s", target.ID, job.ID)).
			WithContext(ctx)
	}

	s.logger.Info("Target scheduled",
		logger.String("target_id", target.ID),
		logger.String("url", current.URL),
		logger.String("job_id", job.ID),
		logger.String("priority", current.Priority.String()),
	)

	return true, nil
}

// Start регистрирует периодический проход планирования и запускает cron
func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.config.PassInterval)

	_, err := s.cron.AddFunc(spec, func() {
		ctx := context.Background()
		if _, err := s.RunSchedulingPass(ctx); err != nil {
			s.logger.Error("Scheduling pass failed",
				logger.String("worker_id", s.workerID),
				logger.Error(err),
			)
		}
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to register scheduling cron job").
			WithDetails(fmt.Sprintf("spec: %s", spec))
	}

	s.cron.Start()

	s.logger.Info("Scheduler started",
		logger.String("worker_id", s.workerID),
		logger.Duration("pass_interval", s.config.PassInterval),
		logger.Duration("lock_ttl", s.config.LockTTL),
	)

	return nil
}

// Stop останавливает cron и дожидается завершения текущего прохода
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
		s.logger.Info("Scheduler stopped gracefully",
			logger.String("worker_id", s.workerID),
		)
	case <-time.After(10 * time.Second):
		s.logger.Warn("Scheduler stop timeout",
			logger.String("worker_id", s.workerID),
		)
	}
}
