package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"SiteWatchPlatform/internal/domain"
	"SiteWatchPlatform/internal/engine"
	"SiteWatchPlatform/internal/escalation"
	"SiteWatchPlatform/internal/queue"
	"SiteWatchPlatform/internal/repository"
	"SiteWatchPlatform/pkg/errors"
	"SiteWatchPlatform/pkg/logger"
)

// Config конфигурация пула воркеров
type Config struct {
	// Количество воркеров
	WorkerCount int `json:"worker_count"`

	// Пауза между опросами пустой очереди
	ClaimInterval time.Duration `json:"claim_interval"`

	// Graceful shutdown таймаут
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// DefaultConfig возвращает конфигурацию пула по умолчанию
func DefaultConfig() *Config {
	return &Config{
		WorkerCount:     5,
		ClaimInterval:   2 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Validate проверяет конфигурацию пула
func (c *Config) Validate() error {
	if c.WorkerCount <= 0 {
		return fmt.Errorf("worker count must be positive")
	}
	if c.ClaimInterval <= 0 {
		return fmt.Errorf("claim interval must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

// PoolStats статистика пула
type PoolStats struct {
	JobsClaimed   int64 `json:"jobs_claimed"`
	JobsCompleted int64 `json:"jobs_completed"`
	JobsFailed    int64 `json:"jobs_failed"`
	ActiveWorkers int64 `json:"active_workers"`
}

// Pool пул воркеров, разбирающих очередь заданий сканирования.
// Координация между воркерами идет только через атомарный захват задания в БД,
// пул не хранит разделяемого состояния заданий в памяти.
type Pool struct {
	queue       *queue.Service
	targetRepo  repository.TargetRepository
	summaryRepo repository.SummaryRepository
	engine      *engine.Engine
	evaluator   *escalation.Evaluator
	config      *Config
	logger      logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	stats  PoolStats

	shutdownInProgress int32
}

// NewPool создает новый пул воркеров
func NewPool(
	queueService *queue.Service,
	targetRepo repository.TargetRepository,
	summaryRepo repository.SummaryRepository,
	eng *engine.Engine,
	evaluator *escalation.Evaluator,
	config *Config,
	log logger.Logger,
) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Pool{
		queue:       queueService,
		targetRepo:  targetRepo,
		summaryRepo: summaryRepo,
		engine:      eng,
		evaluator:   evaluator,
		config:      config,
		logger:      log,
	}, nil
}

// Start запускает воркеров пула
func (p *Pool) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.config.WorkerCount; i++ {
		workerID := fmt.Sprintf("worker-%s", uuid.New().String()[:8])
		p.wg.Add(1)
		go p.runWorker(runCtx, workerID)
	}

	p.logger.Info("Worker pool started",
		logger.Int("worker_count", p.config.WorkerCount),
		logger.Duration("claim_interval", p.config.ClaimInterval),
	)

	return nil
}

// Stop останавливает пул с graceful shutdown: текущие задания дорабатываются
func (p *Pool) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&p.shutdownInProgress, 0, 1) {
		return nil // Уже останавливается
	}

	p.logger.Info("Stopping worker pool")
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("All workers stopped gracefully")
	case <-time.After(p.config.ShutdownTimeout):
		p.logger.Warn("Worker pool stop timeout reached")
	case <-ctx.Done():
		p.logger.Warn("Worker pool stop interrupted",
			logger.Error(ctx.Err()),
		)
	}

	return nil
}

// GetStats возвращает статистику пула
func (p *Pool) GetStats() PoolStats {
	return PoolStats{
		JobsClaimed:   atomic.LoadInt64(&p.stats.JobsClaimed),
		JobsCompleted: atomic.LoadInt64(&p.stats.JobsCompleted),
		JobsFailed:    atomic.LoadInt64(&p.stats.JobsFailed),
		ActiveWorkers: atomic.LoadInt64(&p.stats.ActiveWorkers),
	}
}

// runWorker основной цикл воркера: захват задания либо пауза до следующего опроса
func (p *Pool) runWorker(ctx context.Context, workerID string) {
	defer p.wg.Done()

	atomic.AddInt64(&p.stats.ActiveWorkers, 1)
	defer atomic.AddInt64(&p.stats.ActiveWorkers, -1)

	p.logger.Info("Worker started",
		logger.String("worker_id", workerID),
	)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Worker stopping",
				logger.String("worker_id", workerID),
			)
			return
		default:
		}

		job, err := p.queue.Claim(ctx, workerID)
		if err != nil {
			// Пустая очередь или проигранная гонка за задание - просто ждем
			if !errors.IsNotFound(err) {
				p.logger.Error("Claim attempt failed",
					logger.String("worker_id", workerID),
					logger.Error(err),
				)
			}

			select {
			case <-time.After(p.config.ClaimInterval):
			case <-ctx.Done():
			}
			continue
		}

		atomic.AddInt64(&p.stats.JobsClaimed, 1)
		p.processJob(workerID, job)
	}
}

// processJob выполняет захваченное задание до конца.
// Остановка пула не прерывает уже начатое задание.
func (p *Pool) processJob(workerID string, job *domain.Job) {
	ctx := context.Background()

	p.logger.Debug("Processing job",
		logger.String("job_id", job.ID),
		logger.String("type", string(job.Type)),
		logger.String("worker_id", workerID),
	)

	if err := p.handleJob(ctx, job); err != nil {
		atomic.AddInt64(&p.stats.JobsFailed, 1)

		p.logger.Warn("Job handler failed",
			logger.String("job_id", job.ID),
			logger.String("type", string(job.Type)),
			logger.String("worker_id", workerID),
			logger.Error(err),
		)

		if failErr := p.queue.Fail(ctx, job, err); failErr != nil {
			p.logger.Error("Failed to record job failure",
				logger.String("job_id", job.ID),
				logger.String("worker_id", workerID),
				logger.Error(failErr),
			)
		}
		return
	}

	if err := p.queue.Complete(ctx, job); err != nil {
		p.logger.Error("Failed to complete job",
			logger.String("job_id", job.ID),
			logger.String("worker_id", workerID),
			logger.Error(err),
		)
		return
	}

	atomic.AddInt64(&p.stats.JobsCompleted, 1)
}

// handleJob направляет задание в обработчик его типа
func (p *Pool) handleJob(ctx context.Context, job *domain.Job) error {
	switch job.Type {
	case domain.JobTypeScan:
		return p.handleScanJob(ctx, job)
	default:
		return errors.New(errors.ErrValidation, "unknown job type").
			WithDetails(fmt.Sprintf("job_id: %s, type: %s", job.ID, job.Type))
	}
}

// handleScanJob выполняет полную батарею проверок цели и сохраняет сводку
func (p *Pool) handleScanJob(ctx context.Context, job *domain.Job) error {
	targetID, ok := job.TargetID()
	if !ok {
		return errors.New(errors.ErrValidation, "scan job payload has no target_id").
			WithDetails(fmt.Sprintf("job_id: %s", job.ID))
	}

	target, err := p.targetRepo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}

	summary := p.engine.ExecuteBattery(ctx, target, nil)

	if err := p.summaryRepo.Save(ctx, summary); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to save scan summary").
			WithDetails(fmt.Sprintf("job_id: %s, target_id: %s, scan_id: %s", job.ID, targetID, summary.ID)).
			WithContext(ctx)
	}

	// Ошибка оценки эскалации не проваливает задание: сводка уже сохранена,
	// следующее сканирование переоценит историю заново
	if _, err := p.evaluator.Evaluate(ctx, target, summary); err != nil {
		p.logger.Error("Escalation evaluation failed",
			logger.String("job_id", job.ID),
			logger.String("target_id", targetID),
			logger.String("scan_id", summary.ID),
			logger.Error(err),
		)
	}

	return nil
}
