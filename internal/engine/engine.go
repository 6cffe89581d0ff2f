package engine

import (
	"context"
	"fmt"
	"time"

	"SiteWatchPlatform/internal/checker"
	"SiteWatchPlatform/internal/domain"
	"SiteWatchPlatform/pkg/logger"
	"SiteWatchPlatform/pkg/metrics"
)

// Config представляет конфигурацию движка выполнения проверок
type Config struct {
	DefaultTimeout time.Duration `json:"default_timeout"`
	Retry          RetryPolicy   `json:"retry"`
}

// DefaultConfig возвращает конфигурацию движка по умолчанию
func DefaultConfig() *Config {
	return &Config{
		DefaultTimeout: 30 * time.Second,
		Retry:          DefaultRetryPolicy(),
	}
}

// Engine выполняет проверки целей с обертками таймаута, повторов и инверсии
type Engine struct {
	registry *checker.Registry
	config   *Config
	logger   logger.Logger
	metrics  *metrics.Metrics
}

// NewEngine создает новый движок выполнения проверок
func NewEngine(registry *checker.Registry, config *Config, log logger.Logger, m *metrics.Metrics) *Engine {
	if config == nil {
		config = DefaultConfig()
	}

	return &Engine{
		registry: registry,
		config:   config,
		logger:   log,
		metrics:  m,
	}
}

// ExecuteCheck выполняет одну проверку цели со всеми обертками.
// Неизвестная проверка возвращается как ошибка сразу, без повторов.
func (e *Engine) ExecuteCheck(ctx context.Context, checkName string, target *domain.Target) (*domain.CheckOutcome, error) {
	check, err := e.registry.Get(checkName)
	if err != nil {
		return nil, err
	}

	checkConfig, _ := target.CheckConfig(checkName)

	timeout := e.config.DefaultTimeout
	if checkConfig.TimeoutSeconds > 0 {
		timeout = time.Duration(checkConfig.TimeoutSeconds) * time.Second
	}

	startTime := time.Now()
	outcome := e.runWithRetry(ctx, check, target, timeout)
	duration := time.Since(startTime)

	if checkConfig.Inverted {
		outcome.Status = outcome.Status.Inverted()
		outcome.Data["inverted"] = true
	}

	e.metrics.ObserveCheck(checkName, string(outcome.Status), duration)
	e.logger.Debug("Check executed",
		logger.String("check", checkName),
		logger.String("target_id", target.ID),
		logger.String("status", string(outcome.Status)),
		logger.Duration("duration", duration),
	)

	return outcome, nil
}

// ExecuteBattery выполняет набор проверок цели и возвращает сводку сканирования.
// Фатальная ошибка одной проверки не прерывает прогон остальных.
func (e *Engine) ExecuteBattery(ctx context.Context, target *domain.Target, checkNames []string) *domain.ScanSummary {
	if len(checkNames) == 0 {
		checkNames = target.CheckNames()
	}

	startTime := time.Now()
	outcomes := make([]domain.CheckOutcome, 0, len(checkNames))

	for _, name := range checkNames {
		outcome, err := e.ExecuteCheck(ctx, name, target)
		if err != nil {
			e.logger.Warn("Check could not be resolved",
				logger.String("check", name),
				logger.String("target_id", target.ID),
				logger.Error(err),
			)
			outcome = domain.NewCheckOutcome(name, domain.CheckStatusError, err.Error())
		}
		outcomes = append(outcomes, *outcome)
	}

	summary := Aggregate(target.ID, outcomes)
	summary.DurationMs = time.Since(startTime).Milliseconds()

	e.logger.Info("Battery completed",
		logger.String("target_id", target.ID),
		logger.String("status", string(summary.Status)),
		logger.Int("total", summary.Total),
		logger.Int("passed", summary.Passed),
		logger.Int("failed", summary.Failed),
		logger.Int("warnings", summary.Warnings),
		logger.Int("errors", summary.Errors),
		logger.Duration("duration", time.Since(startTime)),
	)

	return summary
}

// runWithRetry повторяет проверку только при статусе error, никогда при fail или warning
func (e *Engine) runWithRetry(ctx context.Context, check checker.Check, target *domain.Target, timeout time.Duration) *domain.CheckOutcome {
	policy := e.config.Retry

	var outcome *domain.CheckOutcome
	attempt := 0

	for {
		outcome = e.runWithTimeout(ctx, check, target, timeout)
		if !outcome.IsError() || attempt >= policy.MaxRetries {
			break
		}

		delay := policy.DelayFor(attempt)
		e.metrics.IncCheckRetry(check.Name())
		e.logger.Debug("Retrying check after execution error",
			logger.String("check", check.Name()),
			logger.String("target_id", target.ID),
			logger.Int("attempt", attempt+1),
			logger.Duration("delay", delay),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			outcome.Data["retry_count"] = attempt
			return outcome
		}

		attempt++
	}

	outcome.Data["retry_count"] = attempt
	if outcome.IsError() && policy.MaxRetries > 0 && attempt >= policy.MaxRetries {
		outcome.Data["retries_exhausted"] = true
	}

	return outcome
}

// runWithTimeout выполняет проверку в отдельной горутине с ограничением по времени.
// При истечении таймаута поздний результат горутины отбрасывается.
func (e *Engine) runWithTimeout(ctx context.Context, check checker.Check, target *domain.Target, timeout time.Duration) *domain.CheckOutcome {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resultCh := make(chan *domain.CheckOutcome, 1)
	startTime := time.Now()

	go func() {
		resultCh <- e.safeRun(runCtx, check, target)
	}()

	select {
	case outcome := <-resultCh:
		return outcome
	case <-time.After(timeout):
		outcome := domain.NewCheckOutcome(check.Name(), domain.CheckStatusError, fmt.Sprintf("timeout exceeded after %s", timeout))
		outcome.DurationMs = time.Since(startTime).Milliseconds()
		outcome.Data["timeout"] = timeout.String()
		return outcome
	case <-ctx.Done():
		outcome := domain.NewCheckOutcome(check.Name(), domain.CheckStatusError, fmt.Sprintf("check cancelled: %v", ctx.Err()))
		outcome.DurationMs = time.Since(startTime).Milliseconds()
		return outcome
	}
}

// safeRun выполняет проверку с защитой от паники и нормализует результат
func (e *Engine) safeRun(ctx context.Context, check checker.Check, target *domain.Target) (outcome *domain.CheckOutcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Check panicked",
				logger.String("check", check.Name()),
				logger.String("target_id", target.ID),
				logger.Any("panic", r),
			)
			outcome = domain.NewCheckOutcome(check.Name(), domain.CheckStatusError, fmt.Sprintf("check panicked: %v", r))
		}
	}()

	startTime := time.Now()
	result, err := check.Run(ctx, target)
	duration := time.Since(startTime)

	if err != nil {
		failed := domain.NewCheckOutcome(check.Name(), domain.CheckStatusError, err.Error())
		failed.DurationMs = duration.Milliseconds()
		return failed
	}

	if result == nil {
		missing := domain.NewCheckOutcome(check.Name(), domain.CheckStatusError, "check returned no outcome")
		missing.DurationMs = duration.Milliseconds()
		return missing
	}

	if result.Data == nil {
		result.Data = make(map[string]interface{})
	}
	if result.CheckName == "" {
		result.CheckName = check.Name()
	}
	if result.DurationMs == 0 {
		result.DurationMs = duration.Milliseconds()
	}

	return result
}
