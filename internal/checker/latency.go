package checker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"SiteWatchPlatform/internal/domain"
	"SiteWatchPlatform/pkg/logger"
	"SiteWatchPlatform/pkg/validation"
)

// LatencyCheck измеряет время ответа цели относительно порогов
type LatencyCheck struct {
	client        *http.Client
	warnThreshold time.Duration
	failThreshold time.Duration
	logger        logger.Logger
	validator     *validation.Validator
}

// NewLatencyCheck создает новую проверку времени ответа
func NewLatencyCheck(timeout, warnThreshold, failThreshold time.Duration, log logger.Logger) *LatencyCheck {
	return &LatencyCheck{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		warnThreshold: warnThreshold,
		failThreshold: failThreshold,
		logger:        log,
		validator:     validation.NewValidator(),
	}
}

// Name возвращает имя проверки
func (c *LatencyCheck) Name() string {
	return "latency"
}

// Description возвращает описание проверки
func (c *LatencyCheck) Description() string {
	return "Measures target response time against warning and failure thresholds"
}

// Category возвращает категорию проверки
func (c *LatencyCheck) Category() domain.CheckCategory {
	return domain.CheckCategoryPerformance
}

// Run выполняет замер времени ответа цели
func (c *LatencyCheck) Run(ctx context.Context, target *domain.Target) (*domain.CheckOutcome, error) {
	if err := c.validator.ValidateURL(target.URL, []string{"http", "https"}); err != nil {
		return nil, fmt.Errorf("invalid target URL: %w", err)
	}

	warn, fail := c.thresholds(target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	startTime := time.Now()
	resp, err := c.client.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	score := latencyScore(duration, warn, fail)

	outcome := domain.NewCheckOutcome(c.Name(), domain.CheckStatusPass, fmt.Sprintf("response time %dms", duration.Milliseconds()))
	outcome.DurationMs = duration.Milliseconds()
	outcome.Score = &score
	outcome.Data["latency_ms"] = duration.Milliseconds()
	outcome.Data["warn_threshold_ms"] = warn.Milliseconds()
	outcome.Data["fail_threshold_ms"] = fail.Milliseconds()

	switch {
	case duration >= fail:
		outcome.Status = domain.CheckStatusFail
		outcome.Message = fmt.Sprintf("response time %dms exceeds failure threshold %dms", duration.Milliseconds(), fail.Milliseconds())
	case duration >= warn:
		outcome.Status = domain.CheckStatusWarning
		outcome.Message = fmt.Sprintf("response time %dms exceeds warning threshold %dms", duration.Milliseconds(), warn.Milliseconds())
		c.logger.Debug("Latency check above warning threshold",
			logger.String("target_id", target.ID),
			logger.Duration("latency", duration),
		)
	}

	return outcome, nil
}

// thresholds возвращает пороги с учетом параметров цели
func (c *LatencyCheck) thresholds(target *domain.Target) (time.Duration, time.Duration) {
	warn := c.warnThreshold
	fail := c.failThreshold

	if cfg, ok := target.CheckConfig(c.Name()); ok {
		if ms, found := cfg.IntParam("warn_threshold_ms"); found && ms > 0 {
			warn = time.Duration(ms) * time.Millisecond
		}
		if ms, found := cfg.IntParam("fail_threshold_ms"); found && ms > 0 {
			fail = time.Duration(ms) * time.Millisecond
		}
	}

	return warn, fail
}

// latencyScore вычисляет оценку от 100 (быстро) до 0 (на пороге провала)
func latencyScore(elapsed, warn, fail time.Duration) float64 {
	if elapsed <= warn {
		return 100
	}
	if elapsed >= fail || fail <= warn {
		return 0
	}
	return 100 * float64(fail-elapsed) / float64(fail-warn)
}
