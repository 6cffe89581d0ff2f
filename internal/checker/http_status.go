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

// HTTPStatusCheck проверяет доступность цели по коду HTTP ответа
type HTTPStatusCheck struct {
	client    *http.Client
	logger    logger.Logger
	validator *validation.Validator
}

// NewHTTPStatusCheck создает новую проверку HTTP статуса
func NewHTTPStatusCheck(timeout time.Duration, log logger.Logger) *HTTPStatusCheck {
	return &HTTPStatusCheck{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger:    log,
		validator: validation.NewValidator(),
	}
}

// Name возвращает имя проверки
func (c *HTTPStatusCheck) Name() string {
	return "http_status"
}

// Description возвращает описание проверки
func (c *HTTPStatusCheck) Description() string {
	return "Checks that the target URL responds with a 2xx/3xx status code"
}

// Category возвращает категорию проверки
func (c *HTTPStatusCheck) Category() domain.CheckCategory {
	return domain.CheckCategoryCritical
}

// Run выполняет HTTP проверку цели
func (c *HTTPStatusCheck) Run(ctx context.Context, target *domain.Target) (*domain.CheckOutcome, error) {
	if err := c.validator.ValidateURL(target.URL, []string{"http", "https"}); err != nil {
		return nil, fmt.Errorf("invalid target URL: %w", err)
	}

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

	// Тело вычитывается полностью, чтобы соединение вернулось в пул
	bodySize, _ := io.Copy(io.Discard, resp.Body)

	outcome := domain.NewCheckOutcome(c.Name(), domain.CheckStatusPass, fmt.Sprintf("status code %d", resp.StatusCode))
	outcome.DurationMs = duration.Milliseconds()
	outcome.Data["status_code"] = resp.StatusCode
	outcome.Data["content_type"] = resp.Header.Get("Content-Type")
	outcome.Data["body_size"] = bodySize

	if resp.StatusCode >= 400 {
		outcome.Status = domain.CheckStatusFail
		outcome.Message = fmt.Sprintf("unexpected status code %d", resp.StatusCode)
		c.logger.Debug("HTTP status check failed",
			logger.String("target_id", target.ID),
			logger.String("url", target.URL),
			logger.Int("status_code", resp.StatusCode),
		)
	}

	return outcome, nil
}
