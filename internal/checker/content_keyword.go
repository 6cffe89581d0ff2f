package checker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"SiteWatchPlatform/internal/domain"
	"SiteWatchPlatform/pkg/logger"
	"SiteWatchPlatform/pkg/validation"
)

// maxContentBytes ограничивает размер вычитываемого тела ответа
const maxContentBytes = 1 << 20

// ContentKeywordCheck проверяет наличие или отсутствие ключевого слова в теле ответа
type ContentKeywordCheck struct {
	client    *http.Client
	logger    logger.Logger
	validator *validation.Validator
}

// NewContentKeywordCheck создает новую проверку содержимого страницы
func NewContentKeywordCheck(timeout time.Duration, log logger.Logger) *ContentKeywordCheck {
	return &ContentKeywordCheck{
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
func (c *ContentKeywordCheck) Name() string {
	return "content_keyword"
}

// Description возвращает описание проверки
func (c *ContentKeywordCheck) Description() string {
	return "Checks that the response body contains (or does not contain) a configured keyword"
}

// Category возвращает категорию проверки
func (c *ContentKeywordCheck) Category() domain.CheckCategory {
	return domain.CheckCategoryContent
}

// Run выполняет проверку содержимого цели
func (c *ContentKeywordCheck) Run(ctx context.Context, target *domain.Target) (*domain.CheckOutcome, error) {
	cfg, ok := target.CheckConfig(c.Name())
	if !ok {
		return nil, fmt.Errorf("check is not configured for target %s", target.ID)
	}

	keyword, ok := cfg.StringParam("keyword")
	if !ok {
		return nil, fmt.Errorf("missing required param 'keyword' for target %s", target.ID)
	}

	mustContain := true
	if value, found := cfg.BoolParam("must_contain"); found {
		mustContain = value
	}

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

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxContentBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	found := strings.Contains(string(body), keyword)
	success := found == mustContain

	outcome := domain.NewCheckOutcome(c.Name(), domain.CheckStatusPass, fmt.Sprintf("keyword '%s' check passed", keyword))
	outcome.DurationMs = duration.Milliseconds()
	outcome.Data["keyword"] = keyword
	outcome.Data["must_contain"] = mustContain
	outcome.Data["found"] = found

	if !success {
		outcome.Status = domain.CheckStatusFail
		if mustContain {
			outcome.Message = fmt.Sprintf("keyword '%s' not found in response body", keyword)
		} else {
			outcome.Message = fmt.Sprintf("forbidden keyword '%s' found in response body", keyword)
		}
		c.logger.Debug("Content keyword check failed",
			logger.String("target_id", target.ID),
			logger.String("keyword", keyword),
			logger.Bool("must_contain", mustContain),
		)
	}

	return outcome, nil
}
