package domain

import (
	"time"
)

// CheckStatus представляет статус результата проверки
type CheckStatus string

const (
	CheckStatusPass    CheckStatus = "pass"
	CheckStatusFail    CheckStatus = "fail"
	CheckStatusWarning CheckStatus = "warning"
	CheckStatusError   CheckStatus = "error"
)

// CheckCategory представляет категорию проверки
type CheckCategory string

const (
	CheckCategoryAvailability CheckCategory = "availability"
	CheckCategoryPerformance  CheckCategory = "performance"
	CheckCategorySecurity     CheckCategory = "security"
	CheckCategoryContent      CheckCategory = "content"
	CheckCategoryCritical     CheckCategory = "critical"
)

// Inverted возвращает инвертированный статус: pass и fail меняются местами,
// warning и error не инвертируются
func (s CheckStatus) Inverted() CheckStatus {
	switch s {
	case CheckStatusPass:
		return CheckStatusFail
	case CheckStatusFail:
		return CheckStatusPass
	default:
		return s
	}
}

// IsValidCheckStatus проверяет валидность статуса проверки
func IsValidCheckStatus(status CheckStatus) bool {
	switch status {
	case CheckStatusPass, CheckStatusFail, CheckStatusWarning, CheckStatusError:
		return true
	default:
		return false
	}
}

// CheckOutcome представляет результат одного запуска проверки
type CheckOutcome struct {
	CheckName  string                 `json:"check_name" db:"check_name"`
	Status     CheckStatus            `json:"status" db:"status"`
	Message    string                 `json:"message" db:"message"`
	Data       map[string]interface{} `json:"data,omitempty" db:"data"`
	Score      *float64               `json:"score,omitempty" db:"score"`
	DurationMs int64                  `json:"duration_ms" db:"duration_ms"`
	CreatedAt  time.Time              `json:"created_at" db:"created_at"`
}

// NewCheckOutcome создает новый результат проверки
func NewCheckOutcome(checkName string, status CheckStatus, message string) *CheckOutcome {
	return &CheckOutcome{
		CheckName: checkName,
		Status:    status,
		Message:   message,
		Data:      make(map[string]interface{}),
		CreatedAt: time.Now(),
	}
}

// IsError проверяет, завершилась ли проверка ошибкой выполнения
func (o *CheckOutcome) IsError() bool {
	return o.Status == CheckStatusError
}

// ScanStatus представляет итоговый статус сканирования
type ScanStatus string

const (
	ScanStatusPassed  ScanStatus = "passed"
	ScanStatusFailed  ScanStatus = "failed"
	ScanStatusWarning ScanStatus = "warning"
	ScanStatusError   ScanStatus = "error"
)

// ScanSummary представляет сводку полного прогона проверок по цели
type ScanSummary struct {
	ID         string         `json:"id" db:"id"`
	TargetID   string         `json:"target_id" db:"target_id"`
	Total      int            `json:"total" db:"total"`
	Passed     int            `json:"passed" db:"passed"`
	Failed     int            `json:"failed" db:"failed"`
	Warnings   int            `json:"warnings" db:"warnings"`
	Errors     int            `json:"errors" db:"errors"`
	Status     ScanStatus     `json:"status" db:"status"`
	Outcomes   []CheckOutcome `json:"outcomes"`
	DurationMs int64          `json:"duration_ms" db:"duration_ms"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// HasFailures проверяет, есть ли в сводке проваленные проверки
func (s *ScanSummary) HasFailures() bool {
	return s.Failed > 0
}

// FullyPassed проверяет, прошли ли все проверки без провалов, предупреждений и ошибок
func (s *ScanSummary) FullyPassed() bool {
	return s.Total > 0 && s.Failed == 0 && s.Warnings == 0 && s.Errors == 0
}
