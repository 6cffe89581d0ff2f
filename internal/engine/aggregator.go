package engine

import (
	"time"

	"github.com/google/uuid"

	"SiteWatchPlatform/internal/domain"
)

// Aggregate сводит результаты проверок в итоговую сводку сканирования.
// Чистая функция без побочных эффектов, итог не зависит от порядка результатов.
func Aggregate(targetID string, outcomes []domain.CheckOutcome) *domain.ScanSummary {
	summary := &domain.ScanSummary{
		ID:        uuid.New().String(),
		TargetID:  targetID,
		Total:     len(outcomes),
		Outcomes:  outcomes,
		CreatedAt: time.Now(),
	}

	for _, outcome := range outcomes {
		switch outcome.Status {
		case domain.CheckStatusPass:
			summary.Passed++
		case domain.CheckStatusFail:
			summary.Failed++
		case domain.CheckStatusWarning:
			summary.Warnings++
		case domain.CheckStatusError:
			summary.Errors++
		}
	}

	switch {
	case summary.Failed > 0:
		summary.Status = domain.ScanStatusFailed
	case summary.Warnings > 0:
		summary.Status = domain.ScanStatusWarning
	case summary.Errors > 0:
		summary.Status = domain.ScanStatusError
	default:
		summary.Status = domain.ScanStatusPassed
	}

	return summary
}
