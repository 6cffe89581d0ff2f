package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SiteWatchPlatform/internal/domain"
)

func outcomeWith(status domain.CheckStatus) domain.CheckOutcome {
	return *domain.NewCheckOutcome("probe", status, string(status))
}

func TestAggregate_Counts(t *testing.T) {
	outcomes := []domain.CheckOutcome{
		outcomeWith(domain.CheckStatusPass),
		outcomeWith(domain.CheckStatusPass),
		outcomeWith(domain.CheckStatusFail),
		outcomeWith(domain.CheckStatusWarning),
		outcomeWith(domain.CheckStatusError),
	}

	summary := Aggregate("target-1", outcomes)

	require.NotNil(t, summary)
	assert.NotEmpty(t, summary.ID)
	assert.Equal(t, "target-1", summary.TargetID)
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 2, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Warnings)
	assert.Equal(t, 1, summary.Errors)
	assert.Len(t, summary.Outcomes, 5)
}

func TestAggregate_StatusPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		statuses []domain.CheckStatus
		expected domain.ScanStatus
	}{
		{"all pass", []domain.CheckStatus{domain.CheckStatusPass, domain.CheckStatusPass}, domain.ScanStatusPassed},
		{"fail wins over everything", []domain.CheckStatus{domain.CheckStatusPass, domain.CheckStatusWarning, domain.CheckStatusError, domain.CheckStatusFail}, domain.ScanStatusFailed},
		{"warning wins over error", []domain.CheckStatus{domain.CheckStatusPass, domain.CheckStatusError, domain.CheckStatusWarning}, domain.ScanStatusWarning},
		{"error without fail or warning", []domain.CheckStatus{domain.CheckStatusPass, domain.CheckStatusError}, domain.ScanStatusError},
		{"empty battery", nil, domain.ScanStatusPassed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcomes := make([]domain.CheckOutcome, 0, len(tt.statuses))
			for _, status := range tt.statuses {
				outcomes = append(outcomes, outcomeWith(status))
			}

			summary := Aggregate("target-1", outcomes)
			assert.Equal(t, tt.expected, summary.Status)
		})
	}
}

func TestAggregate_OrderIndependent(t *testing.T) {
	forward := []domain.CheckOutcome{
		outcomeWith(domain.CheckStatusPass),
		outcomeWith(domain.CheckStatusFail),
		outcomeWith(domain.CheckStatusWarning),
		outcomeWith(domain.CheckStatusError),
	}
	reversed := []domain.CheckOutcome{
		outcomeWith(domain.CheckStatusError),
		outcomeWith(domain.CheckStatusWarning),
		outcomeWith(domain.CheckStatusFail),
		outcomeWith(domain.CheckStatusPass),
	}
	shuffled := []domain.CheckOutcome{
		outcomeWith(domain.CheckStatusWarning),
		outcomeWith(domain.CheckStatusPass),
		outcomeWith(domain.CheckStatusError),
		outcomeWith(domain.CheckStatusFail),
	}

	first := Aggregate("target-1", forward)
	second := Aggregate("target-1", reversed)
	third := Aggregate("target-1", shuffled)

	for _, summary := range []*domain.ScanSummary{first, second, third} {
		assert.Equal(t, domain.ScanStatusFailed, summary.Status)
		assert.Equal(t, 4, summary.Total)
		assert.Equal(t, 1, summary.Passed)
		assert.Equal(t, 1, summary.Failed)
		assert.Equal(t, 1, summary.Warnings)
		assert.Equal(t, 1, summary.Errors)
	}
}
