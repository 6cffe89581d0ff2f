package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobPriority_Values(t *testing.T) {
	assert.Equal(t, JobPriority(0), JobPriorityLow)
	assert.Equal(t, JobPriority(1), JobPriorityNormal)
	assert.Equal(t, JobPriority(2), JobPriorityHigh)
	assert.Equal(t, JobPriority(3), JobPriorityUrgent)
}

func TestJobPriority_String(t *testing.T) {
	tests := []struct {
		name     string
		priority JobPriority
		expected string
	}{
		{"low", JobPriorityLow, "low"},
		{"normal", JobPriorityNormal, "normal"},
		{"high", JobPriorityHigh, "high"},
		{"urgent", JobPriorityUrgent, "urgent"},
		{"out of range", JobPriority(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.priority.String())
		})
	}
}

func TestIsValidJobPriority(t *testing.T) {
	assert.True(t, IsValidJobPriority(JobPriorityLow))
	assert.True(t, IsValidJobPriority(JobPriorityUrgent))
	assert.False(t, IsValidJobPriority(JobPriority(-1)))
	assert.False(t, IsValidJobPriority(JobPriority(4)))
}

func TestJobStatus_Constants(t *testing.T) {
	assert.Equal(t, JobStatus("pending"), JobStatusPending)
	assert.Equal(t, JobStatus("processing"), JobStatusProcessing)
	assert.Equal(t, JobStatus("completed"), JobStatusCompleted)
	assert.Equal(t, JobStatus("failed"), JobStatusFailed)
	assert.Equal(t, JobStatus("cancelled"), JobStatusCancelled)
	assert.Equal(t, JobStatus("dead_letter"), JobStatusDeadLetter)
}

func TestNewJob(t *testing.T) {
	payload := map[string]interface{}{"target_id": "target-1"}

	job := NewJob(JobTypeScan, payload, JobPriorityHigh, 3, 30*time.Second)

	require.NotNil(t, job)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, JobTypeScan, job.Type)
	assert.Equal(t, payload, job.Payload)
	assert.Equal(t, JobPriorityHigh, job.Priority)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 0, job.RetryCount)
	assert.Equal(t, 3, job.MaxRetries)
	assert.True(t, job.ExecuteAt.After(job.CreatedAt))
	assert.NotZero(t, job.CreatedAt)
	assert.NotZero(t, job.UpdatedAt)
}

func TestNewScanJob(t *testing.T) {
	job := NewScanJob("target-1", JobPriorityUrgent, 2)

	require.NotNil(t, job)
	assert.Equal(t, JobTypeScan, job.Type)
	assert.Equal(t, JobPriorityUrgent, job.Priority)

	targetID, ok := job.TargetID()
	assert.True(t, ok)
	assert.Equal(t, "target-1", targetID)
}

func TestJob_TargetID(t *testing.T) {
	tests := []struct {
		name     string
		payload  map[string]interface{}
		expected string
		ok       bool
	}{
		{"valid target id", map[string]interface{}{"target_id": "target-1"}, "target-1", true},
		{"missing key", map[string]interface{}{}, "", false},
		{"empty value", map[string]interface{}{"target_id": ""}, "", false},
		{"wrong type", map[string]interface{}{"target_id": 42}, "", false},
		{"nil payload", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &Job{Payload: tt.payload}
			id, ok := job.TargetID()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, id)
		})
	}
}

func TestJob_IsTerminal(t *testing.T) {
	tests := []struct {
		name     string
		status   JobStatus
		expected bool
	}{
		{"pending", JobStatusPending, false},
		{"processing", JobStatusProcessing, false},
		{"completed", JobStatusCompleted, true},
		{"failed", JobStatusFailed, true},
		{"cancelled", JobStatusCancelled, true},
		{"dead_letter", JobStatusDeadLetter, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &Job{Status: tt.status}
			assert.Equal(t, tt.expected, job.IsTerminal())
		})
	}
}

func TestJob_CanCancel(t *testing.T) {
	tests := []struct {
		name     string
		status   JobStatus
		expected bool
	}{
		{"pending", JobStatusPending, true},
		{"processing", JobStatusProcessing, false},
		{"completed", JobStatusCompleted, false},
		{"dead_letter", JobStatusDeadLetter, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &Job{Status: tt.status}
			assert.Equal(t, tt.expected, job.CanCancel())
		})
	}
}

func TestJob_CanRetry(t *testing.T) {
	assert.True(t, (&Job{RetryCount: 0, MaxRetries: 3}).CanRetry())
	assert.True(t, (&Job{RetryCount: 2, MaxRetries: 3}).CanRetry())
	assert.False(t, (&Job{RetryCount: 3, MaxRetries: 3}).CanRetry())
	assert.False(t, (&Job{RetryCount: 0, MaxRetries: 0}).CanRetry())
}

func TestJob_MarkProcessing(t *testing.T) {
	job := NewScanJob("target-1", JobPriorityNormal, 3)

	job.MarkProcessing("worker-abc123")

	assert.Equal(t, JobStatusProcessing, job.Status)
	assert.Equal(t, "worker-abc123", job.WorkerID)
	require.NotNil(t, job.StartedAt)
}

func TestJob_MarkCompleted(t *testing.T) {
	job := NewScanJob("target-1", JobPriorityNormal, 3)
	job.MarkProcessing("worker-abc123")

	job.MarkCompleted()

	assert.Equal(t, JobStatusCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)
	assert.True(t, job.IsTerminal())
}

func TestJob_ScheduleRetry(t *testing.T) {
	job := NewScanJob("target-1", JobPriorityNormal, 3)
	job.MarkProcessing("worker-abc123")

	job.ScheduleRetry(time.Minute, "connection refused")

	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.Equal(t, "connection refused", job.LastError)
	assert.Empty(t, job.WorkerID)
	assert.Nil(t, job.StartedAt)
	assert.True(t, job.ExecuteAt.After(time.Now()))
}

func TestJob_MarkDeadLetter(t *testing.T) {
	job := NewScanJob("target-1", JobPriorityNormal, 1)
	job.MarkProcessing("worker-abc123")

	job.MarkDeadLetter("persistent failure")

	assert.Equal(t, JobStatusDeadLetter, job.Status)
	assert.Equal(t, "persistent failure", job.LastError)
	require.NotNil(t, job.FailedAt)
	assert.True(t, job.IsTerminal())
}

func TestJob_MarkFailed(t *testing.T) {
	job := NewScanJob("target-1", JobPriorityNormal, 1)

	job.MarkFailed("persistent failure")

	assert.Equal(t, JobStatusFailed, job.Status)
	require.NotNil(t, job.FailedAt)
	assert.True(t, job.IsTerminal())
}
