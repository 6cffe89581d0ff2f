package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobType представляет тип задачи
type JobType string

const (
	JobTypeScan JobType = "scan"
)

// JobPriority представляет приоритет задачи
type JobPriority int

const (
	JobPriorityLow    JobPriority = 0
	JobPriorityNormal JobPriority = 1
	JobPriorityHigh   JobPriority = 2
	JobPriorityUrgent JobPriority = 3
)

// String возвращает строковое представление приоритета
func (p JobPriority) String() string {
	switch p {
	case JobPriorityLow:
		return "low"
	case JobPriorityNormal:
		return "normal"
	case JobPriorityHigh:
		return "high"
	case JobPriorityUrgent:
		return "urgent"
	default:
		return "unknown"
	}
}

// IsValidJobPriority проверяет валидность приоритета
func IsValidJobPriority(priority JobPriority) bool {
	return priority >= JobPriorityLow && priority <= JobPriorityUrgent
}

// JobStatus представляет статус задачи
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
	JobStatusDeadLetter JobStatus = "dead_letter"
)

// IsValidJobStatus проверяет валидность статуса задачи
func IsValidJobStatus(status JobStatus) bool {
	switch status {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted,
		JobStatusFailed, JobStatusCancelled, JobStatusDeadLetter:
		return true
	default:
		return false
	}
}

// Job представляет задачу в очереди
type Job struct {
	ID          string                 `json:"id" db:"id"`
	Type        JobType                `json:"type" db:"type"`
	Payload     map[string]interface{} `json:"payload" db:"payload"`
	Priority    JobPriority            `json:"priority" db:"priority"`
	Status      JobStatus              `json:"status" db:"status"`
	RetryCount  int                    `json:"retry_count" db:"retry_count"`
	MaxRetries  int                    `json:"max_retries" db:"max_retries"`
	ExecuteAt   time.Time              `json:"execute_at" db:"execute_at"`
	StartedAt   *time.Time             `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty" db:"completed_at"`
	FailedAt    *time.Time             `json:"failed_at,omitempty" db:"failed_at"`
	WorkerID    string                 `json:"worker_id,omitempty" db:"worker_id"`
	LastError   string                 `json:"last_error,omitempty" db:"last_error"`
	CreatedAt   time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at" db:"updated_at"`
}

// NewJob создает новую задачу со статусом pending
func NewJob(jobType JobType, payload map[string]interface{}, priority JobPriority, maxRetries int, delay time.Duration) *Job {
	now := time.Now()

	return &Job{
		ID:         uuid.New().String(),
		Type:       jobType,
		Payload:    payload,
		Priority:   priority,
		Status:     JobStatusPending,
		RetryCount: 0,
		MaxRetries: maxRetries,
		ExecuteAt:  now.Add(delay),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NewScanJob создает задачу сканирования цели
func NewScanJob(targetID string, priority JobPriority, maxRetries int) *Job {
	return NewJob(JobTypeScan, map[string]interface{}{"target_id": targetID}, priority, maxRetries, 0)
}

// TargetID возвращает идентификатор цели из полезной нагрузки задачи
func (j *Job) TargetID() (string, bool) {
	raw, ok := j.Payload["target_id"]
	if !ok {
		return "", false
	}
	id, ok := raw.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// IsTerminal проверяет, находится ли задача в конечном состоянии
func (j *Job) IsTerminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusCancelled, JobStatusDeadLetter, JobStatusFailed:
		return true
	default:
		return false
	}
}

// CanCancel проверяет, можно ли отменить задачу
func (j *Job) CanCancel() bool {
	return j.Status == JobStatusPending
}

// CanRetry проверяет, остались ли у задачи попытки повтора
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// MarkProcessing переводит задачу в обработку указанным воркером
func (j *Job) MarkProcessing(workerID string) {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.WorkerID = workerID
	j.StartedAt = &now
	j.UpdatedAt = now
}

// MarkCompleted переводит задачу в состояние completed
func (j *Job) MarkCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// ScheduleRetry возвращает задачу в очередь с отложенным временем выполнения
func (j *Job) ScheduleRetry(delay time.Duration, lastError string) {
	now := time.Now()
	j.Status = JobStatusPending
	j.RetryCount++
	j.ExecuteAt = now.Add(delay)
	j.LastError = lastError
	j.WorkerID = ""
	j.StartedAt = nil
	j.UpdatedAt = now
}

// MarkDeadLetter переводит задачу в состояние dead_letter
func (j *Job) MarkDeadLetter(lastError string) {
	now := time.Now()
	j.Status = JobStatusDeadLetter
	j.LastError = lastError
	j.FailedAt = &now
	j.UpdatedAt = now
}

// MarkFailed переводит задачу в состояние failed
func (j *Job) MarkFailed(lastError string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.LastError = lastError
	j.FailedAt = &now
	j.UpdatedAt = now
}

// JobFilter представляет фильтры для поиска задач
type JobFilter struct {
	Status *JobStatus `json:"status,omitempty"`
	Type   *JobType   `json:"type,omitempty"`
	Limit  int        `json:"limit,omitempty"`
	Offset int        `json:"offset,omitempty"`
}

// QueueStats представляет статистику очереди задач
type QueueStats struct {
	Total    int               `json:"total"`
	ByStatus map[JobStatus]int `json:"by_status"`
}
