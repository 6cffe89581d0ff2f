package domain

import (
	"time"

	"github.com/google/uuid"
)

// EscalationLevel представляет уровень эскалации
type EscalationLevel int

const (
	EscalationLevelNone     EscalationLevel = 0
	EscalationLevelLow      EscalationLevel = 1
	EscalationLevelHigh     EscalationLevel = 2
	EscalationLevelCritical EscalationLevel = 3
)

// IsValidEscalationLevel проверяет валидность уровня эскалации
func IsValidEscalationLevel(level EscalationLevel) bool {
	return level >= EscalationLevelNone && level <= EscalationLevelCritical
}

// EscalationStatus представляет статус эскалации
type EscalationStatus string

const (
	EscalationStatusActive   EscalationStatus = "active"
	EscalationStatusResolved EscalationStatus = "resolved"
)

// EvaluationResult представляет итог оценки эскалации по сводке сканирования
type EvaluationResult string

const (
	EvaluationEscalationCreated  EvaluationResult = "escalation_created"
	EvaluationEscalationUpdated  EvaluationResult = "escalation_updated"
	EvaluationNoEscalationNeeded EvaluationResult = "no_escalation_needed"
	EvaluationNoIncreaseNeeded   EvaluationResult = "no_escalation_increase_needed"
	EvaluationInCooldown         EvaluationResult = "in_cooldown"
	EvaluationEscalationResolved EvaluationResult = "escalation_resolved"
)

// Escalation представляет активное или разрешенное состояние эскалации цели
type Escalation struct {
	ID               string           `json:"id" db:"id"`
	TargetID         string           `json:"target_id" db:"target_id"`
	Level            EscalationLevel  `json:"level" db:"level"`
	TriggerReason    string           `json:"trigger_reason" db:"trigger_reason"`
	Status           EscalationStatus `json:"status" db:"status"`
	CooldownUntil    time.Time        `json:"cooldown_until" db:"cooldown_until"`
	ResolvedAt       *time.Time       `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolutionReason string           `json:"resolution_reason,omitempty" db:"resolution_reason"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

// NewEscalation создает новую активную эскалацию для цели
func NewEscalation(targetID string, level EscalationLevel, triggerReason string, cooldown time.Duration) *Escalation {
	now := time.Now()

	return &Escalation{
		ID:            uuid.New().String(),
		TargetID:      targetID,
		Level:         level,
		TriggerReason: triggerReason,
		Status:        EscalationStatusActive,
		CooldownUntil: now.Add(cooldown),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsActive проверяет, активна ли эскалация
func (e *Escalation) IsActive() bool {
	return e.Status == EscalationStatusActive
}

// InCooldown проверяет, действует ли период охлаждения эскалации
func (e *Escalation) InCooldown(now time.Time) bool {
	return e.IsActive() && now.Before(e.CooldownUntil)
}

// Raise повышает уровень активной эскалации и перезапускает период охлаждения
func (e *Escalation) Raise(level EscalationLevel, triggerReason string, cooldown time.Duration) {
	now := time.Now()
	e.Level = level
	e.TriggerReason = triggerReason
	e.CooldownUntil = now.Add(cooldown)
	e.UpdatedAt = now
}

// Resolve разрешает эскалацию с указанием причины
func (e *Escalation) Resolve(reason string) {
	if e.Status == EscalationStatusResolved {
		return
	}
	now := time.Now()
	e.Status = EscalationStatusResolved
	e.ResolvedAt = &now
	e.ResolutionReason = reason
	e.UpdatedAt = now
}
