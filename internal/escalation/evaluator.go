package escalation

import (
	"context"
	"fmt"
	"time"

	"SiteWatchPlatform/internal/checker"
	"SiteWatchPlatform/internal/domain"
	"SiteWatchPlatform/internal/notifier"
	"SiteWatchPlatform/internal/repository"
	"SiteWatchPlatform/pkg/errors"
	"SiteWatchPlatform/pkg/logger"
	"SiteWatchPlatform/pkg/metrics"
)

// Config конфигурация оценщика эскалаций
type Config struct {
	// Порог серии провалов подряд для уровня 2
	ConsecutiveFailureThreshold int `json:"consecutive_failure_threshold"`

	// Порог провалов за скользящее окно для уровня 2
	FailuresInPeriodThreshold int `json:"failures_in_period_threshold"`

	// Скользящее окно подсчета провалов
	Period time.Duration `json:"period"`

	// Период охлаждения эскалации, гасит повторные уведомления
	Cooldown time.Duration `json:"cooldown"`

	// Сколько последних сводок загружать для подсчета серии провалов
	HistoryLimit int `json:"history_limit"`

	// Задержка доставки уведомлений по уровням эскалации
	DeliveryDelays map[domain.EscalationLevel]time.Duration `json:"delivery_delays"`
}

// DefaultConfig возвращает конфигурацию оценщика по умолчанию
func DefaultConfig() *Config {
	return &Config{
		ConsecutiveFailureThreshold: 2,
		FailuresInPeriodThreshold:   3,
		Period:                      24 * time.Hour,
		Cooldown:                    4 * time.Hour,
		HistoryLimit:                10,
		DeliveryDelays: map[domain.EscalationLevel]time.Duration{
			domain.EscalationLevelLow:      15 * time.Minute,
			domain.EscalationLevelHigh:     5 * time.Minute,
			domain.EscalationLevelCritical: 0,
		},
	}
}

// Evaluator превращает историю провалов цели в ступенчатые эскалации с уведомлениями
type Evaluator struct {
	escalationRepo repository.EscalationRepository
	summaryRepo    repository.SummaryRepository
	registry       *checker.Registry
	sender         notifier.Sender
	config         *Config
	logger         logger.Logger
	metrics        *metrics.Metrics
}

// NewEvaluator создает новый экземпляр Evaluator
func NewEvaluator(
	escalationRepo repository.EscalationRepository,
	summaryRepo repository.SummaryRepository,
	registry *checker.Registry,
	sender notifier.Sender,
	config *Config,
	log logger.Logger,
	m *metrics.Metrics,
) *Evaluator {
	if config == nil {
		config = DefaultConfig()
	}

	return &Evaluator{
		escalationRepo: escalationRepo,
		summaryRepo:    summaryRepo,
		registry:       registry,
		sender:         sender,
		config:         config,
		logger:         log,
		metrics:        m,
	}
}

// Evaluate оценивает сводку завершенного сканирования и решает, нужна ли эскалация.
// Сводка должна быть сохранена до вызова: серия провалов считается по истории в БД.
func (e *Evaluator) Evaluate(ctx context.Context, target *domain.Target, summary *domain.ScanSummary) (domain.EvaluationResult, error) {
	if target == nil || summary == nil {
		return "", errors.New(errors.ErrValidation, "target and summary are required").
			WithContext(ctx)
	}

	level, reason, err := e.computeLevel(ctx, target.ID, summary)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "failed to compute escalation level").
			WithDetails(fmt.Sprintf("target_id: %s, scan_id: %s", target.ID, summary.ID)).
			WithContext(ctx)
	}

	e.logger.Debug("Escalation level computed",
		logger.String("target_id", target.ID),
		logger.String("scan_id", summary.ID),
		logger.Int("level", int(level)),
		logger.String("reason", reason),
	)

	// Уровень 0: эскалация не нужна, полностью успешное сканирование
	// разрешает активную эскалацию
	if level == domain.EscalationLevelNone {
		if summary.FullyPassed() {
			resolved, active, err := e.resolveActive(ctx, target.ID, "scan fully passed")
			if err != nil {
				return "", err
			}
			if resolved {
				e.dispatch(ctx, target, active, domain.TemplateEscalationResolved, 0, e.notificationData(target, active, summary))
			}
		}
		return domain.EvaluationNoEscalationNeeded, nil
	}

	active, err := e.escalationRepo.GetActiveByTarget(ctx, target.ID)
	if err != nil && !errors.IsNotFound(err) {
		return "", errors.Wrap(err, errors.ErrInternal, "failed to get active escalation").
			WithDetails(fmt.Sprintf("target_id: %s", target.ID)).
			WithContext(ctx)
	}

	now := time.Now()

	if active != nil {
		// Период охлаждения гасит любые новые уведомления,
		// даже если вычисленный уровень выше текущего
		if active.InCooldown(now) {
			e.logger.Debug("Escalation in cooldown, no new notification",
				logger.String("target_id", target.ID),
				logger.String("escalation_id", active.ID),
				logger.Int("active_level", int(active.Level)),
				logger.Int("candidate_level", int(level)),
				logger.String("cooldown_until", active.CooldownUntil.Format(time.RFC3339)),
			)
			return domain.EvaluationInCooldown, nil
		}

		// Понижение или тот же уровень повторных уведомлений не порождает
		if level <= active.Level {
			e.logger.Debug("No escalation increase needed",
				logger.String("target_id", target.ID),
				logger.String("escalation_id", active.ID),
				logger.Int("active_level", int(active.Level)),
				logger.Int("candidate_level", int(level)),
			)
			return domain.EvaluationNoIncreaseNeeded, nil
		}

		active.Raise(level, reason, e.config.Cooldown)

		if err := e.escalationRepo.Update(ctx, active); err != nil {
			return "", errors.Wrap(err, errors.ErrInternal, "failed to update escalation").
				WithDetails(fmt.Sprintf("escalation_id: %s", active.ID)).
				WithContext(ctx)
		}

		e.metrics.IncEscalationTriggered(int(level))

		e.logger.Info("Escalation level raised",
			logger.String("target_id", target.ID),
			logger.String("escalation_id", active.ID),
			logger.Int("level", int(level)),
			logger.String("trigger_reason", reason),
			logger.String("cooldown_until", active.CooldownUntil.Format(time.RFC3339)),
		)

		e.dispatch(ctx, target, active, domain.TemplateForLevel(level), e.config.DeliveryDelays[level], e.notificationData(target, active, summary))

		return domain.EvaluationEscalationUpdated, nil
	}

	escalation := domain.NewEscalation(target.ID, level, reason, e.config.Cooldown)

	if err := e.escalationRepo.Create(ctx, escalation); err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "failed to create escalation").
			WithDetails(fmt.Sprintf("target_id: %s", target.ID)).
			WithContext(ctx)
	}

	e.metrics.IncEscalationTriggered(int(level))

	e.logger.Info("Escalation created",
		logger.String("target_id", target.ID),
		logger.String("escalation_id", escalation.ID),
		logger.Int("level", int(level)),
		logger.String("trigger_reason", reason),
		logger.String("cooldown_until", escalation.CooldownUntil.Format(time.RFC3339)),
	)

	e.dispatch(ctx, target, escalation, domain.TemplateForLevel(level), e.config.DeliveryDelays[level], e.notificationData(target, escalation, summary))

	return domain.EvaluationEscalationCreated, nil
}

// ResolveEscalation разрешает активную эскалацию цели.
// Успешный no-op, если активной эскалации нет.
func (e *Evaluator) ResolveEscalation(ctx context.Context, targetID, reason string) (domain.EvaluationResult, error) {
	resolved, _, err := e.resolveActive(ctx, targetID, reason)
	if err != nil {
		return "", err
	}
	if !resolved {
		return domain.EvaluationNoEscalationNeeded, nil
	}
	return domain.EvaluationEscalationResolved, nil
}

// ListActive возвращает все активные эскалации для оператора
func (e *Evaluator) ListActive(ctx context.Context) ([]*domain.Escalation, error) {
	escalations, err := e.escalationRepo.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to list active escalations").
			WithContext(ctx)
	}
	return escalations, nil
}

// computeLevel вычисляет уровень эскалации как максимум трех независимых сигналов
func (e *Evaluator) computeLevel(ctx context.Context, targetID string, summary *domain.ScanSummary) (domain.EscalationLevel, string, error) {
	if !summary.HasFailures() {
		return domain.EscalationLevelNone, "", nil
	}

	// Сигнал 1: провал проверки критической категории - сразу уровень 3,
	// пороги серий и окна не учитываются
	if name, ok := e.criticalFailure(summary); ok {
		return domain.EscalationLevelCritical, fmt.Sprintf("critical check failed: %s", name), nil
	}

	level := domain.EscalationLevelNone
	reason := ""

	// Сигнал 2: серия провалов подряд без успешных сканирований между ними
	consecutive, err := e.consecutiveFailures(ctx, targetID)
	if err != nil {
		return domain.EscalationLevelNone, "", err
	}
	if consecutive >= e.config.ConsecutiveFailureThreshold {
		level = domain.EscalationLevelHigh
		reason = fmt.Sprintf("%d consecutive failed scans", consecutive)
	}

	// Сигнал 3: количество провалов за скользящее окно
	if level < domain.EscalationLevelHigh {
		since := time.Now().Add(-e.config.Period)
		failures, err := e.summaryRepo.CountFailuresSince(ctx, targetID, since)
		if err != nil {
			return domain.EscalationLevelNone, "", err
		}
		if failures >= e.config.FailuresInPeriodThreshold {
			level = domain.EscalationLevelHigh
			reason = fmt.Sprintf("%d failed scans within %s", failures, e.config.Period)
		}
	}

	return level, reason, nil
}

// criticalFailure ищет в сводке провал проверки критической категории
func (e *Evaluator) criticalFailure(summary *domain.ScanSummary) (string, bool) {
	for _, outcome := range summary.Outcomes {
		if outcome.Status != domain.CheckStatusFail {
			continue
		}

		check, err := e.registry.Get(outcome.CheckName)
		if err != nil {
			// Проверка могла быть выключена после сканирования
			continue
		}

		if check.Category() == domain.CheckCategoryCritical {
			return outcome.CheckName, true
		}
	}

	return "", false
}

// consecutiveFailures считает серию проваленных сканирований, новые первыми.
// Любое не проваленное сканирование обрывает серию.
func (e *Evaluator) consecutiveFailures(ctx context.Context, targetID string) (int, error) {
	summaries, err := e.summaryRepo.GetRecent(ctx, targetID, e.config.HistoryLimit)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, s := range summaries {
		if s.Status != domain.ScanStatusFailed {
			break
		}
		count++
	}

	return count, nil
}

// resolveActive разрешает активную эскалацию цели, если она существует
func (e *Evaluator) resolveActive(ctx context.Context, targetID, reason string) (bool, *domain.Escalation, error) {
	active, err := e.escalationRepo.GetActiveByTarget(ctx, targetID)
	if err != nil {
		if errors.IsNotFound(err) {
			return false, nil, nil
		}
		return false, nil, errors.Wrap(err, errors.ErrInternal, "failed to get active escalation").
			WithDetails(fmt.Sprintf("target_id: %s", targetID)).
			WithContext(ctx)
	}

	level := active.Level
	active.Resolve(reason)

	if err := e.escalationRepo.Update(ctx, active); err != nil {
		return false, nil, errors.Wrap(err, errors.ErrInternal, "failed to resolve escalation").
			WithDetails(fmt.Sprintf("escalation_id: %s", active.ID)).
			WithContext(ctx)
	}

	e.metrics.IncEscalationResolved()

	e.logger.Info("Escalation resolved",
		logger.String("target_id", targetID),
		logger.String("escalation_id", active.ID),
		logger.Int("level", int(level)),
		logger.String("resolution_reason", reason),
	)

	return true, active, nil
}

// dispatch отправляет уведомление во все каналы цели, разрешенные для уровня эскалации.
// Ошибки доставки логируются и не откатывают состояние эскалации:
// запись эскалации остается источником истины.
func (e *Evaluator) dispatch(ctx context.Context, target *domain.Target, escalation *domain.Escalation, templateKey string, delay time.Duration, data map[string]interface{}) {
	allowed := domain.ChannelsForLevel(escalation.Level)

	for _, cc := range target.Channels {
		if !containsChannel(allowed, cc.Channel) {
			continue
		}

		req := domain.NewNotificationRequest(cc.Channel, cc.Recipient, templateKey, data)
		req.DelaySeconds = int(delay.Seconds())

		if err := e.sender.Send(ctx, req); err != nil {
			e.logger.Error("Failed to send escalation notification",
				logger.String("target_id", target.ID),
				logger.String("escalation_id", escalation.ID),
				logger.String("channel", string(cc.Channel)),
				logger.String("template_key", templateKey),
				logger.Error(err),
			)
		}
	}
}

// notificationData собирает полезную нагрузку уведомления
func (e *Evaluator) notificationData(target *domain.Target, escalation *domain.Escalation, summary *domain.ScanSummary) map[string]interface{} {
	data := map[string]interface{}{
		"target_id":      target.ID,
		"target_name":    target.Name,
		"target_url":     target.URL,
		"escalation_id":  escalation.ID,
		"level":          int(escalation.Level),
		"trigger_reason": escalation.TriggerReason,
	}

	if summary != nil {
		data["scan_id"] = summary.ID
		data["total"] = summary.Total
		data["failed"] = summary.Failed
		data["warnings"] = summary.Warnings
		data["errors"] = summary.Errors
	}

	return data
}

// containsChannel проверяет вхождение канала в список
func containsChannel(channels []domain.NotificationChannel, channel domain.NotificationChannel) bool {
	for _, c := range channels {
		if c == channel {
			return true
		}
	}
	return false
}
