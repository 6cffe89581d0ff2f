package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationChannel представляет канал доставки уведомлений
type NotificationChannel string

const (
	ChannelEmail   NotificationChannel = "email"
	ChannelSMS     NotificationChannel = "sms"
	ChannelWebhook NotificationChannel = "webhook"
)

// IsValidChannel проверяет валидность канала уведомлений
func IsValidChannel(channel NotificationChannel) bool {
	switch channel {
	case ChannelEmail, ChannelSMS, ChannelWebhook:
		return true
	default:
		return false
	}
}

// Ключи шаблонов уведомлений об эскалациях
const (
	TemplateEscalationLevel1   = "escalation_level_1"
	TemplateEscalationLevel2   = "escalation_level_2"
	TemplateEscalationLevel3   = "escalation_level_3"
	TemplateEscalationResolved = "escalation_resolved"
)

// TemplateForLevel возвращает ключ шаблона для уровня эскалации
func TemplateForLevel(level EscalationLevel) string {
	switch level {
	case EscalationLevelLow:
		return TemplateEscalationLevel1
	case EscalationLevelHigh:
		return TemplateEscalationLevel2
	case EscalationLevelCritical:
		return TemplateEscalationLevel3
	default:
		return ""
	}
}

// ChannelsForLevel возвращает каналы доставки для уровня эскалации
func ChannelsForLevel(level EscalationLevel) []NotificationChannel {
	switch level {
	case EscalationLevelLow:
		return []NotificationChannel{ChannelEmail}
	case EscalationLevelHigh:
		return []NotificationChannel{ChannelEmail, ChannelSMS}
	case EscalationLevelCritical:
		return []NotificationChannel{ChannelEmail, ChannelSMS, ChannelWebhook}
	default:
		return nil
	}
}

// NotificationRequest представляет запрос на отправку уведомления
type NotificationRequest struct {
	ID           string                 `json:"id"`
	Channel      NotificationChannel    `json:"channel"`
	Recipient    string                 `json:"recipient"`
	TemplateKey  string                 `json:"template_key"`
	Data         map[string]interface{} `json:"data,omitempty"`
	DelaySeconds int                    `json:"delay_seconds,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// NewNotificationRequest создает новый запрос на уведомление
func NewNotificationRequest(channel NotificationChannel, recipient, templateKey string, data map[string]interface{}) *NotificationRequest {
	return &NotificationRequest{
		ID:          uuid.New().String(),
		Channel:     channel,
		Recipient:   recipient,
		TemplateKey: templateKey,
		Data:        data,
		CreatedAt:   time.Now(),
	}
}
