package domain

import (
	"time"
)

// EnabledCheck представляет настройку одной проверки для цели
type EnabledCheck struct {
	Name           string                 `json:"name"`
	Inverted       bool                   `json:"inverted,omitempty"`
	TimeoutSeconds int                    `json:"timeout_seconds,omitempty"`
	Params         map[string]interface{} `json:"params,omitempty"`
}

// StringParam возвращает строковый параметр проверки по ключу
func (c EnabledCheck) StringParam(key string) (string, bool) {
	raw, ok := c.Params[key]
	if !ok {
		return "", false
	}
	value, ok := raw.(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// IntParam возвращает целочисленный параметр проверки по ключу
func (c EnabledCheck) IntParam(key string) (int, bool) {
	raw, ok := c.Params[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// BoolParam возвращает булев параметр проверки по ключу
func (c EnabledCheck) BoolParam(key string) (bool, bool) {
	raw, ok := c.Params[key]
	if !ok {
		return false, false
	}
	value, ok := raw.(bool)
	if !ok {
		return false, false
	}
	return value, true
}

// ChannelConfig представляет настройку канала уведомлений цели
type ChannelConfig struct {
	Channel   NotificationChannel `json:"channel"`
	Recipient string              `json:"recipient"`
}

// Target представляет наблюдаемую цель (сайт)
type Target struct {
	ID        string          `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	URL       string          `json:"url" db:"url"`
	Priority  JobPriority     `json:"priority" db:"priority"`
	Interval  time.Duration   `json:"interval" db:"interval_seconds"`
	NextRunAt time.Time       `json:"next_run_at" db:"next_run_at"`
	Checks    []EnabledCheck  `json:"checks" db:"checks"`
	Channels  []ChannelConfig `json:"channels" db:"channels"`
	Active    bool            `json:"active" db:"active"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// IsDue проверяет, наступило ли время следующего сканирования цели
func (t *Target) IsDue(now time.Time) bool {
	return t.Active && !t.NextRunAt.After(now)
}

// ScheduleNext сдвигает время следующего запуска на настроенный интервал
func (t *Target) ScheduleNext() {
	t.NextRunAt = t.NextRunAt.Add(t.Interval)
	t.UpdatedAt = time.Now()
}

// CheckNames возвращает имена всех включенных проверок цели
func (t *Target) CheckNames() []string {
	names := make([]string, 0, len(t.Checks))
	for _, c := range t.Checks {
		names = append(names, c.Name)
	}
	return names
}

// CheckConfig возвращает настройку проверки по имени
func (t *Target) CheckConfig(name string) (EnabledCheck, bool) {
	for _, c := range t.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return EnabledCheck{}, false
}

// LockInfo представляет информацию о блокировке цели при планировании
type LockInfo struct {
	TargetID  string    `json:"target_id"`
	OwnerID   string    `json:"owner_id"`
	LockedAt  time.Time `json:"locked_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
