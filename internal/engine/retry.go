package engine

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy определяет политику повторов проверки при ошибках выполнения
type RetryPolicy struct {
	MaxRetries int           `json:"max_retries"`
	Delay      time.Duration `json:"delay"`
	Multiplier float64       `json:"multiplier"`
	Jitter     time.Duration `json:"jitter"`
}

// DefaultRetryPolicy возвращает политику повторов по умолчанию
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		Delay:      2 * time.Second,
		Multiplier: 1.0,
	}
}

// DelayFor возвращает задержку перед повтором с указанным номером попытки
func (p RetryPolicy) DelayFor(attempt int) time.Duration {
	if p.Delay <= 0 {
		return 0
	}

	multiplier := p.Multiplier
	if multiplier < 1.0 {
		multiplier = 1.0
	}

	delay := time.Duration(float64(p.Delay) * math.Pow(multiplier, float64(attempt)))
	if p.Jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(p.Jitter)))
	}

	return delay
}
