package validation

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Validator предоставляет общие функции валидации
type Validator struct{}

// NewValidator создает новый Validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateURL проверяет корректность URL
func (v *Validator) ValidateURL(target string, allowedSchemes []string) error {
	if target == "" {
		return fmt.Errorf("target is required")
	}

	parsedURL, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	// Проверяем схему
	if len(allowedSchemes) > 0 {
		schemeValid := false
		for _, scheme := range allowedSchemes {
			if parsedURL.Scheme == scheme {
				schemeValid = true
				break
			}
		}
		if !schemeValid {
			return fmt.Errorf("URL must use one of allowed schemes %v, got: %s", allowedSchemes, parsedURL.Scheme)
		}
	}

	// Проверяем хост
	if parsedURL.Host == "" {
		return fmt.Errorf("URL must have a valid host")
	}

	if strings.ContainsAny(target, " \t\n\r") {
		return fmt.Errorf("URL contains invalid whitespace characters")
	}

	return nil
}

// ValidateHostPort проверяет корректность host:port формата
func (v *Validator) ValidateHostPort(target string) error {
	if target == "" {
		return fmt.Errorf("target is required")
	}

	if strings.ContainsAny(target, " \t\n\r") {
		return fmt.Errorf("target contains invalid whitespace characters")
	}

	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return fmt.Errorf("target should not include http/https scheme")
	}

	if !strings.Contains(target, ":") {
		return fmt.Errorf("target must be in host:port format")
	}

	return nil
}

// ValidateInterval проверяет корректность интервала
func (v *Validator) ValidateInterval(interval int32, min, max int32) error {
	if interval < min {
		return fmt.Errorf("interval must be at least %d, got: %d", min, interval)
	}
	if interval > max {
		return fmt.Errorf("interval must not exceed %d, got: %d", max, interval)
	}
	return nil
}

// ValidateTimeout проверяет корректность таймаута
func (v *Validator) ValidateTimeout(timeout int32, min, max int32) error {
	if timeout < min {
		return fmt.Errorf("timeout must be at least %d second, got: %d", min, timeout)
	}
	if timeout > max {
		return fmt.Errorf("timeout must not exceed %d seconds, got: %d", max, timeout)
	}
	return nil
}

// ValidateEnum проверяет значение на соответствие enum
func (v *Validator) ValidateEnum(value string, allowedValues []string, fieldName string) error {
	if value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	for _, allowed := range allowedValues {
		if value == allowed {
			return nil
		}
	}

	return fmt.Errorf("invalid %s: %s, allowed values: %v", fieldName, value, allowedValues)
}

// ValidateStringLength проверяет длину строки
func (v *Validator) ValidateStringLength(value, fieldName string, min, max int) error {
	length := len(value)
	if length < min {
		return fmt.Errorf("%s must be at least %d characters, got: %d", fieldName, min, length)
	}
	if length > max {
		return fmt.Errorf("%s must not exceed %d characters, got: %d", fieldName, max, length)
	}
	return nil
}

// ValidateUUID проверяет формат UUID
func (v *Validator) ValidateUUID(id string, fieldName string) error {
	if id == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid %s format: %w", fieldName, err)
	}

	return nil
}

// ValidateTimestamp проверяет временной штамп
func (v *Validator) ValidateTimestamp(ts time.Time, fieldName string) error {
	if ts.IsZero() {
		return fmt.Errorf("%s cannot be zero", fieldName)
	}

	if ts.After(time.Now().Add(24 * time.Hour)) {
		return fmt.Errorf("%s cannot be more than 24 hours in the future", fieldName)
	}

	return nil
}
