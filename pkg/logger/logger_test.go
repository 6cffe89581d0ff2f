package logger

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestNewLogger_DevEnvironment проверяет создание логгера для dev окружения
func TestNewLogger_DevEnvironment(t *testing.T) {
	logger, err := NewLogger("dev", "debug", "test-service")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if logger == nil {
		t.Fatal("Expected logger, got nil")
	}

	// Проверяем, что можно записывать логи
	logger.Info("Test message")
	logger.With(String("test", "value")).Info("Test message with field")
}

// TestNewLogger_ProdEnvironment проверяет создание логгера для prod окружения
func TestNewLogger_ProdEnvironment(t *testing.T) {
	logger, err := NewLogger("prod", "info", "test-service")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if logger == nil {
		t.Fatal("Expected logger, got nil")
	}

	logger.Info("Test message")
	logger.Error("Test error")
}

// TestLogger_Levels проверяет все уровни логирования
func TestLogger_Levels(t *testing.T) {
	logger, err := NewLogger("dev", "debug", "test-service")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	logger.Debug("Debug message")
	logger.Info("Info message")
	logger.Warn("Warn message")
	logger.Error("Error message")
}

// TestLogger_WithFields проверяет добавление полей к логгеру
func TestLogger_WithFields(t *testing.T) {
	logger, err := NewLogger("dev", "debug", "test-service")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	logger = logger.With(
		String("component", "test"),
		Int("instance", 1),
	)

	logger.Info("Test message with component")
}

// TestLogger_CtxField проверяет создание поля с trace_id из контекста
func TestLogger_CtxField(t *testing.T) {
	ctx := context.WithValue(context.Background(), "trace_id", "test-trace-123")

	field := CtxField(ctx)

	if field.Field.Key != "trace_id" {
		t.Errorf("Expected field key to be 'trace_id', got %s", field.Field.Key)
	}

	if field.Field.String == "" {
		t.Error("Expected field value, got empty")
	}
}

// TestLogger_CtxField_Missing проверяет поведение без trace_id в контексте
func TestLogger_CtxField_Missing(t *testing.T) {
	field := CtxField(context.Background())

	if field.Field.String != "unknown" {
		t.Errorf("Expected 'unknown' trace_id, got %s", field.Field.String)
	}
}

// TestLogger_Fields проверяет создание различных типов полей
func TestLogger_Fields(t *testing.T) {
	stringField := String("name", "test")
	if stringField.Field.Key != "name" {
		t.Errorf("Expected string field key to be 'name', got %s", stringField.Field.Key)
	}

	intField := Int("count", 42)
	if intField.Field.Key != "count" {
		t.Errorf("Expected int field key to be 'count', got %s", intField.Field.Key)
	}

	int64Field := Int64("duration_ms", 1500)
	if int64Field.Field.Key != "duration_ms" {
		t.Errorf("Expected int64 field key to be 'duration_ms', got %s", int64Field.Field.Key)
	}

	float64Field := Float64("value", 3.14)
	if float64Field.Field.Key != "value" {
		t.Errorf("Expected float64 field key to be 'value', got %s", float64Field.Field.Key)
	}

	boolField := Bool("active", true)
	if boolField.Field.Key != "active" {
		t.Errorf("Expected bool field key to be 'active', got %s", boolField.Field.Key)
	}

	durField := Duration("elapsed", 2*time.Second)
	if durField.Field.Key != "elapsed" {
		t.Errorf("Expected duration field key to be 'elapsed', got %s", durField.Field.Key)
	}

	timeField := Time("next_run", time.Now())
	if timeField.Field.Key != "next_run" {
		t.Errorf("Expected time field key to be 'next_run', got %s", timeField.Field.Key)
	}

	anyField := Any("data", map[string]interface{}{"key": "value"})
	if anyField.Field.Key != "data" {
		t.Errorf("Expected any field key to be 'data', got %s", anyField.Field.Key)
	}
}

// TestLogger_ErrorField проверяет создание поля с ошибкой
func TestLogger_ErrorField(t *testing.T) {
	errField := Error(errors.New("boom"))
	if errField.Field.Key != "error" {
		t.Errorf("Expected error field key to be 'error', got %s", errField.Field.Key)
	}
	if errField.Field.String != "boom" {
		t.Errorf("Expected error field value to be 'boom', got %s", errField.Field.String)
	}

	nilField := Error(nil)
	if nilField.Field.String != "nil" {
		t.Errorf("Expected 'nil' for nil error, got %s", nilField.Field.String)
	}
}

// TestNewLogger_InvalidLevel проверяет создание логгера с некорректным уровнем
func TestNewLogger_InvalidLevel(t *testing.T) {
	// При некорректном уровне должен использоваться info по умолчанию
	logger, err := NewLogger("dev", "invalid", "test-service")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if logger == nil {
		t.Fatal("Expected logger, got nil")
	}
}
