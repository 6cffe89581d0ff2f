package errors

import (
	"context"
	"fmt"
	"net/http"
)

// Error представляет кастомную ошибку с дополнительной информацией
type Error struct {
	Code    ErrorCode       `json:"code"`
	Message string          `json:"message"`
	Details string          `json:"details,omitempty"`
	Cause   error           `json:"-"`
	Context context.Context `json:"-"`
}

// ErrorCode представляет код ошибки
type ErrorCode string

// Определение кодов ошибок
const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrValidation     ErrorCode = "VALIDATION_ERROR"
	ErrInternal       ErrorCode = "INTERNAL_ERROR"
	ErrConflict       ErrorCode = "CONFLICT"
	ErrTimeout        ErrorCode = "TIMEOUT"
	ErrUnknownCheck   ErrorCode = "UNKNOWN_CHECK"
	ErrDuplicateCheck ErrorCode = "DUPLICATE_CHECK"
	ErrInvalidState   ErrorCode = "INVALID_STATE"
)

// Error возвращает сообщение об ошибке
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap возвращает причину ошибки
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is проверяет, является ли ошибка указанного типа
func (e *Error) Is(target error) bool {
	if targetError, ok := target.(*Error); ok {
		return e.Code == targetError.Code
	}
	return false
}

// New создает новую кастомную ошибку
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap оборачивает существующую ошибку в кастомную
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WithDetails добавляет детали к ошибке
func (e *Error) WithDetails(details string) *Error {
	if e == nil {
		return nil
	}
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
		Context: e.Context,
	}
}

// WithContext добавляет контекст к ошибке
func (e *Error) WithContext(ctx context.Context) *Error {
	if e == nil {
		return nil
	}
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   e.Cause,
		Context: ctx,
	}
}

// GetCode возвращает код ошибки или ErrInternal для сторонних ошибок
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if appErr, ok := err.(*Error); ok {
		return appErr.Code
	}
	return ErrInternal
}

// IsCode проверяет, имеет ли ошибка указанный код
func IsCode(err error, code ErrorCode) bool {
	if appErr, ok := err.(*Error); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound проверяет, является ли ошибка ошибкой "не найдено"
func IsNotFound(err error) bool {
	return IsCode(err, ErrNotFound)
}

// IsConflict проверяет, является ли ошибка конфликтом
func IsConflict(err error) bool {
	return IsCode(err, ErrConflict)
}

// IsUnknownCheck проверяет, является ли ошибка ошибкой неизвестной проверки
func IsUnknownCheck(err error) bool {
	return IsCode(err, ErrUnknownCheck)
}

// IsDuplicateCheck проверяет, является ли ошибка ошибкой дублирования проверки
func IsDuplicateCheck(err error) bool {
	return IsCode(err, ErrDuplicateCheck)
}

// IsInvalidState проверяет, является ли ошибка ошибкой недопустимого перехода состояния
func IsInvalidState(err error) bool {
	return IsCode(err, ErrInvalidState)
}

// HTTPStatus возвращает соответствующий HTTP статус для ошибки
func (e *Error) HTTPStatus() int {
	if e == nil {
		return http.StatusOK
	}

	switch e.Code {
	case ErrNotFound, ErrUnknownCheck:
		return http.StatusNotFound
	case ErrValidation:
		return http.StatusBadRequest
	case ErrConflict, ErrDuplicateCheck, ErrInvalidState:
		return http.StatusConflict
	case ErrTimeout:
		return http.StatusGatewayTimeout
	case ErrInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
