package checker

import (
	"context"

	"SiteWatchPlatform/internal/domain"
)

// Check определяет интерфейс подключаемой проверки цели
type Check interface {
	// Name возвращает уникальное имя проверки
	Name() string

	// Description возвращает человекочитаемое описание проверки
	Description() string

	// Category возвращает категорию проверки
	Category() domain.CheckCategory

	// Run выполняет проверку цели и возвращает результат
	Run(ctx context.Context, target *domain.Target) (*domain.CheckOutcome, error)
}

// CheckInfo представляет сведения о зарегистрированной проверке
type CheckInfo struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Category    domain.CheckCategory `json:"category"`
	Enabled     bool                 `json:"enabled"`
}

// ListFilter представляет фильтры для списка проверок
type ListFilter struct {
	Enabled  *bool                 `json:"enabled,omitempty"`
	Category *domain.CheckCategory `json:"category,omitempty"`
}
