package checker

import (
	"fmt"
	"sort"
	"sync"

	"SiteWatchPlatform/pkg/errors"
	"SiteWatchPlatform/pkg/logger"
)

// registryEntry хранит проверку и ее состояние включенности
type registryEntry struct {
	check   Check
	enabled bool
}

// Registry представляет реестр подключаемых проверок
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*registryEntry
	logger  logger.Logger
}

// NewRegistry создает новый реестр проверок
func NewRegistry(log logger.Logger) *Registry {
	return &Registry{
		entries: make(map[string]*registryEntry),
		logger:  log,
	}
}

// Register регистрирует проверку в реестре
func (r *Registry) Register(check Check) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := check.Name()
	if _, exists := r.entries[name]; exists {
		return errors.New(errors.ErrDuplicateCheck, fmt.Sprintf("check '%s' is already registered", name))
	}

	r.entries[name] = &registryEntry{check: check, enabled: true}
	r.logger.Info("Check registered",
		logger.String("check", name),
		logger.String("category", string(check.Category())),
	)

	return nil
}

// Get возвращает проверку по имени
func (r *Registry) Get(name string) (Check, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[name]
	if !exists {
		return nil, errors.New(errors.ErrUnknownCheck, fmt.Sprintf("check '%s' is not registered", name))
	}

	return entry.check, nil
}

// List возвращает сведения о зарегистрированных проверках с учетом фильтра
func (r *Registry) List(filter *ListFilter) []CheckInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]CheckInfo, 0, len(r.entries))
	for name, entry := range r.entries {
		if filter != nil {
			if filter.Enabled != nil && entry.enabled != *filter.Enabled {
				continue
			}
			if filter.Category != nil && entry.check.Category() != *filter.Category {
				continue
			}
		}

		infos = append(infos, CheckInfo{
			Name:        name,
			Description: entry.check.Description(),
			Category:    entry.check.Category(),
			Enabled:     entry.enabled,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})

	return infos
}

// Enable включает проверку по имени
func (r *Registry) Enable(name string) error {
	return r.setEnabled(name, true)
}

// Disable выключает проверку по имени
func (r *Registry) Disable(name string) error {
	return r.setEnabled(name, false)
}

// IsEnabled проверяет, включена ли проверка
func (r *Registry) IsEnabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[name]
	return exists && entry.enabled
}

// setEnabled изменяет состояние включенности проверки
func (r *Registry) setEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[name]
	if !exists {
		return errors.New(errors.ErrUnknownCheck, fmt.Sprintf("check '%s' is not registered", name))
	}

	entry.enabled = enabled
	r.logger.Info("Check state changed",
		logger.String("check", name),
		logger.Bool("enabled", enabled),
	)

	return nil
}
