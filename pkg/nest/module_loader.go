package nest

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// ModuleLoader walks a module graph depth-first, registering the
// providers of every import before the providers of the importing module
type ModuleLoader struct {
	store     *MetadataStore
	container *Container
	logger    *zap.Logger

	mu          sync.Mutex
	loaded      map[reflect.Type]bool
	order       []reflect.Type
	controllers []reflect.Type
}

// NewModuleLoader creates a loader that registers providers in container
func NewModuleLoader(store *MetadataStore, container *Container, logger *zap.Logger) *ModuleLoader {
	if store == nil {
		store = DefaultMetadata
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModuleLoader{
		store:     store,
		container: container,
		logger:    logger,
		loaded:    make(map[reflect.Type]bool),
	}
}

// LoadModule loads module and, first, everything it imports. Loading an
// already loaded module is a no-op.
func (l *ModuleLoader) LoadModule(module reflect.Type) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.load(module)
}

func (l *ModuleLoader) load(module reflect.Type) error {
	if l.loaded[module] {
		return nil
	}

	raw, ok := l.store.Get(ModuleMetadata, TypeSubject(module))
	if !ok {
		return &InvalidModuleError{Module: ProviderName(module)}
	}
	record, ok := raw.(ModuleRecord)
	if !ok {
		return &InvalidModuleError{Module: ProviderName(module)}
	}

	// Mark before descending so import cycles between modules terminate.
	l.loaded[module] = true

	for _, imported := range record.Imports {
		if err := l.load(imported); err != nil {
			delete(l.loaded, module)
			return err
		}
	}

	for _, provider := range record.Providers {
		if err := l.container.AddProvider(provider); err != nil {
			delete(l.loaded, module)
			return fmt.Errorf("module %s: %w", ProviderName(module), err)
		}
	}

	l.controllers = append(l.controllers, record.Controllers...)
	l.order = append(l.order, module)

	l.logger.Debug("module loaded",
		zap.String("module", ProviderName(module)),
		zap.Int("providers", len(record.Providers)),
		zap.Int("controllers", len(record.Controllers)),
	)
	return nil
}

// GetAllControllers returns the controllers of every loaded module in load
// order. A controller listed by two modules appears twice.
func (l *ModuleLoader) GetAllControllers() []reflect.Type {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]reflect.Type(nil), l.controllers...)
}

// LoadedModules returns the loaded modules in load order
func (l *ModuleLoader) LoadedModules() []reflect.Type {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]reflect.Type(nil), l.order...)
}

// Clear forgets every loaded module
func (l *ModuleLoader) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.loaded = make(map[reflect.Type]bool)
	l.order = nil
	l.controllers = nil
}
