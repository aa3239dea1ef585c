package backend

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/graphquill/graphquill/core/domain/interfaces"
	"github.com/graphquill/graphquill/core/infrastructure/logging"
)

// Manager manages backends with parallel initialization and shutdown.
type Manager struct {
	backends map[string]interfaces.Backend
	mu       sync.RWMutex
}

// NewManager creates a new Manager instance
func NewManager() *Manager {
	return &Manager{
		backends: make(map[string]interfaces.Backend),
	}
}

// InitializeAll creates all backends in parallel from the given configs.
// If any backend fails to initialize, all successfully created backends are
// closed.
func (m *Manager) InitializeAll(configs []Config) error {
	if len(configs) == 0 {
		return nil
	}

	log := logging.New("backend:manager")
	log.Infof("Initializing %d backend(s)", len(configs))

	g, _ := errgroup.WithContext(context.Background())

	for _, cfg := range configs {
		g.Go(func() error {
			log.Debugf("Connecting backend '%s' (%s)", cfg.Name, cfg.Kind)

			b, err := New(cfg)
			if err != nil {
				return fmt.Errorf("failed to create backend '%s': %w", cfg.Name, err)
			}

			m.mu.Lock()
			m.backends[cfg.Name] = b
			m.mu.Unlock()

			log.Infof("Backend '%s' connected", cfg.Name)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		m.CloseAll()
		return err
	}

	return nil
}

// Get returns a backend by name
func (m *Manager) Get(name string) (interfaces.Backend, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, exists := m.backends[name]
	return b, exists
}

// GetAll returns a copy of the backends map
func (m *Manager) GetAll() map[string]interfaces.Backend {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]interfaces.Backend, len(m.backends))
	maps.Copy(result, m.backends)
	return result
}

// PingAll verifies connectivity of every managed backend.
func (m *Manager) PingAll(ctx context.Context) error {
	var errs []error
	for name, b := range m.GetAll() {
		if err := b.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("backend '%s': %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// CloseAll closes all backends in parallel, collecting and returning all
// errors.
func (m *Manager) CloseAll() error {
	m.mu.RLock()
	count := len(m.backends)
	if count == 0 {
		m.mu.RUnlock()
		return nil
	}

	log := logging.New("backend:manager")
	log.Debugf("Closing %d backend(s)...", count)

	var wg sync.WaitGroup
	errChan := make(chan error, count)

	for name, b := range m.backends {
		wg.Add(1)
		go func(name string, b interfaces.Backend) {
			defer wg.Done()
			if err := b.Close(); err != nil {
				errChan <- fmt.Errorf("backend '%s': %w", name, err)
			} else {
				log.Debugf("Backend '%s' closed", name)
			}
		}(name, b)
	}
	m.mu.RUnlock()

	wg.Wait()
	close(errChan)

	m.mu.Lock()
	m.backends = make(map[string]interfaces.Backend)
	m.mu.Unlock()

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
