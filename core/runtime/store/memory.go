package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/graphquill/graphquill/core/domain"
	"github.com/graphquill/graphquill/core/shared/errors"
)

// MemoryStore is an in-memory DefinitionStore used for seed-file serving,
// development and tests. Safe for concurrent use.
type MemoryStore struct {
	mu           sync.RWMutex
	templates    map[string]*domain.Template
	compositions map[string]*domain.Composition
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		templates:    make(map[string]*domain.Template),
		compositions: make(map[string]*domain.Composition),
	}
}

// Lookup returns the template definition for name
func (s *MemoryStore) Lookup(ctx context.Context, name string) (*domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tpl, ok := s.templates[name]
	if !ok {
		return nil, errors.TemplateNotFound(name)
	}
	cloned := *tpl
	return &cloned, nil
}

// LookupComposition returns the composition metadata for a composed template
func (s *MemoryStore) LookupComposition(ctx context.Context, name string) (*domain.Composition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comp, ok := s.compositions[name]
	if !ok || len(comp.Components) == 0 {
		return nil, errors.CompositionNotFound(name)
	}

	cloned := domain.Composition{
		Name:       comp.Name,
		Kind:       comp.Kind,
		Components: make([]domain.ComponentRef, len(comp.Components)),
	}
	copy(cloned.Components, comp.Components)
	return &cloned, nil
}

// Create stores a new template definition
func (s *MemoryStore) Create(ctx context.Context, tpl *domain.Template) error {
	if tpl.Name == "" {
		return errors.InvalidInput("template name must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *tpl
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now().UTC()
	}
	s.templates[stored.Name] = &stored
	return nil
}

// Compose creates a composed template from existing component templates
func (s *MemoryStore) Compose(ctx context.Context, name, description string, kind domain.CompositionKind, componentNames []string) (*domain.Template, error) {
	if !kind.Valid() {
		return nil, errors.InvalidInput("composition_type must be SEQUENCE or PARALLEL")
	}
	if len(componentNames) == 0 {
		return nil, errors.InvalidInput("composition requires at least one component template")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, componentName := range componentNames {
		if _, ok := s.templates[componentName]; !ok {
			return nil, errors.InvalidInput("one or more templates not found")
		}
	}

	composed := &domain.Template{
		Name:            name,
		Description:     description,
		Purpose:         "Composed template",
		Version:         "1.0",
		UpdatedAt:       time.Now().UTC(),
		CompositionKind: kind,
	}

	components := make([]domain.ComponentRef, len(componentNames))
	for i, componentName := range componentNames {
		components[i] = domain.ComponentRef{TemplateName: componentName, Order: i}
	}

	s.templates[name] = composed
	s.compositions[name] = &domain.Composition{
		Name:       name,
		Kind:       kind,
		Components: components,
	}

	cloned := *composed
	return &cloned, nil
}

// Search returns templates whose description or purpose contains term, most
// recently updated first
func (s *MemoryStore) Search(ctx context.Context, term string) ([]*domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*domain.Template
	for _, tpl := range s.templates {
		if term == "" ||
			strings.Contains(tpl.Description, term) ||
			strings.Contains(tpl.Purpose, term) {
			cloned := *tpl
			matches = append(matches, &cloned)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].UpdatedAt.After(matches[j].UpdatedAt)
	})
	return matches, nil
}

// Delete removes a template and its composition edges
func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[name]; !ok {
		return errors.TemplateNotFound(name)
	}
	delete(s.templates, name)
	delete(s.compositions, name)
	return nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
