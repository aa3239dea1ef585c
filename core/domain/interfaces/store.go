package interfaces

import (
	"context"

	"github.com/graphquill/graphquill/core/domain"
)

// DefinitionStore persists and looks up template and composition metadata by
// name. Lookup methods have no side effects.
type DefinitionStore interface {
	// Lookup returns the template definition for name, or an error carrying
	// errors.ErrCodeTemplateNotFound when no definition exists.
	Lookup(ctx context.Context, name string) (*domain.Template, error)

	// LookupComposition returns the composition metadata for a composed
	// template, or an error carrying errors.ErrCodeCompositionNotFound when
	// the template is absent, is not marked composed, or has no component
	// edges.
	LookupComposition(ctx context.Context, name string) (*domain.Composition, error)

	// Create stores a new template definition.
	Create(ctx context.Context, tpl *domain.Template) error

	// Compose creates a composed template from existing component templates.
	// Every name in componentNames must already exist in the store.
	Compose(ctx context.Context, name, description string, kind domain.CompositionKind, componentNames []string) (*domain.Template, error)

	// Search returns templates whose description or purpose contains term,
	// most recently updated first.
	Search(ctx context.Context, term string) ([]*domain.Template, error)

	// Delete removes a template and, if composed, its component edges.
	Delete(ctx context.Context, name string) error

	// Close releases store resources.
	Close() error
}
