package services

import (
	"context"

	"github.com/graphquill/graphquill/core/domain"
	"github.com/graphquill/graphquill/core/domain/interfaces"
	"github.com/graphquill/graphquill/core/infrastructure/logging"
	"github.com/graphquill/graphquill/core/parser"
)

// SchemaInstaller is implemented by stores that keep definitions in tables
// which must exist before first use.
type SchemaInstaller interface {
	InstallSchema(ctx context.Context) error
}

// Pinger reports backend connectivity.
type Pinger interface {
	PingAll(ctx context.Context) error
}

// ExecuteOutcome is the result of executing a template by name. Exactly one
// of Records or Components is populated: simple templates yield Records,
// composed templates yield one ComponentResult per component.
type ExecuteOutcome struct {
	Composed   bool
	Records    []domain.Record
	Components []domain.ComponentResult
}

// TemplateService implements the template management and execution surface
// used by all transports.
type TemplateService struct {
	store    interfaces.DefinitionStore
	executor interfaces.Executor
	backends Pinger
	log      interfaces.Logger
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(store interfaces.DefinitionStore, executor interfaces.Executor, backends Pinger) *TemplateService {
	return &TemplateService{
		store:    store,
		executor: executor,
		backends: backends,
		log:      logging.New("services:template"),
	}
}

// Execute runs a template by name, dispatching on whether it is composed.
func (s *TemplateService) Execute(ctx context.Context, name string, input map[string]any) (*ExecuteOutcome, error) {
	tpl, err := s.store.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}

	if tpl.IsComposed() {
		components, err := s.executor.ExecuteComposed(ctx, name, input)
		if err != nil {
			return nil, err
		}
		return &ExecuteOutcome{Composed: true, Components: components}, nil
	}

	records, err := s.executor.Execute(ctx, name, input)
	if err != nil {
		return nil, err
	}
	return &ExecuteOutcome{Records: records}, nil
}

// Lookup returns a template definition by name
func (s *TemplateService) Lookup(ctx context.Context, name string) (*domain.Template, error) {
	return s.store.Lookup(ctx, name)
}

// Create stores a new template definition
func (s *TemplateService) Create(ctx context.Context, tpl *domain.Template) error {
	if err := s.store.Create(ctx, tpl); err != nil {
		return err
	}
	s.log.Infof("Template '%s' created", tpl.Name)
	return nil
}

// Compose creates a composed template from existing components
func (s *TemplateService) Compose(ctx context.Context, name, description string, kind domain.CompositionKind, componentNames []string) (*domain.Template, error) {
	composed, err := s.store.Compose(ctx, name, description, kind, componentNames)
	if err != nil {
		return nil, err
	}
	s.log.Infof("Composition '%s' created (%s, %d components)", name, kind, len(componentNames))
	return composed, nil
}

// Search returns templates matching a free-text term
func (s *TemplateService) Search(ctx context.Context, term string) ([]*domain.Template, error) {
	return s.store.Search(ctx, term)
}

// Delete removes a template definition
func (s *TemplateService) Delete(ctx context.Context, name string) error {
	if err := s.store.Delete(ctx, name); err != nil {
		return err
	}
	s.log.Infof("Template '%s' deleted", name)
	return nil
}

// Initialize installs the definition store schema if the store needs one
func (s *TemplateService) Initialize(ctx context.Context) error {
	installer, ok := s.store.(SchemaInstaller)
	if !ok {
		s.log.Debug("Store needs no schema installation")
		return nil
	}
	return installer.InstallSchema(ctx)
}

// Heartbeat verifies backend connectivity
func (s *TemplateService) Heartbeat(ctx context.Context) error {
	if s.backends == nil {
		return nil
	}
	return s.backends.PingAll(ctx)
}

// LoadSeed loads a parsed seed's templates and compositions into the store.
// Templates load first so composition component references resolve.
func (s *TemplateService) LoadSeed(ctx context.Context, seed *parser.Seed) error {
	for _, tpl := range seed.DomainTemplates() {
		if err := s.store.Create(ctx, tpl); err != nil {
			return err
		}
	}

	for name, comp := range seed.Compositions {
		_, err := s.store.Compose(ctx, name, comp.Description,
			domain.CompositionKind(comp.Type), comp.Components)
		if err != nil {
			return err
		}
	}

	s.log.Infof("Seed loaded: %d template(s), %d composition(s)",
		len(seed.Templates), len(seed.Compositions))
	return nil
}
