package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/graphquill/graphquill/core/domain"
	"github.com/graphquill/graphquill/core/domain/interfaces"
	"github.com/graphquill/graphquill/core/infrastructure/logging"
	sharedctx "github.com/graphquill/graphquill/core/shared/context"
	"github.com/graphquill/graphquill/core/shared/errors"
)

// Engine executes simple and composed templates against a backend.
//
// One execution is logically single-threaded per session: SEQUENCE runs all
// components in order on a single session, PARALLEL fans out with one session
// per branch and joins before aggregation. There is no retry and no
// cancellation path of its own; once a composed execution begins, every
// component runs to completion (success or isolated failure).
type Engine struct {
	store   interfaces.DefinitionStore
	backend interfaces.Backend
	log     interfaces.Logger
}

// New creates a new template execution engine
func New(store interfaces.DefinitionStore, backend interfaces.Backend) *Engine {
	return &Engine{
		store:   store,
		backend: backend,
		log:     logging.New("runtime:engine"),
	}
}

// Execute runs a simple (non-composed) template. Whole-request failure modes:
// template not found, missing required input parameter, rendering rejection,
// backend unavailability, backend execution error. An empty record set is a
// normal successful outcome.
func (e *Engine) Execute(ctx context.Context, name string, input map[string]any) ([]domain.Record, error) {
	start := time.Now()
	ctx = sharedctx.WithExecutionID(ctx, sharedctx.NewID())

	tpl, err := e.store.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	if tpl.IsComposed() {
		return nil, errors.InvalidInput("template '" + name + "' is composed; execute it as a composition")
	}

	// A standalone template has no preceding component, so previous_result
	// sources fall back to the caller input, same as a parallel branch.
	params, err := ResolveParameters(tpl.Name, tpl.Parameters, input, nil, domain.KindParallel)
	if err != nil {
		return nil, err
	}

	query, bound, err := RenderQuery(tpl.QueryBody, params)
	if err != nil {
		return nil, err
	}

	session, err := e.backend.Acquire(ctx)
	if err != nil {
		return nil, errors.BackendUnavailable(err)
	}
	defer session.Close()

	e.log.Debugf("Executing template '%s' (execution %s)", name, sharedctx.GetExecutionID(ctx))
	records, err := session.Run(ctx, query, bound)
	if err != nil {
		componentExecutions.WithLabelValues("error").Inc()
		return nil, errors.ExecutionFailed(name, err)
	}

	componentExecutions.WithLabelValues("ok").Inc()
	executionDuration.WithLabelValues("simple").Observe(time.Since(start).Seconds())

	if records == nil {
		records = []domain.Record{}
	}
	return records, nil
}

// ExecuteComposed runs a composed template. The only whole-request failure
// modes are CompositionNotFound and backend unavailability established before
// any component executes; every per-component failure (missing parameter,
// rendering rejection, backend error) is recorded in that component's result
// and execution proceeds to the next component.
func (e *Engine) ExecuteComposed(ctx context.Context, name string, input map[string]any) ([]domain.ComponentResult, error) {
	start := time.Now()
	ctx = sharedctx.WithExecutionID(ctx, sharedctx.NewID())

	comp, err := e.store.LookupComposition(ctx, name)
	if err != nil {
		return nil, err
	}

	components := comp.SortedComponents()
	e.log.Infof("Executing composition '%s' (%s, %d components, execution %s)",
		name, comp.Kind, len(components), sharedctx.GetExecutionID(ctx))

	var results []domain.ComponentResult
	switch comp.Kind {
	case domain.KindParallel:
		results, err = e.runParallel(ctx, components, input)
	default:
		results, err = e.runSequence(ctx, components, input)
	}
	if err != nil {
		return nil, err
	}

	executionDuration.WithLabelValues(string(comp.Kind)).Observe(time.Since(start).Seconds())
	return results, nil
}

// runSequence iterates components strictly in order on a single session. The
// immediate prior result fed to each component is always the most recently
// appended ComponentResult, even when it carried an error; its record set is
// then empty, so chained lookups fail and are themselves recorded, not
// re-raised.
func (e *Engine) runSequence(ctx context.Context, components []domain.ComponentRef, input map[string]any) ([]domain.ComponentResult, error) {
	session, err := e.backend.Acquire(ctx)
	if err != nil {
		return nil, errors.BackendUnavailable(err)
	}
	defer session.Close()

	results := make([]domain.ComponentResult, 0, len(components))
	var prior domain.Record

	for _, ref := range components {
		res := e.runComponent(ctx, session, ref.TemplateName, input, prior, domain.KindSequence)
		results = append(results, res)
		prior = res.FirstRecord()
	}

	return results, nil
}

// runParallel executes branches concurrently, one session per branch, and
// joins before returning. Branch outcomes land at their declaration index so
// output ordering matches declared order regardless of completion order.
// Branches resolve parameters strictly from the original input.
func (e *Engine) runParallel(ctx context.Context, components []domain.ComponentRef, input map[string]any) ([]domain.ComponentResult, error) {
	// Establish backend availability before any branch starts; a branch-level
	// acquisition failure after this point is connectivity loss mid-request
	// and is isolated like any other component failure.
	if err := e.backend.Ping(ctx); err != nil {
		return nil, errors.BackendUnavailable(err)
	}

	results := make([]domain.ComponentResult, len(components))
	g, gctx := errgroup.WithContext(ctx)

	for i, ref := range components {
		g.Go(func() error {
			session, err := e.backend.Acquire(gctx)
			if err != nil {
				results[i] = domain.ComponentResult{
					TemplateName: ref.TemplateName,
					Records:      []domain.Record{},
					Error:        errors.ExecutionFailed(ref.TemplateName, err).Message,
				}
				return nil
			}
			defer session.Close()

			results[i] = e.runComponent(gctx, session, ref.TemplateName, input, nil, domain.KindParallel)
			return nil
		})
	}

	// Branches never return errors; Wait is the join barrier.
	_ = g.Wait()
	return results, nil
}

// runComponent resolves, renders and executes one component. Every failure is
// converted into the component's Error field; nothing escapes the composition
// loop.
func (e *Engine) runComponent(ctx context.Context, session interfaces.Session, name string, input map[string]any, prior domain.Record, kind domain.CompositionKind) domain.ComponentResult {
	result := domain.ComponentResult{
		TemplateName: name,
		Records:      []domain.Record{},
	}

	tpl, err := e.store.Lookup(ctx, name)
	if err != nil {
		result.Error = errors.MessageOf(err)
		componentExecutions.WithLabelValues("error").Inc()
		return result
	}

	params, err := ResolveParameters(name, tpl.Parameters, input, prior, kind)
	if err != nil {
		result.Error = errors.MessageOf(err)
		componentExecutions.WithLabelValues("error").Inc()
		return result
	}

	query, bound, err := RenderQuery(tpl.QueryBody, params)
	if err != nil {
		result.Error = errors.MessageOf(err)
		componentExecutions.WithLabelValues("error").Inc()
		return result
	}

	records, err := session.Run(ctx, query, bound)
	if err != nil {
		e.log.Warnf("Component '%s' failed: %v", name, err)
		result.Error = errors.ExecutionFailed(name, err).Message
		componentExecutions.WithLabelValues("error").Inc()
		return result
	}

	if records != nil {
		result.Records = records
	}
	componentExecutions.WithLabelValues("ok").Inc()
	return result
}
