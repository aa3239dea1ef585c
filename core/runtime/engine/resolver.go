package engine

import (
	"github.com/graphquill/graphquill/core/domain"
	"github.com/graphquill/graphquill/core/shared/errors"
)

// ResolveParameters determines the concrete value of each declared parameter
// for one component, evaluated once per parameter:
//
//  1. input-sourced parameters take the value under their name in the
//     caller's input map, if present.
//  2. previous_result-sourced parameters bind by exact field name against the
//     first output record of the immediately preceding component — only in
//     SEQUENCE mode. In PARALLEL mode there is no ordering between
//     components, so this source resolves against the original input map;
//     branches never observe each other's output. Chaining therefore works
//     only when the producing component's output record uses the exact field
//     name the consumer declares; that is a documented contract between
//     template authors, not an automatic rename.
//  3. An unresolved required parameter fails with MissingRequiredParameter.
//  4. An unresolved optional parameter is omitted from the bound map.
//
// prior is nil for the first component of a sequence and for every parallel
// branch.
func ResolveParameters(component string, specs []domain.ParameterSpec, input map[string]any, prior domain.Record, kind domain.CompositionKind) (map[string]any, error) {
	resolved := make(map[string]any, len(specs))

	for _, spec := range specs {
		value, ok := resolveOne(spec, input, prior, kind)
		if ok {
			resolved[spec.Name] = value
			continue
		}
		if spec.Required {
			return nil, errors.MissingRequiredParameter(component, spec.Name)
		}
	}

	return resolved, nil
}

func resolveOne(spec domain.ParameterSpec, input map[string]any, prior domain.Record, kind domain.CompositionKind) (any, bool) {
	switch spec.EffectiveSource() {
	case domain.SourceInput:
		value, ok := input[spec.Name]
		return value, ok
	case domain.SourcePreviousResult:
		if kind == domain.KindSequence {
			if prior == nil {
				return nil, false
			}
			value, ok := prior[spec.Name]
			return value, ok
		}
		value, ok := input[spec.Name]
		return value, ok
	default:
		return nil, false
	}
}
