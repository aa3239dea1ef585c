package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/graphquill/graphquill/core/shared/errors"
)

// Identifier placeholder pattern: {{ ident.fieldName }}.
//
// Some identifiers (a relationship-type name, a node label) sit in syntactic
// positions where the backend's query language only allows literals, so they
// cannot be passed as bound parameters. Rendering splices the caller-supplied
// value into the query text as a raw literal and removes it from the bound
// map. This is a deliberate, narrow carve-out: only the names in
// renderableIdents may appear in an ident hole, and values are rejected
// unless they match a strict identifier grammar.
var (
	identPattern = regexp.MustCompile(`\{\{\s*ident\.(\w+)\s*\}\}`)
	identGrammar = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// renderableIdents is the fixed allow-list of substitutable placeholder
// names. Never extended at runtime; arbitrary parameter names are rejected.
var renderableIdents = map[string]bool{
	"relationship_type": true,
	"node_label":        true,
}

// RenderQuery replaces allow-listed identifier placeholders in the query body
// with their literal values and returns the rendered query together with the
// remaining bound-parameter map. The input map is not modified.
func RenderQuery(queryBody string, params map[string]any) (string, map[string]any, error) {
	bound := make(map[string]any, len(params))
	for k, v := range params {
		bound[k] = v
	}

	matches := identPattern.FindAllStringSubmatch(queryBody, -1)
	if len(matches) == 0 {
		return queryBody, bound, nil
	}

	rendered := queryBody
	seen := make(map[string]bool)

	for _, match := range matches {
		placeholder, name := match[0], match[1]
		if seen[placeholder] {
			continue
		}
		seen[placeholder] = true

		if !renderableIdents[name] {
			return "", nil, errors.New(errors.ErrCodeRenderingRejected,
				fmt.Sprintf("identifier placeholder '%s' is not allow-listed for substitution", name), nil)
		}

		value, exists := bound[name]
		if !exists {
			return "", nil, errors.New(errors.ErrCodeRenderingRejected,
				fmt.Sprintf("no value supplied for identifier placeholder '%s'", name), nil)
		}

		literal, ok := value.(string)
		if !ok {
			return "", nil, errors.New(errors.ErrCodeRenderingRejected,
				fmt.Sprintf("identifier placeholder '%s' requires a string value, got %T", name, value), nil)
		}
		if !identGrammar.MatchString(literal) {
			return "", nil, errors.New(errors.ErrCodeRenderingRejected,
				fmt.Sprintf("value for identifier placeholder '%s' is not a valid identifier", name), nil)
		}

		rendered = strings.ReplaceAll(rendered, placeholder, literal)
		delete(bound, name)
	}

	return rendered, bound, nil
}
