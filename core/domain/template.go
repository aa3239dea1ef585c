package domain

import (
	"sort"
	"time"
)

// ParameterSource identifies where an execution-time value is drawn from.
type ParameterSource string

const (
	// SourceInput resolves the parameter from the caller's input map.
	SourceInput ParameterSource = "input"
	// SourcePreviousResult resolves the parameter from the first output record
	// of the immediately preceding component in a SEQUENCE composition.
	// In PARALLEL compositions branches never observe each other's output, so
	// this source resolves against the original caller input instead.
	SourcePreviousResult ParameterSource = "previous_result"
)

// Valid reports whether s is a known parameter source.
func (s ParameterSource) Valid() bool {
	return s == SourceInput || s == SourcePreviousResult
}

// CompositionKind selects how a composed template drives its components.
type CompositionKind string

const (
	// KindSequence runs components strictly in order on one backend session,
	// feeding each component's first output record into the next.
	KindSequence CompositionKind = "SEQUENCE"
	// KindParallel runs components independently; declaration order is
	// preserved for output ordering only.
	KindParallel CompositionKind = "PARALLEL"
)

// Valid reports whether k is a known composition kind.
func (k CompositionKind) Valid() bool {
	return k == KindSequence || k == KindParallel
}

// ParameterSpec declares one parameter of a template. Type is a descriptive
// tag for documentation purposes and is not enforced by the engine.
type ParameterSpec struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Required    bool            `json:"required"`
	Source      ParameterSource `json:"source,omitempty"`
}

// EffectiveSource returns the declared source, defaulting to input.
func (p ParameterSpec) EffectiveSource() ParameterSource {
	if p.Source == "" {
		return SourceInput
	}
	return p.Source
}

// ReturnSpec declares one field of a template's output records.
type ReturnSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Example is a documented input/output pair for a template.
type Example struct {
	Input  map[string]any `json:"input"`
	Output map[string]any `json:"output"`
}

// Template is a named, versioned query definition. A template with a
// non-empty CompositionKind is composed and has no query body of its own;
// its behavior is defined by its composition edges.
type Template struct {
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Purpose         string          `json:"purpose,omitempty"`
	QueryBody       string          `json:"query_body,omitempty"`
	Parameters      []ParameterSpec `json:"parameters,omitempty"`
	Returns         []ReturnSpec    `json:"returns,omitempty"`
	Examples        []Example       `json:"examples,omitempty"`
	Version         string          `json:"version,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at,omitempty"`
	CompositionKind CompositionKind `json:"composition_kind,omitempty"`
}

// IsComposed reports whether the template is a composition of other templates.
func (t *Template) IsComposed() bool {
	return t.CompositionKind != ""
}

// ComponentRef is one member of a composition with its fixed order position.
type ComponentRef struct {
	TemplateName string `json:"template_name"`
	Order        int    `json:"order"`
}

// Composition is the resolved component list of a composed template.
type Composition struct {
	Name       string          `json:"name"`
	Kind       CompositionKind `json:"kind"`
	Components []ComponentRef  `json:"components"`
}

// SortedComponents returns the components ordered ascending by Order.
// The receiver is not modified.
func (c *Composition) SortedComponents() []ComponentRef {
	out := make([]ComponentRef, len(c.Components))
	copy(out, c.Components)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

// Record is one result row returned by a backend execution.
type Record map[string]any

// ComponentResult is the per-component outcome of a composed execution.
// Exactly one of Records or Error is meaningful: a successful component
// carries zero or more records and an empty Error, a failed component
// carries an empty record set and a human-readable Error.
type ComponentResult struct {
	TemplateName string   `json:"template_name"`
	Records      []Record `json:"results"`
	Error        string   `json:"error,omitempty"`
}

// Failed reports whether the component recorded an isolated failure.
func (r ComponentResult) Failed() bool {
	return r.Error != ""
}

// FirstRecord returns the component's first output record, or nil when the
// component failed or produced an empty result set.
func (r ComponentResult) FirstRecord() Record {
	if len(r.Records) == 0 {
		return nil
	}
	return r.Records[0]
}
