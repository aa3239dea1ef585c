package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/graphquill/graphquill/core/domain"
	"github.com/graphquill/graphquill/core/infrastructure/logging"
)

var log = logging.New("parser")

// ValidationErrors represents a collection of validation errors
type ValidationErrors struct {
	Errors []string
}

// Error implements the error interface
// Returns a simple message since detailed errors are already logged
func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return ""
	}
	return fmt.Sprintf("validation failed with %d error(s)", len(ve.Errors))
}

var (
	// Template name pattern: must start with a letter, lowercase only
	templateNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
	// Name pattern for backends and parameters
	namePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)
)

var validBackendKinds = []string{"postgres", "mysql", "mongodb"}

// Validate performs comprehensive validation on a parsed seed
func Validate(seed *Seed) error {
	log.Infof("Starting seed validation")
	var errors []string

	if seed.Name == "" {
		errors = append(errors, "name is required")
	} else if !templateNamePattern.MatchString(seed.Name) {
		errors = append(errors, fmt.Sprintf("name '%s' is invalid. Must start with a letter and be in lower-snake-case or lower-kebab-case (lowercase letters, numbers, hyphens, and underscores only)", seed.Name))
	}

	if len(seed.Backends) == 0 {
		errors = append(errors, "backends is required and should have at least one entry")
	}

	for name, backend := range seed.Backends {
		if !namePattern.MatchString(name) {
			errors = append(errors, fmt.Sprintf("Backend '%s' - name is invalid. Must start with a letter and can contain letters, numbers, hyphens, and underscores", name))
		}
		if backend.Kind == "" {
			errors = append(errors, fmt.Sprintf("Backend '%s' requires a kind", name))
		} else if !isValidBackendKind(backend.Kind) {
			errors = append(errors, fmt.Sprintf("Backend '%s' - kind '%s' is invalid. Must be one of: %s", name, backend.Kind, strings.Join(validBackendKinds, ", ")))
		}
		if backend.DSN == "" {
			errors = append(errors, fmt.Sprintf("Backend '%s' - dsn is required", name))
		}
	}

	if len(seed.Templates) == 0 {
		errors = append(errors, "templates is required and should have at least one entry")
	}

	for name, tpl := range seed.Templates {
		if !templateNamePattern.MatchString(name) {
			errors = append(errors, fmt.Sprintf("Template '%s' - name is invalid. Must start with a letter and be in lower-snake-case or lower-kebab-case (lowercase letters, numbers, hyphens, and underscores only)", name))
		}
		if tpl.Description == "" {
			errors = append(errors, fmt.Sprintf("%s.description is required", name))
		}
		if tpl.Query == "" {
			errors = append(errors, fmt.Sprintf("%s.query is required", name))
		}

		for pname, param := range tpl.Parameters {
			paramPrefix := fmt.Sprintf("%s.parameters.%s", name, pname)
			if !namePattern.MatchString(pname) {
				errors = append(errors, fmt.Sprintf("%s - name is invalid. Must start with a letter and can contain letters, numbers, hyphens, and underscores", paramPrefix))
			}
			if param.Type == "" {
				errors = append(errors, fmt.Sprintf("%s.type is required", paramPrefix))
			}
			if param.Source != "" && !domain.ParameterSource(param.Source).Valid() {
				errors = append(errors, fmt.Sprintf("%s.source '%s' is invalid. Must be one of: input, previous_result", paramPrefix, param.Source))
			}
		}

		// Every {{ ident.x }} reference must have a declared parameter to
		// supply its value
		for _, ref := range extractIdentReferences(tpl.Query) {
			if _, ok := tpl.Parameters[ref]; !ok {
				errors = append(errors, fmt.Sprintf("%s.query references '{{ ident.%s }}' but %s.parameters does not contain '%s'", name, ref, name, ref))
			}
		}
	}

	for name, comp := range seed.Compositions {
		if !templateNamePattern.MatchString(name) {
			errors = append(errors, fmt.Sprintf("Composition '%s' - name is invalid. Must start with a letter and be in lower-snake-case or lower-kebab-case (lowercase letters, numbers, hyphens, and underscores only)", name))
		}
		if _, clash := seed.Templates[name]; clash {
			errors = append(errors, fmt.Sprintf("Composition '%s' - name collides with a template name", name))
		}
		if !domain.CompositionKind(comp.Type).Valid() {
			errors = append(errors, fmt.Sprintf("Composition '%s' - type '%s' is invalid. Must be one of: SEQUENCE, PARALLEL", name, comp.Type))
		}
		if len(comp.Components) == 0 {
			errors = append(errors, fmt.Sprintf("Composition '%s' - components is required and should have at least one entry", name))
		}
		for _, componentName := range comp.Components {
			if _, ok := seed.Templates[componentName]; !ok {
				errors = append(errors, fmt.Sprintf("Composition '%s' - component '%s' is not a defined template", name, componentName))
			}
		}
	}

	if len(errors) > 0 {
		log.Errorf("Validation failed with %d error(s)", len(errors))
		for i, errMsg := range errors {
			log.Errorf("  %d. %s", i+1, errMsg)
		}
		return &ValidationErrors{Errors: errors}
	}

	log.Infof("Validation completed successfully")
	return nil
}

func isValidBackendKind(kind string) bool {
	for _, valid := range validBackendKinds {
		if kind == valid {
			return true
		}
	}
	return false
}

// extractIdentReferences returns the unique identifier names referenced in a
// query body via {{ ident.x }} placeholders.
func extractIdentReferences(query string) []string {
	identRefRegex := regexp.MustCompile(`\{\{\s*ident\.([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

	matches := identRefRegex.FindAllStringSubmatch(query, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var result []string
	for _, match := range matches {
		if len(match) >= 2 && !seen[match[1]] {
			seen[match[1]] = true
			result = append(result, match[1])
		}
	}
	return result
}
