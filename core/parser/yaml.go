package parser

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/graphquill/graphquill/core/domain"
)

// Seed is the parsed form of a seed file: backend connections plus the
// template and composition definitions to load into the definition store at
// startup.
type Seed struct {
	Name         string                     `yaml:"name"`
	Backends     map[string]SeedBackend     `yaml:"backends"`
	Templates    map[string]SeedTemplate    `yaml:"templates"`
	Compositions map[string]SeedComposition `yaml:"compositions"`
}

// SeedBackend declares one backend connection.
type SeedBackend struct {
	Kind string `yaml:"kind"`
	DSN  string `yaml:"dsn"`
}

// SeedTemplate declares one simple template.
type SeedTemplate struct {
	Description string                   `yaml:"description"`
	Purpose     string                   `yaml:"purpose"`
	Query       string                   `yaml:"query"`
	Version     string                   `yaml:"version"`
	Parameters  map[string]SeedParameter `yaml:"parameters"`
	Returns     map[string]SeedReturn    `yaml:"returns"`
	Examples    []SeedExample            `yaml:"examples"`
}

// SeedParameter declares one parameter of a template.
type SeedParameter struct {
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
	Source      string `yaml:"source"`
}

// SeedReturn declares one output field of a template.
type SeedReturn struct {
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

// SeedExample is a documented input/output pair.
type SeedExample struct {
	Input  map[string]any `yaml:"input"`
	Output map[string]any `yaml:"output"`
}

// SeedComposition declares one composed template over named components,
// ordered as listed.
type SeedComposition struct {
	Description string   `yaml:"description"`
	Type        string   `yaml:"type"`
	Components  []string `yaml:"components"`
}

// ParseSeed parses YAML seed content and substitutes {{ env.NAME }}
// placeholders in backend connection strings.
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	for name, backend := range seed.Backends {
		substituted, err := substituteEnvVars(backend.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to substitute environment variables in dsn for backend '%s': %w", name, err)
		}
		backend.DSN = substituted
		seed.Backends[name] = backend
	}

	return &seed, nil
}

// ParseSeedFile reads and parses a seed file from disk
func ParseSeedFile(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file '%s': %w", path, err)
	}
	return ParseSeed(data)
}

// Templates converts the seed definitions to domain templates, sorted by name
// for deterministic load order.
func (s *Seed) DomainTemplates() []*domain.Template {
	names := make([]string, 0, len(s.Templates))
	for name := range s.Templates {
		names = append(names, name)
	}
	sort.Strings(names)

	templates := make([]*domain.Template, 0, len(names))
	for _, name := range names {
		st := s.Templates[name]
		tpl := &domain.Template{
			Name:        name,
			Description: st.Description,
			Purpose:     st.Purpose,
			QueryBody:   st.Query,
			Version:     st.Version,
		}

		paramNames := make([]string, 0, len(st.Parameters))
		for pname := range st.Parameters {
			paramNames = append(paramNames, pname)
		}
		sort.Strings(paramNames)
		for _, pname := range paramNames {
			sp := st.Parameters[pname]
			tpl.Parameters = append(tpl.Parameters, domain.ParameterSpec{
				Name:        pname,
				Type:        sp.Type,
				Description: sp.Description,
				Required:    sp.Required,
				Source:      domain.ParameterSource(sp.Source),
			})
		}

		returnNames := make([]string, 0, len(st.Returns))
		for rname := range st.Returns {
			returnNames = append(returnNames, rname)
		}
		sort.Strings(returnNames)
		for _, rname := range returnNames {
			sr := st.Returns[rname]
			tpl.Returns = append(tpl.Returns, domain.ReturnSpec{
				Name:        rname,
				Type:        sr.Type,
				Description: sr.Description,
			})
		}

		for _, ex := range st.Examples {
			tpl.Examples = append(tpl.Examples, domain.Example{
				Input:  ex.Input,
				Output: ex.Output,
			})
		}

		templates = append(templates, tpl)
	}
	return templates
}
