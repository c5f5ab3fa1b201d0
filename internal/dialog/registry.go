package dialog

import (
	_ "embed"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Session types select which flow a session walks.
const (
	TypeContentGeneration = "content_generation"
	TypeDesignOnly        = "design_only"
	TypeComprehensive     = "comprehensive"
)

//go:embed dialogs.yaml
var configYAML []byte

type configFile struct {
	Flows     map[string][]string `yaml:"flows"`
	Templates []*Template         `yaml:"templates"`
}

// Registry is the immutable flow + template configuration, loaded once at
// startup and passed by reference to everything that consults it.
type Registry struct {
	templates map[string]*Template
	bySection map[string]*Template
	flows     map[string][]string
	validate  *validator.Validate
}

// Load parses the embedded configuration and compiles its constraint
// patterns.
func Load() (*Registry, error) {
	return Parse(configYAML)
}

// Parse builds a Registry from raw YAML; exposed for tests.
func Parse(raw []byte) (*Registry, error) {
	var cfg configFile
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse dialog config: %w", err)
	}
	if len(cfg.Flows) == 0 {
		return nil, fmt.Errorf("dialog config declares no flows")
	}
	if _, ok := cfg.Flows[TypeComprehensive]; !ok {
		return nil, fmt.Errorf("dialog config missing %s flow", TypeComprehensive)
	}

	reg := &Registry{
		templates: make(map[string]*Template, len(cfg.Templates)),
		bySection: make(map[string]*Template, len(cfg.Templates)),
		flows:     cfg.Flows,
		validate:  newValidator(),
	}
	for _, tpl := range cfg.Templates {
		if tpl.ID == "" {
			return nil, fmt.Errorf("dialog template missing id")
		}
		if err := tpl.Constraints.compile(); err != nil {
			return nil, fmt.Errorf("template %s: %w", tpl.ID, err)
		}
		reg.templates[tpl.ID] = tpl
		if tpl.Section != "" {
			reg.bySection[tpl.Section] = tpl
		}
	}

	// Every step named in a flow must have a template.
	for sessionType, steps := range cfg.Flows {
		for _, step := range steps {
			if _, ok := reg.templates[step]; !ok {
				return nil, fmt.Errorf("flow %s references unknown dialog %s", sessionType, step)
			}
		}
	}

	return reg, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Template returns the template backing a dialog step.
func (r *Registry) Template(dialogID string) (*Template, error) {
	tpl, ok := r.templates[dialogID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, dialogID)
	}
	return tpl, nil
}

// TemplateForSection returns the template whose submissions write the
// given section.
func (r *Registry) TemplateForSection(section string) (*Template, bool) {
	tpl, ok := r.bySection[section]
	return tpl, ok
}

// NormalizeSessionType maps unrecognized session types to comprehensive.
func (r *Registry) NormalizeSessionType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := r.flows[t]; ok {
		return t
	}
	return TypeComprehensive
}

// Flow returns the ordered dialog steps for a session type, defaulting
// to the comprehensive flow for unrecognized types.
func (r *Registry) Flow(sessionType string) []string {
	steps, ok := r.flows[sessionType]
	if !ok {
		steps = r.flows[TypeComprehensive]
	}
	out := make([]string, len(steps))
	copy(out, steps)
	return out
}

// SessionTypes lists the declared session types.
func (r *Registry) SessionTypes() []string {
	out := make([]string, 0, len(r.flows))
	for t := range r.flows {
		out = append(out, t)
	}
	return out
}
