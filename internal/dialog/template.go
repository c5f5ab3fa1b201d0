package dialog

import (
	"fmt"
	"regexp"
)

// Template describes one dialog step: how to prompt the generator, what
// to tell the user, and the constraint block its submissions must meet.
// Templates are immutable once loaded and shared across sessions.
type Template struct {
	ID                     string            `yaml:"id"`
	Section                string            `yaml:"section"`
	GenerationInstructions string            `yaml:"generation_instructions"`
	UserInstructions       string            `yaml:"user_instructions"`
	Examples               []string          `yaml:"examples"`
	Constraints            ConstraintBlock   `yaml:"constraints"`
}

// ConstraintBlock declares field-level requirements enforced on
// submissions and echoed into generation prompts.
type ConstraintBlock struct {
	Required   []string          `yaml:"required"`
	MaxLengths map[string]int    `yaml:"max_lengths"`
	Patterns   map[string]string `yaml:"patterns"`

	compiled map[string]*regexp.Regexp
}

func (c *ConstraintBlock) compile() error {
	if len(c.Patterns) == 0 {
		return nil
	}
	c.compiled = make(map[string]*regexp.Regexp, len(c.Patterns))
	for field, pattern := range c.Patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("pattern for %s: %w", field, err)
		}
		c.compiled[field] = re
	}
	return nil
}

// violations checks one flat JSON object against the constraint block and
// returns the names of offending fields.
func (c *ConstraintBlock) violations(fields map[string]any) []string {
	var bad []string

	for _, name := range c.Required {
		val, ok := fields[name]
		if !ok || isEmptyValue(val) {
			bad = append(bad, name)
		}
	}
	for name, limit := range c.MaxLengths {
		if s, ok := fields[name].(string); ok && len(s) > limit {
			bad = append(bad, name)
		}
	}
	for name, re := range c.compiled {
		s, ok := fields[name].(string)
		if !ok || s == "" {
			continue // required-ness is handled above
		}
		if !re.MatchString(s) {
			bad = append(bad, name)
		}
	}
	return bad
}

func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	default:
		return false
	}
}
