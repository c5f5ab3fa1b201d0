package dialog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTemplateNotFound indicates a dialog step with no backing template;
	// this is a configuration error and fatal to that step.
	ErrTemplateNotFound = errors.New("dialog template not found")

	// ErrUnknownSection indicates a section key with no declared schema.
	ErrUnknownSection = errors.New("unknown section")
)

// SchemaViolationError names the fields that failed validation so the
// caller can re-prompt precisely.
type SchemaViolationError struct {
	Section string
	Fields  []string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("section %s: invalid fields: %s", e.Section, strings.Join(e.Fields, ", "))
}
