package dialog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Recognized section keys of the canonical resume document.
const (
	SectionPersonal       = "personal"
	SectionSummary        = "summary"
	SectionWorkExperience = "work_experience"
	SectionEducation      = "education"
	SectionSkills         = "skills"
	SectionTemplate       = "template"
	SectionReview         = "review"
)

// PersonalInfo is the contact header of the resume.
type PersonalInfo struct {
	FullName string `json:"fullName" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,max=40"`
	Location string `json:"location,omitempty" validate:"omitempty,max=120"`
	Headline string `json:"headline,omitempty" validate:"omitempty,max=160"`
	Industry string `json:"industry,omitempty" validate:"omitempty,max=80"`
	Links    []Link `json:"links,omitempty" validate:"omitempty,max=5,dive"`
}

// Link is a labeled URL (portfolio, LinkedIn, GitHub).
type Link struct {
	Label string `json:"label" validate:"required,max=40"`
	URL   string `json:"url" validate:"required,url,max=300"`
}

// Summary is the professional summary paragraph.
type Summary struct {
	Text string `json:"text" validate:"required,min=40,max=1200"`
}

// WorkExperience is the ordered list of positions, most recent first.
type WorkExperience struct {
	Positions []Position `json:"positions" validate:"required,min=1,max=15,dive"`
}

// Position is one job entry.
type Position struct {
	Title      string   `json:"title" validate:"required,max=120"`
	Company    string   `json:"company" validate:"required,max=120"`
	Location   string   `json:"location,omitempty" validate:"omitempty,max=120"`
	StartDate  string   `json:"startDate" validate:"required"`
	EndDate    string   `json:"endDate,omitempty"`
	Highlights []string `json:"highlights,omitempty" validate:"omitempty,max=10,dive,max=300"`
}

// Education is the ordered list of schools.
type Education struct {
	Schools []School `json:"schools" validate:"required,min=1,max=10,dive"`
}

// School is one education entry.
type School struct {
	Institution string `json:"institution" validate:"required,max=160"`
	Degree      string `json:"degree,omitempty" validate:"omitempty,max=120"`
	Field       string `json:"field,omitempty" validate:"omitempty,max=120"`
	StartYear   string `json:"startYear,omitempty" validate:"omitempty,len=4,numeric"`
	EndYear     string `json:"endYear,omitempty" validate:"omitempty,len=4,numeric"`
	Notes       string `json:"notes,omitempty" validate:"omitempty,max=300"`
}

// Skills groups skill names under headings such as "Languages".
type Skills struct {
	Groups []SkillGroup `json:"groups" validate:"required,min=1,max=10,dive"`
}

// SkillGroup is one heading with its skill names.
type SkillGroup struct {
	Name  string   `json:"name" validate:"required,max=60"`
	Items []string `json:"items" validate:"required,min=1,max=25,dive,max=60"`
}

// TemplateChoice selects the visual layout applied at render time.
type TemplateChoice struct {
	TemplateID  string `json:"templateId" validate:"required,oneof=modern classic minimal compact"`
	AccentColor string `json:"accentColor,omitempty" validate:"omitempty,hexcolor"`
	FontScale   string `json:"fontScale,omitempty" validate:"omitempty,oneof=small medium large"`
}

// ReviewNotes records the final-review confirmation step.
type ReviewNotes struct {
	Approved bool   `json:"approved"`
	Notes    string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type sectionSpec struct {
	newPayload func() any
	entryKey   string // list field whose entries the constraint block also applies to
}

var sectionSpecs = map[string]sectionSpec{
	SectionPersonal:       {newPayload: func() any { return &PersonalInfo{} }},
	SectionSummary:        {newPayload: func() any { return &Summary{} }},
	SectionWorkExperience: {newPayload: func() any { return &WorkExperience{} }, entryKey: "positions"},
	SectionEducation:      {newPayload: func() any { return &Education{} }, entryKey: "schools"},
	SectionSkills:         {newPayload: func() any { return &Skills{} }, entryKey: "groups"},
	SectionTemplate:       {newPayload: func() any { return &TemplateChoice{} }},
	SectionReview:         {newPayload: func() any { return &ReviewNotes{} }},
}

// KnownSection reports whether the section key has a declared schema.
func KnownSection(section string) bool {
	_, ok := sectionSpecs[section]
	return ok
}

// ValidateSection checks raw against the section's schema and constraint
// block and returns the normalized canonical JSON for storage. Failures
// are *SchemaViolationError naming the offending fields; writes based on
// the returned payload are therefore all-or-nothing.
func (r *Registry) ValidateSection(section string, raw []byte) (json.RawMessage, error) {
	spec, ok := sectionSpecs[section]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, section)
	}

	payload := spec.newPayload()
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(payload); err != nil {
		return nil, &SchemaViolationError{Section: section, Fields: []string{decodeErrorField(err)}}
	}

	fields := map[string]struct{}{}
	if err := r.validate.Struct(payload); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fe.Field()] = struct{}{}
			}
		} else {
			fields["payload"] = struct{}{}
		}
	}

	if tpl, ok := r.TemplateForSection(section); ok {
		for _, name := range constraintViolations(&tpl.Constraints, raw, spec.entryKey) {
			fields[name] = struct{}{}
		}
	}

	if len(fields) > 0 {
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, &SchemaViolationError{Section: section, Fields: names}
	}

	normalized, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return normalized, nil
}

// ValidateDialogPayload validates a dialog submission against the step's
// constraint block and returns the target section with normalized JSON.
// Steps with no backing section (review-only) return an empty section.
func (r *Registry) ValidateDialogPayload(dialogID string, raw []byte) (string, json.RawMessage, error) {
	tpl, err := r.Template(dialogID)
	if err != nil {
		return "", nil, err
	}
	if tpl.Section == "" {
		return "", nil, nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}
	normalized, err := r.ValidateSection(tpl.Section, raw)
	if err != nil {
		return "", nil, err
	}
	return tpl.Section, normalized, nil
}

func constraintViolations(c *ConstraintBlock, raw []byte, entryKey string) []string {
	var top map[string]any
	if err := json.Unmarshal(raw, &top); err != nil {
		return []string{"payload"}
	}

	if entryKey == "" {
		return c.violations(top)
	}

	seen := map[string]struct{}{}
	entries, _ := top[entryKey].([]any)
	for _, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		for _, name := range c.violations(m) {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func decodeErrorField(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return typeErr.Field
	}
	// json exposes unknown-field failures only through the message text.
	msg := err.Error()
	if idx := strings.Index(msg, `unknown field "`); idx >= 0 {
		rest := msg[idx+len(`unknown field "`):]
		if end := strings.Index(rest, `"`); end > 0 {
			return rest[:end]
		}
	}
	return "payload"
}
