package artifacts

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"resume-builder/internal/dialog"
	"resume-builder/internal/llm"
	"resume-builder/internal/sessions"
	"resume-builder/internal/shared/storage/kv"
	"resume-builder/internal/shared/telemetry"
)

const generationTemperature = 0.2

// Generator produces the UI artifact for a dialog step: one prompt, one
// model call, sanitize, cache. Concurrent generations for the same
// (session, dialog) collapse into a single call.
type Generator struct {
	llm       llm.Client
	reg       *dialog.Registry
	cache     kv.Store
	ttl       time.Duration
	maxTokens int
	group     singleflight.Group
}

// NewGenerator wires the artifact generator.
func NewGenerator(client llm.Client, reg *dialog.Registry, cache kv.Store, ttl time.Duration, maxTokens int) *Generator {
	return &Generator{
		llm:       client,
		reg:       reg,
		cache:     cache,
		ttl:       ttl,
		maxTokens: maxTokens,
	}
}

func artifactKey(sessionID, dialogID string) string {
	return fmt.Sprintf("artifact:%s:%s", sessionID, dialogID)
}

// ForDialog returns the artifact for a dialog step, serving from cache
// when a fresh one exists.
func (g *Generator) ForDialog(ctx context.Context, sess *sessions.Session, dialogID string) (*sessions.DialogArtifact, error) {
	tpl, err := g.reg.Template(dialogID)
	if err != nil {
		return nil, err
	}

	key := artifactKey(sess.ID, dialogID)
	if art, ok := g.cached(ctx, key); ok {
		return art, nil
	}

	v, err, shared := g.group.Do(key, func() (any, error) {
		// A concurrent flight may have filled the cache while we waited.
		if art, ok := g.cached(ctx, key); ok {
			return art, nil
		}

		raw, err := g.llm.Complete(ctx, llm.CompletionRequest{
			System:      generationSystemPrompt,
			User:        g.buildPrompt(sess, tpl),
			MaxTokens:   g.maxTokens,
			Temperature: generationTemperature,
		})
		if err != nil {
			return nil, fmt.Errorf("generate artifact for %s: %w", dialogID, err)
		}

		art := &sessions.DialogArtifact{
			DialogID:     dialogID,
			Code:         Sanitize(raw),
			Instructions: tpl.UserInstructions,
		}
		if encoded, err := json.Marshal(art); err == nil {
			if err := g.cache.Set(ctx, key, encoded, g.ttl); err != nil {
				telemetry.Warn("artifact.cache_write_failed", map[string]any{
					"session_id": sess.ID,
					"dialog_id":  dialogID,
					"error":      err.Error(),
				})
			}
		}
		telemetry.Info("artifact.generated", map[string]any{
			"session_id": sess.ID,
			"dialog_id":  dialogID,
			"code_bytes": len(art.Code),
		})
		return art, nil
	})
	if err != nil {
		return nil, err
	}

	art := v.(*sessions.DialogArtifact)
	if shared {
		// Give each caller its own copy so Cached flags don't race.
		cp := *art
		art = &cp
	}
	return art, nil
}

// Invalidate drops the cached artifact for a dialog step, forcing the
// next request to regenerate it.
func (g *Generator) Invalidate(ctx context.Context, sessionID, dialogID string) {
	_ = g.cache.Delete(ctx, artifactKey(sessionID, dialogID))
}

func (g *Generator) cached(ctx context.Context, key string) (*sessions.DialogArtifact, bool) {
	raw, err := g.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var art sessions.DialogArtifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, false
	}
	art.Cached = true
	return &art, true
}

const generationSystemPrompt = `You generate the UI for one step of a resume builder. ` +
	`Respond with only the code for a single self-contained React function ` +
	`component styled with Tailwind utility classes. The component keeps its ` +
	`working values in a formData state object and renders a form for the ` +
	`step described by the user. No imports, no prose, no code fences.`

// buildPrompt assembles the user prompt for one dialog step. Order is
// fixed: base instructions, personalization, progress, examples, then
// the constraint clause.
func (g *Generator) buildPrompt(sess *sessions.Session, tpl *dialog.Template) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(tpl.GenerationInstructions))

	if p := personalization(sess); p != "" {
		b.WriteString("\n\n")
		b.WriteString(p)
	}

	flow := g.reg.Flow(sess.SessionType)
	if len(flow) > 0 {
		step := len(sess.CompletedDialogs) + 1
		if step > len(flow) {
			step = len(flow)
		}
		pct := (len(sess.CompletedDialogs) * 100) / len(flow)
		fmt.Fprintf(&b, "\n\nThis is step %d of %d (%d%% complete). Show that progress in the form header.", step, len(flow), pct)
	}

	if len(tpl.Examples) > 0 {
		b.WriteString("\n\nExample submissions this form should produce:")
		for _, ex := range tpl.Examples {
			b.WriteString("\n")
			b.WriteString(strings.TrimSpace(ex))
		}
	}

	if clause := constraintClause(&tpl.Constraints); clause != "" {
		b.WriteString("\n\n")
		b.WriteString(clause)
	}
	return b.String()
}

// personalization derives prompt clauses from what the session already
// knows: the user's name, their industry, and how many entries the
// multi-entry sections hold.
func personalization(sess *sessions.Session) string {
	var clauses []string

	if raw, ok := sess.Section(dialog.SectionPersonal); ok {
		var p dialog.PersonalInfo
		if json.Unmarshal(raw, &p) == nil {
			if p.FullName != "" {
				clauses = append(clauses, fmt.Sprintf("The user's name is %s; address them by name.", p.FullName))
			}
			if p.Industry != "" {
				clauses = append(clauses, fmt.Sprintf("They are targeting the %s industry; keep placeholder copy relevant to it.", p.Industry))
			}
		}
	}

	if n := entryCount(sess, dialog.SectionWorkExperience, "positions"); n > 0 {
		clauses = append(clauses, fmt.Sprintf("They have already entered %d work experience entries.", n))
	}
	if n := entryCount(sess, dialog.SectionEducation, "schools"); n > 0 {
		clauses = append(clauses, fmt.Sprintf("They have already entered %d education entries.", n))
	}
	if n := entryCount(sess, dialog.SectionSkills, "groups"); n > 0 {
		clauses = append(clauses, fmt.Sprintf("They have already entered %d skill groups.", n))
	}

	return strings.Join(clauses, " ")
}

func entryCount(sess *sessions.Session, section, listKey string) int {
	raw, ok := sess.Section(section)
	if !ok {
		return 0
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return 0
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(m[listKey], &entries); err != nil {
		return 0
	}
	return len(entries)
}

func constraintClause(c *dialog.ConstraintBlock) string {
	var parts []string

	if len(c.Required) > 0 {
		parts = append(parts, fmt.Sprintf("Mark these fields required and block submission without them: %s.", strings.Join(c.Required, ", ")))
	}
	if len(c.MaxLengths) > 0 {
		names := make([]string, 0, len(c.MaxLengths))
		for name := range c.MaxLengths {
			names = append(names, name)
		}
		sort.Strings(names)
		limits := make([]string, 0, len(names))
		for _, name := range names {
			limits = append(limits, fmt.Sprintf("%s at most %d characters", name, c.MaxLengths[name]))
		}
		parts = append(parts, fmt.Sprintf("Enforce these length limits: %s.", strings.Join(limits, ", ")))
	}
	if len(c.Patterns) > 0 {
		names := make([]string, 0, len(c.Patterns))
		for name := range c.Patterns {
			names = append(names, name)
		}
		sort.Strings(names)
		rules := make([]string, 0, len(names))
		for _, name := range names {
			rules = append(rules, fmt.Sprintf("%s must match %s", name, c.Patterns[name]))
		}
		parts = append(parts, fmt.Sprintf("Validate these formats: %s.", strings.Join(rules, "; ")))
	}
	return strings.Join(parts, " ")
}
