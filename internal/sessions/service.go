package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"resume-builder/internal/dialog"
	"resume-builder/internal/llm"
	"resume-builder/internal/shared/telemetry"
	"resume-builder/internal/shared/util"
)

const editMaxTokens = 1200

// Service owns session lifecycle and reconciles dialog submissions and
// free-form edits into canonical section data. All mutations of one
// session are serialized behind a per-id lock.
type Service struct {
	repo  Repo
	reg   *dialog.Registry
	llm   llm.Client
	locks *keyedLocks
	now   func() time.Time
}

// NewService wires the session service.
func NewService(repo Repo, reg *dialog.Registry, client llm.Client) *Service {
	return &Service{
		repo:  repo,
		reg:   reg,
		llm:   client,
		locks: newKeyedLocks(),
		now:   time.Now,
	}
}

// Registry exposes the flow and template configuration backing sessions.
func (s *Service) Registry() *dialog.Registry {
	return s.reg
}

// Start creates a session positioned at the first step of its flow.
// Unrecognized session types fall back to the comprehensive flow.
func (s *Service) Start(ctx context.Context, sessionType string) (*Session, error) {
	normalized := s.reg.NormalizeSessionType(sessionType)
	flow := s.reg.Flow(normalized)

	now := s.now().UTC()
	sess := &Session{
		ID:               uuid.NewString(),
		SessionType:      normalized,
		CurrentDialog:    flow[0],
		CompletedDialogs: []string{},
		UserData:         map[string]json.RawMessage{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, err
	}
	telemetry.Info("session.started", map[string]any{
		"session_id":   sess.ID,
		"session_type": normalized,
		"flow_length":  len(flow),
	})
	return sess, nil
}

// Get loads a session.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	return s.repo.Get(ctx, id)
}

// SubmitDialog validates a dialog submission, writes its section, and
// advances the flow.
//
// Sequencing: a submission for the current step proceeds. A step that is
// not part of the session's flow at all resets the session to its first
// step and returns ErrDialogOutOfSequence. A flow step other than the
// current one returns ErrDialogOutOfSequence with the session unchanged.
// In both error cases the (possibly reset) session is returned so the
// caller can tell the client where the flow stands.
func (s *Service) SubmitDialog(ctx context.Context, id, dialogID string, payload json.RawMessage) (*Session, error) {
	release := s.locks.acquire(id)
	defer release()

	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	flow := s.reg.Flow(sess.SessionType)
	step := indexOf(flow, dialogID)
	if step < 0 {
		sess.CurrentDialog = flow[0]
		sess.UpdatedAt = s.now().UTC()
		if err := s.repo.Save(ctx, sess); err != nil {
			return nil, err
		}
		telemetry.Warn("session.flow_reset", map[string]any{
			"session_id": id,
			"dialog_id":  dialogID,
		})
		return sess, fmt.Errorf("%w: %s is not part of the %s flow", ErrDialogOutOfSequence, dialogID, sess.SessionType)
	}
	if dialogID != sess.CurrentDialog {
		return sess, fmt.Errorf("%w: expected %s, got %s", ErrDialogOutOfSequence, sess.CurrentDialog, dialogID)
	}

	section, normalized, err := s.reg.ValidateDialogPayload(dialogID, payload)
	if err != nil {
		return nil, err
	}
	if section != "" {
		sess.UserData[section] = normalized
	}
	if !sess.HasCompleted(dialogID) {
		sess.CompletedDialogs = append(sess.CompletedDialogs, dialogID)
	}
	if step+1 < len(flow) {
		sess.CurrentDialog = flow[step+1]
	} else {
		sess.CurrentDialog = ""
	}
	sess.UpdatedAt = s.now().UTC()

	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, err
	}
	telemetry.Info("session.dialog_submitted", map[string]any{
		"session_id": id,
		"dialog_id":  dialogID,
		"next":       sess.CurrentDialog,
	})
	return sess, nil
}

// ApplyStructured overwrites one section with a validated payload. The
// flow position is untouched, so sections can be revised in any order,
// including after completion.
func (s *Service) ApplyStructured(ctx context.Context, id, section string, payload json.RawMessage) (*Session, error) {
	release := s.locks.acquire(id)
	defer release()

	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	normalized, err := s.reg.ValidateSection(section, payload)
	if err != nil {
		return nil, err
	}
	sess.UserData[section] = normalized
	sess.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// ApplyInstruction revises an existing section per a natural-language
// instruction. The revised payload must validate against the section
// schema; on any parse or validation failure the stored section is left
// exactly as it was and ErrEditParse is returned.
func (s *Service) ApplyInstruction(ctx context.Context, id, section, instruction string) (*Session, error) {
	release := s.locks.acquire(id)
	defer release()

	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	current, ok := sess.Section(section)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, section)
	}

	raw, err := s.llm.Complete(ctx, llm.CompletionRequest{
		System:    editSystemPrompt,
		User:      editUserPrompt(section, current, instruction),
		MaxTokens: editMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("revise section %s: %w", section, err)
	}

	revised := util.StripCodeFence(raw)
	normalized, err := s.reg.ValidateSection(section, []byte(revised))
	if err != nil {
		telemetry.Warn("session.edit_rejected", map[string]any{
			"session_id": id,
			"section":    section,
			"reason":     err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", ErrEditParse, err)
	}

	sess.UserData[section] = normalized
	sess.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, err
	}
	telemetry.Info("session.section_edited", map[string]any{
		"session_id": id,
		"section":    section,
	})
	return sess, nil
}

// SeedSections writes several sections at once, all-or-nothing: every
// payload is validated before any write happens. Used by resume import.
func (s *Service) SeedSections(ctx context.Context, id string, data map[string]json.RawMessage, sourceKey string) (*Session, error) {
	release := s.locks.acquire(id)
	defer release()

	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	normalized := make(map[string]json.RawMessage, len(data))
	for section, payload := range data {
		clean, err := s.reg.ValidateSection(section, payload)
		if err != nil {
			return nil, err
		}
		normalized[section] = clean
	}

	for section, payload := range normalized {
		sess.UserData[section] = payload
	}
	if sourceKey != "" {
		sess.SourceResumeKey = sourceKey
	}
	sess.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

const editSystemPrompt = `You revise one section of a resume document. ` +
	`Apply the user's instruction to the current content and respond with ` +
	`only the revised JSON object for that section. Keep the exact same ` +
	`JSON shape and field names. Do not add fields, prose, or code fences.`

func editUserPrompt(section string, current json.RawMessage, instruction string) string {
	return fmt.Sprintf("Section: %s\n\nCurrent content:\n%s\n\nInstruction:\n%s", section, current, instruction)
}

func indexOf(steps []string, id string) int {
	for i, s := range steps {
		if s == id {
			return i
		}
	}
	return -1
}
