package imports

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"resume-builder/internal/dialog"
	"resume-builder/internal/llm"
	"resume-builder/internal/sessions"
	"resume-builder/internal/shared/storage/object"
	"resume-builder/internal/shared/telemetry"
	"resume-builder/internal/shared/util"
)

const (
	// maxTextChars bounds how much extracted resume text goes into the
	// mapping prompt.
	maxTextChars  = 15000
	mapMaxTokens  = 2000
	minTextLength = 40
)

// Service seeds a session from an uploaded resume: store the file,
// extract its text, map the text onto section payloads with the model,
// and write every section at once.
type Service struct {
	sessions *sessions.Service
	llm      llm.Client
	store    object.ObjectStore
}

// NewService wires the import service.
func NewService(sessionSvc *sessions.Service, client llm.Client, store object.ObjectStore) *Service {
	return &Service{sessions: sessionSvc, llm: client, store: store}
}

// Import parses an uploaded resume document and seeds the session's
// sections from it. On any mapping or validation failure the session is
// left exactly as it was.
func (s *Service) Import(ctx context.Context, sessionID, fileName string, r io.Reader) (*sessions.Session, error) {
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	key, _, mimeType, err := s.store.Save(ctx, sessionID, fileName, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	text, err := extractText(data, mimeType, fileName)
	if err != nil {
		return nil, err
	}
	if len(text) < minTextLength {
		return nil, fmt.Errorf("%w: extracted text too short", ErrParse)
	}
	if len(text) > maxTextChars {
		text = text[:maxTextChars]
	}

	raw, err := s.llm.Complete(ctx, llm.CompletionRequest{
		System:    mappingSystemPrompt,
		User:      "Resume text:\n\n" + text,
		MaxTokens: mapMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("map resume: %w", err)
	}

	mapped, err := decodeSections(raw)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.SeedSections(ctx, sessionID, mapped, key)
	if err != nil {
		var sv *dialog.SchemaViolationError
		if errors.As(err, &sv) {
			return nil, fmt.Errorf("%w: section %s rejected (%v)", ErrParse, sv.Section, sv.Fields)
		}
		return nil, err
	}

	telemetry.Info("import.completed", map[string]any{
		"session_id": sessionID,
		"sections":   len(mapped),
		"file_key":   key,
	})
	return sess, nil
}

// decodeSections parses the model response into per-section payloads,
// dropping keys that are not recognized sections.
func decodeSections(raw string) (map[string]json.RawMessage, error) {
	clean := util.StripCodeFence(raw)

	var mapped map[string]json.RawMessage
	if err := json.Unmarshal([]byte(clean), &mapped); err != nil {
		return nil, fmt.Errorf("%w: response is not a JSON object", ErrParse)
	}

	out := make(map[string]json.RawMessage, len(mapped))
	for section, payload := range mapped {
		if !dialog.KnownSection(section) {
			continue
		}
		if len(bytes.TrimSpace(payload)) == 0 || string(payload) == "null" {
			continue
		}
		out[section] = payload
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no recognizable sections", ErrParse)
	}
	return out, nil
}

const mappingSystemPrompt = `You map raw resume text onto the sections of a ` +
	`structured resume document. Respond with only a JSON object whose keys ` +
	`are section names and whose values are the section payloads:
  "personal": {"fullName", "email", "phone"?, "location"?, "headline"?, "industry"?, "links"?: [{"label","url"}]}
  "summary": {"text"}
  "work_experience": {"positions": [{"title","company","location"?,"startDate","endDate"?,"highlights"?: [..]}]}
  "education": {"schools": [{"institution","degree"?,"field"?,"startYear"?,"endYear"?,"notes"?}]}
  "skills": {"groups": [{"name","items": [..]}]}
Dates are YYYY or YYYY-MM; years are four digits. Omit any section the ` +
	`text has no content for, and omit optional fields you cannot fill. ` +
	`Never invent facts that are not in the text.`
