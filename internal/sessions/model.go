package sessions

import (
	"encoding/json"
	"time"
)

// Session is the canonical state of one resume-building conversation.
// UserData holds one normalized JSON payload per completed section and is
// the single source of truth for rendering.
type Session struct {
	ID               string                     `json:"id"`
	SessionType      string                     `json:"sessionType"`
	CurrentDialog    string                     `json:"currentDialog"`
	CompletedDialogs []string                   `json:"completedDialogs"`
	UserData         map[string]json.RawMessage `json:"userData"`
	SourceResumeKey  string                     `json:"sourceResumeKey,omitempty"`
	CreatedAt        time.Time                  `json:"createdAt"`
	UpdatedAt        time.Time                  `json:"updatedAt"`
}

// Done reports whether the session has walked its whole flow.
func (s *Session) Done() bool {
	return s.CurrentDialog == ""
}

// HasCompleted reports whether a dialog step was already submitted.
func (s *Session) HasCompleted(dialogID string) bool {
	for _, d := range s.CompletedDialogs {
		if d == dialogID {
			return true
		}
	}
	return false
}

// Section returns the stored payload for a section, if any.
func (s *Session) Section(section string) (json.RawMessage, bool) {
	raw, ok := s.UserData[section]
	return raw, ok
}

// DialogArtifact is the generated UI for one dialog step, handed back to
// the hosting client alongside session progress.
type DialogArtifact struct {
	DialogID     string `json:"dialogId"`
	Code         string `json:"code"`
	Instructions string `json:"instructions"`
	Cached       bool   `json:"cached"`
}
