package resumes

import "time"

// Resume is an immutable rendered snapshot of a session's document.
// Rendering the same session again produces a new record with a new ID;
// existing records never change.
type Resume struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Title     string    `json:"title"`
	HTML      string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
