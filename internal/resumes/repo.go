package resumes

import "context"

// Repo defines persistence operations for rendered resumes.
type Repo interface {
	Create(ctx context.Context, resume Resume) error
	GetByID(ctx context.Context, id string) (Resume, error)
	ListBySession(ctx context.Context, sessionID string, limit int) ([]Resume, error)
}
