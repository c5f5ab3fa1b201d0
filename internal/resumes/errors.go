package resumes

import "errors"

var (
	// ErrNotFound indicates the resume record does not exist.
	ErrNotFound = errors.New("resume not found")

	// ErrAccessDenied indicates a missing, invalid, expired, or
	// mismatched access token. Deliberately distinct from ErrNotFound.
	ErrAccessDenied = errors.New("access denied")
)
