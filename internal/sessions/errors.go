package sessions

import "errors"

var (
	// ErrNotFound indicates the session does not exist or has expired.
	ErrNotFound = errors.New("session not found")

	// ErrDialogOutOfSequence indicates a dialog submission that does not
	// match the session's current step. Recoverable: when the submitted
	// step is not part of the flow at all, the session is reset to its
	// first step before this error is returned.
	ErrDialogOutOfSequence = errors.New("dialog out of sequence")

	// ErrSectionNotFound indicates an instruction edit against a section
	// the session has no content for.
	ErrSectionNotFound = errors.New("section not found in session")

	// ErrEditParse indicates the revised section returned by the model
	// could not be parsed or failed validation. The stored section is
	// left untouched.
	ErrEditParse = errors.New("edited section could not be parsed")
)
