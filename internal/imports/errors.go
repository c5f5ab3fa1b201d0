package imports

import "errors"

var (
	// ErrUnsupported indicates an upload that is neither PDF nor DOCX.
	ErrUnsupported = errors.New("unsupported resume format")

	// ErrParse indicates the uploaded resume could not be mapped onto
	// section payloads. The session is left untouched.
	ErrParse = errors.New("resume could not be parsed")
)
