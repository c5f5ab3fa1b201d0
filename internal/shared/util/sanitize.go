package util

import (
	"errors"
	"strings"
)

// SanitizeFileName removes path separators and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	if s == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}

// HashKey returns a filesystem-safe identifier for an arbitrary key such
// as a session ID.
func HashKey(s string) string {
	return hashHex(s)
}

// StripCodeFence extracts machine-readable output from a model response.
// When the response carries a markdown fence anywhere, the first fenced
// block wins and surrounding prose is discarded. Unfenced responses are
// trimmed of leading prose lines ahead of the first code-like line.
func StripCodeFence(s string) string {
	out := strings.TrimSpace(s)
	if i := strings.Index(out, "```"); i >= 0 {
		out = out[i+3:]
		// Drop the language tag on the opening fence line.
		if idx := strings.IndexByte(out, '\n'); idx >= 0 {
			first := strings.TrimSpace(out[:idx])
			if len(first) <= 12 && !strings.ContainsAny(first, "{}<>()") {
				out = out[idx+1:]
			}
		}
		if idx := strings.Index(out, "```"); idx >= 0 {
			out = out[:idx]
		}
		return strings.TrimSpace(out)
	}
	return stripLeadingProse(out)
}

var codeLinePrefixes = []string{
	"import ", "export ", "function ", "function(",
	"const ", "let ", "var ", "class ", "async ",
	"return ", "//", "/*", "<", "{", "[",
}

// stripLeadingProse drops conversational filler ahead of the first line
// that looks like code or JSON. Responses with no such line pass through.
func stripLeadingProse(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		for _, p := range codeLinePrefixes {
			if strings.HasPrefix(trimmed, p) {
				return strings.TrimSpace(strings.Join(lines[i:], "\n"))
			}
		}
	}
	return s
}
