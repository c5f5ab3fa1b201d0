package resumes

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"resume-builder/internal/convert"
	"resume-builder/internal/sessions"
	"resume-builder/internal/shared/storage/kv"
	"resume-builder/internal/shared/telemetry"
	"resume-builder/internal/shared/util"
)

// Export format handled without the converter.
const formatHTML = "html"

var exportMimes = map[string]string{
	convert.FormatPDF:  "application/pdf",
	convert.FormatDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	formatHTML:         "text/html; charset=utf-8",
}

// Export is the outcome of an export request.
type Export struct {
	Data     []byte
	MimeType string
	FileName string
	Cached   bool
}

// Service renders immutable resume snapshots and serves token-gated
// viewing and export.
type Service struct {
	repo      Repo
	sessions  *sessions.Service
	converter convert.Converter
	cache     kv.Store
	tokens    *TokenIssuer
	exportTTL time.Duration
	now       func() time.Time
}

// NewService wires the resume service.
func NewService(repo Repo, sessionSvc *sessions.Service, converter convert.Converter, cache kv.Store, tokens *TokenIssuer, exportTTL time.Duration) *Service {
	return &Service{
		repo:      repo,
		sessions:  sessionSvc,
		converter: converter,
		cache:     cache,
		tokens:    tokens,
		exportTTL: exportTTL,
		now:       time.Now,
	}
}

// Render snapshots the session's current document into a new immutable
// resume record and mints an access token for it. Rendering again after
// further edits produces a fresh record; earlier ones stay as they were.
func (s *Service) Render(ctx context.Context, sessionID string) (Resume, string, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return Resume{}, "", err
	}

	title, html, err := renderHTML(sess)
	if err != nil {
		return Resume{}, "", err
	}

	now := s.now().UTC()
	resume := Resume{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		Title:     title,
		HTML:      html,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, resume); err != nil {
		return Resume{}, "", fmt.Errorf("store resume: %w", err)
	}

	token, err := s.tokens.Issue(resume.ID)
	if err != nil {
		return Resume{}, "", fmt.Errorf("issue access token: %w", err)
	}

	telemetry.Info("resume.rendered", map[string]any{
		"session_id": sess.ID,
		"resume_id":  resume.ID,
		"html_bytes": len(html),
	})
	return resume, token, nil
}

// History lists the session's rendered resume records, newest first.
// Each render is a separate immutable record, so this is the session's
// finalize trail.
func (s *Service) History(ctx context.Context, sessionID string) ([]Resume, error) {
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.repo.ListBySession(ctx, sessionID, 0)
}

// View returns the resume behind a valid access token. Token failures
// are reported before existence is consulted, so an invalid token never
// learns whether the resume exists.
func (s *Service) View(ctx context.Context, resumeID, token string) (Resume, error) {
	if err := s.authorize(resumeID, token); err != nil {
		return Resume{}, err
	}
	return s.repo.GetByID(ctx, resumeID)
}

// ExportResume produces the resume in the requested format, serving
// repeat requests with identical parameters from cache. HTML comes
// straight from the stored snapshot; binary formats go through the
// converter.
func (s *Service) ExportResume(ctx context.Context, resumeID, token, format, paperSize, margins string) (Export, error) {
	if err := s.authorize(resumeID, token); err != nil {
		return Export{}, err
	}
	mime, ok := exportMimes[format]
	if !ok {
		return Export{}, fmt.Errorf("%w: %s", convert.ErrUnsupportedFormat, format)
	}

	resume, err := s.repo.GetByID(ctx, resumeID)
	if err != nil {
		return Export{}, err
	}

	fileName, err := util.SanitizeFileName(resume.Title + "." + format)
	if err != nil {
		fileName = "resume." + format
	}

	if format == formatHTML {
		return Export{Data: []byte(resume.HTML), MimeType: mime, FileName: fileName}, nil
	}

	key := exportKey(resumeID, format, paperSize, margins)
	if data, err := s.cache.Get(ctx, key); err == nil {
		return Export{Data: data, MimeType: mime, FileName: fileName, Cached: true}, nil
	}

	data, err := s.converter.Convert(ctx, resume.HTML, format, paperSize, margins)
	if err != nil {
		return Export{}, err
	}
	if err := s.cache.Set(ctx, key, data, s.exportTTL); err != nil {
		telemetry.Warn("export.cache_write_failed", map[string]any{
			"resume_id": resumeID,
			"error":     err.Error(),
		})
	}

	telemetry.Info("resume.exported", map[string]any{
		"resume_id": resumeID,
		"format":    format,
		"bytes":     len(data),
	})
	return Export{Data: data, MimeType: mime, FileName: fileName}, nil
}

func (s *Service) authorize(resumeID, token string) error {
	subject, err := s.tokens.Verify(token)
	if err != nil {
		return err
	}
	if subject != resumeID {
		return fmt.Errorf("%w: token subject mismatch", ErrAccessDenied)
	}
	return nil
}

// exportKey covers every parameter that changes the derived bytes.
func exportKey(resumeID, format, paperSize, margins string) string {
	return "export:" + resumeID + ":" + util.Fingerprint(format, paperSize, margins)
}
