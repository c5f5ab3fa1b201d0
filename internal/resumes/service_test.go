package resumes

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"resume-builder/internal/convert"
	"resume-builder/internal/dialog"
	"resume-builder/internal/llm"
	"resume-builder/internal/sessions"
	"resume-builder/internal/shared/storage/kv"
)

type fakeConverter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeConverter) Convert(ctx context.Context, html, format, paperSize, margins string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []byte("converted:" + format + ":" + paperSize + ":" + margins), nil
}

type noopLLM struct{}

func (noopLLM) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	return "", llm.ErrNotConfigured
}

type fixture struct {
	svc      *Service
	sessions *sessions.Service
	conv     *fakeConverter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg, err := dialog.Load()
	if err != nil {
		t.Fatalf("dialog.Load: %v", err)
	}
	sessionSvc := sessions.NewService(sessions.NewRepo(kv.NewMemoryStore(), time.Hour), reg, noopLLM{})

	tokens, err := NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	conv := &fakeConverter{}
	svc := NewService(NewMemoryRepo(), sessionSvc, conv, kv.NewMemoryStore(), tokens, time.Hour)
	return &fixture{svc: svc, sessions: sessionSvc, conv: conv}
}

func (f *fixture) startSession(t *testing.T) *sessions.Session {
	t.Helper()
	ctx := context.Background()
	sess, err := f.sessions.Start(ctx, dialog.TypeComprehensive)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	seeds := map[string]string{
		dialog.SectionPersonal: `{"fullName":"Dana Reyes","email":"dana@example.com","headline":"Backend Engineer"}`,
		dialog.SectionSummary:  `{"text":"Backend engineer with eight years of experience building payment systems in Go."}`,
		dialog.SectionSkills:   `{"groups":[{"name":"Languages","items":["Go","SQL"]}]}`,
	}
	for section, payload := range seeds {
		if _, err := f.sessions.ApplyStructured(ctx, sess.ID, section, json.RawMessage(payload)); err != nil {
			t.Fatalf("seed %s: %v", section, err)
		}
	}
	return sess
}

func TestRenderSnapshotsAreImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.startSession(t)

	first, firstToken, err := f.svc.Render(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if first.Title != "Dana Reyes - Resume" {
		t.Fatalf("Title = %s", first.Title)
	}
	if !strings.Contains(first.HTML, "Dana Reyes") || !strings.Contains(first.HTML, "payment systems") {
		t.Fatalf("snapshot missing section data")
	}

	// Edit the session, render again: new record, old snapshot frozen.
	if _, err := f.sessions.ApplyStructured(ctx, sess.ID, dialog.SectionSummary, json.RawMessage(`{"text":"Totally rewritten summary with more than forty characters inside it."}`)); err != nil {
		t.Fatalf("edit summary: %v", err)
	}
	second, _, err := f.svc.Render(ctx, sess.ID)
	if err != nil {
		t.Fatalf("second Render: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("render reused the record id")
	}

	stored, err := f.svc.View(ctx, first.ID, firstToken)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if strings.Contains(stored.HTML, "Totally rewritten") {
		t.Fatalf("earlier snapshot changed after re-render")
	}
	if !strings.Contains(second.HTML, "Totally rewritten") {
		t.Fatalf("new snapshot missing edited data")
	}
}

func TestRenderDefaultTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.sessions.Start(ctx, dialog.TypeDesignOnly)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	resume, _, err := f.svc.Render(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if resume.Title != "Professional Resume" {
		t.Fatalf("Title = %s", resume.Title)
	}
}

func TestViewTokenMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.startSession(t)

	first, _, err := f.svc.Render(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	_, secondToken, err := f.svc.Render(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if _, err := f.svc.View(ctx, first.ID, secondToken); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("error = %v, want ErrAccessDenied", err)
	}
	if _, err := f.svc.View(ctx, first.ID, "garbage"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("error = %v, want ErrAccessDenied", err)
	}
}

func TestExportCachesByParameters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.startSession(t)

	resume, token, err := f.svc.Render(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	first, err := f.svc.ExportResume(ctx, resume.ID, token, convert.FormatPDF, "a4", "normal")
	if err != nil {
		t.Fatalf("ExportResume: %v", err)
	}
	if first.Cached || f.conv.calls != 1 {
		t.Fatalf("first export: cached=%v calls=%d", first.Cached, f.conv.calls)
	}
	if first.MimeType != "application/pdf" {
		t.Fatalf("mime = %s", first.MimeType)
	}

	second, err := f.svc.ExportResume(ctx, resume.ID, token, convert.FormatPDF, "a4", "normal")
	if err != nil {
		t.Fatalf("repeat ExportResume: %v", err)
	}
	if !second.Cached || f.conv.calls != 1 {
		t.Fatalf("repeat export hit the converter: cached=%v calls=%d", second.Cached, f.conv.calls)
	}

	// Any parameter change misses the cache.
	third, err := f.svc.ExportResume(ctx, resume.ID, token, convert.FormatPDF, "letter", "normal")
	if err != nil {
		t.Fatalf("letter ExportResume: %v", err)
	}
	if third.Cached || f.conv.calls != 2 {
		t.Fatalf("parameter change served from cache: cached=%v calls=%d", third.Cached, f.conv.calls)
	}
}

func TestExportHTMLBypassesConverter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.startSession(t)

	resume, token, err := f.svc.Render(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	export, err := f.svc.ExportResume(ctx, resume.ID, token, "html", "a4", "normal")
	if err != nil {
		t.Fatalf("ExportResume: %v", err)
	}
	if f.conv.calls != 0 {
		t.Fatalf("html export called the converter")
	}
	if string(export.Data) != resume.HTML {
		t.Fatalf("html export does not match the snapshot")
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.startSession(t)

	resume, token, err := f.svc.Render(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if _, err := f.svc.ExportResume(ctx, resume.ID, token, "odt", "a4", "normal"); !errors.Is(err, convert.ErrUnsupportedFormat) {
		t.Fatalf("error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestExportConverterFailure(t *testing.T) {
	f := newFixture(t)
	f.conv.err = convert.ErrUnavailable
	ctx := context.Background()
	sess := f.startSession(t)

	resume, token, err := f.svc.Render(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if _, err := f.svc.ExportResume(ctx, resume.ID, token, convert.FormatPDF, "a4", "normal"); !errors.Is(err, convert.ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}
