package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"resume-builder/internal/dialog"
	"resume-builder/internal/llm"
	"resume-builder/internal/shared/storage/kv"
)

type fakeLLM struct {
	resp  string
	err   error
	calls int
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.resp, nil
}

func newTestService(t *testing.T, client llm.Client) *Service {
	t.Helper()
	reg, err := dialog.Load()
	if err != nil {
		t.Fatalf("dialog.Load: %v", err)
	}
	if client == nil {
		client = &fakeLLM{}
	}
	repo := NewRepo(kv.NewMemoryStore(), time.Hour)
	return NewService(repo, reg, client)
}

var validPayloads = map[string]string{
	"personal_info":      `{"fullName":"Dana Reyes","email":"dana@example.com"}`,
	"work_experience":    `{"positions":[{"title":"Engineer","company":"Northwind","startDate":"2021-03"}]}`,
	"education":          `{"schools":[{"institution":"University of Washington"}]}`,
	"skills":             `{"groups":[{"name":"Languages","items":["Go","SQL"]}]}`,
	"summary":            `{"text":"Backend engineer with eight years of experience building payment systems in Go."}`,
	"template_selection": `{"templateId":"modern"}`,
	"final_review":       `{"approved":true}`,
}

func TestStartDefaultsToComprehensive(t *testing.T) {
	svc := newTestService(t, nil)

	sess, err := svc.Start(context.Background(), "something_unrecognized")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sess.SessionType != dialog.TypeComprehensive {
		t.Fatalf("SessionType = %s, want comprehensive", sess.SessionType)
	}
	if sess.CurrentDialog != "personal_info" {
		t.Fatalf("CurrentDialog = %s, want personal_info", sess.CurrentDialog)
	}
	if sess.Done() {
		t.Fatalf("new session reports done")
	}
}

func TestFullFlowWalk(t *testing.T) {
	for _, sessionType := range []string{dialog.TypeComprehensive, dialog.TypeContentGeneration, dialog.TypeDesignOnly} {
		t.Run(sessionType, func(t *testing.T) {
			svc := newTestService(t, nil)
			ctx := context.Background()

			sess, err := svc.Start(ctx, sessionType)
			if err != nil {
				t.Fatalf("Start: %v", err)
			}
			flow := svc.Registry().Flow(sessionType)

			for _, step := range flow {
				payload, ok := validPayloads[step]
				if !ok {
					t.Fatalf("no test payload for step %s", step)
				}
				sess, err = svc.SubmitDialog(ctx, sess.ID, step, json.RawMessage(payload))
				if err != nil {
					t.Fatalf("SubmitDialog(%s): %v", step, err)
				}
			}

			if !sess.Done() {
				t.Fatalf("session not done after full flow, current = %s", sess.CurrentDialog)
			}
			if len(sess.CompletedDialogs) != len(flow) {
				t.Fatalf("completed %d dialogs, want %d", len(sess.CompletedDialogs), len(flow))
			}
		})
	}
}

func TestSubmitDialogAheadOfCurrent(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	sess, err := svc.Start(ctx, dialog.TypeComprehensive)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	got, err := svc.SubmitDialog(ctx, sess.ID, "summary", json.RawMessage(validPayloads["summary"]))
	if !errors.Is(err, ErrDialogOutOfSequence) {
		t.Fatalf("error = %v, want ErrDialogOutOfSequence", err)
	}
	if got.CurrentDialog != "personal_info" {
		t.Fatalf("CurrentDialog moved to %s", got.CurrentDialog)
	}

	// The session in the store is untouched.
	stored, err := svc.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(stored.CompletedDialogs) != 0 || len(stored.UserData) != 0 {
		t.Fatalf("out-of-sequence submission mutated the session")
	}
}

func TestSubmitDialogUnknownStepResetsFlow(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	sess, err := svc.Start(ctx, dialog.TypeComprehensive)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	sess, err = svc.SubmitDialog(ctx, sess.ID, "personal_info", json.RawMessage(validPayloads["personal_info"]))
	if err != nil {
		t.Fatalf("SubmitDialog: %v", err)
	}
	if sess.CurrentDialog != "work_experience" {
		t.Fatalf("CurrentDialog = %s after first step", sess.CurrentDialog)
	}

	got, err := svc.SubmitDialog(ctx, sess.ID, "ghost_dialog", json.RawMessage(`{}`))
	if !errors.Is(err, ErrDialogOutOfSequence) {
		t.Fatalf("error = %v, want ErrDialogOutOfSequence", err)
	}
	if got.CurrentDialog != "personal_info" {
		t.Fatalf("CurrentDialog = %s, want reset to personal_info", got.CurrentDialog)
	}

	stored, err := svc.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.CurrentDialog != "personal_info" {
		t.Fatalf("reset was not persisted, current = %s", stored.CurrentDialog)
	}
	// Earlier section data survives the reset.
	if _, ok := stored.Section(dialog.SectionPersonal); !ok {
		t.Fatalf("personal section lost on flow reset")
	}
}

func TestSubmitDialogSchemaViolation(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	sess, err := svc.Start(ctx, dialog.TypeComprehensive)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	_, err = svc.SubmitDialog(ctx, sess.ID, "personal_info", json.RawMessage(`{"fullName":"Dana Reyes"}`))
	var sv *dialog.SchemaViolationError
	if !errors.As(err, &sv) {
		t.Fatalf("error = %v, want *SchemaViolationError", err)
	}

	stored, err := svc.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.CurrentDialog != "personal_info" || len(stored.UserData) != 0 {
		t.Fatalf("rejected submission mutated the session")
	}
}

func TestApplyStructuredDoesNotAdvanceFlow(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	sess, err := svc.Start(ctx, dialog.TypeComprehensive)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	got, err := svc.ApplyStructured(ctx, sess.ID, dialog.SectionSummary, json.RawMessage(validPayloads["summary"]))
	if err != nil {
		t.Fatalf("ApplyStructured: %v", err)
	}
	if got.CurrentDialog != "personal_info" {
		t.Fatalf("structured edit advanced the flow to %s", got.CurrentDialog)
	}
	if len(got.CompletedDialogs) != 0 {
		t.Fatalf("structured edit marked dialogs completed")
	}
	if _, ok := got.Section(dialog.SectionSummary); !ok {
		t.Fatalf("summary section not stored")
	}
}

func TestApplyStructuredIsIdempotent(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	sess, err := svc.Start(ctx, dialog.TypeComprehensive)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	payload := json.RawMessage(`{"email":"dana@example.com","fullName":"Dana Reyes"}`)
	first, err := svc.ApplyStructured(ctx, sess.ID, dialog.SectionPersonal, payload)
	if err != nil {
		t.Fatalf("first ApplyStructured: %v", err)
	}
	second, err := svc.ApplyStructured(ctx, sess.ID, dialog.SectionPersonal, payload)
	if err != nil {
		t.Fatalf("second ApplyStructured: %v", err)
	}

	if len(first.UserData) != len(second.UserData) {
		t.Fatalf("section count changed: %d -> %d", len(first.UserData), len(second.UserData))
	}
	for section, raw := range first.UserData {
		if got := string(second.UserData[section]); got != string(raw) {
			t.Fatalf("section %s changed on repeat: %s -> %s", section, raw, got)
		}
	}
	if second.CurrentDialog != first.CurrentDialog {
		t.Fatalf("CurrentDialog changed on repeat: %s -> %s", first.CurrentDialog, second.CurrentDialog)
	}
	if len(second.CompletedDialogs) != len(first.CompletedDialogs) {
		t.Fatalf("CompletedDialogs changed on repeat: %v -> %v", first.CompletedDialogs, second.CompletedDialogs)
	}
}

func TestApplyInstruction(t *testing.T) {
	client := &fakeLLM{resp: "```json\n{\"text\":\"" + strings.Repeat("b", 60) + "\"}\n```"}
	svc := newTestService(t, client)
	ctx := context.Background()

	sess, err := svc.Start(ctx, dialog.TypeComprehensive)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.ApplyStructured(ctx, sess.ID, dialog.SectionSummary, json.RawMessage(validPayloads["summary"])); err != nil {
		t.Fatalf("seed summary: %v", err)
	}

	got, err := svc.ApplyInstruction(ctx, sess.ID, dialog.SectionSummary, "make it punchier")
	if err != nil {
		t.Fatalf("ApplyInstruction: %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("llm called %d times, want 1", client.calls)
	}
	raw, _ := got.Section(dialog.SectionSummary)
	if !strings.Contains(string(raw), strings.Repeat("b", 60)) {
		t.Fatalf("revised summary not stored: %s", raw)
	}
}

func TestApplyInstructionParseFailureLeavesSectionIntact(t *testing.T) {
	client := &fakeLLM{resp: "Sure! Here is a punchier version of your summary."}
	svc := newTestService(t, client)
	ctx := context.Background()

	sess, err := svc.Start(ctx, dialog.TypeComprehensive)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.ApplyStructured(ctx, sess.ID, dialog.SectionSummary, json.RawMessage(validPayloads["summary"])); err != nil {
		t.Fatalf("seed summary: %v", err)
	}

	_, err = svc.ApplyInstruction(ctx, sess.ID, dialog.SectionSummary, "make it punchier")
	if !errors.Is(err, ErrEditParse) {
		t.Fatalf("error = %v, want ErrEditParse", err)
	}

	stored, err := svc.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	raw, _ := stored.Section(dialog.SectionSummary)
	if !strings.Contains(string(raw), "eight years of experience") {
		t.Fatalf("failed edit overwrote the section: %s", raw)
	}
}

func TestApplyInstructionMissingSection(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	sess, err := svc.Start(ctx, dialog.TypeComprehensive)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, err = svc.ApplyInstruction(ctx, sess.ID, dialog.SectionSummary, "shorten it")
	if !errors.Is(err, ErrSectionNotFound) {
		t.Fatalf("error = %v, want ErrSectionNotFound", err)
	}
}

func TestSeedSectionsAllOrNothing(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	sess, err := svc.Start(ctx, dialog.TypeComprehensive)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	_, err = svc.SeedSections(ctx, sess.ID, map[string]json.RawMessage{
		dialog.SectionPersonal: json.RawMessage(validPayloads["personal_info"]),
		dialog.SectionSummary:  json.RawMessage(`{"text":"too short"}`),
	}, "upload-key")
	var sv *dialog.SchemaViolationError
	if !errors.As(err, &sv) {
		t.Fatalf("error = %v, want *SchemaViolationError", err)
	}

	stored, err := svc.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(stored.UserData) != 0 || stored.SourceResumeKey != "" {
		t.Fatalf("partial seed was written: %+v", stored)
	}

	got, err := svc.SeedSections(ctx, sess.ID, map[string]json.RawMessage{
		dialog.SectionPersonal: json.RawMessage(validPayloads["personal_info"]),
		dialog.SectionSummary:  json.RawMessage(validPayloads["summary"]),
	}, "upload-key")
	if err != nil {
		t.Fatalf("SeedSections: %v", err)
	}
	if len(got.UserData) != 2 || got.SourceResumeKey != "upload-key" {
		t.Fatalf("seed not applied: %+v", got)
	}
}

func TestGetMissingSession(t *testing.T) {
	svc := newTestService(t, nil)
	if _, err := svc.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}
