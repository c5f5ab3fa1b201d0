package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/dialog"
	"resume-builder/internal/llm"
	"resume-builder/internal/shared/server/respond"
)

// ArtifactProvider produces the generated UI for a dialog step.
type ArtifactProvider interface {
	ForDialog(ctx context.Context, sess *Session, dialogID string) (*DialogArtifact, error)
	Invalidate(ctx context.Context, sessionID, dialogID string)
}

// Handler exposes the session flow over HTTP.
type Handler struct {
	svc       *Service
	artifacts ArtifactProvider
}

// NewHandler wires the session handler.
func NewHandler(svc *Service, artifacts ArtifactProvider) *Handler {
	return &Handler{svc: svc, artifacts: artifacts}
}

// RegisterRoutes mounts the session routes on the given group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions", h.start)
	rg.GET("/sessions/:id", h.get)
	rg.GET("/sessions/:id/dialogs/:dialogId/artifact", h.dialogArtifact)
	rg.POST("/sessions/:id/dialogs/:dialogId", h.submitDialog)
	rg.POST("/sessions/:id/sections/:section/edits", h.submitEdit)
}

type startRequest struct {
	SessionType string `json:"sessionType"`
}

func (h *Handler) start(c *gin.Context) {
	var req startRequest
	// An absent or malformed body falls back to the default flow.
	_ = c.ShouldBindJSON(&req)

	sess, err := h.svc.Start(c.Request.Context(), req.SessionType)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "INTERNAL", "could not start session", nil)
		return
	}
	c.Set("sessionId", sess.ID)

	artifact, err := h.artifacts.ForDialog(c.Request.Context(), sess, sess.CurrentDialog)
	if err != nil {
		h.writeError(c, err, sess)
		return
	}

	respond.Created(c, gin.H{
		"session":  sess,
		"artifact": artifact,
	})
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set("sessionId", id)

	sess, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	respond.OK(c, gin.H{
		"session": sess,
		"flow":    h.svc.Registry().Flow(sess.SessionType),
	})
}

// dialogArtifact re-serves a step's generated UI. refresh=true drops the
// cached artifact first so the step is regenerated from current session
// data.
func (h *Handler) dialogArtifact(c *gin.Context) {
	id := c.Param("id")
	dialogID := c.Param("dialogId")
	c.Set("sessionId", id)
	c.Set("dialogId", dialogID)

	sess, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, nil)
		return
	}

	if c.Query("refresh") == "true" {
		h.artifacts.Invalidate(c.Request.Context(), id, dialogID)
	}
	artifact, err := h.artifacts.ForDialog(c.Request.Context(), sess, dialogID)
	if err != nil {
		h.writeError(c, err, sess)
		return
	}
	respond.OK(c, gin.H{
		"session":  sess,
		"artifact": artifact,
	})
}

func (h *Handler) submitDialog(c *gin.Context) {
	id := c.Param("id")
	dialogID := c.Param("dialogId")
	c.Set("sessionId", id)
	c.Set("dialogId", dialogID)

	payload, err := c.GetRawData()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "BAD_REQUEST", "could not read request body", nil)
		return
	}

	sess, err := h.svc.SubmitDialog(c.Request.Context(), id, dialogID, payload)
	if err != nil {
		h.writeError(c, err, sess)
		return
	}

	if sess.Done() {
		respond.OK(c, gin.H{
			"session":   sess,
			"completed": true,
		})
		return
	}

	artifact, err := h.artifacts.ForDialog(c.Request.Context(), sess, sess.CurrentDialog)
	if err != nil {
		h.writeError(c, err, sess)
		return
	}
	respond.OK(c, gin.H{
		"session":  sess,
		"artifact": artifact,
	})
}

type editRequest struct {
	Instruction string          `json:"instruction"`
	Payload     json.RawMessage `json:"payload"`
}

func (h *Handler) submitEdit(c *gin.Context) {
	id := c.Param("id")
	section := c.Param("section")
	c.Set("sessionId", id)

	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "BAD_REQUEST", "invalid edit request", nil)
		return
	}

	var (
		sess *Session
		err  error
	)
	switch {
	case req.Instruction != "":
		sess, err = h.svc.ApplyInstruction(c.Request.Context(), id, section, req.Instruction)
	case len(req.Payload) > 0:
		sess, err = h.svc.ApplyStructured(c.Request.Context(), id, section, req.Payload)
	default:
		respond.Error(c, http.StatusBadRequest, "BAD_REQUEST", "edit requires an instruction or a payload", nil)
		return
	}
	if err != nil {
		h.writeError(c, err, nil)
		return
	}

	respond.OK(c, gin.H{
		"session": sess,
		"section": section,
	})
}

// writeError maps service errors onto the error envelope. sess, when
// non-nil, carries flow position details for recoverable sequencing
// errors.
func (h *Handler) writeError(c *gin.Context, err error, sess *Session) {
	var schemaErr *dialog.SchemaViolationError

	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found or expired", nil)
	case errors.Is(err, ErrDialogOutOfSequence):
		details := gin.H{}
		if sess != nil {
			details["currentDialog"] = sess.CurrentDialog
		}
		respond.Error(c, http.StatusConflict, "DIALOG_OUT_OF_SEQUENCE", "dialog does not match the session's current step", details)
	case errors.As(err, &schemaErr):
		respond.Error(c, http.StatusUnprocessableEntity, "SCHEMA_VIOLATION", "submission failed validation", gin.H{
			"section": schemaErr.Section,
			"fields":  schemaErr.Fields,
		})
	case errors.Is(err, ErrSectionNotFound):
		respond.Error(c, http.StatusNotFound, "SECTION_NOT_FOUND", "session has no content for this section", nil)
	case errors.Is(err, dialog.ErrUnknownSection):
		respond.Error(c, http.StatusNotFound, "SECTION_NOT_FOUND", "unknown section", nil)
	case errors.Is(err, ErrEditParse):
		respond.Error(c, http.StatusUnprocessableEntity, "EDIT_PARSE", "the revised section could not be applied; the original is unchanged", nil)
	case errors.Is(err, dialog.ErrTemplateNotFound):
		respond.Error(c, http.StatusNotFound, "DIALOG_NOT_FOUND", "unknown dialog step", nil)
	case errors.Is(err, llm.ErrUnavailable), errors.Is(err, llm.ErrNotConfigured):
		respond.Error(c, http.StatusServiceUnavailable, "GENERATION_UNAVAILABLE", "generation is temporarily unavailable", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
