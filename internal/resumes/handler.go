package resumes

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/convert"
	"resume-builder/internal/sessions"
	"resume-builder/internal/shared/server/respond"
)

// Handler exposes resume rendering, viewing, and export over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler wires the resume handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the resume routes on the given group. The resume
// endpoints themselves are token-gated rather than client-key-gated, so
// shared links work in a plain browser.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions/:id/resume", h.render)
	rg.GET("/sessions/:id/resumes", h.history)
	rg.GET("/resumes/:id", h.view)
	rg.GET("/resumes/:id/export", h.export)
}

func (h *Handler) render(c *gin.Context) {
	sessionID := c.Param("id")
	c.Set("sessionId", sessionID)

	resume, token, err := h.svc.Render(c.Request.Context(), sessionID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	base := "/api/v1/resumes/" + resume.ID
	query := "?token=" + url.QueryEscape(token)
	respond.Created(c, gin.H{
		"resume": resume,
		"token":  token,
		"links": gin.H{
			"view":   base + query,
			"export": base + "/export" + query + "&format=pdf",
		},
	})
}

func (h *Handler) history(c *gin.Context) {
	sessionID := c.Param("id")
	c.Set("sessionId", sessionID)

	resumes, err := h.svc.History(c.Request.Context(), sessionID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"resumes": resumes})
}

func (h *Handler) view(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		respond.Error(c, http.StatusUnauthorized, "TOKEN_REQUIRED", "an access token is required", nil)
		return
	}

	resume, err := h.svc.View(c.Request.Context(), c.Param("id"), token)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(resume.HTML))
}

func (h *Handler) export(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		respond.Error(c, http.StatusUnauthorized, "TOKEN_REQUIRED", "an access token is required", nil)
		return
	}

	format := c.DefaultQuery("format", convert.FormatPDF)
	paperSize := c.DefaultQuery("paper_size", "a4")
	margins := c.DefaultQuery("margins", "normal")

	export, err := h.svc.ExportResume(c.Request.Context(), c.Param("id"), token, format, paperSize, margins)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	c.Data(http.StatusOK, export.MimeType, export.Data)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found or expired", nil)
	case errors.Is(err, ErrAccessDenied):
		respond.Error(c, http.StatusForbidden, "ACCESS_DENIED", "the access token is invalid, expired, or for another resume", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "RESUME_NOT_FOUND", "resume not found", nil)
	case errors.Is(err, convert.ErrUnsupportedFormat):
		respond.Error(c, http.StatusBadRequest, "UNSUPPORTED_FORMAT", "supported formats are pdf, docx, and html", nil)
	case errors.Is(err, convert.ErrUnavailable), errors.Is(err, convert.ErrNotConfigured):
		respond.Error(c, http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "document conversion is temporarily unavailable", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
