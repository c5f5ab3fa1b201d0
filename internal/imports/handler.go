package imports

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/llm"
	"resume-builder/internal/sessions"
	"resume-builder/internal/shared/server/respond"
)

// Uploads above this size are rejected before any parsing happens.
const maxUploadBytes = 10 << 20

// Handler exposes resume import over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler wires the import handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the import route on the given group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions/:id/import", h.importResume)
}

func (h *Handler) importResume(c *gin.Context) {
	sessionID := c.Param("id")
	c.Set("sessionId", sessionID)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "BAD_REQUEST", "multipart field 'file' is required", nil)
		return
	}
	defer file.Close()

	sess, err := h.svc.Import(c.Request.Context(), sessionID, header.Filename, file)
	if err != nil {
		h.writeError(c, err)
		return
	}

	sections := make([]string, 0, len(sess.UserData))
	for section := range sess.UserData {
		sections = append(sections, section)
	}
	respond.OK(c, gin.H{
		"session":  sess,
		"imported": sections,
	})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found or expired", nil)
	case errors.Is(err, ErrUnsupported):
		respond.Error(c, http.StatusUnsupportedMediaType, "UNSUPPORTED_FORMAT", "upload a PDF or DOCX resume", nil)
	case errors.Is(err, ErrParse):
		respond.Error(c, http.StatusUnprocessableEntity, "IMPORT_PARSE", "the resume could not be mapped onto sections; the session is unchanged", nil)
	case errors.Is(err, llm.ErrUnavailable), errors.Is(err, llm.ErrNotConfigured):
		respond.Error(c, http.StatusServiceUnavailable, "GENERATION_UNAVAILABLE", "resume mapping is temporarily unavailable", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
