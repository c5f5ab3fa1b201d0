package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/imports"
	"resume-builder/internal/resumes"
	"resume-builder/internal/sessions"
	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/server/middleware"
	"resume-builder/internal/shared/server/respond"
)

// Request groups with their own rate rules. Everything that ends in a
// model or converter call sits in the expensive group.
const (
	groupGeneration = "GENERATION"
	groupDefault    = "DEFAULT"
)

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config         config.Config
	SessionHandler *sessions.Handler
	ResumeHandler  *resumes.Handler
	ImportHandler  *imports.Handler
}

// NewRouter constructs the Gin engine with middleware and routes
// registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.ClientKey(deps.Config.ClientAPIKey),
		middleware.RateLimit(rateLimits()),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	deps.SessionHandler.RegisterRoutes(api)
	deps.ResumeHandler.RegisterRoutes(api)
	deps.ImportHandler.RegisterRoutes(api)

	return r
}

func rateLimits() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			groupGeneration: {Rate: 1, Burst: 5},
			groupDefault:    {Rate: 10, Burst: 30},
		},
		DefaultGroup: groupDefault,
		GroupFor: func(c *gin.Context) string {
			path := c.Request.URL.Path
			if c.Request.Method != http.MethodPost {
				// Artifact fetches can regenerate on refresh.
				if strings.HasSuffix(path, "/artifact") {
					return groupGeneration
				}
				return groupDefault
			}
			switch {
			case strings.Contains(path, "/dialogs/"),
				strings.HasSuffix(path, "/import"),
				strings.HasSuffix(path, "/resume"),
				strings.HasSuffix(path, "/edits"),
				strings.HasSuffix(path, "/sessions"):
				return groupGeneration
			default:
				return groupDefault
			}
		},
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
