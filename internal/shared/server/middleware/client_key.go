package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/shared/server/respond"
)

// ClientKey requires the hosting client to present a shared API key.
// When no key is configured the middleware is a pass-through, which keeps
// local development friction-free. Resume view/export stays reachable
// without the key because those routes are gated by access tokens instead.
func ClientKey(key string) gin.HandlerFunc {
	expected := []byte(strings.TrimSpace(key))
	return func(c *gin.Context) {
		if len(expected) == 0 {
			c.Next()
			return
		}
		if strings.HasPrefix(c.Request.URL.Path, "/api/v1/resumes/") {
			c.Next()
			return
		}
		got := []byte(strings.TrimSpace(c.GetHeader("X-Client-Key")))
		if subtle.ConstantTimeCompare(expected, got) != 1 {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid client key", nil)
			return
		}
		c.Next()
	}
}
