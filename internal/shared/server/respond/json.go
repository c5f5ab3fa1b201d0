package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON serializes payload with the given HTTP status. Handlers funnel
// success responses through here (and failures through Error) so the
// wire shape stays uniform.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK is JSON with a 200 status.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Created is JSON with a 201 status.
func Created(c *gin.Context, payload any) {
	JSON(c, http.StatusCreated, payload)
}
