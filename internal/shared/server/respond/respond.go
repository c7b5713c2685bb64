package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-roaster/internal/shared/telemetry"
)

// ErrorResponse is the body of every failed request. Messages are safe to
// show to end users; internal detail only goes to the log.
type ErrorResponse struct {
	Success     bool        `json:"success"`
	ErrorCode   string      `json:"errorCode"`
	UserMessage string      `json:"userMessage"`
	Details     interface{} `json:"details,omitempty"`
}

// Error sends a standardized error response and logs it. Server side
// failures log at error level, client mistakes at warn.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	noStore(c)
	c.AbortWithStatusJSON(status, ErrorResponse{
		ErrorCode:   code,
		UserMessage: message,
		Details:     details,
	})
}

// JSON writes a JSON response with the given status. Responses may carry
// résumé content, so caches are told not to keep them.
func JSON(c *gin.Context, status int, payload interface{}) {
	noStore(c)
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusOK, payload)
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
}
