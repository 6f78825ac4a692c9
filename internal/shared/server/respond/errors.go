package respond

import (
	"github.com/gin-gonic/gin"

	"invoice-backend/internal/shared/telemetry"
)

// Error logs the failure and aborts with a body of {"error": message} merged
// with extra. The code is a stable machine-readable tag used in logs.
func Error(c *gin.Context, status int, code, message string, extra gin.H) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	telemetry.Error("http.error", fields)

	body := gin.H{}
	for k, v := range extra {
		body[k] = v
	}
	body["error"] = message
	c.AbortWithStatusJSON(status, body)
}

// Failure is Error with "success": false, the shape used by the extraction
// and listing endpoints.
func Failure(c *gin.Context, status int, code, message string, extra gin.H) {
	body := gin.H{"success": false}
	for k, v := range extra {
		body[k] = v
	}
	Error(c, status, code, message, body)
}
