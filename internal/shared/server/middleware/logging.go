package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"invoice-backend/internal/shared/telemetry"
)

// Context keys handlers set so the request log can carry them.
const (
	InvoiceIDKey        = "invoiceId"
	StatusTransitionKey = "statusTransition"
)

// Logging writes one request.complete line per request. Preflights are not logged.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		started := time.Now()
		c.Next()
		telemetry.Info("request.complete", requestFields(c, time.Since(started)))
	}
}

func requestFields(c *gin.Context, elapsed time.Duration) map[string]any {
	fields := map[string]any{
		"request_id":        RequestIDFromContext(c),
		"user_id":           UserIDFromContext(c),
		"invoice_id":        c.GetString(InvoiceIDKey),
		"status_transition": c.GetString(StatusTransitionKey),
		"method":            c.Request.Method,
		"path":              c.Request.URL.Path,
		"route":             c.FullPath(),
		"status":            c.Writer.Status(),
		"bytes_out":         c.Writer.Size(),
		"duration_ms":       float64(elapsed.Microseconds()) / 1000,
		"client_ip":         c.ClientIP(),
	}
	if ua := c.Request.UserAgent(); ua != "" {
		fields["user_agent"] = ua
	}
	if len(c.Errors) > 0 {
		fields["errors"] = c.Errors.String()
	}
	return fields
}
