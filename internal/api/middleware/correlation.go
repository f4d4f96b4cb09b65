package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CorrelationIDHeader carries the correlation id between the clearing
	// platform's services.
	CorrelationIDHeader = "X-Correlation-ID"

	// CorrelationIDKey stores the correlation id in the gin context.
	CorrelationIDKey = "correlation_id"
)

// CorrelationID ensures each request carries a unique identifier for
// tracing, generating one when the client didn't send it.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(CorrelationIDHeader)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		c.Header(CorrelationIDHeader, correlationID)
		c.Set(CorrelationIDKey, correlationID)

		c.Next()
	}
}

// GetCorrelationID returns the request's correlation id, or "" when the
// middleware has not run.
func GetCorrelationID(c *gin.Context) string {
	if id, exists := c.Get(CorrelationIDKey); exists {
		if correlationID, ok := id.(string); ok {
			return correlationID
		}
	}
	return ""
}
