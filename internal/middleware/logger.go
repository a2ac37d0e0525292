package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestID makes sure every request carries an id, minting one when the
// client did not send X-Request-ID. Handlers and error responses pick it up
// from the context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// Logger writes one line per request. Analysis calls can run for minutes
// against a slow backend, so latency sits at the end of the line where it is
// easy to scan for.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		requestID, _ := c.Get("request_id")
		log.Printf("[%v] %s %s %s -> %d in %s",
			requestID,
			c.ClientIP(),
			c.Request.Method,
			path,
			c.Writer.Status(),
			time.Since(start),
		)
	}
}

// Recovery turns a handler panic into the standard error envelope instead of
// a bare 500 with an empty body.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID, _ := c.Get("request_id")
		log.Printf("[%v] panic recovered: %v", requestID, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "an internal error occurred",
			},
		})
	})
}
