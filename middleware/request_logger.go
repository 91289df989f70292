// api/middleware/request_logger.go
package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger emits one log line per request after the handler chain
// has run.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		log.Printf(
			"%s %s -> %d (%s)",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start),
		)
	}
}
