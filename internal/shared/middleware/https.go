package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireHTTPS rejects non-HTTPS requests when enforced (production). The
// forwarded-proto header wins over the raw connection scheme so the check
// works behind a TLS-terminating proxy.
func RequireHTTPS(enforce bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enforce {
			c.Next()
			return
		}

		proto := strings.ToLower(c.GetHeader("X-Forwarded-Proto"))
		if proto == "" {
			if c.Request.TLS != nil {
				proto = "https"
			} else {
				proto = "http"
			}
		}

		if proto != "https" {
			c.JSON(400, gin.H{"error": "https required"})
			c.Abort()
			return
		}

		c.Next()
	}
}
