package middleware

import (
	"bytes"
	"io"

	"github.com/gin-gonic/gin"
)

const rawBodyKey = "rawBody"

// CaptureRawBody buffers the request body byte-for-byte before any JSON
// binding runs. Webhook signature verification requires the exact transmitted
// bytes; a re-serialized body will not match the HMAC.
func CaptureRawBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				c.JSON(400, gin.H{"error": "failed to read request body"})
				c.Abort()
				return
			}
			c.Set(rawBodyKey, body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}
		c.Next()
	}
}

// RawBody returns the bytes captured by CaptureRawBody.
func RawBody(c *gin.Context) []byte {
	if v, ok := c.Get(rawBodyKey); ok {
		if b, ok := v.([]byte); ok {
			return b
		}
	}
	return nil
}
