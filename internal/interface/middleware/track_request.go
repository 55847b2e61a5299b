package middleware

import (
	"bytes"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-odata-api/pkg/telemetry"
)

// TrackRequest reports each request under name to the tracker. With
// captureBody the request body is read, restored, and attached.
func TrackRequest(tracker *telemetry.Tracker, name string, captureBody bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		var body []byte
		if captureBody && c.Request.Body != nil {
			b, err := io.ReadAll(c.Request.Body)
			_ = c.Request.Body.Close()
			if err == nil {
				body = b
			}
			c.Request.Body = io.NopCloser(bytes.NewReader(b))
		}

		c.Next()

		tracker.TrackRequest(c.Request.Context(), telemetry.Request{
			Name:        name,
			RequestID:   c.GetString("request_id"),
			User:        Principal(c),
			Status:      c.Writer.Status(),
			Duration:    time.Since(start),
			Body:        body,
			ContentType: c.ContentType(),
		})
	}
}
