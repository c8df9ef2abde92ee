package log

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const headerRequestID = "X-Request-ID"

// GinMiddleware tags each request with an X-Request-ID (taken from the
// request or generated), stores a request-scoped logger in the request
// context and logs one line when the handler returns. Server errors log at
// error level, client errors at warn.
//
// A WebSocket upgrade returns from its handler once the connection is
// handed off, so its line marks the start of the session.
func GinMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(headerRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(headerRequestID, reqID)

		reqLog := logger.With().
			Str(FieldRequestID, reqID).
			Str(FieldMethod, c.Request.Method).
			Str(FieldPath, c.Request.URL.Path).
			Str(FieldClientIP, c.ClientIP()).
			Logger()
		c.Request = c.Request.WithContext(WithLogger(c.Request.Context(), reqLog))

		c.Next()

		status := c.Writer.Status()
		var evt *zerolog.Event
		switch {
		case status >= 500:
			evt = reqLog.Error()
		case status >= 400:
			evt = reqLog.Warn()
		default:
			evt = reqLog.Info()
		}
		evt = evt.Int(FieldStatus, status).
			Int(FieldBytes, c.Writer.Size()).
			Float64(FieldLatency, float64(time.Since(start).Microseconds())/1000)

		if id := c.GetString(FieldClientID); id != "" {
			evt = evt.Str(FieldClientID, id)
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			evt = evt.Str("error", errs.String())
		}
		evt.Msg("request completed")
	}
}
