package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maxviazov/module-progress-console/pkg/response"
	"github.com/rs/zerolog"
)

// ErrorHandler is the pipeline's error path: stages record failures with
// c.Error and abort, and this renders the last one once the chain unwinds.
// Responses already written by a handler are left alone.
func ErrorHandler(logger zerolog.Logger) gin.HandlerFunc {
	log := logger.With().Str("module", "http").Str("component", "errors").Logger()
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		status, _ := response.MapError(err)

		event := log.Warn()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.Err(err).
			Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Int("status", status).
			Str("request_id", c.GetString(ContextRequestID)).
			Msg("request failed")

		if c.Writer.Written() {
			return
		}
		response.WriteError(c, err)
	}
}
