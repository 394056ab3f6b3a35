package middleware

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"

	"reportapi/internal/logger"
)

// Logger writes one JSON line per request through log and attaches a
// request-scoped logger (carrying request_id) to the user context, so
// logger.FromContext works in handlers and services.
//
// Fields: request_id, method, path, status, latency (milliseconds).
func Logger(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		rid, _ := c.Locals(RequestIDLocalKey).(string)

		reqLog := &logger.Logger{Logger: log.With().Str("request_id", rid).Logger()}
		c.SetUserContext(reqLog.WithContext(c.UserContext()))

		err := c.Next()

		status := c.Response().StatusCode()
		ev := reqLog.Info()
		if status >= fiber.StatusInternalServerError {
			ev = reqLog.Error()
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Float64("latency", float64(time.Since(start).Microseconds())/1000).
			Msg("request")

		return err
	}
}

// LoggerWithWriter is Logger with its own logger writing to w, timestamps in loc.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	return Logger(logger.NewWithWriter(w, "http", "info", loc))
}
