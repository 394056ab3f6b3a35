package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"reportapi/internal/http/middleware"
	"reportapi/internal/service"
)

// errorPayload is the JSON body of every error response.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func requestIDFromCtx(c *fiber.Ctx) string {
	id, _ := c.Locals(middleware.RequestIDLocalKey).(string)
	return id
}

// writeError writes the standard error body. message must be safe to show
// to clients; internal error text never goes here.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	})
}

// writeServiceError maps service errors onto HTTP responses.
func writeServiceError(c *fiber.Ctx, err error) error {
	var renderErr *service.RenderError
	switch {
	case errors.Is(err, service.ErrApplicationNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "application not found")
	case errors.Is(err, service.ErrReportNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "report not found")
	case errors.As(err, &renderErr):
		return writeError(c, fiber.StatusBadGateway, "RENDER_FAILED", "report could not be rendered")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// statusCodes names the fiber errors that can escape a handler.
var statusCodes = map[int]struct{ code, message string }{
	fiber.StatusBadRequest:            {"BAD_REQUEST", "bad request"},
	fiber.StatusNotFound:              {"NOT_FOUND", "resource not found"},
	fiber.StatusMethodNotAllowed:      {"METHOD_NOT_ALLOWED", "method not allowed"},
	fiber.StatusRequestEntityTooLarge: {"PAYLOAD_TOO_LARGE", "request body too large"},
}

// ErrorHandler is the Fiber error handler. Unknown statuses and non-fiber
// errors become 500 INTERNAL_ERROR.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			if sc, ok := statusCodes[fe.Code]; ok {
				return writeError(c, fe.Code, sc.code, sc.message)
			}
		}
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
