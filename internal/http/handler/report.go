package handler

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"reportapi/internal/http/middleware"
	"reportapi/internal/model"
	"reportapi/internal/service"
)

const (
	reportFilename = "report.pdf"
	// OutcomeHeader tells the client whether the document was rendered or served from cache.
	OutcomeHeader = "X-Report-Outcome"
)

// StatusResponse is the body of the report status endpoint.
type StatusResponse struct {
	ApplicationID int64              `json:"application_id"`
	Status        model.ReportStatus `json:"status"`
}

// GenerateReport returns the application's PDF report, rendering it only when
// no valid encrypted copy exists.
//
// @Summary     Get or generate the report of an application
// @Tags        reports
// @Accept      json
// @Produce     application/pdf
// @Param       id         path   int     true  "Application ID"
// @Param       name       query  string  true  "Template name"
// @Param       noDownload query  string  false "Skip the document body"
// @Param       X-User-ID  header string  false "Caller's user id"
// @Param       payload    body   object  true  "Form data the template is rendered with"
// @Success     200 {file}   binary
// @Success     204
// @Failure     400 {object} errorPayload
// @Failure     404 {object} errorPayload
// @Failure     502 {object} errorPayload
// @Failure     500 {object} errorPayload
// @Router      /api/applications/{id}/report [post]
func GenerateReport(svc service.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := applicationID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid application id")
		}

		name := c.Query("name")
		if name == "" {
			return writeError(c, fiber.StatusBadRequest, "TEMPLATE_REQUIRED", "query parameter name is required")
		}

		payload, ok := decodePayload(c.Body())
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PAYLOAD", "body must be a JSON object")
		}

		res, err := svc.Resolve(c.UserContext(), service.ResolveRequest{
			ApplicationID: id,
			UserID:        middleware.UserIDFromLocals(c),
			Template:      name,
			Payload:       payload,
		})
		if err != nil {
			return writeServiceError(c, err)
		}

		c.Set(OutcomeHeader, string(res.Outcome))
		if truthy(c.Query("noDownload")) {
			return c.SendStatus(fiber.StatusNoContent)
		}

		c.Attachment(reportFilename)
		c.Type("pdf")
		return c.Status(fiber.StatusOK).Send(res.Document)
	}
}

// ReportStatus reports whether the stored report is unset, fresh or stale.
//
// @Summary     Report cache status
// @Tags        reports
// @Produce     json
// @Param       id  path int true "Application ID"
// @Param       X-User-ID header string false "Caller's user id"
// @Success     200 {object} StatusResponse
// @Failure     400 {object} errorPayload
// @Failure     404 {object} errorPayload
// @Router      /api/applications/{id}/report/status [get]
func ReportStatus(tracker service.ApplicationTracker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := applicationID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid application id")
		}
		status, err := tracker.Status(c.UserContext(), id, middleware.UserIDFromLocals(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(StatusResponse{ApplicationID: id, Status: status})
	}
}

// ReportPayload returns the decrypted form data the current report was rendered from.
//
// @Summary     Archived report payload
// @Tags        reports
// @Produce     json
// @Param       id  path int true "Application ID"
// @Param       X-User-ID header string false "Caller's user id"
// @Success     200 {object} map[string]interface{}
// @Failure     400 {object} errorPayload
// @Failure     404 {object} errorPayload
// @Router      /api/applications/{id}/report/payload [get]
func ReportPayload(svc service.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := applicationID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid application id")
		}
		payload, err := svc.DecryptPayload(c.UserContext(), id, middleware.UserIDFromLocals(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		c.Type("json")
		return c.Send(payload)
	}
}

// MarkUpdated is the content-edit hook: it marks the stored report stale.
//
// @Summary     Record a content change
// @Tags        reports
// @Param       id  path int true "Application ID"
// @Param       X-User-ID header string false "Caller's user id"
// @Success     204
// @Failure     400 {object} errorPayload
// @Failure     404 {object} errorPayload
// @Router      /api/applications/{id}/touch [post]
func MarkUpdated(tracker service.ApplicationTracker, now func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := applicationID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid application id")
		}
		if err := tracker.MarkUpdated(c.UserContext(), id, middleware.UserIDFromLocals(c), now()); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func applicationID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// decodePayload accepts a JSON object; an empty body counts as {}.
func decodePayload(body []byte) (map[string]any, bool) {
	if len(body) == 0 {
		return map[string]any{}, true
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		return nil, false
	}
	return payload, true
}

// truthy treats any non-empty flag as set, except explicit boolean false values.
func truthy(v string) bool {
	if v == "" {
		return false
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return true
}
