package handler

import (
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	"reportapi/internal/service"
)

// Dependencies are the collaborators the HTTP surface is built from.
// DB may be nil when the service runs without a database.
type Dependencies struct {
	DB       *sql.DB
	Reports  service.ReportService
	Tracker  service.ApplicationTracker
	Gatherer prometheus.Gatherer
	Now      func() time.Time
}

// RegisterRoutes attaches every HTTP route to app.
func RegisterRoutes(app *fiber.App, deps Dependencies) {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	app.Get("/health", HealthCheck(deps.DB))
	app.Get("/healthz", LivenessProbe())
	if deps.Gatherer != nil {
		app.Get("/metrics", Metrics(deps.Gatherer))
	}

	api := app.Group("/api")
	apps := api.Group("/applications/:id")
	apps.Post("/report", GenerateReport(deps.Reports))
	apps.Get("/report/status", ReportStatus(deps.Tracker))
	apps.Get("/report/payload", ReportPayload(deps.Reports))
	apps.Post("/touch", MarkUpdated(deps.Tracker, now))
}
