package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"reportapi/docs"
	"reportapi/internal/config"
	"reportapi/internal/crypto"
	"reportapi/internal/database"
	"reportapi/internal/database/migration"
	handlers "reportapi/internal/http/handler"
	"reportapi/internal/http/middleware"
	"reportapi/internal/logger"
	"reportapi/internal/otel"
	"reportapi/internal/render"
	"reportapi/internal/repository"
	"reportapi/internal/repository/memory"
	"reportapi/internal/repository/postgres"
	"reportapi/internal/service"
	"reportapi/internal/storage"
)

const (
	shutdownTimeout = 10 * time.Second
	bodyLimit       = 8 << 20
)

// @title       Report API
// @version     1.0
// @description Renders application reports as PDF and keeps an encrypted copy for reuse.
// @BasePath    /
func main() {
	cfg := config.Load()

	boot := logger.NewLogger("api", cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	loc, _ := time.LoadLocation(cfg.TimeZone)
	log := logger.NewWithWriter(os.Stdout, "api", cfg.LogLevel, loc)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.AppConfig, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Error().Err(err).Msg("tracing shutdown failed")
		}
	}()

	db, store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	objects, err := openObjectStorage(ctx, cfg, log)
	if err != nil {
		return err
	}

	keyring, err := crypto.NewKeyring(cfg.Encryption.Keys, cfg.Encryption.ActiveKeyID)
	if err != nil {
		return err
	}
	log.Info().Str("active_key_id", keyring.ActiveKeyID()).Strs("key_ids", keyring.KeyIDs()).Msg("key ring loaded")

	renderer := render.NewHTMLRenderer(
		os.DirFS(cfg.Renderer.TemplatesDir),
		render.NewPDFClient(cfg.Renderer.PDFServiceURL, cfg.Renderer.Timeout),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := service.NewMetrics(reg)
	if err != nil {
		return err
	}
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return err
	}

	reports := service.NewReportService(store, objects, keyring, renderer, log, service.WithMetrics(metrics))
	tracker := service.NewApplicationTracker(store.Applications(), log)

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
	})

	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(promMiddleware.Handler())
	app.Use(middleware.UserID())

	handlers.RegisterRoutes(app, handlers.Dependencies{
		DB:       db,
		Reports:  reports,
		Tracker:  tracker,
		Gatherer: reg,
	})

	// Swagger UI with the host and scheme the caller used.
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	log.Info().Str("addr", ":"+cfg.Port).Str("app_host", cfg.AppHost).Msg("listening")
	return app.Listen(":" + cfg.Port)
}

// openStore connects to PostgreSQL and applies migrations. Without a
// configured host it falls back to the in-memory store.
func openStore(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) (*sql.DB, repository.Store, error) {
	if !cfg.Database.Enabled() {
		log.Warn().Msg("DB_HOST not set; using in-memory application store")
		return nil, memory.NewStore(), nil
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, postgres.NewStore(db), nil
}

func openObjectStorage(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) (storage.Storage, error) {
	if !cfg.MinIO.Enabled() {
		log.Warn().Msg("MINIO_ENDPOINT not set; report ciphertexts are kept in memory")
		return storage.NewMemory(), nil
	}
	return storage.NewMinIO(ctx, cfg.MinIO, log)
}
