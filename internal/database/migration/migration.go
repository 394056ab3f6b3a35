package migration

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	"reportapi/internal/logger"
)

//go:embed sql/*.sql
var migrations embed.FS

const migrationsDir = "sql"

// EnsureMigrated applies every pending migration embedded in the binary.
// Progress is logged as structured events (db_migration_start, _success, _failed).
func EnsureMigrated(ctx context.Context, db *sql.DB, log *logger.Logger, dbHost string) error {
	start := time.Now()

	log.Info().
		Str("component", "database").
		Str("event", "db_migration_start").
		Str("db_host", dbHost).
		Msg("applying migrations")

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{log})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migration dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		log.Error().Err(err).
			Str("component", "database").
			Str("event", "db_migration_failed").
			Str("db_host", dbHost).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("migration failed")
		return fmt.Errorf("migrate: %w", err)
	}

	log.Info().
		Str("component", "database").
		Str("event", "db_migration_success").
		Str("db_host", dbHost).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("migrations applied")
	return nil
}

// gooseLogger routes goose output through the application logger.
type gooseLogger struct {
	log *logger.Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.log.Info().Str("component", "goose").Msgf(format, v...)
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.log.Error().Str("component", "goose").Msgf(format, v...)
}
