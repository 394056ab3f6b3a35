// Package database opens the PostgreSQL pool that backs the application and
// prepared report tables.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/jackc/pgx/v5/stdlib"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"reportapi/internal/config"
)

// sqlOpen is replaced in tests.
var sqlOpen = sql.Open

const (
	applicationName = "reportapi"
	pingTimeout     = 5 * time.Second
)

var errIncompleteConfig = errors.New("invalid database config: host, port, user, and name are required")

// BuildPostgresDSN renders c as a postgres:// URL. Credentials are escaped and
// every connection reports application_name=reportapi to the server.
func BuildPostgresDSN(c config.DatabaseConfig) (string, error) {
	for _, v := range []string{c.Host, c.Port, c.User, c.Name} {
		if v == "" {
			return "", errIncompleteConfig
		}
	}

	user := url.User(c.User)
	if c.Password != "" {
		user = url.UserPassword(c.User, c.Password)
	}

	params := url.Values{"application_name": {applicationName}}
	if c.SSLMode != "" {
		params.Set("sslmode", c.SSLMode)
	}

	dsn := url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     c.Name,
		RawQuery: params.Encode(),
	}
	return dsn.String(), nil
}

// NewPostgres opens a traced pool through the pgx stdlib driver and checks
// that the server answers before returning it.
func NewPostgres(ctx context.Context, c config.DatabaseConfig) (*sql.DB, error) {
	dsn, err := BuildPostgresDSN(c)
	if err != nil {
		return nil, err
	}

	driver, err := otelsql.Register("pgx",
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithSQLCommenter(true),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql driver: %w", err)
	}

	db, err := sqlOpen(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	configurePool(db, c)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// configurePool applies the non-zero pool limits from c.
func configurePool(db *sql.DB, c config.DatabaseConfig) {
	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.ConnMaxLifetimeSec > 0 {
		db.SetConnMaxLifetime(time.Duration(c.ConnMaxLifetimeSec) * time.Second)
	}
}
