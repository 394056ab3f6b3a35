package database

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportapi/internal/config"
)

func dbConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:               "db.internal",
		Port:               "5433",
		User:               "reports",
		Password:           "p@ss word",
		Name:               "reportapi",
		SSLMode:            "verify-full",
		MaxOpenConns:       4,
		MaxIdleConns:       2,
		ConnMaxLifetimeSec: 60,
	}
}

// stubOpen swaps sqlOpen for the duration of the test.
func stubOpen(t *testing.T, fn func(driverName, dsn string) (*sql.DB, error)) {
	t.Helper()
	orig := sqlOpen
	sqlOpen = fn
	t.Cleanup(func() { sqlOpen = orig })
}

func TestBuildPostgresDSN(t *testing.T) {
	t.Run("escapes credentials and tags the connection", func(t *testing.T) {
		dsn, err := BuildPostgresDSN(dbConfig())
		require.NoError(t, err)

		u, err := url.Parse(dsn)
		require.NoError(t, err)
		assert.Equal(t, "postgres", u.Scheme)
		assert.Equal(t, "db.internal:5433", u.Host)
		assert.Equal(t, "/reportapi", u.Path)
		assert.Equal(t, "reports", u.User.Username())
		pass, ok := u.User.Password()
		assert.True(t, ok)
		assert.Equal(t, "p@ss word", pass)
		assert.Equal(t, "reportapi", u.Query().Get("application_name"))
		assert.Equal(t, "verify-full", u.Query().Get("sslmode"))
	})

	t.Run("optional parts are omitted", func(t *testing.T) {
		cfg := dbConfig()
		cfg.Password = ""
		cfg.SSLMode = ""

		dsn, err := BuildPostgresDSN(cfg)
		require.NoError(t, err)
		assert.Equal(t, "postgres://reports@db.internal:5433/reportapi?application_name=reportapi", dsn)
	})

	required := map[string]func(*config.DatabaseConfig){
		"host": func(c *config.DatabaseConfig) { c.Host = "" },
		"port": func(c *config.DatabaseConfig) { c.Port = "" },
		"user": func(c *config.DatabaseConfig) { c.User = "" },
		"name": func(c *config.DatabaseConfig) { c.Name = "" },
	}
	for field, clear := range required {
		t.Run("missing "+field, func(t *testing.T) {
			cfg := dbConfig()
			clear(&cfg)

			dsn, err := BuildPostgresDSN(cfg)
			assert.Error(t, err)
			assert.Empty(t, dsn)
		})
	}
}

func TestNewPostgres(t *testing.T) {
	t.Run("pings through the instrumented driver", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		var gotDriver, gotDSN string
		stubOpen(t, func(driverName, dsn string) (*sql.DB, error) {
			gotDriver, gotDSN = driverName, dsn
			return db, nil
		})
		mock.ExpectPing()

		got, err := NewPostgres(context.Background(), dbConfig())
		require.NoError(t, err)
		assert.Same(t, db, got)
		assert.NotEqual(t, "pgx", gotDriver)
		assert.Contains(t, gotDSN, "application_name=reportapi")
		assert.Equal(t, 4, got.Stats().MaxOpenConnections)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("open failure is wrapped", func(t *testing.T) {
		stubOpen(t, func(string, string) (*sql.DB, error) {
			return nil, errors.New("driver missing")
		})

		got, err := NewPostgres(context.Background(), dbConfig())
		require.Error(t, err)
		assert.EqualError(t, err, "sql open: driver missing")
		assert.Nil(t, got)
	})

	t.Run("ping failure closes the pool", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)

		stubOpen(t, func(string, string) (*sql.DB, error) { return db, nil })
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		mock.ExpectClose()

		got, err := NewPostgres(context.Background(), dbConfig())
		require.Error(t, err)
		assert.EqualError(t, err, "db ping: connection refused")
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("incomplete config never opens", func(t *testing.T) {
		stubOpen(t, func(string, string) (*sql.DB, error) {
			t.Fatal("sqlOpen must not be called")
			return nil, nil
		})

		got, err := NewPostgres(context.Background(), config.DatabaseConfig{})
		assert.Error(t, err)
		assert.Nil(t, got)
	})
}
