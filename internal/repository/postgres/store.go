package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	"reportapi/internal/database"
	"reportapi/internal/repository"
)

// psql builds statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store is the PostgreSQL implementation of repository.Store.
// Outside a transaction db is set and q is the pool; inside one, q is the *sql.Tx.
type Store struct {
	db *sql.DB
	q  database.DBTX
}

// NewStore creates a Store backed by db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) Applications() repository.ApplicationRepository {
	return &ApplicationPostgres{db: s.q}
}

func (s *Store) PreparedReports() repository.PreparedReportRepository {
	return &PreparedReportPostgres{db: s.q}
}

// WithTx runs fn in a new transaction. Calls on a Store that is already
// transaction-bound reuse the running transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, s repository.Store) error) error {
	if s.db == nil {
		return fn(ctx, s)
	}
	return database.WithTx(ctx, s.db, nil, func(ctx context.Context, tx database.DBTX) error {
		return fn(ctx, &Store{q: tx})
	})
}

// exists reports whether a row with the given id is present in table.
func exists(ctx context.Context, db database.DBTX, table string, id any) (bool, error) {
	query, args, err := psql.Select("1").From(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, err
	}
	var one int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
