package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"reportapi/internal/database"
	"reportapi/internal/model"
	"reportapi/internal/repository"
)

// ApplicationPostgres is a PostgreSQL implementation of repository.ApplicationRepository.
type ApplicationPostgres struct {
	db database.DBTX
}

// NewApplicationPostgres creates an ApplicationPostgres on top of db (a pool or a transaction).
func NewApplicationPostgres(db database.DBTX) *ApplicationPostgres {
	return &ApplicationPostgres{db: db}
}

var _ repository.ApplicationRepository = (*ApplicationPostgres)(nil)

// FindByID fetches a single application by its ID.
func (r *ApplicationPostgres) FindByID(ctx context.Context, id int64) (*model.Application, error) {
	const q = `
		SELECT id, user_id, app_type, last_updated, last_printed, prepared_report_id
		FROM applications
		WHERE id = $1
	`
	var (
		app      model.Application
		userID   sql.NullString
		updated  sql.NullTime
		printed  sql.NullTime
		reportID sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&app.ID,
		&userID,
		&app.AppType,
		&updated,
		&printed,
		&reportID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find application %d: %w", id, err)
	}

	app.UserID = userID.String
	app.LastUpdated = nullTimePtr(updated)
	app.LastPrinted = nullTimePtr(printed)
	if reportID.Valid {
		ref := reportID.String
		app.PreparedReportID = &ref
	}
	return &app, nil
}

// UpdateReportState sets prepared_report_id and last_printed, conditioned on
// both timestamps still holding the values in expected.
func (r *ApplicationPostgres) UpdateReportState(ctx context.Context, id int64, reportID string, printedAt time.Time, expected repository.Snapshot) error {
	query, args, err := psql.Update("applications").
		Set("prepared_report_id", reportID).
		Set("last_printed", printedAt).
		Where(sq.Eq{"id": id}).
		Where(timestampIs("last_updated", expected.LastUpdated)).
		Where(timestampIs("last_printed", expected.LastPrinted)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build report state update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update report state %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update report state %d: %w", id, err)
	}
	if n > 0 {
		return nil
	}

	ok, err := exists(ctx, r.db, "applications", id)
	if err != nil {
		return fmt.Errorf("update report state %d: %w", id, err)
	}
	if !ok {
		return repository.ErrNotFound
	}
	return repository.ErrConcurrentUpdate
}

// TouchPrinted refreshes last_printed after a reuse. GREATEST skips NULL, so a
// first print sets the value and a concurrent later print is never undone.
func (r *ApplicationPostgres) TouchPrinted(ctx context.Context, id int64, reportID string, at time.Time, expectedUpdated *time.Time) error {
	query, args, err := psql.Update("applications").
		Set("last_printed", sq.Expr("GREATEST(last_printed, ?)", at)).
		Where(sq.Eq{"id": id, "prepared_report_id": reportID}).
		Where(timestampIs("last_updated", expectedUpdated)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build touch printed: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("touch printed %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch printed %d: %w", id, err)
	}
	if n > 0 {
		return nil
	}

	ok, err := exists(ctx, r.db, "applications", id)
	if err != nil {
		return fmt.Errorf("touch printed %d: %w", id, err)
	}
	if !ok {
		return repository.ErrNotFound
	}
	return repository.ErrConcurrentUpdate
}

// MarkUpdated moves last_updated forward; an older at leaves the row untouched.
func (r *ApplicationPostgres) MarkUpdated(ctx context.Context, id int64, at time.Time) error {
	query, args, err := psql.Update("applications").
		Set("last_updated", at).
		Where(sq.Eq{"id": id}).
		Where(sq.Or{sq.Eq{"last_updated": nil}, sq.Lt{"last_updated": at}}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark updated: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark application %d updated: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	ok, err := exists(ctx, r.db, "applications", id)
	if err != nil {
		return fmt.Errorf("mark application %d updated: %w", id, err)
	}
	if !ok {
		return repository.ErrNotFound
	}
	return nil
}

// timestampIs matches col against t, treating nil as IS NULL.
func timestampIs(col string, t *time.Time) sq.Sqlizer {
	if t == nil {
		return sq.Eq{col: nil}
	}
	return sq.Eq{col: *t}
}
