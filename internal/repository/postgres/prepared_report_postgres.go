package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"reportapi/internal/database"
	"reportapi/internal/model"
	"reportapi/internal/repository"
)

// PreparedReportPostgres is a PostgreSQL implementation of repository.PreparedReportRepository.
// It stores metadata only; ciphertext lives in object storage.
type PreparedReportPostgres struct {
	db database.DBTX
}

// NewPreparedReportPostgres creates a PreparedReportPostgres on top of db.
func NewPreparedReportPostgres(db database.DBTX) *PreparedReportPostgres {
	return &PreparedReportPostgres{db: db}
}

var _ repository.PreparedReportRepository = (*PreparedReportPostgres)(nil)

// Create inserts a new prepared report row.
func (r *PreparedReportPostgres) Create(ctx context.Context, rep *model.PreparedReport) error {
	const q = `
		INSERT INTO prepared_reports (id, document_key_id, payload_key_id, document_object, payload_object, created_date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, q,
		rep.ID,
		rep.DocumentKeyID,
		rep.PayloadKeyID,
		rep.DocumentObject,
		rep.PayloadObject,
		rep.CreatedDate,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: prepared report %s", repository.ErrAlreadyExists, rep.ID)
		}
		return fmt.Errorf("insert prepared report %s: %w", rep.ID, err)
	}
	return nil
}

// FindByID fetches a prepared report by its ID.
func (r *PreparedReportPostgres) FindByID(ctx context.Context, id string) (*model.PreparedReport, error) {
	const q = `
		SELECT id, document_key_id, payload_key_id, document_object, payload_object, created_date
		FROM prepared_reports
		WHERE id = $1
	`
	var rep model.PreparedReport
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&rep.ID,
		&rep.DocumentKeyID,
		&rep.PayloadKeyID,
		&rep.DocumentObject,
		&rep.PayloadObject,
		&rep.CreatedDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find prepared report %s: %w", id, err)
	}
	rep.CreatedDate = rep.CreatedDate.UTC()
	return &rep, nil
}

// Update rewrites everything but the id.
func (r *PreparedReportPostgres) Update(ctx context.Context, rep *model.PreparedReport) error {
	query, args, err := psql.Update("prepared_reports").
		Set("document_key_id", rep.DocumentKeyID).
		Set("payload_key_id", rep.PayloadKeyID).
		Set("document_object", rep.DocumentObject).
		Set("payload_object", rep.PayloadObject).
		Set("created_date", rep.CreatedDate).
		Where(sq.Eq{"id": rep.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build prepared report update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update prepared report %s: %w", rep.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update prepared report %s: %w", rep.ID, err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
