// Package repository contains the data access abstractions for applications
// and their prepared reports. Implementations live in subpackages (postgres, memory).
package repository

import (
	"context"
	"errors"
	"time"

	"reportapi/internal/model"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConcurrentUpdate is returned by a conditional update whose expected
	// state no longer matches the stored row.
	ErrConcurrentUpdate = errors.New("concurrent update")
	// ErrAlreadyExists is returned when creating a row whose key is taken.
	ErrAlreadyExists = errors.New("record already exists")
)

// Snapshot is the report-relevant state of an application as read at decision time.
// Conditional updates only apply while the row still matches it.
type Snapshot struct {
	LastUpdated *time.Time
	LastPrinted *time.Time
}

// SnapshotOf captures the timestamps of app.
func SnapshotOf(app *model.Application) Snapshot {
	return Snapshot{LastUpdated: app.LastUpdated, LastPrinted: app.LastPrinted}
}

// ApplicationRepository persists the owning records.
type ApplicationRepository interface {
	// FindByID returns ErrNotFound when no application has the given id.
	FindByID(ctx context.Context, id int64) (*model.Application, error)

	// UpdateReportState points the application at reportID and sets last_printed.
	// It returns ErrConcurrentUpdate when the row no longer matches expected,
	// and ErrNotFound when the row is gone.
	UpdateReportState(ctx context.Context, id int64, reportID string, printedAt time.Time, expected Snapshot) error

	// TouchPrinted moves last_printed forward to at while the application still
	// points at reportID and last_updated equals expectedUpdated. A later stored
	// last_printed is kept. It returns ErrConcurrentUpdate when the content or
	// the report reference changed, and ErrNotFound when the row is gone.
	TouchPrinted(ctx context.Context, id int64, reportID string, at time.Time, expectedUpdated *time.Time) error

	// MarkUpdated advances last_updated to at. A value older than the stored one is ignored.
	MarkUpdated(ctx context.Context, id int64, at time.Time) error
}

// PreparedReportRepository persists encrypted report metadata.
type PreparedReportRepository interface {
	Create(ctx context.Context, r *model.PreparedReport) error
	// FindByID returns ErrNotFound when the row does not exist.
	FindByID(ctx context.Context, id string) (*model.PreparedReport, error)
	// Update rewrites key ids, object keys and created date of an existing row.
	Update(ctx context.Context, r *model.PreparedReport) error
}

// Store groups the repositories and runs them inside one transaction.
type Store interface {
	Applications() ApplicationRepository
	PreparedReports() PreparedReportRepository

	// WithTx runs fn against a transaction-bound Store. The transaction commits
	// when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}
