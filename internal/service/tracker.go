package service

import (
	"context"
	"errors"
	"time"

	"reportapi/internal/logger"
	"reportapi/internal/model"
	"reportapi/internal/repository"
)

// ApplicationTracker exposes the report state of applications and is the hook
// through which content edits mark a report stale. A non-empty userID must own
// the application; otherwise the application is reported as not found.
type ApplicationTracker interface {
	Status(ctx context.Context, applicationID int64, userID string) (model.ReportStatus, error)
	MarkUpdated(ctx context.Context, applicationID int64, userID string, at time.Time) error
}

type applicationTracker struct {
	apps repository.ApplicationRepository
	log  *logger.Logger
}

// NewApplicationTracker constructs an ApplicationTracker.
func NewApplicationTracker(apps repository.ApplicationRepository, log *logger.Logger) ApplicationTracker {
	return &applicationTracker{apps: apps, log: log}
}

func (t *applicationTracker) Status(ctx context.Context, applicationID int64, userID string) (model.ReportStatus, error) {
	app, err := t.load(ctx, applicationID, userID)
	if err != nil {
		return "", err
	}
	return app.ReportStatus(), nil
}

// MarkUpdated records a content change at time at. Older values are ignored.
func (t *applicationTracker) MarkUpdated(ctx context.Context, applicationID int64, userID string, at time.Time) error {
	if userID != "" {
		if _, err := t.load(ctx, applicationID, userID); err != nil {
			return err
		}
	}

	at = at.UTC().Truncate(time.Microsecond)
	if err := t.apps.MarkUpdated(ctx, applicationID, at); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrApplicationNotFound
		}
		return &StoreError{Op: "mark updated", ApplicationID: applicationID, Err: err}
	}
	t.log.Debug().Int64("application_id", applicationID).Time("last_updated", at).Msg("application content updated")
	return nil
}

func (t *applicationTracker) load(ctx context.Context, applicationID int64, userID string) (*model.Application, error) {
	app, err := t.apps.FindByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, &StoreError{Op: "load application", ApplicationID: applicationID, Err: err}
	}
	if userID != "" && app.UserID != userID {
		return nil, ErrApplicationNotFound
	}
	return app, nil
}
