// Package memory is an in-process implementation of repository.Store used when
// no database is configured and in service tests.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"reportapi/internal/model"
	"reportapi/internal/repository"
)

type state struct {
	apps    map[int64]model.Application
	reports map[string]model.PreparedReport
}

func (s *state) clone() *state {
	return &state{apps: maps.Clone(s.apps), reports: maps.Clone(s.reports)}
}

// Store keeps applications and prepared reports in maps. Transactions work on
// a copy that replaces the live state on commit.
type Store struct {
	mu *sync.RWMutex
	st *state
	tx bool
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		mu: new(sync.RWMutex),
		st: &state{
			apps:    make(map[int64]model.Application),
			reports: make(map[string]model.PreparedReport),
		},
	}
}

var _ repository.Store = (*Store)(nil)

// SaveApplication inserts or replaces an application.
func (s *Store) SaveApplication(app model.Application) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.apps[app.ID] = copyApplication(app)
}

// ReportCount returns the number of stored prepared reports.
func (s *Store) ReportCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.st.reports)
}

func (s *Store) Applications() repository.ApplicationRepository { return applications{s} }

func (s *Store) PreparedReports() repository.PreparedReportRepository { return reports{s} }

// WithTx holds the write lock for the whole of fn, so transactions are serialised.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, s repository.Store) error) error {
	if s.tx {
		return fn(ctx, s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txStore := &Store{mu: new(sync.RWMutex), st: s.st.clone(), tx: true}
	if err := fn(ctx, txStore); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = txStore.st
	return nil
}

type applications struct{ s *Store }

func (r applications) FindByID(_ context.Context, id int64) (*model.Application, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	app, ok := r.s.st.apps[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := copyApplication(app)
	return &out, nil
}

func (r applications) UpdateReportState(_ context.Context, id int64, reportID string, printedAt time.Time, expected repository.Snapshot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	app, ok := r.s.st.apps[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !sameTime(app.LastUpdated, expected.LastUpdated) || !sameTime(app.LastPrinted, expected.LastPrinted) {
		return repository.ErrConcurrentUpdate
	}
	app.PreparedReportID = &reportID
	app.LastPrinted = &printedAt
	r.s.st.apps[id] = app
	return nil
}

func (r applications) TouchPrinted(_ context.Context, id int64, reportID string, at time.Time, expectedUpdated *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	app, ok := r.s.st.apps[id]
	if !ok {
		return repository.ErrNotFound
	}
	if app.PreparedReportID == nil || *app.PreparedReportID != reportID || !sameTime(app.LastUpdated, expectedUpdated) {
		return repository.ErrConcurrentUpdate
	}
	if app.LastPrinted == nil || at.After(*app.LastPrinted) {
		app.LastPrinted = &at
		r.s.st.apps[id] = app
	}
	return nil
}

func (r applications) MarkUpdated(_ context.Context, id int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	app, ok := r.s.st.apps[id]
	if !ok {
		return repository.ErrNotFound
	}
	if app.LastUpdated == nil || at.After(*app.LastUpdated) {
		app.LastUpdated = &at
		r.s.st.apps[id] = app
	}
	return nil
}

type reports struct{ s *Store }

func (r reports) Create(_ context.Context, rep *model.PreparedReport) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.st.reports[rep.ID]; ok {
		return fmt.Errorf("%w: prepared report %s", repository.ErrAlreadyExists, rep.ID)
	}
	r.s.st.reports[rep.ID] = *rep
	return nil
}

func (r reports) FindByID(_ context.Context, id string) (*model.PreparedReport, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rep, ok := r.s.st.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rep, nil
}

func (r reports) Update(_ context.Context, rep *model.PreparedReport) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.st.reports[rep.ID]; !ok {
		return repository.ErrNotFound
	}
	r.s.st.reports[rep.ID] = *rep
	return nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func copyApplication(app model.Application) model.Application {
	if app.LastUpdated != nil {
		v := *app.LastUpdated
		app.LastUpdated = &v
	}
	if app.LastPrinted != nil {
		v := *app.LastPrinted
		app.LastPrinted = &v
	}
	if app.PreparedReportID != nil {
		v := *app.PreparedReportID
		app.PreparedReportID = &v
	}
	return app
}
