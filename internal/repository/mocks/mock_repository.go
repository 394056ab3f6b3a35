package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"reportapi/internal/model"
	"reportapi/internal/repository"
)

type MockApplicationRepository struct {
	mock.Mock
}

func (m *MockApplicationRepository) FindByID(ctx context.Context, id int64) (*model.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Application), args.Error(1)
}

func (m *MockApplicationRepository) UpdateReportState(ctx context.Context, id int64, reportID string, printedAt time.Time, expected repository.Snapshot) error {
	args := m.Called(ctx, id, reportID, printedAt, expected)
	return args.Error(0)
}

func (m *MockApplicationRepository) TouchPrinted(ctx context.Context, id int64, reportID string, at time.Time, expectedUpdated *time.Time) error {
	args := m.Called(ctx, id, reportID, at, expectedUpdated)
	return args.Error(0)
}

func (m *MockApplicationRepository) MarkUpdated(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

type MockPreparedReportRepository struct {
	mock.Mock
}

func (m *MockPreparedReportRepository) Create(ctx context.Context, r *model.PreparedReport) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockPreparedReportRepository) FindByID(ctx context.Context, id string) (*model.PreparedReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PreparedReport), args.Error(1)
}

func (m *MockPreparedReportRepository) Update(ctx context.Context, r *model.PreparedReport) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

// MockStore hands out the embedded repository mocks and runs WithTx callbacks
// against itself unless an error is configured for the transaction.
type MockStore struct {
	mock.Mock
	Apps    *MockApplicationRepository
	Reports *MockPreparedReportRepository
}

func NewMockStore() *MockStore {
	return &MockStore{
		Apps:    &MockApplicationRepository{},
		Reports: &MockPreparedReportRepository{},
	}
}

func (m *MockStore) Applications() repository.ApplicationRepository { return m.Apps }

func (m *MockStore) PreparedReports() repository.PreparedReportRepository { return m.Reports }

func (m *MockStore) WithTx(ctx context.Context, fn func(ctx context.Context, s repository.Store) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx, m)
}
