package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"reportapi/internal/model"
	"reportapi/internal/service"
)

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Resolve(ctx context.Context, req service.ResolveRequest) (*service.ResolveResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ResolveResult), args.Error(1)
}

func (m *MockReportService) DecryptPayload(ctx context.Context, applicationID int64, userID string) ([]byte, error) {
	args := m.Called(ctx, applicationID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockApplicationTracker struct {
	mock.Mock
}

func (m *MockApplicationTracker) Status(ctx context.Context, applicationID int64, userID string) (model.ReportStatus, error) {
	args := m.Called(ctx, applicationID, userID)
	return args.Get(0).(model.ReportStatus), args.Error(1)
}

func (m *MockApplicationTracker) MarkUpdated(ctx context.Context, applicationID int64, userID string, at time.Time) error {
	args := m.Called(ctx, applicationID, userID, at)
	return args.Error(0)
}
