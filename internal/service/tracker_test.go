package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"reportapi/internal/logger"
	"reportapi/internal/model"
	"reportapi/internal/repository"
	repoMocks "reportapi/internal/repository/mocks"
)

func TestApplicationTracker_Status(t *testing.T) {
	ctx := context.Background()
	printed := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	before := printed.Add(-time.Hour)
	after := printed.Add(time.Hour)
	ref := "r-1"

	tests := []struct {
		name       string
		setupMocks func(m *repoMocks.MockApplicationRepository)
		userID     string
		want       model.ReportStatus
		wantErr    error
	}{
		{
			name: "unset",
			setupMocks: func(m *repoMocks.MockApplicationRepository) {
				m.On("FindByID", ctx, int64(1)).Return(&model.Application{ID: 1}, nil)
			},
			want: model.ReportStatusUnset,
		},
		{
			name: "fresh",
			setupMocks: func(m *repoMocks.MockApplicationRepository) {
				m.On("FindByID", ctx, int64(1)).Return(&model.Application{
					ID: 1, PreparedReportID: &ref, LastPrinted: &printed, LastUpdated: &before,
				}, nil)
			},
			want: model.ReportStatusFresh,
		},
		{
			name: "stale",
			setupMocks: func(m *repoMocks.MockApplicationRepository) {
				m.On("FindByID", ctx, int64(1)).Return(&model.Application{
					ID: 1, PreparedReportID: &ref, LastPrinted: &printed, LastUpdated: &after,
				}, nil)
			},
			want: model.ReportStatusStale,
		},
		{
			name: "not found",
			setupMocks: func(m *repoMocks.MockApplicationRepository) {
				m.On("FindByID", ctx, int64(1)).Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrApplicationNotFound,
		},
		{
			name:   "owner",
			userID: "u-1",
			setupMocks: func(m *repoMocks.MockApplicationRepository) {
				m.On("FindByID", ctx, int64(1)).Return(&model.Application{ID: 1, UserID: "u-1"}, nil)
			},
			want: model.ReportStatusUnset,
		},
		{
			name:   "someone else's application",
			userID: "intruder",
			setupMocks: func(m *repoMocks.MockApplicationRepository) {
				m.On("FindByID", ctx, int64(1)).Return(&model.Application{ID: 1, UserID: "u-1"}, nil)
			},
			wantErr: ErrApplicationNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apps := new(repoMocks.MockApplicationRepository)
			tt.setupMocks(apps)

			got, err := NewApplicationTracker(apps, logger.Nop()).Status(ctx, 1, tt.userID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			apps.AssertExpectations(t)
		})
	}
}

func TestApplicationTracker_MarkUpdated(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 10, 0, 0, 1500, time.FixedZone("WIB", 7*3600))
	stored := time.Date(2026, 5, 1, 3, 0, 0, 1000, time.UTC)

	t.Run("normalises and forwards", func(t *testing.T) {
		apps := new(repoMocks.MockApplicationRepository)
		apps.On("MarkUpdated", ctx, int64(1), mock.MatchedBy(func(v time.Time) bool {
			return v.Equal(stored) && v.Location() == time.UTC
		})).Return(nil)

		assert.NoError(t, NewApplicationTracker(apps, logger.Nop()).MarkUpdated(ctx, 1, "", at))
		apps.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		apps := new(repoMocks.MockApplicationRepository)
		apps.On("MarkUpdated", ctx, int64(1), mock.Anything).Return(repository.ErrNotFound)

		err := NewApplicationTracker(apps, logger.Nop()).MarkUpdated(ctx, 1, "", at)
		assert.ErrorIs(t, err, ErrApplicationNotFound)
	})

	t.Run("owner", func(t *testing.T) {
		apps := new(repoMocks.MockApplicationRepository)
		apps.On("FindByID", ctx, int64(1)).Return(&model.Application{ID: 1, UserID: "u-1"}, nil)
		apps.On("MarkUpdated", ctx, int64(1), mock.Anything).Return(nil)

		assert.NoError(t, NewApplicationTracker(apps, logger.Nop()).MarkUpdated(ctx, 1, "u-1", at))
		apps.AssertExpectations(t)
	})

	t.Run("someone else's application is left alone", func(t *testing.T) {
		apps := new(repoMocks.MockApplicationRepository)
		apps.On("FindByID", ctx, int64(1)).Return(&model.Application{ID: 1, UserID: "u-1"}, nil)

		err := NewApplicationTracker(apps, logger.Nop()).MarkUpdated(ctx, 1, "intruder", at)
		assert.ErrorIs(t, err, ErrApplicationNotFound)
		apps.AssertNotCalled(t, "MarkUpdated", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("store failure", func(t *testing.T) {
		apps := new(repoMocks.MockApplicationRepository)
		apps.On("MarkUpdated", ctx, int64(1), mock.Anything).Return(errors.New("conn refused"))

		err := NewApplicationTracker(apps, logger.Nop()).MarkUpdated(ctx, 1, "", at)
		var storeErr *StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "mark updated", storeErr.Op)
	})
}

func TestResolve_StoreFailureOnLoad(t *testing.T) {
	ctx := context.Background()
	store := repoMocks.NewMockStore()
	store.Apps.On("FindByID", mock.Anything, int64(3)).Return(nil, errors.New("conn refused"))

	svc := NewReportService(store, nil, nil, &fakeRenderer{}, logger.Nop())
	_, err := svc.Resolve(ctx, ResolveRequest{ApplicationID: 3, Template: "loan"})

	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, int64(3), storeErr.ApplicationID)
	assert.Equal(t, "load application", storeErr.Op)
}

func TestErrors_Unwrap(t *testing.T) {
	cause := errors.New("cause")
	for _, err := range []error{
		&RenderError{Op: "render", ApplicationID: 1, Err: cause},
		&CryptoError{Op: "decrypt", ApplicationID: 1, Err: cause},
		&StoreError{Op: "persist", ApplicationID: 1, Err: cause},
	} {
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "application 1")
	}
}
