package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplication_ReportStatus(t *testing.T) {
	t1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	reportID := "report-1"
	empty := ""

	tests := []struct {
		name string
		app  Application
		want ReportStatus
	}{
		{
			name: "no report reference",
			app:  Application{ID: 1},
			want: ReportStatusUnset,
		},
		{
			name: "empty report reference",
			app:  Application{ID: 1, PreparedReportID: &empty, LastPrinted: &t1},
			want: ReportStatusUnset,
		},
		{
			name: "report but never printed",
			app:  Application{ID: 1, PreparedReportID: &reportID},
			want: ReportStatusStale,
		},
		{
			name: "updated after print",
			app:  Application{ID: 1, PreparedReportID: &reportID, LastUpdated: &t2, LastPrinted: &t1},
			want: ReportStatusStale,
		},
		{
			name: "printed after update",
			app:  Application{ID: 1, PreparedReportID: &reportID, LastUpdated: &t1, LastPrinted: &t2},
			want: ReportStatusFresh,
		},
		{
			name: "updated at the same instant as print",
			app:  Application{ID: 1, PreparedReportID: &reportID, LastUpdated: &t1, LastPrinted: &t1},
			want: ReportStatusFresh,
		},
		{
			name: "never updated",
			app:  Application{ID: 1, PreparedReportID: &reportID, LastPrinted: &t1},
			want: ReportStatusFresh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.app.ReportStatus())
		})
	}
}
