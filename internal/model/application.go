package model

import "time"

// ReportStatus describes the cached report of an application relative to its content.
type ReportStatus string

const (
	// ReportStatusUnset means no report was ever generated for the application.
	ReportStatusUnset ReportStatus = "unset"
	// ReportStatusFresh means the stored report reflects the latest content.
	ReportStatusFresh ReportStatus = "fresh"
	// ReportStatusStale means the content changed after the report was last produced.
	ReportStatusStale ReportStatus = "stale"
)

// Application is the form submission a report is produced from.
// LastUpdated is advanced by content edits; LastPrinted and PreparedReportID are
// written only by the report service.
type Application struct {
	ID               int64      `json:"id"`
	UserID           string     `json:"user_id,omitempty"`
	AppType          string     `json:"app_type,omitempty"`
	LastUpdated      *time.Time `json:"last_updated,omitempty"`
	LastPrinted      *time.Time `json:"last_printed,omitempty"`
	PreparedReportID *string    `json:"prepared_report_id,omitempty"`
}

// HasReport reports whether a report was ever generated for the application.
func (a *Application) HasReport() bool {
	return a.PreparedReportID != nil && *a.PreparedReportID != ""
}

// IsStale reports whether an existing report must be regenerated:
// it was never printed, or the content changed after the last print.
func (a *Application) IsStale() bool {
	if a.LastPrinted == nil {
		return true
	}
	return a.LastUpdated != nil && a.LastUpdated.After(*a.LastPrinted)
}

// ReportStatus derives the report state from the reference and the two timestamps.
func (a *Application) ReportStatus() ReportStatus {
	switch {
	case !a.HasReport():
		return ReportStatusUnset
	case a.IsStale():
		return ReportStatusStale
	default:
		return ReportStatusFresh
	}
}
