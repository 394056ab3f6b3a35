package service

import (
	"errors"
	"fmt"
)

var (
	// ErrApplicationNotFound is returned when the application does not exist
	// or is not visible to the requesting user.
	ErrApplicationNotFound = errors.New("application not found")
	// ErrReportNotFound is returned when an application has no prepared report.
	ErrReportNotFound = errors.New("prepared report not found")
	// ErrKeyMismatch is returned when a stored blob is tagged with a different
	// key id than its report row names.
	ErrKeyMismatch = errors.New("object key id does not match report")
)

// RenderError reports a failure to produce the document.
type RenderError struct {
	Op            string
	ApplicationID int64
	Err           error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render: %s (application %d): %v", e.Op, e.ApplicationID, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// CryptoError reports an encryption or decryption failure.
type CryptoError struct {
	Op            string
	ApplicationID int64
	Err           error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("crypto: %s (application %d): %v", e.Op, e.ApplicationID, e.Err)
}

func (e *CryptoError) Unwrap() error { return e.Err }

// StoreError reports a failure of the database or the object storage.
type StoreError struct {
	Op            string
	ApplicationID int64
	Err           error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s (application %d): %v", e.Op, e.ApplicationID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
