package telemetry

import (
	"errors"
	"fmt"
)

var (
	// ErrFieldCount indicates a row without exactly FieldCount fields.
	ErrFieldCount = errors.New("wrong field count")
	// ErrEmptyID indicates a row with a blank transponder code.
	ErrEmptyID = errors.New("empty icao")
	// ErrRowTooLong indicates a row longer than MaxRowBytes.
	ErrRowTooLong = errors.New("row too long")
)

// FetchError reports a transport-level failure: connection refused, timeout
// or a non-success status. The caller treats it as "no data this cycle".
type FetchError struct {
	Source string
	Status int // HTTP status when the server answered, 0 otherwise
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch from %s failed with status %d: %v", e.Source, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch from %s failed: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MalformedRecordError describes a row that could not be parsed.
type MalformedRecordError struct {
	Line  int
	Field string
	Err   error
}

func (e *MalformedRecordError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("line %d: field %s: %v", e.Line, e.Field, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }
