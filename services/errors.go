package services

import (
	"errors"
	"fmt"
)

// ValidationError rejects malformed input before any store access happens.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NotFoundError marks an absent entity (meter, stall, building, tenant,
// rate or tax code).
type NotFoundError struct {
	Entity string
	ID     int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// InsufficientDataError marks a required billing window with no reading in
// it. It names the window so callers can report which period lacks data.
type InsufficientDataError struct {
	MeterID int
	Window  string
	Start   string
	End     string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("no reading for meter %d in %s (%s to %s)", e.MeterID, e.Window, e.Start, e.End)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsInsufficientData(err error) bool {
	var id *InsufficientDataError
	return errors.As(err, &id)
}
