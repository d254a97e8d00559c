package model

import "errors"

// Sentinel errors for model validation. Callers use errors.Is.
var (
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrRatingOutOfRange = errors.New("rating out of range")
	ErrMissingField     = errors.New("missing required field")
	ErrInvalidDate      = errors.New("invalid date")
)
