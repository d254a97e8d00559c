package service

import "errors"

// Sentinel errors returned by the Service.
var (
	ErrNotStarted        = errors.New("service not started")
	ErrInvalidAssessment = errors.New("invalid assessment")
	ErrInvalidRequest    = errors.New("invalid request")
)
