package domain

import "errors"

// Error classes shared by the pipeline and its adapters. Adapters wrap these
// so callers can classify failures with errors.Is.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrNotificationFailure = errors.New("notification failure")
)
