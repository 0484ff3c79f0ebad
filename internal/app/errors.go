package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNoSource = errors.New("no snapshot source configured")
	ErrStopped  = errors.New("service stopped")
	ErrNoData   = errors.New("no quiz data acquired")
)
