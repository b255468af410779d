package service

import "errors"

var (
	// ErrSourceUnavailable means the raw-event source could not be reached
	// or the query failed. The run is aborted.
	ErrSourceUnavailable = errors.New("raw event source unavailable")

	// ErrPersistence means a bulk insert or update failed. Batches are not
	// rolled back; rerunning is safe because of dedup.
	ErrPersistence = errors.New("persistence failed")

	// ErrScopeLocked means another run holds a lock on one of the users.
	ErrScopeLocked = errors.New("scope locked by another run")

	ErrInvalidRequest = errors.New("invalid request")
	ErrInvalidRange   = errors.New("invalid date range")
)
