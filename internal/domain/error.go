package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrJobNotCancellable   = errors.New("job cannot be cancelled in its current status")
	ErrJobProcessing       = errors.New("job is actively processing")
	ErrUnsupportedProvider = errors.New("unsupported provider type")
	ErrLockNotAcquired     = errors.New("processing lock not acquired")
	ErrReadDatabaseRow     = errors.New("failed to read database row")
	ErrInvalidExecContext  = errors.New("invalid executor context")
)
