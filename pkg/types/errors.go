package types

import "errors"

// Record operation errors.
var (
	ErrNotFound    = errors.New("experiment not found")
	ErrInvalidID   = errors.New("invalid experiment ID")
	ErrInvalidData = errors.New("invalid experiment data")
)

// Cache contract errors.
var (
	// ErrIdentityMismatch is returned when an update names an experiment
	// other than the active one. It signals a programming error.
	ErrIdentityMismatch = errors.New("experiment is not the active experiment")
	ErrNoActive         = errors.New("no active experiment")
)

// Entity method errors.
var (
	ErrInvalidLabel     = errors.New("invalid label")
	ErrInvalidAssetName = errors.New("invalid asset name")
)

// Storage errors.
var (
	ErrLocked = errors.New("storage root is locked by another process")
)

// Manager errors. The details of these failures have already been
// delivered to the FailureListener.
var (
	ErrUnavailable = errors.New("experiment could not be loaded")
	ErrWriteFailed = errors.New("experiment could not be written")
)
