package services

import "errors"

// Indicator service errors
var (
	// Dataset errors
	ErrDatasetNotLoaded = errors.New("dataset not loaded")
	ErrReloadFailed     = errors.New("dataset reload failed")

	// Lookup errors
	ErrUnknownSheet       = errors.New("unknown sheet")
	ErrUnknownTable       = errors.New("unknown category table")
	ErrInstrumentNotFound = errors.New("instrument not found")
)
