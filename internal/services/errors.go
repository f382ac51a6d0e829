package services

import "errors"

// Browser service errors
var (
	// Lookup errors
	ErrYearNotFound = errors.New("year not found")
	ErrFileNotFound = errors.New("file not found")

	// General errors
	ErrInvalidInput = errors.New("invalid input")
)
