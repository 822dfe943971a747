package services

import "errors"

// Sentinel error kinds. Services wrap these with %w and context; handlers
// map them to HTTP statuses with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
	ErrStorage    = errors.New("storage failure")
)
