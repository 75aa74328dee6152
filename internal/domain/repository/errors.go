package repository

import "errors"

// Store facts. Implementations return these, optionally wrapped with %w.
var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateHandle = errors.New("duplicate handle")
)
