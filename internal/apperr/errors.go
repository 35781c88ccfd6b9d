// Package apperr holds the sentinel errors that the HTTP layer maps to
// status codes.
package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)
