package apperrors

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotConfigured  = errors.New("not configured")
)
