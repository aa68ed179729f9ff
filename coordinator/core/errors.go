package core

import "errors"

var (
	ErrInvalidArgs  = errors.New("invalid args")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("not allowed")
	ErrUnavailable  = errors.New("dependency unavailable")
)
