package resource

import "errors"

var (
	ErrNotFound     = errors.New("resource: not found")
	ErrInvalidInput = errors.New("resource: invalid input")
)
