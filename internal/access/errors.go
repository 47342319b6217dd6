package access

import "errors"

var (
	ErrForbidden    = errors.New("access: forbidden")
	ErrInvalidInput = errors.New("access: invalid input")
)
