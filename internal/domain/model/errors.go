package model

import "errors"

// Sentinel kinds for domain validation errors. Callers match with
// errors.Is to translate into transport status codes.
var (
	ErrValidation = errors.New("validation failed")
)
