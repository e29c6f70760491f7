package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates that a state transition was requested from an illegal
// source state. The receipt is left untouched when this is returned.
var ErrConflict = errors.New("conflicting state transition")

// ErrRecognition indicates the external recognition call failed, timed out, or
// returned no usable text.
var ErrRecognition = errors.New("recognition unavailable")
