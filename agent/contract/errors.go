package contract

import "errors"

var (
	ErrEmptyInput   = errors.New("input is empty")
	ErrModelInvoke  = errors.New("model invoke failed")
	ErrEmptyOutput  = errors.New("model returned empty output")
	ErrCardNotFound = errors.New("kb card not found")
	ErrValidation   = errors.New("validation failed")
)
