package device

import "errors"

var (
	ErrNotFound        = errors.New("device not found")
	ErrUnknownToken    = errors.New("unknown device token")
	ErrAccountInactive = errors.New("device account inactive")
)
