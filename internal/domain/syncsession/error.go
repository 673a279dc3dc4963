package syncsession

import "errors"

var (
	ErrNotFound       = errors.New("sync session not found")
	ErrDeviceNotFound = errors.New("session device not found")
	ErrInvalidReason  = errors.New("invalid stop reason")
	ErrInvalidStatus  = errors.New("invalid device status")
	ErrNoMedia        = errors.New("no media resolved for device")
)
