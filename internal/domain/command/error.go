package command

import "errors"

var (
	ErrNotFound    = errors.New("command not found")
	ErrWrongDevice = errors.New("command belongs to another device")
	ErrInvalidAck  = errors.New("invalid ack status")
)
