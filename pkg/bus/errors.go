package bus

import "errors"

var (
	// ErrNotTransmitting indicates a write while the line driver is disabled.
	ErrNotTransmitting = errors.New("line driver disabled")
	// ErrClosed indicates the port has been closed.
	ErrClosed = errors.New("port closed")
)
