package broker

import "errors"

var (
	// ErrNotConnected is returned when no broker connection or channel could be obtained.
	ErrNotConnected = errors.New("broker: not connected")
	// ErrShutdown is returned once the connection manager has been closed.
	ErrShutdown = errors.New("broker: connection shut down")
	// ErrEncode is returned when a payload cannot be serialized.
	ErrEncode = errors.New("broker: encode payload")
	// ErrDecode marks a delivery whose body is not a JSON object.
	ErrDecode = errors.New("broker: malformed message body")
	// ErrHandlerPanic wraps a panic recovered from a message handler.
	ErrHandlerPanic = errors.New("broker: handler panicked")
)
