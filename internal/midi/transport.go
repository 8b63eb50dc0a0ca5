package midi

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionFailed marks a transport that could not be opened
	ErrConnectionFailed = errors.New("connection failed")
	// ErrTransportUnavailable is returned when sending with no open transport
	ErrTransportUnavailable = errors.New("no transport open")
	// ErrVirtualUnsupported means the MIDI driver cannot create virtual ports
	ErrVirtualUnsupported = errors.New("virtual ports not supported by driver")
)

// ConnectionError reports a failed open of a specific endpoint
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrConnectionFailed) match every ConnectionError
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnectionFailed
}

// Transport is one output endpoint. PacketTransport and SerialTransport are
// the two implementations; callers only ever hold the current Transport.
type Transport interface {
	// Open connects to the endpoint with the given identifier
	Open(identifier string) error

	// Close releases the endpoint. Closing a closed transport is a no-op.
	Close() error

	IsOpen() bool

	// Send writes one encoded message
	Send(data []byte) error

	// TryReceive returns one inbound packet if available without blocking
	// longer than the transport's read timeout
	TryReceive() ([]byte, bool)
}

// Backend enumerates endpoints of one kind and creates transports for them
type Backend interface {
	Kind() EndpointKind
	Endpoints() ([]EndpointDescriptor, error)
	NewTransport() Transport
}
