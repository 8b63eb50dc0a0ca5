package midi

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const (
	// DefaultBaudRate matches the firmware's serial MIDI setting
	DefaultBaudRate = 115200
	// DefaultReadTimeout bounds how long TryReceive may block
	DefaultReadTimeout = 10 * time.Millisecond
)

// streamPort is the part of serial.Port the transport relies on
type streamPort interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

type portOpener func(path string, mode *serial.Mode) (streamPort, error)

func openSerial(path string, mode *serial.Mode) (streamPort, error) {
	return serial.Open(path, mode)
}

type detailedLister func() ([]*enumerator.PortDetails, error)

type portLister func() ([]string, error)

// SerialBackend handles serial device discovery
type SerialBackend struct {
	baudRate    int
	readTimeout time.Duration
	open        portOpener
	listDetails detailedLister
	listPorts   portLister
	logger      logrus.FieldLogger
}

// NewSerialBackend creates a backend for serial lines at the given baud rate
func NewSerialBackend(baudRate int, readTimeout time.Duration, logger logrus.FieldLogger) *SerialBackend {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	if readTimeout <= 0 || readTimeout > DefaultReadTimeout {
		readTimeout = DefaultReadTimeout
	}
	return &SerialBackend{
		baudRate:    baudRate,
		readTimeout: readTimeout,
		open:        openSerial,
		listDetails: enumerator.GetDetailedPortsList,
		listPorts:   serial.GetPortsList,
		logger:      logger.WithField("component", "serial"),
	}
}

func (b *SerialBackend) Kind() EndpointKind {
	return EndpointByteStream
}

// Endpoints lists serial devices present right now. USB product strings are
// used as descriptions when the OS reports them.
func (b *SerialBackend) Endpoints() ([]EndpointDescriptor, error) {
	details, err := b.listDetails()
	if err == nil {
		endpoints := make([]EndpointDescriptor, 0, len(details))
		for _, d := range details {
			endpoints = append(endpoints, serialDescriptor(d.Name, d.Product))
		}
		return endpoints, nil
	}

	b.logger.WithError(err).Debug("Detailed serial enumeration failed, using plain list")
	names, err := b.listPorts()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	endpoints := make([]EndpointDescriptor, 0, len(names))
	for _, name := range names {
		endpoints = append(endpoints, serialDescriptor(name, ""))
	}
	return endpoints, nil
}

func serialDescriptor(path, product string) EndpointDescriptor {
	return EndpointDescriptor{
		Kind:        EndpointByteStream,
		Identifier:  path,
		Label:       path,
		Description: product,
	}
}

func (b *SerialBackend) NewTransport() Transport {
	return &SerialTransport{
		baudRate:    b.baudRate,
		readTimeout: b.readTimeout,
		open:        b.open,
	}
}

// SerialTransport writes raw 3-byte packets to a serial line.
// mu guards port for Open, Close and Send; readMu guards the receive side so
// a pending Read never holds up a Send. Lock order is readMu then mu.
type SerialTransport struct {
	mu          sync.Mutex
	port        streamPort
	baudRate    int
	readTimeout time.Duration
	open        portOpener

	readMu  sync.Mutex
	framer  Framer
	pending [][]byte
	readBuf [64]byte
}

func (t *SerialTransport) Open(path string) error {
	t.readMu.Lock()
	defer t.readMu.Unlock()
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port != nil {
		return &ConnectionError{Endpoint: path, Err: errors.New("transport already open")}
	}

	mode := &serial.Mode{
		BaudRate: t.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := t.open(path, mode)
	if err != nil {
		return &ConnectionError{Endpoint: path, Err: describeSerialError(err)}
	}
	if err := port.SetReadTimeout(t.readTimeout); err != nil {
		_ = port.Close()
		return &ConnectionError{Endpoint: path, Err: fmt.Errorf("set read timeout: %w", err)}
	}

	t.port = port
	t.framer.Reset()
	t.pending = nil
	return nil
}

// describeSerialError maps driver error codes to readable causes
func describeSerialError(err error) error {
	var portErr *serial.PortError
	if !errors.As(err, &portErr) {
		return err
	}
	switch portErr.Code() {
	case serial.PortBusy:
		return fmt.Errorf("device busy: %w", err)
	case serial.PortNotFound:
		return fmt.Errorf("device not found: %w", err)
	case serial.PermissionDenied:
		return fmt.Errorf("permission denied: %w", err)
	default:
		return err
	}
}

func (t *SerialTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}

func (t *SerialTransport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

func (t *SerialTransport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return ErrTransportUnavailable
	}
	_, err := t.port.Write(data)
	return err
}

// TryReceive performs at most one read bounded by the read timeout and
// returns the next complete message assembled from the stream
func (t *SerialTransport) TryReceive() ([]byte, bool) {
	t.readMu.Lock()
	defer t.readMu.Unlock()

	t.mu.Lock()
	port := t.port
	t.mu.Unlock()

	if port == nil {
		t.pending = nil
		return nil, false
	}
	if len(t.pending) == 0 {
		n, err := port.Read(t.readBuf[:])
		if err != nil || n == 0 {
			return nil, false
		}
		t.pending = t.framer.Feed(t.readBuf[:n])
	}
	if len(t.pending) == 0 {
		return nil, false
	}
	msg := t.pending[0]
	t.pending = t.pending[1:]
	return msg, true
}
