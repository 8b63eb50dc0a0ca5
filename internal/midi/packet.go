package midi

import (
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register rtmidi driver
)

// inboxSize bounds packets queued from a listened input port
const inboxSize = 256

// PacketBackend handles MIDI port discovery
type PacketBackend struct {
	mu          sync.RWMutex
	virtualName string
	logger      logrus.FieldLogger
}

// NewPacketBackend creates a backend that hides ports named after virtualName
func NewPacketBackend(virtualName string, logger logrus.FieldLogger) *PacketBackend {
	return &PacketBackend{
		virtualName: virtualName,
		logger:      logger.WithField("component", "packet"),
	}
}

// CloseDriver cleans up the MIDI driver
func CloseDriver() {
	midi.CloseDriver()
}

func (b *PacketBackend) Kind() EndpointKind {
	return EndpointPacket
}

// Endpoints lists MIDI output ports present right now, minus our own
// virtual input so the surface cannot route into itself
func (b *PacketBackend) Endpoints() ([]EndpointDescriptor, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	outs := midi.GetOutPorts()
	names := make([]string, 0, len(outs))
	for _, out := range outs {
		names = append(names, out.String())
	}
	return FilterSelfPorts(names, b.virtualName), nil
}

// FilterSelfPorts turns port names into descriptors, skipping any name that
// is or contains the virtual endpoint name
func FilterSelfPorts(names []string, virtualName string) []EndpointDescriptor {
	endpoints := make([]EndpointDescriptor, 0, len(names))
	for _, name := range names {
		if virtualName != "" && strings.Contains(name, virtualName) {
			continue
		}
		endpoints = append(endpoints, EndpointDescriptor{
			Kind:       EndpointPacket,
			Identifier: name,
			Label:      name,
		})
	}
	return endpoints
}

func (b *PacketBackend) NewTransport() Transport {
	return &PacketTransport{logger: b.logger}
}

// PacketTransport sends discrete messages to one MIDI output port.
// When an input port with the same name exists its messages are queued for
// TryReceive.
type PacketTransport struct {
	mu     sync.Mutex
	out    drivers.Out
	in     drivers.In
	send   func(midi.Message) error
	stop   func()
	inbox  chan []byte
	logger logrus.FieldLogger
}

func (t *PacketTransport) Open(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.out != nil {
		return &ConnectionError{Endpoint: name, Err: errors.New("transport already open")}
	}

	out := findOutPort(name)
	if out == nil {
		return &ConnectionError{Endpoint: name, Err: errors.New("output port not found")}
	}

	send, err := midi.SendTo(out)
	if err != nil {
		return &ConnectionError{Endpoint: name, Err: err}
	}

	t.out = out
	t.send = send
	t.inbox = make(chan []byte, inboxSize)

	if in := findInPort(name); in != nil {
		inbox := t.inbox
		stop, err := midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
			data := append([]byte(nil), msg...)
			select {
			case inbox <- data:
			default:
				// Reader is behind; newest feedback is dropped
			}
		})
		if err != nil {
			t.logger.WithError(err).WithField("endpoint", name).Debug("Feedback input unavailable")
		} else {
			t.in = in
			t.stop = stop
		}
	}

	return nil
}

func (t *PacketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stop != nil {
		t.stop()
		t.stop = nil
	}
	if t.in != nil {
		_ = t.in.Close()
		t.in = nil
	}
	t.inbox = nil
	if t.out == nil {
		return nil
	}
	err := t.out.Close()
	t.out = nil
	t.send = nil
	return err
}

func (t *PacketTransport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.out != nil
}

func (t *PacketTransport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.send == nil {
		return ErrTransportUnavailable
	}
	return t.send(midi.Message(data))
}

func (t *PacketTransport) TryReceive() ([]byte, bool) {
	t.mu.Lock()
	inbox := t.inbox
	t.mu.Unlock()

	if inbox == nil {
		return nil, false
	}
	select {
	case data := <-inbox:
		return data, true
	default:
		return nil, false
	}
}

func findOutPort(name string) drivers.Out {
	outs := midi.GetOutPorts()
	for _, out := range outs {
		if out.String() == name {
			return out
		}
	}
	return nil
}

func findInPort(name string) drivers.In {
	ins := midi.GetInPorts()
	for _, in := range ins {
		if in.String() == name {
			return in
		}
	}
	return nil
}
