package midi

import (
	"fmt"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// virtualInOpener is implemented by drivers that can register software ports
// (rtmididrv on macOS and Linux)
type virtualInOpener interface {
	OpenVirtualIn(name string) (drivers.In, error)
}

// VirtualInput is the process's own inbound MIDI endpoint. Other software
// addresses it by name and writes into the surface's stream.
type VirtualInput struct {
	name  string
	mu    sync.Mutex
	in    drivers.In
	stop  func()
	inbox chan []byte
}

// OpenVirtualInput registers a virtual input port under name with the
// active MIDI driver
func OpenVirtualInput(name string) (*VirtualInput, error) {
	drv := drivers.Get()
	if drv == nil {
		return nil, fmt.Errorf("open virtual input %q: no MIDI driver registered: %w", name, ErrVirtualUnsupported)
	}
	opener, ok := drv.(virtualInOpener)
	if !ok {
		return nil, fmt.Errorf("open virtual input %q: %w", name, ErrVirtualUnsupported)
	}

	in, err := opener.OpenVirtualIn(name)
	if err != nil {
		return nil, fmt.Errorf("open virtual input %q: %w", name, err)
	}

	v := &VirtualInput{
		name:  name,
		in:    in,
		inbox: make(chan []byte, inboxSize),
	}

	inbox := v.inbox
	stop, err := midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
		data := append([]byte(nil), msg...)
		select {
		case inbox <- data:
		default:
		}
	})
	if err != nil {
		_ = in.Close()
		return nil, fmt.Errorf("listen on virtual input %q: %w", name, err)
	}
	v.stop = stop

	return v, nil
}

// Name returns the registered port name
func (v *VirtualInput) Name() string {
	return v.name
}

// TryReceive returns the next queued message without blocking
func (v *VirtualInput) TryReceive() ([]byte, bool) {
	select {
	case data := <-v.inbox:
		return data, true
	default:
		return nil, false
	}
}

// Close unregisters the port. Only call after the listener has stopped.
func (v *VirtualInput) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.in == nil {
		return nil
	}
	if v.stop != nil {
		v.stop()
		v.stop = nil
	}
	err := v.in.Close()
	v.in = nil
	return err
}
