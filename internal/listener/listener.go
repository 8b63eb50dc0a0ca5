// Package listener runs the background task that drains the virtual MIDI
// input into the router.
package listener

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/PixPMusic/leslieleds-controller/internal/midi"
)

const (
	// DefaultPollInterval is the sleep between empty polls
	DefaultPollInterval = time.Millisecond
	// DefaultStopTimeout bounds how long Stop waits for the loop to exit
	DefaultStopTimeout = time.Second
)

// ErrStopTimeout is returned when the loop does not exit in time
var ErrStopTimeout = errors.New("listener did not stop in time")

// Source is a non-blocking inbound message queue
type Source interface {
	TryReceive() ([]byte, bool)
}

// Router is the part of router.Router the listener drives
type Router interface {
	ForwardRaw(data []byte)
	Receive() ([]byte, bool)
	MirrorParameter(parameterID, value int)
}

// Listener forwards everything arriving on the virtual input to the active
// output and mirrors parameter changes to the UI
type Listener struct {
	source   Source
	router   Router
	interval time.Duration
	logger   logrus.FieldLogger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a listener. source may be nil when the virtual input could not
// be opened; the loop then only polls device feedback.
func New(source Source, router Router, interval time.Duration, logger logrus.FieldLogger) *Listener {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Listener{
		source:   source,
		router:   router,
		interval: interval,
		logger:   logger.WithField("component", "listener"),
	}
}

// Start launches the poll loop. Calling Start while a loop is still running,
// including one that outlived a timed-out Stop, is a no-op.
func (l *Listener) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done != nil {
		select {
		case <-l.done:
		default:
			return
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})

	go l.run(ctx, l.done)
	l.logger.WithField("interval", l.interval).Info("Virtual input listener started")
}

func (l *Listener) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		busy := l.Poll()

		if !busy {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
}

// Poll runs one iteration: drain every queued virtual input message, then
// read at most one device feedback message. It reports whether anything was
// handled.
func (l *Listener) Poll() bool {
	handled := false

	for l.source != nil {
		data, ok := l.source.TryReceive()
		if !ok {
			break
		}
		handled = true
		if msg, ok := midi.Decode(data); ok && msg.Kind == midi.KindParameterChange {
			l.router.MirrorParameter(msg.ID, msg.Value)
		}
		l.router.ForwardRaw(data)
	}

	// Device feedback updates the UI but is never sent back out
	if data, ok := l.router.Receive(); ok {
		handled = true
		if msg, ok := midi.Decode(data); ok && msg.Kind == midi.KindParameterChange {
			l.router.MirrorParameter(msg.ID, msg.Value)
		} else {
			l.logger.WithField("message", midi.Describe(data)).Debug("Ignored device feedback")
		}
	}

	return handled
}

// Stop signals the loop and waits up to timeout for it to exit. The virtual
// input must only be closed after Stop returns nil.
func (l *Listener) Stop(timeout time.Duration) error {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	if done == nil {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}

	cancel()
	select {
	case <-done:
		l.mu.Lock()
		if l.done == done {
			l.cancel, l.done = nil, nil
		}
		l.mu.Unlock()
		l.logger.Info("Virtual input listener stopped")
		return nil
	case <-time.After(timeout):
		l.logger.WithField("timeout", timeout).Warn("Virtual input listener did not stop in time")
		return ErrStopTimeout
	}
}
