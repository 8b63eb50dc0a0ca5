// Package router owns the single active output transport and forwards every
// control message, whether from the UI or the virtual input, to it.
package router

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/PixPMusic/leslieleds-controller/internal/midi"
)

// StatusNoDevices is reported when a refresh finds nothing to connect to
const StatusNoDevices = "No devices found"

// StatusDisconnected is reported after Disconnect
const StatusDisconnected = "Not connected"

// Observer receives core events. The UI implements it; the core never reads
// widget state.
type Observer interface {
	OnStatusChanged(label string, connected bool)
	OnParameterMirrored(parameterID, value int)
}

// Options configures a Router
type Options struct {
	Channel         int    // channel stamped on every outbound message
	PrimaryMarker   string // preferred device name fragment for auto-select
	SecondaryMarker string // fallback device name fragment
}

// connection is the mutable record guarded by Router.mu
type connection struct {
	transport  midi.Transport
	kind       midi.EndpointKind
	label      string
	identifier string
	session    string
}

// Stats counts traffic through the router
type Stats struct {
	Sent    uint64
	Dropped uint64
	Failed  uint64
}

// Router is created once and shared by the UI and the listener
type Router struct {
	packet midi.Backend
	stream midi.Backend
	opts   Options
	logger logrus.FieldLogger

	obsMu    sync.RWMutex
	observer Observer

	mu    sync.Mutex
	conn  connection
	stats Stats
}

// New creates a disconnected router over the two backends
func New(packet, stream midi.Backend, opts Options, logger logrus.FieldLogger) *Router {
	return &Router{
		packet: packet,
		stream: stream,
		opts:   opts,
		logger: logger.WithField("component", "router"),
	}
}

// SetObserver installs the observer. It may be called once the UI exists.
func (r *Router) SetObserver(obs Observer) {
	r.obsMu.Lock()
	r.observer = obs
	r.obsMu.Unlock()
}

func (r *Router) notifyStatus(label string, connected bool) {
	r.obsMu.RLock()
	obs := r.observer
	r.obsMu.RUnlock()
	if obs != nil {
		obs.OnStatusChanged(label, connected)
	}
}

// MirrorParameter reports an externally driven parameter value to the observer
func (r *Router) MirrorParameter(parameterID, value int) {
	r.obsMu.RLock()
	obs := r.observer
	r.obsMu.RUnlock()
	if obs != nil {
		obs.OnParameterMirrored(parameterID, value)
	}
}

// ListEndpoints enumerates both backends, packet endpoints first. A failing
// backend is logged and skipped.
func (r *Router) ListEndpoints() []midi.EndpointDescriptor {
	var endpoints []midi.EndpointDescriptor
	for _, b := range []midi.Backend{r.packet, r.stream} {
		if b == nil {
			continue
		}
		found, err := b.Endpoints()
		if err != nil {
			r.logger.WithError(err).WithField("kind", b.Kind()).Warn("Endpoint enumeration failed")
			continue
		}
		endpoints = append(endpoints, found...)
	}
	return endpoints
}

func (r *Router) backendFor(kind midi.EndpointKind) midi.Backend {
	switch kind {
	case midi.EndpointPacket:
		return r.packet
	case midi.EndpointByteStream:
		return r.stream
	default:
		return nil
	}
}

// Connect closes the current transport and opens the one described.
// On failure the router is left disconnected and a *midi.ConnectionError is
// returned.
func (r *Router) Connect(desc midi.EndpointDescriptor) error {
	label, err := r.connect(desc)
	if err != nil {
		r.notifyStatus("Connection failed: "+desc.Label, false)
		return err
	}
	r.notifyStatus(label, true)
	return nil
}

func (r *Router) connect(desc midi.EndpointDescriptor) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closeLocked()

	backend := r.backendFor(desc.Kind)
	if backend == nil {
		return "", &midi.ConnectionError{Endpoint: desc.Identifier, Err: errors.New("unknown endpoint kind " + string(desc.Kind))}
	}

	t := backend.NewTransport()
	if err := t.Open(desc.Identifier); err != nil {
		r.logger.WithError(err).WithField("endpoint", desc.Identifier).Warn("Failed to open transport")
		return "", err
	}

	r.conn = connection{
		transport:  t,
		kind:       desc.Kind,
		label:      desc.Label,
		identifier: desc.Identifier,
		session:    uuid.New().String(),
	}
	r.logger.WithFields(logrus.Fields{
		"endpoint": desc.Identifier,
		"kind":     desc.Kind,
		"session":  r.conn.session,
	}).Info("Connected")

	return desc.Label, nil
}

// closeLocked closes the active transport. r.mu must be held.
func (r *Router) closeLocked() {
	if r.conn.transport == nil {
		return
	}
	if err := r.conn.transport.Close(); err != nil {
		r.logger.WithError(err).WithField("session", r.conn.session).Warn("Error closing transport")
	}
	r.logger.WithFields(logrus.Fields{
		"endpoint": r.conn.identifier,
		"session":  r.conn.session,
	}).Info("Disconnected")
	r.conn = connection{}
}

// Disconnect closes the active transport if any. Always safe to call.
func (r *Router) Disconnect() {
	r.mu.Lock()
	wasOpen := r.conn.transport != nil
	r.closeLocked()
	r.mu.Unlock()

	if wasOpen {
		r.notifyStatus(StatusDisconnected, false)
	}
}

// Send stamps the configured channel, encodes and writes msg to the active
// transport. With no transport the message is dropped and logged.
func (r *Router) Send(msg midi.ControlMessage) {
	msg.Channel = r.opts.Channel
	r.ForwardRaw(midi.Encode(msg))
}

// ForwardRaw writes already-encoded bytes unmodified to the active transport
func (r *Router) ForwardRaw(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn.transport == nil {
		r.stats.Dropped++
		r.logger.WithError(midi.ErrTransportUnavailable).WithField("message", midi.Describe(data)).Debug("Dropped message")
		return
	}

	if err := r.conn.transport.Send(data); err != nil {
		r.stats.Failed++
		r.logger.WithError(err).WithFields(logrus.Fields{
			"message": midi.Describe(data),
			"session": r.conn.session,
		}).Warn("Send failed")
		return
	}
	r.stats.Sent++
}

// Receive polls the active transport for device feedback. The read runs
// outside r.mu so Send and ForwardRaw never wait on the transport's read
// timeout.
func (r *Router) Receive() ([]byte, bool) {
	r.mu.Lock()
	t := r.conn.transport
	r.mu.Unlock()

	if t == nil {
		return nil, false
	}
	return t.TryReceive()
}

// Status returns the active endpoint label and whether a transport is open
func (r *Router) Status() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn.transport == nil {
		return StatusDisconnected, false
	}
	return r.conn.label, true
}

// ActiveKind returns the kind of the open transport, or "" when disconnected
func (r *Router) ActiveKind() midi.EndpointKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn.kind
}

// Stats returns a snapshot of the traffic counters
func (r *Router) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Refresh enumerates endpoints and connects to the auto-selected one. The
// enumerated list is returned for display.
func (r *Router) Refresh() []midi.EndpointDescriptor {
	endpoints := r.ListEndpoints()

	desc, ok := AutoSelect(endpoints, r.opts.PrimaryMarker, r.opts.SecondaryMarker)
	if !ok {
		r.mu.Lock()
		r.closeLocked()
		r.mu.Unlock()
		r.notifyStatus(StatusNoDevices, false)
		return endpoints
	}

	if err := r.Connect(desc); err != nil {
		r.logger.WithError(err).Warn("Auto-connect failed")
	}
	return endpoints
}
