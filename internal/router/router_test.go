package router

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PixPMusic/leslieleds-controller/internal/midi"
)

// eventLog records transport lifecycle across all fakes in order
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type fakeTransport struct {
	log     *eventLog
	failErr error
	id      string
	open    bool
	sent    [][]byte
	inbox   [][]byte
}

func (t *fakeTransport) Open(id string) error {
	if t.failErr != nil {
		return &midi.ConnectionError{Endpoint: id, Err: t.failErr}
	}
	t.id = id
	t.open = true
	t.log.add("open " + id)
	return nil
}

func (t *fakeTransport) Close() error {
	if t.open {
		t.log.add("close " + t.id)
	}
	t.open = false
	return nil
}

func (t *fakeTransport) IsOpen() bool { return t.open }

func (t *fakeTransport) Send(data []byte) error {
	if !t.open {
		return midi.ErrTransportUnavailable
	}
	t.sent = append(t.sent, append([]byte(nil), data...))
	return nil
}

func (t *fakeTransport) TryReceive() ([]byte, bool) {
	if len(t.inbox) == 0 {
		return nil, false
	}
	msg := t.inbox[0]
	t.inbox = t.inbox[1:]
	return msg, true
}

type fakeBackend struct {
	kind       midi.EndpointKind
	endpoints  []midi.EndpointDescriptor
	listErr    error
	failOpen   error
	log        *eventLog
	transports []*fakeTransport
}

func (b *fakeBackend) Kind() midi.EndpointKind { return b.kind }

func (b *fakeBackend) Endpoints() ([]midi.EndpointDescriptor, error) {
	return b.endpoints, b.listErr
}

func (b *fakeBackend) NewTransport() midi.Transport {
	t := &fakeTransport{log: b.log, failErr: b.failOpen}
	b.transports = append(b.transports, t)
	return t
}

type statusEvent struct {
	label     string
	connected bool
}

type recordingObserver struct {
	mu       sync.Mutex
	statuses []statusEvent
	mirrored [][2]int
}

func (o *recordingObserver) OnStatusChanged(label string, connected bool) {
	o.mu.Lock()
	o.statuses = append(o.statuses, statusEvent{label, connected})
	o.mu.Unlock()
}

func (o *recordingObserver) OnParameterMirrored(parameterID, value int) {
	o.mu.Lock()
	o.mirrored = append(o.mirrored, [2]int{parameterID, value})
	o.mu.Unlock()
}

func (o *recordingObserver) last() statusEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.statuses[len(o.statuses)-1]
}

func packetEndpoint(name string) midi.EndpointDescriptor {
	return midi.EndpointDescriptor{Kind: midi.EndpointPacket, Identifier: name, Label: name}
}

func serialEndpoint(path string) midi.EndpointDescriptor {
	return midi.EndpointDescriptor{Kind: midi.EndpointByteStream, Identifier: path, Label: path}
}

type fixture struct {
	router *Router
	packet *fakeBackend
	stream *fakeBackend
	obs    *recordingObserver
	hook   *logtest.Hook
	log    *eventLog
}

func newFixture(opts Options) *fixture {
	events := &eventLog{}
	packet := &fakeBackend{kind: midi.EndpointPacket, log: events}
	stream := &fakeBackend{kind: midi.EndpointByteStream, log: events}

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	r := New(packet, stream, opts, logger)
	obs := &recordingObserver{}
	r.SetObserver(obs)

	return &fixture{router: r, packet: packet, stream: stream, obs: obs, hook: hook, log: events}
}

func TestListEndpointsPacketFirst(t *testing.T) {
	f := newFixture(Options{})
	f.stream.endpoints = []midi.EndpointDescriptor{serialEndpoint("/dev/ttyACM0")}
	f.packet.endpoints = []midi.EndpointDescriptor{packetEndpoint("IAC Bus"), packetEndpoint("LeslieLEDs")}

	got := f.router.ListEndpoints()
	require.Len(t, got, 3)
	assert.Equal(t, "IAC Bus", got[0].Identifier)
	assert.Equal(t, "LeslieLEDs", got[1].Identifier)
	assert.Equal(t, "/dev/ttyACM0", got[2].Identifier)
}

func TestListEndpointsSkipsFailingBackend(t *testing.T) {
	f := newFixture(Options{})
	f.packet.listErr = errors.New("driver gone")
	f.stream.endpoints = []midi.EndpointDescriptor{serialEndpoint("/dev/ttyACM0")}

	got := f.router.ListEndpoints()
	require.Len(t, got, 1)
	assert.Equal(t, midi.EndpointByteStream, got[0].Kind)
	assert.Equal(t, logrus.WarnLevel, f.hook.LastEntry().Level)
}

func TestConnectSwitchClosesPreviousFirst(t *testing.T) {
	f := newFixture(Options{})
	a := packetEndpoint("Port A")
	b := serialEndpoint("/dev/ttyB")

	require.NoError(t, f.router.Connect(a))
	f.router.Send(midi.ParameterChange(0, 1, 10))
	require.NoError(t, f.router.Connect(b))
	f.router.Send(midi.ParameterChange(0, 1, 20))

	assert.Equal(t, []string{"open Port A", "close Port A", "open /dev/ttyB"}, f.log.all())

	ta := f.packet.transports[0]
	tb := f.stream.transports[0]
	assert.False(t, ta.IsOpen())
	assert.Equal(t, [][]byte{{0xB0, 1, 10}}, ta.sent)
	assert.Equal(t, [][]byte{{0xB0, 1, 20}}, tb.sent)

	label, connected := f.router.Status()
	assert.Equal(t, "/dev/ttyB", label)
	assert.True(t, connected)
	assert.Equal(t, midi.EndpointByteStream, f.router.ActiveKind())
	assert.Equal(t, statusEvent{"/dev/ttyB", true}, f.obs.last())
}

func TestConnectFailureLeavesDisconnected(t *testing.T) {
	f := newFixture(Options{})
	require.NoError(t, f.router.Connect(packetEndpoint("Port A")))

	f.stream.failOpen = errors.New("permission denied")
	err := f.router.Connect(serialEndpoint("/dev/ttyS0"))
	require.Error(t, err)
	assert.ErrorIs(t, err, midi.ErrConnectionFailed)

	_, connected := f.router.Status()
	assert.False(t, connected)
	assert.Equal(t, midi.EndpointKind(""), f.router.ActiveKind())
	assert.False(t, f.packet.transports[0].IsOpen())
	assert.Equal(t, statusEvent{"Connection failed: /dev/ttyS0", false}, f.obs.last())

	// Nothing reaches the previous transport after the failed switch
	f.router.Send(midi.Trigger(0, 36, 127))
	assert.Empty(t, f.packet.transports[0].sent)
	assert.Equal(t, uint64(1), f.router.Stats().Dropped)
}

func TestConnectUnknownKind(t *testing.T) {
	f := newFixture(Options{})
	err := f.router.Connect(midi.EndpointDescriptor{Kind: "carrier-pigeon", Identifier: "x"})
	assert.ErrorIs(t, err, midi.ErrConnectionFailed)
}

func TestSendWithoutConnectionDrops(t *testing.T) {
	f := newFixture(Options{})

	assert.NotPanics(t, func() {
		f.router.Send(midi.ParameterChange(0, 1, 64))
	})

	entry := f.hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, "Dropped message", entry.Message)
	assert.Equal(t, Stats{Dropped: 1}, f.router.Stats())
	assert.Empty(t, f.obs.statuses)
}

func TestSendStampsConfiguredChannel(t *testing.T) {
	f := newFixture(Options{Channel: 4})
	require.NoError(t, f.router.Connect(packetEndpoint("Port A")))

	f.router.Send(midi.ParameterChange(9, 1, 500))
	f.router.Send(midi.Trigger(0, 48, 127))

	assert.Equal(t, [][]byte{{0xB4, 1, 127}, {0x94, 48, 127}}, f.packet.transports[0].sent)
	assert.Equal(t, uint64(2), f.router.Stats().Sent)
}

func TestForwardRawPreservesBytes(t *testing.T) {
	f := newFixture(Options{Channel: 0})
	require.NoError(t, f.router.Connect(serialEndpoint("/dev/ttyACM0")))

	f.router.ForwardRaw([]byte{0xB7, 1, 100})
	f.router.ForwardRaw([]byte{0xC0, 5})

	assert.Equal(t, [][]byte{{0xB7, 1, 100}, {0xC0, 5}}, f.stream.transports[0].sent)
}

func TestDisconnectIdempotent(t *testing.T) {
	f := newFixture(Options{})
	f.router.Disconnect()
	assert.Empty(t, f.obs.statuses)

	require.NoError(t, f.router.Connect(packetEndpoint("Port A")))
	f.router.Disconnect()
	f.router.Disconnect()

	assert.Equal(t, []string{"open Port A", "close Port A"}, f.log.all())
	assert.Equal(t, statusEvent{StatusDisconnected, false}, f.obs.last())

	label, connected := f.router.Status()
	assert.Equal(t, StatusDisconnected, label)
	assert.False(t, connected)
}

func TestReceiveFromActiveTransport(t *testing.T) {
	f := newFixture(Options{})
	_, ok := f.router.Receive()
	assert.False(t, ok)

	require.NoError(t, f.router.Connect(packetEndpoint("Port A")))
	f.packet.transports[0].inbox = [][]byte{{0xB0, 2, 3}}

	msg, ok := f.router.Receive()
	require.True(t, ok)
	assert.Equal(t, []byte{0xB0, 2, 3}, msg)
}

// parkedReadTransport blocks TryReceive until release is closed
type parkedReadTransport struct {
	entered chan struct{}
	release chan struct{}
	sent    chan []byte
}

func (t *parkedReadTransport) Open(string) error { return nil }
func (t *parkedReadTransport) Close() error { return nil }
func (t *parkedReadTransport) IsOpen() bool { return true }

func (t *parkedReadTransport) Send(data []byte) error {
	t.sent <- data
	return nil
}

func (t *parkedReadTransport) TryReceive() ([]byte, bool) {
	close(t.entered)
	<-t.release
	return nil, false
}

type parkedReadBackend struct {
	transport *parkedReadTransport
}

func (b *parkedReadBackend) Kind() midi.EndpointKind { return midi.EndpointByteStream }

func (b *parkedReadBackend) Endpoints() ([]midi.EndpointDescriptor, error) {
	return []midi.EndpointDescriptor{serialEndpoint("/dev/ttyACM0")}, nil
}

func (b *parkedReadBackend) NewTransport() midi.Transport { return b.transport }

func TestSendDoesNotWaitOnReceive(t *testing.T) {
	tr := &parkedReadTransport{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		sent:    make(chan []byte, 1),
	}
	logger, _ := logtest.NewNullLogger()
	r := New(nil, &parkedReadBackend{transport: tr}, Options{Channel: 2}, logger)
	require.NoError(t, r.Connect(serialEndpoint("/dev/ttyACM0")))

	received := make(chan struct{})
	go func() {
		defer close(received)
		r.Receive()
	}()
	<-tr.entered

	go r.Send(midi.ParameterChange(0, 4, 90))
	select {
	case data := <-tr.sent:
		assert.Equal(t, []byte{0xB2, 4, 90}, data)
	case <-time.After(time.Second):
		t.Fatal("Send blocked behind a pending Receive")
	}

	close(tr.release)
	<-received
	assert.Equal(t, uint64(1), r.Stats().Sent)
}

func TestRefreshAutoSelectsPrimaryMarker(t *testing.T) {
	f := newFixture(Options{PrimaryMarker: "DeviceX", SecondaryMarker: "Other"})
	f.packet.endpoints = []midi.EndpointDescriptor{packetEndpoint("IAC Bus"), packetEndpoint("USB DeviceX Port 3")}

	list := f.router.Refresh()
	assert.Len(t, list, 2)
	require.Len(t, f.packet.transports, 1)
	assert.Equal(t, "USB DeviceX Port 3", f.packet.transports[0].id)
	assert.Equal(t, statusEvent{"USB DeviceX Port 3", true}, f.obs.last())
}

func TestRefreshEmptyReportsNoDevices(t *testing.T) {
	f := newFixture(Options{PrimaryMarker: "LeslieLEDs"})
	require.NoError(t, f.router.Connect(packetEndpoint("Port A")))

	f.router.Refresh()

	_, connected := f.router.Status()
	assert.False(t, connected)
	assert.Equal(t, statusEvent{StatusNoDevices, false}, f.obs.last())
	assert.Equal(t, []string{"open Port A", "close Port A"}, f.log.all())
}

func TestMirrorParameterWithoutObserver(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	r := New(nil, nil, Options{}, logger)
	assert.NotPanics(t, func() { r.MirrorParameter(1, 2) })
	assert.Empty(t, r.ListEndpoints())
}

func TestConcurrentSendAndSwitch(t *testing.T) {
	f := newFixture(Options{})
	require.NoError(t, f.router.Connect(packetEndpoint("Port A")))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			f.router.ForwardRaw([]byte{0xB0, 1, byte(i % 128)})
		}
	}()
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			require.NoError(t, f.router.Connect(serialEndpoint("/dev/ttyB")))
		} else {
			require.NoError(t, f.router.Connect(packetEndpoint("Port A")))
		}
	}
	wg.Wait()

	stats := f.router.Stats()
	assert.Equal(t, uint64(500), stats.Sent+stats.Dropped+stats.Failed)
	assert.Zero(t, stats.Failed)
}
