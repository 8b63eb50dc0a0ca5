package midi

// MessageKind distinguishes the normalized control messages
type MessageKind uint8

const (
	KindParameterChange MessageKind = iota // Control Change (0xB0)
	KindTrigger                            // Note On (0x90)
)

func (k MessageKind) String() string {
	switch k {
	case KindParameterChange:
		return "parameter_change"
	case KindTrigger:
		return "trigger"
	default:
		return "unknown"
	}
}

// ControlMessage is a normalized outbound or inbound control event.
// Fields are ints so gesture values outside the 7-bit range can be carried
// until Encode clamps them.
type ControlMessage struct {
	Kind    MessageKind
	Channel int // 0-15
	ID      int // parameter id or trigger id (0-127)
	Value   int // value or strength (0-127)
}

// ParameterChange builds a control-change message
func ParameterChange(channel, parameterID, value int) ControlMessage {
	return ControlMessage{Kind: KindParameterChange, Channel: channel, ID: parameterID, Value: value}
}

// Trigger builds a note-on message
func Trigger(channel, triggerID, strength int) ControlMessage {
	return ControlMessage{Kind: KindTrigger, Channel: channel, ID: triggerID, Value: strength}
}

// EndpointKind identifies which transport backend serves an endpoint
type EndpointKind string

const (
	EndpointPacket     EndpointKind = "packet"      // MIDI port, one message per send
	EndpointByteStream EndpointKind = "byte_stream" // Serial line, raw bytes
)

// EndpointDescriptor describes one selectable output endpoint.
// Identity is Identifier, which is only stable within one enumeration.
type EndpointDescriptor struct {
	Kind        EndpointKind
	Identifier  string // port name or device path
	Label       string // shown to the user and matched by auto-select
	Description string // OS product string for serial devices, may be empty
}

// String returns the label shown in port selectors
func (d EndpointDescriptor) String() string {
	switch {
	case d.Kind == EndpointByteStream && d.Description != "":
		return d.Label + " (" + d.Description + ")"
	case d.Kind == EndpointByteStream:
		return d.Label + " (serial)"
	default:
		return d.Label
	}
}
