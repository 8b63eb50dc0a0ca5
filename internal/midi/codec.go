package midi

import (
	"gitlab.com/gomidi/midi/v2"
)

// Status nibbles of the two message kinds on the wire
const (
	StatusControlChange uint8 = 0xB0
	StatusNoteOn        uint8 = 0x90
)

// Clamp7 limits v to the 7-bit data range 0-127
func Clamp7(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return uint8(v)
}

func clampChannel(ch int) uint8 {
	if ch < 0 {
		return 0
	}
	if ch > 15 {
		return 15
	}
	return uint8(ch)
}

// Encode turns a control message into its 3-byte wire form.
// Id and value are clamped here and nowhere else.
func Encode(msg ControlMessage) []byte {
	channel := clampChannel(msg.Channel)
	id := Clamp7(msg.ID)
	value := Clamp7(msg.Value)

	switch msg.Kind {
	case KindTrigger:
		return []byte(midi.NoteOn(channel, id, value))
	default:
		return []byte(midi.ControlChange(channel, id, value))
	}
}

// Decode parses a raw packet. It reports false for anything that is not a
// complete control-change or note-on frame; raw values are kept as received.
func Decode(data []byte) (ControlMessage, bool) {
	if len(data) != 3 {
		return ControlMessage{}, false
	}

	channel := int(data[0] & 0x0F)
	switch data[0] & 0xF0 {
	case StatusControlChange:
		return ParameterChange(channel, int(data[1]), int(data[2])), true
	case StatusNoteOn:
		// Velocity 0 stays a trigger so wire values round-trip
		return Trigger(channel, int(data[1]), int(data[2])), true
	default:
		return ControlMessage{}, false
	}
}

// Describe renders raw bytes for log output
func Describe(data []byte) string {
	return midi.Message(data).String()
}
