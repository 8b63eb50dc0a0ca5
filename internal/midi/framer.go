package midi

// Framer reassembles channel voice messages from a serial byte stream.
// Running status is honoured, real-time bytes are dropped and system common
// bytes reset the parser.
type Framer struct {
	buf      [3]byte
	index    int
	expected int
	running  uint8
}

// messageLength returns the full length of a channel voice message, or 0 for
// statuses the framer does not assemble
func messageLength(status uint8) int {
	switch status & 0xF0 {
	case 0x80, 0x90, 0xA0, 0xB0, 0xE0:
		return 3
	case 0xC0, 0xD0:
		return 2
	default:
		return 0
	}
}

// Feed consumes raw bytes and returns every message completed by them
func (f *Framer) Feed(data []byte) [][]byte {
	var out [][]byte
	for _, b := range data {
		if msg := f.push(b); msg != nil {
			out = append(out, msg)
		}
	}
	return out
}

func (f *Framer) push(b byte) []byte {
	if b&0x80 != 0 {
		switch {
		case b >= 0xF8:
			return nil
		case b >= 0xF0:
			f.index, f.expected, f.running = 0, 0, 0
			return nil
		}
		f.running = b
		f.buf[0] = b
		f.index = 1
		f.expected = messageLength(b)
		return nil
	}

	if f.expected == 0 {
		return nil
	}

	f.buf[f.index] = b
	f.index++
	if f.index < f.expected {
		return nil
	}

	msg := make([]byte, f.expected)
	copy(msg, f.buf[:f.expected])
	f.index = 1
	f.buf[0] = f.running
	return msg
}

// Reset drops any partially assembled message
func (f *Framer) Reset() {
	*f = Framer{}
}
