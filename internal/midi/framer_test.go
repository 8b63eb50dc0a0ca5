package midi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFramerCompleteMessages(t *testing.T) {
	var f Framer
	got := f.Feed([]byte{0xB0, 1, 100, 0x90, 36, 127})
	assert.Equal(t, [][]byte{{0xB0, 1, 100}, {0x90, 36, 127}}, got)
}

func TestFramerSplitAcrossReads(t *testing.T) {
	var f Framer
	assert.Empty(t, f.Feed([]byte{0xB0}))
	assert.Empty(t, f.Feed([]byte{2}))
	assert.Equal(t, [][]byte{{0xB0, 2, 64}}, f.Feed([]byte{64}))
}

func TestFramerRunningStatus(t *testing.T) {
	var f Framer
	got := f.Feed([]byte{0xB1, 20, 1, 21, 2, 22, 3})
	assert.Equal(t, [][]byte{{0xB1, 20, 1}, {0xB1, 21, 2}, {0xB1, 22, 3}}, got)
}

func TestFramerIgnoresRealtimeAndSystem(t *testing.T) {
	var f Framer
	// Clock in the middle of a message does not break it
	got := f.Feed([]byte{0xB0, 0xF8, 5, 6})
	assert.Equal(t, [][]byte{{0xB0, 5, 6}}, got)

	// System common resets; following data bytes are orphaned
	got = f.Feed([]byte{0xB0, 1, 0xF0, 2, 3})
	assert.Empty(t, got)
}

func TestFramerTwoByteMessages(t *testing.T) {
	var f Framer
	got := f.Feed([]byte{0xC0, 5, 0xD2, 9})
	assert.Equal(t, [][]byte{{0xC0, 5}, {0xD2, 9}}, got)
}

func TestFramerDropsLeadingDataBytes(t *testing.T) {
	var f Framer
	assert.Empty(t, f.Feed([]byte{1, 2, 3}))
}
