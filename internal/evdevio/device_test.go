package evdevio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitSet(t *testing.T) {
	buf := []byte{0b00000100}
	require.True(t, bitSet(buf, 2))
	require.False(t, bitSet(buf, 1))
	require.False(t, bitSet(buf, 3))
}

func TestDecodeInputEvent(t *testing.T) {
	b := make([]byte, 24)
	binary.LittleEndian.PutUint16(b[16:], EvKey)
	binary.LittleEndian.PutUint16(b[18:], 0x1e)
	binary.LittleEndian.PutUint32(b[20:], 1)

	ev, err := decodeInputEvent(b)
	require.NoError(t, err)
	require.Equal(t, Event{Type: EvKey, Code: 0x1e, Value: 1}, ev)
}

func TestDecodeInputEventShort(t *testing.T) {
	_, err := decodeInputEvent([]byte{1, 2, 3})
	require.Error(t, err)
}
