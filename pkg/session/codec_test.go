package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSerialNumber(t *testing.T) {
	header := []byte{0, 0, 0, 0, 0, 0, 0}
	text := "junk,1,ignored\nserial,4,ABC123XYZ\n"
	payload := append(append([]byte(nil), header...), []byte(text)...)

	serial, ok := parseSerialNumber(payload)
	require.True(t, ok)
	assert.Equal(t, "ABC123XYZ", serial)
}

func TestParseSerialNumberTooShort(t *testing.T) {
	_, ok := parseSerialNumber([]byte{1, 2, 3})
	assert.False(t, ok)
}

func TestParseBatteryPayload(t *testing.T) {
	payload := []byte{3, 0x02, 0x32, 0x03, 0xAA, 0x04, 0x5F}
	status := parseBatteryPayload(payload)

	assert.True(t, status.Left.Connected)
	assert.Equal(t, uint8(0x32), status.Left.Percent)
	assert.False(t, status.Left.Charging)

	assert.True(t, status.Right.Connected)
	assert.Equal(t, uint8(0x2A), status.Right.Percent)
	assert.True(t, status.Right.Charging)

	assert.True(t, status.Case.Connected)
	assert.Equal(t, uint8(0x5F), status.Case.Percent)
	assert.False(t, status.Case.Charging)
}

func TestParseBatteryPayloadTruncated(t *testing.T) {
	status := parseBatteryPayload([]byte{2, 0x02, 0x32})
	assert.True(t, status.Left.Connected)
	assert.False(t, status.Right.Connected)
}

func TestCustomEQRoundTrip(t *testing.T) {
	eq := CustomEq{Bass: 3.5, Mid: -2.0, Treble: 0.0}
	encoded := encodeCustomEQ(eq)
	assert.Len(t, encoded, len(customEQTemplate))

	decoded, ok := decodeCustomEQ(encoded)
	require.True(t, ok)
	assert.InDelta(t, eq.Bass, decoded.Bass, 0.001)
	assert.InDelta(t, eq.Mid, decoded.Mid, 0.001)
	assert.InDelta(t, eq.Treble, decoded.Treble, 0.001)
}

func TestCustomEQRoundTripAllNegative(t *testing.T) {
	eq := CustomEq{Bass: -6.0, Mid: -6.0, Treble: -6.0}
	encoded := encodeCustomEQ(eq)
	decoded, ok := decodeCustomEQ(encoded)
	require.True(t, ok)
	assert.InDelta(t, eq.Bass, decoded.Bass, 0.001)
	assert.InDelta(t, eq.Mid, decoded.Mid, 0.001)
	assert.InDelta(t, eq.Treble, decoded.Treble, 0.001)
}

func TestDecodeCustomEQTooShort(t *testing.T) {
	_, ok := decodeCustomEQ(make([]byte, 10))
	assert.False(t, ok)
}

func TestParseGestures(t *testing.T) {
	payload := []byte{2, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	slots := parseGestures(payload)
	require.Len(t, slots, 2)
	assert.Equal(t, GestureSlot{Device: 0x01, Common: 0x02, GestureType: 0x03, Action: 0x04}, slots[0])
	assert.Equal(t, GestureSlot{Device: 0x05, Common: 0x06, GestureType: 0x07, Action: 0x08}, slots[1])
}

func TestParseLEDColors(t *testing.T) {
	payload := []byte{2, 0x00, 0x01, 0x10, 0x20, 0x00, 0x02, 0x30, 0x40, 0x00}
	pixels := parseLEDColors(payload)
	require.Len(t, pixels, 2)
	assert.Equal(t, LedColor{0x10, 0x20, 0x00}, pixels[0])
	assert.Equal(t, LedColor{0x30, 0x40, 0x00}, pixels[1])
}
