package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEncodeAndParseRoundTrip(t *testing.T) {
	payload := []byte{0xAA, 0x55, 0x01}
	encoded := Encode(0xC007, 0x10, payload)
	assert.Equal(t, HeaderMagic[:], encoded[:len(HeaderMagic)])

	buf := append([]byte(nil), encoded...)
	packet, ok, err := TryParse(&buf)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, uint16(0xC007), packet.Command)
	assert.Equal(t, uint8(0x10), packet.OperationID)
	assert.Equal(t, payload, packet.Payload)
	assert.Empty(t, buf)
}

func TestTryParseHandlesFragmentedStream(t *testing.T) {
	packetA := Encode(0x1234, 1, []byte{0x01, 0x02})
	packetB := Encode(0xABCD, 2, []byte{0x03})

	partial := append([]byte(nil), packetA[:5]...)
	_, ok, err := TryParse(&partial)
	require.NoError(t, err)
	require.False(t, ok)

	stream := append([]byte(nil), packetA...)
	stream = append(stream, packetB...)

	first, ok, err := TryParse(&stream)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint16(0x1234), first.Command)
	assert.Equal(t, []byte{0x01, 0x02}, first.Payload)

	second, ok, err := TryParse(&stream)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint16(0xABCD), second.Command)
	assert.Equal(t, []byte{0x03}, second.Payload)
	assert.Empty(t, stream)
}

func TestTryParseResyncsPastLeadingGarbage(t *testing.T) {
	valid := Encode(0x1111, 7, []byte{0x42})
	stream := append([]byte{0xAA, 0x55, 0x99}, valid...)

	packet, ok, err := TryParse(&stream)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint16(0x1111), packet.Command)
	assert.Equal(t, uint8(7), packet.OperationID)
	assert.Equal(t, []byte{0x42}, packet.Payload)
	assert.Empty(t, stream)
}

func TestTryParseDiscardsBufferWithNoMagicByte(t *testing.T) {
	stream := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09}
	_, ok, err := TryParse(&stream)
	require.NoError(t, err)
	require.False(t, ok)
	assert.Empty(t, stream)
}

func TestTryParseReportsCRCMismatch(t *testing.T) {
	valid := Encode(0xC007, 1, []byte{0x01})
	valid[len(valid)-1] ^= 0xFF

	_, ok, err := TryParse(&valid)
	require.Error(t, err)
	require.False(t, ok)
}

func TestCRC16MatchesKnownVector(t *testing.T) {
	bytes := []byte{0x55, 0x60, 0x01, 0x34, 0x12, 0x02, 0x00, 0x01, 0xAA, 0xBB}
	assert.Equal(t, uint16(0xFA6A), crc16(bytes))
}

func TestEncodeBatteryRequestScenario(t *testing.T) {
	encoded := Encode(RequestBattery, 0x10, nil)
	assert.Equal(t, []byte{0x55, 0x60, 0x01, 0x07, 0xC0, 0x00, 0x00, 0x10}, encoded[:8])
	assert.Len(t, encoded, 10)
}

func TestPacketRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		command := rapid.Uint16().Draw(t, "command")
		operationID := uint8(rapid.IntRange(1, 250).Draw(t, "operationID"))
		payload := rapid.SliceOfN(rapid.Byte(), 0, 255).Draw(t, "payload")

		encoded := Encode(command, operationID, payload)
		buf := append([]byte(nil), encoded...)
		packet, ok, err := TryParse(&buf)

		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, command, packet.Command)
		assert.Equal(t, operationID, packet.OperationID)
		if len(payload) == 0 {
			assert.Empty(t, packet.Payload)
		} else {
			assert.Equal(t, payload, packet.Payload)
		}
		assert.Empty(t, buf)
	})
}
