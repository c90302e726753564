package session

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nothinglink/earctl/pkg/earerr"
	"github.com/nothinglink/earctl/pkg/models"
	"github.com/nothinglink/earctl/pkg/protocol"
	"github.com/nothinglink/earctl/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChannel is a minimal in-memory rfcomm.Channel for driving a
// Session's transactor without real hardware.
type fakeChannel struct {
	mu      sync.Mutex
	pending []byte
	written bytes.Buffer
}

func (f *fakeChannel) push(b []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, b...)
}

// lastWrite drains and returns everything written since the previous
// call, so sequential commands in a test can each be inspected in
// isolation.
func (f *fakeChannel) lastWrite() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]byte(nil), f.written.Bytes()...)
	f.written.Reset()
	return out
}

func (f *fakeChannel) ReadHalf() io.Reader             { return f }
func (f *fakeChannel) WriteHalf() io.Writer             { return &f.written }
func (f *fakeChannel) SetReadTimeout(d time.Duration) error { return nil }
func (f *fakeChannel) Close() error                     { return nil }

func (f *fakeChannel) Read(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return 0, nil
	}
	n := copy(b, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}

func newTestSession(t *testing.T, base models.Base) (*Session, *fakeChannel) {
	t.Helper()
	ch := &fakeChannel{}
	conn := transport.NewConnection(ch, "AA:BB:CC:DD:EE:FF:6")
	conn.SetTimeout(100 * time.Millisecond)
	s := New(uuid.New(), conn.PortPath(), conn)
	s.SetModelBase(base)
	return s, ch
}

func TestReadBatteryParsesReply(t *testing.T) {
	s, ch := newTestSession(t, models.B181)
	reply := protocol.Encode(protocol.RespBatteryPrimary, 1, []byte{3, 0x02, 0x32, 0x03, 0xAA, 0x04, 0x5F})
	ch.push(reply)

	status, err := s.ReadBattery()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x32), status.Left.Percent)
	assert.Equal(t, uint8(0x2A), status.Right.Percent)
	assert.True(t, status.Right.Charging)
}

func TestReadANCParsesReplySecondByte(t *testing.T) {
	s, ch := newTestSession(t, models.B181)
	ch.push(protocol.Encode(protocol.RespANCSecondary, 1, []byte{0xFF, 0x07}))

	level, err := s.ReadANC()
	require.NoError(t, err)
	assert.Equal(t, AncTransparency, level)
}

func TestReadInEarParsesReplyThirdByte(t *testing.T) {
	s, ch := newTestSession(t, models.B181)
	ch.push(protocol.Encode(protocol.RespInEar, 1, []byte{0xFF, 0xFF, 0x01}))

	state, err := s.ReadInEar()
	require.NoError(t, err)
	assert.True(t, state.DetectionEnabled)
}

func TestReadEnhancedBassHalvesLevel(t *testing.T) {
	s, ch := newTestSession(t, models.B162)
	ch.push(protocol.Encode(protocol.RespEnhancedBass, 1, []byte{0x01, 0x0A}))

	state, err := s.ReadEnhancedBass()
	require.NoError(t, err)
	assert.True(t, state.Enabled)
	assert.Equal(t, uint8(5), state.Level)
}

func TestSetANCUnsupportedOnB157(t *testing.T) {
	s, ch := newTestSession(t, models.B157)

	err := s.SetANC(AncOff)
	require.Error(t, err)
	var unsupported *earerr.UnsupportedError
	assert.True(t, errors.As(err, &unsupported))
	assert.Empty(t, ch.lastWrite(), "no command should reach the wire once gating rejects the call")
}

func TestSetANCWritesPayloadWhenSupported(t *testing.T) {
	s, ch := newTestSession(t, models.B181)

	err := s.SetANC(AncNoiseCancellationHigh)
	require.NoError(t, err)

	written := ch.lastWrite()
	require.True(t, len(written) > 0)
	packet, ok, err := protocol.TryParse(&written)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, protocol.CmdSetANC, packet.Command)
	assert.Equal(t, []byte{0x01, 0x01, 0x00}, packet.Payload)
}

func TestRingBudsB181SendsSingleByte(t *testing.T) {
	s, ch := newTestSession(t, models.B181)

	require.NoError(t, s.RingBuds(true, SideLeft))

	written := ch.lastWrite()
	packet, ok, err := protocol.TryParse(&written)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{0x01}, packet.Payload)
}

func TestRingBudsNonB181SendsDeviceSelector(t *testing.T) {
	s, ch := newTestSession(t, models.B162)

	require.NoError(t, s.RingBuds(true, SideLeft))
	written := ch.lastWrite()
	packet, ok, err := protocol.TryParse(&written)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{0x02, 0x01}, packet.Payload)

	require.NoError(t, s.RingBuds(false, SideRight))
	written = ch.lastWrite()
	packet, ok, err = protocol.TryParse(&written)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{0x03, 0x00}, packet.Payload)
}

func TestDetectSerialResolvesModel(t *testing.T) {
	s, ch := newTestSession(t, models.Unknown)

	header := []byte{0, 0, 0, 0, 0, 0, 0}
	text := "junk,1,ignored\nserial,4,MA000022AB\n"
	payload := append(append([]byte(nil), header...), []byte(text)...)
	ch.push(protocol.Encode(protocol.RespSerial, 1, payload))

	identity, err := s.DetectSerial()
	require.NoError(t, err)
	assert.Equal(t, "MA000022AB", identity.SerialNumber)
	assert.Equal(t, "14", identity.SKU)
	assert.Equal(t, "ear_stick", identity.ModelID)
	assert.Equal(t, models.B157, s.descriptor.Base)
}

func TestLEDCaseColorsGatedOffB181(t *testing.T) {
	s, _ := newTestSession(t, models.B162)
	_, err := s.ReadLEDCaseColors()
	require.Error(t, err)

	err = s.SetLEDCaseColors([]LedColor{{1, 2, 3}})
	require.Error(t, err)
}
