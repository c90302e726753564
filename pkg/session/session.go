package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nothinglink/earctl/pkg/earerr"
	"github.com/nothinglink/earctl/pkg/models"
	"github.com/nothinglink/earctl/pkg/protocol"
	"github.com/nothinglink/earctl/pkg/transport"
)

// Session owns one device connection end to end: the transactor, and
// the model descriptor it learns as commands are run against the
// device.
type Session struct {
	id       uuid.UUID
	portPath string
	conn     *transport.Connection

	// connMu serializes every operation's send-then-match exchange
	// against this connection, so two concurrent callers on the same
	// session can never have their replies cross-matched.
	connMu sync.Mutex

	// descMu guards descriptor: reads (capability checks, Info) are
	// frequent, writes (model learning) are rare, so a reader-writer
	// lock rather than a plain mutex.
	descMu     sync.RWMutex
	descriptor ModelDescriptor
}

// base returns the descriptor's current capability base.
func (s *Session) base() models.Base {
	s.descMu.RLock()
	defer s.descMu.RUnlock()
	return s.descriptor.Base
}

// withDescriptor runs fn with exclusive access to the descriptor.
func (s *Session) withDescriptor(fn func(*ModelDescriptor)) {
	s.descMu.Lock()
	defer s.descMu.Unlock()
	fn(&s.descriptor)
}

// sessionTransact serializes one request/response exchange behind the
// session's connection lock, for the whole send-then-match lifetime.
func sessionTransact[T any](s *Session, command uint16, payload []byte, label string, matcher func(*protocol.Packet) (T, bool)) (T, error) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return transport.Transact(s.conn, command, payload, label, matcher)
}

// sendCommand serializes a fire-and-forget write behind the session's
// connection lock, consistent with the locking transact holds.
func (s *Session) sendCommand(command uint16, payload []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	_, err := s.conn.SendCommand(command, payload)
	return err
}

// New wraps an already-open Connection into a Session with a fresh
// identity and an unknown model descriptor.
func New(id uuid.UUID, portPath string, conn *transport.Connection) *Session {
	return &Session{
		id:         id,
		portPath:   portPath,
		conn:       conn,
		descriptor: DefaultModelDescriptor(),
	}
}

// ID returns the session's identity.
func (s *Session) ID() uuid.UUID { return s.id }

// Close releases the underlying connection.
func (s *Session) Close() error { return s.conn.Close() }

// SetTimeout overrides the per-request transaction timeout used by
// every subsequent operation on this session.
func (s *Session) SetTimeout(d time.Duration) { s.conn.SetTimeout(d) }

// Info reports the session's identity, port and learned model.
func (s *Session) Info() Info {
	info := Info{ID: s.id, PortPath: s.portPath}
	s.descMu.RLock()
	defer s.descMu.RUnlock()
	if s.descriptor.Base != models.Unknown || s.descriptor.ModelID != "" {
		summary := s.descriptor.Summary()
		info.Model = &summary
	}
	return info
}

// SetModelByID resolves id against the catalog and adopts its base,
// name and SKU.
func (s *Session) SetModelByID(id string) error {
	info, ok := models.FromID(id)
	if !ok {
		return fmt.Errorf("%w: model id %q", earerr.ErrUnknownModel, id)
	}
	s.withDescriptor(func(d *ModelDescriptor) {
		d.ModelID = info.ID
		d.Name = info.Name
		d.Base = info.Base
		d.SKU = ""
	})
	return nil
}

// SetModelBase overrides the descriptor's capability base directly,
// without a catalog lookup.
func (s *Session) SetModelBase(base models.Base) {
	s.withDescriptor(func(d *ModelDescriptor) { d.Base = base })
}

// SetModelFromSKU resolves sku against the catalog and adopts its
// model.
func (s *Session) SetModelFromSKU(sku string) error {
	info, ok := models.FromSKU(sku)
	if !ok {
		return fmt.Errorf("%w: sku %q", earerr.ErrUnknownModel, sku)
	}
	s.withDescriptor(func(d *ModelDescriptor) {
		d.ModelID = info.ID
		d.Name = info.Name
		d.Base = info.Base
		d.SKU = sku
	})
	return nil
}

func (s *Session) requireSupport(label string, ok bool) error {
	if !ok {
		return &earerr.UnsupportedError{Label: label}
	}
	return nil
}

// InitDevice runs the best-effort warm-up sequence a freshly connected
// device is put through: battery, equalizer mode, in-ear detection,
// then low-latency state, with a short pause between each so the
// device's own command queue can drain. Failures are not fatal; this
// is a convenience sequence, not a correctness gate.
func (s *Session) InitDevice() {
	_, _ = s.ReadBattery()
	time.Sleep(100 * time.Millisecond)
	_, _ = s.ReadEQ()
	time.Sleep(100 * time.Millisecond)
	_, _ = s.ReadInEar()
	time.Sleep(100 * time.Millisecond)
	_, _ = s.ReadLatency()
}

// DetectSerial reads the device's serial number, derives its SKU, and
// resolves the model, updating the session descriptor atomically.
func (s *Session) DetectSerial() (SerialIdentity, error) {
	payload, err := sessionTransact(s, protocol.RequestSerial, nil, "detect serial",
		func(p *protocol.Packet) ([]byte, bool) {
			return p.Payload, p.Command == protocol.RespSerial
		})
	if err != nil {
		return SerialIdentity{}, err
	}

	serial, ok := parseSerialNumber(payload)
	if !ok {
		return SerialIdentity{}, nil
	}

	identity := SerialIdentity{SerialNumber: serial}
	sku, ok := models.DeriveSKUFromSerial(serial)
	if !ok {
		s.withDescriptor(func(d *ModelDescriptor) { d.SerialNumber = serial })
		return identity, nil
	}
	identity.SKU = sku

	info, hasModel := models.FromSKU(sku)
	if hasModel {
		identity.ModelID = info.ID
	}
	s.withDescriptor(func(d *ModelDescriptor) {
		if hasModel {
			d.ModelID = info.ID
			d.Name = info.Name
			d.Base = info.Base
		}
		d.SKU = sku
		d.SerialNumber = serial
	})
	return identity, nil
}

// ReadBattery reads the case/left/right charge levels.
func (s *Session) ReadBattery() (BatteryStatus, error) {
	payload, err := sessionTransact(s, protocol.RequestBattery, nil, "read battery",
		func(p *protocol.Packet) ([]byte, bool) {
			return p.Payload, p.Command == protocol.RespBatteryPrimary || p.Command == protocol.RespBatterySecondary
		})
	if err != nil {
		return BatteryStatus{}, err
	}
	return parseBatteryPayload(payload), nil
}

// ReadANC reads the active noise-control mode. Unsupported on bases
// that do not carry an ANC transducer pairing (B157).
func (s *Session) ReadANC() (AncLevel, error) {
	if err := s.requireSupport("anc", s.base().SupportsANC()); err != nil {
		return 0, err
	}
	payload, err := sessionTransact(s, protocol.RequestANC, nil, "read anc",
		func(p *protocol.Packet) ([]byte, bool) {
			return p.Payload, p.Command == protocol.RespANCPrimary || p.Command == protocol.RespANCSecondary
		})
	if err != nil {
		return 0, err
	}
	if len(payload) < 2 {
		return 0, fmt.Errorf("%w: short anc payload", earerr.ErrInvalidPacket)
	}
	level, ok := AncLevelFromDevice(payload[1])
	if !ok {
		return 0, fmt.Errorf("%w: unrecognized anc code 0x%02x", earerr.ErrInvalidPacket, payload[1])
	}
	return level, nil
}

// SetANC sets the active noise-control mode.
func (s *Session) SetANC(level AncLevel) error {
	if err := s.requireSupport("ANC write", s.base().SupportsANC()); err != nil {
		return err
	}
	return s.sendCommand(protocol.CmdSetANC, []byte{0x01, level.ToDevice(), 0x00})
}

// ReadEQ reads the active equalizer preset.
func (s *Session) ReadEQ() (EqMode, error) {
	payload, err := sessionTransact(s, protocol.RequestEQ, nil, "read eq",
		func(p *protocol.Packet) ([]byte, bool) {
			return p.Payload, p.Command == protocol.RespEQPrimary || p.Command == protocol.RespEQListeningMode
		})
	if err != nil {
		return EqMode{}, err
	}
	if len(payload) == 0 {
		return EqMode{}, fmt.Errorf("%w: empty eq payload", earerr.ErrInvalidPacket)
	}
	return EqMode{Mode: payload[0]}, nil
}

// SetEQMode selects an equalizer preset by its device-defined index.
func (s *Session) SetEQMode(mode uint8) error {
	return s.sendCommand(protocol.CmdSetEQ, []byte{mode, 0x00})
}

// GetCustomEQ reads the user-adjustable 3-band equalizer. Unsupported
// on bases without a custom-EQ surface (B181).
func (s *Session) GetCustomEQ() (CustomEq, error) {
	if err := s.requireSupport("custom eq", s.base().SupportsCustomEQ()); err != nil {
		return CustomEq{}, err
	}
	payload, err := sessionTransact(s, protocol.RequestCustomEQ, nil, "read custom eq",
		func(p *protocol.Packet) ([]byte, bool) {
			return p.Payload, p.Command == protocol.RespCustomEQ
		})
	if err != nil {
		return CustomEq{}, err
	}
	eq, ok := decodeCustomEQ(payload)
	if !ok {
		return CustomEq{}, fmt.Errorf("%w: short custom eq payload", earerr.ErrInvalidPacket)
	}
	return eq, nil
}

// SetCustomEQ writes the user-adjustable 3-band equalizer.
func (s *Session) SetCustomEQ(eq CustomEq) error {
	if err := s.requireSupport("custom eq", s.base().SupportsCustomEQ()); err != nil {
		return err
	}
	return s.sendCommand(protocol.CmdSetCustomEQ, encodeCustomEQ(eq))
}

// ReadEnhancedBass reads the enhanced-bass toggle and level.
// Unsupported off the B171/B172/B168/B162 family.
func (s *Session) ReadEnhancedBass() (EnhancedBassState, error) {
	if err := s.requireSupport("enhanced bass", s.base().SupportsEnhancedBass()); err != nil {
		return EnhancedBassState{}, err
	}
	payload, err := sessionTransact(s, protocol.RequestEnhancedBass, nil, "read enhanced bass",
		func(p *protocol.Packet) ([]byte, bool) {
			return p.Payload, p.Command == protocol.RespEnhancedBass
		})
	if err != nil {
		return EnhancedBassState{}, err
	}
	if len(payload) < 2 {
		return EnhancedBassState{}, fmt.Errorf("%w: short enhanced bass payload", earerr.ErrInvalidPacket)
	}
	return EnhancedBassState{Enabled: payload[0] > 0, Level: payload[1] / 2}, nil
}

// SetEnhancedBass writes the enhanced-bass toggle and level. level is
// doubled for the wire with a saturating multiply (clamped at 255, not
// wrapped) since the device field is a single byte.
func (s *Session) SetEnhancedBass(enabled bool, level uint8) error {
	if err := s.requireSupport("enhanced bass", s.base().SupportsEnhancedBass()); err != nil {
		return err
	}
	doubled := uint16(level) * 2
	if doubled > 255 {
		doubled = 255
	}
	enabledByte := byte(0)
	if enabled {
		enabledByte = 1
	}
	return s.sendCommand(protocol.CmdSetEnhancedBass, []byte{enabledByte, byte(doubled)})
}

// GetPersonalizedANC reads the personalized-ANC toggle. Unsupported
// off B155.
func (s *Session) GetPersonalizedANC() (PersonalizedAncState, error) {
	if err := s.requireSupport("personalized anc", s.base().SupportsPersonalizedANC()); err != nil {
		return PersonalizedAncState{}, err
	}
	payload, err := sessionTransact(s, protocol.RequestPersonalizedANC, nil, "read personalized anc",
		func(p *protocol.Packet) ([]byte, bool) {
			return p.Payload, p.Command == protocol.RespPersonalizedANC
		})
	if err != nil {
		return PersonalizedAncState{}, err
	}
	if len(payload) == 0 {
		return PersonalizedAncState{}, fmt.Errorf("%w: empty personalized anc payload", earerr.ErrInvalidPacket)
	}
	return PersonalizedAncState{Enabled: payload[0] == 1}, nil
}

// SetPersonalizedANC writes the personalized-ANC toggle.
func (s *Session) SetPersonalizedANC(enabled bool) error {
	if err := s.requireSupport("personalized anc", s.base().SupportsPersonalizedANC()); err != nil {
		return err
	}
	enabledByte := byte(0)
	if enabled {
		enabledByte = 1
	}
	return s.sendCommand(protocol.CmdSetPersonalizedANC, []byte{enabledByte})
}

// ReadInEar reads the in-ear detection toggle. Unsupported on B174.
func (s *Session) ReadInEar() (InEarState, error) {
	if err := s.requireSupport("in-ear detection", s.base().SupportsInEarDetection()); err != nil {
		return InEarState{}, err
	}
	payload, err := sessionTransact(s, protocol.RequestInEarStatus, nil, "read in-ear",
		func(p *protocol.Packet) ([]byte, bool) {
			return p.Payload, p.Command == protocol.RespInEar
		})
	if err != nil {
		return InEarState{}, err
	}
	if len(payload) < 3 {
		return InEarState{}, fmt.Errorf("%w: short in-ear payload", earerr.ErrInvalidPacket)
	}
	return InEarState{DetectionEnabled: payload[2] == 1}, nil
}

// SetInEarDetection writes the in-ear detection toggle.
func (s *Session) SetInEarDetection(enabled bool) error {
	if err := s.requireSupport("in-ear detection", s.base().SupportsInEarDetection()); err != nil {
		return err
	}
	enabledByte := byte(0)
	if enabled {
		enabledByte = 1
	}
	return s.sendCommand(protocol.CmdSetInEar, []byte{0x01, 0x01, enabledByte})
}

// ReadLatency reads the low-latency mode toggle. Available on every
// base.
func (s *Session) ReadLatency() (LatencyState, error) {
	payload, err := sessionTransact(s, protocol.RequestLatencyStatus, nil, "read latency",
		func(p *protocol.Packet) ([]byte, bool) {
			return p.Payload, p.Command == protocol.RespLatency
		})
	if err != nil {
		return LatencyState{}, err
	}
	if len(payload) == 0 {
		return LatencyState{}, fmt.Errorf("%w: empty latency payload", earerr.ErrInvalidPacket)
	}
	return LatencyState{LowLatencyEnabled: payload[0] == 1}, nil
}

// SetLatency writes the low-latency mode toggle.
func (s *Session) SetLatency(enabled bool) error {
	payload := []byte{2, 0}
	if enabled {
		payload = []byte{1, 0}
	}
	return s.sendCommand(protocol.CmdSetLatency, payload)
}

// ReadFirmware reads and trims the device's firmware version string.
func (s *Session) ReadFirmware() (FirmwareInfo, error) {
	payload, err := sessionTransact(s, protocol.RequestFirmware, nil, "read firmware",
		func(p *protocol.Packet) ([]byte, bool) {
			return p.Payload, p.Command == protocol.RespFirmware
		})
	if err != nil {
		return FirmwareInfo{}, err
	}
	version := strings.Trim(string(payload), "\x00")
	return FirmwareInfo{Version: strings.TrimSpace(version)}, nil
}

// LaunchEarFitTest kicks off an ear-fit measurement cycle on the
// device.
func (s *Session) LaunchEarFitTest() error {
	return s.sendCommand(protocol.CmdStartEarFitTest, []byte{0x01})
}

// ReadEarFitResult reads the result of a previously launched ear-fit
// test.
func (s *Session) ReadEarFitResult() (EarFitResult, error) {
	payload, err := sessionTransact(s, protocol.CmdStartEarFitTest, []byte{0x00}, "read ear fit result",
		func(p *protocol.Packet) ([]byte, bool) {
			return p.Payload, p.Command == protocol.RespEarFitResult
		})
	if err != nil {
		return EarFitResult{}, err
	}
	if len(payload) < 2 {
		return EarFitResult{}, fmt.Errorf("%w: short ear fit payload", earerr.ErrInvalidPacket)
	}
	return EarFitResult{Left: payload[0], Right: payload[1]}, nil
}

// ReadGestures reads every programmable gesture binding.
func (s *Session) ReadGestures() ([]GestureSlot, error) {
	payload, err := sessionTransact(s, protocol.RequestGestures, nil, "read gestures",
		func(p *protocol.Packet) ([]byte, bool) {
			return p.Payload, p.Command == protocol.RespGestures
		})
	if err != nil {
		return nil, err
	}
	return parseGestures(payload), nil
}

// SetGesture writes a single programmable gesture binding.
func (s *Session) SetGesture(slot GestureSlot) error {
	return s.sendCommand(protocol.CmdSetGesture, []byte{0x01, slot.Device, slot.Common, slot.GestureType, slot.Action})
}

// ReadLEDCaseColors reads the case's LED pixel table. Unsupported off
// B181.
func (s *Session) ReadLEDCaseColors() ([]LedColor, error) {
	if err := s.requireSupport("case led", s.base().SupportsCaseLED()); err != nil {
		return nil, err
	}
	payload, err := sessionTransact(s, protocol.RequestLEDCaseColors, nil, "read led case colors",
		func(p *protocol.Packet) ([]byte, bool) {
			return p.Payload, p.Command == protocol.RespLEDCaseColors
		})
	if err != nil {
		return nil, err
	}
	return parseLEDColors(payload), nil
}

// SetLEDCaseColors writes the case's LED pixel table.
func (s *Session) SetLEDCaseColors(colors []LedColor) error {
	if err := s.requireSupport("case led", s.base().SupportsCaseLED()); err != nil {
		return err
	}
	payload := []byte{byte(len(colors))}
	for index, c := range colors {
		payload = append(payload, byte(index+1), c[0], c[1], c[2])
	}
	return s.sendCommand(protocol.CmdSetLEDCaseColors, payload)
}

// RingBuds triggers the find-my-buds chime. B181 takes a single toggle
// byte; every other base also needs a device selector byte.
func (s *Session) RingBuds(enable bool, side EarSide) error {
	enabledByte := byte(0)
	if enable {
		enabledByte = 1
	}
	if s.base() == models.B181 {
		return s.sendCommand(protocol.CmdRing, []byte{enabledByte})
	}
	device := byte(0x03)
	if side == SideLeft {
		device = 0x02
	}
	return s.sendCommand(protocol.CmdRing, []byte{device, enabledByte})
}
