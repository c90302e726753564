// Package protocol implements the wire framing for the earbud RFCOMM
// link: an 8-byte header, a variable payload, and a trailing CRC-16.
package protocol

import (
	"encoding/binary"

	"github.com/nothinglink/earctl/pkg/earerr"
)

// HeaderMagic is the fixed 3-byte prefix every frame starts with.
var HeaderMagic = [3]byte{0x55, 0x60, 0x01}

const (
	headerLen = 8
	crcLen    = 2
)

// Request command codes.
const (
	RequestSerial          uint16 = 0xC006
	RequestBattery         uint16 = 0xC007
	RequestLEDCaseColors   uint16 = 0xC017
	RequestGestures        uint16 = 0xC018
	RequestANC             uint16 = 0xC01E
	RequestEQ              uint16 = 0xC01F
	RequestPersonalizedANC uint16 = 0xC020
	RequestInEarStatus     uint16 = 0xC00E
	RequestLatencyStatus   uint16 = 0xC041
	RequestFirmware        uint16 = 0xC042
	RequestCustomEQ        uint16 = 0xC044
	RequestAdvancedEQ      uint16 = 0xC04C
	RequestEnhancedBass    uint16 = 0xC04E
	RequestListeningMode   uint16 = 0xC050
)

// Outbound command codes.
const (
	CmdRing                 uint16 = 0xF002
	CmdSetGesture           uint16 = 0xF003
	CmdSetInEar             uint16 = 0xF004
	CmdSetLEDCaseColors     uint16 = 0xF00D
	CmdSetANC               uint16 = 0xF00F
	CmdSetEQ                uint16 = 0xF010
	CmdSetPersonalizedANC   uint16 = 0xF011
	CmdStartEarFitTest      uint16 = 0xF014
	CmdSetListeningMode     uint16 = 0xF01D
	CmdSetLatency           uint16 = 0xF040
	CmdSetCustomEQ          uint16 = 0xF041
	CmdSetAdvancedEQEnabled uint16 = 0xF04F
	CmdSetEnhancedBass      uint16 = 0xF051
)

// Reply command codes.
const (
	RespSerial           uint16 = 0x4006
	RespBatteryPrimary   uint16 = 0xE001
	RespBatterySecondary uint16 = 0x4007
	RespANCPrimary       uint16 = 0xE003
	RespANCSecondary     uint16 = 0x401E
	RespEQPrimary        uint16 = 0x401F
	RespEQListeningMode  uint16 = 0x4050
	RespFirmware         uint16 = 0x4042
	RespCustomEQ         uint16 = 0x4044
	RespAdvancedEQ       uint16 = 0x404C
	RespEnhancedBass     uint16 = 0x404E
	RespLEDCaseColors    uint16 = 0x4017
	RespGestures         uint16 = 0x4018
	RespPersonalizedANC  uint16 = 0x4020
	RespInEar            uint16 = 0x400E
	RespLatency          uint16 = 0x4041
	RespEarFitResult     uint16 = 0xE00D
)

// Packet is a decoded frame.
type Packet struct {
	Command     uint16
	OperationID uint8
	Payload     []byte
}

// Encode serializes a command, operation id and payload into a
// complete wire frame. The caller is responsible for keeping the
// payload at or below 255 bytes; longer payloads are not expressible
// in this framing.
func Encode(command uint16, operationID uint8, payload []byte) []byte {
	packet := make([]byte, 0, headerLen+len(payload)+crcLen)
	packet = append(packet, HeaderMagic[:]...)
	packet = binary.LittleEndian.AppendUint16(packet, command)
	packet = append(packet, byte(len(payload)), 0x00, operationID)
	packet = append(packet, payload...)
	crc := crc16(packet)
	packet = binary.LittleEndian.AppendUint16(packet, crc)
	return packet
}

// TryParse attempts to drain one framed packet from the front of buf.
// It returns (nil, false, nil) when more bytes are needed, and mutates
// buf in place: leading garbage and corrupt frames are always consumed
// even when no packet is returned.
func TryParse(buf *[]byte) (*Packet, bool, error) {
	for {
		b := *buf
		if len(b) < headerLen {
			return nil, false, nil
		}

		startIndex := -1
		for i, by := range b {
			if by == HeaderMagic[0] {
				startIndex = i
				break
			}
		}
		if startIndex == -1 {
			*buf = b[:0]
			return nil, false, nil
		}
		if startIndex > 0 {
			b = b[startIndex:]
			*buf = b
		}
		if len(b) < headerLen {
			return nil, false, nil
		}
		if b[1] != HeaderMagic[1] || b[2] != HeaderMagic[2] {
			b = b[1:]
			*buf = b
			continue
		}

		payloadLen := int(b[5])
		total := headerLen + payloadLen + crcLen
		if len(b) < total {
			return nil, false, nil
		}

		frame := b[:total]
		*buf = b[total:]

		crcExpected := binary.LittleEndian.Uint16(frame[total-2 : total])
		crcActual := crc16(frame[:total-crcLen])
		if crcActual != crcExpected {
			return nil, false, earerr.ErrCRCMismatch
		}

		command := binary.LittleEndian.Uint16(frame[3:5])
		operationID := frame[7]
		payload := make([]byte, payloadLen)
		copy(payload, frame[headerLen:headerLen+payloadLen])

		return &Packet{Command: command, OperationID: operationID, Payload: payload}, true, nil
	}
}

// crc16 computes the reflected CRC-16 (init 0xFFFF, poly 0xA001, no
// final XOR) used by the framing layer.
func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 == 1 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}
