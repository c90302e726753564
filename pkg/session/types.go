// Package session implements the per-connection device session: model
// learning, capability gating, and the typed command surface built on
// top of the transactor.
package session

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nothinglink/earctl/pkg/models"
)

// BatteryReading is either a disconnected slot (its zero value) or a
// charge level with a charging flag.
type BatteryReading struct {
	Connected bool
	Percent   uint8
	Charging  bool
}

// BatteryStatus bundles the three battery-reporting slots on a case.
type BatteryStatus struct {
	Left  BatteryReading
	Right BatteryReading
	Case  BatteryReading
}

// EmptyBatteryStatus returns a status with every slot disconnected.
func EmptyBatteryStatus() BatteryStatus {
	return BatteryStatus{}
}

// EarSide identifies a ringable or addressable device slot.
type EarSide int

const (
	SideLeft EarSide = iota
	SideRight
	SideCase
)

func (s EarSide) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	case SideCase:
		return "case"
	default:
		return "unknown"
	}
}

// ParseEarSide parses the lowercase side names String emits.
func ParseEarSide(s string) (EarSide, error) {
	switch strings.ToLower(s) {
	case "left":
		return SideLeft, nil
	case "right":
		return SideRight, nil
	case "case":
		return SideCase, nil
	default:
		return 0, fmt.Errorf("unrecognized ear side %q", s)
	}
}

// AncLevel is the active noise-control mode.
type AncLevel int

const (
	AncOff AncLevel = iota
	AncTransparency
	AncNoiseCancellationLow
	AncNoiseCancellationHigh
	AncNoiseCancellationMid
	AncAdaptive
)

// AncLevelFromDevice decodes the single-byte wire code the device
// reports for its current ANC mode.
func AncLevelFromDevice(code byte) (AncLevel, bool) {
	switch code {
	case 0x05:
		return AncOff, true
	case 0x07:
		return AncTransparency, true
	case 0x03:
		return AncNoiseCancellationLow, true
	case 0x01:
		return AncNoiseCancellationHigh, true
	case 0x02:
		return AncNoiseCancellationMid, true
	case 0x04:
		return AncAdaptive, true
	default:
		return 0, false
	}
}

// ToDevice encodes the level back to the wire byte AncLevelFromDevice
// decodes.
func (a AncLevel) ToDevice() byte {
	switch a {
	case AncOff:
		return 0x05
	case AncTransparency:
		return 0x07
	case AncNoiseCancellationLow:
		return 0x03
	case AncNoiseCancellationHigh:
		return 0x01
	case AncNoiseCancellationMid:
		return 0x02
	case AncAdaptive:
		return 0x04
	default:
		return 0x05
	}
}

func (a AncLevel) String() string {
	switch a {
	case AncOff:
		return "off"
	case AncTransparency:
		return "transparency"
	case AncNoiseCancellationLow:
		return "nc-low"
	case AncNoiseCancellationHigh:
		return "nc-high"
	case AncNoiseCancellationMid:
		return "nc-mid"
	case AncAdaptive:
		return "adaptive"
	default:
		return "unknown"
	}
}

// ParseAncLevel accepts both the canonical String output and a small
// set of common aliases.
func ParseAncLevel(s string) (AncLevel, error) {
	switch strings.ToLower(s) {
	case "off":
		return AncOff, nil
	case "transparency", "transparent":
		return AncTransparency, nil
	case "nc-low", "low":
		return AncNoiseCancellationLow, nil
	case "nc-high", "high":
		return AncNoiseCancellationHigh, nil
	case "nc-mid", "mid":
		return AncNoiseCancellationMid, nil
	case "adaptive":
		return AncAdaptive, nil
	default:
		return 0, fmt.Errorf("unrecognized anc level %q", s)
	}
}

// EqMode is an equalizer preset index.
type EqMode struct {
	Mode uint8
}

// CustomEq is the user-adjustable 3-band equalizer.
type CustomEq struct {
	Bass   float32
	Mid    float32
	Treble float32
}

// EnhancedBassState reports the enhanced-bass toggle and its level.
type EnhancedBassState struct {
	Enabled bool
	Level   uint8
}

// PersonalizedAncState reports the personalized-ANC toggle.
type PersonalizedAncState struct {
	Enabled bool
}

// LatencyState reports the low-latency mode toggle.
type LatencyState struct {
	LowLatencyEnabled bool
}

// InEarState reports the in-ear detection toggle.
type InEarState struct {
	DetectionEnabled bool
}

// FirmwareInfo carries the decoded firmware version string.
type FirmwareInfo struct {
	Version string
}

// EarFitResult reports the per-ear fit test score.
type EarFitResult struct {
	Left  uint8
	Right uint8
}

// GestureSlot is a single programmable gesture binding.
type GestureSlot struct {
	Device      uint8
	Common      uint8
	GestureType uint8
	Action      uint8
}

// LedColor is a single case LED pixel's RGB value.
type LedColor [3]byte

// SerialIdentity is what DetectSerial learns from a device.
type SerialIdentity struct {
	SerialNumber string
	SKU          string
	ModelID      string
}

// ModelSummary is the externally visible view of a learned model.
type ModelSummary struct {
	ID           string
	Name         string
	SKU          string
	SerialNumber string
	Base         models.Base
}

// ModelDescriptor is the session's internal, mutable record of what it
// has learned about the connected device.
type ModelDescriptor struct {
	Base         models.Base
	ModelID      string
	Name         string
	SKU          string
	SerialNumber string
}

// DefaultModelDescriptor is the zero-knowledge descriptor a session
// starts with before any identification step runs.
func DefaultModelDescriptor() ModelDescriptor {
	return ModelDescriptor{Base: models.Unknown}
}

// Summary projects the descriptor to its external view.
func (d ModelDescriptor) Summary() ModelSummary {
	return ModelSummary{
		ID:           d.ModelID,
		Name:         d.Name,
		SKU:          d.SKU,
		SerialNumber: d.SerialNumber,
		Base:         d.Base,
	}
}

// Info bundles a session's identity and learned model for external
// reporting.
type Info struct {
	ID       uuid.UUID
	PortPath string
	Model    *ModelSummary
}
