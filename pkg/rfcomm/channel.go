// Package rfcomm provides the byte-channel abstraction the transport
// layer transacts over, backed by a real RFCOMM serial device.
package rfcomm

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// Address identifies an RFCOMM endpoint: a Bluetooth MAC and a channel
// number. Resolving this to a bound device path (e.g. by invoking the
// host Bluetooth stack's rfcomm helper) is out of scope for this
// package; Open expects the device node to already exist.
type Address struct {
	MAC     string
	Channel uint8
}

// String renders the dial target in "<mac>:<channel>" form, matching
// the display format other collaborators (logs, the session's
// PortPath) expect.
func (a Address) String() string {
	return fmt.Sprintf("%s:%d", a.MAC, a.Channel)
}

// Channel is a full-duplex reliable byte stream, splittable into
// independently lockable read and write halves. SetReadTimeout bounds
// the next Read on the read half, letting the transport cap a blocking
// read by the time remaining on a transaction's deadline.
type Channel interface {
	ReadHalf() io.Reader
	WriteHalf() io.Writer
	SetReadTimeout(d time.Duration) error
	Close() error
}

type devicePort struct {
	port serial.Port
}

// Open binds to the RFCOMM device node for addr. devicePath is the
// character device the host Bluetooth stack bound the RFCOMM channel
// to (conventionally /dev/rfcommN on Linux); it is a separate argument
// from addr because resolving addr to a device path is the external
// Bluetooth helper's job, not this package's.
func Open(devicePath string, addr Address) (Channel, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(devicePath, mode)
	if err != nil {
		return nil, fmt.Errorf("rfcomm: open %s for %s: %w", devicePath, addr, err)
	}
	return &devicePort{port: port}, nil
}

func (d *devicePort) ReadHalf() io.Reader  { return d.port }
func (d *devicePort) WriteHalf() io.Writer { return d.port }
func (d *devicePort) Close() error         { return d.port.Close() }

func (d *devicePort) SetReadTimeout(dur time.Duration) error {
	return d.port.SetReadTimeout(dur)
}
