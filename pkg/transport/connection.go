// Package transport implements the framed request/response transactor
// on top of a byte channel: operation-id assignment, the read
// accumulator, and timeout-bounded matching.
package transport

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/nothinglink/earctl/pkg/earerr"
	"github.com/nothinglink/earctl/pkg/protocol"
	"github.com/nothinglink/earctl/pkg/rfcomm"
)

const (
	readChunkSize  = 512
	defaultTimeout = 2000 * time.Millisecond
)

// Connection is a framed transport over a Channel. It owns a read half,
// a write half, a read-accumulator buffer, and an operation-id counter,
// each independently lockable so that writers never block readers.
type Connection struct {
	portPath string
	channel  rfcomm.Channel

	readMu   sync.Mutex
	readHalf io.Reader

	writeMu   sync.Mutex
	writeHalf io.Writer

	accMu sync.Mutex
	acc   []byte

	opMu sync.Mutex
	opID uint8

	timeout time.Duration
}

// Open establishes the byte channel for addr at the bound device path
// and initializes a Connection: operation counter at 1, an empty
// accumulator, and the default 2 second timeout.
func Open(devicePath string, addr rfcomm.Address) (*Connection, error) {
	channel, err := rfcomm.Open(devicePath, addr)
	if err != nil {
		return nil, err
	}
	return &Connection{
		portPath:  addr.String(),
		channel:   channel,
		readHalf:  channel.ReadHalf(),
		writeHalf: channel.WriteHalf(),
		acc:       make([]byte, 0, readChunkSize),
		opID:      1,
		timeout:   defaultTimeout,
	}, nil
}

// NewConnection wraps an already-open Channel. Open is the normal
// entry point in production; this constructor exists so callers (and
// tests) that already hold a Channel, perhaps a fake one, can build a
// Connection without going through device-path resolution.
func NewConnection(channel rfcomm.Channel, portPath string) *Connection {
	return &Connection{
		portPath:  portPath,
		channel:   channel,
		readHalf:  channel.ReadHalf(),
		writeHalf: channel.WriteHalf(),
		acc:       make([]byte, 0, readChunkSize),
		opID:      1,
		timeout:   defaultTimeout,
	}
}

// PortPath returns the display address string this connection was
// opened against.
func (c *Connection) PortPath() string { return c.portPath }

// SetTimeout overrides the per-request timeout.
func (c *Connection) SetTimeout(timeout time.Duration) { c.timeout = timeout }

// Close releases the underlying channel.
func (c *Connection) Close() error { return c.channel.Close() }

func (c *Connection) nextOperationID() uint8 {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	id := c.opID
	if c.opID >= 250 {
		c.opID = 1
	} else {
		c.opID++
	}
	return id
}

// SendCommand encodes and writes a frame, assigning it the next
// operation id in sequence. It does not wait for a reply.
func (c *Connection) SendCommand(command uint16, payload []byte) (uint8, error) {
	operation := c.nextOperationID()
	packet := protocol.Encode(command, operation, payload)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.writeHalf.Write(packet); err != nil {
		return 0, fmt.Errorf("rfcomm write failed: %w", err)
	}
	return operation, nil
}

// Transact sends command/payload, then reads packets until matcher
// accepts one or the deadline (computed after the write completes)
// elapses. Packets the matcher rejects are discarded; the operation id
// is not used for correlation, matcher is authoritative.
func Transact[T any](c *Connection, command uint16, payload []byte, label string, matcher func(*protocol.Packet) (T, bool)) (T, error) {
	var zero T
	if _, err := c.SendCommand(command, payload); err != nil {
		return zero, err
	}
	deadline := time.Now().Add(c.timeout)
	for {
		packet, err := c.readPacket(deadline)
		if err != nil {
			var timeoutErr *earerr.TimeoutError
			if errors.As(err, &timeoutErr) {
				return zero, &earerr.TimeoutError{Label: label}
			}
			return zero, err
		}
		if value, ok := matcher(packet); ok {
			return value, nil
		}
		if !time.Now().Before(deadline) {
			return zero, &earerr.TimeoutError{Label: label}
		}
	}
}

// ReadPacket reads and parses a single frame using the connection's
// default timeout, independent of any in-flight Transact call.
func (c *Connection) ReadPacket() (*protocol.Packet, error) {
	return c.readPacket(time.Now().Add(c.timeout))
}

func (c *Connection) readPacket(deadline time.Time) (*protocol.Packet, error) {
	chunk := make([]byte, readChunkSize)
	for {
		c.accMu.Lock()
		packet, ok, err := protocol.TryParse(&c.acc)
		c.accMu.Unlock()
		if err != nil {
			return nil, err
		}
		if ok {
			return packet, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, &earerr.TimeoutError{Label: "read packet"}
		}

		n, err := c.readWithDeadline(chunk, remaining)
		if err != nil {
			return nil, err
		}

		c.accMu.Lock()
		c.acc = append(c.acc, chunk[:n]...)
		c.accMu.Unlock()
	}
}

// readWithDeadline performs a single read under the read lock, bounded
// by remaining via the channel's read timeout.
func (c *Connection) readWithDeadline(chunk []byte, remaining time.Duration) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if err := c.channel.SetReadTimeout(remaining); err != nil {
		return 0, fmt.Errorf("rfcomm: set read timeout: %w", err)
	}
	n, err := c.readHalf.Read(chunk)
	if err != nil {
		return 0, fmt.Errorf("rfcomm read failed: %w", err)
	}
	if n == 0 {
		// The underlying port's read timeout elapsed with no data.
		return 0, &earerr.TimeoutError{Label: "read packet"}
	}
	return n, nil
}
