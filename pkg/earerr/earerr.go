// Package earerr defines the error taxonomy shared by the transport,
// session and manager layers so callers can branch on failure kind
// instead of matching error strings.
package earerr

import "errors"

var (
	ErrNotConnected     = errors.New("serial port is not connected")
	ErrAlreadyConnected = errors.New("serial session already active")
	ErrNoSession        = errors.New("no active session")
	ErrUnknownModel     = errors.New("model metadata is missing")
	ErrInvalidPacket    = errors.New("failed to decode packet header")
	ErrCRCMismatch      = errors.New("incorrect packet checksum")
)

// UnsupportedError reports that an operation is not supported by the
// model family currently attached to a session.
type UnsupportedError struct {
	Label string
}

func (e *UnsupportedError) Error() string {
	return "operation '" + e.Label + "' is not supported by the connected model"
}

// TimeoutError reports that a transaction's deadline elapsed before a
// matching reply arrived.
type TimeoutError struct {
	Label string
}

func (e *TimeoutError) Error() string {
	return "timed out while waiting for " + e.Label
}

// DetectionError reports a failure while resolving device identity.
type DetectionError struct {
	Msg string
}

func (e *DetectionError) Error() string {
	return "failed to detect device identity: " + e.Msg
}

// CommandFailedError reports an external-collaborator command that
// exited with diagnostic output (shelling out is out of scope for this
// engine, but the taxonomy reserves the slot for callers that wrap one).
type CommandFailedError struct {
	Command string
	Output  string
}

func (e *CommandFailedError) Error() string {
	return "command `" + e.Command + "` failed: " + e.Output
}
