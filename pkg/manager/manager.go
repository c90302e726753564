// Package manager owns the single exclusive device session a process
// may hold at a time.
package manager

import (
	"sync"

	"github.com/google/uuid"
	"github.com/nothinglink/earctl/pkg/earerr"
	"github.com/nothinglink/earctl/pkg/rfcomm"
	"github.com/nothinglink/earctl/pkg/session"
	"github.com/nothinglink/earctl/pkg/transport"
)

// Manager holds at most one active session. A second Connect before
// Disconnect fails rather than silently replacing the first session,
// matching the one-device-at-a-time nature of the RFCOMM link.
type Manager struct {
	mu      sync.RWMutex
	current *session.Session
}

// New returns an empty manager.
func New() *Manager {
	return &Manager{}
}

// Connect opens devicePath for addr and starts a new session. It
// fails with ErrAlreadyConnected if a session is already active.
func (m *Manager) Connect(devicePath string, addr rfcomm.Address) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return nil, earerr.ErrAlreadyConnected
	}

	conn, err := transport.Open(devicePath, addr)
	if err != nil {
		return nil, err
	}

	s := session.New(uuid.New(), conn.PortPath(), conn)
	m.current = s
	return s, nil
}

// Session returns the active session, or ErrNoSession if none.
func (m *Manager) Session() (*session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return nil, earerr.ErrNoSession
	}
	return m.current, nil
}

// Disconnect tears down the active session, if any.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return earerr.ErrNoSession
	}
	err := m.current.Close()
	m.current = nil
	return err
}
