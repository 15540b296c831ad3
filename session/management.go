// File: session/management.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package session

import (
	"sync"

	"github.com/momentics/workbench-gateway/api"
	"github.com/momentics/workbench-gateway/wsproto"
)

// ManagementSession is the control/RPC side of one logical client: the
// channel-dispatch traffic rides on its protocol for the session's
// entire lifetime (across any number of reconnects).
type ManagementSession struct {
	Token           string
	Protocol        *wsproto.Protocol
	RemoteAuthority string
	OnClose         *DisconnectNotifier

	mu       sync.Mutex
	disposed bool
	status   api.SessionStatus
}

// NewManagementSession wraps protocol under token.
func NewManagementSession(token string, protocol *wsproto.Protocol) *ManagementSession {
	return &ManagementSession{
		Token:    token,
		Protocol: protocol,
		OnClose:  &DisconnectNotifier{},
		status:   api.SessionActive,
	}
}

// Status reports the session's current lifecycle state, for debug/metrics
// reporting.
func (s *ManagementSession) Status() api.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Disposed reports whether Dispose has already run.
func (s *ManagementSession) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Dispose sends a disconnect control, closes the socket, and fires the
// session's disconnect notifier exactly once. Safe to call more than
// once; only the first call has effect.
func (s *ManagementSession) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.status = api.SessionClosing
	s.mu.Unlock()

	_ = s.Protocol.SendDisconnect()

	s.mu.Lock()
	s.status = api.SessionClosed
	s.mu.Unlock()

	s.OnClose.Fire()
}
