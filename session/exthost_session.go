// File: session/exthost_session.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package session

import (
	"sync"

	"github.com/momentics/workbench-gateway/api"
	"github.com/momentics/workbench-gateway/wsproto"
)

// RemoteExtensionHostStartParams holds the worker start parameters
// taken from a connectionType request's args. The broker fills in the
// defaults (Language "en" when absent) while decoding those args.
type RemoteExtensionHostStartParams struct {
	Language     string
	DebugPort    int
	BreakOnEntry bool
}

// DefaultRemoteExtensionHostStartParams returns the baseline parameter
// set: Language "en", no debug port, no break on entry.
func DefaultRemoteExtensionHostStartParams() RemoteExtensionHostStartParams {
	return RemoteExtensionHostStartParams{Language: "en"}
}

// WorkerHandle is the narrow surface an ExtensionHostSession needs from
// its supervisor, kept as an interface so this package never imports
// the supervisor's process-management machinery.
type WorkerHandle interface {
	PID() int
	Reconnect(newProtocol *wsproto.Protocol, debugPort int) error
	Dispose()
}

// ExtensionHostSession is one logical extension-host connection: a
// worker subprocess that outlives any single socket.
type ExtensionHostSession struct {
	Token    string
	Protocol *wsproto.Protocol
	Worker   WorkerHandle
	Params   RemoteExtensionHostStartParams
	OnClose  *DisconnectNotifier

	mu       sync.Mutex
	disposed bool
	status   api.SessionStatus
}

// NewExtensionHostSession creates a session with no worker attached
// yet; the broker attaches one after a successful fork.
func NewExtensionHostSession(token string, protocol *wsproto.Protocol, params RemoteExtensionHostStartParams) *ExtensionHostSession {
	return &ExtensionHostSession{
		Token:    token,
		Protocol: protocol,
		Params:   params,
		OnClose:  &DisconnectNotifier{},
		status:   api.SessionConnecting,
	}
}

// Status reports the session's current lifecycle state, for debug/metrics
// reporting. It moves to SessionActive once a worker has been attached.
func (s *ExtensionHostSession) Status() api.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return s.status
	}
	if s.Worker != nil {
		return api.SessionActive
	}
	return s.status
}

// Disposed reports whether Dispose has already run.
func (s *ExtensionHostSession) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Dispose kills the worker (if still alive) and fires the session's
// disconnect notifier exactly once.
func (s *ExtensionHostSession) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.status = api.SessionClosed
	worker := s.Worker
	s.mu.Unlock()

	if worker != nil {
		worker.Dispose()
	}
	s.OnClose.Fire()
}
