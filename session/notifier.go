// File: session/notifier.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package session

import "sync"

// DisconnectNotifier fans out a session's disconnect event to whoever
// subscribed (the Channel Dispatcher, cleanup code registered by the
// broker). Firing is idempotent and safe from any goroutine.
type DisconnectNotifier struct {
	mu      sync.Mutex
	fired   bool
	waiters []func()
}

// OnDisconnect registers fn to run when Fire is called. If Fire has
// already run, fn runs immediately.
func (n *DisconnectNotifier) OnDisconnect(fn func()) {
	n.mu.Lock()
	if n.fired {
		n.mu.Unlock()
		fn()
		return
	}
	n.waiters = append(n.waiters, fn)
	n.mu.Unlock()
}

// Fire runs every registered listener exactly once.
func (n *DisconnectNotifier) Fire() {
	n.mu.Lock()
	if n.fired {
		n.mu.Unlock()
		return
	}
	n.fired = true
	waiters := n.waiters
	n.waiters = nil
	n.mu.Unlock()
	for _, fn := range waiters {
		fn()
	}
}
