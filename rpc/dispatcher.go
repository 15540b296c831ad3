// File: rpc/dispatcher.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/momentics/workbench-gateway/session"
)

// ErrUnknownChannel is returned when Call/Listen names a channel that
// was never registered.
var ErrUnknownChannel = errors.New("rpc: unknown channel")

// Dispatcher is the IPC server multiplexer: a registry of named
// channels plus the per-token session contexts they are invoked under.
type Dispatcher struct {
	mu          sync.RWMutex
	channels    map[string]Channel
	sessions    map[string]SessionContext
	attachHooks []func(token string)
}

// NewDispatcher constructs an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		channels: make(map[string]Channel),
		sessions: make(map[string]SessionContext),
	}
}

// RegisterChannel installs ch under name, overwriting any previous
// registration.
func (d *Dispatcher) RegisterChannel(name string, ch Channel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels[name] = ch
}

// OnSessionAttached registers fn to run, with the session's token, every
// time HandleClientConnected attaches a fresh management session — the
// hook a channel uses to drop any per-token state it seeded before this
// connection existed (see EnvironmentChannel.InvalidateCache).
func (d *Dispatcher) OnSessionAttached(fn func(token string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attachHooks = append(d.attachHooks, fn)
}

// HandleClientConnected is the hook passed to broker.Broker.OnClientConnected:
// it records the session's context, runs every registered attach hook,
// and arranges the context's removal on disconnect.
func (d *Dispatcher) HandleClientConnected(sess *session.ManagementSession) {
	sc := NewSessionContext(sess.Token, sess.RemoteAuthority)
	d.mu.Lock()
	d.sessions[sess.Token] = sc
	hooks := append([]func(string){}, d.attachHooks...)
	d.mu.Unlock()
	for _, hook := range hooks {
		hook(sess.Token)
	}
	sess.OnClose.OnDisconnect(func() {
		d.mu.Lock()
		delete(d.sessions, sess.Token)
		d.mu.Unlock()
	})
	bindWireServer(d, sess)
}

func (d *Dispatcher) sessionContext(token string) (SessionContext, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	sc, ok := d.sessions[token]
	return sc, ok
}

func (d *Dispatcher) channel(name string) (Channel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ch, ok := d.channels[name]
	return ch, ok
}

// Call dispatches a single request on channelName for the session
// identified by token.
func (d *Dispatcher) Call(ctx context.Context, token, channelName, command string, args json.RawMessage) (any, error) {
	ch, ok := d.channel(channelName)
	if !ok {
		return nil, ErrUnknownChannel
	}
	sc, ok := d.sessionContext(token)
	if !ok {
		sc = NewSessionContext(token, "")
	}
	return ch.Call(ctx, sc, command, args)
}

// Listen opens an event stream on channelName for the session
// identified by token.
func (d *Dispatcher) Listen(ctx context.Context, token, channelName, event string, args json.RawMessage) (<-chan any, context.CancelFunc, error) {
	ch, ok := d.channel(channelName)
	if !ok {
		return nil, nil, ErrUnknownChannel
	}
	sc, ok := d.sessionContext(token)
	if !ok {
		sc = NewSessionContext(token, "")
	}
	return ch.Listen(ctx, sc, event, args)
}
