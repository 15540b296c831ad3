// File: broker/broker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package broker

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/workbench-gateway/exthost"
	"github.com/momentics/workbench-gateway/rpc"
	"github.com/momentics/workbench-gateway/session"
	"github.com/momentics/workbench-gateway/wsframe"
	"github.com/momentics/workbench-gateway/wsproto"
)

// Broker accepts upgraded sockets and routes them to the management or
// extension-host table, forking workers as needed.
type Broker struct {
	cfg Config

	mgmt *session.Registry[*session.ManagementSession]
	ext  *session.Registry[*session.ExtensionHostSession]

	onClientConnected       func(*session.ManagementSession)
	onExtensionHostStarted  func(*session.ExtensionHostSession)
}

// NewBroker builds a Broker from DefaultConfig() plus opts.
func NewBroker(opts ...Option) *Broker {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Broker{
		cfg:  cfg,
		mgmt: session.NewRegistry[*session.ManagementSession](),
		ext:  session.NewRegistry[*session.ExtensionHostSession](),
	}
}

// OnClientConnected installs the hook invoked once a fresh management
// session is registered, carrying it (and its disconnect notifier) to
// the Channel Dispatcher.
func (b *Broker) OnClientConnected(fn func(*session.ManagementSession)) {
	b.onClientConnected = fn
}

// OnExtensionHostStarted installs the hook invoked once a fresh
// extension-host session has successfully forked its worker, useful
// for metrics/debug instrumentation that should not sit on the
// request-handling hot path.
func (b *Broker) OnExtensionHostStarted(fn func(*session.ExtensionHostSession)) {
	b.onExtensionHostStarted = fn
}

// ManagementSessionCount reports the number of resident management
// sessions, for metrics/debug instrumentation.
func (b *Broker) ManagementSessionCount() int { return b.mgmt.Len() }

// ExtensionHostSessionCount reports the number of resident
// extension-host sessions, for metrics/debug instrumentation.
func (b *Broker) ExtensionHostSessionCount() int { return b.ext.Len() }

// prefix8 returns the first 8 characters of token, or token itself when
// shorter, for log decoration.
func prefix8(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}

// hijackedConn makes reads go through the hijacked *bufio.ReadWriter so
// any bytes buffered by net/http before Hijack are not lost.
type hijackedConn struct {
	net.Conn
	r *bufio.Reader
}

func (h *hijackedConn) Read(p []byte) (int, error) { return h.r.Read(p) }

// ServeHTTP implements http.Handler so Broker can be mounted directly
// on a mux for the WebSocket upgrade path.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	result, err := wsframe.Upgrade(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	tokens, hasToken := q["reconnectionToken"]
	if !hasToken || len(tokens) != 1 || tokens[0] == "" {
		http.Error(w, "reconnectionToken is required", http.StatusBadRequest)
		return
	}
	token := tokens[0]
	reconnection := q.Get("reconnection") == "true"
	skipFrames := q.Get("skipWebSocketFrames") == "true"

	hj, ok := w.(http.Hijacker)
	if !ok {
		http.Error(w, "connection does not support hijacking", http.StatusInternalServerError)
		return
	}
	netConn, rw, err := hj.Hijack()
	if err != nil {
		return
	}

	if err := wsframe.WriteHandshakeResponse(rw.Writer, result.Headers); err != nil {
		netConn.Close()
		return
	}
	if err := rw.Writer.Flush(); err != nil {
		netConn.Close()
		return
	}

	conn, err := wsframe.NewConn(&hijackedConn{Conn: netConn, r: rw.Reader}, result)
	if err != nil {
		netConn.Close()
		return
	}

	logger := b.cfg.Logger.With("token", prefix8(token))
	protocol := wsproto.NewProtocol(conn, b.cfg.MaxUnackedBytes)
	protocol.Start()

	remoteAuthority := rpc.DeriveRemoteAuthority(r)
	go b.handleSession(protocol, token, reconnection, skipFrames, remoteAuthority, logger)
}

// recvControl waits for the next control message, bounded by
// cfg.HandshakeTimeout when non-zero. ok is false on channel close or
// timeout.
func (b *Broker) recvControl(ch <-chan []byte) (payload []byte, ok bool) {
	if b.cfg.HandshakeTimeout <= 0 {
		payload, ok = <-ch
		return payload, ok
	}
	timer := time.NewTimer(b.cfg.HandshakeTimeout)
	defer timer.Stop()
	select {
	case payload, ok = <-ch:
		return payload, ok
	case <-timer.C:
		return nil, false
	}
}

// abort sends an error control message on the given protocol and tears
// it down; it never returns a usable session.
func abort(protocol *wsproto.Protocol, reason string, logger *zap.SugaredLogger) {
	logger.Warnw("aborting session", "reason", reason)
	_ = protocol.SendControl(encodeError(reason))
	_ = protocol.Close()
}

// handleSession drives one connection's auth/connectionType handshake
// and dispatches to the appropriate routing path.
func (b *Broker) handleSession(protocol *wsproto.Protocol, token string, reconnection, skipFrames bool, remoteAuthority string, logger *zap.SugaredLogger) {
	ch := protocol.OnControlMessage()

	authPayload, ok := b.recvControl(ch)
	if !ok {
		abort(protocol, "handshake timed out waiting for auth", logger)
		return
	}
	if _, err := decodeAuth(authPayload); err != nil {
		abort(protocol, "expected auth message", logger)
		return
	}
	if err := protocol.SendControl(encodeSign()); err != nil {
		return
	}

	ctPayload, ok := b.recvControl(ch)
	if !ok {
		abort(protocol, "handshake timed out waiting for connectionType", logger)
		return
	}
	ctMsg, err := decodeConnectionType(ctPayload)
	if err != nil {
		abort(protocol, "expected connectionType message", logger)
		return
	}

	switch ctMsg.DesiredConnectionType {
	case ConnectionTypeManagement:
		b.routeManagement(protocol, token, reconnection, remoteAuthority, logger)
	case ConnectionTypeExtensionHost:
		args := decodeExtensionHostArgs(ctMsg.Args)
		b.routeExtensionHost(protocol, token, reconnection, skipFrames, args, logger)
	case ConnectionTypeTunnel:
		logger.Infow("tunnel connection type accepted as no-op")
	default:
		abort(protocol, "unknown connectionType", logger)
	}
}

func (b *Broker) routeManagement(protocol *wsproto.Protocol, token string, reconnection bool, remoteAuthority string, logger *zap.SugaredLogger) {
	existing, found := b.mgmt.Lookup(token)
	if !found {
		if reconnection {
			abort(protocol, "Asking to reconnect but provided token is unknown", logger)
			return
		}
		sess := session.NewManagementSession(token, protocol)
		sess.RemoteAuthority = remoteAuthority
		b.mgmt.Register(token, sess)
		sess.OnClose.OnDisconnect(func() { b.mgmt.Remove(token) })
		if err := protocol.SendControl(encodeOK()); err != nil {
			return
		}
		if b.onClientConnected != nil {
			b.onClientConnected(sess)
		}
		return
	}

	if err := existing.Protocol.SendControl(encodeOK()); err != nil {
		logger.Errorw("failed to ack reconnect on old protocol", "error", err)
	}
	newConn := protocol.Detach()
	residual := protocol.ReadEntireBuffer()
	if err := existing.Protocol.BeginAcceptReconnection(newConn, residual); err != nil {
		logger.Errorw("reconnect failed", "error", err)
		existing.Dispose()
	}
}

func (b *Broker) routeExtensionHost(protocol *wsproto.Protocol, token string, reconnection, skipFrames bool, args extensionHostArgs, logger *zap.SugaredLogger) {
	params := session.RemoteExtensionHostStartParams{
		Language:     args.Language,
		DebugPort:    args.DebugPort,
		BreakOnEntry: args.BreakOnEntry,
	}

	existing, found := b.ext.Lookup(token)
	if !found {
		if reconnection {
			abort(protocol, "Asking to reconnect but provided token is unknown", logger)
			return
		}
		b.startExtensionHost(protocol, token, skipFrames, params, logger)
		return
	}

	if existing.Worker == nil {
		abort(protocol, "Extension host is not defined", logger)
		return
	}

	if err := protocol.SendControl(encodeOK()); err != nil {
		return
	}
	debugPort := params.DebugPort
	var err error
	if debugPort == 0 {
		debugPort, err = allocateFreePort(b.cfg.DebugPortRangeAttempts)
		if err != nil {
			logger.Errorw("debug port allocation failed", "error", err)
			existing.Dispose()
			return
		}
	}
	if err := existing.Worker.Reconnect(protocol, debugPort); err != nil {
		logger.Errorw("extension host reconnect failed", "error", err)
		existing.Dispose()
	}
}

func (b *Broker) startExtensionHost(protocol *wsproto.Protocol, token string, skipFrames bool, params session.RemoteExtensionHostStartParams, logger *zap.SugaredLogger) {
	debugPort := params.DebugPort
	if debugPort == 0 {
		allocated, err := allocateFreePort(b.cfg.DebugPortRangeAttempts)
		if err != nil {
			abort(protocol, "could not allocate a debug port", logger)
			return
		}
		debugPort = allocated
	}

	sess := session.NewExtensionHostSession(token, protocol, params)
	b.ext.Register(token, sess)
	sess.OnClose.OnDisconnect(func() { b.ext.Remove(token) })

	supervisor := exthost.NewSupervisor(exthost.StartParams{
		Token:               token,
		BinaryPath:          b.cfg.ExtensionHostBinaryPath,
		URITransformerPath:  b.cfg.URITransformerPath,
		Remote:              params,
		SkipWebSocketFrames: skipFrames,
		LogLevel:            b.cfg.LogLevel,
	}, logger)
	sess.Worker = supervisor

	if err := protocol.SendControl(encodeOK()); err != nil {
		sess.Dispose()
		return
	}

	if err := supervisor.Start(context.Background(), protocol, debugPort); err != nil {
		logger.Errorw("extension host fork failed", "error", err)
		sess.Dispose()
		return
	}
	if b.onExtensionHostStarted != nil {
		b.onExtensionHostStarted(sess)
	}
}
