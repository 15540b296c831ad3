// File: wsproto/protocol.go
// Package wsproto implements the sequenced message layer carried over
// a WebSocket: regular vs control messages, an outgoing replay buffer
// for reconnection, and the reconnect-in-place socket swap. Content of
// a regular message is opaque to this layer. Each message occupies
// exactly one WebSocket binary message and carries no length prefix of
// its own.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wsproto

import (
	"sync"

	"github.com/momentics/workbench-gateway/api"
	"github.com/momentics/workbench-gateway/pool"
	"github.com/momentics/workbench-gateway/wsframe"
)

// ErrClosed is returned by operations attempted after the protocol has
// been disposed.
var ErrClosed = api.ErrTransportClosed

// FrameConn is the minimal transport contract the protocol layer
// needs from wsframe.Conn — kept as an interface so tests can exercise
// the reconnect/replay logic without a real socket.
type FrameConn interface {
	ReadMessage() (wsframe.Opcode, []byte, error)
	WriteMessage(opcode wsframe.Opcode, payload []byte) error
	Close() error
}

const defaultMaxUnackedBytes = 4 << 20 // 4 MiB

// Protocol is one session's persistent, reconnectable message stream.
type Protocol struct {
	mu sync.Mutex

	conn FrameConn
	gen  uint64 // bumped on every reconnect; invalidates stale read loops

	outSeq       uint32
	highestInSeq uint32
	unacked      *replayBuffer

	incoming []byte
	onMessage func([]byte)

	controlCh chan []byte
	closed    bool
	closeOnce sync.Once
}

// NewProtocol wraps conn. maxUnackedBytes <= 0 selects a default.
func NewProtocol(conn FrameConn, maxUnackedBytes int) *Protocol {
	if maxUnackedBytes <= 0 {
		maxUnackedBytes = defaultMaxUnackedBytes
	}
	return &Protocol{
		conn:      conn,
		unacked:   newReplayBuffer(maxUnackedBytes),
		controlCh: make(chan []byte, 16),
	}
}

// Start launches the background read loop. Call once per Protocol;
// BeginAcceptReconnection starts the loop for the new connection itself.
func (p *Protocol) Start() {
	p.mu.Lock()
	conn, gen := p.conn, p.gen
	p.mu.Unlock()
	go p.readLoop(conn, gen)
}

// OnControlMessage returns the channel on which decoded control
// payloads are delivered in arrival order. The channel is closed when
// the protocol is disposed.
func (p *Protocol) OnControlMessage() <-chan []byte {
	return p.controlCh
}

// SetOnMessage installs a callback invoked synchronously from the read
// loop for every regular message, in addition to the message being
// retained for ReadEntireBuffer. Pass nil to stop receiving callbacks.
func (p *Protocol) SetOnMessage(fn func([]byte)) {
	p.mu.Lock()
	p.onMessage = fn
	p.mu.Unlock()
}

func (p *Protocol) readLoop(conn FrameConn, gen uint64) {
	for {
		opcode, payload, err := conn.ReadMessage()

		p.mu.Lock()
		stale := p.gen != gen
		p.mu.Unlock()
		if stale {
			return
		}

		if err != nil {
			p.dispose()
			return
		}
		if opcode != wsframe.OpcodeBinary {
			continue
		}
		p.handleWireMessage(payload)
	}
}

func (p *Protocol) handleWireMessage(payload []byte) {
	t, seq, ack, ok := decodeHeader(payload)
	if !ok {
		return
	}
	body := payload[headerSize:]

	p.mu.Lock()
	p.unacked.ackUpTo(ack)
	if seq > p.highestInSeq {
		p.highestInSeq = seq
	}
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}

	switch t {
	case MessageControl:
		p.controlCh <- body
	case MessageRegular:
		p.mu.Lock()
		p.incoming = append(p.incoming, body...)
		cb := p.onMessage
		p.mu.Unlock()
		if cb != nil {
			cb(body)
		}
	}
}

// ReadEntireBuffer drains and returns every regular-message byte
// received so far but not yet claimed by a previous call.
func (p *Protocol) ReadEntireBuffer() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	buf := p.incoming
	p.incoming = nil
	return buf
}

func (p *Protocol) send(t MessageType, payload []byte) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.outSeq++
	seq := p.outSeq
	ack := p.highestInSeq
	conn := p.conn
	p.mu.Unlock()

	buf := pool.Default().Get(headerSize + len(payload))
	encodeHeaderInto(buf.Bytes(), t, seq, ack)
	copy(buf.Bytes()[headerSize:], payload)

	if err := conn.WriteMessage(wsframe.OpcodeBinary, buf.Bytes()); err != nil {
		buf.Release()
		return err
	}

	p.mu.Lock()
	err := p.unacked.push(replaySegment{sequence: seq, buf: buf})
	p.mu.Unlock()
	if err != nil {
		p.dispose()
		return err
	}
	return nil
}

// SendControl writes a control message.
func (p *Protocol) SendControl(payload []byte) error {
	return p.send(MessageControl, payload)
}

// SendRegular writes a content-bearing message.
func (p *Protocol) SendRegular(payload []byte) error {
	return p.send(MessageRegular, payload)
}

var disconnectSentinel = []byte("disconnect")

// SendDisconnect writes a reserved control payload signaling voluntary
// shutdown, then closes the underlying transport.
func (p *Protocol) SendDisconnect() error {
	_ = p.SendControl(disconnectSentinel)
	return p.Close()
}

// BeginAcceptReconnection atomically swaps in newConn, feeds
// residualBytes (a single already-read wire message, if any) as though
// it had just arrived on newConn, starts a fresh read loop, and
// replays every unacknowledged outgoing frame onto newConn.
func (p *Protocol) BeginAcceptReconnection(newConn FrameConn, residualBytes []byte) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.conn = newConn
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	if len(residualBytes) > 0 {
		p.handleWireMessage(residualBytes)
	}

	go p.readLoop(newConn, gen)

	p.mu.Lock()
	segments := p.unacked.all()
	p.mu.Unlock()
	for _, seg := range segments {
		if err := newConn.WriteMessage(wsframe.OpcodeBinary, seg.frame()); err != nil {
			return err
		}
	}
	return nil
}

// EndAcceptReconnection marks the reconnect sequence complete. It is a
// deliberate no-op today — reserved so callers have a single place to
// hang post-reconnect bookkeeping (metrics, session state transitions)
// without reaching into the protocol's internals.
func (p *Protocol) EndAcceptReconnection() {}

func (p *Protocol) dispose() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.unacked.discard()
		p.mu.Unlock()
		close(p.controlCh)
	})
}

// Close disposes the protocol and closes the underlying transport.
// Use Detach instead when the live socket must survive (extension-host
// hand-off).
func (p *Protocol) Close() error {
	p.dispose()
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Detach stops the read loop and marks the protocol disposed without
// closing the transport, returning it so the caller can hand the raw
// connection (and its file descriptor) to another process.
func (p *Protocol) Detach() FrameConn {
	p.dispose()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	return p.conn
}
