// File: wsframe/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Conn is the Frame Layer's public surface: a framed, bidirectional
// byte channel over a net.Conn, with ping/pong answered inline, close
// handshaked per RFC 6455 §7, and permessage-deflate applied
// transparently to whole messages.

package wsframe

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"
)

// CloseError reports the peer-requested or self-initiated close code.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("wsframe: closed (code=%d reason=%q)", e.Code, e.Reason)
}

// Conn wraps an accepted, already-upgraded net.Conn with WebSocket
// message framing and optional permessage-deflate.
type Conn struct {
	nc net.Conn
	br *bufio.Reader

	deflateEnabled bool
	params         DeflateParams
	deflate        *deflateContext
	inflate        *inflateContext

	writeMu sync.Mutex
	closed  bool
}

// NewConn constructs a Conn. If result.DeflateEnabled, both directions'
// compression contexts are created per the negotiated parameters.
func NewConn(nc net.Conn, result *UpgradeResult) (*Conn, error) {
	c := &Conn{
		nc:             nc,
		br:             bufio.NewReader(nc),
		deflateEnabled: result.DeflateEnabled,
		params:         result.DeflateParams,
	}
	if c.deflateEnabled {
		dctx, err := newDeflateContext(result.DeflateParams.ServerNoContextTakeover)
		if err != nil {
			return nil, err
		}
		c.deflate = dctx
		c.inflate = newInflateContext(result.DeflateParams.ClientNoContextTakeover)
	}
	return c, nil
}

// Underlying returns the raw net.Conn, for callers that need to detach
// it (extension-host socket hand-off) or inspect its file descriptor.
func (c *Conn) Underlying() net.Conn { return c.nc }

// DeflateEnabled reports whether permessage-deflate is active.
func (c *Conn) DeflateEnabled() bool { return c.deflateEnabled }

// RecordedInflateBytes returns the current inflate-side tail dictionary,
// empty if deflate is not enabled. Required for socket hand-off.
func (c *Conn) RecordedInflateBytes() []byte {
	if c.inflate == nil {
		return nil
	}
	return c.inflate.RecordedInflateBytes()
}

// ReadMessage reads one complete WebSocket message, reassembling
// fragments and answering ping/pong/close frames inline. It returns
// *CloseError when the peer initiates (or this call completes) a
// close handshake.
func (c *Conn) ReadMessage() (Opcode, []byte, error) {
	var (
		msgOpcode Opcode
		payload   []byte
		compressed bool
		started    bool
	)

	for {
		f, err := ReadFrame(c.br)
		if err != nil {
			if errors.Is(err, ErrMalformed) {
				_ = c.CloseWithCode(CloseProtocolError, "malformed frame")
			}
			return 0, nil, err
		}

		switch f.Opcode {
		case OpcodePing:
			if err := c.writeControl(OpcodePong, f.Payload); err != nil {
				return 0, nil, err
			}
			continue
		case OpcodePong:
			continue
		case OpcodeClose:
			code, reason := parseCloseFrame(f.Payload)
			_ = c.writeControl(OpcodeClose, f.Payload)
			c.nc.Close()
			return 0, nil, &CloseError{Code: code, Reason: reason}
		}

		if !started {
			msgOpcode = f.Opcode
			compressed = f.RSV1
			started = true
		}
		payload = append(payload, f.Payload...)

		if f.IsFinal {
			if compressed {
				if c.inflate == nil {
					_ = c.CloseWithCode(CloseProtocolError, "compression not negotiated")
					return 0, nil, errors.New("wsframe: compressed frame received without negotiated deflate")
				}
				out, err := c.inflate.Decompress(payload)
				if err != nil {
					_ = c.CloseWithCode(CloseInvalidPayload, "invalid compressed payload")
					return 0, nil, err
				}
				payload = out
			}
			return msgOpcode, payload, nil
		}
	}
}

// WriteMessage writes msg as a single, possibly-compressed, unfragmented
// WebSocket message.
func (c *Conn) WriteMessage(opcode Opcode, msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return net.ErrClosed
	}

	if c.deflate != nil && (opcode == OpcodeText || opcode == OpcodeBinary) {
		compressed, err := c.deflate.Compress(msg)
		if err != nil {
			return err
		}
		return WriteFrame(c.nc, opcode, compressed, true, true)
	}
	return WriteFrame(c.nc, opcode, msg, false, true)
}

func (c *Conn) writeControl(opcode Opcode, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return nil
	}
	return WriteFrame(c.nc, opcode, payload, false, true)
}

// Close sends a close frame (best-effort) and closes the underlying
// connection.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	if !c.closed {
		c.closed = true
		_ = WriteFrame(c.nc, OpcodeClose, closePayload(CloseNormal, ""), false, true)
	}
	c.writeMu.Unlock()
	return c.nc.Close()
}

// CloseWithCode sends a close frame carrying code/reason then closes
// the connection; used for the malformed-framing (1002) and
// compression-error (1007) failure paths in §4.1.
func (c *Conn) CloseWithCode(code int, reason string) error {
	c.writeMu.Lock()
	if !c.closed {
		c.closed = true
		_ = WriteFrame(c.nc, OpcodeClose, closePayload(code, reason), false, true)
	}
	c.writeMu.Unlock()
	return c.nc.Close()
}

func closePayload(code int, reason string) []byte {
	buf := make([]byte, 2+len(reason))
	buf[0] = byte(code >> 8)
	buf[1] = byte(code)
	copy(buf[2:], reason)
	return buf
}

func parseCloseFrame(payload []byte) (int, string) {
	if len(payload) < 2 {
		return CloseNormal, ""
	}
	code := int(payload[0])<<8 | int(payload[1])
	return code, string(payload[2:])
}
