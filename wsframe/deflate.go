// File: wsframe/deflate.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-direction permessage-deflate (RFC 7692) compression contexts.
// RFC 7692 frames carry raw DEFLATE data with the trailing 4-octet
// 0x00 0x00 0xff 0xff sync-flush marker stripped on the wire and
// restored before inflating — compress/flate speaks exactly this raw
// DEFLATE format, so no third-party codec is needed here (see
// DESIGN.md).
//
// Context takeover (the default; "no_context_takeover" disables it
// per direction) means the sliding window persists across messages.
// For the outgoing side that falls out of flate.Writer's normal
// streaming behavior. For the incoming side we capture the last
// inflated window as an explicit dictionary and feed it back into
// flate.Resetter on the next message — that captured window is
// exactly the recorded inflate bytes required for seeding a
// decompressor handed off to another process.

package wsframe

import (
	"bytes"
	"compress/flate"
	"io"
)

// maxDeflateWindow is the largest window DEFLATE supports (2^15).
const maxDeflateWindow = 32768

var flateTail = []byte{0x00, 0x00, 0xff, 0xff}

// deflateContext compresses outbound message payloads.
type deflateContext struct {
	buf               bytes.Buffer
	fw                *flate.Writer
	noContextTakeover bool
}

func newDeflateContext(noContextTakeover bool) (*deflateContext, error) {
	c := &deflateContext{noContextTakeover: noContextTakeover}
	fw, err := flate.NewWriter(&c.buf, flate.BestSpeed)
	if err != nil {
		return nil, err
	}
	c.fw = fw
	return c, nil
}

// Compress deflates msg as one complete WebSocket message and returns
// the wire bytes with the sync-flush trailer removed.
func (c *deflateContext) Compress(msg []byte) ([]byte, error) {
	c.buf.Reset()
	if _, err := c.fw.Write(msg); err != nil {
		return nil, err
	}
	if err := c.fw.Flush(); err != nil {
		return nil, err
	}
	out := c.buf.Bytes()
	if bytes.HasSuffix(out, flateTail) {
		out = out[:len(out)-len(flateTail)]
	}
	result := make([]byte, len(out))
	copy(result, out)

	if c.noContextTakeover {
		c.buf.Reset()
		c.fw.Reset(&c.buf)
	}
	return result, nil
}

// inflateContext decompresses inbound message payloads and records a
// bounded tail of recently inflated bytes for hand-off.
type inflateContext struct {
	fr                io.ReadCloser
	dict              []byte
	noContextTakeover bool
}

func newInflateContext(noContextTakeover bool) *inflateContext {
	return &inflateContext{
		fr:                flate.NewReader(bytes.NewReader(nil)),
		noContextTakeover: noContextTakeover,
	}
}

// Decompress inflates a single complete WebSocket message's wire bytes
// (with the sync-flush trailer restored) and updates the recorded
// inflate tail.
func (c *inflateContext) Decompress(payload []byte) ([]byte, error) {
	framed := make([]byte, 0, len(payload)+len(flateTail)+5)
	framed = append(framed, payload...)
	framed = append(framed, flateTail...)
	// An empty final stored block ends the stream, so ReadAll stops at
	// io.EOF rather than reporting io.ErrUnexpectedEOF.
	framed = append(framed, 0x01, 0x00, 0x00, 0xff, 0xff)

	resetter := c.fr.(flate.Resetter)
	if err := resetter.Reset(bytes.NewReader(framed), c.dict); err != nil {
		return nil, err
	}
	out, err := io.ReadAll(c.fr)
	if err != nil {
		return nil, err
	}

	c.recordTail(out)
	if c.noContextTakeover {
		c.dict = nil
	}
	return out, nil
}

// recordTail keeps at most the last maxDeflateWindow bytes inflated so
// far, across however many messages contributed to it.
func (c *inflateContext) recordTail(out []byte) {
	if len(out) >= maxDeflateWindow {
		c.dict = append([]byte(nil), out[len(out)-maxDeflateWindow:]...)
		return
	}
	combined := append(append([]byte(nil), c.dict...), out...)
	if len(combined) > maxDeflateWindow {
		combined = combined[len(combined)-maxDeflateWindow:]
	}
	c.dict = combined
}

// RecordedInflateBytes returns the current tail dictionary, the bytes
// a freshly forked worker's decompressor must be seeded with to
// continue this connection's compression context.
func (c *inflateContext) RecordedInflateBytes() []byte {
	return append([]byte(nil), c.dict...)
}
