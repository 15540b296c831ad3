// File: wsframe/frame_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wsframe

import (
	"bytes"
	"testing"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		payload []byte
	}{
		{"empty", nil},
		{"small", []byte("hello")},
		{"medium-126-boundary", bytes.Repeat([]byte("a"), 126)},
		{"large-16bit-boundary", bytes.Repeat([]byte("b"), 70000)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteFrame(&buf, OpcodeBinary, tc.payload, false, true); err != nil {
				t.Fatalf("WriteFrame: %v", err)
			}
			f, err := ReadFrame(&buf)
			if err != nil {
				t.Fatalf("ReadFrame: %v", err)
			}
			if !f.IsFinal {
				t.Fatal("expected final frame")
			}
			if f.Opcode != OpcodeBinary {
				t.Fatalf("opcode = %v, want OpcodeBinary", f.Opcode)
			}
			if !bytes.Equal(f.Payload, tc.payload) {
				t.Fatalf("payload mismatch: got %d bytes, want %d", len(f.Payload), len(tc.payload))
			}
		})
	}
}

func TestReadFrameUnmasksClientPayload(t *testing.T) {
	var buf bytes.Buffer
	key := [4]byte{0x11, 0x22, 0x33, 0x44}
	payload := []byte("masked-payload")

	masked := make([]byte, len(payload))
	copy(masked, payload)
	unmaskInPlace(masked, key)

	buf.WriteByte(finBit | byte(OpcodeText))
	buf.WriteByte(maskBit | byte(len(masked)))
	buf.Write(key[:])
	buf.Write(masked)

	f, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(f.Payload, payload) {
		t.Fatalf("got %q, want %q", f.Payload, payload)
	}
}

func TestReadFrameRejectsOversizedControlFrame(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(finBit | byte(OpcodePing))
	buf.WriteByte(126)
	buf.Write([]byte{0x00, 0xFF})
	buf.Write(bytes.Repeat([]byte{0}, 255))

	if _, err := ReadFrame(&buf); err != ErrMalformed {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestWriteFrameRejectsOversizedPayload(t *testing.T) {
	oversized := make([]byte, MaxFramePayload+1)
	if err := WriteFrame(new(bytes.Buffer), OpcodeBinary, oversized, false, true); err != ErrFrameTooLarge {
		t.Fatalf("err = %v, want ErrFrameTooLarge", err)
	}
}
