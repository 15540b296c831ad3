// File: wsproto/message.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Wire header for one persistent-protocol message. Each WebSocket
// binary message carries exactly one of these: a type (regular vs
// control), the sender's sequence number, and a piggybacked
// acknowledgment of the highest sequence number received so far —
// the mechanism the outgoing replay buffer uses to know what it can
// safely discard.

package wsproto

import "encoding/binary"

// MessageType distinguishes content-bearing traffic from the broker's
// own handshake/disconnect signaling.
type MessageType byte

const (
	MessageRegular MessageType = 0
	MessageControl MessageType = 1
)

const headerSize = 9 // 1 type + 4 sequence + 4 ack

func encodeHeader(t MessageType, sequence, ack uint32) []byte {
	buf := make([]byte, headerSize)
	encodeHeaderInto(buf, t, sequence, ack)
	return buf
}

// encodeHeaderInto writes the header fields into the first headerSize
// bytes of buf, which must be at least that long.
func encodeHeaderInto(buf []byte, t MessageType, sequence, ack uint32) {
	buf[0] = byte(t)
	binary.BigEndian.PutUint32(buf[1:5], sequence)
	binary.BigEndian.PutUint32(buf[5:9], ack)
}

func decodeHeader(buf []byte) (t MessageType, sequence, ack uint32, ok bool) {
	if len(buf) < headerSize {
		return 0, 0, 0, false
	}
	t = MessageType(buf[0])
	sequence = binary.BigEndian.Uint32(buf[1:5])
	ack = binary.BigEndian.Uint32(buf[5:9])
	return t, sequence, ack, true
}
