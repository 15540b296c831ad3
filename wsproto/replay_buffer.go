// File: wsproto/replay_buffer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The outgoing replay buffer holds every sent-but-unacknowledged wire
// frame, FIFO by sequence number, so a reconnect can resend them on
// the new socket. github.com/eapache/queue backs it, a ring-buffer
// FIFO that fits the access pattern here: push at the tail, peek/drop
// from the head as acknowledgments arrive.

package wsproto

import (
	"github.com/eapache/queue"

	"github.com/momentics/workbench-gateway/api"
)

// ErrOverflow is returned when the outgoing buffer exceeds its
// configured byte budget; per spec.md §7 this is the ProtocolOverflow
// error kind and is treated the same as a WorkerCrash: the session is
// dead.
var ErrOverflow = api.NewError(api.ErrCodeResourceExhausted, "wsproto: outgoing unacked buffer exceeded maximum size")

// replaySegment owns a pooled buffer for the lifetime it sits in the
// unacked queue. The buffer is released exactly once, either when the
// segment is acknowledged or when the buffer is discarded wholesale.
type replaySegment struct {
	sequence uint32
	buf      api.Buffer
}

func (s replaySegment) frame() []byte { return s.buf.Bytes() }

type replayBuffer struct {
	q          *queue.Queue
	totalBytes int
	maxBytes   int
}

func newReplayBuffer(maxBytes int) *replayBuffer {
	return &replayBuffer{q: queue.New(), maxBytes: maxBytes}
}

// push enqueues a freshly sent frame. It returns ErrOverflow once the
// buffer exceeds its byte budget; the caller still owns deciding what
// to do (dispose the session), the buffer just reports the condition.
func (b *replayBuffer) push(seg replaySegment) error {
	b.q.Add(seg)
	b.totalBytes += len(seg.frame())
	if b.totalBytes > b.maxBytes {
		return ErrOverflow
	}
	return nil
}

// ackUpTo drops every segment whose sequence is <= ack, releasing its
// pooled buffer back to the shared pool.
func (b *replayBuffer) ackUpTo(ack uint32) {
	for b.q.Length() > 0 {
		head := b.q.Peek().(replaySegment)
		if head.sequence > ack {
			break
		}
		b.q.Remove()
		b.totalBytes -= len(head.frame())
		head.buf.Release()
	}
}

// discard releases every buffered segment's pooled buffer without
// replaying it, used when the protocol is torn down for good.
func (b *replayBuffer) discard() {
	for b.q.Length() > 0 {
		head := b.q.Remove().(replaySegment)
		head.buf.Release()
	}
	b.totalBytes = 0
}

// all returns every currently buffered segment, oldest first, without
// removing them — used to replay onto a freshly swapped-in socket.
func (b *replayBuffer) all() []replaySegment {
	n := b.q.Length()
	out := make([]replaySegment, n)
	for i := 0; i < n; i++ {
		out[i] = b.q.Get(i).(replaySegment)
	}
	return out
}
