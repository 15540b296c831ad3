// File: pool/bufferpool.go
// Author: momentics <momentics@gmail.com>
//
// Size-classed BufferPool backed by sync.Pool, with transparent
// growth: a request for a size with no matching class falls back to a
// direct allocation rather than blocking or erroring.

package pool

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/workbench-gateway/api"
)

// classSizes are the rounded buffer sizes the pool keeps warm. Frame
// payloads and inflate chunks cluster around these in practice.
var classSizes = [...]int{256, 1024, 4096, 16384, 65536}

// BufferPool is a sync.Pool-backed api.BufferPool keyed by size class.
type BufferPool struct {
	pools [len(classSizes)]sync.Pool

	totalAlloc int64
	totalFree  int64
	inUse      int64
}

// NewBufferPool constructs a BufferPool with one sync.Pool per class.
func NewBufferPool() *BufferPool {
	bp := &BufferPool{}
	for i, sz := range classSizes {
		class := sz
		bp.pools[i].New = func() any {
			return make([]byte, class)
		}
	}
	return bp
}

func classFor(size int) int {
	for i, sz := range classSizes {
		if size <= sz {
			return i
		}
	}
	return -1
}

// Get returns a Buffer whose Data has length size.
func (bp *BufferPool) Get(size int) api.Buffer {
	atomic.AddInt64(&bp.totalAlloc, 1)
	atomic.AddInt64(&bp.inUse, 1)

	class := classFor(size)
	if class < 0 {
		return api.Buffer{Data: make([]byte, size), Pool: bp, Class: -1}
	}
	raw := bp.pools[class].Get().([]byte)
	if cap(raw) < size {
		raw = make([]byte, classSizes[class])
	}
	return api.Buffer{Data: raw[:size], Pool: bp, Class: class}
}

// Put returns b's backing slice to its originating class pool.
func (bp *BufferPool) Put(b api.Buffer) {
	if b.Class < 0 || b.Data == nil {
		return
	}
	atomic.AddInt64(&bp.totalFree, 1)
	atomic.AddInt64(&bp.inUse, -1)
	bp.pools[b.Class].Put(b.Data[:cap(b.Data)])
}

// Stats returns a snapshot of pool usage counters.
func (bp *BufferPool) Stats() api.BufferPoolStats {
	return api.BufferPoolStats{
		TotalAlloc: atomic.LoadInt64(&bp.totalAlloc),
		TotalFree:  atomic.LoadInt64(&bp.totalFree),
		InUse:      atomic.LoadInt64(&bp.inUse),
	}
}
