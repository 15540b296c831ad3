package pool_test

import (
	"testing"

	"github.com/momentics/workbench-gateway/pool"
)

func TestBufferPoolReuse(t *testing.T) {
	bp := pool.NewBufferPool()
	b1 := bp.Get(128)
	b1.Release()
	b2 := bp.Get(64)
	// b2 should reuse b1's underlying class-256 storage.
	if b2.Capacity() < 128 {
		t.Error("buffer capacity too small; reuse failed")
	}
}

func TestBufferPoolOversize(t *testing.T) {
	bp := pool.NewBufferPool()
	b := bp.Get(1 << 20)
	if len(b.Bytes()) != 1<<20 {
		t.Fatalf("got %d bytes, want %d", len(b.Bytes()), 1<<20)
	}
	b.Release() // oversize buffers are not pooled; must not panic
}

func TestBufferPoolStats(t *testing.T) {
	bp := pool.NewBufferPool()
	b := bp.Get(512)
	stats := bp.Stats()
	if stats.InUse != 1 {
		t.Fatalf("InUse = %d, want 1", stats.InUse)
	}
	b.Release()
	stats = bp.Stats()
	if stats.InUse != 0 {
		t.Fatalf("InUse = %d, want 0 after release", stats.InUse)
	}
}
