package pool

import (
	"sync"

	"github.com/momentics/workbench-gateway/api"
)

var (
	defaultOnce sync.Once
	defaultPool *BufferPool
)

// Default returns a process-wide BufferPool so all sessions reuse the
// same size-classed pools instead of fragmenting allocations.
func Default() api.BufferPool {
	defaultOnce.Do(func() {
		defaultPool = NewBufferPool()
	})
	return defaultPool
}
