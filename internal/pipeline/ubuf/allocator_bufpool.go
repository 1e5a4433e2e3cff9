package ubuf

import "github.com/alxayo/pipe/internal/bufpool"

// PoolAllocator is the default Allocator, backing every Buffer byte range
// with internal/bufpool's size-classed sync.Pool. It is the right choice
// for the common case of small, short-lived block/picture/sound buffers
// churned at frame or section rate.
type PoolAllocator struct {
	pool *bufpool.Pool
}

// NewPoolAllocator wraps a bufpool.Pool (or creates a default-sized one
// when pool is nil) as an ubuf.Allocator.
func NewPoolAllocator(pool *bufpool.Pool) *PoolAllocator {
	if pool == nil {
		pool = bufpool.New()
	}
	return &PoolAllocator{pool: pool}
}

func (a *PoolAllocator) Alloc(size int) ([]byte, error) {
	return a.pool.Get(size), nil
}

func (a *PoolAllocator) Free(buf []byte) {
	a.pool.Put(buf)
}
