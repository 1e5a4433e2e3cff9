package ubuf

import pipeerr "github.com/alxayo/pipe/internal/errors"

// Manager is the buffer manager (libupipe's ubuf_mgr): it satisfies
// Alloc requests against a chosen Allocator and stamps every buffer it
// hands out with the Layout given to that call (BlockLayout for
// AllocBlock). It holds no layout and no pool-depth limit of its own.
type Manager struct {
	alloc Allocator
}

// NewManager creates a Manager backed by alloc. Use NewPoolAllocator(nil)
// for the common pooled-heap case, or NewMmapAllocator for large buffers.
func NewManager(alloc Allocator) *Manager {
	return &Manager{alloc: alloc}
}

// Allocator exposes the underlying Allocator, for callers (e.g. a stage
// accumulating bytes via Buffer.Append) that need to grow a buffer they
// didn't originally allocate through this Manager.
func (m *Manager) Allocator() Allocator { return m.alloc }

// AllocBlock allocates a single contiguous byte range of size bytes.
func (m *Manager) AllocBlock(size int) (*Buffer, error) {
	if size < 0 {
		return nil, pipeerr.NewInvalidError("ubuf.manager.alloc_block", errOffsetOutOfRange)
	}
	st, err := newStorage(m.alloc, size)
	if err != nil {
		return nil, err
	}
	return &Buffer{
		layout: BlockLayout(),
		planes: map[string]*planeView{blockPlane: {storage: st, offset: 0, size: size}},
	}, nil
}

// AllocPicture allocates a picture buffer with the given layout's planes,
// each sized from hsize x vsize pixels per that plane's chroma subsampling
// and sample size.
func (m *Manager) AllocPicture(layout Layout, hsize, vsize int) (*Buffer, error) {
	if layout.Kind != KindPicture {
		return nil, pipeerr.NewInvalidError("ubuf.manager.alloc_picture", errNotBlockBuffer)
	}
	if hsize <= 0 || vsize <= 0 {
		return nil, pipeerr.NewInvalidError("ubuf.manager.alloc_picture", errOffsetOutOfRange)
	}
	planes := make(map[string]*planeView, len(layout.Planes))
	for _, spec := range layout.Planes {
		size := spec.stride(hsize) * spec.rows(vsize)
		st, err := newStorage(m.alloc, size)
		if err != nil {
			for _, pv := range planes {
				pv.storage.release()
			}
			return nil, err
		}
		planes[spec.Name] = &planeView{storage: st, offset: 0, size: size}
	}
	return &Buffer{layout: layout, hsize: hsize, vsize: vsize, planes: planes}, nil
}

// AllocSound allocates a sound buffer with the given layout's planes, each
// sized to hold samples frames.
func (m *Manager) AllocSound(layout Layout, samples int) (*Buffer, error) {
	if layout.Kind != KindSound {
		return nil, pipeerr.NewInvalidError("ubuf.manager.alloc_sound", errNotBlockBuffer)
	}
	if samples <= 0 {
		return nil, pipeerr.NewInvalidError("ubuf.manager.alloc_sound", errOffsetOutOfRange)
	}
	planes := make(map[string]*planeView, len(layout.Planes))
	for _, spec := range layout.Planes {
		size := spec.stride(samples)
		st, err := newStorage(m.alloc, size)
		if err != nil {
			for _, pv := range planes {
				pv.storage.release()
			}
			return nil, err
		}
		planes[spec.Name] = &planeView{storage: st, offset: 0, size: size}
	}
	return &Buffer{layout: layout, hsize: samples, planes: planes}, nil
}

// Release drops b's reference to its backing storage(s), freeing them
// once no duplicate remains. Callers must not use b after Release.
func (m *Manager) Release(b *Buffer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, pv := range b.planes {
		pv.storage.release()
	}
}
