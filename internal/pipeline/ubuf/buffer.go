package ubuf

import (
	"sync"

	pipeerr "github.com/alxayo/pipe/internal/errors"
)

// planeView is one named plane's window into a ref-counted storage arena.
type planeView struct {
	storage *storage
	offset  int
	size    int
}

// blockPlane is the implicit plane name used for KindBlock buffers, which
// have exactly one plane and no picture/sound dimensions.
const blockPlane = ""

// Buffer is a reference-counted, copy-on-write view over one or more named
// planes of shared storage. The zero value is not usable; obtain one
// from Manager.AllocBlock/AllocPicture/AllocSound or Buffer.Duplicate.
type Buffer struct {
	mu     sync.Mutex
	layout Layout
	hsize  int
	vsize  int
	planes map[string]*planeView

	openMaps int // outstanding ReadMap/WriteMap calls not yet Unmap'd
}

// Layout reports the buffer's structural shape.
func (b *Buffer) Layout() Layout { return b.layout }

// Dimensions reports picture horizontal/vertical size in pixels (0,0 for
// block and sound buffers, which are sized in bytes/samples instead).
func (b *Buffer) Dimensions() (hsize, vsize int) { return b.hsize, b.vsize }

// Shared reports whether any plane's backing storage has more than one
// owner — i.e. whether a WriteMap on this buffer would trigger a
// copy-on-write clone.
func (b *Buffer) Shared() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, pv := range b.planes {
		if pv.storage.shared() {
			return true
		}
	}
	return false
}

// Size returns the byte length of the given plane ("" for block buffers).
func (b *Buffer) Size(plane string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pv, ok := b.planes[plane]
	if !ok {
		return 0, pipeerr.NewInvalidError("ubuf.size", errUnknownPlane)
	}
	return pv.size, nil
}

// Duplicate returns a new Buffer sharing this one's storage: a second
// view over the same bytes without copying them. Every plane's share
// count is incremented; no bytes move.
func (b *Buffer) Duplicate() *Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	nb := &Buffer{layout: b.layout, hsize: b.hsize, vsize: b.vsize, planes: make(map[string]*planeView, len(b.planes))}
	for name, pv := range b.planes {
		pv.storage.use()
		nb.planes[name] = &planeView{storage: pv.storage, offset: pv.offset, size: pv.size}
	}
	return nb
}

// ReadMap returns a read-only slice of plane[offset:offset+size]. The
// caller must call Unmap exactly once per successful Map call before the
// buffer (or the record owning it) is released.
func (b *Buffer) ReadMap(plane string, offset, size int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pv, ok := b.planes[plane]
	if !ok {
		return nil, pipeerr.NewInvalidError("ubuf.read_map", errUnknownPlane)
	}
	if offset < 0 || size < 0 || offset+size > pv.size {
		return nil, pipeerr.NewInvalidError("ubuf.read_map", errOffsetOutOfRange)
	}
	if err := pv.storage.beginRead(); err != nil {
		return nil, err
	}
	b.openMaps++
	start := pv.offset + offset
	return pv.storage.data[start : start+size : start+size], nil
}

// WriteMap returns a writable slice of plane[offset:offset+size]. If the
// underlying storage is shared with another Buffer (Shared() == true),
// WriteMap first clones it into exclusively-owned storage — the
// copy-on-write step — so the sibling view's bytes are left untouched.
func (b *Buffer) WriteMap(plane string, offset, size int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pv, ok := b.planes[plane]
	if !ok {
		return nil, pipeerr.NewInvalidError("ubuf.write_map", errUnknownPlane)
	}
	if offset < 0 || size < 0 || offset+size > pv.size {
		return nil, pipeerr.NewInvalidError("ubuf.write_map", errOffsetOutOfRange)
	}
	if pv.storage.shared() {
		cloned, err := pv.storage.clone()
		if err != nil {
			return nil, err
		}
		pv.storage.release()
		pv.storage = cloned
	}
	if err := pv.storage.beginWrite(); err != nil {
		return nil, err
	}
	b.openMaps++
	start := pv.offset + offset
	return pv.storage.data[start : start+size : start+size], nil
}

// Unmap releases the most recent ReadMap or WriteMap on plane. isWrite must
// match the kind of the call being closed.
func (b *Buffer) Unmap(plane string, isWrite bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	pv, ok := b.planes[plane]
	if !ok {
		return pipeerr.NewInvalidError("ubuf.unmap", errUnknownPlane)
	}
	if b.openMaps == 0 {
		return pipeerr.NewInvalidError("ubuf.unmap", errOffsetOutOfRange)
	}
	if isWrite {
		pv.storage.endWrite()
	} else {
		pv.storage.endRead()
	}
	b.openMaps--
	return nil
}

// Resize shrinks or grows a block buffer's visible window by skipping
// skip bytes from the front and truncating/extending to newSize total —
// psimerge uses this to drop the pointer_field byte and the trailing
// stuffing from a reassembled PSI section.
func (b *Buffer) Resize(skip, newSize int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.layout.Kind != KindBlock {
		return pipeerr.NewInvalidError("ubuf.resize", errNotBlockBuffer)
	}
	pv := b.planes[blockPlane]
	if skip < 0 || newSize < 0 || skip+newSize > len(pv.storage.data)-pv.offset {
		return pipeerr.NewInvalidError("ubuf.resize", errOffsetOutOfRange)
	}
	pv.offset += skip
	pv.size = newSize
	return nil
}

// Append copies src's block bytes onto the end of b's visible window,
// growing it in place if the backing storage has spare capacity, or by
// reallocating if not. Used by PSI section reassembly to accumulate TS
// payload fragments.
func (b *Buffer) Append(alloc Allocator, src []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.layout.Kind != KindBlock {
		return pipeerr.NewInvalidError("ubuf.append", errNotBlockBuffer)
	}
	pv := b.planes[blockPlane]
	need := pv.offset + pv.size + len(src)
	if need > len(pv.storage.data) {
		ns, err := newStorage(alloc, need)
		if err != nil {
			return err
		}
		copy(ns.data, pv.storage.data[pv.offset:pv.offset+pv.size])
		pv.storage.release()
		pv.storage = ns
		pv.offset = 0
	}
	copy(pv.storage.data[pv.offset+pv.size:], src)
	pv.size += len(src)
	return nil
}

// Peek is a convenience combining ReadMap+copy+Unmap for callers that only
// need to inspect bytes once (e.g. probing the first few bytes of a PSI
// section to read table_id). It never returns a slice aliasing storage.
func (b *Buffer) Peek(plane string, offset, size int) ([]byte, error) {
	data, err := b.ReadMap(plane, offset, size)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, b.Unmap(plane, false)
}
