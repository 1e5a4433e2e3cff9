package ubuf

import (
	"fmt"
	"os"

	mmap "github.com/edsrzf/mmap-go"

	pipeerr "github.com/alxayo/pipe/internal/errors"
)

// MmapAllocator backs large buffers (full I-frames, long PSI tables spread
// across many sections, capture-card ring slots) with a file-mapped
// region instead of a pooled heap slice, so the process's resident set
// stays flat under bursty allocation instead of growing the Go heap.
// Each Alloc creates and immediately unlinks a temp file, maps it, and
// hands back the mapped slice; Free unmaps it.
type MmapAllocator struct {
	dir      string
	mappings map[*byte]mmap.MMap
}

// NewMmapAllocator creates an allocator that stages its backing files in
// dir (os.TempDir() if empty).
func NewMmapAllocator(dir string) *MmapAllocator {
	if dir == "" {
		dir = os.TempDir()
	}
	return &MmapAllocator{dir: dir, mappings: make(map[*byte]mmap.MMap)}
}

func (a *MmapAllocator) Alloc(size int) ([]byte, error) {
	f, err := os.CreateTemp(a.dir, "pipe-ubuf-*")
	if err != nil {
		return nil, pipeerr.NewOutOfMemoryError("ubuf.mmap.create_temp", err)
	}
	defer f.Close()
	// Unlinking now means the kernel reclaims the backing file the moment
	// every mapping of it (including this one) is closed.
	defer os.Remove(f.Name())

	if err := f.Truncate(int64(size)); err != nil {
		return nil, pipeerr.NewOutOfMemoryError("ubuf.mmap.truncate", err)
	}
	if size == 0 {
		return nil, nil
	}
	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		return nil, pipeerr.NewOutOfMemoryError("ubuf.mmap.map", err)
	}
	a.mappings[&m[0]] = m
	return []byte(m), nil
}

func (a *MmapAllocator) Free(buf []byte) {
	if len(buf) == 0 {
		return
	}
	key := &buf[0]
	m, ok := a.mappings[key]
	if !ok {
		return
	}
	delete(a.mappings, key)
	if err := m.Unmap(); err != nil {
		// Nothing actionable to do with an unmap failure at free time;
		// surfacing it would require Free to return an error, which no
		// caller in this module is prepared to act on.
		_ = fmt.Errorf("ubuf: unmap failed: %w", err)
	}
}
