// Package ubuf implements the shared, reference-counted media buffer,
// libupipe's ubuf. Two structural variants are supported over one
// ref-counted storage type:
// block (one contiguous byte range) and planar (picture/sound, multiple
// named planes each with its own stride / subsampling / sample size).
package ubuf

import (
	"sync/atomic"

	pipeerr "github.com/alxayo/pipe/internal/errors"
)

// Allocator is the pluggable memory source behind a Manager. The
// default is internal/bufpool-backed;
// ubuf/mmap_allocator.go provides a file-mapped alternative.
type Allocator interface {
	Alloc(size int) ([]byte, error)
	Free(buf []byte)
}

// storage is one ref-counted arena of bytes. Several Buffer views
// (duplicates) may point at the same storage; no byte of it may be
// write-mapped while shareCount() > 1.
type storage struct {
	alloc      Allocator
	data       []byte
	shareCount atomic.Int32
	readers    atomic.Int32
	writer     atomic.Bool
}

func newStorage(alloc Allocator, size int) (*storage, error) {
	buf, err := alloc.Alloc(size)
	if err != nil {
		return nil, pipeerr.NewOutOfMemoryError("ubuf.storage.alloc", err)
	}
	s := &storage{alloc: alloc, data: buf}
	s.shareCount.Store(1)
	return s, nil
}

func (s *storage) use() { s.shareCount.Add(1) }

// release drops one reference; frees the backing storage on last release.
func (s *storage) release() {
	if s.shareCount.Add(-1) == 0 {
		s.alloc.Free(s.data)
		s.data = nil
	}
}

func (s *storage) shared() bool { return s.shareCount.Load() > 1 }

// clone copies this storage's bytes into a brand-new, exclusively-owned
// storage — the copy-on-write operation triggered by WriteMap when
// shareCount() > 1.
func (s *storage) clone() (*storage, error) {
	ns, err := newStorage(s.alloc, len(s.data))
	if err != nil {
		return nil, err
	}
	copy(ns.data, s.data)
	return ns, nil
}

func (s *storage) beginRead() error {
	if s.writer.Load() {
		return pipeerr.NewInvalidError("ubuf.read_map", errAlreadyWriteMapped)
	}
	s.readers.Add(1)
	return nil
}

func (s *storage) endRead() { s.readers.Add(-1) }

func (s *storage) beginWrite() error {
	if s.readers.Load() > 0 {
		return pipeerr.NewInvalidError("ubuf.write_map", errAlreadyReadMapped)
	}
	if !s.writer.CompareAndSwap(false, true) {
		return pipeerr.NewInvalidError("ubuf.write_map", errAlreadyWriteMapped)
	}
	return nil
}

func (s *storage) endWrite() { s.writer.Store(false) }
