package upump

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	pipeerr "github.com/alxayo/pipe/internal/errors"
)

// FSWatch is a Manager whose distinguishing pump kind watches filesystem
// paths for create/write events via github.com/fsnotify/fsnotify, used
// in place of AllocFDRead/AllocFDWrite on backends where raw fd
// readiness isn't the natural primitive. Timer and idler pumps
// are delegated to an embedded TimeWheel so every Manager still answers
// the full interface the framework expects from a pump factory.
type FSWatch struct {
	*TimeWheel
	watcher *fsnotify.Watcher
}

// NewFSWatch creates an FSWatch manager. Call Run to drive both its own
// watch loop and the embedded TimeWheel's timer/idler loop.
func NewFSWatch(queueDepth int) (*FSWatch, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, pipeerr.NewExternalError("upump.fswatch.new_watcher", err)
	}
	return &FSWatch{TimeWheel: NewTimeWheel(queueDepth), watcher: w}, nil
}

// AllocFDRead is unsupported by this backend; FSWatch watches paths, not
// raw descriptors. Callers on this reactor should use AllocPathWatch.
func (fw *FSWatch) AllocFDRead(fd uintptr, cb Callback) (Pump, error) {
	return nil, pipeerr.NewUnhandledError("upump.fswatch.alloc_fd_read", errFDUnsupported)
}

// AllocFDWrite is unsupported for the same reason as AllocFDRead.
func (fw *FSWatch) AllocFDWrite(fd uintptr, cb Callback) (Pump, error) {
	return nil, pipeerr.NewUnhandledError("upump.fswatch.alloc_fd_write", errFDUnsupported)
}

// pathPump is a pump whose "ready" condition is an fsnotify event on a
// watched path matching one of ops.
type pathPump struct {
	fw      *FSWatch
	path    string
	ops     fsnotify.Op
	cb      Callback
	blocked bool
	started bool
}

// AllocPathWatch arms a pump that fires cb whenever fsnotify reports one
// of ops on path (e.g. fsnotify.Create for a directory used as a file-
// drop source stage). Dispatch backs off after a transient
// fsnotify.Errors event with the same reconnect-with-backoff shape the
// teacher's relay manager uses for its upstream connection.
func (fw *FSWatch) AllocPathWatch(path string, ops fsnotify.Op, cb Callback) (Pump, error) {
	if cb == nil {
		return nil, pipeerr.NewInvalidError("upump.fswatch.alloc_path_watch", errNilCallback)
	}
	return &pathPump{fw: fw, path: path, ops: ops, cb: cb}, nil
}

func (p *pathPump) Start() error {
	if err := p.fw.watcher.Add(p.path); err != nil {
		return pipeerr.NewExternalError("upump.fswatch.add", err)
	}
	p.started = true
	return nil
}

func (p *pathPump) Stop() error {
	if !p.started {
		return nil
	}
	p.started = false
	return p.fw.watcher.Remove(p.path)
}

func (p *pathPump) Block()   { p.blocked = true }
func (p *pathPump) Unblock() { p.blocked = false }
func (p *pathPump) Free()    { _ = p.Stop() }

// matches reports whether ev pertains to this pump's path (the path
// itself or, for a watched directory, an entry directly inside it) and
// carries one of the pump's ops.
func (p *pathPump) matches(ev fsnotify.Event) bool {
	if ev.Op&p.ops == 0 {
		return false
	}
	return ev.Name == p.path || filepath.Dir(ev.Name) == filepath.Clean(p.path)
}

// Dispatch reads fsnotify.Watcher events and posts matching pumps'
// callbacks onto the shared TimeWheel queue. After each error the
// watcher reports it sleeps (50ms, doubling up to 5s) and keeps reading;
// the watch itself is not re-added. Run this in a supervised goroutine
// (see Supervisor).
func (fw *FSWatch) Dispatch(pumps []*pathPump) {
	backoff := 50 * time.Millisecond
	const maxBackoff = 5 * time.Second
	for {
		select {
		case ev, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			backoff = 50 * time.Millisecond
			for _, p := range pumps {
				if p.started && !p.blocked && p.matches(ev) {
					fw.post(p.cb)
				}
			}
		case _, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			time.Sleep(backoff)
			if backoff < maxBackoff {
				backoff *= 2
			}
		case <-fw.done:
			return
		}
	}
}

// Close shuts down the fsnotify watcher and the embedded TimeWheel.
func (fw *FSWatch) Close() {
	_ = fw.watcher.Close()
	fw.TimeWheel.Close()
}
