package upump

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestFSWatchFiresOnCreate(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFSWatch(8)
	if err != nil {
		t.Fatalf("new fswatch: %v", err)
	}
	defer fw.Close()
	go fw.Run()

	var fired atomic.Int32
	p, err := fw.AllocPathWatch(dir, fsnotify.Create, func() { fired.Add(1) })
	if err != nil {
		t.Fatalf("alloc_path_watch: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.Free()

	go fw.Dispatch([]*pathPump{p.(*pathPump)})

	if err := os.WriteFile(filepath.Join(dir, "new.ts"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for fired.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if fired.Load() == 0 {
		t.Fatalf("expected path watch pump to fire on file creation")
	}
}

func TestFSWatchRejectsFDPumps(t *testing.T) {
	fw, err := NewFSWatch(8)
	if err != nil {
		t.Fatalf("new fswatch: %v", err)
	}
	defer fw.Close()

	if _, err := fw.AllocFDRead(0, func() {}); err == nil {
		t.Fatalf("expected AllocFDRead to be rejected by FSWatch")
	}
	if _, err := fw.AllocFDWrite(1, func() {}); err == nil {
		t.Fatalf("expected AllocFDWrite to be rejected by FSWatch")
	}
}
