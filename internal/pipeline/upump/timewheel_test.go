package upump

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerPumpFires(t *testing.T) {
	tw := NewTimeWheel(8)
	go tw.Run()
	defer tw.Close()

	var fired atomic.Int32
	p, err := tw.AllocTimer(5*time.Millisecond, func() { fired.Add(1) })
	if err != nil {
		t.Fatalf("alloc_timer: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.Free()

	deadline := time.Now().Add(200 * time.Millisecond)
	for fired.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if fired.Load() == 0 {
		t.Fatalf("expected timer pump to fire at least once")
	}
}

func TestTimerPumpBlockSuppressesCallback(t *testing.T) {
	tw := NewTimeWheel(8)
	go tw.Run()
	defer tw.Close()

	var fired atomic.Int32
	p, _ := tw.AllocTimer(2*time.Millisecond, func() { fired.Add(1) })
	p.Block()
	_ = p.Start()
	defer p.Free()

	time.Sleep(30 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatalf("expected blocked timer pump not to fire, fired %d times", fired.Load())
	}

	p.Unblock()
	deadline := time.Now().Add(200 * time.Millisecond)
	for fired.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if fired.Load() == 0 {
		t.Fatalf("expected timer pump to fire after unblock")
	}
}

func TestIdlerPumpFires(t *testing.T) {
	tw := NewTimeWheel(8)
	go tw.Run()
	defer tw.Close()

	var fired atomic.Int32
	p, err := tw.AllocIdler(func() { fired.Add(1) })
	if err != nil {
		t.Fatalf("alloc_idler: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.Free()

	deadline := time.Now().Add(200 * time.Millisecond)
	for fired.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if fired.Load() == 0 {
		t.Fatalf("expected idler pump to fire at least once")
	}
}

func TestAllocNilCallbackRejected(t *testing.T) {
	tw := NewTimeWheel(8)
	if _, err := tw.AllocTimer(time.Millisecond, nil); err == nil {
		t.Fatalf("expected error allocating timer with nil callback")
	}
	if _, err := tw.AllocIdler(nil); err == nil {
		t.Fatalf("expected error allocating idler with nil callback")
	}
}
