package upipe

import (
	"sync"
	"testing"
	"time"

	"github.com/alxayo/pipe/internal/pipeline/ubuf"
	"github.com/alxayo/pipe/internal/pipeline/udict"
	"github.com/alxayo/pipe/internal/pipeline/upump"
	"github.com/alxayo/pipe/internal/pipeline/uref"
)

func TestDealGrantsAndReplaysQueuedRecords(t *testing.T) {
	tw := upump.NewTimeWheel(16)
	go tw.Run()
	defer tw.Close()

	registry := NewDealRegistry()
	sink := &SinkHolder{}
	deal := NewDeal(registry, "foreign-lib", sink)

	// Queue a record while the deal is pending.
	sink.Block()
	sink.Hold(uref.New(udict.New()))

	var mu sync.Mutex
	var grantedCount int
	var replayed []*uref.Ref

	done := make(chan struct{})
	err := deal.Start(tw, func() {
		mu.Lock()
		grantedCount++
		mu.Unlock()
	}, func(rec *uref.Ref) {
		mu.Lock()
		replayed = append(replayed, rec)
		mu.Unlock()
		close(done)
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for deal to be granted and replay its queue")
	}

	mu.Lock()
	defer mu.Unlock()
	if grantedCount != 1 {
		t.Fatalf("expected onGranted exactly once, got %d", grantedCount)
	}
	if len(replayed) != 1 {
		t.Fatalf("expected 1 replayed record, got %d", len(replayed))
	}
	if sink.Blocked() {
		t.Fatalf("expected sink to be unblocked after grant")
	}
}

func TestDealAbortFlushesQueueInsteadOfReplaying(t *testing.T) {
	tw := upump.NewTimeWheel(16)
	go tw.Run()
	defer tw.Close()

	registry := NewDealRegistry()
	sink := &SinkHolder{}
	deal := NewDeal(registry, "foreign-lib-2", sink)

	// Hold the named lock externally so the deal can never be granted.
	if !registry.TryAcquire("foreign-lib-2") {
		t.Fatal("expected to acquire the lock externally")
	}

	sink.Block()
	rec := uref.New(udict.New())
	sink.Hold(rec)

	replayCalled := false
	err := deal.Start(tw, func() {}, func(*uref.Ref) { replayCalled = true })
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Give the idler a couple of ticks to confirm it keeps failing to
	// acquire, then abort.
	time.Sleep(20 * time.Millisecond)

	mgr := ubuf.NewManager(ubuf.NewPoolAllocator(nil))
	deal.Abort(mgr)

	if replayCalled {
		t.Fatalf("expected queued record to be flushed, not replayed, after Abort")
	}
	if sink.Blocked() {
		t.Fatalf("expected sink to be unblocked after Abort")
	}
	if sink.Len() != 0 {
		t.Fatalf("expected sink queue drained by Flush, got %d remaining", sink.Len())
	}

	registry.Release("foreign-lib-2")
}
