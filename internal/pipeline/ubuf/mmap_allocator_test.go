package ubuf

import "testing"

func TestMmapAllocatorRoundTrip(t *testing.T) {
	a := NewMmapAllocator("")
	buf, err := a.Alloc(4096)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if len(buf) != 4096 {
		t.Fatalf("expected 4096 bytes, got %d", len(buf))
	}
	buf[0] = 0xaa
	buf[4095] = 0xbb
	a.Free(buf)
}

func TestMmapBackedManagerBlock(t *testing.T) {
	m := NewManager(NewMmapAllocator(""))
	b, err := m.AllocBlock(1024)
	if err != nil {
		t.Fatalf("alloc block: %v", err)
	}
	w, err := b.WriteMap(blockPlane, 0, 1024)
	if err != nil {
		t.Fatalf("write_map: %v", err)
	}
	for i := range w {
		w[i] = byte(i)
	}
	if err := b.Unmap(blockPlane, true); err != nil {
		t.Fatalf("unmap: %v", err)
	}
	r, err := b.ReadMap(blockPlane, 0, 1024)
	if err != nil {
		t.Fatalf("read_map: %v", err)
	}
	for i, v := range r {
		if v != byte(i) {
			t.Fatalf("byte %d = %d, want %d", i, v, byte(i))
		}
	}
	_ = b.Unmap(blockPlane, false)
}
