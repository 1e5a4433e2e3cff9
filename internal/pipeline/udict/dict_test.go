package udict

import "testing"

func TestSetGetDelete(t *testing.T) {
	d := New()
	d.Set("pic", "hsize", UintValue(1920))
	v, ok := d.Get("pic", "hsize")
	if !ok {
		t.Fatalf("expected hsize present")
	}
	u, ok := v.Uint()
	if !ok || u != 1920 {
		t.Fatalf("expected 1920, got %d ok=%v", u, ok)
	}
	d.Delete("pic", "hsize")
	if _, ok := d.Get("pic", "hsize"); ok {
		t.Fatalf("expected hsize deleted")
	}
}

func TestDuplicateIndependence(t *testing.T) {
	d := New()
	d.SetFlowDef("pic.")
	cp := d.Duplicate()
	cp.SetFlowDef("sound.")

	orig, _ := d.GetFlowDef()
	dup, _ := cp.GetFlowDef()
	if orig != "pic." {
		t.Fatalf("original mutated: %s", orig)
	}
	if dup != "sound." {
		t.Fatalf("duplicate not updated: %s", dup)
	}
}

func TestEqualRoundTrip(t *testing.T) {
	d := New()
	d.SetFlowDef("block.mpegtspsi.")
	d.SetDiscontinuity(true)
	d.SetPicFrameRate(Rational{Num: 50, Den: 2}) // simplifies to 25/1
	d.SetBlockHeader([]byte{0xde, 0xad, 0xbe, 0xef})

	cp := d.Duplicate()
	if !d.Equal(cp) {
		t.Fatalf("expected duplicate to equal original")
	}

	rt, err := RoundTrip(d)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if !d.Equal(rt) {
		t.Fatalf("expected round-tripped dict to equal original")
	}

	fr, _ := rt.Get("pic", "fps")
	rat, ok := fr.Rational()
	if !ok || rat.Num != 25 || rat.Den != 1 {
		t.Fatalf("expected simplified 25/1, got %+v ok=%v", rat, ok)
	}
}

func TestRationalSimplify(t *testing.T) {
	r := Rational{Num: -6, Den: -4}.Simplify()
	if r.Num != 3 || r.Den != 2 {
		t.Fatalf("expected 3/2, got %d/%d", r.Num, r.Den)
	}
	r2 := Rational{Num: 1, Den: 2}.Simplify()
	if r2.Num != 1 || r2.Den != 2 {
		t.Fatalf("expected 1/2 unchanged, got %d/%d", r2.Num, r2.Den)
	}
}

func TestNotEqualDifferentLen(t *testing.T) {
	a := New()
	a.SetFlowDef("pic.")
	b := New()
	b.SetFlowDef("pic.")
	b.SetDiscontinuity(true)
	if a.Equal(b) {
		t.Fatalf("expected unequal dicts with different key counts")
	}
}
