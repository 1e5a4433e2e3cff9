package uref

import "math"

// Unset is the reserved "no value" sentinel for every 27MHz timestamp and
// delta field on a Ref, matching UINT64_MAX's role in libupipe's uclock.
const Unset uint64 = math.MaxUint64

// Clock selects one of the three timelines a timestamp can be expressed
// on: "orig" (as received), "prog" (program timeline), "sys" (system
// timeline).
type Clock uint8

const (
	ClockOrig Clock = iota
	ClockProg
	ClockSys
)

// TimeSet holds a record's time coordinates: PTS and DTS on each of the
// three timelines, plus the dts-pts and cr-dts delays. RebasePTSFromDTS
// uses the dts-pts delay to derive a PTS from a DTS on the same
// timeline; nothing here converts a timestamp from one timeline to
// another. The zero value holds 0 in every field, not Unset; use
// NewTimeSet for an all-Unset TimeSet.
type TimeSet struct {
	pts [3]uint64
	dts [3]uint64

	dtsPtsDelay uint64
	crDtsDelay  uint64
}

// NewTimeSet returns a TimeSet with every field set to Unset.
func NewTimeSet() TimeSet {
	return TimeSet{
		pts:         [3]uint64{Unset, Unset, Unset},
		dts:         [3]uint64{Unset, Unset, Unset},
		dtsPtsDelay: Unset,
		crDtsDelay:  Unset,
	}
}

func (t *TimeSet) SetPTS(c Clock, v uint64) { t.pts[c] = v }
func (t *TimeSet) PTS(c Clock) (uint64, bool) {
	v := t.pts[c]
	return v, v != Unset
}

func (t *TimeSet) SetDTS(c Clock, v uint64) { t.dts[c] = v }
func (t *TimeSet) DTS(c Clock) (uint64, bool) {
	v := t.dts[c]
	return v, v != Unset
}

func (t *TimeSet) SetDTSPTSDelay(v uint64) { t.dtsPtsDelay = v }
func (t *TimeSet) DTSPTSDelay() (uint64, bool) {
	return t.dtsPtsDelay, t.dtsPtsDelay != Unset
}

func (t *TimeSet) SetCRDTSDelay(v uint64) { t.crDtsDelay = v }
func (t *TimeSet) CRDTSDelay() (uint64, bool) {
	return t.crDtsDelay, t.crDtsDelay != Unset
}

// RebasePTSFromDTS derives a PTS on clock c from the DTS already present
// on the same clock plus the stored dts-pts delay, when the PTS itself
// isn't already known. Returns ok=false if either input is unset.
func (t *TimeSet) RebasePTSFromDTS(c Clock) (uint64, bool) {
	if v, ok := t.PTS(c); ok {
		return v, true
	}
	d, ok := t.DTS(c)
	if !ok {
		return 0, false
	}
	delay, ok := t.DTSPTSDelay()
	if !ok {
		return 0, false
	}
	return d + delay, true
}

// Duplicate returns an independent copy (TimeSet is a plain value type,
// so this is just `v := *t`, exposed as a method for call-site symmetry
// with Ref.Duplicate and udict.Dict.Duplicate).
func (t TimeSet) Duplicate() TimeSet { return t }
