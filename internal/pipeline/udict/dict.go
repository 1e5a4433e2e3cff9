package udict

// Key identifies an attribute by (namespace, name), e.g. ("pic", "hsize")
// or ("flow", "def"). Namespace groups the per-kind setter families below
// (picture format, block format, sound format, clock, flow), the same
// grouping libupipe's uref_pic/uref_block/uref_sound/uref_clock/uref_flow
// accessor families use.
type Key struct {
	Namespace string
	Name      string
}

// Dict is an unordered map of unique keys to typed values. The zero value
// is not usable; construct with New.
type Dict struct {
	entries map[Key]Value
}

// New creates an empty dictionary.
func New() *Dict {
	return &Dict{entries: make(map[Key]Value)}
}

// Set stores or overwrites the value for key.
func (d *Dict) Set(ns, name string, v Value) {
	d.entries[Key{ns, name}] = v
}

// Get retrieves the value for key; ok is false if absent.
func (d *Dict) Get(ns, name string) (Value, bool) {
	v, ok := d.entries[Key{ns, name}]
	return v, ok
}

// Delete removes key if present; no-op otherwise.
func (d *Dict) Delete(ns, name string) {
	delete(d.entries, Key{ns, name})
}

// Len returns the number of attributes stored.
func (d *Dict) Len() int { return len(d.entries) }

// Duplicate deep-copies the dictionary at the call; there is no
// copy-on-write at the dict level. uref.Ref.Duplicate calls it eagerly,
// so every duplicated record owns its own copy from the start.
func (d *Dict) Duplicate() *Dict {
	cp := New()
	for k, v := range d.entries {
		cp.entries[k] = v
	}
	return cp
}

// Equal reports whether d and o have identical key sets and values — used
// to confirm a dictionary survives a duplicate/encode/decode round trip
// unchanged.
func (d *Dict) Equal(o *Dict) bool {
	if d == nil || o == nil {
		return d == o
	}
	if len(d.entries) != len(o.entries) {
		return false
	}
	for k, v := range d.entries {
		ov, ok := o.entries[k]
		if !ok || !v.equal(ov) {
			return false
		}
	}
	return true
}

// Keys returns a snapshot of every key currently stored. Order is
// unspecified (map iteration order); no caller depends on attribute
// order.
func (d *Dict) Keys() []Key {
	out := make([]Key, 0, len(d.entries))
	for k := range d.entries {
		out = append(out, k)
	}
	return out
}

// Typed accessor families, grouped per namespace.

// The typed setters/getters below are thin wrappers kept for call-site readability;
// every stage in this module uses these rather than raw Set/Get so a typo
// in a namespace string can't silently create a new attribute slot.

func (d *Dict) SetFlowDef(def string)        { d.Set("flow", "def", StringValue(def)) }
func (d *Dict) GetFlowDef() (string, bool)   { v, ok := d.Get("flow", "def"); return v.unwrapString(ok) }
func (d *Dict) SetDiscontinuity(v bool)      { d.Set("flow", "discontinuity", BoolValue(v)) }
func (d *Dict) GetDiscontinuity() bool       { v, _ := d.Get("flow", "discontinuity"); b, _ := v.Bool(); return b }
func (d *Dict) SetRandomAccess(v bool)       { d.Set("flow", "random_access", BoolValue(v)) }
func (d *Dict) GetRandomAccess() bool        { v, _ := d.Get("flow", "random_access"); b, _ := v.Bool(); return b }

func (d *Dict) SetPicHSize(v uint64)         { d.Set("pic", "hsize", UintValue(v)) }
func (d *Dict) SetPicVSize(v uint64)         { d.Set("pic", "vsize", UintValue(v)) }
func (d *Dict) SetPicFrameRate(v Rational)   { d.Set("pic", "fps", RationalValue(v)) }
func (d *Dict) SetPicAspect(v Rational)      { d.Set("pic", "aspect", RationalValue(v)) }

func (d *Dict) SetSoundRate(v uint64)        { d.Set("sound", "rate", UintValue(v)) }
func (d *Dict) SetSoundChannels(v uint64)    { d.Set("sound", "channels", UintValue(v)) }
func (d *Dict) SetSoundSampleSize(v uint64)  { d.Set("sound", "samplesize", UintValue(v)) }

func (d *Dict) SetBlockSize(v uint64)        { d.Set("block", "size", UintValue(v)) }
func (d *Dict) SetBlockHeader(v []byte)      { d.Set("block", "header", OpaqueValue(v)) }
func (d *Dict) SetBlockStart(v bool)         { d.Set("block", "start", BoolValue(v)) }
func (d *Dict) GetBlockStart() bool          { v, _ := d.Get("block", "start"); b, _ := v.Bool(); return b }

func (d *Dict) SetClockRate(v Rational)      { d.Set("clock", "rate", RationalValue(v)) }
func (d *Dict) GetClockRate() (Rational, bool)  { v, _ := d.Get("clock", "rate"); return v.Rational() }
func (d *Dict) SetClockLatency(v uint64)     { d.Set("clock", "latency", UintValue(v)) }

func (v Value) unwrapString(ok bool) (string, bool) {
	if !ok {
		return "", false
	}
	return v.String()
}
