// Package udict implements the attribute dictionary: a map from a
// (namespace, name) key to a typed value, attached to a record. Keys are
// unique and order carries no meaning.
package udict

import "fmt"

// Kind identifies which field of Value is populated.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindUint
	KindRational
	KindString
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindRational:
		return "rational"
	case KindString:
		return "string"
	case KindOpaque:
		return "opaque"
	default:
		return "invalid"
	}
}

// Rational is a simplified num/den pair used for rate-like quantities
// (frame rate, aspect ratio, playback rate).
type Rational struct {
	Num int64
	Den int64
}

// Simplify reduces r by its GCD, normalizing the sign onto Num. A zero
// denominator is left untouched (callers treat Den==0 as invalid/paused).
func (r Rational) Simplify() Rational {
	if r.Den == 0 {
		return r
	}
	if r.Den < 0 {
		r.Num, r.Den = -r.Num, -r.Den
	}
	g := gcd(abs64(r.Num), r.Den)
	if g > 1 {
		r.Num /= g
		r.Den /= g
	}
	return r
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// Value is a tagged union over the attribute types a dictionary carries:
// bool, signed/unsigned integer, rational, string, opaque bytes.
type Value struct {
	kind Kind
	b    bool
	i    int64
	u    uint64
	r    Rational
	s    string
	o    []byte
}

func BoolValue(v bool) Value         { return Value{kind: KindBool, b: v} }
func IntValue(v int64) Value         { return Value{kind: KindInt, i: v} }
func UintValue(v uint64) Value       { return Value{kind: KindUint, u: v} }
func RationalValue(v Rational) Value { return Value{kind: KindRational, r: v.Simplify()} }
func StringValue(v string) Value     { return Value{kind: KindString, s: v} }

// OpaqueValue copies v so the Dict owns its own storage.
func OpaqueValue(v []byte) Value {
	cp := make([]byte, len(v))
	copy(cp, v)
	return Value{kind: KindOpaque, o: cp}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) Bool() (bool, bool)         { return v.b, v.kind == KindBool }
func (v Value) Int() (int64, bool)         { return v.i, v.kind == KindInt }
func (v Value) Uint() (uint64, bool)       { return v.u, v.kind == KindUint }
func (v Value) Rational() (Rational, bool) { return v.r, v.kind == KindRational }
func (v Value) String() (string, bool)     { return v.s, v.kind == KindString }

// Opaque returns a defensive copy so callers cannot mutate the dict's storage.
func (v Value) Opaque() ([]byte, bool) {
	if v.kind != KindOpaque {
		return nil, false
	}
	cp := make([]byte, len(v.o))
	copy(cp, v.o)
	return cp, true
}

func (v Value) GoString() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprintf("bool(%v)", v.b)
	case KindInt:
		return fmt.Sprintf("int(%d)", v.i)
	case KindUint:
		return fmt.Sprintf("uint(%d)", v.u)
	case KindRational:
		return fmt.Sprintf("rational(%d/%d)", v.r.Num, v.r.Den)
	case KindString:
		return fmt.Sprintf("string(%q)", v.s)
	case KindOpaque:
		return fmt.Sprintf("opaque(%d bytes)", len(v.o))
	default:
		return "invalid"
	}
}

func (v Value) equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindUint:
		return v.u == o.u
	case KindRational:
		return v.r == o.r
	case KindString:
		return v.s == o.s
	case KindOpaque:
		if len(v.o) != len(o.o) {
			return false
		}
		for i := range v.o {
			if v.o[i] != o.o[i] {
				return false
			}
		}
		return true
	default:
		return true
	}
}
