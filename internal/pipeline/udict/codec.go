package udict

// Dump/Load encode a Dict to a small self-describing byte format
// (RoundTrip runs one through both for the dict tests). The shape — a
// leading marker byte
// per value dispatching to a type-specific encoder/decoder — mirrors the
// AMF0 marker-dispatch convention (encode one value at a time, decode by
// reading the marker then branching), repointed at namespaced keys instead
// of positional values.

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	pipeerr "github.com/alxayo/pipe/internal/errors"
)

const (
	markerBool     = 0x01
	markerInt      = 0x02
	markerUint     = 0x03
	markerRational = 0x04
	markerString   = 0x05
	markerOpaque   = 0x06
)

// Dump encodes every entry of d to w in an unspecified but stable-per-call
// order: namespace, name, marker byte, then the type-specific payload.
func Dump(w io.Writer, d *Dict) error {
	for k, v := range d.entries {
		if err := writeString(w, k.Namespace); err != nil {
			return pipeerr.NewInvalidError("udict.dump.namespace", err)
		}
		if err := writeString(w, k.Name); err != nil {
			return pipeerr.NewInvalidError("udict.dump.name", err)
		}
		if err := encodeValue(w, v); err != nil {
			return pipeerr.NewInvalidError("udict.dump.value", fmt.Errorf("%s.%s: %w", k.Namespace, k.Name, err))
		}
	}
	return nil
}

// Load decodes a byte stream produced by Dump into a fresh Dict.
func Load(r io.Reader) (*Dict, error) {
	d := New()
	for {
		ns, err := readString(r)
		if err != nil {
			if err == io.EOF {
				return d, nil
			}
			return nil, pipeerr.NewInvalidError("udict.load.namespace", err)
		}
		name, err := readString(r)
		if err != nil {
			return nil, pipeerr.NewInvalidError("udict.load.name", err)
		}
		v, err := decodeValue(r)
		if err != nil {
			return nil, pipeerr.NewInvalidError("udict.load.value", fmt.Errorf("%s.%s: %w", ns, name, err))
		}
		d.entries[Key{ns, name}] = v
	}
}

func encodeValue(w io.Writer, v Value) error {
	switch v.kind {
	case KindBool:
		var b byte
		if v.b {
			b = 1
		}
		_, err := w.Write([]byte{markerBool, b})
		return err
	case KindInt:
		var buf [9]byte
		buf[0] = markerInt
		binary.BigEndian.PutUint64(buf[1:], uint64(v.i))
		_, err := w.Write(buf[:])
		return err
	case KindUint:
		var buf [9]byte
		buf[0] = markerUint
		binary.BigEndian.PutUint64(buf[1:], v.u)
		_, err := w.Write(buf[:])
		return err
	case KindRational:
		var buf [17]byte
		buf[0] = markerRational
		binary.BigEndian.PutUint64(buf[1:9], uint64(v.r.Num))
		binary.BigEndian.PutUint64(buf[9:17], uint64(v.r.Den))
		_, err := w.Write(buf[:])
		return err
	case KindString:
		if _, err := w.Write([]byte{markerString}); err != nil {
			return err
		}
		return writeString(w, v.s)
	case KindOpaque:
		if _, err := w.Write([]byte{markerOpaque}); err != nil {
			return err
		}
		return writeBytes(w, v.o)
	default:
		return fmt.Errorf("unsupported value kind %v", v.kind)
	}
}

func decodeValue(r io.Reader) (Value, error) {
	var marker [1]byte
	if _, err := io.ReadFull(r, marker[:]); err != nil {
		return Value{}, err
	}
	switch marker[0] {
	case markerBool:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return Value{}, err
		}
		return BoolValue(b[0] != 0), nil
	case markerInt:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return Value{}, err
		}
		return IntValue(int64(binary.BigEndian.Uint64(buf[:]))), nil
	case markerUint:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return Value{}, err
		}
		return UintValue(binary.BigEndian.Uint64(buf[:])), nil
	case markerRational:
		var buf [16]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return Value{}, err
		}
		num := int64(binary.BigEndian.Uint64(buf[0:8]))
		den := int64(binary.BigEndian.Uint64(buf[8:16]))
		return RationalValue(Rational{Num: num, Den: den}), nil
	case markerString:
		s, err := readString(r)
		if err != nil {
			return Value{}, err
		}
		return StringValue(s), nil
	case markerOpaque:
		b, err := readBytes(r)
		if err != nil {
			return Value{}, err
		}
		return OpaqueValue(b), nil
	default:
		return Value{}, fmt.Errorf("unsupported marker 0x%02x", marker[0])
	}
}

func writeString(w io.Writer, s string) error { return writeBytes(w, []byte(s)) }

func readString(r io.Reader) (string, error) {
	b, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeBytes(w io.Writer, b []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// RoundTrip is a test helper exercising Dump followed by Load.
func RoundTrip(d *Dict) (*Dict, error) {
	var buf bytes.Buffer
	if err := Dump(&buf, d); err != nil {
		return nil, err
	}
	return Load(&buf)
}
