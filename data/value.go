package data

import (
	"encoding/binary"
	"fmt"
	"math"
)

// A Value is a tagged container holding a payload whose shape matches exactly
// one Descriptor. The backing storage belongs to the Value alone; crossing a
// connection always hands over a copy, never a mutable alias.
type Value struct {
	desc    Descriptor
	scalar  uint64 // bit pattern for scalar kinds
	seq     []float64
	iseq    []int64
	raw     []byte
	present bool
}

// New builds a Value from a Go payload, validating its shape against the
// descriptor. Accepted payload types per kind: bool, int/int64, uint64,
// float32/float64, []float64, []int64 and []byte.
func New(desc Descriptor, payload interface{}) (Value, error) {
	v := Value{desc: desc, present: true}
	switch p := payload.(type) {
	case bool:
		if desc.Kind != Bool {
			return Value{}, shapeErr(desc, payload)
		}
		if p {
			v.scalar = 1
		}
	case int:
		return New(desc, int64(p))
	case int64:
		if desc.Kind != Int || desc.Arity != Scalar {
			return Value{}, shapeErr(desc, payload)
		}
		v.scalar = uint64(p)
	case uint64:
		if desc.Kind != Uint || desc.Arity != Scalar {
			return Value{}, shapeErr(desc, payload)
		}
		v.scalar = p
	case float32:
		return New(desc, float64(p))
	case float64:
		if desc.Kind != Float || desc.Arity != Scalar {
			return Value{}, shapeErr(desc, payload)
		}
		v.scalar = math.Float64bits(p)
	case []float64:
		if desc.Kind != Float || desc.Arity == Scalar {
			return Value{}, shapeErr(desc, payload)
		}
		if desc.Arity == Vector && len(p) != desc.Len {
			return Value{}, MalformedValueError{desc.TypeID, desc.Len * desc.ElemBytes(), len(p) * desc.ElemBytes()}
		}
		v.seq = append([]float64(nil), p...)
	case []int64:
		if desc.Kind != Int || desc.Arity == Scalar {
			return Value{}, shapeErr(desc, payload)
		}
		if desc.Arity == Vector && len(p) != desc.Len {
			return Value{}, MalformedValueError{desc.TypeID, desc.Len * desc.ElemBytes(), len(p) * desc.ElemBytes()}
		}
		v.iseq = append([]int64(nil), p...)
	case []byte:
		if desc.Kind != Bytes {
			return Value{}, shapeErr(desc, payload)
		}
		if err := desc.Fits(len(p)); err != nil {
			return Value{}, err
		}
		v.raw = append([]byte(nil), p...)
	default:
		return Value{}, shapeErr(desc, payload)
	}
	return v, nil
}

// MustNew is New for payloads known to be well-shaped, such as block-internal
// constants. It panics on a shape mismatch.
func MustNew(desc Descriptor, payload interface{}) Value {
	v, err := New(desc, payload)
	if err != nil {
		panic(err)
	}
	return v
}

func shapeErr(desc Descriptor, payload interface{}) error {
	return fmt.Errorf("payload %T does not fit descriptor '%s'", payload, desc.TypeID)
}

// Descriptor returns the descriptor describing this value's shape.
func (v Value) Descriptor() Descriptor { return v.desc }

// IsZero reports whether the Value is the empty Value.
func (v Value) IsZero() bool { return !v.present }

// Bool returns the payload of a bool scalar.
func (v Value) Bool() bool { return v.scalar != 0 }

// Int returns the payload of a signed integer scalar.
func (v Value) Int() int64 { return int64(v.scalar) }

// Uint returns the payload of an unsigned integer scalar.
func (v Value) Uint() uint64 { return v.scalar }

// Float returns the payload of a float scalar, widened to float64.
func (v Value) Float() float64 { return math.Float64frombits(v.scalar) }

// Floats returns the payload of a float vector or sequence.
func (v Value) Floats() []float64 { return v.seq }

// Ints returns the payload of an integer vector or sequence.
func (v Value) Ints() []int64 { return v.iseq }

// Bytes returns the payload of a byte sequence.
func (v Value) Bytes() []byte { return v.raw }

// Clone returns an independent deep copy. Fan-out delivery clones per target
// so no receiving block can observe another receiver's mutations.
func (v Value) Clone() Value {
	c := v
	if v.seq != nil {
		c.seq = append([]float64(nil), v.seq...)
	}
	if v.iseq != nil {
		c.iseq = append([]int64(nil), v.iseq...)
	}
	if v.raw != nil {
		c.raw = append([]byte(nil), v.raw...)
	}
	return c
}

// FromBytes decodes a little-endian raw payload arriving from outside the
// process (network frame, foreign module) after validating its length
// against the descriptor.
func FromBytes(desc Descriptor, raw []byte) (Value, error) {
	if err := desc.Fits(len(raw)); err != nil {
		return Value{}, err
	}
	v := Value{desc: desc, present: true}
	switch desc.Kind {
	case Bytes:
		v.raw = append([]byte(nil), raw...)
	case Bool:
		v.scalar = uint64(raw[0] & 1)
	default:
		if desc.Arity == Scalar {
			v.scalar = widen(desc, raw)
			return v, nil
		}
		elem := desc.ElemBytes()
		n := len(raw) / elem
		if desc.Kind == Float {
			v.seq = make([]float64, n)
			for i := 0; i < n; i++ {
				bits := widen(desc, raw[i*elem:])
				v.seq[i] = math.Float64frombits(bits)
			}
		} else {
			v.iseq = make([]int64, n)
			for i := 0; i < n; i++ {
				v.iseq[i] = int64(widen(desc, raw[i*elem:]))
			}
		}
	}
	return v, nil
}

// widen reads one little-endian element and widens it to the 64-bit internal
// representation used by Value.
func widen(desc Descriptor, raw []byte) uint64 {
	switch desc.Width {
	case 8:
		u := uint64(raw[0])
		if desc.Kind == Int {
			return uint64(int64(int8(u)))
		}
		return u
	case 16:
		u := uint64(binary.LittleEndian.Uint16(raw))
		if desc.Kind == Int {
			return uint64(int64(int16(u)))
		}
		return u
	case 32:
		u := uint64(binary.LittleEndian.Uint32(raw))
		switch desc.Kind {
		case Int:
			return uint64(int64(int32(u)))
		case Float:
			return math.Float64bits(float64(math.Float32frombits(uint32(u))))
		}
		return u
	default:
		u := binary.LittleEndian.Uint64(raw)
		return u
	}
}

// AppendTo appends the value's little-endian wire encoding to dst. It is the
// inverse of FromBytes.
func (v Value) AppendTo(dst []byte) []byte {
	d := v.desc
	switch d.Kind {
	case Bytes:
		return append(dst, v.raw...)
	case Bool:
		return append(dst, byte(v.scalar&1))
	}
	if d.Arity == Scalar {
		return appendElem(dst, d, v.scalar)
	}
	if d.Kind == Float {
		for _, f := range v.seq {
			dst = appendElem(dst, d, math.Float64bits(f))
		}
		return dst
	}
	for _, i := range v.iseq {
		dst = appendElem(dst, d, uint64(i))
	}
	return dst
}

func appendElem(dst []byte, d Descriptor, bits uint64) []byte {
	switch d.Width {
	case 8:
		return append(dst, byte(bits))
	case 16:
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(bits))
		return append(dst, b[:]...)
	case 32:
		if d.Kind == Float {
			bits = uint64(math.Float32bits(float32(math.Float64frombits(bits))))
		}
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(bits))
		return append(dst, b[:]...)
	default:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], bits)
		return append(dst, b[:]...)
	}
}
