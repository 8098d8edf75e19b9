// Package data provides the self-describing value representation exchanged
// at block boundaries. Descriptors describe the shape of a value and are
// compared structurally, never by identity, because the two sides of a
// connection may have been compiled into different modules.
package data

import (
	"fmt"
	"sync"
)

// Kind enumerates the primitive kinds a Descriptor can describe.
type Kind uint8

const (
	// Bool is a single true/false flag.
	Bool Kind = iota + 1
	// Int is a signed integer of Descriptor.Width bits.
	Int
	// Uint is an unsigned integer of Descriptor.Width bits.
	Uint
	// Float is an IEEE-754 value of Descriptor.Width bits.
	Float
	// Bytes is an opaque byte payload.
	Bytes
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Uint:
		return "uint"
	case Float:
		return "float"
	case Bytes:
		return "bytes"
	}
	return "unknown"
}

// Arity describes how many elements a value carries.
type Arity uint8

const (
	// Scalar is a single element.
	Scalar Arity = iota + 1
	// Vector is a fixed number of elements, declared up front.
	Vector
	// Sequence is a dynamically sized run of elements.
	Sequence
)

func (a Arity) String() string {
	switch a {
	case Scalar:
		return "scalar"
	case Vector:
		return "vector"
	case Sequence:
		return "sequence"
	}
	return "unknown"
}

// MalformedValueError is returned when a raw payload's length does not match
// the shape its descriptor declares.
type MalformedValueError struct {
	TypeID string
	Want   int
	Got    int
}

func (e MalformedValueError) Error() string {
	return fmt.Sprintf("malformed value for '%s', expected %d bytes, got %d", e.TypeID, e.Want, e.Got)
}

// A Descriptor describes the shape of a value: its primitive kind, element
// width, arity and the stable type identifier used for cross-module equality
// checks. Descriptors are immutable once constructed.
type Descriptor struct {
	Kind   Kind
	Width  int // element width in bits
	Arity  Arity
	Len    int    // element count, only meaningful for Vector
	TypeID string // stable identifier, e.g. "float32", "float64[8]", "float64[]"
}

// Equal reports whether two descriptors describe the same shape. The
// comparison is purely structural.
func (d Descriptor) Equal(other Descriptor) bool {
	return d.Kind == other.Kind &&
		d.Width == other.Width &&
		d.Arity == other.Arity &&
		d.Len == other.Len &&
		d.TypeID == other.TypeID
}

// ElemBytes returns the encoded size of a single element.
func (d Descriptor) ElemBytes() int {
	if d.Kind == Bool || d.Kind == Bytes {
		return 1
	}
	return d.Width / 8
}

// Fits validates that a raw payload of n bytes matches the descriptor's
// shape. Sequences and byte payloads only need whole elements, scalars and
// vectors need an exact length.
func (d Descriptor) Fits(n int) error {
	elem := d.ElemBytes()
	switch d.Arity {
	case Scalar:
		if n != elem {
			return MalformedValueError{d.TypeID, elem, n}
		}
	case Vector:
		if n != elem*d.Len {
			return MalformedValueError{d.TypeID, elem * d.Len, n}
		}
	case Sequence:
		if elem > 1 && n%elem != 0 {
			return MalformedValueError{d.TypeID, elem * (n/elem + 1), n}
		}
	}
	return nil
}

func (d Descriptor) String() string {
	return d.TypeID
}

// Canonical descriptor constructors. Blocks compiled into different modules
// must end up with structurally identical descriptors, so everything is
// derived from kind, width and arity alone.

// ScalarOf returns the canonical scalar descriptor for the given kind and width.
func ScalarOf(kind Kind, width int) Descriptor {
	return Descriptor{Kind: kind, Width: width, Arity: Scalar, TypeID: typeID(kind, width, Scalar, 0)}
}

// VectorOf returns the canonical fixed-length vector descriptor.
func VectorOf(kind Kind, width, n int) Descriptor {
	return Descriptor{Kind: kind, Width: width, Arity: Vector, Len: n, TypeID: typeID(kind, width, Vector, n)}
}

// SequenceOf returns the canonical dynamically-sized sequence descriptor.
func SequenceOf(kind Kind, width int) Descriptor {
	return Descriptor{Kind: kind, Width: width, Arity: Sequence, TypeID: typeID(kind, width, Sequence, 0)}
}

// Float32 is the canonical float32 scalar descriptor.
func Float32() Descriptor { return ScalarOf(Float, 32) }

// Float64 is the canonical float64 scalar descriptor.
func Float64() Descriptor { return ScalarOf(Float, 64) }

// Float64Seq is the canonical float64 sequence descriptor.
func Float64Seq() Descriptor { return SequenceOf(Float, 64) }

// ByteSeq is the canonical byte sequence descriptor.
func ByteSeq() Descriptor {
	return Descriptor{Kind: Bytes, Width: 8, Arity: Sequence, TypeID: "bytes"}
}

func typeID(kind Kind, width int, arity Arity, n int) string {
	base := fmt.Sprintf("%s%d", kind, width)
	if kind == Bool {
		base = "bool"
	}
	if kind == Bytes {
		base = "bytes"
		if arity == Sequence {
			return base
		}
	}
	switch arity {
	case Vector:
		return fmt.Sprintf("%s[%d]", base, n)
	case Sequence:
		return base + "[]"
	}
	return base
}

var (
	canonicalMu sync.RWMutex
	canonical   = map[string]Descriptor{}
)

func init() {
	for _, d := range []Descriptor{
		ScalarOf(Bool, 8),
		ScalarOf(Int, 8), ScalarOf(Int, 16), ScalarOf(Int, 32), ScalarOf(Int, 64),
		ScalarOf(Uint, 8), ScalarOf(Uint, 16), ScalarOf(Uint, 32), ScalarOf(Uint, 64),
		Float32(), Float64(),
		SequenceOf(Float, 32), Float64Seq(),
		SequenceOf(Int, 64),
		ByteSeq(),
	} {
		canonical[d.TypeID] = d
	}
}

// RegisterCanonical publishes a descriptor under its type identifier so other
// modules can look it up. Registering a structurally different descriptor
// under an existing identifier is an error.
func RegisterCanonical(d Descriptor) error {
	canonicalMu.Lock()
	defer canonicalMu.Unlock()
	if have, ok := canonical[d.TypeID]; ok && !have.Equal(d) {
		return fmt.Errorf("type id '%s' already registered with a different shape", d.TypeID)
	}
	canonical[d.TypeID] = d
	return nil
}

// Lookup returns the canonical descriptor registered for the given type
// identifier.
func Lookup(typeID string) (Descriptor, bool) {
	canonicalMu.RLock()
	defer canonicalMu.RUnlock()
	d, ok := canonical[typeID]
	return d, ok
}
