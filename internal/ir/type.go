package ir

import "fmt"

// Type describes the type of an SSA value. The low nibble holds the lane
// type and the high nibble holds log2 of the lane count, so scalar and
// short-vector types fit in one byte and halving a type is arithmetic on
// the encoding rather than a table lookup.
type Type byte

const (
	TypeInvalid Type = 0

	laneI8 Type = 1 + iota
	laneI16
	laneI32
	laneI64
	laneF32
	laneF64
)

// Scalar types.
const (
	I8  = laneI8
	I16 = laneI16
	I32 = laneI32
	I64 = laneI64
	F32 = laneF32
	F64 = laneF64
)

const laneMask Type = 0x0f

// Vector returns the vector type with n lanes of t. n must be a power of
// two. Vector(t, 1) is t itself.
func Vector(t Type, n int) Type {
	if t == TypeInvalid || t.IsVector() {
		panic(fmt.Sprintf("ir: invalid lane type %s", t))
	}
	log2 := 0
	for 1<<log2 < n {
		log2++
	}
	if 1<<log2 != n || log2 > 7 {
		panic(fmt.Sprintf("ir: invalid lane count %d", n))
	}
	return t | Type(log2<<4)
}

// LaneType returns the scalar type of each lane.
func (t Type) LaneType() Type {
	return t & laneMask
}

// LaneCount returns the number of lanes. Scalars have one lane.
func (t Type) LaneCount() int {
	return 1 << (t >> 4)
}

// LaneBits returns the width of each lane in bits.
func (t Type) LaneBits() int {
	switch t.LaneType() {
	case laneI8:
		return 8
	case laneI16:
		return 16
	case laneI32, laneF32:
		return 32
	case laneI64, laneF64:
		return 64
	}
	return 0
}

// Bits returns the total width of the type in bits.
func (t Type) Bits() int {
	return t.LaneBits() * t.LaneCount()
}

// IsInt reports whether the lanes of t are integers.
func (t Type) IsInt() bool {
	switch t.LaneType() {
	case laneI8, laneI16, laneI32, laneI64:
		return true
	}
	return false
}

// IsFloat reports whether the lanes of t are floating point.
func (t Type) IsFloat() bool {
	switch t.LaneType() {
	case laneF32, laneF64:
		return true
	}
	return false
}

// IsVector reports whether t has more than one lane.
func (t Type) IsVector() bool {
	return t>>4 != 0
}

// HalfWidth returns the integer type with lanes half as wide as t.
func (t Type) HalfWidth() (Type, bool) {
	var lane Type
	switch t.LaneType() {
	case laneI16:
		lane = laneI8
	case laneI32:
		lane = laneI16
	case laneI64:
		lane = laneI32
	default:
		return TypeInvalid, false
	}
	return lane | t&^laneMask, true
}

// HalfVector returns the type with half as many lanes as t.
func (t Type) HalfVector() (Type, bool) {
	if !t.IsVector() {
		return TypeInvalid, false
	}
	return t - 1<<4, true
}

// IntWithBits returns the scalar integer type of the given width.
func IntWithBits(bits int) (Type, bool) {
	switch bits {
	case 8:
		return I8, true
	case 16:
		return I16, true
	case 32:
		return I32, true
	case 64:
		return I64, true
	}
	return TypeInvalid, false
}

// String implements fmt.Stringer.
func (t Type) String() string {
	var lane string
	switch t.LaneType() {
	case laneI8:
		lane = "i8"
	case laneI16:
		lane = "i16"
	case laneI32:
		lane = "i32"
	case laneI64:
		lane = "i64"
	case laneF32:
		lane = "f32"
	case laneF64:
		lane = "f64"
	default:
		return fmt.Sprintf("invalid(%#x)", byte(t))
	}
	if t.IsVector() {
		return fmt.Sprintf("%sx%d", lane, t.LaneCount())
	}
	return lane
}
