package ir

import (
	"fmt"
	"math"
)

// Value identifies an SSA value: the result of an instruction or a block
// parameter. The low 32 bits are the value's identifier and the high 32
// bits carry its Type, so a Value is self-describing without a lookup.
type Value uint64

type valueID uint32

const valueIDInvalid valueID = math.MaxUint32

// ValueInvalid is the zero-width "no value" marker used for unfilled
// operand slots.
const ValueInvalid Value = Value(valueIDInvalid)

func makeValue(id valueID, typ Type) Value {
	return Value(id) | Value(typ)<<32
}

func (v Value) id() valueID {
	return valueID(v & 0xffffffff)
}

// Valid reports whether v refers to an actual value.
func (v Value) Valid() bool {
	return v.id() != valueIDInvalid
}

// Type returns the type of the value.
func (v Value) Type() Type {
	return Type(v >> 32)
}

// String implements fmt.Stringer.
func (v Value) String() string {
	if !v.Valid() {
		return "v?"
	}
	return fmt.Sprintf("v%d", v.id())
}

// ChangeToAlias makes old stand for new without touching old's uses.
// Anything that previously referred to old resolves to new through
// ResolveAlias. The alias relation must stay acyclic; aliasing a value to
// itself (directly or through a chain) panics.
func (f *Function) ChangeToAlias(old, new Value) {
	if !old.Valid() || !new.Valid() {
		panic("ir: cannot alias an invalid value")
	}
	if f.ResolveAlias(new) == old {
		panic(fmt.Sprintf("ir: alias cycle through %s", old))
	}
	if f.aliases == nil {
		f.aliases = make(map[valueID]Value)
	}
	f.aliases[old.id()] = new
}

// ResolveAlias follows the alias chain from v to the value that is
// actually computed. Non-aliased values resolve to themselves.
func (f *Function) ResolveAlias(v Value) Value {
	for {
		next, ok := f.aliases[v.id()]
		if !ok {
			return v
		}
		v = next
	}
}
