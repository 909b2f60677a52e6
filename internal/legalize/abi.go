// Package legalize rewrites a function so that every instruction has a
// direct encoding for the target and every function, call and return
// boundary obeys the target's calling convention. It also fills out the
// function's encoding table for code emission.
//
// Register allocation constraints are not handled here; they are derived
// from the encoding recipes and solved later.
package legalize

import (
	"fmt"

	"github.com/tinyrange/slate/internal/ir"
)

// conversionKind classifies how a natural value type is realized as one
// or more ABI argument slots.
type conversionKind int

const (
	// convIntSplit carries a double-width integer as two half-width
	// integers, low half first.
	convIntSplit conversionKind = 1 + iota
	// convVectorSplit carries a vector as two half-length vectors.
	convVectorSplit
	// convIntBits carries a non-integer value as the equal-width integer
	// bit pattern.
	convIntBits
	// convSext carries a sign-extended version of the narrower value.
	convSext
	// convUext carries a zero-extended version of the narrower value.
	convUext
)

// conversion is one step of the realization: the kind plus, for the
// extension kinds, the ABI's wider integer type.
type conversion struct {
	kind conversionKind
	ty   ir.Type
}

// abiConversion determines the conversion step that realizes a value of
// type have as the ABI argument want. An unclassifiable pairing is an
// internal error and fatal.
func abiConversion(have ir.Type, want ir.ArgumentType) conversion {
	haveBits, wantBits := have.Bits(), want.Type.Bits()
	switch {
	case haveBits < wantBits:
		switch want.Extension {
		case ir.ExtUext:
			return conversion{kind: convUext, ty: want.Type}
		case ir.ExtSext:
			return conversion{kind: convSext, ty: want.Type}
		}
		panic(fmt.Sprintf("legalize: %s abi argument %s requires an extension", have, want))
	case haveBits == wantBits:
		if have.IsInt() {
			panic(fmt.Sprintf("legalize: unsupported abi conversion %s -> %s", have, want))
		}
		return conversion{kind: convIntBits}
	default:
		if have.IsVector() {
			return conversion{kind: convVectorSplit}
		}
		if have.IsInt() {
			return conversion{kind: convIntSplit}
		}
		// A wide non-integer is first reinterpreted as bits, then split.
		return conversion{kind: convIntBits}
	}
}

// valueSource materializes the ABI-typed values that convertFromABI
// reassembles: new entry block parameters when legalizing the entry
// signature, new call results when legalizing a call's return values.
type valueSource interface {
	materialize(t ir.Type) ir.Value
}

// convertFromABI reconstructs a value of type want by consuming one or
// more ABI argument slots from abiTypes starting at *abiArg, advancing
// the index as it consumes. Reconstruction code is inserted at c.
func convertFromABI(f *ir.Function, c *ir.Cursor, src valueSource, abiArg *int, abiTypes []ir.ArgumentType, want ir.Type) ir.Value {
	if *abiArg >= len(abiTypes) {
		panic(fmt.Sprintf("legalize: ran out of abi arguments reconstructing %s (consumed %d of %d)",
			want, *abiArg, len(abiTypes)))
	}

	// The recursion terminates when the slot already has the desired
	// type.
	if abiTypes[*abiArg].Type == want {
		*abiArg++
		return src.materialize(want)
	}

	// Reconstruct how want was legalized into the slot at *abiArg, then
	// invert that step.
	conv := abiConversion(want, abiTypes[*abiArg])
	switch conv.kind {
	case convIntSplit:
		half, ok := want.HalfWidth()
		if !ok {
			panic(fmt.Sprintf("legalize: %s has no half-width type", want))
		}
		lo := convertFromABI(f, c, src, abiArg, abiTypes, half)
		hi := convertFromABI(f, c, src, abiArg, abiTypes, half)
		return insertUnaryish(f, c, ir.OpcodeIconcat, want, lo, hi)
	case convVectorSplit:
		half, ok := want.HalfVector()
		if !ok {
			panic(fmt.Sprintf("legalize: %s has no half vector type", want))
		}
		lo := convertFromABI(f, c, src, abiArg, abiTypes, half)
		hi := convertFromABI(f, c, src, abiArg, abiTypes, half)
		return insertUnaryish(f, c, ir.OpcodeVconcat, want, lo, hi)
	case convIntBits:
		intTy, ok := ir.IntWithBits(want.Bits())
		if !ok || want.IsInt() {
			panic(fmt.Sprintf("legalize: no integer carrier for %s", want))
		}
		bits := convertFromABI(f, c, src, abiArg, abiTypes, intTy)
		return insertUnaryish(f, c, ir.OpcodeBitcast, want, bits)
	case convSext, convUext:
		wide := convertFromABI(f, c, src, abiArg, abiTypes, conv.ty)
		// The extended bits are already correct, so a plain truncation
		// recovers the narrow value.
		return insertUnaryish(f, c, ir.OpcodeIreduce, want, wide)
	}
	panic(fmt.Sprintf("legalize: unsupported conversion kind %d", conv.kind))
}

// valueSink consumes candidate ABI values during convertToABI. accept
// either takes the candidate, meaning its type matches the next expected
// ABI slot, or rejects it by returning the ArgumentType the slot actually
// requires.
type valueSink interface {
	accept(v ir.Value) (need ir.ArgumentType, accepted bool)
}

// convertToABI converts v to match the ABI slots expected by sink,
// inserting conversion instructions at c. A value may expand to several
// consecutive slots.
func convertToABI(f *ir.Function, c *ir.Cursor, v ir.Value, sink valueSink) {
	need, accepted := sink.accept(v)
	if accepted {
		return
	}

	have := v.Type()
	conv := abiConversion(have, need)
	switch conv.kind {
	case convIntSplit:
		half, ok := have.HalfWidth()
		if !ok {
			panic(fmt.Sprintf("legalize: %s has no half-width type", have))
		}
		split := f.NewInstruction(ir.OpcodeIsplit, have, v)
		lo := f.AppendResult(split, half)
		hi := f.AppendResult(split, half)
		c.InsertBefore(split)
		convertToABI(f, c, lo, sink)
		convertToABI(f, c, hi, sink)
	case convVectorSplit:
		half, ok := have.HalfVector()
		if !ok {
			panic(fmt.Sprintf("legalize: %s has no half vector type", have))
		}
		split := f.NewInstruction(ir.OpcodeVsplit, have, v)
		lo := f.AppendResult(split, half)
		hi := f.AppendResult(split, half)
		c.InsertBefore(split)
		convertToABI(f, c, lo, sink)
		convertToABI(f, c, hi, sink)
	case convIntBits:
		intTy, ok := ir.IntWithBits(have.Bits())
		if !ok || have.IsInt() {
			panic(fmt.Sprintf("legalize: no integer carrier for %s", have))
		}
		bits := insertUnaryish(f, c, ir.OpcodeBitcast, intTy, v)
		convertToABI(f, c, bits, sink)
	case convSext:
		convertToABI(f, c, insertUnaryish(f, c, ir.OpcodeSextend, conv.ty, v), sink)
	case convUext:
		convertToABI(f, c, insertUnaryish(f, c, ir.OpcodeUextend, conv.ty, v), sink)
	default:
		panic(fmt.Sprintf("legalize: unsupported conversion kind %d", conv.kind))
	}
}

// insertUnaryish builds an instruction with a single result of typ,
// inserts it at the cursor and returns the result value.
func insertUnaryish(f *ir.Function, c *ir.Cursor, op ir.Opcode, typ ir.Type, args ...ir.Value) ir.Value {
	inst := f.NewInstruction(op, typ, args...)
	v := f.AppendResult(inst, typ)
	c.InsertBefore(inst)
	return v
}
