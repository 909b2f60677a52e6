package legalize

import (
	"fmt"

	"github.com/tinyrange/slate/internal/ir"
	"github.com/tinyrange/slate/internal/isa"
)

// legalizeSignatures annotates the function's own signature and every
// referenced callee signature with full ABI locations. It does not touch
// instructions, so the function is left with type discrepancies that the
// driver repairs afterwards.
func legalizeSignatures(f *ir.Function, target isa.Target) {
	target.LegalizeSignature(f.Signature)
	for _, sig := range f.Signatures() {
		target.LegalizeSignature(sig)
	}

	if entry := f.Entry(); entry != nil {
		legalizeEntryParams(f, entry)
	}
}

// blockParamSource materializes reconstruction inputs as new ABI-typed
// parameters appended to the entry block.
type blockParamSource struct {
	blk *ir.BasicBlock
}

func (s *blockParamSource) materialize(t ir.Type) ir.Value {
	return s.blk.AppendParam(t)
}

// legalizeEntryParams rebuilds the entry block's parameter list to match
// the legalized signature. The legalized signature may have more
// parameters than the original, with different types; original parameters
// that no longer match are recomputed from the new ABI parameters by code
// inserted at the top of the entry block, and the original values become
// aliases of the recomputed ones.
func legalizeEntryParams(f *ir.Function, entry *ir.BasicBlock) {
	c := ir.CursorAtTop(entry)

	abiTypes := f.Signature.Params
	abiArg := 0

	for _, arg := range entry.TakeParams() {
		if abiArg >= len(abiTypes) {
			panic(fmt.Sprintf("legalize: entry parameter %s exceeds the %d abi parameters",
				arg, len(abiTypes)))
		}
		if arg.Type() == abiTypes[abiArg].Type {
			// The common case: the parameter already matches the ABI
			// type and is reattached unchanged.
			entry.PutParam(arg)
			abiArg++
			continue
		}
		converted := convertFromABI(f, c, &blockParamSource{blk: entry}, &abiArg, abiTypes, arg.Type())
		f.ChangeToAlias(arg, converted)
	}

	if got := len(entry.Params()); got != len(abiTypes) {
		panic(fmt.Sprintf("legalize: entry block has %d parameters, abi signature has %d",
			got, len(abiTypes)))
	}
}
