package legalize

import (
	"fmt"

	"github.com/tinyrange/slate/internal/ir"
)

// checkArgTypes reports whether a value sequence matches a sequence of
// argument types exactly, position by position and in length.
func checkArgTypes(args []ir.Value, types []ir.ArgumentType) bool {
	if len(args) != len(types) {
		return false
	}
	for n, arg := range args {
		if arg.Type() != types[n].Type {
			return false
		}
	}
	return true
}

// callSignature resolves the signature of the call at inst and reports
// which halves of the check failed. The instruction must be a call.
func callSignature(f *ir.Function, inst *ir.Instruction) (ref ir.SigRef, argsOK, resultsOK bool) {
	switch inst.Opcode() {
	case ir.OpcodeCall:
		ref = f.ExtFuncData(inst.FuncRef()).Sig
	case ir.OpcodeCallIndirect:
		ref = inst.SigRef()
	default:
		panic(fmt.Sprintf("legalize: expected call, got %s", inst.Opcode()))
	}
	sig := f.SignatureData(ref)
	argsOK = checkArgTypes(inst.VarArgs(), sig.Params)
	resultsOK = checkArgTypes(inst.Results(), sig.Returns)
	return ref, argsOK, resultsOK
}

// instArgWriter is the valueSink that writes accepted ABI values directly
// into the reserved argument slots of a rewritten operand list.
type instArgWriter struct {
	list    []ir.Value
	fixed   int
	next    int
	argType func(n int) ir.ArgumentType
}

func (w *instArgWriter) accept(v ir.Value) (ir.ArgumentType, bool) {
	at := w.argType(w.next)
	if v.Type() != at.Type {
		return at, false
	}
	w.list[w.fixed+w.next] = v
	w.next++
	return ir.ArgumentType{}, true
}

// legalizeInstArguments rewrites the operand list of the call or return
// instruction at c so its arguments match abiArgs ABI slots, whose types
// are supplied by argType. Conversion code is inserted before the
// instruction.
//
// The operand list has a fixed prefix that is not subject to ABI rules.
// The list is grown just after that prefix, which shifts the natural
// arguments right:
//
//	before:            [FFFFOOOOOOOO]
//	after grow:        [FFFF----OOOOOOOO]
//	after conversion:  [FFFFNNNNNNNNNNNN]
//
// The original arguments are then converted one by one, each filling one
// or more of the reserved slots.
func legalizeInstArguments(f *ir.Function, c *ir.Cursor, abiArgs int, argType func(n int) ir.ArgumentType) {
	inst := c.Inst()
	if inst == nil {
		panic("legalize: cursor must point to a call or return instruction")
	}

	vlist := inst.TakeValueList()
	fixed := inst.Opcode().FixedArgs()
	have := len(vlist) - fixed
	if abiArgs < have {
		panic(fmt.Sprintf("legalize: %s has %d arguments but the abi signature has only %d slots",
			inst.Opcode(), have, abiArgs))
	}

	vlist = ir.GrowValueListAt(vlist, fixed, abiArgs-have)
	oldArgOffset := fixed + abiArgs - have

	writer := &instArgWriter{list: vlist, fixed: fixed, argType: argType}
	for oldArg := 0; oldArg < have; oldArg++ {
		convertToABI(f, c, vlist[oldArgOffset+oldArg], writer)
	}
	if writer.next != abiArgs {
		panic(fmt.Sprintf("legalize: %s arguments filled %d of %d abi slots",
			inst.Opcode(), writer.next, abiArgs))
	}

	inst.PutValueList(vlist)
}

// callResultSource materializes reconstructed call results as new
// ABI-typed results appended to the call instruction.
type callResultSource struct {
	f    *ir.Function
	call *ir.Instruction
}

func (s *callResultSource) materialize(t ir.Type) ir.Value {
	return s.f.AppendResult(s.call, t)
}

// convertCallResults retypes the result list of the call at c to match
// the legalized return types, inserting reconstruction code immediately
// after the call. The original natural results become aliases of the
// reconstructed values so existing uses stay valid.
func convertCallResults(f *ir.Function, c *ir.Cursor, returns []ir.ArgumentType) {
	inst := c.Inst()
	natural := inst.TakeResults()

	after := ir.CursorAt(c.Block(), inst.Next())
	src := &callResultSource{f: f, call: inst}
	abiRes := 0
	for _, old := range natural {
		v := convertFromABI(f, after, src, &abiRes, returns, old.Type())
		f.ChangeToAlias(old, v)
	}
	if abiRes != len(returns) {
		panic(fmt.Sprintf("legalize: call results consumed %d of %d abi returns", abiRes, len(returns)))
	}
}

// handleCallABI rewrites the call at c so its arguments and results match
// the callee's legalized signature. Returns true if anything changed.
func handleCallABI(f *ir.Function, c *ir.Cursor) bool {
	inst := c.Inst()
	if inst == nil {
		panic("legalize: cursor must point to a call instruction")
	}

	ref, argsOK, resultsOK := callSignature(f, inst)
	if argsOK && resultsOK {
		return false
	}
	sig := f.SignatureData(ref)

	if !argsOK {
		legalizeInstArguments(f, c, len(sig.Params), func(n int) ir.ArgumentType {
			return sig.Params[n]
		})
	}
	if !resultsOK {
		convertCallResults(f, c, sig.Returns)
	}
	return true
}

// handleReturnABI rewrites the return at c so its values match the
// function's legalized return types. Returns true if anything changed.
func handleReturnABI(f *ir.Function, c *ir.Cursor, sig *ir.Signature) bool {
	inst := c.Inst()
	if inst == nil {
		panic("legalize: cursor must point to a return instruction")
	}

	if checkArgTypes(inst.VarArgs(), sig.Returns) {
		return false
	}

	legalizeInstArguments(f, c, len(sig.Returns), func(n int) ir.ArgumentType {
		return sig.Returns[n]
	})
	return true
}
