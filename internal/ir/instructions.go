package ir

import "fmt"

// Opcode identifies an IR instruction.
type Opcode byte

const (
	OpcodeInvalid Opcode = iota

	// OpcodeJump jumps unconditionally to its target block.
	OpcodeJump
	// OpcodeBrz branches to its target block if the condition is zero.
	OpcodeBrz
	// OpcodeBrnz branches to its target block if the condition is not zero.
	OpcodeBrnz
	// OpcodeReturn returns from the function with the listed values.
	OpcodeReturn
	// OpcodeCall calls the external function held in the instruction's
	// FuncRef with the listed arguments.
	OpcodeCall
	// OpcodeCallIndirect calls through a code pointer. The callee pointer
	// is the fixed first operand; the signature is held in SigRef.
	OpcodeCallIndirect
	// OpcodeFuncAddr materializes the address of an external function.
	OpcodeFuncAddr

	// OpcodeIconst materializes the integer constant in Imm.
	OpcodeIconst

	OpcodeIadd
	OpcodeIsub
	OpcodeImul
	OpcodeBand
	OpcodeBor
	OpcodeBxor

	// Immediate forms of the binary operations above; the constant
	// operand lives in Imm.
	OpcodeIaddImm
	OpcodeIsubImm
	OpcodeImulImm
	OpcodeBandImm
	OpcodeBorImm
	OpcodeBxorImm

	// OpcodeIaddCout adds and also produces the carry-out.
	OpcodeIaddCout
	// OpcodeIaddCin adds two values plus an incoming carry.
	OpcodeIaddCin
	// OpcodeIsubBout subtracts and also produces the borrow-out.
	OpcodeIsubBout
	// OpcodeIsubBin subtracts with an incoming borrow.
	OpcodeIsubBin

	// OpcodeIsplit splits an integer into (low, high) halves.
	OpcodeIsplit
	// OpcodeIconcat concatenates (low, high) halves into a double-width
	// integer.
	OpcodeIconcat
	// OpcodeVsplit splits a vector into (low, high) half-vectors.
	OpcodeVsplit
	// OpcodeVconcat concatenates two half-vectors.
	OpcodeVconcat

	// OpcodeBitcast reinterprets a value's bits as another equal-width
	// type.
	OpcodeBitcast
	// OpcodeSextend sign-extends to a wider integer.
	OpcodeSextend
	// OpcodeUextend zero-extends to a wider integer.
	OpcodeUextend
	// OpcodeIreduce truncates to a narrower integer.
	OpcodeIreduce

	opcodeEnd
)

type opcodeInfo struct {
	name string
	// fixedArgs is the length of the fixed operand prefix that is not
	// part of the variable argument list (the callee pointer on an
	// indirect call, the condition on a conditional branch).
	fixedArgs int
	// varArgs marks opcodes whose operand list past the fixed prefix is
	// variable arity.
	varArgs bool
	call    bool
	ret     bool
	branch  bool
}

var opcodeTable = [opcodeEnd]opcodeInfo{
	OpcodeJump:         {name: "jump", varArgs: true, branch: true},
	OpcodeBrz:          {name: "brz", fixedArgs: 1, varArgs: true, branch: true},
	OpcodeBrnz:         {name: "brnz", fixedArgs: 1, varArgs: true, branch: true},
	OpcodeReturn:       {name: "return", varArgs: true, ret: true},
	OpcodeCall:         {name: "call", varArgs: true, call: true},
	OpcodeCallIndirect: {name: "call_indirect", fixedArgs: 1, varArgs: true, call: true},
	OpcodeFuncAddr:     {name: "func_addr"},
	OpcodeIconst:       {name: "iconst"},
	OpcodeIadd:         {name: "iadd"},
	OpcodeIsub:         {name: "isub"},
	OpcodeImul:         {name: "imul"},
	OpcodeBand:         {name: "band"},
	OpcodeBor:          {name: "bor"},
	OpcodeBxor:         {name: "bxor"},
	OpcodeIaddImm:      {name: "iadd_imm"},
	OpcodeIsubImm:      {name: "isub_imm"},
	OpcodeImulImm:      {name: "imul_imm"},
	OpcodeBandImm:      {name: "band_imm"},
	OpcodeBorImm:       {name: "bor_imm"},
	OpcodeBxorImm:      {name: "bxor_imm"},
	OpcodeIaddCout:     {name: "iadd_cout"},
	OpcodeIaddCin:      {name: "iadd_cin"},
	OpcodeIsubBout:     {name: "isub_bout"},
	OpcodeIsubBin:      {name: "isub_bin"},
	OpcodeIsplit:       {name: "isplit"},
	OpcodeIconcat:      {name: "iconcat"},
	OpcodeVsplit:       {name: "vsplit"},
	OpcodeVconcat:      {name: "vconcat"},
	OpcodeBitcast:      {name: "bitcast"},
	OpcodeSextend:      {name: "sextend"},
	OpcodeUextend:      {name: "uextend"},
	OpcodeIreduce:      {name: "ireduce"},
}

var opcodeByName = func() map[string]Opcode {
	m := make(map[string]Opcode, opcodeEnd)
	for op := OpcodeInvalid + 1; op < opcodeEnd; op++ {
		m[opcodeTable[op].name] = op
	}
	return m
}()

// OpcodeByName returns the opcode with the given textual name, as used by
// declarative target descriptions.
func OpcodeByName(name string) (Opcode, bool) {
	op, ok := opcodeByName[name]
	return op, ok
}

func (op Opcode) info() *opcodeInfo {
	if op == OpcodeInvalid || op >= opcodeEnd {
		panic(fmt.Sprintf("ir: invalid opcode %d", op))
	}
	return &opcodeTable[op]
}

// String implements fmt.Stringer.
func (op Opcode) String() string {
	return op.info().name
}

// IsCall reports whether op is a function call.
func (op Opcode) IsCall() bool { return op.info().call }

// IsReturn reports whether op returns from the function.
func (op Opcode) IsReturn() bool { return op.info().ret }

// IsBranch reports whether op transfers control to another block.
func (op Opcode) IsBranch() bool { return op.info().branch }

// FixedArgs returns the length of the fixed operand prefix that precedes
// the variable argument list.
func (op Opcode) FixedArgs() int { return op.info().fixedArgs }

// HasValueList reports whether op carries a variable-arity operand list.
func (op Opcode) HasValueList() bool { return op.info().varArgs }

// Instruction is a single IR instruction. Since Go has no union types the
// struct is flattened: which fields are meaningful depends on the opcode.
// Instructions are linked into their block in layout order.
type Instruction struct {
	op  Opcode
	typ Type
	vs  []Value
	imm int64

	// fnRef is the callee for OpcodeCall/OpcodeFuncAddr; sigRef is the
	// callee signature for OpcodeCallIndirect; target is the destination
	// block of a branch.
	fnRef  FuncRef
	sigRef SigRef
	target *BasicBlock

	results []Value

	blk        *BasicBlock
	prev, next *Instruction
}

// Opcode returns the instruction's opcode.
func (i *Instruction) Opcode() Opcode { return i.op }

// Type returns the controlling type of the instruction.
func (i *Instruction) Type() Type { return i.typ }

// Args returns the full operand list including any fixed prefix. The
// returned slice is the instruction's own storage.
func (i *Instruction) Args() []Value { return i.vs }

// Arg returns the n-th operand.
func (i *Instruction) Arg(n int) Value { return i.vs[n] }

// VarArgs returns the operands past the fixed prefix.
func (i *Instruction) VarArgs() []Value { return i.vs[i.op.FixedArgs():] }

// Imm returns the immediate operand of constant and *_imm opcodes.
func (i *Instruction) Imm() int64 { return i.imm }

// FuncRef returns the callee of a direct call or func_addr.
func (i *Instruction) FuncRef() FuncRef { return i.fnRef }

// SigRef returns the callee signature of an indirect call.
func (i *Instruction) SigRef() SigRef { return i.sigRef }

// TargetBlock returns the destination block of a branch.
func (i *Instruction) TargetBlock() *BasicBlock { return i.target }

// Results returns the instruction's result values in order.
func (i *Instruction) Results() []Value { return i.results }

// Result returns the n-th result value.
func (i *Instruction) Result(n int) Value { return i.results[n] }

// Next returns the instruction laid out after i within its block.
func (i *Instruction) Next() *Instruction { return i.next }

// Prev returns the instruction laid out before i within its block.
func (i *Instruction) Prev() *Instruction { return i.prev }

// Block returns the block i is inserted in, or nil if detached.
func (i *Instruction) Block() *BasicBlock { return i.blk }

// TakeValueList detaches and returns the operand list so it can be
// reshaped. The opcode must carry a variable-arity list.
func (i *Instruction) TakeValueList() []Value {
	if !i.op.HasValueList() {
		panic(fmt.Sprintf("ir: %s has no value list", i.op))
	}
	if i.vs == nil {
		panic(fmt.Sprintf("ir: %s is missing its value list", i.op))
	}
	vs := i.vs
	i.vs = nil
	return vs
}

// PutValueList installs vs as the instruction's operand list.
func (i *Instruction) PutValueList(vs []Value) {
	if !i.op.HasValueList() {
		panic(fmt.Sprintf("ir: %s has no value list", i.op))
	}
	i.vs = vs
}

// TakeResults detaches and returns the instruction's result values.
func (i *Instruction) TakeResults() []Value {
	rs := i.results
	i.results = nil
	return rs
}

// ReplaceWith rewrites the instruction in place to a different operation,
// keeping its result values and its position in the block. Used by
// legalization rewrites that substitute an equivalent computation for the
// original one.
func (i *Instruction) ReplaceWith(op Opcode, typ Type, args ...Value) {
	i.op = op
	i.typ = typ
	i.vs = args
	i.imm = 0
	i.fnRef = funcRefInvalid
	i.sigRef = sigRefInvalid
	i.target = nil
}

// GrowValueListAt inserts n invalid slots into vs at index at, shifting
// the existing tail right. The returned slice replaces vs.
func GrowValueListAt(vs []Value, at, n int) []Value {
	if at < 0 || at > len(vs) || n < 0 {
		panic(fmt.Sprintf("ir: bad value list growth at %d by %d (len %d)", at, n, len(vs)))
	}
	if n == 0 {
		return vs
	}
	out := make([]Value, len(vs)+n)
	copy(out, vs[:at])
	for k := 0; k < n; k++ {
		out[at+k] = ValueInvalid
	}
	copy(out[at+n:], vs[at:])
	return out
}
