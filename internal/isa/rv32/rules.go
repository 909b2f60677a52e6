package rv32

import (
	"fmt"

	"github.com/tinyrange/slate/internal/ir"
	"github.com/tinyrange/slate/internal/isa"
)

// rules is the expand/narrow rewrite engine for this target. The rule
// bodies mirror the declarative rule set the target description refers
// to: immediate forms expand to a materialized constant plus the
// register form, and 64-bit integer ops narrow into 32-bit half
// operations chained through carries.
type rules struct{}

// Rules returns the target's legalization rewrite engine.
func Rules() isa.Rewriter { return rules{} }

var regForm = map[ir.Opcode]ir.Opcode{
	ir.OpcodeIaddImm: ir.OpcodeIadd,
	ir.OpcodeIsubImm: ir.OpcodeIsub,
	ir.OpcodeImulImm: ir.OpcodeImul,
	ir.OpcodeBandImm: ir.OpcodeBand,
	ir.OpcodeBorImm:  ir.OpcodeBor,
	ir.OpcodeBxorImm: ir.OpcodeBxor,
}

// Expand implements isa.Rewriter.
func (rules) Expand(c *ir.Cursor, f *ir.Function) bool {
	inst := c.Inst()
	if inst == nil {
		panic("rv32: expand cursor points past the end of a block")
	}

	op, ok := regForm[inst.Opcode()]
	if !ok {
		return false
	}
	typ := inst.Type()
	k := f.NewIconst(typ, inst.Imm())
	kv := f.AppendResult(k, typ)
	c.InsertBefore(k)
	inst.ReplaceWith(op, typ, inst.Arg(0), kv)
	return true
}

// Narrow implements isa.Rewriter.
func (rules) Narrow(c *ir.Cursor, f *ir.Function) bool {
	inst := c.Inst()
	if inst == nil {
		panic("rv32: narrow cursor points past the end of a block")
	}

	typ := inst.Type()
	half, ok := typ.HalfWidth()
	if !ok {
		return false
	}

	switch inst.Opcode() {
	case ir.OpcodeIconst:
		imm := inst.Imm()
		halfBits := uint(half.Bits())
		lo := f.NewIconst(half, imm&(1<<halfBits-1))
		lov := f.AppendResult(lo, half)
		c.InsertBefore(lo)
		hi := f.NewIconst(half, imm>>halfBits)
		hiv := f.AppendResult(hi, half)
		c.InsertBefore(hi)
		inst.ReplaceWith(ir.OpcodeIconcat, typ, lov, hiv)
		return true

	case ir.OpcodeIadd:
		return narrowCarryChain(c, f, inst, half, ir.OpcodeIaddCout, ir.OpcodeIaddCin)
	case ir.OpcodeIsub:
		return narrowCarryChain(c, f, inst, half, ir.OpcodeIsubBout, ir.OpcodeIsubBin)

	case ir.OpcodeBand, ir.OpcodeBor, ir.OpcodeBxor:
		op := inst.Opcode()
		xl, xh := splitHalves(c, f, inst.Arg(0), half)
		yl, yh := splitHalves(c, f, inst.Arg(1), half)
		lo := f.NewInstruction(op, half, xl, yl)
		lov := f.AppendResult(lo, half)
		c.InsertBefore(lo)
		hi := f.NewInstruction(op, half, xh, yh)
		hiv := f.AppendResult(hi, half)
		c.InsertBefore(hi)
		inst.ReplaceWith(ir.OpcodeIconcat, typ, lov, hiv)
		return true
	}
	return false
}

// narrowCarryChain rewrites a double-width add or subtract into a low
// half producing a carry/borrow and a high half consuming it.
func narrowCarryChain(c *ir.Cursor, f *ir.Function, inst *ir.Instruction, half ir.Type, outOp, inOp ir.Opcode) bool {
	typ := inst.Type()
	xl, xh := splitHalves(c, f, inst.Arg(0), half)
	yl, yh := splitHalves(c, f, inst.Arg(1), half)

	lo := f.NewInstruction(outOp, half, xl, yl)
	lov := f.AppendResult(lo, half)
	carry := f.AppendResult(lo, half)
	c.InsertBefore(lo)

	hi := f.NewInstruction(inOp, half, xh, yh, carry)
	hiv := f.AppendResult(hi, half)
	c.InsertBefore(hi)

	inst.ReplaceWith(ir.OpcodeIconcat, typ, lov, hiv)
	return true
}

func splitHalves(c *ir.Cursor, f *ir.Function, v ir.Value, half ir.Type) (lo, hi ir.Value) {
	if v.Type().LaneBits() != 2*half.LaneBits() {
		panic(fmt.Sprintf("rv32: cannot split %s into %s halves", v.Type(), half))
	}
	split := f.NewInstruction(ir.OpcodeIsplit, v.Type(), v)
	lo = f.AppendResult(split, half)
	hi = f.AppendResult(split, half)
	c.InsertBefore(split)
	return lo, hi
}
