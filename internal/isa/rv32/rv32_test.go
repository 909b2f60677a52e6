package rv32

import (
	"testing"

	"github.com/tinyrange/slate/internal/ir"
	"github.com/tinyrange/slate/internal/isa"
)

func testTarget(t *testing.T) *target {
	t.Helper()
	tgt, err := isa.Lookup("rv32")
	if err != nil {
		t.Fatalf("lookup rv32: %v", err)
	}
	return tgt.(*target)
}

func TestDescriptionLoads(t *testing.T) {
	tgt := testTarget(t)
	if tgt.Name() != "rv32" {
		t.Fatalf("target name = %q", tgt.Name())
	}
	if len(tgt.argRegs) != 8 || tgt.argRegs[0] != 10 {
		t.Fatalf("argument registers = %v, want a0..a7", tgt.argRegs)
	}
	if len(tgt.retRegs) != 2 {
		t.Fatalf("return registers = %v, want a0..a1", tgt.retRegs)
	}
}

func TestDescriptionRejectsUnknownOpcode(t *testing.T) {
	_, err := load([]byte(`
name: bad
wordBits: 32
registers: {args: [10], rets: [10]}
instructions:
  - { op: frobnicate, always: true, recipe: R, bits: 0 }
`))
	if err == nil {
		t.Fatalf("unknown opcode must fail to load")
	}
}

func TestDescriptionRejectsWrongWordSize(t *testing.T) {
	_, err := load([]byte("name: bad\nwordBits: 64\nregisters: {args: [10], rets: [10]}\n"))
	if err == nil {
		t.Fatalf("64-bit description must fail to load")
	}
}

func TestEncodeLegalAndRejections(t *testing.T) {
	tgt := testTarget(t)
	f := ir.NewFunction("f", ir.NewSignature(nil, nil))
	blk := f.AddBlock()
	x := blk.AppendParam(ir.I32)
	w := blk.AppendParam(ir.I64)

	add32 := f.NewInstruction(ir.OpcodeIadd, ir.I32, x, x)
	f.AppendResult(add32, ir.I32)
	enc, err := tgt.Encode(f, add32)
	if err != nil {
		t.Fatalf("iadd.i32 must encode: %v", err)
	}
	if enc.Recipe != "R" {
		t.Fatalf("iadd.i32 recipe = %q, want R", enc.Recipe)
	}

	add64 := f.NewInstruction(ir.OpcodeIadd, ir.I64, w, w)
	f.AppendResult(add64, ir.I64)
	_, err = tgt.Encode(f, add64)
	if rej, ok := err.(isa.Rejection); !ok || rej.Action != isa.ActionNarrow {
		t.Fatalf("iadd.i64 must reject with narrow, got %v", err)
	}

	small := f.NewBinaryImm(ir.OpcodeIaddImm, ir.I32, x, 100)
	f.AppendResult(small, ir.I32)
	if _, err := tgt.Encode(f, small); err != nil {
		t.Fatalf("iadd_imm with a 12-bit immediate must encode: %v", err)
	}

	big := f.NewBinaryImm(ir.OpcodeIaddImm, ir.I32, x, 4000)
	f.AppendResult(big, ir.I32)
	_, err = tgt.Encode(f, big)
	if rej, ok := err.(isa.Rejection); !ok || rej.Action != isa.ActionExpand {
		t.Fatalf("oversized immediate must reject with expand, got %v", err)
	}

	mulImm := f.NewBinaryImm(ir.OpcodeImulImm, ir.I32, x, 3)
	f.AppendResult(mulImm, ir.I32)
	_, err = tgt.Encode(f, mulImm)
	if rej, ok := err.(isa.Rejection); !ok || rej.Action != isa.ActionExpand {
		t.Fatalf("imul_imm must always reject with expand, got %v", err)
	}
}

func TestLegalizeSignatureSplitsAndExtends(t *testing.T) {
	tgt := testTarget(t)
	sig := ir.NewSignature([]ir.Type{ir.I64, ir.I8, ir.F64}, []ir.Type{ir.I64})
	tgt.LegalizeSignature(sig)

	wantParams := []struct {
		typ ir.Type
		ext ir.ArgumentExtension
		reg uint16
	}{
		{ir.I32, ir.ExtNone, 10},
		{ir.I32, ir.ExtNone, 11},
		{ir.I32, ir.ExtSext, 12},
		{ir.I32, ir.ExtNone, 13},
		{ir.I32, ir.ExtNone, 14},
	}
	if len(sig.Params) != len(wantParams) {
		t.Fatalf("legalized to %d params, want %d: %s", len(sig.Params), len(wantParams), sig)
	}
	for n, want := range wantParams {
		got := sig.Params[n]
		if got.Type != want.typ || got.Extension != want.ext {
			t.Errorf("param %d = %s, want %s %s", n, got, want.typ, want.ext)
		}
		if !got.Loc.IsReg() || got.Loc.Reg() != want.reg {
			t.Errorf("param %d location = %s, want reg%d", n, got.Loc, want.reg)
		}
	}

	if len(sig.Returns) != 2 {
		t.Fatalf("i64 return must legalize to two slots: %s", sig)
	}
	for n, want := range []uint16{10, 11} {
		if !sig.Returns[n].Loc.IsReg() || sig.Returns[n].Loc.Reg() != want {
			t.Errorf("return %d location = %s, want reg%d", n, sig.Returns[n].Loc, want)
		}
	}
	if !sig.Legalized {
		t.Fatalf("classifier must mark the signature legalized")
	}
}

func TestLegalizeSignatureStackOverflowArgs(t *testing.T) {
	tgt := testTarget(t)
	types := make([]ir.Type, 10)
	for n := range types {
		types[n] = ir.I32
	}
	sig := ir.NewSignature(types, nil)
	tgt.LegalizeSignature(sig)

	if len(sig.Params) != 10 {
		t.Fatalf("i32 params must stay 1-to-1, got %d", len(sig.Params))
	}
	for n := 0; n < 8; n++ {
		if !sig.Params[n].Loc.IsReg() {
			t.Fatalf("param %d must be in a register", n)
		}
	}
	if sig.Params[8].Loc.IsReg() || sig.Params[8].Loc.StackOffset() != 0 {
		t.Fatalf("param 8 must be the first stack slot, got %s", sig.Params[8].Loc)
	}
	if sig.Params[9].Loc.StackOffset() != 4 {
		t.Fatalf("param 9 must be at stack offset 4, got %s", sig.Params[9].Loc)
	}
}

func TestLegalizeSignatureIdempotent(t *testing.T) {
	tgt := testTarget(t)
	sig := ir.NewSignature([]ir.Type{ir.I64, ir.I16}, []ir.Type{ir.I32})
	tgt.LegalizeSignature(sig)

	before := sig.String()
	tgt.LegalizeSignature(sig)
	if sig.String() != before {
		t.Fatalf("second legalization changed the signature:\n%s\n%s", before, sig)
	}
}

func TestLegalizeSignatureHonorsUext(t *testing.T) {
	tgt := testTarget(t)
	sig := ir.NewSignature([]ir.Type{ir.I8}, nil)
	sig.Params[0].Extension = ir.ExtUext
	tgt.LegalizeSignature(sig)

	if sig.Params[0].Type != ir.I32 || sig.Params[0].Extension != ir.ExtUext {
		t.Fatalf("explicit uext must be preserved, got %s", sig.Params[0])
	}
}

func TestLegalizeSignatureVector(t *testing.T) {
	tgt := testTarget(t)
	sig := ir.NewSignature([]ir.Type{ir.Vector(ir.I32, 4)}, nil)
	tgt.LegalizeSignature(sig)

	if len(sig.Params) != 4 {
		t.Fatalf("i32x4 must legalize to 4 slots, got %d: %s", len(sig.Params), sig)
	}
	for n, at := range sig.Params {
		if at.Type != ir.I32 {
			t.Fatalf("slot %d = %s, want i32", n, at.Type)
		}
	}
}

func TestLegalizeSignatureSubWordVectorPanics(t *testing.T) {
	tgt := testTarget(t)
	sig := ir.NewSignature([]ir.Type{ir.Vector(ir.I8, 2)}, nil)

	defer func() {
		if recover() == nil {
			t.Fatalf("a 16-bit vector parameter must be rejected, got %s", sig)
		}
	}()
	tgt.LegalizeSignature(sig)
}

func TestLegalizeSignatureWordSizeVector(t *testing.T) {
	tgt := testTarget(t)
	sig := ir.NewSignature([]ir.Type{ir.Vector(ir.I16, 2)}, nil)
	tgt.LegalizeSignature(sig)

	if len(sig.Params) != 1 {
		t.Fatalf("i16x2 fills one slot, got %d: %s", len(sig.Params), sig)
	}
	got := sig.Params[0]
	if got.Type != ir.Vector(ir.I16, 2) || got.Extension != ir.ExtNone {
		t.Fatalf("i16x2 must pass through unextended, got %s", got)
	}
	if !got.Loc.IsReg() || got.Loc.Reg() != 10 {
		t.Fatalf("i16x2 location = %s, want reg10", got.Loc)
	}
}

func TestExpandImmediateForm(t *testing.T) {
	f := ir.NewFunction("f", ir.NewSignature(nil, nil))
	blk := f.AddBlock()
	x := blk.AppendParam(ir.I32)
	add := f.NewBinaryImm(ir.OpcodeIaddImm, ir.I32, x, 4000)
	r := f.AppendResult(add, ir.I32)
	blk.Append(add)

	if !Rules().Expand(ir.CursorAt(blk, add), f) {
		t.Fatalf("iadd_imm must expand")
	}

	k := blk.Root()
	if k.Opcode() != ir.OpcodeIconst || k.Imm() != 4000 {
		t.Fatalf("expansion must materialize the constant, got %s", k.Opcode())
	}
	if add.Opcode() != ir.OpcodeIadd {
		t.Fatalf("immediate form must become the register form, got %s", add.Opcode())
	}
	if add.Arg(0) != x || add.Arg(1) != k.Result(0) {
		t.Fatalf("register form must consume the original operand and the constant")
	}
	if add.Result(0) != r {
		t.Fatalf("expansion must keep the original result value")
	}
}

func TestExpandUnknownOpcode(t *testing.T) {
	f := ir.NewFunction("f", ir.NewSignature(nil, nil))
	blk := f.AddBlock()
	x := blk.AppendParam(ir.I32)
	add := f.NewInstruction(ir.OpcodeIadd, ir.I32, x, x)
	f.AppendResult(add, ir.I32)
	blk.Append(add)

	if Rules().Expand(ir.CursorAt(blk, add), f) {
		t.Fatalf("iadd has no expansion and must report no change")
	}
}

func TestNarrowAddCarryChain(t *testing.T) {
	f := ir.NewFunction("f", ir.NewSignature(nil, nil))
	blk := f.AddBlock()
	x := blk.AppendParam(ir.I64)
	y := blk.AppendParam(ir.I64)
	add := f.NewInstruction(ir.OpcodeIadd, ir.I64, x, y)
	r := f.AppendResult(add, ir.I64)
	blk.Append(add)

	if !Rules().Narrow(ir.CursorAt(blk, add), f) {
		t.Fatalf("iadd.i64 must narrow")
	}

	var ops []ir.Opcode
	for inst := blk.Root(); inst != nil; inst = inst.Next() {
		ops = append(ops, inst.Opcode())
	}
	want := []ir.Opcode{
		ir.OpcodeIsplit, ir.OpcodeIsplit,
		ir.OpcodeIaddCout, ir.OpcodeIaddCin,
		ir.OpcodeIconcat,
	}
	if len(ops) != len(want) {
		t.Fatalf("narrowed sequence = %v, want %v", ops, want)
	}
	for n := range want {
		if ops[n] != want[n] {
			t.Fatalf("narrowed sequence = %v, want %v", ops, want)
		}
	}
	if add.Opcode() != ir.OpcodeIconcat || add.Result(0) != r {
		t.Fatalf("original instruction must become the concatenation keeping its result")
	}

	cout := blk.Root().Next().Next()
	cin := cout.Next()
	if len(cout.Results()) != 2 {
		t.Fatalf("iadd_cout must produce a sum and a carry")
	}
	if cin.Arg(2) != cout.Result(1) {
		t.Fatalf("iadd_cin must consume the carry from iadd_cout")
	}
}

func TestNarrowBitwise(t *testing.T) {
	f := ir.NewFunction("f", ir.NewSignature(nil, nil))
	blk := f.AddBlock()
	x := blk.AppendParam(ir.I64)
	y := blk.AppendParam(ir.I64)
	band := f.NewInstruction(ir.OpcodeBand, ir.I64, x, y)
	f.AppendResult(band, ir.I64)
	blk.Append(band)

	if !Rules().Narrow(ir.CursorAt(blk, band), f) {
		t.Fatalf("band.i64 must narrow")
	}
	if band.Opcode() != ir.OpcodeIconcat {
		t.Fatalf("band must be replaced by iconcat, got %s", band.Opcode())
	}
	halves := 0
	for inst := blk.Root(); inst != nil; inst = inst.Next() {
		if inst.Opcode() == ir.OpcodeBand && inst.Type() == ir.I32 {
			halves++
		}
	}
	if halves != 2 {
		t.Fatalf("expected 2 band.i32 halves, found %d", halves)
	}
}

func TestNarrowIconst(t *testing.T) {
	f := ir.NewFunction("f", ir.NewSignature(nil, nil))
	blk := f.AddBlock()
	k := f.NewIconst(ir.I64, 0x1_0000_0003)
	f.AppendResult(k, ir.I64)
	blk.Append(k)

	if !Rules().Narrow(ir.CursorAt(blk, k), f) {
		t.Fatalf("iconst.i64 must narrow")
	}
	lo := blk.Root()
	hi := lo.Next()
	if lo.Opcode() != ir.OpcodeIconst || lo.Imm() != 3 {
		t.Fatalf("low half = %s %d, want iconst 3", lo.Opcode(), lo.Imm())
	}
	if hi.Opcode() != ir.OpcodeIconst || hi.Imm() != 1 {
		t.Fatalf("high half = %s %d, want iconst 1", hi.Opcode(), hi.Imm())
	}
	if k.Opcode() != ir.OpcodeIconcat {
		t.Fatalf("constant must become iconcat of the halves")
	}
}

func TestNarrowNoRule(t *testing.T) {
	f := ir.NewFunction("f", ir.NewSignature(nil, nil))
	blk := f.AddBlock()
	x := blk.AppendParam(ir.I64)
	mul := f.NewInstruction(ir.OpcodeImul, ir.I64, x, x)
	f.AppendResult(mul, ir.I64)
	blk.Append(mul)

	if Rules().Narrow(ir.CursorAt(blk, mul), f) {
		t.Fatalf("imul has no narrowing and must report no change")
	}
}
