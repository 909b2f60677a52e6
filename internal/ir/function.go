package ir

import "fmt"

// Encoding is a target-specific encoding descriptor for one instruction:
// the recipe that lays out the machine instruction plus recipe-specific
// encoding bits. Code emission consumes the function's encoding table.
type Encoding struct {
	Recipe string
	Bits   uint16
}

// String implements fmt.Stringer.
func (e Encoding) String() string {
	return fmt.Sprintf("%s#%x", e.Recipe, e.Bits)
}

// Function owns a signature, an instruction/value graph, a block layout
// and an encoding table. It is built by earlier pipeline stages and
// mutated in place by later passes, never copied.
type Function struct {
	Name      string
	Signature *Signature

	first, last *BasicBlock
	nextBlockID uint32
	nextValue   valueID

	signatures []*Signature
	extFuncs   []ExtFunc

	aliases   map[valueID]Value
	encodings map[*Instruction]Encoding
}

// NewFunction creates an empty function with the given signature.
func NewFunction(name string, sig *Signature) *Function {
	if sig == nil {
		panic("ir: function signature must be non-nil")
	}
	return &Function{Name: name, Signature: sig}
}

// AddBlock appends a new empty block to the layout. The first block added
// is the entry block.
func (f *Function) AddBlock() *BasicBlock {
	b := &BasicBlock{id: f.nextBlockID, f: f}
	f.nextBlockID++
	b.prev = f.last
	if f.last != nil {
		f.last.next = b
	} else {
		f.first = b
	}
	f.last = b
	return b
}

// Entry returns the entry block, or nil if the layout is empty.
func (f *Function) Entry() *BasicBlock { return f.first }

// FirstBlock returns the first block in layout order.
func (f *Function) FirstBlock() *BasicBlock { return f.first }

func (f *Function) allocValue(t Type) Value {
	id := f.nextValue
	f.nextValue++
	return makeValue(id, t)
}

// NewInstruction builds a detached instruction with the given controlling
// type and operands. Results are added with AppendResult and the
// instruction is placed with BasicBlock.Append or Cursor.InsertBefore.
func (f *Function) NewInstruction(op Opcode, typ Type, args ...Value) *Instruction {
	i := &Instruction{op: op, typ: typ, fnRef: funcRefInvalid, sigRef: sigRefInvalid}
	if op.HasValueList() && args == nil {
		args = []Value{}
	}
	i.vs = args
	return i
}

// NewIconst builds a detached iconst of the given type.
func (f *Function) NewIconst(typ Type, imm int64) *Instruction {
	i := f.NewInstruction(OpcodeIconst, typ)
	i.imm = imm
	return i
}

// NewCall builds a detached direct call to fn with the given arguments.
func (f *Function) NewCall(fn FuncRef, args ...Value) *Instruction {
	i := f.NewInstruction(OpcodeCall, TypeInvalid, args...)
	i.fnRef = fn
	return i
}

// NewBinaryImm builds a detached immediate-form binary operation.
func (f *Function) NewBinaryImm(op Opcode, typ Type, x Value, imm int64) *Instruction {
	i := f.NewInstruction(op, typ, x)
	i.imm = imm
	return i
}

// NewJump builds a detached unconditional jump to target, passing args as
// the target's block parameters.
func (f *Function) NewJump(target *BasicBlock, args ...Value) *Instruction {
	i := f.NewInstruction(OpcodeJump, TypeInvalid, args...)
	i.target = target
	return i
}

// NewBranch builds a detached conditional branch (brz or brnz) on cond to
// target.
func (f *Function) NewBranch(op Opcode, cond Value, target *BasicBlock, args ...Value) *Instruction {
	if op != OpcodeBrz && op != OpcodeBrnz {
		panic(fmt.Sprintf("ir: %s is not a conditional branch", op))
	}
	vs := append([]Value{cond}, args...)
	i := f.NewInstruction(op, TypeInvalid, vs...)
	i.target = target
	return i
}

// NewCallIndirect builds a detached indirect call through callee, whose
// signature is sig.
func (f *Function) NewCallIndirect(sig SigRef, callee Value, args ...Value) *Instruction {
	vs := append([]Value{callee}, args...)
	i := f.NewInstruction(OpcodeCallIndirect, TypeInvalid, vs...)
	i.sigRef = sig
	return i
}

// AppendResult adds a result value of type t to the instruction and
// returns it.
func (f *Function) AppendResult(i *Instruction, t Type) Value {
	v := f.allocValue(t)
	i.results = append(i.results, v)
	return v
}

// DeclareSignature records a callee signature and returns its handle.
func (f *Function) DeclareSignature(sig *Signature) SigRef {
	f.signatures = append(f.signatures, sig)
	return SigRef(len(f.signatures) - 1)
}

// SignatureData returns the signature behind a handle.
func (f *Function) SignatureData(ref SigRef) *Signature {
	if int(ref) >= len(f.signatures) {
		panic(fmt.Sprintf("ir: signature %d not found", ref))
	}
	return f.signatures[ref]
}

// Signatures returns all declared callee signatures.
func (f *Function) Signatures() []*Signature { return f.signatures }

// DeclareExtFunc records an external function and returns its handle.
func (f *Function) DeclareExtFunc(name string, sig SigRef) FuncRef {
	f.extFuncs = append(f.extFuncs, ExtFunc{Name: name, Sig: sig})
	return FuncRef(len(f.extFuncs) - 1)
}

// ExtFuncData returns the external function behind a handle.
func (f *Function) ExtFuncData(ref FuncRef) ExtFunc {
	if int(ref) >= len(f.extFuncs) {
		panic(fmt.Sprintf("ir: external function %d not found", ref))
	}
	return f.extFuncs[ref]
}

// SetEncoding records the encoding selected for an instruction.
func (f *Function) SetEncoding(i *Instruction, e Encoding) {
	if f.encodings == nil {
		f.encodings = make(map[*Instruction]Encoding)
	}
	f.encodings[i] = e
}

// EncodingOf returns the encoding recorded for an instruction.
func (f *Function) EncodingOf(i *Instruction) (Encoding, bool) {
	e, ok := f.encodings[i]
	return e, ok
}
