// Package rv32 is a 32-bit RISC target backend. Encoding legality comes
// from the declarative target description in rv32.yaml; the ABI passes
// integer arguments in a0..a7 with narrow integers extended to 32 bits,
// splits wider values across consecutive slots and passes floats as
// integer bit patterns.
package rv32

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/tinyrange/slate/internal/ir"
	"github.com/tinyrange/slate/internal/isa"
)

//go:embed rv32.yaml
var descriptionYAML []byte

const wordBits = 32

type instDesc struct {
	Op        string   `yaml:"op"`
	Always    bool     `yaml:"always"`
	Types     []string `yaml:"types"`
	Recipe    string   `yaml:"recipe"`
	Bits      uint16   `yaml:"bits"`
	Imm12     bool     `yaml:"imm12"`
	Otherwise string   `yaml:"otherwise"`
}

type description struct {
	Name      string `yaml:"name"`
	WordBits  int    `yaml:"wordBits"`
	Registers struct {
		Args []uint16 `yaml:"args"`
		Rets []uint16 `yaml:"rets"`
	} `yaml:"registers"`
	Instructions []instDesc `yaml:"instructions"`
}

type encRule struct {
	always    bool
	types     map[ir.Type]bool
	recipe    string
	bits      uint16
	imm12     bool
	otherwise isa.Action
}

type target struct {
	name    string
	rules   map[ir.Opcode]encRule
	argRegs []uint16
	retRegs []uint16
}

func init() {
	t, err := load(descriptionYAML)
	if err != nil {
		panic(fmt.Sprintf("rv32: %v", err))
	}
	isa.Register(t.name, t)
}

func load(data []byte) (*target, error) {
	var desc description
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("parse target description: %w", err)
	}
	if desc.WordBits != wordBits {
		return nil, fmt.Errorf("target description is %d-bit, backend is %d-bit", desc.WordBits, wordBits)
	}
	if len(desc.Registers.Args) == 0 || len(desc.Registers.Rets) == 0 {
		return nil, fmt.Errorf("target description must name argument and return registers")
	}

	t := &target{
		name:    desc.Name,
		rules:   make(map[ir.Opcode]encRule, len(desc.Instructions)),
		argRegs: desc.Registers.Args,
		retRegs: desc.Registers.Rets,
	}
	for _, d := range desc.Instructions {
		op, ok := ir.OpcodeByName(d.Op)
		if !ok {
			return nil, fmt.Errorf("target description names unknown opcode %q", d.Op)
		}
		if _, dup := t.rules[op]; dup {
			return nil, fmt.Errorf("duplicate instruction entry for %s", op)
		}
		rule := encRule{
			always: d.Always,
			recipe: d.Recipe,
			bits:   d.Bits,
			imm12:  d.Imm12,
		}
		if len(d.Types) > 0 {
			rule.types = make(map[ir.Type]bool, len(d.Types))
			for _, name := range d.Types {
				typ, ok := typeByName(name)
				if !ok {
					return nil, fmt.Errorf("target description names unknown type %q for %s", name, op)
				}
				rule.types[typ] = true
			}
		}
		switch d.Otherwise {
		case "", "expand":
			rule.otherwise = isa.ActionExpand
		case "narrow":
			rule.otherwise = isa.ActionNarrow
		default:
			return nil, fmt.Errorf("unknown legalization action %q for %s", d.Otherwise, op)
		}
		t.rules[op] = rule
	}
	return t, nil
}

func typeByName(name string) (ir.Type, bool) {
	switch name {
	case "i8":
		return ir.I8, true
	case "i16":
		return ir.I16, true
	case "i32":
		return ir.I32, true
	case "i64":
		return ir.I64, true
	case "f32":
		return ir.F32, true
	case "f64":
		return ir.F64, true
	}
	return ir.TypeInvalid, false
}

// Name implements isa.Target.
func (t *target) Name() string { return t.name }

// Encode implements isa.Target.
func (t *target) Encode(f *ir.Function, inst *ir.Instruction) (ir.Encoding, error) {
	rule, ok := t.rules[inst.Opcode()]
	if !ok {
		return ir.Encoding{}, isa.Rejection{Action: isa.ActionExpand}
	}
	if !rule.always && !rule.types[inst.Type()] {
		return ir.Encoding{}, isa.Rejection{Action: rule.otherwise}
	}
	if rule.imm12 && !immFits12(inst.Imm()) {
		return ir.Encoding{}, isa.Rejection{Action: isa.ActionExpand}
	}
	return ir.Encoding{Recipe: rule.recipe, Bits: rule.bits}, nil
}

func immFits12(imm int64) bool {
	return imm >= -2048 && imm <= 2047
}

// LegalizeSignature implements isa.Target. Each natural parameter is
// expanded into one or more 32-bit slots, then slots are assigned to the
// argument registers in order with the overflow spilling to the stack.
func (t *target) LegalizeSignature(sig *ir.Signature) {
	if sig.Legalized {
		return
	}
	sig.Params = assignLocs(expandArgs(sig.Params), t.argRegs)
	sig.Returns = assignLocs(expandArgs(sig.Returns), t.retRegs)
	sig.Legalized = true
}

// expandArgs flattens natural argument types into the ABI slot types the
// calling convention actually carries.
func expandArgs(args []ir.ArgumentType) []ir.ArgumentType {
	var out []ir.ArgumentType
	for _, at := range args {
		out = expandArg(at, out)
	}
	return out
}

func expandArg(at ir.ArgumentType, out []ir.ArgumentType) []ir.ArgumentType {
	t := at.Type
	switch {
	case t.IsVector() && t.Bits() > wordBits:
		half, ok := t.HalfVector()
		if !ok {
			panic(fmt.Sprintf("rv32: cannot halve vector type %s", t))
		}
		out = expandArg(ir.ArgumentType{Type: half, Extension: at.Extension}, out)
		out = expandArg(ir.ArgumentType{Type: half, Extension: at.Extension}, out)
	case t.IsVector() && t.Bits() < wordBits:
		// Vectors are halved down to word-sized slots, never extended;
		// a sub-word vector has no slot shape in this convention.
		panic(fmt.Sprintf("rv32: no abi slot for sub-word vector %s", t))
	case t.IsFloat():
		// No FPU: floats travel as integer bit patterns.
		intTy, ok := ir.IntWithBits(t.Bits())
		if !ok {
			panic(fmt.Sprintf("rv32: no integer carrier for %s", t))
		}
		out = expandArg(ir.ArgumentType{Type: intTy, Extension: at.Extension}, out)
	case t.IsInt() && t.Bits() > wordBits:
		half, ok := t.HalfWidth()
		if !ok {
			panic(fmt.Sprintf("rv32: cannot halve integer type %s", t))
		}
		out = expandArg(ir.ArgumentType{Type: half, Extension: at.Extension}, out)
		out = expandArg(ir.ArgumentType{Type: half, Extension: at.Extension}, out)
	case t.IsInt() && t.Bits() < wordBits:
		// Narrow integers fill a full register; sign extension is the
		// convention's default.
		ext := at.Extension
		if ext == ir.ExtNone {
			ext = ir.ExtSext
		}
		out = append(out, ir.ArgumentType{Type: ir.I32, Extension: ext})
	default:
		out = append(out, ir.ArgumentType{Type: t, Extension: at.Extension})
	}
	return out
}

// assignLocs fills in the location of every slot: registers from regs in
// order, then 4-byte stack slots.
func assignLocs(slots []ir.ArgumentType, regs []uint16) []ir.ArgumentType {
	stackOffset := int32(0)
	for n := range slots {
		if n < len(regs) {
			slots[n].Loc = ir.RegLoc(regs[n])
		} else {
			slots[n].Loc = ir.StackLoc(stackOffset)
			stackOffset += 4
		}
	}
	return slots
}
