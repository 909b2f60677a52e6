package ir

import (
	"fmt"
	"strings"
)

// String renders the function in a readable textual form for diagnostics
// and test failures. The format is not parsed by anything.
func (f *Function) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "function %s%s:\n", f.Name, f.Signature)
	for b := f.first; b != nil; b = b.next {
		sb.WriteString(b.Name())
		sb.WriteByte('(')
		for n, p := range b.params {
			if n > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s: %s", p, p.Type())
		}
		sb.WriteString("):\n")
		for i := b.root; i != nil; i = i.next {
			sb.WriteString("  ")
			sb.WriteString(f.formatInstruction(i))
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func (f *Function) formatInstruction(i *Instruction) string {
	var sb strings.Builder
	if len(i.results) > 0 {
		for n, r := range i.results {
			if n > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(r.String())
		}
		sb.WriteString(" = ")
	}
	sb.WriteString(i.op.String())
	if i.typ != TypeInvalid {
		sb.WriteByte('.')
		sb.WriteString(i.typ.String())
	}
	sep := " "
	hasImm := false
	switch {
	case i.op.IsBranch():
		if blk := i.TargetBlock(); blk != nil {
			fmt.Fprintf(&sb, " %s", blk.Name())
			sep = ", "
		}
	case i.op == OpcodeCall || i.op == OpcodeFuncAddr:
		fmt.Fprintf(&sb, " %s", f.ExtFuncData(i.fnRef).Name)
		sep = ", "
	case i.op == OpcodeCallIndirect:
		fmt.Fprintf(&sb, " sig%d", i.sigRef)
		sep = ", "
	case i.op == OpcodeIconst, i.op == OpcodeIaddImm, i.op == OpcodeIsubImm,
		i.op == OpcodeImulImm, i.op == OpcodeBandImm, i.op == OpcodeBorImm,
		i.op == OpcodeBxorImm:
		hasImm = true
	}
	for _, v := range i.vs {
		sb.WriteString(sep)
		sb.WriteString(v.String())
		sep = ", "
	}
	if hasImm {
		fmt.Fprintf(&sb, "%s%d", sep, i.imm)
	}
	if e, ok := f.EncodingOf(i); ok {
		fmt.Fprintf(&sb, "  ; %s", e)
	}
	return sb.String()
}
