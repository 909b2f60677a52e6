package ir

import (
	"fmt"
	"math"
	"strings"
)

// ArgumentExtension states how a narrow argument is widened to fill its
// ABI location.
type ArgumentExtension byte

const (
	// ExtNone leaves the upper bits unspecified.
	ExtNone ArgumentExtension = iota
	// ExtUext zero-extends.
	ExtUext
	// ExtSext sign-extends.
	ExtSext
)

// String implements fmt.Stringer.
func (e ArgumentExtension) String() string {
	switch e {
	case ExtUext:
		return "uext"
	case ExtSext:
		return "sext"
	}
	return ""
}

type locKind byte

const (
	locNone locKind = iota
	locReg
	locStack
)

// ArgumentLoc is the ABI-assigned location of an argument: a register, a
// stack offset, or unassigned before signature legalization.
type ArgumentLoc struct {
	kind   locKind
	reg    uint16
	offset int32
}

// RegLoc returns a register location.
func RegLoc(reg uint16) ArgumentLoc { return ArgumentLoc{kind: locReg, reg: reg} }

// StackLoc returns a stack location at the given byte offset.
func StackLoc(offset int32) ArgumentLoc { return ArgumentLoc{kind: locStack, offset: offset} }

// Assigned reports whether the location has been filled in by the ABI
// classifier.
func (l ArgumentLoc) Assigned() bool { return l.kind != locNone }

// IsReg reports whether the argument lives in a register.
func (l ArgumentLoc) IsReg() bool { return l.kind == locReg }

// Reg returns the register number of a register location.
func (l ArgumentLoc) Reg() uint16 {
	if l.kind != locReg {
		panic("ir: argument is not in a register")
	}
	return l.reg
}

// StackOffset returns the byte offset of a stack location.
func (l ArgumentLoc) StackOffset() int32 {
	if l.kind != locStack {
		panic("ir: argument is not on the stack")
	}
	return l.offset
}

// String implements fmt.Stringer.
func (l ArgumentLoc) String() string {
	switch l.kind {
	case locReg:
		return fmt.Sprintf("reg%d", l.reg)
	case locStack:
		return fmt.Sprintf("stack%+d", l.offset)
	}
	return "-"
}

// ArgumentType is one parameter or return slot of a Signature: a value
// type plus the ABI metadata assigned by the target's classifier.
type ArgumentType struct {
	Type      Type
	Extension ArgumentExtension
	Loc       ArgumentLoc
}

// Arg returns an ArgumentType with no ABI metadata, as signatures are
// built before legalization.
func Arg(t Type) ArgumentType { return ArgumentType{Type: t} }

// String implements fmt.Stringer.
func (a ArgumentType) String() string {
	var sb strings.Builder
	sb.WriteString(a.Type.String())
	if ext := a.Extension.String(); ext != "" {
		sb.WriteByte(' ')
		sb.WriteString(ext)
	}
	if a.Loc.Assigned() {
		fmt.Fprintf(&sb, " [%s]", a.Loc)
	}
	return sb.String()
}

// Signature describes the parameters and returns of a function or callee.
// One Signature object is shared by every call site that references it.
type Signature struct {
	Params  []ArgumentType
	Returns []ArgumentType

	// Legalized is set by the target's ABI classifier once every
	// ArgumentType carries full location metadata.
	Legalized bool
}

// NewSignature builds an unlegalized signature from plain value types.
func NewSignature(params, returns []Type) *Signature {
	sig := &Signature{}
	for _, t := range params {
		sig.Params = append(sig.Params, Arg(t))
	}
	for _, t := range returns {
		sig.Returns = append(sig.Returns, Arg(t))
	}
	return sig
}

// String implements fmt.Stringer.
func (s *Signature) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for n, a := range s.Params {
		if n > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.String())
	}
	sb.WriteString(") -> (")
	for n, a := range s.Returns {
		if n > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// SigRef is a handle to a callee signature stored on the Function.
type SigRef uint32

const sigRefInvalid SigRef = math.MaxUint32

// FuncRef is a handle to an external function stored on the Function.
type FuncRef uint32

const funcRefInvalid FuncRef = math.MaxUint32

// ExtFunc names an external function callable from this function.
type ExtFunc struct {
	Name string
	Sig  SigRef
}
