// Package isa defines the target-specific interfaces consumed by the
// legalization pass: the encoding query, the ABI classifier and the
// expand/narrow rewrite engine. Concrete targets live in subpackages and
// register themselves so callers can look them up by name.
package isa

import (
	"fmt"
	"sync"

	"github.com/tinyrange/slate/internal/ir"
)

// Action is the legalization strategy a target requests for an
// instruction it cannot encode directly.
type Action int

const (
	// ActionExpand replaces the instruction with an equivalent sequence
	// of simpler instructions.
	ActionExpand Action = 1 + iota
	// ActionNarrow splits the instruction's controlling type into high
	// and low halves.
	ActionNarrow
)

// String implements fmt.Stringer.
func (a Action) String() string {
	switch a {
	case ActionExpand:
		return "expand"
	case ActionNarrow:
		return "narrow"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Rejection is the error returned by Target.Encode for an instruction
// with no direct machine encoding, carrying the legalization strategy the
// target expects to succeed.
type Rejection struct {
	Action Action
}

// Error implements error.
func (r Rejection) Error() string {
	return fmt.Sprintf("isa: no direct encoding, %s required", r.Action)
}

// Target is one target instruction set architecture.
type Target interface {
	// Name returns the target's registered name.
	Name() string

	// LegalizeSignature mutates sig in place so every ArgumentType
	// carries full ABI location and extension metadata. Must be
	// idempotent.
	LegalizeSignature(sig *ir.Signature)

	// Encode selects an encoding for the instruction, or returns a
	// Rejection naming the legalization strategy to try. It is a pure
	// query and never mutates the function.
	Encode(f *ir.Function, inst *ir.Instruction) (ir.Encoding, error)
}

// Rewriter applies target legalization rules to the instruction at the
// cursor. Both methods report whether they rewrote the instruction into a
// new sequence; inserted code is placed before the cursor position and
// the original instruction is replaced in place.
type Rewriter interface {
	Expand(c *ir.Cursor, f *ir.Function) bool
	Narrow(c *ir.Cursor, f *ir.Function) bool
}

var (
	targetsMu sync.RWMutex
	targets   = make(map[string]Target)
)

// Register wires a target into the registry. It panics when attempting to
// register the same name twice so mistakes are caught during init.
func Register(name string, t Target) {
	if name == "" {
		panic("isa: target name must be non-empty")
	}
	if t == nil {
		panic("isa: target must be non-nil")
	}

	targetsMu.Lock()
	defer targetsMu.Unlock()

	if _, exists := targets[name]; exists {
		panic(fmt.Sprintf("isa: target %q already registered", name))
	}
	targets[name] = t
}

// Lookup returns the target registered under name.
func Lookup(name string) (Target, error) {
	targetsMu.RLock()
	defer targetsMu.RUnlock()

	if t, ok := targets[name]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("isa: no target registered for %q", name)
}
