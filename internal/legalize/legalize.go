package legalize

import (
	"fmt"
	"log/slog"

	"github.com/tinyrange/slate/internal/ir"
	"github.com/tinyrange/slate/internal/isa"
)

// Options tunes a run of the pass.
type Options struct {
	// Logger receives per-function debug summaries. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// MaxSteps aborts the pass after this many instruction visits.
	// Unsound rewrite rules can make the driver loop forever; the cap
	// turns that into a loud failure. Zero means unbounded, matching the
	// original contract.
	MaxSteps int
}

// position is a resume point in the instruction walk: the instruction
// after prev in blk, or the top of blk when prev is nil.
type position struct {
	blk  *ir.BasicBlock
	prev *ir.Instruction
}

func (p position) resume() *ir.Instruction {
	if p.prev == nil {
		return p.blk.Root()
	}
	return p.prev.Next()
}

// worklist is the queue of resume positions. Rewrites push the position
// preceding the mutation and the driver services pushes last-in first-out,
// so freshly inserted code is revisited immediately, before the walk
// moves on.
type worklist struct {
	entries []position
}

func (w *worklist) push(p position) {
	w.entries = append(w.entries, p)
}

func (w *worklist) pop() position {
	p := w.entries[len(w.entries)-1]
	w.entries = w.entries[:len(w.entries)-1]
	return p
}

func (w *worklist) empty() bool {
	return len(w.entries) == 0
}

// Run legalizes f for the target in place: every instruction that has no
// direct encoding is rewritten using the rules engine, every call, return
// and entry boundary is converted to the target's calling convention, and
// the encoding table is populated for every instruction. Invariant
// violations panic; an unsound rule set makes the pass loop unless
// Options.MaxSteps is set.
func Run(f *ir.Function, target isa.Target, rules isa.Rewriter, opts *Options) {
	logger := slog.Default()
	maxSteps := 0
	if opts != nil {
		if opts.Logger != nil {
			logger = opts.Logger
		}
		maxSteps = opts.MaxSteps
	}

	legalizeSignatures(f, target)

	var work worklist
	// Seed in reverse layout order so the LIFO services blocks front to
	// back.
	var blocks []*ir.BasicBlock
	for blk := f.FirstBlock(); blk != nil; blk = blk.Next() {
		blocks = append(blocks, blk)
	}
	for n := len(blocks) - 1; n >= 0; n-- {
		work.push(position{blk: blocks[n]})
	}

	steps, rewrites, encoded := 0, 0, 0

next:
	for !work.empty() {
		p := work.pop()
		for inst := p.resume(); inst != nil; inst = inst.Next() {
			steps++
			if maxSteps > 0 && steps > maxSteps {
				panic(fmt.Sprintf("legalize: %s: exceeded %d steps, rewrite rules are not converging",
					f.Name, maxSteps))
			}

			// The position just before inst, to double back to if this
			// instruction is rewritten.
			prevPos := position{blk: p.blk, prev: inst.Prev()}
			op := inst.Opcode()

			// ABI boundaries are checked before the encoder: a call or
			// return with mismatched argument types is never directly
			// encodable and must not be mistaken for an expand/narrow
			// case.
			if op.IsCall() {
				if handleCallABI(f, ir.CursorAt(p.blk, inst)) {
					rewrites++
					work.push(prevPos)
					continue next
				}
			} else if op.IsReturn() {
				if handleReturnABI(f, ir.CursorAt(p.blk, inst), f.Signature) {
					rewrites++
					work.push(prevPos)
					continue next
				}
			}

			enc, err := target.Encode(f, inst)
			if err == nil {
				f.SetEncoding(inst, enc)
				encoded++
				continue
			}
			rej, ok := err.(isa.Rejection)
			if !ok {
				panic(fmt.Sprintf("legalize: %s: encoder failed on %s.%s: %v",
					f.Name, op, inst.Type(), err))
			}

			c := ir.CursorAt(p.blk, inst)
			var changed bool
			switch rej.Action {
			case isa.ActionExpand:
				changed = rules.Expand(c, f)
			case isa.ActionNarrow:
				changed = rules.Narrow(c, f)
			default:
				panic(fmt.Sprintf("legalize: %s: encoder requested unknown action %d", f.Name, rej.Action))
			}
			if !changed {
				panic(fmt.Sprintf("legalize: %s: no %s strategy for %s.%s",
					f.Name, rej.Action, op, inst.Type()))
			}
			rewrites++
			work.push(prevPos)
			continue next
		}
	}

	logger.Debug("legalized function",
		slog.String("target", target.Name()),
		slog.String("function", f.Name),
		slog.Int("blocks", len(blocks)),
		slog.Int("rewrites", rewrites),
		slog.Int("encodings", encoded),
		slog.Int("steps", steps))
}
