package ir

import "fmt"

// BasicBlock is an ordered run of instructions with a single entry point.
// Block parameters stand in for phi values; the entry block's parameters
// are the function's incoming arguments.
type BasicBlock struct {
	id     uint32
	params []Value

	root, last *Instruction

	f          *Function
	prev, next *BasicBlock
}

// Name returns the block's printable name.
func (b *BasicBlock) Name() string {
	return fmt.Sprintf("blk%d", b.id)
}

// Params returns the block's parameter values in order.
func (b *BasicBlock) Params() []Value { return b.params }

// AppendParam adds a new parameter of type t to the block and returns its
// value.
func (b *BasicBlock) AppendParam(t Type) Value {
	v := b.f.allocValue(t)
	b.params = append(b.params, v)
	return v
}

// TakeParams detaches and returns the block's parameter list. Used when
// the parameter list is rebuilt wholesale.
func (b *BasicBlock) TakeParams() []Value {
	ps := b.params
	b.params = nil
	return ps
}

// PutParam reattaches an existing value as the block's next parameter.
func (b *BasicBlock) PutParam(v Value) {
	b.params = append(b.params, v)
}

// Root returns the first instruction of the block, or nil if empty.
func (b *BasicBlock) Root() *Instruction { return b.root }

// Last returns the final instruction of the block, or nil if empty.
func (b *BasicBlock) Last() *Instruction { return b.last }

// Next returns the block laid out after b, or nil.
func (b *BasicBlock) Next() *BasicBlock { return b.next }

// Prev returns the block laid out before b, or nil.
func (b *BasicBlock) Prev() *BasicBlock { return b.prev }

// Append inserts a detached instruction at the end of the block.
func (b *BasicBlock) Append(i *Instruction) {
	if i.blk != nil {
		panic(fmt.Sprintf("ir: %s is already inserted in %s", i.op, i.blk.Name()))
	}
	i.blk = b
	i.prev = b.last
	i.next = nil
	if b.last != nil {
		b.last.next = i
	} else {
		b.root = i
	}
	b.last = i
}

// insertBefore splices a detached instruction immediately before pos,
// which must belong to this block.
func (b *BasicBlock) insertBefore(pos, i *Instruction) {
	if pos.blk != b {
		panic(fmt.Sprintf("ir: %s is not in %s", pos.op, b.Name()))
	}
	if i.blk != nil {
		panic(fmt.Sprintf("ir: %s is already inserted in %s", i.op, i.blk.Name()))
	}
	i.blk = b
	i.prev = pos.prev
	i.next = pos
	if pos.prev != nil {
		pos.prev.next = i
	} else {
		b.root = i
	}
	pos.prev = i
}
