package ir

// Cursor is a position in a block's instruction sequence. It points at
// the instruction currently being examined, or past the end of the block
// when Inst is nil, and splices new instructions in without invalidating
// the surrounding iteration.
type Cursor struct {
	blk *BasicBlock
	cur *Instruction
}

// CursorAt returns a cursor positioned at inst within blk. A nil inst
// positions the cursor past the end of the block, where InsertBefore
// appends.
func CursorAt(blk *BasicBlock, inst *Instruction) *Cursor {
	if blk == nil {
		panic("ir: cursor requires a block")
	}
	if inst != nil && inst.blk != blk {
		panic("ir: cursor instruction is not in the given block")
	}
	return &Cursor{blk: blk, cur: inst}
}

// CursorAtTop returns a cursor at the first instruction of blk, so that
// InsertBefore places code at the top of the block (or appends if the
// block is empty).
func CursorAtTop(blk *BasicBlock) *Cursor {
	return CursorAt(blk, blk.Root())
}

// Block returns the cursor's block.
func (c *Cursor) Block() *BasicBlock { return c.blk }

// Inst returns the instruction the cursor points at, or nil at the end of
// the block.
func (c *Cursor) Inst() *Instruction { return c.cur }

// Next advances the cursor one instruction and returns the new current
// instruction, or nil when the block is exhausted.
func (c *Cursor) Next() *Instruction {
	if c.cur != nil {
		c.cur = c.cur.next
	}
	return c.cur
}

// InsertBefore splices a detached instruction immediately before the
// cursor position. The cursor itself does not move, so repeated inserts
// appear in insertion order before the current instruction.
func (c *Cursor) InsertBefore(i *Instruction) {
	if c.cur == nil {
		c.blk.Append(i)
		return
	}
	c.blk.insertBefore(c.cur, i)
}
