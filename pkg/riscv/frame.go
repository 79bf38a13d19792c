package riscv

import "sysyc/pkg/koopa"

// WordSize is the size in bytes of one stack slot.
const WordSize = 4

// Frame is the stack layout of one basic block.
type Frame struct {
	// Slots maps each value-producing instruction to its slot index.
	// Slot i lives at i*WordSize(sp).
	Slots map[koopa.ValueID]int
	// Words is the slot count rounded up to a multiple of 4.
	Words int
}

// Bytes is the number of bytes the block moves sp by.
func (f Frame) Bytes() int { return f.Words * WordSize }

// Offset returns the sp-relative byte offset of id's slot.
func (f Frame) Offset(id koopa.ValueID) (int, bool) {
	slot, ok := f.Slots[id]
	return slot * WordSize, ok
}

// computeFrame assigns slots to every instruction in bb that produces a
// non-unit value or allocates memory. It runs before any code is emitted so
// that loads can find slots defined earlier in the block.
func computeFrame(prog *koopa.Program, bb *koopa.BasicBlock) Frame {
	f := Frame{Slots: make(map[koopa.ValueID]int)}
	for _, id := range bb.Insts {
		v := prog.Value(id)
		if v.Type != koopa.TypeUnit || v.Kind == koopa.KindAlloc {
			f.Slots[id] = len(f.Slots)
		}
	}
	f.Words = (len(f.Slots) + 3) &^ 3
	return f
}
