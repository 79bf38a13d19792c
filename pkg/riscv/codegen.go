// Package riscv lowers the structured IR to RV32 assembly text.
//
// Every value lives in a stack slot. Instructions move operands through the
// scratch registers t0 and t1; t2 forms addresses for slots that are too far
// from sp for a 12-bit offset. Results are returned in a0.
package riscv

import (
	"fmt"
	"strings"

	"sysyc/pkg/koopa"
)

const (
	regLHS    = "t0"
	regRHS    = "t1"
	regAddr   = "t2"
	regReturn = "a0"

	immMin = -2048
	immMax = 2047
)

func fitsImm12(v int) bool { return v >= immMin && v <= immMax }

// Generator holds the state of one lowering run.
type Generator struct {
	prog  *koopa.Program
	out   strings.Builder
	frame Frame
}

// Generate lowers prog to assembly text.
func Generate(prog *koopa.Program) (string, error) {
	if prog == nil {
		return "", internalErr("nil program")
	}
	g := &Generator{prog: prog}
	g.emit(".text")
	for _, f := range prog.Funcs {
		if err := g.genFunction(f); err != nil {
			return "", err
		}
	}
	return g.out.String(), nil
}

func (g *Generator) emit(format string, args ...any) {
	fmt.Fprintf(&g.out, "  "+format+"\n", args...)
}

func (g *Generator) label(name string) {
	fmt.Fprintf(&g.out, "%s:\n", name)
}

func (g *Generator) genFunction(f *koopa.Function) error {
	name := strings.TrimPrefix(f.Name, "@")
	if name == "" {
		return internalErr("function with empty name")
	}
	g.emit(".globl %s", name)
	g.label(name)
	for _, bb := range f.Blocks {
		if err := g.genBlock(bb); err != nil {
			return fmt.Errorf("%s %s: %w", f.Name, bb.Name, err)
		}
	}
	return nil
}

func (g *Generator) genBlock(bb *koopa.BasicBlock) error {
	g.frame = computeFrame(g.prog, bb)
	g.adjustSP(-g.frame.Bytes())
	for _, id := range bb.Insts {
		if err := g.genInst(id); err != nil {
			return err
		}
	}
	return nil
}

// adjustSP moves sp by delta bytes. Nothing is emitted for a zero delta.
func (g *Generator) adjustSP(delta int) {
	switch {
	case delta == 0:
	case fitsImm12(delta):
		g.emit("addi sp, sp, %d", delta)
	default:
		g.emit("li %s, %d", regLHS, delta)
		g.emit("add sp, sp, %s", regLHS)
	}
}

// slotAddr returns the memory operand for id's slot.
func (g *Generator) slotAddr(id koopa.ValueID) (string, error) {
	off, ok := g.frame.Offset(id)
	if !ok {
		return "", internalErr("value %d has no stack slot in this block", id)
	}
	if fitsImm12(off) {
		return fmt.Sprintf("%d(sp)", off), nil
	}
	g.emit("li %s, %d", regAddr, off)
	g.emit("add %s, %s, sp", regAddr, regAddr)
	return "0(" + regAddr + ")", nil
}

// loadOperand puts the value of id into reg. Literals are loaded as
// immediates; binary and load results are read from their slots.
func (g *Generator) loadOperand(id koopa.ValueID, reg string) error {
	v := g.prog.Value(id)
	switch v.Kind {
	case koopa.KindInteger:
		g.emit("li %s, %d", reg, v.Int)
		return nil
	case koopa.KindBinary, koopa.KindLoad:
		addr, err := g.slotAddr(id)
		if err != nil {
			return err
		}
		g.emit("lw %s, %s", reg, addr)
		return nil
	}
	return internalErr("operand %d is a %s, not a literal or slot-resident value", id, v.Kind)
}

func (g *Generator) storeSlot(reg string, id koopa.ValueID) error {
	addr, err := g.slotAddr(id)
	if err != nil {
		return err
	}
	g.emit("sw %s, %s", reg, addr)
	return nil
}

// allocSlot checks that id is an alloc, the only valid load source or store target.
func (g *Generator) allocSlot(id koopa.ValueID) error {
	if v := g.prog.Value(id); v.Kind != koopa.KindAlloc {
		return internalErr("memory operand %d is a %s, not an alloc", id, v.Kind)
	}
	return nil
}

func (g *Generator) genInst(id koopa.ValueID) error {
	v := g.prog.Value(id)
	switch v.Kind {
	case koopa.KindAlloc:
		// Reserved by computeFrame.
		return nil

	case koopa.KindLoad:
		if err := g.allocSlot(v.Src); err != nil {
			return err
		}
		addr, err := g.slotAddr(v.Src)
		if err != nil {
			return err
		}
		g.emit("lw %s, %s", regLHS, addr)
		return g.storeSlot(regLHS, id)

	case koopa.KindStore:
		if err := g.allocSlot(v.Dest); err != nil {
			return err
		}
		if err := g.loadOperand(v.Src, regLHS); err != nil {
			return err
		}
		return g.storeSlot(regLHS, v.Dest)

	case koopa.KindBinary:
		return g.genBinary(v)

	case koopa.KindReturn:
		if v.Ret != koopa.NoValue {
			if err := g.loadOperand(v.Ret, regReturn); err != nil {
				return err
			}
		}
		g.adjustSP(g.frame.Bytes())
		g.emit("ret")
		return nil
	}
	return internalErr("unexpected instruction kind %s", v.Kind)
}

// directOps are binary operations with a one-instruction RV32 equivalent.
var directOps = map[koopa.BinaryOp]string{
	koopa.OpAdd: "add",
	koopa.OpSub: "sub",
	koopa.OpMul: "mul",
	koopa.OpDiv: "div",
	koopa.OpMod: "rem",
	koopa.OpAnd: "and",
	koopa.OpOr:  "or",
	koopa.OpGt:  "sgt",
	koopa.OpLt:  "slt",
}

func (g *Generator) genBinary(v *koopa.Value) error {
	if err := g.loadOperand(v.LHS, regLHS); err != nil {
		return err
	}
	if err := g.loadOperand(v.RHS, regRHS); err != nil {
		return err
	}

	if op, ok := directOps[v.Op]; ok {
		g.emit("%s %s, %s, %s", op, regLHS, regLHS, regRHS)
		return g.storeSlot(regLHS, v.ID)
	}

	switch v.Op {
	case koopa.OpNe:
		g.emit("xor %s, %s, %s", regLHS, regLHS, regRHS)
		g.emit("snez %s, %s", regLHS, regLHS)
	case koopa.OpEq:
		g.emit("xor %s, %s, %s", regLHS, regLHS, regRHS)
		g.emit("seqz %s, %s", regLHS, regLHS)
	case koopa.OpGe:
		// a >= b  is  a > b-1
		g.emit("addi %s, %s, -1", regRHS, regRHS)
		g.emit("sgt %s, %s, %s", regLHS, regLHS, regRHS)
	case koopa.OpLe:
		// a <= b  is  a < b+1
		g.emit("addi %s, %s, 1", regRHS, regRHS)
		g.emit("slt %s, %s, %s", regLHS, regLHS, regRHS)
	default:
		return internalErr("unsupported binary operation %s", v.Op)
	}
	return g.storeSlot(regLHS, v.ID)
}
