// Package cpu interprets the RV32 subset produced by the RISC-V back end.
package cpu

import (
	"errors"
	"fmt"
	"math"
)

type Op uint8

const (
	OpLI Op = iota
	OpLW
	OpSW
	OpADDI
	OpADD
	OpSUB
	OpMUL
	OpDIV
	OpREM
	OpAND
	OpOR
	OpXOR
	OpSLT
	OpSGT
	OpSEQZ
	OpSNEZ
	OpMV
	OpRET
)

var opNames = [...]string{
	OpLI:   "li",
	OpLW:   "lw",
	OpSW:   "sw",
	OpADDI: "addi",
	OpADD:  "add",
	OpSUB:  "sub",
	OpMUL:  "mul",
	OpDIV:  "div",
	OpREM:  "rem",
	OpAND:  "and",
	OpOR:   "or",
	OpXOR:  "xor",
	OpSLT:  "slt",
	OpSGT:  "sgt",
	OpSEQZ: "seqz",
	OpSNEZ: "snez",
	OpMV:   "mv",
	OpRET:  "ret",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

var opsByName = func() map[string]Op {
	m := make(map[string]Op, len(opNames))
	for op, name := range opNames {
		m[name] = Op(op)
	}
	return m
}()

// LookupOp returns the opcode for a lower-case mnemonic.
func LookupOp(mnemonic string) (Op, bool) {
	op, ok := opsByName[mnemonic]
	return op, ok
}

const (
	RegZero uint8 = 0
	RegRA   uint8 = 1
	RegSP   uint8 = 2
	RegT0   uint8 = 5
	RegT1   uint8 = 6
	RegT2   uint8 = 7
	RegA0   uint8 = 10
)

// RegNames holds the ABI name of every integer register.
var RegNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

var regsByName = func() map[string]uint8 {
	m := make(map[string]uint8, 70)
	for i, name := range RegNames {
		m[name] = uint8(i)
		m[fmt.Sprintf("x%d", i)] = uint8(i)
	}
	m["fp"] = 8
	return m
}()

// LookupReg accepts both ABI names (t0) and numeric names (x5).
func LookupReg(name string) (uint8, bool) {
	r, ok := regsByName[name]
	return r, ok
}

// Instruction is one decoded instruction. Imm holds the immediate of li and
// addi and the offset of lw and sw.
type Instruction struct {
	Op       Op
	Rd       uint8
	Rs1, Rs2 uint8
	Imm      int32
	Line     int
}

// Program is an assembled text section.
type Program struct {
	Insts   []Instruction
	Labels  map[string]int // label -> instruction index
	Globals []string
}

const (
	MemorySize       = 64 * 1024
	DefaultStepLimit = 1_000_000

	// returnAddr is loaded into ra by Call; returning to it stops the run.
	returnAddr int32 = -1
)

var ErrStepLimit = errors.New("step limit exceeded")

// Fault is a runtime error raised by an instruction.
type Fault struct {
	PC   int
	Line int
	Err  error
}

func (f *Fault) Error() string {
	if f.Line > 0 {
		return fmt.Sprintf("cpu: pc %d (line %d): %v", f.PC, f.Line, f.Err)
	}
	return fmt.Sprintf("cpu: pc %d: %v", f.PC, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

type CPU struct {
	Regs [32]int32
	PC   int

	Memory []byte

	Halted bool

	// Steps counts executed instructions since the last Reset.
	Steps int
	// StepLimit stops runaway programs; zero means DefaultStepLimit.
	StepLimit int

	prog *Program
}

func New(prog *Program) *CPU {
	c := &CPU{Memory: make([]byte, MemorySize), prog: prog}
	c.Reset()
	return c
}

// Reset clears registers and memory and points sp at the top of memory.
func (c *CPU) Reset() {
	c.Regs = [32]int32{}
	clear(c.Memory)
	c.Regs[RegSP] = int32(len(c.Memory))
	c.PC = 0
	c.Steps = 0
	c.Halted = false
}

func (c *CPU) checkAddr(addr int32) error {
	if addr%4 != 0 {
		return fmt.Errorf("misaligned word access at %d", addr)
	}
	if addr < 0 || int(addr)+4 > len(c.Memory) {
		return fmt.Errorf("memory access out of range at %d", addr)
	}
	return nil
}

// Load32 reads a little-endian word.
func (c *CPU) Load32(addr int32) (int32, error) {
	if err := c.checkAddr(addr); err != nil {
		return 0, err
	}
	m := c.Memory[addr:]
	return int32(uint32(m[0]) | uint32(m[1])<<8 | uint32(m[2])<<16 | uint32(m[3])<<24), nil
}

// Store32 writes a little-endian word.
func (c *CPU) Store32(addr, val int32) error {
	if err := c.checkAddr(addr); err != nil {
		return err
	}
	m := c.Memory[addr:]
	m[0] = byte(val)
	m[1] = byte(val >> 8)
	m[2] = byte(val >> 16)
	m[3] = byte(val >> 24)
	return nil
}

func (c *CPU) set(rd uint8, val int32) {
	if rd != RegZero {
		c.Regs[rd] = val
	}
}

func boolWord(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// div and rem follow the RISC-V M extension: no traps on zero or overflow.
func div(a, b int32) int32 {
	switch {
	case b == 0:
		return -1
	case a == math.MinInt32 && b == -1:
		return a
	}
	return a / b
}

func rem(a, b int32) int32 {
	switch {
	case b == 0:
		return a
	case a == math.MinInt32 && b == -1:
		return 0
	}
	return a % b
}

// Step executes one instruction.
func (c *CPU) Step() error {
	if c.Halted {
		return nil
	}
	if c.prog == nil || c.PC < 0 || c.PC >= len(c.prog.Insts) {
		c.Halted = true
		return &Fault{PC: c.PC, Err: errors.New("pc outside the program")}
	}

	in := c.prog.Insts[c.PC]
	fault := func(err error) error {
		c.Halted = true
		return &Fault{PC: c.PC, Line: in.Line, Err: err}
	}
	r := &c.Regs
	c.Steps++
	c.PC++

	switch in.Op {
	case OpLI:
		c.set(in.Rd, in.Imm)
	case OpMV:
		c.set(in.Rd, r[in.Rs1])
	case OpADDI:
		c.set(in.Rd, r[in.Rs1]+in.Imm)

	case OpLW:
		val, err := c.Load32(r[in.Rs1] + in.Imm)
		if err != nil {
			c.PC--
			return fault(err)
		}
		c.set(in.Rd, val)
	case OpSW:
		if err := c.Store32(r[in.Rs1]+in.Imm, r[in.Rs2]); err != nil {
			c.PC--
			return fault(err)
		}

	case OpADD:
		c.set(in.Rd, r[in.Rs1]+r[in.Rs2])
	case OpSUB:
		c.set(in.Rd, r[in.Rs1]-r[in.Rs2])
	case OpMUL:
		c.set(in.Rd, r[in.Rs1]*r[in.Rs2])
	case OpDIV:
		c.set(in.Rd, div(r[in.Rs1], r[in.Rs2]))
	case OpREM:
		c.set(in.Rd, rem(r[in.Rs1], r[in.Rs2]))
	case OpAND:
		c.set(in.Rd, r[in.Rs1]&r[in.Rs2])
	case OpOR:
		c.set(in.Rd, r[in.Rs1]|r[in.Rs2])
	case OpXOR:
		c.set(in.Rd, r[in.Rs1]^r[in.Rs2])
	case OpSLT:
		c.set(in.Rd, boolWord(r[in.Rs1] < r[in.Rs2]))
	case OpSGT:
		c.set(in.Rd, boolWord(r[in.Rs1] > r[in.Rs2]))
	case OpSEQZ:
		c.set(in.Rd, boolWord(r[in.Rs1] == 0))
	case OpSNEZ:
		c.set(in.Rd, boolWord(r[in.Rs1] != 0))

	case OpRET:
		target := r[RegRA]
		if target == returnAddr {
			c.Halted = true
			return nil
		}
		c.PC = int(target)

	default:
		c.PC--
		return fault(fmt.Errorf("unknown opcode %s", in.Op))
	}
	return nil
}

// Run steps until the program returns to the caller of Call.
func (c *CPU) Run() error {
	limit := c.StepLimit
	if limit <= 0 {
		limit = DefaultStepLimit
	}
	for !c.Halted {
		if c.Steps >= limit {
			c.Halted = true
			return &Fault{PC: c.PC, Err: ErrStepLimit}
		}
		if err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Call resets the machine, runs the function at label and returns a0.
// The stack pointer must be back at the top of memory on return.
func (c *CPU) Call(label string) (int32, error) {
	if c.prog == nil {
		return 0, errors.New("cpu: no program loaded")
	}
	entry, ok := c.prog.Labels[label]
	if !ok {
		return 0, fmt.Errorf("cpu: undefined label %q", label)
	}
	c.Reset()
	c.PC = entry
	c.Regs[RegRA] = returnAddr
	if err := c.Run(); err != nil {
		return 0, err
	}
	if sp := c.Regs[RegSP]; sp != int32(len(c.Memory)) {
		return 0, fmt.Errorf("cpu: %s returned with sp %d, want %d", label, sp, len(c.Memory))
	}
	return c.Regs[RegA0], nil
}
