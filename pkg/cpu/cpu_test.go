package cpu

import (
	"errors"
	"math"
	"testing"
)

// prog builds a program whose entry label "f" is at index 0.
func prog(insts ...Instruction) *Program {
	return &Program{Insts: insts, Labels: map[string]int{"f": 0}, Globals: []string{"f"}}
}

func ret() Instruction { return Instruction{Op: OpRET} }

func li(rd uint8, imm int32) Instruction { return Instruction{Op: OpLI, Rd: rd, Imm: imm} }

func rtype(op Op, rd, rs1, rs2 uint8) Instruction {
	return Instruction{Op: op, Rd: rd, Rs1: rs1, Rs2: rs2}
}

func call(t *testing.T, p *Program) int32 {
	t.Helper()
	got, err := New(p).Call("f")
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	return got
}

func TestALU(t *testing.T) {
	tests := []struct {
		name string
		op   Op
		a, b int32
		want int32
	}{
		{"add", OpADD, 10, 20, 30},
		{"add wraps", OpADD, math.MaxInt32, 1, math.MinInt32},
		{"sub", OpSUB, 10, 25, -15},
		{"mul", OpMUL, -6, 7, -42},
		{"div truncates", OpDIV, -7, 2, -3},
		{"div by zero", OpDIV, 7, 0, -1},
		{"div overflow", OpDIV, math.MinInt32, -1, math.MinInt32},
		{"rem", OpREM, -7, 2, -1},
		{"rem by zero", OpREM, 7, 0, 7},
		{"rem overflow", OpREM, math.MinInt32, -1, 0},
		{"and", OpAND, 0b1100, 0b1010, 0b1000},
		{"or", OpOR, 0b1100, 0b1010, 0b1110},
		{"xor", OpXOR, 0b1100, 0b1010, 0b0110},
		{"slt true", OpSLT, -1, 0, 1},
		{"slt false", OpSLT, 3, 3, 0},
		{"sgt true", OpSGT, 4, 3, 1},
		{"sgt false", OpSGT, -4, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := prog(
				li(RegT0, tt.a),
				li(RegT1, tt.b),
				rtype(tt.op, RegA0, RegT0, RegT1),
				ret(),
			)
			if got := call(t, p); got != tt.want {
				t.Errorf("%d %s %d: expected %d, got %d", tt.a, tt.op, tt.b, tt.want, got)
			}
		})
	}
}

func TestSetIfZero(t *testing.T) {
	for _, v := range []int32{0, 5, -5} {
		p := prog(li(RegT0, v), Instruction{Op: OpSEQZ, Rd: RegA0, Rs1: RegT0}, ret())
		if got, want := call(t, p), boolWord(v == 0); got != want {
			t.Errorf("seqz %d: expected %d, got %d", v, want, got)
		}
		p = prog(li(RegT0, v), Instruction{Op: OpSNEZ, Rd: RegA0, Rs1: RegT0}, ret())
		if got, want := call(t, p), boolWord(v != 0); got != want {
			t.Errorf("snez %d: expected %d, got %d", v, want, got)
		}
	}
}

func TestZeroRegister(t *testing.T) {
	p := prog(
		li(RegZero, 99),
		Instruction{Op: OpMV, Rd: RegA0, Rs1: RegZero},
		ret(),
	)
	if got := call(t, p); got != 0 {
		t.Errorf("zero register was written: got %d", got)
	}
}

func TestStackFrame(t *testing.T) {
	p := prog(
		Instruction{Op: OpADDI, Rd: RegSP, Rs1: RegSP, Imm: -16},
		li(RegT0, 1234),
		Instruction{Op: OpSW, Rs1: RegSP, Rs2: RegT0, Imm: 4},
		Instruction{Op: OpLW, Rd: RegA0, Rs1: RegSP, Imm: 4},
		Instruction{Op: OpADDI, Rd: RegSP, Rs1: RegSP, Imm: 16},
		ret(),
	)
	if got := call(t, p); got != 1234 {
		t.Errorf("expected 1234, got %d", got)
	}
}

func TestUnbalancedStack(t *testing.T) {
	p := prog(Instruction{Op: OpADDI, Rd: RegSP, Rs1: RegSP, Imm: -16}, ret())
	if _, err := New(p).Call("f"); err == nil {
		t.Fatal("expected error for sp not restored")
	}
}

func TestMemoryFaults(t *testing.T) {
	tests := []struct {
		name string
		in   Instruction
	}{
		{"above memory", Instruction{Op: OpLW, Rd: RegA0, Rs1: RegSP, Imm: 0}},
		{"misaligned", Instruction{Op: OpSW, Rs1: RegSP, Rs2: RegT0, Imm: -6}},
		{"negative", Instruction{Op: OpLW, Rd: RegA0, Rs1: RegZero, Imm: -4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Line = 7
			_, err := New(prog(tt.in, ret())).Call("f")
			var f *Fault
			if !errors.As(err, &f) {
				t.Fatalf("expected *Fault, got %v", err)
			}
			if f.Line != 7 || f.PC != 0 {
				t.Errorf("fault should point at the instruction, got pc %d line %d", f.PC, f.Line)
			}
		})
	}
}

func TestStepLimit(t *testing.T) {
	// ret to index 0 loops forever.
	p := prog(li(RegRA, 0), ret())
	c := New(p)
	c.StepLimit = 100
	_, err := c.Call("f")
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("expected ErrStepLimit, got %v", err)
	}
	if c.Steps != 100 {
		t.Errorf("expected 100 steps, got %d", c.Steps)
	}
}

func TestCallUndefinedLabel(t *testing.T) {
	if _, err := New(prog(ret())).Call("main"); err == nil {
		t.Fatal("expected error for undefined label")
	}
}

func TestCallResets(t *testing.T) {
	c := New(prog(
		Instruction{Op: OpADDI, Rd: RegA0, Rs1: RegA0, Imm: 1},
		ret(),
	))
	for i := 0; i < 3; i++ {
		got, err := c.Call("f")
		if err != nil {
			t.Fatalf("Call failed: %v", err)
		}
		if got != 1 {
			t.Errorf("call %d: expected 1, got %d", i, got)
		}
	}
}

func TestLookup(t *testing.T) {
	if r, ok := LookupReg("t0"); !ok || r != RegT0 {
		t.Errorf("t0 -> %d, %v", r, ok)
	}
	if r, ok := LookupReg("x10"); !ok || r != RegA0 {
		t.Errorf("x10 -> %d, %v", r, ok)
	}
	if r, ok := LookupReg("fp"); !ok || r != 8 {
		t.Errorf("fp -> %d, %v", r, ok)
	}
	if _, ok := LookupReg("r9"); ok {
		t.Errorf("r9 should not be a register")
	}
	if op, ok := LookupOp("rem"); !ok || op != OpREM {
		t.Errorf("rem -> %s, %v", op, ok)
	}
	if _, ok := LookupOp("jal"); ok {
		t.Errorf("jal should not be supported")
	}
}
