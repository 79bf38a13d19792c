package riscv

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"sysyc/pkg/koopa"
)

func mustParse(t *testing.T, ir string) *koopa.Program {
	t.Helper()
	prog, err := koopa.Parse(ir)
	if err != nil {
		t.Fatalf("koopa.Parse failed: %v", err)
	}
	return prog
}

func generate(t *testing.T, ir string) string {
	t.Helper()
	asm, err := Generate(mustParse(t, ir))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return asm
}

func assertContains(t *testing.T, code, expected string) {
	t.Helper()
	if !strings.Contains(code, expected) {
		t.Errorf("Expected assembly to contain %q, but it didn't.\nCode:\n%s", expected, code)
	}
}

func lines(asm string) []string {
	var out []string
	for _, l := range strings.Split(asm, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func TestReturnLiteral(t *testing.T) {
	asm := generate(t, "fun @main(): i32 {\n%entry:\nret 0\n}\n")
	want := "  .text\n  .globl main\nmain:\n  li a0, 0\n  ret\n"
	if asm != want {
		t.Errorf("got:\n%s\nwant:\n%s", asm, want)
	}
}

func TestFrameSizing(t *testing.T) {
	ir := `fun @main(): i32 {
%entry:
%0 = alloc i32
%1 = alloc i32
store 1, %0
%2 = load %0
%3 = add %2, 2
%4 = mul %3, 3
ret %4
}`
	prog := mustParse(t, ir)
	frame := computeFrame(prog, prog.Funcs[0].Blocks[0])
	if len(frame.Slots) != 5 {
		t.Fatalf("expected 5 slots, got %d", len(frame.Slots))
	}
	if frame.Words != 8 || frame.Bytes() != 32 {
		t.Errorf("expected 8 words / 32 bytes, got %d / %d", frame.Words, frame.Bytes())
	}

	asm, err := Generate(prog)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	assertContains(t, asm, "addi sp, sp, -32")
	assertContains(t, asm, "addi sp, sp, 32")
}

func TestFrameRounding(t *testing.T) {
	tests := []struct{ values, words int }{
		{0, 0}, {1, 4}, {3, 4}, {4, 4}, {5, 8}, {8, 8}, {9, 12},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.values), func(t *testing.T) {
			prog := koopa.NewProgram()
			bb := prog.NewFunction("@main", koopa.TypeInt32).NewBlock("%entry")
			for i := 0; i < tt.values; i++ {
				prog.Alloc(bb, fmt.Sprintf("%%%d", i))
			}
			prog.Return(bb, prog.Integer(0))
			if got := computeFrame(prog, bb).Words; got != tt.words {
				t.Errorf("%d values: expected %d words, got %d", tt.values, tt.words, got)
			}
		})
	}
}

func TestSlotsAreSequential(t *testing.T) {
	prog := mustParse(t, "fun @main(): i32 {\n%entry:\n%0 = alloc i32\nstore 5, %0\n%1 = load %0\nret %1\n}")
	insts := prog.Funcs[0].Blocks[0].Insts
	frame := computeFrame(prog, prog.Funcs[0].Blocks[0])
	if frame.Slots[insts[0]] != 0 || frame.Slots[insts[2]] != 1 {
		t.Errorf("unexpected slot assignment %v", frame.Slots)
	}
	if _, ok := frame.Slots[insts[1]]; ok {
		t.Errorf("store should not get a slot")
	}
	if _, ok := frame.Slots[insts[3]]; ok {
		t.Errorf("ret should not get a slot")
	}
}

func TestLoadStore(t *testing.T) {
	asm := generate(t, "fun @main(): i32 {\n%entry:\n%0 = alloc i32\nstore 5, %0\n%1 = load %0\nret %1\n}")
	want := []string{
		".text", ".globl main", "main:",
		"addi sp, sp, -16",
		"li t0, 5", "sw t0, 0(sp)",
		"lw t0, 0(sp)", "sw t0, 4(sp)",
		"lw a0, 4(sp)",
		"addi sp, sp, 16",
		"ret",
	}
	got := lines(asm)
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("got:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestBinarySelection(t *testing.T) {
	tests := []struct {
		op   string
		want []string
	}{
		{"add", []string{"add t0, t0, t1"}},
		{"sub", []string{"sub t0, t0, t1"}},
		{"mul", []string{"mul t0, t0, t1"}},
		{"div", []string{"div t0, t0, t1"}},
		{"mod", []string{"rem t0, t0, t1"}},
		{"and", []string{"and t0, t0, t1"}},
		{"or", []string{"or t0, t0, t1"}},
		{"gt", []string{"sgt t0, t0, t1"}},
		{"lt", []string{"slt t0, t0, t1"}},
		{"ne", []string{"xor t0, t0, t1", "snez t0, t0"}},
		{"eq", []string{"xor t0, t0, t1", "seqz t0, t0"}},
		{"ge", []string{"addi t1, t1, -1", "sgt t0, t0, t1"}},
		{"le", []string{"addi t1, t1, 1", "slt t0, t0, t1"}},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			asm := generate(t, fmt.Sprintf("fun @main(): i32 {\n%%entry:\n%%0 = %s 7, 3\nret %%0\n}", tt.op))
			assertContains(t, asm, "li t0, 7\n  li t1, 3\n")
			assertContains(t, asm, "  "+strings.Join(tt.want, "\n  ")+"\n  sw t0, 0(sp)\n")
		})
	}
}

func TestRetIsLastLine(t *testing.T) {
	asm := generate(t, "fun @main(): i32 {\n%entry:\n%0 = alloc i32\nstore 5, %0\n%1 = load %0\nret %1\n}")
	got := lines(asm)
	if got[len(got)-1] != "ret" {
		t.Errorf("expected ret as final line, got %q", got[len(got)-1])
	}
}

func TestDeterministic(t *testing.T) {
	ir := "fun @main(): i32 {\n%entry:\n%0 = alloc i32\nstore 5, %0\n%1 = load %0\n%2 = le %1, 9\nret %2\n}"
	a := generate(t, ir)
	b := generate(t, ir)
	if a != b {
		t.Errorf("lowering is not deterministic")
	}
}

func TestMultipleFunctions(t *testing.T) {
	asm := generate(t, "fun @one(): i32 {\n%entry:\nret 1\n}\nfun @two(): i32 {\n%entry:\nret 2\n}")
	if strings.Count(asm, ".text") != 1 {
		t.Errorf("expected a single .text directive")
	}
	assertContains(t, asm, ".globl one\none:\n")
	assertContains(t, asm, ".globl two\ntwo:\n")
}

func TestLargeFrame(t *testing.T) {
	prog := koopa.NewProgram()
	bb := prog.NewFunction("@main", koopa.TypeInt32).NewBlock("%entry")
	var last koopa.ValueID
	for i := 0; i < 600; i++ {
		last = prog.Alloc(bb, fmt.Sprintf("%%%d", i))
	}
	prog.Store(bb, prog.Integer(42), last)
	ld := prog.Load(bb, "%600", last)
	prog.Return(bb, ld)

	asm, err := Generate(prog)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	// 601 slots round up to 604 words.
	assertContains(t, asm, "li t0, -2416\n  add sp, sp, t0\n")
	assertContains(t, asm, "li t0, 2416\n  add sp, sp, t0\n")
	// Slot 599 sits at 2396(sp), beyond the 12-bit offset range.
	assertContains(t, asm, "li t2, 2396\n  add t2, t2, sp\n  sw t0, 0(t2)\n")
	if strings.Contains(asm, "2396(sp)") {
		t.Errorf("out-of-range offset used directly:\n%s", asm)
	}
}

func TestInternalErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(p *koopa.Program, bb *koopa.BasicBlock)
		want  string
	}{
		{"unsupported op", func(p *koopa.Program, bb *koopa.BasicBlock) {
			x := p.Binary(bb, "%0", koopa.OpXor, p.Integer(1), p.Integer(2))
			p.Return(bb, x)
		}, "unsupported binary operation xor"},
		{"return alloc", func(p *koopa.Program, bb *koopa.BasicBlock) {
			p.Return(bb, p.Alloc(bb, "%0"))
		}, "not a literal or slot-resident value"},
		{"store into binary", func(p *koopa.Program, bb *koopa.BasicBlock) {
			x := p.Binary(bb, "%0", koopa.OpAdd, p.Integer(1), p.Integer(2))
			p.Store(bb, p.Integer(3), x)
			p.Return(bb, x)
		}, "not an alloc"},
		{"load from literal", func(p *koopa.Program, bb *koopa.BasicBlock) {
			p.Return(bb, p.Load(bb, "%0", p.Integer(4)))
		}, "not an alloc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := koopa.NewProgram()
			bb := prog.NewFunction("@main", koopa.TypeInt32).NewBlock("%entry")
			tt.build(prog, bb)

			_, err := Generate(prog)
			var ie *InternalError
			if !errors.As(err, &ie) {
				t.Fatalf("expected *InternalError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in %q", tt.want, err)
			}
		})
	}
}

func TestValueFromOtherBlock(t *testing.T) {
	prog := koopa.NewProgram()
	f := prog.NewFunction("@main", koopa.TypeInt32)
	first := f.NewBlock("%entry")
	x := prog.Binary(first, "%0", koopa.OpAdd, prog.Integer(1), prog.Integer(2))
	prog.Return(first, x)
	second := f.NewBlock("%next")
	prog.Return(second, x)

	_, err := Generate(prog)
	var ie *InternalError
	if !errors.As(err, &ie) {
		t.Fatalf("expected *InternalError, got %v", err)
	}
}
