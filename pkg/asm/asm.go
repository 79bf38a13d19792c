// Package asm reads the RISC-V assembly text emitted by the back end into a
// program the cpu package can execute.
package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"sysyc/pkg/cpu"
)

// Operand shapes, keyed by mnemonic.
var zeroOperandOps = map[string]cpu.Op{
	"ret": cpu.OpRET,
}

var twoRegisterOps = map[string]cpu.Op{
	"mv":   cpu.OpMV,
	"seqz": cpu.OpSEQZ,
	"snez": cpu.OpSNEZ,
}

var threeRegisterOps = map[string]cpu.Op{
	"add": cpu.OpADD,
	"sub": cpu.OpSUB,
	"mul": cpu.OpMUL,
	"div": cpu.OpDIV,
	"rem": cpu.OpREM,
	"and": cpu.OpAND,
	"or":  cpu.OpOR,
	"xor": cpu.OpXOR,
	"slt": cpu.OpSLT,
	"sgt": cpu.OpSGT,
}

var memoryOps = map[string]cpu.Op{
	"lw": cpu.OpLW,
	"sw": cpu.OpSW,
}

const (
	imm12Min = -2048
	imm12Max = 2047
)

type Assembler struct {
	labels map[string]int
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]int),
	}
}

func Assemble(code string) (*cpu.Program, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) (*cpu.Program, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, err
	}

	return a.pass2(lines)
}

// pass1 assigns every label the index of the instruction that follows it.
func (a *Assembler) pass1(lines []string) error {
	index := 0

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			if _, exists := a.labels[lbl]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", lbl, lineNo)
			}
			a.labels[lbl] = index
		}

		if p.mnemonic == "" || strings.HasPrefix(p.mnemonic, ".") {
			continue
		}
		index++
	}

	return nil
}

func (a *Assembler) pass2(lines []string) (*cpu.Program, error) {
	prog := &cpu.Program{Labels: a.labels}

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, err
		}

		if p.mnemonic == "" {
			continue
		}

		if strings.HasPrefix(p.mnemonic, ".") {
			if err := a.directive(prog, p); err != nil {
				return nil, err
			}
			continue
		}

		in, err := decode(p)
		if err != nil {
			return nil, err
		}
		in.Line = lineNo
		prog.Insts = append(prog.Insts, in)
	}

	for _, g := range prog.Globals {
		if _, ok := a.labels[g]; !ok {
			return nil, fmt.Errorf(".globl names undefined label '%s'", g)
		}
	}
	return prog, nil
}

func (a *Assembler) directive(prog *cpu.Program, p parsedLine) error {
	switch p.mnemonic {
	case ".text":
		if len(p.operands) != 0 {
			return fmt.Errorf(".text expects 0 operands on line %d", p.lineNo)
		}
	case ".globl", ".global":
		if len(p.operands) != 1 || !isIdentifier(p.operands[0]) {
			return fmt.Errorf("%s expects one symbol on line %d", p.mnemonic, p.lineNo)
		}
		prog.Globals = append(prog.Globals, p.operands[0])
	default:
		return fmt.Errorf("unsupported directive %s on line %d", p.mnemonic, p.lineNo)
	}
	return nil
}

func expectOperands(p parsedLine, n int) error {
	if len(p.operands) != n {
		return fmt.Errorf("%s expects %d operands on line %d", p.mnemonic, n, p.lineNo)
	}
	return nil
}

func decode(p parsedLine) (cpu.Instruction, error) {
	var in cpu.Instruction
	ops := p.operands

	if op, ok := zeroOperandOps[p.mnemonic]; ok {
		in.Op = op
		return in, expectOperands(p, 0)
	}

	if op, ok := twoRegisterOps[p.mnemonic]; ok {
		in.Op = op
		if err := expectOperands(p, 2); err != nil {
			return in, err
		}
		return in, parseRegisters(p.lineNo, ops, &in.Rd, &in.Rs1)
	}

	if op, ok := threeRegisterOps[p.mnemonic]; ok {
		in.Op = op
		if err := expectOperands(p, 3); err != nil {
			return in, err
		}
		return in, parseRegisters(p.lineNo, ops, &in.Rd, &in.Rs1, &in.Rs2)
	}

	if op, ok := memoryOps[p.mnemonic]; ok {
		in.Op = op
		if err := expectOperands(p, 2); err != nil {
			return in, err
		}
		// lw rd, off(rs1)    sw rs2, off(rs1)
		data := &in.Rd
		if op == cpu.OpSW {
			data = &in.Rs2
		}
		if err := parseRegisters(p.lineNo, ops[:1], data); err != nil {
			return in, err
		}
		off, base, err := parseMemory(ops[1], p.lineNo)
		if err != nil {
			return in, err
		}
		in.Imm, in.Rs1 = off, base
		return in, nil
	}

	switch p.mnemonic {
	case "li":
		in.Op = cpu.OpLI
		if err := expectOperands(p, 2); err != nil {
			return in, err
		}
		if err := parseRegisters(p.lineNo, ops[:1], &in.Rd); err != nil {
			return in, err
		}
		imm, err := parseImmediate(ops[1], p.lineNo, false)
		in.Imm = imm
		return in, err

	case "addi":
		in.Op = cpu.OpADDI
		if err := expectOperands(p, 3); err != nil {
			return in, err
		}
		if err := parseRegisters(p.lineNo, ops[:2], &in.Rd, &in.Rs1); err != nil {
			return in, err
		}
		imm, err := parseImmediate(ops[2], p.lineNo, true)
		in.Imm = imm
		return in, err
	}

	return in, fmt.Errorf("unknown instruction on line %d: %s", p.lineNo, p.mnemonic)
}

func parseRegisters(lineNo int, tokens []string, dst ...*uint8) error {
	for i, tok := range tokens {
		r, ok := cpu.LookupReg(tok)
		if !ok {
			return fmt.Errorf("invalid register '%s' on line %d", tok, lineNo)
		}
		*dst[i] = r
	}
	return nil
}

// parseImmediate reads a 32-bit integer; short restricts it to 12 bits.
func parseImmediate(token string, lineNo int, short bool) (int32, error) {
	v, err := strconv.ParseInt(token, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid immediate '%s' on line %d", token, lineNo)
	}
	if short && (v < imm12Min || v > imm12Max) {
		return 0, fmt.Errorf("immediate out of range on line %d: %s", lineNo, token)
	}
	// li accepts unsigned spellings such as 0xFFFFFFFF.
	if v < -1<<31 || v > 1<<32-1 {
		return 0, fmt.Errorf("immediate out of range on line %d: %s", lineNo, token)
	}
	return int32(v), nil
}

// parseMemory splits an off(reg) operand.
func parseMemory(token string, lineNo int) (int32, uint8, error) {
	open := strings.IndexByte(token, '(')
	if open < 0 || !strings.HasSuffix(token, ")") {
		return 0, 0, fmt.Errorf("invalid memory operand '%s' on line %d", token, lineNo)
	}
	off := int32(0)
	if open > 0 {
		v, err := parseImmediate(token[:open], lineNo, true)
		if err != nil {
			return 0, 0, err
		}
		off = v
	}
	var base uint8
	if err := parseRegisters(lineNo, []string{token[open+1 : len(token)-1]}, &base); err != nil {
		return 0, 0, err
	}
	return off, base, nil
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t") {
			break
		}

		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	fields := strings.Fields(line)
	p.mnemonic = strings.ToLower(fields[0])
	rest := strings.TrimSpace(line[len(fields[0]):])
	if rest == "" {
		return p, nil
	}
	for _, op := range strings.Split(rest, ",") {
		op = strings.TrimSpace(op)
		if op == "" {
			return p, fmt.Errorf("empty operand on line %d", lineNo)
		}
		p.operands = append(p.operands, op)
	}

	return p, nil
}

func stripComments(line string) string {
	hash := strings.Index(line, "#")
	doubleSlash := strings.Index(line, "//")

	cut := -1
	if hash >= 0 {
		cut = hash
	}
	if doubleSlash >= 0 && (cut == -1 || doubleSlash < cut) {
		cut = doubleSlash
	}
	if cut >= 0 {
		return line[:cut]
	}
	return line
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' && r != '.' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' {
			return false
		}
	}

	return true
}
