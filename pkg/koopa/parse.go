package koopa

import (
	"fmt"
	"strconv"
)

type tokenKind int

const (
	tokEOF    tokenKind = iota
	tokSymbol           // @name or %name
	tokInt              // -?[0-9]+
	tokIdent            // keywords, opcodes and type names
	tokPunct            // ( ) { } : , = *
)

type token struct {
	kind tokenKind
	text string
	line int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.text)
}

func isSymbolRune(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// tokenize splits IR text into tokens, dropping whitespace and comments.
func tokenize(src string) ([]token, error) {
	var toks []token
	line := 1
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			start := line
			i += 2
			for i+1 < len(src) && !(src[i] == '*' && src[i+1] == '/') {
				if src[i] == '\n' {
					line++
				}
				i++
			}
			if i+1 >= len(src) {
				return nil, &ParseError{Line: start, Msg: "unterminated block comment"}
			}
			i += 2
		case c == '@' || c == '%':
			j := i + 1
			for j < len(src) && isSymbolRune(src[j]) {
				j++
			}
			if j == i+1 {
				return nil, &ParseError{Line: line, Msg: fmt.Sprintf("empty symbol name after %q", c)}
			}
			toks = append(toks, token{tokSymbol, src[i:j], line})
			i = j
		case isDigit(c) || (c == '-' && i+1 < len(src) && isDigit(src[i+1])):
			j := i + 1
			for j < len(src) && isDigit(src[j]) {
				j++
			}
			toks = append(toks, token{tokInt, src[i:j], line})
			i = j
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_':
			j := i + 1
			for j < len(src) && isSymbolRune(src[j]) {
				j++
			}
			toks = append(toks, token{tokIdent, src[i:j], line})
			i = j
		case c == '(' || c == ')' || c == '{' || c == '}' || c == ':' || c == ',' || c == '=' || c == '*':
			toks = append(toks, token{tokPunct, string(c), line})
			i++
		default:
			return nil, &ParseError{Line: line, Msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	return append(toks, token{kind: tokEOF, line: line}), nil
}

type parser struct {
	toks []token
	pos  int
	prog *Program

	// Names defined in the function being parsed.
	names map[string]ValueID
}

// Parse builds the structured form of IR text.
func Parse(src string) (*Program, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, prog: NewProgram()}
	for p.peek().kind != tokEOF {
		if err := p.parseFunction(); err != nil {
			return nil, err
		}
	}
	return p.prog, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) peekAt(offset int) token {
	if p.pos+offset >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+offset]
}

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &ParseError{Line: t.line, Msg: fmt.Sprintf(format, args...)}
}

// expect consumes a token of the given kind and, if text is not empty, spelling.
func (p *parser) expect(kind tokenKind, text string) (token, error) {
	t := p.advance()
	if t.kind != kind || (text != "" && t.text != text) {
		want := text
		if want == "" {
			want = [...]string{"end of input", "symbol", "integer", "identifier", "punctuation"}[kind]
		}
		return t, p.errorf(t, "expected %s, got %s", want, t)
	}
	return t, nil
}

func (p *parser) parseType() (Type, error) {
	t := p.advance()
	if t.kind == tokPunct && t.text == "*" {
		inner, err := p.parseType()
		if err != nil {
			return 0, err
		}
		if inner != TypeInt32 {
			return 0, p.errorf(t, "only *i32 pointers are supported")
		}
		return TypePointer, nil
	}
	if t.kind == tokIdent && t.text == "i32" {
		return TypeInt32, nil
	}
	return 0, p.errorf(t, "expected type, got %s", t)
}

func (p *parser) parseFunction() error {
	if _, err := p.expect(tokIdent, "fun"); err != nil {
		return err
	}
	name, err := p.expect(tokSymbol, "")
	if err != nil {
		return err
	}
	if _, err := p.expect(tokPunct, "("); err != nil {
		return err
	}
	if _, err := p.expect(tokPunct, ")"); err != nil {
		return err
	}
	ret := TypeUnit
	if p.peek().kind == tokPunct && p.peek().text == ":" {
		p.advance()
		if ret, err = p.parseType(); err != nil {
			return err
		}
	}
	if _, err := p.expect(tokPunct, "{"); err != nil {
		return err
	}

	f := p.prog.NewFunction(name.text, ret)
	p.names = make(map[string]ValueID)
	for !(p.peek().kind == tokPunct && p.peek().text == "}") {
		if err := p.parseBlock(f); err != nil {
			return err
		}
	}
	p.advance() // }
	if len(f.Blocks) == 0 {
		return p.errorf(name, "function %s has no basic blocks", name.text)
	}
	return nil
}

func (p *parser) parseBlock(f *Function) error {
	label, err := p.expect(tokSymbol, "")
	if err != nil {
		return err
	}
	if label.text[0] != '%' {
		return p.errorf(label, "block label %s must start with %%", label.text)
	}
	if _, err := p.expect(tokPunct, ":"); err != nil {
		return err
	}
	bb := f.NewBlock(label.text)
	for !p.atBlockEnd() {
		if err := p.parseInst(f, bb); err != nil {
			return err
		}
	}
	if len(bb.Insts) == 0 {
		return p.errorf(label, "basic block %s is empty", label.text)
	}
	return nil
}

// atBlockEnd reports whether the next tokens close the function or start a new block.
func (p *parser) atBlockEnd() bool {
	t := p.peek()
	if t.kind == tokEOF || (t.kind == tokPunct && t.text == "}") {
		return true
	}
	next := p.peekAt(1)
	return t.kind == tokSymbol && next.kind == tokPunct && next.text == ":"
}

// operand resolves a value reference: a defined name or an integer literal.
func (p *parser) operand() (ValueID, error) {
	t := p.advance()
	switch t.kind {
	case tokInt:
		v, err := strconv.ParseInt(t.text, 10, 32)
		if err != nil {
			return NoValue, p.errorf(t, "integer %s out of 32-bit range", t.text)
		}
		return p.prog.Integer(int32(v)), nil
	case tokSymbol:
		id, ok := p.names[t.text]
		if !ok {
			return NoValue, p.errorf(t, "undefined value %s", t.text)
		}
		return id, nil
	}
	return NoValue, p.errorf(t, "expected value, got %s", t)
}

func (p *parser) typedOperand(want Type) (ValueID, error) {
	t := p.peek()
	id, err := p.operand()
	if err != nil {
		return NoValue, err
	}
	if got := p.prog.Value(id).Type; got != want {
		return NoValue, p.errorf(t, "%s has type %s, want %s", t.text, got, want)
	}
	return id, nil
}

func (p *parser) parseInst(f *Function, bb *BasicBlock) error {
	t := p.peek()
	switch {
	case t.kind == tokSymbol:
		return p.parseDefinition(bb)

	case t.kind == tokIdent && t.text == "store":
		p.advance()
		src, err := p.typedOperand(TypeInt32)
		if err != nil {
			return err
		}
		if _, err := p.expect(tokPunct, ","); err != nil {
			return err
		}
		dest, err := p.typedOperand(TypePointer)
		if err != nil {
			return err
		}
		p.prog.Store(bb, src, dest)
		return nil

	case t.kind == tokIdent && t.text == "ret":
		p.advance()
		if p.atBlockEnd() {
			if f.Type != TypeUnit {
				return p.errorf(t, "bare ret in function %s returning %s", f.Name, f.Type)
			}
			p.prog.Return(bb, NoValue)
			return nil
		}
		v, err := p.typedOperand(TypeInt32)
		if err != nil {
			return err
		}
		p.prog.Return(bb, v)
		return nil
	}
	return p.errorf(t, "unknown instruction %s", t)
}

// parseDefinition handles  %name = alloc | load | <binary op>.
func (p *parser) parseDefinition(bb *BasicBlock) error {
	name := p.advance()
	if _, exists := p.names[name.text]; exists {
		return p.errorf(name, "value %s redefined", name.text)
	}
	if _, err := p.expect(tokPunct, "="); err != nil {
		return err
	}

	op := p.advance()
	if op.kind != tokIdent {
		return p.errorf(op, "expected instruction, got %s", op)
	}

	var id ValueID
	switch op.text {
	case "alloc":
		ty, err := p.parseType()
		if err != nil {
			return err
		}
		if ty != TypeInt32 {
			return p.errorf(op, "only alloc i32 is supported")
		}
		id = p.prog.Alloc(bb, name.text)

	case "load":
		src, err := p.typedOperand(TypePointer)
		if err != nil {
			return err
		}
		id = p.prog.Load(bb, name.text, src)

	default:
		bop, ok := binaryOpByName[op.text]
		if !ok {
			return p.errorf(op, "unknown instruction %s", op)
		}
		lhs, err := p.typedOperand(TypeInt32)
		if err != nil {
			return err
		}
		if _, err := p.expect(tokPunct, ","); err != nil {
			return err
		}
		rhs, err := p.typedOperand(TypeInt32)
		if err != nil {
			return err
		}
		id = p.prog.Binary(bb, name.text, bop, lhs, rhs)
	}
	p.names[name.text] = id
	return nil
}
