package compiler

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Parser consumes the flat token slice produced by the Lexer and builds an AST.
//
// Grammar:
//
//	compUnit       = funcDef EOF
//	funcDef        = "int" IDENTIFIER "(" ")" block
//	block          = "{" (decl | stmt)* "}"
//	decl           = "const" "int" constDef ("," constDef)* ";"
//	               | "int" varDef ("," varDef)* ";"
//	constDef       = IDENTIFIER "=" expression
//	varDef         = IDENTIFIER ("=" expression)?
//	stmt           = IDENTIFIER "=" expression ";"
//	               | "return" expression ";"
//	               | expression? ";"
//	               | block
//	expression     = logical_or
//	logical_or     = logical_and ("||" logical_and)*
//	logical_and    = equality ("&&" equality)*
//	equality       = relational (("==" | "!=") relational)*
//	relational     = additive (("<" | ">" | "<=" | ">=") additive)*
//	additive       = multiplicative (("+" | "-") multiplicative)*
//	multiplicative = unary (("*" | "/" | "%") unary)*
//	unary          = ("+" | "-" | "!") unary | primary
//	primary        = INTEGER | IDENTIFIER | "(" expression ")"
type Parser struct {
	tokens      []Token
	pos         int
	sourceLines []string
}

func NewParser(tokens []Token, rawSource string) *Parser {
	return &Parser{tokens: tokens, sourceLines: strings.Split(rawSource, "\n")}
}

// Parse builds the AST for a whole compilation unit.
func Parse(tokens []Token, rawSource string) (*CompUnit, error) {
	return NewParser(tokens, rawSource).parseCompUnit()
}

// ParseSource lexes and parses src in one step.
func ParseSource(src string) (*CompUnit, error) {
	tokens, err := Lex(src)
	if err != nil {
		return nil, err
	}
	return Parse(tokens, src)
}

// fmtError wraps an error message with the source line where the token appears.
func (p *Parser) fmtError(tok Token, format string, args ...any) error {
	lineIdx := tok.Line - 1 // Lines are 1-based

	snippet := "<source unavailable>"
	if lineIdx >= 0 && lineIdx < len(p.sourceLines) {
		snippet = strings.TrimSpace(p.sourceLines[lineIdx])
	}

	return &SyntaxError{Line: tok.Line, Msg: fmt.Sprintf(format, args...), Snippet: snippet}
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos]
}

// peekAt returns the token at the given offset from the current position.
func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos+offset]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// expect consumes the current token if it matches tt, otherwise returns an error.
func (p *Parser) expect(tt TokenType) (Token, error) {
	tok := p.advance()
	if tok.Type != tt {
		return tok, p.fmtError(tok, "expected %s, got %s (%q)", tt, tok.Type, tok.Lexeme)
	}
	return tok, nil
}

func (p *Parser) parseCompUnit() (*CompUnit, error) {
	f, err := p.parseFuncDef()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Type != EOF {
		return nil, p.fmtError(tok, "unexpected %s (%q) after function body", tok.Type, tok.Lexeme)
	}
	return &CompUnit{Func: f}, nil
}

func (p *Parser) parseFuncDef() (*FuncDef, error) {
	if _, err := p.expect(INT); err != nil {
		return nil, err
	}
	name, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &FuncDef{Type: FuncTypeInt, Name: name.Lexeme, Body: body}, nil
}

func (p *Parser) parseBlock() (*Block, error) {
	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}
	block := &Block{}
	for p.peek().Type != RBRACE {
		if p.peek().Type == EOF {
			return nil, p.fmtError(p.peek(), "unexpected end of input, expected }")
		}
		item, err := p.parseBlockItem()
		if err != nil {
			return nil, err
		}
		block.Items = append(block.Items, item)
	}
	p.advance() // }
	return block, nil
}

func (p *Parser) parseBlockItem() (BlockItem, error) {
	switch p.peek().Type {
	case CONST:
		return p.parseConstDecl()
	case INT:
		return p.parseVarDecl()
	}
	return p.parseStmt()
}

func (p *Parser) parseConstDecl() (*ConstDecl, error) {
	p.advance() // const
	if _, err := p.expect(INT); err != nil {
		return nil, err
	}
	decl := &ConstDecl{}
	for {
		name, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(ASSIGN); err != nil {
			return nil, err
		}
		init, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		decl.Defs = append(decl.Defs, ConstDef{Name: name.Lexeme, Init: init})

		if p.peek().Type != COMMA {
			break
		}
		p.advance()
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseVarDecl() (*VarDecl, error) {
	p.advance() // int
	decl := &VarDecl{}
	for {
		name, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		def := VarDef{Name: name.Lexeme}
		if p.peek().Type == ASSIGN {
			p.advance()
			def.Init, err = p.parseExpression()
			if err != nil {
				return nil, err
			}
		}
		decl.Defs = append(decl.Defs, def)

		if p.peek().Type != COMMA {
			break
		}
		p.advance()
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseStmt() (Stmt, error) {
	switch p.peek().Type {
	case RETURN:
		p.advance()
		exp, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return &ReturnStmt{Exp: exp}, nil

	case LBRACE:
		block, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &BlockStmt{Block: block}, nil

	case SEMICOLON:
		p.advance()
		return &ExpStmt{}, nil

	case IDENTIFIER:
		// One token of lookahead tells an assignment from an expression statement.
		if p.peekAt(1).Type == ASSIGN {
			name := p.advance()
			p.advance() // =
			exp, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(SEMICOLON); err != nil {
				return nil, err
			}
			return &AssignStmt{LVal: &LVal{Name: name.Lexeme}, Exp: exp}, nil
		}
	}

	exp, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &ExpStmt{Exp: exp}, nil
}

// parseExpression is the entry point for expression parsing.
func (p *Parser) parseExpression() (Exp, error) {
	return p.parseLogicalOr()
}

// binaryLevel parses one left-associative precedence level: operand (op operand)*.
func (p *Parser) binaryLevel(next func() (Exp, error), ops map[TokenType]BinaryOp) (Exp, error) {
	exp, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := ops[p.peek().Type]
		if !ok {
			return exp, nil
		}
		p.advance()
		rhs, err := next()
		if err != nil {
			return nil, err
		}
		exp = &BinaryExp{Op: op, LHS: exp, RHS: rhs}
	}
}

var (
	logicalOrOps      = map[TokenType]BinaryOp{OR_LOGICAL: OpLOr}
	logicalAndOps     = map[TokenType]BinaryOp{AND_LOGICAL: OpLAnd}
	equalityOps       = map[TokenType]BinaryOp{EQUALS: OpEq, NOT_EQ: OpNe}
	relationalOps     = map[TokenType]BinaryOp{LESS: OpLt, GREATER: OpGt, LESS_EQ: OpLe, GREATER_EQ: OpGe}
	additiveOps       = map[TokenType]BinaryOp{PLUS: OpAdd, MINUS: OpSub}
	multiplicativeOps = map[TokenType]BinaryOp{STAR: OpMul, SLASH: OpDiv, PERCENT: OpMod}
)

// parseLogicalOr handles ||
func (p *Parser) parseLogicalOr() (Exp, error) {
	return p.binaryLevel(p.parseLogicalAnd, logicalOrOps)
}

// parseLogicalAnd handles &&
func (p *Parser) parseLogicalAnd() (Exp, error) {
	return p.binaryLevel(p.parseEquality, logicalAndOps)
}

// parseEquality handles == and !=
func (p *Parser) parseEquality() (Exp, error) {
	return p.binaryLevel(p.parseRelational, equalityOps)
}

// parseRelational handles < > <= >=
func (p *Parser) parseRelational() (Exp, error) {
	return p.binaryLevel(p.parseAdditive, relationalOps)
}

// parseAdditive handles + and -
func (p *Parser) parseAdditive() (Exp, error) {
	return p.binaryLevel(p.parseMultiplicative, additiveOps)
}

// parseMultiplicative handles * / %
func (p *Parser) parseMultiplicative() (Exp, error) {
	return p.binaryLevel(p.parseUnary, multiplicativeOps)
}

// parseUnary handles prefix +, - and !
func (p *Parser) parseUnary() (Exp, error) {
	var op UnaryOp
	switch p.peek().Type {
	case PLUS:
		op = UnaryPlus
	case MINUS:
		op = UnaryMinus
	case NOT:
		op = UnaryNot
	default:
		return p.parsePrimary()
	}
	p.advance()
	var operand Exp
	var err error
	if op == UnaryMinus && p.peek().Type == INTEGER {
		// 2147483648 is only valid here, so that -2147483648 can be written.
		operand, err = p.parseInteger(math.MaxInt32 + 1)
	} else {
		operand, err = p.parseUnary()
	}
	if err != nil {
		return nil, err
	}
	return &UnaryExp{Op: op, Operand: operand}, nil
}

// parseInteger consumes an INTEGER token whose value must not exceed limit.
func (p *Parser) parseInteger(limit int64) (Exp, error) {
	tok := p.advance()
	val, err := strconv.ParseInt(tok.Lexeme, 0, 64)
	if err != nil || val > limit {
		return nil, p.fmtError(tok, "integer %q out of 32-bit range", tok.Lexeme)
	}
	return &Number{Value: int32(uint32(val))}, nil
}

// parsePrimary handles literals, names, and parenthesised expressions.
func (p *Parser) parsePrimary() (Exp, error) {
	tok := p.peek()
	switch tok.Type {
	case INTEGER:
		return p.parseInteger(math.MaxInt32)

	case IDENTIFIER:
		p.advance()
		return &LVal{Name: tok.Lexeme}, nil

	case LPAREN:
		p.advance()
		exp, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return exp, nil

	default:
		return nil, p.fmtError(tok, "expected expression, got %s (%q)", tok.Type, tok.Lexeme)
	}
}
