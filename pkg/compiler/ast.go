package compiler

import (
	"fmt"
	"strings"
)

//  Top-level nodes

// CompUnit is the root of the tree: exactly one function definition.
type CompUnit struct {
	Func *FuncDef
}

func (u *CompUnit) String() string { return fmt.Sprintf("CompUnit { %s }", u.Func) }

// FuncType is the declared return type of a function.
type FuncType int

const (
	FuncTypeInt FuncType = iota
)

// IR returns the IR spelling of the type.
func (t FuncType) IR() string {
	switch t {
	case FuncTypeInt:
		return "i32"
	}
	return fmt.Sprintf("FuncType(%d)", int(t))
}

func (t FuncType) String() string {
	if t == FuncTypeInt {
		return "int"
	}
	return t.IR()
}

// FuncDef represents  int name() { body }
type FuncDef struct {
	Type FuncType
	Name string
	Body *Block
}

func (f *FuncDef) String() string {
	return fmt.Sprintf("FuncDef { %s, %s, %s }", f.Type, f.Name, f.Body)
}

// Block represents { item; ... }
type Block struct {
	Items []BlockItem
}

func (b *Block) String() string {
	parts := make([]string, len(b.Items))
	for i, item := range b.Items {
		parts[i] = item.String()
	}
	return fmt.Sprintf("Block { %s }", strings.Join(parts, ", "))
}

// BlockItem is either a Decl or a Stmt.
type BlockItem interface {
	blockItem()
	String() string
}

//  Declarations

// Decl is implemented by ConstDecl and VarDecl.
type Decl interface {
	BlockItem
	declNode()
}

// ConstDecl represents  const int a = 1, b = a * 2;
type ConstDecl struct {
	Defs []ConstDef
}

// ConstDef is one  name = init  entry of a ConstDecl. Init must fold to a constant.
type ConstDef struct {
	Name string
	Init Exp
}

func (*ConstDecl) blockItem() {}
func (*ConstDecl) declNode()  {}
func (d *ConstDecl) String() string {
	parts := make([]string, len(d.Defs))
	for i, def := range d.Defs {
		parts[i] = fmt.Sprintf("%s = %s", def.Name, def.Init)
	}
	return fmt.Sprintf("ConstDecl(%s)", strings.Join(parts, ", "))
}

// VarDecl represents  int a, b = 2;
type VarDecl struct {
	Defs []VarDef
}

// VarDef is one entry of a VarDecl. Init is nil when absent.
type VarDef struct {
	Name string
	Init Exp
}

func (*VarDecl) blockItem() {}
func (*VarDecl) declNode()  {}
func (d *VarDecl) String() string {
	parts := make([]string, len(d.Defs))
	for i, def := range d.Defs {
		if def.Init == nil {
			parts[i] = def.Name
			continue
		}
		parts[i] = fmt.Sprintf("%s = %s", def.Name, def.Init)
	}
	return fmt.Sprintf("VarDecl(%s)", strings.Join(parts, ", "))
}

//  Statement nodes

// Stmt is implemented by every statement node.
type Stmt interface {
	BlockItem
	stmtNode()
}

// ReturnStmt represents  return exp;
type ReturnStmt struct {
	Exp Exp
}

func (*ReturnStmt) blockItem()       {}
func (*ReturnStmt) stmtNode()        {}
func (r *ReturnStmt) String() string { return fmt.Sprintf("ReturnStmt(%s)", r.Exp) }

// AssignStmt represents  lval = exp;
type AssignStmt struct {
	LVal *LVal
	Exp  Exp
}

func (*AssignStmt) blockItem() {}
func (*AssignStmt) stmtNode()  {}
func (a *AssignStmt) String() string {
	return fmt.Sprintf("AssignStmt(%s = %s)", a.LVal, a.Exp)
}

// ExpStmt represents  exp;  or the empty statement  ;  (Exp == nil).
type ExpStmt struct {
	Exp Exp
}

func (*ExpStmt) blockItem() {}
func (*ExpStmt) stmtNode()  {}
func (e *ExpStmt) String() string {
	if e.Exp == nil {
		return "ExpStmt()"
	}
	return fmt.Sprintf("ExpStmt(%s)", e.Exp)
}

// BlockStmt is a nested block opening a new scope.
type BlockStmt struct {
	Block *Block
}

func (*BlockStmt) blockItem()       {}
func (*BlockStmt) stmtNode()        {}
func (b *BlockStmt) String() string { return b.Block.String() }

//  Expression nodes

// Exp is implemented by every node that produces a value.
type Exp interface {
	expNode()
	String() string
}

// Level is an expression precedence level, lowest binding first.
type Level int

const (
	LevelLogicalOr Level = iota
	LevelLogicalAnd
	LevelEquality
	LevelRelational
	LevelAdditive
	LevelMultiplicative
	LevelUnary
	LevelPrimary
)

// BinaryOp enumerates the binary operators of the source language.
type BinaryOp int

const (
	OpMul BinaryOp = iota
	OpDiv
	OpMod
	OpAdd
	OpSub
	OpLt
	OpGt
	OpLe
	OpGe
	OpEq
	OpNe
	OpLAnd
	OpLOr
)

var binaryOpText = [...]string{
	OpMul:  "*",
	OpDiv:  "/",
	OpMod:  "%",
	OpAdd:  "+",
	OpSub:  "-",
	OpLt:   "<",
	OpGt:   ">",
	OpLe:   "<=",
	OpGe:   ">=",
	OpEq:   "==",
	OpNe:   "!=",
	OpLAnd: "&&",
	OpLOr:  "||",
}

func (op BinaryOp) String() string {
	if int(op) >= 0 && int(op) < len(binaryOpText) {
		return binaryOpText[op]
	}
	return fmt.Sprintf("BinaryOp(%d)", int(op))
}

// Level reports the precedence level the operator is parsed at.
func (op BinaryOp) Level() Level {
	switch op {
	case OpMul, OpDiv, OpMod:
		return LevelMultiplicative
	case OpAdd, OpSub:
		return LevelAdditive
	case OpLt, OpGt, OpLe, OpGe:
		return LevelRelational
	case OpEq, OpNe:
		return LevelEquality
	case OpLAnd:
		return LevelLogicalAnd
	default:
		return LevelLogicalOr
	}
}

// BinaryExp represents LHS Op RHS at any binary precedence level.
//
//	a * 2 - 1
//	^^^^^   ^
//	|       |
//	LHS     RHS    Op = OpSub
type BinaryExp struct {
	Op  BinaryOp
	LHS Exp
	RHS Exp
}

func (*BinaryExp) expNode() {}
func (b *BinaryExp) String() string {
	return fmt.Sprintf("(%s %s %s)", b.LHS, b.Op, b.RHS)
}

// UnaryOp enumerates the prefix operators.
type UnaryOp int

const (
	UnaryPlus UnaryOp = iota
	UnaryMinus
	UnaryNot
)

func (op UnaryOp) String() string {
	switch op {
	case UnaryPlus:
		return "+"
	case UnaryMinus:
		return "-"
	case UnaryNot:
		return "!"
	}
	return fmt.Sprintf("UnaryOp(%d)", int(op))
}

// UnaryExp represents Op Operand.
type UnaryExp struct {
	Op      UnaryOp
	Operand Exp
}

func (*UnaryExp) expNode()         {}
func (u *UnaryExp) String() string { return fmt.Sprintf("(%s%s)", u.Op, u.Operand) }

// LVal is a named storage location, read as an expression or assigned to.
type LVal struct {
	Name string
}

func (*LVal) expNode()         {}
func (v *LVal) String() string { return v.Name }

// Identifier returns the referenced name verbatim.
func (v *LVal) Identifier() string { return v.Name }

// Number is an integer literal.
type Number struct {
	Value int32
}

func (*Number) expNode()         {}
func (n *Number) String() string { return fmt.Sprintf("%d", n.Value) }
