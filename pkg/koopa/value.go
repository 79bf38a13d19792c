package koopa

import "fmt"

// ValueID is the dense index of a value in its Program's arena.
// The back end keys its stack slots by ValueID, never by address.
type ValueID int

// NoValue marks an absent operand, e.g. the value of a bare "ret".
const NoValue ValueID = -1

// Type is the type of the value an instruction produces.
type Type int

const (
	TypeUnit    Type = iota // store, ret
	TypeInt32               // integers, loads, binary results
	TypePointer             // alloc results (*i32)
)

func (t Type) String() string {
	switch t {
	case TypeUnit:
		return "unit"
	case TypeInt32:
		return "i32"
	case TypePointer:
		return "*i32"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ValueKind is the operation that defines a value.
type ValueKind int

const (
	KindInteger ValueKind = iota
	KindAlloc
	KindLoad
	KindStore
	KindBinary
	KindReturn
)

var kindNames = [...]string{
	KindInteger: "integer",
	KindAlloc:   "alloc",
	KindLoad:    "load",
	KindStore:   "store",
	KindBinary:  "binary",
	KindReturn:  "ret",
}

func (k ValueKind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ValueKind(%d)", int(k))
}

// BinaryOp is the operator of a KindBinary value.
type BinaryOp int

const (
	OpNe BinaryOp = iota
	OpEq
	OpGt
	OpLt
	OpGe
	OpLe
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpSar
)

var binaryOpNames = [...]string{
	OpNe:  "ne",
	OpEq:  "eq",
	OpGt:  "gt",
	OpLt:  "lt",
	OpGe:  "ge",
	OpLe:  "le",
	OpAdd: "add",
	OpSub: "sub",
	OpMul: "mul",
	OpDiv: "div",
	OpMod: "mod",
	OpAnd: "and",
	OpOr:  "or",
	OpXor: "xor",
	OpShl: "shl",
	OpShr: "shr",
	OpSar: "sar",
}

func (op BinaryOp) String() string {
	if int(op) >= 0 && int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return fmt.Sprintf("BinaryOp(%d)", int(op))
}

// binaryOpByName is the reverse of binaryOpNames, used by the parser.
var binaryOpByName = func() map[string]BinaryOp {
	m := make(map[string]BinaryOp, len(binaryOpNames))
	for op, name := range binaryOpNames {
		m[name] = BinaryOp(op)
	}
	return m
}()

// Value is one node of the structured IR. Which operand fields are
// meaningful depends on Kind:
//
//	KindInteger  Int
//	KindAlloc    -
//	KindLoad     Src (an alloc)
//	KindStore    Src (the value), Dest (an alloc)
//	KindBinary   Op, LHS, RHS
//	KindReturn   Ret (NoValue for a bare ret)
type Value struct {
	ID   ValueID
	Name string // "%3" in the source text, "" for literals and unit values
	Type Type
	Kind ValueKind

	Int      int32
	Op       BinaryOp
	LHS, RHS ValueID
	Src      ValueID
	Dest     ValueID
	Ret      ValueID
}

// BasicBlock is a labelled, ordered list of instructions.
type BasicBlock struct {
	Name  string // "%entry"
	Insts []ValueID
}

// Function is a named function with its basic blocks in textual order.
type Function struct {
	Name   string // "@main"
	Type   Type   // return type
	Blocks []*BasicBlock
}

// Program owns every value in a single arena. Integer literals live in the
// arena too, but never appear in a block's instruction list.
type Program struct {
	Funcs  []*Function
	values []Value
}

// Len reports the number of values in the arena.
func (p *Program) Len() int { return len(p.values) }

// Value returns the value with the given id. It panics on an id that was not
// issued by this Program.
func (p *Program) Value(id ValueID) *Value {
	return &p.values[id]
}

func (p *Program) newValue(v Value) ValueID {
	v.ID = ValueID(len(p.values))
	p.values = append(p.values, v)
	return v.ID
}
