package compiler

import (
	"fmt"
	"strings"
)

// RefKind tells a parent node how to refer to the value its child computed.
type RefKind int

const (
	RefNone    RefKind = iota // statements produce no value
	RefLiteral                // an integer rendered as text
	RefNamed                  // a temporary such as %4
)

// Ref is the result reference returned by every emit call.
type Ref struct {
	Kind    RefKind
	Literal int32
	Name    string
}

func literalRef(v int32) Ref   { return Ref{Kind: RefLiteral, Literal: v} }
func namedRef(name string) Ref { return Ref{Kind: RefNamed, Name: name} }

// String renders the reference as an IR operand.
func (r Ref) String() string {
	switch r.Kind {
	case RefLiteral:
		return fmt.Sprintf("%d", r.Literal)
	case RefNamed:
		return r.Name
	}
	return ""
}

// irBinaryOps maps source operators to IR instruction names.
// && and || are lowered separately.
var irBinaryOps = map[BinaryOp]string{
	OpMul: "mul",
	OpDiv: "div",
	OpMod: "mod",
	OpAdd: "add",
	OpSub: "sub",
	OpLt:  "lt",
	OpGt:  "gt",
	OpLe:  "le",
	OpGe:  "ge",
	OpEq:  "eq",
	OpNe:  "ne",
}

// Translate lowers unit to IR text using a fresh Context.
func Translate(unit *CompUnit) (string, error) {
	return NewContext().Translate(unit)
}

// Translate lowers unit to IR text. The Context keeps its value counter, so
// names minted by earlier calls are never handed out again.
func (c *Context) Translate(unit *CompUnit) (string, error) {
	if unit == nil || unit.Func == nil {
		return "", internalErr("empty compilation unit")
	}
	return c.emitFuncDef(unit.Func)
}

func line(sb *strings.Builder, format string, args ...any) {
	fmt.Fprintf(sb, format+"\n", args...)
}

func (c *Context) emitFuncDef(f *FuncDef) (string, error) {
	var sb strings.Builder
	line(&sb, "fun @%s(): %s", f.Name, f.Type.IR())
	line(&sb, "{")
	line(&sb, "%%entry:")

	c.terminated = false
	body, err := c.emitBlock(f.Body)
	if err != nil {
		return "", err
	}
	sb.WriteString(body)

	// Falling off the end of int main() returns 0.
	if !c.terminated {
		line(&sb, "ret 0")
		c.terminated = true
	}
	line(&sb, "}")
	return sb.String(), nil
}

// emitBlock translates every item inside a new scope. Items after the
// function's ret are still checked, but their IR is dropped.
func (c *Context) emitBlock(b *Block) (string, error) {
	var sb strings.Builder
	c.EnterScope()
	defer c.ExitScope()

	for _, item := range b.Items {
		dead := c.terminated
		frag, err := c.emitBlockItem(item)
		if err != nil {
			return "", err
		}
		if !dead {
			sb.WriteString(frag)
		}
	}
	return sb.String(), nil
}

func (c *Context) emitBlockItem(item BlockItem) (string, error) {
	switch n := item.(type) {
	case *ConstDecl:
		return "", c.emitConstDecl(n)
	case *VarDecl:
		return c.emitVarDecl(n)
	case Stmt:
		return c.emitStmt(n)
	}
	return "", internalErr("unknown block item %T", item)
}

// emitConstDecl folds each initializer and records it. No IR is produced.
func (c *Context) emitConstDecl(d *ConstDecl) error {
	for _, def := range d.Defs {
		v, err := c.EvalConst(def.Init)
		if err != nil {
			return err
		}
		if err := c.DefineConst(def.Name, v); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) emitVarDecl(d *VarDecl) (string, error) {
	var sb strings.Builder
	for _, def := range d.Defs {
		slot, err := c.DefineVar(def.Name)
		if err != nil {
			return "", err
		}
		line(&sb, "%s = alloc i32", slot)

		if def.Init == nil {
			continue
		}
		frag, ref, err := c.emitExp(def.Init)
		if err != nil {
			return "", err
		}
		sb.WriteString(frag)
		line(&sb, "store %s, %s", ref, slot)
	}
	return sb.String(), nil
}

func (c *Context) emitStmt(s Stmt) (string, error) {
	switch n := s.(type) {
	case *ReturnStmt:
		frag, ref, err := c.emitExp(n.Exp)
		if err != nil {
			return "", err
		}
		c.terminated = true
		return frag + fmt.Sprintf("ret %s\n", ref), nil

	case *AssignStmt:
		name := n.LVal.Identifier()
		sym, ok := c.Lookup(name)
		if !ok {
			return "", semanticErr(ErrUndeclared, name)
		}
		if sym.Kind != SymVar {
			return "", semanticErr(ErrAssignToConst, name)
		}
		frag, ref, err := c.emitExp(n.Exp)
		if err != nil {
			return "", err
		}
		return frag + fmt.Sprintf("store %s, %s\n", ref, sym.Slot), nil

	case *ExpStmt:
		if n.Exp == nil {
			return "", nil
		}
		frag, _, err := c.emitExp(n.Exp)
		return frag, err

	case *BlockStmt:
		return c.emitBlock(n.Block)
	}
	return "", internalErr("unknown statement %T", s)
}

// emitExp lowers e and returns the IR to prepend plus how to refer to its value.
// Operands are always lowered left before right.
func (c *Context) emitExp(e Exp) (string, Ref, error) {
	switch n := e.(type) {
	case *Number:
		return "", literalRef(n.Value), nil

	case *LVal:
		name := n.Identifier()
		sym, ok := c.Lookup(name)
		if !ok {
			return "", Ref{}, semanticErr(ErrUndeclared, name)
		}
		if sym.Kind == SymConst {
			return "", literalRef(sym.Value), nil
		}
		dest := c.NewTemp()
		return fmt.Sprintf("%s = load %s\n", dest, sym.Slot), namedRef(dest), nil

	case *UnaryExp:
		frag, ref, err := c.emitExp(n.Operand)
		if err != nil {
			return "", Ref{}, err
		}
		switch n.Op {
		case UnaryPlus:
			return frag, ref, nil
		case UnaryMinus:
			dest := c.NewTemp()
			return frag + fmt.Sprintf("%s = sub 0, %s\n", dest, ref), namedRef(dest), nil
		case UnaryNot:
			dest := c.NewTemp()
			return frag + fmt.Sprintf("%s = eq 0, %s\n", dest, ref), namedRef(dest), nil
		}
		return "", Ref{}, internalErr("unknown unary operator %s", n.Op)

	case *BinaryExp:
		lfrag, lhs, err := c.emitExp(n.LHS)
		if err != nil {
			return "", Ref{}, err
		}
		rfrag, rhs, err := c.emitExp(n.RHS)
		if err != nil {
			return "", Ref{}, err
		}
		var sb strings.Builder
		sb.WriteString(lfrag)
		sb.WriteString(rfrag)

		if n.Op == OpLAnd || n.Op == OpLOr {
			// Both sides are already lowered: no short circuit.
			combine := "and"
			if n.Op == OpLOr {
				combine = "or"
			}
			lb := c.NewTemp()
			line(&sb, "%s = ne %s, 0", lb, lhs)
			rb := c.NewTemp()
			line(&sb, "%s = ne %s, 0", rb, rhs)
			dest := c.NewTemp()
			line(&sb, "%s = %s %s, %s", dest, combine, lb, rb)
			return sb.String(), namedRef(dest), nil
		}

		op, ok := irBinaryOps[n.Op]
		if !ok {
			return "", Ref{}, internalErr("no IR mapping for binary operator %s", n.Op)
		}
		dest := c.NewTemp()
		line(&sb, "%s = %s %s, %s", dest, op, lhs, rhs)
		return sb.String(), namedRef(dest), nil
	}
	return "", Ref{}, internalErr("unknown expression %T", e)
}
