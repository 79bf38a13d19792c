package koopa

import (
	"fmt"
	"strings"
)

// operand renders id the way it is written as an instruction operand.
func (p *Program) operand(id ValueID) string {
	v := p.Value(id)
	if v.Kind == KindInteger {
		return fmt.Sprintf("%d", v.Int)
	}
	return v.Name
}

// Inst renders the instruction that defines id, without a trailing newline.
func (p *Program) Inst(id ValueID) string {
	v := p.Value(id)
	switch v.Kind {
	case KindInteger:
		return fmt.Sprintf("%d", v.Int)
	case KindAlloc:
		return fmt.Sprintf("%s = alloc i32", v.Name)
	case KindLoad:
		return fmt.Sprintf("%s = load %s", v.Name, p.operand(v.Src))
	case KindStore:
		return fmt.Sprintf("store %s, %s", p.operand(v.Src), p.operand(v.Dest))
	case KindBinary:
		return fmt.Sprintf("%s = %s %s, %s", v.Name, v.Op, p.operand(v.LHS), p.operand(v.RHS))
	case KindReturn:
		if v.Ret == NoValue {
			return "ret"
		}
		return "ret " + p.operand(v.Ret)
	}
	return fmt.Sprintf("<%s>", v.Kind)
}

// String prints the program in the same text form Parse accepts.
func (p *Program) String() string {
	var sb strings.Builder
	for i, f := range p.Funcs {
		if i > 0 {
			sb.WriteString("\n")
		}
		if f.Type == TypeUnit {
			fmt.Fprintf(&sb, "fun %s()\n{\n", f.Name)
		} else {
			fmt.Fprintf(&sb, "fun %s(): %s\n{\n", f.Name, f.Type)
		}
		for _, bb := range f.Blocks {
			fmt.Fprintf(&sb, "%s:\n", bb.Name)
			for _, id := range bb.Insts {
				sb.WriteString(p.Inst(id))
				sb.WriteString("\n")
			}
		}
		sb.WriteString("}\n")
	}
	return sb.String()
}
