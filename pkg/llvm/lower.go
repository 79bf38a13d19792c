// Package llvm lowers the structured IR to an LLVM IR module, as an
// alternative to the RISC-V back end.
package llvm

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"sysyc/pkg/koopa"
)

// InternalError reports IR the lowering has no mapping for.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return "llvm: internal error: " + e.Msg
}

func internalErr(format string, args ...any) error {
	return &InternalError{Msg: fmt.Sprintf(format, args...)}
}

var comparisons = map[koopa.BinaryOp]enum.IPred{
	koopa.OpEq: enum.IPredEQ,
	koopa.OpNe: enum.IPredNE,
	koopa.OpLt: enum.IPredSLT,
	koopa.OpGt: enum.IPredSGT,
	koopa.OpLe: enum.IPredSLE,
	koopa.OpGe: enum.IPredSGE,
}

type lowering struct {
	prog *koopa.Program
	// LLVM values already produced for arena values of the current function.
	values map[koopa.ValueID]value.Value
}

// Lower translates prog into a new LLVM module.
func Lower(prog *koopa.Program) (*ir.Module, error) {
	if prog == nil {
		return nil, internalErr("nil program")
	}
	m := ir.NewModule()
	l := &lowering{prog: prog}
	for _, f := range prog.Funcs {
		if err := l.function(m, f); err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	return m, nil
}

func retType(t koopa.Type) (types.Type, error) {
	switch t {
	case koopa.TypeInt32:
		return types.I32, nil
	case koopa.TypeUnit:
		return types.Void, nil
	}
	return nil, internalErr("unsupported return type %s", t)
}

func (l *lowering) function(m *ir.Module, f *koopa.Function) error {
	ret, err := retType(f.Type)
	if err != nil {
		return err
	}
	fn := m.NewFunc(strings.TrimPrefix(f.Name, "@"), ret)
	l.values = make(map[koopa.ValueID]value.Value)
	for _, bb := range f.Blocks {
		block := fn.NewBlock(strings.TrimPrefix(bb.Name, "%"))
		for _, id := range bb.Insts {
			if err := l.inst(block, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *lowering) operand(id koopa.ValueID) (value.Value, error) {
	v := l.prog.Value(id)
	if v.Kind == koopa.KindInteger {
		return constant.NewInt(types.I32, int64(v.Int)), nil
	}
	if lv, ok := l.values[id]; ok {
		return lv, nil
	}
	return nil, internalErr("value %d used before its definition", id)
}

func (l *lowering) inst(block *ir.Block, id koopa.ValueID) error {
	v := l.prog.Value(id)
	switch v.Kind {
	case koopa.KindAlloc:
		l.values[id] = block.NewAlloca(types.I32)

	case koopa.KindLoad:
		src, err := l.operand(v.Src)
		if err != nil {
			return err
		}
		l.values[id] = block.NewLoad(types.I32, src)

	case koopa.KindStore:
		src, err := l.operand(v.Src)
		if err != nil {
			return err
		}
		dest, err := l.operand(v.Dest)
		if err != nil {
			return err
		}
		block.NewStore(src, dest)

	case koopa.KindBinary:
		res, err := l.binary(block, v)
		if err != nil {
			return err
		}
		l.values[id] = res

	case koopa.KindReturn:
		if v.Ret == koopa.NoValue {
			block.NewRet(nil)
			return nil
		}
		ret, err := l.operand(v.Ret)
		if err != nil {
			return err
		}
		block.NewRet(ret)

	default:
		return internalErr("unexpected instruction kind %s", v.Kind)
	}
	return nil
}

func (l *lowering) binary(block *ir.Block, v *koopa.Value) (value.Value, error) {
	x, err := l.operand(v.LHS)
	if err != nil {
		return nil, err
	}
	y, err := l.operand(v.RHS)
	if err != nil {
		return nil, err
	}

	if pred, ok := comparisons[v.Op]; ok {
		// icmp yields i1; widen back to the IR's 0/1 i32.
		return block.NewZExt(block.NewICmp(pred, x, y), types.I32), nil
	}

	switch v.Op {
	case koopa.OpAdd:
		return block.NewAdd(x, y), nil
	case koopa.OpSub:
		return block.NewSub(x, y), nil
	case koopa.OpMul:
		return block.NewMul(x, y), nil
	case koopa.OpDiv:
		return block.NewSDiv(x, y), nil
	case koopa.OpMod:
		return block.NewSRem(x, y), nil
	case koopa.OpAnd:
		return block.NewAnd(x, y), nil
	case koopa.OpOr:
		return block.NewOr(x, y), nil
	case koopa.OpXor:
		return block.NewXor(x, y), nil
	case koopa.OpShl:
		return block.NewShl(x, y), nil
	case koopa.OpShr:
		return block.NewLShr(x, y), nil
	case koopa.OpSar:
		return block.NewAShr(x, y), nil
	}
	return nil, internalErr("unsupported binary operation %s", v.Op)
}
