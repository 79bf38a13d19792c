package compiler

// EvalConst folds e to a 32-bit value using the constants visible in c.
// Arithmetic wraps like the target machine. Both sides of && and || are
// always evaluated, matching the IR that is emitted for them.
func (c *Context) EvalConst(e Exp) (int32, error) {
	switch n := e.(type) {
	case *Number:
		return n.Value, nil

	case *LVal:
		sym, ok := c.Lookup(n.Identifier())
		if !ok {
			return 0, semanticErr(ErrUndeclared, n.Name)
		}
		if sym.Kind != SymConst {
			return 0, semanticErr(ErrNotConstant, n.Name)
		}
		return sym.Value, nil

	case *UnaryExp:
		v, err := c.EvalConst(n.Operand)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case UnaryPlus:
			return v, nil
		case UnaryMinus:
			return 0 - v, nil
		case UnaryNot:
			return boolToInt(v == 0), nil
		}
		return 0, internalErr("no constant rule for unary operator %s", n.Op)

	case *BinaryExp:
		lhs, err := c.EvalConst(n.LHS)
		if err != nil {
			return 0, err
		}
		rhs, err := c.EvalConst(n.RHS)
		if err != nil {
			return 0, err
		}
		return foldBinary(n.Op, lhs, rhs)
	}
	return 0, internalErr("cannot evaluate %T as a constant", e)
}

func foldBinary(op BinaryOp, lhs, rhs int32) (int32, error) {
	switch op {
	case OpAdd:
		return lhs + rhs, nil
	case OpSub:
		return lhs - rhs, nil
	case OpMul:
		return lhs * rhs, nil
	case OpDiv:
		if rhs == 0 {
			return 0, semanticErr(ErrDivisionByZero, "")
		}
		return lhs / rhs, nil
	case OpMod:
		if rhs == 0 {
			return 0, semanticErr(ErrDivisionByZero, "")
		}
		return lhs % rhs, nil
	case OpLt:
		return boolToInt(lhs < rhs), nil
	case OpGt:
		return boolToInt(lhs > rhs), nil
	case OpLe:
		return boolToInt(lhs <= rhs), nil
	case OpGe:
		return boolToInt(lhs >= rhs), nil
	case OpEq:
		return boolToInt(lhs == rhs), nil
	case OpNe:
		return boolToInt(lhs != rhs), nil
	case OpLAnd:
		return boolToInt(lhs != 0 && rhs != 0), nil
	case OpLOr:
		return boolToInt(lhs != 0 || rhs != 0), nil
	}
	return 0, internalErr("no constant rule for binary operator %s", op)
}

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
