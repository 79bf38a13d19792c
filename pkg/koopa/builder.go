package koopa

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{}
}

// NewFunction appends a function named name (including its '@') to p.
func (p *Program) NewFunction(name string, ret Type) *Function {
	f := &Function{Name: name, Type: ret}
	p.Funcs = append(p.Funcs, f)
	return f
}

// NewBlock appends a basic block named name (including its '%') to f.
func (f *Function) NewBlock(name string) *BasicBlock {
	bb := &BasicBlock{Name: name}
	f.Blocks = append(f.Blocks, bb)
	return bb
}

// Integer interns a literal operand. It is not placed in any block.
func (p *Program) Integer(v int32) ValueID {
	return p.newValue(Value{Type: TypeInt32, Kind: KindInteger, Int: v, LHS: NoValue, RHS: NoValue, Src: NoValue, Dest: NoValue, Ret: NoValue})
}

func (p *Program) push(bb *BasicBlock, v Value) ValueID {
	// Operand fields the kind does not use are NoValue, not id 0.
	if v.Kind != KindBinary {
		v.LHS, v.RHS = NoValue, NoValue
	}
	if v.Kind != KindLoad && v.Kind != KindStore {
		v.Src = NoValue
	}
	if v.Kind != KindStore {
		v.Dest = NoValue
	}
	if v.Kind != KindReturn {
		v.Ret = NoValue
	}
	id := p.newValue(v)
	bb.Insts = append(bb.Insts, id)
	return id
}

// Alloc appends  name = alloc i32.
func (p *Program) Alloc(bb *BasicBlock, name string) ValueID {
	return p.push(bb, Value{Name: name, Type: TypePointer, Kind: KindAlloc})
}

// Load appends  name = load src.
func (p *Program) Load(bb *BasicBlock, name string, src ValueID) ValueID {
	return p.push(bb, Value{Name: name, Type: TypeInt32, Kind: KindLoad, Src: src})
}

// Store appends  store src, dest.
func (p *Program) Store(bb *BasicBlock, src, dest ValueID) ValueID {
	return p.push(bb, Value{Type: TypeUnit, Kind: KindStore, Src: src, Dest: dest})
}

// Binary appends  name = op lhs, rhs.
func (p *Program) Binary(bb *BasicBlock, name string, op BinaryOp, lhs, rhs ValueID) ValueID {
	return p.push(bb, Value{Name: name, Type: TypeInt32, Kind: KindBinary, Op: op, LHS: lhs, RHS: rhs})
}

// Return appends  ret v; pass NoValue for a bare ret.
func (p *Program) Return(bb *BasicBlock, v ValueID) ValueID {
	return p.push(bb, Value{Type: TypeUnit, Kind: KindReturn, Ret: v})
}
