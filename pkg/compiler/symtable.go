package compiler

import (
	"fmt"
	"sort"
	"strings"
)

type SymbolKind int

const (
	SymConst SymbolKind = iota
	SymVar
)

func (k SymbolKind) String() string {
	if k == SymConst {
		return "const"
	}
	return "var"
}

// Symbol is what a name resolves to: a folded constant or a variable slot.
type Symbol struct {
	Kind  SymbolKind
	Value int32  // SymConst only
	Slot  string // SymVar only, e.g. "%3"
}

// Context is the state of one translation: the scoped symbol tables and the
// counter that mints value names. Create one per compilation unit.
//
// Each scope holds constants and variables in one map, so a name is never
// both a constant and a variable in the same scope. Inner scopes may shadow.
type Context struct {
	// Stack of scopes, innermost last.
	scopes []map[string]Symbol

	// Next value number handed out by NewTemp.
	nextValue int

	// Set once the current function has emitted its ret.
	terminated bool
}

func NewContext() *Context {
	return &Context{}
}

func (c *Context) EnterScope() {
	c.scopes = append(c.scopes, make(map[string]Symbol))
}

func (c *Context) ExitScope() {
	if len(c.scopes) > 0 {
		c.scopes = c.scopes[:len(c.scopes)-1]
	}
}

// Depth reports the number of open scopes.
func (c *Context) Depth() int { return len(c.scopes) }

func (c *Context) current() map[string]Symbol {
	if len(c.scopes) == 0 {
		panic("symbol defined outside any scope")
	}
	return c.scopes[len(c.scopes)-1]
}

// NewTemp mints a fresh value name. Names are never reused within a Context.
func (c *Context) NewTemp() string {
	name := fmt.Sprintf("%%%d", c.nextValue)
	c.nextValue++
	return name
}

// DefineConst binds name to a folded value in the innermost scope.
func (c *Context) DefineConst(name string, value int32) error {
	scope := c.current()
	if _, exists := scope[name]; exists {
		return semanticErr(ErrRedeclared, name)
	}
	scope[name] = Symbol{Kind: SymConst, Value: value}
	return nil
}

// DefineVar mints a storage slot for name in the innermost scope and returns it.
func (c *Context) DefineVar(name string) (string, error) {
	scope := c.current()
	if _, exists := scope[name]; exists {
		return "", semanticErr(ErrRedeclared, name)
	}
	slot := c.NewTemp()
	scope[name] = Symbol{Kind: SymVar, Slot: slot}
	return slot, nil
}

// Lookup returns the symbol and whether it was found.
func (c *Context) Lookup(name string) (Symbol, bool) {
	// Search from the innermost scope outwards
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if sym, ok := c.scopes[i][name]; ok {
			return sym, true
		}
	}
	return Symbol{}, false
}

// String returns a deterministically ordered dump of the open scopes.
func (c *Context) String() string {
	var sb strings.Builder
	if len(c.scopes) == 0 {
		sb.WriteString("Scopes: (empty)\n")
	}
	for i, scope := range c.scopes {
		fmt.Fprintf(&sb, "Scope %d:\n", i)
		names := make([]string, 0, len(scope))
		for name := range scope {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sym := scope[name]
			if sym.Kind == SymConst {
				fmt.Fprintf(&sb, "  %-20s  const %d\n", name, sym.Value)
			} else {
				fmt.Fprintf(&sb, "  %-20s  var   %s\n", name, sym.Slot)
			}
		}
	}
	fmt.Fprintf(&sb, "Values minted: %d\n", c.nextValue)
	return sb.String()
}
