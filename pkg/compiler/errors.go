package compiler

import (
	"errors"
	"fmt"
)

// Semantic error kinds. Match them with errors.Is against a *SemanticError.
var (
	ErrRedeclared     = errors.New("redeclared identifier")
	ErrUndeclared     = errors.New("undeclared identifier")
	ErrAssignToConst  = errors.New("assignment to non-variable")
	ErrNotConstant    = errors.New("expression is not constant")
	ErrDivisionByZero = errors.New("division by zero in constant expression")
)

// SyntaxError is reported by the parser. Compilation stops before translation.
type SyntaxError struct {
	Line    int
	Msg     string
	Snippet string
}

func (e *SyntaxError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("line %d: %s\n  |> %s", e.Line, e.Msg, e.Snippet)
}

// SemanticError is a user-facing diagnostic tied to a source construct.
type SemanticError struct {
	Kind error
	Name string
}

func (e *SemanticError) Error() string {
	if e.Name == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %q", e.Kind, e.Name)
}

func (e *SemanticError) Unwrap() error { return e.Kind }

func semanticErr(kind error, name string) error {
	return &SemanticError{Kind: kind, Name: name}
}

// InternalError means the translator reached a state that well-formed input
// can never produce. It points at a bug in the compiler, not in the program.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string { return "internal compiler error: " + e.Msg }

func internalErr(format string, args ...any) error {
	return &InternalError{Msg: fmt.Sprintf(format, args...)}
}
