package riscv

import "fmt"

// InternalError means the structured IR reached the back end in a shape the
// front end never produces. It is a compiler bug, not a user error.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return "riscv: internal error: " + e.Msg
}

func internalErr(format string, args ...any) error {
	return &InternalError{Msg: fmt.Sprintf(format, args...)}
}
