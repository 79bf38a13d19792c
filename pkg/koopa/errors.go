package koopa

import "fmt"

// ParseError reports malformed IR text.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("koopa: line %d: %s", e.Line, e.Msg)
}
