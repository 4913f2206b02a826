package expr

import "fmt"

// Error is returned for any expression outside the permitted grammar, any type
// mismatch inside it, and any evaluation whose input does not fit.
type Error struct {
	Expression string
	// Pos is the byte offset of the offending token, or -1 when not positional.
	Pos int
	Msg string
}

func (e *Error) Error() string {
	if e.Pos < 0 {
		return fmt.Sprintf("expression %q: %s", e.Expression, e.Msg)
	}
	return fmt.Sprintf("expression %q at offset %d: %s", e.Expression, e.Pos, e.Msg)
}

func errorf(src string, pos int, format string, args ...interface{}) *Error {
	return &Error{Expression: src, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
