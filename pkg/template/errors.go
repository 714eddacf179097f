package template

import "fmt"

// Error is implemented by every error that points into template source.
type Error interface {
	error
	Position() Position
}

// String formats the position as file:line:col, or line:col without a file.
func (p Position) String() string {
	if p.File != "" {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// LexError reports a segment that cannot be tokenized, such as an
// unterminated @{ or a named parameter containing '#' or '@'.
type LexError struct {
	Pos Position
	Msg string
}

// NewLexError creates a lexer error at pos.
func NewLexError(pos Position, msg string) *LexError {
	return &LexError{Pos: pos, Msg: msg}
}

func (e *LexError) Position() Position { return e.Pos }
func (e *LexError) Error() string      { return e.Pos.String() + ": " + e.Msg }

// ParseError reports a well-formed segment with invalid content, such as
// an empty #{} or a rule without a name.
type ParseError struct {
	Pos Position
	Msg string
}

// NewParseError creates a parser error at pos.
func NewParseError(pos Position, format string, args ...any) *ParseError {
	return &ParseError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (e *ParseError) Position() Position { return e.Pos }
func (e *ParseError) Error() string      { return e.Pos.String() + ": " + e.Msg }
