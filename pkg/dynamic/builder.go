package dynamic

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SQLBuilder accumulates SQL text and its ordered arguments.
// A builder belongs to a single build and is not safe for concurrent use.
type SQLBuilder struct {
	buf    strings.Builder
	args   []*SQLArg
	groups int // AppendSQL calls that carried arguments
}

// NewSQLBuilder creates an empty builder.
func NewSQLBuilder() *SQLBuilder {
	return &SQLBuilder{}
}

// AppendSQL appends text and the arguments its placeholders bind.
// Whitespace-only text without arguments is dropped when the buffer
// already ends in whitespace.
func (b *SQLBuilder) AppendSQL(text string, args ...*SQLArg) {
	if len(args) == 0 && b.LastSpaceCharacter() && strings.TrimSpace(text) == "" {
		return
	}
	b.buf.WriteString(text)
	if len(args) > 0 {
		b.args = append(b.args, args...)
		b.groups++
	}
}

// AppendBuilder merges the text and arguments of other into b.
func (b *SQLBuilder) AppendBuilder(other *SQLBuilder) {
	if other == nil {
		return
	}
	b.appendGroups(other.SQL(), other.args, other.groups)
}

// appendGroups appends text with arguments that keep their original grouping.
func (b *SQLBuilder) appendGroups(text string, args []*SQLArg, groups int) {
	b.buf.WriteString(text)
	b.args = append(b.args, args...)
	b.groups += groups
}

// LastSpaceCharacter reports whether the buffer ends with whitespace.
// An empty buffer reports false.
func (b *SQLBuilder) LastSpaceCharacter() bool {
	s := b.buf.String()
	if s == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsSpace(r)
}

// SQL returns the accumulated SQL text.
func (b *SQLBuilder) SQL() string { return b.buf.String() }

// Args returns the accumulated arguments in placeholder order.
func (b *SQLBuilder) Args() []*SQLArg { return b.args }

// Groups returns how many argument-carrying appends the builder received.
// A collection expanded into several placeholders counts once.
func (b *SQLBuilder) Groups() int { return b.groups }

// Len returns the length of the SQL text in bytes.
func (b *SQLBuilder) Len() int { return b.buf.Len() }

// allArgsNil reports whether every argument value is nil (true when there are none).
func (b *SQLBuilder) allArgsNil() bool {
	for _, a := range b.args {
		if a.Value != nil {
			return false
		}
	}
	return true
}
