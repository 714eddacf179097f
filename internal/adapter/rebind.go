package adapter

import (
	"strconv"
	"strings"
)

// PlaceholderStyle is the bind parameter syntax a driver expects.
type PlaceholderStyle int

// PlaceholderStyle constants.
const (
	Question PlaceholderStyle = iota // ?
	Dollar                           // $1, $2, ...
)

func (s PlaceholderStyle) String() string {
	if s == Dollar {
		return "dollar"
	}
	return "question"
}

// Rebind rewrites the ? placeholders rendered by the engine into style.
// Question style is returned unchanged. Otherwise placeholders inside
// quoted strings, quoted identifiers and comments are left alone, and the
// ?? escape becomes a literal ?.
func Rebind(style PlaceholderStyle, query string) string {
	if style == Question || !strings.ContainsRune(query, '?') {
		return query
	}

	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0

	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := skipQuoted(query, i, c)
			sb.WriteString(query[i:end])
			i = end - 1
		case c == '-' && i+1 < len(query) && query[i+1] == '-':
			end := strings.IndexByte(query[i:], '\n')
			if end < 0 {
				end = len(query) - i
			}
			sb.WriteString(query[i : i+end])
			i += end - 1
		case c == '/' && i+1 < len(query) && query[i+1] == '*':
			end := strings.Index(query[i+2:], "*/")
			if end < 0 {
				sb.WriteString(query[i:])
				return sb.String()
			}
			sb.WriteString(query[i : i+2+end+2])
			i += 2 + end + 1
		case c == '?' && i+1 < len(query) && query[i+1] == '?':
			sb.WriteByte('?')
			i++
		case c == '?':
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// skipQuoted returns the index just past the quoted section starting at
// start. A doubled quote character is an escaped quote.
func skipQuoted(s string, start int, quote byte) int {
	for i := start + 1; i < len(s); i++ {
		if s[i] != quote {
			continue
		}
		if i+1 < len(s) && s[i+1] == quote {
			i++
			continue
		}
		return i + 1
	}
	return len(s)
}
