package template

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType identifies the type of token.
type TokenType int

// TokenType constants for dynamic SQL token types.
const (
	TokenText      TokenType = iota // Literal text (SQL)
	TokenRule                       // @{ ... }
	TokenParam                      // #{ ... }
	TokenNamed                      // :name or &name
	TokenPosition                   // ?
	TokenInjection                  // ${ ... }
	TokenEOF                        // End of input
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "TEXT"
	case TokenRule:
		return "RULE"
	case TokenParam:
		return "PARAM"
	case TokenNamed:
		return "NAMED"
	case TokenPosition:
		return "POSITION"
	case TokenInjection:
		return "INJECTION"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Token represents a lexical token.
type Token struct {
	Type  TokenType
	Value string
	Style ParamStyle // TokenNamed only
	Pos   Position
}

// parameterSeparators end a :name or &name parameter.
const parameterSeparators = " :,;(){}\\|&^~!=<>+-*%/"

// Lexer tokenizes a dynamic SQL string.
type Lexer struct {
	input    string
	file     string
	pos      int // current position in input
	line     int // current line number (1-based)
	col      int // current column number (1-based)
	lastLine int // line at start of current token
	lastCol  int // column at start of current token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input, file string) *Lexer {
	return &Lexer{
		input: input,
		file:  file,
		pos:   0,
		line:  1,
		col:   1,
	}
}

// Tokenize converts the input into a slice of tokens.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token

	for {
		tok, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}

	return tokens, nil
}

// nextToken returns the next token from the input.
func (l *Lexer) nextToken() (Token, error) {
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.position()}, nil
	}

	switch {
	case l.atBlock("@{"):
		return l.scanBlock(TokenRule, "rule")
	case l.atBlock("#{"):
		return l.scanBlock(TokenParam, "parameter")
	case l.atBlock("${"):
		return l.scanBlock(TokenInjection, "injection")
	case l.peek() == '?':
		l.markStart()
		l.advance()
		return Token{Type: TokenPosition, Value: "?", Pos: l.startPosition()}, nil
	case l.atNamed():
		return l.scanNamed()
	}

	return l.scanText()
}

// scanText scans literal text until a placeholder, rule or EOF.
// Quoted strings and comments are consumed whole so that markers
// inside them stay literal.
func (l *Lexer) scanText() (Token, error) {
	l.markStart()
	start := l.pos

	for l.pos < len(l.input) {
		if l.skipQuoteOrComment() {
			continue
		}
		// Postgres-style "::" cast is not a parameter.
		if l.matchString("::") {
			l.advance()
			l.advance()
			continue
		}
		if l.atSpecial() {
			break
		}
		l.advance()
	}

	if l.pos == start {
		// No text consumed, something is wrong
		return Token{}, NewLexError(l.position(), "unexpected state in lexer")
	}

	return Token{
		Type:  TokenText,
		Value: l.input[start:l.pos],
		Pos:   l.startPosition(),
	}, nil
}

// scanBlock scans a brace-delimited block such as @{...}.
// Nested braces and quoted strings inside the block are respected.
func (l *Lexer) scanBlock(typ TokenType, what string) (Token, error) {
	l.markStart()

	// Skip the two-character opener
	l.advance()
	l.advance()

	contentStart := l.pos
	depth := 0
	var quote rune

	for l.pos < len(l.input) {
		r := l.peek()

		if quote != 0 {
			if r == '\\' {
				l.advance()
				l.advance()
				continue
			}
			if r == quote {
				quote = 0
			}
			l.advance()
			continue
		}

		switch r {
		case '\'', '"':
			quote = r
		case '{':
			depth++
		case '}':
			if depth == 0 {
				content := l.input[contentStart:l.pos]
				l.advance()
				return Token{Type: typ, Value: content, Pos: l.startPosition()}, nil
			}
			depth--
		}
		l.advance()
	}

	return Token{}, NewLexError(l.startPosition(), "unclosed "+what+": missing '}'")
}

// scanNamed scans a :name or &name parameter.
func (l *Lexer) scanNamed() (Token, error) {
	l.markStart()

	style := ParamColon
	if l.peek() == '&' {
		style = ParamAmp
	}
	l.advance()

	start := l.pos
	for l.pos < len(l.input) && !isParameterSeparator(l.peek()) {
		l.advance()
	}
	name := l.input[start:l.pos]

	// '#' and '@' would let a parameter smuggle in a rule or binding.
	if strings.HasPrefix(name, "#") || strings.HasPrefix(name, "@") {
		return Token{}, NewLexError(l.startPosition(), "expr cannot include '#' or '@', the expr is "+name)
	}

	return Token{Type: TokenNamed, Value: name, Style: style, Pos: l.startPosition()}, nil
}

// skipQuoteOrComment consumes a quoted string or comment starting at
// the current position. Unterminated regions run to the end of input.
func (l *Lexer) skipQuoteOrComment() bool {
	switch {
	case l.matchString("--"):
		for l.pos < len(l.input) {
			r := l.peek()
			l.advance()
			if r == '\n' {
				break
			}
		}
		return true

	case l.matchString("/*"):
		l.advance()
		l.advance()
		for l.pos < len(l.input) {
			if l.matchString("*/") {
				l.advance()
				l.advance()
				break
			}
			l.advance()
		}
		return true

	case l.peek() == '\'' || l.peek() == '"':
		quote := l.peek()
		l.advance()
		for l.pos < len(l.input) {
			r := l.peek()
			l.advance()
			if r != quote {
				continue
			}
			// doubled quote is an escaped quote
			if l.peek() == quote {
				l.advance()
				continue
			}
			break
		}
		return true
	}
	return false
}

// atSpecial reports whether a non-text token starts at the current position.
func (l *Lexer) atSpecial() bool {
	return l.atBlock("@{") || l.atBlock("#{") || l.atBlock("${") ||
		l.peek() == '?' || l.atNamed()
}

// atBlock reports whether an unescaped opener starts at the current position.
func (l *Lexer) atBlock(opener string) bool {
	if !l.matchString(opener) {
		return false
	}
	return l.pos == 0 || l.input[l.pos-1] != '\\'
}

// atNamed reports whether a :name or &name parameter starts here.
func (l *Lexer) atNamed() bool {
	c := l.peek()
	if c != ':' && c != '&' {
		return false
	}
	if l.matchString("::") {
		return false
	}
	next, size := utf8.DecodeRuneInString(l.input[l.pos+1:])
	if size == 0 {
		return false
	}
	return !isParameterSeparator(next)
}

// Helper methods

// peek returns the current rune without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

// advance moves to the next rune, updating position tracking.
func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}

	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

// matchString checks if the input at current position matches s.
func (l *Lexer) matchString(s string) bool {
	return strings.HasPrefix(l.input[l.pos:], s)
}

// markStart records the start position for the current token.
func (l *Lexer) markStart() {
	l.lastLine = l.line
	l.lastCol = l.col
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{File: l.file, Line: l.line, Column: l.col}
}

// startPosition returns the position where the current token started.
func (l *Lexer) startPosition() Position {
	return Position{File: l.file, Line: l.lastLine, Column: l.lastCol}
}

func isParameterSeparator(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(parameterSeparators, r)
}
