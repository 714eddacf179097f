package template

import (
	"strings"
)

// Parse tokenizes input and builds its segment tree.
func Parse(input, file string) (*Template, error) {
	p, err := NewParser(input, file)
	if err != nil {
		return nil, err
	}
	return p.Parse()
}

// Parser builds a Template from a token stream.
type Parser struct {
	tokens     []Token
	pos        int
	source     string
	file       string
	positional int // placeholders seen so far
}

// NewParser creates a parser for the given input.
func NewParser(input, file string) (*Parser, error) {
	tokens, err := NewLexer(input, file).Tokenize()
	if err != nil {
		return nil, err
	}
	return &Parser{tokens: tokens, source: input, file: file}, nil
}

// Parse parses all tokens into a Template.
func (p *Parser) Parse() (*Template, error) {
	tmpl := &Template{Source: p.source, File: p.file}

	for p.current().Type != TokenEOF {
		node, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		tmpl.Nodes = appendNode(tmpl.Nodes, node)
		p.pos++
	}

	return tmpl, nil
}

func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) parseNode() (Node, error) {
	tok := p.current()

	switch tok.Type {
	case TokenText:
		return &TextNode{nodeBase: nodeBase{pos: tok.Pos}, Text: tok.Value}, nil

	case TokenRule:
		return p.parseRule(tok)

	case TokenParam:
		if strings.TrimSpace(tok.Value) == "" {
			return nil, NewParseError(tok.Pos, "empty parameter #{}")
		}
		p.positional++
		return &ParamNode{nodeBase: nodeBase{pos: tok.Pos}, Style: ParamHash, Content: tok.Value}, nil

	case TokenNamed:
		p.positional++
		return &ParamNode{nodeBase: nodeBase{pos: tok.Pos}, Style: tok.Style, Content: tok.Value}, nil

	case TokenPosition:
		idx := p.positional
		p.positional++
		return &PositionNode{nodeBase: nodeBase{pos: tok.Pos}, Index: idx}, nil

	case TokenInjection:
		expr := strings.TrimSpace(tok.Value)
		if expr == "" {
			return nil, NewParseError(tok.Pos, "empty injection ${}")
		}
		return &InjectionNode{nodeBase: nodeBase{pos: tok.Pos}, Expr: expr}, nil

	default:
		return nil, NewParseError(tok.Pos, "unexpected token %s", tok.Type)
	}
}

// parseRule splits @{name, activeExpr, ruleValue} on its first two
// top-level commas. Everything after the second comma is the value.
func (p *Parser) parseRule(tok Token) (Node, error) {
	parts := SplitTopLevel(tok.Value, ',', 3)

	name := strings.TrimSpace(parts[0])
	if name == "" {
		return nil, NewParseError(tok.Pos, "missing rule name in @{%s}", tok.Value)
	}

	rule := &RuleNode{nodeBase: nodeBase{pos: tok.Pos}, Name: name, Raw: tok.Value}
	if len(parts) > 1 {
		rule.ActiveExpr = parts[1]
	}
	if len(parts) > 2 {
		rule.Value = parts[2]
	}
	return rule, nil
}

// SplitTopLevel splits s around sep, ignoring separators nested in
// braces, parentheses, brackets or quotes. At most n parts are
// returned when n > 0; the last part holds the remainder.
func SplitTopLevel(s string, sep rune, n int) []string {
	var parts []string
	depth := 0
	var quote rune
	start := 0
	escaped := false

	for i, r := range s {
		if n > 0 && len(parts) == n-1 {
			break
		}
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quote:
				quote = 0
			}
			continue
		}
		switch r {
		case '\'', '"':
			quote = r
		case '{', '(', '[':
			depth++
		case '}', ')', ']':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + len(string(sep))
			}
		}
	}

	return append(parts, s[start:])
}

// appendNode appends node, merging adjacent text nodes.
func appendNode(nodes []Node, node Node) []Node {
	text, ok := node.(*TextNode)
	if !ok || len(nodes) == 0 {
		return append(nodes, node)
	}
	if prev, ok := nodes[len(nodes)-1].(*TextNode); ok {
		prev.Text += text.Text
		return nodes
	}
	return append(nodes, node)
}
