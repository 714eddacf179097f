// Package template tokenizes dynamic SQL text into a segment tree.
//
// It recognizes literal SQL text interleaved with:
//
//	@{rule, activeExpr, ruleValue}   rule invocation
//	#{expr, key=value, ...}          bound parameter with binding config
//	:name  &name                     named parameter
//	?                                positional parameter (bound to argN)
//	${expr}                          literal injection
//
// Quoted strings and SQL comments are passed through as text.
package template

// Position tracks source location for error reporting.
type Position struct {
	File   string
	Line   int
	Column int
}

// Node is the interface for all template segment nodes.
type Node interface {
	Pos() Position
	node() // marker method to restrict implementation
}

// nodeBase provides common Position handling for all nodes.
type nodeBase struct {
	pos Position
}

func (n *nodeBase) Pos() Position { return n.pos }
func (n *nodeBase) node()         {}

// TextNode represents literal SQL text (passed through unchanged).
type TextNode struct {
	nodeBase
	Text string
}

// RuleNode represents an @{name, activeExpr, ruleValue} rule.
// ActiveExpr and Value are empty when absent. Neither is trimmed:
// leading whitespace in a rule body is significant in the output.
type RuleNode struct {
	nodeBase
	Name       string
	ActiveExpr string
	Value      string
	Raw        string // content between @{ and }
}

// ParamStyle identifies how a named parameter was written.
type ParamStyle int

// ParamStyle constants.
const (
	ParamHash  ParamStyle = iota // #{expr, config...}
	ParamColon                   // :expr
	ParamAmp                     // &expr
)

func (s ParamStyle) String() string {
	switch s {
	case ParamHash:
		return "#{}"
	case ParamColon:
		return ":"
	case ParamAmp:
		return "&"
	default:
		return "unknown"
	}
}

// ParamNode represents a named parameter. Content is the raw text
// (for #{...} it may carry comma separated key=value config).
type ParamNode struct {
	nodeBase
	Style   ParamStyle
	Content string
}

// PositionNode represents a ? placeholder. Index counts the
// placeholders (positional and named) that precede it in the same text.
type PositionNode struct {
	nodeBase
	Index int
}

// InjectionNode represents ${expr}: the evaluated value is spliced
// into the SQL text instead of being bound.
type InjectionNode struct {
	nodeBase
	Expr string
}

// Template represents a complete parsed dynamic SQL text.
type Template struct {
	Nodes  []Node
	Source string
	File   string
}

// HasInjection reports whether the template splices ${} values into its text.
func (t *Template) HasInjection() bool {
	for _, n := range t.Nodes {
		if _, ok := n.(*InjectionNode); ok {
			return true
		}
	}
	return false
}

// IsPlainText reports whether the template consists of literal text only.
func (t *Template) IsPlainText() bool {
	for _, n := range t.Nodes {
		if _, ok := n.(*TextNode); !ok {
			return false
		}
	}
	return true
}

// Rules returns the rule nodes at the top level of the template.
func (t *Template) Rules() []*RuleNode {
	var rules []*RuleNode
	for _, n := range t.Nodes {
		if r, ok := n.(*RuleNode); ok {
			rules = append(rules, r)
		}
	}
	return rules
}

// Params returns the named parameter nodes at the top level of the template.
func (t *Template) Params() []*ParamNode {
	var params []*ParamNode
	for _, n := range t.Nodes {
		if p, ok := n.(*ParamNode); ok {
			params = append(params, p)
		}
	}
	return params
}
