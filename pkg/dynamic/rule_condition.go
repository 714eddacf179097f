package dynamic

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// conditionRule implements and, or, set and their if variants. The
// rendered fragment is placed after the clause keyword, inserting the
// keyword or a connector as needed.
type conditionRule struct {
	name          string
	ifMode        bool
	keyword       string   // clause keyword searched for in the SQL so far
	keywordAppend string   // emitted when the keyword is missing
	connector     string   // emitted between fragments
	testPrefixes  []string // SQL ending in one of these takes the fragment as is
	stripTokens   []string // leading fragment tokens dropped before placement
	allowNull     bool
	allowMultiple bool
}

var (
	whereTestPrefixes = []string{"where", ",", "and", "or", "not", "!"}
	setTestPrefixes   = []string{"set", ","}
)

func newAndRule(ifMode bool) *conditionRule {
	return &conditionRule{
		name:          ruleName("and", ifMode),
		ifMode:        ifMode,
		keyword:       "where",
		keywordAppend: "where ",
		connector:     "and ",
		testPrefixes:  whereTestPrefixes,
		stripTokens:   []string{"and", "or"},
		allowMultiple: ifMode,
	}
}

func newOrRule(ifMode bool) *conditionRule {
	return &conditionRule{
		name:          ruleName("or", ifMode),
		ifMode:        ifMode,
		keyword:       "where",
		keywordAppend: "where ",
		connector:     "or ",
		testPrefixes:  whereTestPrefixes,
		stripTokens:   []string{"and", "or"},
		allowMultiple: ifMode,
	}
}

func newSetRule(ifMode bool) *conditionRule {
	return &conditionRule{
		name:          ruleName("set", ifMode),
		ifMode:        ifMode,
		keyword:       "set",
		keywordAppend: "set ",
		connector:     ", ",
		testPrefixes:  setTestPrefixes,
		stripTokens:   []string{","},
		allowNull:     true,
		allowMultiple: ifMode,
	}
}

func ruleName(base string, ifMode bool) string {
	if ifMode {
		return "if" + base
	}
	return base
}

func (r *conditionRule) Test(scope Scope, ctx *Context, activeExpr string) (bool, error) {
	return testIf(r.ifMode, scope, ctx, activeExpr)
}

func (r *conditionRule) Execute(scope Scope, ctx *Context, b *SQLBuilder, activeExpr, ruleValue string) error {
	expr := ruleExpr(r.ifMode, activeExpr, ruleValue)
	if strings.TrimSpace(expr) == "" {
		return nil
	}

	fb, tpl, err := ctx.Fragment(expr, scope)
	if err != nil {
		return err
	}

	if fb.Groups() > 1 && !r.allowMultiple {
		return &ArityError{Rule: r.name, Want: 1, Got: fb.Groups()}
	}
	if !r.allowNull && fb.allArgsNil() {
		// literal text still renders when it cannot depend on arguments
		if !tpl.HasInjection() && !(r.ifMode && tpl.IsPlainText()) {
			return nil
		}
	}

	fragment := r.stripLeading(fb.SQL())

	sql := b.SQL()
	if !containsFold(sql, r.keyword) {
		b.appendGroups(r.keywordAppend+fragment, fb.Args(), fb.Groups())
		return nil
	}

	tail := strings.ToLower(strings.TrimSpace(sql))
	for _, prefix := range r.testPrefixes {
		if strings.HasSuffix(tail, prefix) {
			b.appendGroups(fragment, fb.Args(), fb.Groups())
			return nil
		}
	}

	b.appendGroups(r.connector+fragment, fb.Args(), fb.Groups())
	return nil
}

// stripLeading drops a leading connector written in the fragment itself,
// e.g. "and name = ?" becomes "name = ?".
func (r *conditionRule) stripLeading(fragment string) string {
	trimmed := strings.TrimLeftFunc(fragment, unicode.IsSpace)
	for _, tok := range r.stripTokens {
		if len(trimmed) < len(tok) || !strings.EqualFold(trimmed[:len(tok)], tok) {
			continue
		}
		rest := trimmed[len(tok):]
		if isWordToken(tok) && rest != "" && !startsWithBoundary(rest) {
			continue
		}
		return strings.TrimLeftFunc(rest, unicode.IsSpace)
	}
	return fragment
}

func isWordToken(tok string) bool {
	for _, r := range tok {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func startsWithBoundary(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsSpace(r) || r == '('
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
