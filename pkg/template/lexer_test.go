package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenWant struct {
	typ TokenType
	val string
}

func assertTokens(t *testing.T, input string, expected []tokenWant) {
	t.Helper()

	tokens, err := NewLexer(input, "test.sql").Tokenize()
	require.NoError(t, err, "unexpected error")
	require.Len(t, tokens, len(expected), "wrong number of tokens")

	for i, exp := range expected {
		assert.Equal(t, exp.typ, tokens[i].Type, "token[%d] type", i)
		if exp.typ != TokenEOF {
			assert.Equal(t, exp.val, tokens[i].Value, "token[%d] value", i)
		}
	}
}

func TestLexer_PlainText(t *testing.T) {
	input := "SELECT * FROM users"
	lexer := NewLexer(input, "test.sql")

	tokens, err := lexer.Tokenize()
	require.NoError(t, err, "unexpected error")

	require.Len(t, tokens, 2, "expected 2 tokens") // TEXT + EOF

	assert.Equal(t, TokenText, tokens[0].Type, "expected TEXT")
	assert.Equal(t, input, tokens[0].Value, "expected input value")
	assert.Equal(t, TokenEOF, tokens[1].Type, "expected EOF")
}

func TestLexer_Rule(t *testing.T) {
	assertTokens(t, "select * from t @{and,name = :name}", []tokenWant{
		{TokenText, "select * from t "},
		{TokenRule, "and,name = :name"},
		{TokenEOF, ""},
	})
}

func TestLexer_NestedRule(t *testing.T) {
	assertTokens(t, "@{and, id IN @{in, :idList}} order by id", []tokenWant{
		{TokenRule, "and, id IN @{in, :idList}"},
		{TokenText, " order by id"},
		{TokenEOF, ""},
	})
}

func TestLexer_Parameters(t *testing.T) {
	assertTokens(t, "a = #{a, jdbcType=INTEGER} and b = :b and c = &c and d = ?", []tokenWant{
		{TokenText, "a = "},
		{TokenParam, "a, jdbcType=INTEGER"},
		{TokenText, " and b = "},
		{TokenNamed, "b"},
		{TokenText, " and c = "},
		{TokenNamed, "c"},
		{TokenText, " and d = "},
		{TokenPosition, "?"},
		{TokenEOF, ""},
	})
}

func TestLexer_NamedStyle(t *testing.T) {
	tokens, err := NewLexer(":a &b", "").Tokenize()
	require.NoError(t, err)
	require.Len(t, tokens, 4)
	assert.Equal(t, ParamColon, tokens[0].Style)
	assert.Equal(t, ParamAmp, tokens[2].Style)
}

func TestLexer_Injection(t *testing.T) {
	assertTokens(t, "order by ${column}", []tokenWant{
		{TokenText, "order by "},
		{TokenInjection, "column"},
		{TokenEOF, ""},
	})
}

func TestLexer_LiteralText(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"cast", "select id::text from t"},
		{"single quoted", "select ':name ? @{and,x}' from t"},
		{"double quoted", `select "a?b" from t`},
		{"doubled quote", "select 'it''s :x' from t"},
		{"line comment", "select 1 -- :name ?\n"},
		{"block comment", "select /* #{x} ? */ 1"},
		{"lone colon", "select a : b"},
		{"trailing colon", "select a:"},
		{"colon before paren", "select a:(b)"},
		{"escaped rule", `select \@{and,x}`},
		{"escaped injection", `select \${x}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertTokens(t, tt.input, []tokenWant{
				{TokenText, tt.input},
				{TokenEOF, ""},
			})
		})
	}
}

func TestLexer_ParameterSeparators(t *testing.T) {
	assertTokens(t, "(:a,:b)", []tokenWant{
		{TokenText, "("},
		{TokenNamed, "a"},
		{TokenText, ","},
		{TokenNamed, "b"},
		{TokenText, ")"},
		{TokenEOF, ""},
	})
}

func TestLexer_QuotedBraceInRule(t *testing.T) {
	assertTokens(t, "@{and, name = '}'}", []tokenWant{
		{TokenRule, "and, name = '}'"},
		{TokenEOF, ""},
	})
}

func TestLexer_Positions(t *testing.T) {
	input := "select *\nfrom t\nwhere @{and,a = :a}"
	tokens, err := NewLexer(input, "test.sql").Tokenize()
	require.NoError(t, err)
	require.Len(t, tokens, 3)

	assert.Equal(t, Position{File: "test.sql", Line: 1, Column: 1}, tokens[0].Pos)
	assert.Equal(t, Position{File: "test.sql", Line: 3, Column: 7}, tokens[1].Pos)
}

func TestLexer_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"unclosed rule", "select @{and, a = 1", "unclosed rule"},
		{"unclosed param", "a = #{a", "unclosed parameter"},
		{"unclosed injection", "order by ${a", "unclosed injection"},
		{"nested unclosed", "@{and, @{in, :a}", "unclosed rule"},
		{"hash in named", "a = :#x", "cannot include"},
		{"at in named", "a = &@x", "cannot include"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLexer(tt.input, "test.sql").Tokenize()
			require.Error(t, err)

			var lexErr *LexError
			require.ErrorAs(t, err, &lexErr)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Contains(t, err.Error(), "test.sql:")
		})
	}
}
