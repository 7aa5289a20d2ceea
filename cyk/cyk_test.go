package cyk

import (
	"testing"

	"github.com/dekarrin/cfgparse/cfgerr"
	"github.com/dekarrin/cfgparse/cursor"
	"github.com/dekarrin/cfgparse/grammar"
	"github.com/dekarrin/cfgparse/tree"
	"github.com/stretchr/testify/assert"
)

func balancedBracketsGrammar(t *testing.T) *grammar.Grammar {
	t.Helper()
	g, err := grammar.New([]grammar.Production{
		grammar.NewProduction("S",
			grammar.SymT(grammar.MustLiteral("(")), grammar.SymNT("S"), grammar.SymT(grammar.MustLiteral(")"))),
		grammar.NewProduction("S",
			grammar.SymT(grammar.MustLiteral("[")), grammar.SymNT("S"), grammar.SymT(grammar.MustLiteral("]"))),
		grammar.NewProduction("S",
			grammar.SymT(grammar.MustLiteral("{")), grammar.SymNT("S"), grammar.SymT(grammar.MustLiteral("}"))),
		grammar.NewProduction("S"),
	}, "S")
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func Test_Parser_BalancedBrackets(t *testing.T) {
	assert := assert.New(t)

	p := New(balancedBracketsGrammar(t))

	assert.True(p.Recognizes(""))
	assert.True(p.Recognizes("()"))
	assert.True(p.Recognizes("[[]]"))
	assert.True(p.Recognizes("{{}}"))
	assert.False(p.Recognizes("(()"))

	_, err := p.SyntaxTree("(()")
	assert.Error(err)
}

func Test_Parser_NullableEagerPrediction(t *testing.T) {
	assert := assert.New(t)

	g, err := grammar.New([]grammar.Production{
		grammar.NewProduction("S", grammar.SymNT("A"), grammar.SymNT("A")),
		grammar.NewProduction("A", grammar.SymT(grammar.MustLiteral("a"))),
		grammar.NewProduction("A"),
	}, "S")
	if err != nil {
		t.Fatal(err)
	}
	p := New(g)

	assert.True(p.Recognizes(""))
	assert.True(p.Recognizes("a"))
	assert.True(p.Recognizes("aa"))
	assert.False(p.Recognizes("aaa"))
}

func Test_Parser_CharacterRange(t *testing.T) {
	assert := assert.New(t)

	g, err := grammar.New([]grammar.Production{
		grammar.NewProduction("s", grammar.SymT(grammar.MustRange('a', 'z'))),
	}, "s")
	if err != nil {
		t.Fatal(err)
	}
	p := New(g)

	assert.True(p.Recognizes("a"))
	assert.True(p.Recognizes("m"))
	assert.True(p.Recognizes("z"))
	assert.False(p.Recognizes("A"))
	assert.False(p.Recognizes("aa"))
}

func Test_Parser_AllSyntaxTrees_ambiguousSum(t *testing.T) {
	assert := assert.New(t)

	g, err := grammar.New([]grammar.Production{
		grammar.NewProduction("E", grammar.SymNT("E"), grammar.SymT(grammar.MustLiteral("+")), grammar.SymNT("E")),
		grammar.NewProduction("E", grammar.SymT(grammar.MustLiteral("a"))),
	}, "E")
	if err != nil {
		t.Fatal(err)
	}
	p := New(g)

	trees, err := p.AllSyntaxTrees("a+a+a+a+a")
	assert.NoError(err)
	assert.Len(trees, 14)
}

func Test_Parser_ExplodeInvariant_noUtilityNonTerminalSurfaces(t *testing.T) {
	assert := assert.New(t)

	p := New(balancedBracketsGrammar(t))

	tr, err := p.SyntaxTree("(())")
	assert.NoError(err)

	var walk func(n *tree.Tree)
	walk = func(n *tree.Tree) {
		if n == nil || n.Leaf {
			return
		}
		assert.False(p.cnf.IsUtility(n.Key), "utility non-terminal %q leaked into returned tree", n.Key)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(tr)
}

// arithmeticGrammar is a small left-recursive expression grammar with the
// usual precedence of + and - below * and /, and parenthesized grouping.
func arithmeticGrammar(t *testing.T) *grammar.Grammar {
	t.Helper()
	g, err := grammar.New([]grammar.Production{
		grammar.NewProduction("E", grammar.SymNT("E"), grammar.SymT(grammar.MustLiteral("+")), grammar.SymNT("T")),
		grammar.NewProduction("E", grammar.SymNT("E"), grammar.SymT(grammar.MustLiteral("-")), grammar.SymNT("T")),
		grammar.NewProduction("E", grammar.SymNT("T")),
		grammar.NewProduction("T", grammar.SymNT("T"), grammar.SymT(grammar.MustLiteral("*")), grammar.SymNT("F")),
		grammar.NewProduction("T", grammar.SymNT("T"), grammar.SymT(grammar.MustLiteral("/")), grammar.SymNT("F")),
		grammar.NewProduction("T", grammar.SymNT("F")),
		grammar.NewProduction("F", grammar.SymT(grammar.MustLiteral("(")), grammar.SymNT("E"), grammar.SymT(grammar.MustLiteral(")"))),
		grammar.NewProduction("F", grammar.SymT(grammar.MustRegex("[0-9]+"))),
	}, "E")
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func Test_Parser_ArithmeticExpression(t *testing.T) {
	assert := assert.New(t)

	p := New(arithmeticGrammar(t))

	input := "1+(2*3-4)"
	tr, err := p.SyntaxTree(input)
	assert.NoError(err)
	assert.Equal(input, leavesConcat(t, tr, input))

	assert.True(p.Recognizes("1+2*3"))
	assert.False(p.Recognizes("1+"))
	assert.False(p.Recognizes("(1+2"))
}

// jsonGrammar is a subset of JSON: objects, arrays, strings, numbers, and
// the true/false/null literals, with no escape sequences inside strings.
func jsonGrammar(t *testing.T) *grammar.Grammar {
	t.Helper()
	g, err := grammar.New([]grammar.Production{
		grammar.NewProduction("value", grammar.SymNT("object")),
		grammar.NewProduction("value", grammar.SymNT("array")),
		grammar.NewProduction("value", grammar.SymNT("string")),
		grammar.NewProduction("value", grammar.SymNT("number")),
		grammar.NewProduction("value", grammar.SymT(grammar.MustLiteral("true"))),
		grammar.NewProduction("value", grammar.SymT(grammar.MustLiteral("false"))),
		grammar.NewProduction("value", grammar.SymT(grammar.MustLiteral("null"))),

		grammar.NewProduction("object", grammar.SymT(grammar.MustLiteral("{")), grammar.SymT(grammar.MustLiteral("}"))),
		grammar.NewProduction("object", grammar.SymT(grammar.MustLiteral("{")), grammar.SymNT("members"), grammar.SymT(grammar.MustLiteral("}"))),
		grammar.NewProduction("members", grammar.SymNT("pair")),
		grammar.NewProduction("members", grammar.SymNT("pair"), grammar.SymT(grammar.MustLiteral(",")), grammar.SymNT("members")),
		grammar.NewProduction("pair", grammar.SymNT("string"), grammar.SymT(grammar.MustLiteral(":")), grammar.SymNT("value")),

		grammar.NewProduction("array", grammar.SymT(grammar.MustLiteral("[")), grammar.SymT(grammar.MustLiteral("]"))),
		grammar.NewProduction("array", grammar.SymT(grammar.MustLiteral("[")), grammar.SymNT("elements"), grammar.SymT(grammar.MustLiteral("]"))),
		grammar.NewProduction("elements", grammar.SymNT("value")),
		grammar.NewProduction("elements", grammar.SymNT("value"), grammar.SymT(grammar.MustLiteral(",")), grammar.SymNT("elements")),

		grammar.NewProduction("string", grammar.SymT(grammar.MustRegex(`"[^"]*"`))),
		grammar.NewProduction("number", grammar.SymT(grammar.MustRegex(`-?[0-9]+(\.[0-9]+)?`))),
	}, "value")
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func Test_Parser_JSONSubset(t *testing.T) {
	assert := assert.New(t)

	p := New(jsonGrammar(t))

	input := `{"a":1,"b":[true,false,null]}`
	tr, err := p.SyntaxTree(input)
	assert.NoError(err)
	assert.Equal(input, leavesConcat(t, tr, input))

	assert.True(p.Recognizes(`"hello"`))
	assert.True(p.Recognizes(`[1,2,3]`))
}

// Test_Parser_JSONSubset_trailingGarbage_unmatchedPatternAtLastCharacter
// exercises the error-reporting case where the input tokenizes completely
// (every character belongs to some terminal production) but no start-rooted
// derivation covers all of it: a complete object followed by an extra
// digit. The reported range lands at the last character, the start of the
// token that could not be attached to the parse.
func Test_Parser_JSONSubset_trailingGarbage_unmatchedPatternAtLastCharacter(t *testing.T) {
	assert := assert.New(t)

	p := New(jsonGrammar(t))

	input := `{"a":1}9`
	_, err := p.SyntaxTree(input)
	if !assert.Error(err) {
		return
	}

	se, ok := err.(cfgerr.SyntaxError)
	if !assert.True(ok, "expected a cfgerr.SyntaxError, got %T", err) {
		return
	}
	assert.Equal(cfgerr.UnmatchedPattern, se.Reason())

	_, end := se.Range()
	assert.Equal(len([]rune(input))-1, end, "expected the error range to end at the last character")
}

func leavesConcat(t *testing.T, tr *tree.Tree, src string) string {
	t.Helper()
	c := cursor.New(src)
	var sb []string
	var walk func(n *tree.Tree)
	walk = func(n *tree.Tree) {
		if n == nil {
			return
		}
		if n.Leaf {
			sb = append(sb, c.Slice(n.Range))
			return
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(tr)
	out := ""
	for _, s := range sb {
		out += s
	}
	return out
}
