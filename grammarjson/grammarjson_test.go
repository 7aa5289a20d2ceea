package grammarjson

import (
	"testing"

	"github.com/dekarrin/cfgparse/grammar"
	"github.com/stretchr/testify/assert"
)

func Test_Grammar_ToGrammar_roundTrip(t *testing.T) {
	in := Grammar{
		Name:  "digits",
		Start: "S",
		Productions: []Production{
			{Pattern: "S", RHS: []Symbol{
				{Terminal: &Terminal{Kind: "range", Lo: "0", Hi: "9"}},
				{NonTerminal: "S"},
			}},
			{Pattern: "S", RHS: []Symbol{
				{Terminal: &Terminal{Kind: "literal", Literal: "x"}},
			}},
			{Pattern: "S", RHS: []Symbol{
				{Terminal: &Terminal{Kind: "regex", Pattern: "[a-z]+"}},
			}},
		},
	}

	g, err := in.ToGrammar()
	assert.NoError(t, err)
	assert.Equal(t, grammar.NonTerminal("S"), g.Start())
	assert.Len(t, g.ProductionsFor("S"), 3)

	out := FromGrammar(g)
	assert.Equal(t, "S", out.Start)
	assert.Len(t, out.Productions, 3)
}

func Test_Grammar_ToGrammar_emptyProduction(t *testing.T) {
	in := Grammar{
		Start: "S",
		Productions: []Production{
			{Pattern: "S", RHS: nil},
		},
	}

	g, err := in.ToGrammar()
	assert.NoError(t, err)
	assert.True(t, g.ProductionsFor("S")[0].IsEmpty())
}

func Test_Grammar_ToGrammar_errors(t *testing.T) {
	cases := []struct {
		name string
		in   Grammar
	}{
		{"no start", Grammar{Productions: []Production{{Pattern: "S"}}}},
		{"no productions", Grammar{Start: "S"}},
		{"empty pattern", Grammar{Start: "S", Productions: []Production{{Pattern: ""}}}},
		{"bad terminal kind", Grammar{Start: "S", Productions: []Production{
			{Pattern: "S", RHS: []Symbol{{Terminal: &Terminal{Kind: "bogus"}}}},
		}}},
		{"both nonterminal and terminal set", Grammar{Start: "S", Productions: []Production{
			{Pattern: "S", RHS: []Symbol{{NonTerminal: "A", Terminal: &Terminal{Kind: "literal", Literal: "a"}}}},
		}}},
		{"neither set", Grammar{Start: "S", Productions: []Production{
			{Pattern: "S", RHS: []Symbol{{}}},
		}}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := c.in.ToGrammar()
			assert.Error(t, err)
		})
	}
}
