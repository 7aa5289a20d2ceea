package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Grammar_NullableNonTerminals(t *testing.T) {
	cases := []struct {
		name     string
		grammar  func() *Grammar
		expected map[NonTerminal]bool
	}{
		{
			name: "S -> A A; A -> 'a' | ε is nullable only at A and S",
			grammar: func() *Grammar {
				g, err := New([]Production{
					NewProduction("S", SymNT("A"), SymNT("A")),
					NewProduction("A", SymT(MustLiteral("a"))),
					NewProduction("A"),
				}, "S")
				if err != nil {
					t.Fatal(err)
				}
				return g
			},
			expected: map[NonTerminal]bool{"S": true, "A": true},
		},
		{
			name: "no empty productions anywhere means nothing is nullable",
			grammar: func() *Grammar {
				g, err := New([]Production{
					NewProduction("S", SymT(MustLiteral("a"))),
				}, "S")
				if err != nil {
					t.Fatal(err)
				}
				return g
			},
			expected: map[NonTerminal]bool{},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert := assert.New(t)

			g := c.grammar()
			actual := g.NullableNonTerminals()

			assert.Equal(c.expected, actual)
		})
	}
}

func Test_Production_Equal_ignoresChain(t *testing.T) {
	assert := assert.New(t)

	p1 := NewProduction("A", SymT(MustLiteral("x")))
	p2 := p1.Copy()
	p2.Chain = []NonTerminal{"A", "B"}

	assert.True(p1.Equal(p2))
	assert.True(p2.Equal(p1))
}

func Test_Terminal_Equal(t *testing.T) {
	assert := assert.New(t)

	assert.True(MustLiteral("abc").Equal(MustLiteral("abc")))
	assert.False(MustLiteral("abc").Equal(MustLiteral("abd")))
	assert.True(MustRange('a', 'z').Equal(MustRange('a', 'z')))
	assert.False(MustRange('a', 'z').Equal(MustRange('a', 'y')))
	assert.True(MustRegex(`[0-9]+`).Equal(MustRegex(`[0-9]+`)))
	assert.False(MustLiteral("a").Equal(MustRange('a', 'a')))
}

func Test_NewRange_rejectsInverted(t *testing.T) {
	assert := assert.New(t)

	_, err := NewRange('z', 'a')
	assert.Error(err)
}

func Test_Grammar_Validate_reportsUnreachableDefinitionGaps(t *testing.T) {
	assert := assert.New(t)

	g, err := New([]Production{
		NewProduction("S", SymNT("A")),
	}, "S")
	assert.NoError(err)

	err = g.Validate()
	assert.Error(err)
}
