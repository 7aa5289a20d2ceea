package cnf

import (
	"testing"

	"github.com/dekarrin/cfgparse/grammar"
	"github.com/stretchr/testify/assert"
)

func mustGrammar(t *testing.T, productions []grammar.Production, start grammar.NonTerminal) *grammar.Grammar {
	t.Helper()
	g, err := grammar.New(productions, start)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func Test_Normalize_allProductionsAreCNF(t *testing.T) {
	assert := assert.New(t)

	g := mustGrammar(t, []grammar.Production{
		grammar.NewProduction("S", grammar.SymNT("A"), grammar.SymT(grammar.MustLiteral("+")), grammar.SymNT("A")),
		grammar.NewProduction("A", grammar.SymT(grammar.MustLiteral("a"))),
	}, "S")

	out := Normalize(g)

	for _, p := range out.Productions() {
		if p.Pattern == out.Start() && p.IsEmpty() {
			continue
		}
		assert.True(p.IsCNF(), "production %s is not in CNF", p.String())
	}
}

func Test_Normalize_preservesStartEpsilonOnly(t *testing.T) {
	assert := assert.New(t)

	g := mustGrammar(t, []grammar.Production{
		grammar.NewProduction("S", grammar.SymNT("A"), grammar.SymNT("A")),
		grammar.NewProduction("A", grammar.SymT(grammar.MustLiteral("a"))),
		grammar.NewProduction("A"),
	}, "S")

	out := Normalize(g)

	foundStartEpsilon := false
	for _, p := range out.Productions() {
		if p.IsEmpty() {
			assert.Equal(grammar.NonTerminal("S"), p.Pattern)
			foundStartEpsilon = true
		}
	}
	assert.True(foundStartEpsilon)
}

func Test_Normalize_unitChainCollapsesToDirectProduction(t *testing.T) {
	assert := assert.New(t)

	g := mustGrammar(t, []grammar.Production{
		grammar.NewProduction("S", grammar.SymNT("A")),
		grammar.NewProduction("A", grammar.SymNT("B")),
		grammar.NewProduction("B", grammar.SymT(grammar.MustLiteral("x"))),
	}, "S")

	out := Normalize(g)

	found := false
	for _, p := range out.ProductionsFor("S") {
		if p.IsFinal() {
			lit, ok := p.RHS[0].Terminal()
			if ok {
				l, _ := lit.Literal()
				if l == "x" {
					found = true
					assert.Equal([]grammar.NonTerminal{"S", "A", "B"}, p.Chain)
				}
			}
		}
	}
	assert.True(found, "expected S to gain a direct production to 'x' via chain collapse")
}

func Test_Normalize_prunesUnreachableNonTerminals(t *testing.T) {
	assert := assert.New(t)

	g := mustGrammar(t, []grammar.Production{
		grammar.NewProduction("S", grammar.SymT(grammar.MustLiteral("a"))),
		grammar.NewProduction("Unused", grammar.SymT(grammar.MustLiteral("b"))),
	}, "S")

	out := Normalize(g)

	assert.False(out.HasPattern("Unused"))
}

// Test_Normalize_isIdempotent asserts that normalizing an already-normalized
// grammar produces an equivalent grammar rather than drifting further with
// each pass. Production code relies on this: the server caches a grammar's
// normalized form at registration time, and cyk.New normalizes whatever
// grammar it is given, so a cyk parser built from an already-normalized
// grammar ends up running Normalize over its own output.
func Test_Normalize_isIdempotent(t *testing.T) {
	assert := assert.New(t)

	g := mustGrammar(t, []grammar.Production{
		grammar.NewProduction("S",
			grammar.SymT(grammar.MustLiteral("(")), grammar.SymNT("S"), grammar.SymT(grammar.MustLiteral(")"))),
		grammar.NewProduction("S", grammar.SymNT("A")),
		grammar.NewProduction("A", grammar.SymNT("B")),
		grammar.NewProduction("B", grammar.SymT(grammar.MustLiteral("a"))),
		grammar.NewProduction("S"),
	}, "S")

	once := Normalize(g)
	twice := Normalize(once)

	assert.Equal(once.Start(), twice.Start())
	assert.ElementsMatch(productionStrings(once), productionStrings(twice))
	assert.Equal(len(once.UtilityNonTerminals()), len(twice.UtilityNonTerminals()))
}

func productionStrings(g *grammar.Grammar) []string {
	var out []string
	for _, p := range g.Productions() {
		out = append(out, p.String())
	}
	return out
}

func Test_Normalize_recordsUtilityNonTerminals(t *testing.T) {
	assert := assert.New(t)

	g := mustGrammar(t, []grammar.Production{
		grammar.NewProduction("S",
			grammar.SymT(grammar.MustLiteral("(")),
			grammar.SymNT("S"),
			grammar.SymT(grammar.MustLiteral(")")),
		),
		grammar.NewProduction("S", grammar.SymT(grammar.MustLiteral("a"))),
	}, "S")

	out := Normalize(g)

	assert.Greater(len(out.UtilityNonTerminals()), 0, "binarization/de-mixing should introduce at least one utility non-terminal")
	for nt := range out.UtilityNonTerminals() {
		assert.True(out.HasPattern(nt))
	}
}
