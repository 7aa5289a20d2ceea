package grammar

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dekarrin/cfgparse/internal/util"
)

// Grammar is an immutable context-free grammar: a set of productions, a
// start symbol, and the set of "utility" non-terminals introduced by
// normalization or importer expansion. A Grammar is built once via New and
// never mutated afterwards; the CNF normalizer (package cnf) produces a new
// Grammar rather than editing one in place.
type Grammar struct {
	productions []Production
	byPattern   map[NonTerminal][]int
	start       NonTerminal
	utility     map[NonTerminal]bool

	nullable     map[NonTerminal]bool
	nullableDone bool
}

// New builds a Grammar from the given productions and start symbol. It does
// not require that every non-terminal referenced on some RHS also appear as
// some production's pattern: such references are simply treated by the
// recognizers as generating no strings. New does reject a start symbol
// given as the empty string, since that can never be a legitimate
// non-terminal name.
func New(productions []Production, start NonTerminal) (*Grammar, error) {
	if start == "" {
		return nil, fmt.Errorf("grammar: start symbol must not be empty")
	}

	g := &Grammar{
		start:     start,
		byPattern: map[NonTerminal][]int{},
		utility:   map[NonTerminal]bool{},
	}

	for _, p := range productions {
		g.productions = append(g.productions, p.Copy())
	}
	g.reindex()

	return g, nil
}

// newWithUtility is used internally by package cnf to construct a
// normalized Grammar that already knows which non-terminals it introduced.
func newWithUtility(productions []Production, start NonTerminal, utility map[NonTerminal]bool) *Grammar {
	g := &Grammar{
		start:     start,
		byPattern: map[NonTerminal][]int{},
		utility:   map[NonTerminal]bool{},
	}
	for _, p := range productions {
		g.productions = append(g.productions, p.Copy())
	}
	for nt := range utility {
		g.utility[nt] = true
	}
	g.reindex()
	return g
}

// NewGrammarWithUtility is the exported form of newWithUtility, for callers
// outside this module (such as package cnf) that need to build a Grammar
// whose utility-nonterminal set is already known rather than empty.
func NewGrammarWithUtility(productions []Production, start NonTerminal, utility map[NonTerminal]bool) *Grammar {
	return newWithUtility(productions, start, utility)
}

func (g *Grammar) reindex() {
	g.byPattern = map[NonTerminal][]int{}
	for i, p := range g.productions {
		g.byPattern[p.Pattern] = append(g.byPattern[p.Pattern], i)
	}
	g.nullable = nil
	g.nullableDone = false
}

// Start returns the grammar's start symbol.
func (g *Grammar) Start() NonTerminal {
	return g.start
}

// Productions returns every production in the grammar, in the order
// supplied to New.
func (g *Grammar) Productions() []Production {
	out := make([]Production, len(g.productions))
	copy(out, g.productions)
	return out
}

// ProductionsFor returns the productions whose pattern is nt, in the order
// supplied to New. It returns nil if nt names no production.
func (g *Grammar) ProductionsFor(nt NonTerminal) []Production {
	idxs := g.byPattern[nt]
	if idxs == nil {
		return nil
	}
	out := make([]Production, len(idxs))
	for i, idx := range idxs {
		out[i] = g.productions[idx]
	}
	return out
}

// NonTerminals returns every distinct non-terminal that appears as some
// production's pattern, sorted for determinism.
func (g *Grammar) NonTerminals() []NonTerminal {
	names := make(map[string]bool, len(g.byPattern))
	for nt := range g.byPattern {
		names[string(nt)] = true
	}
	out := make([]NonTerminal, 0, len(names))
	for _, name := range util.OrderedKeys(names) {
		out = append(out, NonTerminal(name))
	}
	return out
}

// HasPattern returns whether nt is the pattern of at least one production.
func (g *Grammar) HasPattern(nt NonTerminal) bool {
	return len(g.byPattern[nt]) > 0
}

// UtilityNonTerminals returns the set of non-terminals this grammar
// considers utility: introduced by normalization or importer expansion,
// and therefore to be exploded out of any tree shown to the user.
func (g *Grammar) UtilityNonTerminals() map[NonTerminal]bool {
	out := make(map[NonTerminal]bool, len(g.utility))
	for nt := range g.utility {
		out[nt] = true
	}
	return out
}

// IsUtility returns whether nt is in the grammar's utility set.
func (g *Grammar) IsUtility(nt NonTerminal) bool {
	return g.utility[nt]
}

// NullableNonTerminals computes (and caches) the grammar's nullable set: the
// non-terminals that can derive the empty string through zero or more
// productions. This is a least fixed point over the "can this non-terminal
// produce epsilon" relation:
//
//   - A non-terminal with an empty production is nullable immediately.
//   - A non-terminal all of whose RHS symbols are (already known) nullable
//     non-terminals is nullable.
//
// The computation is O(|G|^2) in the worst case and is only ever performed
// once per Grammar value; subsequent calls return the cached set.
func (g *Grammar) NullableNonTerminals() map[NonTerminal]bool {
	if g.nullableDone {
		out := make(map[NonTerminal]bool, len(g.nullable))
		for nt := range g.nullable {
			out[nt] = true
		}
		return out
	}

	nullable := map[NonTerminal]bool{}

	changed := true
	for changed {
		changed = false
		for _, p := range g.productions {
			if nullable[p.Pattern] {
				continue
			}
			if p.IsEmpty() {
				nullable[p.Pattern] = true
				changed = true
				continue
			}
			allNullable := true
			for _, sym := range p.RHS {
				nt, ok := sym.NonTerminal()
				if !ok || !nullable[nt] {
					allNullable = false
					break
				}
			}
			if allNullable {
				nullable[p.Pattern] = true
				changed = true
			}
		}
	}

	g.nullable = nullable
	g.nullableDone = true

	out := make(map[NonTerminal]bool, len(nullable))
	for nt := range nullable {
		out[nt] = true
	}
	return out
}

// IsNullable is a convenience wrapper around NullableNonTerminals for a
// single non-terminal.
func (g *Grammar) IsNullable(nt NonTerminal) bool {
	return g.NullableNonTerminals()[nt]
}

// Validate checks that every non-terminal reachable from the start symbol
// and appearing on some production's RHS is itself the pattern of some
// production, or the grammar can never derive a string through it. Unlike
// the recognizers' normal behavior (which simply treats such a reference as
// unmatchable, rather than erroring), Validate is an opt-in stricter check
// a caller can run at grammar-construction time to catch a typo'd
// non-terminal name before running an expensive parse.
func (g *Grammar) Validate() error {
	if !g.HasPattern(g.start) {
		return fmt.Errorf("grammar: start symbol %q has no productions", g.start)
	}

	seen := map[NonTerminal]bool{}
	var missing []string
	var walk func(nt NonTerminal)
	walk = func(nt NonTerminal) {
		if seen[nt] {
			return
		}
		seen[nt] = true
		for _, p := range g.ProductionsFor(nt) {
			for _, sym := range p.RHS {
				child, ok := sym.NonTerminal()
				if !ok {
					continue
				}
				if !g.HasPattern(child) {
					missing = append(missing, string(child))
					continue
				}
				walk(child)
			}
		}
	}
	walk(g.start)

	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("grammar: reachable non-terminal(s) with no productions (treated as unmatchable): %s", strings.Join(missing, ", "))
	}
	return nil
}

func (g *Grammar) String() string {
	var sb strings.Builder
	for _, nt := range g.NonTerminals() {
		prods := g.ProductionsFor(nt)
		parts := make([]string, len(prods))
		for i, p := range prods {
			if p.IsEmpty() {
				parts[i] = "ε"
				continue
			}
			rhsParts := make([]string, len(p.RHS))
			for j, sym := range p.RHS {
				rhsParts[j] = sym.String()
			}
			parts[i] = strings.Join(rhsParts, " ")
		}
		fmt.Fprintf(&sb, "%s -> %s\n", nt, strings.Join(parts, " | "))
	}
	return sb.String()
}

// Copy returns a deep copy of g, including its utility set. The nullable
// cache is not copied; it is recomputed lazily if queried.
func (g *Grammar) Copy() *Grammar {
	g2 := newWithUtility(g.productions, g.start, g.utility)
	return g2
}
