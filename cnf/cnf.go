// Package cnf implements the five-pass Chomsky Normal Form normalization
// pipeline: de-mix terminals, binarize, eliminate empty productions,
// eliminate unit chains, prune unreachable. It is
// grounded on the bitmask-permutation epsilon-rewrite idiom and the
// propagate-until-fixed-point style of
// internal/tunascript/grammar.go's Grammar.RemoveEpsilons /
// RemoveUnitProductions / RemoveUreachableNonTerminals, generalized from
// that package's string-keyed Production/Rule model to this module's
// grammar.Production/grammar.Grammar sum-type model.
package cnf

import (
	"fmt"

	"github.com/dekarrin/cfgparse/grammar"
)

// Normalize runs the full five-pass pipeline on g and returns a new Grammar
// in Chomsky Normal Form, with the utility set populated to record every
// non-terminal introduced along the way. g itself is never modified.
// Normalize is idempotent: normalizing an already-normalized grammar
// produces an equivalent grammar, since each pass is a no-op once its
// target shape already holds throughout the production set.
func Normalize(g *grammar.Grammar) *grammar.Grammar {
	before := map[grammar.NonTerminal]bool{}
	for _, nt := range g.NonTerminals() {
		before[nt] = true
	}

	prods := g.Productions()
	prods = demixTerminals(prods)
	prods = binarize(prods)
	prods = eliminateEmpty(prods, g.Start())
	prods = eliminateUnitChains(prods)
	prods = pruneUnreachable(prods, g.Start())

	origUtility := g.UtilityNonTerminals()
	utility := map[grammar.NonTerminal]bool{}
	for _, p := range prods {
		if !before[p.Pattern] || origUtility[p.Pattern] {
			utility[p.Pattern] = true
		}
	}

	return grammar.NewGrammarWithUtility(prods, g.Start(), utility)
}

// appendDedup appends p to list unless a production with the same Pattern
// and RHS (Production.Equal ignores Chain, and so does this key) is already
// present; seen is shared across the calls building up a single pass's
// output so that the same synthesized production emitted from two different
// host productions is only kept once.
func appendDedup(list []grammar.Production, p grammar.Production, seen map[string]bool) []grammar.Production {
	key := p.String()
	if seen[key] {
		return list
	}
	seen[key] = true
	return append(list, p)
}

// demixTerminals is pass 1. Every production with more than one rhs symbol
// that contains at least one terminal has each of its terminals replaced by
// a freshly synthesized non-terminal, with a new production emitted binding
// that non-terminal to the terminal alone. The synthesized name is built
// from the pattern, the terminal's stable Hash, and the symbol's offset in
// the original rhs, so the same input always synthesizes the same name.
func demixTerminals(productions []grammar.Production) []grammar.Production {
	var out []grammar.Production
	seen := map[string]bool{}
	synthesized := map[grammar.NonTerminal]bool{}

	for _, p := range productions {
		if len(p.RHS) <= 1 {
			out = appendDedup(out, p, seen)
			continue
		}

		hasTerminal := false
		for _, sym := range p.RHS {
			if sym.IsTerminal() {
				hasTerminal = true
				break
			}
		}
		if !hasTerminal {
			out = appendDedup(out, p, seen)
			continue
		}

		newRHS := make([]grammar.Symbol, len(p.RHS))
		for i, sym := range p.RHS {
			t, ok := sym.Terminal()
			if !ok {
				newRHS[i] = sym
				continue
			}
			name := grammar.NonTerminal(fmt.Sprintf("%s~T%s_%d", p.Pattern, t.Hash(), i))
			newRHS[i] = grammar.SymNT(name)
			if !synthesized[name] {
				synthesized[name] = true
				out = appendDedup(out, grammar.NewProduction(name, grammar.SymT(t)), seen)
			}
		}
		out = appendDedup(out, grammar.Production{Pattern: p.Pattern, RHS: newRHS}, seen)
	}

	return out
}

// binarize is pass 2. A production with three or more rhs symbols (which,
// after pass 1, are always non-terminals) is decomposed into a chain of
// fresh two-symbol productions. The X_j names are built from the pattern,
// the offset j, and the non-terminal consumed at that step, which keeps
// distinct alternatives of the same pattern from colliding while still
// being fully reproducible from the input.
func binarize(productions []grammar.Production) []grammar.Production {
	var out []grammar.Production
	seen := map[string]bool{}

	for _, p := range productions {
		if len(p.RHS) < 3 {
			out = appendDedup(out, p, seen)
			continue
		}

		cur := p.Pattern
		rhs := p.RHS
		for j := 0; j < len(rhs)-2; j++ {
			next := grammar.NonTerminal(fmt.Sprintf("%s~B%d~%s", p.Pattern, j, rhs[j].String()))
			out = appendDedup(out, grammar.NewProduction(cur, rhs[j], grammar.SymNT(next)), seen)
			cur = next
		}
		out = appendDedup(out, grammar.NewProduction(cur, rhs[len(rhs)-2], rhs[len(rhs)-1]), seen)
	}

	return out
}

// eliminateEmpty is pass 3. It computes can_produce_empty and
// can_produce_nonempty as two independent fixed points over the current
// production multiset, then rewrites every non-empty production into every
// subset-rewriting that drops some combination of its nullable-and-also-
// nonempty-producing rhs non-terminals, discarding rewritings that would be
// empty. A non-terminal that is nullable but can *never* produce a non-empty
// string is dropped from every rhs unconditionally rather than branched on,
// since keeping it would leave a dangling reference to a non-terminal this
// pass is about to strip of every non-empty production. The start symbol's
// own epsilon productions, if any existed in the input, are the only empty
// productions carried through.
func eliminateEmpty(productions []grammar.Production, start grammar.NonTerminal) []grammar.Production {
	g, err := grammar.New(productions, start)
	if err != nil {
		// start is guaranteed non-empty by the caller (grammar.Grammar.Start
		// can never return ""), so New cannot fail here.
		panic(err.Error())
	}
	nullable := g.NullableNonTerminals()
	canNonEmpty := computeCanProduceNonEmpty(productions)

	var out []grammar.Production
	seen := map[string]bool{}

	for _, p := range productions {
		if p.IsEmpty() {
			if p.Pattern == start {
				out = appendDedup(out, p, seen)
			}
			continue
		}

		// unconditionally-dropped symbols first: nullable but incapable of
		// ever producing a non-empty string.
		base := make([]grammar.Symbol, 0, len(p.RHS))
		for _, sym := range p.RHS {
			if nt, ok := sym.NonTerminal(); ok && nullable[nt] && !canNonEmpty[nt] {
				continue
			}
			base = append(base, sym)
		}

		var optional []int
		for i, sym := range base {
			if nt, ok := sym.NonTerminal(); ok && nullable[nt] && canNonEmpty[nt] {
				optional = append(optional, i)
			}
		}

		drop := map[int]bool{}
		perms := 1 << len(optional)
		for mask := 0; mask < perms; mask++ {
			for k := range drop {
				delete(drop, k)
			}
			for bit, idx := range optional {
				if mask&(1<<bit) != 0 {
					drop[idx] = true
				}
			}

			var rhs []grammar.Symbol
			for i, sym := range base {
				if drop[i] {
					continue
				}
				rhs = append(rhs, sym)
			}
			if len(rhs) == 0 {
				continue
			}
			out = appendDedup(out, grammar.Production{Pattern: p.Pattern, RHS: rhs}, seen)
		}
	}

	return out
}

// computeCanProduceNonEmpty returns the least fixed point of: a non-terminal
// can produce a non-empty string if it has some non-empty production that
// either contains a terminal outright, or contains a non-terminal already
// known to produce a non-empty string (the rest of that production's
// symbols may still contribute nothing, via their own nullability).
func computeCanProduceNonEmpty(productions []grammar.Production) map[grammar.NonTerminal]bool {
	can := map[grammar.NonTerminal]bool{}

	changed := true
	for changed {
		changed = false
		for _, p := range productions {
			if can[p.Pattern] || p.IsEmpty() {
				continue
			}
			for _, sym := range p.RHS {
				if sym.IsTerminal() {
					can[p.Pattern] = true
					changed = true
					break
				}
				if nt, ok := sym.NonTerminal(); ok && can[nt] {
					can[p.Pattern] = true
					changed = true
					break
				}
			}
		}
	}

	return can
}

// eliminateUnitChains is pass 4. Every unit production A -> B is walked
// through the chain graph until a production is reached whose rhs is either
// final or has more than one symbol; a new production is emitted at the
// origin for every such terminal point, carrying the walked path as its
// Chain trace. A non-terminal revisited within the same walk indicates a
// cycle, which by construction generates no additional strings and so is
// simply abandoned rather than expanded further.
func eliminateUnitChains(productions []grammar.Production) []grammar.Production {
	byPattern := map[grammar.NonTerminal][]grammar.Production{}
	for _, p := range productions {
		byPattern[p.Pattern] = append(byPattern[p.Pattern], p)
	}

	var out []grammar.Production
	seen := map[string]bool{}

	for _, p := range productions {
		if p.IsEmpty() {
			out = appendDedup(out, p, seen)
			continue
		}
		if !p.IsUnit() {
			out = appendDedup(out, p, seen)
			continue
		}

		nt0, _ := p.RHS[0].NonTerminal()
		path := []grammar.NonTerminal{p.Pattern, nt0}
		visited := map[grammar.NonTerminal]bool{p.Pattern: true, nt0: true}
		walkUnitChain(path, visited, byPattern, &out, seen)
	}

	return out
}

func walkUnitChain(
	path []grammar.NonTerminal,
	visited map[grammar.NonTerminal]bool,
	byPattern map[grammar.NonTerminal][]grammar.Production,
	out *[]grammar.Production,
	seen map[string]bool,
) {
	origin := path[0]
	cur := path[len(path)-1]

	for _, q := range byPattern[cur] {
		if q.IsEmpty() {
			continue
		}
		if q.IsUnit() {
			nt, _ := q.RHS[0].NonTerminal()
			if visited[nt] {
				continue
			}
			nextPath := append(append([]grammar.NonTerminal{}, path...), nt)
			nextVisited := make(map[grammar.NonTerminal]bool, len(visited)+1)
			for k := range visited {
				nextVisited[k] = true
			}
			nextVisited[nt] = true
			walkUnitChain(nextPath, nextVisited, byPattern, out, seen)
			continue
		}

		chain := append([]grammar.NonTerminal{}, path...)
		np := grammar.Production{
			Pattern: origin,
			RHS:     append([]grammar.Symbol{}, q.RHS...),
			Chain:   chain,
		}
		*out = appendDedup(*out, np, seen)
	}
}

// pruneUnreachable is pass 5: a plain reachability walk from start over the
// relation "non-terminal N appears on the rhs of some production with
// pattern M", discarding productions whose own pattern never turns up. This
// mirrors internal/tunascript/grammar.go's RemoveUreachableNonTerminals,
// adapted to work over a production slice instead of mutating a Grammar's
// rule table in place.
func pruneUnreachable(productions []grammar.Production, start grammar.NonTerminal) []grammar.Production {
	byPattern := map[grammar.NonTerminal][]grammar.Production{}
	for _, p := range productions {
		byPattern[p.Pattern] = append(byPattern[p.Pattern], p)
	}

	reachable := map[grammar.NonTerminal]bool{}
	var walk func(nt grammar.NonTerminal)
	walk = func(nt grammar.NonTerminal) {
		if reachable[nt] {
			return
		}
		reachable[nt] = true
		for _, p := range byPattern[nt] {
			for _, sym := range p.RHS {
				if child, ok := sym.NonTerminal(); ok {
					walk(child)
				}
			}
		}
	}
	walk(start)

	var out []grammar.Production
	for _, p := range productions {
		if reachable[p.Pattern] {
			out = append(out, p)
		}
	}
	return out
}
