// Package earley implements the Earley recognizer/parser: predict/scan/
// complete over an ordered list of Earley item sets, one per rune position
// of the input, followed by single-tree
// (explicit-stack) or all-trees (recursive cross-product) reconstruction.
// The predict/scan/complete item-set loop is grounded on
// _examples/other_examples/7fbbfa2c_npillmayer-gorgo__lr-earley-earley.go.go's
// Parser.innerLoop/predict/scan/complete, adapted from that package's
// token-indexed LR-item/iteratable.Set model (one column per scanned token)
// to this module's rune-position columns, since a single grammar.Terminal
// match may span more than one rune and so must be able to jump a scan
// ahead by more than one column.
package earley

import (
	"sort"

	"github.com/dekarrin/cfgparse/cfgerr"
	"github.com/dekarrin/cfgparse/cnf"
	"github.com/dekarrin/cfgparse/cursor"
	"github.com/dekarrin/cfgparse/grammar"
	"github.com/dekarrin/cfgparse/tree"
)

// item is an Earley state item: the production (by index into the parser's
// flat production list), how many rhs symbols have been consumed, and the
// column the production started at. Its three fields are its full identity.
type item struct {
	prodIdx int
	dot     int
	origin  int
}

// column is the ordered set of items live at one rune position. Items are
// appended to the slice as they are discovered; closure iterates the slice
// by index so that items added mid-iteration (by predict/complete) are
// still visited, the same work-queue technique
// _examples/other_examples/7fbbfa2c_npillmayer-gorgo__lr-earley-earley.go.go's
// iteratable.Set provides.
type column struct {
	items []item
	seen  map[item]bool
}

func newColumn() *column {
	return &column{seen: map[item]bool{}}
}

func (c *column) add(it item) bool {
	if c.seen[it] {
		return false
	}
	c.seen[it] = true
	c.items = append(c.items, it)
	return true
}

// termMatch records one successful terminal match discovered during
// scanning, used both to advance items and, later, to resupply leaf ranges
// during tree reconstruction.
type termMatch struct {
	term grammar.Terminal
	r    cursor.Range
}

// Parser recognizes and parses strings against a grammar using the Earley
// algorithm. As with cyk.Parser, the grammar is normalized to CNF once at
// construction time; Earley itself does not require CNF input, but
// normalizing once keeps both engines sharing the same utility set for the
// final explode step and recognizing the same language.
type Parser struct {
	source      *grammar.Grammar
	cnf         *grammar.Grammar
	productions []grammar.Production
	byPattern   map[grammar.NonTerminal][]int
	nullable    map[grammar.NonTerminal]bool
}

// New builds a Parser for g.
func New(g *grammar.Grammar) *Parser {
	normalized := cnf.Normalize(g)
	prods := normalized.Productions()
	byPattern := map[grammar.NonTerminal][]int{}
	for i, p := range prods {
		byPattern[p.Pattern] = append(byPattern[p.Pattern], i)
	}
	return &Parser{
		source:      g,
		cnf:         normalized,
		productions: prods,
		byPattern:   byPattern,
		nullable:    normalized.NullableNonTerminals(),
	}
}

// Recognizes reports whether input is derivable from the grammar.
func (p *Parser) Recognizes(input string) bool {
	_, err := p.SyntaxTree(input)
	return err == nil
}

// run builds the full state-collection for input, scanning terminals as it
// goes, and returns the columns plus every terminal match discovered,
// indexed by the column each match ends at (for reconstruction walking
// right to left) and the column it starts at (for the empty-input and
// error-fallback cases).
func (p *Parser) run(c *cursor.Cursor) (cols []*column, matchesByEnd map[int][]termMatch, firstErr error) {
	n := c.Len()
	cols = make([]*column, n+1)
	for i := range cols {
		cols[i] = newColumn()
	}
	matchesByEnd = map[int][]termMatch{}

	for _, idx := range p.byPattern[p.cnf.Start()] {
		cols[0].add(item{prodIdx: idx, dot: 0, origin: 0})
	}

	for k := 0; k <= n; k++ {
		p.closure(cols, k)
		if k == n {
			break
		}

		terms, expectedNTs := p.expectedAt(cols[k])
		if len(terms) == 0 {
			if len(expectedNTs) > 0 && firstErr == nil {
				firstErr = cfgerr.New(cfgerr.UnmatchedPattern, k, k, c.Source(),
					"no terminal-leading production is reachable here").WithContext(expectedNTs)
			}
			continue
		}

		anyMatch := false
		for _, t := range terms {
			r, ok := c.Match(t, k)
			if !ok {
				continue
			}
			anyMatch = true
			matchesByEnd[r.End] = append(matchesByEnd[r.End], termMatch{term: t, r: r})
			for _, it := range cols[k].items {
				prod := p.productions[it.prodIdx]
				if it.dot >= len(prod.RHS) {
					continue
				}
				if sym := prod.RHS[it.dot]; symTerminalEqual(sym, t) {
					cols[r.End].add(item{prodIdx: it.prodIdx, dot: it.dot + 1, origin: it.origin})
				}
			}
		}
		if !anyMatch && firstErr == nil {
			firstErr = cfgerr.New(cfgerr.UnexpectedToken, k, k+1, c.Source(), "no terminal production matches the upcoming input")
		}
	}

	return cols, matchesByEnd, firstErr
}

func symTerminalEqual(sym grammar.Symbol, t grammar.Terminal) bool {
	term, ok := sym.Terminal()
	return ok && term.Equal(t)
}

// closure runs predict and complete to a fixed point over column k. Scan is
// handled separately by run, since a successful scan may target any later
// column, not just k+1.
func (p *Parser) closure(cols []*column, k int) {
	col := cols[k]
	for i := 0; i < len(col.items); i++ {
		it := col.items[i]
		prod := p.productions[it.prodIdx]
		if it.dot >= len(prod.RHS) {
			p.complete(cols, k, it)
			continue
		}
		if nt, ok := prod.RHS[it.dot].NonTerminal(); ok {
			p.predict(cols, k, nt, it)
		}
	}
}

// predict adds a start item for every production of nt to column k, and,
// if nt is nullable, eagerly advances the predicting item past it in the
// same column.
func (p *Parser) predict(cols []*column, k int, nt grammar.NonTerminal, it item) {
	col := cols[k]
	for _, idx := range p.byPattern[nt] {
		col.add(item{prodIdx: idx, dot: 0, origin: k})
	}
	if p.nullable[nt] {
		col.add(item{prodIdx: it.prodIdx, dot: it.dot + 1, origin: it.origin})
	}
}

// complete advances every item in the completed item's origin column that
// was awaiting its pattern, landing the advanced items in column k.
func (p *Parser) complete(cols []*column, k int, it item) {
	prod := p.productions[it.prodIdx]
	origin := cols[it.origin]
	for _, waiting := range origin.items {
		wprod := p.productions[waiting.prodIdx]
		if waiting.dot >= len(wprod.RHS) {
			continue
		}
		if nt, ok := wprod.RHS[waiting.dot].NonTerminal(); ok && nt == prod.Pattern {
			cols[k].add(item{prodIdx: waiting.prodIdx, dot: waiting.dot + 1, origin: waiting.origin})
		}
	}
}

// expectedAt returns the distinct terminals expected by col's incomplete
// items, and, only if no terminal is expected at all, the distinct
// non-terminals awaited instead.
func (p *Parser) expectedAt(col *column) ([]grammar.Terminal, []grammar.NonTerminal) {
	var terms []grammar.Terminal
	seenT := map[string]bool{}
	ntSet := map[grammar.NonTerminal]bool{}

	for _, it := range col.items {
		prod := p.productions[it.prodIdx]
		if it.dot >= len(prod.RHS) {
			continue
		}
		sym := prod.RHS[it.dot]
		if t, ok := sym.Terminal(); ok {
			if h := t.Hash(); !seenT[h] {
				seenT[h] = true
				terms = append(terms, t)
			}
		} else if nt, ok := sym.NonTerminal(); ok {
			ntSet[nt] = true
		}
	}

	if len(terms) > 0 {
		return terms, nil
	}
	nts := make([]grammar.NonTerminal, 0, len(ntSet))
	for nt := range ntSet {
		nts = append(nts, nt)
	}
	sort.Slice(nts, func(i, j int) bool { return nts[i] < nts[j] })
	return terms, nts
}

func (p *Parser) parse(input string, allTrees bool) ([]*tree.Tree, error) {
	c := cursor.New(input)

	if c.Len() == 0 {
		for _, prod := range p.cnf.ProductionsFor(p.cnf.Start()) {
			if prod.IsEmpty() {
				return []*tree.Tree{tree.NewNode(p.cnf.Start())}, nil
			}
		}
		return nil, cfgerr.New(cfgerr.EmptyNotAllowed, 0, 0, input, "input is empty and the start symbol has no epsilon production")
	}

	cols, matchesByEnd, scanErr := p.run(c)
	n := c.Len()

	var accepted []item
	for _, it := range cols[n].items {
		prod := p.productions[it.prodIdx]
		if it.dot == len(prod.RHS) && it.origin == 0 && prod.Pattern == p.cnf.Start() {
			accepted = append(accepted, it)
			if !allTrees {
				break
			}
		}
	}

	if len(accepted) == 0 {
		if scanErr != nil {
			return nil, scanErr
		}
		return nil, p.longestPrefixError(cols, c)
	}

	if !allTrees {
		t := p.reconstructSingle(cols, matchesByEnd, accepted[0])
		return []*tree.Tree{t.Explode(p.cnf.IsUtility)}, nil
	}

	var out []*tree.Tree
	for _, it := range accepted {
		for _, t := range p.reconstructAll(cols, matchesByEnd, it) {
			out = append(out, t.Explode(p.cnf.IsUtility))
		}
	}
	return out, nil
}

// SyntaxTree parses input and returns a single tree, choosing the first
// derivation reconstruction finds when the grammar is ambiguous.
func (p *Parser) SyntaxTree(input string) (*tree.Tree, error) {
	trees, err := p.parse(input, false)
	if err != nil {
		return nil, err
	}
	return trees[0], nil
}

// AllSyntaxTrees parses input and returns every distinct derivation.
func (p *Parser) AllSyntaxTrees(input string) ([]*tree.Tree, error) {
	return p.parse(input, true)
}

// longestPrefixError reports the deepest recognition failure for a scan that
// completed without accepting: find the start-rooted
// parsed item with the greatest complete_index -- the column it completed
// at, which is also the length of the longest accepted prefix -- and report
// unmatched_pattern there; otherwise report at the first successful match,
// or the empty range at the start of input if nothing ever matched.
func (p *Parser) longestPrefixError(cols []*column, c *cursor.Cursor) error {
	for k := len(cols) - 1; k >= 0; k-- {
		for _, it := range cols[k].items {
			prod := p.productions[it.prodIdx]
			if it.dot == len(prod.RHS) && it.origin == 0 && prod.Pattern == p.cnf.Start() {
				return cfgerr.New(cfgerr.UnmatchedPattern, k, k, c.Source(), "no start-rooted derivation covers the full input")
			}
		}
	}
	for k := 0; k < len(cols)-1; k++ {
		for _, nt := range p.cnf.NonTerminals() {
			for _, prod := range p.cnf.ProductionsFor(nt) {
				if !prod.IsFinal() || len(prod.RHS) != 1 {
					continue
				}
				term, _ := prod.RHS[0].Terminal()
				if r, ok := c.Match(term, k); ok {
					return cfgerr.New(cfgerr.UnmatchedPattern, r.Start, r.End, c.Source(), "no start-rooted derivation covers the full input")
				}
			}
		}
	}
	return cfgerr.New(cfgerr.UnmatchedPattern, 0, 0, c.Source(), "no start-rooted derivation covers the full input")
}

// frame is one level of the explicit reconstruction stack: the production
// being resolved, the span [origin, end) it must cover, its rhs position
// (counting down from the last symbol, since reconstruction walks each
// production right to left), the children found so far, and a pointer back
// to the frame waiting on this one's result.
type frame struct {
	prodIdx  int
	origin   int
	end      int
	nextSym  int
	children []*tree.Tree
	parent   *frame
}

func newFrame(prod []grammar.Production, prodIdx, origin, end int, parent *frame) *frame {
	rhs := prod[prodIdx].RHS
	return &frame{
		prodIdx:  prodIdx,
		origin:   origin,
		end:      end,
		nextSym:  len(rhs) - 1,
		children: make([]*tree.Tree, len(rhs)),
		parent:   parent,
	}
}

// reconstructSingle builds one parse tree for the accepted root item, using
// an explicit stack of frames instead of recursion so that reconstruction
// cost stays proportional to the tree's size regardless of how deeply
// nested the grammar's derivations are, avoiding the cost of revisiting
// already-resolved completed items that plain recursion would pay.
func (p *Parser) reconstructSingle(cols []*column, matchesByEnd map[int][]termMatch, root item) *tree.Tree {
	// root is always drawn from the last column (parse only ever collects
	// accepted items out of cols[len(cols)-1]), so that is also where its
	// production completed.
	rootFrame := newFrame(p.productions, root.prodIdx, root.origin, len(cols)-1, nil)

	var result *tree.Tree
	stack := []*frame{rootFrame}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		prod := p.productions[top.prodIdx]

		if top.nextSym < 0 {
			node := unfold(prod, top.children...)
			stack = stack[:len(stack)-1]
			if top.parent == nil {
				result = node
				break
			}
			parent := top.parent
			parent.children[parent.nextSym] = node
			parent.end = top.origin
			parent.nextSym--
			continue
		}

		sym := prod.RHS[top.nextSym]
		if term, ok := sym.Terminal(); ok {
			var leaf *tree.Tree
			for _, m := range matchesByEnd[top.end] {
				if m.term.Equal(term) {
					leaf = tree.NewLeaf(m.r)
					top.end = m.r.Start
					break
				}
			}
			top.children[top.nextSym] = leaf
			top.nextSym--
			continue
		}

		nt, _ := sym.NonTerminal()
		childIdx, childOrigin := -1, -1
		for _, it := range cols[top.end].items {
			cp := p.productions[it.prodIdx]
			if it.dot == len(cp.RHS) && cp.Pattern == nt && it.origin >= top.origin {
				childIdx, childOrigin = it.prodIdx, it.origin
				break
			}
		}
		stack = append(stack, newFrame(p.productions, childIdx, childOrigin, top.end, top))
	}

	return result
}

// reconstructAll enumerates every derivation for the accepted root item. It
// uses ordinary recursion rather than reconstructSingle's explicit stack:
// the all-trees path is already exponential in its output size, so bounding
// its call-stack depth separately from that output buys little.
func (p *Parser) reconstructAll(cols []*column, matchesByEnd map[int][]termMatch, root item) []*tree.Tree {
	return p.expandAll(cols, matchesByEnd, root.prodIdx, root.origin, len(cols)-1)
}

func (p *Parser) expandAll(cols []*column, matchesByEnd map[int][]termMatch, prodIdx, origin, end int) []*tree.Tree {
	prod := p.productions[prodIdx]
	if len(prod.RHS) == 0 {
		return []*tree.Tree{unfold(prod)}
	}

	combos := p.expandRHS(cols, matchesByEnd, prod.RHS, len(prod.RHS)-1, origin, end)
	out := make([]*tree.Tree, len(combos))
	for i, children := range combos {
		out[i] = unfold(prod, children...)
	}
	return out
}

// expandRHS returns every way to assign rhs[0:i+1] (inclusive) so that it
// spans exactly [origin, end), recursing right to left and branching at
// every non-terminal position with more than one compatible completed item
// or every terminal position with more than one compatible match: at each
// choice point it enumerates all compatible parsed items and takes the
// cross-product of their children.
func (p *Parser) expandRHS(cols []*column, matchesByEnd map[int][]termMatch, rhs []grammar.Symbol, i, origin, end int) [][]*tree.Tree {
	if i < 0 {
		if origin == end {
			return [][]*tree.Tree{{}}
		}
		return nil
	}

	var results [][]*tree.Tree
	sym := rhs[i]

	if term, ok := sym.Terminal(); ok {
		for _, m := range matchesByEnd[end] {
			if !m.term.Equal(term) {
				continue
			}
			leaf := tree.NewLeaf(m.r)
			for _, prefix := range p.expandRHS(cols, matchesByEnd, rhs, i-1, origin, m.r.Start) {
				results = append(results, append(append([]*tree.Tree{}, prefix...), leaf))
			}
		}
		return results
	}

	nt, _ := sym.NonTerminal()
	for _, it := range cols[end].items {
		cp := p.productions[it.prodIdx]
		if it.dot != len(cp.RHS) || cp.Pattern != nt || it.origin < origin {
			continue
		}
		subtrees := p.expandAll(cols, matchesByEnd, it.prodIdx, it.origin, end)
		prefixes := p.expandRHS(cols, matchesByEnd, rhs, i-1, origin, it.origin)
		for _, prefix := range prefixes {
			for _, st := range subtrees {
				results = append(results, append(append([]*tree.Tree{}, prefix...), st))
			}
		}
	}
	return results
}

// unfold mirrors cyk.unfold: a completed item's production ordinarily
// contributes a single node keyed by its pattern, but a production carrying
// a chain trace from CNF unit-chain elimination contributes a linear spine
// of nodes instead.
func unfold(prod grammar.Production, children ...*tree.Tree) *tree.Tree {
	if len(prod.Chain) == 0 {
		return tree.NewNode(prod.Pattern, children...)
	}
	inner := tree.NewNode(prod.Chain[len(prod.Chain)-1], children...)
	for i := len(prod.Chain) - 2; i >= 0; i-- {
		inner = tree.NewNode(prod.Chain[i], inner)
	}
	return inner
}
