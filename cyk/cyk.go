// Package cyk implements the CYK recognizer/parser: greedy tokenization
// over a CNF grammar's terminal productions, a triangular
// dynamic-programming table, and tree
// reconstruction that unfolds chain traces and explodes utility
// non-terminals. The table-of-node-slices shape, and the left/right-child
// node linking it builds on, is grounded on _examples/ling0322-pcfg/cyk.go's
// _CYKNode table, adapted from that file's probability-weighted single-best
// parse to this module's non-probabilistic single-tree/all-trees modes.
package cyk

import (
	"github.com/dekarrin/cfgparse/cfgerr"
	"github.com/dekarrin/cfgparse/cnf"
	"github.com/dekarrin/cfgparse/cursor"
	"github.com/dekarrin/cfgparse/grammar"
	"github.com/dekarrin/cfgparse/tree"
)

// Parser recognizes and parses strings against a grammar using the CYK
// algorithm. It normalizes the supplied grammar to Chomsky Normal Form once,
// at construction time, and reuses that normalized form for every parse.
type Parser struct {
	source *grammar.Grammar
	cnf    *grammar.Grammar

	binary map[grammar.NonTerminal]map[grammar.NonTerminal][]grammar.Production
}

// New builds a Parser for g.
func New(g *grammar.Grammar) *Parser {
	normalized := cnf.Normalize(g)
	return &Parser{
		source: g,
		cnf:    normalized,
		binary: indexBinaryProductions(normalized),
	}
}

func indexBinaryProductions(g *grammar.Grammar) map[grammar.NonTerminal]map[grammar.NonTerminal][]grammar.Production {
	idx := map[grammar.NonTerminal]map[grammar.NonTerminal][]grammar.Production{}
	for _, p := range g.Productions() {
		if len(p.RHS) != 2 {
			continue
		}
		l, ok1 := p.RHS[0].NonTerminal()
		r, ok2 := p.RHS[1].NonTerminal()
		if !ok1 || !ok2 {
			continue
		}
		if idx[l] == nil {
			idx[l] = map[grammar.NonTerminal][]grammar.Production{}
		}
		idx[l][r] = append(idx[l][r], p)
	}
	return idx
}

// Recognizes reports whether input is derivable from the grammar, without
// building a parse tree.
func (p *Parser) Recognizes(input string) bool {
	_, err := p.SyntaxTree(input)
	return err == nil
}

// SyntaxTree parses input and returns a single tree, choosing the first
// derivation found in cell-construction order when the grammar is
// ambiguous.
func (p *Parser) SyntaxTree(input string) (*tree.Tree, error) {
	trees, err := p.parse(input, false)
	if err != nil {
		return nil, err
	}
	return trees[0], nil
}

// AllSyntaxTrees parses input and returns every distinct derivation. For
// highly ambiguous grammars the number of derivations (and so the time to
// enumerate them) can grow exponentially in the input length.
func (p *Parser) AllSyntaxTrees(input string) ([]*tree.Tree, error) {
	return p.parse(input, true)
}

// cell maps a CNF pattern to every alternative subtree rooted at that
// pattern spanning this cell's range. In single-tree mode each pattern is
// capped at one entry; in all-trees mode every distinct derivation is kept.
type cell map[grammar.NonTerminal][]*tree.Tree

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

	tokens, err := p.tokenize(c)
	if err != nil {
		return nil, err
	}

	table := p.buildTable(tokens, allTrees)

	n := len(tokens)
	root := table[n-1][0]
	alts, ok := root[p.cnf.Start()]
	if !ok || len(alts) == 0 {
		return nil, p.longestPrefixError(table, tokens, input)
	}

	out := make([]*tree.Tree, len(alts))
	for i, t := range alts {
		out[i] = t.Explode(p.cnf.IsUtility)
	}
	return out, nil
}

// token is one position of the greedy left-to-right tokenization: the
// consumed range, and every CNF terminal production whose terminal matched
// that exact range.
type token struct {
	cursor.Range
	productions []grammar.Production
}

func (p *Parser) tokenize(c *cursor.Cursor) ([]token, error) {
	var tokens []token
	pos := 0

	for pos < c.Len() {
		best, found := p.greedyMatch(c, pos)
		if !found {
			return nil, cfgerr.New(cfgerr.UnknownToken, pos, pos+1, c.Source(), "no terminal production matches here")
		}

		var alts []grammar.Production
		for _, nt := range p.cnf.NonTerminals() {
			for _, prod := range p.cnf.ProductionsFor(nt) {
				if !prod.IsFinal() || len(prod.RHS) != 1 {
					continue
				}
				term, _ := prod.RHS[0].Terminal()
				r, ok := c.Match(term, pos)
				if ok && r == best {
					alts = append(alts, prod)
				}
			}
		}

		tokens = append(tokens, token{Range: best, productions: alts})
		pos = best.End
	}

	return tokens, nil
}

// greedyMatch returns the range of the first terminal production (in
// NonTerminals/ProductionsFor order) that matches at pos; every other
// terminal production matching that same range is retained later as an
// alternative by tokenize.
func (p *Parser) greedyMatch(c *cursor.Cursor, pos int) (cursor.Range, bool) {
	for _, nt := range p.cnf.NonTerminals() {
		for _, prod := range p.cnf.ProductionsFor(nt) {
			if !prod.IsFinal() || len(prod.RHS) != 1 {
				continue
			}
			term, _ := prod.RHS[0].Terminal()
			r, ok := c.Match(term, pos)
			if ok {
				return r, true
			}
		}
	}
	return cursor.Range{}, false
}

// addCell inserts node under pattern in c, honoring the mode: in single-tree
// mode a pattern already holding an entry is left alone (the first
// derivation found wins and the cell's size stays polynomial); in all-trees
// mode every derivation is accumulated.
func addCell(c cell, allTrees bool, pattern grammar.NonTerminal, node *tree.Tree) {
	if !allTrees && len(c[pattern]) > 0 {
		return
	}
	c[pattern] = append(c[pattern], node)
}

func (p *Parser) buildTable(tokens []token, allTrees bool) [][]cell {
	n := len(tokens)
	table := make([][]cell, n)

	table[0] = make([]cell, n)
	for col, tok := range tokens {
		c := cell{}
		for _, prod := range tok.productions {
			addCell(c, allTrees, prod.Pattern, unfold(prod, tree.NewLeaf(tok.Range)))
		}
		table[0][col] = c
	}

	for row := 1; row < n; row++ {
		width := n - row
		table[row] = make([]cell, width)
		for col := 0; col < width; col++ {
			out := cell{}
			for r1 := 0; r1 < row; r1++ {
				r2 := row - r1 - 1
				left := table[r1][col]
				right := table[r2][col+r1+1]

				for lp, ltrees := range left {
					rightByPattern := p.binary[lp]
					if rightByPattern == nil {
						continue
					}
					for rp, rtrees := range right {
						for _, prod := range rightByPattern[rp] {
							for _, lt := range ltrees {
								for _, rt := range rtrees {
									addCell(out, allTrees, prod.Pattern, unfold(prod, lt, rt))
								}
							}
						}
					}
				}
			}
			table[row][col] = out
		}
	}

	return table
}

// unfold builds the tree node(s) a production contributes: ordinarily a
// single node keyed by prod.Pattern, or -- when prod carries a chain trace
// from the CNF unit-chain-elimination pass -- a linear spine of nodes, one
// per eliminated non-terminal in the chain, wrapping children at its
// innermost link.
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

// longestPrefixError reports the deepest recognition failure: it scans
// column 0 from the longest span down to the shortest for a
// start-rooted subtree, and report unmatched_pattern at that subtree's
// rightmost leaf; fall back to the first token's range if even a
// single-token prefix never reached the start symbol.
func (p *Parser) longestPrefixError(table [][]cell, tokens []token, source string) error {
	n := len(tokens)
	for row := n - 1; row >= 0; row-- {
		c := table[row][0]
		alts, ok := c[p.cnf.Start()]
		if !ok || len(alts) == 0 {
			continue
		}
		leaf := rightmostLeaf(alts[0])
		return cfgerr.New(cfgerr.UnmatchedPattern, leaf.Start, leaf.End, source, "no start-rooted derivation covers the full input")
	}
	return cfgerr.New(cfgerr.UnmatchedPattern, tokens[0].Start, tokens[0].End, source, "no start-rooted derivation covers the full input")
}

func rightmostLeaf(t *tree.Tree) cursor.Range {
	if t.IsLeaf() {
		return t.Range
	}
	return rightmostLeaf(t.Children[len(t.Children)-1])
}
