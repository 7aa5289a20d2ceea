// Package grammarjson defines a JSON wire format for a grammar.Grammar,
// built only from that package's public constructors and accessors -- the
// same approach store/sqlite/dto.go takes for the on-disk encoding, though
// the two formats are unrelated and free to diverge. It is shared by
// cmd/cfgparse (which loads a grammar file from disk) and package server
// (which accepts one as a request body and returns one from a lookup).
package grammarjson

import (
	"fmt"

	"github.com/dekarrin/cfgparse/grammar"
)

// Grammar is the JSON rendering of a grammar.Grammar: a start symbol and an
// ordered list of productions.
type Grammar struct {
	Name        string        `json:"name,omitempty"`
	Start       string        `json:"start"`
	Productions []Production  `json:"productions"`
}

type Production struct {
	Pattern string   `json:"pattern"`
	RHS     []Symbol `json:"rhs"`
}

// Symbol is a tagged union: exactly one of NonTerminal or Terminal must be
// set.
type Symbol struct {
	NonTerminal string    `json:"nonterminal,omitempty"`
	Terminal    *Terminal `json:"terminal,omitempty"`
}

// Terminal is a tagged union on Kind: "literal", "range", or "regex". An
// empty Literal with Kind "literal" represents grammar.Epsilon; in practice
// this should never appear standalone on a RHS -- an empty production is
// simply a Production with no RHS entries at all.
type Terminal struct {
	Kind    string `json:"kind"`
	Literal string `json:"literal,omitempty"`
	Lo      string `json:"lo,omitempty"`
	Hi      string `json:"hi,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

// ToGrammar builds a *grammar.Grammar from g, validating each production as
// it goes.
func (g Grammar) ToGrammar() (*grammar.Grammar, error) {
	if g.Start == "" {
		return nil, fmt.Errorf("start must not be empty")
	}
	if len(g.Productions) == 0 {
		return nil, fmt.Errorf("productions must not be empty")
	}

	prods := make([]grammar.Production, 0, len(g.Productions))
	for i, pr := range g.Productions {
		if pr.Pattern == "" {
			return nil, fmt.Errorf("productions[%d]: pattern must not be empty", i)
		}

		rhs := make([]grammar.Symbol, 0, len(pr.RHS))
		for j, sr := range pr.RHS {
			sym, err := sr.toSymbol()
			if err != nil {
				return nil, fmt.Errorf("productions[%d].rhs[%d]: %w", i, j, err)
			}
			rhs = append(rhs, sym)
		}

		prods = append(prods, grammar.NewProduction(grammar.NonTerminal(pr.Pattern), rhs...))
	}

	gr, err := grammar.New(prods, grammar.NonTerminal(g.Start))
	if err != nil {
		return nil, err
	}
	return gr, nil
}

func (sr Symbol) toSymbol() (grammar.Symbol, error) {
	if sr.NonTerminal != "" && sr.Terminal != nil {
		return grammar.Symbol{}, fmt.Errorf("must set exactly one of nonterminal or terminal, not both")
	}
	if sr.NonTerminal != "" {
		return grammar.SymNT(grammar.NonTerminal(sr.NonTerminal)), nil
	}
	if sr.Terminal == nil {
		return grammar.Symbol{}, fmt.Errorf("must set exactly one of nonterminal or terminal")
	}

	t, err := sr.Terminal.toTerminal()
	if err != nil {
		return grammar.Symbol{}, err
	}
	return grammar.SymT(t), nil
}

func (tr Terminal) toTerminal() (grammar.Terminal, error) {
	switch tr.Kind {
	case "literal":
		if tr.Literal == "" {
			return grammar.Epsilon, nil
		}
		return grammar.NewLiteral(tr.Literal)
	case "range":
		loRunes := []rune(tr.Lo)
		hiRunes := []rune(tr.Hi)
		if len(loRunes) != 1 || len(hiRunes) != 1 {
			return grammar.Terminal{}, fmt.Errorf("range terminal lo/hi must each be exactly one character")
		}
		return grammar.NewRange(loRunes[0], hiRunes[0])
	case "regex":
		return grammar.NewRegex(tr.Pattern)
	default:
		return grammar.Terminal{}, fmt.Errorf("terminal kind must be one of 'literal', 'range', 'regex', got %q", tr.Kind)
	}
}

// FromGrammar renders g into the wire format.
func FromGrammar(g *grammar.Grammar) Grammar {
	var out Grammar
	out.Start = string(g.Start())

	for _, p := range g.Productions() {
		pr := Production{Pattern: string(p.Pattern)}
		for _, sym := range p.RHS {
			pr.RHS = append(pr.RHS, fromSymbol(sym))
		}
		out.Productions = append(out.Productions, pr)
	}
	return out
}

func fromSymbol(sym grammar.Symbol) Symbol {
	if nt, ok := sym.NonTerminal(); ok {
		return Symbol{NonTerminal: string(nt)}
	}
	t, _ := sym.Terminal()
	return Symbol{Terminal: fromTerminal(t)}
}

func fromTerminal(t grammar.Terminal) *Terminal {
	if t.IsLiteral() {
		lit, _ := t.Literal()
		return &Terminal{Kind: "literal", Literal: lit}
	}
	if t.IsRange() {
		lo, hi, _ := t.Range()
		return &Terminal{Kind: "range", Lo: string(lo), Hi: string(hi)}
	}
	pat, _ := t.Pattern()
	return &Terminal{Kind: "regex", Pattern: pat}
}
