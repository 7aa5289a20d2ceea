package server

import (
	"github.com/dekarrin/cfgparse/grammar"
	"github.com/dekarrin/cfgparse/grammarjson"
	"github.com/google/uuid"
)

// GrammarSummary is the JSON body returned for a registered grammar.
type GrammarSummary struct {
	ID           uuid.UUID         `json:"id"`
	Name         string            `json:"name"`
	Start        string            `json:"start"`
	NonTerminals []string          `json:"nonterminals"`
	Grammar      grammarjson.Grammar `json:"grammar"`
}

func newGrammarSummary(id uuid.UUID, name string, g *grammar.Grammar) GrammarSummary {
	nts := g.NonTerminals()
	names := make([]string, len(nts))
	for i, nt := range nts {
		names[i] = string(nt)
	}
	return GrammarSummary{
		ID:           id,
		Name:         name,
		Start:        string(g.Start()),
		NonTerminals: names,
		Grammar:      grammarjson.FromGrammar(g),
	}
}
