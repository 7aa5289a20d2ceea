package grammar

import "strings"

// Production is a single alternative `pattern -> rhs` belonging to a Rule.
// An empty RHS represents the production that derives the empty string.
//
// Chain carries the ordered list of non-terminals eliminated by the CNF
// normalizer's unit-chain pass when this production was synthesized to
// replace a chain `A -> B -> ... -> C -> ω`. It is auxiliary metadata used
// only for tree reconstruction: it does not participate in Equal, so
// chain-equivalent productions still compare and hash alike for
// chart/table dedup purposes.
type Production struct {
	Pattern NonTerminal
	RHS     []Symbol
	Chain   []NonTerminal
}

// NewProduction returns a Production with the given pattern and RHS. Chain
// is left empty; set it directly for synthesized productions that need to
// record the chain they replace.
func NewProduction(pattern NonTerminal, rhs ...Symbol) Production {
	return Production{Pattern: pattern, RHS: rhs}
}

// Equal returns whether p and o have the same Pattern and RHS. Chain is
// deliberately excluded: it is bookkeeping for reconstruction, not part of
// a production's identity.
func (p Production) Equal(o any) bool {
	other, ok := o.(Production)
	if !ok {
		otherPtr, ok := o.(*Production)
		if !ok || otherPtr == nil {
			return false
		}
		other = *otherPtr
	}

	if p.Pattern != other.Pattern {
		return false
	}
	if len(p.RHS) != len(other.RHS) {
		return false
	}
	for i := range p.RHS {
		if !p.RHS[i].Equal(other.RHS[i]) {
			return false
		}
	}
	return true
}

// IsEmpty returns whether p derives the empty string directly, i.e. has no
// RHS symbols at all.
func (p Production) IsEmpty() bool {
	return len(p.RHS) == 0
}

// IsFinal returns whether every symbol of p's RHS is a Terminal.
func (p Production) IsFinal() bool {
	if len(p.RHS) == 0 {
		return false
	}
	for _, sym := range p.RHS {
		if !sym.IsTerminal() {
			return false
		}
	}
	return true
}

// IsUnit returns whether p's RHS is exactly one non-terminal -- a "chain
// production".
func (p Production) IsUnit() bool {
	return len(p.RHS) == 1 && p.RHS[0].IsNonTerminal()
}

// IsCNF returns whether p is already in Chomsky Normal Form: either final
// with exactly one terminal, or two non-terminals.
func (p Production) IsCNF() bool {
	if p.IsFinal() && len(p.RHS) == 1 {
		return true
	}
	if len(p.RHS) == 2 && p.RHS[0].IsNonTerminal() && p.RHS[1].IsNonTerminal() {
		return true
	}
	return false
}

// GeneratedTerminals returns the Terminal values appearing in p's RHS, in
// order, skipping non-terminals.
func (p Production) GeneratedTerminals() []Terminal {
	out := []Terminal{}
	for _, sym := range p.RHS {
		if t, ok := sym.Terminal(); ok {
			out = append(out, t)
		}
	}
	return out
}

// GeneratedNonTerminals returns the NonTerminal values appearing in p's
// RHS, in order, skipping terminals.
func (p Production) GeneratedNonTerminals() []NonTerminal {
	out := []NonTerminal{}
	for _, sym := range p.RHS {
		if nt, ok := sym.NonTerminal(); ok {
			out = append(out, nt)
		}
	}
	return out
}

// GeneratesEmpty returns whether this production alone derives the empty
// string given the grammar's nullable set: either p has no RHS at all, or
// every symbol of its RHS is a nullable non-terminal.
func (p Production) GeneratesEmpty(nullable map[NonTerminal]bool) bool {
	if len(p.RHS) == 0 {
		return true
	}
	for _, sym := range p.RHS {
		nt, ok := sym.NonTerminal()
		if !ok || !nullable[nt] {
			return false
		}
	}
	return true
}

func (p Production) String() string {
	if len(p.RHS) == 0 {
		return string(p.Pattern) + " -> ε"
	}
	parts := make([]string, len(p.RHS))
	for i, sym := range p.RHS {
		parts[i] = sym.String()
	}
	return string(p.Pattern) + " -> " + strings.Join(parts, " ")
}

// Copy returns a deep copy of p.
func (p Production) Copy() Production {
	p2 := Production{Pattern: p.Pattern}
	if p.RHS != nil {
		p2.RHS = make([]Symbol, len(p.RHS))
		copy(p2.RHS, p.RHS)
	}
	if p.Chain != nil {
		p2.Chain = make([]NonTerminal, len(p.Chain))
		copy(p2.Chain, p.Chain)
	}
	return p2
}
