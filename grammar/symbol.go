// Package grammar holds the data model a recognizer/parser consumes: the
// non-terminal and terminal symbol types, productions built from them, and
// the Grammar container that indexes productions by the non-terminal they
// define. None of the three importer surface syntaxes (BNF/EBNF/ABNF) live
// here -- this package only knows how to hold and query a Grammar once one
// has been built, by hand or by an importer, via Grammar.New.
package grammar

import "fmt"

// NonTerminal is a grammar non-terminal symbol. Equality and hashing are on
// the name; two NonTerminal values with the same name are always the same
// symbol.
type NonTerminal string

func (nt NonTerminal) String() string {
	return string(nt)
}

// Equal returns whether o is a NonTerminal (or *NonTerminal) with the same
// name as nt.
func (nt NonTerminal) Equal(o any) bool {
	other, ok := o.(NonTerminal)
	if !ok {
		otherPtr, ok := o.(*NonTerminal)
		if !ok || otherPtr == nil {
			return false
		}
		other = *otherPtr
	}
	return nt == other
}

// symbolKind distinguishes the two members of the Symbol sum type.
type symbolKind int

const (
	symNonTerminal symbolKind = iota
	symTerminal
)

// Symbol is a single element of a production's right-hand side: either a
// Terminal or a NonTerminal. The zero Symbol is not valid; use SymNT or
// SymT to construct one.
type Symbol struct {
	kind symbolKind
	nt   NonTerminal
	term Terminal
}

// SymNT wraps a NonTerminal as a Symbol.
func SymNT(nt NonTerminal) Symbol {
	return Symbol{kind: symNonTerminal, nt: nt}
}

// SymT wraps a Terminal as a Symbol.
func SymT(t Terminal) Symbol {
	return Symbol{kind: symTerminal, term: t}
}

// IsTerminal returns whether sym holds a Terminal.
func (sym Symbol) IsTerminal() bool {
	return sym.kind == symTerminal
}

// IsNonTerminal returns whether sym holds a NonTerminal.
func (sym Symbol) IsNonTerminal() bool {
	return sym.kind == symNonTerminal
}

// NonTerminal returns the held NonTerminal and true, or the zero value and
// false if sym holds a Terminal instead.
func (sym Symbol) NonTerminal() (NonTerminal, bool) {
	if sym.kind != symNonTerminal {
		return "", false
	}
	return sym.nt, true
}

// Terminal returns the held Terminal and true, or the zero value and false
// if sym holds a NonTerminal instead.
func (sym Symbol) Terminal() (Terminal, bool) {
	if sym.kind != symTerminal {
		return Terminal{}, false
	}
	return sym.term, true
}

// Equal returns whether o is a Symbol (or *Symbol) holding an equal member.
func (sym Symbol) Equal(o any) bool {
	other, ok := o.(Symbol)
	if !ok {
		otherPtr, ok := o.(*Symbol)
		if !ok || otherPtr == nil {
			return false
		}
		other = *otherPtr
	}

	if sym.kind != other.kind {
		return false
	}
	if sym.kind == symNonTerminal {
		return sym.nt == other.nt
	}
	return sym.term.Equal(other.term)
}

func (sym Symbol) String() string {
	if sym.kind == symNonTerminal {
		return string(sym.nt)
	}
	return sym.term.String()
}

func (sym Symbol) GoString() string {
	if sym.kind == symNonTerminal {
		return fmt.Sprintf("NT(%q)", string(sym.nt))
	}
	return fmt.Sprintf("T(%s)", sym.term.String())
}
