package grammar

import (
	"fmt"
	"regexp"
)

// terminalKind distinguishes the three members of the Terminal sum type.
type terminalKind int

const (
	termLiteral terminalKind = iota
	termRange
	termRegex
)

// Terminal is a leaf symbol matched directly against the input by a
// Cursor (package cursor). It is one of three variants:
//
//   - Literal: a non-empty string matched byte-for-byte, or the
//     distinguished empty-literal epsilon sentinel (see Epsilon).
//   - Range: an inclusive [lo, hi] over a single code point.
//   - Regex: a pattern whose first match anchored at the cursor position
//     is consumed.
//
// Equality and hashing are on the defining payload: the literal string, the
// range bounds, or the regex pattern text (not the compiled form).
type Terminal struct {
	kind    terminalKind
	literal string
	lo, hi  rune
	pattern string
	re      *regexp.Regexp
}

// Epsilon is the distinguished empty-literal sentinel. It is not meant to
// appear in a production's right-hand side: an empty production is spelled
// as a Production with a nil/empty RHS. Epsilon exists only so that
// Terminal's zero-value-adjacent "empty literal" case has a single, named,
// recognizable form for importers and tests that need to refer to it.
var Epsilon = Terminal{kind: termLiteral, literal: ""}

// NewLiteral returns a Terminal that matches s byte-for-byte. s must be
// non-empty; use Epsilon to represent the empty string.
func NewLiteral(s string) (Terminal, error) {
	if s == "" {
		return Terminal{}, fmt.Errorf("grammar: literal terminal must be non-empty (use grammar.Epsilon for the empty string)")
	}
	return Terminal{kind: termLiteral, literal: s}, nil
}

// MustLiteral is NewLiteral but panics on error. Intended for tests and
// hand-written grammar fixtures, matching the Must* convention used
// throughout this module's test files.
func MustLiteral(s string) Terminal {
	t, err := NewLiteral(s)
	if err != nil {
		panic(err.Error())
	}
	return t
}

// NewRange returns a Terminal that matches exactly one code point in the
// inclusive range [lo, hi]. It is an error for hi to be less than lo.
func NewRange(lo, hi rune) (Terminal, error) {
	if hi < lo {
		return Terminal{}, fmt.Errorf("grammar: character range has hi (%q) < lo (%q)", hi, lo)
	}
	return Terminal{kind: termRange, lo: lo, hi: hi}, nil
}

// MustRange is NewRange but panics on error.
func MustRange(lo, hi rune) Terminal {
	t, err := NewRange(lo, hi)
	if err != nil {
		panic(err.Error())
	}
	return t
}

// NewRegex compiles pattern and returns a Terminal that matches its first
// occurrence anchored at the cursor position. Compilation happens here, at
// grammar-construction time, so that an invalid pattern is reported as a
// construction error rather than surfacing mid-parse.
func NewRegex(pattern string) (Terminal, error) {
	// Anchor with \A rather than injecting a literal '^' line-start anchor:
	// \A only ever matches the start of the whole subject, so the provided
	// pattern doesn't need to know it is being anchored, and multi-line
	// patterns with '^' still behave as the author wrote them.
	re, err := regexp.Compile(`\A(?:` + pattern + `)`)
	if err != nil {
		return Terminal{}, fmt.Errorf("grammar: invalid regex terminal %q: %w", pattern, err)
	}
	return Terminal{kind: termRegex, pattern: pattern, re: re}, nil
}

// MustRegex is NewRegex but panics on error.
func MustRegex(pattern string) Terminal {
	t, err := NewRegex(pattern)
	if err != nil {
		panic(err.Error())
	}
	return t
}

// IsEpsilon returns whether t is the distinguished empty-literal sentinel.
func (t Terminal) IsEpsilon() bool {
	return t.kind == termLiteral && t.literal == ""
}

// IsLiteral, IsRange, and IsRegex report which variant t holds.
func (t Terminal) IsLiteral() bool { return t.kind == termLiteral }
func (t Terminal) IsRange() bool   { return t.kind == termRange }
func (t Terminal) IsRegex() bool   { return t.kind == termRegex }

// Literal returns the literal string and true if t is a literal terminal.
func (t Terminal) Literal() (string, bool) {
	if t.kind != termLiteral {
		return "", false
	}
	return t.literal, true
}

// Range returns the inclusive bounds and true if t is a character-range
// terminal.
func (t Terminal) Range() (lo, hi rune, ok bool) {
	if t.kind != termRange {
		return 0, 0, false
	}
	return t.lo, t.hi, true
}

// Pattern returns the regex source text and true if t is a regex terminal.
func (t Terminal) Pattern() (string, bool) {
	if t.kind != termRegex {
		return "", false
	}
	return t.pattern, true
}

// Regexp returns the compiled regexp backing a regex terminal, or nil if t
// is not a regex terminal. Used by package cursor to perform the anchored
// match.
func (t Terminal) Regexp() *regexp.Regexp {
	return t.re
}

// Equal returns whether o is a Terminal (or *Terminal) of the same variant
// with an equal defining payload.
func (t Terminal) Equal(o any) bool {
	other, ok := o.(Terminal)
	if !ok {
		otherPtr, ok := o.(*Terminal)
		if !ok || otherPtr == nil {
			return false
		}
		other = *otherPtr
	}

	if t.kind != other.kind {
		return false
	}
	switch t.kind {
	case termLiteral:
		return t.literal == other.literal
	case termRange:
		return t.lo == other.lo && t.hi == other.hi
	case termRegex:
		return t.pattern == other.pattern
	default:
		return false
	}
}

func (t Terminal) String() string {
	switch t.kind {
	case termLiteral:
		if t.IsEpsilon() {
			return "ε"
		}
		return fmt.Sprintf("%q", t.literal)
	case termRange:
		return fmt.Sprintf("%q..%q", t.lo, t.hi)
	case termRegex:
		return "/" + t.pattern + "/"
	default:
		return "<invalid terminal>"
	}
}

// Hash returns a short, stable, deterministic tag for t's defining payload.
// It is used by the CNF normalizer (package cnf) to synthesize reproducible
// non-terminal names for de-mixed terminals: the same terminal at the same
// offset in the same production always yields the same synthesized name.
func (t Terminal) Hash() string {
	switch t.kind {
	case termLiteral:
		return "L" + fnv32a(t.literal)
	case termRange:
		return fmt.Sprintf("R%x_%x", t.lo, t.hi)
	case termRegex:
		return "X" + fnv32a(t.pattern)
	default:
		return "?"
	}
}

// fnv32a is a tiny, dependency-free stable string hash used only to keep
// synthesized non-terminal names short; it is not a security primitive.
func fnv32a(s string) string {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return fmt.Sprintf("%08x", h)
}
