// Package cursor implements the input-position/terminal-matching contract
// the recognizer engines are built on: given a source buffer and a rune
// position within it, try to match a grammar.Terminal starting exactly at
// that position.
package cursor

import (
	"unicode/utf8"

	"github.com/dekarrin/cfgparse/grammar"
)

// Range is a half-open span [Start, End) of rune (code point) indices into
// a Cursor's source. End is always strictly greater than Start for a
// successful match; there is no such thing as a zero-width match, since a
// production deriving the empty string is represented structurally (an
// empty RHS), not through a zero-width terminal.
type Range struct {
	Start, End int
}

// Len returns the number of code points spanned by r.
func (r Range) Len() int {
	return r.End - r.Start
}

// Cursor wraps a source string and exposes Match, its sole operation: try a
// single Terminal at a single rune position. A Cursor never rewinds --
// callers always advance monotonically
// through the positions they ask about -- but the type itself is stateless
// and safe to query out of order; "never rewinds" describes the engines
// built on top of it (cyk, earley), not a constraint Cursor enforces.
type Cursor struct {
	src     string
	runes   []rune
	offsets []int // offsets[i] is the byte offset of runes[i]; len == len(runes)+1
}

// New wraps src for matching. The source is decoded to runes once up
// front, along with a rune->byte-offset table, so that byte-vs-codepoint
// bookkeeping never has to be repeated during a parse.
func New(src string) *Cursor {
	c := &Cursor{src: src}
	c.runes = make([]rune, 0, len(src))
	c.offsets = make([]int, 0, len(src)+1)

	byteOff := 0
	for _, r := range src {
		c.runes = append(c.runes, r)
		c.offsets = append(c.offsets, byteOff)
		byteOff += utf8.RuneLen(r)
	}
	c.offsets = append(c.offsets, byteOff)

	return c
}

// Len returns the number of code points in the cursor's source.
func (c *Cursor) Len() int {
	return len(c.runes)
}

// Source returns the original source string.
func (c *Cursor) Source() string {
	return c.src
}

// Slice returns the substring spanned by r.
func (c *Cursor) Slice(r Range) string {
	if r.Start < 0 || r.End > len(c.runes) || r.Start > r.End {
		return ""
	}
	return string(c.runes[r.Start:r.End])
}

// At returns the rune at the given position and true, or (0, false) if pos
// is out of bounds.
func (c *Cursor) At(pos int) (rune, bool) {
	if pos < 0 || pos >= len(c.runes) {
		return 0, false
	}
	return c.runes[pos], true
}

// Match attempts to match t starting exactly at pos. It returns (range,
// true) on a match, where range.Start == pos and range.End > pos, or the
// zero Range and false on no match. Match never fails with an error: an
// invalid terminal (bad regex, inverted range) cannot be constructed in
// the first place (grammar.NewRegex / grammar.NewRange reject those at
// grammar-construction time), so at match time there is only match or no
// match.
func (c *Cursor) Match(t grammar.Terminal, pos int) (Range, bool) {
	if pos < 0 || pos > len(c.runes) {
		return Range{}, false
	}

	switch {
	case t.IsLiteral():
		return c.matchLiteral(t, pos)
	case t.IsRange():
		return c.matchRange(t, pos)
	case t.IsRegex():
		return c.matchRegex(t, pos)
	default:
		return Range{}, false
	}
}

func (c *Cursor) matchLiteral(t grammar.Terminal, pos int) (Range, bool) {
	lit, _ := t.Literal()
	if lit == "" {
		// Epsilon sentinel never participates in cursor matching; empty
		// productions are modeled structurally, not as a zero-width match.
		return Range{}, false
	}

	litRunes := []rune(lit)
	if pos+len(litRunes) > len(c.runes) {
		return Range{}, false
	}
	for i, r := range litRunes {
		if c.runes[pos+i] != r {
			return Range{}, false
		}
	}
	return Range{Start: pos, End: pos + len(litRunes)}, true
}

func (c *Cursor) matchRange(t grammar.Terminal, pos int) (Range, bool) {
	lo, hi, _ := t.Range()
	r, ok := c.At(pos)
	if !ok {
		return Range{}, false
	}
	if r < lo || r > hi {
		return Range{}, false
	}
	return Range{Start: pos, End: pos + 1}, true
}

func (c *Cursor) matchRegex(t grammar.Terminal, pos int) (Range, bool) {
	re := t.Regexp()
	if re == nil {
		return Range{}, false
	}

	// The regexp operates on the byte-offset view of the source, so the
	// rune position has to be translated to a byte offset before matching
	// and the matched byte length translated back to a rune count
	// afterward. Pattern is pre-anchored with \A (see grammar.NewRegex), so
	// FindStringIndex on the suffix starting at pos always reports a match
	// starting at offset 0 or no match at all.
	byteOff := c.byteOffset(pos)
	loc := re.FindStringIndex(c.src[byteOff:])
	if loc == nil || loc[0] != 0 {
		return Range{}, false
	}
	if loc[1] == loc[0] {
		// A regex that matches the empty string cannot advance the
		// cursor; treat it as a non-match rather than looping forever.
		return Range{}, false
	}

	matched := c.src[byteOff : byteOff+loc[1]]
	runeLen := utf8.RuneCountInString(matched)
	return Range{Start: pos, End: pos + runeLen}, true
}

// byteOffset converts a rune position into the corresponding byte offset
// in c.src.
func (c *Cursor) byteOffset(pos int) int {
	if pos <= 0 {
		return 0
	}
	if pos >= len(c.offsets) {
		return len(c.src)
	}
	return c.offsets[pos]
}
