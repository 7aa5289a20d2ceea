// Package cfgerr defines the syntax error type shared by the cyk and
// earley engines: a source range, a machine-checkable reason, and an
// optional list of expected non-terminals, plus a human-readable rendering
// in the offending-line-and-cursor style of
// internal/tunascript/error.go's SyntaxError.
package cfgerr

import (
	"fmt"
	"strings"

	"github.com/dekarrin/cfgparse/grammar"
	"github.com/dekarrin/rosed"
)

// Reason classifies why a parse failed.
type Reason string

const (
	// UnknownToken: the CYK tokenizer found no terminal production
	// matching at the current position.
	UnknownToken Reason = "unknown_token"

	// UnexpectedToken: the Earley chart has no item able to consume the
	// upcoming character.
	UnexpectedToken Reason = "unexpected_token"

	// UnmatchedPattern: the full input (or a longest prefix) was consumed
	// but no start-rooted derivation covers it.
	UnmatchedPattern Reason = "unmatched_pattern"

	// EmptyNotAllowed: input is empty and the start symbol has no
	// epsilon production.
	EmptyNotAllowed Reason = "empty_not_allowed"
)

// SyntaxError is returned from a failed Recognize/SyntaxTree/AllSyntaxTrees
// call. It always carries a Range that lies within the input; for
// UnmatchedPattern the range indicates the longest successfully analyzed
// prefix.
type SyntaxError struct {
	reason  Reason
	start   int
	end     int
	source  string
	message string
	context []grammar.NonTerminal
}

// New builds a SyntaxError. source is the full original input the error
// occurred while parsing, used only to render FullMessage/SourceLineWithCursor.
func New(reason Reason, start, end int, source, message string) SyntaxError {
	return SyntaxError{
		reason:  reason,
		start:   start,
		end:     end,
		source:  source,
		message: message,
	}
}

// WithContext attaches the list of expected non-terminals to se and returns
// the updated value; used for UnmatchedPattern errors from the Earley
// engine where no terminal-leading production was available.
func (se SyntaxError) WithContext(expected []grammar.NonTerminal) SyntaxError {
	se.context = expected
	return se
}

// Reason returns the classification of the failure.
func (se SyntaxError) Reason() Reason {
	return se.reason
}

// Range returns the half-open [start, end) rune range the error refers to.
func (se SyntaxError) Range() (start, end int) {
	return se.start, se.end
}

// Context returns the expected non-terminals recorded for this error, or
// nil if none were recorded.
func (se SyntaxError) Context() []grammar.NonTerminal {
	return se.context
}

// Error implements the error interface.
func (se SyntaxError) Error() string {
	base := fmt.Sprintf("syntax error (%s): %s", se.reason, se.message)
	if len(se.context) == 0 {
		return base
	}
	names := make([]string, len(se.context))
	for i, nt := range se.context {
		names[i] = string(nt)
	}
	return fmt.Sprintf("%s (expected one of: %s)", base, strings.Join(names, ", "))
}

// FullMessage renders se.Error() preceded by the offending source line and
// a cursor pointing at the start of the error range, in the style of
// internal/tunascript/error.go's SyntaxError.FullMessage. The reason text
// itself is wrapped at 80 columns with rosed, the same width
// internal/tunascript/grammar.go uses for its own debug table rendering.
func (se SyntaxError) FullMessage() string {
	wrapped := rosed.Edit(se.Error()).Wrap(80).String()

	cursorLine := se.SourceLineWithCursor()
	if cursorLine == "" {
		return wrapped
	}
	return cursorLine + "\n" + wrapped
}

// SourceLineWithCursor renders the line of se.source containing se.start,
// with a '^' marker directly under the offending rune -- the same
// build-the-cursor-line-by-hand approach as
// internal/tunascript/error.go's SyntaxError.SourceLineWithCursor. The
// message itself is still wrapped through rosed (see FullMessage) for long
// single-line reasons; only the cursor line, which must stay
// character-for-character aligned with the source, is built directly.
func (se SyntaxError) SourceLineWithCursor() string {
	if se.source == "" {
		return ""
	}

	runes := []rune(se.source)
	if se.start < 0 || se.start > len(runes) {
		return ""
	}

	lineStart := se.start
	for lineStart > 0 && runes[lineStart-1] != '\n' {
		lineStart--
	}
	lineEnd := se.start
	for lineEnd < len(runes) && runes[lineEnd] != '\n' {
		lineEnd++
	}

	line := string(runes[lineStart:lineEnd])
	col := se.start - lineStart

	return line + "\n" + strings.Repeat(" ", col) + "^"
}
