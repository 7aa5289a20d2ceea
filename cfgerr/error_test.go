package cfgerr

import (
	"testing"

	"github.com/dekarrin/cfgparse/grammar"
	"github.com/stretchr/testify/assert"
)

func Test_SyntaxError_Error_includesContext(t *testing.T) {
	assert := assert.New(t)

	se := New(UnmatchedPattern, 3, 4, "(()", "no start-rooted derivation covers the input").
		WithContext([]grammar.NonTerminal{"sum", "product"})

	msg := se.Error()
	assert.Contains(msg, "unmatched_pattern")
	assert.Contains(msg, "sum")
	assert.Contains(msg, "product")
}

func Test_SyntaxError_SourceLineWithCursor(t *testing.T) {
	assert := assert.New(t)

	se := New(UnknownToken, 2, 3, "1+?", "no terminal production matches here")

	cursor := se.SourceLineWithCursor()
	assert.Equal("1+?\n  ^", cursor)
}
