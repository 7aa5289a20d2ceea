package tree

import (
	"testing"

	"github.com/dekarrin/cfgparse/cursor"
	"github.com/dekarrin/cfgparse/grammar"
	"github.com/stretchr/testify/assert"
)

func Test_Tree_Map_rewritesInteriorKeysOnly(t *testing.T) {
	assert := assert.New(t)

	leaf := NewLeaf(cursor.Range{Start: 0, End: 1})
	tr := NewNode("A", NewNode("B", leaf))

	out := tr.Map(func(nt grammar.NonTerminal) grammar.NonTerminal {
		return nt + "!"
	})

	assert.Equal(grammar.NonTerminal("A!"), out.Key)
	assert.Equal(grammar.NonTerminal("B!"), out.Children[0].Key)
	assert.True(out.Children[0].Children[0].Leaf)
	assert.Equal(cursor.Range{Start: 0, End: 1}, out.Children[0].Children[0].Range)
}

func Test_Tree_Filter_dropsDescendantsOfFailingKey(t *testing.T) {
	assert := assert.New(t)

	leaf := NewLeaf(cursor.Range{Start: 0, End: 1})
	tr := NewNode("A", NewNode("Util", NewNode("B", leaf)))

	out := tr.Filter(func(nt grammar.NonTerminal) bool {
		return nt != "Util"
	})

	assert.Equal(grammar.NonTerminal("A"), out.Key)
	assert.Len(out.Children, 1)
	assert.Equal(grammar.NonTerminal("Util"), out.Children[0].Key)
	assert.Empty(out.Children[0].Children)
}

func Test_Tree_Explode_replacesNodeWithChildren(t *testing.T) {
	assert := assert.New(t)

	leafA := NewLeaf(cursor.Range{Start: 0, End: 1})
	leafB := NewLeaf(cursor.Range{Start: 1, End: 2})
	tr := NewNode("S", NewNode("Util", leafA, leafB))

	out := tr.Explode(func(nt grammar.NonTerminal) bool {
		return nt == "Util"
	})

	assert.Equal(grammar.NonTerminal("S"), out.Key)
	assert.Len(out.Children, 2)
	assert.True(out.Children[0].Leaf)
	assert.True(out.Children[1].Leaf)
}

func Test_Tree_Compress_collapsesSingleChildChains(t *testing.T) {
	assert := assert.New(t)

	leaf := NewLeaf(cursor.Range{Start: 0, End: 1})
	tr := NewNode("A", NewNode("B", NewNode("C", leaf)))

	out := tr.Compress()

	assert.True(out.Leaf)
	assert.Equal(cursor.Range{Start: 0, End: 1}, out.Range)
}

func Test_Tree_Equal(t *testing.T) {
	assert := assert.New(t)

	leaf1 := NewLeaf(cursor.Range{Start: 0, End: 1})
	leaf2 := NewLeaf(cursor.Range{Start: 0, End: 1})

	tr1 := NewNode("A", leaf1)
	tr2 := NewNode("A", leaf2)
	tr3 := NewNode("B", leaf2)

	assert.True(tr1.Equal(tr2))
	assert.False(tr1.Equal(tr3))
}
