// Package tree implements the parse tree value and its pure transformations:
// Map, MapLeaves, Filter, Explode, and Compress, plus structural equality.
// Both the cyk and earley engines build their output as a *Tree and finalize
// it by exploding utility non-terminals.
package tree

import (
	"fmt"
	"strings"

	"github.com/dekarrin/cfgparse/cursor"
	"github.com/dekarrin/cfgparse/grammar"
	"github.com/dekarrin/rosed"
)

// Tree is an immutable parse tree node. A leaf records the source range a
// terminal matched; an interior node records the non-terminal it derives
// and its ordered children. The zero value is not meaningful; build trees
// with NewLeaf and NewNode.
type Tree struct {
	Leaf     bool
	Key      grammar.NonTerminal
	Range    cursor.Range
	Children []*Tree
}

// NewLeaf returns a leaf tree for the given matched range.
func NewLeaf(r cursor.Range) *Tree {
	return &Tree{Leaf: true, Range: r}
}

// NewNode returns an interior tree for key with the given ordered children.
func NewNode(key grammar.NonTerminal, children ...*Tree) *Tree {
	return &Tree{Key: key, Children: children}
}

// IsLeaf returns whether t is a leaf.
func (t *Tree) IsLeaf() bool {
	return t.Leaf
}

// Map returns a new tree with every interior node's key rewritten by f;
// leaves are copied unchanged.
func (t *Tree) Map(f func(grammar.NonTerminal) grammar.NonTerminal) *Tree {
	if t == nil {
		return nil
	}
	if t.Leaf {
		return &Tree{Leaf: true, Range: t.Range}
	}
	children := make([]*Tree, len(t.Children))
	for i, c := range t.Children {
		children[i] = c.Map(f)
	}
	return &Tree{Key: f(t.Key), Children: children}
}

// MapLeaves returns a new tree with every leaf's range rewritten by f;
// interior node keys are copied unchanged.
func (t *Tree) MapLeaves(f func(cursor.Range) cursor.Range) *Tree {
	if t == nil {
		return nil
	}
	if t.Leaf {
		return &Tree{Leaf: true, Range: f(t.Range)}
	}
	children := make([]*Tree, len(t.Children))
	for i, c := range t.Children {
		children[i] = c.MapLeaves(f)
	}
	return &Tree{Key: t.Key, Children: children}
}

// Filter returns a new tree in which a node whose key fails pred is kept
// (so the caller still sees where the cut happened) but has its children
// dropped -- the descendants of a failing key are discarded. pred is never
// applied to t itself from outside; if the root's own key should also be
// subject to pred, the caller checks that separately before calling Filter.
func (t *Tree) Filter(pred func(grammar.NonTerminal) bool) *Tree {
	if t == nil {
		return nil
	}
	if t.Leaf {
		return &Tree{Leaf: true, Range: t.Range}
	}
	if !pred(t.Key) {
		return &Tree{Key: t.Key}
	}
	children := make([]*Tree, 0, len(t.Children))
	for _, c := range t.Children {
		children = append(children, c.Filter(pred))
	}
	return &Tree{Key: t.Key, Children: children}
}

// Explode returns a new tree in which every child node whose key satisfies
// pred is replaced, in its parent's child list, by its own children (in
// order). It is used to remove utility non-terminals introduced by CNF
// normalization or chain-collapse from a finished parse tree. Explode never
// removes t's own root: a root whose
// key satisfies pred is left in place, since "replace it in its parent"
// has no meaning for a node with no parent.
func (t *Tree) Explode(pred func(grammar.NonTerminal) bool) *Tree {
	if t == nil {
		return nil
	}
	if t.Leaf {
		return &Tree{Leaf: true, Range: t.Range}
	}
	var children []*Tree
	for _, c := range t.Children {
		exploded := c.Explode(pred)
		if !exploded.Leaf && pred(exploded.Key) {
			children = append(children, exploded.Children...)
		} else {
			children = append(children, exploded)
		}
	}
	return &Tree{Key: t.Key, Children: children}
}

// Compress collapses every chain of single-child interior nodes down to its
// innermost node, discarding the intermediate keys. It is meant only for
// human-readable rendering; the structure it produces is lossy and not
// equivalent to the tree it was built from.
func (t *Tree) Compress() *Tree {
	if t == nil {
		return nil
	}
	if t.Leaf {
		return &Tree{Leaf: true, Range: t.Range}
	}
	if len(t.Children) == 1 {
		return t.Children[0].Compress()
	}
	children := make([]*Tree, len(t.Children))
	for i, c := range t.Children {
		children[i] = c.Compress()
	}
	return &Tree{Key: t.Key, Children: children}
}

// Equal returns whether o is a *Tree with the same structure as t: same
// leaf/interior shape, same key or range, and recursively equal children in
// the same order.
func (t *Tree) Equal(o any) bool {
	other, ok := o.(*Tree)
	if !ok {
		return false
	}
	if t == nil || other == nil {
		return t == other
	}
	if t.Leaf != other.Leaf {
		return false
	}
	if t.Leaf {
		return t.Range == other.Range
	}
	if t.Key != other.Key {
		return false
	}
	if len(t.Children) != len(other.Children) {
		return false
	}
	for i := range t.Children {
		if !t.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

func (t *Tree) String() string {
	if t == nil {
		return "<nil>"
	}
	if t.Leaf {
		return fmt.Sprintf("[%d,%d)", t.Range.Start, t.Range.End)
	}
	parts := make([]string, len(t.Children))
	for i, c := range t.Children {
		parts[i] = c.String()
	}
	return string(t.Key) + "(" + strings.Join(parts, " ") + ")"
}

// Render returns a human-readable, indented table dump of t against the
// original source src, in the same rosed-table style as
// internal/tunascript/grammar.go's LL1Table.String. It is a debugging aid,
// not a parse result.
func (t *Tree) Render(src string) string {
	c := cursor.New(src)
	data := [][]string{{"node", "range"}}

	var walk func(n *Tree, depth int)
	walk = func(n *Tree, depth int) {
		if n == nil {
			return
		}
		indent := strings.Repeat("  ", depth)
		if n.Leaf {
			data = append(data, []string{
				indent + fmt.Sprintf("%q", c.Slice(n.Range)),
				fmt.Sprintf("[%d,%d)", n.Range.Start, n.Range.End),
			})
			return
		}
		data = append(data, []string{indent + string(n.Key), ""})
		for _, child := range n.Children {
			walk(child, depth+1)
		}
	}
	walk(t, 0)

	return rosed.Edit("").
		InsertTableOpts(0, data, 80, rosed.Options{TableBorders: true}).
		String()
}
