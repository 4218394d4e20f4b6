package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nested = `<Root>
  <Dir Id="A">
    <Dir Id="B">
      <Ref Id="C1"/>
    </Dir>
  </Dir>
  <Item Id="C1"/>
</Root>`

func findKind(t *testing.T, tree *Tree, kind string) NodeID {
	t.Helper()
	for _, id := range tree.Elements() {
		if tree.Node(id).Kind == kind {
			return id
		}
	}
	t.Fatalf("no %s element", kind)
	return NoNode
}

func TestAncestryQueries(t *testing.T) {
	tree, err := Parse("a.wxs", []byte(nested))
	require.NoError(t, err)

	ref := findKind(t, tree, "Ref")
	anc := tree.Ancestors(ref)
	require.Len(t, anc, 3)
	assert.Equal(t, "B", tree.Node(anc[0]).AttrValue("Id"))
	assert.Equal(t, "Root", tree.Node(anc[2]).Kind)
	assert.Equal(t, 3, tree.Depth(ref))
	assert.Equal(t, 0, tree.Depth(tree.Roots()[0]))
	assert.Equal(t, NoNode, tree.Parent(tree.Roots()[0]))

	desc := tree.Descendants(tree.Roots()[0])
	kinds := make([]string, 0, len(desc))
	for _, id := range desc {
		kinds = append(kinds, tree.Node(id).Kind)
	}
	assert.Equal(t, []string{"Dir", "Dir", "Ref", "Item"}, kinds)
}

func TestWalkSkipSubtree(t *testing.T) {
	tree, err := Parse("a.wxs", []byte(nested))
	require.NoError(t, err)

	var seen []string
	tree.Walk(func(_ NodeID, n *Node) bool {
		seen = append(seen, n.Kind)
		return n.Kind != "Dir"
	})
	assert.Equal(t, []string{"Root", "Dir", "Item"}, seen)
}

func TestNodeAtInnermost(t *testing.T) {
	tree, err := Parse("a.wxs", []byte(nested))
	require.NoError(t, err)

	ref := tree.NodeAt(4, 14) // внутри <Ref Id="C1"/>
	require.NotEqual(t, NoNode, ref)
	assert.Equal(t, "Ref", tree.Node(ref).Kind)

	dir := tree.NodeAt(5, 5) // на </Dir>
	require.NotEqual(t, NoNode, dir)
	assert.Equal(t, "B", tree.Node(dir).AttrValue("Id"))

	item := tree.NodeAt(7, 3)
	assert.Equal(t, "Item", tree.Node(item).Kind)

	assert.Equal(t, NoNode, tree.NodeAt(42, 1))
}

func TestDocumentLinesAndSuppressions(t *testing.T) {
	src := "<Root>\n  <!-- winter-disable-next-line invalid-reference -->\n  <Ref Id=\"Missing\"/>\n</Root>\n"
	doc, err := NewDocument("a.wxs", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, `  <Ref Id="Missing"/>`, doc.Line(3))
	assert.Equal(t, "", doc.Line(99))
	assert.True(t, doc.Suppressions.IsSuppressed("invalid-reference", 3))

	_, err = NewDocument("bad.wxs", []byte("<Root>"))
	assert.Error(t, err)
}
