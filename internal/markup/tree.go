package markup

import (
	"sort"

	"winter/internal/source"
)

// Tree is a parsed document held in a flat arena.
type Tree struct {
	Path     string
	File     *source.File
	nodes    []Node
	roots    []NodeID
	comments []NodeID
}

// Len returns the number of nodes of every type.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Node returns the node for id. The pointer stays valid for the Tree's lifetime.
func (t *Tree) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return &t.nodes[id]
}

// Roots returns the top-level nodes in document order.
func (t *Tree) Roots() []NodeID {
	return t.roots
}

// Comments returns every comment node in document order.
func (t *Tree) Comments() []NodeID {
	return t.comments
}

// Parent returns the parent id, or NoNode for roots.
func (t *Tree) Parent(id NodeID) NodeID {
	if n := t.Node(id); n != nil {
		return n.Parent
	}
	return NoNode
}

// Children returns all children of id in document order.
func (t *Tree) Children(id NodeID) []NodeID {
	if n := t.Node(id); n != nil {
		return n.Children
	}
	return nil
}

// ElementChildren returns only element children.
func (t *Tree) ElementChildren(id NodeID) []NodeID {
	var out []NodeID
	for _, c := range t.Children(id) {
		if t.nodes[c].Type == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Ancestors returns the ancestors of id, nearest first.
func (t *Tree) Ancestors(id NodeID) []NodeID {
	var out []NodeID
	for p := t.Parent(id); p != NoNode; p = t.nodes[p].Parent {
		out = append(out, p)
	}
	return out
}

// Depth is the number of ancestors; roots have depth 0.
func (t *Tree) Depth(id NodeID) int {
	d := 0
	for p := t.Parent(id); p != NoNode; p = t.nodes[p].Parent {
		d++
	}
	return d
}

// Descendants returns every node below id in pre-order.
func (t *Tree) Descendants(id NodeID) []NodeID {
	var out []NodeID
	stack := append([]NodeID(nil), reversed(t.Children(id))...)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cur)
		stack = append(stack, reversed(t.nodes[cur].Children)...)
	}
	return out
}

// Walk visits every node in pre-order. Returning false skips the node's subtree.
func (t *Tree) Walk(fn func(id NodeID, n *Node) bool) {
	stack := append([]NodeID(nil), reversed(t.roots)...)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(cur, &t.nodes[cur]) {
			continue
		}
		stack = append(stack, reversed(t.nodes[cur].Children)...)
	}
}

// Elements returns every element in pre-order.
func (t *Tree) Elements() []NodeID {
	out := make([]NodeID, 0, len(t.nodes))
	t.Walk(func(id NodeID, n *Node) bool {
		if n.Type == ElementNode {
			out = append(out, id)
		}
		return true
	})
	return out
}

// NodeAt returns the innermost element whose span contains the 1-based
// line and byte column, or NoNode.
func (t *Tree) NodeAt(line, col int) NodeID {
	off, ok := t.File.Offset(line, col)
	if !ok {
		return NoNode
	}
	found := NoNode
	level := t.roots
	for {
		next := NoNode
		// дети отсортированы по позиции, бинпоиск по Span.End
		i := sort.Search(len(level), func(i int) bool { return t.nodes[level[i]].Span.End > off })
		for ; i < len(level); i++ {
			n := &t.nodes[level[i]]
			if n.Span.Start > off {
				break
			}
			if n.Type == ElementNode {
				next = level[i]
				break
			}
		}
		if next == NoNode {
			return found
		}
		found = next
		level = t.nodes[next].Children
	}
}

func reversed(ids []NodeID) []NodeID {
	out := make([]NodeID, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}
