package markup

import (
	"winter/internal/source"
)

// NodeID indexes a node inside its Tree arena.
type NodeID int32

// NoNode marks the absent parent of a root node.
const NoNode NodeID = -1

// NodeType distinguishes elements from synthetic nodes.
type NodeType uint8

const (
	ElementNode NodeType = iota
	TextNode
	CommentNode
)

const (
	// KindText is the Kind of text and CDATA nodes.
	KindText = "text"
	// KindComment is the Kind of comment nodes.
	KindComment = "comment"
)

// Attr is a single attribute as written in the start tag.
type Attr struct {
	Name      string
	Value     string
	Span      source.Span // name="value"
	ValueSpan source.Span // between the quotes
}

// Node is one arena entry. Parent is an index, never a pointer.
type Node struct {
	Type NodeType
	// Kind is the local tag name for elements ("Component" for util:Component),
	// KindText or KindComment otherwise.
	Kind string
	// Name is the qualified tag name as written.
	Name        string
	Text        string
	Attrs       []Attr
	Parent      NodeID
	Children    []NodeID
	Span        source.Span // whole node, end tag included
	StartTag    source.Span
	Loc         source.Location // start of the node; Length covers the start tag
	SelfClosing bool
}

// IsElement reports whether n is an element.
func (n *Node) IsElement() bool {
	return n.Type == ElementNode
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			return n.Attrs[i].Value, true
		}
	}
	return "", false
}

// AttrValue returns the value of the named attribute or "".
func (n *Node) AttrValue(name string) string {
	v, _ := n.Attr(name)
	return v
}

// HasAttr reports whether the attribute is present, even if empty.
func (n *Node) HasAttr(name string) bool {
	_, ok := n.Attr(name)
	return ok
}

// AttrSpan returns the span of the named attribute.
func (n *Node) AttrSpan(name string) (source.Span, bool) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			return n.Attrs[i].Span, true
		}
	}
	return source.Span{}, false
}

// setAttr keeps the first position of a repeated name and the last value.
func (n *Node) setAttr(a Attr) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == a.Name {
			n.Attrs[i] = a
			return
		}
	}
	n.Attrs = append(n.Attrs, a)
}
