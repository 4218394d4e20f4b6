package rules

import (
	"strings"

	"winter/internal/diag"
	"winter/internal/fix"
	"winter/internal/markup"
	"winter/internal/source"
)

var attrEscaper = strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `"`, "&quot;")

// buildFix materializes a fix template for one node as a replacement of the
// node's start line. It returns nil when the edit cannot be expressed on that line.
func buildFix(ft *FixTemplate, doc *markup.Document, id markup.NodeID) *diag.Fix {
	n := doc.Tree.Node(id)
	if ft == nil || n == nil || !n.IsElement() {
		return nil
	}
	f := doc.File
	ls, ok := f.LineSpan(n.Loc.Line)
	if !ok {
		return nil
	}
	old := string(f.Content[ls.Start:ls.End])
	val := attrEscaper.Replace(ExpandTemplate(ft.Value, doc.Tree, id))

	var replacement string
	switch ft.Action {
	case FixAddAttribute, FixSetAttribute:
		if a, ok := attrOf(n, ft.Attribute); ok {
			if ft.Action == FixAddAttribute || !onLine(a.ValueSpan, ls) {
				return nil
			}
			replacement = splice(old, ls.Start, a.ValueSpan.Start, a.ValueSpan.End, val)
			break
		}
		at := insertionPoint(f, n, ls)
		replacement = splice(old, ls.Start, at, at, " "+ft.Attribute+`="`+val+`"`)
	case FixRemoveAttribute:
		a, ok := attrOf(n, ft.Attribute)
		if !ok || !onLine(a.Span, ls) {
			return nil
		}
		from := a.Span.Start
		for from > ls.Start && isBlank(f.Content[from-1]) {
			from--
		}
		replacement = splice(old, ls.Start, from, a.Span.End, "")
	case FixReplaceLine:
		indent := old[:len(old)-len(strings.TrimLeft(old, " \t"))]
		replacement = indent + ExpandTemplate(ft.Value, doc.Tree, id)
	default:
		return nil
	}
	desc := ft.Description
	if desc == "" {
		desc = string(ft.Action) + " " + ft.Attribute
	}
	return fix.ReplaceLine(f, n.Loc.Line, replacement,
		fix.WithDescription(ExpandTemplate(desc, doc.Tree, id)),
		fix.WithSafety(ft.Safety),
	)
}

func attrOf(n *markup.Node, name string) (markup.Attr, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return markup.Attr{}, false
}

func onLine(sp, line source.Span) bool {
	return sp.Start >= line.Start && sp.End <= line.End
}

// insertionPoint is before "/>" or ">" when the start tag ends on its first
// line, otherwise right after the tag name.
func insertionPoint(f *source.File, n *markup.Node, ls source.Span) uint32 {
	tag := n.StartTag
	if tag.End > ls.End {
		return tag.Start + 1 + uint32(len(n.Name)) // #nosec G115 -- tag name lies inside the file
	}
	at := tag.End - 1
	if n.SelfClosing {
		at--
	}
	for at > tag.Start && isBlank(f.Content[at-1]) {
		at--
	}
	return at
}

func splice(line string, lineStart, from, to uint32, insert string) string {
	a, b := int(from-lineStart), int(to-lineStart)
	return line[:a] + insert + line[b:]
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}
