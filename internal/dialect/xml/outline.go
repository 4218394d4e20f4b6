package xml

import (
	"winter/internal/markup"
	"winter/internal/plugin"
)

// DocumentSymbols mirrors the element tree. An element is labelled by its
// Id or Name attribute when it has one, by its tag otherwise.
func (b *Bundle) DocumentSymbols(doc *markup.Document) []plugin.DocumentSymbol {
	var walk func(ids []markup.NodeID) []plugin.DocumentSymbol
	walk = func(ids []markup.NodeID) []plugin.DocumentSymbol {
		var out []plugin.DocumentSymbol
		for _, id := range ids {
			n := doc.Tree.Node(id)
			if !n.IsElement() {
				continue
			}
			name, kind := n.Name, plugin.SymbolStruct
			if v := n.AttrValue("Id"); v != "" {
				name, kind = v, plugin.SymbolVariable
			} else if v := n.AttrValue("Name"); v != "" {
				name, kind = v, plugin.SymbolVariable
			}
			out = append(out, plugin.DocumentSymbol{
				Name:      name,
				Kind:      kind,
				Detail:    n.Name,
				Range:     n.Span,
				Selection: n.StartTag,
				Children:  walk(n.Children),
			})
		}
		return out
	}
	return walk(doc.Tree.Roots())
}
