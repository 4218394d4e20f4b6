package wix

import (
	"winter/internal/markup"
	"winter/internal/plugin"
)

var outlineKinds = map[string]plugin.SymbolKind{
	"Package":           plugin.SymbolModule,
	"Module":            plugin.SymbolModule,
	"Bundle":            plugin.SymbolModule,
	"Fragment":          plugin.SymbolNamespace,
	"Directory":         plugin.SymbolNamespace,
	"StandardDirectory": plugin.SymbolNamespace,
	"DirectoryRef":      plugin.SymbolNamespace,
	"Component":         plugin.SymbolClass,
	"ComponentGroup":    plugin.SymbolClass,
	"Feature":           plugin.SymbolStruct,
	"FeatureGroup":      plugin.SymbolStruct,
	"Property":          plugin.SymbolProperty,
	"CustomAction":      plugin.SymbolFunction,
	"File":              plugin.SymbolFile,
	"RegistryKey":       plugin.SymbolKey,
	"RegistryValue":     plugin.SymbolKey,
	"UI":                plugin.SymbolEvent,
	"Dialog":            plugin.SymbolEvent,
}

// DocumentSymbols builds the outline: structural elements and everything
// carrying an Id, nested under their nearest outlined ancestor.
func (b *Bundle) DocumentSymbols(doc *markup.Document) []plugin.DocumentSymbol {
	var walk func(ids []markup.NodeID) []plugin.DocumentSymbol
	walk = func(ids []markup.NodeID) []plugin.DocumentSymbol {
		var out []plugin.DocumentSymbol
		for _, id := range ids {
			n := doc.Tree.Node(id)
			if !n.IsElement() {
				continue
			}
			children := walk(n.Children)
			sym, ok := outlineSymbol(n)
			if !ok {
				out = append(out, children...)
				continue
			}
			sym.Children = children
			out = append(out, sym)
		}
		return out
	}
	return walk(doc.Tree.Roots())
}

func outlineSymbol(n *markup.Node) (plugin.DocumentSymbol, bool) {
	kind, structural := outlineKinds[n.Kind]
	name := n.AttrValue("Id")
	if name == "" && (n.Kind == "Package" || n.Kind == "Bundle" || n.Kind == "Module" || n.Kind == "File") {
		name = n.AttrValue("Name")
		if name == "" {
			name = n.AttrValue("Source")
		}
	}
	if !structural && name == "" {
		return plugin.DocumentSymbol{}, false
	}
	if !structural {
		kind = plugin.SymbolVariable
	}
	if name == "" {
		name = n.Kind
	}
	return plugin.DocumentSymbol{
		Name:      name,
		Kind:      kind,
		Detail:    n.Name,
		Range:     n.Span,
		Selection: n.StartTag,
	}, true
}
