// Package xml is the fallback dialect for plain .xml files: generic
// well-formedness rules, prolog checks and a structural outline. It has no
// symbol schema, so reference checks never fire on its documents.
package xml

import (
	"winter/internal/markup"
	"winter/internal/plugin"
	"winter/internal/rules"
	"winter/internal/symbols"
)

// Bundle implements plugin.Bundle, plugin.DocumentChecker and
// plugin.SymbolProvider.
type Bundle struct {
	schema *symbols.Schema
}

func New() *Bundle {
	return &Bundle{schema: &symbols.Schema{}}
}

var (
	_ plugin.Bundle          = (*Bundle)(nil)
	_ plugin.DocumentChecker = (*Bundle)(nil)
	_ plugin.SymbolProvider  = (*Bundle)(nil)
)

func (b *Bundle) Name() string { return "xml" }

func (b *Bundle) Extensions() []string {
	return []string{".xml"}
}

func (b *Bundle) Parse(path string, src []byte) (*markup.Document, error) {
	return markup.NewDocument(path, src)
}

func (b *Bundle) Schema() *symbols.Schema { return b.schema }

// Rules panics on a broken embedded rule file; tests cover it.
func (b *Bundle) Rules() []rules.Rule {
	rs, err := BuiltinRules()
	if err != nil {
		panic(err)
	}
	return rs
}

func (b *Bundle) Capabilities() plugin.Capabilities {
	return plugin.CapDiagnostics | plugin.CapDocumentSymbols | plugin.CapCodeActions
}
