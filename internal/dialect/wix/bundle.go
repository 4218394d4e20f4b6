// Package wix is the built-in dialect bundle for WiX source files
// (.wxs, .wxi, .wxl): symbol schema, builtin rules, standard directories and
// the editor providers.
package wix

import (
	"context"

	"github.com/tliron/commonlog"

	"winter/internal/kb"
	"winter/internal/markup"
	"winter/internal/plugin"
	"winter/internal/rules"
	"winter/internal/symbols"
)

var log = commonlog.GetLogger("winter.wix")

// ElementDocs is the read side of the knowledge base used for hover and
// completion. *kb.Store implements it.
type ElementDocs interface {
	GetElement(ctx context.Context, name string) (*kb.Element, error)
	GetAttributes(ctx context.Context, element string) ([]kb.Attribute, error)
	GetChildren(ctx context.Context, element string) ([]string, error)
}

// Bundle implements plugin.Bundle and the hover, completion and symbol
// providers.
type Bundle struct {
	docs   ElementDocs
	schema *symbols.Schema
}

type Option func(*Bundle)

// WithDocs enables knowledge-base backed hover and completion.
func WithDocs(d ElementDocs) Option {
	return func(b *Bundle) { b.docs = d }
}

func New(opts ...Option) *Bundle {
	b := &Bundle{schema: Schema()}
	for _, o := range opts {
		o(b)
	}
	return b
}

var (
	_ plugin.Bundle             = (*Bundle)(nil)
	_ plugin.HoverProvider      = (*Bundle)(nil)
	_ plugin.CompletionProvider = (*Bundle)(nil)
	_ plugin.SymbolProvider     = (*Bundle)(nil)
)

func (b *Bundle) Name() string { return "wix" }

func (b *Bundle) Extensions() []string {
	return []string{".wxs", ".wxi", ".wxl"}
}

func (b *Bundle) Parse(path string, src []byte) (*markup.Document, error) {
	return markup.NewDocument(path, src)
}

func (b *Bundle) Schema() *symbols.Schema { return b.schema }

// Rules returns the builtin rules. The embedded rule file is covered by
// tests, so a decode failure here is a build defect.
func (b *Bundle) Rules() []rules.Rule {
	rs, err := BuiltinRules()
	if err != nil {
		panic(err)
	}
	return rs
}

func (b *Bundle) Capabilities() plugin.Capabilities {
	return plugin.CapDiagnostics | plugin.CapHover | plugin.CapCompletion |
		plugin.CapDocumentSymbols | plugin.CapDefinition | plugin.CapReferences |
		plugin.CapCodeActions
}

func (b *Bundle) TriggerCharacters() []string {
	return []string{"<", " ", "\"", "="}
}
