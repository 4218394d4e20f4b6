// Package plugin routes files to language bundles. A bundle carries the
// parser, symbol schema and rules for one dialect plus optional editor
// providers; the registry picks the bundle by file extension.
package plugin

import (
	"context"

	"winter/internal/diag"
	"winter/internal/markup"
	"winter/internal/rules"
	"winter/internal/source"
	"winter/internal/symbols"
)

// Capabilities is a bit set of editor features a bundle provides.
type Capabilities uint32

const (
	CapDiagnostics Capabilities = 1 << iota
	CapHover
	CapCompletion
	CapDocumentSymbols
	CapFormatting
	CapDefinition
	CapReferences
	CapCodeActions
)

func (c Capabilities) Has(flag Capabilities) bool {
	return c&flag == flag
}

// Bundle is the unit of registration.
type Bundle interface {
	Name() string
	// Extensions lists handled extensions; a leading dot and case are ignored.
	Extensions() []string
	Parse(path string, src []byte) (*markup.Document, error)
	Schema() *symbols.Schema
	Rules() []rules.Rule
	Capabilities() Capabilities
}

// HoverProvider returns markdown for the position, if any.
type HoverProvider interface {
	Hover(ctx context.Context, doc *markup.Document, line, col int) (string, bool)
}

// CompletionKind classifies a completion item.
type CompletionKind uint8

const (
	CompletionElement CompletionKind = iota
	CompletionAttribute
	CompletionValue
	CompletionSnippet
	CompletionDirectory
	CompletionProperty
	CompletionKeyword
)

type Completion struct {
	Label         string
	Kind          CompletionKind
	Detail        string
	Documentation string
	InsertText    string
	SortPriority  int
}

// CompletionProvider completes at a position given the raw buffer text,
// which may not parse.
type CompletionProvider interface {
	TriggerCharacters() []string
	Complete(ctx context.Context, path string, src []byte, line, col int) []Completion
}

// SymbolKind mirrors the editor-protocol symbol kinds a bundle may emit.
type SymbolKind uint8

const (
	SymbolFile SymbolKind = iota
	SymbolModule
	SymbolNamespace
	SymbolClass
	SymbolFunction
	SymbolVariable
	SymbolConstant
	SymbolString
	SymbolProperty
	SymbolKey
	SymbolStruct
	SymbolEvent
)

// DocumentSymbol is one outline entry. Range covers the whole node and
// Selection its start tag.
type DocumentSymbol struct {
	Name      string
	Kind      SymbolKind
	Detail    string
	Range     source.Span
	Selection source.Span
	Children  []DocumentSymbol
}

type SymbolProvider interface {
	DocumentSymbols(doc *markup.Document) []DocumentSymbol
}

// Formatter rewrites a whole document.
type Formatter interface {
	Format(doc *markup.Document) ([]byte, error)
}

// DocumentChecker runs whole-document checks that conditions on single
// nodes cannot express, such as prolog or per-line checks. Its findings go
// through the same severity and disable settings as condition rules.
type DocumentChecker interface {
	CheckRules() []diag.RuleMeta
	CheckDocument(doc *markup.Document) []diag.Diagnostic
}
