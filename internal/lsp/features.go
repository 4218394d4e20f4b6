package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"winter/internal/diag"
	"winter/internal/markup"
	"winter/internal/plugin"
	"winter/internal/source"
	"winter/internal/symbols"
)

// Code action kinds; the suffix carries the fix safety.
const (
	kindQuickFixSafe   protocol.CodeActionKind = "quickfix.safe"
	kindQuickFixUnsafe protocol.CodeActionKind = "quickfix.unsafe"
)

// snapshot is a consistent copy of a document taken under the server lock.
type snapshot struct {
	uri    string
	path   string
	text   string
	bundle plugin.Bundle
	doc    *markup.Document
	diags  []diag.Diagnostic
	index  *symbols.Index // workspace index, set by snapshotWithIndex
}

func (sn snapshot) file() *source.File {
	if sn.doc != nil {
		return sn.doc.File
	}
	content, _ := source.Normalize([]byte(sn.text))
	return source.NewFile(sn.path, content)
}

func (s *Server) snapshot(uri string, withIndex bool) (snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[canonicalURI(uri)]
	if !ok {
		return snapshot{}, false
	}
	sn := snapshot{
		uri:    d.uri,
		path:   d.path,
		text:   d.text,
		bundle: d.bundle,
		doc:    d.doc,
		diags:  d.diags,
	}
	if withIndex && d.bundle != nil {
		sn.index = s.workspaceIndex(d.bundle)
	}
	return sn, true
}

func (s *Server) handleCodeAction(raw json.RawMessage) (any, error) {
	var params protocol.CodeActionParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	sn, ok := s.snapshot(params.TextDocument.URI, false)
	if !ok {
		return []protocol.CodeAction{}, nil
	}
	f := sn.file()
	actions := make([]protocol.CodeAction, 0)
	for _, d := range sn.diags {
		if d.Fix == nil {
			continue
		}
		line := safeUint32(d.Fix.Line - 1)
		if line < params.Range.Start.Line || line > params.Range.End.Line {
			continue
		}
		action := codeAction(sn.uri, f, s.convert(f, d), d)
		if !kindAllowed(*action.Kind, params.Context.Only) {
			continue
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// codeAction exposes a fix as a quick fix. Only safe fixes are preferred;
// display-only fixes are listed disabled and carry no edit.
func codeAction(uri string, f *source.File, pd protocol.Diagnostic, d diag.Diagnostic) protocol.CodeAction {
	fx := d.Fix
	kind := kindQuickFixUnsafe
	preferred := false
	if fx.Safety == diag.SafetySafe {
		kind = kindQuickFixSafe
		preferred = true
	}
	title := fx.Description
	if title == "" {
		title = "Fix " + d.RuleID
	}
	action := protocol.CodeAction{
		Title:       title,
		Kind:        &kind,
		Diagnostics: []protocol.Diagnostic{pd},
		IsPreferred: &preferred,
	}
	if fx.Safety == diag.SafetyDisplay {
		action.Disabled = &struct {
			Reason string `json:"reason"`
		}{Reason: "manual change: " + strings.TrimSpace(fx.Replacement)}
		return action
	}
	action.Edit = &protocol.WorkspaceEdit{
		Changes: map[protocol.DocumentUri][]protocol.TextEdit{
			uri: {fixEdit(f, fx)},
		},
	}
	return action
}

func kindAllowed(kind protocol.CodeActionKind, only []protocol.CodeActionKind) bool {
	if len(only) == 0 {
		return true
	}
	for _, o := range only {
		if kind == o || strings.HasPrefix(string(kind), string(o)+".") {
			return true
		}
	}
	return false
}

func (s *Server) handleHover(raw json.RawMessage) (any, error) {
	var params protocol.HoverParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	sn, ok := s.snapshot(params.TextDocument.URI, true)
	if !ok || sn.doc == nil {
		return nil, nil
	}
	line, col := linePosition(sn.doc.File, params.Position)

	var sections []string
	for _, d := range sn.diags {
		if d.Location.Line == line {
			sections = append(sections, s.ruleDoc(d))
		}
	}
	if sn.index != nil {
		if def, isRef, found := sn.index.SymbolAt(sn.doc.Tree, line, col); found && isRef {
			sections = append(sections, symbolDoc(def))
		}
	}
	if hp, ok := sn.bundle.(plugin.HoverProvider); ok {
		if text, found := hp.Hover(s.ctx(), sn.doc, line, col); found {
			sections = append(sections, text)
		}
	}
	if len(sections) == 0 {
		return nil, nil
	}
	return protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: strings.Join(sections, "\n\n---\n\n"),
		},
	}, nil
}

func (s *Server) ruleDoc(d diag.Diagnostic) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** (%s", d.RuleID, d.Severity)
	if d.Category != "" {
		fmt.Fprintf(&b, ", %s", d.Category)
	}
	b.WriteString(")\n\n")
	m, ok := s.meta[d.RuleID]
	if ok && m.Description != "" {
		b.WriteString(m.Description)
	} else {
		b.WriteString(d.Message)
	}
	if d.Help != "" {
		fmt.Fprintf(&b, "\n\n*help:* %s", d.Help)
	}
	if ok && m.HelpURI != "" {
		fmt.Fprintf(&b, "\n\n[documentation](%s)", m.HelpURI)
	}
	return b.String()
}

func symbolDoc(def symbols.Definition) string {
	if def.Location.File == "" {
		return fmt.Sprintf("`%s` is not defined in the workspace", def.ID)
	}
	text := fmt.Sprintf("`%s` %s, defined at %s:%d", def.ID, def.Kind, source.BaseName(def.Location.File), def.Location.Line)
	if def.Detail != "" {
		text += "\n\n" + def.Detail
	}
	return text
}

func (s *Server) handleDefinition(raw json.RawMessage) (any, error) {
	var params protocol.DefinitionParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	sn, ok := s.snapshot(params.TextDocument.URI, true)
	if !ok || sn.doc == nil || sn.index == nil {
		return []protocol.Location{}, nil
	}
	line, col := linePosition(sn.doc.File, params.Position)
	locs := sn.index.GotoDefinition(sn.doc.Tree, line, col)
	out := make([]protocol.Location, 0, len(locs))
	for _, loc := range locs {
		out = append(out, s.protocolLocation(loc))
	}
	return out, nil
}

func (s *Server) handleReferences(raw json.RawMessage) (any, error) {
	var params protocol.ReferenceParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	sn, ok := s.snapshot(params.TextDocument.URI, true)
	if !ok || sn.doc == nil || sn.index == nil {
		return []protocol.Location{}, nil
	}
	line, col := linePosition(sn.doc.File, params.Position)
	def, _, found := sn.index.SymbolAt(sn.doc.Tree, line, col)
	if !found {
		return []protocol.Location{}, nil
	}
	out := make([]protocol.Location, 0)
	if params.Context.IncludeDeclaration {
		for _, d := range sn.index.DefinitionsFor(def) {
			out = append(out, s.protocolLocation(d.Location))
		}
	}
	for _, r := range sn.index.FindReferences(def) {
		out = append(out, s.protocolLocation(r.Location))
	}
	return out, nil
}

var symbolKinds = map[plugin.SymbolKind]protocol.SymbolKind{
	plugin.SymbolFile:      protocol.SymbolKindFile,
	plugin.SymbolModule:    protocol.SymbolKindModule,
	plugin.SymbolNamespace: protocol.SymbolKindNamespace,
	plugin.SymbolClass:     protocol.SymbolKindClass,
	plugin.SymbolFunction:  protocol.SymbolKindFunction,
	plugin.SymbolVariable:  protocol.SymbolKindVariable,
	plugin.SymbolConstant:  protocol.SymbolKindConstant,
	plugin.SymbolString:    protocol.SymbolKindString,
	plugin.SymbolProperty:  protocol.SymbolKindProperty,
	plugin.SymbolKey:       protocol.SymbolKindKey,
	plugin.SymbolStruct:    protocol.SymbolKindStruct,
	plugin.SymbolEvent:     protocol.SymbolKindEvent,
}

func (s *Server) handleDocumentSymbol(raw json.RawMessage) (any, error) {
	var params protocol.DocumentSymbolParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	sn, ok := s.snapshot(params.TextDocument.URI, false)
	if !ok || sn.doc == nil {
		return []protocol.DocumentSymbol{}, nil
	}
	sp, ok := sn.bundle.(plugin.SymbolProvider)
	if !ok {
		return []protocol.DocumentSymbol{}, nil
	}
	return convertSymbols(sn.doc.File, sp.DocumentSymbols(sn.doc)), nil
}

func convertSymbols(f *source.File, syms []plugin.DocumentSymbol) []protocol.DocumentSymbol {
	out := make([]protocol.DocumentSymbol, 0, len(syms))
	for _, sym := range syms {
		ps := protocol.DocumentSymbol{
			Name:           sym.Name,
			Kind:           symbolKinds[sym.Kind],
			Range:          spanRange(f, sym.Range),
			SelectionRange: spanRange(f, sym.Selection),
		}
		if ps.Kind == 0 {
			ps.Kind = protocol.SymbolKindObject
		}
		if sym.Detail != "" {
			detail := sym.Detail
			ps.Detail = &detail
		}
		if len(sym.Children) > 0 {
			ps.Children = convertSymbols(f, sym.Children)
		}
		out = append(out, ps)
	}
	return out
}

var completionKinds = map[plugin.CompletionKind]protocol.CompletionItemKind{
	plugin.CompletionElement:   protocol.CompletionItemKindClass,
	plugin.CompletionAttribute: protocol.CompletionItemKindProperty,
	plugin.CompletionValue:     protocol.CompletionItemKindValue,
	plugin.CompletionSnippet:   protocol.CompletionItemKindSnippet,
	plugin.CompletionDirectory: protocol.CompletionItemKindFolder,
	plugin.CompletionProperty:  protocol.CompletionItemKindVariable,
	plugin.CompletionKeyword:   protocol.CompletionItemKindKeyword,
}

func (s *Server) handleCompletion(raw json.RawMessage) (any, error) {
	var params protocol.CompletionParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	sn, ok := s.snapshot(params.TextDocument.URI, false)
	if !ok {
		return []protocol.CompletionItem{}, nil
	}
	cp, ok := sn.bundle.(plugin.CompletionProvider)
	if !ok {
		return []protocol.CompletionItem{}, nil
	}
	f := sn.file()
	line, col := linePosition(f, params.Position)
	items := cp.Complete(s.ctx(), sn.path, f.Content, line, col)
	return convertCompletions(items), nil
}

func convertCompletions(items []plugin.Completion) []protocol.CompletionItem {
	out := make([]protocol.CompletionItem, 0, len(items))
	for i, it := range items {
		kind := completionKinds[it.Kind]
		sortText := fmt.Sprintf("%02d%04d", it.SortPriority, i)
		item := protocol.CompletionItem{
			Label:    it.Label,
			Kind:     &kind,
			SortText: &sortText,
		}
		if it.Detail != "" {
			detail := it.Detail
			item.Detail = &detail
		}
		if it.Documentation != "" {
			item.Documentation = protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: it.Documentation}
		}
		if it.InsertText != "" {
			text := it.InsertText
			item.InsertText = &text
			format := protocol.InsertTextFormatPlainText
			if it.Kind == plugin.CompletionSnippet || strings.Contains(text, "$1") || strings.Contains(text, "${") {
				format = protocol.InsertTextFormatSnippet
			}
			item.InsertTextFormat = &format
		}
		out = append(out, item)
	}
	return out
}

func (s *Server) ctx() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseCtx
}
