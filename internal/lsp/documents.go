package lsp

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"winter/internal/diag"
	"winter/internal/lint"
	"winter/internal/markup"
	"winter/internal/plugin"
	"winter/internal/source"
	"winter/internal/symbols"
)

// document is the server's view of one open buffer. doc and index are nil
// while the text does not parse.
type document struct {
	uri     string
	path    string
	version protocol.Integer
	text    string
	bundle  plugin.Bundle
	doc     *markup.Document
	index   *symbols.Index
	diags   []diag.Diagnostic
}

func (s *Server) newDocument(uri string, version protocol.Integer, text string) *document {
	d := &document{uri: uri, path: filepath.ToSlash(filepath.Clean(documentPath(uri))), version: version}
	d.bundle, _ = s.engine.Registry().ForURI(uri)
	d.update(text)
	return d
}

func (d *document) update(text string) {
	d.text = text
	d.doc, d.index = nil, nil
	if d.bundle == nil {
		return
	}
	doc, err := d.bundle.Parse(d.path, []byte(text))
	if err != nil {
		log.Debugf("parse %s: %v", d.path, err)
		return
	}
	d.doc = doc
	d.index = symbols.NewIndex(d.bundle.Schema())
	d.index.IndexTree(doc.Tree)
}

func (s *Server) handleDidOpen(raw json.RawMessage) error {
	var params protocol.DidOpenTextDocumentParams
	if err := decodeParams(raw, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	d := s.newDocument(uri, params.TextDocument.Version, params.TextDocument.Text)
	s.mu.Lock()
	s.docs[uri] = d
	s.mu.Unlock()
	s.scheduleDiagnostics()
	return nil
}

func (s *Server) handleDidChange(raw json.RawMessage) error {
	var params protocol.DidChangeTextDocumentParams
	if err := decodeParams(raw, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	s.mu.Lock()
	d, ok := s.docs[uri]
	if ok {
		d.update(applyChanges(d.text, params.ContentChanges))
		d.version = params.TextDocument.Version
	}
	s.mu.Unlock()
	if ok {
		s.scheduleDiagnostics()
	}
	return nil
}

func (s *Server) handleDidSave(raw json.RawMessage) error {
	var params protocol.DidSaveTextDocumentParams
	if err := decodeParams(raw, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	s.mu.Lock()
	d, ok := s.docs[uri]
	if ok && params.Text != nil && *params.Text != d.text {
		d.update(*params.Text)
	}
	s.mu.Unlock()
	if ok {
		s.scheduleDiagnostics()
	}
	return nil
}

func (s *Server) handleDidClose(raw json.RawMessage) error {
	var params protocol.DidCloseTextDocumentParams
	if err := decodeParams(raw, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	s.mu.Lock()
	d, ok := s.docs[uri]
	delete(s.docs, uri)
	_, hadDiagnostics := s.published[uri]
	delete(s.published, uri)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	// the file on disk takes the buffer's place in the workspace index
	if d.bundle != nil && uriToPath(uri) != "" {
		s.indexDiskFile(filepath.FromSlash(d.path), d.bundle)
	}
	if hadDiagnostics {
		if err := s.publish(uri, nil, nil); err != nil {
			log.Warningf("failed to clear diagnostics: %v", err)
		}
	}
	s.scheduleDiagnostics()
	return nil
}

// lookup returns the open document for uri.
func (s *Server) lookup(uri string) (*document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[canonicalURI(uri)]
	return d, ok
}

func (s *Server) scanWorkspace(root string) {
	paths, err := lint.ExpandInputs(s.engine.Registry(), []string{root}, nil)
	if err != nil {
		log.Debugf("workspace scan %s: %v", root, err)
		return
	}
	for _, p := range paths {
		if b, ok := s.engine.Registry().ForPath(p); ok {
			s.indexDiskFile(p, b)
		}
	}
	log.Infof("indexed %d workspace file(s) under %s", len(paths), root)
	s.scheduleDiagnostics()
}

func (s *Server) indexDiskFile(path string, b plugin.Bundle) {
	src, err := os.ReadFile(path) // #nosec G304 -- workspace file
	if err != nil {
		s.mu.Lock()
		delete(s.disk, filepath.ToSlash(filepath.Clean(path)))
		s.mu.Unlock()
		return
	}
	ix := symbols.NewIndex(b.Schema())
	if err := ix.IndexSource(path, src); err != nil {
		log.Debugf("index %s: %v", path, err)
		return
	}
	s.mu.Lock()
	s.disk[filepath.ToSlash(filepath.Clean(path))] = diskEntry{bundle: b.Name(), index: ix}
	s.mu.Unlock()
}

// workspaceIndex merges the open buffers of bundle with workspace files that
// are not open. Callers hold s.mu.
func (s *Server) workspaceIndex(b plugin.Bundle) *symbols.Index {
	ix := symbols.NewIndex(b.Schema())
	open := make(map[string]bool, len(s.docs))
	for _, d := range s.docs {
		open[d.path] = true
		if d.bundle != nil && d.bundle.Name() == b.Name() && d.index != nil {
			ix.Merge(d.index)
		}
	}
	for path, e := range s.disk {
		if !open[path] && e.bundle == b.Name() {
			ix.Merge(e.index)
		}
	}
	return ix
}

type pendingPublish struct {
	uri     string
	version protocol.Integer
	file    *source.File
	diags   []diag.Diagnostic
}

// runDiagnostics lints every open document against the workspace index and
// publishes the results. Stale runs (superseded by a newer edit) are dropped.
func (s *Server) runDiagnostics(seq uint64) {
	s.mu.Lock()
	if seq != s.analysisSeq {
		s.mu.Unlock()
		return
	}
	ctx := s.baseCtx
	indexes := make(map[string]*symbols.Index)
	var out []pendingPublish
	for uri, d := range s.docs {
		if d.bundle == nil {
			continue
		}
		var ds []diag.Diagnostic
		var file *source.File
		if d.doc == nil {
			content, _ := source.Normalize([]byte(d.text))
			file = source.NewFile(d.path, content)
			res, err := s.engine.LintSource(ctx, d.path, []byte(d.text))
			if err != nil {
				log.Debugf("lint %s: %v", d.path, err)
				continue
			}
			ds = res.Diagnostics
		} else {
			ix, ok := indexes[d.bundle.Name()]
			if !ok {
				ix = s.workspaceIndex(d.bundle)
				indexes[d.bundle.Name()] = ix
			}
			ds = s.engine.LintDocument(d.bundle, d.doc, ix)
			file = d.doc.File
		}
		if len(ds) > s.maxDiagnostics {
			ds = ds[:s.maxDiagnostics]
		}
		d.diags = ds
		out = append(out, pendingPublish{uri: uri, version: d.version, file: file, diags: ds})
		s.published[uri] = struct{}{}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].uri < out[j].uri })
	for _, p := range out {
		if err := s.publish(p.uri, &p.version, s.convertAll(p.file, p.diags)); err != nil {
			log.Warningf("publish %s: %v", p.uri, err)
		}
	}
}

func (s *Server) scheduleDiagnostics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analysisSeq++
	seq := s.analysisSeq
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.debounceTimer = time.AfterFunc(s.debounce, func() { s.runDiagnostics(seq) })
}

func (s *Server) publish(uri string, version *protocol.Integer, list []protocol.Diagnostic) error {
	if list == nil {
		list = []protocol.Diagnostic{}
	}
	params := protocol.PublishDiagnosticsParams{URI: uri, Diagnostics: list}
	if version != nil {
		v := protocol.UInteger(safeUint32(int(*version)))
		params.Version = &v
	}
	return s.sendNotification(protocol.ServerTextDocumentPublishDiagnostics, params)
}

func (s *Server) clearPublishedDiagnostics() {
	s.mu.Lock()
	uris := make([]string, 0, len(s.published))
	for uri := range s.published {
		uris = append(uris, uri)
	}
	s.published = make(map[string]struct{})
	s.mu.Unlock()
	sort.Strings(uris)
	for _, uri := range uris {
		if err := s.publish(uri, nil, nil); err != nil {
			log.Warningf("clear %s: %v", uri, err)
		}
	}
}

// fileFor returns a source file for path: the open buffer when there is
// one, otherwise the file loaded from disk. nil when unreadable.
func (s *Server) fileFor(path string) *source.File {
	s.mu.Lock()
	for _, d := range s.docs {
		if d.path == path {
			if d.doc != nil {
				f := d.doc.File
				s.mu.Unlock()
				return f
			}
		}
	}
	s.mu.Unlock()
	if f, ok := s.files.GetByPath(path); ok {
		return f
	}
	id, err := s.files.Load(filepath.FromSlash(path))
	if err != nil {
		return nil
	}
	return s.files.Get(id)
}

// uriFor maps a diagnostic or symbol path back to a document URI.
func (s *Server) uriFor(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for uri, d := range s.docs {
		if d.path == path {
			return uri
		}
	}
	return pathToURI(filepath.FromSlash(path))
}
