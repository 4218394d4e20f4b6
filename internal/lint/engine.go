// Package lint runs the diagnostic pipeline: parse, evaluate rules, check
// symbols, drop suppressed findings, then de-duplicate and order the rest.
package lint

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tliron/commonlog"

	"winter/internal/diag"
	"winter/internal/markup"
	"winter/internal/plugin"
	"winter/internal/rules"
	"winter/internal/source"
	"winter/internal/symbols"
)

var log = commonlog.GetLogger("winter.lint")

const (
	// RuleParseError is reported once for a file that does not parse.
	RuleParseError = "parse-error"
	// RuleIOError is reported for a file that cannot be read.
	RuleIOError = "io-error"
)

var (
	// ErrNoInputs is returned when no path names a supported file.
	ErrNoInputs = errors.New("no input files")
	// ErrUnsupported is returned for a path no bundle handles.
	ErrUnsupported = errors.New("unsupported file type")
)

// PipelineRules describes the diagnostics the pipeline emits itself.
func PipelineRules() []diag.RuleMeta {
	return []diag.RuleMeta{
		{ID: RuleIOError, Title: "File cannot be read", Description: "The file could not be read from disk.", Category: "correctness", Severity: diag.SevError},
		{ID: RuleParseError, Title: "File does not parse", Description: "The file is not well-formed markup and was not analyzed further.", Category: "correctness", Severity: diag.SevError},
	}
}

// Engine runs the pipeline. Rule sets are immutable and shared by all
// concurrent runs; the engine itself holds no per-run state.
type Engine struct {
	reg  *plugin.Registry
	opts Options

	mu   sync.Mutex
	sets map[string]*rules.Set
}

// New creates an engine. sets maps bundle names to their active rules;
// bundles without an entry use their builtin rules unchanged.
func New(reg *plugin.Registry, sets map[string]*rules.Set, opts Options) *Engine {
	m := make(map[string]*rules.Set, len(sets))
	for k, v := range sets {
		m[k] = v
	}
	return &Engine{reg: reg, opts: opts, sets: m}
}

// Registry returns the plugin registry the engine routes files through.
func (e *Engine) Registry() *plugin.Registry { return e.reg }

// Options returns the engine options.
func (e *Engine) Options() Options { return e.opts }

// WithProgress returns an engine sharing e's rule sets that reports to sink.
func (e *Engine) WithProgress(sink ProgressSink) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	opts := e.opts
	opts.Progress = sink
	return New(e.reg, e.sets, opts)
}

// RuleSet returns the active rules for bundle b.
func (e *Engine) RuleSet(b plugin.Bundle) *rules.Set {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.sets[b.Name()]; ok {
		return s
	}
	s, errs := rules.NewSet(b.Rules(), rules.SetOptions{Categories: e.opts.Categories})
	for _, err := range errs {
		log.Warningf("%s: %v", b.Name(), err)
	}
	e.sets[b.Name()] = s
	return s
}

// RuleMeta returns metadata for every rule any bundle may report, plus the
// symbol checks and pipeline diagnostics, sorted by id.
func (e *Engine) RuleMeta() []diag.RuleMeta {
	seen := make(map[string]bool)
	var out []diag.RuleMeta
	add := func(ms []diag.RuleMeta) {
		for _, m := range ms {
			if !seen[m.ID] {
				seen[m.ID] = true
				out = append(out, m)
			}
		}
	}
	add(PipelineRules())
	add(symbols.Rules())
	for _, b := range e.reg.Bundles() {
		set := e.RuleSet(b)
		add(set.Meta())
		if c, ok := b.(plugin.DocumentChecker); ok {
			add(checkerMeta(set, c))
		}
	}
	sortMeta(out)
	return out
}

// checkerMeta returns the document checks set keeps active, with their
// severity overrides applied.
func checkerMeta(set *rules.Set, c plugin.DocumentChecker) []diag.RuleMeta {
	var out []diag.RuleMeta
	for _, m := range c.CheckRules() {
		d, ok := set.Adjust(diag.Diagnostic{RuleID: m.ID, Severity: m.Severity, Category: m.Category})
		if !ok {
			continue
		}
		m.Severity = d.Severity
		out = append(out, m)
	}
	return out
}

// FileResult is the outcome for one file.
type FileResult struct {
	Path        string
	Diagnostics []diag.Diagnostic
	// Err is the read or parse failure, if any; it is also reported as a diagnostic.
	Err    error
	Cached bool
}

// Counts tallies the file's diagnostics per severity.
func (r FileResult) Counts() diag.Counts { return diag.Count(r.Diagnostics) }

// LintSource runs the single-file pipeline. References are resolved only
// against src and the bundle's builtins.
func (e *Engine) LintSource(ctx context.Context, path string, src []byte) (FileResult, error) {
	b, ok := e.reg.ForPath(path)
	if !ok {
		return FileResult{Path: path}, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
	if err := ctx.Err(); err != nil {
		return FileResult{Path: path}, err
	}
	doc, err := b.Parse(path, src)
	if err != nil {
		return e.parseFailure(path, err), nil
	}
	ix := symbols.NewIndex(b.Schema())
	ix.IndexTree(doc.Tree)
	return e.lintDocument(b, doc, ix, nil, ""), nil
}

// LintDocument runs rules and symbol checks on an already parsed document
// against ix, which must hold doc's symbols. Editors use this with their
// workspace index.
func (e *Engine) LintDocument(b plugin.Bundle, doc *markup.Document, ix *symbols.Index) []diag.Diagnostic {
	return e.lintDocument(b, doc, ix, nil, "").Diagnostics
}

func (e *Engine) lintDocument(b plugin.Bundle, doc *markup.Document, ix *symbols.Index, timer rules.RuleTimer, indexDigest string) FileResult {
	set := e.RuleSet(b)
	res := FileResult{Path: doc.Path}

	var key CacheKey
	if e.opts.Cache != nil && indexDigest != "" {
		key = NewCacheKey(doc.Path, doc.File.Content, set.Version(), indexDigest)
		if ds, ok, err := e.opts.Cache.Get(key, doc.Path); err != nil {
			log.Debugf("cache read %s: %v", doc.Path, err)
		} else if ok {
			res.Diagnostics = e.opts.apply(ds)
			res.Cached = true
			return res
		}
	}

	bag := diag.NewBag(0)
	rep := diag.FilterReporter{
		Keep: func(d diag.Diagnostic) bool {
			return !doc.Suppressions.IsSuppressed(d.RuleID, d.Location.Line)
		},
		Next: diag.BagReporter{Bag: bag},
	}
	set.EvaluateAllTo(doc, timer, rep)
	for _, d := range symbols.Check(ix, doc.Path) {
		rep.Report(d)
	}
	if c, ok := b.(plugin.DocumentChecker); ok {
		for _, d := range c.CheckDocument(doc) {
			if d, ok := set.Adjust(d); ok {
				rep.Report(d)
			}
		}
	}
	kept := bag.Items()

	if e.opts.Cache != nil && indexDigest != "" {
		if err := e.opts.Cache.Put(key, doc.Path, set.Version(), indexDigest, kept); err != nil {
			log.Debugf("cache write %s: %v", doc.Path, err)
		}
	}
	res.Diagnostics = e.opts.apply(kept)
	return res
}

func (e *Engine) parseFailure(path string, err error) FileResult {
	loc := source.Location{File: path, Line: 1, Column: 1}
	msg := err.Error()
	var pe *markup.ParseError
	if errors.As(err, &pe) {
		loc = pe.Location()
		msg = pe.Message
	}
	d := diag.NewError(RuleParseError, loc, msg)
	d.Category = "correctness"
	return FileResult{Path: path, Diagnostics: []diag.Diagnostic{d}, Err: err}
}

func ioFailure(path string, err error) FileResult {
	d := diag.NewError(RuleIOError, source.Location{File: path, Line: 1, Column: 1}, "failed to read file: "+err.Error())
	d.Category = "correctness"
	return FileResult{Path: path, Diagnostics: []diag.Diagnostic{d}, Err: err}
}
