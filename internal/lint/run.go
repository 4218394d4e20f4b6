package lint

import (
	"context"
	"os"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"winter/internal/diag"
	"winter/internal/markup"
	"winter/internal/observ"
	"winter/internal/plugin"
	"winter/internal/rules"
	"winter/internal/symbols"
)

// Summary aggregates a run.
type Summary struct {
	Files           int `json:"files"`
	FilesWithIssues int `json:"files_with_issues"`
	ParseErrors     int `json:"parse_errors"`
	IOErrors        int `json:"io_errors"`
	Cached          int `json:"cached"`
	diag.Counts
	DurationMS float64 `json:"duration_ms"`
}

// Result is the outcome of LintFiles.
type Result struct {
	Files       []FileResult
	Summary     Summary
	FailOn      FailOn
	Phases      observ.Report
	RuleTimings []observ.StatReport
}

// Diagnostics returns every file's diagnostics in canonical order.
func (r *Result) Diagnostics() []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, f := range r.Files {
		out = append(out, f.Diagnostics...)
	}
	diag.SortDiagnostics(out)
	return out
}

// Failed reports whether the run meets its failure threshold.
func (r *Result) Failed() bool {
	return r.FailOn.Fails(r.Summary.Counts)
}

// ExitCode is 1 for a failed run and 0 otherwise.
func (r *Result) ExitCode() int {
	if r.Failed() {
		return 1
	}
	return 0
}

// Drop removes every diagnostic drop accepts and recomputes the summary.
// It returns the number removed.
func (r *Result) Drop(drop func(diag.Diagnostic) bool) int {
	n := 0
	for i := range r.Files {
		var kept []diag.Diagnostic
		for _, d := range r.Files[i].Diagnostics {
			if drop(d) {
				n++
				continue
			}
			kept = append(kept, d)
		}
		r.Files[i].Diagnostics = kept
	}
	dur := r.Summary.DurationMS
	r.Summary = summarize(r.Files)
	r.Summary.DurationMS = dur
	return n
}

type parsedFile struct {
	path   string
	bundle plugin.Bundle
	doc    *markup.Document
	failed *FileResult
}

// LintFiles lints paths as one workspace. Phase one reads and parses every
// file in parallel and then indexes the documents one at a time; phase two
// diagnoses every file in parallel against the finished, read-only indexes.
// Read and parse failures become diagnostics and never abort the run; only
// context cancellation does.
func (e *Engine) LintFiles(ctx context.Context, paths []string) (*Result, error) {
	paths = uniquePaths(paths)
	if len(paths) == 0 {
		return nil, ErrNoInputs
	}
	start := time.Now()
	timer := observ.NewTimer()
	var stats *observ.Stats
	if e.opts.Timings {
		stats = observ.NewStats()
	}
	jobs := e.opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	sink := e.opts.Progress
	for _, p := range paths {
		emit(sink, Event{File: p, Stage: StageIndex, Status: StatusQueued})
	}

	// фаза 1: чтение и разбор параллельно, индексация последовательно
	done := timer.Phase(observ.PhaseParse)
	parsed := make([]parsedFile, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			emit(sink, Event{File: path, Stage: StageIndex, Status: StatusWorking})
			parsed[i] = e.parseOne(path)
			if parsed[i].failed != nil {
				emit(sink, Event{File: path, Stage: StageIndex, Status: StatusError, Err: parsed[i].failed.Err})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	done(len(paths))

	done = timer.Phase(observ.PhaseIndex)
	indexes := make(map[string]*symbols.Index)
	indexed := 0
	for _, pf := range parsed {
		if pf.doc == nil {
			continue
		}
		indexed++
		ix, ok := indexes[pf.bundle.Name()]
		if !ok {
			ix = symbols.NewIndex(pf.bundle.Schema())
			indexes[pf.bundle.Name()] = ix
		}
		ix.IndexTree(pf.doc.Tree)
	}
	digests := make(map[string]string, len(indexes))
	if e.opts.Cache != nil {
		for name, ix := range indexes {
			digests[name] = ix.Digest()
		}
	}
	done(indexed)

	// фаза 2: диагностика, индексы только читаются
	done = timer.Phase(observ.PhaseEvaluate)
	results := make([]FileResult, len(paths))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, pf := range parsed {
		if pf.failed != nil {
			results[i] = *pf.failed
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			began := time.Now()
			emit(sink, Event{File: pf.path, Stage: StageDiagnose, Status: StatusWorking})
			name := pf.bundle.Name()
			var rt rules.RuleTimer
			if stats != nil {
				rt = stats
			}
			results[i] = e.lintDocument(pf.bundle, pf.doc, indexes[name], rt, digests[name])
			emit(sink, Event{File: pf.path, Stage: StageDiagnose, Status: StatusDone, Elapsed: time.Since(began)})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	done(indexed)

	res := &Result{Files: results, FailOn: e.opts.FailOn, Phases: timer.Report()}
	if stats != nil {
		res.RuleTimings = stats.Report()
	}
	res.Summary = summarize(results)
	res.Summary.DurationMS = observ.Millis(time.Since(start))
	emit(sink, Event{Stage: StageDiagnose, Status: StatusDone, Elapsed: time.Since(start)})
	log.Debugf("linted %d files in %.1f ms", len(paths), res.Summary.DurationMS)
	return res, nil
}

func (e *Engine) parseOne(path string) parsedFile {
	pf := parsedFile{path: path}
	b, ok := e.reg.ForPath(path)
	if !ok {
		r := ioFailure(path, ErrUnsupported)
		pf.failed = &r
		return pf
	}
	pf.bundle = b
	src, err := os.ReadFile(path)
	if err != nil {
		log.Debugf("read %s: %v", path, err)
		r := ioFailure(path, err)
		pf.failed = &r
		return pf
	}
	doc, err := b.Parse(path, src)
	if err != nil {
		r := e.parseFailure(path, err)
		pf.failed = &r
		return pf
	}
	pf.doc = doc
	return pf
}

func summarize(results []FileResult) Summary {
	var s Summary
	s.Files = len(results)
	for _, r := range results {
		if len(r.Diagnostics) > 0 {
			s.FilesWithIssues++
		}
		if r.Cached {
			s.Cached++
		}
		for _, d := range r.Diagnostics {
			s.Counts.Add(d.Severity)
			switch d.RuleID {
			case RuleParseError:
				s.ParseErrors++
			case RuleIOError:
				s.IOErrors++
			}
		}
	}
	return s
}

func sortMeta(ms []diag.RuleMeta) {
	sort.Slice(ms, func(i, j int) bool { return ms[i].ID < ms[j].ID })
}
