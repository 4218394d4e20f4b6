// Package fix applies the line replacement fixes carried by diagnostics back
// to the files on disk.
package fix

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tliron/commonlog"

	"winter/internal/diag"
	"winter/internal/source"
)

var log = commonlog.GetLogger("winter.fix")

// ErrNoFixes is returned when no fixes were applied.
var ErrNoFixes = errors.New("no applicable fixes found")

// ApplyMode determines selection strategy for fixes.
type ApplyMode uint8

const (
	ApplyModeAll ApplyMode = iota
	ApplyModeOnce
	ApplyModeRule
)

// ApplyOptions configures how fixes are selected.
type ApplyOptions struct {
	Mode        ApplyMode
	RuleID      string // for ApplyModeRule
	AllowUnsafe bool
	DryRun      bool // compute changes without writing
}

// AppliedFix records a successfully applied fix.
type AppliedFix struct {
	RuleID      string
	Description string
	Message     string
	Path        string
	Line        int
	Safety      diag.Safety
}

// SkippedFix captures a skipped or failed fix with a reason.
type SkippedFix struct {
	RuleID      string
	Description string
	Path        string
	Line        int
	Reason      string
}

// LineEdit is one replaced line as it was written.
type LineEdit struct {
	Line int
	Old  string
	New  string
}

// FileChange summarises modifications performed on a file.
type FileChange struct {
	Path  string
	Edits []LineEdit
}

// EditCount is the number of replaced lines.
func (c FileChange) EditCount() int { return len(c.Edits) }

// Diff renders the change as removed and added lines, one hunk per edit.
func (c FileChange) Diff() string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n+++ %s\n", c.Path, c.Path)
	for _, e := range c.Edits {
		newLines := strings.Split(e.New, "\n")
		fmt.Fprintf(&b, "@@ -%d +%d,%d @@\n", e.Line, e.Line, len(newLines))
		fmt.Fprintf(&b, "-%s\n", e.Old)
		for _, l := range newLines {
			fmt.Fprintf(&b, "+%s\n", l)
		}
	}
	return b.String()
}

// ApplyResult aggregates applied fixes, skipped ones, and file changes.
type ApplyResult struct {
	Applied     []AppliedFix
	Skipped     []SkippedFix
	FileChanges []FileChange
}

type candidate struct {
	diag  diag.Diagnostic
	fix   *diag.Fix
	order int
}

func (c candidate) skip(reason string) SkippedFix {
	return SkippedFix{
		RuleID:      c.diag.RuleID,
		Description: c.fix.Description,
		Path:        c.diag.Location.File,
		Line:        c.fix.Line,
		Reason:      reason,
	}
}

// Apply collects fixes from diagnostics, selects a subset according to opts,
// and writes the edited files. Display-only fixes are never applied; unsafe
// ones only with AllowUnsafe.
func Apply(fs *source.FileSet, diagnostics []diag.Diagnostic, opts ApplyOptions) (*ApplyResult, error) {
	result := &ApplyResult{
		Applied:     make([]AppliedFix, 0),
		Skipped:     make([]SkippedFix, 0),
		FileChanges: make([]FileChange, 0),
	}
	if fs == nil {
		return result, fmt.Errorf("fix: FileSet is nil")
	}

	candidates, skips := gatherCandidates(diagnostics, opts.AllowUnsafe)
	result.Skipped = append(result.Skipped, skips...)
	if len(candidates) == 0 {
		return result, ErrNoFixes
	}
	sortCandidates(candidates)

	selected, skips := selectCandidates(candidates, opts)
	result.Skipped = append(result.Skipped, skips...)
	if len(selected) == 0 {
		return result, ErrNoFixes
	}

	applied, skips, changes, err := applyCandidates(fs, selected, opts.DryRun)
	result.Applied = append(result.Applied, applied...)
	result.Skipped = append(result.Skipped, skips...)
	result.FileChanges = append(result.FileChanges, changes...)
	if err != nil {
		return result, err
	}
	if len(result.Applied) == 0 {
		return result, ErrNoFixes
	}
	return result, nil
}

func gatherCandidates(diagnostics []diag.Diagnostic, allowUnsafe bool) ([]candidate, []SkippedFix) {
	cands := make([]candidate, 0)
	skips := make([]SkippedFix, 0)
	for i, d := range diagnostics {
		if d.Fix == nil {
			continue
		}
		c := candidate{diag: d, fix: d.Fix, order: i}
		switch {
		case d.Fix.Safety == diag.SafetyDisplay:
			skips = append(skips, c.skip("display-only fix"))
		case !d.Fix.Applicable(allowUnsafe):
			skips = append(skips, c.skip("unsafe fix, rerun with --unsafe"))
		default:
			cands = append(cands, c)
		}
	}
	return cands, skips
}

// sortCandidates orders by file, line, rule id and finally input order.
func sortCandidates(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.diag.Location.File != b.diag.Location.File {
			return a.diag.Location.File < b.diag.Location.File
		}
		if a.fix.Line != b.fix.Line {
			return a.fix.Line < b.fix.Line
		}
		if a.diag.RuleID != b.diag.RuleID {
			return a.diag.RuleID < b.diag.RuleID
		}
		return a.order < b.order
	})
}

func selectCandidates(candidates []candidate, opts ApplyOptions) ([]candidate, []SkippedFix) {
	switch opts.Mode {
	case ApplyModeRule:
		var selected []candidate
		for _, c := range candidates {
			if c.diag.RuleID == opts.RuleID {
				selected = append(selected, c)
			}
		}
		if len(selected) == 0 {
			return nil, []SkippedFix{{RuleID: opts.RuleID, Reason: "no fixes for rule"}}
		}
		return selected, nil
	case ApplyModeOnce:
		return candidates[:1], nil
	default:
		return candidates, nil
	}
}

type fileBuffer struct {
	file  *source.File
	lines []string
	used  map[int]bool
	edits []LineEdit
}

func loadBuffer(fs *source.FileSet, path string) (*fileBuffer, error) {
	f, ok := fs.GetByPath(path)
	if !ok {
		id, err := fs.Load(path)
		if err != nil {
			return nil, err
		}
		f = fs.Get(id)
	}
	if f.Flags&source.FileVirtual != 0 {
		return nil, errors.New("target file is virtual")
	}
	return &fileBuffer{
		file:  f,
		lines: strings.Split(string(f.Content), "\n"),
		used:  make(map[int]bool),
	}, nil
}

func applyCandidates(fs *source.FileSet, selected []candidate, dryRun bool) ([]AppliedFix, []SkippedFix, []FileChange, error) {
	applied := make([]AppliedFix, 0, len(selected))
	skipped := make([]SkippedFix, 0)
	buffers := make(map[string]*fileBuffer)
	failed := make(map[string]string)
	var order []string

	for _, cand := range selected {
		path := cand.diag.Location.File
		if reason, bad := failed[path]; bad {
			skipped = append(skipped, cand.skip(reason))
			continue
		}
		buf := buffers[path]
		if buf == nil {
			var err error
			buf, err = loadBuffer(fs, path)
			if err != nil {
				failed[path] = err.Error()
				skipped = append(skipped, cand.skip(err.Error()))
				continue
			}
			buffers[path] = buf
			order = append(order, path)
		}

		line := cand.fix.Line
		switch {
		case line < 1 || line > len(buf.lines):
			skipped = append(skipped, cand.skip("line out of range"))
			continue
		case buf.used[line]:
			skipped = append(skipped, cand.skip("conflicts with another fix on the same line"))
			continue
		case buf.lines[line-1] != cand.fix.OldText:
			skipped = append(skipped, cand.skip("source changed since analysis"))
			continue
		}

		buf.edits = append(buf.edits, LineEdit{Line: line, Old: buf.lines[line-1], New: cand.fix.Replacement})
		buf.lines[line-1] = cand.fix.Replacement
		buf.used[line] = true
		applied = append(applied, AppliedFix{
			RuleID:      cand.diag.RuleID,
			Description: cand.fix.Description,
			Message:     cand.diag.Message,
			Path:        path,
			Line:        line,
			Safety:      cand.fix.Safety,
		})
	}

	changes := make([]FileChange, 0, len(order))
	for _, path := range order {
		buf := buffers[path]
		if len(buf.edits) == 0 {
			continue
		}
		if !dryRun {
			if err := writeBuffer(buf); err != nil {
				return applied, skipped, changes, err
			}
			log.Infof("applied %d fix(es) to %s", len(buf.edits), path)
		}
		changes = append(changes, FileChange{Path: path, Edits: buf.edits})
	}
	sort.SliceStable(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return applied, skipped, changes, nil
}

// writeBuffer restores the BOM and CRLF line endings the file was read with
// and keeps its permission bits.
func writeBuffer(buf *fileBuffer) error {
	out := []byte(strings.Join(buf.lines, "\n"))
	if buf.file.Flags&source.FileNormalizedCRLF != 0 {
		out = bytes.ReplaceAll(out, []byte("\n"), []byte("\r\n"))
	}
	if buf.file.Flags&source.FileHadBOM != 0 {
		out = append([]byte{0xEF, 0xBB, 0xBF}, out...)
	}

	path := buf.file.Path
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode()
	}
	if err := os.WriteFile(path, out, mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
